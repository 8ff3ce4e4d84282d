// Package memory provides an in-process CatalogStore and ContentIndex,
// used by tests and single-run ingestion checks.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/studyhall-ai/studyhall/storage"
)

// Store implements storage.CatalogStore and storage.ContentIndex in memory.
type Store struct {
	mu      sync.RWMutex
	courses map[string]*storage.Course
	order   []string // titles in insertion order
	chunks  []storage.Chunk
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{courses: make(map[string]*storage.Course)}
}

func (s *Store) UpsertCourse(_ context.Context, course *storage.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[course.Title]; !ok {
		s.order = append(s.order, course.Title)
	}
	cp := *course
	cp.Lessons = append([]storage.Lesson(nil), course.Lessons...)
	s.courses[course.Title] = &cp
	return nil
}

func (s *Store) Exists(_ context.Context, title string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.courses[title]
	return ok, nil
}

func (s *Store) ListTitles(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...), nil
}

func (s *Store) Get(_ context.Context, title string) (*storage.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	course, ok := s.courses[title]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *course
	cp.Lessons = append([]storage.Lesson(nil), course.Lessons...)
	return &cp, nil
}

func (s *Store) CountCourses(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.courses), nil
}

func (s *Store) AddChunks(_ context.Context, chunks []storage.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunks...)
	return nil
}

func (s *Store) Search(_ context.Context, vector []float32, topK int, filter storage.SearchFilter) ([]storage.SearchResult, error) {
	if topK <= 0 {
		return nil, storage.ErrInvalidTopK
	}

	s.mu.RLock()
	results := make([]storage.SearchResult, 0, topK)
	for i := range s.chunks {
		c := &s.chunks[i]
		if !filter.Matches(c) {
			continue
		}
		results = append(results, storage.SearchResult{
			Chunk: *c,
			Score: storage.Cosine(vector, c.Vector),
		})
	}
	s.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool { return storage.Less(results[i], results[j]) })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *Store) DeleteCourse(_ context.Context, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[title]; ok {
		delete(s.courses, title)
		for i, t := range s.order {
			if t == title {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (s *Store) RemoveCourse(_ context.Context, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.chunks[:0]
	for _, c := range s.chunks {
		if c.CourseTitle != title {
			kept = append(kept, c)
		}
	}
	s.chunks = kept
	return nil
}

func (s *Store) CountChunks(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}
