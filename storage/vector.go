package storage

import (
	"context"
	"errors"
	"math"
)

// NoLesson marks a chunk or filter as document-level (no lesson number).
const NoLesson = -1

// ErrInvalidTopK is returned when a search is asked for a non-positive
// number of results.
var ErrInvalidTopK = errors.New("top_k must be a positive integer")

// Chunk is an overlapping substring of a course document, stored with
// its provenance and embedding vector.
type Chunk struct {
	Text          string    `json:"text"`
	CourseTitle   string    `json:"course_title"`
	LessonNumber  int       `json:"lesson_number"` // NoLesson for document-level text
	SequenceIndex int       `json:"sequence_index"`
	Vector        []float32 `json:"-"`
}

// SearchResult is a single ranked hit from a similarity search.
type SearchResult struct {
	Chunk
	Score float32 `json:"score"`
}

// SearchFilter restricts a search to a course and/or lesson.
// The zero filter with LessonNumber set to NoLesson matches everything.
type SearchFilter struct {
	CourseTitle  string // exact title; empty matches all courses
	LessonNumber int    // NoLesson matches all lessons
}

// AllContent is the filter that matches every chunk.
func AllContent() SearchFilter {
	return SearchFilter{LessonNumber: NoLesson}
}

// Matches reports whether the chunk passes the filter.
func (f SearchFilter) Matches(c *Chunk) bool {
	if f.CourseTitle != "" && c.CourseTitle != f.CourseTitle {
		return false
	}
	if f.LessonNumber != NoLesson && c.LessonNumber != f.LessonNumber {
		return false
	}
	return true
}

// ContentIndex stores chunk vectors and answers nearest-neighbor queries.
// Ranking is by cosine similarity descending; ties break by ascending
// sequence index, then ascending course title.
type ContentIndex interface {
	// AddChunks bulk-inserts chunks with their vectors attached.
	AddChunks(ctx context.Context, chunks []Chunk) error

	// Search returns the topK most similar chunks passing the filter.
	// An empty index yields an empty result, not an error.
	Search(ctx context.Context, vector []float32, topK int, filter SearchFilter) ([]SearchResult, error)

	// RemoveCourse deletes every chunk tagged with the course title.
	RemoveCourse(ctx context.Context, title string) error

	// CountChunks returns the total number of stored chunks.
	CountChunks(ctx context.Context) (int, error)
}

// Cosine returns the cosine similarity of two vectors. Mismatched or
// zero-magnitude vectors score 0.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Less orders search results for ranking: higher score first, then
// ascending sequence index, then ascending course title.
func Less(a, b SearchResult) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.SequenceIndex != b.SequenceIndex {
		return a.SequenceIndex < b.SequenceIndex
	}
	return a.CourseTitle < b.CourseTitle
}
