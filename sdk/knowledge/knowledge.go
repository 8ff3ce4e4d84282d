// Package knowledge implements the ingestion pipeline and semantic
// search over course documents: parsing, chunking, embedding and the
// duplicate-safe catalog gate.
package knowledge

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/studyhall-ai/studyhall/engine/model"
	"github.com/studyhall-ai/studyhall/storage"
)

// Config holds the knowledge-layer tunables.
type Config struct {
	ChunkSize    int     // characters per chunk
	ChunkOverlap int     // shared characters between consecutive chunks
	MatchCutoff  float64 // minimum fuzzy course-name score in [0,1]
}

// Service ties the catalog, the content index and the embedder together.
type Service struct {
	catalog  storage.CatalogStore
	index    storage.ContentIndex
	embedder model.EmbeddingsProvider
	cfg      Config
}

// IngestResult reports what one document ingestion did. Skipped is the
// duplicate-title no-op signal, not an error.
type IngestResult struct {
	Course      *storage.Course
	ChunksAdded int
	Skipped     bool
}

// Stats is the read-only catalog summary for the web layer.
type Stats struct {
	CourseCount  int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// NewService validates the configuration and builds the service.
func NewService(catalog storage.CatalogStore, index storage.ContentIndex, embedder model.EmbeddingsProvider, cfg Config) (*Service, error) {
	if cfg.ChunkSize <= 0 || cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("%w: size %d overlap %d", ErrInvalidChunking, cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.MatchCutoff < 0 || cfg.MatchCutoff > 1 {
		return nil, fmt.Errorf("%w: match cutoff %v outside [0,1]", ErrInvalidChunking, cfg.MatchCutoff)
	}
	return &Service{catalog: catalog, index: index, embedder: embedder, cfg: cfg}, nil
}

// AddCourseDocument parses, chunks, embeds and stores one course file.
// A title already present in the catalog is skipped, leaving prior
// chunks untouched; use RemoveCourse first to rebuild.
func (s *Service) AddCourseDocument(ctx context.Context, raw string) (*IngestResult, error) {
	doc, err := ParseCourseDocument(raw)
	if err != nil {
		return nil, err
	}

	exists, err := s.catalog.Exists(ctx, doc.Course.Title)
	if err != nil {
		return nil, fmt.Errorf("check catalog: %w", err)
	}
	if exists {
		return &IngestResult{Course: &doc.Course, Skipped: true}, nil
	}

	var chunks []storage.Chunk
	seq := 0
	for _, sec := range doc.Sections {
		parts, err := ChunkText(sec.Text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
		if err != nil {
			return nil, err
		}
		for _, p := range parts {
			chunks = append(chunks, storage.Chunk{
				Text:          p,
				CourseTitle:   doc.Course.Title,
				LessonNumber:  sec.LessonNumber,
				SequenceIndex: seq,
			})
			seq++
		}
	}

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i := range chunks {
			texts[i] = chunks[i].Text
		}
		resp, err := s.embedder.Embed(ctx, &model.EmbeddingRequest{Input: texts})
		if err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		if len(resp.Embeddings) != len(chunks) {
			return nil, fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(resp.Embeddings), len(chunks))
		}
		for i := range chunks {
			chunks[i].Vector = resp.Embeddings[i]
		}
	}

	if err := s.catalog.UpsertCourse(ctx, &doc.Course); err != nil {
		return nil, fmt.Errorf("store course: %w", err)
	}
	if err := s.index.AddChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}
	return &IngestResult{Course: &doc.Course, ChunksAdded: len(chunks)}, nil
}

// AddCourseFolder ingests every .txt/.md file in dir, in name order.
// With clearExisting the whole store is wiped first; otherwise known
// course titles are skipped. Unparseable files are logged and skipped.
func (s *Service) AddCourseFolder(ctx context.Context, dir string, clearExisting bool) (coursesAdded, chunksAdded int, err error) {
	if clearExisting {
		titles, err := s.catalog.ListTitles(ctx)
		if err != nil {
			return 0, 0, fmt.Errorf("list courses: %w", err)
		}
		for _, title := range titles {
			if err := s.RemoveCourse(ctx, title); err != nil {
				return 0, 0, err
			}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("read course folder: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".txt", ".md":
		default:
			continue
		}

		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return coursesAdded, chunksAdded, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		result, err := s.AddCourseDocument(ctx, string(raw))
		if err != nil {
			log.Printf("skipping %s: %v", entry.Name(), err)
			continue
		}
		if result.Skipped {
			continue
		}
		coursesAdded++
		chunksAdded += result.ChunksAdded
	}
	return coursesAdded, chunksAdded, nil
}

// RemoveCourse deletes a course record and every chunk tagged with it.
func (s *Service) RemoveCourse(ctx context.Context, title string) error {
	if err := s.index.RemoveCourse(ctx, title); err != nil {
		return fmt.Errorf("remove chunks for %q: %w", title, err)
	}
	if err := s.catalog.DeleteCourse(ctx, title); err != nil {
		return fmt.Errorf("remove course %q: %w", title, err)
	}
	return nil
}

// Search embeds the query and runs a filtered similarity search.
// Pass an empty courseTitle and storage.NoLesson for an unfiltered search.
func (s *Service) Search(ctx context.Context, query string, topK int, courseTitle string, lessonNumber int) ([]storage.SearchResult, error) {
	resp, err := s.embedder.Embed(ctx, &model.EmbeddingRequest{Input: []string{query}})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("embed query: no vector returned")
	}
	filter := storage.SearchFilter{CourseTitle: courseTitle, LessonNumber: lessonNumber}
	return s.index.Search(ctx, resp.Embeddings[0], topK, filter)
}

// ResolveCourseTitle maps a fuzzy course-name hint to an exact catalog
// title. Resolution fails closed: a best match scoring under the
// configured cutoff is reported as no match rather than guessed.
func (s *Service) ResolveCourseTitle(ctx context.Context, hint string) (string, bool, error) {
	titles, err := s.catalog.ListTitles(ctx)
	if err != nil {
		return "", false, fmt.Errorf("list courses: %w", err)
	}

	best := ""
	bestScore := 0.0
	for _, title := range titles {
		if score := titleMatchScore(hint, title); score > bestScore {
			best, bestScore = title, score
		}
	}
	if bestScore < s.cfg.MatchCutoff {
		return "", false, nil
	}
	return best, true, nil
}

// GetCourse returns the catalog record for an exact title.
func (s *Service) GetCourse(ctx context.Context, title string) (*storage.Course, error) {
	return s.catalog.Get(ctx, title)
}

// GetStats returns the catalog summary.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	count, err := s.catalog.CountCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("count courses: %w", err)
	}
	titles, err := s.catalog.ListTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	if titles == nil {
		titles = []string{}
	}
	return &Stats{CourseCount: count, CourseTitles: titles}, nil
}

// titleMatchScore grades how well a hint names a title: 1.0 for an
// exact case-folded match, 0.9 for containment either way, otherwise
// the fraction of hint tokens present in the title, scaled to 0.8 max.
func titleMatchScore(hint, title string) float64 {
	h := strings.ToLower(strings.TrimSpace(hint))
	t := strings.ToLower(title)
	if h == "" {
		return 0
	}
	if h == t {
		return 1
	}
	if strings.Contains(t, h) || strings.Contains(h, t) {
		return 0.9
	}

	titleTokens := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(t, isTokenSep) {
		titleTokens[tok] = true
	}
	hintTokens := strings.FieldsFunc(h, isTokenSep)
	if len(hintTokens) == 0 {
		return 0
	}
	shared := 0
	for _, tok := range hintTokens {
		if titleTokens[tok] {
			shared++
		}
	}
	return 0.8 * float64(shared) / float64(len(hintTokens))
}

func isTokenSep(r rune) bool {
	return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
}
