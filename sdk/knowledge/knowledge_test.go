package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/studyhall-ai/studyhall/engine/model"
	"github.com/studyhall-ai/studyhall/storage"
	"github.com/studyhall-ai/studyhall/storage/adapters/memory"
)

// freqEmbedder maps text to a letter-frequency vector, so texts sharing
// wording land close together without a real embedding backend.
type freqEmbedder struct{}

func (freqEmbedder) Embed(_ context.Context, req *model.EmbeddingRequest) (*model.EmbeddingResponse, error) {
	out := make([][]float32, len(req.Input))
	for i, text := range req.Input {
		vec := make([]float32, 26)
		for _, r := range strings.ToLower(text) {
			if 'a' <= r && r <= 'z' {
				vec[r-'a']++
			}
		}
		out[i] = vec
	}
	return &model.EmbeddingResponse{Embeddings: out}, nil
}

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc, err := NewService(store, store, freqEmbedder{}, Config{
		ChunkSize:    200,
		ChunkOverlap: 40,
		MatchCutoff:  0.4,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func TestNewServiceValidation(t *testing.T) {
	store := memory.New()
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero chunk size", Config{ChunkSize: 0, ChunkOverlap: 0}},
		{"overlap too large", Config{ChunkSize: 100, ChunkOverlap: 100}},
		{"cutoff out of range", Config{ChunkSize: 100, ChunkOverlap: 10, MatchCutoff: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewService(store, store, freqEmbedder{}, tt.cfg); err == nil {
				t.Fatal("expected configuration error")
			}
		})
	}
}

func TestAddCourseDocumentAndDuplicateSkip(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	result, err := svc.AddCourseDocument(ctx, sampleCourse)
	if err != nil {
		t.Fatalf("AddCourseDocument: %v", err)
	}
	if result.Skipped {
		t.Fatal("first ingestion must not be skipped")
	}
	if result.ChunksAdded == 0 {
		t.Fatal("no chunks ingested")
	}
	firstCount, _ := store.CountChunks(ctx)

	// Second ingestion of the same title is an idempotent no-op.
	again, err := svc.AddCourseDocument(ctx, sampleCourse)
	if err != nil {
		t.Fatalf("AddCourseDocument (repeat): %v", err)
	}
	if !again.Skipped || again.ChunksAdded != 0 {
		t.Fatalf("expected duplicate skip, got %+v", again)
	}
	if n, _ := store.CountChunks(ctx); n != firstCount {
		t.Fatalf("chunk count changed on duplicate: %d -> %d", firstCount, n)
	}
	if n, _ := store.CountCourses(ctx); n != 1 {
		t.Fatalf("expected 1 course, got %d", n)
	}
}

func TestRemoveCourseAndRebuild(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	first, err := svc.AddCourseDocument(ctx, sampleCourse)
	if err != nil {
		t.Fatalf("AddCourseDocument: %v", err)
	}

	if err := svc.RemoveCourse(ctx, first.Course.Title); err != nil {
		t.Fatalf("RemoveCourse: %v", err)
	}
	if n, _ := store.CountChunks(ctx); n != 0 {
		t.Fatalf("chunks remain after removal: %d", n)
	}

	rebuilt, err := svc.AddCourseDocument(ctx, sampleCourse)
	if err != nil {
		t.Fatalf("AddCourseDocument (rebuild): %v", err)
	}
	if rebuilt.Skipped {
		t.Fatal("rebuild after removal must not be skipped")
	}
	if rebuilt.ChunksAdded != first.ChunksAdded {
		t.Fatalf("rebuild chunk count %d != fresh count %d", rebuilt.ChunksAdded, first.ChunksAdded)
	}
}

func TestSearchFindsClosestChunk(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddCourseDocument(ctx, sampleCourse); err != nil {
		t.Fatalf("AddCourseDocument: %v", err)
	}

	results, err := svc.Search(ctx, "widgets automate tasks", 1, "", storage.NoLesson)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !strings.Contains(results[0].Text, "Widgets are small machines.") {
		t.Fatalf("closest chunk not first: %q", results[0].Text)
	}
	if results[0].LessonNumber != 1 {
		t.Fatalf("provenance lost: %+v", results[0])
	}
}

// emptyEmbedder returns no vectors at all, whatever the input.
type emptyEmbedder struct{}

func (emptyEmbedder) Embed(context.Context, *model.EmbeddingRequest) (*model.EmbeddingResponse, error) {
	return &model.EmbeddingResponse{}, nil
}

func TestSearchRejectsEmptyEmbedding(t *testing.T) {
	store := memory.New()
	svc, err := NewService(store, store, emptyEmbedder{}, Config{
		ChunkSize: 200, ChunkOverlap: 40, MatchCutoff: 0.4,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.Search(context.Background(), "anything", 5, "", storage.NoLesson)
	if err == nil || !strings.Contains(err.Error(), "no vector") {
		t.Fatalf("expected embedding error, got %v", err)
	}
}

func TestResolveCourseTitle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.AddCourseDocument(ctx, sampleCourse); err != nil {
		t.Fatalf("AddCourseDocument: %v", err)
	}

	tests := []struct {
		name  string
		hint  string
		want  string
		found bool
	}{
		{"exact", "Intro to X", "Intro to X", true},
		{"case-insensitive", "intro to x", "Intro to X", true},
		{"partial", "intro", "Intro to X", true},
		{"token overlap", "the X intro", "Intro to X", true},
		{"unrelated fails closed", "basket weaving", "", false},
		{"empty hint", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := svc.ResolveCourseTitle(ctx, tt.hint)
			if err != nil {
				t.Fatalf("ResolveCourseTitle: %v", err)
			}
			if ok != tt.found || got != tt.want {
				t.Fatalf("ResolveCourseTitle(%q) = %q, %v; want %q, %v", tt.hint, got, ok, tt.want, tt.found)
			}
		})
	}
}

func TestAddCourseFolder(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	dir := t.TempDir()
	second := strings.Replace(sampleCourse, "Intro to X", "Advanced Y", 1)
	writeFile(t, filepath.Join(dir, "a_course.txt"), sampleCourse)
	writeFile(t, filepath.Join(dir, "b_course.txt"), second)
	writeFile(t, filepath.Join(dir, "notes.json"), `{"ignored": true}`)

	courses, chunks, err := svc.AddCourseFolder(ctx, dir, false)
	if err != nil {
		t.Fatalf("AddCourseFolder: %v", err)
	}
	if courses != 2 || chunks == 0 {
		t.Fatalf("expected 2 courses with chunks, got courses=%d chunks=%d", courses, chunks)
	}

	// Re-running without clearing skips everything.
	courses, chunks, err = svc.AddCourseFolder(ctx, dir, false)
	if err != nil {
		t.Fatalf("AddCourseFolder (repeat): %v", err)
	}
	if courses != 0 || chunks != 0 {
		t.Fatalf("expected full skip, got courses=%d chunks=%d", courses, chunks)
	}

	// clearExisting rebuilds from scratch.
	courses, _, err = svc.AddCourseFolder(ctx, dir, true)
	if err != nil {
		t.Fatalf("AddCourseFolder (clear): %v", err)
	}
	if courses != 2 {
		t.Fatalf("expected 2 courses after rebuild, got %d", courses)
	}
	if n, _ := store.CountCourses(ctx); n != 2 {
		t.Fatalf("expected 2 courses in catalog, got %d", n)
	}
}

func TestGetStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	stats, err := svc.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.CourseCount != 0 || len(stats.CourseTitles) != 0 {
		t.Fatalf("expected empty stats, got %+v", stats)
	}

	if _, err := svc.AddCourseDocument(ctx, sampleCourse); err != nil {
		t.Fatalf("AddCourseDocument: %v", err)
	}
	stats, err = svc.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.CourseCount != 1 || stats.CourseTitles[0] != "Intro to X" {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
