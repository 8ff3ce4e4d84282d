package tool

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/studyhall-ai/studyhall/storage"
)

// CourseSearcher is the slice of the knowledge service the tools need.
type CourseSearcher interface {
	// Search embeds the query and returns ranked chunks, optionally
	// filtered by exact course title and/or lesson number.
	Search(ctx context.Context, query string, topK int, courseTitle string, lessonNumber int) ([]storage.SearchResult, error)

	// ResolveCourseTitle maps a fuzzy course-name hint to an exact
	// catalog title. ok is false when nothing matches well enough.
	ResolveCourseTitle(ctx context.Context, hint string) (title string, ok bool, err error)

	// GetCourse returns the catalog record for an exact title.
	GetCourse(ctx context.Context, title string) (*storage.Course, error)
}

// SearchTool lets the model search course content. Each execution
// replaces the previously recorded source set.
type SearchTool struct {
	searcher   CourseSearcher
	maxResults int

	mu      sync.Mutex
	sources []Source
}

// NewSearchTool creates the course-content search tool. maxResults is
// the number of chunks returned per search.
func NewSearchTool(searcher CourseSearcher, maxResults int) *SearchTool {
	return &SearchTool{searcher: searcher, maxResults: maxResults}
}

func (t *SearchTool) Definition() Definition {
	return Definition{
		Name:        "search_course_content",
		Description: "Search course materials for content relevant to a question, with optional course and lesson filters.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to search for in the course content",
				},
				"course_name": map[string]any{
					"type":        "string",
					"description": "Course title to restrict the search to (partial names are matched)",
				},
				"lesson_number": map[string]any{
					"type":        "integer",
					"description": "Lesson number to restrict the search to",
				},
			},
			"required": []string{"query"},
		},
	}
}

func (t *SearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	// Every execution starts a fresh source set, even a failed one.
	t.setSources(nil)

	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("search_course_content: query is required")
	}

	courseTitle := ""
	if hint, _ := args["course_name"].(string); hint != "" {
		title, ok, err := t.searcher.ResolveCourseTitle(ctx, hint)
		if err != nil {
			return "", fmt.Errorf("resolve course %q: %w", hint, err)
		}
		if !ok {
			return fmt.Sprintf("No course found matching '%s'.", hint), nil
		}
		courseTitle = title
	}

	lessonNumber, err := lessonNumberArg(args)
	if err != nil {
		return "", err
	}

	results, err := t.searcher.Search(ctx, query, t.maxResults, courseTitle, lessonNumber)
	if err != nil {
		return "", fmt.Errorf("search course content: %w", err)
	}
	if len(results) == 0 {
		return noResultsMessage(courseTitle, lessonNumber), nil
	}

	lessonLinks := t.lessonLinks(ctx, results)

	var sources []Source
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label := r.CourseTitle
		if r.LessonNumber != storage.NoLesson {
			label = fmt.Sprintf("%s - Lesson %d", r.CourseTitle, r.LessonNumber)
		}
		fmt.Fprintf(&b, "[%s]\n%s", label, r.Text)
		sources = append(sources, Source{Label: label, Link: lessonLinks[linkKey{r.CourseTitle, r.LessonNumber}]})
	}

	t.setSources(sources)
	return b.String(), nil
}

func (t *SearchTool) Sources() []Source {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Source(nil), t.sources...)
}

func (t *SearchTool) ResetSources() { t.setSources(nil) }

func (t *SearchTool) setSources(sources []Source) {
	t.mu.Lock()
	t.sources = sources
	t.mu.Unlock()
}

// lessonNumberArg reads the optional lesson_number argument. JSON
// delivers numbers as float64, but models sometimes quote them.
func lessonNumberArg(args map[string]any) (int, error) {
	raw, ok := args["lesson_number"]
	if !ok || raw == nil {
		return storage.NoLesson, nil
	}
	switch v := raw.(type) {
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("search_course_content: lesson_number %q is not a number", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("search_course_content: lesson_number must be a number, got %T", raw)
	}
}

type linkKey struct {
	course string
	lesson int
}

// lessonLinks looks up citation links for the courses a result set
// touches. Lookup failures just leave the link empty.
func (t *SearchTool) lessonLinks(ctx context.Context, results []storage.SearchResult) map[linkKey]string {
	links := make(map[linkKey]string)
	courses := make(map[string]*storage.Course)
	for _, r := range results {
		course, ok := courses[r.CourseTitle]
		if !ok {
			course, _ = t.searcher.GetCourse(ctx, r.CourseTitle)
			courses[r.CourseTitle] = course
		}
		if course == nil {
			continue
		}
		key := linkKey{r.CourseTitle, r.LessonNumber}
		if r.LessonNumber == storage.NoLesson {
			links[key] = course.Link
		} else if lesson, ok := course.Lesson(r.LessonNumber); ok {
			links[key] = lesson.Link
		}
	}
	return links
}

func noResultsMessage(courseTitle string, lessonNumber int) string {
	msg := "No relevant content found"
	if courseTitle != "" {
		msg += fmt.Sprintf(" in course '%s'", courseTitle)
	}
	if lessonNumber != storage.NoLesson {
		msg += fmt.Sprintf(" in lesson %d", lessonNumber)
	}
	return msg + "."
}
