package tool

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// OutlineTool lets the model fetch a course's structure (title, link and
// numbered lesson list) from the catalog without a content search.
type OutlineTool struct {
	searcher CourseSearcher

	mu      sync.Mutex
	sources []Source
}

// NewOutlineTool creates the course-outline tool.
func NewOutlineTool(searcher CourseSearcher) *OutlineTool {
	return &OutlineTool{searcher: searcher}
}

func (t *OutlineTool) Definition() Definition {
	return Definition{
		Name:        "get_course_outline",
		Description: "Get a course's outline: its title, link and the full numbered lesson list.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"course_name": map[string]any{
					"type":        "string",
					"description": "Course title to look up (partial names are matched)",
				},
			},
			"required": []string{"course_name"},
		},
	}
}

func (t *OutlineTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	t.mu.Lock()
	t.sources = nil
	t.mu.Unlock()

	hint, _ := args["course_name"].(string)
	if strings.TrimSpace(hint) == "" {
		return "", fmt.Errorf("get_course_outline: course_name is required")
	}

	title, ok, err := t.searcher.ResolveCourseTitle(ctx, hint)
	if err != nil {
		return "", fmt.Errorf("resolve course %q: %w", hint, err)
	}
	if !ok {
		return fmt.Sprintf("No course found matching '%s'.", hint), nil
	}

	course, err := t.searcher.GetCourse(ctx, title)
	if err != nil {
		return "", fmt.Errorf("get course %q: %w", title, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Course: %s\n", course.Title)
	if course.Link != "" {
		fmt.Fprintf(&b, "Link: %s\n", course.Link)
	}
	if course.Instructor != "" {
		fmt.Fprintf(&b, "Instructor: %s\n", course.Instructor)
	}
	if len(course.Lessons) > 0 {
		b.WriteString("Lessons:\n")
		for _, l := range course.Lessons {
			fmt.Fprintf(&b, "  %d. %s\n", l.Number, l.Title)
		}
	}

	t.mu.Lock()
	t.sources = []Source{{Label: course.Title, Link: course.Link}}
	t.mu.Unlock()
	return b.String(), nil
}

func (t *OutlineTool) Sources() []Source {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Source(nil), t.sources...)
}

func (t *OutlineTool) ResetSources() {
	t.mu.Lock()
	t.sources = nil
	t.mu.Unlock()
}
