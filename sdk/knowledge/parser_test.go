package knowledge

import (
	"strings"
	"testing"

	"github.com/studyhall-ai/studyhall/storage"
)

const sampleCourse = `Course Title: Intro to X
Course Link: https://example.com/x
Course Instructor: Ada

Lesson 0: Welcome
Lesson Link: https://example.com/x/0
Welcome to the course. This lesson covers logistics.

Lesson 1: Widgets
Lesson Link: https://example.com/x/1
Widgets are small machines. Widgets help automate tasks.
`

func TestParseCourseDocument(t *testing.T) {
	doc, err := ParseCourseDocument(sampleCourse)
	if err != nil {
		t.Fatalf("ParseCourseDocument: %v", err)
	}

	c := doc.Course
	if c.Title != "Intro to X" || c.Instructor != "Ada" || c.Link != "https://example.com/x" {
		t.Fatalf("header mismatch: %+v", c)
	}
	if len(c.Lessons) != 2 {
		t.Fatalf("expected 2 lessons, got %d", len(c.Lessons))
	}
	if c.Lessons[0].Number != 0 || c.Lessons[0].Title != "Welcome" || c.Lessons[0].Link != "https://example.com/x/0" {
		t.Fatalf("lesson 0 mismatch: %+v", c.Lessons[0])
	}
	if c.Lessons[1].Number != 1 || c.Lessons[1].Link != "https://example.com/x/1" {
		t.Fatalf("lesson 1 mismatch: %+v", c.Lessons[1])
	}

	if len(doc.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(doc.Sections))
	}
	if doc.Sections[1].LessonNumber != 1 {
		t.Fatalf("section lesson mismatch: %+v", doc.Sections[1])
	}
	if !strings.Contains(doc.Sections[1].Text, "Widgets are small machines.") {
		t.Fatalf("lesson text lost: %q", doc.Sections[1].Text)
	}
	if strings.Contains(doc.Sections[1].Text, "Lesson Link") {
		t.Fatalf("link line leaked into content: %q", doc.Sections[1].Text)
	}
}

func TestParseCourseDocumentNoLessons(t *testing.T) {
	raw := "Course Title: Flat Course\n\nJust one body of text without lesson markers.\n"
	doc, err := ParseCourseDocument(raw)
	if err != nil {
		t.Fatalf("ParseCourseDocument: %v", err)
	}
	if len(doc.Course.Lessons) != 0 {
		t.Fatalf("expected no lessons, got %+v", doc.Course.Lessons)
	}
	if len(doc.Sections) != 1 || doc.Sections[0].LessonNumber != storage.NoLesson {
		t.Fatalf("expected one document-level section, got %+v", doc.Sections)
	}
}

func TestParseCourseDocumentMissingTitle(t *testing.T) {
	if _, err := ParseCourseDocument("Lesson 1: Things\nSome text.\n"); err == nil {
		t.Fatal("expected error for missing course title")
	}
}
