package knowledge

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/studyhall-ai/studyhall/storage"
)

// Document is a parsed course file: the catalog record plus the raw
// text of each section, ready for chunking.
type Document struct {
	Course   storage.Course
	Sections []Section
}

// Section is the text belonging to one lesson, or to the document as a
// whole when the file has no lesson markers.
type Section struct {
	LessonNumber int // storage.NoLesson for document-level text
	Text         string
}

var lessonMarker = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// ParseCourseDocument parses a course file. The expected shape is a
// header block (Course Title / Course Link / Course Instructor lines)
// followed by "Lesson N: Title" sections, each optionally opening with
// a "Lesson Link:" line. Files without lesson markers become a single
// document-level section.
func ParseCourseDocument(raw string) (*Document, error) {
	doc := &Document{}

	var current *Section
	var currentLesson *storage.Lesson
	var body strings.Builder
	inHeader := true

	flush := func() {
		if current != nil {
			current.Text = strings.TrimSpace(body.String())
			if current.Text != "" {
				doc.Sections = append(doc.Sections, *current)
			}
		}
		body.Reset()
		current = nil
		currentLesson = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if m := lessonMarker.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			number, _ := strconv.Atoi(m[1])
			doc.Course.Lessons = append(doc.Course.Lessons, storage.Lesson{Number: number, Title: strings.TrimSpace(m[2])})
			currentLesson = &doc.Course.Lessons[len(doc.Course.Lessons)-1]
			current = &Section{LessonNumber: number}
			inHeader = false
			continue
		}

		if inHeader {
			trimmed := strings.TrimSpace(line)
			switch {
			case strings.HasPrefix(trimmed, "Course Title:"):
				doc.Course.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Title:"))
				continue
			case strings.HasPrefix(trimmed, "Course Link:"):
				doc.Course.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Link:"))
				continue
			case strings.HasPrefix(trimmed, "Course Instructor:"):
				doc.Course.Instructor = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Instructor:"))
				continue
			case trimmed == "":
				continue
			}
			// First non-header line: the rest is document-level text.
			current = &Section{LessonNumber: storage.NoLesson}
			inHeader = false
		}

		if currentLesson != nil && currentLesson.Link == "" && strings.TrimSpace(body.String()) == "" {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "Lesson Link:") {
				currentLesson.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, "Lesson Link:"))
				continue
			}
		}

		if current == nil {
			current = &Section{LessonNumber: storage.NoLesson}
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse course document: %w", err)
	}
	flush()

	if doc.Course.Title == "" {
		return nil, fmt.Errorf("parse course document: missing Course Title header")
	}
	return doc, nil
}
