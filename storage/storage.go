// Package storage defines the course data model and the persistence
// interfaces for the catalog and the vector content index.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a catalog lookup misses.
var ErrNotFound = errors.New("not found")

// Lesson is a single lesson within a course. Numbers are unique within
// their course and are used for search filtering and citations.
type Lesson struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

// Course is one ingested course document. The title is the identity:
// it must be unique across the catalog.
type Course struct {
	Title      string   `json:"title"`
	Instructor string   `json:"instructor,omitempty"`
	Link       string   `json:"link,omitempty"`
	Lessons    []Lesson `json:"lessons,omitempty"`
}

// Lesson returns the lesson with the given number, if present.
func (c *Course) Lesson(number int) (*Lesson, bool) {
	for i := range c.Lessons {
		if c.Lessons[i].Number == number {
			return &c.Lessons[i], true
		}
	}
	return nil, false
}

// CatalogStore holds one compact record per course. Exists is the
// duplicate-detection gate used by ingestion.
type CatalogStore interface {
	// UpsertCourse inserts or replaces a course record.
	UpsertCourse(ctx context.Context, course *Course) error

	// Exists reports whether a course with the given title is known.
	Exists(ctx context.Context, title string) (bool, error)

	// ListTitles returns all course titles in a stable order.
	ListTitles(ctx context.Context) ([]string, error)

	// Get returns the course with the given title or ErrNotFound.
	Get(ctx context.Context, title string) (*Course, error)

	// DeleteCourse removes the catalog record for a title, if present.
	DeleteCourse(ctx context.Context, title string) error

	// CountCourses returns the number of courses in the catalog.
	CountCourses(ctx context.Context) (int, error)
}
