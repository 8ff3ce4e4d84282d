// Package sqlite provides a SQLite-backed CatalogStore and ContentIndex.
// Embedding vectors are stored as little-endian float32 blobs and ranked
// in-process, which keeps the whole service a single binary.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"github.com/studyhall-ai/studyhall/storage"
)

// Store implements storage.CatalogStore and storage.ContentIndex on SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at the given path. Use ":memory:"
// for an ephemeral store.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// Ingestion writes must not interleave with reads of the same course.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// Migrate creates all required tables.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS courses (
			title TEXT PRIMARY KEY,
			instructor TEXT,
			link TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS lessons (
			course_title TEXT NOT NULL,
			number INTEGER NOT NULL,
			title TEXT NOT NULL,
			link TEXT,
			PRIMARY KEY (course_title, number)
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			course_title TEXT NOT NULL,
			lesson_number INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			text TEXT NOT NULL,
			vector BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_course ON chunks(course_title, lesson_number)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// --- Catalog ---

func (s *Store) UpsertCourse(ctx context.Context, course *storage.Course) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert course: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO courses (title, instructor, link) VALUES (?,?,?)
		 ON CONFLICT(title) DO UPDATE SET instructor=excluded.instructor, link=excluded.link`,
		course.Title, course.Instructor, course.Link,
	); err != nil {
		return fmt.Errorf("upsert course: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM lessons WHERE course_title=?`, course.Title); err != nil {
		return fmt.Errorf("upsert course lessons: %w", err)
	}
	for _, l := range course.Lessons {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO lessons (course_title, number, title, link) VALUES (?,?,?,?)`,
			course.Title, l.Number, l.Title, l.Link,
		); err != nil {
			return fmt.Errorf("upsert course lessons: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) Exists(ctx context.Context, title string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM courses WHERE title=?`, title).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return true, nil
}

func (s *Store) ListTitles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title FROM courses ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("list titles: %w", err)
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

func (s *Store) Get(ctx context.Context, title string) (*storage.Course, error) {
	course := &storage.Course{}
	err := s.db.QueryRowContext(ctx,
		`SELECT title, instructor, link FROM courses WHERE title=?`, title,
	).Scan(&course.Title, &course.Instructor, &course.Link)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT number, title, link FROM lessons WHERE course_title=? ORDER BY number`, title)
	if err != nil {
		return nil, fmt.Errorf("get course lessons: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l storage.Lesson
		if err := rows.Scan(&l.Number, &l.Title, &l.Link); err != nil {
			return nil, fmt.Errorf("get course lessons: %w", err)
		}
		course.Lessons = append(course.Lessons, l)
	}
	return course, rows.Err()
}

func (s *Store) CountCourses(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return n, nil
}

// --- Content index ---

func (s *Store) AddChunks(ctx context.Context, chunks []storage.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("add chunks: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (course_title, lesson_number, seq, text, vector) VALUES (?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("add chunks: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.CourseTitle, c.LessonNumber, c.SequenceIndex, c.Text, encodeVector(c.Vector)); err != nil {
			return fmt.Errorf("add chunks: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) Search(ctx context.Context, vector []float32, topK int, filter storage.SearchFilter) ([]storage.SearchResult, error) {
	if topK <= 0 {
		return nil, storage.ErrInvalidTopK
	}

	query := `SELECT course_title, lesson_number, seq, text, vector FROM chunks`
	var args []any
	var where []string
	if filter.CourseTitle != "" {
		where = append(where, `course_title=?`)
		args = append(args, filter.CourseTitle)
	}
	if filter.LessonNumber != storage.NoLesson {
		where = append(where, `lesson_number=?`)
		args = append(args, filter.LessonNumber)
	}
	for i, w := range where {
		if i == 0 {
			query += ` WHERE ` + w
		} else {
			query += ` AND ` + w
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	var results []storage.SearchResult
	for rows.Next() {
		var r storage.SearchResult
		var blob []byte
		if err := rows.Scan(&r.CourseTitle, &r.LessonNumber, &r.SequenceIndex, &r.Text, &blob); err != nil {
			return nil, fmt.Errorf("search scan: %w", err)
		}
		r.Vector = decodeVector(blob)
		r.Score = storage.Cosine(vector, r.Vector)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	sort.Slice(results, func(i, j int) bool { return storage.Less(results[i], results[j]) })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *Store) DeleteCourse(ctx context.Context, title string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM lessons WHERE course_title=?`,
		`DELETE FROM courses WHERE title=?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, title); err != nil {
			return fmt.Errorf("delete course: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) RemoveCourse(ctx context.Context, title string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE course_title=?`, title); err != nil {
		return fmt.Errorf("remove course chunks: %w", err)
	}
	return nil
}

func (s *Store) CountChunks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
