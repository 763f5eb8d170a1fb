package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/salafibot/salafibot/internal/db"
)

// DocumentName is the row key the config document is stored under.
const DocumentName = "config"

// SQLiteSink stores the encoded document as one row of the documents table.
type SQLiteSink struct {
	db   *sql.DB
	name string
}

// OpenSQLiteSink opens (and migrates) the database at path.
func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	conn, err := db.NewSQLite(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteSink(conn), nil
}

// NewSQLiteSink wraps an already migrated database.
func NewSQLiteSink(conn *sql.DB) *SQLiteSink {
	return &SQLiteSink{db: conn, name: DocumentName}
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

func (s *SQLiteSink) Load() (*Document, error) {
	return s.load(s.db)
}

func (s *SQLiteSink) Save(doc *Document) error {
	return s.save(s.db, doc)
}

// Update runs the read and the write in one transaction.
func (s *SQLiteSink) Update(fn func(doc *Document) error) (*Document, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin update %q: %w", s.name, err)
	}
	defer tx.Rollback()

	doc, err := s.load(tx)
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	if err := s.save(tx, doc); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit document %q: %w", s.name, err)
	}
	return doc, nil
}

func (s *SQLiteSink) load(q querier) (*Document, error) {
	var body string
	err := q.QueryRow(`SELECT body FROM documents WHERE name = ?`, s.name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load document %q: %w", s.name, err)
	}
	doc, err := Decode([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("parse document %q: %w", s.name, err)
	}
	return doc, nil
}

func (s *SQLiteSink) save(q querier, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	_, err = q.Exec(`
		INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		s.name, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save document %q: %w", s.name, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
