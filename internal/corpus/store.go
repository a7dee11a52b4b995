package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tobiasweide/ragent/internal/db"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Store persists documents in SQLite.
type Store struct {
	db *db.DB
}

// NewStore creates a document store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Add inserts a document. An empty ID is replaced with a new UUID.
func (s *Store) Add(ctx context.Context, doc Document) (Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	meta, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return Document{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, content, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Content, meta,
		doc.CreatedAt.Format(time.DateTime), doc.UpdatedAt.Format(time.DateTime),
	)
	if err != nil {
		return Document{}, fmt.Errorf("inserting document: %w", err)
	}
	return doc, nil
}

// Get retrieves a document by ID.
func (s *Store) Get(ctx context.Context, id string) (Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, metadata, created_at, updated_at
		FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// List returns all documents ordered by creation time, oldest first.
func (s *Store) List(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, metadata, created_at, updated_at
		FROM documents ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Update replaces a document's title and content and bumps UpdatedAt.
func (s *Store) Update(ctx context.Context, id, title, content string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET title = ?, content = ?, updated_at = ?
		WHERE id = ?`,
		title, content, time.Now().UTC().Format(time.DateTime), id)
	if err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var meta string
	var createdAt, updatedAt string

	err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &meta, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("scanning document: %w", err)
	}

	if meta != "" && meta != "{}" {
		if err := json.Unmarshal([]byte(meta), &doc.Metadata); err != nil {
			return Document{}, fmt.Errorf("decoding document metadata: %w", err)
		}
	}
	doc.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	doc.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return doc, nil
}

func marshalMetadata(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding document metadata: %w", err)
	}
	return string(b), nil
}
