// Package docstore provides vector search and exact-key lookup over
// indexed content summaries, backed by SQLite with the sqlite-vec
// extension. The index is populated once by ingestion and treated as
// read-only afterwards.
package docstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"streamagent/internal/embedding"
)

// Document is one unit from the store. Similarity is in [0,1]: 1.0 for
// an exact/identity match, lower for approximate neighbors.
type Document struct {
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata"`
	Similarity float64           `json:"similarity"`
}

// Title returns the document's human-readable title.
func (d Document) Title() string {
	if t := d.Metadata["title"]; t != "" {
		return t
	}
	return "Unknown"
}

// Result is the tagged outcome of a retrieval call. On success
// Documents are ordered by descending similarity.
type Result struct {
	Success   bool       `json:"success"`
	Documents []Document `json:"documents,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Failure builds a failed Result from an error.
func Failure(err error) Result {
	return Result{Error: err.Error()}
}

// Store is a document index over a single SQLite file.
type Store struct {
	db     *sql.DB
	engine embedding.Engine
	log    *zap.Logger
}

// Open opens (creating if needed) the index at path.
func Open(path string, engine embedding.Engine, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open document index: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("verify document index: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			filename TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding BLOB NOT NULL
		)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}

	return &Store{db: db, engine: engine, log: log}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Count returns the number of indexed documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Search embeds the query text and returns up to topK documents ordered
// by descending cosine similarity (similarity = 1 - cosine distance).
// An empty index or embedding failure yields a failure result.
func (s *Store) Search(ctx context.Context, query string, topK int) Result {
	if topK <= 0 {
		topK = 3
	}

	queryEmbedding, err := s.engine.Embed(ctx, query)
	if err != nil {
		s.log.Error("query embedding failed", zap.Error(err))
		return Failure(fmt.Errorf("embedding failed: %w", err))
	}
	queryBlob := encodeFloat32Blob(queryEmbedding)

	const q = `
		SELECT id, title, filename, content,
		       vec_distance_cosine(embedding, ?) AS distance
		FROM documents
		ORDER BY distance ASC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, q, queryBlob, topK)
	if err != nil {
		s.log.Error("vector search failed", zap.Error(err))
		return Failure(fmt.Errorf("vector search failed: %w", err))
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id, title, filename, content string
		var distance float64
		if err := rows.Scan(&id, &title, &filename, &content, &distance); err != nil {
			return Failure(fmt.Errorf("scan search result: %w", err))
		}
		docs = append(docs, Document{
			Text:       content,
			Metadata:   map[string]string{"title": title, "filename": filename},
			Similarity: 1 - distance,
		})
	}
	if err := rows.Err(); err != nil {
		return Failure(fmt.Errorf("iterate search results: %w", err))
	}

	if len(docs) == 0 {
		return Failure(fmt.Errorf("no documents in index"))
	}

	s.log.Debug("search returned documents",
		zap.String("query", query),
		zap.Int("count", len(docs)))
	return Result{Success: true, Documents: docs}
}

// GetByTitle normalizes the title into the store's key format and
// performs a direct lookup. A miss is a failure; falling back to
// semantic search is the caller's decision, not this component's.
func (s *Store) GetByTitle(ctx context.Context, title string) Result {
	key := NormalizeTitle(title)

	var docTitle, filename, content string
	err := s.db.QueryRowContext(ctx,
		"SELECT title, filename, content FROM documents WHERE id = ?", key).
		Scan(&docTitle, &filename, &content)
	if err == sql.ErrNoRows {
		return Failure(fmt.Errorf("document %q not found in index", title))
	}
	if err != nil {
		return Failure(fmt.Errorf("lookup document: %w", err))
	}

	return Result{Success: true, Documents: []Document{{
		Text:       content,
		Metadata:   map[string]string{"title": docTitle, "filename": filename},
		Similarity: 1.0, // exact match
	}}}
}

// Add embeds content and upserts it under id. Used by ingestion only.
func (s *Store) Add(ctx context.Context, id, title, filename, content string) error {
	emb, err := s.engine.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("embed document %s: %w", id, err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO documents (id, title, filename, content, embedding) VALUES (?, ?, ?, ?, ?)",
		id, title, filename, content, encodeFloat32Blob(emb))
	if err != nil {
		return fmt.Errorf("store document %s: %w", id, err)
	}
	return nil
}

// NormalizeTitle converts a human-readable title into the store's key
// format: whitespace runs become single underscores.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(title)), "_")
}

// encodeFloat32Blob encodes a vector as the little-endian binary blob
// sqlite-vec expects.
func encodeFloat32Blob(vec []float32) []byte {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		return nil
	}
	return buf.Bytes()
}
