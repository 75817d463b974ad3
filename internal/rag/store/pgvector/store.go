// Package pgvector implements the document store on PostgreSQL with the
// pgvector extension. Schema migrations are embedded and applied on
// first open.
package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"

	ragstore "github.com/baliwise/ragcore/internal/rag/store"
	"github.com/baliwise/ragcore/pkg/models"
)

// Config configures a Store.
type Config struct {
	// DSN is the PostgreSQL connection string. Ignored when DB is set.
	DSN string

	// DB reuses an existing connection; the store will not close it.
	DB *sql.DB

	// Dimension is the embedding width the chunk table is created with.
	// Defaults to 1536.
	Dimension int
}

// Store is a pgvector-backed DocumentStore.
type Store struct {
	db     *sql.DB
	ownsDB bool
}

// New opens (or reuses) a connection and ensures the schema exists.
func New(cfg Config) (*Store, error) {
	if cfg.Dimension <= 0 {
		cfg.Dimension = 1536
	}

	db := cfg.DB
	ownsDB := false
	if db == nil {
		if cfg.DSN == "" {
			return nil, fmt.Errorf("pgvector: DSN or DB is required")
		}
		var err error
		db, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("pgvector: open: %w", err)
		}
		ownsDB = true
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("pgvector: ping: %w", err)
		}
	}

	s := &Store{db: db, ownsDB: ownsDB}
	if err := s.migrate(cfg.Dimension); err != nil {
		if ownsDB {
			db.Close()
		}
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(dimension int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS documents (
			id           text PRIMARY KEY,
			name         text NOT NULL,
			source       text NOT NULL DEFAULT '',
			source_uri   text NOT NULL DEFAULT '',
			content_type text NOT NULL DEFAULT '',
			metadata     jsonb NOT NULL DEFAULT '{}',
			chunk_count  int NOT NULL DEFAULT 0,
			created_at   timestamptz NOT NULL DEFAULT now(),
			updated_at   timestamptz NOT NULL DEFAULT now()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			id          text PRIMARY KEY,
			document_id text NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			idx         int NOT NULL,
			content     text NOT NULL,
			embedding   vector(%d),
			token_count int NOT NULL DEFAULT 0,
			created_at  timestamptz NOT NULL DEFAULT now()
		)`, dimension),
		`CREATE INDEX IF NOT EXISTS document_chunks_document_id_idx ON document_chunks (document_id)`,
		`CREATE INDEX IF NOT EXISTS document_chunks_embedding_idx
			ON document_chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("pgvector: migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) AddDocument(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error {
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("pgvector: document with id is required")
	}

	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("pgvector: marshal metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgvector: begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, name, source, source_uri, content_type, metadata, chunk_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, source = EXCLUDED.source, source_uri = EXCLUDED.source_uri,
			content_type = EXCLUDED.content_type, metadata = EXCLUDED.metadata,
			chunk_count = EXCLUDED.chunk_count, updated_at = now()`,
		doc.ID, doc.Name, doc.Source, doc.SourceURI, doc.ContentType, metadata, len(chunks))
	if err != nil {
		return fmt.Errorf("pgvector: upsert document: %w", err)
	}

	// Re-ingesting replaces the chunk set wholesale.
	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, doc.ID); err != nil {
		return fmt.Errorf("pgvector: clear chunks: %w", err)
	}
	for _, c := range chunks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO document_chunks (id, document_id, idx, content, embedding, token_count)
			VALUES ($1, $2, $3, $4, $5::vector, $6)`,
			c.ID, doc.ID, c.Index, c.Content, vectorLiteral(c.Embedding), c.TokenCount); err != nil {
			return fmt.Errorf("pgvector: insert chunk %d: %w", c.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgvector: commit: %w", err)
	}
	committed = true
	return nil
}

func (s *Store) Search(ctx context.Context, q ragstore.SearchQuery) ([]models.DocumentSearchResult, error) {
	if len(q.Embedding) == 0 {
		return nil, fmt.Errorf("pgvector: query embedding is required")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, idx, content, token_count,
		       1 - (embedding <=> $1::vector) AS score
		FROM document_chunks
		WHERE embedding IS NOT NULL
		  AND 1 - (embedding <=> $1::vector) >= $2
		ORDER BY embedding <=> $1::vector
		LIMIT $3`,
		vectorLiteral(q.Embedding), q.Threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("pgvector: search: %w", err)
	}
	defer rows.Close()

	var out []models.DocumentSearchResult
	for rows.Next() {
		chunk := &models.DocumentChunk{}
		var score float64
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Index, &chunk.Content, &chunk.TokenCount, &score); err != nil {
			return nil, fmt.Errorf("pgvector: scan: %w", err)
		}
		out = append(out, models.DocumentSearchResult{Chunk: chunk, Score: float32(score)})
	}
	return out, rows.Err()
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("pgvector: delete document: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgvector: count: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// vectorLiteral renders an embedding in pgvector's input syntax,
// "[0.1,0.2,...]". An empty slice renders as NULL-safe "[]".
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

var _ ragstore.DocumentStore = (*Store)(nil)
