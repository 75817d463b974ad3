// Package postgres implements the store contracts against PostgreSQL,
// with embedded schema migrations applied on startup.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/baliwise/ragcore/internal/store"
	"github.com/baliwise/ragcore/pkg/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// CollectiveStore persists collective facts and their contributions in
// Postgres, using "SELECT ... FOR UPDATE" to serialize concurrent
// contributions to the same fact.
type CollectiveStore struct {
	db     *sql.DB
	ownsDB bool
}

// Config configures the Postgres-backed CollectiveStore.
type Config struct {
	DSN           string
	DB            *sql.DB
	RunMigrations bool
}

// New opens (or reuses) a Postgres connection and optionally runs the
// collective-memory schema migrations.
func New(cfg Config) (*CollectiveStore, error) {
	var db *sql.DB
	var ownsDB bool

	switch {
	case cfg.DB != nil:
		db = cfg.DB
	case cfg.DSN != "":
		var err error
		db, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("postgres: open: %w", err)
		}
		ownsDB = true
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", err)
		}
	default:
		return nil, errors.New("postgres: either DSN or DB must be provided")
	}

	s := &CollectiveStore{db: db, ownsDB: ownsDB}
	if cfg.RunMigrations {
		if err := s.migrate(context.Background()); err != nil {
			if ownsDB {
				db.Close()
			}
			return nil, err
		}
	}
	return s, nil
}

func (s *CollectiveStore) migrate(ctx context.Context) error {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("postgres: read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		b, err := migrationsFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return fmt.Errorf("postgres: read migration %s: %w", e.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("postgres: apply migration %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Close releases the underlying connection pool if this store opened it.
func (s *CollectiveStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// WithLock runs fn inside a transaction holding a SELECT ... FOR UPDATE
// row lock on the fact identified by contentHash (or confirming its
// absence). fn receives a context carrying the
// open transaction; all store methods called from fn must go through the
// same *CollectiveStore and will reuse that transaction via ctx.
func (s *CollectiveStore) WithLock(ctx context.Context, contentHash string, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock the row if it exists; if it doesn't, there's nothing to lock
	// yet and the insert inside fn will create it uncontended (a unique
	// constraint on content_hash still prevents a duplicate).
	var discard string
	_ = tx.QueryRowContext(ctx, `SELECT id FROM collective_memories WHERE content_hash = $1 FOR UPDATE`, contentHash).Scan(&discard)

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	committed = true
	return nil
}

// WithLockByID locks the fact row by primary key instead of content
// hash, so refutations serialize against concurrent contributions to the
// same fact.
func (s *CollectiveStore) WithLockByID(ctx context.Context, factID string, fn func(ctx context.Context) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var discard string
	_ = tx.QueryRowContext(ctx, `SELECT content_hash FROM collective_memories WHERE id = $1 FOR UPDATE`, factID).Scan(&discard)

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	committed = true
	return nil
}

type txKey struct{}

func (s *CollectiveStore) execer(ctx context.Context) interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
} {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// GetByHash returns the fact row for contentHash, if one exists.
func (s *CollectiveStore) GetByHash(ctx context.Context, contentHash string) (store.FactRow, bool, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, content, content_hash, category, confidence, source_count, is_promoted,
		       first_learned_at, last_confirmed_at, metadata
		FROM collective_memories WHERE content_hash = $1`, contentHash)

	var r store.FactRow
	var metaRaw []byte
	if err := row.Scan(&r.ID, &r.Content, &r.ContentHash, &r.Category, &r.Confidence, &r.SourceCount,
		&r.IsPromoted, &r.FirstLearnedAt, &r.LastConfirmedAt, &metaRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.FactRow{}, false, nil
		}
		return store.FactRow{}, false, fmt.Errorf("postgres: get by hash: %w", err)
	}
	if len(metaRaw) > 0 {
		_ = json.Unmarshal(metaRaw, &r.Metadata)
	}
	return r, true, nil
}

// Insert creates a new fact row with source_count=1 and a "contribute" row.
func (s *CollectiveStore) Insert(ctx context.Context, row store.FactRow, userID string) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	metaRaw, err := json.Marshal(row.Metadata)
	if err != nil {
		return fmt.Errorf("postgres: marshal metadata: %w", err)
	}
	ex := s.execer(ctx)
	if _, err := ex.ExecContext(ctx, `
		INSERT INTO collective_memories (id, content, content_hash, category, confidence, source_count, is_promoted, metadata)
		VALUES ($1, $2, $3, $4, $5, 1, FALSE, $6)`,
		row.ID, row.Content, row.ContentHash, row.Category, row.Confidence, metaRaw); err != nil {
		return fmt.Errorf("postgres: insert fact: %w", err)
	}
	if _, err := ex.ExecContext(ctx, `
		INSERT INTO collective_memory_sources (memory_id, user_id, action) VALUES ($1, $2, 'contribute')`,
		row.ID, userID); err != nil {
		return fmt.Errorf("postgres: insert contribution: %w", err)
	}
	return nil
}

// HasContribution reports whether userID already contributed with action.
func (s *CollectiveStore) HasContribution(ctx context.Context, factID, userID string, action models.ContributionAction) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM collective_memory_sources WHERE memory_id = $1 AND user_id = $2 AND action = $3)`,
		factID, userID, string(action)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: has contribution: %w", err)
	}
	return exists, nil
}

// AddContributionRow inserts one contribution row (idempotent per the
// unique (memory_id, user_id, action) key) and returns the recomputed
// distinct contribute/confirm contributor count.
func (s *CollectiveStore) AddContributionRow(ctx context.Context, factID, userID string, action models.ContributionAction) (int, error) {
	ex := s.execer(ctx)
	if _, err := ex.ExecContext(ctx, `
		INSERT INTO collective_memory_sources (memory_id, user_id, action) VALUES ($1, $2, $3)
		ON CONFLICT (memory_id, user_id, action) DO NOTHING`, factID, userID, string(action)); err != nil {
		return 0, fmt.Errorf("postgres: add contribution: %w", err)
	}
	if action == models.ActionContribute || action == models.ActionConfirm {
		if _, err := ex.ExecContext(ctx, `
			UPDATE collective_memories SET last_confirmed_at = now() WHERE id = $1`, factID); err != nil {
			return 0, fmt.Errorf("postgres: touch fact: %w", err)
		}
	}

	var count int
	err := ex.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT user_id) FROM collective_memory_sources
		WHERE memory_id = $1 AND action IN ('contribute', 'confirm')`, factID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: recount contributors: %w", err)
	}
	if _, err := ex.ExecContext(ctx, `UPDATE collective_memories SET source_count = $2 WHERE id = $1`, factID, count); err != nil {
		return 0, fmt.Errorf("postgres: persist source_count: %w", err)
	}
	return count, nil
}

// SetPromoted flips is_promoted for factID.
func (s *CollectiveStore) SetPromoted(ctx context.Context, factID string, promoted bool) error {
	_, err := s.execer(ctx).ExecContext(ctx, `UPDATE collective_memories SET is_promoted = $2 WHERE id = $1`, factID, promoted)
	if err != nil {
		return fmt.Errorf("postgres: set promoted: %w", err)
	}
	return nil
}

// ConfidenceCounts returns positive (contribute+confirm) and negative
// (refute) contribution counts for factID.
func (s *CollectiveStore) ConfidenceCounts(ctx context.Context, factID string) (int, int, error) {
	var positive, negative int
	ex := s.execer(ctx)
	if err := ex.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM collective_memory_sources WHERE memory_id = $1 AND action IN ('contribute', 'confirm')`,
		factID).Scan(&positive); err != nil {
		return 0, 0, fmt.Errorf("postgres: count positive: %w", err)
	}
	if err := ex.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM collective_memory_sources WHERE memory_id = $1 AND action = 'refute'`,
		factID).Scan(&negative); err != nil {
		return 0, 0, fmt.Errorf("postgres: count negative: %w", err)
	}
	return positive, negative, nil
}

// SetConfidence updates a fact's stored confidence value.
func (s *CollectiveStore) SetConfidence(ctx context.Context, factID string, confidence float64) error {
	_, err := s.execer(ctx).ExecContext(ctx, `UPDATE collective_memories SET confidence = $2 WHERE id = $1`, factID, confidence)
	if err != nil {
		return fmt.Errorf("postgres: set confidence: %w", err)
	}
	return nil
}

// Delete removes a fact and its contributions (cascade).
func (s *CollectiveStore) Delete(ctx context.Context, factID string) error {
	_, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM collective_memories WHERE id = $1`, factID)
	if err != nil {
		return fmt.Errorf("postgres: delete fact: %w", err)
	}
	return nil
}

// GetPromoted returns up to limit promoted facts, ordered by
// (confidence desc, source_count desc), optionally filtered by category.
func (s *CollectiveStore) GetPromoted(ctx context.Context, category string, limit int) ([]models.CollectiveFact, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows *sql.Rows
	var err error
	if category != "" {
		rows, err = s.execer(ctx).QueryContext(ctx, `
			SELECT id, content, content_hash, category, confidence, source_count, is_promoted, first_learned_at, last_confirmed_at
			FROM collective_memories WHERE is_promoted = TRUE AND category = $1
			ORDER BY confidence DESC, source_count DESC LIMIT $2`, category, limit)
	} else {
		rows, err = s.execer(ctx).QueryContext(ctx, `
			SELECT id, content, content_hash, category, confidence, source_count, is_promoted, first_learned_at, last_confirmed_at
			FROM collective_memories WHERE is_promoted = TRUE
			ORDER BY confidence DESC, source_count DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get promoted: %w", err)
	}
	defer rows.Close()

	var out []models.CollectiveFact
	for rows.Next() {
		var f models.CollectiveFact
		if err := rows.Scan(&f.ID, &f.Content, &f.ContentHash, &f.Category, &f.Confidence, &f.SourceCount,
			&f.IsPromoted, &f.FirstContributed, &f.LastConfirmed); err != nil {
			return nil, fmt.Errorf("postgres: scan promoted: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

var _ store.CollectiveMemoryStore = (*CollectiveStore)(nil)
