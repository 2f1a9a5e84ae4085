// Package strategies provides persistence and service logic for saved
// strategies. A saved strategy carries both the compiled DSL document (what
// the execution engine consumes) and the raw block tree (what the editor
// reloads for round-trip re-editing).
package strategies

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/quantblocks/quantblocks/internal/database"
)

// Record is one saved strategy row.
type Record struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Document    json.RawMessage `json:"dsl"`  // compiled DSL document
	Tree        json.RawMessage `json:"tree"` // raw block tree for re-editing
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Summary is the list-view projection of a record, without the trees.
type Summary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// InitSchema creates the strategies table if it does not exist. Deletes are
// soft: deleted_at is stamped and the row is purged later by the cleanup
// job.
func InitSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS strategies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		document TEXT NOT NULL,
		tree TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		deleted_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_strategies_deleted_at ON strategies(deleted_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize strategies schema: %w", err)
	}
	return nil
}

// Repository handles strategy persistence.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new strategy repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "strategies").Logger(),
	}
}

// Create inserts a new strategy row.
func (r *Repository) Create(rec *Record) error {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err := r.db.Exec(`
		INSERT INTO strategies (id, name, description, document, tree, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.Description, string(rec.Document), string(rec.Tree),
		now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert strategy %s: %w", rec.ID, err)
	}

	r.log.Debug().Str("id", rec.ID).Str("name", rec.Name).Msg("Strategy created")
	return nil
}

// Update replaces the stored document and tree of an existing strategy.
// The read of the original creation time and the write run in one
// transaction so the returned record always carries consistent timestamps.
func (r *Repository) Update(rec *Record) error {
	now := time.Now().UTC()

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		var createdUnix int64
		err := tx.QueryRow(`
			SELECT created_at FROM strategies
			WHERE id = ? AND deleted_at IS NULL`, rec.ID).Scan(&createdUnix)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load strategy %s: %w", rec.ID, err)
		}

		if _, err := tx.Exec(`
			UPDATE strategies
			SET name = ?, description = ?, document = ?, tree = ?, updated_at = ?
			WHERE id = ? AND deleted_at IS NULL`,
			rec.Name, rec.Description, string(rec.Document), string(rec.Tree),
			now.Unix(), rec.ID,
		); err != nil {
			return fmt.Errorf("failed to update strategy %s: %w", rec.ID, err)
		}

		rec.CreatedAt = time.Unix(createdUnix, 0).UTC()
		rec.UpdatedAt = now
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Debug().Str("id", rec.ID).Msg("Strategy updated")
	return nil
}

// GetByID returns the full record for one strategy, or ErrNotFound.
func (r *Repository) GetByID(id string) (*Record, error) {
	row := r.db.QueryRow(`
		SELECT id, name, description, document, tree, created_at, updated_at
		FROM strategies
		WHERE id = ? AND deleted_at IS NULL`, id)

	return scanRecord(row)
}

// List returns summaries of all live strategies, most recently updated
// first.
func (r *Repository) List() ([]Summary, error) {
	rows, err := r.db.Query(`
		SELECT id, name, description, created_at, updated_at
		FROM strategies
		WHERE deleted_at IS NULL
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list strategies: %w", err)
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		var s Summary
		var created, updated int64
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan strategy summary: %w", err)
		}
		s.CreatedAt = time.Unix(created, 0).UTC()
		s.UpdatedAt = time.Unix(updated, 0).UTC()
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// SoftDelete stamps a strategy as deleted without removing the row.
func (r *Repository) SoftDelete(id string) error {
	result, err := r.db.Exec(`
		UPDATE strategies SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to delete strategy %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	r.log.Info().Str("id", id).Msg("Strategy soft-deleted")
	return nil
}

// PurgeDeleted permanently removes strategies soft-deleted before the
// cutoff. Returns the number of rows purged.
func (r *Repository) PurgeDeleted(cutoff time.Time) (int, error) {
	result, err := r.db.Exec(`
		DELETE FROM strategies WHERE deleted_at IS NOT NULL AND deleted_at < ?`,
		cutoff.UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge deleted strategies: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check purge result: %w", err)
	}
	return int(rows), nil
}

func scanRecord(row *sql.Row) (*Record, error) {
	var rec Record
	var document, tree string
	var created, updated int64

	err := row.Scan(&rec.ID, &rec.Name, &rec.Description, &document, &tree, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan strategy: %w", err)
	}

	rec.Document = json.RawMessage(document)
	rec.Tree = json.RawMessage(tree)
	rec.CreatedAt = time.Unix(created, 0).UTC()
	rec.UpdatedAt = time.Unix(updated, 0).UTC()
	return &rec, nil
}
