// Package savedsearch persists named canonical filters locally so a
// search can be re-run across CLI sessions, and exports them as YAML.
package savedsearch

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/hearthlabs/hearthview/internal/query"
	"github.com/hearthlabs/hearthview/internal/store"
)

// ErrNotFound is returned when no saved search has the requested name.
var ErrNotFound = errors.New("saved search not found")

// SavedSearch is a named canonical filter.
type SavedSearch struct {
	ID        string       `json:"id" yaml:"id"`
	Name      string       `json:"name" yaml:"name"`
	Filter    query.Filter `json:"filter" yaml:"filter"`
	CreatedAt time.Time    `json:"created_at" yaml:"created_at"`
}

// Repository provides access to saved searches.
type Repository interface {
	// Save creates or replaces the search with the given name.
	Save(ctx context.Context, name string, f query.Filter) (*SavedSearch, error)

	// Get returns a saved search by name.
	Get(ctx context.Context, name string) (*SavedSearch, error)

	// List returns all saved searches ordered by name.
	List(ctx context.Context) ([]SavedSearch, error)

	// Delete removes a saved search by name.
	Delete(ctx context.Context, name string) error
}

// Compile-time interface guard.
var _ Repository = (*SQLiteRepository)(nil)

// SQLiteRepository implements Repository on the local store.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a Repository and runs its migrations.
func NewSQLiteRepository(ctx context.Context, st *store.SQLiteStore) (*SQLiteRepository, error) {
	if err := st.Migrate(ctx, "savedsearch", migrations); err != nil {
		return nil, fmt.Errorf("savedsearch migrations: %w", err)
	}
	return &SQLiteRepository{db: st.DB()}, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, name string, f query.Filter) (*SavedSearch, error) {
	blob, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}

	s := &SavedSearch{
		ID:        uuid.New().String(),
		Name:      name,
		Filter:    f,
		CreatedAt: time.Now().UTC(),
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO saved_searches (id, name, filter, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET filter = excluded.filter`,
		s.ID, s.Name, string(blob), s.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("save search %q: %w", name, err)
	}
	return s, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, name string) (*SavedSearch, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, filter, created_at FROM saved_searches WHERE name = ?`, name)
	s, err := scanSearch(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get saved search %q: %w", name, err)
	}
	return s, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]SavedSearch, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, filter, created_at FROM saved_searches ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list saved searches: %w", err)
	}
	defer rows.Close()

	var searches []SavedSearch
	for rows.Next() {
		s, err := scanSearch(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan saved search: %w", err)
		}
		searches = append(searches, *s)
	}
	return searches, rows.Err()
}

func (r *SQLiteRepository) Delete(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM saved_searches WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete saved search %q: %w", name, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ExportYAML writes all saved searches to w as a YAML document.
func ExportYAML(ctx context.Context, repo Repository, w io.Writer) error {
	searches, err := repo.List(ctx)
	if err != nil {
		return err
	}
	doc := struct {
		Searches []SavedSearch `yaml:"searches"`
	}{Searches: searches}

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode saved searches: %w", err)
	}
	return nil
}

func scanSearch(scan func(dest ...any) error) (*SavedSearch, error) {
	var s SavedSearch
	var blob string
	if err := scan(&s.ID, &s.Name, &blob, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(blob), &s.Filter); err != nil {
		return nil, fmt.Errorf("decode filter: %w", err)
	}
	return &s, nil
}

// migrations defines the saved_searches schema.
var migrations = []store.Migration{
	{
		Version:     1,
		Description: "create saved_searches table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE saved_searches (
					id         TEXT PRIMARY KEY,
					name       TEXT NOT NULL UNIQUE,
					filter     TEXT NOT NULL,
					created_at DATETIME NOT NULL
				)
			`)
			return err
		},
	},
}
