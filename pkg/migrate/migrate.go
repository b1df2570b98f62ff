// Package migrate drives the goose SQL migrations for the points schema.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/propertyloyalty/points-backend/pkg/config"
)

// DefaultDir is where create and validate operate on disk.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Source returns the migration files to apply. An empty dir selects the copy
// compiled into the binary.
func Source(dir string) (fs.FS, error) {
	if strings.TrimSpace(dir) == "" {
		return fs.Sub(embedded, "migrations")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("migrations dir %q: %w", dir, err)
	}
	return os.DirFS(dir), nil
}

// Dialect maps the configured database driver onto a goose dialect.
func Dialect(cfg config.DBConfig) goose.Dialect {
	if cfg.IsSQLite() {
		return goose.DialectSQLite3
	}
	return goose.DialectPostgres
}

// Applied describes one migration touched by a command.
type Applied struct {
	Version  int64
	Path     string
	Duration time.Duration
	Empty    bool
}

// Pending describes one migration as reported by Status.
type Pending struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

// Migrator applies migrations from one source against one database. It never
// closes the *sql.DB it was given.
type Migrator struct {
	provider *goose.Provider
}

func NewMigrator(db *sql.DB, dialect goose.Dialect, source fs.FS) (*Migrator, error) {
	if db == nil {
		return nil, fmt.Errorf("migrate: db is required")
	}
	if source == nil {
		return nil, fmt.Errorf("migrate: source is required")
	}
	provider, err := goose.NewProvider(dialect, db, source)
	if err != nil {
		return nil, fmt.Errorf("migrate: building goose provider: %w", err)
	}
	return &Migrator{provider: provider}, nil
}

func (m *Migrator) Up(ctx context.Context) ([]Applied, error) {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate up: %w", err)
	}
	return toApplied(results), nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) ([]Applied, error) {
	result, err := m.provider.Down(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate down: %w", err)
	}
	return toApplied([]*goose.MigrationResult{result}), nil
}

// Redo rolls back the most recent migration and applies it again.
func (m *Migrator) Redo(ctx context.Context) ([]Applied, error) {
	down, err := m.provider.Down(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate redo (down): %w", err)
	}
	up, err := m.provider.UpByOne(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate redo (up): %w", err)
	}
	return toApplied([]*goose.MigrationResult{down, up}), nil
}

// Reset rolls every migration back.
func (m *Migrator) Reset(ctx context.Context) ([]Applied, error) {
	results, err := m.provider.DownTo(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("migrate reset: %w", err)
	}
	return toApplied(results), nil
}

// To moves the schema up or down until target is the newest applied version.
func (m *Migrator) To(ctx context.Context, target int64) ([]Applied, error) {
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate: reading db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err = m.provider.UpTo(ctx, target)
	default:
		results, err = m.provider.DownTo(ctx, target)
	}
	if err != nil {
		return nil, fmt.Errorf("migrate to %d (from %d): %w", target, current, err)
	}
	return toApplied(results), nil
}

func (m *Migrator) Status(ctx context.Context) ([]Pending, error) {
	statuses, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate status: %w", err)
	}
	out := make([]Pending, 0, len(statuses))
	for _, s := range statuses {
		if s == nil || s.Source == nil {
			continue
		}
		out = append(out, Pending{
			Version:   s.Source.Version,
			Path:      s.Source.Path,
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return out, nil
}

func toApplied(results []*goose.MigrationResult) []Applied {
	out := make([]Applied, 0, len(results))
	for _, r := range results {
		if r == nil || r.Source == nil {
			continue
		}
		out = append(out, Applied{
			Version:  r.Source.Version,
			Path:     r.Source.Path,
			Duration: r.Duration,
			Empty:    r.Empty,
		})
	}
	return out
}
