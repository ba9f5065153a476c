package migrate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/recordql/recordql/internal/debug"
	"github.com/recordql/recordql/runtime/client"
)

// ErrChecksumMismatch is returned when an applied migration's file
// contents changed after it was recorded.
var ErrChecksumMismatch = errors.New("migration checksum mismatch")

// Migration is one .sql file found in the migration directory.
type Migration struct {
	Name     string
	Path     string
	SQL      string
	Checksum string
}

// Status describes one migration relative to the history.
type Status struct {
	Migration
	Applied   bool
	AppliedAt time.Time
}

// Runner applies migration files in name order.
type Runner struct {
	fs      afero.Fs
	dir     string
	c       *client.Client
	history *History
}

// NewRunner creates a runner over the given filesystem and directory.
func NewRunner(fs afero.Fs, dir string, c *client.Client) *Runner {
	return &Runner{fs: fs, dir: dir, c: c, history: NewHistory(c)}
}

// Load reads the migration files sorted by name.
func (r *Runner) Load() ([]Migration, error) {
	infos, err := afero.ReadDir(r.fs, r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}
	var migrations []Migration
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".sql") {
			continue
		}
		path := filepath.Join(r.dir, info.Name())
		contents, err := afero.ReadFile(r.fs, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", info.Name(), err)
		}
		migrations = append(migrations, Migration{
			Name:     strings.TrimSuffix(info.Name(), ".sql"),
			Path:     path,
			SQL:      string(contents),
			Checksum: checksum(contents),
		})
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Name < migrations[j].Name })
	return migrations, nil
}

// Status reports every migration with its applied state. Applied
// migrations whose file contents changed fail with
// ErrChecksumMismatch.
func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	if err := r.history.InitTable(ctx); err != nil {
		return nil, err
	}
	migrations, err := r.Load()
	if err != nil {
		return nil, err
	}
	applied, err := r.history.All(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]Applied, len(applied))
	for _, a := range applied {
		byName[a.Name] = a
	}

	statuses := make([]Status, 0, len(migrations))
	for _, m := range migrations {
		s := Status{Migration: m}
		if a, ok := byName[m.Name]; ok {
			if a.Checksum != m.Checksum {
				return nil, fmt.Errorf("%w: %s", ErrChecksumMismatch, m.Name)
			}
			s.Applied = true
			s.AppliedAt = a.AppliedAt
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

// Up applies every pending migration, each in its own transaction, and
// returns the names applied.
func (r *Runner) Up(ctx context.Context) ([]string, error) {
	statuses, err := r.Status(ctx)
	if err != nil {
		return nil, err
	}

	var appliedNames []string
	for _, s := range statuses {
		if s.Applied {
			continue
		}
		m := s.Migration
		start := time.Now()
		err := r.c.Transaction(ctx, func(tx *client.Tx) error {
			if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
				return fmt.Errorf("migration %s failed: %w", m.Name, err)
			}
			return r.history.Record(ctx, tx, &Applied{
				Name:          m.Name,
				Checksum:      m.Checksum,
				ExecutionTime: time.Since(start).Milliseconds(),
			})
		})
		if err != nil {
			return appliedNames, err
		}
		debug.Debug("applied migration", "name", m.Name)
		appliedNames = append(appliedNames, m.Name)
	}
	return appliedNames, nil
}

// Reset clears the recorded history without touching schema objects.
func (r *Runner) Reset(ctx context.Context) error {
	if err := r.history.InitTable(ctx); err != nil {
		return err
	}
	return r.history.Clear(ctx)
}
