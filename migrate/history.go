// Package migrate runs plain .sql migration files in order and tracks
// what has been applied in a history table.
package migrate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/recordql/recordql/record"
	"github.com/recordql/recordql/runtime/client"
)

// historyTable is where applied migrations are recorded.
const historyTable = "recordql_migrations"

// Applied is one row of the migration history.
type Applied struct {
	ID            int64
	Name          string
	Checksum      string
	AppliedAt     time.Time
	ExecutionTime int64 // milliseconds
}

// History tracks applied migrations.
type History struct {
	c *client.Client
}

// NewHistory creates a history manager.
func NewHistory(c *client.Client) *History {
	return &History{c: c}
}

// InitTable creates the history table when missing.
func (h *History) InitTable(ctx context.Context) error {
	createSQL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		checksum TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		execution_time BIGINT NOT NULL DEFAULT 0
	)`, historyTable)
	if _, err := h.c.DB().ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}
	return nil
}

// Record stores one applied migration.
func (h *History) Record(ctx context.Context, q record.Queryer, a *Applied) error {
	insertSQL := fmt.Sprintf(`INSERT INTO %q (name, checksum, execution_time) VALUES ($1, $2, $3)`, historyTable)
	_, err := q.ExecContext(ctx, insertSQL, a.Name, a.Checksum, a.ExecutionTime)
	return err
}

// All returns the history in application order.
func (h *History) All(ctx context.Context) ([]Applied, error) {
	query := fmt.Sprintf(`SELECT id, name, checksum, applied_at, execution_time FROM %q ORDER BY id`, historyTable)
	rows, err := h.c.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	var all []Applied
	for rows.Next() {
		var a Applied
		if err := rows.Scan(&a.ID, &a.Name, &a.Checksum, &a.AppliedAt, &a.ExecutionTime); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		all = append(all, a)
	}
	return all, rows.Err()
}

// Clear drops the recorded history.
func (h *History) Clear(ctx context.Context) error {
	_, err := h.c.DB().ExecContext(ctx, fmt.Sprintf(`DELETE FROM %q`, historyTable))
	return err
}

// checksum hashes migration file contents.
func checksum(contents []byte) string {
	sum := sha256.Sum256(contents)
	return hex.EncodeToString(sum[:])
}
