package client

import (
	"context"
	"database/sql"
	"fmt"
)

// Tx wraps sql.Tx with savepoint-based nesting.
type Tx struct {
	*sql.Tx
	depth int
}

// TransactionFunc runs within a transaction.
type TransactionFunc func(tx *Tx) error

// Transaction runs fn inside a transaction. It rolls back on error or
// panic and commits otherwise.
func (c *Client) Transaction(ctx context.Context, fn TransactionFunc) error {
	return c.TransactionWithOptions(ctx, nil, fn)
}

// TransactionWithOptions runs fn inside a transaction with custom
// options.
func (c *Client) TransactionWithOptions(ctx context.Context, opts *sql.TxOptions, fn TransactionFunc) error {
	sqlTx, err := c.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	tx := &Tx{Tx: sqlTx}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return TranslateError(err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Nested runs fn inside a savepoint, allowing transactions within
// transactions.
func (tx *Tx) Nested(ctx context.Context, fn TransactionFunc) error {
	tx.depth++
	savepoint := fmt.Sprintf("sp_%d", tx.depth)

	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
		tx.depth--
		return fmt.Errorf("failed to create savepoint: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_, _ = tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint)
			tx.depth--
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
			tx.depth--
			return fmt.Errorf("nested transaction error: %v, rollback error: %w", err, rbErr)
		}
		tx.depth--
		return err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
		tx.depth--
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	tx.depth--
	return nil
}
