// Package client manages PostgreSQL connections: the pool wrapper, the
// explicitly scoped default pool, transactions, and translation of
// engine errors into the library's error kinds.
package client

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	goversion "github.com/hashicorp/go-version"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// Client wraps a PostgreSQL connection pool.
type Client struct {
	db *sql.DB
}

// Open creates a client from a connection string.
func Open(connectionString string) (*Client, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, err
	}
	return &Client{db: db}, nil
}

// FromDB creates a client from an existing pool.
func FromDB(db *sql.DB) *Client {
	return &Client{db: db}
}

// Connect verifies the connection.
func (c *Client) Connect(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the underlying pool.
func (c *Client) Close() error {
	return c.db.Close()
}

// DB returns the underlying pool.
func (c *Client) DB() *sql.DB {
	return c.db
}

// AcquireConn checks a single connection out of the pool. The caller
// owns it until Close; streaming queries hold one for the lifetime of
// iteration.
func (c *Client) AcquireConn(ctx context.Context) (*sql.Conn, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return conn, nil
}

// ServerVersion reports the server's version.
func (c *Client) ServerVersion(ctx context.Context) (*goversion.Version, error) {
	var raw string
	if err := c.db.QueryRowContext(ctx, "SHOW server_version").Scan(&raw); err != nil {
		return nil, fmt.Errorf("failed to read server version: %w", err)
	}
	v, err := goversion.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("unparseable server version %q: %w", raw, err)
	}
	return v, nil
}

// RequireServerVersion fails when the server is older than min.
func (c *Client) RequireServerVersion(ctx context.Context, min string) error {
	minV, err := goversion.NewVersion(min)
	if err != nil {
		return fmt.Errorf("invalid minimum version %q: %w", min, err)
	}
	v, err := c.ServerVersion(ctx)
	if err != nil {
		return err
	}
	if v.LessThan(minV) {
		return fmt.Errorf("server version %s is older than required %s", v, minV)
	}
	return nil
}

// The default pool is a narrowly scoped process-wide registry with
// explicit init and teardown. Nothing in the compiler or engine touches
// it implicitly; constructors receive it only when the caller asks.
var (
	defaultMu   sync.RWMutex
	defaultPool *Client
)

// SetDefault installs the process default pool.
func SetDefault(c *Client) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultPool = c
}

// Default returns the process default pool.
func Default() (*Client, error) {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	if defaultPool == nil {
		return nil, ErrNoDefaultPool
	}
	return defaultPool, nil
}

// CloseDefault tears down the process default pool.
func CloseDefault() error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultPool == nil {
		return nil
	}
	err := defaultPool.Close()
	defaultPool = nil
	return err
}
