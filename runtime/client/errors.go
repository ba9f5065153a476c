package client

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrNoDefaultPool is returned when no default pool was installed.
	ErrNoDefaultPool = errors.New("no default pool configured")

	// ErrStatementTimeout is the library's kind for the engine's
	// statement-timeout signal (SQLSTATE 57014).
	ErrStatementTimeout = errors.New("statement timeout")
)

// queryCanceled is the PostgreSQL SQLSTATE raised when statement_timeout
// expires.
const queryCanceled = "57014"

// TranslateError maps engine errors onto the library's error kinds.
// Unrecognized errors pass through unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == queryCanceled {
		return fmt.Errorf("%w: %s", ErrStatementTimeout, pqErr.Message)
	}
	return err
}
