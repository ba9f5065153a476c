// Package engine holds RecordQuery, the stateful query builder and
// executor. A query accumulates where-trees, ordering and output
// shaping through chainable setters, compiles to SQL through the where
// compiler, and exposes results as a buffered collection or a
// cursor-backed stream.
package engine

import (
	"database/sql"
	"fmt"

	"github.com/recordql/recordql/query/condition"
	"github.com/recordql/recordql/record"
	"github.com/recordql/recordql/runtime/client"
)

// Output is the per-row result shape.
type Output int

const (
	// OutputEntity yields *record.Record rows.
	OutputEntity Output = iota
	// OutputPlain yields map[string]interface{} rows.
	OutputPlain
	// OutputScalar yields single column values.
	OutputScalar
)

// Direction orders a sort field.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Order is one ORDER BY entry.
type Order struct {
	Field     string
	Direction Direction
}

// RecordQuery builds and executes a SELECT over one record type. It is
// not safe for concurrent Run from multiple goroutines; independent
// reads of the same logical query need independent instances.
type RecordQuery struct {
	desc      *record.Descriptor
	client    *client.Client
	conn      *sql.Conn
	noDefault bool

	wheres    []interface{}
	orders    []Order
	limit     *int
	offset    *int
	output    Output
	outputSet bool
	returns   []string
	streaming bool

	loaded  bool
	results []interface{}
	stream  *Stream
}

// New creates a query for a record type. pool is a *client.Client, nil
// to fall back to the process default pool at run time, or the
// condition.NoDefaultPool sentinel to forbid that fallback.
func New(desc *record.Descriptor, pool interface{}) (*RecordQuery, error) {
	if desc == nil {
		return nil, record.ErrRecordTypeRequired
	}
	q := &RecordQuery{desc: desc}
	switch p := pool.(type) {
	case nil:
	case *client.Client:
		q.client = p
	case condition.Sentinel:
		if p != condition.NoDefaultPool {
			return nil, fmt.Errorf("%w: unexpected sentinel %v", record.ErrMissingRequiredArg, p)
		}
		q.noDefault = true
	default:
		return nil, fmt.Errorf("%w: unsupported pool argument %T", record.ErrMissingRequiredArg, pool)
	}
	return q, nil
}

// Descriptor returns the query's record type.
func (q *RecordQuery) Descriptor() *record.Descriptor { return q.desc }

// invalidate flips the query back to the stale state after any mutation
// that changes its semantics. An open stream is closed so its cursor
// and connection go back to the pool even when the consumer never took
// the handle.
func (q *RecordQuery) invalidate() {
	q.loaded = false
	q.results = nil
	if q.stream != nil {
		_ = q.stream.Close()
		q.stream = nil
	}
}

// Where appends a condition tree. Multiple calls AND together at the
// top level.
func (q *RecordQuery) Where(node interface{}) *RecordQuery {
	q.wheres = append(q.wheres, node)
	q.invalidate()
	return q
}

// OrderBy appends an ascending order on a field. Unknown fields are
// reported at Run.
func (q *RecordQuery) OrderBy(field string) *RecordQuery {
	return q.OrderByDir(field, Asc)
}

// OrderByDir appends an order with an explicit direction.
func (q *RecordQuery) OrderByDir(field string, dir Direction) *RecordQuery {
	q.orders = append(q.orders, Order{Field: field, Direction: dir})
	q.invalidate()
	return q
}

// Limit sets the row limit.
func (q *RecordQuery) Limit(n int) *RecordQuery {
	if q.limit == nil || *q.limit != n {
		q.limit = &n
		q.invalidate()
	}
	return q
}

// ClearLimit removes the row limit.
func (q *RecordQuery) ClearLimit() *RecordQuery {
	if q.limit != nil {
		q.limit = nil
		q.invalidate()
	}
	return q
}

// Offset sets the row offset.
func (q *RecordQuery) Offset(n int) *RecordQuery {
	if q.offset == nil || *q.offset != n {
		q.offset = &n
		q.invalidate()
	}
	return q
}

// ClearOffset removes the row offset.
func (q *RecordQuery) ClearOffset() *RecordQuery {
	if q.offset != nil {
		q.offset = nil
		q.invalidate()
	}
	return q
}

// SetOutput selects the result shape. It is validated against any
// returns selector already set.
func (q *RecordQuery) SetOutput(shape Output) error {
	switch shape {
	case OutputEntity, OutputPlain, OutputScalar:
	default:
		return fmt.Errorf("%w: %d", ErrInvalidOutputType, shape)
	}
	if len(q.returns) == 1 && shape != OutputScalar {
		return fmt.Errorf("%w: single-field returns selector requires scalar output", ErrIncompatibleOutput)
	}
	if len(q.returns) > 1 && shape != OutputPlain {
		return fmt.Errorf("%w: multi-field returns selector requires plain output", ErrIncompatibleOutput)
	}
	q.output = shape
	q.outputSet = true
	q.invalidate()
	return nil
}

// SetReturns selects the output fields. A single field implies scalar
// shape, multiple fields imply plain shape; the implied shape is
// applied automatically.
func (q *RecordQuery) SetReturns(fields ...string) error {
	if len(fields) == 0 {
		return fmt.Errorf("%w: returns selector", record.ErrMissingRequiredArg)
	}
	implied := OutputScalar
	if len(fields) > 1 {
		implied = OutputPlain
	}
	if q.outputSet && q.output != implied {
		return fmt.Errorf("%w: returns selector implies %v but output is %v", ErrIncompatibleOutput, implied, q.output)
	}
	q.returns = fields
	q.output = implied
	q.invalidate()
	return nil
}

// SetStream toggles streaming execution. Restrictions against returns
// selectors and non-entity shapes are enforced at Run.
func (q *RecordQuery) SetStream(on bool) *RecordQuery {
	q.streaming = on
	q.invalidate()
	return q
}

// BindConn pins the query to a single connection. The previously bound
// connection is released back to the pool unless release is false, for
// handing ownership onward without a double release.
func (q *RecordQuery) BindConn(conn *sql.Conn, release bool) error {
	if q.conn != nil && release {
		if err := q.conn.Close(); err != nil {
			return fmt.Errorf("failed to release previous connection: %w", err)
		}
	}
	q.conn = conn
	q.invalidate()
	return nil
}

// Loaded reports whether results are current.
func (q *RecordQuery) Loaded() bool { return q.loaded }

// pool resolves the client to execute against.
func (q *RecordQuery) pool() (*client.Client, error) {
	if q.client != nil {
		return q.client, nil
	}
	if q.noDefault {
		return nil, client.ErrNoDefaultPool
	}
	return client.Default()
}
