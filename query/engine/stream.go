package engine

import (
	"database/sql"

	"github.com/recordql/recordql/record"
	"github.com/recordql/recordql/runtime/client"
)

// Stream is a cursor-backed result stream. Rows are mapped to entities
// lazily on pull. The stream holds its connection for the lifetime of
// iteration and releases it when iteration ends, errors, or the
// consumer abandons it through Close.
type Stream struct {
	desc   *record.Descriptor
	rows   *sql.Rows
	conn   *sql.Conn
	cols   []string
	closed bool
	err    error
}

// Next pulls the next entity. ok is false when the stream is exhausted
// or failed; resources are released either way.
func (s *Stream) Next() (*record.Record, bool, error) {
	if s.closed {
		return nil, false, s.err
	}
	if !s.rows.Next() {
		s.err = client.TranslateError(s.rows.Err())
		_ = s.Close()
		return nil, false, s.err
	}
	if s.cols == nil {
		cols, err := s.rows.Columns()
		if err != nil {
			s.err = err
			_ = s.Close()
			return nil, false, err
		}
		s.cols = cols
	}

	values := make([]interface{}, len(s.cols))
	dest := make([]interface{}, len(s.cols))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := s.rows.Scan(dest...); err != nil {
		s.err = client.TranslateError(err)
		_ = s.Close()
		return nil, false, s.err
	}

	rec, err := entityFromRow(s.desc, s.cols, values)
	if err != nil {
		s.err = err
		_ = s.Close()
		return nil, false, err
	}
	return rec, true, nil
}

// Close releases the cursor and its backing connection. Safe to call
// more than once.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var err error
	if s.rows != nil {
		err = s.rows.Close()
	}
	if s.conn != nil {
		if cerr := s.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Err returns the terminal error of the stream, if any.
func (s *Stream) Err() error { return s.err }
