package engine

import (
	"fmt"

	"github.com/recordql/recordql/record"
)

// Results returns the buffered rows in their output shape.
func (q *RecordQuery) Results() ([]interface{}, error) {
	if err := q.buffered(); err != nil {
		return nil, err
	}
	return q.results, nil
}

// Records returns the buffered rows as entities. Valid only for the
// entity output shape.
func (q *RecordQuery) Records() ([]*record.Record, error) {
	if err := q.buffered(); err != nil {
		return nil, err
	}
	if q.output != OutputEntity {
		return nil, fmt.Errorf("%w: records need entity output", ErrIncompatibleOutput)
	}
	recs := make([]*record.Record, len(q.results))
	for i, r := range q.results {
		recs[i] = r.(*record.Record)
	}
	return recs, nil
}

// Stream returns the open stream handle. It errors on a buffered query,
// mirroring the synchronous-iteration error on a streaming one.
func (q *RecordQuery) Stream() (*Stream, error) {
	if !q.loaded {
		return nil, ErrQueryNotLoaded
	}
	if q.stream == nil {
		return nil, ErrAsyncIterationUnavailable
	}
	return q.stream, nil
}

// buffered guards operations on the buffered result set.
func (q *RecordQuery) buffered() error {
	if !q.loaded {
		return ErrQueryNotLoaded
	}
	if q.stream != nil {
		return ErrUnavailableInStream
	}
	return nil
}

// Data projects the buffered rows into plain values. Dirty and set-only
// filters are only meaningful for the entity shape.
func (q *RecordQuery) Data(opts record.DataOptions) ([]interface{}, error) {
	if err := q.buffered(); err != nil {
		return nil, err
	}
	if q.output != OutputEntity && (opts.DirtyOnly || opts.SetOnly) {
		return nil, fmt.Errorf("%w: dirty/set filters need entity output", ErrInvalidOptionCombination)
	}

	out := make([]interface{}, 0, len(q.results))
	for _, row := range q.results {
		if rec, ok := row.(*record.Record); ok {
			out = append(out, rec.Data(opts))
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// Len returns the buffered row count.
func (q *RecordQuery) Len() (int, error) {
	if err := q.buffered(); err != nil {
		return 0, err
	}
	return len(q.results), nil
}

// At returns the buffered row at index i, nil when out of range.
func (q *RecordQuery) At(i int) (interface{}, error) {
	if err := q.buffered(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(q.results) {
		return nil, nil
	}
	return q.results[i], nil
}

// Each calls fn for every buffered row.
func (q *RecordQuery) Each(fn func(i int, row interface{})) error {
	if err := q.buffered(); err != nil {
		return err
	}
	for i, row := range q.results {
		fn(i, row)
	}
	return nil
}

// Map transforms every buffered row.
func (q *RecordQuery) Map(fn func(row interface{}) interface{}) ([]interface{}, error) {
	if err := q.buffered(); err != nil {
		return nil, err
	}
	out := make([]interface{}, len(q.results))
	for i, row := range q.results {
		out[i] = fn(row)
	}
	return out, nil
}

// Filter keeps the buffered rows fn accepts.
func (q *RecordQuery) Filter(fn func(row interface{}) bool) ([]interface{}, error) {
	if err := q.buffered(); err != nil {
		return nil, err
	}
	var out []interface{}
	for _, row := range q.results {
		if fn(row) {
			out = append(out, row)
		}
	}
	return out, nil
}
