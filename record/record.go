package record

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Queryer is the minimal statement surface a record needs to persist
// itself. Satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Record is a single row of a declared record type. Field values live in
// one internal container; writes are tracked so updates only touch
// changed columns.
type Record struct {
	desc      *Descriptor
	values    map[string]interface{}
	dirty     map[string]bool
	persisted bool
	warnings  []string
}

// New creates an empty record of the given type.
func New(desc *Descriptor) (*Record, error) {
	if desc == nil {
		return nil, ErrRecordTypeRequired
	}
	return &Record{
		desc:   desc,
		values: make(map[string]interface{}),
		dirty:  make(map[string]bool),
	}, nil
}

// Descriptor returns the record's type descriptor.
func (r *Record) Descriptor() *Descriptor { return r.desc }

// Get returns the value of a field.
func (r *Record) Get(name string) (interface{}, error) {
	if !r.desc.Fields.Has(name) {
		return nil, fmt.Errorf("%w: %q", ErrFieldNotFound, name)
	}
	return r.values[name], nil
}

// Set assigns a field value and marks it dirty.
func (r *Record) Set(name string, value interface{}) error {
	if !r.desc.Fields.Has(name) {
		return fmt.Errorf("%w: %q", ErrFieldNotFound, name)
	}
	r.values[name] = value
	r.dirty[name] = true
	return nil
}

// SetMany assigns multiple field values.
func (r *Record) SetMany(values map[string]interface{}) error {
	for name, value := range values {
		if err := r.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

// IsSet reports whether a value has ever been assigned or loaded.
func (r *Record) IsSet(name string) bool {
	_, ok := r.values[name]
	return ok
}

// IsDirty reports whether any field changed since the last load or save.
func (r *Record) IsDirty() bool { return len(r.dirty) > 0 }

// DirtyFields returns the changed field names in declaration order.
func (r *Record) DirtyFields() []string {
	var out []string
	r.desc.Fields.Each(func(f *Field) {
		if r.dirty[f.Name] {
			out = append(out, f.Name)
		}
	})
	return out
}

// Persisted reports whether the record exists in the database.
func (r *Record) Persisted() bool { return r.persisted }

// MarkLoaded resets dirty state after the record was populated from a
// database row.
func (r *Record) MarkLoaded() {
	r.dirty = make(map[string]bool)
	r.persisted = true
}

// LoadValues replaces the value container with values scanned from a row
// and resets dirty state.
func (r *Record) LoadValues(values map[string]interface{}) {
	r.values = values
	r.MarkLoaded()
}

// Warn records a non-fatal warning on the instance.
func (r *Record) Warn(msg string) { r.warnings = append(r.warnings, msg) }

// Warnings returns the collected non-fatal warnings.
func (r *Record) Warnings() []string { return r.warnings }

// DataOptions controls Data projection.
type DataOptions struct {
	IncludePrivate bool // include fields declared Private
	Defaults       bool // backfill declared defaults for unset fields
	DirtyOnly      bool // only fields changed since the last save
	SetOnly        bool // only fields that were ever assigned
}

// Data projects the record into a plain map.
func (r *Record) Data(opts DataOptions) map[string]interface{} {
	out := make(map[string]interface{})
	r.desc.Fields.Each(func(f *Field) {
		if f.Private && !opts.IncludePrivate {
			return
		}
		if opts.DirtyOnly && !r.dirty[f.Name] {
			return
		}
		value, set := r.values[f.Name]
		if !set {
			if opts.SetOnly || opts.DirtyOnly {
				return
			}
			if opts.Defaults && f.Default != nil {
				out[f.Name] = f.Default
			}
			return
		}
		out[f.Name] = value
	})
	return out
}

// Insert writes the record as a new row. Primary-key columns generated by
// the database are scanned back into the record.
func (r *Record) Insert(ctx context.Context, q Queryer) error {
	if q == nil {
		return fmt.Errorf("%w: queryer", ErrMissingRequiredArg)
	}
	var cols, placeholders []string
	var args []interface{}
	r.desc.Fields.Each(func(f *Field) {
		value, set := r.values[f.Name]
		if !set {
			return
		}
		cols = append(cols, QuoteIdentifier(f.DBName()))
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)+1))
		args = append(args, value)
	})

	pks := r.desc.Fields.Primary()
	returning := make([]string, len(pks))
	for i, pk := range pks {
		returning[i] = QuoteIdentifier(pk.DBName())
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		r.desc.QuotedTable(),
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(returning, ", "))

	dest := make([]interface{}, len(pks))
	values := make([]interface{}, len(pks))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := q.QueryRowContext(ctx, query, args...).Scan(dest...); err != nil {
		return fmt.Errorf("insert failed: %w", err)
	}
	for i, pk := range pks {
		r.values[pk.Name] = values[i]
	}
	r.MarkLoaded()
	return nil
}

// Update writes the dirty fields of a persisted record.
func (r *Record) Update(ctx context.Context, q Queryer) error {
	if !r.persisted {
		return ErrNotPersisted
	}
	if !r.IsDirty() {
		return nil
	}
	var sets []string
	var args []interface{}
	for _, name := range r.DirtyFields() {
		f, err := r.desc.Fields.Get(name)
		if err != nil {
			return err
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", QuoteIdentifier(f.DBName()), len(args)+1))
		args = append(args, r.values[name])
	}
	whereSQL, whereArgs, err := r.primaryKeyWhere(len(args))
	if err != nil {
		return err
	}
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		r.desc.QuotedTable(), strings.Join(sets, ", "), whereSQL)
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	r.dirty = make(map[string]bool)
	return nil
}

// Save inserts the record when new, otherwise updates it.
func (r *Record) Save(ctx context.Context, q Queryer) error {
	if r.persisted {
		return r.Update(ctx, q)
	}
	return r.Insert(ctx, q)
}

// Delete removes the row identified by the record's primary key.
func (r *Record) Delete(ctx context.Context, q Queryer) error {
	if !r.persisted {
		return ErrNotPersisted
	}
	whereSQL, args, err := r.primaryKeyWhere(0)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", r.desc.QuotedTable(), whereSQL)
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	r.persisted = false
	return nil
}

// primaryKeyWhere builds the primary-key predicate with placeholders
// numbered after paramsUsed.
func (r *Record) primaryKeyWhere(paramsUsed int) (string, []interface{}, error) {
	pks := r.desc.Fields.Primary()
	if len(pks) == 0 {
		return "", nil, fmt.Errorf("%w: %q has no primary key", ErrMissingRequiredArg, r.desc.Table)
	}
	var parts []string
	var args []interface{}
	for _, pk := range pks {
		value, set := r.values[pk.Name]
		if !set {
			return "", nil, fmt.Errorf("%w: primary key %q is unset", ErrMissingRequiredArg, pk.Name)
		}
		parts = append(parts, fmt.Sprintf("%s = $%d", QuoteIdentifier(pk.DBName()), paramsUsed+len(args)+1))
		args = append(args, value)
	}
	return strings.Join(parts, " AND "), args, nil
}
