// Package record declares record types: field registries, table
// descriptors, and the per-row entity object with dirty tracking.
package record

import (
	"fmt"
	"strings"
)

// Type is the declared database type of a field.
type Type string

const (
	TypeInt       Type = "integer"
	TypeBigInt    Type = "bigint"
	TypeFloat     Type = "double precision"
	TypeText      Type = "text"
	TypeVarchar   Type = "varchar"
	TypeBool      Type = "boolean"
	TypeTimestamp Type = "timestamp"
	TypeJSON      Type = "jsonb"
)

// IsTextual reports whether values of this type are already text on the
// database side. Pattern comparisons against non-textual columns need an
// explicit cast.
func (t Type) IsTextual() bool {
	return t == TypeText || t == TypeVarchar
}

// Field describes a single declared field of a record type.
type Field struct {
	Name       string
	Column     string // overrides the snake_case transform of Name when set
	Type       Type
	Nullable   bool
	PrimaryKey bool
	Default    interface{}
	Private    bool
}

// DBName returns the underlying column name.
func (f *Field) DBName() string {
	if f.Column != "" {
		return f.Column
	}
	return ToSnakeCase(f.Name)
}

// Fields is an ordered field registry for one record type.
type Fields struct {
	order  []string
	byName map[string]*Field
}

// NewFields builds a registry from the given field declarations.
// Declaration order is preserved for column lists.
func NewFields(fields ...Field) *Fields {
	fs := &Fields{byName: make(map[string]*Field, len(fields))}
	for i := range fields {
		f := fields[i]
		fs.order = append(fs.order, f.Name)
		fs.byName[f.Name] = &f
	}
	return fs
}

// Get looks up a field by its logical name.
func (fs *Fields) Get(name string) (*Field, error) {
	f, ok := fs.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFieldNotFound, name)
	}
	return f, nil
}

// Has reports whether a field is declared.
func (fs *Fields) Has(name string) bool {
	_, ok := fs.byName[name]
	return ok
}

// Names returns the field names in declaration order.
func (fs *Fields) Names() []string {
	out := make([]string, len(fs.order))
	copy(out, fs.order)
	return out
}

// Primary returns the primary-key fields in declaration order.
func (fs *Fields) Primary() []*Field {
	var pks []*Field
	for _, name := range fs.order {
		if f := fs.byName[name]; f.PrimaryKey {
			pks = append(pks, f)
		}
	}
	return pks
}

// ByColumn looks up a field by its underlying column name.
func (fs *Fields) ByColumn(column string) (*Field, bool) {
	for _, name := range fs.order {
		if f := fs.byName[name]; f.DBName() == column {
			return f, true
		}
	}
	return nil, false
}

// Len returns the number of declared fields.
func (fs *Fields) Len() int {
	return len(fs.order)
}

// Each calls fn for every field in declaration order.
func (fs *Fields) Each(fn func(f *Field)) {
	for _, name := range fs.order {
		fn(fs.byName[name])
	}
}

// QuoteIdentifier wraps a table or column identifier in double quotes.
func QuoteIdentifier(name string) string {
	return fmt.Sprintf(`"%s"`, name)
}

// ToSnakeCase converts a camelCase field name to snake_case. Runs of
// capitals stay together, so "userID" becomes "user_id".
func ToSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := runes[i-1]
			if (prev >= 'a' && prev <= 'z') || (prev >= '0' && prev <= '9') {
				result.WriteRune('_')
			}
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}
