package record

// Descriptor binds a field registry to a table name. One Descriptor is
// shared by every Record and query of the same type.
type Descriptor struct {
	Table  string
	Fields *Fields
}

// NewDescriptor creates a descriptor for a table.
func NewDescriptor(table string, fields *Fields) (*Descriptor, error) {
	if table == "" {
		return nil, ErrMissingRequiredArg
	}
	if fields == nil || fields.Len() == 0 {
		return nil, ErrMissingRequiredArg
	}
	return &Descriptor{Table: table, Fields: fields}, nil
}

// Columns returns the quoted column list in declaration order.
func (d *Descriptor) Columns() []string {
	cols := make([]string, 0, d.Fields.Len())
	d.Fields.Each(func(f *Field) {
		cols = append(cols, QuoteIdentifier(f.DBName()))
	})
	return cols
}

// QuotedTable returns the quoted table name.
func (d *Descriptor) QuotedTable() string {
	return QuoteIdentifier(d.Table)
}
