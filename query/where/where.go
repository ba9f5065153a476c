// Package where lowers condition trees into parameterized SQL. The
// compiler is pure: given the same tree and the same starting parameter
// offset it produces identical output, and placeholders are numbered
// contiguously across arbitrarily nested sub-expressions.
package where

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/recordql/recordql/internal/debug"
	"github.com/recordql/recordql/query/condition"
	"github.com/recordql/recordql/record"
)

// Options threads compilation context through recursion.
type Options struct {
	// Compare is the default comparison applied to bare values ("=" when
	// empty).
	Compare string
	// Connective joins children of bare sequences (AND when empty).
	Connective condition.Op
	// ParamsUsed is the number of placeholders already consumed by the
	// enclosing statement.
	ParamsUsed int
	// Siblings is the number of sibling conditions at this node's level
	// in its parent. Multi-part fragments parenthesize only when they
	// have siblings.
	Siblings int
	// Field scopes bare values to a single field key, used when a
	// connective appears in value position.
	Field string
}

func (o Options) compare() string {
	if o.Compare == "" {
		return condition.CompareEqual
	}
	return o.Compare
}

func (o Options) connective() condition.Op {
	if o.Connective == "" {
		return condition.OpAnd
	}
	return o.Connective
}

// Compile lowers a condition tree into SQL text and its ordered bind
// values. An empty tree compiles to the literal predicate "true".
func Compile(fields *record.Fields, node interface{}, opts Options) (string, []interface{}, error) {
	if fields == nil {
		return "", nil, fmt.Errorf("%w: field registry", record.ErrMissingRequiredArg)
	}
	sql, args, err := compileNode(fields, node, opts)
	if err != nil {
		return "", nil, err
	}
	if sql == "" {
		return "true", nil, nil
	}
	return sql, args, nil
}

func compileNode(fields *record.Fields, node interface{}, opts Options) (string, []interface{}, error) {
	switch n := node.(type) {
	case nil:
		if opts.Field != "" {
			return compilePair(fields, opts.Field, nil, opts)
		}
		return "", nil, nil
	case *condition.Group:
		if n == nil {
			return "", nil, nil
		}
		return compileGroup(fields, n, opts)
	case condition.Cond:
		if opts.Field != "" {
			return "", nil, fmt.Errorf("%w: field map nested under field %q", ErrStructural, opts.Field)
		}
		return compileFieldMap(fields, n, opts)
	case map[string]interface{}:
		if opts.Field != "" {
			return "", nil, fmt.Errorf("%w: field map nested under field %q", ErrStructural, opts.Field)
		}
		return compileFieldMap(fields, condition.Cond(n), opts)
	case condition.Seq:
		return compileSequence(fields, []interface{}(n), opts)
	case []interface{}:
		if opts.Field != "" {
			// Value position: an IN list for the scoped field.
			return compilePair(fields, opts.Field, n, opts)
		}
		return compileSequence(fields, n, opts)
	case *condition.Value:
		if n == nil {
			debug.Warn("skipping nil condition value", "field", opts.Field)
			return "", nil, nil
		}
		if opts.Field == "" {
			compare := n.Compare
			if compare == "" {
				compare = opts.compare()
			}
			if !condition.IsRHSOnlyCompare(compare) {
				return "", nil, fmt.Errorf("%w: bare value without a field context", ErrStructural)
			}
		}
		return compilePair(fields, opts.Field, n, opts)
	default:
		if opts.Field != "" {
			return compilePair(fields, opts.Field, node, opts)
		}
		return "", nil, fmt.Errorf("%w: node of type %T needs a field context", ErrStructural, node)
	}
}

// compileSequence treats a bare list of condition nodes as an implicit
// connective (AND unless overridden).
func compileSequence(fields *record.Fields, children []interface{}, opts Options) (string, []interface{}, error) {
	group := &condition.Group{Op: opts.connective(), Children: children}
	return compileGroup(fields, group, opts)
}

func compileGroup(fields *record.Fields, g *condition.Group, opts Options) (string, []interface{}, error) {
	childCompare := g.Compare
	if childCompare == "" {
		childCompare = opts.compare()
	}
	childSiblings := len(g.Children) - 1
	if len(g.Children) == 1 {
		// An only child sits at the group's own level.
		childSiblings = opts.Siblings
	}

	var parts []string
	var args []interface{}
	for _, child := range g.Children {
		childOpts := Options{
			Compare:    childCompare,
			Connective: opts.Connective,
			ParamsUsed: opts.ParamsUsed + len(args),
			Siblings:   childSiblings,
			Field:      opts.Field,
		}
		sql, childArgs, err := compileNode(fields, child, childOpts)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		parts = append(parts, sql)
		args = append(args, childArgs...)
	}
	if len(parts) == 0 {
		return "", nil, nil
	}

	joined := strings.Join(parts, " "+string(g.Op)+" ")
	if len(parts) > 1 && opts.Siblings > 0 {
		joined = "(" + joined + ")"
	}
	return joined, args, nil
}

// compileFieldMap lowers a field map in sorted key order. Map entries are
// an implicit AND of per-field comparisons.
func compileFieldMap(fields *record.Fields, m condition.Cond, opts Options) (string, []interface{}, error) {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entrySiblings := len(keys) - 1
	if len(keys) == 1 {
		entrySiblings = opts.Siblings
	}

	var parts []string
	var args []interface{}
	for _, key := range keys {
		value := m[key]
		if value == condition.Skip {
			debug.Warn("skipping unset condition value", "field", key)
			continue
		}
		pairOpts := Options{
			Compare:    opts.Compare,
			ParamsUsed: opts.ParamsUsed + len(args),
			Siblings:   entrySiblings,
		}
		sql, pairArgs, err := compilePair(fields, key, value, pairOpts)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		parts = append(parts, sql)
		args = append(args, pairArgs...)
	}
	if len(parts) == 0 {
		return "", nil, nil
	}

	joined := strings.Join(parts, " AND ")
	if len(parts) > 1 && opts.Siblings > 0 {
		joined = "(" + joined + ")"
	}
	return joined, args, nil
}

// compilePair lowers a single (field, value) comparison per the leaf
// value rules.
func compilePair(fields *record.Fields, fieldName string, value interface{}, opts Options) (string, []interface{}, error) {
	var field *record.Field
	if fieldName != "" {
		var err error
		field, err = fields.Get(fieldName)
		if err != nil {
			return "", nil, err
		}
	}

	switch v := value.(type) {
	case nil:
		return lhs(field, "IS NULL") + " IS NULL", nil, nil

	case condition.Sentinel:
		switch v {
		case condition.NotNull:
			return lhs(field, "IS NOT NULL") + " IS NOT NULL", nil, nil
		case condition.Now:
			return fmt.Sprintf("%s %s now()", lhs(field, opts.compare()), opts.compare()), nil, nil
		case condition.Skip:
			debug.Warn("skipping unset condition value", "field", fieldName)
			return "", nil, nil
		default:
			return "", nil, fmt.Errorf("%w: sentinel %v in value position", ErrStructural, v)
		}

	case condition.Cond, map[string]interface{}:
		return "", nil, fmt.Errorf("%w: field map nested under field %q", ErrStructural, fieldName)

	case *condition.Group:
		if v == nil {
			debug.Warn("skipping nil condition value", "field", fieldName)
			return "", nil, nil
		}
		// Connective across comparisons against the same field.
		return compileGroup(fields, v, Options{
			Compare:    opts.Compare,
			ParamsUsed: opts.ParamsUsed,
			Siblings:   opts.Siblings,
			Field:      fieldName,
		})

	case *condition.Value:
		if v == nil {
			debug.Warn("skipping nil condition value", "field", fieldName)
			return "", nil, nil
		}
		return compileWrapped(fields, field, fieldName, v, opts)

	case condition.SQLRenderable:
		return compileSubquery(field, fieldName, v, "", opts)

	default:
		if elems, ok := asSlice(value); ok {
			return compileInList(field, elems, opts)
		}
		compare := opts.compare()
		if condition.IsRHSOnlyCompare(compare) {
			return "", nil, fmt.Errorf("%w: %s does not take a field value", ErrStructural, compare)
		}
		sql := fmt.Sprintf("%s %s $%d", lhs(field, compare), compare, opts.ParamsUsed+1)
		return sql, []interface{}{value}, nil
	}
}

// compileInList lowers a non-empty slice to IN and an empty slice to the
// unsatisfiable predicate "true = false" instead of an invalid IN ().
func compileInList(field *record.Field, elems []interface{}, opts Options) (string, []interface{}, error) {
	if len(elems) == 0 {
		return "true = false", nil, nil
	}
	placeholders := make([]string, len(elems))
	args := make([]interface{}, 0, len(elems))
	for i, elem := range elems {
		switch elem.(type) {
		case condition.SQLRenderable, *condition.Value, *condition.Group, condition.Cond, map[string]interface{}:
			return "", nil, fmt.Errorf("%w: %T not allowed inside a value list", ErrStructural, elem)
		}
		placeholders[i] = fmt.Sprintf("$%d", opts.ParamsUsed+i+1)
		args = append(args, elem)
	}
	sql := fmt.Sprintf("%s IN (%s)", lhs(field, condition.CompareIn), strings.Join(placeholders, ", "))
	return sql, args, nil
}

// compileWrapped lowers an explicit value wrapper.
func compileWrapped(fields *record.Fields, field *record.Field, fieldName string, v *condition.Value, opts Options) (string, []interface{}, error) {
	if sub, ok := v.Raw.(condition.SQLRenderable); ok {
		return compileSubquery(field, fieldName, sub, v.Compare, opts)
	}

	compare := v.Compare
	if compare == "" {
		compare = opts.compare()
	}

	if condition.IsRHSOnlyCompare(compare) {
		if fieldName != "" {
			return "", nil, fmt.Errorf("%w: %s cannot be applied to field %q", ErrStructural, compare, fieldName)
		}
		return "", nil, fmt.Errorf("%w: %s requires a sub-query value", ErrStructural, compare)
	}

	if v.Bind {
		raw := v.Raw
		if v.Quote {
			if s, ok := raw.(string); ok {
				raw = strings.ReplaceAll(s, "'", "''")
			}
		}
		sql := fmt.Sprintf("%s %s $%d", lhs(field, compare), compare, opts.ParamsUsed+1)
		return sql, []interface{}{raw}, nil
	}

	// Inline literal, spliced unbound.
	text := fmt.Sprintf("%v", v.Raw)
	if v.Quote {
		text = "'" + strings.ReplaceAll(text, "'", "''") + "'"
	}
	return fmt.Sprintf("%s %s %s", lhs(field, compare), compare, text), nil, nil
}

// compileSubquery embeds a renderable sub-select, continuing the outer
// statement's parameter numbering.
func compileSubquery(field *record.Field, fieldName string, sub condition.SQLRenderable, compare string, opts Options) (string, []interface{}, error) {
	subSQL, subArgs, subCompare, err := sub.RenderSQL(opts.ParamsUsed, true)
	if err != nil {
		return "", nil, err
	}
	if compare == "" {
		compare = subCompare
	}
	if compare == "" {
		// Sub-selects compare with IN unless told otherwise.
		compare = condition.CompareIn
	}
	if condition.IsRHSOnlyCompare(compare) {
		if fieldName != "" {
			return "", nil, fmt.Errorf("%w: %s cannot be applied to field %q", ErrStructural, compare, fieldName)
		}
		return fmt.Sprintf("%s (%s)", compare, subSQL), subArgs, nil
	}
	if fieldName == "" {
		return "", nil, fmt.Errorf("%w: sub-query comparison %s needs a field context", ErrStructural, compare)
	}
	return fmt.Sprintf("%s %s (%s)", lhs(field, compare), compare, subSQL), subArgs, nil
}

// lhs renders the quoted column, casting to text for pattern comparisons
// against non-textual columns.
func lhs(field *record.Field, compare string) string {
	if field == nil {
		return ""
	}
	quoted := record.QuoteIdentifier(field.DBName())
	if condition.IsPatternCompare(compare) && !field.Type.IsTextual() {
		return quoted + "::text"
	}
	return quoted
}

// asSlice normalizes slice-typed values (except byte slices) to
// []interface{} for IN compilation.
func asSlice(value interface{}) ([]interface{}, bool) {
	if elems, ok := value.([]interface{}); ok {
		return elems, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	elems := make([]interface{}, rv.Len())
	for i := range elems {
		elems[i] = rv.Index(i).Interface()
	}
	return elems, true
}
