package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/recordql/recordql/internal/debug"
	"github.com/recordql/recordql/query/condition"
	"github.com/recordql/recordql/query/where"
	"github.com/recordql/recordql/record"
	"github.com/recordql/recordql/runtime/client"
)

// querier matches *sql.DB and *sql.Conn.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// RenderSQL implements condition.SQLRenderable so a RecordQuery can be
// embedded as a sub-select. Placeholders continue the outer statement's
// numbering; ORDER BY is skipped in sub-query position when neither
// limit nor offset is set, where it is irrelevant and wasteful.
func (q *RecordQuery) RenderSQL(paramsUsed int, asSubquery bool) (string, []interface{}, string, error) {
	sql, args, err := q.renderSelect(paramsUsed, asSubquery)
	if err != nil {
		return "", nil, "", err
	}
	return sql, args, "", nil
}

// renderSelect compiles the full SELECT statement.
func (q *RecordQuery) renderSelect(paramsUsed int, asSubquery bool) (string, []interface{}, error) {
	cols, err := q.selectList()
	if err != nil {
		return "", nil, err
	}

	parts := []string{fmt.Sprintf("SELECT %s", cols)}
	parts = append(parts, fmt.Sprintf("FROM %s", q.desc.QuotedTable()))

	var args []interface{}
	if len(q.wheres) > 0 {
		whereSQL, whereArgs, err := where.Compile(q.desc.Fields, condition.Seq(q.wheres), where.Options{
			ParamsUsed: paramsUsed,
		})
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "WHERE "+whereSQL)
		args = append(args, whereArgs...)
	}

	orderSQL, err := q.orderClause(asSubquery)
	if err != nil {
		return "", nil, err
	}
	if orderSQL != "" {
		parts = append(parts, orderSQL)
	}

	if q.limit != nil {
		parts = append(parts, fmt.Sprintf("LIMIT %d", *q.limit))
	}
	if q.offset != nil {
		parts = append(parts, fmt.Sprintf("OFFSET %d", *q.offset))
	}

	return strings.Join(parts, " "), args, nil
}

// selectList renders the column list for the current output shape:
// "*" for entities, else the returns selector with aliasing wherever
// the column name differs from the field key.
func (q *RecordQuery) selectList() (string, error) {
	if q.output == OutputEntity {
		return "*", nil
	}
	selected := q.returns
	if len(selected) == 0 {
		selected = q.desc.Fields.Names()
	}
	cols := make([]string, len(selected))
	for i, name := range selected {
		f, err := q.desc.Fields.Get(name)
		if err != nil {
			return "", err
		}
		col := record.QuoteIdentifier(f.DBName())
		if f.DBName() != f.Name {
			col += " AS " + record.QuoteIdentifier(f.Name)
		}
		cols[i] = col
	}
	return strings.Join(cols, ", "), nil
}

// orderClause renders ORDER BY: the explicit orders, else the primary
// key ascending. In sub-query position with no limit or offset the
// clause is omitted entirely.
func (q *RecordQuery) orderClause(asSubquery bool) (string, error) {
	if asSubquery && q.limit == nil && q.offset == nil {
		return "", nil
	}
	var parts []string
	if len(q.orders) > 0 {
		for _, o := range q.orders {
			f, err := q.desc.Fields.Get(o.Field)
			if err != nil {
				return "", err
			}
			dir := Asc
			if o.Direction == Desc {
				dir = Desc
			}
			parts = append(parts, fmt.Sprintf("%s %s", record.QuoteIdentifier(f.DBName()), dir))
		}
	} else {
		for _, pk := range q.desc.Fields.Primary() {
			parts = append(parts, fmt.Sprintf("%s %s", record.QuoteIdentifier(pk.DBName()), Asc))
		}
	}
	if len(parts) == 0 {
		return "", nil
	}
	return "ORDER BY " + strings.Join(parts, ", "), nil
}

// Run compiles and executes the query, buffering rows in the requested
// shape, or opening a cursor-backed stream in streaming mode.
func (q *RecordQuery) Run(ctx context.Context) error {
	if q.streaming {
		if len(q.returns) > 0 {
			return fmt.Errorf("%w: returns selector", ErrUnavailableInStream)
		}
		if q.output != OutputEntity {
			return fmt.Errorf("%w: non-entity output shape", ErrUnavailableInStream)
		}
	}

	sqlText, args, err := q.renderSelect(0, false)
	if err != nil {
		return err
	}
	debug.Query(sqlText, args)

	if q.streaming {
		return q.runStream(ctx, sqlText, args)
	}
	return q.runBuffered(ctx, sqlText, args)
}

func (q *RecordQuery) runBuffered(ctx context.Context, sqlText string, args []interface{}) error {
	var exec querier
	if q.conn != nil {
		exec = q.conn
	} else {
		c, err := q.pool()
		if err != nil {
			return err
		}
		exec = c.DB()
	}

	rows, err := exec.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return client.TranslateError(err)
	}
	defer rows.Close()

	results, err := q.scanAll(rows)
	if err != nil {
		return client.TranslateError(err)
	}
	q.results = results
	q.stream = nil
	q.loaded = true
	return nil
}

func (q *RecordQuery) runStream(ctx context.Context, sqlText string, args []interface{}) error {
	var conn *sql.Conn
	ownsConn := false
	if q.conn != nil {
		conn = q.conn
	} else {
		c, err := q.pool()
		if err != nil {
			return err
		}
		conn, err = c.AcquireConn(ctx)
		if err != nil {
			return err
		}
		ownsConn = true
	}

	rows, err := conn.QueryContext(ctx, sqlText, args...)
	if err != nil {
		if ownsConn {
			_ = conn.Close()
		}
		return client.TranslateError(err)
	}

	stream := &Stream{desc: q.desc, rows: rows}
	if ownsConn {
		stream.conn = conn
	}
	if q.stream != nil {
		// A repeated Run on a loaded streaming query replaces the open
		// stream; release the old cursor and connection first.
		_ = q.stream.Close()
	}
	q.stream = stream
	q.results = nil
	q.loaded = true
	return nil
}

// scanAll maps every row to the requested output shape.
func (q *RecordQuery) scanAll(rows *sql.Rows) ([]interface{}, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	results := []interface{}{}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		dest := make([]interface{}, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}

		shaped, err := q.shapeRow(cols, values)
		if err != nil {
			return nil, err
		}
		results = append(results, shaped)
	}
	return results, rows.Err()
}

// shapeRow converts one scanned row to the output shape.
func (q *RecordQuery) shapeRow(cols []string, values []interface{}) (interface{}, error) {
	switch q.output {
	case OutputEntity:
		return entityFromRow(q.desc, cols, values)
	case OutputScalar:
		if len(values) == 0 {
			return nil, nil
		}
		return values[0], nil
	case OutputPlain:
		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		return row, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidOutputType, q.output)
	}
}

// entityFromRow builds a record from a SELECT * row, matching columns
// through the field registry. Columns with no declared field are
// dropped.
func entityFromRow(desc *record.Descriptor, cols []string, values []interface{}) (*record.Record, error) {
	rec, err := record.New(desc)
	if err != nil {
		return nil, err
	}
	loaded := make(map[string]interface{}, len(cols))
	for i, col := range cols {
		if f, ok := desc.Fields.ByColumn(col); ok {
			loaded[f.Name] = values[i]
		}
	}
	rec.LoadValues(loaded)
	return rec, nil
}

// Count wraps the rendered query in an outer count. The inner select is
// embedded as written, including any LIMIT and OFFSET, so a limited
// query counts at most its limit.
func (q *RecordQuery) Count(ctx context.Context) (int64, error) {
	inner, args, err := q.renderSelect(0, true)
	if err != nil {
		return 0, err
	}
	sqlText := fmt.Sprintf("SELECT count(*) FROM (%s) AS %s", inner, record.QuoteIdentifier("cnt"))
	debug.Query(sqlText, args)

	var exec interface {
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}
	if q.conn != nil {
		exec = q.conn
	} else {
		c, err := q.pool()
		if err != nil {
			return 0, err
		}
		exec = c.DB()
	}

	var count int64
	if err := exec.QueryRowContext(ctx, sqlText, args...).Scan(&count); err != nil {
		return 0, client.TranslateError(err)
	}
	return count, nil
}

// One runs the query with a limit of two and returns a single matching
// record. Ambiguity (more than one match) is collected as a non-fatal
// warning on the returned record, with ok false.
func One(ctx context.Context, desc *record.Descriptor, pool interface{}, cond interface{}) (*record.Record, bool, error) {
	q, err := New(desc, pool)
	if err != nil {
		return nil, false, err
	}
	if cond != nil {
		q.Where(cond)
	}
	q.Limit(2)
	if err := q.Run(ctx); err != nil {
		return nil, false, err
	}
	recs, err := q.Records()
	if err != nil {
		return nil, false, err
	}
	switch len(recs) {
	case 0:
		return nil, false, nil
	case 1:
		return recs[0], true, nil
	default:
		rec := recs[0]
		rec.Warn("load matched more than one row")
		debug.Warn("single-row load matched multiple rows", "table", desc.Table)
		return rec, false, nil
	}
}
