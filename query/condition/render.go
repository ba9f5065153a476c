package condition

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SQLRenderable is anything that can render itself as a sub-query:
// a parameterized SQL fragment whose placeholders continue the numbering
// of the enclosing statement. asSubquery lets the implementation skip
// clauses that are irrelevant when embedded, like ORDER BY.
type SQLRenderable interface {
	RenderSQL(paramsUsed int, asSubquery bool) (sql string, args []interface{}, compare string, err error)
}

// Raw is a user-supplied SQL fragment with positional placeholders
// numbered from $1. It renumbers itself when embedded after other
// parameters.
type Raw struct {
	SQL     string
	Args    []interface{}
	Compare string // comparison operator to use against the embedding field
}

var placeholderPattern = regexp.MustCompile(`\$(\d+)`)

// RenderSQL implements SQLRenderable.
func (r *Raw) RenderSQL(paramsUsed int, _ bool) (string, []interface{}, string, error) {
	var renumberErr error
	sql := placeholderPattern.ReplaceAllStringFunc(r.SQL, func(m string) string {
		n, err := strconv.Atoi(strings.TrimPrefix(m, "$"))
		if err != nil || n < 1 || n > len(r.Args) {
			renumberErr = fmt.Errorf("raw sql placeholder %s out of range for %d args", m, len(r.Args))
			return m
		}
		return fmt.Sprintf("$%d", n+paramsUsed)
	})
	if renumberErr != nil {
		return "", nil, "", renumberErr
	}
	return sql, r.Args, r.Compare, nil
}
