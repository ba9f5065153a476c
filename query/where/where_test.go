package where

import (
	"errors"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/recordql/recordql/query/condition"
	"github.com/recordql/recordql/record"
)

func testFields() *record.Fields {
	return record.NewFields(
		record.Field{Name: "id", Type: record.TypeInt, PrimaryKey: true},
		record.Field{Name: "aNumber", Type: record.TypeInt},
		record.Field{Name: "aFlag", Type: record.TypeBool},
		record.Field{Name: "email", Column: "email_address", Type: record.TypeText},
		record.Field{Name: "createdAt", Type: record.TypeTimestamp},
	)
}

func mustCompile(t *testing.T, node interface{}, opts Options) (string, []interface{}) {
	t.Helper()
	sql, args, err := Compile(testFields(), node, opts)
	require.NoError(t, err)
	return sql, args
}

var placeholderRe = regexp.MustCompile(`\$(\d+)`)

// requireContiguousParams asserts the placeholder indices are exactly
// start+1..start+len(args) with no gaps or repeats.
func requireContiguousParams(t *testing.T, sql string, args []interface{}, start int) {
	t.Helper()
	seen := map[int]bool{}
	for _, m := range placeholderRe.FindAllStringSubmatch(sql, -1) {
		n, err := strconv.Atoi(m[1])
		require.NoError(t, err)
		require.False(t, seen[n], "placeholder $%d repeated", n)
		seen[n] = true
	}
	require.Len(t, seen, len(args))
	for i := start + 1; i <= start+len(args); i++ {
		require.True(t, seen[i], "placeholder $%d missing", i)
	}
}

func TestCompileSimpleEquality(t *testing.T) {
	sql, args := mustCompile(t, condition.Cond{"aNumber": 1}, Options{})
	require.Equal(t, `"a_number" = $1`, sql)
	require.Equal(t, []interface{}{1}, args)
}

func TestCompileColumnOverride(t *testing.T) {
	sql, args := mustCompile(t, condition.Cond{"email": "a@b.c"}, Options{})
	require.Equal(t, `"email_address" = $1`, sql)
	require.Equal(t, []interface{}{"a@b.c"}, args)
}

func TestCompileIsIdempotent(t *testing.T) {
	node := condition.Cond{
		"aFlag":   true,
		"aNumber": []interface{}{1, 2, 3},
	}
	sql1, args1 := mustCompile(t, node, Options{ParamsUsed: 2})
	sql2, args2 := mustCompile(t, node, Options{ParamsUsed: 2})
	require.Equal(t, sql1, sql2)
	require.Equal(t, args1, args2)
}

func TestCompileParameterContiguity(t *testing.T) {
	node := condition.Seq{
		condition.Cond{"aFlag": true},
		condition.Or(
			condition.Cond{"aNumber": []interface{}{1, 2, 3}},
			condition.Cond{"email": "x@y.z"},
		),
	}
	sql, args := mustCompile(t, node, Options{})
	require.Len(t, args, 5)
	requireContiguousParams(t, sql, args, 0)
}

func TestCompileParameterOffset(t *testing.T) {
	sql, args := mustCompile(t, condition.Cond{"aNumber": 1}, Options{ParamsUsed: 3})
	require.Equal(t, `"a_number" = $4`, sql)
	requireContiguousParams(t, sql, args, 3)
}

func TestCompileInList(t *testing.T) {
	sql, args := mustCompile(t, condition.Cond{"aNumber": []interface{}{0, 1}}, Options{})
	require.Equal(t, `"a_number" IN ($1, $2)`, sql)
	require.Equal(t, []interface{}{0, 1}, args)
}

func TestCompileTypedSlice(t *testing.T) {
	sql, args := mustCompile(t, condition.Cond{"aNumber": []int{4, 5}}, Options{})
	require.Equal(t, `"a_number" IN ($1, $2)`, sql)
	require.Equal(t, []interface{}{4, 5}, args)
}

func TestCompileEmptyListIsUnsatisfiable(t *testing.T) {
	sql, args := mustCompile(t, condition.Cond{"aNumber": []interface{}{}}, Options{})
	require.Equal(t, "true = false", sql)
	require.Empty(t, args)
	require.NotContains(t, sql, "IN ()")
}

func TestCompileNullVersusNotNull(t *testing.T) {
	sql, args := mustCompile(t, condition.Cond{"aNumber": nil}, Options{})
	require.Equal(t, `"a_number" IS NULL`, sql)
	require.Empty(t, args)

	sql, args = mustCompile(t, condition.Cond{"aNumber": condition.NotNull}, Options{})
	require.Equal(t, `"a_number" IS NOT NULL`, sql)
	require.Empty(t, args)
}

func TestCompileNowIsUnbound(t *testing.T) {
	sql, args := mustCompile(t, condition.Cond{"createdAt": condition.Now}, Options{})
	require.Equal(t, `"created_at" = now()`, sql)
	require.Empty(t, args)
}

func TestCompileConnectiveMatchesImplicitSequence(t *testing.T) {
	explicit := condition.And(condition.Cond{"aFlag": true}, condition.Cond{"aNumber": 2})
	implicit := condition.Seq{condition.Cond{"aFlag": true}, condition.Cond{"aNumber": 2}}

	sqlE, argsE := mustCompile(t, explicit, Options{})
	sqlI, argsI := mustCompile(t, implicit, Options{})
	require.Equal(t, sqlE, sqlI)
	require.Equal(t, argsE, argsI)
	require.Equal(t, `"a_flag" = $1 AND "a_number" = $2`, sqlE)
}

func TestCompileNestedOrParenthesizedUnderSiblings(t *testing.T) {
	node := condition.Seq{
		condition.Cond{"aFlag": true},
		condition.Or(condition.Cond{"aNumber": 1}, condition.Cond{"aNumber": 2}),
	}
	sql, args := mustCompile(t, node, Options{})
	require.Equal(t, `"a_flag" = $1 AND ("a_number" = $2 OR "a_number" = $3)`, sql)
	require.Equal(t, []interface{}{true, 1, 2}, args)
}

func TestCompileTopLevelGroupIsBare(t *testing.T) {
	sql, _ := mustCompile(t, condition.Or(condition.Cond{"aNumber": 1}, condition.Cond{"aNumber": 2}), Options{})
	require.Equal(t, `"a_number" = $1 OR "a_number" = $2`, sql)
}

func TestCompileFieldScopedConnective(t *testing.T) {
	node := condition.Cond{"id": condition.Or(1, condition.Like("%5"))}
	sql, args := mustCompile(t, node, Options{})
	require.Equal(t, `"id" = $1 OR "id"::text LIKE $2`, sql)
	require.Equal(t, []interface{}{1, "%5"}, args)
}

func TestCompileFieldScopedEquivalence(t *testing.T) {
	scoped, argsScoped := mustCompile(t, condition.Cond{"id": condition.Or(1, 2)}, Options{})
	spread, argsSpread := mustCompile(t, condition.Or(condition.Cond{"id": 1}, condition.Cond{"id": 2}), Options{})
	require.Equal(t, spread, scoped)
	require.Equal(t, argsSpread, argsScoped)
}

func TestCompilePatternCastOnlyForNonText(t *testing.T) {
	sql, _ := mustCompile(t, condition.Cond{"email": condition.Like("%@x")}, Options{})
	require.Equal(t, `"email_address" LIKE $1`, sql)

	sql, _ = mustCompile(t, condition.Cond{"aNumber": condition.Like("%5")}, Options{})
	require.Equal(t, `"a_number"::text LIKE $1`, sql)
}

func TestCompileGroupDefaultComparison(t *testing.T) {
	node := condition.Cond{"aNumber": condition.Or(1, 2).WithCompare(condition.CompareGreater)}
	sql, args := mustCompile(t, node, Options{})
	require.Equal(t, `"a_number" > $1 OR "a_number" > $2`, sql)
	require.Equal(t, []interface{}{1, 2}, args)
}

func TestCompileInlineValue(t *testing.T) {
	sql, args := mustCompile(t, condition.Cond{"aNumber": condition.Inline(5)}, Options{})
	require.Equal(t, `"a_number" = 5`, sql)
	require.Empty(t, args)
}

func TestCompileInlineQuotedValue(t *testing.T) {
	sql, args := mustCompile(t, condition.Cond{"email": condition.Inline("o'brien").WithQuote()}, Options{})
	require.Equal(t, `"email_address" = 'o''brien'`, sql)
	require.Empty(t, args)
}

func TestCompileValueComparisonOverride(t *testing.T) {
	sql, args := mustCompile(t, condition.Cond{"aNumber": condition.Compare(condition.CompareGreaterEq, 10)}, Options{})
	require.Equal(t, `"a_number" >= $1`, sql)
	require.Equal(t, []interface{}{10}, args)
}

func TestCompileSubqueryDefaultsToIn(t *testing.T) {
	sub := &condition.Raw{SQL: `SELECT "id" FROM "other" WHERE "x" = $1`, Args: []interface{}{5}}
	node := condition.Cond{"aFlag": true, "id": sub}
	sql, args := mustCompile(t, node, Options{})
	require.Equal(t, `"a_flag" = $1 AND "id" IN (SELECT "id" FROM "other" WHERE "x" = $2)`, sql)
	require.Equal(t, []interface{}{true, 5}, args)
	requireContiguousParams(t, sql, args, 0)
}

func TestCompileSubqueryComparisonFromRenderable(t *testing.T) {
	sub := &condition.Raw{SQL: `SELECT "id" FROM "other"`, Compare: condition.CompareNotIn}
	sql, args := mustCompile(t, condition.Cond{"id": sub}, Options{})
	require.Equal(t, `"id" NOT IN (SELECT "id" FROM "other")`, sql)
	require.Empty(t, args)
}

func TestCompileExistsWithoutField(t *testing.T) {
	sub := &condition.Raw{SQL: `SELECT 1 FROM "other"`}
	node := condition.Seq{condition.Compare(condition.CompareExists, sub)}
	sql, args := mustCompile(t, node, Options{})
	require.Equal(t, `EXISTS (SELECT 1 FROM "other")`, sql)
	require.Empty(t, args)
}

func TestCompileExistsWithFieldRejected(t *testing.T) {
	sub := &condition.Raw{SQL: `SELECT 1`}
	_, _, err := Compile(testFields(), condition.Cond{"id": condition.Compare(condition.CompareExists, sub)}, Options{})
	require.ErrorIs(t, err, ErrStructural)
}

func TestCompileFieldMapUnderFieldRejected(t *testing.T) {
	_, _, err := Compile(testFields(), condition.Cond{"id": condition.Cond{"aNumber": 1}}, Options{})
	require.ErrorIs(t, err, ErrStructural)

	_, _, err = Compile(testFields(), condition.Cond{"id": map[string]interface{}{"aNumber": 1}}, Options{})
	require.ErrorIs(t, err, ErrStructural)
}

func TestCompileFieldMapInsideFieldConnectiveRejected(t *testing.T) {
	// The nested map must not escape the "id" scope.
	_, _, err := Compile(testFields(), condition.Cond{
		"id": condition.Or(condition.Cond{"aNumber": 1}, 5),
	}, Options{})
	require.ErrorIs(t, err, ErrStructural)

	_, _, err = Compile(testFields(), condition.Cond{
		"id": condition.Or(condition.Seq{condition.Cond{"aNumber": 1}}, 5),
	}, Options{})
	require.ErrorIs(t, err, ErrStructural)

	_, _, err = Compile(testFields(), condition.Cond{
		"id": condition.And(map[string]interface{}{"aNumber": 1}),
	}, Options{})
	require.ErrorIs(t, err, ErrStructural)
}

func TestCompileSubqueryInsideListRejected(t *testing.T) {
	sub := &condition.Raw{SQL: `SELECT "id" FROM "other"`}
	_, _, err := Compile(testFields(), condition.Cond{"id": []interface{}{1, sub}}, Options{})
	require.ErrorIs(t, err, ErrStructural)
}

func TestCompileUnknownFieldRejected(t *testing.T) {
	_, _, err := Compile(testFields(), condition.Cond{"missing": 1}, Options{})
	require.ErrorIs(t, err, record.ErrFieldNotFound)
}

func TestCompileSkipIsDroppedNotNull(t *testing.T) {
	sql, args := mustCompile(t, condition.Cond{"aFlag": true, "aNumber": condition.Skip}, Options{})
	require.Equal(t, `"a_flag" = $1`, sql)
	require.Equal(t, []interface{}{true}, args)
}

func TestCompileTypedNilPointersAreDropped(t *testing.T) {
	sql, args := mustCompile(t, condition.Cond{
		"aFlag":   true,
		"aNumber": (*condition.Value)(nil),
		"email":   (*condition.Group)(nil),
	}, Options{})
	require.Equal(t, `"a_flag" = $1`, sql)
	require.Equal(t, []interface{}{true}, args)
}

func TestCompileAllSkippedIsTrue(t *testing.T) {
	sql, args := mustCompile(t, condition.Cond{"aNumber": condition.Skip}, Options{})
	require.Equal(t, "true", sql)
	require.Empty(t, args)
}

func TestCompileEmptyTreeIsTrue(t *testing.T) {
	sql, args := mustCompile(t, condition.Seq{}, Options{})
	require.Equal(t, "true", sql)
	require.Empty(t, args)
}

func TestCompileBareValueWithoutFieldRejected(t *testing.T) {
	_, _, err := Compile(testFields(), condition.Seq{42}, Options{})
	require.ErrorIs(t, err, ErrStructural)
}

func TestCompileNilRegistry(t *testing.T) {
	_, _, err := Compile(nil, condition.Cond{"id": 1}, Options{})
	require.Error(t, err)
	require.True(t, errors.Is(err, record.ErrMissingRequiredArg))
}
