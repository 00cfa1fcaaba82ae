package queryparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabularql/tabularql/internal/core"
	"github.com/tabularql/tabularql/internal/value"
)

func TestParseColumnExprRoundTrip(t *testing.T) {
	exprs := []core.ColumnExpr{
		core.Simple("age"),
		core.Aggregation(core.AggSum, core.Simple("salary")),
		core.Aggregation(core.AggCount, core.Simple("salary")),
		core.ScalarFunction("year", core.Simple("d")),
		core.ScalarFunction("sum", core.Simple("a"), core.Simple("b")),
	}
	for _, e := range exprs {
		qs := e.ToQueryString()
		got, err := ParseColumnExpr(qs)
		require.NoError(t, err, qs)
		assert.True(t, e.Equal(got), "round trip mismatch for %q: got %q", qs, got.ToQueryString())
	}
}

func TestParseFilterRoundTrip(t *testing.T) {
	filters := []core.Filter{
		core.AlwaysTrue(),
		core.Compare(core.Simple("age"), core.OpGE, value.NewNumber(30)),
		core.IsNull(core.Simple("x")),
		core.And(
			core.Compare(core.Simple("age"), core.OpGE, value.NewNumber(30)),
			core.Compare(core.Simple("s"), core.OpLike, value.NewText("app%")),
		),
		core.Or(
			core.Compare(core.Simple("a"), core.OpEQ, value.NewNumber(1)),
			core.Not(core.IsNull(core.Simple("b"))),
		),
		core.Compare(core.Simple("s"), core.OpStartsWith, value.NewText("a")),
		core.Compare(core.Simple("s"), core.OpEndsWith, value.NewText("z")),
	}
	for _, f := range filters {
		qs := f.ToQueryString()
		got, err := ParseFilter(qs)
		require.NoError(t, err, qs)
		assert.Equal(t, qs, got.ToQueryString(), "round trip mismatch for %q", qs)
	}
}

func TestParseQueryS1(t *testing.T) {
	q, err := ParseQuery("SELECT `name`,`age` WHERE `age`>=30 ORDER BY `age` DESC")
	require.NoError(t, err)
	require.Len(t, q.Selection, 2)
	assert.Equal(t, "name", q.Selection[0].ID())
	assert.Equal(t, "age", q.Selection[1].ID())
	require.Len(t, q.Sort, 1)
	assert.Equal(t, core.Descending, q.Sort[0].Direction)
}

func TestParseQueryS2(t *testing.T) {
	q, err := ParseQuery("SELECT `dept`, SUM(`salary`), COUNT(`salary`) GROUP BY `dept` ORDER BY `dept`")
	require.NoError(t, err)
	require.Len(t, q.Selection, 3)
	assert.True(t, q.Selection[1].IsAggregation())
	assert.Equal(t, core.AggSum, q.Selection[1].AggregationType())
	require.Len(t, q.Group, 1)
	assert.Equal(t, "dept", q.Group[0].ID())
}

func TestParseQueryS3Pivot(t *testing.T) {
	q, err := ParseQuery("SELECT `region`, SUM(`rev`) GROUP BY `region` PIVOT `year` ORDER BY `region`")
	require.NoError(t, err)
	require.Len(t, q.Pivot, 1)
	assert.Equal(t, "year", q.Pivot[0].ID())
}

func TestParseQueryLimitOffsetLabelFormatOptions(t *testing.T) {
	q, err := ParseQuery(`SELECT n LIMIT 2 OFFSET 1 LABEL n "Amount" FORMAT n "#,##0.00" OPTIONS no_format`)
	require.NoError(t, err)
	assert.Equal(t, 2, q.Limit)
	assert.Equal(t, 1, q.Skip)
	assert.Equal(t, "Amount", q.Labels["n"])
	assert.Equal(t, "#,##0.00", q.Formats["n"])
	assert.True(t, q.HasOption(core.NoFormat))
}

func TestParseQueryRejectsMissingSelect(t *testing.T) {
	_, err := ParseQuery("WHERE `a` = 1")
	require.Error(t, err)
}

func TestParseQueryRejectsDuplicateClause(t *testing.T) {
	_, err := ParseQuery("SELECT a LIMIT 1 LIMIT 2")
	require.Error(t, err)
}

func TestParseFilterDateLiteral(t *testing.T) {
	f, err := ParseFilter("`d`=date '2020-03-15'")
	require.NoError(t, err)
	assert.Equal(t, "d = date '2020-03-15'", f.ToQueryString())
}
