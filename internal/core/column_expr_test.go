package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabularql/tabularql/internal/value"
)

func newSalesTable(t *testing.T) *DataTable {
	t.Helper()
	tbl := New()
	require.NoError(t, tbl.AddColumn(ColumnDescription{ID: "region", Type: value.TypeText}))
	require.NoError(t, tbl.AddColumn(ColumnDescription{ID: "amount", Type: value.TypeNumber}))
	require.NoError(t, tbl.AddRow(TableRow{Cells: []TableCell{NewCell(value.NewText("east")), NewCell(value.NewNumber(10))}}))
	require.NoError(t, tbl.AddRow(TableRow{Cells: []TableCell{NewCell(value.NewText("west")), NewCell(value.NewNumber(20))}}))
	return tbl
}

func TestColumnExprIDDerivation(t *testing.T) {
	simple := Simple("amount")
	assert.Equal(t, "amount", simple.ID())

	agg := Aggregation(AggSum, simple)
	assert.Equal(t, "sum-amount", agg.ID())

	fn := ScalarFunction("year", Simple("created"))
	assert.Equal(t, "year(created)", fn.ID())
}

func TestAllSimpleColumnIdsRecursesThroughScalarFunction(t *testing.T) {
	e := ScalarFunction("sum", Simple("a"), Simple("b"))
	assert.ElementsMatch(t, []string{"a", "b"}, e.AllSimpleColumnIds())
}

func TestValidateColumnRejectsUnknownColumn(t *testing.T) {
	tbl := newSalesTable(t)
	err := Simple("missing").ValidateColumn(tbl)
	require.Error(t, err)
}

func TestValidateColumnRejectsSumOverNonNumber(t *testing.T) {
	tbl := newSalesTable(t)
	err := Aggregation(AggSum, Simple("region")).ValidateColumn(tbl)
	require.Error(t, err)
}

func TestValidateColumnAcceptsMinOverText(t *testing.T) {
	tbl := newSalesTable(t)
	require.NoError(t, Aggregation(AggMin, Simple("region")).ValidateColumn(tbl))
}

func TestValueTypeForAggregations(t *testing.T) {
	tbl := newSalesTable(t)

	sumType, err := Aggregation(AggSum, Simple("amount")).ValueType(tbl)
	require.NoError(t, err)
	assert.Equal(t, value.TypeNumber, sumType)

	minType, err := Aggregation(AggMin, Simple("region")).ValueType(tbl)
	require.NoError(t, err)
	assert.Equal(t, value.TypeText, minType)
}

func TestValidateColumnRejectsUnknownScalarFunction(t *testing.T) {
	tbl := newSalesTable(t)
	err := ScalarFunction("bogus", Simple("amount")).ValidateColumn(tbl)
	require.Error(t, err)
}

func TestValidateColumnPropagatesScalarFunctionArgTypeErrors(t *testing.T) {
	tbl := newSalesTable(t)
	err := ScalarFunction("lower", Simple("amount")).ValidateColumn(tbl)
	require.Error(t, err)
}

func TestToQueryStringRoundTripShapes(t *testing.T) {
	assert.Equal(t, "amount", Simple("amount").ToQueryString())
	assert.Equal(t, "sum(amount)", Aggregation(AggSum, Simple("amount")).ToQueryString())
	assert.Equal(t, "sum(a, b)", ScalarFunction("sum", Simple("a"), Simple("b")).ToQueryString())
}

func TestEqualIsStructural(t *testing.T) {
	a := ScalarFunction("sum", Simple("x"), Simple("y"))
	b := ScalarFunction("sum", Simple("x"), Simple("y"))
	c := ScalarFunction("sum", Simple("x"), Simple("z"))

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.False(t, a.Equal(c))
}

func TestEvalScalarFunctionOverSimpleColumns(t *testing.T) {
	tbl := newSalesTable(t)
	lookup := DataTableColumnLookup{Table: tbl}

	e := ScalarFunction("upper", Simple("region"))
	v, err := e.Eval(tbl, 0, lookup)
	require.NoError(t, err)
	assert.Equal(t, "EAST", v.Text())
}

func TestDataTableColumnLookupRejectsCompositeExpression(t *testing.T) {
	tbl := newSalesTable(t)
	lookup := DataTableColumnLookup{Table: tbl}
	_, err := lookup.IndexOf(Aggregation(AggSum, Simple("amount")))
	require.Error(t, err)
}

func TestGenericColumnLookupRoundTrip(t *testing.T) {
	lookup := NewGenericColumnLookup()
	agg := Aggregation(AggSum, Simple("amount"))
	lookup.Set(agg, 3)

	i, err := lookup.IndexOf(Aggregation(AggSum, Simple("amount")))
	require.NoError(t, err)
	assert.Equal(t, 3, i)

	_, err = lookup.IndexOf(Simple("amount"))
	require.Error(t, err)
}
