package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabularql/tabularql/internal/value"
)

func newOrdersTable(t *testing.T) *DataTable {
	t.Helper()
	tbl := New()
	require.NoError(t, tbl.AddColumn(ColumnDescription{ID: "region", Type: value.TypeText}))
	require.NoError(t, tbl.AddColumn(ColumnDescription{ID: "product", Type: value.TypeText}))
	require.NoError(t, tbl.AddColumn(ColumnDescription{ID: "amount", Type: value.TypeNumber}))
	return tbl
}

func TestValidateRejectsUnknownColumn(t *testing.T) {
	tbl := newOrdersTable(t)
	q := NewQuery()
	q.Selection = []ColumnExpr{Simple("bogus")}
	require.Error(t, q.Validate(tbl))
}

func TestValidateRule3RequiresNonAggregationSelectInGroup(t *testing.T) {
	tbl := newOrdersTable(t)
	q := NewQuery()
	q.Group = []ColumnExpr{Simple("region")}
	q.Selection = []ColumnExpr{Simple("region"), Simple("product")}
	err := q.Validate(tbl)
	require.Error(t, err)
}

func TestValidateRule3AllowsGroupColumnsCoveredBySelect(t *testing.T) {
	tbl := newOrdersTable(t)
	q := NewQuery()
	q.Group = []ColumnExpr{Simple("region")}
	q.Selection = []ColumnExpr{Simple("region"), Aggregation(AggSum, Simple("amount"))}
	require.NoError(t, q.Validate(tbl))
}

func TestValidateRule4RequiresAggregationOrGroupMembership(t *testing.T) {
	tbl := newOrdersTable(t)
	q := NewQuery()
	q.Selection = []ColumnExpr{Simple("product"), Aggregation(AggSum, Simple("amount"))}
	err := q.Validate(tbl)
	require.Error(t, err)
}

func TestValidateRejectsAggregationInGroup(t *testing.T) {
	tbl := newOrdersTable(t)
	q := NewQuery()
	q.Group = []ColumnExpr{Aggregation(AggSum, Simple("amount"))}
	q.Selection = []ColumnExpr{Aggregation(AggSum, Simple("amount"))}
	err := q.Validate(tbl)
	require.Error(t, err)
}

func TestValidateRule5RejectsSameColumnInGroupAndPivot(t *testing.T) {
	tbl := newOrdersTable(t)
	q := NewQuery()
	q.Group = []ColumnExpr{Simple("region")}
	q.Pivot = []ColumnExpr{Simple("region")}
	q.Selection = []ColumnExpr{Simple("region")}
	err := q.Validate(tbl)
	require.Error(t, err)
}

func TestValidateRule6RejectsAggregationInWhere(t *testing.T) {
	tbl := newOrdersTable(t)
	q := NewQuery()
	q.Selection = []ColumnExpr{Simple("region")}
	q.Where = Compare(Aggregation(AggSum, Simple("amount")), OpGT, value.NewNumber(10))
	err := q.Validate(tbl)
	require.Error(t, err)
}

func TestValidateRule7RejectsOrderByOutsideSelectWithGroup(t *testing.T) {
	tbl := newOrdersTable(t)
	q := NewQuery()
	q.Group = []ColumnExpr{Simple("region")}
	q.Selection = []ColumnExpr{Simple("region"), Aggregation(AggSum, Simple("amount"))}
	q.Sort = []SortSpec{{Column: Simple("product"), Direction: Ascending}}
	err := q.Validate(tbl)
	require.Error(t, err)
}

func TestValidateRule7AllowsOrderByOutsideSelectWithoutGroupOrAggregation(t *testing.T) {
	tbl := newOrdersTable(t)
	q := NewQuery()
	q.Selection = []ColumnExpr{Simple("region")}
	q.Sort = []SortSpec{{Column: Simple("product"), Direction: Ascending}}
	require.NoError(t, q.Validate(tbl))
}

func TestValidateRule8RejectsLabelKeyNotInSelect(t *testing.T) {
	tbl := newOrdersTable(t)
	q := NewQuery()
	q.Selection = []ColumnExpr{Simple("region")}
	q.Labels["product"] = "Product"
	err := q.Validate(tbl)
	require.Error(t, err)
}

func TestValidateAcceptsWellFormedGroupPivotAggregationQuery(t *testing.T) {
	tbl := newOrdersTable(t)
	q := NewQuery()
	q.Group = []ColumnExpr{Simple("region")}
	q.Pivot = []ColumnExpr{Simple("product")}
	q.Selection = []ColumnExpr{Simple("region"), Simple("product"), Aggregation(AggSum, Simple("amount"))}
	assert.NoError(t, q.Validate(tbl))
}
