package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabularql/tabularql/internal/core"
	"github.com/tabularql/tabularql/internal/value"
)

func newSalesSourceTable(t *testing.T) *core.DataTable {
	t.Helper()
	tbl := core.New()
	require.NoError(t, tbl.AddColumn(core.ColumnDescription{ID: "region", Type: value.TypeText}))
	require.NoError(t, tbl.AddColumn(core.ColumnDescription{ID: "product", Type: value.TypeText}))
	require.NoError(t, tbl.AddColumn(core.ColumnDescription{ID: "amount", Type: value.TypeNumber}))
	return tbl
}

func TestAggregationTreeGroupOnly(t *testing.T) {
	tbl := newSalesSourceTable(t)
	groupCols := []core.ColumnExpr{core.Simple("region")}
	aggCols := []core.ColumnExpr{core.Aggregation(core.AggSum, core.Simple("amount"))}
	tree, err := NewAggregationTree(groupCols, nil, aggCols, tbl)
	require.NoError(t, err)

	rows := []struct {
		region string
		amount float64
	}{
		{"east", 10}, {"west", 5}, {"east", 20},
	}
	for _, r := range rows {
		err := tree.Ingest(
			[]value.Value{value.NewText(r.region)},
			nil,
			map[string]value.Value{"sum-amount": value.NewNumber(r.amount)},
		)
		require.NoError(t, err)
	}

	materialized, err := tree.Rows()
	require.NoError(t, err)
	require.Len(t, materialized, 2)

	assert.Equal(t, "east", materialized[0].GroupValues[0].Text())
	assert.Equal(t, 30.0, materialized[0].AggValues[0].Number())
	assert.Equal(t, "west", materialized[1].GroupValues[0].Text())
	assert.Equal(t, 5.0, materialized[1].AggValues[0].Number())
}

func TestAggregationTreeEmptyWithNoGroupStillProducesOneRow(t *testing.T) {
	tbl := newSalesSourceTable(t)
	aggCols := []core.ColumnExpr{core.Aggregation(core.AggCount, core.Simple("amount"))}
	tree, err := NewAggregationTree(nil, nil, aggCols, tbl)
	require.NoError(t, err)
	tree.EnsureRootGroup()

	rows, err := tree.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.0, rows[0].AggValues[0].Number())
}

func TestAggregationTreePivotColumnsOrderedAscending(t *testing.T) {
	tbl := newSalesSourceTable(t)
	groupCols := []core.ColumnExpr{core.Simple("region")}
	pivotCols := []core.ColumnExpr{core.Simple("product")}
	aggCols := []core.ColumnExpr{core.Aggregation(core.AggSum, core.Simple("amount"))}
	tree, err := NewAggregationTree(groupCols, pivotCols, aggCols, tbl)
	require.NoError(t, err)

	ingest := func(region, product string, amount float64) {
		err := tree.Ingest(
			[]value.Value{value.NewText(region)},
			[]value.Value{value.NewText(product)},
			map[string]value.Value{"sum-amount": value.NewNumber(amount)},
		)
		require.NoError(t, err)
	}
	ingest("east", "widget", 10)
	ingest("east", "apple-thing", 5)
	ingest("west", "widget", 7)

	cols := tree.Columns()
	require.Len(t, cols, 3) // region + 2 pivot-tuple columns (1 pivot col x 2 distinct products)
	assert.True(t, cols[0].IsGroup)
	assert.Equal(t, "apple-thing sum-amount", cols[1].ID)
	assert.Equal(t, "widget sum-amount", cols[2].ID)

	rows, err := tree.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// east: apple-thing=5, widget=10
	assert.Equal(t, 5.0, rows[0].AggValues[0].Number())
	assert.Equal(t, 10.0, rows[0].AggValues[1].Number())
	// west: apple-thing never ingested for this group, so SUM is a typed null
	assert.True(t, rows[1].AggValues[0].IsNull())
	assert.Equal(t, 7.0, rows[1].AggValues[1].Number())
}
