package aggregate

import (
	"hash/fnv"
	"sort"
	"strconv"
	"strings"

	"github.com/tabularql/tabularql/internal/core"
	"github.com/tabularql/tabularql/internal/value"
)

// pivotSeparator joins pivot values when deriving a materialized column
// id from a pivot tuple.
const pivotSeparator = ","

// pivotColumnSeparator joins a materialized pivot-tuple id with an
// aggregation column's id, e.g. "2020 sum-rev".
const pivotColumnSeparator = " "

func hashValues(vs []value.Value) uint64 {
	h := fnv.New64a()
	for _, v := range vs {
		var b [8]byte
		hv := v.Hash()
		for i := range b {
			b[i] = byte(hv >> (8 * i))
		}
		h.Write(b[:])
	}
	return h.Sum64()
}

func valuesEqual(a, b []value.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

type pivotEntry struct {
	key         []value.Value
	aggregators map[string]*ValueAggregator
}

type groupEntry struct {
	key          []value.Value
	pivotIndex   map[uint64][]int
	pivots       []*pivotEntry
}

// AggregationTree accumulates per-(group,pivot) aggregates as rows are
// ingested, then materializes the aggregated result DataTable's columns
// and rows in one pass.
type AggregationTree struct {
	groupCols []core.ColumnExpr
	pivotCols []core.ColumnExpr
	aggCols   []core.ColumnExpr

	groupIndex map[uint64][]int
	groups     []*groupEntry

	pivotTuples    []([]value.Value)
	pivotTupleSeen map[uint64][]int

	groupColTypes []value.Type
	aggColTypes   map[string]value.Type
	aggColValType map[string]value.Type
}

// NewAggregationTree returns an empty tree for the given GROUP columns,
// PIVOT columns, and aggregation columns (in the order they should be
// materialized). sourceTable supplies the Value types for every column
// reference, resolved once up front so ingestion never has to re-resolve
// types against a table.
func NewAggregationTree(groupCols, pivotCols, aggCols []core.ColumnExpr, sourceTable *core.DataTable) (*AggregationTree, error) {
	groupColTypes := make([]value.Type, len(groupCols))
	for i, g := range groupCols {
		t, err := g.ValueType(sourceTable)
		if err != nil {
			return nil, err
		}
		groupColTypes[i] = t
	}
	aggColTypes := make(map[string]value.Type, len(aggCols))   // the accumulator's native type (inner column's type)
	aggColValType := make(map[string]value.Type, len(aggCols)) // the aggregation result's type
	for _, a := range aggCols {
		innerType, err := a.Inner().ValueType(sourceTable)
		if err != nil {
			return nil, err
		}
		resultType, err := a.ValueType(sourceTable)
		if err != nil {
			return nil, err
		}
		aggColTypes[a.ID()] = innerType
		aggColValType[a.ID()] = resultType
	}
	return &AggregationTree{
		groupCols:      groupCols,
		pivotCols:      pivotCols,
		aggCols:        aggCols,
		groupIndex:     map[uint64][]int{},
		pivotTupleSeen: map[uint64][]int{},
		groupColTypes:  groupColTypes,
		aggColTypes:    aggColTypes,
		aggColValType:  aggColValType,
	}, nil
}

func (t *AggregationTree) findOrCreateGroup(key []value.Value) *groupEntry {
	h := hashValues(key)
	for _, i := range t.groupIndex[h] {
		if valuesEqual(t.groups[i].key, key) {
			return t.groups[i]
		}
	}
	g := &groupEntry{key: append([]value.Value{}, key...), pivotIndex: map[uint64][]int{}}
	t.groups = append(t.groups, g)
	t.groupIndex[h] = append(t.groupIndex[h], len(t.groups)-1)
	return g
}

func (g *groupEntry) findOrCreatePivot(key []value.Value, aggCols []core.ColumnExpr) *pivotEntry {
	h := hashValues(key)
	for _, i := range g.pivotIndex[h] {
		if valuesEqual(g.pivots[i].key, key) {
			return g.pivots[i]
		}
	}
	p := &pivotEntry{key: append([]value.Value{}, key...), aggregators: map[string]*ValueAggregator{}}
	g.pivots = append(g.pivots, p)
	g.pivotIndex[h] = append(g.pivotIndex[h], len(g.pivots)-1)
	return p
}

func (t *AggregationTree) recordPivotTuple(key []value.Value) {
	h := hashValues(key)
	for _, i := range t.pivotTupleSeen[h] {
		if valuesEqual(t.pivotTuples[i], key) {
			return
		}
	}
	t.pivotTuples = append(t.pivotTuples, append([]value.Value{}, key...))
	t.pivotTupleSeen[h] = append(t.pivotTupleSeen[h], len(t.pivotTuples)-1)
}

// EnsureRootGroup guarantees at least one group exists, with an empty
// group key. It is used when the query has no GROUP clause but does have
// aggregations: the spec requires a single implicit group in that case,
// even over zero input rows.
func (t *AggregationTree) EnsureRootGroup() {
	if len(t.groups) == 0 {
		t.findOrCreateGroup(nil)
		if len(t.pivotCols) == 0 {
			t.recordPivotTuple(nil)
		}
	}
}

// Ingest feeds one source row's resolved group values, pivot values, and
// per-aggregation-column input values into the tree, descending (or
// creating) the corresponding group/pivot node.
func (t *AggregationTree) Ingest(groupVals, pivotVals []value.Value, aggInputs map[string]value.Value) error {
	g := t.findOrCreateGroup(groupVals)
	p := g.findOrCreatePivot(pivotVals, t.aggCols)
	t.recordPivotTuple(pivotVals)

	for _, aggCol := range t.aggCols {
		id := aggCol.ID()
		agg, ok := p.aggregators[id]
		if !ok {
			agg = NewValueAggregator(t.aggColTypes[id])
			p.aggregators[id] = agg
		}
		if err := agg.Add(aggInputs[id]); err != nil {
			return err
		}
	}
	return nil
}

// sortedPivotTuples returns the distinct pivot tuples seen, in ascending
// order under element-wise Value ordering.
func (t *AggregationTree) sortedPivotTuples() [][]value.Value {
	tuples := append([][]value.Value{}, t.pivotTuples...)
	sort.Slice(tuples, func(i, j int) bool {
		return compareTuples(tuples[i], tuples[j]) < 0
	})
	return tuples
}

func compareTuples(a, b []value.Value) int {
	for i := range a {
		c, err := a[i].CompareTo(b[i], nil)
		if err != nil || c != 0 {
			if err != nil {
				return 0
			}
			return c
		}
	}
	return 0
}

// MaterializedColumn describes one output column of the materialized
// aggregation result: either a bare group column, or a (pivot-tuple,
// aggregation-column) combination.
type MaterializedColumn struct {
	ID      string
	Type    value.Type
	IsGroup bool
	// GroupIndex is the index into groupCols, valid when IsGroup.
	GroupIndex int
	// PivotTuple and AggColumn identify a non-group column.
	PivotTuple []value.Value
	AggColumn  core.ColumnExpr
}

func joinPivotTupleID(tuple []value.Value) string {
	parts := make([]string, len(tuple))
	for i, v := range tuple {
		parts[i] = pivotValueToken(v)
	}
	return strings.Join(parts, pivotSeparator)
}

func pivotValueToken(v value.Value) string {
	if v.IsNull() {
		return "null"
	}
	switch v.Type() {
	case value.TypeText:
		return v.Text()
	case value.TypeNumber:
		return strconv.FormatFloat(v.Number(), 'g', -1, 64)
	case value.TypeBoolean:
		return strconv.FormatBool(v.Boolean())
	default:
		return v.InnerQueryString()
	}
}

// Columns returns the materialized column list: the group columns first,
// then one column per (pivot tuple, aggregation column) combination,
// pivot tuples ordered ascending.
func (t *AggregationTree) Columns() []MaterializedColumn {
	cols := make([]MaterializedColumn, 0, len(t.groupCols)+len(t.aggCols))
	for i, g := range t.groupCols {
		cols = append(cols, MaterializedColumn{ID: g.ID(), Type: t.groupColTypes[i], IsGroup: true, GroupIndex: i})
	}
	for _, tuple := range t.sortedPivotTuples() {
		for _, aggCol := range t.aggCols {
			id := aggCol.ID()
			if len(tuple) > 0 {
				id = joinPivotTupleID(tuple) + pivotColumnSeparator + aggCol.ID()
			}
			cols = append(cols, MaterializedColumn{ID: id, Type: t.aggColValType[aggCol.ID()], PivotTuple: tuple, AggColumn: aggCol})
		}
	}
	return cols
}

// Row is one materialized output row: the group key values followed by
// one aggregation result per (pivot tuple, aggregation column) column.
type Row struct {
	GroupValues []value.Value
	AggValues   []value.Value
}

// Rows materializes every group as one output row, in first-seen group
// order, with aggregation results filled in for every (pivot tuple,
// aggregation column) combination — a combination absent from a
// particular group yields the zero-row (count 0) result for that
// aggregator.
func (t *AggregationTree) Rows() ([]Row, error) {
	tuples := t.sortedPivotTuples()
	rows := make([]Row, 0, len(t.groups))
	for _, g := range t.groups {
		row := Row{GroupValues: g.key}
		for _, tuple := range tuples {
			p := findPivotEntry(g, tuple)
			for _, aggCol := range t.aggCols {
				var agg *ValueAggregator
				if p != nil {
					agg = p.aggregators[aggCol.ID()]
				}
				if agg == nil {
					agg = NewValueAggregator(t.aggColTypes[aggCol.ID()])
				}
				v, err := agg.Result(aggCol.AggregationType())
				if err != nil {
					return nil, err
				}
				row.AggValues = append(row.AggValues, v)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func findPivotEntry(g *groupEntry, tuple []value.Value) *pivotEntry {
	h := hashValues(tuple)
	for _, i := range g.pivotIndex[h] {
		if valuesEqual(g.pivots[i].key, tuple) {
			return g.pivots[i]
		}
	}
	return nil
}
