package core

import (
	"github.com/tabularql/tabularql/internal/qerrors"
)

// ColumnLookup maps a column expression to its index within some
// DataTable. SimpleColumn and AggregationColumn expressions read straight
// from a looked-up cell; ScalarFunctionColumn never needs a lookup entry
// of its own, since it recomputes from its arguments at evaluation time.
type ColumnLookup interface {
	// IndexOf returns the column index e resolves to, or an INVALID_QUERY
	// error if e is not known to this lookup.
	IndexOf(e ColumnExpr) (int, error)
}

// DataTableColumnLookup resolves any SimpleColumn by id against a fixed
// DataTable's schema. It is used before grouping, when every expression in
// play still refers directly to source columns.
type DataTableColumnLookup struct {
	Table *DataTable
}

// IndexOf implements ColumnLookup. Only SimpleColumn expressions are
// resolvable; anything else is an internal error, since the pipeline
// should never ask a pre-aggregation lookup to resolve a composite
// expression.
func (l DataTableColumnLookup) IndexOf(e ColumnExpr) (int, error) {
	if !e.IsSimple() {
		return 0, qerrors.Internalf("DataTableColumnLookup cannot resolve non-simple column %q", e.ToQueryString())
	}
	i := l.Table.ColumnIndex(e.SimpleID())
	if i < 0 {
		return 0, qerrors.InvalidQueryf("", e.SimpleID(), "unknown column %q", e.SimpleID())
	}
	return i, nil
}

// GenericColumnLookup is an explicit structural map from ColumnExpr to
// index, used for post-aggregation rows where SELECT may reference
// aggregation or scalar-function columns that do not correspond to schema
// ids. Keys are compared by ColumnExpr.Equal via a hash-then-equal probe,
// since ColumnExpr is not a valid native Go map key (it embeds pointers
// and slices).
type GenericColumnLookup struct {
	buckets map[uint64][]lookupEntry
}

type lookupEntry struct {
	expr  ColumnExpr
	index int
}

// NewGenericColumnLookup builds an empty GenericColumnLookup.
func NewGenericColumnLookup() *GenericColumnLookup {
	return &GenericColumnLookup{buckets: map[uint64][]lookupEntry{}}
}

// Set records that e resolves to index i, overwriting any previous
// mapping for a structurally equal expression.
func (l *GenericColumnLookup) Set(e ColumnExpr, i int) {
	h := e.Hash()
	bucket := l.buckets[h]
	for idx, entry := range bucket {
		if entry.expr.Equal(e) {
			bucket[idx].index = i
			return
		}
	}
	l.buckets[h] = append(bucket, lookupEntry{expr: e, index: i})
}

// IndexOf implements ColumnLookup.
func (l *GenericColumnLookup) IndexOf(e ColumnExpr) (int, error) {
	for _, entry := range l.buckets[e.Hash()] {
		if entry.expr.Equal(e) {
			return entry.index, nil
		}
	}
	return 0, qerrors.InvalidQueryf("", e.ID(), "no lookup entry for column %q", e.ToQueryString())
}
