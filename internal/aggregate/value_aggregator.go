// Package aggregate implements the grouping structures the execution
// pipeline's GROUP+PIVOT+AGGREGATE stage accumulates into: a per-column
// ValueAggregator and the AggregationTree that indexes one ValueAggregator
// set per (group, pivot) key combination.
package aggregate

import (
	"github.com/tabularql/tabularql/internal/core"
	"github.com/tabularql/tabularql/internal/qerrors"
	"github.com/tabularql/tabularql/internal/value"
)

// ValueAggregator accumulates one aggregated column's values one row at a
// time and answers SUM/COUNT/MIN/MAX/AVG queries over what it has seen.
type ValueAggregator struct {
	colType value.Type
	count   int
	sum     float64
	min     value.Value
	max     value.Value
	hasExt  bool
}

// NewValueAggregator returns an empty aggregator for a column of the given
// type.
func NewValueAggregator(colType value.Type) *ValueAggregator {
	return &ValueAggregator{colType: colType}
}

// Add feeds one cell value into the aggregator. Null values are counted
// as absent: they neither increment count nor affect min/max/sum.
func (a *ValueAggregator) Add(v value.Value) error {
	if v.IsNull() {
		return nil
	}
	a.count++
	if a.colType == value.TypeNumber {
		a.sum += v.Number()
	}
	if !a.hasExt {
		a.min, a.max = v, v
		a.hasExt = true
		return nil
	}
	c, err := v.CompareTo(a.min, nil)
	if err != nil {
		return err
	}
	if c < 0 {
		a.min = v
	}
	c, err = v.CompareTo(a.max, nil)
	if err != nil {
		return err
	}
	if c > 0 {
		a.max = v
	}
	return nil
}

// Result answers agg against everything fed to Add so far.
func (a *ValueAggregator) Result(agg core.AggregationType) (value.Value, error) {
	switch agg {
	case core.AggCount:
		return value.NewNumber(float64(a.count)), nil
	case core.AggSum:
		if a.count == 0 {
			return value.NullOf(value.TypeNumber), nil
		}
		return value.NewNumber(a.sum), nil
	case core.AggAvg:
		if a.count == 0 {
			return value.NullOf(value.TypeNumber), nil
		}
		return value.NewNumber(a.sum / float64(a.count)), nil
	case core.AggMin:
		if a.count == 0 {
			return value.NullOf(a.colType), nil
		}
		return a.min, nil
	case core.AggMax:
		if a.count == 0 {
			return value.NullOf(a.colType), nil
		}
		return a.max, nil
	default:
		return value.Value{}, qerrors.Internalf("unknown aggregation type %v", agg)
	}
}
