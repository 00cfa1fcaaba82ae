package core

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/tabularql/tabularql/internal/functions"
	"github.com/tabularql/tabularql/internal/qerrors"
	"github.com/tabularql/tabularql/internal/value"
)

// AggregationType names one of the five built-in aggregation operators
// an AggregationColumn can apply to its inner column.
type AggregationType int

const (
	AggSum AggregationType = iota
	AggCount
	AggMin
	AggMax
	AggAvg
)

func (a AggregationType) String() string {
	switch a {
	case AggSum:
		return "sum"
	case AggCount:
		return "count"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggAvg:
		return "avg"
	default:
		return "unknown"
	}
}

// exprKind tags which of the three ColumnExpr variants is populated.
type exprKind int

const (
	kindSimple exprKind = iota
	kindAggregation
	kindScalarFunction
)

// ColumnExpr is the sum type over SimpleColumn, AggregationColumn, and
// ScalarFunctionColumn. It is built as a single tagged struct rather than
// an interface with concrete implementations so that ColumnExpr values
// remain comparable-by-value and usable as map keys via Equal/Hash, which
// ColumnLookup and the label/format maps both rely on.
type ColumnExpr struct {
	kind exprKind

	// populated when kind == kindSimple
	simpleID string

	// populated when kind == kindAggregation
	aggType AggregationType
	inner   *ColumnExpr

	// populated when kind == kindScalarFunction
	funcName string
	args     []ColumnExpr
}

// Simple builds a SimpleColumn referring to the source column with the
// given id.
func Simple(id string) ColumnExpr {
	return ColumnExpr{kind: kindSimple, simpleID: id}
}

// Aggregation builds an AggregationColumn applying aggType to inner.
func Aggregation(aggType AggregationType, inner ColumnExpr) ColumnExpr {
	cp := inner
	return ColumnExpr{kind: kindAggregation, aggType: aggType, inner: &cp}
}

// ScalarFunction builds a ScalarFunctionColumn calling the named function
// over args.
func ScalarFunction(name string, args ...ColumnExpr) ColumnExpr {
	cp := make([]ColumnExpr, len(args))
	copy(cp, args)
	return ColumnExpr{kind: kindScalarFunction, funcName: name, args: cp}
}

// IsSimple reports whether e is a SimpleColumn.
func (e ColumnExpr) IsSimple() bool { return e.kind == kindSimple }

// IsAggregation reports whether e is an AggregationColumn.
func (e ColumnExpr) IsAggregation() bool { return e.kind == kindAggregation }

// IsScalarFunction reports whether e is a ScalarFunctionColumn.
func (e ColumnExpr) IsScalarFunction() bool { return e.kind == kindScalarFunction }

// SimpleID returns the referenced column id. Valid only when IsSimple().
func (e ColumnExpr) SimpleID() string { return e.simpleID }

// AggregationType returns the aggregation operator. Valid only when
// IsAggregation().
func (e ColumnExpr) AggregationType() AggregationType { return e.aggType }

// Inner returns the aggregated column. Valid only when IsAggregation().
func (e ColumnExpr) Inner() ColumnExpr { return *e.inner }

// FuncName returns the scalar function name. Valid only when
// IsScalarFunction().
func (e ColumnExpr) FuncName() string { return e.funcName }

// Args returns the scalar function's argument expressions. Valid only
// when IsScalarFunction().
func (e ColumnExpr) Args() []ColumnExpr { return e.args }

// ID returns a deterministic string identifying e: the column id for a
// SimpleColumn, or a derived id such as "sum-x" or "year(x)" for composite
// expressions.
func (e ColumnExpr) ID() string {
	switch e.kind {
	case kindSimple:
		return e.simpleID
	case kindAggregation:
		return fmt.Sprintf("%s-%s", e.aggType, e.inner.ID())
	case kindScalarFunction:
		ids := make([]string, len(e.args))
		for i, a := range e.args {
			ids[i] = a.ID()
		}
		return fmt.Sprintf("%s(%s)", e.funcName, strings.Join(ids, ","))
	default:
		return ""
	}
}

// AllSimpleColumnIds returns the ids of every SimpleColumn leaf reached by
// recursing through e.
func (e ColumnExpr) AllSimpleColumnIds() []string {
	var ids []string
	for _, s := range e.AllSimpleColumns() {
		ids = append(ids, s.simpleID)
	}
	return ids
}

// AllSimpleColumns returns every SimpleColumn node within e's subtree.
func (e ColumnExpr) AllSimpleColumns() []ColumnExpr {
	switch e.kind {
	case kindSimple:
		return []ColumnExpr{e}
	case kindAggregation:
		return e.inner.AllSimpleColumns()
	case kindScalarFunction:
		var out []ColumnExpr
		for _, a := range e.args {
			out = append(out, a.AllSimpleColumns()...)
		}
		return out
	default:
		return nil
	}
}

// AllAggregationColumns returns every AggregationColumn node within e's
// subtree.
func (e ColumnExpr) AllAggregationColumns() []ColumnExpr {
	switch e.kind {
	case kindAggregation:
		return append([]ColumnExpr{e}, e.inner.AllAggregationColumns()...)
	case kindScalarFunction:
		var out []ColumnExpr
		for _, a := range e.args {
			out = append(out, a.AllAggregationColumns()...)
		}
		return out
	default:
		return nil
	}
}

// AllScalarFunctionColumns returns every ScalarFunctionColumn node within
// e's subtree.
func (e ColumnExpr) AllScalarFunctionColumns() []ColumnExpr {
	switch e.kind {
	case kindScalarFunction:
		out := []ColumnExpr{e}
		for _, a := range e.args {
			out = append(out, a.AllScalarFunctionColumns()...)
		}
		return out
	case kindAggregation:
		return e.inner.AllScalarFunctionColumns()
	default:
		return nil
	}
}

// ValidateColumn fails with an INVALID_QUERY error if e references an
// unknown column, applies SUM/AVG to a non-NUMBER column, or calls a
// scalar function with the wrong arity or argument types. It recurses
// into every subexpression.
func (e ColumnExpr) ValidateColumn(table *DataTable) error {
	switch e.kind {
	case kindSimple:
		if table.ColumnIndex(e.simpleID) < 0 {
			return qerrors.InvalidQueryf("", e.simpleID, "unknown column %q", e.simpleID)
		}
		return nil
	case kindAggregation:
		if err := e.inner.ValidateColumn(table); err != nil {
			return err
		}
		if e.aggType == AggSum || e.aggType == AggAvg {
			t, err := e.inner.ValueType(table)
			if err != nil {
				return err
			}
			if t != value.TypeNumber {
				return qerrors.InvalidQueryf("", e.inner.ID(), "%s requires a NUMBER column, got %s", e.aggType, t)
			}
		}
		return nil
	case kindScalarFunction:
		fn, ok := functions.Lookup(e.funcName)
		if !ok {
			return qerrors.InvalidQueryf("", "", "unknown scalar function %q", e.funcName)
		}
		argTypes := make([]value.Type, len(e.args))
		for i, a := range e.args {
			if err := a.ValidateColumn(table); err != nil {
				return err
			}
			t, err := a.ValueType(table)
			if err != nil {
				return err
			}
			argTypes[i] = t
		}
		if err := fn.Validate(argTypes); err != nil {
			return err
		}
		return nil
	default:
		return qerrors.Internalf("unknown column expression kind %v", e.kind)
	}
}

// ValueType reports the Value type e produces when evaluated against
// table. table supplies SimpleColumn types; callers should run
// ValidateColumn first.
func (e ColumnExpr) ValueType(table *DataTable) (value.Type, error) {
	switch e.kind {
	case kindSimple:
		i := table.ColumnIndex(e.simpleID)
		if i < 0 {
			return 0, qerrors.InvalidQueryf("", e.simpleID, "unknown column %q", e.simpleID)
		}
		return table.Column(i).Type, nil
	case kindAggregation:
		switch e.aggType {
		case AggSum, AggCount, AggAvg:
			return value.TypeNumber, nil
		case AggMin, AggMax:
			return e.inner.ValueType(table)
		default:
			return 0, qerrors.Internalf("unknown aggregation type %v", e.aggType)
		}
	case kindScalarFunction:
		fn, ok := functions.Lookup(e.funcName)
		if !ok {
			return 0, qerrors.InvalidQueryf("", "", "unknown scalar function %q", e.funcName)
		}
		argTypes := make([]value.Type, len(e.args))
		for i, a := range e.args {
			t, err := a.ValueType(table)
			if err != nil {
				return 0, err
			}
			argTypes[i] = t
		}
		return fn.ReturnType(argTypes), nil
	default:
		return 0, qerrors.Internalf("unknown column expression kind %v", e.kind)
	}
}

// ToQueryString renders e as a reverse-parseable query fragment, e.g.
// "x", "sum(x)", "year(x)".
func (e ColumnExpr) ToQueryString() string {
	switch e.kind {
	case kindSimple:
		return e.simpleID
	case kindAggregation:
		return fmt.Sprintf("%s(%s)", e.aggType, e.inner.ToQueryString())
	case kindScalarFunction:
		args := make([]string, len(e.args))
		for i, a := range e.args {
			args[i] = a.ToQueryString()
		}
		if fn, ok := functions.Lookup(e.funcName); ok {
			return fn.QueryString(args)
		}
		return fmt.Sprintf("%s(%s)", e.funcName, strings.Join(args, ","))
	default:
		return ""
	}
}

// Eval evaluates e at row using lookup to resolve SimpleColumn and
// AggregationColumn indices.
func (e ColumnExpr) Eval(table *DataTable, row int, lookup ColumnLookup) (value.Value, error) {
	switch e.kind {
	case kindSimple, kindAggregation:
		i, err := lookup.IndexOf(e)
		if err != nil {
			return value.Value{}, err
		}
		return table.Rows[row].Cells[i].Value, nil
	case kindScalarFunction:
		fn, ok := functions.Lookup(e.funcName)
		if !ok {
			return value.Value{}, qerrors.InvalidQueryf("", "", "unknown scalar function %q", e.funcName)
		}
		args := make([]value.Value, len(e.args))
		for i, a := range e.args {
			v, err := a.Eval(table, row, lookup)
			if err != nil {
				return value.Value{}, err
			}
			args[i] = v
		}
		return fn.Eval(args)
	default:
		return value.Value{}, qerrors.Internalf("unknown column expression kind %v", e.kind)
	}
}

// Equal reports structural equality: two ColumnExprs are equal iff they
// denote the same computation. This is what ColumnLookup and the
// label/format maps rely on to key by expression.
func (e ColumnExpr) Equal(other ColumnExpr) bool {
	if e.kind != other.kind {
		return false
	}
	switch e.kind {
	case kindSimple:
		return e.simpleID == other.simpleID
	case kindAggregation:
		return e.aggType == other.aggType && e.inner.Equal(*other.inner)
	case kindScalarFunction:
		if e.funcName != other.funcName || len(e.args) != len(other.args) {
			return false
		}
		for i := range e.args {
			if !e.args[i].Equal(other.args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Hash is consistent with Equal: structurally equal expressions hash
// equal.
func (e ColumnExpr) Hash() uint64 {
	h := fnv.New64a()
	e.writeHash(h)
	return h.Sum64()
}

type hashWriter interface {
	Write([]byte) (int, error)
}

func (e ColumnExpr) writeHash(h hashWriter) {
	switch e.kind {
	case kindSimple:
		fmt.Fprintf(h, "S|%s", e.simpleID)
	case kindAggregation:
		fmt.Fprintf(h, "A|%s|", e.aggType)
		e.inner.writeHash(h)
	case kindScalarFunction:
		fmt.Fprintf(h, "F|%s|%d|", e.funcName, len(e.args))
		for _, a := range e.args {
			a.writeHash(h)
		}
	}
}

// sortColumnExprs sorts a slice of ColumnExpr by ID for deterministic
// iteration where the caller has no other natural ordering.
func sortColumnExprs(exprs []ColumnExpr) {
	sort.Slice(exprs, func(i, j int) bool { return exprs[i].ID() < exprs[j].ID() })
}
