package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tabularql/tabularql/internal/qerrors"
	"github.com/tabularql/tabularql/internal/value"
)

// ComparisonOp names a Filter leaf's comparison operator.
type ComparisonOp int

const (
	OpEQ ComparisonOp = iota
	OpNE
	OpLT
	OpLE
	OpGT
	OpGE
	OpLike
	OpContains
	OpStartsWith
	OpEndsWith
	OpMatches
	OpIsNull
)

func (o ComparisonOp) String() string {
	switch o {
	case OpEQ:
		return "="
	case OpNE:
		return "!="
	case OpLT:
		return "<"
	case OpLE:
		return "<="
	case OpGT:
		return ">"
	case OpGE:
		return ">="
	case OpLike:
		return "LIKE"
	case OpContains:
		return "CONTAINS"
	case OpStartsWith:
		return "STARTS WITH"
	case OpEndsWith:
		return "ENDS WITH"
	case OpMatches:
		return "MATCHES"
	case OpIsNull:
		return "IS NULL"
	default:
		return "?"
	}
}

func (o ComparisonOp) isStringOnly() bool {
	switch o {
	case OpLike, OpContains, OpStartsWith, OpEndsWith, OpMatches:
		return true
	default:
		return false
	}
}

// operand is one side of a Comparison: either a column expression or a
// literal Value. Exactly one of the two is set.
type operand struct {
	col     *ColumnExpr
	lit     *value.Value
	isExprs bool
}

func colOperand(e ColumnExpr) operand { return operand{col: &e, isExprs: true} }
func litOperand(v value.Value) operand {
	return operand{lit: &v}
}

func (o operand) resolve(table *DataTable, row int, lookup ColumnLookup) (value.Value, error) {
	if o.isExprs {
		return o.col.Eval(table, row, lookup)
	}
	return *o.lit, nil
}

func (o operand) queryString() string {
	if o.isExprs {
		return o.col.ToQueryString()
	}
	return o.lit.InnerQueryString()
}

func (o operand) columnExprs() []ColumnExpr {
	if o.isExprs {
		return []ColumnExpr{*o.col}
	}
	return nil
}

// filterKind tags which of the Filter variants is populated.
type filterKind int

const (
	filterAnd filterKind = iota
	filterOr
	filterNot
	filterComparison
	filterAlwaysTrue
)

// Filter is the WHERE-clause predicate tree: AND/OR/NOT combinators over
// comparison leaves.
type Filter struct {
	kind     filterKind
	children []Filter // AND/OR
	negated  *Filter  // NOT

	op    ComparisonOp
	left  operand
	right operand // unused for OpIsNull
}

// AlwaysTrue returns a Filter that matches every row (the default WHERE
// when a query has none).
func AlwaysTrue() Filter { return Filter{kind: filterAlwaysTrue} }

// And combines children with AND. An empty list is equivalent to
// AlwaysTrue.
func And(children ...Filter) Filter { return Filter{kind: filterAnd, children: children} }

// Or combines children with OR.
func Or(children ...Filter) Filter { return Filter{kind: filterOr, children: children} }

// Not negates f.
func Not(f Filter) Filter { return Filter{kind: filterNot, negated: &f} }

// Compare builds a column-vs-value comparison.
func Compare(col ColumnExpr, op ComparisonOp, v value.Value) Filter {
	return Filter{kind: filterComparison, op: op, left: colOperand(col), right: litOperand(v)}
}

// CompareColumns builds a column-vs-column comparison.
func CompareColumns(left ColumnExpr, op ComparisonOp, right ColumnExpr) Filter {
	return Filter{kind: filterComparison, op: op, left: colOperand(left), right: colOperand(right)}
}

// CompareValues builds a value-vs-value comparison, primarily useful for
// tests and constant-folding.
func CompareValues(left value.Value, op ComparisonOp, right value.Value) Filter {
	return Filter{kind: filterComparison, op: op, left: litOperand(left), right: litOperand(right)}
}

// IsNull builds an IS NULL test over col.
func IsNull(col ColumnExpr) Filter {
	return Filter{kind: filterComparison, op: OpIsNull, left: colOperand(col)}
}

// IsMatch evaluates f against the row at index row in table, using lookup
// to resolve column expressions.
func (f Filter) IsMatch(table *DataTable, row int, lookup ColumnLookup) (bool, error) {
	switch f.kind {
	case filterAlwaysTrue:
		return true, nil
	case filterAnd:
		for _, c := range f.children {
			ok, err := c.IsMatch(table, row, lookup)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case filterOr:
		for _, c := range f.children {
			ok, err := c.IsMatch(table, row, lookup)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case filterNot:
		ok, err := f.negated.IsMatch(table, row, lookup)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case filterComparison:
		return f.evalComparison(table, row, lookup)
	default:
		return false, qerrors.Internalf("unknown filter kind %v", f.kind)
	}
}

func (f Filter) evalComparison(table *DataTable, row int, lookup ColumnLookup) (bool, error) {
	left, err := f.left.resolve(table, row, lookup)
	if err != nil {
		return false, err
	}
	if f.op == OpIsNull {
		return left.IsNull(), nil
	}
	right, err := f.right.resolve(table, row, lookup)
	if err != nil {
		return false, err
	}
	// SQL three-valued logic collapses to two-valued here: unknown (either
	// side null) is always false.
	if left.IsNull() || right.IsNull() {
		return false, nil
	}
	if f.op.isStringOnly() {
		if left.Type() != value.TypeText || right.Type() != value.TypeText {
			return false, qerrors.TypeMismatchf("", "%s requires TEXT operands, got %s and %s", f.op, left.Type(), right.Type())
		}
		return evalStringOp(f.op, left.Text(), right.Text())
	}
	if left.Type() != right.Type() {
		return false, qerrors.TypeMismatchf("", "cannot compare %s with %s using %s", left.Type(), right.Type(), f.op)
	}
	switch f.op {
	case OpEQ:
		return left.Equal(right), nil
	case OpNE:
		return !left.Equal(right), nil
	case OpLT, OpLE, OpGT, OpGE:
		c, err := left.CompareTo(right, nil)
		if err != nil {
			return false, err
		}
		switch f.op {
		case OpLT:
			return c < 0, nil
		case OpLE:
			return c <= 0, nil
		case OpGT:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	default:
		return false, qerrors.Internalf("unsupported comparison operator %v", f.op)
	}
}

func evalStringOp(op ComparisonOp, left, right string) (bool, error) {
	switch op {
	case OpLike:
		return matchLike(left, right), nil
	case OpContains:
		return strings.Contains(left, right), nil
	case OpStartsWith:
		return strings.HasPrefix(left, right), nil
	case OpEndsWith:
		return strings.HasSuffix(left, right), nil
	case OpMatches:
		re, err := regexp.Compile("^(?:" + right + ")$")
		if err != nil {
			return false, qerrors.InvalidQueryf("WHERE", "", "invalid MATCHES pattern %q: %v", right, err)
		}
		return re.MatchString(left), nil
	default:
		return false, qerrors.Internalf("unsupported string operator %v", op)
	}
}

// matchLike implements SQL LIKE: '%' matches any run of characters
// (including empty), '_' matches exactly one character. The match is
// anchored to the whole string.
func matchLike(s, pattern string) bool {
	var sb strings.Builder
	sb.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	re := regexp.MustCompile(sb.String())
	return re.MatchString(s)
}

// AllColumnIds returns the ids of every SimpleColumn leaf reachable from f.
func (f Filter) AllColumnIds() []string {
	var ids []string
	for _, e := range f.allExprs() {
		ids = append(ids, e.AllSimpleColumnIds()...)
	}
	return ids
}

// ScalarFunctionColumns returns every ScalarFunctionColumn node reachable
// from f.
func (f Filter) ScalarFunctionColumns() []ColumnExpr {
	var out []ColumnExpr
	for _, e := range f.allExprs() {
		out = append(out, e.AllScalarFunctionColumns()...)
	}
	return out
}

// AggregationColumns returns every AggregationColumn node reachable from
// f. A non-empty result here is always an INVALID_QUERY in validation:
// aggregations are illegal inside WHERE.
func (f Filter) AggregationColumns() []ColumnExpr {
	var out []ColumnExpr
	for _, e := range f.allExprs() {
		out = append(out, e.AllAggregationColumns()...)
	}
	return out
}

// UsesMatches reports whether f (at any depth) contains a MATCHES
// comparison, the one filter operator gated by a capability flag.
func (f Filter) UsesMatches() bool {
	switch f.kind {
	case filterAnd, filterOr:
		for _, c := range f.children {
			if c.UsesMatches() {
				return true
			}
		}
		return false
	case filterNot:
		return f.negated.UsesMatches()
	case filterComparison:
		return f.op == OpMatches
	default:
		return false
	}
}

func (f Filter) allExprs() []ColumnExpr {
	switch f.kind {
	case filterAnd, filterOr:
		var out []ColumnExpr
		for _, c := range f.children {
			out = append(out, c.allExprs()...)
		}
		return out
	case filterNot:
		return f.negated.allExprs()
	case filterComparison:
		return append(f.left.columnExprs(), f.right.columnExprs()...)
	default:
		return nil
	}
}

// ToQueryString renders f as a reverse-parseable WHERE fragment.
func (f Filter) ToQueryString() string {
	switch f.kind {
	case filterAlwaysTrue:
		return "true"
	case filterAnd:
		return joinFilterChildren(f.children, " AND ")
	case filterOr:
		return joinFilterChildren(f.children, " OR ")
	case filterNot:
		return fmt.Sprintf("NOT (%s)", f.negated.ToQueryString())
	case filterComparison:
		if f.op == OpIsNull {
			return fmt.Sprintf("%s IS NULL", f.left.queryString())
		}
		return fmt.Sprintf("%s %s %s", f.left.queryString(), f.op, f.right.queryString())
	default:
		return ""
	}
}

func joinFilterChildren(children []Filter, sep string) string {
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = fmt.Sprintf("(%s)", c.ToQueryString())
	}
	return strings.Join(parts, sep)
}
