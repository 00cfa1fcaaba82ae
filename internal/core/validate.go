package core

import (
	"github.com/tabularql/tabularql/internal/qerrors"
)

// Validate enforces every cross-clause rule described for the query
// object; the first violation found returns an INVALID_QUERY error.
// Validate never mutates q or table.
func (q *Query) Validate(table *DataTable) error {
	if err := q.validateColumnReferences(table); err != nil {
		return err
	}
	if err := q.validateGroupPivotHasNoAggregation(); err != nil {
		return err
	}
	if err := q.validateGroupPivotSelectConsistency(); err != nil {
		return err
	}
	if err := q.validateAggregationSelectConsistency(); err != nil {
		return err
	}
	if err := q.validateGroupPivotDisjoint(); err != nil {
		return err
	}
	if err := q.validateWhereHasNoAggregation(); err != nil {
		return err
	}
	if err := q.validateSortReferencesSelect(); err != nil {
		return err
	}
	if err := q.validateLabelsFormatsKeys(); err != nil {
		return err
	}
	return nil
}

// validateColumnReferences implements rules 1 and 2: every column
// expression reachable from any clause must resolve against table (rule
// 1), and ColumnExpr.ValidateColumn already recurses to check every
// scalar/aggregation subexpression's own arity and argument types
// (rule 2).
func (q *Query) validateColumnReferences(table *DataTable) error {
	exprs := append([]ColumnExpr{}, q.Selection...)
	exprs = append(exprs, q.Group...)
	exprs = append(exprs, q.Pivot...)
	for _, s := range q.Sort {
		exprs = append(exprs, s.Column)
	}
	for _, e := range exprs {
		if err := e.ValidateColumn(table); err != nil {
			return err
		}
	}
	for _, e := range q.Where.allExprs() {
		if err := e.ValidateColumn(table); err != nil {
			return err
		}
	}
	return nil
}

func containsExpr(list []ColumnExpr, e ColumnExpr) bool {
	for _, c := range list {
		if c.Equal(e) {
			return true
		}
	}
	return false
}

// validateGroupPivotHasNoAggregation enforces the Group/Pivot AST
// invariant: neither clause may contain an aggregation column.
func (q *Query) validateGroupPivotHasNoAggregation() error {
	for _, g := range q.Group {
		if aggs := g.AllAggregationColumns(); len(aggs) > 0 {
			return qerrors.InvalidQueryf("GROUP", g.ID(), "GROUP column %q may not contain an aggregation", g.ToQueryString())
		}
	}
	for _, p := range q.Pivot {
		if aggs := p.AllAggregationColumns(); len(aggs) > 0 {
			return qerrors.InvalidQueryf("PIVOT", p.ID(), "PIVOT column %q may not contain an aggregation", p.ToQueryString())
		}
	}
	return nil
}

// validateGroupPivotSelectConsistency implements rule 3.
func (q *Query) validateGroupPivotSelectConsistency() error {
	if !q.HasGroupOrPivot() {
		return nil
	}
	groupPivot := append([]ColumnExpr{}, q.Group...)
	groupPivot = append(groupPivot, q.Pivot...)

	for _, s := range q.Selection {
		if len(s.AllAggregationColumns()) > 0 {
			continue
		}
		if !containsExpr(groupPivot, s) {
			return qerrors.InvalidQueryf("SELECT", s.ID(), "non-aggregation SELECT column %q must appear in GROUP or PIVOT", s.ToQueryString())
		}
	}
	for _, gp := range groupPivot {
		if !containsExpr(q.Selection, gp) {
			return qerrors.InvalidQueryf("GROUP/PIVOT", gp.ID(), "GROUP/PIVOT column %q must appear in SELECT", gp.ToQueryString())
		}
	}
	return nil
}

// validateAggregationSelectConsistency implements rule 4.
func (q *Query) validateAggregationSelectConsistency() error {
	if !q.HasAggregation() {
		return nil
	}
	groupPivot := append([]ColumnExpr{}, q.Group...)
	groupPivot = append(groupPivot, q.Pivot...)

	for _, s := range q.Selection {
		if len(s.AllAggregationColumns()) > 0 {
			continue
		}
		if !containsExpr(groupPivot, s) {
			return qerrors.InvalidQueryf("SELECT", s.ID(), "with an aggregation present, SELECT column %q must be an aggregation or appear in GROUP/PIVOT", s.ToQueryString())
		}
	}
	return nil
}

// validateGroupPivotDisjoint implements rule 5.
func (q *Query) validateGroupPivotDisjoint() error {
	for _, g := range q.Group {
		for _, p := range q.Pivot {
			if g.Equal(p) {
				return qerrors.InvalidQueryf("GROUP/PIVOT", g.ID(), "column %q cannot appear in both GROUP and PIVOT", g.ToQueryString())
			}
		}
	}
	return nil
}

// validateWhereHasNoAggregation implements rule 6.
func (q *Query) validateWhereHasNoAggregation() error {
	if aggs := q.Where.AggregationColumns(); len(aggs) > 0 {
		return qerrors.InvalidQueryf("WHERE", aggs[0].ID(), "WHERE may not reference an aggregation")
	}
	return nil
}

// validateSortReferencesSelect implements rule 7.
func (q *Query) validateSortReferencesSelect() error {
	if len(q.Sort) == 0 {
		return nil
	}
	restricted := q.HasGroupOrPivot() || q.HasAggregation()
	for _, s := range q.Sort {
		if containsExpr(q.Selection, s.Column) {
			continue
		}
		if restricted {
			return qerrors.InvalidQueryf("ORDER BY", s.Column.ID(), "ORDER BY column %q not in SELECT is only allowed without GROUP/PIVOT/aggregation", s.Column.ToQueryString())
		}
	}
	return nil
}

// validateLabelsFormatsKeys implements rule 8.
func (q *Query) validateLabelsFormatsKeys() error {
	selectIDs := make(map[string]bool, len(q.Selection))
	for _, s := range q.Selection {
		selectIDs[s.ID()] = true
	}
	for key := range q.Labels {
		if !selectIDs[key] {
			return qerrors.InvalidQueryf("LABELS", key, "LABEL key %q must appear in SELECT", key)
		}
	}
	for key := range q.Formats {
		if !selectIDs[key] {
			return qerrors.InvalidQueryf("FORMATS", key, "FORMAT key %q must appear in SELECT", key)
		}
	}
	return nil
}
