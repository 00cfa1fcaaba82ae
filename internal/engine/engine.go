// Package engine runs a validated Query against a DataTable through the
// seven fixed pipeline stages: WHERE, GROUP+PIVOT+AGGREGATE, SELECT,
// SORT, SKIP/LIMIT, LABELS/FORMATS, and OPTIONS.
package engine

import (
	"sort"

	"github.com/tabularql/tabularql/internal/aggregate"
	"github.com/tabularql/tabularql/internal/core"
	"github.com/tabularql/tabularql/internal/format"
	"github.com/tabularql/tabularql/internal/value"
)

// Execute validates query against table and runs the pipeline, returning
// the result DataTable. col, if non-nil, drives locale-sensitive TEXT
// ordering in ORDER BY; groups keep the order in which they are first seen
// and pivot tuples are ordered by codepoint. caps, if
// non-nil, gates PIVOT and MATCHES behind the engine's declared
// capabilities; a nil caps allows everything.
func Execute(query *core.Query, table *core.DataTable, col value.Collator, caps core.CapabilityChecker) (*core.DataTable, error) {
	if err := query.Validate(table); err != nil {
		return nil, err
	}
	if err := query.ValidateCapabilities(caps); err != nil {
		return nil, err
	}

	filtered, err := applyWhere(query, table)
	if err != nil {
		return nil, err
	}

	aggCols := collectAggregationColumns(query.Selection)
	grouped, groupedLookup, err := applyGroupPivotAggregate(query, filtered, aggCols)
	if err != nil {
		return nil, err
	}

	selected, err := applySelect(query, filtered, grouped, groupedLookup, aggCols)
	if err != nil {
		return nil, err
	}

	if err := applySort(query, filtered, selected, col); err != nil {
		return nil, err
	}

	applySkipLimit(query, selected)

	if err := applyLabelsFormats(query, selected); err != nil {
		return nil, err
	}

	applyOptions(query, selected)

	return selected, nil
}

// applyWhere is pipeline stage 1: keep rows for which the filter matches,
// preserving order.
func applyWhere(query *core.Query, table *core.DataTable) (*core.DataTable, error) {
	out := core.New()
	for _, c := range table.Columns {
		if err := out.AddColumn(c); err != nil {
			return nil, err
		}
	}
	lookup := core.DataTableColumnLookup{Table: table}
	for i, row := range table.Rows {
		ok, err := query.Where.IsMatch(table, i, lookup)
		if err != nil {
			return nil, err
		}
		if ok {
			if err := out.AddRow(row); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func collectAggregationColumns(selection []core.ColumnExpr) []core.ColumnExpr {
	var out []core.ColumnExpr
	for _, s := range selection {
		for _, a := range s.AllAggregationColumns() {
			if !containsExprLocal(out, a) {
				out = append(out, a)
			}
		}
	}
	return out
}

func containsExprLocal(list []core.ColumnExpr, e core.ColumnExpr) bool {
	for _, c := range list {
		if c.Equal(e) {
			return true
		}
	}
	return false
}

// applyGroupPivotAggregate is pipeline stage 2. It returns (nil, nil, nil)
// when the stage is a no-op (no GROUP/PIVOT and no aggregations).
func applyGroupPivotAggregate(query *core.Query, filtered *core.DataTable, aggCols []core.ColumnExpr) (*core.DataTable, *core.GenericColumnLookup, error) {
	if !query.HasGroupOrPivot() && len(aggCols) == 0 {
		return nil, nil, nil
	}

	tree, err := aggregate.NewAggregationTree(query.Group, query.Pivot, aggCols, filtered)
	if err != nil {
		return nil, nil, err
	}

	lookup := core.DataTableColumnLookup{Table: filtered}
	for i := range filtered.Rows {
		groupVals, err := evalAll(query.Group, filtered, i, lookup)
		if err != nil {
			return nil, nil, err
		}
		pivotVals, err := evalAll(query.Pivot, filtered, i, lookup)
		if err != nil {
			return nil, nil, err
		}
		aggInputs := make(map[string]value.Value, len(aggCols))
		for _, a := range aggCols {
			v, err := a.Inner().Eval(filtered, i, lookup)
			if err != nil {
				return nil, nil, err
			}
			aggInputs[a.ID()] = v
		}
		if err := tree.Ingest(groupVals, pivotVals, aggInputs); err != nil {
			return nil, nil, err
		}
	}
	if len(query.Group) == 0 && len(aggCols) > 0 {
		tree.EnsureRootGroup()
	}

	matCols := tree.Columns()
	out := core.New()
	for _, mc := range matCols {
		if err := out.AddColumn(core.ColumnDescription{ID: mc.ID, Type: mc.Type, Label: mc.ID}); err != nil {
			return nil, nil, err
		}
	}
	matRows, err := tree.Rows()
	if err != nil {
		return nil, nil, err
	}
	genLookup := core.NewGenericColumnLookup()
	for i, g := range query.Group {
		genLookup.Set(g, i)
	}
	for _, row := range matRows {
		cells := make([]core.TableCell, 0, len(matCols))
		for i := range query.Group {
			cells = append(cells, core.NewCell(row.GroupValues[i]))
		}
		for _, v := range row.AggValues {
			cells = append(cells, core.NewCell(v))
		}
		if err := out.AddRow(core.TableRow{Cells: cells}); err != nil {
			return nil, nil, err
		}
	}
	for i, mc := range matCols {
		if !mc.IsGroup && len(mc.PivotTuple) == 0 {
			genLookup.Set(mc.AggColumn, i)
		}
	}
	return out, genLookup, nil
}

func evalAll(exprs []core.ColumnExpr, table *core.DataTable, row int, lookup core.ColumnLookup) ([]value.Value, error) {
	out := make([]value.Value, len(exprs))
	for i, e := range exprs {
		v, err := e.Eval(table, row, lookup)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// applySelect is pipeline stage 3: project SELECT columns in order. When
// stage 2 ran, aggregation/group subexpressions resolve against the
// materialized table via groupedLookup; ScalarFunctionColumns not
// resolvable there (PIVOT'd aggregations) are looked up by their
// materialized column id directly.
func applySelect(query *core.Query, filtered, grouped *core.DataTable, groupedLookup *core.GenericColumnLookup, aggCols []core.ColumnExpr) (*core.DataTable, error) {
	out := core.New()
	sourceTable := filtered
	if grouped != nil {
		sourceTable = grouped
	}
	for _, s := range query.Selection {
		t, err := selectValueType(s, filtered, grouped)
		if err != nil {
			return nil, err
		}
		label := s.ID()
		var pattern string
		if s.IsSimple() {
			if i := filtered.ColumnIndex(s.SimpleID()); i >= 0 {
				src := filtered.Column(i)
				label = src.Label
				if label == "" {
					label = s.SimpleID()
				}
				pattern = src.DefaultPattern
			}
		}
		if err := out.AddColumn(core.ColumnDescription{ID: s.ID(), Type: t, Label: label, DefaultPattern: pattern}); err != nil {
			return nil, err
		}
	}

	rowCount := sourceTable.NumberOfRows()
	for row := 0; row < rowCount; row++ {
		cells := make([]core.TableCell, 0, len(query.Selection))
		for _, s := range query.Selection {
			v, err := evalSelectExpr(s, filtered, grouped, groupedLookup, row)
			if err != nil {
				return nil, err
			}
			cells = append(cells, core.NewCell(v))
		}
		if err := out.AddRow(core.TableRow{Cells: cells}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func selectValueType(s core.ColumnExpr, filtered, grouped *core.DataTable) (value.Type, error) {
	if grouped != nil {
		if i := grouped.ColumnIndex(s.ID()); i >= 0 {
			return grouped.Column(i).Type, nil
		}
		return s.ValueType(filtered)
	}
	return s.ValueType(filtered)
}

func evalSelectExpr(s core.ColumnExpr, filtered, grouped *core.DataTable, groupedLookup *core.GenericColumnLookup, row int) (value.Value, error) {
	if grouped == nil {
		return s.Eval(filtered, row, core.DataTableColumnLookup{Table: filtered})
	}
	if i := grouped.ColumnIndex(s.ID()); i >= 0 {
		return grouped.Rows[row].Cells[i].Value, nil
	}
	return s.Eval(grouped, row, groupedLookup)
}

// applySort is pipeline stage 4: stable sort by the ORDER BY list. A sort
// column already present in selected reads from there; otherwise (only
// possible without GROUP/PIVOT/aggregation, per validation rule 7) it is
// re-evaluated against the pre-aggregation filtered table at the same row
// index, since rows are still 1:1 with it in that case.
func applySort(query *core.Query, filtered, selected *core.DataTable, col value.Collator) error {
	if len(query.Sort) == 0 {
		return nil
	}
	n := selected.NumberOfRows()
	keys := make([][]value.Value, n)
	for i := 0; i < n; i++ {
		row := make([]value.Value, len(query.Sort))
		for k, s := range query.Sort {
			v, err := sortValueAt(s.Column, filtered, selected, i)
			if err != nil {
				return err
			}
			row[k] = v
		}
		keys[i] = row
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	var sortErr error
	sort.SliceStable(indices, func(a, b int) bool {
		if sortErr != nil {
			return false
		}
		for k, s := range query.Sort {
			c, err := keys[indices[a]][k].CompareTo(keys[indices[b]][k], col)
			if err != nil {
				sortErr = err
				return false
			}
			if c == 0 {
				continue
			}
			if s.Direction == core.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	if sortErr != nil {
		return sortErr
	}

	newRows := make([]core.TableRow, n)
	for i, idx := range indices {
		newRows[i] = selected.Rows[idx]
	}
	selected.Rows = newRows
	return nil
}

func sortValueAt(col core.ColumnExpr, filtered, selected *core.DataTable, row int) (value.Value, error) {
	if i := selected.ColumnIndex(col.ID()); i >= 0 {
		return selected.Rows[row].Cells[i].Value, nil
	}
	return col.Eval(filtered, row, core.DataTableColumnLookup{Table: filtered})
}

// applySkipLimit is pipeline stage 5.
func applySkipLimit(query *core.Query, selected *core.DataTable) {
	total := len(selected.Rows)
	skip := query.Skip
	if skip < 0 {
		skip = 0
	}
	if skip > total {
		skip = total
	}
	rows := selected.Rows[skip:]
	truncated := false
	if query.Limit > 0 && len(rows) > query.Limit {
		rows = rows[:query.Limit]
		truncated = true
	}
	selected.Rows = rows
	if truncated {
		selected.AddWarning(core.Warning{Kind: core.DataTruncated, Message: "result was truncated by LIMIT"})
	}
}

// applyLabelsFormats is pipeline stage 6: overwrite labels for matching
// SELECT columns, and fill every matching column's cells with formatted
// text per its pattern.
func applyLabelsFormats(query *core.Query, selected *core.DataTable) error {
	for i, c := range selected.Columns {
		if label, ok := query.Labels[c.ID]; ok {
			selected.Columns[i].Label = label
		}
	}
	for i, c := range selected.Columns {
		pattern, ok := query.Formats[c.ID]
		if !ok {
			pattern = c.DefaultPattern
			if pattern == "" {
				continue
			}
		}
		for r := range selected.Rows {
			cell := selected.Rows[r].Cells[i]
			text, err := format.Apply(c.Type, pattern, cell.Value)
			if err != nil {
				return err
			}
			cell.FormattedText = text
			cell.HasFormatted = true
			selected.Rows[r].Cells[i] = cell
		}
	}
	return nil
}

// applyOptions is pipeline stage 7.
func applyOptions(query *core.Query, selected *core.DataTable) {
	if query.HasOption(core.NoFormat) {
		for r := range selected.Rows {
			for c := range selected.Rows[r].Cells {
				selected.Rows[r].Cells[c].FormattedText = ""
				selected.Rows[r].Cells[c].HasFormatted = false
			}
		}
	}
	if query.HasOption(core.NoValues) {
		selected.Rows = nil
	}
}
