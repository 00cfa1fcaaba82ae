package core

import (
	"fmt"
	"sort"

	"github.com/tabularql/tabularql/internal/qerrors"
	"github.com/tabularql/tabularql/internal/value"
)

// ColumnDescription describes one column of a DataTable: its unique id,
// its Value type, a human label, optional custom properties, and an
// optional default formatting pattern (interpreted per §6 of the engine
// spec: SimpleDateFormat-style for dates, DecimalFormat-style for numbers,
// "TRUE_TOKEN:FALSE_TOKEN" for booleans).
type ColumnDescription struct {
	ID             string
	Type           value.Type
	Label          string
	CustomProps    map[string]string
	DefaultPattern string
}

func (c ColumnDescription) clone() ColumnDescription {
	cp := c
	if c.CustomProps != nil {
		cp.CustomProps = make(map[string]string, len(c.CustomProps))
		for k, v := range c.CustomProps {
			cp.CustomProps[k] = v
		}
	}
	return cp
}

// TableCell is a Value plus an optional pre-formatted display string and
// optional custom properties. A cell's Value type must always equal its
// owning column's type.
type TableCell struct {
	Value         value.Value
	FormattedText string
	HasFormatted  bool
	CustomProps   map[string]string
}

// NewCell wraps v with no formatted text.
func NewCell(v value.Value) TableCell { return TableCell{Value: v} }

func (c TableCell) clone() TableCell {
	cp := c
	if c.CustomProps != nil {
		cp.CustomProps = make(map[string]string, len(c.CustomProps))
		for k, v := range c.CustomProps {
			cp.CustomProps[k] = v
		}
	}
	return cp
}

// TableRow is an ordered sequence of cells, one per column, in column
// order.
type TableRow struct {
	Cells []TableCell
}

func (r TableRow) clone() TableRow {
	cells := make([]TableCell, len(r.Cells))
	for i, c := range r.Cells {
		cells[i] = c.clone()
	}
	return TableRow{Cells: cells}
}

// WarningKind tags a non-fatal deviation recorded on a result DataTable
// instead of being raised as an error.
type WarningKind int

const (
	// DataTruncated marks that LIMIT (possibly combined with OFFSET)
	// dropped rows that would otherwise have been present in the result.
	DataTruncated WarningKind = iota
	// FormatFallback marks that a formatting pattern could not be applied
	// to a value and a default rendering was used instead.
	FormatFallback
)

func (k WarningKind) String() string {
	switch k {
	case DataTruncated:
		return "DATA_TRUNCATED"
	case FormatFallback:
		return "FORMAT_FALLBACK"
	default:
		return "UNKNOWN_WARNING"
	}
}

// Warning is a non-fatal note attached to a result DataTable.
type Warning struct {
	Kind    WarningKind
	Message string
}

// DataTable is the engine's universal I/O unit: an ordered list of columns,
// an ordered list of rows, a list of warnings, a bag of custom properties,
// and the locale under which the table should be interpreted.
type DataTable struct {
	Columns     []ColumnDescription
	Rows        []TableRow
	Warnings    []Warning
	CustomProps map[string]string
	Locale      string

	columnIndex map[string]int
}

// New returns an empty DataTable with no columns.
func New() *DataTable {
	return &DataTable{columnIndex: map[string]int{}}
}

func (t *DataTable) ensureIndex() {
	if t.columnIndex == nil {
		t.columnIndex = make(map[string]int, len(t.Columns))
		for i, c := range t.Columns {
			t.columnIndex[c.ID] = i
		}
	}
}

// NumberOfColumns returns the number of columns.
func (t *DataTable) NumberOfColumns() int { return len(t.Columns) }

// NumberOfRows returns the number of rows.
func (t *DataTable) NumberOfRows() int { return len(t.Rows) }

// ColumnIndex returns the index of the column with the given id, or -1 if
// none exists.
func (t *DataTable) ColumnIndex(id string) int {
	t.ensureIndex()
	if i, ok := t.columnIndex[id]; ok {
		return i
	}
	return -1
}

// Column returns the ColumnDescription at index i.
func (t *DataTable) Column(i int) ColumnDescription { return t.Columns[i] }

// AddColumn appends a new column. It fails if the id collides with an
// existing column. Per the DataTable invariant, adding a column to a
// non-empty table appends a null cell of the new column's type to every
// existing row.
func (t *DataTable) AddColumn(col ColumnDescription) error {
	t.ensureIndex()
	if _, exists := t.columnIndex[col.ID]; exists {
		return qerrors.InvalidQueryf("", col.ID, "duplicate column id %q", col.ID)
	}
	t.columnIndex[col.ID] = len(t.Columns)
	t.Columns = append(t.Columns, col)
	for i := range t.Rows {
		t.Rows[i].Cells = append(t.Rows[i].Cells, NewCell(value.NullOf(col.Type)))
	}
	return nil
}

// AddRow appends row. It fails with a TYPE_MISMATCH error if any supplied
// cell's type differs from its column's type. If row has fewer cells than
// columns, it is padded with null cells of the corresponding column types.
func (t *DataTable) AddRow(row TableRow) error {
	if len(row.Cells) > len(t.Columns) {
		return qerrors.InvalidQueryf("", "", "row has %d cells, table has %d columns", len(row.Cells), len(t.Columns))
	}
	for i, cell := range row.Cells {
		if cell.Value.Type() != t.Columns[i].Type {
			return qerrors.TypeMismatchf(t.Columns[i].ID, "cell type %s does not match column type %s", cell.Value.Type(), t.Columns[i].Type)
		}
	}
	padded := make([]TableCell, len(t.Columns))
	copy(padded, row.Cells)
	for i := len(row.Cells); i < len(t.Columns); i++ {
		padded[i] = NewCell(value.NullOf(t.Columns[i].Type))
	}
	t.Rows = append(t.Rows, TableRow{Cells: padded})
	return nil
}

// SetCell replaces the cell at (row, col). It fails if the new cell's type
// differs from the existing cell's type.
func (t *DataTable) SetCell(row, col int, cell TableCell) error {
	existing := t.Rows[row].Cells[col]
	if existing.Value.Type() != cell.Value.Type() {
		return qerrors.TypeMismatchf(t.Columns[col].ID, "cannot replace %s cell with %s value", existing.Value.Type(), cell.Value.Type())
	}
	t.Rows[row].Cells[col] = cell
	return nil
}

// AddWarning appends a non-fatal warning to the table.
func (t *DataTable) AddWarning(w Warning) {
	t.Warnings = append(t.Warnings, w)
}

// Clone performs a deep copy of t.
func (t *DataTable) Clone() *DataTable {
	cp := &DataTable{
		Locale:      t.Locale,
		Columns:     make([]ColumnDescription, len(t.Columns)),
		Rows:        make([]TableRow, len(t.Rows)),
		Warnings:    append([]Warning(nil), t.Warnings...),
		columnIndex: make(map[string]int, len(t.Columns)),
	}
	for i, c := range t.Columns {
		cp.Columns[i] = c.clone()
		cp.columnIndex[c.ID] = i
	}
	for i, r := range t.Rows {
		cp.Rows[i] = r.clone()
	}
	if t.CustomProps != nil {
		cp.CustomProps = make(map[string]string, len(t.CustomProps))
		for k, v := range t.CustomProps {
			cp.CustomProps[k] = v
		}
	}
	return cp
}

// GetColumnDistinctValues returns the distinct cell Values of column i in
// ascending order under the type's natural ordering. The null value, if
// present among the column's cells, sorts first (it is the smallest value
// of any type per the engine's ordering rule) — this resolves the spec's
// open question about null placement in distinct-value lists.
func (t *DataTable) GetColumnDistinctValues(i int) ([]value.Value, error) {
	seen := make(map[uint64][]value.Value)
	var order []uint64
	for _, row := range t.Rows {
		v := row.Cells[i].Value
		h := v.Hash()
		bucket, ok := seen[h]
		if !ok {
			order = append(order, h)
			seen[h] = []value.Value{v}
			continue
		}
		dup := false
		for _, existing := range bucket {
			if existing.Equal(v) {
				dup = true
				break
			}
		}
		if !dup {
			seen[h] = append(bucket, v)
		}
	}
	var out []value.Value
	for _, h := range order {
		out = append(out, seen[h]...)
	}
	var sortErr error
	sort.Slice(out, func(a, b int) bool {
		c, err := out[a].CompareTo(out[b], nil)
		if err != nil {
			sortErr = err
		}
		return c < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return out, nil
}

// CellComparator compares two TableCells for GetColumnDistinctCellsSorted.
type CellComparator func(a, b TableCell) int

// GetColumnDistinctCellsSorted deduplicates the cells of column i using cmp
// and returns them sorted ascending by cmp.
func (t *DataTable) GetColumnDistinctCellsSorted(i int, cmp CellComparator) []TableCell {
	var out []TableCell
	for _, row := range t.Rows {
		cell := row.Cells[i]
		dup := false
		for _, existing := range out {
			if cmp(existing, cell) == 0 {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, cell)
		}
	}
	sort.Slice(out, func(a, b int) bool { return cmp(out[a], out[b]) < 0 })
	return out
}

// String renders a compact debugging view of the table; not used for
// production output (rendering is an external concern, see spec §1).
func (t *DataTable) String() string {
	s := fmt.Sprintf("DataTable{columns=%d, rows=%d}", len(t.Columns), len(t.Rows))
	return s
}
