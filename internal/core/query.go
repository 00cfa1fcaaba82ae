package core

// SortDirection is ASC or DESC for one Sort clause entry.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// SortSpec pairs a column expression with its sort direction.
type SortSpec struct {
	Column    ColumnExpr
	Direction SortDirection
}

// Option is a boolean execution directive from the OPTIONS clause.
type Option int

const (
	// NoValues strips row data from the result, leaving only the schema.
	NoValues Option = iota
	// NoFormat omits formatted display strings from result cells.
	NoFormat
)

// Query aggregates every clause of a request against a DataTable: the
// projected columns, the row filter, grouping/pivoting, sorting,
// pagination, display overrides, and execution options.
type Query struct {
	Selection []ColumnExpr
	Where     Filter
	Group     []ColumnExpr
	Pivot     []ColumnExpr
	Sort      []SortSpec
	Skip      int
	Limit     int // 0 means unlimited
	Labels    map[string]string
	Formats   map[string]string
	Options   map[Option]bool
}

// NewQuery returns a Query with an AlwaysTrue WHERE clause, no limit, and
// empty clauses otherwise.
func NewQuery() *Query {
	return &Query{
		Where:   AlwaysTrue(),
		Labels:  map[string]string{},
		Formats: map[string]string{},
		Options: map[Option]bool{},
	}
}

// HasOption reports whether opt was set on the query.
func (q *Query) HasOption(opt Option) bool { return q.Options[opt] }

// HasGroupOrPivot reports whether the query groups or pivots its rows.
func (q *Query) HasGroupOrPivot() bool { return len(q.Group) > 0 || len(q.Pivot) > 0 }

// HasAggregation reports whether any SELECT column is (or contains) an
// aggregation.
func (q *Query) HasAggregation() bool {
	for _, s := range q.Selection {
		if len(s.AllAggregationColumns()) > 0 {
			return true
		}
	}
	return false
}

// Labels and Formats use ColumnExpr.ID() as the map key, matching the
// query-language surface where LABEL/FORMAT clauses name columns by their
// rendered id (e.g. "sum-amount").
