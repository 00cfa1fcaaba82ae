package queryparser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tabularql/tabularql/internal/core"
	"github.com/tabularql/tabularql/internal/value"
)

var aggByName = map[string]core.AggregationType{
	"sum":   core.AggSum,
	"count": core.AggCount,
	"min":   core.AggMin,
	"max":   core.AggMax,
	"avg":   core.AggAvg,
}

// clauseKeywords are reserved words that terminate an expression or filter
// list when encountered outside of parentheses.
var clauseKeywords = map[string]bool{
	"where":   true,
	"group":   true,
	"pivot":   true,
	"order":   true,
	"limit":   true,
	"offset":  true,
	"label":   true,
	"format":  true,
	"options": true,
}

type parser struct {
	toks []token
	pos  int
}

// ParseColumnExpr parses a single column expression, e.g. "x", "sum(x)",
// "year(x)". Used mainly to round-trip ColumnExpr.ToQueryString output.
func ParseColumnExpr(s string) (core.ColumnExpr, error) {
	p, err := newParser(s)
	if err != nil {
		return core.ColumnExpr{}, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return core.ColumnExpr{}, err
	}
	if !p.atEOF() {
		return core.ColumnExpr{}, fmt.Errorf("queryparser: unexpected trailing input after expression")
	}
	return e, nil
}

// ParseFilter parses a WHERE-clause predicate, e.g. `` `age`>=30 AND NOT
// (`x` IS NULL) ``. Used mainly to round-trip Filter.ToQueryString output.
func ParseFilter(s string) (core.Filter, error) {
	p, err := newParser(s)
	if err != nil {
		return core.Filter{}, err
	}
	f, err := p.parseOrFilter()
	if err != nil {
		return core.Filter{}, err
	}
	if !p.atEOF() {
		return core.Filter{}, fmt.Errorf("queryparser: unexpected trailing input after filter")
	}
	return f, nil
}

// ParseQuery parses a full query string into a *core.Query. SELECT is
// required and must be the first clause; the clauses after it may appear
// in any order.
func ParseQuery(s string) (*core.Query, error) {
	p, err := newParser(s)
	if err != nil {
		return nil, err
	}
	q := core.NewQuery()

	if !p.consumeKeyword("select") {
		return nil, p.errorf("expected SELECT")
	}
	selection, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	q.Selection = selection

	seen := map[string]bool{}
	for !p.atEOF() {
		kw, ok := p.peekKeyword()
		if !ok {
			return nil, p.errorf("expected a clause keyword")
		}
		if seen[kw] {
			return nil, p.errorf("duplicate %s clause", strings.ToUpper(kw))
		}
		seen[kw] = true

		switch kw {
		case "where":
			p.advance()
			f, err := p.parseOrFilter()
			if err != nil {
				return nil, err
			}
			q.Where = f
		case "group":
			p.advance()
			if !p.consumeKeyword("by") {
				return nil, p.errorf("expected BY after GROUP")
			}
			exprs, err := p.parseExprList()
			if err != nil {
				return nil, err
			}
			q.Group = exprs
		case "pivot":
			p.advance()
			exprs, err := p.parseExprList()
			if err != nil {
				return nil, err
			}
			q.Pivot = exprs
		case "order":
			p.advance()
			if !p.consumeKeyword("by") {
				return nil, p.errorf("expected BY after ORDER")
			}
			sorts, err := p.parseSortList()
			if err != nil {
				return nil, err
			}
			q.Sort = sorts
		case "limit":
			p.advance()
			n, err := p.parseIntLiteral()
			if err != nil {
				return nil, err
			}
			q.Limit = n
		case "offset":
			p.advance()
			n, err := p.parseIntLiteral()
			if err != nil {
				return nil, err
			}
			q.Skip = n
		case "label":
			p.advance()
			if err := p.parseLabelOrFormatList(q.Labels); err != nil {
				return nil, err
			}
		case "format":
			p.advance()
			if err := p.parseLabelOrFormatList(q.Formats); err != nil {
				return nil, err
			}
		case "options":
			p.advance()
			if err := p.parseOptionsList(q); err != nil {
				return nil, err
			}
		default:
			return nil, p.errorf("unknown clause %q", kw)
		}
	}
	return q, nil
}

func newParser(s string) (*parser, error) {
	toks, err := newLexer(s).tokens()
	if err != nil {
		return nil, err
	}
	return &parser{toks: toks}, nil
}

func (p *parser) cur() token    { return p.toks[p.pos] }
func (p *parser) atEOF() bool   { return p.cur().kind == tokEOF }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("queryparser: %s (at token %d, %q)", fmt.Sprintf(format, args...), p.pos, p.cur().text)
}

func (p *parser) isIdent(word string) bool {
	return p.cur().kind == tokIdent && strings.EqualFold(p.cur().text, word)
}

// peekKeyword returns the lowercased current token text and true if it is
// an identifier; clause dispatch uses this. The lexer does not tell
// backtick-quoted identifiers from bare ones, so both are returned.
func (p *parser) peekKeyword() (string, bool) {
	if p.cur().kind != tokIdent {
		return "", false
	}
	return strings.ToLower(p.cur().text), true
}

func (p *parser) consumeKeyword(word string) bool {
	if p.isIdent(word) {
		p.advance()
		return true
	}
	return false
}

// parseExprList parses a comma-separated list of column expressions,
// stopping at EOF or a reserved clause keyword.
func (p *parser) parseExprList() ([]core.ColumnExpr, error) {
	var out []core.ColumnExpr
	for {
		if p.atEOF() {
			break
		}
		if kw, ok := p.peekKeyword(); ok && clauseKeywords[kw] {
			break
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if p.cur().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	if len(out) == 0 {
		return nil, p.errorf("expected at least one expression")
	}
	return out, nil
}

// parseExpr parses one column expression: a bare/backtick identifier, or
// a function call name(args...) that is either an AggregationColumn (for
// the five built-in single-argument aggregate names) or a
// ScalarFunctionColumn otherwise.
func (p *parser) parseExpr() (core.ColumnExpr, error) {
	if p.cur().kind != tokIdent {
		return core.ColumnExpr{}, p.errorf("expected an identifier or function call")
	}
	name := p.advance().text

	if p.cur().kind != tokLParen {
		return core.Simple(name), nil
	}

	p.advance() // consume '('
	var args []core.ColumnExpr
	if p.cur().kind != tokRParen {
		for {
			a, err := p.parseExpr()
			if err != nil {
				return core.ColumnExpr{}, err
			}
			args = append(args, a)
			if p.cur().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
	}
	if p.cur().kind != tokRParen {
		return core.ColumnExpr{}, p.errorf("expected ')'")
	}
	p.advance()

	if aggType, ok := aggByName[strings.ToLower(name)]; ok && len(args) == 1 {
		return core.Aggregation(aggType, args[0]), nil
	}
	return core.ScalarFunction(name, args...), nil
}

func (p *parser) parseSortList() ([]core.SortSpec, error) {
	var out []core.SortSpec
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		dir := core.Ascending
		if p.consumeKeyword("asc") {
			dir = core.Ascending
		} else if p.consumeKeyword("desc") {
			dir = core.Descending
		}
		out = append(out, core.SortSpec{Column: e, Direction: dir})
		if p.cur().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	return out, nil
}

func (p *parser) parseIntLiteral() (int, error) {
	if p.cur().kind != tokNumber {
		return 0, p.errorf("expected a number")
	}
	text := p.advance().text
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, p.errorf("invalid integer %q", text)
	}
	return n, nil
}

// parseLabelOrFormatList parses a comma-separated `col "text"` list into
// dst, keyed by the column's rendered id.
func (p *parser) parseLabelOrFormatList(dst map[string]string) error {
	for {
		e, err := p.parseExpr()
		if err != nil {
			return err
		}
		if p.cur().kind != tokString {
			return p.errorf("expected a quoted string after column %q", e.ID())
		}
		dst[e.ID()] = p.advance().text
		if p.cur().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	return nil
}

func (p *parser) parseOptionsList(q *core.Query) error {
	for {
		if p.cur().kind != tokIdent {
			return p.errorf("expected an OPTIONS flag")
		}
		switch strings.ToLower(p.advance().text) {
		case "no_values":
			q.Options[core.NoValues] = true
		case "no_format":
			q.Options[core.NoFormat] = true
		default:
			return p.errorf("unknown OPTIONS flag")
		}
		if p.cur().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	return nil
}

// parseOrFilter / parseAndFilter / parseNotFilter / parseFilterAtom
// implement the AND/OR/NOT precedence of the WHERE grammar: OR binds
// loosest, NOT tightest.
func (p *parser) parseOrFilter() (core.Filter, error) {
	left, err := p.parseAndFilter()
	if err != nil {
		return core.Filter{}, err
	}
	children := []core.Filter{left}
	for p.consumeKeyword("or") {
		right, err := p.parseAndFilter()
		if err != nil {
			return core.Filter{}, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return core.Or(children...), nil
}

func (p *parser) parseAndFilter() (core.Filter, error) {
	left, err := p.parseNotFilter()
	if err != nil {
		return core.Filter{}, err
	}
	children := []core.Filter{left}
	for p.consumeKeyword("and") {
		right, err := p.parseNotFilter()
		if err != nil {
			return core.Filter{}, err
		}
		children = append(children, right)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return core.And(children...), nil
}

func (p *parser) parseNotFilter() (core.Filter, error) {
	if p.consumeKeyword("not") {
		inner, err := p.parseNotFilter()
		if err != nil {
			return core.Filter{}, err
		}
		return core.Not(inner), nil
	}
	return p.parseFilterAtom()
}

func (p *parser) parseFilterAtom() (core.Filter, error) {
	if p.isIdent("true") {
		p.advance()
		return core.AlwaysTrue(), nil
	}
	if p.cur().kind == tokLParen {
		p.advance()
		f, err := p.parseOrFilter()
		if err != nil {
			return core.Filter{}, err
		}
		if p.cur().kind != tokRParen {
			return core.Filter{}, p.errorf("expected ')'")
		}
		p.advance()
		return f, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (core.Filter, error) {
	left, leftIsCol, leftCol, leftVal, err := p.parseOperand()
	if err != nil {
		return core.Filter{}, err
	}
	_ = left

	if p.isIdent("is") {
		p.advance()
		if !p.consumeKeyword("null") {
			return core.Filter{}, p.errorf("expected NULL after IS")
		}
		if !leftIsCol {
			return core.Filter{}, p.errorf("IS NULL requires a column operand")
		}
		return core.IsNull(leftCol), nil
	}

	op, ok := p.parseComparisonOp()
	if !ok {
		return core.Filter{}, p.errorf("expected a comparison operator")
	}

	_, rightIsCol, rightCol, rightVal, err := p.parseOperand()
	if err != nil {
		return core.Filter{}, err
	}

	switch {
	case leftIsCol && rightIsCol:
		return core.CompareColumns(leftCol, op, rightCol), nil
	case leftIsCol && !rightIsCol:
		return core.Compare(leftCol, op, rightVal), nil
	case !leftIsCol && !rightIsCol:
		return core.CompareValues(leftVal, op, rightVal), nil
	default:
		return core.Filter{}, p.errorf("comparisons with a literal on the left and a column on the right are not supported")
	}
}

func (p *parser) parseComparisonOp() (core.ComparisonOp, bool) {
	switch p.cur().kind {
	case tokEQ:
		p.advance()
		return core.OpEQ, true
	case tokNE:
		p.advance()
		return core.OpNE, true
	case tokLT:
		p.advance()
		return core.OpLT, true
	case tokLE:
		p.advance()
		return core.OpLE, true
	case tokGT:
		p.advance()
		return core.OpGT, true
	case tokGE:
		p.advance()
		return core.OpGE, true
	}
	if p.isIdent("like") {
		p.advance()
		return core.OpLike, true
	}
	if p.isIdent("contains") {
		p.advance()
		return core.OpContains, true
	}
	if p.isIdent("matches") {
		p.advance()
		return core.OpMatches, true
	}
	if p.isIdent("starts") {
		p.advance()
		if !p.consumeKeyword("with") {
			return 0, false
		}
		return core.OpStartsWith, true
	}
	if p.isIdent("ends") {
		p.advance()
		if !p.consumeKeyword("with") {
			return 0, false
		}
		return core.OpEndsWith, true
	}
	return 0, false
}

// parseOperand parses one side of a comparison: either a literal Value or
// a column expression. It returns the raw expr string for diagnostics,
// isCol, and whichever of col/val is populated.
func (p *parser) parseOperand() (raw string, isCol bool, col core.ColumnExpr, val value.Value, err error) {
	switch {
	case p.isIdent("true"):
		p.advance()
		return "true", false, core.ColumnExpr{}, value.NewBoolean(true), nil
	case p.isIdent("false"):
		p.advance()
		return "false", false, core.ColumnExpr{}, value.NewBoolean(false), nil
	case p.isIdent("null"):
		p.advance()
		return "null", false, core.ColumnExpr{}, value.Value{}, fmt.Errorf("queryparser: bare NULL literal is not supported; use IS NULL")
	case p.isIdent("date") && p.peekAhead(1).kind == tokString:
		p.advance()
		s := p.advance().text
		v, perr := parseDateLiteral(s)
		if perr != nil {
			return "", false, core.ColumnExpr{}, value.Value{}, perr
		}
		return "date", false, core.ColumnExpr{}, v, nil
	case p.isIdent("timeofday") && p.peekAhead(1).kind == tokString:
		p.advance()
		s := p.advance().text
		v, perr := parseTimeOfDayLiteral(s)
		if perr != nil {
			return "", false, core.ColumnExpr{}, value.Value{}, perr
		}
		return "timeofday", false, core.ColumnExpr{}, v, nil
	case p.isIdent("datetime") && p.peekAhead(1).kind == tokString:
		p.advance()
		s := p.advance().text
		v, perr := parseDateTimeLiteral(s)
		if perr != nil {
			return "", false, core.ColumnExpr{}, value.Value{}, perr
		}
		return "datetime", false, core.ColumnExpr{}, v, nil
	case p.cur().kind == tokString:
		s := p.advance().text
		return strconv.Quote(s), false, core.ColumnExpr{}, value.NewText(s), nil
	case p.cur().kind == tokNumber:
		s := p.advance().text
		f, perr := strconv.ParseFloat(s, 64)
		if perr != nil {
			return "", false, core.ColumnExpr{}, value.Value{}, p.errorf("invalid number %q", s)
		}
		return s, false, core.ColumnExpr{}, value.NewNumber(f), nil
	default:
		e, perr := p.parseExpr()
		if perr != nil {
			return "", false, core.ColumnExpr{}, value.Value{}, perr
		}
		return e.ToQueryString(), true, e, value.Value{}, nil
	}
}

func (p *parser) peekAhead(n int) token {
	idx := p.pos + n
	if idx >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[idx]
}

func parseDateLiteral(s string) (value.Value, error) {
	var y, m, d int
	if _, err := fmt.Sscanf(s, "%d-%d-%d", &y, &m, &d); err != nil {
		return value.Value{}, fmt.Errorf("queryparser: invalid date literal %q", s)
	}
	return value.NewDate(y, m-1, d)
}

func parseTimeOfDayLiteral(s string) (value.Value, error) {
	h, mi, sec, ms, err := splitClock(s)
	if err != nil {
		return value.Value{}, err
	}
	return value.NewTimeOfDay(h, mi, sec, ms)
}

func parseDateTimeLiteral(s string) (value.Value, error) {
	parts := strings.SplitN(s, " ", 2)
	if len(parts) != 2 {
		return value.Value{}, fmt.Errorf("queryparser: invalid datetime literal %q", s)
	}
	var y, m, d int
	if _, err := fmt.Sscanf(parts[0], "%d-%d-%d", &y, &m, &d); err != nil {
		return value.Value{}, fmt.Errorf("queryparser: invalid datetime literal %q", s)
	}
	h, mi, sec, ms, err := splitClock(parts[1])
	if err != nil {
		return value.Value{}, err
	}
	return value.NewDateTime(y, m-1, d, h, mi, sec, ms)
}

func splitClock(s string) (hour, minute, second, millis int, err error) {
	main := s
	if i := strings.IndexByte(s, '.'); i >= 0 {
		main = s[:i]
		fracStr := s[i+1:]
		frac, perr := strconv.Atoi(fracStr)
		if perr != nil {
			return 0, 0, 0, 0, fmt.Errorf("queryparser: invalid fractional seconds %q", fracStr)
		}
		millis = frac
	}
	if _, err := fmt.Sscanf(main, "%d:%d:%d", &hour, &minute, &second); err != nil {
		return 0, 0, 0, 0, fmt.Errorf("queryparser: invalid time literal %q", s)
	}
	return hour, minute, second, millis, nil
}
