// Package format instantiates a cell formatter from a default or
// per-column pattern: SimpleDateFormat-style tokens for DATE/TIMEOFDAY/
// DATETIME, a DecimalFormat-style pattern for NUMBER, and a
// "TRUE_TOKEN:FALSE_TOKEN" pair for BOOLEAN. Engine result rendering (the
// LABELS/FORMATS pipeline stage) uses it to fill each cell's formatted
// text; the engine itself never formats values directly.
package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tabularql/tabularql/internal/qerrors"
	"github.com/tabularql/tabularql/internal/value"
)

// Formatter renders a Value to display text under one pattern. Format
// does not check for null; Apply renders a null Value as an empty string
// without calling Format.
type Formatter interface {
	Format(v value.Value) (string, error)
}

// New returns the Formatter appropriate for typ and pattern. An empty
// pattern selects the type's default rendering.
func New(typ value.Type, pattern string) (Formatter, error) {
	switch typ {
	case value.TypeNumber:
		return numberFormatter{pattern: pattern}, nil
	case value.TypeBoolean:
		return booleanFormatter{pattern: pattern}, nil
	case value.TypeDate, value.TypeTimeOfDay, value.TypeDateTime:
		return calendarFormatter{pattern: pattern, typ: typ}, nil
	case value.TypeText:
		return textFormatter{}, nil
	default:
		return nil, qerrors.Internalf("no formatter for value type %v", typ)
	}
}

// Apply is a convenience wrapper: it builds a Formatter for typ/pattern
// and renders v, returning "" for null without error.
func Apply(typ value.Type, pattern string, v value.Value) (string, error) {
	if v.IsNull() {
		return "", nil
	}
	f, err := New(typ, pattern)
	if err != nil {
		return "", err
	}
	return f.Format(v)
}

type textFormatter struct{}

func (textFormatter) Format(v value.Value) (string, error) { return v.Text(), nil }

// numberFormatter interprets a small DecimalFormat-style subset: a literal
// "." introducing the fractional part, and "," as a thousands grouping
// marker in the integer part. Every character after the "." is one fixed
// decimal place; "#" and "0" are not distinguished there, and the integer
// part is never zero-padded. An empty pattern renders with
// strconv.FormatFloat's shortest round-trip representation.
type numberFormatter struct {
	pattern string
}

func (f numberFormatter) Format(v value.Value) (string, error) {
	n := v.Number()
	if f.pattern == "" {
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	}
	intPart, fracPart, hasFrac := strings.Cut(f.pattern, ".")
	group := strings.Contains(intPart, ",")
	decimals := 0
	if hasFrac {
		decimals = len(fracPart)
	}
	s := strconv.FormatFloat(n, 'f', decimals, 64)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if group {
		whole = groupThousands(whole)
	}
	out := whole
	if hasFrac {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out, nil
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var sb strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		sb.WriteString(digits[:lead])
		if len(digits) > lead {
			sb.WriteByte(',')
		}
	}
	for i := lead; i < len(digits); i += 3 {
		sb.WriteString(digits[i : i+3])
		if i+3 < len(digits) {
			sb.WriteByte(',')
		}
	}
	return sb.String()
}

// booleanFormatter interprets a "TRUE_TOKEN:FALSE_TOKEN" pattern; an
// empty pattern falls back to "true"/"false".
type booleanFormatter struct {
	pattern string
}

func (f booleanFormatter) Format(v value.Value) (string, error) {
	trueTok, falseTok := "true", "false"
	if f.pattern != "" {
		parts := strings.SplitN(f.pattern, ":", 2)
		if len(parts) != 2 {
			return "", qerrors.InvalidQueryf("FORMATS", "", "boolean format pattern %q must be TRUE_TOKEN:FALSE_TOKEN", f.pattern)
		}
		trueTok, falseTok = parts[0], parts[1]
	}
	if v.Boolean() {
		return trueTok, nil
	}
	return falseTok, nil
}

// calendarFormatter interprets a SimpleDateFormat-style token subset:
// yyyy, MM, dd, HH, mm, ss, SSS. An empty pattern falls back to the
// Value's InnerQueryString literal body.
type calendarFormatter struct {
	pattern string
	typ     value.Type
}

func (f calendarFormatter) Format(v value.Value) (string, error) {
	if f.pattern == "" {
		return defaultCalendarText(v), nil
	}
	var d value.DateParts
	var tm value.TimeParts
	switch f.typ {
	case value.TypeDate:
		d = v.Date()
	case value.TypeTimeOfDay:
		tm = v.TimeOfDay()
	case value.TypeDateTime:
		d, tm = v.Date(), v.TimeOfDay()
	}
	replacer := strings.NewReplacer(
		"yyyy", fmt.Sprintf("%04d", d.Year),
		"MM", fmt.Sprintf("%02d", d.Month+1),
		"dd", fmt.Sprintf("%02d", d.Day),
		"HH", fmt.Sprintf("%02d", tm.Hour),
		"mm", fmt.Sprintf("%02d", tm.Minute),
		"ss", fmt.Sprintf("%02d", tm.Second),
		"SSS", fmt.Sprintf("%03d", tm.Millisecond),
	)
	return replacer.Replace(f.pattern), nil
}

func defaultCalendarText(v value.Value) string {
	s := v.InnerQueryString()
	// Strip the "date '...'" / "timeofday '...'" / "datetime '...'"
	// envelope, leaving the bare literal body for display.
	if i := strings.IndexByte(s, '\''); i >= 0 {
		return strings.Trim(s[i:], "'")
	}
	return s
}
