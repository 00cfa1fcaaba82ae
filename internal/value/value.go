// Package value implements the query engine's typed, possibly-null Value
// variant (six types plus null) that every DataTable cell and column
// expression ultimately evaluates to.
package value

import (
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/collate"

	"github.com/tabularql/tabularql/internal/qerrors"
)

// Type tags the six Value variants. A Value never changes type after
// construction.
type Type int

const (
	TypeText Type = iota
	TypeNumber
	TypeBoolean
	TypeDate
	TypeTimeOfDay
	TypeDateTime
)

func (t Type) String() string {
	switch t {
	case TypeText:
		return "TEXT"
	case TypeNumber:
		return "NUMBER"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeDate:
		return "DATE"
	case TypeTimeOfDay:
		return "TIMEOFDAY"
	case TypeDateTime:
		return "DATETIME"
	default:
		return "UNKNOWN"
	}
}

// DateParts is the year/month/day triple shared by DATE and DATETIME
// values. Month is 0-based, matching the spec's calendar convention.
type DateParts struct {
	Year  int
	Month int
	Day   int
}

// TimeParts is the hour/minute/second/millisecond quadruple shared by
// TIMEOFDAY and DATETIME values.
type TimeParts struct {
	Hour        int
	Minute      int
	Second      int
	Millisecond int
}

// ToTime returns the midnight-UTC instant of the date.
func (d DateParts) ToTime() time.Time {
	return time.Date(d.Year, time.Month(d.Month+1), d.Day, 0, 0, 0, 0, time.UTC)
}

// SinceMidnight returns the TimeParts as an offset from midnight.
func (t TimeParts) SinceMidnight() time.Duration {
	return time.Duration(t.Hour)*time.Hour +
		time.Duration(t.Minute)*time.Minute +
		time.Duration(t.Second)*time.Second +
		time.Duration(t.Millisecond)*time.Millisecond
}

// Value is a tagged, possibly-null cell datum: the universal quantum of
// data within the engine. The zero Value is a non-null, empty TEXT value;
// NullOf builds a null.
type Value struct {
	typ    Type
	isNull bool

	text    string
	number  float64
	boolean bool
	date    DateParts
	time    TimeParts
}

// Type returns the Value's variant tag.
func (v Value) Type() Type { return v.typ }

// IsNull reports whether v is the null instance of its type.
func (v Value) IsNull() bool { return v.isNull }

// NullOf returns the canonical null Value for the given type.
func NullOf(t Type) Value {
	return Value{typ: t, isNull: true}
}

// NewText constructs a non-null TEXT value.
func NewText(s string) Value { return Value{typ: TypeText, text: s} }

// NewNumber constructs a non-null NUMBER value. NaN is permitted (it is the
// documented result of e.g. division by zero) but is never treated as null.
func NewNumber(f float64) Value { return Value{typ: TypeNumber, number: f} }

// NewBoolean constructs a non-null BOOLEAN value.
func NewBoolean(b bool) Value { return Value{typ: TypeBoolean, boolean: b} }

func validateDateParts(year, month, day int) error {
	if month < 0 || month > 11 {
		return qerrors.InvalidQueryf("", "", "month %d out of range [0,11]", month)
	}
	if day < 1 || day > 31 {
		return qerrors.InvalidQueryf("", "", "day %d out of range [1,31]", day)
	}
	return nil
}

func validateTimeParts(hour, minute, second, millisecond int) error {
	if hour < 0 || hour > 23 {
		return qerrors.InvalidQueryf("", "", "hour %d out of range [0,23]", hour)
	}
	if minute < 0 || minute > 59 {
		return qerrors.InvalidQueryf("", "", "minute %d out of range [0,59]", minute)
	}
	if second < 0 || second > 59 {
		return qerrors.InvalidQueryf("", "", "second %d out of range [0,59]", second)
	}
	if millisecond < 0 || millisecond > 999 {
		return qerrors.InvalidQueryf("", "", "millisecond %d out of range [0,999]", millisecond)
	}
	return nil
}

// NewDate constructs a non-null DATE value from explicit fields. Month is
// 0-based. Field ranges are validated; an out-of-range field is an
// INVALID_QUERY error.
func NewDate(year, month, day int) (Value, error) {
	if err := validateDateParts(year, month, day); err != nil {
		return Value{}, err
	}
	return Value{typ: TypeDate, date: DateParts{Year: year, Month: month, Day: day}}, nil
}

// NewTimeOfDay constructs a non-null TIMEOFDAY value from explicit fields.
func NewTimeOfDay(hour, minute, second, millisecond int) (Value, error) {
	if err := validateTimeParts(hour, minute, second, millisecond); err != nil {
		return Value{}, err
	}
	return Value{typ: TypeTimeOfDay, time: TimeParts{Hour: hour, Minute: minute, Second: second, Millisecond: millisecond}}, nil
}

// NewDateTime constructs a non-null DATETIME value from explicit fields.
func NewDateTime(year, month, day, hour, minute, second, millisecond int) (Value, error) {
	if err := validateDateParts(year, month, day); err != nil {
		return Value{}, err
	}
	if err := validateTimeParts(hour, minute, second, millisecond); err != nil {
		return Value{}, err
	}
	return Value{
		typ:  TypeDateTime,
		date: DateParts{Year: year, Month: month, Day: day},
		time: TimeParts{Hour: hour, Minute: minute, Second: second, Millisecond: millisecond},
	}, nil
}

func requireUTC(t time.Time) error {
	if t.Location() != time.UTC {
		return qerrors.InvalidQueryf("", "", "calendar value must be in GMT, got location %s", t.Location())
	}
	return nil
}

// NewDateFromTime constructs a DATE value from a calendar. t's location must
// be time.UTC; any other timezone is rejected with an INVALID_QUERY error.
func NewDateFromTime(t time.Time) (Value, error) {
	if err := requireUTC(t); err != nil {
		return Value{}, err
	}
	return NewDate(t.Year(), int(t.Month())-1, t.Day())
}

// NewTimeOfDayFromTime constructs a TIMEOFDAY value from a calendar. t's
// location must be time.UTC.
func NewTimeOfDayFromTime(t time.Time) (Value, error) {
	if err := requireUTC(t); err != nil {
		return Value{}, err
	}
	return NewTimeOfDay(t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1e6)
}

// NewDateTimeFromTime constructs a DATETIME value from a calendar. t's
// location must be time.UTC.
func NewDateTimeFromTime(t time.Time) (Value, error) {
	if err := requireUTC(t); err != nil {
		return Value{}, err
	}
	return NewDateTime(t.Year(), int(t.Month())-1, t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1e6)
}

// Text returns the underlying string. Callers must check Type()==TypeText
// and !IsNull() first; the zero value is returned otherwise.
func (v Value) Text() string { return v.text }

// Number returns the underlying float64.
func (v Value) Number() float64 { return v.number }

// Boolean returns the underlying bool.
func (v Value) Boolean() bool { return v.boolean }

// Date returns the underlying date fields (valid for DATE and DATETIME).
func (v Value) Date() DateParts { return v.date }

// TimeOfDay returns the underlying time fields (valid for TIMEOFDAY and
// DATETIME).
func (v Value) TimeOfDay() TimeParts { return v.time }

// Collator supplies locale-sensitive TEXT comparison. A nil Collator falls
// back to codepoint (byte-wise) ordering.
type Collator = *collate.Collator

// CompareTo returns a negative, zero, or positive number as v is less than,
// equal to, or greater than other. Both values must share a Type; mismatched
// types report a TYPE_MISMATCH error. Null sorts smaller than any non-null
// of the same type. For TEXT, col (if non-nil) drives locale-sensitive
// ordering; otherwise codepoint order is used.
func (v Value) CompareTo(other Value, col Collator) (int, error) {
	if v.typ != other.typ {
		return 0, qerrors.TypeMismatchf("", "cannot compare %s with %s", v.typ, other.typ)
	}
	if v.isNull || other.isNull {
		switch {
		case v.isNull && other.isNull:
			return 0, nil
		case v.isNull:
			return -1, nil
		default:
			return 1, nil
		}
	}
	switch v.typ {
	case TypeText:
		if col != nil {
			return col.CompareString(v.text, other.text), nil
		}
		return strings.Compare(v.text, other.text), nil
	case TypeNumber:
		return compareFloat(v.number, other.number), nil
	case TypeBoolean:
		return compareBool(v.boolean, other.boolean), nil
	case TypeDate:
		return compareDateParts(v.date, other.date), nil
	case TypeTimeOfDay:
		return compareTimeParts(v.time, other.time), nil
	case TypeDateTime:
		if c := compareDateParts(v.date, other.date); c != 0 {
			return c, nil
		}
		return compareTimeParts(v.time, other.time), nil
	default:
		return 0, qerrors.Internalf("unknown value type %v", v.typ)
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

func compareDateParts(a, b DateParts) int {
	if a.Year != b.Year {
		return compareFloat(float64(a.Year), float64(b.Year))
	}
	if a.Month != b.Month {
		return compareFloat(float64(a.Month), float64(b.Month))
	}
	return compareFloat(float64(a.Day), float64(b.Day))
}

func compareTimeParts(a, b TimeParts) int {
	if a.Hour != b.Hour {
		return compareFloat(float64(a.Hour), float64(b.Hour))
	}
	if a.Minute != b.Minute {
		return compareFloat(float64(a.Minute), float64(b.Minute))
	}
	if a.Second != b.Second {
		return compareFloat(float64(a.Second), float64(b.Second))
	}
	return compareFloat(float64(a.Millisecond), float64(b.Millisecond))
}

// Equal reports structural equality: same type, same nullness, same
// underlying value (NaN equals NaN here, unlike IEEE-754 float equality,
// so NUMBER values can serve as map keys and in distinct-value dedup).
func (v Value) Equal(other Value) bool {
	if v.typ != other.typ || v.isNull != other.isNull {
		return false
	}
	if v.isNull {
		return true
	}
	switch v.typ {
	case TypeText:
		return v.text == other.text
	case TypeNumber:
		return v.number == other.number || (math.IsNaN(v.number) && math.IsNaN(other.number))
	case TypeBoolean:
		return v.boolean == other.boolean
	case TypeDate:
		return v.date == other.date
	case TypeTimeOfDay:
		return v.time == other.time
	case TypeDateTime:
		return v.date == other.date && v.time == other.time
	default:
		return false
	}
}

// Hash returns a hash consistent with Equal: equal values always hash
// equal.
func (v Value) Hash() uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%v|", v.typ, v.isNull)
	if !v.isNull {
		switch v.typ {
		case TypeText:
			fmt.Fprint(h, v.text)
		case TypeNumber:
			if math.IsNaN(v.number) {
				fmt.Fprint(h, "NaN")
			} else {
				fmt.Fprint(h, strconv.FormatFloat(v.number, 'g', -1, 64))
			}
		case TypeBoolean:
			fmt.Fprintf(h, "%v", v.boolean)
		case TypeDate:
			fmt.Fprintf(h, "%+v", v.date)
		case TypeTimeOfDay:
			fmt.Fprintf(h, "%+v", v.time)
		case TypeDateTime:
			fmt.Fprintf(h, "%+v|%+v", v.date, v.time)
		}
	}
	return h.Sum64()
}

// ObjectToFormat returns the native Go object a formatter should consume:
// float64 for NUMBER, string for TEXT, bool for BOOLEAN, and DateParts /
// TimeParts / (DateParts,TimeParts) for the calendar types.
func (v Value) ObjectToFormat() any {
	if v.isNull {
		return nil
	}
	switch v.typ {
	case TypeText:
		return v.text
	case TypeNumber:
		return v.number
	case TypeBoolean:
		return v.boolean
	case TypeDate:
		return v.date
	case TypeTimeOfDay:
		return v.time
	case TypeDateTime:
		return struct {
			Date DateParts
			Time TimeParts
		}{v.date, v.time}
	default:
		return nil
	}
}

// InnerQueryString renders v as a parseable query literal, e.g. `"hello"`,
// `5`, `true`, `date '2020-03-15'`, `timeofday '10:20:30.500'`,
// `datetime '2020-03-15 10:20:30.500'`. Null values render as `null`.
func (v Value) InnerQueryString() string {
	if v.isNull {
		return "null"
	}
	switch v.typ {
	case TypeText:
		return strconv.Quote(v.text)
	case TypeNumber:
		if math.IsNaN(v.number) {
			return "NaN"
		}
		return strconv.FormatFloat(v.number, 'g', -1, 64)
	case TypeBoolean:
		return strconv.FormatBool(v.boolean)
	case TypeDate:
		return fmt.Sprintf("date '%04d-%02d-%02d'", v.date.Year, v.date.Month+1, v.date.Day)
	case TypeTimeOfDay:
		return fmt.Sprintf("timeofday '%s'", formatTimeParts(v.time))
	case TypeDateTime:
		return fmt.Sprintf("datetime '%04d-%02d-%02d %s'", v.date.Year, v.date.Month+1, v.date.Day, formatTimeParts(v.time))
	default:
		return ""
	}
}

func formatTimeParts(t TimeParts) string {
	if t.Millisecond == 0 {
		return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	}
	return fmt.Sprintf("%02d:%02d:%02d.%03d", t.Hour, t.Minute, t.Second, t.Millisecond)
}
