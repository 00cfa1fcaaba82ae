// Package functions is the registry of built-in scalar functions callable
// from a ScalarFunctionColumn: arithmetic over NUMBER, date-part extraction,
// date arithmetic, and TEXT manipulation. Each entry is an immutable
// singleton looked up by name.
package functions

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/tabularql/tabularql/internal/qerrors"
	"github.com/tabularql/tabularql/internal/value"
)

// Function is a built-in scalar function: it validates its argument types,
// declares a return type as a function of those argument types, evaluates
// over concrete argument values, and renders itself back to a query
// literal.
type Function interface {
	// Name is the function's query-language name, e.g. "sum", "dayOfWeek".
	Name() string
	// Validate reports an INVALID_QUERY error if argTypes has the wrong
	// arity or an argument of an unsupported type.
	Validate(argTypes []value.Type) error
	// ReturnType reports the Value type this function produces given
	// argTypes, which must already have passed Validate.
	ReturnType(argTypes []value.Type) value.Type
	// Eval computes the function over concrete argument values. Any null
	// argument produces a typed null result unless the function documents
	// otherwise (only quotient does: division by zero yields NaN, not
	// null, and only when neither operand is null).
	Eval(args []value.Value) (value.Value, error)
	// QueryString renders a call to this function over already-rendered
	// argument strings, e.g. "sum(a, b)".
	QueryString(args []string) string
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Function{}
)

func register(f Function) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[f.Name()] = f
}

// Lookup returns the registered Function with the given name, or
// ok=false if no such function exists.
func Lookup(name string) (Function, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// Names returns the registered function names, for diagnostics.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	return names
}

func init() {
	register(binaryArith{"sum", func(a, b float64) float64 { return a + b }, "+"})
	register(binaryArith{"difference", func(a, b float64) float64 { return a - b }, "-"})
	register(binaryArith{"product", func(a, b float64) float64 { return a * b }, "*"})
	register(quotientFn{})
	register(moduloFn{})

	register(datePartFn{"year", func(t time.Time) float64 { return float64(t.Year()) }})
	register(datePartFn{"month", func(t time.Time) float64 { return float64(int(t.Month()) - 1) }})
	register(datePartFn{"day", func(t time.Time) float64 { return float64(t.Day()) }})
	register(datePartFn{"hour", func(t time.Time) float64 { return float64(t.Hour()) }})
	register(datePartFn{"minute", func(t time.Time) float64 { return float64(t.Minute()) }})
	register(datePartFn{"second", func(t time.Time) float64 { return float64(t.Second()) }})
	register(datePartFn{"millisecond", func(t time.Time) float64 { return float64(t.Nanosecond() / 1e6) }})
	register(datePartFn{"quarter", func(t time.Time) float64 { return float64((int(t.Month())-1)/3 + 1) }})
	register(datePartFn{"dayOfWeek", func(t time.Time) float64 { return float64(int(t.Weekday()) + 1) }})

	register(dateDiffFn{})
	register(toDateFn{})
	register(unaryText{"lower", strings.ToLower})
	register(unaryText{"upper", strings.ToUpper})
	register(concatFn{})
}

func asTimeArg(v value.Value, clause string) (time.Time, error) {
	switch v.Type() {
	case value.TypeDate:
		return v.Date().ToTime(), nil
	case value.TypeDateTime:
		return v.Date().ToTime().Add(v.TimeOfDay().SinceMidnight()), nil
	case value.TypeTimeOfDay:
		return time.Time{}.Add(v.TimeOfDay().SinceMidnight()), nil
	default:
		return time.Time{}, qerrors.TypeMismatchf("", "%s requires a DATE, TIMEOFDAY, or DATETIME argument, got %s", clause, v.Type())
	}
}

func requireNumberType(argTypes []value.Type, name string) error {
	for i, t := range argTypes {
		if t != value.TypeNumber {
			return qerrors.InvalidQueryf("", "", "%s argument %d must be NUMBER, got %s", name, i, t)
		}
	}
	return nil
}

func requireArity(argTypes []value.Type, name string, n int) error {
	if len(argTypes) != n {
		return qerrors.InvalidQueryf("", "", "%s takes %d argument(s), got %d", name, n, len(argTypes))
	}
	return nil
}

func anyNull(args []value.Value) bool {
	for _, a := range args {
		if a.IsNull() {
			return true
		}
	}
	return false
}

// binaryArith is sum/difference/product: binary, NUMBER in, NUMBER out.
type binaryArith struct {
	name string
	op   func(a, b float64) float64
	sym  string
}

func (f binaryArith) Name() string { return f.name }

func (f binaryArith) Validate(argTypes []value.Type) error {
	if err := requireArity(argTypes, f.name, 2); err != nil {
		return err
	}
	return requireNumberType(argTypes, f.name)
}

func (f binaryArith) ReturnType([]value.Type) value.Type { return value.TypeNumber }

func (f binaryArith) Eval(args []value.Value) (value.Value, error) {
	if anyNull(args) {
		return value.NullOf(value.TypeNumber), nil
	}
	return value.NewNumber(f.op(args[0].Number(), args[1].Number())), nil
}

func (f binaryArith) QueryString(args []string) string {
	return fmt.Sprintf("%s(%s, %s)", f.name, args[0], args[1])
}

type quotientFn struct{}

func (quotientFn) Name() string { return "quotient" }

func (quotientFn) Validate(argTypes []value.Type) error {
	if err := requireArity(argTypes, "quotient", 2); err != nil {
		return err
	}
	return requireNumberType(argTypes, "quotient")
}

func (quotientFn) ReturnType([]value.Type) value.Type { return value.TypeNumber }

func (quotientFn) Eval(args []value.Value) (value.Value, error) {
	if anyNull(args) {
		return value.NullOf(value.TypeNumber), nil
	}
	// Division by zero is a documented NaN result, not an error nor null.
	if args[1].Number() == 0 {
		return value.NewNumber(math.NaN()), nil
	}
	return value.NewNumber(args[0].Number() / args[1].Number()), nil
}

func (quotientFn) QueryString(args []string) string {
	return fmt.Sprintf("quotient(%s, %s)", args[0], args[1])
}

type moduloFn struct{}

func (moduloFn) Name() string { return "modulo" }

func (moduloFn) Validate(argTypes []value.Type) error {
	if err := requireArity(argTypes, "modulo", 2); err != nil {
		return err
	}
	return requireNumberType(argTypes, "modulo")
}

func (moduloFn) ReturnType([]value.Type) value.Type { return value.TypeNumber }

func (moduloFn) Eval(args []value.Value) (value.Value, error) {
	if anyNull(args) {
		return value.NullOf(value.TypeNumber), nil
	}
	a, b := args[0].Number(), args[1].Number()
	return value.NewNumber(math.Mod(a, b)), nil
}

func (moduloFn) QueryString(args []string) string {
	return fmt.Sprintf("modulo(%s, %s)", args[0], args[1])
}

// datePartFn is the family of unary date-part extractors: year, month, day,
// hour, minute, second, millisecond, quarter, dayOfWeek.
type datePartFn struct {
	name    string
	extract func(time.Time) float64
}

func (f datePartFn) Name() string { return f.name }

func (f datePartFn) Validate(argTypes []value.Type) error {
	if err := requireArity(argTypes, f.name, 1); err != nil {
		return err
	}
	switch argTypes[0] {
	case value.TypeDate, value.TypeDateTime, value.TypeTimeOfDay:
		return nil
	default:
		return qerrors.InvalidQueryf("", "", "%s requires a DATE, TIMEOFDAY, or DATETIME argument, got %s", f.name, argTypes[0])
	}
}

func (f datePartFn) ReturnType([]value.Type) value.Type { return value.TypeNumber }

func (f datePartFn) Eval(args []value.Value) (value.Value, error) {
	if anyNull(args) {
		return value.NullOf(value.TypeNumber), nil
	}
	t, err := asTimeArg(args[0], f.name)
	if err != nil {
		return value.Value{}, err
	}
	return value.NewNumber(f.extract(t)), nil
}

func (f datePartFn) QueryString(args []string) string {
	return fmt.Sprintf("%s(%s)", f.name, args[0])
}

type dateDiffFn struct{}

func (dateDiffFn) Name() string { return "dateDiff" }

func (dateDiffFn) Validate(argTypes []value.Type) error {
	if err := requireArity(argTypes, "dateDiff", 2); err != nil {
		return err
	}
	for i, t := range argTypes {
		if t != value.TypeDate && t != value.TypeDateTime {
			return qerrors.InvalidQueryf("", "", "dateDiff argument %d must be DATE or DATETIME, got %s", i, t)
		}
	}
	return nil
}

func (dateDiffFn) ReturnType([]value.Type) value.Type { return value.TypeNumber }

func (dateDiffFn) Eval(args []value.Value) (value.Value, error) {
	if anyNull(args) {
		return value.NullOf(value.TypeNumber), nil
	}
	a := args[0].Date().ToTime()
	b := args[1].Date().ToTime()
	days := a.Sub(b).Hours() / 24
	return value.NewNumber(days), nil
}

func (dateDiffFn) QueryString(args []string) string {
	return fmt.Sprintf("dateDiff(%s, %s)", args[0], args[1])
}

type toDateFn struct{}

func (toDateFn) Name() string { return "toDate" }

func (toDateFn) Validate(argTypes []value.Type) error {
	if err := requireArity(argTypes, "toDate", 1); err != nil {
		return err
	}
	switch argTypes[0] {
	case value.TypeDate, value.TypeDateTime, value.TypeNumber:
		return nil
	default:
		return qerrors.InvalidQueryf("", "", "toDate requires DATE, DATETIME, or NUMBER, got %s", argTypes[0])
	}
}

func (toDateFn) ReturnType([]value.Type) value.Type { return value.TypeDate }

func (toDateFn) Eval(args []value.Value) (value.Value, error) {
	if anyNull(args) {
		return value.NullOf(value.TypeDate), nil
	}
	switch args[0].Type() {
	case value.TypeDate:
		return args[0], nil
	case value.TypeDateTime:
		return value.NewDate(args[0].Date().Year, args[0].Date().Month, args[0].Date().Day)
	case value.TypeNumber:
		t := time.UnixMilli(int64(args[0].Number())).UTC()
		return value.NewDateFromTime(t)
	default:
		return value.Value{}, qerrors.Internalf("toDate: unreachable type %s", args[0].Type())
	}
}

func (toDateFn) QueryString(args []string) string {
	return fmt.Sprintf("toDate(%s)", args[0])
}

// unaryText is lower/upper: unary, TEXT in, TEXT out.
type unaryText struct {
	name string
	op   func(string) string
}

func (f unaryText) Name() string { return f.name }

func (f unaryText) Validate(argTypes []value.Type) error {
	if err := requireArity(argTypes, f.name, 1); err != nil {
		return err
	}
	if argTypes[0] != value.TypeText {
		return qerrors.InvalidQueryf("", "", "%s requires a TEXT argument, got %s", f.name, argTypes[0])
	}
	return nil
}

func (f unaryText) ReturnType([]value.Type) value.Type { return value.TypeText }

func (f unaryText) Eval(args []value.Value) (value.Value, error) {
	if anyNull(args) {
		return value.NullOf(value.TypeText), nil
	}
	return value.NewText(f.op(args[0].Text())), nil
}

func (f unaryText) QueryString(args []string) string {
	return fmt.Sprintf("%s(%s)", f.name, args[0])
}

type concatFn struct{}

func (concatFn) Name() string { return "concat" }

func (concatFn) Validate(argTypes []value.Type) error {
	if len(argTypes) < 1 {
		return qerrors.InvalidQueryf("", "", "concat takes at least 1 argument, got %d", len(argTypes))
	}
	return requireTextType(argTypes)
}

func requireTextType(argTypes []value.Type) error {
	for i, t := range argTypes {
		if t != value.TypeText {
			return qerrors.InvalidQueryf("", "", "concat argument %d must be TEXT, got %s", i, t)
		}
	}
	return nil
}

func (concatFn) ReturnType([]value.Type) value.Type { return value.TypeText }

func (concatFn) Eval(args []value.Value) (value.Value, error) {
	if anyNull(args) {
		return value.NullOf(value.TypeText), nil
	}
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(a.Text())
	}
	return value.NewText(sb.String()), nil
}

func (concatFn) QueryString(args []string) string {
	return fmt.Sprintf("concat(%s)", strings.Join(args, ", "))
}
