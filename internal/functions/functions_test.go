package functions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabularql/tabularql/internal/value"
)

func mustDate(t *testing.T, y, m, d int) value.Value {
	t.Helper()
	v, err := value.NewDate(y, m, d)
	require.NoError(t, err)
	return v
}

func TestSumValidatesArity(t *testing.T) {
	fn, ok := Lookup("sum")
	require.True(t, ok)
	require.Error(t, fn.Validate([]value.Type{value.TypeNumber}))
	require.NoError(t, fn.Validate([]value.Type{value.TypeNumber, value.TypeNumber}))
}

func TestSumRejectsNonNumberArgs(t *testing.T) {
	fn, _ := Lookup("sum")
	err := fn.Validate([]value.Type{value.TypeNumber, value.TypeText})
	require.Error(t, err)
}

func TestQuotientByZeroYieldsNaN(t *testing.T) {
	fn, _ := Lookup("quotient")
	v, err := fn.Eval([]value.Value{value.NewNumber(1), value.NewNumber(0)})
	require.NoError(t, err)
	assert.True(t, v.Number() != v.Number(), "expected NaN")
}

func TestArithmeticNullPropagation(t *testing.T) {
	fn, _ := Lookup("sum")
	v, err := fn.Eval([]value.Value{value.NullOf(value.TypeNumber), value.NewNumber(2)})
	require.NoError(t, err)
	assert.True(t, v.IsNull())
	assert.Equal(t, value.TypeNumber, v.Type())
}

func TestYearMonthDayExtraction(t *testing.T) {
	d := mustDate(t, 2020, 2, 15) // month is 0-based: March

	year, _ := Lookup("year")
	yv, err := year.Eval([]value.Value{d})
	require.NoError(t, err)
	assert.Equal(t, 2020.0, yv.Number())

	month, _ := Lookup("month")
	mv, err := month.Eval([]value.Value{d})
	require.NoError(t, err)
	assert.Equal(t, 2.0, mv.Number())

	day, _ := Lookup("day")
	dv, err := day.Eval([]value.Value{d})
	require.NoError(t, err)
	assert.Equal(t, 15.0, dv.Number())
}

func TestDateDiffIgnoresTimeComponents(t *testing.T) {
	a, err := value.NewDateTime(2020, 0, 10, 23, 59, 59, 999)
	require.NoError(t, err)
	b, err := value.NewDateTime(2020, 0, 1, 0, 0, 0, 0)
	require.NoError(t, err)

	fn, _ := Lookup("dateDiff")
	v, err := fn.Eval([]value.Value{a, b})
	require.NoError(t, err)
	assert.Equal(t, 9.0, v.Number())
}

func TestToDateTruncatesDateTime(t *testing.T) {
	dt, err := value.NewDateTime(2021, 5, 3, 10, 0, 0, 0)
	require.NoError(t, err)

	fn, _ := Lookup("toDate")
	v, err := fn.Eval([]value.Value{dt})
	require.NoError(t, err)
	assert.Equal(t, value.TypeDate, v.Type())
	assert.Equal(t, value.DateParts{Year: 2021, Month: 5, Day: 3}, v.Date())
}

func TestToDateFromMillisEpoch(t *testing.T) {
	fn, _ := Lookup("toDate")
	// 2020-01-02T00:00:00Z
	v, err := fn.Eval([]value.Value{value.NewNumber(1577923200000)})
	require.NoError(t, err)
	assert.Equal(t, value.DateParts{Year: 2020, Month: 0, Day: 2}, v.Date())
}

func TestLowerUpper(t *testing.T) {
	lower, _ := Lookup("lower")
	v, err := lower.Eval([]value.Value{value.NewText("ABC")})
	require.NoError(t, err)
	assert.Equal(t, "abc", v.Text())

	upper, _ := Lookup("upper")
	v, err = upper.Eval([]value.Value{value.NewText("abc")})
	require.NoError(t, err)
	assert.Equal(t, "ABC", v.Text())
}

func TestConcatRequiresAtLeastOneArg(t *testing.T) {
	fn, _ := Lookup("concat")
	require.Error(t, fn.Validate(nil))
	require.NoError(t, fn.Validate([]value.Type{value.TypeText, value.TypeText, value.TypeText}))
}

func TestConcatJoinsText(t *testing.T) {
	fn, _ := Lookup("concat")
	v, err := fn.Eval([]value.Value{value.NewText("foo"), value.NewText("bar")})
	require.NoError(t, err)
	assert.Equal(t, "foobar", v.Text())
}

func TestModuloOperatesOnNumbers(t *testing.T) {
	fn, _ := Lookup("modulo")
	v, err := fn.Eval([]value.Value{value.NewNumber(7), value.NewNumber(3)})
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Number())
}
