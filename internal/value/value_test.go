package value

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/tabularql/tabularql/internal/qerrors"
)

func TestNullSortsSmallerThanNonNull(t *testing.T) {
	n := NullOf(TypeNumber)
	v := NewNumber(5)

	c, err := n.CompareTo(v, nil)
	require.NoError(t, err)
	assert.Negative(t, c)

	c, err = v.CompareTo(n, nil)
	require.NoError(t, err)
	assert.Positive(t, c)

	c, err = n.CompareTo(NullOf(TypeNumber), nil)
	require.NoError(t, err)
	assert.Zero(t, c)
}

func TestCompareToRejectsMismatchedTypes(t *testing.T) {
	_, err := NewText("a").CompareTo(NewNumber(1), nil)
	require.Error(t, err)
	kind, ok := qerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, qerrors.TypeMismatch, kind)
}

func TestTextOrderingCodepointByDefault(t *testing.T) {
	c, err := NewText("apple").CompareTo(NewText("banana"), nil)
	require.NoError(t, err)
	assert.Negative(t, c)
}

func TestTextOrderingWithCollator(t *testing.T) {
	col := collate.New(language.Swedish)
	// Exercises CompareTo's collator path rather than the codepoint fallback.
	c, err := NewText("a").CompareTo(NewText("b"), col)
	require.NoError(t, err)
	assert.Negative(t, c)
}

func TestDateFieldValidation(t *testing.T) {
	_, err := NewDate(2020, 12, 1)
	require.Error(t, err)

	_, err = NewDate(2020, 0, 32)
	require.Error(t, err)

	v, err := NewDate(2020, 2, 15)
	require.NoError(t, err)
	assert.Equal(t, DateParts{2020, 2, 15}, v.Date())
}

func TestTimeOfDayFieldValidation(t *testing.T) {
	_, err := NewTimeOfDay(24, 0, 0, 0)
	require.Error(t, err)

	_, err = NewTimeOfDay(10, 0, 0, 1000)
	require.Error(t, err)

	v, err := NewTimeOfDay(10, 20, 30, 500)
	require.NoError(t, err)
	assert.Equal(t, TimeParts{10, 20, 30, 500}, v.TimeOfDay())
}

func TestEqualTreatsNaNAsEqualToItself(t *testing.T) {
	a := NewNumber(math.NaN())
	b := NewNumber(math.NaN())
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestInnerQueryStringRoundTripShapes(t *testing.T) {
	assert.Equal(t, `"it's"`, NewText("it's").InnerQueryString())
	assert.Equal(t, "5", NewNumber(5).InnerQueryString())
	assert.Equal(t, "true", NewBoolean(true).InnerQueryString())

	d, _ := NewDate(2020, 2, 15)
	assert.Equal(t, "date '2020-03-15'", d.InnerQueryString())

	tod, _ := NewTimeOfDay(10, 20, 30, 500)
	assert.Equal(t, "timeofday '10:20:30.500'", tod.InnerQueryString())

	dt, _ := NewDateTime(2020, 2, 15, 10, 20, 30, 0)
	assert.Equal(t, "datetime '2020-03-15 10:20:30'", dt.InnerQueryString())

	assert.Equal(t, "null", NullOf(TypeText).InnerQueryString())
}

func TestObjectToFormatNullIsNil(t *testing.T) {
	assert.Nil(t, NullOf(TypeNumber).ObjectToFormat())
	assert.Equal(t, 5.0, NewNumber(5).ObjectToFormat())
}

func TestNewDateFromTimeRejectsNonUTC(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	_, err = NewDateFromTime(time.Date(2020, time.March, 15, 0, 0, 0, 0, loc))
	require.Error(t, err)
	kind, ok := qerrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, qerrors.InvalidQuery, kind)
}

func TestNewDateFromTimeAcceptsUTC(t *testing.T) {
	v, err := NewDateFromTime(time.Date(2020, time.March, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, DateParts{Year: 2020, Month: 2, Day: 15}, v.Date())
}
