package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabularql/tabularql/internal/core"
	"github.com/tabularql/tabularql/internal/value"
)

func TestValueAggregatorSumCountAvg(t *testing.T) {
	a := NewValueAggregator(value.TypeNumber)
	require.NoError(t, a.Add(value.NewNumber(10)))
	require.NoError(t, a.Add(value.NullOf(value.TypeNumber)))
	require.NoError(t, a.Add(value.NewNumber(20)))

	count, err := a.Result(core.AggCount)
	require.NoError(t, err)
	assert.Equal(t, 2.0, count.Number())

	sum, err := a.Result(core.AggSum)
	require.NoError(t, err)
	assert.Equal(t, 30.0, sum.Number())

	avg, err := a.Result(core.AggAvg)
	require.NoError(t, err)
	assert.Equal(t, 15.0, avg.Number())
}

func TestValueAggregatorZeroCountYieldsTypedNull(t *testing.T) {
	a := NewValueAggregator(value.TypeText)

	min, err := a.Result(core.AggMin)
	require.NoError(t, err)
	assert.True(t, min.IsNull())
	assert.Equal(t, value.TypeText, min.Type())

	sum, err := NewValueAggregator(value.TypeNumber).Result(core.AggSum)
	require.NoError(t, err)
	assert.True(t, sum.IsNull())
}

func TestValueAggregatorMinMaxPreservesColumnType(t *testing.T) {
	a := NewValueAggregator(value.TypeText)
	require.NoError(t, a.Add(value.NewText("banana")))
	require.NoError(t, a.Add(value.NewText("apple")))
	require.NoError(t, a.Add(value.NewText("cherry")))

	min, err := a.Result(core.AggMin)
	require.NoError(t, err)
	assert.Equal(t, "apple", min.Text())

	max, err := a.Result(core.AggMax)
	require.NoError(t, err)
	assert.Equal(t, "cherry", max.Text())
}
