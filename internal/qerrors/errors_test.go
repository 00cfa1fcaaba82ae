package qerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageIncludesClauseAndColumn(t *testing.T) {
	err := InvalidQueryf("WHERE", "age", "unknown column %q", "age")
	assert.Contains(t, err.Error(), "INVALID_QUERY")
	assert.Contains(t, err.Error(), "clause=WHERE")
	assert.Contains(t, err.Error(), "column=age")
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := WrapInternal(cause, "aggregation tree corrupted")
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "boom")
}

func TestKindOfUnwrapsChain(t *testing.T) {
	base := TypeMismatchf("salary", "expected NUMBER, got TEXT")
	wrapped := fmt.Errorf("setCell failed: %w", base)

	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, TypeMismatch, kind)
}

func TestKindOfFalseForPlainError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsMatchesSameKindOnly(t *testing.T) {
	err := NotSupportedf("PIVOT", "pivot disabled by capability flags")
	assert.True(t, errors.Is(err, New(NotSupported, "")))
	assert.False(t, errors.Is(err, New(InvalidQuery, "")))
}
