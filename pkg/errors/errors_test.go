package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndIsType(t *testing.T) {
	err := New(ErrorTypeTypeMismatch, "column TIME holds double")
	assert.True(t, IsType(err, ErrorTypeTypeMismatch))
	assert.False(t, IsType(err, ErrorTypeShapeMismatch))
	assert.Equal(t, ErrorTypeTypeMismatch, TypeOf(err))
	assert.Contains(t, err.Error(), "type_mismatch")
	assert.NotEmpty(t, err.Stack)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(cause, ErrorTypeColumnWrite, "engine write failed")
	require.NotNil(t, err)
	assert.True(t, IsType(err, ErrorTypeColumnWrite))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeEngine, "nothing"))
}

func TestWrapThroughChain(t *testing.T) {
	inner := New(ErrorTypeColumnRead, "undefined cell")
	outer := Wrap(inner, ErrorTypeEngine, "read path")

	// the outermost category wins
	assert.True(t, IsType(outer, ErrorTypeEngine))
	assert.Equal(t, ErrorTypeEngine, TypeOf(outer))

	var e *Error
	require.ErrorAs(t, outer, &e)
	assert.Equal(t, ErrorTypeEngine, e.Type)
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeRowIndex, "row 10 outside range").
		WithDetail("row", 10).
		WithDetail("table_rows", 5)
	assert.Equal(t, 10, err.Details["row"])
	assert.Equal(t, 5, err.Details["table_rows"])
	assert.False(t, IsType(nil, ErrorTypeRowIndex))
}

func TestTypeOfForeignError(t *testing.T) {
	assert.Equal(t, ErrorType(""), TypeOf(fmt.Errorf("plain")))
}
