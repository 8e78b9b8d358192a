package glue

import (
	"github.com/d3v-null/rubbl/pkg/errors"
)

// Array is an n-dimensional cell value: per-axis extents plus a flat,
// row-major slice of elements. The flat slice must be one of the supported
// element slice types ([]bool, []int8, ..., []complex128, []string).
type Array struct {
	Extents []int
	Data    interface{}
}

// NewArray builds an Array after checking that the flat data length matches
// the product of the extents.
func NewArray(extents []int, data interface{}) (*Array, error) {
	t, n, ok := SliceDataTypeOf(data)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeTypeMismatch, "unsupported array element type %T", data)
	}
	if want := NumElementsOf(extents); n != want {
		return nil, errors.Newf(errors.ErrorTypeShapeMismatch,
			"flat %s data has %d elements, shape %v requires %d", t, n, extents, want)
	}
	ext := make([]int, len(extents))
	copy(ext, extents)
	return &Array{Extents: ext, Data: data}, nil
}

// DataType returns the element type tag of the array's flat data.
func (a *Array) DataType() (DataType, bool) {
	t, _, ok := SliceDataTypeOf(a.Data)
	return t, ok
}

// NumElements returns the number of elements the array holds.
func (a *Array) NumElements() int {
	return NumElementsOf(a.Extents)
}
