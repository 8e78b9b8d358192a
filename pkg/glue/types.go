// Package glue defines the value types the storage engine understands and the
// codec that moves typed values across the engine boundary as raw bytes.
package glue

import (
	"strings"

	"github.com/d3v-null/rubbl/pkg/errors"
)

// DataType is the element type tag a column is declared with. The tags follow
// the storage engine's own type vocabulary; every column carries exactly one
// of them for its whole lifetime.
type DataType int

const (
	// TpBool is a boolean element, stored as a single 0/1 byte.
	TpBool DataType = iota
	// TpChar is an 8-bit signed integer element.
	TpChar
	// TpShort is a 16-bit signed integer element.
	TpShort
	// TpInt is a 32-bit signed integer element.
	TpInt
	// TpInt64 is a 64-bit signed integer element.
	TpInt64
	// TpFloat is a 32-bit IEEE float element.
	TpFloat
	// TpDouble is a 64-bit IEEE float element.
	TpDouble
	// TpComplex is a pair of adjacent 32-bit IEEE floats (real, imaginary).
	TpComplex
	// TpDComplex is a pair of adjacent 64-bit IEEE floats (real, imaginary).
	TpDComplex
	// TpString is a fixed-width byte string, NUL-padded to the column's
	// declared width.
	TpString
)

// TpAny is the wildcard passed to column resolution when the caller has no
// type expectation of its own, e.g. on reads that return whatever the column
// holds.
const TpAny DataType = -1

var typeNames = map[DataType]string{
	TpBool:     "bool",
	TpChar:     "char",
	TpShort:    "short",
	TpInt:      "int",
	TpInt64:    "int64",
	TpFloat:    "float",
	TpDouble:   "double",
	TpComplex:  "complex",
	TpDComplex: "dcomplex",
	TpString:   "string",
}

func (t DataType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	if t == TpAny {
		return "any"
	}
	return "unknown"
}

// Valid reports whether t is one of the declared element type tags.
func (t DataType) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// ElementSize returns the number of bytes one element of this type occupies
// in the engine's raw layout. TpString returns 0: string width is a
// per-column property, not a property of the tag.
func (t DataType) ElementSize() int {
	switch t {
	case TpBool, TpChar:
		return 1
	case TpShort:
		return 2
	case TpInt, TpFloat:
		return 4
	case TpInt64, TpDouble, TpComplex:
		return 8
	case TpDComplex:
		return 16
	default:
		return 0
	}
}

// ParseDataType maps a type name as used in table description files back to
// its tag.
func ParseDataType(name string) (DataType, error) {
	for t, n := range typeNames {
		if n == strings.ToLower(name) {
			return t, nil
		}
	}
	return TpAny, errors.Newf(errors.ErrorTypeSchema, "unknown data type %q", name)
}

// DataTypeOf returns the tag matching the dynamic type of a scalar value.
func DataTypeOf(v interface{}) (DataType, bool) {
	switch v.(type) {
	case bool:
		return TpBool, true
	case int8:
		return TpChar, true
	case int16:
		return TpShort, true
	case int32:
		return TpInt, true
	case int64:
		return TpInt64, true
	case float32:
		return TpFloat, true
	case float64:
		return TpDouble, true
	case complex64:
		return TpComplex, true
	case complex128:
		return TpDComplex, true
	case string:
		return TpString, true
	default:
		return TpAny, false
	}
}

// SliceDataTypeOf returns the tag matching the element type of a flat slice
// value, plus the slice length.
func SliceDataTypeOf(v interface{}) (DataType, int, bool) {
	switch s := v.(type) {
	case []bool:
		return TpBool, len(s), true
	case []int8:
		return TpChar, len(s), true
	case []int16:
		return TpShort, len(s), true
	case []int32:
		return TpInt, len(s), true
	case []int64:
		return TpInt64, len(s), true
	case []float32:
		return TpFloat, len(s), true
	case []float64:
		return TpDouble, len(s), true
	case []complex64:
		return TpComplex, len(s), true
	case []complex128:
		return TpDComplex, len(s), true
	case []string:
		return TpString, len(s), true
	default:
		return TpAny, 0, false
	}
}
