package glue

import (
	"encoding/binary"
	"math"

	"github.com/d3v-null/rubbl/pkg/errors"
)

// Codec converts typed values to and from the engine's raw little-endian
// layout for one element type. Buffer encodings are byte-for-byte identical
// to the concatenation of the corresponding scalar encodings, which is what
// lets bulk row-range operations stand in for sequences of per-cell ones.
type Codec struct {
	dtype       DataType
	stringWidth int
}

// NewCodec returns the codec for a non-string element type.
func NewCodec(t DataType) Codec {
	return Codec{dtype: t}
}

// NewStringCodec returns the codec for fixed-width strings of the given byte
// width. Encoded strings are NUL-padded to the width; decoding trims the
// padding.
func NewStringCodec(width int) Codec {
	return Codec{dtype: TpString, stringWidth: width}
}

// DataType returns the element type tag this codec serves.
func (c Codec) DataType() DataType {
	return c.dtype
}

// ElementSize returns the raw size in bytes of one encoded element.
func (c Codec) ElementSize() int {
	if c.dtype == TpString {
		return c.stringWidth
	}
	return c.dtype.ElementSize()
}

// EncodeScalar encodes a single typed value. The value's dynamic type must
// match the codec's element type exactly; no implicit widening is performed.
func (c Codec) EncodeScalar(v interface{}) ([]byte, error) {
	return c.appendScalar(make([]byte, 0, c.ElementSize()), v)
}

func (c Codec) typeMismatch(v interface{}) error {
	return errors.Newf(errors.ErrorTypeTypeMismatch, "column type %s cannot hold a %T value", c.dtype, v)
}

func (c Codec) appendScalar(dst []byte, v interface{}) ([]byte, error) {
	switch c.dtype {
	case TpBool:
		b, ok := v.(bool)
		if !ok {
			return nil, c.typeMismatch(v)
		}
		if b {
			return append(dst, 1), nil
		}
		return append(dst, 0), nil
	case TpChar:
		x, ok := v.(int8)
		if !ok {
			return nil, c.typeMismatch(v)
		}
		return append(dst, byte(x)), nil
	case TpShort:
		x, ok := v.(int16)
		if !ok {
			return nil, c.typeMismatch(v)
		}
		return binary.LittleEndian.AppendUint16(dst, uint16(x)), nil
	case TpInt:
		x, ok := v.(int32)
		if !ok {
			return nil, c.typeMismatch(v)
		}
		return binary.LittleEndian.AppendUint32(dst, uint32(x)), nil
	case TpInt64:
		x, ok := v.(int64)
		if !ok {
			return nil, c.typeMismatch(v)
		}
		return binary.LittleEndian.AppendUint64(dst, uint64(x)), nil
	case TpFloat:
		x, ok := v.(float32)
		if !ok {
			return nil, c.typeMismatch(v)
		}
		return binary.LittleEndian.AppendUint32(dst, math.Float32bits(x)), nil
	case TpDouble:
		x, ok := v.(float64)
		if !ok {
			return nil, c.typeMismatch(v)
		}
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(x)), nil
	case TpComplex:
		x, ok := v.(complex64)
		if !ok {
			return nil, c.typeMismatch(v)
		}
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(real(x)))
		return binary.LittleEndian.AppendUint32(dst, math.Float32bits(imag(x))), nil
	case TpDComplex:
		x, ok := v.(complex128)
		if !ok {
			return nil, c.typeMismatch(v)
		}
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(real(x)))
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(imag(x))), nil
	case TpString:
		s, ok := v.(string)
		if !ok {
			return nil, c.typeMismatch(v)
		}
		if len(s) > c.stringWidth {
			return nil, errors.Newf(errors.ErrorTypeTypeMismatch,
				"string of %d bytes exceeds column width %d", len(s), c.stringWidth)
		}
		dst = append(dst, s...)
		for i := len(s); i < c.stringWidth; i++ {
			dst = append(dst, 0)
		}
		return dst, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeTypeMismatch, "codec has no element type")
	}
}

// DecodeScalar decodes a single value from its raw encoding. The raw slice
// must be exactly one element long; the engine is trusted for well-formed
// contents but obviously incompatible sizes are rejected.
func (c Codec) DecodeScalar(raw []byte) (interface{}, error) {
	if len(raw) != c.ElementSize() {
		return nil, errors.Newf(errors.ErrorTypeTypeMismatch,
			"raw cell is %d bytes, %s element is %d", len(raw), c.dtype, c.ElementSize())
	}
	return c.decodeAt(raw, 0), nil
}

func (c Codec) decodeAt(raw []byte, off int) interface{} {
	switch c.dtype {
	case TpBool:
		return raw[off] != 0
	case TpChar:
		return int8(raw[off])
	case TpShort:
		return int16(binary.LittleEndian.Uint16(raw[off:]))
	case TpInt:
		return int32(binary.LittleEndian.Uint32(raw[off:]))
	case TpInt64:
		return int64(binary.LittleEndian.Uint64(raw[off:]))
	case TpFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(raw[off:]))
	case TpDouble:
		return math.Float64frombits(binary.LittleEndian.Uint64(raw[off:]))
	case TpComplex:
		re := math.Float32frombits(binary.LittleEndian.Uint32(raw[off:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(raw[off+4:]))
		return complex(re, im)
	case TpDComplex:
		re := math.Float64frombits(binary.LittleEndian.Uint64(raw[off:]))
		im := math.Float64frombits(binary.LittleEndian.Uint64(raw[off+8:]))
		return complex(re, im)
	case TpString:
		end := off + c.stringWidth
		for end > off && raw[end-1] == 0 {
			end--
		}
		return string(raw[off:end])
	default:
		return nil
	}
}

// EncodeBuffer encodes a flat slice of N elements into N contiguous raw
// encodings.
func (c Codec) EncodeBuffer(v interface{}) ([]byte, error) {
	t, n, ok := SliceDataTypeOf(v)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeTypeMismatch, "unsupported buffer type %T", v)
	}
	if t != c.dtype {
		return nil, errors.Newf(errors.ErrorTypeTypeMismatch, "column type %s cannot hold %s elements", c.dtype, t)
	}
	dst := make([]byte, 0, n*c.ElementSize())
	var err error
	switch s := v.(type) {
	case []bool:
		for _, e := range s {
			if dst, err = c.appendScalar(dst, e); err != nil {
				return nil, err
			}
		}
	case []int8:
		for _, e := range s {
			if dst, err = c.appendScalar(dst, e); err != nil {
				return nil, err
			}
		}
	case []int16:
		for _, e := range s {
			if dst, err = c.appendScalar(dst, e); err != nil {
				return nil, err
			}
		}
	case []int32:
		for _, e := range s {
			if dst, err = c.appendScalar(dst, e); err != nil {
				return nil, err
			}
		}
	case []int64:
		for _, e := range s {
			if dst, err = c.appendScalar(dst, e); err != nil {
				return nil, err
			}
		}
	case []float32:
		for _, e := range s {
			if dst, err = c.appendScalar(dst, e); err != nil {
				return nil, err
			}
		}
	case []float64:
		for _, e := range s {
			if dst, err = c.appendScalar(dst, e); err != nil {
				return nil, err
			}
		}
	case []complex64:
		for _, e := range s {
			if dst, err = c.appendScalar(dst, e); err != nil {
				return nil, err
			}
		}
	case []complex128:
		for _, e := range s {
			if dst, err = c.appendScalar(dst, e); err != nil {
				return nil, err
			}
		}
	case []string:
		for _, e := range s {
			if dst, err = c.appendScalar(dst, e); err != nil {
				return nil, err
			}
		}
	}
	return dst, nil
}

// DecodeBuffer decodes n contiguous raw elements into a flat slice of the
// codec's element type.
func (c Codec) DecodeBuffer(raw []byte, n int) (interface{}, error) {
	size := c.ElementSize()
	if len(raw) != n*size {
		return nil, errors.Newf(errors.ErrorTypeTypeMismatch,
			"raw buffer is %d bytes, %d %s elements require %d", len(raw), n, c.dtype, n*size)
	}
	switch c.dtype {
	case TpBool:
		out := make([]bool, n)
		for i := range out {
			out[i] = c.decodeAt(raw, i*size).(bool)
		}
		return out, nil
	case TpChar:
		out := make([]int8, n)
		for i := range out {
			out[i] = c.decodeAt(raw, i*size).(int8)
		}
		return out, nil
	case TpShort:
		out := make([]int16, n)
		for i := range out {
			out[i] = c.decodeAt(raw, i*size).(int16)
		}
		return out, nil
	case TpInt:
		out := make([]int32, n)
		for i := range out {
			out[i] = c.decodeAt(raw, i*size).(int32)
		}
		return out, nil
	case TpInt64:
		out := make([]int64, n)
		for i := range out {
			out[i] = c.decodeAt(raw, i*size).(int64)
		}
		return out, nil
	case TpFloat:
		out := make([]float32, n)
		for i := range out {
			out[i] = c.decodeAt(raw, i*size).(float32)
		}
		return out, nil
	case TpDouble:
		out := make([]float64, n)
		for i := range out {
			out[i] = c.decodeAt(raw, i*size).(float64)
		}
		return out, nil
	case TpComplex:
		out := make([]complex64, n)
		for i := range out {
			out[i] = c.decodeAt(raw, i*size).(complex64)
		}
		return out, nil
	case TpDComplex:
		out := make([]complex128, n)
		for i := range out {
			out[i] = c.decodeAt(raw, i*size).(complex128)
		}
		return out, nil
	case TpString:
		out := make([]string, n)
		for i := range out {
			out[i] = c.decodeAt(raw, i*size).(string)
		}
		return out, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeTypeMismatch, "codec has no element type")
	}
}
