package table

import (
	"github.com/d3v-null/rubbl/pkg/engine"
	"github.com/d3v-null/rubbl/pkg/errors"
	"github.com/d3v-null/rubbl/pkg/glue"
)

// ColumnHandle is a bound reference to one column's engine-side storage
// object plus its resolved type and shape. Handles are owned by the table
// that resolved them and die with it; callers only ever borrow them through
// the Table façade.
type ColumnHandle struct {
	name   string
	schema engine.ColumnSchema
	codec  glue.Codec
	shape  glue.Shape
	col    engine.Column
	table  *Table
}

func newColumnHandle(t *Table, col engine.Column) *ColumnHandle {
	schema := col.Schema()
	return &ColumnHandle{
		name:   schema.Name,
		schema: schema,
		codec:  schema.Codec(),
		shape:  schema.Shape,
		col:    col,
		table:  t,
	}
}

// Name returns the column name this handle is bound to.
func (h *ColumnHandle) Name() string {
	return h.name
}

// DataType returns the column's element type.
func (h *ColumnHandle) DataType() glue.DataType {
	return h.schema.Type
}

// Shape returns the column's declared cell shape.
func (h *ColumnHandle) Shape() glue.Shape {
	return h.shape
}

func (h *ColumnHandle) checkRow(row int) error {
	if row < 0 || row >= h.table.rowCount {
		return errors.Newf(errors.ErrorTypeRowIndex,
			"row %d outside table range [0, %d)", row, h.table.rowCount)
	}
	return nil
}

func (h *ColumnHandle) checkRange(start, count int) error {
	if start < 0 || count < 0 || start+count > h.table.rowCount {
		return errors.Newf(errors.ErrorTypeRowIndex,
			"row range [%d, %d) outside table range [0, %d)", start, start+count, h.table.rowCount)
	}
	return nil
}

// valueInfo classifies a candidate cell value: its element type, its extents
// (nil for scalars), and its flat element data. Flat slices stand in for
// rank-1 arrays.
func valueInfo(v interface{}) (glue.DataType, []int, interface{}, error) {
	if a, ok := v.(*glue.Array); ok {
		t, ok := a.DataType()
		if !ok {
			return glue.TpAny, nil, nil, errors.Newf(errors.ErrorTypeTypeMismatch, "unsupported array element type %T", a.Data)
		}
		return t, a.Extents, a.Data, nil
	}
	if t, n, ok := glue.SliceDataTypeOf(v); ok {
		return t, []int{n}, v, nil
	}
	if t, ok := glue.DataTypeOf(v); ok {
		return t, nil, v, nil
	}
	return glue.TpAny, nil, nil, errors.Newf(errors.ErrorTypeTypeMismatch, "unsupported cell value type %T", v)
}

// Get reads one cell. Scalar columns return the bare value; array columns
// return a *glue.Array. Reading an unwritten cell fails with a column read
// error unless the column allows undefined cells, in which case scalar and
// fixed-shape columns read as the type's zero value.
func (h *ColumnHandle) Get(row int) (interface{}, error) {
	if err := h.checkRow(row); err != nil {
		return nil, err
	}
	if !h.col.CellDefined(row) {
		if !h.schema.UndefinedAllowed || h.shape.Kind == glue.ShapeVariable {
			return nil, errors.Newf(errors.ErrorTypeColumnRead,
				"column %q cell %d is undefined", h.name, row)
		}
	}

	switch h.shape.Kind {
	case glue.ShapeScalar:
		raw, err := h.col.GetCell(row)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeColumnRead, "engine read failed for column "+h.name)
		}
		return h.codec.DecodeScalar(raw)
	case glue.ShapeFixed:
		raw, err := h.col.GetCell(row)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeColumnRead, "engine read failed for column "+h.name)
		}
		flat, err := h.codec.DecodeBuffer(raw, h.shape.NumElements())
		if err != nil {
			return nil, err
		}
		return glue.NewArray(h.shape.Extents, flat)
	default:
		extents, err := h.col.CellShape(row)
		if err != nil {
			return nil, err
		}
		raw, err := h.col.GetCell(row)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeColumnRead, "engine read failed for column "+h.name)
		}
		flat, err := h.codec.DecodeBuffer(raw, glue.NumElementsOf(extents))
		if err != nil {
			return nil, err
		}
		return glue.NewArray(extents, flat)
	}
}

// CellShape returns the extents of the cell at row; for variable-shape
// columns the engine is the source of truth for what was stored.
func (h *ColumnHandle) CellShape(row int) ([]int, error) {
	if err := h.checkRow(row); err != nil {
		return nil, err
	}
	return h.col.CellShape(row)
}

// CellDefined reports whether the cell at row has been written.
func (h *ColumnHandle) CellDefined(row int) (bool, error) {
	if err := h.checkRow(row); err != nil {
		return false, err
	}
	return h.col.CellDefined(row), nil
}

// Put writes one cell. The value's element type must match the column's and
// its shape must satisfy the column's shape policy; on success the write is
// immediately visible to subsequent reads through any handle on this table.
func (h *ColumnHandle) Put(row int, v interface{}) error {
	if err := h.checkRow(row); err != nil {
		return err
	}
	dtype, extents, flat, err := valueInfo(v)
	if err != nil {
		return err
	}
	if dtype != h.schema.Type {
		return errors.Newf(errors.ErrorTypeTypeMismatch,
			"column %q holds %s, value is %s", h.name, h.schema.Type, dtype)
	}
	if err := h.shape.Accepts(extents); err != nil {
		return err
	}

	var raw []byte
	if h.shape.Kind == glue.ShapeScalar {
		raw, err = h.codec.EncodeScalar(flat)
	} else {
		raw, err = h.codec.EncodeBuffer(flat)
	}
	if err != nil {
		return err
	}
	if err := h.col.PutCell(row, extents, raw); err != nil {
		return errors.Wrap(err, errors.ErrorTypeColumnWrite, "engine write failed for column "+h.name)
	}
	return nil
}

// GetRange reads count contiguous cells starting at start as one flat slice
// of the column's element type. Fixed-shape array cells are returned
// back-to-back in row-major order. Only scalar and fixed-shape columns
// support ranges.
func (h *ColumnHandle) GetRange(start, count int) (interface{}, error) {
	if err := h.checkRange(start, count); err != nil {
		return nil, err
	}
	if h.shape.Kind == glue.ShapeVariable {
		return nil, errors.Newf(errors.ErrorTypeShapeMismatch,
			"column %q has variable cell shape, range reads need a fixed one", h.name)
	}
	if !h.schema.UndefinedAllowed {
		for row := start; row < start+count; row++ {
			if !h.col.CellDefined(row) {
				return nil, errors.Newf(errors.ErrorTypeColumnRead,
					"column %q cell %d is undefined", h.name, row)
			}
		}
	}
	raw, err := h.col.GetRange(start, count)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeColumnRead, "engine range read failed for column "+h.name)
	}
	return h.codec.DecodeBuffer(raw, count*h.shape.NumElements())
}

// PutRange writes contiguous cells starting at start from one flat slice,
// the fixed-shape fast path: cells are laid out back-to-back with the
// declared per-cell extents and no per-row shape argument. Semantically
// equivalent to the corresponding sequence of Put calls.
func (h *ColumnHandle) PutRange(start int, values interface{}) error {
	dtype, n, ok := glue.SliceDataTypeOf(values)
	if !ok {
		return errors.Newf(errors.ErrorTypeTypeMismatch, "unsupported buffer type %T", values)
	}
	if dtype != h.schema.Type {
		return errors.Newf(errors.ErrorTypeTypeMismatch,
			"column %q holds %s, buffer has %s elements", h.name, h.schema.Type, dtype)
	}
	if h.shape.Kind == glue.ShapeVariable {
		return errors.Newf(errors.ErrorTypeShapeMismatch,
			"column %q has variable cell shape, range writes need a fixed one", h.name)
	}
	perCell := h.shape.NumElements()
	if n%perCell != 0 {
		return errors.Newf(errors.ErrorTypeShapeMismatch,
			"buffer of %d elements is not a whole number of %v cells", n, h.shape)
	}
	count := n / perCell
	if err := h.checkRange(start, count); err != nil {
		return err
	}
	raw, err := h.codec.EncodeBuffer(values)
	if err != nil {
		return err
	}
	if err := h.col.PutRange(start, count, raw); err != nil {
		return errors.Wrap(err, errors.ErrorTypeColumnWrite, "engine range write failed for column "+h.name)
	}
	return nil
}
