package local

import (
	"bytes"
	"encoding/binary"

	"github.com/d3v-null/rubbl/pkg/engine"
	"github.com/d3v-null/rubbl/pkg/errors"
	"github.com/d3v-null/rubbl/pkg/glue"
)

// column holds one column's cells in memory. Scalar and fixed-shape columns
// keep cells in a single contiguous buffer; variable-shape columns keep one
// payload and one set of extents per row.
type column struct {
	schema   engine.ColumnSchema
	cellSize int // 0 for variable-shape columns
	readOnly *bool

	// fixed layout
	data    []byte
	defined []bool

	// variable layout
	varCells   [][]byte
	varExtents [][]int
}

func newColumn(schema engine.ColumnSchema, rows int, readOnly *bool) *column {
	c := &column{
		schema:   schema,
		cellSize: schema.CellSize(),
		readOnly: readOnly,
	}
	c.grow(rows)
	return c
}

func (c *column) rows() int {
	return len(c.defined)
}

func (c *column) grow(n int) {
	c.defined = append(c.defined, make([]bool, n)...)
	if c.schema.Shape.Kind == glue.ShapeVariable {
		c.varCells = append(c.varCells, make([][]byte, n)...)
		c.varExtents = append(c.varExtents, make([][]int, n)...)
	} else {
		c.data = append(c.data, make([]byte, n*c.cellSize)...)
	}
}

func (c *column) Schema() engine.ColumnSchema {
	return c.schema
}

func (c *column) CellDefined(row int) bool {
	if row < 0 || row >= c.rows() {
		return false
	}
	return c.defined[row]
}

func (c *column) CellShape(row int) ([]int, error) {
	if c.schema.Shape.Kind != glue.ShapeVariable {
		ext := make([]int, len(c.schema.Shape.Extents))
		copy(ext, c.schema.Shape.Extents)
		return ext, nil
	}
	if row < 0 || row >= c.rows() || !c.defined[row] {
		return nil, errors.Newf(errors.ErrorTypeColumnRead,
			"column %q has no recorded shape for row %d", c.schema.Name, row)
	}
	ext := make([]int, len(c.varExtents[row]))
	copy(ext, c.varExtents[row])
	return ext, nil
}

func (c *column) GetCell(row int) ([]byte, error) {
	if row < 0 || row >= c.rows() {
		return nil, errors.Newf(errors.ErrorTypeColumnRead,
			"column %q row %d outside stored range", c.schema.Name, row)
	}
	if c.schema.Shape.Kind == glue.ShapeVariable {
		if !c.defined[row] {
			return nil, errors.Newf(errors.ErrorTypeColumnRead,
				"column %q cell %d is undefined", c.schema.Name, row)
		}
		out := make([]byte, len(c.varCells[row]))
		copy(out, c.varCells[row])
		return out, nil
	}
	out := make([]byte, c.cellSize)
	copy(out, c.data[row*c.cellSize:(row+1)*c.cellSize])
	return out, nil
}

func (c *column) PutCell(row int, extents []int, raw []byte) error {
	if *c.readOnly {
		return errors.Newf(errors.ErrorTypeColumnWrite,
			"column %q belongs to a read-only table", c.schema.Name)
	}
	if row < 0 || row >= c.rows() {
		return errors.Newf(errors.ErrorTypeColumnWrite,
			"column %q row %d outside stored range", c.schema.Name, row)
	}
	if c.schema.Shape.Kind == glue.ShapeVariable {
		elemSize := c.schema.Codec().ElementSize()
		if want := glue.NumElementsOf(extents) * elemSize; len(raw) != want {
			return errors.Newf(errors.ErrorTypeColumnWrite,
				"column %q cell of shape %v needs %d bytes, got %d", c.schema.Name, extents, want, len(raw))
		}
		c.varCells[row] = append([]byte(nil), raw...)
		c.varExtents[row] = append([]int(nil), extents...)
		c.defined[row] = true
		return nil
	}
	if len(raw) != c.cellSize {
		return errors.Newf(errors.ErrorTypeColumnWrite,
			"column %q cell is %d bytes, got %d", c.schema.Name, c.cellSize, len(raw))
	}
	copy(c.data[row*c.cellSize:], raw)
	c.defined[row] = true
	return nil
}

func (c *column) GetRange(start, count int) ([]byte, error) {
	if c.schema.Shape.Kind == glue.ShapeVariable {
		return nil, errors.Newf(errors.ErrorTypeColumnRead,
			"column %q has variable cell shape, range reads need a fixed one", c.schema.Name)
	}
	if start < 0 || count < 0 || start+count > c.rows() {
		return nil, errors.Newf(errors.ErrorTypeColumnRead,
			"column %q range [%d, %d) outside stored range", c.schema.Name, start, start+count)
	}
	out := make([]byte, count*c.cellSize)
	copy(out, c.data[start*c.cellSize:(start+count)*c.cellSize])
	return out, nil
}

func (c *column) PutRange(start, count int, raw []byte) error {
	if *c.readOnly {
		return errors.Newf(errors.ErrorTypeColumnWrite,
			"column %q belongs to a read-only table", c.schema.Name)
	}
	if c.schema.Shape.Kind == glue.ShapeVariable {
		return errors.Newf(errors.ErrorTypeColumnWrite,
			"column %q has variable cell shape, range writes need a fixed one", c.schema.Name)
	}
	if start < 0 || count < 0 || start+count > c.rows() {
		return errors.Newf(errors.ErrorTypeColumnWrite,
			"column %q range [%d, %d) outside stored range", c.schema.Name, start, start+count)
	}
	if len(raw) != count*c.cellSize {
		return errors.Newf(errors.ErrorTypeColumnWrite,
			"column %q range of %d cells needs %d bytes, got %d", c.schema.Name, count, count*c.cellSize, len(raw))
	}
	copy(c.data[start*c.cellSize:], raw)
	for i := start; i < start+count; i++ {
		c.defined[i] = true
	}
	return nil
}

// marshal serializes the column's cells into the payload stored inside its
// column file.
func (c *column) marshal() []byte {
	var buf bytes.Buffer
	var scratch [8]byte

	putUint64 := func(v uint64) {
		binary.LittleEndian.PutUint64(scratch[:], v)
		buf.Write(scratch[:])
	}

	putUint64(uint64(c.rows()))
	for _, d := range c.defined {
		if d {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	}

	if c.schema.Shape.Kind != glue.ShapeVariable {
		buf.Write(c.data)
		return buf.Bytes()
	}

	for row := 0; row < c.rows(); row++ {
		if !c.defined[row] {
			continue
		}
		for _, e := range c.varExtents[row] {
			putUint64(uint64(e))
		}
		putUint64(uint64(len(c.varCells[row])))
		buf.Write(c.varCells[row])
	}
	return buf.Bytes()
}

// unmarshal restores a column from its stored payload.
func (c *column) unmarshal(payload []byte) error {
	corrupt := func() error {
		return errors.Newf(errors.ErrorTypeOpen, "column file for %q is truncated", c.schema.Name)
	}

	off := 0
	next := func(n int) ([]byte, bool) {
		if n < 0 || n > len(payload)-off {
			return nil, false
		}
		b := payload[off : off+n]
		off += n
		return b, true
	}

	b, ok := next(8)
	if !ok {
		return corrupt()
	}
	rows := int(binary.LittleEndian.Uint64(b))
	// The defined flags take one byte per row, so a row count beyond the
	// payload size can only come from a corrupt file. Rejecting it here
	// keeps the counts below from allocating or overflowing.
	if rows < 0 || rows > len(payload) {
		return corrupt()
	}

	c.defined = make([]bool, rows)
	flags, ok := next(rows)
	if !ok {
		return corrupt()
	}
	for i, f := range flags {
		c.defined[i] = f != 0
	}

	if c.schema.Shape.Kind != glue.ShapeVariable {
		data, ok := next(rows * c.cellSize)
		if !ok {
			return corrupt()
		}
		c.data = append([]byte(nil), data...)
		return nil
	}

	rank := c.schema.Shape.Rank
	c.varCells = make([][]byte, rows)
	c.varExtents = make([][]int, rows)
	for row := 0; row < rows; row++ {
		if !c.defined[row] {
			continue
		}
		extents := make([]int, rank)
		for i := range extents {
			b, ok := next(8)
			if !ok {
				return corrupt()
			}
			extents[i] = int(binary.LittleEndian.Uint64(b))
		}
		b, ok := next(8)
		if !ok {
			return corrupt()
		}
		cell, ok := next(int(binary.LittleEndian.Uint64(b)))
		if !ok {
			return corrupt()
		}
		c.varExtents[row] = extents
		c.varCells[row] = append([]byte(nil), cell...)
	}
	return nil
}
