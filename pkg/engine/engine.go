// Package engine defines the boundary to the columnar storage engine: table
// creation and open, row bookkeeping, and raw get/put of row ranges for a
// named column. Everything above this boundary works in typed values;
// everything below it works in contiguous raw buffers.
package engine

import "github.com/d3v-null/rubbl/pkg/glue"

// OpenMode selects how an existing table is opened.
type OpenMode int

const (
	// OpenReadOnly opens a table for reading; mutation is rejected.
	OpenReadOnly OpenMode = iota + 1
	// OpenReadWrite opens a table for reading and writing.
	OpenReadWrite
)

func (m OpenMode) String() string {
	switch m {
	case OpenReadOnly:
		return "read-only"
	case OpenReadWrite:
		return "read-write"
	default:
		return "unknown"
	}
}

// ColumnSchema is one column definition as the engine records it.
type ColumnSchema struct {
	Name string `json:"name"`
	// Type is the element type every cell of the column holds.
	Type glue.DataType `json:"type"`
	// StringWidth is the fixed byte width of string cells; meaningful only
	// when Type is TpString.
	StringWidth int        `json:"string_width,omitempty"`
	Shape       glue.Shape `json:"shape"`
	Comment     string     `json:"comment,omitempty"`
	// Direct asks the engine to co-locate cell storage with the row rather
	// than indirect through a separate region. Purely an engine concern.
	Direct bool `json:"direct,omitempty"`
	// UndefinedAllowed permits cells to be read before they are written;
	// such reads yield the type's zero value.
	UndefinedAllowed bool `json:"undefined_allowed,omitempty"`
}

// Codec returns the value codec for this column's element type.
func (c ColumnSchema) Codec() glue.Codec {
	if c.Type == glue.TpString {
		return glue.NewStringCodec(c.StringWidth)
	}
	return glue.NewCodec(c.Type)
}

// CellSize returns the raw byte size of one cell, or 0 for variable-shape
// columns, whose cell size is a per-row property.
func (c ColumnSchema) CellSize() int {
	if c.Shape.Kind == glue.ShapeVariable {
		return 0
	}
	return c.Shape.NumElements() * c.Codec().ElementSize()
}

// TableSchema is the ordered set of column definitions a table was created
// with.
type TableSchema struct {
	Columns []ColumnSchema `json:"columns"`
}

// Column returns the definition of the named column.
func (s TableSchema) Column(name string) (ColumnSchema, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSchema{}, false
}

// Engine is the storage engine entry point.
//
// Errors returned by implementations carry the categories of pkg/errors:
// ErrorTypeSchema from CreateTable, ErrorTypeOpen from OpenTable.
type Engine interface {
	// CreateTable materializes a new table at path from the schema, with
	// initialRows uninitialized rows.
	CreateTable(path string, schema TableSchema, initialRows int) (Table, error)
	// OpenTable binds to an existing table.
	OpenTable(path string, mode OpenMode) (Table, error)
}

// Table is an open engine-side table.
type Table interface {
	Schema() TableSchema
	NumRows() int
	NumColumns() int
	// AddRows appends n uninitialized rows. New rows read as undefined for
	// every column until written.
	AddRows(n int) error
	// BindColumn resolves a column name to its storage object. Fails with
	// ErrorTypeNoSuchColumn if the table has no such column. Binding is the
	// expensive step this layer's handle cache exists to amortize.
	BindColumn(name string) (Column, error)
	// Close releases the table. For writable tables the engine flushes all
	// column data durably before returning.
	Close() error
}

// Column is a bound engine-side column storage object. Row indices are
// zero-based; the caller is responsible for bounds checks against the
// table's row count.
type Column interface {
	Schema() ColumnSchema
	// CellDefined reports whether the cell at row has been written.
	CellDefined(row int) bool
	// CellShape returns the extents of the cell at row. Fixed-shape and
	// scalar columns report their declared shape; variable-shape columns
	// report what the last put recorded, failing with ErrorTypeColumnRead
	// for undefined cells.
	CellShape(row int) ([]int, error)
	// GetCell reads the raw encoding of one cell.
	GetCell(row int) ([]byte, error)
	// PutCell writes the raw encoding of one cell. For variable-shape
	// columns extents records the cell's per-axis extents; other columns
	// ignore it.
	PutCell(row int, extents []int, raw []byte) error
	// GetRange reads count contiguous cells starting at start as one raw
	// buffer. Only scalar and fixed-shape columns support ranges.
	GetRange(start, count int) ([]byte, error)
	// PutRange writes count contiguous cells starting at start from one raw
	// buffer, back-to-back in row-major order.
	PutRange(start, count int, raw []byte) error
}
