package table

import (
	"go.uber.org/zap"

	"github.com/d3v-null/rubbl/pkg/engine"
	"github.com/d3v-null/rubbl/pkg/errors"
	"github.com/d3v-null/rubbl/pkg/glue"
	"github.com/d3v-null/rubbl/pkg/logger"
)

// Table is the façade over one open engine-side table: it owns the row
// count, the column handle cache, and the row buffer used for row-oriented
// access. A Table value is not safe for concurrent use; callers serialize
// access or open distinct Table values.
type Table struct {
	path     string
	eng      engine.Table
	mode     engine.OpenMode
	rowCount int
	cache    *columnCache
	log      *zap.Logger
	closed   bool
}

// New creates a table at path from the description, with initialRows
// uninitialized rows, and returns it open for reading and writing. The
// description is consumed; reusing it fails.
func New(path string, desc *TableDescription, initialRows int, eng engine.Engine) (*Table, error) {
	schema, err := desc.schema()
	if err != nil {
		return nil, err
	}
	engTable, err := eng.CreateTable(path, schema, initialRows)
	if err != nil {
		return nil, err
	}
	return wrap(path, engTable, engine.OpenReadWrite), nil
}

// Open binds to an existing table at path. Row and column counts are read
// from the engine at open time and only change through AddRows on this
// value.
func Open(path string, mode engine.OpenMode, eng engine.Engine) (*Table, error) {
	engTable, err := eng.OpenTable(path, mode)
	if err != nil {
		return nil, err
	}
	return wrap(path, engTable, mode), nil
}

func wrap(path string, engTable engine.Table, mode engine.OpenMode) *Table {
	return &Table{
		path:     path,
		eng:      engTable,
		mode:     mode,
		rowCount: engTable.NumRows(),
		cache:    newColumnCache(),
		log:      logger.With(zap.String("table_path", path)),
	}
}

func (t *Table) checkOpen() error {
	if t.closed {
		return errors.Newf(errors.ErrorTypeClosed, "table at %q is closed", t.path)
	}
	return nil
}

// bindColumn asks the engine to resolve a column name, the round trip the
// handle cache exists to avoid repeating.
func (t *Table) bindColumn(name string) (*ColumnHandle, error) {
	col, err := t.eng.BindColumn(name)
	if err != nil {
		return nil, err
	}
	return newColumnHandle(t, col), nil
}

// Path returns the table's location.
func (t *Table) Path() string {
	return t.path
}

// NumRows returns the table's current row count.
func (t *Table) NumRows() int {
	return t.rowCount
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return t.eng.NumColumns()
}

// ColumnNames returns the column names in declared order.
func (t *Table) ColumnNames() []string {
	schema := t.eng.Schema()
	names := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		names[i] = c.Name
	}
	return names
}

// Schema returns the table's column definitions as the engine records them.
func (t *Table) Schema() engine.TableSchema {
	return t.eng.Schema()
}

// AddRows appends n uninitialized rows. New rows read as undefined for every
// column until written.
func (t *Table) AddRows(n int) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	if n < 0 {
		return errors.Newf(errors.ErrorTypeEngine, "cannot add %d rows", n)
	}
	if err := t.eng.AddRows(n); err != nil {
		return err
	}
	t.rowCount += n
	return nil
}

// GetCell reads one cell, resolving the column by name on every call. This
// is the baseline access path; GetCells and the cached put path exist to
// beat it.
func (t *Table) GetCell(name string, row int) (interface{}, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	h, err := t.bindColumn(name)
	if err != nil {
		return nil, err
	}
	return h.Get(row)
}

// PutCell writes one cell, resolving the column by name on every call.
func (t *Table) PutCell(name string, row int, v interface{}) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	h, err := t.bindColumn(name)
	if err != nil {
		return err
	}
	if dtype, _, _, err := valueInfo(v); err != nil {
		return err
	} else if err := checkExpectedType(h, dtype); err != nil {
		return err
	}
	return h.Put(row, v)
}

// PutCellCached is PutCell reusing a previously resolved handle when the
// same column name was used earlier in this table's lifetime. Behaviorally
// identical to PutCell; only the per-call resolution cost differs.
func (t *Table) PutCellCached(name string, row int, v interface{}) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	dtype, _, _, err := valueInfo(v)
	if err != nil {
		return err
	}
	h, err := t.cache.resolve(t, name, dtype)
	if err != nil {
		return err
	}
	return h.Put(row, v)
}

// GetCellCached is GetCell through the handle cache.
func (t *Table) GetCellCached(name string, row int) (interface{}, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	h, err := t.cache.resolve(t, name, glue.TpAny)
	if err != nil {
		return nil, err
	}
	return h.Get(row)
}

// GetCellShape returns the extents of the cell at row. For variable-shape
// columns the engine reports what the last write recorded; nothing in this
// layer remembers per-row shapes.
func (t *Table) GetCellShape(name string, row int) ([]int, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	h, err := t.cache.resolve(t, name, glue.TpAny)
	if err != nil {
		return nil, err
	}
	return h.CellShape(row)
}

// CellDefined reports whether the cell at row has been written.
func (t *Table) CellDefined(name string, row int) (bool, error) {
	if err := t.checkOpen(); err != nil {
		return false, err
	}
	h, err := t.cache.resolve(t, name, glue.TpAny)
	if err != nil {
		return false, err
	}
	return h.CellDefined(row)
}

// GetCells reads count contiguous rows of a column starting at start as one
// flat slice, in one engine call.
func (t *Table) GetCells(name string, start, count int) (interface{}, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	h, err := t.cache.resolve(t, name, glue.TpAny)
	if err != nil {
		return nil, err
	}
	return h.GetRange(start, count)
}

// PutCells writes contiguous rows of a column starting at start from one
// flat slice, in one engine call. Equivalent to the corresponding sequence
// of PutCell calls, differing only in call count.
func (t *Table) PutCells(name string, start int, values interface{}) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	dtype, _, ok := glue.SliceDataTypeOf(values)
	if !ok {
		return errors.Newf(errors.ErrorTypeTypeMismatch, "unsupported buffer type %T", values)
	}
	h, err := t.cache.resolve(t, name, dtype)
	if err != nil {
		return err
	}
	return h.PutRange(start, values)
}

// GetColumn reads every row of a column as one flat slice.
func (t *Table) GetColumn(name string) (interface{}, error) {
	return t.GetCells(name, 0, t.rowCount)
}

// PutColumn writes every row of a column from one flat slice whose row
// dimension must equal the table's current row count.
func (t *Table) PutColumn(name string, values interface{}) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	dtype, n, ok := glue.SliceDataTypeOf(values)
	if !ok {
		return errors.Newf(errors.ErrorTypeTypeMismatch, "unsupported buffer type %T", values)
	}
	h, err := t.cache.resolve(t, name, dtype)
	if err != nil {
		return err
	}
	perCell := h.shape.NumElements()
	if h.shape.Kind == glue.ShapeVariable {
		return errors.Newf(errors.ErrorTypeShapeMismatch,
			"column %q has variable cell shape, full-column writes need a fixed one", name)
	}
	if n != t.rowCount*perCell {
		return errors.Newf(errors.ErrorTypeRowCount,
			"buffer holds %d rows, table has %d", n/perCell, t.rowCount)
	}
	return h.PutRange(0, values)
}

// RowWriter returns a row buffer with handles bound for every column,
// ready for staging one row's values and committing them with Put.
func (t *Table) RowWriter() (*RowBuffer, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	return newRowBuffer(t)
}

// ReadRow reads every column's value at row into a fresh row buffer.
func (t *Table) ReadRow(row int) (*RowBuffer, error) {
	rb, err := t.RowWriter()
	if err != nil {
		return nil, err
	}
	if err := rb.Read(row); err != nil {
		return nil, err
	}
	return rb, nil
}

// Close releases the table. Every column handle resolved through this table
// is invalidated; for writable tables the engine flushes durably first.
func (t *Table) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	t.cache.invalidate()
	err := t.eng.Close()
	if err != nil {
		t.log.Error("table close failed", zap.Error(err))
		return err
	}
	return nil
}
