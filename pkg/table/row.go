package table

import (
	"fmt"

	"github.com/d3v-null/rubbl/pkg/errors"
	"github.com/d3v-null/rubbl/pkg/glue"
)

// PartialRowWriteError reports a row commit that failed part way through:
// columns in Succeeded were written to the engine and are not rolled back,
// the failed column and everything after it were not. The buffer's staged
// contents are left intact so the caller can retry the remainder or abandon
// the row.
type PartialRowWriteError struct {
	Row          int
	FailedColumn string
	Succeeded    []string
	err          error
}

func newPartialRowWriteError(row int, failed string, succeeded []string, cause error) *PartialRowWriteError {
	return &PartialRowWriteError{
		Row:          row,
		FailedColumn: failed,
		Succeeded:    succeeded,
		err: errors.Wrap(cause, errors.ErrorTypePartialRowWrite,
			fmt.Sprintf("row %d commit failed at column %q after %d column(s)", row, failed, len(succeeded))),
	}
}

func (e *PartialRowWriteError) Error() string {
	return e.err.Error()
}

func (e *PartialRowWriteError) Unwrap() error {
	return e.err
}

// RowBuffer stages values for every column of one logical row so they can be
// committed in a single call, or reads a whole row in one call. It binds a
// fixed set of column handles at creation and is reused across rows; it is
// exclusively owned by the table that created it.
type RowBuffer struct {
	table   *Table
	order   []string
	handles map[string]*ColumnHandle
	staged  map[string]interface{}
}

func newRowBuffer(t *Table) (*RowBuffer, error) {
	schema := t.eng.Schema()
	rb := &RowBuffer{
		table:   t,
		order:   make([]string, 0, len(schema.Columns)),
		handles: make(map[string]*ColumnHandle, len(schema.Columns)),
		staged:  make(map[string]interface{}, len(schema.Columns)),
	}
	for _, cs := range schema.Columns {
		h, err := t.cache.resolve(t, cs.Name, glue.TpAny)
		if err != nil {
			return nil, err
		}
		rb.order = append(rb.order, cs.Name)
		rb.handles[cs.Name] = h
	}
	return rb, nil
}

// PutCell stages a value for one column in memory; the engine is not
// touched. Type and shape are checked against the column immediately so a
// doomed value fails here instead of mid-commit.
func (r *RowBuffer) PutCell(name string, v interface{}) error {
	h, ok := r.handles[name]
	if !ok {
		return errors.Newf(errors.ErrorTypeNoSuchColumn, "table has no column %q", name)
	}
	dtype, extents, _, err := valueInfo(v)
	if err != nil {
		return err
	}
	if dtype != h.schema.Type {
		return errors.Newf(errors.ErrorTypeTypeMismatch,
			"column %q holds %s, value is %s", name, h.schema.Type, dtype)
	}
	if err := h.shape.Accepts(extents); err != nil {
		return err
	}
	r.staged[name] = v
	return nil
}

// Get returns the staged value for a column, if any.
func (r *RowBuffer) Get(name string) (interface{}, bool) {
	v, ok := r.staged[name]
	return v, ok
}

// Columns returns the table's column names in declared order.
func (r *RowBuffer) Columns() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Clear drops every staged value.
func (r *RowBuffer) Clear() {
	for k := range r.staged {
		delete(r.staged, k)
	}
}

// Put commits every staged value to the given row, one column write per
// staged column in declared order. If a write fails, columns committed
// earlier in this call stay written; the error is a *PartialRowWriteError
// naming them, and the staged contents are left intact for retry.
func (r *RowBuffer) Put(row int) error {
	if err := r.table.checkOpen(); err != nil {
		return err
	}
	if row < 0 || row >= r.table.rowCount {
		return errors.Newf(errors.ErrorTypeRowIndex,
			"row %d outside table range [0, %d)", row, r.table.rowCount)
	}

	var succeeded []string
	for _, name := range r.order {
		v, ok := r.staged[name]
		if !ok {
			continue
		}
		if err := r.handles[name].Put(row, v); err != nil {
			return newPartialRowWriteError(row, name, succeeded, err)
		}
		succeeded = append(succeeded, name)
	}
	return nil
}

// Read fills the buffer with every column's value at the given row,
// replacing whatever was staged. Cells that are undefined on columns
// permitting that are staged as absent.
func (r *RowBuffer) Read(row int) error {
	if err := r.table.checkOpen(); err != nil {
		return err
	}
	if row < 0 || row >= r.table.rowCount {
		return errors.Newf(errors.ErrorTypeRowIndex,
			"row %d outside table range [0, %d)", row, r.table.rowCount)
	}

	r.Clear()
	for _, name := range r.order {
		h := r.handles[name]
		if h.schema.UndefinedAllowed && !h.col.CellDefined(row) && h.shape.Kind == glue.ShapeVariable {
			continue
		}
		v, err := h.Get(row)
		if err != nil {
			return err
		}
		r.staged[name] = v
	}
	return nil
}
