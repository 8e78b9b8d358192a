package table

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d3v-null/rubbl/pkg/engine"
	"github.com/d3v-null/rubbl/pkg/errors"
	"github.com/d3v-null/rubbl/pkg/glue"
)

func TestRowBufferCommitAndRead(t *testing.T) {
	tbl := createVisTable(t, 5)

	rb, err := tbl.RowWriter()
	require.NoError(t, err)
	assert.Equal(t, []string{"TIME", "DATA"}, rb.Columns())

	data := make([]complex64, 32*4)
	for i := range data {
		data[i] = complex(float32(i), -1)
	}
	arr, err := glue.NewArray([]int{32, 4}, data)
	require.NoError(t, err)

	require.NoError(t, rb.PutCell("TIME", 123.5))
	require.NoError(t, rb.PutCell("DATA", arr))
	require.NoError(t, rb.Put(2))

	// the same staged values commit to another row unchanged
	require.NoError(t, rb.Put(4))

	for _, row := range []int{2, 4} {
		v, err := tbl.GetCell("TIME", row)
		require.NoError(t, err)
		assert.Equal(t, 123.5, v)

		got, err := tbl.ReadRow(row)
		require.NoError(t, err)
		v, ok := got.Get("TIME")
		require.True(t, ok)
		assert.Equal(t, 123.5, v)
		dv, ok := got.Get("DATA")
		require.True(t, ok)
		assert.Equal(t, data, dv.(*glue.Array).Data)
	}
}

func TestRowBufferPartialStaging(t *testing.T) {
	tbl := createVisTable(t, 3)

	rb, err := tbl.RowWriter()
	require.NoError(t, err)
	require.NoError(t, rb.PutCell("TIME", 1.0))
	require.NoError(t, rb.Put(0))

	// DATA was never staged, so it stays undefined
	defined, err := tbl.CellDefined("DATA", 0)
	require.NoError(t, err)
	assert.False(t, defined)
	defined, err = tbl.CellDefined("TIME", 0)
	require.NoError(t, err)
	assert.True(t, defined)
}

func TestRowBufferValidatesEagerly(t *testing.T) {
	tbl := createVisTable(t, 3)

	rb, err := tbl.RowWriter()
	require.NoError(t, err)

	err = rb.PutCell("WEIGHT", 1.0)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNoSuchColumn))

	err = rb.PutCell("TIME", int32(1))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTypeMismatch))

	wrong, err := glue.NewArray([]int{16, 4}, make([]complex64, 16*4))
	require.NoError(t, err)
	err = rb.PutCell("DATA", wrong)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeShapeMismatch))

	// nothing doomed was staged
	_, ok := rb.Get("TIME")
	assert.False(t, ok)
	_, ok = rb.Get("DATA")
	assert.False(t, ok)
}

func TestRowBufferRowBounds(t *testing.T) {
	tbl := createVisTable(t, 3)

	rb, err := tbl.RowWriter()
	require.NoError(t, err)
	require.NoError(t, rb.PutCell("TIME", 1.0))

	err = rb.Put(3)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRowIndex))

	_, err = tbl.ReadRow(-1)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRowIndex))
}

func TestRowBufferClear(t *testing.T) {
	tbl := createVisTable(t, 3)

	rb, err := tbl.RowWriter()
	require.NoError(t, err)
	require.NoError(t, rb.PutCell("TIME", 1.0))
	rb.Clear()
	_, ok := rb.Get("TIME")
	assert.False(t, ok)

	// committing an empty buffer writes nothing
	require.NoError(t, rb.Put(0))
	defined, err := tbl.CellDefined("TIME", 0)
	require.NoError(t, err)
	assert.False(t, defined)
}

// failingEngine wraps a real engine but makes writes to one named column
// fail, to exercise the partial-row-write path.
type failingEngine struct {
	engine.Engine
	failColumn string
}

func (e *failingEngine) CreateTable(path string, schema engine.TableSchema, rows int) (engine.Table, error) {
	tbl, err := e.Engine.CreateTable(path, schema, rows)
	if err != nil {
		return nil, err
	}
	return &failingTable{Table: tbl, failColumn: e.failColumn}, nil
}

type failingTable struct {
	engine.Table
	failColumn string
}

func (t *failingTable) BindColumn(name string) (engine.Column, error) {
	col, err := t.Table.BindColumn(name)
	if err != nil {
		return nil, err
	}
	if name == t.failColumn {
		return &failingColumn{Column: col}, nil
	}
	return col, nil
}

type failingColumn struct {
	engine.Column
}

func (c *failingColumn) PutCell(row int, extents []int, raw []byte) error {
	return errors.New(errors.ErrorTypeColumnWrite, "injected write failure")
}

func TestRowBufferPartialRowWrite(t *testing.T) {
	eng := &failingEngine{Engine: newTestEngine(t), failColumn: "DATA"}
	tbl, err := New(filepath.Join(t.TempDir(), "partial"), visDescription(t), 3, eng)
	require.NoError(t, err)
	defer tbl.Close()

	rb, err := tbl.RowWriter()
	require.NoError(t, err)

	arr, err := glue.NewArray([]int{32, 4}, make([]complex64, 32*4))
	require.NoError(t, err)
	require.NoError(t, rb.PutCell("TIME", 9.5))
	require.NoError(t, rb.PutCell("DATA", arr))

	err = rb.Put(1)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypePartialRowWrite))

	var prw *PartialRowWriteError
	require.ErrorAs(t, err, &prw)
	assert.Equal(t, 1, prw.Row)
	assert.Equal(t, "DATA", prw.FailedColumn)
	assert.Equal(t, []string{"TIME"}, prw.Succeeded)

	// the committed column stays written
	v, gerr := tbl.GetCell("TIME", 1)
	require.NoError(t, gerr)
	assert.Equal(t, 9.5, v)

	// staged contents survive for retry
	_, ok := rb.Get("TIME")
	assert.True(t, ok)
	_, ok = rb.Get("DATA")
	assert.True(t, ok)
}
