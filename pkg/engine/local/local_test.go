package local

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d3v-null/rubbl/pkg/engine"
	"github.com/d3v-null/rubbl/pkg/errors"
	"github.com/d3v-null/rubbl/pkg/glue"
	"github.com/d3v-null/rubbl/pkg/testutil"
)

func testSchema() engine.TableSchema {
	return engine.TableSchema{Columns: []engine.ColumnSchema{
		{Name: "TIME", Type: glue.TpDouble, Shape: glue.Scalar()},
		{Name: "DATA", Type: glue.TpComplex, Shape: glue.Fixed(4, 2)},
		{Name: "FLAGS", Type: glue.TpBool, Shape: glue.Variable(1), UndefinedAllowed: true},
	}}
}

func TestCreateOpenRoundTrip(t *testing.T) {
	eng := NewEngine(WithLogger(testutil.TestLogger(t)))
	path := filepath.Join(t.TempDir(), "round_trip")

	tbl, err := eng.CreateTable(path, testSchema(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, 3, tbl.NumColumns())

	timeCol, err := tbl.BindColumn("TIME")
	require.NoError(t, err)
	codec := glue.NewCodec(glue.TpDouble)
	for row := 0; row < 3; row++ {
		raw, err := codec.EncodeScalar(float64(row) * 10)
		require.NoError(t, err)
		require.NoError(t, timeCol.PutCell(row, nil, raw))
	}

	flags, err := tbl.BindColumn("FLAGS")
	require.NoError(t, err)
	require.NoError(t, flags.PutCell(1, []int{2}, []byte{1, 0}))

	require.NoError(t, tbl.Close())

	reopened, err := eng.OpenTable(path, engine.OpenReadOnly)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, 3, reopened.NumRows())
	timeCol, err = reopened.BindColumn("TIME")
	require.NoError(t, err)
	for row := 0; row < 3; row++ {
		raw, err := timeCol.GetCell(row)
		require.NoError(t, err)
		v, err := codec.DecodeScalar(raw)
		require.NoError(t, err)
		assert.Equal(t, float64(row)*10, v)
	}

	flags, err = reopened.BindColumn("FLAGS")
	require.NoError(t, err)
	assert.False(t, flags.CellDefined(0))
	assert.True(t, flags.CellDefined(1))
	ext, err := flags.CellShape(1)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, ext)
	raw, err := flags.GetCell(1)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0}, raw)
}

func TestCompressionCodecs(t *testing.T) {
	for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(string(comp), func(t *testing.T) {
			eng := NewEngine(WithCompression(comp), WithLogger(testutil.TestLogger(t)))
			path := filepath.Join(t.TempDir(), "compressed")

			tbl, err := eng.CreateTable(path, testSchema(), 16)
			require.NoError(t, err)
			col, err := tbl.BindColumn("TIME")
			require.NoError(t, err)
			codec := glue.NewCodec(glue.TpDouble)
			for row := 0; row < 16; row++ {
				raw, err := codec.EncodeScalar(float64(row))
				require.NoError(t, err)
				require.NoError(t, col.PutCell(row, nil, raw))
			}
			require.NoError(t, tbl.Close())

			reopened, err := eng.OpenTable(path, engine.OpenReadOnly)
			require.NoError(t, err)
			defer reopened.Close()
			col, err = reopened.BindColumn("TIME")
			require.NoError(t, err)
			raw, err := col.GetCell(15)
			require.NoError(t, err)
			v, err := codec.DecodeScalar(raw)
			require.NoError(t, err)
			assert.Equal(t, float64(15), v)
		})
	}
}

func TestOpenMissingTable(t *testing.T) {
	eng := NewEngine(WithLogger(testutil.TestLogger(t)))
	_, err := eng.OpenTable(filepath.Join(t.TempDir(), "nowhere"), engine.OpenReadOnly)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeOpen))
}

func TestCreateExistingTable(t *testing.T) {
	eng := NewEngine(WithLogger(testutil.TestLogger(t)))
	path := filepath.Join(t.TempDir(), "dup")

	tbl, err := eng.CreateTable(path, testSchema(), 0)
	require.NoError(t, err)
	require.NoError(t, tbl.Close())

	_, err = eng.CreateTable(path, testSchema(), 0)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeEngine))
}

func TestLockRejectsSecondWriter(t *testing.T) {
	eng := NewEngine(WithLogger(testutil.TestLogger(t)))
	path := filepath.Join(t.TempDir(), "locked")

	tbl, err := eng.CreateTable(path, testSchema(), 1)
	require.NoError(t, err)
	defer tbl.Close()

	_, err = eng.OpenTable(path, engine.OpenReadWrite)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeOpen))
	assert.Contains(t, err.Error(), "locked")
}

func TestReadOnlyRejectsMutation(t *testing.T) {
	eng := NewEngine(WithLogger(testutil.TestLogger(t)))
	path := filepath.Join(t.TempDir(), "ro")

	tbl, err := eng.CreateTable(path, testSchema(), 2)
	require.NoError(t, err)
	require.NoError(t, tbl.Close())

	ro, err := eng.OpenTable(path, engine.OpenReadOnly)
	require.NoError(t, err)
	defer ro.Close()

	err = ro.AddRows(1)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeEngine))

	col, err := ro.BindColumn("TIME")
	require.NoError(t, err)
	raw := make([]byte, 8)
	err = col.PutCell(0, nil, raw)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeColumnWrite))
}

func TestAddRowsGrowsEveryColumn(t *testing.T) {
	eng := NewEngine(WithLogger(testutil.TestLogger(t)))
	path := filepath.Join(t.TempDir(), "grow")

	tbl, err := eng.CreateTable(path, testSchema(), 2)
	require.NoError(t, err)
	defer tbl.Close()

	require.NoError(t, tbl.AddRows(3))
	assert.Equal(t, 5, tbl.NumRows())

	col, err := tbl.BindColumn("DATA")
	require.NoError(t, err)
	raw := make([]byte, 4*2*8)
	require.NoError(t, col.PutCell(4, nil, raw))

	err = col.PutCell(5, nil, raw)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeColumnWrite))
}

func TestBindColumnUnknown(t *testing.T) {
	eng := NewEngine(WithLogger(testutil.TestLogger(t)))
	path := filepath.Join(t.TempDir(), "unknown_col")

	tbl, err := eng.CreateTable(path, testSchema(), 1)
	require.NoError(t, err)
	defer tbl.Close()

	_, err = tbl.BindColumn("WEIGHT")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNoSuchColumn))
}

func TestTruncatedColumnFile(t *testing.T) {
	eng := NewEngine(WithCompression(CompressionNone), WithLogger(testutil.TestLogger(t)))
	path := filepath.Join(t.TempDir(), "truncated")

	tbl, err := eng.CreateTable(path, testSchema(), 4)
	require.NoError(t, err)
	require.NoError(t, tbl.Close())

	file := filepath.Join(path, "TIME"+columnFileExt)
	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(file, raw[:len(raw)/2], 0o644))

	_, err = eng.OpenTable(path, engine.OpenReadOnly)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeOpen))
}

func TestCorruptRowCountField(t *testing.T) {
	eng := NewEngine(WithCompression(CompressionNone), WithLogger(testutil.TestLogger(t)))
	path := filepath.Join(t.TempDir(), "corrupt_rows")

	tbl, err := eng.CreateTable(path, testSchema(), 4)
	require.NoError(t, err)
	require.NoError(t, tbl.Close())

	// overwrite the payload's row count with a value far beyond the file
	file := filepath.Join(path, "TIME"+columnFileExt)
	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	headerLen := len(columnMagic) + 2
	for i := 0; i < 8; i++ {
		raw[headerLen+i] = 0xFF
	}
	require.NoError(t, os.WriteFile(file, raw, 0o644))

	_, err = eng.OpenTable(path, engine.OpenReadOnly)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeOpen))
}

func TestRangeReadWrite(t *testing.T) {
	eng := NewEngine(WithLogger(testutil.TestLogger(t)))
	path := filepath.Join(t.TempDir(), "ranges")

	tbl, err := eng.CreateTable(path, testSchema(), 8)
	require.NoError(t, err)
	defer tbl.Close()

	col, err := tbl.BindColumn("TIME")
	require.NoError(t, err)

	codec := glue.NewCodec(glue.TpDouble)
	buf, err := codec.EncodeBuffer([]float64{1, 2, 3, 4})
	require.NoError(t, err)
	require.NoError(t, col.PutRange(2, 4, buf))

	got, err := col.GetRange(2, 4)
	require.NoError(t, err)
	assert.Equal(t, buf, got)

	for row := 0; row < 8; row++ {
		assert.Equal(t, row >= 2 && row < 6, col.CellDefined(row))
	}

	_, err = col.GetRange(5, 10)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeColumnRead))
}
