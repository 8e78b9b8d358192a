package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d3v-null/rubbl/pkg/errors"
	"github.com/d3v-null/rubbl/pkg/glue"
)

func TestCacheResolveBindsOnce(t *testing.T) {
	tbl := createVisTable(t, 2)

	h1, err := tbl.cache.resolve(tbl, "TIME", glue.TpDouble)
	require.NoError(t, err)
	h2, err := tbl.cache.resolve(tbl, "TIME", glue.TpDouble)
	require.NoError(t, err)
	assert.Same(t, h1, h2)
}

// The type expectation is checked on every resolve, cache hits included: a
// caller whose assumption about a column drifts gets a type mismatch, never
// a handle of the wrong type.
func TestCacheHitRevalidatesType(t *testing.T) {
	tbl := createVisTable(t, 2)

	_, err := tbl.cache.resolve(tbl, "TIME", glue.TpDouble)
	require.NoError(t, err)

	_, err = tbl.cache.resolve(tbl, "TIME", glue.TpInt)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTypeMismatch))

	// TpAny skips the check
	h, err := tbl.cache.resolve(tbl, "TIME", glue.TpAny)
	require.NoError(t, err)
	assert.Equal(t, glue.TpDouble, h.DataType())
}

func TestCacheMissWithWrongExpectationDoesNotPoison(t *testing.T) {
	tbl := createVisTable(t, 2)

	_, err := tbl.cache.resolve(tbl, "TIME", glue.TpInt)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTypeMismatch))

	// a failed expectation is not cached; the right one still works
	h, err := tbl.cache.resolve(tbl, "TIME", glue.TpDouble)
	require.NoError(t, err)
	assert.Equal(t, "TIME", h.Name())
}

func TestCacheInvalidatedOnClose(t *testing.T) {
	tbl := createVisTable(t, 2)

	_, err := tbl.cache.resolve(tbl, "TIME", glue.TpAny)
	require.NoError(t, err)
	require.NoError(t, tbl.Close())
	assert.Empty(t, tbl.cache.handles)
}
