package table

import (
	"github.com/d3v-null/rubbl/pkg/errors"
	"github.com/d3v-null/rubbl/pkg/glue"
)

// columnCache maps column names to previously resolved handles. Resolving a
// name at the engine boundary is the expensive step of per-cell access;
// reusing a prior resolution turns that into an amortized map lookup. The
// cache is owned by one table and cleared when the table closes.
type columnCache struct {
	handles map[string]*ColumnHandle
}

func newColumnCache() *columnCache {
	return &columnCache{handles: make(map[string]*ColumnHandle)}
}

// resolve returns the cached handle for name, binding one through the engine
// on first use. expected is the caller's type expectation, checked on every
// call — cache hits included, to defend against a caller whose assumption
// about a column's type drifts between calls. glue.TpAny skips the check.
func (c *columnCache) resolve(t *Table, name string, expected glue.DataType) (*ColumnHandle, error) {
	if h, ok := c.handles[name]; ok {
		if err := checkExpectedType(h, expected); err != nil {
			return nil, err
		}
		return h, nil
	}

	h, err := t.bindColumn(name)
	if err != nil {
		return nil, err
	}
	if err := checkExpectedType(h, expected); err != nil {
		return nil, err
	}
	c.handles[name] = h
	return h, nil
}

func checkExpectedType(h *ColumnHandle, expected glue.DataType) error {
	if expected == glue.TpAny || expected == h.schema.Type {
		return nil
	}
	return errors.Newf(errors.ErrorTypeTypeMismatch,
		"column %q holds %s, caller expected %s", h.name, h.schema.Type, expected)
}

// invalidate drops every cached handle. Called when the underlying table
// handle becomes invalid.
func (c *columnCache) invalidate() {
	c.handles = make(map[string]*ColumnHandle)
}
