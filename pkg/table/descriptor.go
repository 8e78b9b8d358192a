// Package table is the typed access layer over the storage engine: callers
// declare a table description, create or open tables, and read or write
// per-cell, per-row, and bulk column data with strong typing. Column
// name-to-storage bindings are cached so repeated access does not pay the
// engine's name resolution cost on every call.
package table

import (
	"github.com/d3v-null/rubbl/pkg/engine"
	"github.com/d3v-null/rubbl/pkg/errors"
	"github.com/d3v-null/rubbl/pkg/glue"
)

// ColumnDescription defines one column of a table under construction.
type ColumnDescription struct {
	Name    string
	Comment string
	Type    glue.DataType
	// StringWidth is the fixed byte width of string cells; only meaningful
	// for TpString columns.
	StringWidth int
	Shape       glue.Shape
	// Direct asks the engine to co-locate cell storage with the row.
	Direct bool
	// UndefinedAllowed permits reading cells before they are written.
	UndefinedAllowed bool
}

// TableDescription is an ordered collection of named column definitions,
// built incrementally and handed to table creation exactly once. Column
// names are unique; adding a duplicate fails.
type TableDescription struct {
	columns  []ColumnDescription
	index    map[string]int
	consumed bool
}

// NewTableDescription returns an empty description.
func NewTableDescription() *TableDescription {
	return &TableDescription{index: make(map[string]int)}
}

func (d *TableDescription) add(cd ColumnDescription) error {
	if d.consumed {
		return errors.New(errors.ErrorTypeSchema, "table description was already used to create a table")
	}
	if cd.Name == "" {
		return errors.New(errors.ErrorTypeSchema, "column name is empty")
	}
	if _, exists := d.index[cd.Name]; exists {
		return errors.Newf(errors.ErrorTypeSchema, "column %q already declared", cd.Name)
	}
	if !cd.Type.Valid() {
		return errors.Newf(errors.ErrorTypeSchema, "column %q has invalid data type", cd.Name)
	}
	if err := cd.Shape.Validate(); err != nil {
		return err
	}
	if cd.Type == glue.TpString && cd.StringWidth <= 0 {
		return errors.Newf(errors.ErrorTypeSchema, "string column %q needs a positive width", cd.Name)
	}
	d.index[cd.Name] = len(d.columns)
	d.columns = append(d.columns, cd)
	return nil
}

// AddScalarColumn declares a column holding one element per row. String
// columns carry a fixed width and are declared with AddStringColumn instead.
func (d *TableDescription) AddScalarColumn(t glue.DataType, name, comment string, direct, undefinedAllowed bool) error {
	if t == glue.TpString {
		return errors.Newf(errors.ErrorTypeSchema, "string column %q must be declared with AddStringColumn", name)
	}
	return d.add(ColumnDescription{
		Name:             name,
		Comment:          comment,
		Type:             t,
		Shape:            glue.Scalar(),
		Direct:           direct,
		UndefinedAllowed: undefinedAllowed,
	})
}

// AddStringColumn declares a scalar column of fixed-width strings.
func (d *TableDescription) AddStringColumn(name, comment string, width int, direct, undefinedAllowed bool) error {
	return d.add(ColumnDescription{
		Name:             name,
		Comment:          comment,
		Type:             glue.TpString,
		StringWidth:      width,
		Shape:            glue.Scalar(),
		Direct:           direct,
		UndefinedAllowed: undefinedAllowed,
	})
}

// AddArrayColumn declares a column whose every cell is an array with the
// given fixed per-axis extents.
func (d *TableDescription) AddArrayColumn(t glue.DataType, name, comment string, extents []int, direct, undefinedAllowed bool) error {
	if t == glue.TpString {
		return errors.Newf(errors.ErrorTypeSchema, "array column %q cannot hold strings", name)
	}
	return d.add(ColumnDescription{
		Name:             name,
		Comment:          comment,
		Type:             t,
		Shape:            glue.Fixed(extents...),
		Direct:           direct,
		UndefinedAllowed: undefinedAllowed,
	})
}

// AddVariableArrayColumn declares a column whose cells are arrays of the
// given rank with extents recorded per row at write time.
func (d *TableDescription) AddVariableArrayColumn(t glue.DataType, name, comment string, rank int, direct, undefinedAllowed bool) error {
	if t == glue.TpString {
		return errors.Newf(errors.ErrorTypeSchema, "array column %q cannot hold strings", name)
	}
	return d.add(ColumnDescription{
		Name:             name,
		Comment:          comment,
		Type:             t,
		Shape:            glue.Variable(rank),
		Direct:           direct,
		UndefinedAllowed: undefinedAllowed,
	})
}

// NumColumns returns the number of declared columns.
func (d *TableDescription) NumColumns() int {
	return len(d.columns)
}

// Columns returns the declared columns in order.
func (d *TableDescription) Columns() []ColumnDescription {
	out := make([]ColumnDescription, len(d.columns))
	copy(out, d.columns)
	return out
}

// schema converts the description to the engine's schema form and marks it
// consumed.
func (d *TableDescription) schema() (engine.TableSchema, error) {
	if d.consumed {
		return engine.TableSchema{}, errors.New(errors.ErrorTypeSchema, "table description was already used to create a table")
	}
	if len(d.columns) == 0 {
		return engine.TableSchema{}, errors.New(errors.ErrorTypeSchema, "table description has no columns")
	}
	d.consumed = true

	schema := engine.TableSchema{Columns: make([]engine.ColumnSchema, len(d.columns))}
	for i, cd := range d.columns {
		schema.Columns[i] = engine.ColumnSchema{
			Name:             cd.Name,
			Type:             cd.Type,
			StringWidth:      cd.StringWidth,
			Shape:            cd.Shape,
			Comment:          cd.Comment,
			Direct:           cd.Direct,
			UndefinedAllowed: cd.UndefinedAllowed,
		}
	}
	return schema, nil
}
