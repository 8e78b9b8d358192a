// Package rubbl provides typed access to columnar tables: named, typed
// columns whose cells hold scalars or n-dimensional arrays, created and
// opened through a pluggable storage engine.
//
// The table layer owns everything type-shaped: a table description declares
// each column's element type and cell shape, reads and writes marshal typed
// Go values to and from the engine's raw cell encoding, and every access is
// checked against the column's declared type and shape before the engine is
// touched. The engine below the boundary only ever sees raw byte buffers.
//
// # Quick Start
//
// Create a table with a scalar time column and a fixed-shape visibility
// column, write a row, and read it back:
//
//	import (
//	    "github.com/d3v-null/rubbl/pkg/engine"
//	    "github.com/d3v-null/rubbl/pkg/engine/local"
//	    "github.com/d3v-null/rubbl/pkg/glue"
//	    "github.com/d3v-null/rubbl/pkg/table"
//	)
//
//	desc := table.NewTableDescription()
//	desc.AddScalarColumn(glue.TpDouble, "TIME", "midpoint of integration", false, false)
//	desc.AddArrayColumn(glue.TpComplex, "DATA", "visibilities", []int{32, 4}, false, false)
//
//	tbl, err := table.New("/data/obs.table", desc, 100, local.NewEngine())
//	if err != nil {
//	    return err
//	}
//	defer tbl.Close()
//
//	tbl.PutCell("TIME", 0, 4567.25)
//	v, err := tbl.GetCell("TIME", 0)
//
// Bulk column access moves whole row ranges in one engine call, and a row
// buffer stages one logical row across columns and commits it in a single
// call:
//
//	tbl.PutColumn("TIME", times)          // one call, all rows
//	rb, _ := tbl.RowWriter()
//	rb.PutCell("TIME", 4567.25)
//	rb.Put(0)
//
// # Key Packages
//
//	pkg/table        - Typed table façade, descriptions, column handle cache, row buffer
//	pkg/glue         - Element types, cell shapes, and the raw value codec
//	pkg/engine       - Storage engine boundary (raw cells and row ranges)
//	pkg/engine/local - Filesystem-backed engine with compressed column files
//	pkg/errors       - Structured, categorized errors
//	pkg/logger       - Structured logging built on zap
//
// # Command Line
//
// The rubbl command creates, inspects and benchmarks tables:
//
//	rubbl create /data/obs.table --description schema.yaml --rows 1000
//	rubbl info /data/obs.table --json
//	rubbl bench /tmp/bench.table --rows 100000 --mode column_put_bulk
package rubbl
