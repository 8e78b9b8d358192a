// Package local implements the storage engine boundary on top of the local
// filesystem: one directory per table, a JSON schema document, and one
// compressed payload file per column. It is the engine the table layer is
// developed and tested against.
package local

import (
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/d3v-null/rubbl/pkg/engine"
	"github.com/d3v-null/rubbl/pkg/errors"
	"github.com/d3v-null/rubbl/pkg/logger"
)

const (
	schemaFileName = "schema.json"
	lockFileName   = "table.lock"
	columnFileExt  = ".col"
)

// Engine is a file-backed storage engine rooted in the local filesystem.
type Engine struct {
	compression Compression
	log         *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCompression selects the codec for column payload files.
func WithCompression(c Compression) Option {
	return func(e *Engine) { e.compression = c }
}

// WithLogger replaces the global logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates a local filesystem engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		compression: CompressionZstd,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get()
	}
	return e
}

// tableDocument is the on-disk schema record.
type tableDocument struct {
	Version  int                   `json:"version"`
	RowCount int                   `json:"row_count"`
	Columns  []engine.ColumnSchema `json:"columns"`
}

type table struct {
	path        string
	schema      engine.TableSchema
	rows        int
	readOnly    bool
	locked      bool
	closed      bool
	compression Compression
	columns     map[string]*column
	log         *zap.Logger
}

// CreateTable materializes a new table directory from the schema.
func (e *Engine) CreateTable(path string, schema engine.TableSchema, initialRows int) (engine.Table, error) {
	if len(schema.Columns) == 0 {
		return nil, errors.New(errors.ErrorTypeSchema, "table schema has no columns")
	}
	if initialRows < 0 {
		return nil, errors.Newf(errors.ErrorTypeSchema, "initial row count %d is negative", initialRows)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeEngine, "failed to prepare table parent directory")
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		if os.IsExist(err) {
			return nil, errors.Newf(errors.ErrorTypeEngine, "table already exists at %q", path)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeEngine, "failed to create table directory")
	}

	t := &table{
		path:        path,
		schema:      schema,
		rows:        initialRows,
		compression: e.compression,
		columns:     make(map[string]*column, len(schema.Columns)),
		log:         e.log,
	}
	if err := t.acquireLock(); err != nil {
		return nil, err
	}
	for _, cs := range schema.Columns {
		t.columns[cs.Name] = newColumn(cs, initialRows, &t.readOnly)
	}

	// Persist immediately so a table exists on disk even if the process
	// dies before Close.
	if err := t.flush(); err != nil {
		t.releaseLock()
		return nil, err
	}

	t.log.Debug("created table",
		zap.String("table_path", path),
		zap.Int("rows", initialRows),
		zap.Int("columns", len(schema.Columns)))
	return t, nil
}

// OpenTable binds to an existing table directory.
func (e *Engine) OpenTable(path string, mode engine.OpenMode) (engine.Table, error) {
	raw, err := os.ReadFile(filepath.Join(path, schemaFileName))
	if err != nil {
		return nil, errors.Newf(errors.ErrorTypeOpen, "no table at %q", path)
	}
	var doc tableDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeOpen, "table schema document is unreadable")
	}

	t := &table{
		path:        path,
		schema:      engine.TableSchema{Columns: doc.Columns},
		rows:        doc.RowCount,
		readOnly:    mode == engine.OpenReadOnly,
		compression: e.compression,
		columns:     make(map[string]*column, len(doc.Columns)),
		log:         e.log,
	}
	if mode == engine.OpenReadWrite {
		if err := t.acquireLock(); err != nil {
			return nil, err
		}
	}

	for _, cs := range doc.Columns {
		framed, err := os.ReadFile(filepath.Join(path, cs.Name+columnFileExt))
		if err != nil {
			t.releaseLock()
			return nil, errors.Wrap(err, errors.ErrorTypeOpen, "column file missing for "+cs.Name)
		}
		payload, err := decodeColumnFile(framed)
		if err != nil {
			t.releaseLock()
			return nil, err
		}
		col := &column{schema: cs, cellSize: cs.CellSize(), readOnly: &t.readOnly}
		if err := col.unmarshal(payload); err != nil {
			t.releaseLock()
			return nil, err
		}
		if col.rows() != t.rows {
			t.releaseLock()
			return nil, errors.Newf(errors.ErrorTypeOpen,
				"column %q stores %d rows, table records %d", cs.Name, col.rows(), t.rows)
		}
		t.columns[cs.Name] = col
	}

	t.log.Debug("opened table",
		zap.String("table_path", path),
		zap.String("mode", mode.String()),
		zap.Int("rows", t.rows))
	return t, nil
}

func (t *table) acquireLock() error {
	f, err := os.OpenFile(filepath.Join(t.path, lockFileName), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return errors.Newf(errors.ErrorTypeOpen, "table at %q is locked by another process", t.path)
		}
		return errors.Wrap(err, errors.ErrorTypeOpen, "failed to lock table")
	}
	_ = f.Close()
	t.locked = true
	return nil
}

func (t *table) releaseLock() {
	if t.locked {
		_ = os.Remove(filepath.Join(t.path, lockFileName))
		t.locked = false
	}
}

func (t *table) Schema() engine.TableSchema {
	return t.schema
}

func (t *table) NumRows() int {
	return t.rows
}

func (t *table) NumColumns() int {
	return len(t.schema.Columns)
}

func (t *table) AddRows(n int) error {
	if t.closed {
		return errors.New(errors.ErrorTypeClosed, "table is closed")
	}
	if t.readOnly {
		return errors.Newf(errors.ErrorTypeEngine, "table at %q is read-only", t.path)
	}
	if n < 0 {
		return errors.Newf(errors.ErrorTypeEngine, "cannot add %d rows", n)
	}
	for _, col := range t.columns {
		col.grow(n)
	}
	t.rows += n
	return nil
}

func (t *table) BindColumn(name string) (engine.Column, error) {
	if t.closed {
		return nil, errors.New(errors.ErrorTypeClosed, "table is closed")
	}
	col, ok := t.columns[name]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeNoSuchColumn, "table has no column %q", name)
	}
	return col, nil
}

func (t *table) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	defer t.releaseLock()
	if t.readOnly {
		return nil
	}
	if err := t.flush(); err != nil {
		return err
	}
	t.log.Debug("closed table", zap.String("table_path", t.path))
	return nil
}

// flush writes the schema document and every column payload back to disk.
func (t *table) flush() error {
	for _, cs := range t.schema.Columns {
		framed, err := encodeColumnFile(t.compression, t.columns[cs.Name].marshal())
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(t.path, cs.Name+columnFileExt), framed, 0o644); err != nil {
			return errors.Wrap(err, errors.ErrorTypeColumnWrite, "failed to write column file for "+cs.Name)
		}
	}

	doc := tableDocument{Version: formatVersion, RowCount: t.rows, Columns: t.schema.Columns}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeEngine, "failed to encode table schema document")
	}
	if err := os.WriteFile(filepath.Join(t.path, schemaFileName), raw, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrorTypeEngine, "failed to write table schema document")
	}
	return nil
}
