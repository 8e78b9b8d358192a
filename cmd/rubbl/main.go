package main

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/d3v-null/rubbl/pkg/engine"
	"github.com/d3v-null/rubbl/pkg/engine/local"
	"github.com/d3v-null/rubbl/pkg/glue"
	"github.com/d3v-null/rubbl/pkg/logger"
	"github.com/d3v-null/rubbl/pkg/table"
)

var version = "0.1.0"

func main() {
	defer func() { _ = logger.Sync() }()

	root := &cobra.Command{
		Use:   "rubbl",
		Short: "Rubbl - typed columnar table toolkit",
		Long: `Rubbl creates, inspects and benchmarks columnar tables stored on the
local filesystem. Tables are declared as named, typed columns whose cells
hold scalars or arrays; the table layer marshals typed values to and from
the storage engine's raw cell encoding.`,
	}

	root.AddCommand(versionCmd())
	root.AddCommand(createCmd())
	root.AddCommand(infoCmd())
	root.AddCommand(benchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Rubbl v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// columnSpec is one column entry of the YAML table description file.
type columnSpec struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Comment string `yaml:"comment"`
	// Shape gives fixed per-axis extents; omitted means scalar.
	Shape []int `yaml:"shape"`
	// VariableRank declares a variable-shape array column of that rank.
	VariableRank int `yaml:"variable_rank"`
	// Width is the fixed byte width of string cells.
	Width     int  `yaml:"width"`
	Direct    bool `yaml:"direct"`
	Undefined bool `yaml:"undefined"`
}

type tableSpec struct {
	Columns []columnSpec `yaml:"columns"`
}

func loadDescription(path string) (*table.TableDescription, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read description file: %w", err)
	}
	var spec tableSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse description file: %w", err)
	}

	desc := table.NewTableDescription()
	for _, cs := range spec.Columns {
		dtype, err := glue.ParseDataType(cs.Type)
		if err != nil {
			return nil, err
		}
		switch {
		case dtype == glue.TpString:
			err = desc.AddStringColumn(cs.Name, cs.Comment, cs.Width, cs.Direct, cs.Undefined)
		case cs.VariableRank > 0:
			err = desc.AddVariableArrayColumn(dtype, cs.Name, cs.Comment, cs.VariableRank, cs.Direct, cs.Undefined)
		case len(cs.Shape) > 0:
			err = desc.AddArrayColumn(dtype, cs.Name, cs.Comment, cs.Shape, cs.Direct, cs.Undefined)
		default:
			err = desc.AddScalarColumn(dtype, cs.Name, cs.Comment, cs.Direct, cs.Undefined)
		}
		if err != nil {
			return nil, err
		}
	}
	return desc, nil
}

func newEngine(compression string) (engine.Engine, error) {
	switch compression {
	case "none", "lz4", "zstd":
		return local.NewEngine(local.WithCompression(local.Compression(compression))), nil
	default:
		return nil, fmt.Errorf("unknown compression codec %q", compression)
	}
}

func createCmd() *cobra.Command {
	var descFile, compression string
	var rows int

	cmd := &cobra.Command{
		Use:   "create <table-path>",
		Short: "Create a table from a YAML description",
		Long: `Create a new table directory at the given path from a YAML column
description.

Example description:

  columns:
    - name: TIME
      type: double
      comment: midpoint of integration
    - name: DATA
      type: complex
      shape: [32, 4]
    - name: TELESCOPE_NAME
      type: string
      width: 16`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := loadDescription(descFile)
			if err != nil {
				return err
			}
			eng, err := newEngine(compression)
			if err != nil {
				return err
			}
			tbl, err := table.New(args[0], desc, rows, eng)
			if err != nil {
				return err
			}
			columns := tbl.NumColumns()
			if err := tbl.Close(); err != nil {
				return err
			}
			fmt.Printf("Created table at %s with %d column(s), %d row(s)\n",
				args[0], columns, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&descFile, "description", "d", "", "Path to YAML table description (required)")
	cmd.Flags().IntVarP(&rows, "rows", "r", 0, "Initial row count")
	cmd.Flags().StringVar(&compression, "compression", "zstd", "Column file compression (none, lz4, zstd)")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

// tableInfo is the JSON form of the info command's output.
type tableInfo struct {
	Path    string       `json:"path"`
	Rows    int          `json:"rows"`
	Columns []columnInfo `json:"columns"`
}

type columnInfo struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Shape     string `json:"shape"`
	Comment   string `json:"comment,omitempty"`
	Undefined bool   `json:"undefined_allowed,omitempty"`
}

func infoCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info <table-path>",
		Short: "Describe a table's columns and row count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := newEngine("zstd")
			if err != nil {
				return err
			}
			tbl, err := table.Open(args[0], engine.OpenReadOnly, eng)
			if err != nil {
				return err
			}
			defer tbl.Close()

			info := tableInfo{Path: tbl.Path(), Rows: tbl.NumRows()}
			for _, cs := range tbl.Schema().Columns {
				info.Columns = append(info.Columns, columnInfo{
					Name:      cs.Name,
					Type:      cs.Type.String(),
					Shape:     cs.Shape.String(),
					Comment:   cs.Comment,
					Undefined: cs.UndefinedAllowed,
				})
			}

			if asJSON {
				raw, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(raw))
				return nil
			}

			fmt.Printf("Table: %s\n", info.Path)
			fmt.Printf("Rows: %d\n", info.Rows)
			fmt.Printf("Columns (%d):\n", len(info.Columns))
			for _, c := range info.Columns {
				fmt.Printf("  %-20s %-9s %s", c.Name, c.Type, c.Shape)
				if c.Comment != "" {
					fmt.Printf("  # %s", c.Comment)
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}

func benchCmd() *cobra.Command {
	var rows, spectralChannels, polarizations int
	var mode, compression string

	cmd := &cobra.Command{
		Use:   "bench <table-path>",
		Short: "Benchmark table write and read throughput",
		Long: `Create a table with one scalar double column and one fixed-shape
complex array column, fill it using the selected write mode, then read
everything back and verify a checksum.

Modes:
  column_put_bulk  one full-column write per column
  row_put_bulk     one staged row commit per row`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(args[0], rows, spectralChannels, polarizations, mode, compression)
		},
	}

	cmd.Flags().IntVar(&rows, "rows", 10000, "Number of rows to write")
	cmd.Flags().IntVar(&spectralChannels, "channels", 32, "Spectral channels per cell")
	cmd.Flags().IntVar(&polarizations, "pols", 4, "Polarizations per cell")
	cmd.Flags().StringVar(&mode, "mode", "column_put_bulk", "Write mode (column_put_bulk, row_put_bulk)")
	cmd.Flags().StringVar(&compression, "compression", "zstd", "Column file compression (none, lz4, zstd)")
	return cmd
}

func runBench(path string, rows, channels, pols int, mode, compression string) error {
	cellElems := channels * pols

	desc := table.NewTableDescription()
	if err := desc.AddScalarColumn(glue.TpDouble, "TIME", "", false, false); err != nil {
		return err
	}
	if err := desc.AddArrayColumn(glue.TpComplex, "DATA", "", []int{channels, pols}, false, false); err != nil {
		return err
	}

	eng, err := newEngine(compression)
	if err != nil {
		return err
	}
	tbl, err := table.New(path, desc, rows, eng)
	if err != nil {
		return err
	}

	times := make([]float64, rows)
	data := make([]complex64, rows*cellElems)
	for row := 0; row < rows; row++ {
		times[row] = float64(row) * 0.5
		for e := 0; e < cellElems; e++ {
			data[row*cellElems+e] = complex(float32(row%97), float32(e%11))
		}
	}

	start := time.Now()
	switch mode {
	case "column_put_bulk":
		if err := tbl.PutColumn("TIME", times); err != nil {
			return err
		}
		if err := tbl.PutColumn("DATA", data); err != nil {
			return err
		}
	case "row_put_bulk":
		rb, err := tbl.RowWriter()
		if err != nil {
			return err
		}
		for row := 0; row < rows; row++ {
			cell, err := glue.NewArray([]int{channels, pols}, data[row*cellElems:(row+1)*cellElems])
			if err != nil {
				return err
			}
			if err := rb.PutCell("TIME", times[row]); err != nil {
				return err
			}
			if err := rb.PutCell("DATA", cell); err != nil {
				return err
			}
			if err := rb.Put(row); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown bench mode %q", mode)
	}
	writeElapsed := time.Since(start)

	if err := tbl.Close(); err != nil {
		return err
	}

	start = time.Now()
	reopened, err := table.Open(path, engine.OpenReadOnly, eng)
	if err != nil {
		return err
	}
	defer reopened.Close()

	gotTimes, err := reopened.GetColumn("TIME")
	if err != nil {
		return err
	}
	gotData, err := reopened.GetColumn("DATA")
	if err != nil {
		return err
	}
	readElapsed := time.Since(start)

	var checksum float64
	for _, v := range gotTimes.([]float64) {
		checksum += v
	}
	for _, v := range gotData.([]complex64) {
		checksum += float64(real(v)) + float64(imag(v))
	}
	var expected float64
	for _, v := range times {
		expected += v
	}
	for _, v := range data {
		expected += float64(real(v)) + float64(imag(v))
	}
	if math.Abs(checksum-expected) > 1e-6*math.Abs(expected) {
		return fmt.Errorf("read-back checksum %f does not match written %f", checksum, expected)
	}

	cells := rows * (1 + cellElems)
	fmt.Printf("Mode: %s\n", mode)
	fmt.Printf("Rows: %d, cell elements: %d, total elements: %d\n", rows, cellElems, cells)
	fmt.Printf("Write: %v (%.0f rows/s)\n", writeElapsed, float64(rows)/writeElapsed.Seconds())
	fmt.Printf("Read:  %v (%.0f rows/s)\n", readElapsed, float64(rows)/readElapsed.Seconds())
	fmt.Printf("Checksum: %f (verified)\n", checksum)
	return nil
}
