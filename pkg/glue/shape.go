package glue

import (
	"fmt"

	"github.com/d3v-null/rubbl/pkg/errors"
)

// MaxRank is the largest array rank the engine supports per cell.
const MaxRank = 8

// ShapeKind distinguishes the three cell shape policies a column may declare.
type ShapeKind int

const (
	// ShapeScalar means every cell holds exactly one element.
	ShapeScalar ShapeKind = iota
	// ShapeFixed means every cell holds an array with the same declared
	// per-axis extents.
	ShapeFixed
	// ShapeVariable means cells hold arrays whose extents may differ row to
	// row; only the rank is fixed at declaration time.
	ShapeVariable
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeScalar:
		return "scalar"
	case ShapeFixed:
		return "fixed"
	case ShapeVariable:
		return "variable"
	default:
		return "unknown"
	}
}

// Shape describes a column's cell shape policy.
type Shape struct {
	Kind    ShapeKind `json:"kind"`
	Rank    int       `json:"rank,omitempty"`
	Extents []int     `json:"extents,omitempty"`
}

// Scalar returns the shape of a scalar column.
func Scalar() Shape {
	return Shape{Kind: ShapeScalar}
}

// Fixed returns the shape of a fixed-shape array column with the given
// per-axis extents.
func Fixed(extents ...int) Shape {
	ext := make([]int, len(extents))
	copy(ext, extents)
	return Shape{Kind: ShapeFixed, Rank: len(ext), Extents: ext}
}

// Variable returns the shape of a variable-shape array column of the given
// rank.
func Variable(rank int) Shape {
	return Shape{Kind: ShapeVariable, Rank: rank}
}

func (s Shape) String() string {
	switch s.Kind {
	case ShapeFixed:
		return fmt.Sprintf("fixed%v", s.Extents)
	case ShapeVariable:
		return fmt.Sprintf("variable(rank=%d)", s.Rank)
	default:
		return s.Kind.String()
	}
}

// IsArray reports whether cells of this shape hold arrays rather than single
// elements.
func (s Shape) IsArray() bool {
	return s.Kind != ShapeScalar
}

// NumElements returns the number of elements in one cell. Variable shapes
// return 0: their element count is a per-row property.
func (s Shape) NumElements() int {
	switch s.Kind {
	case ShapeScalar:
		return 1
	case ShapeFixed:
		n := 1
		for _, e := range s.Extents {
			n *= e
		}
		return n
	default:
		return 0
	}
}

// Validate checks that the shape is one the engine can materialize. It is
// called before a table description is handed to the engine so that logically
// impossible columns fail before any engine work happens.
func (s Shape) Validate() error {
	switch s.Kind {
	case ShapeScalar:
		return nil
	case ShapeFixed:
		if len(s.Extents) == 0 {
			return errors.New(errors.ErrorTypeSchema, "fixed-shape column declared with no extents")
		}
		if len(s.Extents) > MaxRank {
			return errors.Newf(errors.ErrorTypeSchema, "rank %d exceeds maximum %d", len(s.Extents), MaxRank)
		}
		for i, e := range s.Extents {
			if e <= 0 {
				return errors.Newf(errors.ErrorTypeSchema, "fixed-shape column has non-positive extent %d on axis %d", e, i)
			}
		}
		return nil
	case ShapeVariable:
		if s.Rank < 1 || s.Rank > MaxRank {
			return errors.Newf(errors.ErrorTypeSchema, "variable-shape rank %d outside [1, %d]", s.Rank, MaxRank)
		}
		return nil
	default:
		return errors.Newf(errors.ErrorTypeSchema, "unknown shape kind %d", s.Kind)
	}
}

// Accepts decides whether a candidate cell value with the given extents may
// be stored under this shape policy. Scalar values are represented by nil
// extents.
func (s Shape) Accepts(extents []int) error {
	switch s.Kind {
	case ShapeScalar:
		if len(extents) != 0 {
			return errors.Newf(errors.ErrorTypeShapeMismatch, "scalar column cannot accept an array of shape %v", extents)
		}
		return nil
	case ShapeFixed:
		if !extentsEqual(extents, s.Extents) {
			return errors.Newf(errors.ErrorTypeShapeMismatch, "column declared %v, value has shape %v", s.Extents, extents)
		}
		return nil
	case ShapeVariable:
		if len(extents) != s.Rank {
			return errors.Newf(errors.ErrorTypeShapeMismatch, "column declared rank %d, value has rank %d", s.Rank, len(extents))
		}
		for i, e := range extents {
			if e < 0 {
				return errors.Newf(errors.ErrorTypeShapeMismatch, "negative extent %d on axis %d", e, i)
			}
		}
		return nil
	default:
		return errors.Newf(errors.ErrorTypeShapeMismatch, "unknown shape kind %d", s.Kind)
	}
}

func extentsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NumElementsOf returns the element count implied by a set of extents.
func NumElementsOf(extents []int) int {
	n := 1
	for _, e := range extents {
		n *= e
	}
	return n
}
