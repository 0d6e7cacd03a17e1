// Package alignment holds tracker alignment records: one rigid transform and
// one 6x6 alignment position error (APE) per detector element.
package alignment

import (
	"context"
	"errors"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/tkal/internal/detid"
)

// Record names under which the two collections are stored.
const (
	AlignmentRecord = "TrackerAlignmentRcd"
	ErrorRecord     = "TrackerAlignmentErrorExtendedRcd"
)

// APEDim is the dimension of the symmetric APE matrix.
const APEDim = 6

var (
	ErrServiceUnavailable = errors.New("conditions service not available")
	ErrSizeMismatch       = errors.New("size mismatch between alignments and alignment errors")
	ErrIdentifierMismatch = errors.New("detid mismatch between alignments and alignment errors")
)

// Transform is the placement of one detector element.
type Transform struct {
	RawID       detid.DetID
	Translation r3.Vec
	Rotation    *mat.Dense
}

// TransformError is the APE of one detector element.
type TransformError struct {
	RawID  detid.DetID
	Matrix *mat.SymDense
}

// Alignments is an ordered collection of transforms.
type Alignments struct {
	Transforms []Transform
}

// AlignmentErrors is an ordered collection of APEs, parallel to an
// Alignments collection.
type AlignmentErrors struct {
	Errors []TransformError
}

// ZeroAPE returns a zero APE matrix.
func ZeroAPE() *mat.SymDense { return mat.NewSymDense(APEDim, nil) }

// RecordWriter persists alignment records. IsAvailable is checked before
// any write is attempted.
type RecordWriter interface {
	IsAvailable() bool
	WriteAlignments(ctx context.Context, record string, since uint64, a *Alignments) error
	WriteAlignmentErrors(ctx context.Context, record string, since uint64, e *AlignmentErrors) error
}

// RecordReader loads the records valid for a run.
type RecordReader interface {
	Alignments(ctx context.Context, record string, run uint64) (*Alignments, error)
	AlignmentErrors(ctx context.Context, record string, run uint64) (*AlignmentErrors, error)
}
