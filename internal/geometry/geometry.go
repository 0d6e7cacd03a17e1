// Package geometry holds the ideal tracker geometry: one rigid placement
// (position and rotation) per detector element.
package geometry

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/tkal/internal/detid"
)

// RotationTolerance bounds |det(R)-1| and |R·Rᵀ-I| for a valid rotation.
const RotationTolerance = 0.01

var (
	// ErrInvalidRotation is returned for matrices that are not proper rotations.
	ErrInvalidRotation = errors.New("invalid rotation matrix")
	// ErrDuplicateID is returned when two elements share an identifier.
	ErrDuplicateID = errors.New("duplicate detector id")
)

// Det is one detector element placed in global coordinates (millimetres).
type Det struct {
	ID       detid.DetID
	Position r3.Vec
	// Rotation is the 3x3 local-to-global rotation.
	Rotation *mat.Dense
}

// Tracker is a complete geometry.
type Tracker struct {
	Dets []Det
}

// Sorted returns the elements ordered by raw identifier. The receiver is
// not modified.
func (t *Tracker) Sorted() []Det {
	out := make([]Det, len(t.Dets))
	copy(out, t.Dets)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDs returns all identifiers in stored order.
func (t *Tracker) IDs() []detid.DetID {
	ids := make([]detid.DetID, len(t.Dets))
	for i, d := range t.Dets {
		ids[i] = d.ID
	}
	return ids
}

// Validate checks every rotation and rejects duplicate identifiers.
func (t *Tracker) Validate() error {
	seen := make(map[detid.DetID]struct{}, len(t.Dets))
	for _, d := range t.Dets {
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
		}
		seen[d.ID] = struct{}{}
		if err := ValidateRotation(d.Rotation); err != nil {
			return fmt.Errorf("det %s: %w", d.ID, err)
		}
	}
	return nil
}

// ValidateRotation checks that r is a proper 3x3 rotation: orthonormal with
// determinant 1 within RotationTolerance.
func ValidateRotation(r mat.Matrix) error {
	if r == nil {
		return fmt.Errorf("%w: nil", ErrInvalidRotation)
	}
	if rows, cols := r.Dims(); rows != 3 || cols != 3 {
		return fmt.Errorf("%w: dims %dx%d", ErrInvalidRotation, rows, cols)
	}
	if d := mat.Det(r); math.Abs(d-1) > RotationTolerance {
		return fmt.Errorf("%w: determinant %.4f", ErrInvalidRotation, d)
	}
	var rrt mat.Dense
	rrt.Mul(r, r.T())
	if !mat.EqualApprox(&rrt, eye3(), RotationTolerance) {
		return fmt.Errorf("%w: not orthonormal", ErrInvalidRotation)
	}
	return nil
}

func eye3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}

// Identity returns a new 3x3 identity rotation.
func Identity() *mat.Dense { return eye3() }

// RotZ returns the rotation by phi radians about the z axis.
func RotZ(phi float64) *mat.Dense {
	c, s := math.Cos(phi), math.Sin(phi)
	return mat.NewDense(3, 3, []float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	})
}

// RotX returns the rotation by theta radians about the x axis.
func RotX(theta float64) *mat.Dense {
	c, s := math.Cos(theta), math.Sin(theta)
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	})
}

// EulerAngles returns the z-x-z Euler angles of r in radians, such that
// r = RotZ(phi)·RotX(theta)·RotZ(psi) with theta in [0, pi]. When theta is
// 0 or pi only phi±psi is defined; psi is then reported as 0.
func EulerAngles(r mat.Matrix) (phi, theta, psi float64) {
	zz := math.Max(-1, math.Min(1, r.At(2, 2)))
	theta = math.Acos(zz)
	if math.Abs(math.Sin(theta)) < 1e-9 {
		return math.Atan2(r.At(1, 0), r.At(0, 0)), theta, 0
	}
	phi = math.Atan2(r.At(0, 2), -r.At(1, 2))
	psi = math.Atan2(r.At(2, 0), r.At(2, 1))
	return phi, theta, psi
}
