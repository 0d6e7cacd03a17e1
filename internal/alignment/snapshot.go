package alignment

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/tkal/internal/detid"
	"github.com/banshee-data/tkal/internal/geometry"
	"github.com/banshee-data/tkal/internal/monitoring"
)

const (
	rule     = "============================================================"
	thinRule = "------------------------------------------------------------"
)

// Snapshot is a pair of parallel alignment collections built from a
// geometry. Entry i of both collections refers to the same element.
type Snapshot struct {
	Alignments Alignments
	Errors     AlignmentErrors

	index map[detid.DetID]int
}

// NewIdealSnapshot converts every element of t, in raw-id order, into a
// transform with a zero APE. phase1Pixel selects the subdetector names used
// in the per-element debug log.
func NewIdealSnapshot(t *geometry.Tracker, phase1Pixel bool) (*Snapshot, error) {
	dets := t.Sorted()
	s := &Snapshot{
		Alignments: Alignments{Transforms: make([]Transform, 0, len(dets))},
		Errors:     AlignmentErrors{Errors: make([]TransformError, 0, len(dets))},
		index:      make(map[detid.DetID]int, len(dets)),
	}
	for _, d := range dets {
		if _, dup := s.index[d.ID]; dup {
			return nil, fmt.Errorf("%w: %d", geometry.ErrDuplicateID, uint32(d.ID))
		}
		if err := geometry.ValidateRotation(d.Rotation); err != nil {
			return nil, fmt.Errorf("det %d: %w", uint32(d.ID), err)
		}
		name, err := detid.GeomSubDetectorOf(d.ID, phase1Pixel).Name()
		if err != nil {
			return nil, err
		}
		phi, theta, psi := geometry.EulerAngles(d.Rotation)
		monitoring.Debugf("%s\nsubdetector: %s\ndetId:       %d\n%s\n     x: %g\n     y: %g\n     z: %g\n   phi: %g\n theta: %g\n   psi: %g\n%s",
			rule, name, uint32(d.ID), thinRule,
			d.Position.X, d.Position.Y, d.Position.Z, phi, theta, psi, rule)

		s.index[d.ID] = len(s.Alignments.Transforms)
		s.Alignments.Transforms = append(s.Alignments.Transforms, Transform{
			RawID:       d.ID,
			Translation: d.Position,
			Rotation:    mat.DenseCopyOf(d.Rotation),
		})
		s.Errors.Errors = append(s.Errors.Errors, TransformError{RawID: d.ID, Matrix: ZeroAPE()})
	}
	return s, nil
}

// Len returns the number of elements in the snapshot.
func (s *Snapshot) Len() int { return len(s.Alignments.Transforms) }

// IDs returns the raw identifiers in snapshot order.
func (s *Snapshot) IDs() []detid.DetID {
	ids := make([]detid.DetID, len(s.Alignments.Transforms))
	for i, tr := range s.Alignments.Transforms {
		ids[i] = tr.RawID
	}
	return ids
}

// AlignTo replaces the snapshot entries of every element present in the
// stored pair. The stored collections must have equal sizes and matching
// identifiers entry by entry; stored elements unknown to the snapshot are
// ignored. On error the snapshot may be partially updated.
func (s *Snapshot) AlignTo(stored *Alignments, storedErrs *AlignmentErrors) error {
	if len(stored.Transforms) != len(storedErrs.Errors) {
		return fmt.Errorf("%w (alignments=%d, errors=%d)",
			ErrSizeMismatch, len(stored.Transforms), len(storedErrs.Errors))
	}
	replaced := 0
	for i, tr := range stored.Transforms {
		idx, ok := s.index[tr.RawID]
		if !ok {
			continue
		}
		if e := storedErrs.Errors[i]; e.RawID != tr.RawID {
			return fmt.Errorf("%w (alignments rawId=%d, errors rawId=%d)",
				ErrIdentifierMismatch, uint32(tr.RawID), uint32(e.RawID))
		}
		if a, e := s.Alignments.Transforms[idx].RawID, s.Errors.Errors[idx].RawID; a != e {
			return fmt.Errorf("%w (alignments rawId=%d, errors rawId=%d)",
				ErrIdentifierMismatch, uint32(a), uint32(e))
		}
		s.Alignments.Transforms[idx] = tr
		s.Errors.Errors[idx] = storedErrs.Errors[i]
		replaced++
	}
	monitoring.Logf("aligned %d of %d elements to stored records", replaced, s.Len())
	return nil
}

// AlignToReader loads the records valid for run from r and merges them with
// AlignTo.
func (s *Snapshot) AlignToReader(ctx context.Context, r RecordReader, run uint64) error {
	a, err := r.Alignments(ctx, AlignmentRecord, run)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", AlignmentRecord, err)
	}
	e, err := r.AlignmentErrors(ctx, ErrorRecord, run)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", ErrorRecord, err)
	}
	return s.AlignTo(a, e)
}

// Write stores both collections with validity starting at since. Nothing is
// written when the writer reports itself unavailable.
func (s *Snapshot) Write(ctx context.Context, w RecordWriter, since uint64) error {
	if !w.IsAvailable() {
		return ErrServiceUnavailable
	}
	monitoring.Logf("Writing ideal tracker-alignment records.")
	if err := w.WriteAlignments(ctx, AlignmentRecord, since, &s.Alignments); err != nil {
		return fmt.Errorf("failed to write %s: %w", AlignmentRecord, err)
	}
	if err := w.WriteAlignmentErrors(ctx, ErrorRecord, since, &s.Errors); err != nil {
		return fmt.Errorf("failed to write %s: %w", ErrorRecord, err)
	}
	return nil
}
