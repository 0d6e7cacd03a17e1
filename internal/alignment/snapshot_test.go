package alignment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/tkal/internal/detid"
	"github.com/banshee-data/tkal/internal/geometry"
)

var enc = detid.NewEncoder(detid.Phase1Layout())

type fakeWriter struct {
	available bool
	failOn    string
	calls     []string
	since     []uint64
	aligns    *Alignments
	errs      *AlignmentErrors
}

func (w *fakeWriter) IsAvailable() bool { return w.available }

func (w *fakeWriter) WriteAlignments(_ context.Context, record string, since uint64, a *Alignments) error {
	w.calls = append(w.calls, record)
	w.since = append(w.since, since)
	if w.failOn == record {
		return errors.New("disk full")
	}
	w.aligns = a
	return nil
}

func (w *fakeWriter) WriteAlignmentErrors(_ context.Context, record string, since uint64, e *AlignmentErrors) error {
	w.calls = append(w.calls, record)
	w.since = append(w.since, since)
	if w.failOn == record {
		return errors.New("disk full")
	}
	w.errs = e
	return nil
}

type fakeReader struct {
	a   *Alignments
	e   *AlignmentErrors
	err error
}

func (r *fakeReader) Alignments(context.Context, string, uint64) (*Alignments, error) {
	return r.a, r.err
}

func (r *fakeReader) AlignmentErrors(context.Context, string, uint64) (*AlignmentErrors, error) {
	return r.e, r.err
}

func smallTracker() *geometry.Tracker {
	return &geometry.Tracker{Dets: []geometry.Det{
		{ID: enc.MustTEC(2, 1, 1, 1, 1), Position: r3.Vec{X: 1, Y: 2, Z: 1240}, Rotation: geometry.RotZ(0.1)},
		{ID: enc.MustPXB(1, 1, 1), Position: r3.Vec{X: 29}, Rotation: geometry.Identity()},
		{ID: enc.MustTOB(3, 1, 7, 2), Position: r3.Vec{Y: 780, Z: -360}, Rotation: geometry.RotZ(1.57)},
	}}
}

func TestNewIdealSnapshot(t *testing.T) {
	tr := smallTracker()
	s, err := NewIdealSnapshot(tr, true)
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())

	ids := s.IDs()
	assert.Equal(t, []detid.DetID{enc.MustPXB(1, 1, 1), enc.MustTOB(3, 1, 7, 2), enc.MustTEC(2, 1, 1, 1, 1)}, ids)

	for i := range ids {
		assert.Equal(t, ids[i], s.Errors.Errors[i].RawID)
		assert.True(t, mat.Equal(s.Errors.Errors[i].Matrix, ZeroAPE()))
	}
	assert.Equal(t, r3.Vec{Y: 780, Z: -360}, s.Alignments.Transforms[1].Translation)

	// rotations are copied out of the geometry
	tr.Dets[1].Rotation.Set(0, 0, 5)
	assert.Equal(t, 1.0, s.Alignments.Transforms[0].Rotation.At(0, 0))
}

func TestNewIdealSnapshot_Rejects(t *testing.T) {
	tr := smallTracker()
	tr.Dets[0].Rotation = mat.NewDense(3, 3, []float64{2, 0, 0, 0, 1, 0, 0, 0, 1})
	_, err := NewIdealSnapshot(tr, false)
	assert.ErrorIs(t, err, geometry.ErrInvalidRotation)

	tr = smallTracker()
	tr.Dets = append(tr.Dets, tr.Dets[0])
	_, err = NewIdealSnapshot(tr, false)
	assert.ErrorIs(t, err, geometry.ErrDuplicateID)
}

func stored(ids ...detid.DetID) (*Alignments, *AlignmentErrors) {
	a := &Alignments{}
	e := &AlignmentErrors{}
	for i, id := range ids {
		a.Transforms = append(a.Transforms, Transform{RawID: id, Translation: r3.Vec{X: float64(i + 100)}, Rotation: geometry.Identity()})
		ape := ZeroAPE()
		ape.SetSym(0, 0, 0.01)
		e.Errors = append(e.Errors, TransformError{RawID: id, Matrix: ape})
	}
	return a, e
}

func TestAlignTo(t *testing.T) {
	s, err := NewIdealSnapshot(smallTracker(), true)
	require.NoError(t, err)

	tob := enc.MustTOB(3, 1, 7, 2)
	unknown := enc.MustTID(1, 1, 1, 1)
	a, e := stored(unknown, tob)
	require.NoError(t, s.AlignTo(a, e))

	assert.Equal(t, 101.0, s.Alignments.Transforms[1].Translation.X)
	assert.Equal(t, 0.01, s.Errors.Errors[1].Matrix.At(0, 0))
	// untouched entries keep their ideal values
	assert.Equal(t, 29.0, s.Alignments.Transforms[0].Translation.X)
	assert.Equal(t, 3, s.Len())
}

func TestAlignTo_Mismatch(t *testing.T) {
	tob := enc.MustTOB(3, 1, 7, 2)
	pxb := enc.MustPXB(1, 1, 1)

	t.Run("size", func(t *testing.T) {
		s, err := NewIdealSnapshot(smallTracker(), true)
		require.NoError(t, err)
		a, e := stored(tob, pxb)
		e.Errors = e.Errors[:1]
		assert.ErrorIs(t, s.AlignTo(a, e), ErrSizeMismatch)
	})

	t.Run("stored ids", func(t *testing.T) {
		s, err := NewIdealSnapshot(smallTracker(), true)
		require.NoError(t, err)
		a, e := stored(tob, pxb)
		e.Errors[0].RawID = pxb
		assert.ErrorIs(t, s.AlignTo(a, e), ErrIdentifierMismatch)
	})

	t.Run("snapshot ids", func(t *testing.T) {
		s, err := NewIdealSnapshot(smallTracker(), true)
		require.NoError(t, err)
		s.Errors.Errors[0].RawID = tob
		a, e := stored(pxb)
		assert.ErrorIs(t, s.AlignTo(a, e), ErrIdentifierMismatch)
	})
}

func TestAlignToReader(t *testing.T) {
	s, err := NewIdealSnapshot(smallTracker(), true)
	require.NoError(t, err)

	a, e := stored(enc.MustPXB(1, 1, 1))
	require.NoError(t, s.AlignToReader(context.Background(), &fakeReader{a: a, e: e}, 1))
	assert.Equal(t, 100.0, s.Alignments.Transforms[0].Translation.X)

	boom := errors.New("no iov")
	err = s.AlignToReader(context.Background(), &fakeReader{err: boom}, 1)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, AlignmentRecord)
}

func TestWrite(t *testing.T) {
	s, err := NewIdealSnapshot(smallTracker(), true)
	require.NoError(t, err)

	w := &fakeWriter{available: true}
	require.NoError(t, s.Write(context.Background(), w, 1))
	assert.Equal(t, []string{AlignmentRecord, ErrorRecord}, w.calls)
	assert.Equal(t, []uint64{1, 1}, w.since)
	assert.Len(t, w.aligns.Transforms, 3)
	assert.Len(t, w.errs.Errors, 3)
}

func TestWrite_Unavailable(t *testing.T) {
	s, err := NewIdealSnapshot(smallTracker(), true)
	require.NoError(t, err)

	w := &fakeWriter{}
	assert.ErrorIs(t, s.Write(context.Background(), w, 1), ErrServiceUnavailable)
	assert.Empty(t, w.calls)
}

func TestWrite_FailureStopsAfterFirstRecord(t *testing.T) {
	s, err := NewIdealSnapshot(smallTracker(), true)
	require.NoError(t, err)

	w := &fakeWriter{available: true, failOn: AlignmentRecord}
	err = s.Write(context.Background(), w, 1)
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, []string{AlignmentRecord}, w.calls)
}
