package detid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubDetector_Classification(t *testing.T) {
	enc := NewEncoder(Phase1Layout())

	tests := []struct {
		name string
		id   DetID
		want SubDetector
	}{
		{"pixel barrel", enc.MustPXB(1, 3, 2), PixelBarrel},
		{"pixel endcap", enc.MustPXF(1, 2, 5, 1, 1), PixelEndcap},
		{"inner barrel", enc.MustTIB(1, 2, 1, 10, 3), TIB},
		{"inner disk", enc.MustTID(2, 3, 1, 4), TID},
		{"outer barrel", enc.MustTOB(4, 1, 20, 6), TOB},
		{"outer disk", enc.MustTEC(1, 9, 8, 7, 2), TEC},
		{"muon detector", DetID(2<<28 | 1<<25), Unknown},
		{"tracker subdet 7", DetID(1<<28 | 7<<25), Unknown},
		{"tracker subdet 0", DetID(1 << 28), Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.id.SubDetector())
		})
	}
}

func TestSubDetector_String(t *testing.T) {
	names := make([]string, 0, len(Families))
	for _, f := range Families {
		names = append(names, f.String())
	}
	assert.Equal(t, []string{"PixelBarrel", "PixelEndcap", "TIB", "TID", "TOB", "TEC"}, names)
	assert.Equal(t, "Unknown", SubDetector(9).String())
}

func TestBitTopology_RoundTrip(t *testing.T) {
	for _, layout := range []Layout{Phase0Layout(), Phase1Layout()} {
		t.Run(layout.Name, func(t *testing.T) {
			enc := NewEncoder(layout)
			topo := NewBitTopology(layout)

			pxb := enc.MustPXB(3, 17, 5)
			assert.Equal(t, []uint32{3, 17, 5},
				[]uint32{topo.PXBLayer(pxb), topo.PXBLadder(pxb), topo.PXBModule(pxb)})

			pxf := enc.MustPXF(2, 3, 11, 2, 4)
			assert.Equal(t, []uint32{2, 3, 11, 2, 4},
				[]uint32{topo.PXFSide(pxf), topo.PXFDisk(pxf), topo.PXFBlade(pxf), topo.PXFPanel(pxf), topo.PXFModule(pxf)})

			tib := enc.MustTIB(2, 4, 2, 27, 3)
			assert.Equal(t, []uint32{2, 4, 2, 27, 3},
				[]uint32{topo.TIBSide(tib), topo.TIBLayer(tib), topo.TIBOrder(tib), topo.TIBString(tib), topo.TIBModule(tib)})

			tid := enc.MustTID(1, 3, 2, 12)
			assert.Equal(t, []uint32{1, 3, 2, 12},
				[]uint32{topo.TIDSide(tid), topo.TIDWheel(tid), topo.TIDRing(tid), topo.TIDModule(tid)})

			tob := enc.MustTOB(6, 2, 74, 6)
			assert.Equal(t, []uint32{6, 2, 74, 6},
				[]uint32{topo.TOBLayer(tob), topo.TOBSide(tob), topo.TOBRod(tob), topo.TOBModule(tob)})

			tec := enc.MustTEC(2, 9, 8, 7, 5)
			assert.Equal(t, []uint32{2, 9, 8, 7, 5},
				[]uint32{topo.TECSide(tec), topo.TECWheel(tec), topo.TECPetal(tec), topo.TECRing(tec), topo.TECModule(tec)})
		})
	}
}

func TestEncoder_Overflow(t *testing.T) {
	enc := NewEncoder(Phase0Layout())

	_, err := enc.PXB(16, 1, 1) // layer mask is 0xF
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PixelBarrel layer")

	_, err = enc.TIB(1, 1, 1, 64, 1) // string mask is 0x3F
	require.Error(t, err)

	assert.Panics(t, func() { enc.MustTOB(8, 1, 1, 1) })
}

func TestLayoutByName(t *testing.T) {
	l, err := LayoutByName("Phase0")
	require.NoError(t, err)
	assert.Equal(t, "phase0", l.Name)

	l, err = LayoutByName("")
	require.NoError(t, err)
	assert.Equal(t, "phase1", l.Name)

	_, err = LayoutByName("phase2")
	assert.Error(t, err)
}

func TestGeomSubDetector_Name(t *testing.T) {
	n, err := GeomP1PXEC.Name()
	require.NoError(t, err)
	assert.Equal(t, "P1PXEC", n)

	n, err = GeomInvalidDet.Name()
	require.NoError(t, err)
	assert.Equal(t, "invalidDet", n)

	_, err = GeomSubDetector(99).Name()
	assert.True(t, errors.Is(err, ErrUnknownSubdetector))
}

func TestGeomSubDetectorOf(t *testing.T) {
	enc := NewEncoder(Phase1Layout())
	assert.Equal(t, GeomP1PXB, GeomSubDetectorOf(enc.MustPXB(1, 1, 1), true))
	assert.Equal(t, GeomPixelBarrel, GeomSubDetectorOf(enc.MustPXB(1, 1, 1), false))
	assert.Equal(t, GeomTEC, GeomSubDetectorOf(enc.MustTEC(1, 1, 1, 1, 1), true))
	assert.Equal(t, GeomInvalidDet, GeomSubDetectorOf(DetID(0), true))
}
