package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/tkal/internal/detid"
)

// SyntheticSpec describes a regular tracker. Lengths are in millimetres.
type SyntheticSpec struct {
	PXBRadii   []float64
	PXBLadders []uint32
	PXBModules uint32

	PXFDiskZ  []float64
	PXFBlades uint32
	PXFRadius float64

	TIBRadii        []float64
	TIBStringsInner []uint32
	TIBStringsOuter []uint32
	TIBModules      uint32

	TIDWheelZ      []float64
	TIDRingModules []uint32

	TOBRadii   []float64
	TOBRods    []uint32
	TOBModules uint32

	TECWheelZ  []float64
	TECPetals  uint32
	TECRings   uint32
	TECModules uint32
}

// Phase1Spec returns a coarse stand-in for the phase-1 tracker: the real
// structure counts per layer, with idealised radii and positions.
func Phase1Spec() SyntheticSpec {
	return SyntheticSpec{
		PXBRadii:   []float64{29, 68, 109, 160},
		PXBLadders: []uint32{12, 28, 44, 64},
		PXBModules: 8,

		PXFDiskZ:  []float64{291, 396, 516},
		PXFBlades: 56,
		PXFRadius: 110,

		TIBRadii:        []float64{255, 339, 418.5, 498},
		TIBStringsInner: []uint32{26, 34, 44, 52},
		TIBStringsOuter: []uint32{30, 38, 46, 56},
		TIBModules:      3,

		TIDWheelZ:      []float64{800, 900, 1000},
		TIDRingModules: []uint32{12, 12, 20},

		TOBRadii:   []float64{608, 692, 780, 868, 965, 1080},
		TOBRods:    []uint32{42, 48, 54, 60, 66, 74},
		TOBModules: 6,

		TECWheelZ:  []float64{1240, 1380, 1520, 1660, 1800, 1980, 2200, 2450, 2800},
		TECPetals:  8,
		TECRings:   7,
		TECModules: 3,
	}
}

// sideSign maps side 1 to the negative z half and side 2 to the positive.
func sideSign(side uint32) float64 {
	if side == 1 {
		return -1
	}
	return 1
}

type placer struct {
	enc  *detid.Encoder
	dets []Det
	err  error
}

func (p *placer) place(id detid.DetID, err error, pos r3.Vec, rot *mat.Dense) {
	if p.err != nil {
		return
	}
	if err != nil {
		p.err = err
		return
	}
	p.dets = append(p.dets, Det{ID: id, Position: pos, Rotation: rot})
}

// barrel places a module at radius r, azimuth phi and height z, facing out.
func barrel(r, phi, z float64) (r3.Vec, *mat.Dense) {
	return r3.Vec{X: r * math.Cos(phi), Y: r * math.Sin(phi), Z: z}, RotZ(phi)
}

// disk places a module at radius r and azimuth phi on a disk at z. Modules
// on the negative side are flipped to face the interaction point.
func disk(r, phi, z float64) (r3.Vec, *mat.Dense) {
	rot := RotZ(phi)
	if z < 0 {
		var flipped mat.Dense
		flipped.Mul(rot, RotX(math.Pi))
		rot = &flipped
	}
	return r3.Vec{X: r * math.Cos(phi), Y: r * math.Sin(phi), Z: z}, rot
}

// Synthetic generates the tracker described by spec using the identifier
// layout of enc.
func Synthetic(enc *detid.Encoder, spec SyntheticSpec) (*Tracker, error) {
	if len(spec.PXBRadii) != len(spec.PXBLadders) ||
		len(spec.TIBRadii) != len(spec.TIBStringsInner) ||
		len(spec.TIBRadii) != len(spec.TIBStringsOuter) ||
		len(spec.TOBRadii) != len(spec.TOBRods) {
		return nil, fmt.Errorf("synthetic spec: per-layer slices differ in length")
	}
	p := &placer{enc: enc}

	const pxbPitch = 66.5
	for li, r := range spec.PXBRadii {
		n := spec.PXBLadders[li]
		for ladder := uint32(1); ladder <= n; ladder++ {
			phi := 2 * math.Pi * float64(ladder-1) / float64(n)
			for m := uint32(1); m <= spec.PXBModules; m++ {
				z := (float64(m) - 0.5 - float64(spec.PXBModules)/2) * pxbPitch
				pos, rot := barrel(r, phi, z)
				id, err := enc.PXB(uint32(li+1), ladder, m)
				p.place(id, err, pos, rot)
			}
		}
	}

	for side := uint32(1); side <= 2; side++ {
		for di, z := range spec.PXFDiskZ {
			for blade := uint32(1); blade <= spec.PXFBlades; blade++ {
				phi := 2 * math.Pi * float64(blade-1) / float64(spec.PXFBlades)
				for panel := uint32(1); panel <= 2; panel++ {
					dz := float64(panel-1) * 6
					pos, rot := disk(spec.PXFRadius, phi, sideSign(side)*(z+dz))
					id, err := enc.PXF(side, uint32(di+1), blade, panel, 1)
					p.place(id, err, pos, rot)
				}
			}
		}
	}

	const tibPitch = 120.0
	for side := uint32(1); side <= 2; side++ {
		for li, r := range spec.TIBRadii {
			for order, n := range []uint32{spec.TIBStringsInner[li], spec.TIBStringsOuter[li]} {
				radius := r - 4 + 8*float64(order)
				for str := uint32(1); str <= n; str++ {
					phi := 2 * math.Pi * float64(str-1) / float64(n)
					for m := uint32(1); m <= spec.TIBModules; m++ {
						pos, rot := barrel(radius, phi, sideSign(side)*float64(m)*tibPitch)
						id, err := enc.TIB(side, uint32(li+1), uint32(order+1), str, m)
						p.place(id, err, pos, rot)
					}
				}
			}
		}
	}

	for side := uint32(1); side <= 2; side++ {
		for wi, z := range spec.TIDWheelZ {
			for ri, n := range spec.TIDRingModules {
				r := 250 + 100*float64(ri)
				for m := uint32(1); m <= n; m++ {
					phi := 2 * math.Pi * float64(m-1) / float64(n)
					pos, rot := disk(r, phi, sideSign(side)*z)
					id, err := enc.TID(side, uint32(wi+1), uint32(ri+1), m)
					p.place(id, err, pos, rot)
				}
			}
		}
	}

	const tobPitch = 180.0
	for li, r := range spec.TOBRadii {
		n := spec.TOBRods[li]
		for side := uint32(1); side <= 2; side++ {
			for rod := uint32(1); rod <= n; rod++ {
				phi := 2 * math.Pi * float64(rod-1) / float64(n)
				for m := uint32(1); m <= spec.TOBModules; m++ {
					pos, rot := barrel(r, phi, sideSign(side)*float64(m)*tobPitch)
					id, err := enc.TOB(uint32(li+1), side, rod, m)
					p.place(id, err, pos, rot)
				}
			}
		}
	}

	for side := uint32(1); side <= 2; side++ {
		for wi, z := range spec.TECWheelZ {
			for petal := uint32(1); petal <= spec.TECPetals; petal++ {
				phi0 := 2 * math.Pi * float64(petal-1) / float64(spec.TECPetals)
				for ring := uint32(1); ring <= spec.TECRings; ring++ {
					r := 230 + 110*float64(ring-1)
					for m := uint32(1); m <= spec.TECModules; m++ {
						phi := phi0 + (float64(m)-2)*0.1
						pos, rot := disk(r, phi, sideSign(side)*z)
						id, err := enc.TEC(side, uint32(wi+1), petal, ring, m)
						p.place(id, err, pos, rot)
					}
				}
			}
		}
	}

	if p.err != nil {
		return nil, fmt.Errorf("synthetic geometry: %w", p.err)
	}
	return &Tracker{Dets: p.dets}, nil
}
