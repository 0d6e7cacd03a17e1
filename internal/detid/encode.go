package detid

import "fmt"

// Encoder packs structural coordinates into identifiers for a layout. It is
// the inverse of BitTopology and is used to generate geometries and fixtures.
type Encoder struct {
	L Layout
}

// NewEncoder returns an encoder for the given layout.
func NewEncoder(l Layout) *Encoder { return &Encoder{L: l} }

type fieldValue struct {
	name string
	f    Field
	v    uint32
}

func (e *Encoder) pack(sd SubDetector, fields ...fieldValue) (DetID, error) {
	raw := uint32(DetTracker)<<detStartBit | uint32(sd)<<subdetStartBit
	for _, fv := range fields {
		bits, err := fv.f.put(fv.v)
		if err != nil {
			return 0, fmt.Errorf("%s %s: %w", sd, fv.name, err)
		}
		raw |= bits
	}
	return DetID(raw), nil
}

// PXB encodes a pixel-barrel module.
func (e *Encoder) PXB(layer, ladder, module uint32) (DetID, error) {
	return e.pack(PixelBarrel,
		fieldValue{"layer", e.L.PXBLayer, layer},
		fieldValue{"ladder", e.L.PXBLadder, ladder},
		fieldValue{"module", e.L.PXBModule, module},
	)
}

// PXF encodes a pixel-endcap module.
func (e *Encoder) PXF(side, disk, blade, panel, module uint32) (DetID, error) {
	return e.pack(PixelEndcap,
		fieldValue{"side", e.L.PXFSide, side},
		fieldValue{"disk", e.L.PXFDisk, disk},
		fieldValue{"blade", e.L.PXFBlade, blade},
		fieldValue{"panel", e.L.PXFPanel, panel},
		fieldValue{"module", e.L.PXFModule, module},
	)
}

// TIB encodes an inner-barrel module. order is 1 for the inner surface of
// the layer and 2 for the outer one.
func (e *Encoder) TIB(side, layer, order, str, module uint32) (DetID, error) {
	return e.pack(TIB,
		fieldValue{"side", e.L.TIBSide, side},
		fieldValue{"layer", e.L.TIBLayer, layer},
		fieldValue{"order", e.L.TIBOrder, order},
		fieldValue{"string", e.L.TIBString, str},
		fieldValue{"module", e.L.TIBModule, module},
	)
}

// TID encodes an inner-disk module on the front ring surface.
func (e *Encoder) TID(side, wheel, ring, module uint32) (DetID, error) {
	return e.pack(TID,
		fieldValue{"side", e.L.TIDSide, side},
		fieldValue{"wheel", e.L.TIDWheel, wheel},
		fieldValue{"ring", e.L.TIDRing, ring},
		fieldValue{"order", e.L.TIDOrder, 1},
		fieldValue{"module", e.L.TIDModule, module},
	)
}

// TOB encodes an outer-barrel module.
func (e *Encoder) TOB(layer, side, rod, module uint32) (DetID, error) {
	return e.pack(TOB,
		fieldValue{"layer", e.L.TOBLayer, layer},
		fieldValue{"side", e.L.TOBSide, side},
		fieldValue{"rod", e.L.TOBRod, rod},
		fieldValue{"module", e.L.TOBModule, module},
	)
}

// TEC encodes an endcap module on a front petal.
func (e *Encoder) TEC(side, wheel, petal, ring, module uint32) (DetID, error) {
	return e.pack(TEC,
		fieldValue{"side", e.L.TECSide, side},
		fieldValue{"wheel", e.L.TECWheel, wheel},
		fieldValue{"petal side", e.L.TECPetalSide, 1},
		fieldValue{"petal", e.L.TECPetal, petal},
		fieldValue{"ring", e.L.TECRing, ring},
		fieldValue{"module", e.L.TECModule, module},
	)
}

// MustPXB is PXB for fixtures; it panics on overflow.
func (e *Encoder) MustPXB(layer, ladder, module uint32) DetID {
	return must(e.PXB(layer, ladder, module))
}

// MustPXF is PXF for fixtures; it panics on overflow.
func (e *Encoder) MustPXF(side, disk, blade, panel, module uint32) DetID {
	return must(e.PXF(side, disk, blade, panel, module))
}

// MustTIB is TIB for fixtures; it panics on overflow.
func (e *Encoder) MustTIB(side, layer, order, str, module uint32) DetID {
	return must(e.TIB(side, layer, order, str, module))
}

// MustTID is TID for fixtures; it panics on overflow.
func (e *Encoder) MustTID(side, wheel, ring, module uint32) DetID {
	return must(e.TID(side, wheel, ring, module))
}

// MustTOB is TOB for fixtures; it panics on overflow.
func (e *Encoder) MustTOB(layer, side, rod, module uint32) DetID {
	return must(e.TOB(layer, side, rod, module))
}

// MustTEC is TEC for fixtures; it panics on overflow.
func (e *Encoder) MustTEC(side, wheel, petal, ring, module uint32) DetID {
	return must(e.TEC(side, wheel, petal, ring, module))
}

func must(id DetID, err error) DetID {
	if err != nil {
		panic(err)
	}
	return id
}
