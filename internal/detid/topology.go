package detid

import (
	"fmt"
	"strings"
)

// Topology extracts structural coordinates from tracker identifiers. Each
// accessor assumes the identifier belongs to the matching subdetector.
type Topology interface {
	PXBLayer(id DetID) uint32
	PXBLadder(id DetID) uint32
	PXBModule(id DetID) uint32

	PXFSide(id DetID) uint32
	PXFDisk(id DetID) uint32
	PXFBlade(id DetID) uint32
	PXFPanel(id DetID) uint32
	PXFModule(id DetID) uint32

	TIBSide(id DetID) uint32
	TIBLayer(id DetID) uint32
	TIBOrder(id DetID) uint32
	TIBString(id DetID) uint32
	TIBModule(id DetID) uint32

	TIDSide(id DetID) uint32
	TIDWheel(id DetID) uint32
	TIDRing(id DetID) uint32
	TIDModule(id DetID) uint32

	TOBLayer(id DetID) uint32
	TOBSide(id DetID) uint32
	TOBRod(id DetID) uint32
	TOBModule(id DetID) uint32

	TECSide(id DetID) uint32
	TECWheel(id DetID) uint32
	TECPetal(id DetID) uint32
	TECRing(id DetID) uint32
	TECModule(id DetID) uint32
}

// Field is one packed coordinate: (raw >> Start) & Mask.
type Field struct {
	Start uint32
	Mask  uint32
}

func (f Field) get(id DetID) uint32 { return (uint32(id) >> f.Start) & f.Mask }

func (f Field) put(v uint32) (uint32, error) {
	if v > f.Mask {
		return 0, fmt.Errorf("value %d exceeds field mask %#x", v, f.Mask)
	}
	return v << f.Start, nil
}

// Layout is the full bit layout of one detector generation.
type Layout struct {
	Name string

	PXBLayer, PXBLadder, PXBModule Field

	PXFSide, PXFDisk, PXFBlade, PXFPanel, PXFModule Field

	TIBSide, TIBLayer, TIBOrder, TIBString, TIBModule Field

	TIDSide, TIDWheel, TIDRing, TIDOrder, TIDModule Field

	TOBLayer, TOBSide, TOBRod, TOBModule Field

	TECSide, TECWheel, TECPetalSide, TECPetal, TECRing, TECModule Field
}

// Phase0Layout is the original tracker layout (pre-2017 pixel detector).
func Phase0Layout() Layout {
	l := stripLayout()
	l.Name = "phase0"
	l.PXBLayer = Field{16, 0xF}
	l.PXBLadder = Field{8, 0xFF}
	l.PXBModule = Field{2, 0x3F}
	l.PXFSide = Field{23, 0x3}
	l.PXFDisk = Field{16, 0xF}
	l.PXFBlade = Field{10, 0x3F}
	l.PXFPanel = Field{8, 0x3}
	l.PXFModule = Field{2, 0x3F}
	return l
}

// Phase1Layout is the layout with the four-layer upgraded pixel detector.
func Phase1Layout() Layout {
	l := stripLayout()
	l.Name = "phase1"
	l.PXBLayer = Field{20, 0xF}
	l.PXBLadder = Field{12, 0xFF}
	l.PXBModule = Field{2, 0x3FF}
	l.PXFSide = Field{23, 0x3}
	l.PXFDisk = Field{18, 0xF}
	l.PXFBlade = Field{12, 0x3F}
	l.PXFPanel = Field{10, 0x3}
	l.PXFModule = Field{2, 0xFF}
	return l
}

// strip tracker fields are shared by both generations
func stripLayout() Layout {
	return Layout{
		TIBLayer:  Field{14, 0x7},
		TIBSide:   Field{12, 0x3},
		TIBOrder:  Field{10, 0x3},
		TIBString: Field{4, 0x3F},
		TIBModule: Field{2, 0x3},

		TIDSide:   Field{13, 0x3},
		TIDWheel:  Field{11, 0x3},
		TIDRing:   Field{9, 0x3},
		TIDOrder:  Field{7, 0x3},
		TIDModule: Field{2, 0x1F},

		TOBLayer:  Field{14, 0x7},
		TOBSide:   Field{12, 0x3},
		TOBRod:    Field{5, 0x7F},
		TOBModule: Field{2, 0x7},

		TECSide:      Field{18, 0x3},
		TECWheel:     Field{14, 0xF},
		TECPetalSide: Field{12, 0x3},
		TECPetal:     Field{8, 0xF},
		TECRing:      Field{5, 0x7},
		TECModule:    Field{2, 0x7},
	}
}

// LayoutByName returns a predefined layout ("phase0" or "phase1").
func LayoutByName(name string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "phase0", "run1", "run2":
		return Phase0Layout(), nil
	case "phase1", "":
		return Phase1Layout(), nil
	default:
		return Layout{}, fmt.Errorf("unknown topology layout %q", name)
	}
}

// BitTopology implements Topology by masking fields out of the raw id.
type BitTopology struct {
	L Layout
}

// NewBitTopology returns a topology reading the given layout.
func NewBitTopology(l Layout) *BitTopology { return &BitTopology{L: l} }

func (t *BitTopology) PXBLayer(id DetID) uint32  { return t.L.PXBLayer.get(id) }
func (t *BitTopology) PXBLadder(id DetID) uint32 { return t.L.PXBLadder.get(id) }
func (t *BitTopology) PXBModule(id DetID) uint32 { return t.L.PXBModule.get(id) }

func (t *BitTopology) PXFSide(id DetID) uint32   { return t.L.PXFSide.get(id) }
func (t *BitTopology) PXFDisk(id DetID) uint32   { return t.L.PXFDisk.get(id) }
func (t *BitTopology) PXFBlade(id DetID) uint32  { return t.L.PXFBlade.get(id) }
func (t *BitTopology) PXFPanel(id DetID) uint32  { return t.L.PXFPanel.get(id) }
func (t *BitTopology) PXFModule(id DetID) uint32 { return t.L.PXFModule.get(id) }

func (t *BitTopology) TIBSide(id DetID) uint32   { return t.L.TIBSide.get(id) }
func (t *BitTopology) TIBLayer(id DetID) uint32  { return t.L.TIBLayer.get(id) }
func (t *BitTopology) TIBOrder(id DetID) uint32  { return t.L.TIBOrder.get(id) }
func (t *BitTopology) TIBString(id DetID) uint32 { return t.L.TIBString.get(id) }
func (t *BitTopology) TIBModule(id DetID) uint32 { return t.L.TIBModule.get(id) }

func (t *BitTopology) TIDSide(id DetID) uint32   { return t.L.TIDSide.get(id) }
func (t *BitTopology) TIDWheel(id DetID) uint32  { return t.L.TIDWheel.get(id) }
func (t *BitTopology) TIDRing(id DetID) uint32   { return t.L.TIDRing.get(id) }
func (t *BitTopology) TIDModule(id DetID) uint32 { return t.L.TIDModule.get(id) }

func (t *BitTopology) TOBLayer(id DetID) uint32  { return t.L.TOBLayer.get(id) }
func (t *BitTopology) TOBSide(id DetID) uint32   { return t.L.TOBSide.get(id) }
func (t *BitTopology) TOBRod(id DetID) uint32    { return t.L.TOBRod.get(id) }
func (t *BitTopology) TOBModule(id DetID) uint32 { return t.L.TOBModule.get(id) }

func (t *BitTopology) TECSide(id DetID) uint32   { return t.L.TECSide.get(id) }
func (t *BitTopology) TECWheel(id DetID) uint32  { return t.L.TECWheel.get(id) }
func (t *BitTopology) TECPetal(id DetID) uint32  { return t.L.TECPetal.get(id) }
func (t *BitTopology) TECRing(id DetID) uint32   { return t.L.TECRing.get(id) }
func (t *BitTopology) TECModule(id DetID) uint32 { return t.L.TECModule.get(id) }
