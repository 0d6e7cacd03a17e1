package levels

import (
	"fmt"
	"strings"

	"github.com/banshee-data/tkal/internal/detid"
	"github.com/banshee-data/tkal/internal/monitoring"
)

// idSet collects the distinct values seen for one coordinate.
type idSet map[uint32]struct{}

func (s idSet) insert(v uint32) { s[v] = struct{}{} }

// layerMax tracks the largest index seen per layer. Layers are 1-based;
// the slice grows on demand and unvisited layers stay zero.
type layerMax []uint32

func newLayerMax(designLayers int) layerMax {
	if designLayers < 0 {
		designLayers = 0
	}
	return make(layerMax, designLayers)
}

func (m *layerMax) observe(layer, v uint32) error {
	if layer == 0 {
		return fmt.Errorf("%w: layer index 0", ErrInvalidCoordinate)
	}
	i := int(layer) - 1
	m.growTo(i + 1)
	if (*m)[i] < v {
		(*m)[i] = v
	}
	return nil
}

func (m *layerMax) growTo(n int) {
	if n <= len(*m) {
		return
	}
	grown := make(layerMax, n)
	copy(grown, *m)
	*m = grown
}

// familyStats is implemented by exactly the six accumulators below. Each
// one owns its state; add and build never touch another family.
type familyStats interface {
	family() detid.SubDetector
	add(t detid.Topology, id detid.DetID) error
	count() int
	build() ([]Level, error)
	publish(aux *Auxiliary)
}

// cardinality returns the size of a coordinate set, failing if the set is
// empty while the family has identifiers.
func cardinality(sd detid.SubDetector, coord string, s idSet) (int, error) {
	if len(s) == 0 {
		return 0, fmt.Errorf("%w: %s has no %s values", ErrInconsistentStats, sd, coord)
	}
	return len(s), nil
}

type summary struct {
	strings.Builder
}

func newSummary(sd detid.SubDetector) *summary {
	s := &summary{}
	fmt.Fprintf(s, "determined following numbers for %s geometry:\n", sd)
	return s
}

func (s *summary) line(format string, v ...interface{}) {
	fmt.Fprintf(s, format+"\n", v...)
}

func (s *summary) flush() {
	monitoring.Logf("%s", strings.TrimRight(s.String(), "\n"))
}

// ---------------------------------------------------------------------------
// Pixel barrel

type pxbStats struct {
	n               int
	layers, ladders idSet
	modules         idSet
	laddersPerLayer layerMax
}

func newPXBStats(designLayers int) *pxbStats {
	return &pxbStats{
		layers:          idSet{},
		ladders:         idSet{},
		modules:         idSet{},
		laddersPerLayer: newLayerMax(designLayers),
	}
}

func (s *pxbStats) family() detid.SubDetector { return detid.PixelBarrel }
func (s *pxbStats) count() int                { return s.n }

func (s *pxbStats) add(t detid.Topology, id detid.DetID) error {
	layer := t.PXBLayer(id)
	ladder := t.PXBLadder(id)
	module := t.PXBModule(id)

	if err := s.laddersPerLayer.observe(layer, ladder); err != nil {
		return fmt.Errorf("%s %s: %w", s.family(), id, err)
	}
	s.layers.insert(layer)
	s.ladders.insert(ladder)
	s.modules.insert(module)
	s.n++
	return nil
}

func (s *pxbStats) build() ([]Level, error) {
	sd := s.family()
	modules, err := cardinality(sd, "module", s.modules)
	if err != nil {
		return nil, err
	}
	ladders, err := cardinality(sd, "ladder", s.ladders)
	if err != nil {
		return nil, err
	}
	layers, err := cardinality(sd, "layer", s.layers)
	if err != nil {
		return nil, err
	}
	// ladders are split over two half barrels
	ladders /= 2

	sum := newSummary(sd)
	sum.line("   max. number of modules: %d", modules)
	sum.line("   max. number of ladders: %d", ladders)
	for i, n := range s.laddersPerLayer {
		sum.line("      ladders in layer-%d: %d", i+1, n)
	}
	sum.line("   max. number of layers:  %d", layers)
	sum.flush()

	return []Level{
		{TPBModule, modules, false},
		{TPBLadder, ladders, true},
		{TPBLayer, layers, false},
		{TPBHalfBarrel, 2, false},
		{TPBBarrel, 1, false},
	}, nil
}

func (s *pxbStats) publish(aux *Auxiliary) {
	aux.LaddersPerQuarterCylinder = make([]uint32, len(s.laddersPerLayer))
	for i, n := range s.laddersPerLayer {
		aux.LaddersPerQuarterCylinder[i] = n / 4
	}
}

// ---------------------------------------------------------------------------
// Pixel endcap

type pxeStats struct {
	n                                     int
	sides, disks, blades, panels, modules idSet
}

func newPXEStats() *pxeStats {
	return &pxeStats{sides: idSet{}, disks: idSet{}, blades: idSet{}, panels: idSet{}, modules: idSet{}}
}

func (s *pxeStats) family() detid.SubDetector { return detid.PixelEndcap }
func (s *pxeStats) count() int                { return s.n }

func (s *pxeStats) add(t detid.Topology, id detid.DetID) error {
	s.sides.insert(t.PXFSide(id))
	s.disks.insert(t.PXFDisk(id))
	s.blades.insert(t.PXFBlade(id))
	s.panels.insert(t.PXFPanel(id))
	s.modules.insert(t.PXFModule(id))
	s.n++
	return nil
}

func (s *pxeStats) bladesPerHalfCylinder() int { return len(s.blades) / 2 }

func (s *pxeStats) build() ([]Level, error) {
	sd := s.family()
	modules, err := cardinality(sd, "module", s.modules)
	if err != nil {
		return nil, err
	}
	panels, err := cardinality(sd, "panel", s.panels)
	if err != nil {
		return nil, err
	}
	if _, err := cardinality(sd, "blade", s.blades); err != nil {
		return nil, err
	}
	disks, err := cardinality(sd, "disk", s.disks)
	if err != nil {
		return nil, err
	}
	sides, err := cardinality(sd, "side", s.sides)
	if err != nil {
		return nil, err
	}
	// blades are split over two half cylinders
	blades := s.bladesPerHalfCylinder()

	sum := newSummary(sd)
	sum.line("   max. number of modules: %d", modules)
	sum.line("   max. number of panels:  %d", panels)
	sum.line("   max. number of blades:  %d", blades)
	sum.line("      blades per quarter disk: %d", blades/2)
	sum.line("   max. number of disks:   %d", disks)
	sum.line("   max. number of sides:   %d", sides)
	sum.flush()

	return []Level{
		{TPEModule, modules, false},
		{TPEPanel, panels, true},
		{TPEBlade, blades, true},
		{TPEHalfDisk, disks, false},
		{TPEHalfCylinder, 2, false},
		{TPEEndcap, sides, false},
	}, nil
}

func (s *pxeStats) publish(aux *Auxiliary) {
	aux.BladesPerQuarterDisk = uint32(s.bladesPerHalfCylinder() / 2)
}

// ---------------------------------------------------------------------------
// Tracker inner barrel

type tibStats struct {
	n                            int
	sides, layers, strs, modules idSet
	stringsInner, stringsOuter   layerMax
}

func newTIBStats(designLayers int) *tibStats {
	return &tibStats{
		sides:        idSet{},
		layers:       idSet{},
		strs:         idSet{},
		modules:      idSet{},
		stringsInner: newLayerMax(designLayers),
		stringsOuter: newLayerMax(designLayers),
	}
}

func (s *tibStats) family() detid.SubDetector { return detid.TIB }
func (s *tibStats) count() int                { return s.n }

func (s *tibStats) add(t detid.Topology, id detid.DetID) error {
	side := t.TIBSide(id)
	layer := t.TIBLayer(id)
	order := t.TIBOrder(id)
	str := t.TIBString(id)
	module := t.TIBModule(id)

	perLayer := &s.stringsOuter
	if order == 1 {
		perLayer = &s.stringsInner
	}
	if err := perLayer.observe(layer, str); err != nil {
		return fmt.Errorf("%s %s: %w", s.family(), id, err)
	}
	// both surfaces are published per layer, so keep them the same length
	n := max(len(s.stringsInner), len(s.stringsOuter))
	s.stringsInner.growTo(n)
	s.stringsOuter.growTo(n)

	s.sides.insert(side)
	s.layers.insert(layer)
	s.strs.insert(str)
	s.modules.insert(module)
	s.n++
	return nil
}

func (s *tibStats) build() ([]Level, error) {
	sd := s.family()
	modules, err := cardinality(sd, "module", s.modules)
	if err != nil {
		return nil, err
	}
	strs, err := cardinality(sd, "string", s.strs)
	if err != nil {
		return nil, err
	}
	layers, err := cardinality(sd, "layer", s.layers)
	if err != nil {
		return nil, err
	}
	sides, err := cardinality(sd, "side", s.sides)
	if err != nil {
		return nil, err
	}

	sum := newSummary(sd)
	sum.line("   max. number of modules: %d", modules)
	sum.line("   max. number of strings: %d", strs)
	for i := range s.stringsInner {
		sum.line("      strings in layer-%d (inside):  %d", i+1, s.stringsInner[i])
		sum.line("      strings in layer-%d (outside): %d", i+1, s.stringsOuter[i])
	}
	sum.line("   max. number of layers:  %d", layers)
	sum.line("   max. number of sides:   %d", sides)
	sum.flush()

	return []Level{
		{TIBModule, modules, false},
		{TIBString, strs, true},
		{TIBSurface, 2, false},   // 2 surfaces per half shell
		{TIBHalfShell, 2, false}, // 2 half shells per layer
		{TIBLayer, layers, false},
		{TIBHalfBarrel, 2, false},
		{TIBBarrel, 1, false},
	}, nil
}

func (s *tibStats) publish(aux *Auxiliary) {
	aux.StringsPerHalfShell = make([]HalfShellStrings, len(s.stringsInner))
	for i := range s.stringsInner {
		aux.StringsPerHalfShell[i] = HalfShellStrings{
			Inner: s.stringsInner[i] / 2,
			Outer: s.stringsOuter[i] / 2,
		}
	}
}

// ---------------------------------------------------------------------------
// Tracker inner disks

type tidStats struct {
	n                             int
	sides, wheels, rings, modules idSet
}

func newTIDStats() *tidStats {
	return &tidStats{sides: idSet{}, wheels: idSet{}, rings: idSet{}, modules: idSet{}}
}

func (s *tidStats) family() detid.SubDetector { return detid.TID }
func (s *tidStats) count() int                { return s.n }

func (s *tidStats) add(t detid.Topology, id detid.DetID) error {
	s.sides.insert(t.TIDSide(id))
	s.wheels.insert(t.TIDWheel(id))
	s.rings.insert(t.TIDRing(id))
	s.modules.insert(t.TIDModule(id))
	s.n++
	return nil
}

func (s *tidStats) build() ([]Level, error) {
	sd := s.family()
	modules, err := cardinality(sd, "module", s.modules)
	if err != nil {
		return nil, err
	}
	rings, err := cardinality(sd, "ring", s.rings)
	if err != nil {
		return nil, err
	}
	wheels, err := cardinality(sd, "wheel", s.wheels)
	if err != nil {
		return nil, err
	}
	sides, err := cardinality(sd, "side", s.sides)
	if err != nil {
		return nil, err
	}

	sum := newSummary(sd)
	sum.line("   max. number of modules: %d", modules)
	sum.line("   max. number of rings:   %d", rings)
	sum.line("   max. number of wheels:  %d", wheels)
	sum.line("   max. number of sides:   %d", sides)
	sum.flush()

	return []Level{
		{TIDModule, modules, false},
		{TIDSide, 2, false}, // 2 sides per ring
		{TIDRing, rings, false},
		{TIDDisk, wheels, false},
		{TIDEndcap, 2, false},
	}, nil
}

func (s *tidStats) publish(*Auxiliary) {}

// ---------------------------------------------------------------------------
// Tracker outer barrel

type tobStats struct {
	n                            int
	layers, sides, rods, modules idSet
}

func newTOBStats() *tobStats {
	return &tobStats{layers: idSet{}, sides: idSet{}, rods: idSet{}, modules: idSet{}}
}

func (s *tobStats) family() detid.SubDetector { return detid.TOB }
func (s *tobStats) count() int                { return s.n }

func (s *tobStats) add(t detid.Topology, id detid.DetID) error {
	s.layers.insert(t.TOBLayer(id))
	s.sides.insert(t.TOBSide(id))
	s.rods.insert(t.TOBRod(id))
	s.modules.insert(t.TOBModule(id))
	s.n++
	return nil
}

func (s *tobStats) build() ([]Level, error) {
	sd := s.family()
	modules, err := cardinality(sd, "module", s.modules)
	if err != nil {
		return nil, err
	}
	rods, err := cardinality(sd, "rod", s.rods)
	if err != nil {
		return nil, err
	}
	sides, err := cardinality(sd, "side", s.sides)
	if err != nil {
		return nil, err
	}
	layers, err := cardinality(sd, "layer", s.layers)
	if err != nil {
		return nil, err
	}

	sum := newSummary(sd)
	sum.line("   max. number of modules: %d", modules)
	sum.line("   max. number of rods:    %d", rods)
	sum.line("   max. number of sides:   %d", sides)
	sum.line("   max. number of layers:  %d", layers)
	sum.flush()

	return []Level{
		{TOBModule, modules, false},
		{TOBRod, rods, true},
		{TOBLayer, layers, false},
		{TOBHalfBarrel, sides, false},
		{TOBBarrel, 1, false},
	}, nil
}

func (s *tobStats) publish(*Auxiliary) {}

// ---------------------------------------------------------------------------
// Tracker endcaps

type tecStats struct {
	n                                     int
	sides, wheels, petals, rings, modules idSet
}

func newTECStats() *tecStats {
	return &tecStats{sides: idSet{}, wheels: idSet{}, petals: idSet{}, rings: idSet{}, modules: idSet{}}
}

func (s *tecStats) family() detid.SubDetector { return detid.TEC }
func (s *tecStats) count() int                { return s.n }

func (s *tecStats) add(t detid.Topology, id detid.DetID) error {
	s.sides.insert(t.TECSide(id))
	s.wheels.insert(t.TECWheel(id))
	s.petals.insert(t.TECPetal(id))
	s.rings.insert(t.TECRing(id))
	s.modules.insert(t.TECModule(id))
	s.n++
	return nil
}

func (s *tecStats) build() ([]Level, error) {
	sd := s.family()
	modules, err := cardinality(sd, "module", s.modules)
	if err != nil {
		return nil, err
	}
	rings, err := cardinality(sd, "ring", s.rings)
	if err != nil {
		return nil, err
	}
	petals, err := cardinality(sd, "petal", s.petals)
	if err != nil {
		return nil, err
	}
	wheels, err := cardinality(sd, "wheel", s.wheels)
	if err != nil {
		return nil, err
	}
	sides, err := cardinality(sd, "side", s.sides)
	if err != nil {
		return nil, err
	}

	sum := newSummary(sd)
	sum.line("   max. number of modules: %d", modules)
	sum.line("   max. number of rings:   %d", rings)
	sum.line("   max. number of petals:  %d", petals)
	sum.line("   max. number of wheels:  %d", wheels)
	sum.line("   max. number of sides:   %d", sides)
	sum.flush()

	return []Level{
		{TECModule, modules, false},
		{TECRing, rings, true},
		{TECPetal, petals, true},
		{TECSide, 2, false}, // 2 sides per disk
		{TECDisk, wheels, false},
		{TECEndcap, 2, false},
	}, nil
}

func (s *tecStats) publish(*Auxiliary) {}
