package levels

import (
	"fmt"
	"strings"

	"github.com/banshee-data/tkal/internal/detid"
)

// ObjectID names one tier of a subdetector's mechanical hierarchy.
type ObjectID int

const (
	InvalidObject ObjectID = iota

	TPBModule
	TPBLadder
	TPBLayer
	TPBHalfBarrel
	TPBBarrel

	TPEModule
	TPEPanel
	TPEBlade
	TPEHalfDisk
	TPEHalfCylinder
	TPEEndcap

	TIBModule
	TIBString
	TIBSurface
	TIBHalfShell
	TIBLayer
	TIBHalfBarrel
	TIBBarrel

	TIDModule
	TIDSide
	TIDRing
	TIDDisk
	TIDEndcap

	TOBModule
	TOBRod
	TOBLayer
	TOBHalfBarrel
	TOBBarrel

	TECModule
	TECRing
	TECPetal
	TECSide
	TECDisk
	TECEndcap
)

type objectInfo struct {
	name   string
	short  string
	family detid.SubDetector
}

var objects = map[ObjectID]objectInfo{
	TPBModule:     {"TPBModule", "Module", detid.PixelBarrel},
	TPBLadder:     {"TPBLadder", "Ladder", detid.PixelBarrel},
	TPBLayer:      {"TPBLayer", "Layer", detid.PixelBarrel},
	TPBHalfBarrel: {"TPBHalfBarrel", "HalfBarrel", detid.PixelBarrel},
	TPBBarrel:     {"TPBBarrel", "Barrel", detid.PixelBarrel},

	TPEModule:       {"TPEModule", "Module", detid.PixelEndcap},
	TPEPanel:        {"TPEPanel", "Panel", detid.PixelEndcap},
	TPEBlade:        {"TPEBlade", "Blade", detid.PixelEndcap},
	TPEHalfDisk:     {"TPEHalfDisk", "HalfDisk", detid.PixelEndcap},
	TPEHalfCylinder: {"TPEHalfCylinder", "HalfCylinder", detid.PixelEndcap},
	TPEEndcap:       {"TPEEndcap", "Endcap", detid.PixelEndcap},

	TIBModule:     {"TIBModule", "Module", detid.TIB},
	TIBString:     {"TIBString", "String", detid.TIB},
	TIBSurface:    {"TIBSurface", "Surface", detid.TIB},
	TIBHalfShell:  {"TIBHalfShell", "HalfShell", detid.TIB},
	TIBLayer:      {"TIBLayer", "Layer", detid.TIB},
	TIBHalfBarrel: {"TIBHalfBarrel", "HalfBarrel", detid.TIB},
	TIBBarrel:     {"TIBBarrel", "Barrel", detid.TIB},

	TIDModule: {"TIDModule", "Module", detid.TID},
	TIDSide:   {"TIDSide", "Side", detid.TID},
	TIDRing:   {"TIDRing", "Ring", detid.TID},
	TIDDisk:   {"TIDDisk", "Disk", detid.TID},
	TIDEndcap: {"TIDEndcap", "Endcap", detid.TID},

	TOBModule:     {"TOBModule", "Module", detid.TOB},
	TOBRod:        {"TOBRod", "Rod", detid.TOB},
	TOBLayer:      {"TOBLayer", "Layer", detid.TOB},
	TOBHalfBarrel: {"TOBHalfBarrel", "HalfBarrel", detid.TOB},
	TOBBarrel:     {"TOBBarrel", "Barrel", detid.TOB},

	TECModule: {"TECModule", "Module", detid.TEC},
	TECRing:   {"TECRing", "Ring", detid.TEC},
	TECPetal:  {"TECPetal", "Petal", detid.TEC},
	TECSide:   {"TECSide", "Side", detid.TEC},
	TECDisk:   {"TECDisk", "Disk", detid.TEC},
	TECEndcap: {"TECEndcap", "Endcap", detid.TEC},
}

func (o ObjectID) String() string {
	if info, ok := objects[o]; ok {
		return info.name
	}
	return "INVALID"
}

// Short returns the family-independent tier name, e.g. "Ladder".
func (o ObjectID) Short() string {
	if info, ok := objects[o]; ok {
		return info.short
	}
	return "INVALID"
}

// Family returns the subdetector the tier belongs to.
func (o ObjectID) Family() detid.SubDetector {
	return objects[o].family
}

// MarshalText renders the level name in JSON output.
func (o ObjectID) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Level describes one alignment level: how many instances of it exist
// inside one instance of the next coarser level (or globally, for module
// counts), and whether its members face in opposite directions.
type Level struct {
	Name             ObjectID `json:"name"`
	Cardinality      int      `json:"cardinality"`
	MixedOrientation bool     `json:"mixed_orientation"`
}

func (l Level) String() string {
	if l.MixedOrientation {
		return fmt.Sprintf("%s(%d, mixed)", l.Name, l.Cardinality)
	}
	return fmt.Sprintf("%s(%d)", l.Name, l.Cardinality)
}

// FamilyLevels is the finest-to-coarsest level list of one subdetector.
type FamilyLevels struct {
	Family detid.SubDetector `json:"family"`
	Levels []Level           `json:"levels"`
}

// HalfShellStrings holds the strings per half shell of one inner-barrel
// layer, for the inner (order 1) and outer surface.
type HalfShellStrings struct {
	Inner uint32 `json:"inner"`
	Outer uint32 `json:"outer"`
}

// Auxiliary carries per-layer values derived during the build for consumers
// other than the level list (the alignable-structure builders).
type Auxiliary struct {
	// LaddersPerQuarterCylinder is indexed by pixel-barrel layer-1.
	LaddersPerQuarterCylinder []uint32 `json:"ladders_per_quarter_cylinder,omitempty"`
	// BladesPerQuarterDisk is derived from the pixel-endcap blade count.
	BladesPerQuarterDisk uint32 `json:"blades_per_quarter_disk,omitempty"`
	// StringsPerHalfShell is indexed by inner-barrel layer-1.
	StringsPerHalfShell []HalfShellStrings `json:"strings_per_half_shell,omitempty"`
}

// StringsPerHalfShellFlat returns StringsPerHalfShell as inner, outer pairs
// in layer order: [l1 inner, l1 outer, l2 inner, ...].
func (a Auxiliary) StringsPerHalfShellFlat() []uint32 {
	out := make([]uint32, 0, 2*len(a.StringsPerHalfShell))
	for _, s := range a.StringsPerHalfShell {
		out = append(out, s.Inner, s.Outer)
	}
	return out
}

// Result is the output of one build.
type Result struct {
	// Families holds one entry per subdetector that received identifiers,
	// in PixelBarrel, PixelEndcap, TIB, TID, TOB, TEC order.
	Families []FamilyLevels `json:"families"`
	Aux      Auxiliary      `json:"aux"`
	// Counts is the number of identifiers accumulated per subdetector.
	Counts map[detid.SubDetector]int `json:"counts"`
	// Skipped counts identifiers outside the six tracker subdetectors.
	Skipped int `json:"skipped"`
}

// Levels returns all family level lists concatenated in output order.
func (r *Result) Levels() []Level {
	var out []Level
	for _, f := range r.Families {
		out = append(out, f.Levels...)
	}
	return out
}

// Family returns the levels of one subdetector.
func (r *Result) Family(sd detid.SubDetector) ([]Level, bool) {
	for _, f := range r.Families {
		if f.Family == sd {
			return f.Levels, true
		}
	}
	return nil, false
}

// Table renders the result as a fixed-width text table.
func (r *Result) Table() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %-16s %-12s %11s %s\n", "FAMILY", "LEVEL", "TIER", "CARDINALITY", "MIXED")
	for _, f := range r.Families {
		for _, l := range f.Levels {
			fmt.Fprintf(&b, "%-12s %-16s %-12s %11d %t\n", f.Family, l.Name, l.Name.Short(), l.Cardinality, l.MixedOrientation)
		}
	}
	return b.String()
}
