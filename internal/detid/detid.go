// Package detid decodes tracker detector-element identifiers.
//
// A DetID packs the detector (bits 28-31), the subdetector (bits 25-27) and a
// subdetector-specific structural address into 32 bits. The structural fields
// are read through a Topology, whose bit layout depends on the detector
// generation (see Phase0Layout and Phase1Layout).
package detid

import (
	"errors"
	"fmt"
)

// ErrUnknownSubdetector is returned when a geometry subdetector code has no name.
var ErrUnknownSubdetector = errors.New("unknown subdetector")

const (
	detStartBit    = 28
	detMask        = 0xF
	subdetStartBit = 25
	subdetMask     = 0x7

	// DetTracker is the detector code of all tracker elements.
	DetTracker = 1
)

// DetID is a raw detector-element identifier.
type DetID uint32

// Det returns the detector code (1 for the tracker).
func (id DetID) Det() uint32 { return (uint32(id) >> detStartBit) & detMask }

// SubdetID returns the raw subdetector code.
func (id DetID) SubdetID() uint32 { return (uint32(id) >> subdetStartBit) & subdetMask }

// SubDetector classifies the identifier. Identifiers outside the tracker, or
// with a subdetector code the tracker does not define, return Unknown.
func (id DetID) SubDetector() SubDetector {
	if id.Det() != DetTracker {
		return Unknown
	}
	sd := SubDetector(id.SubdetID())
	if sd < PixelBarrel || sd > TEC {
		return Unknown
	}
	return sd
}

func (id DetID) String() string {
	return fmt.Sprintf("%d", uint32(id))
}

// SubDetector is one of the six tracker subdetector families.
type SubDetector uint8

const (
	Unknown     SubDetector = 0
	PixelBarrel SubDetector = 1
	PixelEndcap SubDetector = 2
	TIB         SubDetector = 3
	TID         SubDetector = 4
	TOB         SubDetector = 5
	TEC         SubDetector = 6
)

// Families lists the tracker subdetectors in canonical output order.
var Families = [...]SubDetector{PixelBarrel, PixelEndcap, TIB, TID, TOB, TEC}

func (s SubDetector) String() string {
	switch s {
	case PixelBarrel:
		return "PixelBarrel"
	case PixelEndcap:
		return "PixelEndcap"
	case TIB:
		return "TIB"
	case TID:
		return "TID"
	case TOB:
		return "TOB"
	case TEC:
		return "TEC"
	default:
		return "Unknown"
	}
}

// MarshalText renders the family name in JSON output, including map keys.
func (s SubDetector) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// GeomSubDetector is the geometry-level subdetector enumeration, which also
// covers muon chambers and upgrade tracker variants.
type GeomSubDetector int

const (
	GeomPixelBarrel GeomSubDetector = iota
	GeomPixelEndcap
	GeomTIB
	GeomTOB
	GeomTID
	GeomTEC
	GeomCSC
	GeomDT
	GeomRPCBarrel
	GeomRPCEndcap
	GeomGEM
	GeomME0
	GeomP2OTB
	GeomP2OTEC
	GeomP1PXB
	GeomP1PXEC
	GeomP2PXEC
	GeomInvalidDet
)

var geomNames = map[GeomSubDetector]string{
	GeomPixelBarrel: "PixelBarrel",
	GeomPixelEndcap: "PixelEndcap",
	GeomTIB:         "TIB",
	GeomTOB:         "TOB",
	GeomTID:         "TID",
	GeomTEC:         "TEC",
	GeomCSC:         "CSC",
	GeomDT:          "DT",
	GeomRPCBarrel:   "RPCBarrel",
	GeomRPCEndcap:   "RPCEndcap",
	GeomGEM:         "GEM",
	GeomME0:         "ME0",
	GeomP2OTB:       "P2OTB",
	GeomP2OTEC:      "P2OTEC",
	GeomP1PXB:       "P1PXB",
	GeomP1PXEC:      "P1PXEC",
	GeomP2PXEC:      "P2PXEC",
	GeomInvalidDet:  "invalidDet",
}

// Name returns the display name of the geometry subdetector.
func (g GeomSubDetector) Name() (string, error) {
	if n, ok := geomNames[g]; ok {
		return n, nil
	}
	return "", fmt.Errorf("%w: %d", ErrUnknownSubdetector, int(g))
}

// GeomSubDetectorOf maps a tracker identifier to its geometry subdetector.
// Phase-1 pixel geometries report the P1 variants.
func GeomSubDetectorOf(id DetID, phase1Pixel bool) GeomSubDetector {
	switch id.SubDetector() {
	case PixelBarrel:
		if phase1Pixel {
			return GeomP1PXB
		}
		return GeomPixelBarrel
	case PixelEndcap:
		if phase1Pixel {
			return GeomP1PXEC
		}
		return GeomPixelEndcap
	case TIB:
		return GeomTIB
	case TID:
		return GeomTID
	case TOB:
		return GeomTOB
	case TEC:
		return GeomTEC
	default:
		return GeomInvalidDet
	}
}
