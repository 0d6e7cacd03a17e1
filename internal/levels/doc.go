// Package levels derives the alignment-level hierarchy of the tracker from
// its detector-element identifiers.
//
// A build runs in two passes. Add decodes each identifier with a
// detid.Topology and updates the statistics of its subdetector: the distinct
// values of every structural coordinate and, for the pixel barrel and the
// inner barrel, the largest ladder or string index per layer. Build then
// turns the finished statistics into one finest-to-coarsest Level list per
// subdetector, in PixelBarrel, PixelEndcap, TIB, TID, TOB, TEC order.
//
// Besides the levels, a build derives per-layer values used by the
// alignable-structure builders (ladders per quarter cylinder, blades per
// quarter disk, strings per half shell). They are returned in Result.Aux.
//
// Identifiers outside the six tracker subdetectors are skipped and counted.
// An empty input is an error rather than a hierarchy of zero counts.
package levels
