package levels

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/tkal/internal/detid"
	"github.com/banshee-data/tkal/internal/monitoring"
)

var (
	// ErrNoIdentifiers is returned by Build when nothing was accumulated.
	ErrNoIdentifiers = errors.New("no tracker identifiers accumulated")
	// ErrMissingFamily is returned when RequireAllFamilies is set and a
	// subdetector received no identifiers.
	ErrMissingFamily = errors.New("subdetector has no identifiers")
	// ErrInvalidCoordinate reports a decoded coordinate the hierarchy cannot
	// place, such as layer 0.
	ErrInvalidCoordinate = errors.New("invalid decoded coordinate")
	// ErrInconsistentStats reports statistics that cannot describe a family
	// that received identifiers.
	ErrInconsistentStats = errors.New("inconsistent accumulated statistics")
	// ErrAlreadyBuilt is returned when a Builder is reused after Build.
	ErrAlreadyBuilt = errors.New("levels already built")
)

// Default design layer counts used to size the per-layer outputs.
const (
	DefaultPXBLayers = 4
	DefaultTIBLayers = 4
)

// Options tunes a build.
type Options struct {
	// PXBLayers and TIBLayers are the minimum lengths of the per-layer
	// auxiliary outputs. Layers beyond them are added when seen.
	PXBLayers int
	TIBLayers int
	// RequireAllFamilies turns a subdetector without identifiers into an
	// error instead of omitting it from the result.
	RequireAllFamilies bool
}

// DefaultOptions returns the options for the four-layer pixel and inner
// barrel detectors.
func DefaultOptions() Options {
	return Options{PXBLayers: DefaultPXBLayers, TIBLayers: DefaultTIBLayers}
}

// Builder accumulates identifiers and then builds the alignment levels.
// A Builder is single-use and not safe for concurrent use.
type Builder struct {
	topo    detid.Topology
	opts    Options
	stats   [len(detid.Families)]familyStats
	skipped int
	err     error
	built   bool
}

// NewBuilder returns a builder decoding identifiers with topo.
func NewBuilder(topo detid.Topology, opts Options) *Builder {
	return &Builder{
		topo: topo,
		opts: opts,
		stats: [len(detid.Families)]familyStats{
			newPXBStats(opts.PXBLayers),
			newPXEStats(),
			newTIBStats(opts.TIBLayers),
			newTIDStats(),
			newTOBStats(),
			newTECStats(),
		},
	}
}

// statsFor returns the accumulator of a subdetector, or nil if the
// identifier belongs to no modelled family.
func (b *Builder) statsFor(sd detid.SubDetector) familyStats {
	if sd < detid.PixelBarrel || sd > detid.TEC {
		return nil
	}
	return b.stats[sd-detid.PixelBarrel]
}

func (b *Builder) skip(id detid.DetID) {
	b.skipped++
	monitoring.Debugf("skipping det id %s: det %d subdet %d is not a tracker family", id, id.Det(), id.SubdetID())
}

// Add accumulates one identifier. Identifiers outside the six tracker
// subdetectors are counted as skipped and otherwise ignored. A decoding
// error is returned and also makes Build fail.
func (b *Builder) Add(id detid.DetID) error {
	if b.built {
		return ErrAlreadyBuilt
	}
	if b.err != nil {
		return b.err
	}
	st := b.statsFor(id.SubDetector())
	if st == nil {
		b.skip(id)
		return nil
	}
	if err := st.add(b.topo, id); err != nil {
		b.err = err
		return err
	}
	return nil
}

// AddAll accumulates ids in order, stopping at the first error.
func (b *Builder) AddAll(ids []detid.DetID) error {
	for _, id := range ids {
		if err := b.Add(id); err != nil {
			return err
		}
	}
	return nil
}

// Skipped returns the number of identifiers ignored so far.
func (b *Builder) Skipped() int { return b.skipped }

// Build turns the accumulated statistics into the level hierarchy. It must
// be called once, after all identifiers were added.
func (b *Builder) Build() (*Result, error) {
	if err := b.begin(); err != nil {
		return nil, err
	}
	built := make([][]Level, len(b.stats))
	for i, st := range b.stats {
		if st.count() == 0 {
			continue
		}
		lv, err := st.build()
		if err != nil {
			return nil, err
		}
		built[i] = lv
	}
	return b.assemble(built), nil
}

// begin checks the preconditions shared by both build paths.
func (b *Builder) begin() error {
	if b.built {
		return ErrAlreadyBuilt
	}
	b.built = true
	if b.err != nil {
		return fmt.Errorf("accumulation failed: %w", b.err)
	}

	total := 0
	for _, st := range b.stats {
		total += st.count()
		if st.count() == 0 && b.opts.RequireAllFamilies {
			return fmt.Errorf("%w: %s", ErrMissingFamily, st.family())
		}
	}
	if total == 0 {
		return fmt.Errorf("%w (%d skipped)", ErrNoIdentifiers, b.skipped)
	}
	return nil
}

func (b *Builder) assemble(built [][]Level) *Result {
	res := &Result{
		Counts:  make(map[detid.SubDetector]int, len(b.stats)),
		Skipped: b.skipped,
	}
	for i, st := range b.stats {
		sd := st.family()
		res.Counts[sd] = st.count()
		if st.count() == 0 {
			monitoring.Logf("no identifiers for %s, no alignment levels built", sd)
			continue
		}
		res.Families = append(res.Families, FamilyLevels{Family: sd, Levels: built[i]})
		st.publish(&res.Aux)
	}
	if b.skipped > 0 {
		monitoring.Logf("skipped %d identifiers outside the tracker subdetectors", b.skipped)
	}
	return res
}

// Build runs a complete sequential build over ids.
func Build(topo detid.Topology, ids []detid.DetID, opts Options) (*Result, error) {
	b := NewBuilder(topo, opts)
	if err := b.AddAll(ids); err != nil {
		return nil, err
	}
	return b.Build()
}

// BuildParallel produces the same result as Build but runs each
// subdetector's accumulation and level construction on its own goroutine.
// All accumulation finishes before any family is built.
func BuildParallel(topo detid.Topology, ids []detid.DetID, opts Options) (*Result, error) {
	b := NewBuilder(topo, opts)

	parts := make([][]detid.DetID, len(b.stats))
	for _, id := range ids {
		sd := id.SubDetector()
		if b.statsFor(sd) == nil {
			b.skip(id)
			continue
		}
		i := sd - detid.PixelBarrel
		parts[i] = append(parts[i], id)
	}

	var acc errgroup.Group
	for i, st := range b.stats {
		part := parts[i]
		acc.Go(func() error {
			for _, id := range part {
				if err := st.add(topo, id); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := acc.Wait(); err != nil {
		b.err = err
	}

	if err := b.begin(); err != nil {
		return nil, err
	}

	built := make([][]Level, len(b.stats))
	var bld errgroup.Group
	for i, st := range b.stats {
		if st.count() == 0 {
			continue
		}
		bld.Go(func() error {
			lv, err := st.build()
			built[i] = lv
			return err
		})
	}
	if err := bld.Wait(); err != nil {
		return nil, err
	}
	return b.assemble(built), nil
}
