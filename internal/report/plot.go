// Package report renders diagnostic views of a geometry and of a level
// hierarchy.
package report

import (
	"fmt"
	"math"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/tkal/internal/detid"
	"github.com/banshee-data/tkal/internal/geometry"
)

// View selects the projection of a geometry plot.
type View int

const (
	// ViewXY is the transverse plane.
	ViewXY View = iota
	// ViewRZ plots signed radius against z.
	ViewRZ
)

func (v View) String() string {
	switch v {
	case ViewXY:
		return "x-y"
	case ViewRZ:
		return "r-z"
	default:
		return fmt.Sprintf("View(%d)", int(v))
	}
}

func (v View) project(d geometry.Det) plotter.XY {
	if v == ViewRZ {
		r := math.Hypot(d.Position.X, d.Position.Y)
		if d.Position.Y < 0 {
			r = -r
		}
		return plotter.XY{X: d.Position.Z, Y: r}
	}
	return plotter.XY{X: d.Position.X, Y: d.Position.Y}
}

// PlotGeometry writes a scatter plot of module positions, one series per
// subdetector family, to path. The image format follows the extension.
func PlotGeometry(t *geometry.Tracker, view View, path string) error {
	if view != ViewXY && view != ViewRZ {
		return fmt.Errorf("unsupported view %s", view)
	}
	switch ext := filepath.Ext(path); ext {
	case ".png", ".svg", ".pdf":
	default:
		return fmt.Errorf("unsupported plot format %q", ext)
	}

	byFamily := make(map[detid.SubDetector]plotter.XYs)
	for _, d := range t.Dets {
		sd := d.ID.SubDetector()
		byFamily[sd] = append(byFamily[sd], view.project(d))
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Tracker modules (%s), %d elements", view, len(t.Dets))
	if view == ViewRZ {
		p.X.Label.Text = "z (mm)"
		p.Y.Label.Text = "r (mm)"
	} else {
		p.X.Label.Text = "x (mm)"
		p.Y.Label.Text = "y (mm)"
	}

	families := append([]detid.SubDetector{}, detid.Families[:]...)
	families = append(families, detid.Unknown)
	for i, sd := range families {
		pts := byFamily[sd]
		if len(pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = plotutil.Color(i)
		sc.GlyphStyle.Shape = plotutil.Shape(i)
		sc.GlyphStyle.Radius = vg.Points(1)
		p.Add(sc)
		p.Legend.Add(fmt.Sprintf("%s (%d)", sd, len(pts)), sc)
	}
	p.Add(plotter.NewGrid())

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 10*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}
