package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tkal/internal/detid"
	"github.com/banshee-data/tkal/internal/geometry"
	"github.com/banshee-data/tkal/internal/levels"
	"github.com/banshee-data/tkal/internal/monitoring"
)

func syntheticTracker(t *testing.T) *geometry.Tracker {
	t.Helper()
	tr, err := geometry.Synthetic(detid.NewEncoder(detid.Phase1Layout()), geometry.Phase1Spec())
	require.NoError(t, err)
	return tr
}

func TestPlotGeometry(t *testing.T) {
	tr := syntheticTracker(t)
	dir := t.TempDir()

	for _, view := range []View{ViewXY, ViewRZ} {
		path := filepath.Join(dir, view.String()+".png")
		require.NoError(t, PlotGeometry(tr, view, path))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(1000))
	}
}

func TestPlotGeometry_Errors(t *testing.T) {
	tr := syntheticTracker(t)
	dir := t.TempDir()

	assert.ErrorContains(t, PlotGeometry(tr, ViewXY, filepath.Join(dir, "xy.bmp")), "unsupported plot format")
	assert.ErrorContains(t, PlotGeometry(tr, View(7), filepath.Join(dir, "xy.png")), "unsupported view View(7)")
}

func TestViewProject(t *testing.T) {
	d := geometry.Det{}
	d.Position.X, d.Position.Y, d.Position.Z = 3, -4, 12

	xy := ViewXY.project(d)
	assert.Equal(t, 3.0, xy.X)
	assert.Equal(t, -4.0, xy.Y)

	rz := ViewRZ.project(d)
	assert.Equal(t, 12.0, rz.X)
	assert.Equal(t, -5.0, rz.Y)
}

func TestLevelChart(t *testing.T) {
	monitoring.SetLogger(nil)
	tr := syntheticTracker(t)
	res, err := levels.Build(detid.NewBitTopology(detid.Phase1Layout()), tr.IDs(), levels.DefaultOptions())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, LevelChart(res, &buf))

	html := buf.String()
	for _, fam := range []string{"PixelBarrel", "PixelEndcap", "TIB", "TID", "TOB", "TEC"} {
		assert.Contains(t, html, fam)
	}
	assert.Contains(t, html, "mixed orientation")
}

func TestLevelChart_Empty(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, LevelChart(nil, &buf))
	assert.Error(t, LevelChart(&levels.Result{}, &buf))
}
