package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }
func ptrUint64(v uint64) *uint64 { return &v }

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestEmptyJobConfig_Defaults(t *testing.T) {
	cfg := &JobConfig{}

	if cfg.GetTopology() != "phase1" {
		t.Errorf("GetTopology() = %q, want phase1", cfg.GetTopology())
	}
	if cfg.GetAlignToGlobalTag() {
		t.Error("GetAlignToGlobalTag() should default to false")
	}
	if cfg.Output.GetTimeType() != "runnumber" {
		t.Errorf("GetTimeType() = %q", cfg.Output.GetTimeType())
	}
	if cfg.Output.GetSince() != 0 {
		t.Errorf("GetSince() = %d, want 0", cfg.Output.GetSince())
	}
	if cfg.Levels.GetPXBLayers() != 4 || cfg.Levels.GetTIBLayers() != 4 {
		t.Errorf("layers = %d/%d, want 4/4", cfg.Levels.GetPXBLayers(), cfg.Levels.GetTIBLayers())
	}
	if cfg.Levels.GetRequireAllFamilies() || cfg.Levels.GetParallel() {
		t.Error("level flags should default to false")
	}
	assert.Equal(t, DefaultRecords, cfg.Output.GetRecords())
}

func TestLoadJobConfig_YAML(t *testing.T) {
	path := writeConfig(t, "job.yaml", `
geometry:
  csv: /data/ideal.csv
topology: phase0
output:
  connect: out.db
  time_type: timestamp
  since: 42
  records:
    TrackerAlignmentRcd: MyTag
align_to_global_tag: true
input:
  connect: gt.db
  run: 273000
levels:
  pxb_layers: 3
  require_all_families: true
  parallel: true
report:
  plot_path: xy.png
  chart_path: levels.html
`)
	cfg, err := LoadJobConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/ideal.csv", cfg.Geometry.CSV)
	assert.Equal(t, "phase0", cfg.GetTopology())
	assert.Equal(t, "timestamp", cfg.Output.GetTimeType())
	assert.Equal(t, uint64(42), cfg.Output.GetSince())
	assert.True(t, cfg.GetAlignToGlobalTag())
	assert.Equal(t, uint64(273000), cfg.Input.GetRun())
	assert.Equal(t, 3, cfg.Levels.GetPXBLayers())
	assert.Equal(t, 4, cfg.Levels.GetTIBLayers())
	assert.True(t, cfg.Levels.GetRequireAllFamilies())
	assert.True(t, cfg.Levels.GetParallel())
	assert.Equal(t, "xy.png", cfg.Report.PlotPath)

	recs := cfg.Output.GetRecords()
	assert.Equal(t, "MyTag", recs["TrackerAlignmentRcd"])
	assert.Equal(t, DefaultRecords["TrackerAlignmentErrorExtendedRcd"], recs["TrackerAlignmentErrorExtendedRcd"])
	assert.Equal(t, DefaultRecords, cfg.Input.GetRecords())
}

func TestLoadJobConfig_JSON(t *testing.T) {
	path := writeConfig(t, "job.json", `{"output": {"connect": "out.db"}, "levels": {"tib_layers": 5}}`)
	cfg, err := LoadJobConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "out.db", cfg.Output.Connect)
	assert.Equal(t, 5, cfg.Levels.GetTIBLayers())
}

func TestLoadJobConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"extension", "job.toml", "", ".yaml, .yml or .json"},
		{"parse", "job.yaml", "output: [", "failed to parse config"},
		{"missing connect", "job.yaml", "topology: phase1\n", "Connect"},
		{"bad topology", "job.yaml", "topology: phase2\noutput:\n  connect: x.db\n", "Topology"},
		{"bad time type", "job.yml", "output:\n  connect: x.db\n  time_type: hash\n", "TimeType"},
		{"bad geometry ext", "job.yaml", "geometry:\n  csv: geom.txt\noutput:\n  connect: x.db\n", "CSV"},
		{"layers", "job.yaml", "output:\n  connect: x.db\nlevels:\n  pxb_layers: 0\n", "PXBLayers"},
		{"empty tag", "job.yaml", "output:\n  connect: x.db\n  records:\n    TrackerAlignmentRcd: \"\"\n", "Records"},
		{"align without input", "job.yaml", "output:\n  connect: x.db\nalign_to_global_tag: true\n", "requires an input"},
		{"input without connect", "job.yaml", "output:\n  connect: x.db\ninput:\n  run: 5\n", "Input.Connect"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadJobConfig(writeConfig(t, tt.file, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadJobConfig_TooLarge(t *testing.T) {
	body := "output:\n  connect: x.db\n# " + strings.Repeat("x", maxFileSize) + "\n"
	_, err := LoadJobConfig(writeConfig(t, "big.yaml", body))
	assert.ErrorContains(t, err, "too large")
}

func TestLoadJobConfig_Missing(t *testing.T) {
	_, err := LoadJobConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to stat")
}

func TestValidate_Programmatic(t *testing.T) {
	cfg := &JobConfig{
		Topology:         ptrString("run2"),
		Output:           OutputConfig{Connect: "x.db", Since: ptrUint64(1)},
		AlignToGlobalTag: ptrBool(true),
		Input:            &InputConfig{Connect: "gt.db"},
		Levels:           LevelsConfig{PXBLayers: ptrInt(15)},
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint64(DefaultRun), cfg.Input.GetRun())

	cfg.Levels.PXBLayers = ptrInt(16)
	assert.Error(t, cfg.Validate())
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := LoadJobConfig(filepath.Join("..", "..", ExampleConfigPath))
	require.NoError(t, err)
	assert.Equal(t, "tkal-conditions.db", cfg.Output.Connect)
	assert.Nil(t, cfg.Input)
}
