package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tkal/internal/alignment"
	"github.com/banshee-data/tkal/internal/conddb"
	"github.com/banshee-data/tkal/internal/config"
	"github.com/banshee-data/tkal/internal/detid"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLevelsCommand_Synthetic(t *testing.T) {
	out, err := execute(t, "levels")
	require.NoError(t, err)

	assert.Contains(t, out, "TPBLadder")
	assert.Contains(t, out, "TECEndcap")
	assert.Contains(t, out, "ladders per quarter cylinder: [3 7 11 16]")
	assert.Contains(t, out, "blades per quarter disk:      14")
	assert.Contains(t, out, "strings per half shell:       [13 15 17 19 22 23 26 28]")
	assert.NotContains(t, out, "skipped")
}

func TestLevelsCommand_JSONParallelMatches(t *testing.T) {
	seq, err := execute(t, "levels", "--json")
	require.NoError(t, err)
	par, err := execute(t, "levels", "--json", "--parallel")
	require.NoError(t, err)
	assert.JSONEq(t, seq, par)

	var decoded struct {
		Families []struct {
			Family string `json:"family"`
			Levels []struct {
				Name        string `json:"name"`
				Cardinality int    `json:"cardinality"`
			} `json:"levels"`
		} `json:"families"`
		Counts map[string]int `json:"counts"`
	}
	require.NoError(t, json.Unmarshal([]byte(seq), &decoded))
	require.Len(t, decoded.Families, 6)
	assert.Equal(t, "PixelBarrel", decoded.Families[0].Family)
	assert.Equal(t, "TPBModule", decoded.Families[0].Levels[0].Name)
	assert.Equal(t, 148*8, decoded.Counts["PixelBarrel"])
}

func TestLevelsCommand_IDsFileAndChart(t *testing.T) {
	dir := t.TempDir()
	enc := detid.NewEncoder(detid.Phase1Layout())
	lines := []string{
		"# two TOB modules and a muon chamber",
		"",
		enc.MustTOB(1, 1, 5, 2).String(),
		fmt.Sprintf("0x%x", uint32(enc.MustTOB(2, 2, 9, 1))),
		"574619648",
	}
	ids := writeFile(t, dir, "ids.txt", strings.Join(lines, "\n"))
	chart := filepath.Join(dir, "levels.html")

	out, err := execute(t, "levels", "--ids", ids, "--chart", chart)
	require.NoError(t, err)
	assert.Contains(t, out, "TOBRod")
	assert.NotContains(t, out, "TIB")
	assert.Contains(t, out, "skipped identifiers:          1")

	html, err := os.ReadFile(chart)
	require.NoError(t, err)
	assert.Contains(t, string(html), "TOB")
}

func TestLevelsCommand_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "levels", "--ids", writeFile(t, dir, "empty.txt", "# nothing\n"))
	assert.ErrorContains(t, err, "no tracker identifiers")

	_, err = execute(t, "levels", "--ids", writeFile(t, dir, "bad.txt", "12\nnope\n"))
	assert.ErrorContains(t, err, "line 2")

	cfg := writeFile(t, dir, "strict.yaml", "output:\n  connect: x.db\nlevels:\n  require_all_families: true\n")
	ids := writeFile(t, dir, "one.txt", detid.NewEncoder(detid.Phase1Layout()).MustTID(1, 1, 1, 1).String()+"\n")
	_, err = execute(t, "levels", "--config", cfg, "--ids", ids)
	assert.ErrorContains(t, err, "has no identifiers")
}

func TestSnapshotCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "out.db")
	plot := filepath.Join(dir, "xy.png")
	cfg := writeFile(t, dir, "job.yaml", `
output:
  connect: `+dbPath+`
  since: 100
report:
  plot_path: `+plot+`
`)

	_, err := execute(t, "snapshot", "--config", cfg)
	require.NoError(t, err)

	_, err = os.Stat(plot)
	require.NoError(t, err)

	db, err := conddb.OpenDB(dbPath)
	require.NoError(t, err)
	defer db.Close()
	svc := conddb.NewService(db, conddb.RunNumber, config.DefaultRecords)

	ctx := context.Background()
	a, err := svc.Alignments(ctx, alignment.AlignmentRecord, 100)
	require.NoError(t, err)
	assert.Len(t, a.Transforms, 11228)
	for i := 1; i < len(a.Transforms); i++ {
		require.Less(t, a.Transforms[i-1].RawID, a.Transforms[i].RawID)
	}

	e, err := svc.AlignmentErrors(ctx, alignment.ErrorRecord, 100)
	require.NoError(t, err)
	assert.Len(t, e.Errors, 11228)

	_, err = svc.Alignments(ctx, alignment.AlignmentRecord, 99)
	assert.ErrorIs(t, err, conddb.ErrNoIOV)
}

func TestSnapshotCommand_AlignToGlobalTag(t *testing.T) {
	dir := t.TempDir()
	gtPath := filepath.Join(dir, "gt.db")
	outPath := filepath.Join(dir, "out.db")

	// seed a "global tag" with the ideal records, then align a second
	// snapshot to it
	_, err := execute(t, "snapshot", "--output", gtPath)
	require.NoError(t, err)

	cfg := writeFile(t, dir, "job.yaml", `
output:
  connect: `+outPath+`
align_to_global_tag: true
input:
  connect: `+gtPath+`
  run: 5
`)
	_, err = execute(t, "snapshot", "--config", cfg)
	require.NoError(t, err)

	out, err := execute(t, "iovs", "--db", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "SINCE")
	assert.Contains(t, out, "\n1 ")
}

func TestSnapshotCommand_Errors(t *testing.T) {
	_, err := execute(t, "snapshot")
	assert.ErrorContains(t, err, "Connect")

	dir := t.TempDir()
	_, err = execute(t, "snapshot", "--output", filepath.Join(dir, "o.db"), "--geometry", filepath.Join(dir, "missing.csv"))
	assert.ErrorContains(t, err, "failed to open geometry file")

	cfg := writeFile(t, dir, "job.yaml", `
output:
  connect: `+filepath.Join(dir, "o2.db")+`
align_to_global_tag: true
input:
  connect: `+filepath.Join(dir, "empty-gt.db")+`
`)
	_, err = execute(t, "snapshot", "--config", cfg)
	assert.Error(t, err)
}

func TestMigrateCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "m.db")

	out, err := execute(t, "migrate", "status", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "version: 0")
	assert.Contains(t, out, "latest:  2")

	_, err = execute(t, "migrate", "up", "--db", dbPath)
	require.NoError(t, err)
	out, err = execute(t, "migrate", "status", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "version: 2")

	_, err = execute(t, "migrate", "down", "--db", dbPath)
	require.NoError(t, err)
	out, err = execute(t, "migrate", "status", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "version: 1")

	_, err = execute(t, "migrate", "status")
	assert.ErrorContains(t, err, "no database")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "tkal dev"))
}

func TestReadIDs(t *testing.T) {
	ids, err := readIDs(strings.NewReader("  302055684\n# c\n0x12000004\n\n"))
	require.NoError(t, err)
	assert.Equal(t, []detid.DetID{302055684, 0x12000004}, ids)

	_, err = readIDs(strings.NewReader("4294967296\n"))
	assert.Error(t, err)
}
