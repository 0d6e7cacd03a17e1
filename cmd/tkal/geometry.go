package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/tkal/internal/config"
	"github.com/banshee-data/tkal/internal/detid"
	"github.com/banshee-data/tkal/internal/geometry"
	"github.com/banshee-data/tkal/internal/levels"
	"github.com/banshee-data/tkal/internal/monitoring"
)

// jobGeometry loads the geometry named by the job, or the synthetic
// phase-1 tracker encoded with the job's layout.
func jobGeometry(job *config.JobConfig, layout detid.Layout) (*geometry.Tracker, error) {
	if job.Geometry.CSV != "" {
		t, err := geometry.LoadCSVFile(job.Geometry.CSV)
		if err != nil {
			return nil, err
		}
		monitoring.Logf("loaded %d elements from %s", len(t.Dets), job.Geometry.CSV)
		return t, nil
	}
	t, err := geometry.Synthetic(detid.NewEncoder(layout), geometry.Phase1Spec())
	if err != nil {
		return nil, err
	}
	monitoring.Logf("generated synthetic %s geometry with %d elements", job.GetTopology(), len(t.Dets))
	return t, nil
}

func levelOptions(job *config.JobConfig) levels.Options {
	return levels.Options{
		PXBLayers:          job.Levels.GetPXBLayers(),
		TIBLayers:          job.Levels.GetTIBLayers(),
		RequireAllFamilies: job.Levels.GetRequireAllFamilies(),
	}
}

// readIDs parses one raw identifier per line, decimal or 0x-prefixed hex.
// Blank lines and lines starting with '#' are ignored.
func readIDs(r io.Reader) ([]detid.DetID, error) {
	var ids []detid.DetID
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		v, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ids = append(ids, detid.DetID(v))
	}
	return ids, sc.Err()
}

func readIDsFile(path string) ([]detid.DetID, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open id list: %w", err)
	}
	defer f.Close()
	return readIDs(f)
}
