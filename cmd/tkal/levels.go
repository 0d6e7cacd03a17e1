package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/tkal/internal/config"
	"github.com/banshee-data/tkal/internal/detid"
	"github.com/banshee-data/tkal/internal/levels"
	"github.com/banshee-data/tkal/internal/report"
)

type levelsFlags struct {
	idsPath  string
	asJSON   bool
	parallel bool
	chart    string
}

func newLevelsCmd(a *app) *cobra.Command {
	var f levelsFlags
	cmd := &cobra.Command{
		Use:   "levels",
		Short: "Derive the alignment-level hierarchy",
		Long: `levels classifies detector identifiers by subdetector, accumulates the
structure counts of each family and prints the alignment levels from module
up to the whole barrel or endcap, with the per-layer auxiliary values.

Identifiers come from --ids (one raw id per line) or from the job geometry.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := a.loadJob()
			if err != nil {
				return err
			}
			if f.parallel {
				job.Levels.Parallel = &f.parallel
			}
			if f.chart != "" {
				job.Report.ChartPath = f.chart
			}
			return runLevels(cmd.OutOrStdout(), job, f)
		},
	}
	cmd.Flags().StringVar(&f.idsPath, "ids", "", "File of raw detector ids, one per line")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&f.parallel, "parallel", false, "Accumulate families concurrently")
	cmd.Flags().StringVar(&f.chart, "chart", "", "Write an HTML level chart (overrides report.chart_path)")
	return cmd
}

func runLevels(w io.Writer, job *config.JobConfig, f levelsFlags) error {
	layout, err := detid.LayoutByName(job.GetTopology())
	if err != nil {
		return err
	}

	var ids []detid.DetID
	if f.idsPath != "" {
		if ids, err = readIDsFile(f.idsPath); err != nil {
			return err
		}
	} else {
		tracker, err := jobGeometry(job, layout)
		if err != nil {
			return err
		}
		ids = tracker.IDs()
	}

	topo := detid.NewBitTopology(layout)
	build := levels.Build
	if job.Levels.GetParallel() {
		build = levels.BuildParallel
	}
	res, err := build(topo, ids, levelOptions(job))
	if err != nil {
		return err
	}

	if f.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		fmt.Fprint(w, res.Table())
		fmt.Fprintf(w, "\nladders per quarter cylinder: %v\n", res.Aux.LaddersPerQuarterCylinder)
		fmt.Fprintf(w, "blades per quarter disk:      %d\n", res.Aux.BladesPerQuarterDisk)
		fmt.Fprintf(w, "strings per half shell:       %v\n", res.Aux.StringsPerHalfShellFlat())
		if res.Skipped > 0 {
			fmt.Fprintf(w, "skipped identifiers:          %d\n", res.Skipped)
		}
	}

	if job.Report.ChartPath != "" {
		out, err := os.Create(job.Report.ChartPath)
		if err != nil {
			return fmt.Errorf("failed to create chart: %w", err)
		}
		if err := report.LevelChart(res, out); err != nil {
			out.Close()
			return err
		}
		return out.Close()
	}
	return nil
}
