package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/tkal/internal/alignment"
	"github.com/banshee-data/tkal/internal/conddb"
	"github.com/banshee-data/tkal/internal/config"
	"github.com/banshee-data/tkal/internal/detid"
	"github.com/banshee-data/tkal/internal/monitoring"
	"github.com/banshee-data/tkal/internal/report"
)

func newSnapshotCmd(a *app) *cobra.Command {
	var output, geom string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Write ideal alignment records for a geometry",
		Long: `snapshot converts every element of the geometry into an alignment
transform with a zero alignment position error, optionally replaces the
entries of elements found in stored records, and writes both records to the
output conditions database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := a.loadJob()
			if err != nil {
				return err
			}
			if output != "" {
				job.Output.Connect = output
			}
			if geom != "" {
				job.Geometry.CSV = geom
			}
			if err := job.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
			defer cancel()
			return runSnapshot(ctx, job)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output conditions database (overrides output.connect)")
	cmd.Flags().StringVar(&geom, "geometry", "", "Geometry CSV (overrides geometry.csv)")
	return cmd
}

func runSnapshot(ctx context.Context, job *config.JobConfig) error {
	layout, err := detid.LayoutByName(job.GetTopology())
	if err != nil {
		return err
	}
	tracker, err := jobGeometry(job, layout)
	if err != nil {
		return err
	}

	snap, err := alignment.NewIdealSnapshot(tracker, job.GetTopology() == "phase1")
	if err != nil {
		return err
	}

	if job.GetAlignToGlobalTag() {
		in, err := conddb.OpenDBNoMigrate(job.Input.Connect)
		if err != nil {
			return err
		}
		defer in.Close()
		reader := conddb.NewService(in, conddb.RunNumber, job.Input.GetRecords())
		if err := snap.AlignToReader(ctx, reader, job.Input.GetRun()); err != nil {
			return err
		}
	}

	timeType, err := conddb.ParseTimeType(job.Output.GetTimeType())
	if err != nil {
		return err
	}
	since := job.Output.GetSince()
	if since == 0 {
		if since, err = timeType.FirstSince(); err != nil {
			return err
		}
	}

	out, err := conddb.OpenDB(job.Output.Connect)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := snap.Write(ctx, conddb.NewService(out, timeType, job.Output.GetRecords()), since); err != nil {
		return err
	}
	monitoring.Logf("wrote %d alignments to %s since %d", snap.Len(), job.Output.Connect, since)

	if job.Report.PlotPath != "" {
		if err := report.PlotGeometry(tracker, report.ViewXY, job.Report.PlotPath); err != nil {
			return err
		}
	}
	return nil
}
