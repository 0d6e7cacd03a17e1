package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/tkal/internal/conddb"
	"github.com/banshee-data/tkal/internal/config"
)

// dbPath returns --db, falling back to output.connect of the job.
func (a *app) dbPath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	job, err := a.loadJob()
	if err != nil {
		return "", err
	}
	if job.Output.Connect == "" {
		return "", fmt.Errorf("no database: pass --db or set output.connect")
	}
	return job.Output.Connect, nil
}

func newMigrateCmd(a *app) *cobra.Command {
	var dbFlag string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the conditions database schema",
	}
	cmd.PersistentFlags().StringVar(&dbFlag, "db", "", "Conditions database (defaults to output.connect)")

	open := func() (*conddb.DB, error) {
		path, err := a.dbPath(dbFlag)
		if err != nil {
			return nil, err
		}
		return conddb.OpenDBNoMigrate(path)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := open()
				if err != nil {
					return err
				}
				defer db.Close()
				return db.MigrateUp()
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := open()
				if err != nil {
					return err
				}
				defer db.Close()
				return db.MigrateDown()
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := open()
				if err != nil {
					return err
				}
				defer db.Close()
				v, dirty, err := db.MigrateVersion()
				if err != nil {
					return err
				}
				latest, err := conddb.LatestMigration()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version: %d\nlatest:  %d\ndirty:   %t\n", v, latest, dirty)
				return nil
			},
		},
	)
	return cmd
}

func newIOVsCmd(a *app) *cobra.Command {
	var dbFlag, tag string
	cmd := &cobra.Command{
		Use:   "iovs",
		Short: "List the validity intervals of a tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.dbPath(dbFlag)
			if err != nil {
				return err
			}
			if tag == "" {
				tag = config.DefaultRecords["TrackerAlignmentRcd"]
			}
			db, err := conddb.OpenDB(path)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
			defer cancel()
			iovs, err := conddb.NewService(db, conddb.RunNumber, nil).IOVs(ctx, tag)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SINCE\tPAYLOAD\tINSERTED")
			for _, iov := range iovs {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", iov.Since, iov.PayloadID, iov.Inserted.UTC().Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&dbFlag, "db", "", "Conditions database (defaults to output.connect)")
	cmd.Flags().StringVar(&tag, "tag", "", "Tag name (defaults to the alignment record's default tag)")
	return cmd
}
