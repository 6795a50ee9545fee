package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wellbank/segmint/internal/cli"
	"github.com/wellbank/segmint/internal/ingest"
)

func ingestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <customers|transactions|holdings> <file.csv>",
		Short: "Load a CSV export into the database",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := ingest.ParseDatasetType(args[0])
			if err != nil {
				return err
			}
			path, err := expandPath(args[1])
			if err != nil {
				return err
			}

			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			report, err := ingest.New(store).IngestFile(cmd.Context(), typ, path)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf(
				"Ingested %d of %d %s rows (%d skipped)",
				report.Saved, report.Rows, typ, report.Skipped)))
			return nil
		},
	}
}
