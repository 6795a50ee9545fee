package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wellbank/segmint/internal/cli"
	"github.com/wellbank/segmint/internal/model"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the batch run ledger",
	}
	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsLastCmd())
	return cmd
}

func runsListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List batch runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No batch runs recorded yet"))
				return nil
			}

			fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf("%-6s %-20s %-20s %-10s", "ID", "STARTED", "FINISHED", "STATUS")))
			for _, run := range runs {
				printRunRow(run)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to show (0 = all)")
	return cmd
}

func runsLastCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "last",
		Short: "Show the most recent batch run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			run, err := store.GetLatestRun(cmd.Context(), model.RunStatus(status))
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("Run #%d", run.ID)))
			printRunRow(*run)
			if run.Notes != "" {
				fmt.Println(cli.SubtleStyle.Render("notes: " + run.Notes))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (running, success, failed)")
	return cmd
}

func printRunRow(run model.BatchRun) {
	finished := "-"
	if run.FinishedAt != nil {
		finished = run.FinishedAt.Format(time.DateTime)
	}
	fmt.Printf("%-6d %-20s %-20s %s\n",
		run.ID,
		run.StartedAt.Format(time.DateTime),
		finished,
		cli.StatusStyle(string(run.Status)).Render(string(run.Status)))
}
