package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wellbank/segmint/internal/cli"
	"github.com/wellbank/segmint/internal/cluster"
	"github.com/wellbank/segmint/internal/engine"
)

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Batch segmentation pipeline",
	}
	cmd.AddCommand(batchRunCmd())
	return cmd
}

func batchRunCmd() *cobra.Command {
	var variant string
	var clusters int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the clustering and recommendation pipeline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := cluster.Variant(variant)
			if v != cluster.VariantAggregate && v != cluster.VariantCategory {
				return fmt.Errorf("unknown variant %q (expected aggregate or category)", variant)
			}

			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			models, err := modelsDir()
			if err != nil {
				return err
			}

			pipeline := engine.New(store, models)
			pipeline.ShowProgress = true

			summary, err := pipeline.Run(cmd.Context(), v, clusters)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("Run #%d complete", summary.RunID)))
			fmt.Printf("  variant:          %s\n", summary.Variant)
			fmt.Printf("  customers:        %d\n", summary.Customers)
			fmt.Printf("  clusters:         %d\n", summary.Clusters)
			fmt.Printf("  features:         %d\n", summary.Features)
			fmt.Printf("  recommendations:  %d\n", summary.Recommendations)
			fmt.Printf("  inertia:          %.2f\n", summary.Metrics.Inertia)
			if summary.Metrics.Silhouette != 0 {
				fmt.Printf("  silhouette:       %.3f\n", summary.Metrics.Silhouette)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&variant, "variant", string(cluster.VariantAggregate), "pipeline variant (aggregate, category)")
	cmd.Flags().IntVar(&clusters, "clusters", 0, "cluster count (0 = variant default)")
	return cmd
}
