package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wellbank/segmint/internal/cli"
	"github.com/wellbank/segmint/internal/recommend"
)

func suggestCmd() *cobra.Command {
	var top int
	var includeOwned bool

	cmd := &cobra.Command{
		Use:   "suggest <customer-id>",
		Short: "Suggest products for a customer from the trained model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			models, err := modelsDir()
			if err != nil {
				return err
			}

			r := recommend.NewRecommender(store, models)
			result, err := r.Suggest(cmd.Context(), args[0], top, !includeOwned)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("%s: %s (cluster %d)",
				result.CustomerID, result.Persona, result.ClusterID)))
			for i, s := range result.Suggestions {
				fmt.Printf("%d. %s (%s)  prob %.2f  revenue %.0f\n",
					i+1, s.ProductName, s.ProductCode, s.AcceptanceProb, s.ExpectedRevenue)
				fmt.Println(cli.SubtleStyle.Render("   " + s.Narrative))
			}
			if len(result.Suggestions) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No suggestions (customer owns the persona's products)"))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 3, "maximum suggestions")
	cmd.Flags().BoolVar(&includeOwned, "include-owned", false, "include products the customer already holds")
	cmd.AddCommand(suggestAlternativesCmd())
	return cmd
}

func suggestAlternativesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alternatives <recommendation-id>",
		Short: "Score alternative products against an existing recommendation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecommendationID(args[0])
			if err != nil {
				return err
			}

			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			models, err := modelsDir()
			if err != nil {
				return err
			}

			r := recommend.NewRecommender(store, models)
			alternatives, err := r.AlternativesFor(cmd.Context(), id)
			if err != nil {
				return err
			}
			if len(alternatives) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No stronger alternatives found"))
				return nil
			}

			fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf(
				"%-22s %-6s %-6s %-12s %s", "PRODUCT", "FIT", "PROB", "IMPROVEMENT", "REVENUE")))
			for _, a := range alternatives {
				fmt.Printf("%-22s %-6.2f %-6.2f %+-12.3f %.0f\n",
					a.ProductCode, a.FitScore, a.AcceptanceProb, a.Improvement, a.ExpectedRevenue)
			}
			return nil
		},
	}
}
