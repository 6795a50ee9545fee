package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wellbank/segmint/internal/cli"
	"github.com/wellbank/segmint/internal/model"
	"github.com/wellbank/segmint/internal/service"
)

func recommendationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recommendations",
		Aliases: []string{"recs"},
		Short:   "Review and act on product recommendations",
	}
	cmd.AddCommand(recsListCmd())
	cmd.AddCommand(recsShowCmd())
	cmd.AddCommand(recsEditCmd())
	cmd.AddCommand(recsSendCmd())
	cmd.AddCommand(recsDismissCmd())
	return cmd
}

func parseRecommendationID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid recommendation ID %q", arg)
	}
	return id, nil
}

func recsListCmd() *cobra.Command {
	var (
		status     string
		customerID string
		runID      int64
		limit      int
		offset     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recommendations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			filter := service.RecommendationFilter{
				Status:     model.RecommendationStatus(status),
				CustomerID: customerID,
				RunID:      runID,
				Limit:      limit,
				Offset:     offset,
			}

			recs, err := store.ListRecommendations(cmd.Context(), filter)
			if err != nil {
				return err
			}
			total, err := store.CountRecommendations(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No recommendations match"))
				return nil
			}

			fmt.Println(cli.TableHeaderStyle.Render(fmt.Sprintf(
				"%-6s %-10s %-22s %-6s %-9s %-10s", "ID", "CUSTOMER", "PRODUCT", "PROB", "REVENUE", "STATUS")))
			for _, r := range recs {
				fmt.Printf("%-6d %-10s %-22s %-6.2f %-9.0f %s\n",
					r.ID, r.CustomerID, r.ProductCode, r.AcceptanceProb, r.ExpectedRevenue,
					cli.StatusStyle(string(r.Status)).Render(string(r.Status)))
			}
			fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("showing %d of %d", len(recs), total)))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending, reviewed, sent, dismissed)")
	cmd.Flags().StringVar(&customerID, "customer", "", "filter by customer ID")
	cmd.Flags().Int64Var(&runID, "run", 0, "filter by run ID")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows (0 = all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func recsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a recommendation with its explanation",
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

			rec, err := store.GetRecommendation(cmd.Context(), id)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatTitle(fmt.Sprintf("Recommendation #%d", rec.ID)))
			fmt.Printf("  customer:  %s\n", rec.CustomerID)
			fmt.Printf("  product:   %s\n", rec.ProductCode)
			fmt.Printf("  prob:      %.2f\n", rec.AcceptanceProb)
			fmt.Printf("  revenue:   %.0f\n", rec.ExpectedRevenue)
			fmt.Printf("  status:    %s\n", cli.StatusStyle(string(rec.Status)).Render(string(rec.Status)))
			fmt.Printf("  run:       %d\n", rec.RunID)

			if expl, explErr := store.GetExplanation(cmd.Context(), rec.ID); explErr == nil {
				fmt.Printf("  model:     %s\n", expl.ModelName)
				fmt.Printf("  narrative: %s\n", expl.Narrative)
			}
			if rec.EditedNarrative != "" {
				fmt.Println(cli.InfoStyle.Render(fmt.Sprintf("  edited by %s: %s", rec.EditedBy, rec.EditedNarrative)))
			}
			if rec.DismissedReason != "" {
				fmt.Println(cli.SubtleStyle.Render("  dismissed: " + rec.DismissedReason))
			}
			return nil
		},
	}
}

func recsEditCmd() *cobra.Command {
	var narrative, reason, by string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Override the narrative or reason and mark reviewed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRecommendationID(args[0])
			if err != nil {
				return err
			}
			if narrative == "" && reason == "" {
				return fmt.Errorf("nothing to edit: provide --narrative and/or --reason")
			}

			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.EditRecommendation(cmd.Context(), id, narrative, reason, by); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Recommendation #%d reviewed", id)))
			return nil
		},
	}

	cmd.Flags().StringVar(&narrative, "narrative", "", "replacement narrative text")
	cmd.Flags().StringVar(&reason, "reason", "", "replacement reason text")
	cmd.Flags().StringVar(&by, "by", "", "advisor identifier")
	return cmd
}

func recsSendCmd() *cobra.Command {
	var by string

	cmd := &cobra.Command{
		Use:   "send <id>",
		Short: "Mark a recommendation as sent to the customer",
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

			if err := store.SendRecommendation(cmd.Context(), id, by); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Recommendation #%d sent", id)))
			return nil
		},
	}

	cmd.Flags().StringVar(&by, "by", "", "advisor identifier")
	return cmd
}

func recsDismissCmd() *cobra.Command {
	var reason, by string

	cmd := &cobra.Command{
		Use:   "dismiss <id>",
		Short: "Dismiss a recommendation",
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

			if err := store.DismissRecommendation(cmd.Context(), id, reason, by); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Recommendation #%d dismissed", id)))
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "why the recommendation was dismissed")
	cmd.Flags().StringVar(&by, "by", "", "advisor identifier")
	return cmd
}
