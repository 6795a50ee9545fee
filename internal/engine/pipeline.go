// Package engine orchestrates the batch segmentation pipeline behind the
// run ledger.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"

	"github.com/wellbank/segmint/internal/cluster"
	"github.com/wellbank/segmint/internal/features"
	"github.com/wellbank/segmint/internal/model"
	"github.com/wellbank/segmint/internal/recommend"
	"github.com/wellbank/segmint/internal/service"
)

// persistBatchSize is the number of customers written per transaction
// during the persist phase. Batches are not atomic across the run: a crash
// mid-persist leaves earlier batches committed and the run stuck at
// running. There is no reconciliation; the next successful run supersedes.
const persistBatchSize = 500

// Pipeline runs feature building, clustering, scoring and persistence as
// one ledgered unit. One run at a time; callers serialize.
type Pipeline struct {
	store        service.Storage
	builder      *features.Builder
	clusterer    *cluster.Engine
	mapper       *recommend.Mapper
	modelsDir    string
	ShowProgress bool
}

// New creates a pipeline. modelsDir is where the category path persists its
// model artifact.
func New(store service.Storage, modelsDir string) *Pipeline {
	return &Pipeline{
		store:     store,
		builder:   features.NewBuilder(store),
		clusterer: cluster.NewEngine(),
		mapper:    recommend.NewMapper(recommend.NewCatalog()),
		modelsDir: modelsDir,
	}
}

// RunSummary reports what a successful run produced.
type RunSummary struct {
	Metrics         cluster.Metrics `json:"metrics"`
	Variant         cluster.Variant `json:"variant"`
	RunID           int64           `json:"run_id"`
	Clusters        int             `json:"n_clusters"`
	Customers       int             `json:"customers_processed"`
	Features        int             `json:"n_features"`
	Recommendations int             `json:"recommendations"`
}

// Run executes the full pipeline. k <= 0 selects the variant default.
// Any failure marks the run failed with the error as its notes and returns
// the error.
func (p *Pipeline) Run(ctx context.Context, variant cluster.Variant, k int) (*RunSummary, error) {
	if k <= 0 {
		k = cluster.DefaultClusters(variant)
	}

	run, err := p.store.CreateRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open run: %w", err)
	}
	logger := slog.With("run_id", run.ID, "variant", string(variant))
	logger.Info("Batch run started", "clusters", k)

	summary, err := p.execute(ctx, run.ID, variant, k, logger)
	if err != nil {
		if failErr := p.store.FailRun(ctx, run.ID, err.Error()); failErr != nil {
			logger.Error("Failed to mark run as failed", "error", failErr)
		}
		return nil, fmt.Errorf("batch run %d failed: %w", run.ID, err)
	}

	notes, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode run notes: %w", err)
	}
	if err := p.store.CompleteRun(ctx, run.ID, string(notes)); err != nil {
		return nil, fmt.Errorf("failed to close run %d: %w", run.ID, err)
	}

	logger.Info("Batch run completed",
		"customers", summary.Customers,
		"recommendations", summary.Recommendations)
	return summary, nil
}

func (p *Pipeline) execute(ctx context.Context, runID int64, variant cluster.Variant, k int, logger *slog.Logger) (*RunSummary, error) {
	var dataset *features.Dataset
	var err error
	if variant == cluster.VariantCategory {
		dataset, err = p.builder.BuildCategory(ctx)
	} else {
		dataset, err = p.builder.BuildAggregate(ctx)
	}
	if err != nil {
		return nil, err
	}

	table := dataset.Table
	logger.Info("Features built", "customers", len(table.CustomerIDs), "columns", len(table.Columns))

	result, err := p.clusterer.Cluster(table.Rows, k, variant)
	if err != nil {
		return nil, err
	}

	recCount, err := p.persist(ctx, runID, variant, dataset, result, logger)
	if err != nil {
		return nil, err
	}

	if variant == cluster.VariantCategory {
		artifact := cluster.NewModel(table.Columns, result, p.clusterer.Seed)
		if err := artifact.Save(p.modelsDir); err != nil {
			return nil, err
		}
		logger.Info("Model artifact saved", "dir", p.modelsDir)
	}

	return &RunSummary{
		RunID:           runID,
		Variant:         variant,
		Clusters:        result.K,
		Customers:       len(table.CustomerIDs),
		Features:        len(table.Columns),
		Recommendations: recCount,
		Metrics:         result.Metrics,
	}, nil
}

// persist writes assignments and recommendations in fixed-size batches,
// each in its own transaction, checking for cancellation between batches.
func (p *Pipeline) persist(ctx context.Context, runID int64, variant cluster.Variant, dataset *features.Dataset, result *cluster.Result, logger *slog.Logger) (int, error) {
	table := dataset.Table
	n := len(table.CustomerIDs)

	var bar *progressbar.ProgressBar
	if p.ShowProgress {
		bar = progressbar.Default(int64(n), "persisting")
	}

	total := 0
	for start := 0; start < n; start += persistBatchSize {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		end := start + persistBatchSize
		if end > n {
			end = n
		}

		assignments := make([]model.ClusterAssignment, 0, end-start)
		var recs []model.Recommendation
		var explanations []model.Explanation

		for i := start; i < end; i++ {
			customerID := table.CustomerIDs[i]
			assignments = append(assignments, model.ClusterAssignment{
				RunID:              runID,
				CustomerID:         customerID,
				ClusterID:          result.Labels[i],
				DistanceToCentroid: result.Distances[i],
			})

			suggestions, err := p.score(ctx, variant, customerID, result.Labels[i], dataset.Profiles[customerID])
			if err != nil {
				// Scoring is best-effort per customer; the assignment
				// still counts.
				logger.Warn("Skipping recommendations for customer",
					"customer_id", customerID, "error", err)
				continue
			}
			for _, s := range suggestions {
				recs = append(recs, model.Recommendation{
					RunID:           runID,
					CustomerID:      customerID,
					ProductCode:     s.ProductCode,
					AcceptanceProb:  s.AcceptanceProb,
					ExpectedRevenue: s.ExpectedRevenue,
					Status:          model.StatusPending,
				})
				explanations = append(explanations, model.Explanation{
					Narrative:      s.Narrative,
					KeyFactorsJSON: s.KeyFactorsJSON,
					ModelName:      s.ModelName,
				})
			}
		}

		if err := p.store.SaveClusterAssignments(ctx, assignments); err != nil {
			return 0, err
		}
		if len(recs) > 0 {
			if err := p.store.SaveRecommendations(ctx, recs, explanations); err != nil {
				return 0, err
			}
		}
		total += len(recs)

		if bar != nil {
			_ = bar.Add(end - start)
		}
	}

	return total, nil
}

func (p *Pipeline) score(ctx context.Context, variant cluster.Variant, customerID string, label int, profile features.Profile) ([]recommend.Suggestion, error) {
	owned, err := p.store.GetOwnedProducts(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if variant == cluster.VariantCategory {
		return p.mapper.Persona(label, profile, owned), nil
	}
	return p.mapper.Threshold(profile, owned), nil
}
