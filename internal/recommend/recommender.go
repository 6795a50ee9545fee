package recommend

import (
	"context"
	"fmt"
	"sync"

	"github.com/wellbank/segmint/internal/cluster"
	"github.com/wellbank/segmint/internal/features"
	"github.com/wellbank/segmint/internal/service"
)

// SuggestResult is the online recommendation response for one customer.
type SuggestResult struct {
	CustomerID  string
	Persona     string
	ClusterID   int
	Distance    float64
	Suggestions []Suggestion
}

// Recommender serves per-customer suggestions from the persisted cluster
// model without re-running the batch pipeline. Safe for concurrent use.
type Recommender struct {
	store     service.Storage
	builder   *features.Builder
	mapper    *Mapper
	modelsDir string

	mu    sync.RWMutex
	model *cluster.Model
}

// NewRecommender creates an online recommender reading its model artifact
// from modelsDir. The artifact is loaded lazily on first use.
func NewRecommender(store service.Storage, modelsDir string) *Recommender {
	return &Recommender{
		store:     store,
		builder:   features.NewBuilder(store),
		mapper:    NewMapper(NewCatalog()),
		modelsDir: modelsDir,
	}
}

// loadModel returns the cached artifact, reading it from disk on first call.
func (r *Recommender) loadModel() (*cluster.Model, error) {
	r.mu.RLock()
	m := r.model
	r.mu.RUnlock()
	if m != nil {
		return m, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.model == nil {
		loaded, err := cluster.LoadModel(r.modelsDir)
		if err != nil {
			return nil, err
		}
		r.model = loaded
	}
	return r.model, nil
}

// Reload drops the cached artifact so the next call picks up a fresh one,
// for callers that just retrained.
func (r *Recommender) Reload() {
	r.mu.Lock()
	r.model = nil
	r.mu.Unlock()
}

// Suggest builds the customer's feature vector, assigns the nearest trained
// centroid and returns the persona-scored product suggestions.
func (r *Recommender) Suggest(ctx context.Context, customerID string, topN int, excludeOwned bool) (*SuggestResult, error) {
	m, err := r.loadModel()
	if err != nil {
		return nil, err
	}

	vec, profile, err := r.builder.CustomerVector(ctx, customerID)
	if err != nil {
		return nil, err
	}

	clusterID, distance, err := m.Predict(vec)
	if err != nil {
		return nil, fmt.Errorf("failed to assign cluster: %w", err)
	}

	owned := map[string]bool{}
	if excludeOwned {
		owned, err = r.store.GetOwnedProducts(ctx, customerID)
		if err != nil {
			return nil, fmt.Errorf("failed to load owned products: %w", err)
		}
	}

	suggestions := r.mapper.Persona(clusterID, *profile, owned)
	if topN > 0 && len(suggestions) > topN {
		suggestions = suggestions[:topN]
	}

	return &SuggestResult{
		CustomerID:  customerID,
		Persona:     PersonaFor(clusterID).Name,
		ClusterID:   clusterID,
		Distance:    distance,
		Suggestions: suggestions,
	}, nil
}

// AlternativesFor scores catalog alternatives against an existing
// recommendation, the fit-score path advisors use before editing.
func (r *Recommender) AlternativesFor(ctx context.Context, recommendationID int64) ([]Alternative, error) {
	rec, err := r.store.GetRecommendation(ctx, recommendationID)
	if err != nil {
		return nil, err
	}

	_, profile, err := r.builder.CustomerVector(ctx, rec.CustomerID)
	if err != nil {
		return nil, err
	}
	owned, err := r.store.GetOwnedProducts(ctx, rec.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load owned products: %w", err)
	}

	return r.mapper.Alternatives(rec.ProductCode, rec.AcceptanceProb, *profile, owned), nil
}
