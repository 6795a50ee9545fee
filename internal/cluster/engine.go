package cluster

import (
	"fmt"
	"math/rand"
)

// Variant selects which feature schema and scoring path a run uses.
type Variant string

// Pipeline variants.
const (
	VariantAggregate Variant = "aggregate"
	VariantCategory  Variant = "category"
)

// Default cluster counts per variant.
const (
	DefaultAggregateClusters = 5
	DefaultCategoryClusters  = 6
)

// DefaultClusters returns the cluster count a variant uses when the caller
// doesn't override it.
func DefaultClusters(v Variant) int {
	if v == VariantCategory {
		return DefaultCategoryClusters
	}
	return DefaultAggregateClusters
}

// Result is the output of one clustering pass over a feature matrix.
type Result struct {
	Scaler    *Scaler
	Centroids [][]float64
	Labels    []int
	Distances []float64
	Metrics   Metrics
	K         int
}

// Engine runs standardization, optional PCA and K-means over a feature
// matrix.
type Engine struct {
	Seed int64
}

// NewEngine creates an engine with the default seed.
func NewEngine() *Engine {
	return &Engine{Seed: DefaultSeed}
}

// Cluster fits k clusters on the matrix per the variant's rules.
//
// The aggregate path reduces wide matrices with PCA and fills the distance
// column with uniform noise in [0.1, 2.0); the distances were never real on
// this path and downstream consumers treat them as opaque. The category path
// keeps the raw column basis (the artifact needs it) and records true
// distances plus the full quality metrics.
func (e *Engine) Cluster(rows [][]float64, k int, variant Variant) (*Result, error) {
	scaler, err := FitScaler(rows)
	if err != nil {
		return nil, err
	}
	scaled, err := scaler.Transform(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scale features: %w", err)
	}

	clusterInput := scaled
	if variant == VariantAggregate && len(scaled[0]) > pcaThreshold {
		clusterInput, err = ReducePCA(scaled, pcaThreshold)
		if err != nil {
			return nil, fmt.Errorf("failed to reduce dimensionality: %w", err)
		}
	}

	km := NewKMeans(k)
	km.Seed = e.Seed
	fitted, err := km.Fit(clusterInput)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Scaler:    scaler,
		Centroids: fitted.Centroids,
		Labels:    fitted.Labels,
		K:         len(fitted.Centroids),
		Metrics:   Metrics{Inertia: fitted.Inertia},
	}

	switch variant {
	case VariantCategory:
		result.Distances = make([]float64, len(clusterInput))
		for i, row := range clusterInput {
			_, result.Distances[i] = Nearest(fitted.Centroids, row)
		}
		result.Metrics.Silhouette = Silhouette(clusterInput, fitted.Labels, result.K)
		result.Metrics.CalinskiHarabasz = CalinskiHarabasz(clusterInput, fitted.Labels, fitted.Centroids)
		result.Metrics.DaviesBouldin = DaviesBouldin(clusterInput, fitted.Labels, fitted.Centroids)
	default:
		rng := rand.New(rand.NewSource(e.Seed))
		result.Distances = make([]float64, len(clusterInput))
		for i := range result.Distances {
			result.Distances[i] = 0.1 + rng.Float64()*1.9
		}
	}

	return result, nil
}
