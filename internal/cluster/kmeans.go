package cluster

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/wellbank/segmint/internal/common"
)

// Default K-means hyperparameters.
const (
	DefaultSeed     = 42
	defaultRestarts = 10
	defaultMaxIters = 300
)

// KMeans is a seeded Lloyd's-algorithm clusterer with k-means++
// initialization and multiple restarts.
type KMeans struct {
	K        int
	Seed     int64
	Restarts int
	MaxIters int
}

// KMeansResult holds the best clustering over all restarts.
type KMeansResult struct {
	Centroids [][]float64
	Labels    []int
	Inertia   float64
}

// NewKMeans creates a clusterer with the default seed, restart and
// iteration settings.
func NewKMeans(k int) *KMeans {
	return &KMeans{
		K:        k,
		Seed:     DefaultSeed,
		Restarts: defaultRestarts,
		MaxIters: defaultMaxIters,
	}
}

// Fit clusters rows into K groups. The RNG is seeded, so identical input
// yields identical labels.
func (km *KMeans) Fit(rows [][]float64) (*KMeansResult, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, common.ErrEmptyMatrix
	}

	k := km.K
	if k > len(rows) {
		k = len(rows)
	}

	rng := rand.New(rand.NewSource(km.Seed))
	best := &KMeansResult{Inertia: math.Inf(1)}

	for r := 0; r < km.Restarts; r++ {
		centroids := km.initPlusPlus(rows, k, rng)
		labels := make([]int, len(rows))

		var inertia float64
		for iter := 0; iter < km.MaxIters; iter++ {
			changed := false
			inertia = 0
			for i, row := range rows {
				label, dist := Nearest(centroids, row)
				if labels[i] != label {
					labels[i] = label
					changed = true
				}
				inertia += dist * dist
			}

			centroids = recompute(rows, labels, k, centroids)
			if !changed && iter > 0 {
				break
			}
		}

		if inertia < best.Inertia {
			best = &KMeansResult{
				Centroids: centroids,
				Labels:    append([]int(nil), labels...),
				Inertia:   inertia,
			}
		}
	}

	return best, nil
}

// initPlusPlus picks initial centroids with the k-means++ weighting.
func (km *KMeans) initPlusPlus(rows [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, copyRow(rows[rng.Intn(len(rows))]))

	dists := make([]float64, len(rows))
	for len(centroids) < k {
		var total float64
		for i, row := range rows {
			_, d := Nearest(centroids, row)
			dists[i] = d * d
			total += dists[i]
		}

		if total == 0 {
			// All points coincide with existing centroids.
			centroids = append(centroids, copyRow(rows[rng.Intn(len(rows))]))
			continue
		}

		target := rng.Float64() * total
		var cum float64
		idx := len(rows) - 1
		for i, d := range dists {
			cum += d
			if cum >= target {
				idx = i
				break
			}
		}
		centroids = append(centroids, copyRow(rows[idx]))
	}
	return centroids
}

// recompute averages each cluster's members; empty clusters keep their
// previous centroid.
func recompute(rows [][]float64, labels []int, k int, prev [][]float64) [][]float64 {
	dims := len(rows[0])
	sums := make([][]float64, k)
	counts := make([]int, k)
	for c := 0; c < k; c++ {
		sums[c] = make([]float64, dims)
	}
	for i, row := range rows {
		c := labels[i]
		floats.Add(sums[c], row)
		counts[c]++
	}

	centroids := make([][]float64, k)
	for c := 0; c < k; c++ {
		if counts[c] == 0 {
			centroids[c] = copyRow(prev[c])
			continue
		}
		floats.Scale(1/float64(counts[c]), sums[c])
		centroids[c] = sums[c]
	}
	return centroids
}

// Nearest returns the index of the closest centroid and the Euclidean
// distance to it.
func Nearest(centroids [][]float64, row []float64) (int, float64) {
	bestIdx := 0
	bestDist := math.Inf(1)
	for c, centroid := range centroids {
		d := floats.Distance(centroid, row, 2)
		if d < bestDist {
			bestDist = d
			bestIdx = c
		}
	}
	return bestIdx, bestDist
}

func copyRow(row []float64) []float64 {
	return append([]float64(nil), row...)
}
