package cluster

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Metrics summarizes clustering quality for the run ledger and artifact.
type Metrics struct {
	Inertia          float64 `json:"inertia"`
	Silhouette       float64 `json:"silhouette,omitempty"`
	CalinskiHarabasz float64 `json:"calinski_harabasz,omitempty"`
	DaviesBouldin    float64 `json:"davies_bouldin,omitempty"`
}

// Silhouette computes the mean silhouette coefficient over all samples.
// Returns 0 when fewer than 2 clusters have members.
func Silhouette(rows [][]float64, labels []int, k int) float64 {
	n := len(rows)
	if n < 2 || k < 2 {
		return 0
	}

	counts := make([]int, k)
	for _, l := range labels {
		counts[l]++
	}
	populated := 0
	for _, c := range counts {
		if c > 0 {
			populated++
		}
	}
	if populated < 2 {
		return 0
	}

	var total float64
	var scored int
	for i := range rows {
		own := labels[i]
		if counts[own] < 2 {
			continue
		}

		// Mean distance to every cluster.
		sums := make([]float64, k)
		for j := range rows {
			if i == j {
				continue
			}
			sums[labels[j]] += floats.Distance(rows[i], rows[j], 2)
		}

		a := sums[own] / float64(counts[own]-1)
		b := math.Inf(1)
		for c := 0; c < k; c++ {
			if c == own || counts[c] == 0 {
				continue
			}
			if m := sums[c] / float64(counts[c]); m < b {
				b = m
			}
		}

		denom := math.Max(a, b)
		if denom > 0 {
			total += (b - a) / denom
		}
		scored++
	}

	if scored == 0 {
		return 0
	}
	return total / float64(scored)
}

// CalinskiHarabasz computes the variance ratio criterion.
func CalinskiHarabasz(rows [][]float64, labels []int, centroids [][]float64) float64 {
	n := len(rows)
	k := len(centroids)
	if n <= k || k < 2 {
		return 0
	}

	dims := len(rows[0])
	overall := make([]float64, dims)
	for _, row := range rows {
		floats.Add(overall, row)
	}
	floats.Scale(1/float64(n), overall)

	counts := make([]int, k)
	var within float64
	for i, row := range rows {
		c := labels[i]
		counts[c]++
		d := floats.Distance(centroids[c], row, 2)
		within += d * d
	}

	var between float64
	for c, centroid := range centroids {
		d := floats.Distance(centroid, overall, 2)
		between += float64(counts[c]) * d * d
	}

	if within == 0 {
		return 0
	}
	return (between / float64(k-1)) / (within / float64(n-k))
}

// DaviesBouldin computes the mean similarity of each cluster with its most
// similar other cluster. Lower is better.
func DaviesBouldin(rows [][]float64, labels []int, centroids [][]float64) float64 {
	k := len(centroids)
	if k < 2 {
		return 0
	}

	counts := make([]int, k)
	scatter := make([]float64, k)
	for i, row := range rows {
		c := labels[i]
		counts[c]++
		scatter[c] += floats.Distance(centroids[c], row, 2)
	}
	for c := 0; c < k; c++ {
		if counts[c] > 0 {
			scatter[c] /= float64(counts[c])
		}
	}

	var total float64
	var scored int
	for i := 0; i < k; i++ {
		if counts[i] == 0 {
			continue
		}
		worst := 0.0
		for j := 0; j < k; j++ {
			if i == j || counts[j] == 0 {
				continue
			}
			sep := floats.Distance(centroids[i], centroids[j], 2)
			if sep == 0 {
				continue
			}
			if r := (scatter[i] + scatter[j]) / sep; r > worst {
				worst = r
			}
		}
		total += worst
		scored++
	}

	if scored == 0 {
		return 0
	}
	return total / float64(scored)
}
