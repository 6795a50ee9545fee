// Package cluster implements standardization, dimensionality reduction,
// seeded K-means and model artifact persistence for the batch pipeline.
package cluster

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/wellbank/segmint/internal/common"
)

// Scaler standardizes columns to zero mean and unit variance.
// Zero-variance columns pass through unchanged so constant features
// never produce NaNs.
type Scaler struct {
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`
}

// FitScaler computes per-column means and standard deviations.
func FitScaler(rows [][]float64) (*Scaler, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, common.ErrEmptyMatrix
	}

	cols := len(rows[0])
	column := make([]float64, len(rows))
	s := &Scaler{
		Means: make([]float64, cols),
		Stds:  make([]float64, cols),
	}

	for j := 0; j < cols; j++ {
		for i, row := range rows {
			column[i] = row[j]
		}
		s.Means[j] = stat.Mean(column, nil)
		if len(rows) > 1 {
			s.Stds[j] = stat.StdDev(column, nil)
		}
	}
	return s, nil
}

// Transform standardizes a matrix in a new allocation.
func (s *Scaler) Transform(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		scaled, err := s.TransformRow(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}

// TransformRow standardizes a single feature vector.
func (s *Scaler) TransformRow(row []float64) ([]float64, error) {
	if len(row) != len(s.Means) {
		return nil, fmt.Errorf("row has %d columns, scaler expects %d", len(row), len(s.Means))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		if s.Stds[j] == 0 {
			out[j] = v
			continue
		}
		out[j] = (v - s.Means[j]) / s.Stds[j]
	}
	return out, nil
}
