package cluster

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/wellbank/segmint/internal/common"
)

// pcaThreshold is the column count above which the aggregate path reduces
// dimensionality before clustering.
const pcaThreshold = 10

// ReducePCA projects rows onto their top principal components via SVD of the
// column-centered matrix. Returns the input unchanged when it already has at
// most nComponents columns.
func ReducePCA(rows [][]float64, nComponents int) ([][]float64, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, common.ErrEmptyMatrix
	}

	n := len(rows)
	cols := len(rows[0])
	if cols <= nComponents {
		return rows, nil
	}
	if nComponents > n {
		nComponents = n
	}

	centered := mat.NewDense(n, cols, nil)
	means := make([]float64, cols)
	for j := 0; j < cols; j++ {
		for _, row := range rows {
			means[j] += row[j]
		}
		means[j] /= float64(n)
	}
	for i, row := range rows {
		for j, v := range row {
			centered.Set(i, j, v-means[j])
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThin); !ok {
		return nil, fmt.Errorf("SVD factorization failed")
	}

	var v mat.Dense
	svd.VTo(&v)

	// Project onto the first nComponents right singular vectors.
	components := v.Slice(0, cols, 0, nComponents)
	var projected mat.Dense
	projected.Mul(centered, components)

	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = make([]float64, nComponents)
		for j := 0; j < nComponents; j++ {
			out[i][j] = projected.At(i, j)
		}
	}
	return out, nil
}
