// Package similarity provides cosine similarity and nearest-neighbour lookup
// over dense factor and feature matrices. A zero-norm vector has similarity 0
// with every vector, itself included.
package similarity

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Neighbor is a row index paired with its similarity to a query row.
type Neighbor struct {
	Index int
	Score float64
}

// Cosine computes the cosine similarity of a pair of vectors.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}

	return clamp(floats.Dot(a, b) / (normA * normB))
}

// Matrix returns the symmetric matrix of pairwise cosine similarities between the rows of m.
func Matrix(m mat.Matrix) *mat.Dense {
	rows, cols := m.Dims()
	if rows == 0 {
		return &mat.Dense{}
	}
	if cols == 0 {
		return mat.NewDense(rows, rows, nil)
	}

	normalized := normalizeRows(m)

	var out mat.Dense
	out.Mul(normalized, normalized.T())
	clampAll(&out)
	return &out
}

// Cross returns the cosine similarity of every row of a against every row of b.
func Cross(a, b mat.Matrix) (*mat.Dense, error) {
	ra, ca := a.Dims()
	rb, cb := b.Dims()
	if ca != cb {
		return nil, fmt.Errorf("dimension mismatch: %d vs %d columns", ca, cb)
	}
	if ra == 0 || rb == 0 {
		return &mat.Dense{}, nil
	}
	if ca == 0 {
		return mat.NewDense(ra, rb, nil), nil
	}

	na := normalizeRows(a)
	nb := normalizeRows(b)

	var out mat.Dense
	out.Mul(na, nb.T())
	clampAll(&out)
	return &out, nil
}

// Nearest returns up to k rows most similar to row i of a square similarity
// matrix, excluding i itself. Ties are broken by ascending row index.
func Nearest(sim mat.Matrix, i, k int) []Neighbor {
	rows, _ := sim.Dims()
	if k <= 0 || i < 0 || i >= rows {
		return nil
	}

	neighbors := make([]Neighbor, 0, rows-1)
	for j := 0; j < rows; j++ {
		if j == i {
			continue
		}
		neighbors = append(neighbors, Neighbor{Index: j, Score: sim.At(i, j)})
	}

	sort.Slice(neighbors, func(a, b int) bool {
		if neighbors[a].Score != neighbors[b].Score {
			return neighbors[a].Score > neighbors[b].Score
		}
		return neighbors[a].Index < neighbors[b].Index
	})

	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors
}

// normalizeRows copies m and scales every non-zero row to unit L2 norm.
func normalizeRows(m mat.Matrix) *mat.Dense {
	out := mat.DenseCopyOf(m)
	rows, _ := out.Dims()
	for i := 0; i < rows; i++ {
		row := out.RawRowView(i)
		sanitize(row)
		norm := floats.Norm(row, 2)
		if norm == 0 {
			continue
		}
		floats.Scale(1/norm, row)
	}
	return out
}

// sanitize zeroes non-finite entries so they cannot propagate NaN into products.
func sanitize(v []float64) {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			v[i] = 0
		}
	}
}

func clampAll(m *mat.Dense) {
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		row := m.RawRowView(i)
		for j, v := range row {
			row[j] = clamp(v)
		}
	}
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
