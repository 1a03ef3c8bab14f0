package gaussian

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// kmeans runs Lloyd's algorithm on the rows of data and returns k centroids.
// Initial centroids are k distinct rows drawn with the given seed. A cluster
// that loses every member keeps its previous centroid.
func kmeans(data *mat.Dense, k, iterations int, seed uint64) *mat.Dense {
	n, dims := data.Dims()
	rng := rand.New(rand.NewPCG(seed, seed+1))

	centroids := mat.NewDense(k, dims, nil)
	for c, r := range rng.Perm(n)[:k] {
		centroids.SetRow(c, data.RawRowView(r))
	}

	assign := make([]int, n)
	for i := range assign {
		assign[i] = -1
	}
	counts := make([]float64, k)
	sums := mat.NewDense(k, dims, nil)

	for iter := 0; iter < iterations; iter++ {
		changed := false
		for i := 0; i < n; i++ {
			c := nearest(centroids, data.RawRowView(i))
			if c != assign[i] {
				assign[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		sums.Zero()
		for c := range counts {
			counts[c] = 0
		}
		for i, c := range assign {
			floats.Add(sums.RawRowView(c), data.RawRowView(i))
			counts[c]++
		}
		for c, cnt := range counts {
			if cnt == 0 {
				continue
			}
			floats.ScaleTo(centroids.RawRowView(c), 1/cnt, sums.RawRowView(c))
		}
	}
	return centroids
}

func nearest(centroids *mat.Dense, x []float64) int {
	k, _ := centroids.Dims()
	best, bestDist := 0, math.Inf(1)
	for c := 0; c < k; c++ {
		if d := floats.Distance(centroids.RawRowView(c), x, 2); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
