package textstats

import (
	"math"
	"math/rand"
)

const (
	kmeansRestarts = 10
	kmeansMaxIter  = 100
	kmeansSeed     = 42
)

// KMeans clusters the rows into k groups with Lloyd's algorithm, running
// kmeansRestarts seeded restarts and keeping the assignment with the
// lowest inertia. Results are deterministic for a given input.
func KMeans(rows [][]float64, k int) ([]int, [][]float64) {
	n := len(rows)
	if n == 0 || k <= 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}

	bestInertia := math.Inf(1)
	var bestAssign []int
	var bestCentroids [][]float64

	for restart := 0; restart < kmeansRestarts; restart++ {
		rng := rand.New(rand.NewSource(kmeansSeed + int64(restart)))
		assign, centroids, inertia := lloyd(rows, k, rng)
		if inertia < bestInertia {
			bestInertia = inertia
			bestAssign = assign
			bestCentroids = centroids
		}
	}
	return bestAssign, bestCentroids
}

func lloyd(rows [][]float64, k int, rng *rand.Rand) ([]int, [][]float64, float64) {
	n := len(rows)
	dim := len(rows[0])

	// Initial centroids are k distinct rows.
	centroids := make([][]float64, k)
	for i, p := range rng.Perm(n)[:k] {
		centroids[i] = append([]float64(nil), rows[p]...)
	}

	assign := make([]int, n)
	for iter := 0; iter < kmeansMaxIter; iter++ {
		changed := false
		for i, row := range rows {
			best := nearestCentroid(row, centroids)
			if best != assign[i] || iter == 0 {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		// Recompute centroids; an emptied cluster takes the row
		// farthest from its centroid.
		sums := make([][]float64, k)
		sizes := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, row := range rows {
			c := assign[i]
			sizes[c]++
			for j, v := range row {
				sums[c][j] += v
			}
		}
		for c := 0; c < k; c++ {
			if sizes[c] == 0 {
				far := farthestRow(rows, assign, centroids)
				assign[far] = c
				copy(sums[c], rows[far])
				sizes[c] = 1
			}
			for j := range sums[c] {
				sums[c][j] /= float64(sizes[c])
			}
			centroids[c] = sums[c]
		}
	}

	var inertia float64
	for i, row := range rows {
		inertia += squaredDistance(row, centroids[assign[i]])
	}
	return assign, centroids, inertia
}

func nearestCentroid(row []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range centroids {
		if d := squaredDistance(row, centroid); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

func farthestRow(rows [][]float64, assign []int, centroids [][]float64) int {
	far := 0
	farDist := -1.0
	for i, row := range rows {
		if d := squaredDistance(row, centroids[assign[i]]); d > farDist {
			farDist = d
			far = i
		}
	}
	return far
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
