// Package cluster fits the archetype centroid model over composite index
// vectors and produces soft cluster assignments.
package cluster

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/stitts-dev/court-iq/pkg/logger"
)

// Point is one training observation: a player's composite index vector and
// the minutes weight controlling its pull on centroid placement.
type Point struct {
	PlayerName string
	Vector     []float64
	Weight     float64
}

// Model is a fitted centroid model. Immutable after fitting; assignment of
// non-training players never moves centroids.
type Model struct {
	K         int
	Dim       int
	Centroids [][]float64
	Seed      int64

	// Silhouettes holds the per-candidate-K diagnostic scores. Recorded for
	// observability only; K itself is a configuration constant.
	Silhouettes map[int]float64
}

// Fit runs minutes-weighted k-means with seeded k-means++ initialization.
// Given identical points and the same seed the result is reproducible.
func Fit(points []Point, k int, seed int64, maxIter int) (*Model, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("cannot fit cluster model on empty training set")
	}
	if k > len(points) {
		return nil, fmt.Errorf("cluster count %d exceeds training population %d", k, len(points))
	}
	dim := len(points[0].Vector)
	for i := range points {
		if len(points[i].Vector) != dim {
			return nil, fmt.Errorf("inconsistent vector dimension for %s: got %d, want %d",
				points[i].PlayerName, len(points[i].Vector), dim)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := seedCentroids(points, k, rng)

	assignments := make([]int, len(points))
	for iter := 0; iter < maxIter; iter++ {
		changed := 0
		for i := range points {
			best, _ := nearest(centroids, points[i].Vector)
			if best != assignments[i] {
				assignments[i] = best
				changed++
			}
		}

		recomputeCentroids(points, assignments, centroids, rng)

		if changed == 0 && iter > 0 {
			break
		}
	}

	model := &Model{
		K:           k,
		Dim:         dim,
		Centroids:   centroids,
		Seed:        seed,
		Silhouettes: make(map[int]float64),
	}

	logger.WithComponent("cluster_engine").WithFields(logrus.Fields{
		"k":             k,
		"seed":          seed,
		"training_size": len(points),
	}).Info("Fitted archetype centroid model")

	return model, nil
}

// SilhouetteSweep fits throwaway models for each candidate K and records the
// simplified silhouette score per K. Diagnostic only: the returned map does
// not influence the production model.
func SilhouetteSweep(points []Point, minK, maxK int, seed int64, maxIter int) map[int]float64 {
	scores := make(map[int]float64)
	log := logger.WithComponent("cluster_engine")
	for k := minK; k <= maxK; k++ {
		if k < 2 || k > len(points) {
			continue
		}
		m, err := Fit(points, k, seed, maxIter)
		if err != nil {
			continue
		}
		score := m.silhouette(points)
		scores[k] = score
		log.WithFields(logrus.Fields{"candidate_k": k, "silhouette": score}).Debug("Silhouette diagnostic")
	}
	return scores
}

// Nearest returns the closest centroid index and the distance to it.
func (m *Model) Nearest(vec []float64) (int, float64) {
	return nearest(m.Centroids, vec)
}

// SoftAssign converts centroid distances into a probability distribution:
// closer centroid, higher probability. Probabilities are non-negative and
// sum to 1. Pure function of the vector, so identical composite vectors get
// identical distributions.
func (m *Model) SoftAssign(vec []float64, temperature float64) []float64 {
	if temperature <= 0 {
		temperature = 1.0
	}

	dists := make([]float64, m.K)
	minDist := math.Inf(1)
	for c := range m.Centroids {
		dists[c] = floats.Distance(vec, m.Centroids[c], 2)
		if dists[c] < minDist {
			minDist = dists[c]
		}
	}

	probs := make([]float64, m.K)
	total := 0.0
	for c := range dists {
		// Shift by the minimum distance for numeric stability.
		probs[c] = math.Exp((minDist - dists[c]) / temperature)
		total += probs[c]
	}
	for c := range probs {
		probs[c] /= total
	}
	return probs
}

// CentroidProfile returns the minutes-weighted mean of a raw value across
// the training members of one cluster. Used to label centroids on the
// original stat scale.
func CentroidProfile(points []Point, assignments []int, cluster int, value func(Point) float64) float64 {
	sum, weight := 0.0, 0.0
	for i := range points {
		if assignments[i] != cluster {
			continue
		}
		w := math.Max(points[i].Weight, 1e-9)
		sum += w * value(points[i])
		weight += w
	}
	if weight == 0 {
		return 0
	}
	return sum / weight
}

// Assignments computes the hard assignment of every point against the fitted
// centroids without refitting.
func (m *Model) Assignments(points []Point) []int {
	out := make([]int, len(points))
	for i := range points {
		out[i], _ = m.Nearest(points[i].Vector)
	}
	return out
}

// silhouette computes the simplified (centroid-based) silhouette score:
// a(i) is the distance to the assigned centroid, b(i) the distance to the
// nearest other centroid.
func (m *Model) silhouette(points []Point) float64 {
	if m.K < 2 {
		return 0
	}
	total := 0.0
	counted := 0
	for i := range points {
		a := math.Inf(1)
		b := math.Inf(1)
		own, _ := m.Nearest(points[i].Vector)
		for c := range m.Centroids {
			d := floats.Distance(points[i].Vector, m.Centroids[c], 2)
			if c == own {
				a = d
			} else if d < b {
				b = d
			}
		}
		denom := math.Max(a, b)
		if denom == 0 {
			continue
		}
		total += (b - a) / denom
		counted++
	}
	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}

// seedCentroids runs weighted k-means++ seeding with the provided rng.
func seedCentroids(points []Point, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)

	first := weightedChoice(points, rng, func(p Point, _ int) float64 {
		return math.Max(p.Weight, 1e-9)
	})
	centroids = append(centroids, cloneVec(points[first].Vector))

	for len(centroids) < k {
		idx := weightedChoice(points, rng, func(p Point, _ int) float64 {
			_, d := nearest(centroids, p.Vector)
			return math.Max(p.Weight, 1e-9) * d * d
		})
		centroids = append(centroids, cloneVec(points[idx].Vector))
	}

	return centroids
}

// recomputeCentroids replaces each centroid with the weighted mean of its
// members. An emptied cluster is reseeded to the point farthest from its
// current centroid so K stays fixed.
func recomputeCentroids(points []Point, assignments []int, centroids [][]float64, rng *rand.Rand) {
	dim := len(centroids[0])
	sums := make([][]float64, len(centroids))
	weights := make([]float64, len(centroids))
	for c := range centroids {
		sums[c] = make([]float64, dim)
	}

	for i := range points {
		c := assignments[i]
		w := math.Max(points[i].Weight, 1e-9)
		floats.AddScaled(sums[c], w, points[i].Vector)
		weights[c] += w
	}

	for c := range centroids {
		if weights[c] == 0 {
			far := farthestPoint(points, centroids[c])
			copy(centroids[c], points[far].Vector)
			continue
		}
		for d := 0; d < dim; d++ {
			centroids[c][d] = sums[c][d] / weights[c]
		}
	}
}

func nearest(centroids [][]float64, vec []float64) (int, float64) {
	best := 0
	bestDist := math.Inf(1)
	for c := range centroids {
		d := floats.Distance(vec, centroids[c], 2)
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best, bestDist
}

func farthestPoint(points []Point, from []float64) int {
	best := 0
	bestDist := -1.0
	for i := range points {
		d := floats.Distance(points[i].Vector, from, 2)
		if d > bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func weightedChoice(points []Point, rng *rand.Rand, weight func(Point, int) float64) int {
	total := 0.0
	weights := make([]float64, len(points))
	for i := range points {
		weights[i] = weight(points[i], i)
		total += weights[i]
	}
	if total <= 0 {
		return rng.Intn(len(points))
	}
	target := rng.Float64() * total
	cum := 0.0
	for i := range weights {
		cum += weights[i]
		if target < cum {
			return i
		}
	}
	return len(points) - 1
}

func cloneVec(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
