package cluster

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeBlobs builds a training set with three well-separated clusters in 2D.
func threeBlobs(perBlob int) []Point {
	rng := rand.New(rand.NewSource(7))
	centers := [][2]float64{{0, 0}, {10, 0}, {0, 10}}

	var points []Point
	for b, c := range centers {
		for i := 0; i < perBlob; i++ {
			points = append(points, Point{
				PlayerName: string(rune('a'+b)) + " player",
				Vector: []float64{
					c[0] + rng.Float64(),
					c[1] + rng.Float64(),
				},
				Weight: 100 + rng.Float64()*500,
			})
		}
	}
	return points
}

func TestFitDeterministicForSeed(t *testing.T) {
	points := threeBlobs(20)

	m1, err := Fit(points, 3, 42, 100)
	require.NoError(t, err)
	m2, err := Fit(points, 3, 42, 100)
	require.NoError(t, err)

	require.Equal(t, m1.K, m2.K)
	for c := range m1.Centroids {
		assert.Equal(t, m1.Centroids[c], m2.Centroids[c], "same seed must reproduce centroid %d exactly", c)
	}
}

func TestFitSeparatesBlobs(t *testing.T) {
	points := threeBlobs(25)
	m, err := Fit(points, 3, 42, 200)
	require.NoError(t, err)

	// Every blob member lands in the same cluster as its blob mates.
	assignments := m.Assignments(points)
	for blob := 0; blob < 3; blob++ {
		first := assignments[blob*25]
		for i := 0; i < 25; i++ {
			assert.Equal(t, first, assignments[blob*25+i])
		}
	}
}

func TestFitErrors(t *testing.T) {
	_, err := Fit(nil, 3, 42, 100)
	assert.Error(t, err)

	points := threeBlobs(1)
	_, err = Fit(points, 9, 42, 100)
	assert.Error(t, err, "k larger than population must fail")

	points[1].Vector = []float64{1, 2, 3}
	_, err = Fit(points, 2, 42, 100)
	assert.Error(t, err, "inconsistent dimensions must fail")
}

func TestSoftAssignIsDistribution(t *testing.T) {
	points := threeBlobs(20)
	m, err := Fit(points, 3, 42, 100)
	require.NoError(t, err)

	for _, p := range points {
		probs := m.SoftAssign(p.Vector, 1.0)
		require.Len(t, probs, 3)

		sum := 0.0
		for _, pr := range probs {
			assert.GreaterOrEqual(t, pr, 0.0)
			sum += pr
		}
		assert.InDelta(t, 1.0, sum, 1e-9)

		// The nearest centroid carries the highest probability.
		nearestC, _ := m.Nearest(p.Vector)
		for c, pr := range probs {
			if c != nearestC {
				assert.LessOrEqual(t, pr, probs[nearestC])
			}
		}
	}
}

func TestSoftAssignIdenticalVectors(t *testing.T) {
	points := threeBlobs(20)
	m, err := Fit(points, 3, 42, 100)
	require.NoError(t, err)

	vec := []float64{5, 5}
	assert.Equal(t, m.SoftAssign(vec, 1.0), m.SoftAssign(append([]float64{}, vec...), 1.0))
}

func TestAssignmentDoesNotMoveCentroids(t *testing.T) {
	points := threeBlobs(20)
	m, err := Fit(points, 3, 42, 100)
	require.NoError(t, err)

	before := make([][]float64, m.K)
	for c := range m.Centroids {
		before[c] = cloneVec(m.Centroids[c])
	}

	// Score a flood of out-of-training vectors.
	for i := 0; i < 500; i++ {
		m.Nearest([]float64{float64(i), float64(-i)})
		m.SoftAssign([]float64{float64(i), 3}, 1.0)
	}

	assert.Equal(t, before, m.Centroids, "scoring must never move fitted centroids")
}

func TestCentroidProfileWeighted(t *testing.T) {
	points := []Point{
		{PlayerName: "heavy", Vector: []float64{0}, Weight: 900},
		{PlayerName: "light", Vector: []float64{0}, Weight: 100},
		{PlayerName: "other", Vector: []float64{9}, Weight: 500},
	}
	assignments := []int{0, 0, 1}
	values := map[string]float64{"heavy": 10, "light": 20, "other": 99}

	got := CentroidProfile(points, assignments, 0, func(p Point) float64 { return values[p.PlayerName] })
	assert.InDelta(t, 11.0, got, 1e-9, "profile is the minutes-weighted mean of members")

	assert.Zero(t, CentroidProfile(points, assignments, 2, func(p Point) float64 { return 1 }))
}

func TestSilhouetteSweepRange(t *testing.T) {
	points := threeBlobs(15)
	scores := SilhouetteSweep(points, 2, 5, 42, 100)

	require.NotEmpty(t, scores)
	for k, s := range scores {
		assert.GreaterOrEqual(t, s, -1.0, "k=%d", k)
		assert.LessOrEqual(t, s, 1.0, "k=%d", k)
	}
	// Well-separated blobs: k=3 scores high.
	assert.Greater(t, scores[3], 0.5)
	assert.False(t, math.IsNaN(scores[3]))
}
