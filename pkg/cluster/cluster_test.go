package cluster

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orbitlab/starmap/pkg/starmap"
)

func TestCentroidCount(t *testing.T) {
	cases := []struct {
		n     int
		ratio float64
		want  int
	}{
		{0, 0.05, 1},  // floor at one
		{10, 0.05, 1}, // 0.5 rounds up
		{50, 0.05, 3}, // 2.5 rounds up
		{100, 0.05, 5},
		{100, 0.10, 10},
		{4, 0.05, 1},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CentroidCount(c.n, c.ratio), "n=%d ratio=%.2f", c.n, c.ratio)
	}
}

func TestDetectEmpty(t *testing.T) {
	assert.Empty(t, Detect(nil, Options{}))
}

// Ten nodes at the default ratio request a single centroid, so every node
// lands in one sector.
func TestDetectSingleCentroid(t *testing.T) {
	nodes := gridNodes(10)
	out := Detect(nodes, Options{Rand: rand.New(rand.NewSource(7))})
	assert.Len(t, out, 1)
	assert.Len(t, out[0].Members, 10)
	assert.NotNil(t, out[0].Hull)
}

func TestDetectDropsTinyGroups(t *testing.T) {
	// Two tight blobs far apart plus two stragglers near a third seed
	// position. With a forced high ratio the stragglers form a group of 2,
	// which must be dropped while still being counted nowhere.
	var nodes []*starmap.Node
	for i := 0; i < 6; i++ {
		nodes = append(nodes, node("a", i, float64(i%3), float64(i/3)))
	}
	for i := 0; i < 6; i++ {
		nodes = append(nodes, node("b", i, 1000+float64(i%3), float64(i/3)))
	}
	nodes = append(nodes, node("c", 0, 500, 500), node("c", 1, 501, 500))

	out := Detect(nodes, Options{Ratio: 0.25, Rand: rand.New(rand.NewSource(3))})
	for _, c := range out {
		assert.Greater(t, len(c.Members), 2)
	}
}

// Three tight nodes and seven scattered ones at the default ratio force
// k=1: the result is either one cluster holding everything or nothing at
// all, never more groups than centroids.
func TestDetectNeverExceedsCentroidCount(t *testing.T) {
	nodes := []*starmap.Node{
		{ID: "t1", X: 10, Y: 10},
		{ID: "t2", X: 11, Y: 10},
		{ID: "t3", X: 10, Y: 11},
	}
	for i := 0; i < 7; i++ {
		nodes = append(nodes, &starmap.Node{
			ID: "f" + string(rune('0'+i)),
			X:  float64(200 + i*150),
			Y:  float64(300 + i*90),
		})
	}

	out := Detect(nodes, Options{Rand: rand.New(rand.NewSource(11))})
	assert.LessOrEqual(t, len(out), CentroidCount(len(nodes), DefaultRatio))
	if len(out) == 1 {
		assert.LessOrEqual(t, len(out[0].Members), 10)
	}
}

func TestDetectDeterministicWithSeed(t *testing.T) {
	nodes := gridNodes(40)
	a := Detect(nodes, Options{Rand: rand.New(rand.NewSource(42))})
	b := Detect(nodes, Options{Rand: rand.New(rand.NewSource(42))})

	assert.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Centroid, b[i].Centroid)
		assert.Equal(t, len(a[i].Members), len(b[i].Members))
	}
}

func TestDetectNeverMutatesPositions(t *testing.T) {
	nodes := gridNodes(20)
	before := make(map[string][2]float64, len(nodes))
	for _, n := range nodes {
		before[n.ID] = [2]float64{n.X, n.Y}
	}

	Detect(nodes, Options{Rand: rand.New(rand.NewSource(1))})

	for _, n := range nodes {
		assert.Equal(t, before[n.ID], [2]float64{n.X, n.Y})
	}
}

func gridNodes(n int) []*starmap.Node {
	nodes := make([]*starmap.Node, n)
	for i := range nodes {
		nodes[i] = node("g", i, float64(i%8)*37.0, float64(i/8)*53.0)
	}
	return nodes
}

func node(prefix string, i int, x, y float64) *starmap.Node {
	return &starmap.Node{
		ID: prefix + string(rune('0'+i%10)) + string(rune('a'+i/10)),
		X:  x,
		Y:  y,
	}
}
