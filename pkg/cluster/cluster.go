// Package cluster partitions settled node positions into sectors by
// iterative centroid relaxation.
package cluster

import (
	"math"
	"math/rand"
	"time"

	"github.com/orbitlab/starmap/pkg/geom"
	"github.com/orbitlab/starmap/pkg/starmap"
)

// Cluster is one derived sector grouping for the current stabilization
// pass. Hull is nil when the member positions admit no convex boundary
// (too few distinct points, or collinear); such clusters are counted but
// not rendered.
type Cluster struct {
	Members  []*starmap.Node
	Centroid geom.Point
	Hull     []geom.Point
}

// Options control the relaxation. The zero value of any field falls back
// to its default.
type Options struct {
	// Ratio scales node count into centroid count: k = max(1, round(n*Ratio)).
	Ratio float64
	// MaxIterations caps the relaxation loop.
	MaxIterations int
	// ConvergenceEpsilon stops the loop once no centroid moved farther.
	ConvergenceEpsilon float64
	// Rand seeds the centroid sampling. Inject a seeded source for
	// reproducible sector assignment; nil uses a time-seeded source.
	Rand *rand.Rand
}

const (
	DefaultRatio              = 0.05
	DefaultMaxIterations      = 100
	DefaultConvergenceEpsilon = 0.1
)

func (o Options) withDefaults() Options {
	if o.Ratio <= 0 {
		o.Ratio = DefaultRatio
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.ConvergenceEpsilon <= 0 {
		o.ConvergenceEpsilon = DefaultConvergenceEpsilon
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o
}

// CentroidCount returns the number of centroids requested for n nodes at
// the given ratio.
func CentroidCount(n int, ratio float64) int {
	k := int(math.Round(float64(n) * ratio))
	if k < 1 {
		k = 1
	}
	return k
}

// Detect runs the relaxation over the nodes' current positions and returns
// the surviving clusters (groups of 3 or more members). It never mutates
// node state and returns an empty slice for empty input. The relaxation is
// greedy and bounded: it converges to a local grouping within
// MaxIterations, with no global-optimality guarantee.
func Detect(nodes []*starmap.Node, opts Options) []Cluster {
	if len(nodes) == 0 {
		return nil
	}
	opts = opts.withDefaults()

	k := CentroidCount(len(nodes), opts.Ratio)

	// Seed centroids by sampling node positions with replacement; the same
	// node may seed more than one centroid.
	centroids := make([]geom.Point, k)
	for i := range centroids {
		n := nodes[opts.Rand.Intn(len(nodes))]
		centroids[i] = geom.Point{X: n.X, Y: n.Y}
	}

	assign := make([]int, len(nodes))

	for iter := 0; iter < opts.MaxIterations; iter++ {
		// Assignment: nearest centroid, first-found tie-break.
		for i, n := range nodes {
			p := geom.Point{X: n.X, Y: n.Y}
			best := 0
			bestDist := geom.Dist(p, centroids[0])
			for c := 1; c < k; c++ {
				if d := geom.Dist(p, centroids[c]); d < bestDist {
					best = c
					bestDist = d
				}
			}
			assign[i] = best
		}

		// Recenter: mean of assigned positions; empty centroids stay put.
		sums := make([]geom.Point, k)
		counts := make([]int, k)
		for i, n := range nodes {
			c := assign[i]
			sums[c].X += n.X
			sums[c].Y += n.Y
			counts[c]++
		}

		maxShift := 0.0
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			next := geom.Point{
				X: sums[c].X / float64(counts[c]),
				Y: sums[c].Y / float64(counts[c]),
			}
			if shift := geom.Dist(centroids[c], next); shift > maxShift {
				maxShift = shift
			}
			centroids[c] = next
		}

		if maxShift <= opts.ConvergenceEpsilon {
			break
		}
	}

	// Group by final assignment, dropping groups of 2 or fewer members.
	groups := make(map[int][]*starmap.Node)
	for i, n := range nodes {
		groups[assign[i]] = append(groups[assign[i]], n)
	}

	var out []Cluster
	for c := 0; c < k; c++ {
		members := groups[c]
		if len(members) <= 2 {
			continue
		}
		pts := make([]geom.Point, len(members))
		for i, m := range members {
			pts[i] = geom.Point{X: m.X, Y: m.Y}
		}
		out = append(out, Cluster{
			Members:  members,
			Centroid: geom.Centroid(pts),
			Hull:     geom.ConvexHull(pts),
		})
	}
	return out
}
