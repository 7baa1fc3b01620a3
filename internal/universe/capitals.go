package universe

import (
	"math/rand"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/orbitlab/starmap/pkg/starmap"
)

// AssignCapitals gives each faction a home system. Candidates must hold a
// habitable planet and sit at least minHops lane hops away from every
// system already controlled by another faction. The chosen system gets a
// full-influence standing and its most habitable planet becomes the
// capital planet.
func AssignCapitals(snap *starmap.Snapshot, minHops int, rng *rand.Rand) {
	g := simple.NewUndirectedGraph()
	idx := make(map[string]int64, len(snap.Nodes))
	for i, n := range snap.Nodes {
		idx[n.ID] = int64(i)
		g.AddNode(simple.Node(int64(i)))
	}
	for _, l := range snap.Edges {
		a, okA := idx[l.Source]
		b, okB := idx[l.Target]
		if okA && okB && a != b {
			g.SetEdge(simple.Edge{F: simple.Node(a), T: simple.Node(b)})
		}
	}

	var habitable []*starmap.Node
	for _, n := range snap.Nodes {
		if bestHabitablePlanet(n) >= 0 {
			habitable = append(habitable, n)
		}
	}
	rng.Shuffle(len(habitable), func(i, j int) {
		habitable[i], habitable[j] = habitable[j], habitable[i]
	})

	var controlled []*starmap.Node
	for _, f := range snap.Factions {
		for _, cand := range habitable {
			if cand.IsCapital || cand.ControllingFaction() != "" {
				continue
			}
			if !farEnough(g, idx, cand, controlled, minHops) {
				continue
			}
			crown(cand, f.ID)
			controlled = append(controlled, cand)
			break
		}
	}
}

// farEnough walks lane hops out from cand and fails if any controlled
// system is reached within minHops.
func farEnough(g *simple.UndirectedGraph, idx map[string]int64, cand *starmap.Node, controlled []*starmap.Node, minHops int) bool {
	if len(controlled) == 0 {
		return true
	}
	taken := make(map[int64]bool, len(controlled))
	for _, c := range controlled {
		taken[idx[c.ID]] = true
	}

	tooClose := false
	bfs := traverse.BreadthFirst{}
	bfs.Walk(g, simple.Node(idx[cand.ID]), func(n graph.Node, depth int) bool {
		if depth >= minHops {
			return true
		}
		if taken[n.ID()] {
			tooClose = true
			return true
		}
		return false
	})
	return !tooClose
}

func crown(n *starmap.Node, factionID string) {
	if n.Factions == nil {
		n.Factions = make(map[string]starmap.FactionStanding)
	}
	n.Factions[factionID] = starmap.FactionStanding{
		Influence:    1.0,
		Presence:     true,
		ControlledBy: true,
	}
	n.IsCapital = true
	if i := bestHabitablePlanet(n); i >= 0 {
		n.CapitalPlanetName = n.DetailedPlanets[i].Name
	}
	n.Stability = 1.0
}

// bestHabitablePlanet returns the index of the most habitable planet with
// a livable type, or -1.
func bestHabitablePlanet(n *starmap.Node) int {
	best, bestIdx := 0.0, -1
	for i, p := range n.DetailedPlanets {
		if p.Type != "continental" && p.Type != "ocean" {
			continue
		}
		if p.Habitability > best {
			best, bestIdx = p.Habitability, i
		}
	}
	return bestIdx
}
