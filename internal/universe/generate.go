// Package universe builds complete snapshot datasets for development and
// testing: scattered star systems with planets and resources, a connected
// non-crossing lane network, noise-derived lane hazard, and faction
// capitals placed a minimum hop distance apart.
package universe

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/orbitlab/starmap/pkg/starmap"
)

// GenConfig controls generation.
type GenConfig struct {
	Systems int
	Seed    int64
	// Width/Height bound the scatter; positions are gaussian around the
	// center, clamped to the box.
	Width  float64
	Height float64
	// MaxLaneDegree caps lanes per system beyond the spanning tree.
	MaxLaneDegree int
	// CapitalMinHops is the minimum lane-hop separation between capitals.
	CapitalMinHops int
	Factions       []starmap.Faction
}

// DefaultGenConfig generates a 40-system universe with three factions,
// mirroring the stock development dataset.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Systems:        40,
		Seed:           100,
		Width:          1600,
		Height:         1000,
		MaxLaneDegree:  3,
		CapitalMinHops: 3,
		Factions: []starmap.Faction{
			{ID: "fac_terran", Name: "Terran Accord", Color: "#4f9dff"},
			{ID: "fac_veil", Name: "Veil Syndicate", Color: "#ff6e6e"},
			{ID: "fac_meridian", Name: "Meridian Combine", Color: "#58d68d"},
		},
	}
}

var planetTypes = []struct {
	name      string
	weight    int
	resources []string
	habitMin  float64
	habitMax  float64
}{
	{"continental", 3, []string{"food", "alloys"}, 0.6, 0.95},
	{"ocean", 2, []string{"food", "volatiles"}, 0.5, 0.9},
	{"barren", 4, []string{"minerals"}, 0.0, 0.15},
	{"gas_giant", 3, []string{"volatiles", "exotics"}, 0.0, 0.05},
	{"volcanic", 2, []string{"minerals", "alloys"}, 0.05, 0.25},
}

var namePrefixes = []string{
	"Al", "Be", "Cyg", "Del", "Eri", "Fom", "Gam", "Hel", "Ind", "Kep",
	"Lyr", "Mir", "Nov", "Ori", "Pol", "Rig", "Sir", "Tau", "Veg", "Zet",
}

var nameSuffixes = []string{
	"tair", "ion", "nus", "phei", "dani", "alhaut", "ma", "ios",
	"us", "ler", "ae", "ach", "a Prime", "ani", "lux", "el",
}

// Generate builds a snapshot at tick 0.
func Generate(cfg GenConfig) *starmap.Snapshot {
	rng := rand.New(rand.NewSource(cfg.Seed))
	noise := opensimplex.NewNormalized(cfg.Seed)

	nodes := generateSystems(cfg, rng)
	lanes := generateLanes(cfg, rng, noise, nodes)

	factions := make([]*starmap.Faction, len(cfg.Factions))
	for i := range cfg.Factions {
		f := cfg.Factions[i]
		factions[i] = &f
	}

	snap := &starmap.Snapshot{
		Meta:     starmap.SimMeta{Tick: 0},
		Factions: factions,
		Nodes:    nodes,
		Edges:    lanes,
	}
	AssignCapitals(snap, cfg.CapitalMinHops, rng)
	return snap
}

func generateSystems(cfg GenConfig, rng *rand.Rand) []*starmap.Node {
	nodes := make([]*starmap.Node, 0, cfg.Systems)
	used := make(map[string]bool)

	for i := 0; i < cfg.Systems; i++ {
		name := ""
		for {
			name = namePrefixes[rng.Intn(len(namePrefixes))] + nameSuffixes[rng.Intn(len(nameSuffixes))]
			if !used[name] {
				used[name] = true
				break
			}
		}

		n := &starmap.Node{
			ID:         fmt.Sprintf("sys_%03d", i),
			Name:       name,
			X:          clamp(cfg.Width/2+rng.NormFloat64()*cfg.Width/5, 0, cfg.Width),
			Y:          clamp(cfg.Height/2+rng.NormFloat64()*cfg.Height/5, 0, cfg.Height),
			Stability:  round2(0.5 + rng.Float64()*0.5),
			Prosperity: round2(0.3 + rng.Float64()*0.7),
		}

		planetCount := 1 + rng.Intn(5)
		n.NumPlanets = planetCount
		n.AggregatedResources = make(map[string]float64)
		for p := 0; p < planetCount; p++ {
			planet := generatePlanet(rng, fmt.Sprintf("%s %s", name, roman(p+1)))
			n.DetailedPlanets = append(n.DetailedPlanets, planet)
			for res, amt := range planet.ResourcePotentials {
				n.AggregatedResources[res] = round2(n.AggregatedResources[res] + amt)
			}
		}
		nodes = append(nodes, n)
	}
	return nodes
}

func generatePlanet(rng *rand.Rand, name string) starmap.Planet {
	total := 0
	for _, pt := range planetTypes {
		total += pt.weight
	}
	pick := rng.Intn(total)
	idx := 0
	for i, pt := range planetTypes {
		if pick < pt.weight {
			idx = i
			break
		}
		pick -= pt.weight
	}

	pt := planetTypes[idx]
	planet := starmap.Planet{
		Name:               name,
		Type:               pt.name,
		Habitability:       round2(pt.habitMin + rng.Float64()*(pt.habitMax-pt.habitMin)),
		ResourcePotentials: make(map[string]float64, len(pt.resources)),
	}
	for _, res := range pt.resources {
		planet.ResourcePotentials[res] = round2(0.2 + rng.Float64()*1.3)
	}
	return planet
}

// generateLanes builds a Kruskal spanning tree over all pairwise distances
// for connectivity, then adds the shortest remaining edges that keep
// degrees at or under the cap and do not cross an existing lane. Hazard is
// sampled from a noise field at the lane midpoint.
func generateLanes(cfg GenConfig, rng *rand.Rand, noise opensimplex.Noise, nodes []*starmap.Node) []*starmap.Lane {
	n := len(nodes)
	if n < 2 {
		return nil
	}

	type cand struct {
		a, b int
		dist float64
	}
	cands := make([]cand, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			cands = append(cands, cand{i, j, dist(nodes[i], nodes[j])})
		}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })

	dsu := newDSU(n)
	degree := make([]int, n)
	var lanes []*starmap.Lane
	type seg struct{ ax, ay, bx, by float64 }
	var segs []seg

	addLane := func(c cand) {
		a, b := nodes[c.a], nodes[c.b]
		mx, my := (a.X+b.X)/2, (a.Y+b.Y)/2
		hazard := round2(noise.Eval2(mx/300, my/300))
		lanes = append(lanes, &starmap.Lane{
			ID:       fmt.Sprintf("lane_%03d", len(lanes)),
			Source:   a.ID,
			Target:   b.ID,
			Distance: round2(c.dist),
			Hazard:   hazard,
		})
		segs = append(segs, seg{a.X, a.Y, b.X, b.Y})
		degree[c.a]++
		degree[c.b]++
	}

	// Spanning tree first.
	var extras []cand
	for _, c := range cands {
		if dsu.union(c.a, c.b) {
			addLane(c)
		} else {
			extras = append(extras, c)
		}
	}

	// Extra edges up to the degree cap, rejecting crossings.
	for _, c := range extras {
		if degree[c.a] >= cfg.MaxLaneDegree || degree[c.b] >= cfg.MaxLaneDegree {
			continue
		}
		a, b := nodes[c.a], nodes[c.b]
		crosses := false
		for _, s := range segs {
			if segmentsCross(a.X, a.Y, b.X, b.Y, s.ax, s.ay, s.bx, s.by) {
				crosses = true
				break
			}
		}
		if !crosses {
			addLane(c)
		}
	}
	return lanes
}

type dsu struct {
	parent []int
	rank   []int
}

func newDSU(n int) *dsu {
	d := &dsu{parent: make([]int, n), rank: make([]int, n)}
	for i := range d.parent {
		d.parent[i] = i
	}
	return d
}

func (d *dsu) find(i int) int {
	if d.parent[i] != i {
		d.parent[i] = d.find(d.parent[i])
	}
	return d.parent[i]
}

func (d *dsu) union(i, j int) bool {
	ri, rj := d.find(i), d.find(j)
	if ri == rj {
		return false
	}
	if d.rank[ri] < d.rank[rj] {
		ri, rj = rj, ri
	}
	d.parent[rj] = ri
	if d.rank[ri] == d.rank[rj] {
		d.rank[ri]++
	}
	return true
}

// segmentsCross reports proper intersection of open segments; shared
// endpoints do not count (lanes meet at systems).
func segmentsCross(ax, ay, bx, by, cx, cy, dx, dy float64) bool {
	if (ax == cx && ay == cy) || (ax == dx && ay == dy) ||
		(bx == cx && by == cy) || (bx == dx && by == dy) {
		return false
	}
	d1 := orient(cx, cy, dx, dy, ax, ay)
	d2 := orient(cx, cy, dx, dy, bx, by)
	d3 := orient(ax, ay, bx, by, cx, cy)
	d4 := orient(ax, ay, bx, by, dx, dy)
	return d1*d2 < 0 && d3*d4 < 0
}

func orient(ax, ay, bx, by, px, py float64) float64 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

func dist(a, b *starmap.Node) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var romanNumerals = []string{"I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X"}

func roman(n int) string {
	if n >= 1 && n <= len(romanNumerals) {
		return romanNumerals[n-1]
	}
	return fmt.Sprintf("%d", n)
}
