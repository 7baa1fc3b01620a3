// Package layout is the iterative physics solver that lays the star graph
// out in 2D. It owns node positions once initialized: each Step integrates
// repulsion between all nodes, spring attraction along lanes and a pull
// toward the canvas center, cooled by a decaying energy scalar. The caller
// drives Step on its own cadence and watches Settled.
package layout

import (
	"math"
	"math/rand"

	"github.com/orbitlab/starmap/pkg/starmap"
)

// Config holds the solver parameters.
type Config struct {
	Width  float64
	Height float64

	// MinEnergy is the settling threshold: once the energy scalar decays
	// below it the layout is settled and Step becomes a no-op.
	MinEnergy float64
	// EnergyDecay is the per-step multiplicative cooling factor.
	EnergyDecay float64

	Repulsion float64
	Spring    float64
	// SpringLength scales lane distance into rest length; 0 uses the
	// k = sqrt(area/n) heuristic for every lane.
	SpringLength float64
	Gravity      float64
	Damping      float64

	// Seed drives the initial scatter of nodes that carry no position.
	Seed int64
}

// DefaultConfig returns solver parameters tuned for a few hundred systems.
func DefaultConfig() Config {
	return Config{
		Width:       1600,
		Height:      1000,
		MinEnergy:   0.005,
		EnergyDecay: 0.98,
		Repulsion:   0.8,
		Spring:      0.02,
		Gravity:     0.06,
		Damping:     0.85,
		Seed:        1,
	}
}

type vec struct{ x, y float64 }

// Engine integrates the layout. It is not safe for concurrent use; the
// session serializes Step against every reader of node positions.
type Engine struct {
	cfg   Config
	nodes []*starmap.Node
	lanes []*starmap.Lane

	byID map[string]int
	vel  []vec
	fo   []vec

	k      float64
	energy float64
	ticks  int

	// OnTick, when set, runs after every completed integration step.
	OnTick func(tick int)
}

// New builds an engine over the session's node and lane slices. Nodes with
// a zero position are scattered; nodes arriving with persisted coordinates
// keep them as the starting point.
func New(cfg Config, nodes []*starmap.Node, lanes []*starmap.Lane) *Engine {
	e := &Engine{
		cfg:    cfg,
		nodes:  nodes,
		lanes:  lanes,
		byID:   make(map[string]int, len(nodes)),
		vel:    make([]vec, len(nodes)),
		fo:     make([]vec, len(nodes)),
		energy: 1.0,
	}
	for i, n := range nodes {
		e.byID[n.ID] = i
	}

	area := cfg.Width * cfg.Height
	count := float64(len(nodes))
	if count == 0 {
		count = 1
	}
	e.k = math.Sqrt(area / count)

	rng := rand.New(rand.NewSource(cfg.Seed))
	for _, n := range nodes {
		if n.X == 0 && n.Y == 0 {
			n.X = rng.Float64() * cfg.Width
			n.Y = rng.Float64() * cfg.Height
		}
	}
	return e
}

// Energy reports the current settling energy scalar.
func (e *Engine) Energy() float64 { return e.energy }

// Settled reports whether the energy has decayed below the configured
// minimum.
func (e *Engine) Settled() bool { return e.energy < e.cfg.MinEnergy }

// Ticks reports how many integration steps have run since the last restart.
func (e *Engine) Ticks() int { return e.ticks }

// Restart re-arms the solver at the given energy. Resize restarts use a
// reduced energy so the settled layout only shifts, it does not re-scatter.
func (e *Engine) Restart(energy float64) {
	if energy <= 0 {
		energy = 1.0
	}
	e.energy = energy
	for i := range e.vel {
		e.vel[i] = vec{}
	}
}

// Resize re-centers the layout target and restarts at reduced energy.
func (e *Engine) Resize(width, height float64) {
	e.cfg.Width = width
	e.cfg.Height = height
	area := width * height
	count := float64(len(e.nodes))
	if count == 0 {
		count = 1
	}
	e.k = math.Sqrt(area / count)
	e.Restart(0.3)
}

// Step runs one integration tick. It returns the energy after the step and
// does nothing once settled.
func (e *Engine) Step() float64 {
	if e.Settled() || len(e.nodes) == 0 {
		return e.energy
	}

	for i := range e.fo {
		e.fo[i] = vec{}
	}

	cx := e.cfg.Width / 2
	cy := e.cfg.Height / 2

	// Pairwise repulsion plus center gravity.
	for i, a := range e.nodes {
		dx := cx - a.X
		dy := cy - a.Y
		e.fo[i].x += dx * e.cfg.Gravity
		e.fo[i].y += dy * e.cfg.Gravity

		for j := i + 1; j < len(e.nodes); j++ {
			b := e.nodes[j]
			dx := a.X - b.X
			dy := a.Y - b.Y
			d := math.Max(0.1, math.Sqrt(dx*dx+dy*dy))
			rep := e.k * e.k / d * e.cfg.Repulsion / 100.0
			ux := dx / d
			uy := dy / d
			e.fo[i].x += ux * rep
			e.fo[i].y += uy * rep
			e.fo[j].x -= ux * rep
			e.fo[j].y -= uy * rep
		}
	}

	// Spring attraction along lanes.
	for _, l := range e.lanes {
		si, ok1 := e.byID[l.Source]
		ti, ok2 := e.byID[l.Target]
		if !ok1 || !ok2 {
			continue
		}
		a := e.nodes[si]
		b := e.nodes[ti]
		dx := b.X - a.X
		dy := b.Y - a.Y
		d := math.Max(0.1, math.Sqrt(dx*dx+dy*dy))

		rest := e.k
		if e.cfg.SpringLength > 0 && l.Distance > 0 {
			rest = l.Distance * e.cfg.SpringLength
		}
		att := (d - rest) * e.cfg.Spring
		ux := dx / d
		uy := dy / d
		e.fo[si].x += ux * att
		e.fo[si].y += uy * att
		e.fo[ti].x -= ux * att
		e.fo[ti].y -= uy * att
	}

	// Integrate, scaled by the cooling energy.
	for i, n := range e.nodes {
		if n.PinX != nil && n.PinY != nil {
			n.X = *n.PinX
			n.Y = *n.PinY
			e.vel[i] = vec{}
			continue
		}
		v := e.vel[i]
		v.x = (v.x + e.fo[i].x*e.energy) * e.cfg.Damping
		v.y = (v.y + e.fo[i].y*e.energy) * e.cfg.Damping
		e.vel[i] = v

		n.X = clamp(n.X+v.x, 0, e.cfg.Width)
		n.Y = clamp(n.Y+v.y, 0, e.cfg.Height)
	}

	e.energy *= e.cfg.EnergyDecay
	e.ticks++
	if e.OnTick != nil {
		e.OnTick(e.ticks)
	}
	return e.energy
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
