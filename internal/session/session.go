// Package session owns the live viewer state: the cached node, lane and
// faction sets bootstrapped from the first snapshot, the layout engine
// driving their positions, and the settling state machine that turns a
// finished layout into sectors, a rendered frame and a position report.
//
// The source design ran everything on one cooperative event loop; here a
// mutex serializes every entry point instead (poll application, physics
// steps, command side effects, render reads), which preserves the same
// no-overlap guarantee under real parallelism.
package session

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orbitlab/starmap/pkg/cluster"
	"github.com/orbitlab/starmap/pkg/common/errors"
	"github.com/orbitlab/starmap/pkg/export"
	"github.com/orbitlab/starmap/pkg/layout"
	"github.com/orbitlab/starmap/pkg/render"
	"github.com/orbitlab/starmap/pkg/report"
	"github.com/orbitlab/starmap/pkg/starmap"
	"github.com/orbitlab/starmap/pkg/statesync"
)

// Phase is the settling state machine state.
type Phase string

const (
	// PhaseSettling: physics actively integrating.
	PhaseSettling Phase = "settling"
	// PhaseSettled: physics halted until resize or explicit restart.
	PhaseSettled Phase = "settled"
)

// Event is a session notification for the HTTP surface and its websocket
// hub.
type Event struct {
	Type   string `json:"type"` // "bootstrap", "refresh", "settled"
	PassID string `json:"pass_id,omitempty"`
	Tick   int    `json:"tick"`
}

// Frame is one rendered stabilization pass.
type Frame struct {
	PassID string
	Tick   int
	SVG    []byte
	Legend []render.LegendEntry
}

// State is the session summary served at /v1/state.
type State struct {
	Tick        int    `json:"tick"`
	Phase       Phase  `json:"phase"`
	PassID      string `json:"pass_id,omitempty"`
	NodeCount   int    `json:"node_count"`
	SectorCount int    `json:"sector_count"`
}

// Session is the explicit context object holding all cached render state.
// Create with New, start with Run, and tear down by canceling Run's
// context; nothing here survives the process.
type Session struct {
	cfg      Config
	renderer *render.Renderer
	reporter *report.Reporter

	mu           sync.Mutex
	bootstrapped bool
	nodes        []*starmap.Node
	lanes        []*starmap.Lane
	factions     map[string]*starmap.Faction
	meta         starmap.SimMeta
	engine       *layout.Engine
	phase        Phase
	passID       string
	clusters     []cluster.Cluster
	frame        *Frame
	clusterRand  *rand.Rand

	// OnEvent, when set before Run, receives session events. It is called
	// without the session lock held; implementations may call back into
	// the session.
	OnEvent func(Event)
}

// New creates a Session. reporter may be nil when position persistence is
// not wanted (one-shot renders, tests).
func New(cfg Config, reporter *report.Reporter) *Session {
	var rng *rand.Rand
	if cfg.Cluster.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Cluster.Seed))
	}
	return &Session{
		cfg:         cfg,
		renderer:    render.New(render.DefaultConfig()),
		reporter:    reporter,
		clusterRand: rng,
	}
}

// Ready reports whether a prior render exists.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bootstrapped
}

// Bootstrap installs the first snapshot: caches the node/lane/faction sets
// for the session lifetime and performs the one and only layout engine
// initialization. The node set cardinality is fixed from here on.
func (s *Session) Bootstrap(snap *starmap.Snapshot) error {
	s.mu.Lock()
	if s.bootstrapped {
		s.mu.Unlock()
		return fmt.Errorf("%w: session already bootstrapped", errors.ErrInvalidInput)
	}

	byID := make(map[string]*starmap.Node, len(snap.Nodes))
	for _, n := range snap.Nodes {
		byID[n.ID] = n
	}
	for _, l := range snap.Edges {
		if _, ok := byID[l.Source]; !ok {
			s.mu.Unlock()
			return fmt.Errorf("%w: lane %s references unknown source %s", errors.ErrInvalidInput, l.ID, l.Source)
		}
		if _, ok := byID[l.Target]; !ok {
			s.mu.Unlock()
			return fmt.Errorf("%w: lane %s references unknown target %s", errors.ErrInvalidInput, l.ID, l.Target)
		}
	}

	s.nodes = snap.Nodes
	s.lanes = snap.Edges
	s.factions = make(map[string]*starmap.Faction, len(snap.Factions))
	for _, f := range snap.Factions {
		s.factions[f.ID] = f
	}
	s.meta = snap.Meta
	s.engine = layout.New(s.cfg.layoutConfig(), s.nodes, s.lanes)
	s.bootstrapped = true
	s.enterSettlingLocked()

	ev := Event{Type: "bootstrap", PassID: s.passID, Tick: s.meta.Tick}
	s.mu.Unlock()

	log.Printf("[Session] bootstrapped: %d systems, %d lanes, %d factions",
		len(snap.Nodes), len(snap.Edges), len(snap.Factions))
	s.emit(ev)
	return nil
}

// Merge applies a later snapshot. Matching-cardinality snapshots overwrite
// simulation attributes in place (never positions) and trigger a
// lightweight re-render from unchanged coordinates. A cardinality mismatch
// is a diagnostic and a no-op: structural changes require a full reload.
func (s *Session) Merge(snap *starmap.Snapshot) error {
	s.mu.Lock()

	if err := statesync.MergeNodes(s.nodes, snap.Nodes); err != nil {
		s.mu.Unlock()
		log.Printf("[Session] skipping merge: %v (full reload required to pick up structural changes)", err)
		return nil
	}

	s.meta = snap.Meta
	s.refreshLocked()

	ev := Event{Type: "refresh", PassID: s.passID, Tick: s.meta.Tick}
	s.mu.Unlock()

	s.emit(ev)
	return nil
}

// refreshLocked re-renders the current frame from the current, unchanged
// coordinates and cluster set. It must never touch the physics engine.
func (s *Session) refreshLocked() {
	if s.phase == PhaseSettled && s.frame != nil {
		s.renderLocked()
	}
}

// Run drives the physics engine until the context is canceled. The settle
// transition fires exactly once per settling episode.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.StepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ev, fired := s.step(ctx); fired {
				s.emit(ev)
			}
		}
	}
}

// step advances the solver one tick and performs the settle transition
// when the energy metric drops below its minimum.
func (s *Session) step(ctx context.Context) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.bootstrapped || s.phase != PhaseSettling {
		return Event{}, false
	}

	s.engine.Step()
	if !s.engine.Settled() {
		return Event{}, false
	}

	// SETTLING -> SETTLED: halt (Step is a no-op once settled), report
	// positions once, then cluster and render exactly once.
	s.phase = PhaseSettled
	log.Printf("[Session] layout settled after %d ticks (pass %s)", s.engine.Ticks(), s.passID)

	if s.reporter != nil {
		positions := make([]*starmap.Node, len(s.nodes))
		for i, n := range s.nodes {
			positions[i] = &starmap.Node{ID: n.ID, X: n.X, Y: n.Y}
		}
		go s.reporter.Report(ctx, positions)
	}

	s.clusters = cluster.Detect(s.nodes, cluster.Options{
		Ratio:              s.cfg.Cluster.Ratio,
		MaxIterations:      s.cfg.Cluster.MaxIterations,
		ConvergenceEpsilon: s.cfg.Cluster.ConvergenceEpsilon,
		Rand:               s.clusterRand,
	})
	s.renderLocked()

	return Event{Type: "settled", PassID: s.passID, Tick: s.meta.Tick}, true
}

func (s *Session) renderLocked() {
	var buf bytes.Buffer
	legend := s.renderer.RenderSVG(&buf, s.sceneLocked())
	s.frame = &Frame{
		PassID: s.passID,
		Tick:   s.meta.Tick,
		SVG:    buf.Bytes(),
		Legend: legend,
	}
}

func (s *Session) sceneLocked() render.Scene {
	return render.Scene{
		Width:    s.cfg.Canvas.Width,
		Height:   s.cfg.Canvas.Height,
		Tick:     s.meta.Tick,
		PassID:   s.passID,
		Nodes:    s.nodes,
		Lanes:    s.lanes,
		Factions: s.factions,
		Clusters: s.clusters,
	}
}

func (s *Session) enterSettlingLocked() {
	s.phase = PhaseSettling
	s.passID = uuid.NewString()
}

// Resize re-centers the layout target and re-arms settling at reduced
// energy. Clusters for the old pass are discarded when the new one
// settles.
func (s *Session) Resize(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.bootstrapped {
		return fmt.Errorf("%w: no layout to resize", errors.ErrUnavailable)
	}
	s.cfg.Canvas.Width = width
	s.cfg.Canvas.Height = height
	s.engine.Resize(float64(width), float64(height))
	s.enterSettlingLocked()
	return nil
}

// Restart re-arms settling at full energy on explicit external command.
func (s *Session) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.bootstrapped {
		return fmt.Errorf("%w: no layout to restart", errors.ErrUnavailable)
	}
	s.engine.Restart(1.0)
	s.enterSettlingLocked()
	return nil
}

// State returns the session summary.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Tick:        s.meta.Tick,
		Phase:       s.phase,
		PassID:      s.passID,
		NodeCount:   len(s.nodes),
		SectorCount: len(s.clusters),
	}
}

// Frame returns the latest rendered frame, or ErrUnavailable before the
// first settle.
func (s *Session) Frame() (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		return nil, fmt.Errorf("%w: no settled frame", errors.ErrUnavailable)
	}
	return s.frame, nil
}

// RenderPNG rasterizes the current scene.
func (s *Session) RenderPNG(w *bytes.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		return fmt.Errorf("%w: no settled frame", errors.ErrUnavailable)
	}
	return s.renderer.RenderPNG(w, s.sceneLocked())
}

// GraphExport builds the D3-style export of the current state.
func (s *Session) GraphExport() (*export.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.bootstrapped {
		return nil, fmt.Errorf("%w: session not bootstrapped", errors.ErrUnavailable)
	}
	return export.Build(s.nodes, s.lanes, s.clusters), nil
}

// NodeByID returns a copy of one node's full attribute bag.
func (s *Session) NodeByID(id string) (starmap.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.nodes {
		if n.ID == id {
			return *n, nil
		}
	}
	return starmap.Node{}, fmt.Errorf("%w: system %s", errors.ErrNotFound, id)
}

// SystemNames returns display names keyed back to ids, for search.
func (s *Session) SystemNames() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make(map[string]string, len(s.nodes))
	for _, n := range s.nodes {
		names[n.Name] = n.ID
	}
	return names
}

func (s *Session) emit(ev Event) {
	if s.OnEvent != nil {
		s.OnEvent(ev)
	}
}
