// backendsim is a standalone development backend. It serves a generated
// (or fixture-loaded) universe over the snapshot API and mutates system
// attributes each tick so the viewer's merge path has something to chew on.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orbitlab/starmap/internal/universe"
	"github.com/orbitlab/starmap/pkg/starmap"
)

type simState struct {
	mu      sync.Mutex
	snap    *starmap.Snapshot
	playing bool
	rng     *rand.Rand
}

func (s *simState) advance(steps int) {
	for i := 0; i < steps; i++ {
		s.snap.Meta.Tick++
		s.jitter()
	}
}

// jitter nudges a handful of systems so consecutive snapshots differ.
func (s *simState) jitter() {
	for i := 0; i < 5 && len(s.snap.Nodes) > 0; i++ {
		n := s.snap.Nodes[s.rng.Intn(len(s.snap.Nodes))]
		n.Stability = clamp01(n.Stability + (s.rng.Float64()-0.5)*0.1)
		n.Prosperity = clamp01(n.Prosperity + (s.rng.Float64()-0.5)*0.1)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	systems := flag.Int("systems", 40, "number of systems to generate")
	seed := flag.Int64("seed", 100, "generation seed")
	fixture := flag.String("fixture", "", "YAML universe fixture (overrides generation)")
	tickEvery := flag.Duration("tick", time.Second, "tick period while playing")
	flag.Parse()

	var snap *starmap.Snapshot
	var err error
	if *fixture != "" {
		snap, err = universe.LoadFixture(*fixture)
		if err != nil {
			log.Fatalf("[BackendSim] %v", err)
		}
	} else {
		cfg := universe.DefaultGenConfig()
		cfg.Systems = *systems
		cfg.Seed = *seed
		snap = universe.Generate(cfg)
	}
	log.Printf("[BackendSim] universe ready: %d systems, %d lanes", len(snap.Nodes), len(snap.Edges))

	sim := &simState{snap: snap, rng: rand.New(rand.NewSource(*seed))}

	go func() {
		for range time.Tick(*tickEvery) {
			sim.mu.Lock()
			if sim.playing {
				sim.advance(1)
			}
			sim.mu.Unlock()
		}
	}()

	r := gin.Default()
	r.GET("/v1/snapshot", func(c *gin.Context) {
		sim.mu.Lock()
		defer sim.mu.Unlock()
		c.JSON(http.StatusOK, sim.snap)
	})
	r.POST("/v1/control/:action", func(c *gin.Context) {
		var body struct {
			Steps int `json:"steps"`
		}
		_ = c.ShouldBindJSON(&body)
		if body.Steps <= 0 {
			body.Steps = 1
		}

		sim.mu.Lock()
		defer sim.mu.Unlock()
		switch c.Param("action") {
		case "play":
			sim.playing = true
		case "pause":
			sim.playing = false
		case "step":
			sim.advance(body.Steps)
		case "rewind":
			sim.snap.Meta.Tick -= body.Steps
			if sim.snap.Meta.Tick < 0 {
				sim.snap.Meta.Tick = 0
			}
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown action %q", c.Param("action"))})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "tick": sim.snap.Meta.Tick})
	})
	r.POST("/v1/positions", func(c *gin.Context) {
		var body struct {
			NodePositions map[string]struct {
				X float64 `json:"x"`
				Y float64 `json:"y"`
			} `json:"node_positions"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[BackendSim] received %d node positions", len(body.NodePositions))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	log.Printf("[BackendSim] listening on %s", *addr)
	if err := r.Run(*addr); err != nil {
		log.Fatalf("[BackendSim] server error: %v", err)
	}
}
