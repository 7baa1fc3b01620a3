// mapshot renders a single settled map from a snapshot without running the
// service: load or generate a universe, iterate the layout until it
// settles, detect sectors and write the SVG/PNG/graph artifacts.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"

	"github.com/orbitlab/starmap/internal/universe"
	"github.com/orbitlab/starmap/pkg/cluster"
	"github.com/orbitlab/starmap/pkg/export"
	"github.com/orbitlab/starmap/pkg/layout"
	"github.com/orbitlab/starmap/pkg/render"
	"github.com/orbitlab/starmap/pkg/starmap"
)

func main() {
	in := flag.String("in", "", "snapshot JSON file (empty generates a universe)")
	fixture := flag.String("fixture", "", "YAML universe fixture")
	systems := flag.Int("systems", 40, "systems to generate when no input is given")
	seed := flag.Int64("seed", 100, "generation and clustering seed")
	width := flag.Int("width", 1600, "canvas width")
	height := flag.Int("height", 1000, "canvas height")
	maxTicks := flag.Int("max-ticks", 3000, "layout step cap")
	svgOut := flag.String("svg", "map.svg", "SVG output path (empty skips)")
	pngOut := flag.String("png", "", "PNG output path (empty skips)")
	graphOut := flag.String("graph", "", "graph JSON output path (empty skips)")
	flag.Parse()

	snap, err := loadSnapshot(*in, *fixture, *systems, *seed)
	if err != nil {
		log.Fatalf("[Mapshot] %v", err)
	}
	log.Printf("[Mapshot] loaded %d systems, %d lanes (tick %d)", len(snap.Nodes), len(snap.Edges), snap.Meta.Tick)

	cfg := layout.DefaultConfig()
	cfg.Width = float64(*width)
	cfg.Height = float64(*height)
	engine := layout.New(cfg, snap.Nodes, snap.Edges)
	for i := 0; i < *maxTicks && !engine.Settled(); i++ {
		engine.Step()
	}
	log.Printf("[Mapshot] layout done after %d ticks (energy %.4f)", engine.Ticks(), engine.Energy())

	clusters := cluster.Detect(snap.Nodes, cluster.Options{
		Rand: rand.New(rand.NewSource(*seed)),
	})
	log.Printf("[Mapshot] detected %d sectors", len(clusters))

	factions := make(map[string]*starmap.Faction, len(snap.Factions))
	for _, f := range snap.Factions {
		factions[f.ID] = f
	}
	scene := render.Scene{
		Width:    *width,
		Height:   *height,
		Tick:     snap.Meta.Tick,
		Nodes:    snap.Nodes,
		Lanes:    snap.Edges,
		Factions: factions,
		Clusters: clusters,
	}
	renderer := render.New(render.DefaultConfig())

	if *svgOut != "" {
		f, err := os.Create(*svgOut)
		if err != nil {
			log.Fatalf("[Mapshot] create %s: %v", *svgOut, err)
		}
		renderer.RenderSVG(f, scene)
		f.Close()
		log.Printf("[Mapshot] wrote %s", *svgOut)
	}
	if *pngOut != "" {
		f, err := os.Create(*pngOut)
		if err != nil {
			log.Fatalf("[Mapshot] create %s: %v", *pngOut, err)
		}
		if err := renderer.RenderPNG(f, scene); err != nil {
			log.Fatalf("[Mapshot] render png: %v", err)
		}
		f.Close()
		log.Printf("[Mapshot] wrote %s", *pngOut)
	}
	if *graphOut != "" {
		g := export.Build(snap.Nodes, snap.Edges, clusters)
		if err := export.Save(g, *graphOut); err != nil {
			log.Fatalf("[Mapshot] save graph: %v", err)
		}
		log.Printf("[Mapshot] wrote %s", *graphOut)
	}
}

func loadSnapshot(in, fixture string, systems int, seed int64) (*starmap.Snapshot, error) {
	switch {
	case in != "":
		data, err := os.ReadFile(in)
		if err != nil {
			return nil, err
		}
		var snap starmap.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, err
		}
		return &snap, nil
	case fixture != "":
		return universe.LoadFixture(fixture)
	default:
		cfg := universe.DefaultGenConfig()
		cfg.Systems = systems
		cfg.Seed = seed
		return universe.Generate(cfg), nil
	}
}
