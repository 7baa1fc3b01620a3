// Package render turns a settled layout plus its detected sectors into a
// finished frame. Every stabilization pass produces a complete new frame:
// there is no incremental diffing, the previous frame's regions are simply
// replaced wholesale.
package render

import (
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"

	"github.com/orbitlab/starmap/pkg/cluster"
	"github.com/orbitlab/starmap/pkg/geom"
	"github.com/orbitlab/starmap/pkg/starmap"
)

// sectorPalette is the categorical color table, assigned by enumeration
// order of the surviving clusters for the pass.
var sectorPalette = []string{
	"#bd93f9", // purple
	"#50fa7b", // green
	"#8be9fd", // cyan
	"#ffb86c", // orange
	"#ff79c6", // pink
	"#f1fa8c", // yellow
	"#ff5555", // red
	"#6272a4", // slate
}

// LegendEntry describes one drawn sector for the current pass.
type LegendEntry struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Scene is everything a frame needs. The caller holds the session lock
// while the renderer reads it.
type Scene struct {
	Width    int
	Height   int
	Tick     int
	PassID   string
	Nodes    []*starmap.Node
	Lanes    []*starmap.Lane
	Factions map[string]*starmap.Faction
	Clusters []cluster.Cluster
}

// Config holds presentation knobs.
type Config struct {
	NeutralColor  string
	RegionOpacity float64
	HullMargin    float64
	SmoothSamples int
	NodeRadius    int
}

// DefaultConfig matches the established map styling.
func DefaultConfig() Config {
	return Config{
		NeutralColor:  "#9aa0b0",
		RegionOpacity: 0.18,
		HullMargin:    18,
		SmoothSamples: 12,
		NodeRadius:    7,
	}
}

// Renderer draws frames.
type Renderer struct {
	cfg Config
}

// New creates a Renderer.
func New(cfg Config) *Renderer {
	if cfg.SmoothSamples <= 0 {
		cfg = DefaultConfig()
	}
	return &Renderer{cfg: cfg}
}

// SectorColor returns the palette color for a sector index.
func SectorColor(index int) string {
	return sectorPalette[index%len(sectorPalette)]
}

// NodeColor resolves a node's fill: the controlling faction's color, or the
// neutral color when no faction controls it.
func (r *Renderer) NodeColor(n *starmap.Node, factions map[string]*starmap.Faction) string {
	if id := n.ControllingFaction(); id != "" {
		if f, ok := factions[id]; ok && f.Color != "" {
			return f.Color
		}
	}
	return r.cfg.NeutralColor
}

// Legend builds the legend entries for the pass's surviving clusters,
// skipping clusters without a drawable hull (they are counted, not drawn).
func (r *Renderer) Legend(clusters []cluster.Cluster) []LegendEntry {
	var entries []LegendEntry
	for i, c := range clusters {
		if c.Hull == nil {
			continue
		}
		entries = append(entries, LegendEntry{
			ID:    i,
			Name:  fmt.Sprintf("Sector %d", i+1),
			Color: SectorColor(i),
		})
	}
	return entries
}

// RenderSVG writes one complete frame and returns the sector legend for it.
func (r *Renderer) RenderSVG(w io.Writer, sc Scene) []LegendEntry {
	canvas := svg.New(w)
	canvas.Start(sc.Width, sc.Height)
	canvas.Rect(0, 0, sc.Width, sc.Height, "fill:#1e1e2e")

	// Sector regions go under everything else.
	for i, c := range sc.Clusters {
		if c.Hull == nil {
			continue
		}
		outline := geom.SmoothClosed(geom.Expand(c.Hull, r.cfg.HullMargin), r.cfg.SmoothSamples)
		canvas.Path(closedPath(outline), fmt.Sprintf(
			"fill:%s;fill-opacity:%.2f;stroke:%s;stroke-opacity:0.5;stroke-width:1.5",
			SectorColor(i), r.cfg.RegionOpacity, SectorColor(i)))
	}

	byID := make(map[string]*starmap.Node, len(sc.Nodes))
	for _, n := range sc.Nodes {
		byID[n.ID] = n
	}

	for _, l := range sc.Lanes {
		a, ok1 := byID[l.Source]
		b, ok2 := byID[l.Target]
		if !ok1 || !ok2 {
			continue
		}
		canvas.Line(round(a.X), round(a.Y), round(b.X), round(b.Y),
			"stroke:#44475a;stroke-width:1;stroke-opacity:0.8")
	}

	for _, n := range sc.Nodes {
		fill := r.NodeColor(n, sc.Factions)
		radius := r.cfg.NodeRadius
		if n.IsCapital {
			radius += 3
		}
		canvas.Circle(round(n.X), round(n.Y), radius,
			fmt.Sprintf("fill:%s;stroke:#f8f8f2;stroke-width:1", fill))
		canvas.Text(round(n.X), round(n.Y)-radius-4, n.Name,
			"fill:#f8f8f2;font-size:10px;text-anchor:middle;font-family:sans-serif")
	}

	canvas.Text(12, 22, fmt.Sprintf("Tick: %d", sc.Tick),
		"fill:#f8f8f2;font-size:16px;font-family:monospace")

	legend := r.Legend(sc.Clusters)
	ly := 46
	for _, e := range legend {
		canvas.Rect(12, ly-10, 12, 12, fmt.Sprintf("fill:%s;fill-opacity:0.6", e.Color))
		canvas.Text(30, ly, e.Name, "fill:#f8f8f2;font-size:12px;font-family:sans-serif")
		ly += 18
	}

	canvas.End()
	return legend
}

func closedPath(pts []geom.Point) string {
	if len(pts) == 0 {
		return ""
	}
	d := fmt.Sprintf("M%.1f,%.1f", pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		d += fmt.Sprintf(" L%.1f,%.1f", p.X, p.Y)
	}
	return d + " Z"
}

func round(v float64) int {
	return int(math.Round(v))
}
