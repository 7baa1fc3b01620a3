// Package export flattens the laid-out graph into the D3-style
// {nodes, links} JSON shape consumed by force-graph frontends.
package export

import (
	"encoding/json"
	"os"

	"github.com/orbitlab/starmap/pkg/cluster"
	"github.com/orbitlab/starmap/pkg/starmap"
)

// GraphNode is one exported node with its laid-out position and sector
// membership for the current pass.
type GraphNode struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Group     string  `json:"group,omitempty"`  // controlling faction id
	Sector    int     `json:"sector"`           // -1 when unclustered this pass
	IsCapital bool    `json:"is_capital,omitempty"`
}

// GraphLink is one exported lane.
type GraphLink struct {
	Source   string  `json:"source"`
	Target   string  `json:"target"`
	Distance float64 `json:"distance,omitempty"`
	Hazard   float64 `json:"hazard,omitempty"`
}

// Graph is the full export payload.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// Build assembles the export from the session's current state. Sector
// indices follow the enumeration order of the surviving clusters, matching
// the legend.
func Build(nodes []*starmap.Node, lanes []*starmap.Lane, clusters []cluster.Cluster) *Graph {
	sectorOf := make(map[string]int, len(nodes))
	for i, c := range clusters {
		for _, m := range c.Members {
			sectorOf[m.ID] = i
		}
	}

	g := &Graph{
		Nodes: make([]GraphNode, 0, len(nodes)),
		Links: make([]GraphLink, 0, len(lanes)),
	}

	for _, n := range nodes {
		sector, ok := sectorOf[n.ID]
		if !ok {
			sector = -1
		}
		g.Nodes = append(g.Nodes, GraphNode{
			ID:        n.ID,
			Name:      n.Name,
			X:         n.X,
			Y:         n.Y,
			Group:     n.ControllingFaction(),
			Sector:    sector,
			IsCapital: n.IsCapital,
		})
	}

	for _, l := range lanes {
		g.Links = append(g.Links, GraphLink{
			Source:   l.Source,
			Target:   l.Target,
			Distance: l.Distance,
			Hazard:   l.Hazard,
		})
	}
	return g
}

// Save writes the graph to a JSON file.
func Save(graph *Graph, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(graph)
}
