package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitlab/starmap/pkg/cluster"
	"github.com/orbitlab/starmap/pkg/starmap"
)

func TestBuildSectorAssignment(t *testing.T) {
	nodes := []*starmap.Node{
		{ID: "sys_1", Name: "Altair", X: 1, Y: 2,
			Factions: map[string]starmap.FactionStanding{
				"fac_a": {ControlledBy: true},
			}},
		{ID: "sys_2", Name: "Vega", X: 3, Y: 4},
		{ID: "sys_3", Name: "Sirius", X: 5, Y: 6},
	}
	lanes := []*starmap.Lane{
		{ID: "l1", Source: "sys_1", Target: "sys_2", Distance: 10, Hazard: 0.2},
	}
	clusters := []cluster.Cluster{
		{Members: []*starmap.Node{nodes[0], nodes[1]}},
	}

	g := Build(nodes, lanes, clusters)
	require.Len(t, g.Nodes, 3)
	require.Len(t, g.Links, 1)

	assert.Equal(t, 0, g.Nodes[0].Sector)
	assert.Equal(t, 0, g.Nodes[1].Sector)
	assert.Equal(t, -1, g.Nodes[2].Sector) // unclustered this pass

	assert.Equal(t, "fac_a", g.Nodes[0].Group)
	assert.Equal(t, "", g.Nodes[1].Group)
	assert.Equal(t, "sys_1", g.Links[0].Source)
	assert.Equal(t, 0.2, g.Links[0].Hazard)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	g := Build([]*starmap.Node{{ID: "sys_1", Name: "Altair"}}, nil, nil)
	require.NoError(t, Save(g, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded Graph
	require.NoError(t, json.Unmarshal(data, &loaded))
	require.Len(t, loaded.Nodes, 1)
	assert.Equal(t, "Altair", loaded.Nodes[0].Name)
	assert.Equal(t, -1, loaded.Nodes[0].Sector)
}
