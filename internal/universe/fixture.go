package universe

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/orbitlab/starmap/pkg/starmap"
)

// fixtureFile is the on-disk YAML shape for hand-authored universes. It is
// kept separate from the wire model so fixtures stay readable.
type fixtureFile struct {
	Tick     int              `yaml:"tick"`
	Factions []fixtureFaction `yaml:"factions"`
	Systems  []fixtureSystem  `yaml:"systems"`
	Lanes    []fixtureLane    `yaml:"lanes"`
}

type fixtureFaction struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

type fixtureSystem struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name"`
	X          float64 `yaml:"x"`
	Y          float64 `yaml:"y"`
	Stability  float64 `yaml:"stability"`
	Prosperity float64 `yaml:"prosperity"`

	Planets []fixturePlanet `yaml:"planets"`

	Capital   bool    `yaml:"capital"`
	OwnedBy   string  `yaml:"owned_by"`
	Influence float64 `yaml:"influence"`
}

type fixturePlanet struct {
	Name         string             `yaml:"name"`
	Type         string             `yaml:"type"`
	Habitability float64            `yaml:"habitability"`
	Resources    map[string]float64 `yaml:"resources"`
}

type fixtureLane struct {
	ID       string  `yaml:"id"`
	Source   string  `yaml:"source"`
	Target   string  `yaml:"target"`
	Distance float64 `yaml:"distance"`
	Hazard   float64 `yaml:"hazard"`
}

// LoadFixture reads a YAML universe and converts it into a snapshot.
func LoadFixture(path string) (*starmap.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}

	snap := &starmap.Snapshot{Meta: starmap.SimMeta{Tick: f.Tick}}
	for _, ff := range f.Factions {
		snap.Factions = append(snap.Factions, &starmap.Faction{ID: ff.ID, Name: ff.Name, Color: ff.Color})
	}

	ids := make(map[string]bool, len(f.Systems))
	for _, fs := range f.Systems {
		if ids[fs.ID] {
			return nil, fmt.Errorf("fixture %s: duplicate system id %q", path, fs.ID)
		}
		ids[fs.ID] = true

		n := &starmap.Node{
			ID:         fs.ID,
			Name:       fs.Name,
			X:          fs.X,
			Y:          fs.Y,
			Stability:  fs.Stability,
			Prosperity: fs.Prosperity,
			IsCapital:  fs.Capital,
			NumPlanets: len(fs.Planets),
		}
		for _, fp := range fs.Planets {
			n.DetailedPlanets = append(n.DetailedPlanets, starmap.Planet{
				Name:               fp.Name,
				Type:               fp.Type,
				Habitability:       fp.Habitability,
				ResourcePotentials: fp.Resources,
			})
			for res, amt := range fp.Resources {
				if n.AggregatedResources == nil {
					n.AggregatedResources = make(map[string]float64)
				}
				n.AggregatedResources[res] += amt
			}
		}
		if fs.OwnedBy != "" {
			n.Factions = map[string]starmap.FactionStanding{
				fs.OwnedBy: {Influence: fs.Influence, Presence: true, ControlledBy: true},
			}
			if fs.Capital {
				if i := bestHabitablePlanet(n); i >= 0 {
					n.CapitalPlanetName = n.DetailedPlanets[i].Name
				}
			}
		}
		snap.Nodes = append(snap.Nodes, n)
	}

	for _, fl := range f.Lanes {
		if !ids[fl.Source] || !ids[fl.Target] {
			return nil, fmt.Errorf("fixture %s: lane %s references unknown system", path, fl.ID)
		}
		snap.Edges = append(snap.Edges, &starmap.Lane{
			ID:       fl.ID,
			Source:   fl.Source,
			Target:   fl.Target,
			Distance: fl.Distance,
			Hazard:   fl.Hazard,
		})
	}
	return snap, nil
}
