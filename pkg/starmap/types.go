// Package starmap defines the domain model shared by the sync client, the
// layout engine and the renderers. The JSON shapes mirror the backend
// snapshot API exactly; these records are the wire format.
package starmap

// FactionStanding describes one faction's standing on a system.
type FactionStanding struct {
	Influence    float64 `json:"influence"`
	Presence     bool    `json:"presence"`
	ControlledBy bool    `json:"controlled_by"`
}

// Planet is the per-planet detail carried for display only.
type Planet struct {
	Name               string             `json:"name,omitempty"`
	Type               string             `json:"type"`
	Habitability       float64            `json:"habitability"`
	ResourcePotentials map[string]float64 `json:"resource_potentials,omitempty"`
}

// Node is one star system in the rendered graph. Identity (ID) is the merge
// key. X/Y are owned by the layout engine once the session is bootstrapped;
// the sync merge path must never write them (see ApplyAttributes).
type Node struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	X float64 `json:"x"`
	Y float64 `json:"y"`

	// PinX/PinY hold a pinned position while a drag is active; nil otherwise.
	PinX *float64 `json:"-"`
	PinY *float64 `json:"-"`

	Stability           float64                    `json:"stability"`
	Prosperity          float64                    `json:"prosperity"`
	NumPlanets          int                        `json:"num_planets"`
	AggregatedResources map[string]float64         `json:"aggregated_resources,omitempty"`
	Factions            map[string]FactionStanding `json:"factions,omitempty"`
	DetailedPlanets     []Planet                   `json:"detailed_planets,omitempty"`
	FactionEvaluations  map[string]float64         `json:"faction_evaluations,omitempty"`
	IsCapital           bool                       `json:"is_capital,omitempty"`
	CapitalPlanetName   string                     `json:"capital_planet_name,omitempty"`
}

// Lane connects two systems. Immutable after bootstrap; lanes are not
// re-synced.
type Lane struct {
	ID       string  `json:"id"`
	Source   string  `json:"source"`
	Target   string  `json:"target"`
	Distance float64 `json:"distance"`
	Hazard   float64 `json:"hazard"`
}

// Faction is a playable power; Color drives node fill and the legend.
type Faction struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// SimMeta carries the backend tick counter, used only for display.
type SimMeta struct {
	Tick int `json:"tick"`
}

// Snapshot is one polled simulation state.
type Snapshot struct {
	Meta     SimMeta    `json:"meta"`
	Factions []*Faction `json:"factions"`
	Nodes    []*Node    `json:"nodes"`
	Edges    []*Lane    `json:"edges"`
}

// ControllingFaction returns the id of the faction marked controlled_by on
// this system, or "" when no faction controls it.
func (n *Node) ControllingFaction() string {
	for id, st := range n.Factions {
		if st.ControlledBy {
			return id
		}
	}
	return ""
}

// ApplyAttributes overwrites the mergeable simulation attributes of n with
// the values from the incoming record. Position fields (X, Y, pins) are
// layout-owned and are deliberately not copied, whatever the incoming
// record contains for them.
func (n *Node) ApplyAttributes(in *Node) {
	n.Name = in.Name
	n.Stability = in.Stability
	n.Prosperity = in.Prosperity
	n.NumPlanets = in.NumPlanets
	n.AggregatedResources = in.AggregatedResources
	n.Factions = in.Factions
	n.DetailedPlanets = in.DetailedPlanets
	n.FactionEvaluations = in.FactionEvaluations
	n.IsCapital = in.IsCapital
	n.CapitalPlanetName = in.CapitalPlanetName
}

// Pin fixes the node at the given position for the duration of a drag.
func (n *Node) Pin(x, y float64) {
	n.PinX, n.PinY = &x, &y
}

// Unpin clears the pinned position.
func (n *Node) Unpin() {
	n.PinX, n.PinY = nil, nil
}
