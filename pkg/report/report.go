// Package report persists final node coordinates back to the backend once
// the layout settles. The round trip is fire-and-forget: the response is
// logged, never acted upon, and the read-back does not feed rendering.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/orbitlab/starmap/pkg/starmap"
)

// Position is one persisted coordinate pair.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Reporter posts settled positions.
type Reporter struct {
	baseURL string
	http    *http.Client
}

// New creates a Reporter against the backend root URL.
func New(baseURL string) *Reporter {
	return &Reporter{baseURL: baseURL, http: &http.Client{}}
}

// Report sends the current position of every node. Failures are logged and
// swallowed; a miss only costs the persisted starting point of a later run.
func (r *Reporter) Report(ctx context.Context, nodes []*starmap.Node) {
	positions := make(map[string]Position, len(nodes))
	for _, n := range nodes {
		positions[n.ID] = Position{X: n.X, Y: n.Y}
	}

	payload, err := json.Marshal(map[string]map[string]Position{"node_positions": positions})
	if err != nil {
		log.Printf("[Report] encode failed: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/positions", bytes.NewReader(payload))
	if err != nil {
		log.Printf("[Report] request build failed: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		log.Printf("[Report] position persistence failed: %v", err)
		return
	}
	defer resp.Body.Close()
	log.Printf("[Report] persisted %d node positions (%s)", len(positions), resp.Status)
}
