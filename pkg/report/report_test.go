package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitlab/starmap/pkg/starmap"
)

func TestReportPostsAllPositions(t *testing.T) {
	var got map[string]map[string]Position
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/positions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	nodes := []*starmap.Node{
		{ID: "sys_1", X: 12.5, Y: 80},
		{ID: "sys_2", X: 600, Y: 420.25},
	}
	New(srv.URL).Report(context.Background(), nodes)

	positions := got["node_positions"]
	require.Len(t, positions, 2)
	assert.Equal(t, Position{X: 12.5, Y: 80}, positions["sys_1"])
	assert.Equal(t, Position{X: 600, Y: 420.25}, positions["sys_2"])

	// Persisting is outbound only; the round trip moves nothing locally.
	assert.Equal(t, 12.5, nodes[0].X)
	assert.Equal(t, 420.25, nodes[1].Y)
}

func TestReportSwallowsFailure(t *testing.T) {
	// Nothing listens here; Report must simply log and return.
	New("http://127.0.0.1:1").Report(context.Background(), []*starmap.Node{{ID: "sys_1"}})
}
