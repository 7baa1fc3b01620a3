package statesync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitlab/starmap/pkg/starmap"
)

type recordingSink struct {
	ready      atomic.Bool
	bootstraps atomic.Int32
	merges     atomic.Int32
	last       *starmap.Snapshot
}

func (s *recordingSink) Ready() bool { return s.ready.Load() }

func (s *recordingSink) Bootstrap(snap *starmap.Snapshot) error {
	s.bootstraps.Add(1)
	s.ready.Store(true)
	s.last = snap
	return nil
}

func (s *recordingSink) Merge(snap *starmap.Snapshot) error {
	s.merges.Add(1)
	s.last = snap
	return nil
}

func snapshotBackend(t *testing.T, ticks ...int) *httptest.Server {
	i := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/snapshot", r.URL.Path)
		tick := ticks[i]
		if i < len(ticks)-1 {
			i++
		}
		json.NewEncoder(w).Encode(starmap.Snapshot{
			Meta:  starmap.SimMeta{Tick: tick},
			Nodes: []*starmap.Node{{ID: "sys_1", Name: "Altair"}},
		})
	}))
}

func TestFirstPollBootstrapsLaterPollsMerge(t *testing.T) {
	srv := snapshotBackend(t, 1, 2, 3)
	defer srv.Close()

	sink := &recordingSink{}
	c := New(Config{BaseURL: srv.URL}, sink)

	require.NoError(t, c.PollNow(context.Background()))
	assert.Equal(t, int32(1), sink.bootstraps.Load())
	assert.Equal(t, int32(0), sink.merges.Load())

	require.NoError(t, c.PollNow(context.Background()))
	require.NoError(t, c.PollNow(context.Background()))
	assert.Equal(t, int32(1), sink.bootstraps.Load())
	assert.Equal(t, int32(2), sink.merges.Load())
	assert.Equal(t, 3, sink.last.Meta.Tick)
}

func TestPollFailureLeavesSinkUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := &recordingSink{}
	c := New(Config{BaseURL: srv.URL}, sink)

	assert.Error(t, c.PollNow(context.Background()))
	assert.Equal(t, int32(0), sink.bootstraps.Load())
	assert.Equal(t, int32(0), sink.merges.Load())
}

// A slow early response resolving after a faster later one must be
// dropped, not applied over the newer state.
func TestStaleResponseDiscarded(t *testing.T) {
	sink := &recordingSink{}
	sink.ready.Store(true)
	c := New(Config{}, sink)

	early := c.nextSeq.Add(1)
	late := c.nextSeq.Add(1)

	require.NoError(t, c.apply(late, &starmap.Snapshot{Meta: starmap.SimMeta{Tick: 10}}))
	require.NoError(t, c.apply(early, &starmap.Snapshot{Meta: starmap.SimMeta{Tick: 9}}))

	assert.Equal(t, int32(1), sink.merges.Load())
	assert.Equal(t, 10, sink.last.Meta.Tick)
}

func TestMergeNodesCardinalityMismatch(t *testing.T) {
	cached := []*starmap.Node{
		{ID: "sys_1", Name: "Altair", Stability: 0.5},
		{ID: "sys_2", Name: "Vega", Stability: 0.6},
	}
	incoming := []*starmap.Node{
		{ID: "sys_1", Name: "CHANGED", Stability: 0.1},
	}

	err := MergeNodes(cached, incoming)
	assert.ErrorIs(t, err, ErrCardinalityMismatch)

	// Zero mutations on mismatch, even for ids that do match.
	assert.Equal(t, "Altair", cached[0].Name)
	assert.Equal(t, 0.5, cached[0].Stability)
}

func TestMergeNodesMatchesByID(t *testing.T) {
	cached := []*starmap.Node{
		{ID: "sys_1", Name: "Altair", X: 10, Y: 20},
		{ID: "sys_2", Name: "Vega", X: 30, Y: 40},
	}
	// Incoming order differs; match is by id, not index.
	incoming := []*starmap.Node{
		{ID: "sys_2", Name: "Vega Reborn", X: -1, Y: -1, Stability: 0.8},
		{ID: "sys_1", Name: "Altair", Stability: 0.3},
	}

	require.NoError(t, MergeNodes(cached, incoming))
	assert.Equal(t, "Vega Reborn", cached[1].Name)
	assert.Equal(t, 0.8, cached[1].Stability)
	assert.Equal(t, 0.3, cached[0].Stability)

	// Layout-owned coordinates survive whatever the backend sent.
	assert.Equal(t, 30.0, cached[1].X)
	assert.Equal(t, 40.0, cached[1].Y)
}
