package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitlab/starmap/pkg/common/errors"
	"github.com/orbitlab/starmap/pkg/report"
	"github.com/orbitlab/starmap/pkg/starmap"
)

func testSnapshot() *starmap.Snapshot {
	return &starmap.Snapshot{
		Meta: starmap.SimMeta{Tick: 5},
		Factions: []*starmap.Faction{
			{ID: "fac_a", Name: "Terran Accord", Color: "#4f9dff"},
		},
		Nodes: []*starmap.Node{
			{ID: "sys_1", Name: "Altair", X: 100, Y: 100,
				Factions: map[string]starmap.FactionStanding{
					"fac_a": {Influence: 1, ControlledBy: true},
				}},
			{ID: "sys_2", Name: "Vega", X: 300, Y: 100},
			{ID: "sys_3", Name: "Sirius", X: 200, Y: 250},
			{ID: "sys_4", Name: "Rigel", X: 400, Y: 300},
		},
		Edges: []*starmap.Lane{
			{ID: "l1", Source: "sys_1", Target: "sys_2"},
			{ID: "l2", Source: "sys_2", Target: "sys_3"},
			{ID: "l3", Source: "sys_3", Target: "sys_4"},
		},
	}
}

// fastConfig settles after a single physics step.
func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.Layout.MinEnergy = 0.99
	cfg.Cluster.Seed = 7
	return cfg
}

func settle(t *testing.T, s *Session) Event {
	for i := 0; i < 100; i++ {
		if ev, fired := s.step(context.Background()); fired {
			return ev
		}
	}
	t.Fatal("session never settled")
	return Event{}
}

func TestBootstrapOnce(t *testing.T) {
	s := New(fastConfig(), nil)
	assert.False(t, s.Ready())

	require.NoError(t, s.Bootstrap(testSnapshot()))
	assert.True(t, s.Ready())

	err := s.Bootstrap(testSnapshot())
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestBootstrapRejectsDanglingLane(t *testing.T) {
	snap := testSnapshot()
	snap.Edges = append(snap.Edges, &starmap.Lane{ID: "bad", Source: "sys_1", Target: "sys_missing"})

	s := New(fastConfig(), nil)
	err := s.Bootstrap(snap)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
	assert.False(t, s.Ready())
}

func TestSettleFiresExactlyOnce(t *testing.T) {
	s := New(fastConfig(), nil)
	require.NoError(t, s.Bootstrap(testSnapshot()))

	ev := settle(t, s)
	assert.Equal(t, "settled", ev.Type)
	assert.NotEmpty(t, ev.PassID)

	// Further steps are no-ops until something re-arms settling.
	for i := 0; i < 10; i++ {
		_, fired := s.step(context.Background())
		assert.False(t, fired)
	}

	st := s.State()
	assert.Equal(t, PhaseSettled, st.Phase)
	assert.Equal(t, ev.PassID, st.PassID)
	assert.Equal(t, 4, st.NodeCount)
}

func TestSettleReportsPositionsOnce(t *testing.T) {
	var reports atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/positions" {
			reports.Add(1)
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer backend.Close()

	s := New(fastConfig(), report.New(backend.URL))
	require.NoError(t, s.Bootstrap(testSnapshot()))

	settle(t, s)
	for i := 0; i < 20; i++ {
		s.step(context.Background())
	}

	assert.Eventually(t, func() bool { return reports.Load() == 1 },
		time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), reports.Load())
}

func TestFrameUnavailableBeforeSettle(t *testing.T) {
	s := New(fastConfig(), nil)
	require.NoError(t, s.Bootstrap(testSnapshot()))

	_, err := s.Frame()
	assert.ErrorIs(t, err, errors.ErrUnavailable)

	settle(t, s)
	frame, err := s.Frame()
	require.NoError(t, err)
	assert.Contains(t, string(frame.SVG), "Tick: 5")
	assert.Contains(t, string(frame.SVG), "Altair")
}

func TestMergeKeepsPositions(t *testing.T) {
	s := New(fastConfig(), nil)
	require.NoError(t, s.Bootstrap(testSnapshot()))
	settle(t, s)

	x, y := s.nodes[0].X, s.nodes[0].Y

	update := testSnapshot()
	update.Meta.Tick = 6
	update.Nodes[0].Stability = 0.99
	update.Nodes[0].X = 9999
	update.Nodes[0].Y = 9999

	require.NoError(t, s.Merge(update))

	assert.Equal(t, x, s.nodes[0].X)
	assert.Equal(t, y, s.nodes[0].Y)
	assert.Equal(t, 0.99, s.nodes[0].Stability)

	frame, err := s.Frame()
	require.NoError(t, err)
	assert.Contains(t, string(frame.SVG), "Tick: 6")
}

func TestMergeCardinalityMismatchIsNoOp(t *testing.T) {
	s := New(fastConfig(), nil)
	require.NoError(t, s.Bootstrap(testSnapshot()))
	settle(t, s)

	grown := testSnapshot()
	grown.Meta.Tick = 7
	grown.Nodes = append(grown.Nodes, &starmap.Node{ID: "sys_5", Name: "Deneb"})
	grown.Nodes[0].Name = "CHANGED"

	require.NoError(t, s.Merge(grown))

	// Nothing applied, not even the tick.
	assert.Equal(t, "Altair", s.nodes[0].Name)
	assert.Equal(t, 5, s.State().Tick)
	assert.Equal(t, 4, s.State().NodeCount)

	// A matching snapshot afterwards merges normally.
	ok := testSnapshot()
	ok.Meta.Tick = 8
	require.NoError(t, s.Merge(ok))
	assert.Equal(t, 8, s.State().Tick)
}

func TestMergeBeforeSettleDoesNotRender(t *testing.T) {
	s := New(fastConfig(), nil)
	require.NoError(t, s.Bootstrap(testSnapshot()))

	update := testSnapshot()
	update.Meta.Tick = 6
	require.NoError(t, s.Merge(update))

	_, err := s.Frame()
	assert.ErrorIs(t, err, errors.ErrUnavailable)
	assert.Equal(t, 6, s.State().Tick)
}

func TestResizeStartsNewPass(t *testing.T) {
	s := New(fastConfig(), nil)

	assert.ErrorIs(t, s.Resize(800, 600), errors.ErrUnavailable)

	require.NoError(t, s.Bootstrap(testSnapshot()))
	first := settle(t, s)

	require.NoError(t, s.Resize(800, 600))
	st := s.State()
	assert.Equal(t, PhaseSettling, st.Phase)
	assert.NotEqual(t, first.PassID, st.PassID)

	second := settle(t, s)
	assert.Equal(t, "settled", second.Type)
	assert.NotEqual(t, first.PassID, second.PassID)
}

func TestRestartStartsNewPass(t *testing.T) {
	s := New(fastConfig(), nil)
	require.NoError(t, s.Bootstrap(testSnapshot()))
	first := settle(t, s)

	require.NoError(t, s.Restart())
	assert.Equal(t, PhaseSettling, s.State().Phase)
	second := settle(t, s)
	assert.NotEqual(t, first.PassID, second.PassID)
}

func TestEventsReachListener(t *testing.T) {
	s := New(fastConfig(), nil)
	var events []Event
	s.OnEvent = func(ev Event) { events = append(events, ev) }

	require.NoError(t, s.Bootstrap(testSnapshot()))
	if ev, fired := s.step(context.Background()); fired {
		s.emit(ev)
	}

	require.Len(t, events, 2)
	assert.Equal(t, "bootstrap", events[0].Type)
	assert.Equal(t, "settled", events[1].Type)
	assert.Equal(t, events[0].PassID, events[1].PassID)
}

func TestNodeByIDAndSearchNames(t *testing.T) {
	s := New(fastConfig(), nil)
	require.NoError(t, s.Bootstrap(testSnapshot()))

	n, err := s.NodeByID("sys_2")
	require.NoError(t, err)
	assert.Equal(t, "Vega", n.Name)

	_, err = s.NodeByID("sys_404")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	names := s.SystemNames()
	assert.Equal(t, "sys_3", names["Sirius"])
}
