package command

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitlab/starmap/pkg/common/errors"
)

type recordingPoller struct {
	polls atomic.Int32
}

func (p *recordingPoller) PollNow(ctx context.Context) error {
	p.polls.Add(1)
	return nil
}

type captured struct {
	path string
	body map[string]int
}

func controlBackend(t *testing.T, status int, calls *[]captured) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]int
		json.Unmarshal(raw, &body)
		*calls = append(*calls, captured{path: r.URL.Path, body: body})
		w.WriteHeader(status)
	}))
}

func TestStepAwaitsAckThenPolls(t *testing.T) {
	var calls []captured
	srv := controlBackend(t, http.StatusOK, &calls)
	defer srv.Close()

	poller := &recordingPoller{}
	d := New(srv.URL, poller)

	require.NoError(t, d.Dispatch(context.Background(), ActionStep, 5))

	require.Len(t, calls, 1)
	assert.Equal(t, "/v1/control/step", calls[0].path)
	assert.Equal(t, 5, calls[0].body["steps"])
	assert.Equal(t, int32(1), poller.polls.Load())
}

func TestRewindFailureSkipsPoll(t *testing.T) {
	var calls []captured
	srv := controlBackend(t, http.StatusConflict, &calls)
	defer srv.Close()

	poller := &recordingPoller{}
	d := New(srv.URL, poller)

	assert.Error(t, d.Dispatch(context.Background(), ActionRewind, 1))
	assert.Equal(t, int32(0), poller.polls.Load())
}

func TestPlayIsFireAndForget(t *testing.T) {
	var calls []captured
	srv := controlBackend(t, http.StatusInternalServerError, &calls)
	defer srv.Close()

	poller := &recordingPoller{}
	d := New(srv.URL, poller)

	// Backend failure is logged, never surfaced, and never triggers a poll.
	assert.NoError(t, d.Dispatch(context.Background(), ActionPlay, 0))
	assert.NoError(t, d.Dispatch(context.Background(), ActionPause, 0))
	assert.Equal(t, int32(0), poller.polls.Load())
	assert.Len(t, calls, 2)
	assert.Equal(t, "/v1/control/play", calls[0].path)
	assert.Equal(t, "/v1/control/pause", calls[1].path)
}

func TestUnknownAction(t *testing.T) {
	d := New("http://localhost:0", &recordingPoller{})
	err := d.Dispatch(context.Background(), Action("ffwd"), 0)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}
