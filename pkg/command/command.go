// Package command forwards user control actions to the backend. Actions
// are an explicit table, independent of whatever input mechanism triggers
// them. Actions that advance simulation time (step, rewind) await the
// backend ack and then immediately re-poll so the view reflects the new
// tick without waiting for the next scheduled interval.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/orbitlab/starmap/pkg/common/errors"
)

// Action is a discrete control action.
type Action string

const (
	ActionPlay   Action = "play"
	ActionPause  Action = "pause"
	ActionStep   Action = "step"
	ActionRewind Action = "rewind"
)

// Poller triggers one immediate snapshot poll.
type Poller interface {
	PollNow(ctx context.Context) error
}

// Dispatcher maps actions to backend calls.
type Dispatcher struct {
	baseURL string
	http    *http.Client
	poller  Poller

	table map[Action]func(ctx context.Context, steps int) error
}

// New creates a Dispatcher against the backend root URL.
func New(baseURL string, poller Poller) *Dispatcher {
	d := &Dispatcher{
		baseURL: baseURL,
		http:    &http.Client{},
		poller:  poller,
	}
	d.table = map[Action]func(ctx context.Context, steps int) error{
		ActionPlay:   d.fireAndForget(ActionPlay),
		ActionPause:  d.fireAndForget(ActionPause),
		ActionStep:   d.advancing(ActionStep),
		ActionRewind: d.advancing(ActionRewind),
	}
	return d
}

// Dispatch runs one action. steps is only meaningful for step/rewind; the
// backend is the authority on its legality, no local validation happens.
func (d *Dispatcher) Dispatch(ctx context.Context, action Action, steps int) error {
	handler, ok := d.table[action]
	if !ok {
		return fmt.Errorf("%w: unknown action %q", errors.ErrInvalidInput, action)
	}
	return handler(ctx, steps)
}

// fireAndForget posts the action and only logs the outcome.
func (d *Dispatcher) fireAndForget(action Action) func(ctx context.Context, steps int) error {
	return func(ctx context.Context, _ int) error {
		if err := d.post(ctx, action, nil); err != nil {
			log.Printf("[Command] %s failed: %v", action, err)
		}
		return nil
	}
}

// advancing awaits the ack, then triggers one immediate poll.
func (d *Dispatcher) advancing(action Action) func(ctx context.Context, steps int) error {
	return func(ctx context.Context, steps int) error {
		body := map[string]int{"steps": steps}
		if err := d.post(ctx, action, body); err != nil {
			return err
		}
		if err := d.poller.PollNow(ctx); err != nil {
			log.Printf("[Command] post-%s poll failed: %v", action, err)
		}
		return nil
	}
}

func (d *Dispatcher) post(ctx context.Context, action Action, body any) error {
	payload := []byte("{}")
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	url := fmt.Sprintf("%s/v1/control/%s", d.baseURL, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %s", action, resp.Status)
	}
	return nil
}
