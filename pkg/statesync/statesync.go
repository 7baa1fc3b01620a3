// Package statesync keeps the rendered session aligned with the backend by
// polling the snapshot endpoint on a fixed interval. The first successful
// poll bootstraps the session; every later one merges simulation
// attributes in place without touching layout-owned positions. Responses
// carry issue-order sequence numbers so a slow early poll resolving after
// a faster later one is discarded instead of applying stale data.
package statesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/orbitlab/starmap/pkg/starmap"
)

// ErrCardinalityMismatch marks a snapshot whose node count differs from
// the bootstrapped set. Incremental merge is explicitly unsupported for
// structural changes; a full reload is required to pick them up.
var ErrCardinalityMismatch = errors.New("snapshot node cardinality differs from bootstrapped set")

// Sink is the session surface the client drives. Both methods run the
// whole apply under the session's own lock.
type Sink interface {
	// Ready reports whether a prior render exists (bootstrap happened).
	Ready() bool
	// Bootstrap installs the first snapshot and initializes the layout.
	Bootstrap(snap *starmap.Snapshot) error
	// Merge applies a later snapshot's attributes and requests a
	// lightweight visual refresh. It must not disturb the layout.
	Merge(snap *starmap.Snapshot) error
}

// Config holds the poll settings.
type Config struct {
	// BaseURL is the backend root, e.g. "http://localhost:9090".
	BaseURL string
	// Interval between scheduled polls.
	Interval time.Duration
}

// DefaultConfig polls every two seconds.
func DefaultConfig() Config {
	return Config{Interval: 2 * time.Second}
}

// Client is the polling state-sync client.
type Client struct {
	cfg  Config
	http *http.Client
	sink Sink

	// applyMu serializes response application; nextSeq/lastApplied
	// implement the stale-response discard.
	applyMu     sync.Mutex
	nextSeq     atomic.Uint64
	lastApplied uint64
}

// New creates a Client. The http.Client carries no timeout on purpose: a
// hung request never resolves and the next scheduled poll proceeds
// independently.
func New(cfg Config, sink Sink) *Client {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{},
		sink: sink,
	}
}

// Run polls on the configured interval until the context is canceled.
// Poll failures are logged and left for the next scheduled attempt; there
// is no backoff and no circuit breaker.
func (c *Client) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	// Immediate first poll so the view does not sit empty for a full
	// interval after startup.
	if err := c.PollNow(ctx); err != nil {
		log.Printf("[StateSync] poll failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.PollNow(ctx); err != nil {
				log.Printf("[StateSync] poll failed: %v", err)
			}
		}
	}
}

// PollNow issues one snapshot request and applies the response. It is safe
// to call concurrently with the scheduled loop (the command dispatcher
// does, after step/rewind acks).
func (c *Client) PollNow(ctx context.Context) error {
	seq := c.nextSeq.Add(1)

	snap, err := c.fetch(ctx)
	if err != nil {
		return err
	}

	return c.apply(seq, snap)
}

func (c *Client) fetch(ctx context.Context) (*starmap.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/snapshot", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot request returned %s", resp.Status)
	}

	var snap starmap.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("malformed snapshot: %w", err)
	}
	return &snap, nil
}

func (c *Client) apply(seq uint64, snap *starmap.Snapshot) error {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	if seq <= c.lastApplied {
		log.Printf("[StateSync] discarding stale poll response (seq %d <= %d)", seq, c.lastApplied)
		return nil
	}
	c.lastApplied = seq

	if !c.sink.Ready() {
		return c.sink.Bootstrap(snap)
	}
	return c.sink.Merge(snap)
}

// MergeNodes overwrites the mergeable attributes of every cached node that
// has a same-id record in the incoming list. Position fields are never
// written. A cardinality mismatch performs zero mutations and returns
// ErrCardinalityMismatch.
func MergeNodes(cached, incoming []*starmap.Node) error {
	if len(cached) != len(incoming) {
		return fmt.Errorf("%w: cached=%d incoming=%d", ErrCardinalityMismatch, len(cached), len(incoming))
	}

	byID := make(map[string]*starmap.Node, len(incoming))
	for _, n := range incoming {
		byID[n.ID] = n
	}

	for _, n := range cached {
		if in, ok := byID[n.ID]; ok {
			n.ApplyAttributes(in)
		}
	}
	return nil
}
