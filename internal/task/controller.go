package task

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/harvest/internal/tabular"
)

// Validation errors returned by Submit before any network call.
var (
	ErrEmptyQuery = errors.New("query must not be empty")
	ErrNoColumns  = errors.New("at least one column is required")
)

// Default timer cadences. Polling is deliberately unconditional: a new poll
// is issued every tick whether or not the previous one resolved, and
// correctness relies on handle tagging plus stale-response discard rather
// than request serialization.
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultAnimInterval = 400 * time.Millisecond
	DefaultErrorDisplay = 4 * time.Second
)

// Event is a presentation-facing notification emitted by the controller's
// event loop, in loop order.
type Event interface{ event() }

// InventoryEvent carries the initial item inventory in row order.
type InventoryEvent struct{ Items []Item }

// ProgressEvent carries a snapshot plus the items whose status changed
// since the previous one. Changes may be empty; the snapshot's message and
// counts still update the status line.
type ProgressEvent struct {
	Snapshot Snapshot
	Changes  []Change
}

// AnimTickEvent advances the loading indicator one frame. It is cosmetic
// and never coincides with network activity.
type AnimTickEvent struct{}

// CompletedEvent delivers the final artifact, both raw (byte-identical to
// the server response, for download) and decoded.
type CompletedEvent struct {
	Message string
	Data    []byte
	Table   tabular.Table
}

// FailedEvent surfaces a server-provided failure message.
type FailedEvent struct{ Message string }

// ClearedEvent signals that the session returned to idle: after the error
// display delay, or silently after a stale-handle (not_found) stop.
type ClearedEvent struct{}

func (InventoryEvent) event() {}
func (ProgressEvent) event()  {}
func (AnimTickEvent) event()  {}
func (CompletedEvent) event() {}
func (FailedEvent) event()    {}
func (ClearedEvent) event()   {}

// Recorder receives job lifecycle notifications, e.g. for the history
// store. Implementations run on the controller's loop goroutine and should
// not block.
type Recorder interface {
	JobStarted(taskID, query string, columns int)
	JobFinished(taskID, status, message string, rows int)
}

// Config tunes the controller's timers.
type Config struct {
	PollInterval time.Duration
	AnimInterval time.Duration
	ErrorDisplay time.Duration
	Logger       *slog.Logger
	Recorder     Recorder
}

type state int

const (
	stateIdle state = iota
	stateSubmitting
	statePolling
	stateFetching
	stateError
)

type submitResult struct {
	gen  int
	req  SubmitRequest
	resp *SubmitResponse
	err  error
}

type pollResult struct {
	gen    int
	taskID string
	snap   *Snapshot
	err    error
}

type fetchResult struct {
	gen  int
	data []byte
	err  error
}

// Controller orchestrates submission, polling cadence, cancellation and
// terminal-state handling for one session. All state, the task handle and
// both timers are owned by a single event loop goroutine; network responses
// re-enter the loop as tagged messages and are discarded when their tag no
// longer matches the live handle.
type Controller struct {
	client *Client
	cfg    Config
	logger *slog.Logger
	store  *Store

	events  chan Event
	submitc chan SubmitRequest
	subresc chan submitResult
	pollc   chan pollResult
	fetchc  chan fetchResult

	// Loop-owned state. Touched only by Run's goroutine.
	state      state
	gen        int
	taskID     string
	query      string
	pollTicker *time.Ticker
	animTicker *time.Ticker
	errTimer   *time.Timer
}

// New creates a controller. Zero config fields fall back to the defaults.
func New(client *Client, cfg Config) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.AnimInterval <= 0 {
		cfg.AnimInterval = DefaultAnimInterval
	}
	if cfg.ErrorDisplay <= 0 {
		cfg.ErrorDisplay = DefaultErrorDisplay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		client:  client,
		cfg:     cfg,
		logger:  logger,
		store:   NewStore(),
		events:  make(chan Event, 128),
		submitc: make(chan SubmitRequest),
		subresc: make(chan submitResult, 4),
		pollc:   make(chan pollResult, 16),
		fetchc:  make(chan fetchResult, 4),
	}
}

// Events returns the presentation event stream. It is closed when Run
// returns.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Submit validates the request and hands it to the event loop. Validation
// failures return immediately with no network call. Submitting while a
// previous task is polling supersedes it: its timers stop and its item map
// is discarded before the new submission is issued, so no two task cycles
// ever have live timers simultaneously.
func (c *Controller) Submit(ctx context.Context, req SubmitRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return ErrEmptyQuery
	}
	if len(req.Columns) == 0 {
		return ErrNoColumns
	}
	select {
	case c.submitc <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the event loop until ctx is cancelled, then tears down all
// timers and closes the event stream.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.events)
	defer c.stopTimers()

	for {
		var pollC, animC, errC <-chan time.Time
		if c.pollTicker != nil {
			pollC = c.pollTicker.C
		}
		if c.animTicker != nil {
			animC = c.animTicker.C
		}
		if c.errTimer != nil {
			errC = c.errTimer.C
		}

		select {
		case <-ctx.Done():
			return

		case req := <-c.submitc:
			c.beginCycle(ctx, req)

		case res := <-c.subresc:
			if res.gen != c.gen || c.state != stateSubmitting {
				continue
			}
			c.handleSubmitResult(ctx, res)

		case <-pollC:
			c.issuePoll(ctx)

		case res := <-c.pollc:
			// Stale-tag defense: with unconditional cadence, responses can
			// resolve out of order or after a superseding submission.
			if res.gen != c.gen || res.taskID != c.taskID || c.state != statePolling {
				continue
			}
			c.handleSnapshot(ctx, res)

		case res := <-c.fetchc:
			if res.gen != c.gen || c.state != stateFetching {
				continue
			}
			c.handleFetchResult(res)

		case <-animC:
			if c.store.LoadingCount() == 0 {
				c.stopAnim()
				continue
			}
			c.emit(AnimTickEvent{})

		case <-errC:
			c.errTimer = nil
			c.state = stateIdle
			c.emit(ClearedEvent{})
		}
	}
}

// beginCycle supersedes any active task and starts a new submission.
func (c *Controller) beginCycle(ctx context.Context, req SubmitRequest) {
	c.stopTimers()
	c.store.Reset()
	c.gen++
	c.taskID = ""
	c.query = req.Query
	c.state = stateSubmitting

	gen := c.gen
	go func() {
		resp, err := c.client.Submit(ctx, req)
		select {
		case c.subresc <- submitResult{gen: gen, req: req, resp: resp, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (c *Controller) handleSubmitResult(ctx context.Context, res submitResult) {
	if res.err != nil {
		// Fatal to the attempt; submission control is re-enabled.
		c.state = stateIdle
		c.emit(FailedEvent{Message: res.err.Error()})
		return
	}

	resp := res.resp
	if resp.TriviallyComplete() {
		c.state = stateIdle
		c.emit(CompletedEvent{Message: resp.Message})
		return
	}

	c.taskID = resp.TaskID
	if c.cfg.Recorder != nil {
		c.cfg.Recorder.JobStarted(c.taskID, res.req.Query, len(res.req.Columns))
	}

	if resp.Status == "completed" && len(resp.Items) == 0 {
		// Already done server-side; go straight for the artifact.
		c.state = stateFetching
		c.issueFetch(ctx)
		return
	}

	ordered := c.store.Materialize(resp.Items)
	c.emit(InventoryEvent{Items: ordered})
	c.enterPolling(ctx)
}

// enterPolling issues an immediate status request and starts both tickers.
func (c *Controller) enterPolling(ctx context.Context) {
	c.state = statePolling
	c.issuePoll(ctx)
	c.pollTicker = time.NewTicker(c.cfg.PollInterval)
	if c.store.LoadingCount() > 0 {
		c.animTicker = time.NewTicker(c.cfg.AnimInterval)
	}
}

func (c *Controller) issuePoll(ctx context.Context) {
	gen, taskID := c.gen, c.taskID
	go func() {
		snap, err := c.client.Poll(ctx, taskID)
		select {
		case c.pollc <- pollResult{gen: gen, taskID: taskID, snap: snap, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (c *Controller) handleSnapshot(ctx context.Context, res pollResult) {
	if res.err != nil {
		// Transport errors on the poll path are non-fatal; the cadence
		// continues unchanged.
		c.logger.Debug("status poll failed", "task_id", res.taskID, "error", res.err)
		return
	}

	snap := res.snap
	switch snap.Status {
	case StatusNotFound:
		// Benign stale handle, not a failure: stop silently.
		c.stopTimers()
		c.state = stateIdle
		c.finish("not_found", "", 0)
		c.emit(ClearedEvent{})

	case StatusError:
		c.stopTimers()
		c.state = stateError
		c.finish("error", snap.Message, 0)
		c.emit(FailedEvent{Message: snap.Message})
		c.errTimer = time.NewTimer(c.cfg.ErrorDisplay)

	case StatusCompleted:
		c.stopTimers()
		c.state = stateFetching
		c.issueFetch(ctx)

	case StatusDiscovering, StatusProcessing:
		if !c.store.Ready() && len(snap.Items) > 0 {
			ordered := c.store.Materialize(snap.Items)
			c.emit(InventoryEvent{Items: ordered})
			c.emit(ProgressEvent{Snapshot: *snap})
		} else {
			changes := c.store.Apply(snap.Items)
			c.emit(ProgressEvent{Snapshot: *snap, Changes: changes})
		}
		if c.animTicker == nil && c.store.LoadingCount() > 0 {
			c.animTicker = time.NewTicker(c.cfg.AnimInterval)
		}
	}
}

func (c *Controller) issueFetch(ctx context.Context) {
	gen, taskID := c.gen, c.taskID
	go func() {
		data, err := c.client.FetchResult(ctx, taskID)
		select {
		case c.fetchc <- fetchResult{gen: gen, data: data, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (c *Controller) handleFetchResult(res fetchResult) {
	if res.err != nil {
		c.state = stateError
		c.finish("error", res.err.Error(), 0)
		c.emit(FailedEvent{Message: res.err.Error()})
		c.errTimer = time.NewTimer(c.cfg.ErrorDisplay)
		return
	}

	tbl := tabular.Decode(string(res.data))
	c.state = stateIdle
	c.finish("completed", "", len(tbl.Rows))
	c.emit(CompletedEvent{Data: res.data, Table: tbl})
}

func (c *Controller) finish(status, message string, rows int) {
	if c.cfg.Recorder != nil && c.taskID != "" {
		c.cfg.Recorder.JobFinished(c.taskID, status, message, rows)
	}
}

func (c *Controller) emit(e Event) {
	c.events <- e
}

func (c *Controller) stopAnim() {
	if c.animTicker != nil {
		c.animTicker.Stop()
		c.animTicker = nil
	}
}

// stopTimers tears down the poll ticker, the animation ticker and any
// pending error-display timer together. No timer may outlive its owning
// task.
func (c *Controller) stopTimers() {
	if c.pollTicker != nil {
		c.pollTicker.Stop()
		c.pollTicker = nil
	}
	c.stopAnim()
	if c.errTimer != nil {
		c.errTimer.Stop()
		c.errTimer = nil
	}
}
