package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"competitive-intel/internal/dataset"
	"competitive-intel/internal/form"
	"competitive-intel/internal/payload"
)

// Backend is the competitive-intelligence service. *backend.Client
// implements it.
type Backend interface {
	Metrics(ctx context.Context, req payload.MetricsRequest) ([]byte, error)
	Insights(ctx context.Context, req payload.InsightRequest) ([]byte, error)
	Simulate(ctx context.Context, req payload.SimulationRequest) ([]byte, error)
}

// Timeouts bounds each request flow. Zero means no deadline beyond the
// backend client's own.
type Timeouts struct {
	Metrics    time.Duration
	Insight    time.Duration
	Simulation time.Duration
}

// DefaultTimeouts are used when a config does not set them.
var DefaultTimeouts = Timeouts{
	Metrics:    30 * time.Second,
	Insight:    60 * time.Second,
	Simulation: 60 * time.Second,
}

// Controller owns one session's State. Dispatch applies an event under the
// lock and starts the effects the reducer returned; their results come back
// as further events.
type Controller struct {
	backend  Backend
	timeouts Timeouts

	mu      sync.Mutex
	state   State
	changed chan struct{}
	cancels map[Flow]inflight
	lastReq uint64
	closed  bool

	ctx     context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	pending atomic.Int32
}

// NewController creates a controller for a fresh screen with the form
// pre-filled from fields.
func NewController(b Backend, fields form.Fields, t Timeouts) *Controller {
	ctx, stop := context.WithCancel(context.Background())
	return &Controller{
		backend:  b,
		timeouts: t,
		state:    Initial(fields),
		changed:  make(chan struct{}),
		cancels:  make(map[Flow]inflight),
		ctx:      ctx,
		stop:     stop,
	}
}

// Dispatch applies ev and returns the resulting state.
func (c *Controller) Dispatch(ev Event) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return c.state
	}

	next, effects := Reduce(c.state, ev)
	if next.Phase != c.state.Phase {
		log.Printf("[Session] %s -> %s", c.state.Phase, next.Phase)
	}
	c.state = next
	for _, eff := range effects {
		c.run(eff)
	}
	close(c.changed)
	c.changed = make(chan struct{})
	return c.state
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Pending reports how many backend requests are in flight.
func (c *Controller) Pending() int {
	return int(c.pending.Load())
}

// Screen renders the current state.
func (c *Controller) Screen() Screen {
	return Render(c.State(), c.Pending())
}

// Subscribe returns a channel closed at the next state change.
func (c *Controller) Subscribe() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changed
}

// WaitFor blocks until pred holds for the current state or ctx is done.
func (c *Controller) WaitFor(ctx context.Context, pred func(State) bool) (State, error) {
	for {
		c.mu.Lock()
		s, ch := c.state, c.changed
		c.mu.Unlock()
		if pred(s) {
			return s, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return s, ctx.Err()
		}
	}
}

// Close cancels all in-flight work and waits for it to finish. Further
// events are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stop()
	c.mu.Unlock()
	c.wg.Wait()
}

// run starts one effect. Called with c.mu held.
func (c *Controller) run(eff Effect) {
	switch e := eff.(type) {
	case Cancel:
		for _, f := range e.Flows {
			c.cancel(f)
		}

	case LoadPreview:
		c.wg.Add(1)
		dataset.PreviewAsync(c.ctx, e.Source, func(lines []string, err error) {
			defer c.wg.Done()
			c.Dispatch(DatasetPreviewed{Seq: e.Seq, Lines: lines, Err: err})
		})

	case FetchMetrics:
		ctx, id := c.start(FlowMetrics, c.timeouts.Metrics)
		c.request(FlowMetrics, id, func() Event {
			raw, err := c.fetchMetrics(ctx, e)
			if err != nil {
				return MetricsFailed{Seq: e.Seq, Err: err}
			}
			return MetricsReceived{Seq: e.Seq, Raw: raw}
		})

	case FetchInsight:
		ctx, id := c.start(FlowInsight, c.timeouts.Insight)
		c.request(FlowInsight, id, func() Event {
			raw, err := c.backend.Insights(ctx, e.Request)
			if err != nil {
				return InsightFailed{Seq: e.Seq, Err: err}
			}
			return InsightReceived{Seq: e.Seq, Raw: raw}
		})

	case RunSimulation:
		ctx, id := c.start(FlowSimulation, c.timeouts.Simulation)
		c.request(FlowSimulation, id, func() Event {
			raw, err := c.backend.Simulate(ctx, e.Request)
			if err != nil {
				return SimulationFailed{Seq: e.Seq, Err: err}
			}
			return SimulationReceived{Seq: e.Seq, Raw: raw}
		})
	}
}

func (c *Controller) fetchMetrics(ctx context.Context, e FetchMetrics) ([]byte, error) {
	var ds *dataset.Payload
	if e.Source != nil {
		p, err := dataset.Load(e.Source)
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset: %w", err)
		}
		ds = &p
	}
	return c.backend.Metrics(ctx, payload.Metrics(e.Company, ds))
}

// inflight is the current request of one flow.
type inflight struct {
	id     uint64
	cancel context.CancelFunc
}

// start cancels the previous request of flow f and returns the context and
// id for the next one. Called with c.mu held.
func (c *Controller) start(f Flow, timeout time.Duration) (context.Context, uint64) {
	c.cancel(f)
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(c.ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(c.ctx)
	}
	c.lastReq++
	c.cancels[f] = inflight{id: c.lastReq, cancel: cancel}
	return ctx, c.lastReq
}

func (c *Controller) cancel(f Flow) {
	if req, ok := c.cancels[f]; ok {
		req.cancel()
		delete(c.cancels, f)
	}
}

// finish releases the context of request id unless a newer request of the
// same flow has replaced it.
func (c *Controller) finish(f Flow, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if req, ok := c.cancels[f]; ok && req.id == id {
		req.cancel()
		delete(c.cancels, f)
	}
}

// inflightCount reports how many flows still hold a request context.
func (c *Controller) inflightCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cancels)
}

// request runs do on its own goroutine and dispatches the event it returns.
func (c *Controller) request(f Flow, id uint64, do func() Event) {
	c.wg.Add(1)
	c.pending.Add(1)
	go func() {
		defer c.wg.Done()
		ev := do()
		c.finish(f, id)
		c.pending.Add(-1)
		c.Dispatch(ev)
	}()
}
