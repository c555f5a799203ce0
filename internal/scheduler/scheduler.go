// Package scheduler decides when a session's plumes are recomputed and hands
// the work to the session's dispersion worker.
package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/odor-dispersion-service/internal/domain"
	"github.com/couchcryptid/odor-dispersion-service/internal/observability"
	"github.com/couchcryptid/odor-dispersion-service/internal/throttle"
)

// DefaultInterval is the minimum spacing between two dispatches.
const DefaultInterval = 250 * time.Millisecond

// Dispatcher accepts a computation without waiting for it to finish.
type Dispatcher interface {
	Dispatch(msg domain.DispatchMessage) error
}

// Request is one recompute request: the active farm selection, the
// normalization max and the active weather.
type Request struct {
	Farms    []domain.FarmLite
	MaxCount int
	Weather  domain.Weather
}

// Decision is what the scheduler did with a request.
type Decision int

const (
	// Unchanged means the inputs did not differ enough to recompute.
	Unchanged Decision = iota
	// Dispatched means the computation was handed to the worker.
	Dispatched
	// Deferred means the computation waits for the throttle interval to end.
	Deferred
	// Unavailable means there is no worker; no overlay is shown.
	Unavailable
)

func (d Decision) String() string {
	switch d {
	case Dispatched:
		return "dispatched"
	case Deferred:
		return "deferred"
	case Unavailable:
		return "unavailable"
	default:
		return "unchanged"
	}
}

// Options configures a Scheduler. Zero values get defaults.
type Options struct {
	Interval time.Duration
	Clock    clockwork.Clock
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// Scheduler filters, throttles and dispatches recompute requests for one session.
type Scheduler struct {
	dispatcher Dispatcher
	throttle   *throttle.Throttle[domain.DispatchMessage]
	logger     *slog.Logger
	metrics    *observability.Metrics

	mu       sync.Mutex
	detector ChangeDetector
	stopped  bool
}

// New creates a Scheduler. A nil dispatcher is allowed: every request then
// reports Unavailable.
func New(d Dispatcher, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Scheduler{
		dispatcher: d,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
	s.throttle = throttle.New(opts.Clock, opts.Interval, s.dispatch)
	return s
}

// Request evaluates a recompute request and never blocks on the computation.
func (s *Scheduler) Request(req Request) Decision {
	decision := s.decide(req)
	if s.metrics != nil {
		s.metrics.RecomputeRequests.WithLabelValues(decision.String()).Inc()
	}
	return decision
}

func (s *Scheduler) decide(req Request) Decision {
	if s.dispatcher == nil {
		return Unavailable
	}

	fingerprint := domain.Fingerprint(req.Farms)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return Unavailable
	}
	if !s.detector.Changed(req.Weather, fingerprint, req.MaxCount) {
		return Unchanged
	}
	s.detector.Commit(req.Weather, fingerprint, req.MaxCount)

	msg := domain.NewDispatchMessage(req.Farms, req.MaxCount, req.Weather)
	if s.throttle.Call(msg) {
		return Dispatched
	}
	return Deferred
}

// Invalidate makes the next request recompute even if its inputs match the
// last dispatch.
func (s *Scheduler) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detector.Reset()
}

// Stop drops any deferred dispatch. Later requests report Unavailable.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.throttle.Stop()
}

// dispatch failures are logged and counted; the committed inputs are kept.
func (s *Scheduler) dispatch(msg domain.DispatchMessage) {
	if err := s.dispatcher.Dispatch(msg); err != nil {
		s.logger.Warn("dispatch failed, keeping previous plumes", "error", err, "farms", len(msg.Farms))
		if s.metrics != nil {
			s.metrics.DispatchErrors.Inc()
		}
	}
}
