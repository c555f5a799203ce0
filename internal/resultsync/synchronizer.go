// Package resultsync accepts computed result lists, drops ones equal to the
// list already shown, and publishes the rest at most once per frame.
package resultsync

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/odor-dispersion-service/internal/observability"
)

// DefaultFrameInterval approximates one 60 Hz rendering frame.
const DefaultFrameInterval = 16 * time.Millisecond

// Publisher receives every accepted result list.
type Publisher[T any] interface {
	Publish(items []T)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc[T any] func(items []T)

func (f PublisherFunc[T]) Publish(items []T) { f(items) }

// Options configures a Synchronizer. Kind labels metrics and logs.
type Options struct {
	FrameInterval time.Duration
	Clock         clockwork.Clock
	Logger        *slog.Logger
	Metrics       *observability.Metrics
	Kind          string
}

// Synchronizer holds the currently displayed result list.
type Synchronizer[T any] struct {
	equal     func(a, b []T) bool
	publisher Publisher[T]
	frame     time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	kind      string

	publishMu sync.Mutex

	mu         sync.Mutex
	current    []T
	hasCurrent bool
	dirty      bool
	timer      clockwork.Timer
	stopped    bool
}

// New creates a Synchronizer. equal decides whether two lists are the same
// result; a nil publisher only tracks the current list.
func New[T any](equal func(a, b []T) bool, publisher Publisher[T], opts Options) *Synchronizer[T] {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Synchronizer[T]{
		equal:     equal,
		publisher: publisher,
		frame:     opts.FrameInterval,
		clock:     opts.Clock,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		kind:      opts.Kind,
	}
}

// Receive decodes an encoded result list and offers it. A message that does
// not decode is logged and dropped; the current list stays as it is.
func (s *Synchronizer[T]) Receive(data []byte) {
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warn("discarding malformed result message", "kind", s.kind, "error", err, "bytes", len(data))
		s.observe("malformed")
		return
	}
	s.Offer(items)
}

// Offer replaces the current list with items unless they are equal, and
// schedules a publish for the next frame. It reports whether items replaced
// the current list.
func (s *Synchronizer[T]) Offer(items []T) bool {
	if items == nil {
		items = []T{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if s.hasCurrent && s.equal(s.current, items) {
		s.observe("unchanged")
		return false
	}

	s.current = items
	s.hasCurrent = true
	s.dirty = true
	if s.timer == nil {
		s.timer = s.clock.AfterFunc(s.frame, s.onFrame)
	}
	return true
}

// Current returns the list last accepted, and false before the first one.
func (s *Synchronizer[T]) Current() ([]T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.hasCurrent
}

// Flush publishes a pending list now instead of at the next frame.
func (s *Synchronizer[T]) Flush() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.publishPending()
}

// Stop cancels any pending publish. Nothing is published after Stop returns.
func (s *Synchronizer[T]) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.dirty = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	// Wait out a publish that already started.
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
}

func (s *Synchronizer[T]) onFrame() {
	s.mu.Lock()
	s.timer = nil
	s.mu.Unlock()
	s.publishPending()
}

func (s *Synchronizer[T]) publishPending() {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	if s.stopped || !s.dirty {
		s.mu.Unlock()
		return
	}
	items := s.current
	s.dirty = false
	s.mu.Unlock()

	if s.publisher != nil {
		s.publisher.Publish(items)
	}
	s.observe("published")
}

func (s *Synchronizer[T]) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ResultMessages.WithLabelValues(s.kind, outcome).Inc()
	}
}
