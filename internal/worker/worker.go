// Package worker runs a session's dispersion computations on a dedicated
// goroutine. Messages cross the boundary JSON-encoded, so the worker never
// shares memory with its caller.
package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/odor-dispersion-service/internal/domain"
	"github.com/couchcryptid/odor-dispersion-service/internal/observability"
)

// DefaultInboxSize bounds the number of queued computations.
const DefaultInboxSize = 8

var (
	// ErrWorkerUnavailable means the worker could not be created.
	ErrWorkerUnavailable = errors.New("dispersion worker unavailable")
	// ErrWorkerStopped means the worker no longer accepts messages.
	ErrWorkerStopped = errors.New("dispersion worker stopped")
	// ErrInboxFull means the worker is too far behind to accept another message.
	ErrInboxFull = errors.New("dispersion worker inbox full")
)

// ResultSink receives the encoded plume list of every computation, in
// dispatch order.
type ResultSink interface {
	Receive(data []byte)
}

// Options configures a Worker.
type Options struct {
	InboxSize int
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

// Factory creates a worker delivering to sink.
type Factory func(sink ResultSink) (*Worker, error)

// NewFactory returns a Factory that builds started workers with opts.
func NewFactory(opts Options) Factory {
	return func(sink ResultSink) (*Worker, error) {
		w, err := New(sink, opts)
		if err != nil {
			return nil, err
		}
		w.Start()
		return w, nil
	}
}

// Worker computes plumes for one session, one message at a time.
type Worker struct {
	sink    ResultSink
	inbox   chan []byte
	done    chan struct{}
	logger  *slog.Logger
	metrics *observability.Metrics

	mu        sync.RWMutex
	stopped   bool
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// New creates a Worker. Call Start to begin processing.
func New(sink ResultSink, opts Options) (*Worker, error) {
	if sink == nil {
		return nil, fmt.Errorf("%w: no result sink", ErrWorkerUnavailable)
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = DefaultInboxSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Worker{
		sink:    sink,
		inbox:   make(chan []byte, opts.InboxSize),
		done:    make(chan struct{}),
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

// Start launches the processing goroutine. Extra calls are no-ops.
func (w *Worker) Start() {
	w.startOnce.Do(func() {
		w.wg.Add(1)
		go w.loop()
	})
}

// Dispatch queues a computation and returns without waiting for it.
func (w *Worker) Dispatch(msg domain.DispatchMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode dispatch message: %w", err)
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrWorkerStopped
	}
	select {
	case w.inbox <- data:
		return nil
	default:
		return ErrInboxFull
	}
}

// Stop terminates the worker and waits for an in-flight computation to
// finish. Queued messages are dropped and nothing is delivered after Stop
// returns. It is safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		close(w.done)
		w.mu.Unlock()
	})
	w.wg.Wait()
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case data := <-w.inbox:
			w.handle(data)
		}
	}
}

func (w *Worker) handle(data []byte) {
	start := time.Now()

	var msg domain.DispatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		w.logger.Warn("discarding malformed dispatch message", "error", err)
		return
	}

	weather, ok := msg.Weather()
	if !ok {
		w.logger.Warn("unknown stability, using neutral", "stability", msg.Stability)
	}

	plumes := domain.ComputePlumes(msg.Farms, weather, msg.MaxCount, w.logger)
	out, err := json.Marshal(plumes)
	if err != nil {
		w.logger.Error("encode plumes failed", "error", err)
		return
	}

	if w.metrics != nil {
		w.metrics.WorkerComputations.Inc()
		w.metrics.ComputeDuration.Observe(time.Since(start).Seconds())
		w.metrics.PlumesComputed.Observe(float64(len(plumes)))
	}

	select {
	case <-w.done:
		return
	default:
	}
	w.sink.Receive(out)
}
