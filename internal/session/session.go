// Package session ties one dashboard view's state to its own recompute
// scheduler, dispersion worker and result synchronizers.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/odor-dispersion-service/internal/domain"
	"github.com/couchcryptid/odor-dispersion-service/internal/observability"
	"github.com/couchcryptid/odor-dispersion-service/internal/resultsync"
	"github.com/couchcryptid/odor-dispersion-service/internal/scheduler"
	"github.com/couchcryptid/odor-dispersion-service/internal/weather"
	"github.com/couchcryptid/odor-dispersion-service/internal/worker"
)

// PlumePublisher delivers accepted plume generations downstream.
type PlumePublisher interface {
	PublishPlumes(ctx context.Context, gen domain.PlumeGeneration) error
}

// Config holds the settings shared by all sessions.
type Config struct {
	ThrottleInterval time.Duration
	FrameInterval    time.Duration
	PublishTimeout   time.Duration
	MaxCountMode     domain.MaxCountMode
	ClusterThreshold float64
	Clock            clockwork.Clock
	Logger           *slog.Logger
	Metrics          *observability.Metrics
}

func (c Config) withDefaults() Config {
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 5 * time.Second
	}
	if c.MaxCountMode == "" {
		c.MaxCountMode = domain.MaxCountGlobal
	}
	if c.ClusterThreshold == 0 {
		c.ClusterThreshold = domain.DefaultClusterThresholdMeters
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// State is the user-controlled input of a session.
type State struct {
	Farms         []domain.FarmRecord     `json:"farms"`
	Filter        domain.FarmFilter       `json:"filter"`
	Scenario      domain.Scenario         `json:"scenario"`
	ForecastIndex int                     `json:"forecastIndex"`
	Stability     domain.Stability        `json:"stability"`
	Complaints    []domain.ComplaintPoint `json:"complaints"`
}

func defaultState() State {
	return State{
		Filter:    domain.DefaultFarmFilter(),
		Scenario:  domain.ScenarioAverage,
		Stability: domain.StabilityNeutral,
	}
}

// Session is one dashboard view.
type Session struct {
	id        string
	board     *weather.Board
	cfg       Config
	logger    *slog.Logger
	worker    *worker.Worker
	scheduler *scheduler.Scheduler
	plumes    *resultsync.Synchronizer[domain.Plume]
	clusters  *resultsync.Synchronizer[domain.Cluster]

	mu    sync.Mutex
	state State

	// refreshMu orders snapshots into the scheduler so the detector never
	// commits an older state after a newer one.
	refreshMu sync.Mutex

	closeOnce sync.Once
}

// New creates a session. If the worker cannot be created the session still
// works but never shows plumes.
func New(id string, board *weather.Board, factory worker.Factory, publisher PlumePublisher, cfg Config) *Session {
	cfg = cfg.withDefaults()
	s := &Session{
		id:     id,
		board:  board,
		cfg:    cfg,
		logger: cfg.Logger.With("session_id", id),
		state:  defaultState(),
	}

	s.plumes = resultsync.New(domain.SamePlumes, resultsync.PublisherFunc[domain.Plume](func(items []domain.Plume) {
		s.publish(publisher, items)
	}), resultsync.Options{
		FrameInterval: cfg.FrameInterval,
		Clock:         cfg.Clock,
		Logger:        s.logger,
		Metrics:       cfg.Metrics,
		Kind:          "plumes",
	})
	s.clusters = resultsync.New(domain.SameClusters, nil, resultsync.Options{
		FrameInterval: cfg.FrameInterval,
		Clock:         cfg.Clock,
		Logger:        s.logger,
		Metrics:       cfg.Metrics,
		Kind:          "clusters",
	})

	var dispatcher scheduler.Dispatcher
	if factory != nil {
		w, err := factory(s.plumes)
		if err != nil {
			s.logger.Warn("dispersion worker unavailable, no odor overlay", "error", err)
		} else {
			s.worker = w
			dispatcher = w
		}
	} else {
		s.logger.Warn("no worker factory, no odor overlay")
	}

	s.scheduler = scheduler.New(dispatcher, scheduler.Options{
		Interval: cfg.ThrottleInterval,
		Clock:    cfg.Clock,
		Logger:   s.logger,
		Metrics:  cfg.Metrics,
	})
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Available reports whether the session has a dispersion worker.
func (s *Session) Available() bool { return s.worker != nil }

// Apply merges an update into the session state, re-clusters complaints if
// they changed, and requests a recompute.
func (s *Session) Apply(u domain.SessionUpdate) (scheduler.Decision, error) {
	s.mu.Lock()
	if u.Farms != nil {
		s.state.Farms = append([]domain.FarmRecord(nil), u.Farms...)
	}
	if u.Filter != nil {
		s.state.Filter = *u.Filter
	}
	if u.Scenario != nil {
		scenario, ok := domain.ParseScenario(*u.Scenario)
		if !ok {
			s.logger.Warn("unknown scenario, using average", "scenario", *u.Scenario)
		}
		s.state.Scenario = scenario
	}
	if u.ForecastIndex != nil {
		s.state.ForecastIndex = *u.ForecastIndex
	}
	if u.Stability != nil {
		stability, ok := domain.ParseStability(*u.Stability)
		if !ok {
			s.logger.Warn("unknown stability, using neutral", "stability", *u.Stability)
		}
		s.state.Stability = stability
	}
	var complaints []domain.ComplaintPoint
	if u.Complaints != nil {
		s.state.Complaints = append([]domain.ComplaintPoint(nil), u.Complaints...)
		complaints = s.state.Complaints
	}
	s.mu.Unlock()

	if complaints != nil {
		if err := s.recluster(complaints); err != nil {
			return scheduler.Unchanged, err
		}
	}
	return s.Refresh(), nil
}

// Refresh requests a recompute from the current state and weather board.
func (s *Session) Refresh() scheduler.Decision {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	visible := state.Filter.Apply(state.Farms)
	maxCount := domain.MaxLivestockCount(state.Farms)
	if s.cfg.MaxCountMode == domain.MaxCountVisible {
		maxCount = domain.MaxLivestockCount(visible)
	}

	return s.scheduler.Request(scheduler.Request{
		Farms:    domain.LiteFarms(visible),
		MaxCount: maxCount,
		Weather:  s.activeWeather(state),
	})
}

// State returns a copy of the session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Farms = append([]domain.FarmRecord(nil), st.Farms...)
	st.Complaints = append([]domain.ComplaintPoint(nil), st.Complaints...)
	return st
}

// ActiveWeather returns the weather currently driving the session's plumes.
func (s *Session) ActiveWeather() domain.Weather {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	return s.activeWeather(state)
}

func (s *Session) activeWeather(state State) domain.Weather {
	return domain.ActiveWeather(state.Scenario, s.board.Live(), s.board.Forecast(), state.ForecastIndex, state.Stability)
}

// Plumes returns the plumes last accepted by the synchronizer.
func (s *Session) Plumes() ([]domain.Plume, bool) {
	return s.plumes.Current()
}

// Clusters returns the complaint clusters last accepted.
func (s *Session) Clusters() ([]domain.Cluster, bool) {
	return s.clusters.Current()
}

// Close tears the session down. Nothing is published after Close returns.
// It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.scheduler.Stop()
		if s.worker != nil {
			s.worker.Stop()
		}
		s.plumes.Stop()
		s.clusters.Stop()
		s.logger.Info("session closed")
	})
}

func (s *Session) recluster(points []domain.ComplaintPoint) error {
	clusters, err := domain.ClusterComplaints(points, s.cfg.ClusterThreshold)
	if err != nil {
		return err
	}
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.ClusterRequests.Inc()
		s.cfg.Metrics.ClustersFormed.Observe(float64(len(clusters)))
	}
	s.clusters.Offer(clusters)
	s.clusters.Flush()
	return nil
}

func (s *Session) publish(publisher PlumePublisher, items []domain.Plume) {
	if publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PublishTimeout)
	defer cancel()
	if err := publisher.PublishPlumes(ctx, domain.NewPlumeGeneration(s.id, items)); err != nil {
		s.logger.Warn("publish plumes failed", "error", err, "plumes", len(items))
	}
}
