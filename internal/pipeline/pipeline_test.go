package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/odor-dispersion-service/internal/domain"
	"github.com/couchcryptid/odor-dispersion-service/internal/observability"
	"github.com/couchcryptid/odor-dispersion-service/internal/pipeline"
	"github.com/couchcryptid/odor-dispersion-service/internal/scheduler"
	"github.com/couchcryptid/odor-dispersion-service/internal/session"
	"github.com/couchcryptid/odor-dispersion-service/internal/weather"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawMessage
	errs    []error
	index   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawMessage, error) {
	i := int(m.index.Add(1) - 1)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockRouter struct {
	mu     sync.Mutex
	err    error
	routed []domain.RawMessage
}

func (m *mockRouter) Route(_ context.Context, raw domain.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routed = append(m.routed, raw)
	return m.err
}

type fakeSessions struct {
	mu        sync.Mutex
	applied   map[string][]domain.SessionUpdate
	closed    []string
	refreshes int
	closeErr  error
}

func (f *fakeSessions) Apply(id string, u domain.SessionUpdate) (scheduler.Decision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applied == nil {
		f.applied = make(map[string][]domain.SessionUpdate)
	}
	f.applied[id] = append(f.applied[id], u)
	return scheduler.Dispatched, nil
}

func (f *fakeSessions) Close(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, id)
	return f.closeErr
}

func (f *fakeSessions) RefreshAll() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return 0
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rawJSON(t *testing.T, v any) domain.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return domain.RawMessage{Value: data, Topic: "odor-session-updates"}
}

// --- pipeline ---

func TestPipeline_Run_RoutesAndCommits(t *testing.T) {
	var commits atomic.Int64
	commit := func(context.Context) error {
		commits.Add(1)
		return nil
	}
	a := domain.RawMessage{Key: []byte("a"), Commit: commit}
	b := domain.RawMessage{Key: []byte("b"), Commit: commit}

	ext := &mockExtractor{batches: [][]domain.RawMessage{{a, b}}}
	router := &mockRouter{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(ext, router, quietLogger(), metrics, 50)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Len(t, router.routed, 2)
	assert.Equal(t, int64(2), commits.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.MessagesConsumed))
	assert.False(t, p.Ready(), "not ready after Run returns")
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{}
	router := &mockRouter{}
	p := pipeline.New(ext, router, quietLogger(), observability.NewMetricsForTesting(), 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, router.routed)
}

func TestPipeline_Run_RouteErrorStillCommits(t *testing.T) {
	committed := false
	raw := domain.RawMessage{Commit: func(context.Context) error {
		committed = true
		return nil
	}}

	ext := &mockExtractor{batches: [][]domain.RawMessage{{raw}}}
	router := &mockRouter{err: domain.ErrMalformedMessage}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(ext, router, quietLogger(), metrics, 50)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.True(t, committed)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.MessageErrors))
}

func TestPipeline_Run_RetriesExtractErrors(t *testing.T) {
	ext := &mockExtractor{
		errs:    []error{errors.New("broker down")},
		batches: [][]domain.RawMessage{nil, {{Key: []byte("a")}}},
	}
	router := &mockRouter{}
	p := pipeline.New(ext, router, quietLogger(), observability.NewMetricsForTesting(), 50)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go func() {
		assert.Eventually(t, func() bool {
			router.mu.Lock()
			defer router.mu.Unlock()
			return len(router.routed) == 1
		}, time.Second, 5*time.Millisecond)
		cancel()
	}()

	require.NoError(t, p.Run(ctx))
	assert.Len(t, router.routed, 1)
}

func TestPipeline_CheckReadiness(t *testing.T) {
	p := pipeline.New(&mockExtractor{}, &mockRouter{}, quietLogger(), observability.NewMetricsForTesting(), 50)
	require.Error(t, p.CheckReadiness(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return p.CheckReadiness(context.Background()) == nil
	}, time.Second, time.Millisecond)
	cancel()
	<-done
}

// --- router ---

func TestRouter_SessionUpdate(t *testing.T) {
	sessions := &fakeSessions{}
	r := pipeline.NewRouter(sessions, weather.NewBoard(), nil, quietLogger())

	stable := "stable"
	raw := rawJSON(t, domain.SourceMessage{
		Kind:      domain.KindSession,
		SessionID: "view-1",
		Update:    &domain.SessionUpdate{Stability: &stable},
	})
	require.NoError(t, r.Route(context.Background(), raw))

	require.Len(t, sessions.applied["view-1"], 1)
	assert.Equal(t, "stable", *sessions.applied["view-1"][0].Stability)
}

func TestRouter_Close(t *testing.T) {
	sessions := &fakeSessions{closeErr: session.ErrSessionNotFound}
	r := pipeline.NewRouter(sessions, weather.NewBoard(), nil, quietLogger())

	raw := domain.RawMessage{Key: []byte("view-1"), Value: []byte(`{"kind":"close"}`)}
	require.NoError(t, r.Route(context.Background(), raw), "closing an unknown session is not an error")
	assert.Equal(t, []string{"view-1"}, sessions.closed)
}

func TestRouter_WeatherRefreshesSessionsOnlyOnChange(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC))
	sessions := &fakeSessions{}
	board := weather.NewBoard()
	r := pipeline.NewRouter(sessions, board, clock, quietLogger())

	reading := func(dir float64) domain.RawMessage {
		return rawJSON(t, domain.SourceMessage{
			Kind:    domain.KindWeather,
			Weather: &domain.WeatherSnapshot{WindDirectionDeg: dir, WindSpeedMps: 1, HumidityPct: 50},
		})
	}

	require.NoError(t, r.Route(context.Background(), reading(90)))
	assert.Equal(t, 1, sessions.refreshes)
	assert.Equal(t, 90.0, board.Live().WindDirectionDeg)

	require.NoError(t, r.Route(context.Background(), reading(92)))
	assert.Equal(t, 1, sessions.refreshes, "2° is below the direction threshold")

	_, _, at := board.Snapshot()
	assert.Equal(t, clock.Now(), at)
}

func TestRouter_Malformed(t *testing.T) {
	r := pipeline.NewRouter(&fakeSessions{}, weather.NewBoard(), nil, quietLogger())

	err := r.Route(context.Background(), domain.RawMessage{Value: []byte(`{"kind":"session"}`)})
	require.ErrorIs(t, err, domain.ErrMalformedMessage)

	err = r.Route(context.Background(), domain.RawMessage{Value: []byte(`not json`)})
	require.ErrorIs(t, err, domain.ErrMalformedMessage)
}

func TestRouter_WithSessionManager(t *testing.T) {
	manager := session.NewManager(weather.NewBoard(), nil, nil, session.Config{
		Clock:  clockwork.NewFakeClock(),
		Logger: quietLogger(),
	})
	defer manager.CloseAll()
	r := pipeline.NewRouter(manager, weather.NewBoard(), nil, quietLogger())

	require.NoError(t, r.Route(context.Background(), rawJSON(t, domain.SourceMessage{
		Kind:      domain.KindSession,
		SessionID: "view-1",
	})))
	assert.Equal(t, 1, manager.Count())

	require.NoError(t, r.Route(context.Background(), rawJSON(t, domain.SourceMessage{
		Kind:      domain.KindClose,
		SessionID: "view-1",
	})))
	assert.Equal(t, 0, manager.Count())
}
