package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/odor-dispersion-service/internal/domain"
	"github.com/couchcryptid/odor-dispersion-service/internal/scheduler"
	"github.com/couchcryptid/odor-dispersion-service/internal/session"
)

// Sessions is the part of session.Manager the router drives.
type Sessions interface {
	Apply(id string, u domain.SessionUpdate) (scheduler.Decision, error)
	Close(id string) error
	RefreshAll() int
}

// LiveWeather accepts sensor readings shared by all sessions.
type LiveWeather interface {
	UpdateLive(w domain.Weather, at time.Time) bool
}

// MessageRouter implements Router: it decodes source messages and applies
// them to the session registry or the live weather board.
type MessageRouter struct {
	sessions Sessions
	weather  LiveWeather
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewRouter creates a MessageRouter. A nil clock uses the real clock.
func NewRouter(sessions Sessions, weather LiveWeather, clock clockwork.Clock, logger *slog.Logger) *MessageRouter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MessageRouter{
		sessions: sessions,
		weather:  weather,
		clock:    clock,
		logger:   logger,
	}
}

func (r *MessageRouter) Route(_ context.Context, raw domain.RawMessage) error {
	msg, err := domain.ParseSourceMessage(raw)
	if err != nil {
		return err
	}

	switch msg.Kind {
	case domain.KindSession:
		decision, err := r.sessions.Apply(msg.SessionID, *msg.Update)
		if err != nil {
			return err
		}
		r.logger.Debug("session update applied", "session_id", msg.SessionID, "decision", decision.String())

	case domain.KindClose:
		if err := r.sessions.Close(msg.SessionID); err != nil {
			if !errors.Is(err, session.ErrSessionNotFound) {
				return err
			}
			r.logger.Debug("close for unknown session", "session_id", msg.SessionID)
		}

	case domain.KindWeather:
		w, ok := msg.Weather.Weather()
		if !ok {
			r.logger.Warn("unknown stability in sensor reading, using neutral", "stability", msg.Weather.Stability)
		}
		at := raw.Timestamp
		if at.IsZero() {
			at = r.clock.Now()
		}
		if r.weather.UpdateLive(w, at) {
			dispatched := r.sessions.RefreshAll()
			r.logger.Info("live weather changed", "dispatched", dispatched,
				"wind_direction", w.WindDirectionDeg, "wind_speed", w.WindSpeedMps, "humidity", w.HumidityPct)
		}
	}
	return nil
}
