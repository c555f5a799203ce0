package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/couchcryptid/odor-dispersion-service/internal/domain"
	"github.com/couchcryptid/odor-dispersion-service/internal/session"
)

const maxBodyBytes = 10 << 20

// plumeRequest is the body of a one-shot plume computation. Weather
// overrides the live board reading when present.
type plumeRequest struct {
	Farms         []domain.FarmRecord     `json:"farms"`
	Filter        *domain.FarmFilter      `json:"filter,omitempty"`
	Weather       *domain.WeatherSnapshot `json:"weather,omitempty"`
	Scenario      string                  `json:"scenario,omitempty"`
	ForecastIndex int                     `json:"forecastIndex,omitempty"`
	Stability     string                  `json:"stability,omitempty"`
}

type plumeResponse struct {
	Weather  domain.Weather `json:"weather"`
	Guidance string         `json:"guidance"`
	Plumes   []domain.Plume `json:"plumes"`
}

type clusterRequest struct {
	Complaints      []domain.ComplaintPoint `json:"complaints"`
	ThresholdMeters *float64                `json:"thresholdMeters,omitempty"`
}

type clusterView struct {
	domain.Cluster
	MarkerScale int `json:"markerScale"`
}

type clusterResponse struct {
	Clusters []clusterView `json:"clusters"`
}

type complaintsRequest struct {
	Complaints []domain.ComplaintPoint `json:"complaints"`
}

type sessionResponse struct {
	ID        string `json:"id"`
	Decision  string `json:"decision"`
	Available bool   `json:"available"`
}

type sessionPlumesResponse struct {
	SessionID string         `json:"session_id"`
	Ready     bool           `json:"ready"`
	Weather   domain.Weather `json:"weather"`
	Guidance  string         `json:"guidance"`
	Plumes    []domain.Plume `json:"plumes"`
}

type weatherResponse struct {
	Live      domain.Weather   `json:"live"`
	Forecast  []domain.Weather `json:"forecast"`
	UpdatedAt *time.Time       `json:"updatedAt,omitempty"`
	Guidance  string           `json:"guidance"`
}

func (s *Server) handleComputePlumes(w http.ResponseWriter, r *http.Request) {
	var req plumeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	visible := req.Farms
	if req.Filter != nil {
		visible = req.Filter.Apply(req.Farms)
	}
	maxCount := domain.MaxLivestockCount(req.Farms)
	if s.maxCountMode == domain.MaxCountVisible {
		maxCount = domain.MaxLivestockCount(visible)
	}

	live, forecast, _ := s.board.Snapshot()
	if req.Weather != nil {
		live, _ = req.Weather.Weather()
	}
	scenario, _ := domain.ParseScenario(req.Scenario)
	stability, _ := domain.ParseStability(req.Stability)
	if req.Stability == "" && req.Weather != nil {
		stability = live.Stability
	}
	active := domain.ActiveWeather(scenario, live, forecast, req.ForecastIndex, stability)

	plumes := domain.ComputePlumes(domain.LiteFarms(visible), active, maxCount, s.logger)
	if wantsGeoJSON(r) {
		writeGeoJSON(w, plumeCollection(plumes))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, plumeResponse{
		Weather:  active,
		Guidance: domain.Guidance(active),
		Plumes:   plumes,
	})
}

func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	var req clusterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	threshold := s.clusterThreshold
	if req.ThresholdMeters != nil {
		threshold = *req.ThresholdMeters
	}

	clusters, err := domain.ClusterComplaints(req.Complaints, threshold)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.metrics != nil {
		s.metrics.ClusterRequests.Inc()
		s.metrics.ClustersFormed.Observe(float64(len(clusters)))
	}
	s.writeClusters(w, r, clusters)
}

func (s *Server) handleComplaintStats(w http.ResponseWriter, r *http.Request) {
	var req complaintsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, domain.SummarizeComplaints(req.Complaints))
}

func (s *Server) handleWeather(w http.ResponseWriter, _ *http.Request) {
	live, forecast, updatedAt := s.board.Snapshot()
	resp := weatherResponse{
		Live:     live,
		Forecast: forecast,
		Guidance: domain.Guidance(live),
	}
	if !updatedAt.IsZero() {
		resp.UpdatedAt = &updatedAt
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var update domain.SessionUpdate
	if r.ContentLength != 0 && !decodeBody(w, r, &update) {
		return
	}

	id := uuid.NewString()
	sess := s.sessions.GetOrCreate(id)
	decision, err := sess.Apply(update)
	if err != nil {
		_ = s.sessions.Close(id)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Location", "/v1/sessions/"+id)
	sharedobs.WriteJSON(w, http.StatusCreated, sessionResponse{
		ID:        id,
		Decision:  decision.String(),
		Available: sess.Available(),
	})
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var update domain.SessionUpdate
	if !decodeBody(w, r, &update) {
		return
	}

	sess := s.sessions.GetOrCreate(id)
	decision, err := sess.Apply(update)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, sessionResponse{
		ID:        id,
		Decision:  decision.String(),
		Available: sess.Available(),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(chi.URLParam(r, "id")); err != nil {
		s.writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionPlumes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(id)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}

	plumes, ok := sess.Plumes()
	if plumes == nil {
		plumes = []domain.Plume{}
	}
	if wantsGeoJSON(r) {
		writeGeoJSON(w, plumeCollection(plumes))
		return
	}
	active := sess.ActiveWeather()
	sharedobs.WriteJSON(w, http.StatusOK, sessionPlumesResponse{
		SessionID: id,
		Ready:     ok,
		Weather:   active,
		Guidance:  domain.Guidance(active),
		Plumes:    plumes,
	})
}

func (s *Server) handleSessionClusters(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	clusters, _ := sess.Clusters()
	s.writeClusters(w, r, clusters)
}

func (s *Server) writeClusters(w http.ResponseWriter, r *http.Request, clusters []domain.Cluster) {
	if wantsGeoJSON(r) {
		writeGeoJSON(w, clusterCollection(clusters))
		return
	}
	views := make([]clusterView, len(clusters))
	for i, c := range clusters {
		views[i] = clusterView{Cluster: c, MarkerScale: domain.MarkerScale(c.Count)}
	}
	sharedobs.WriteJSON(w, http.StatusOK, clusterResponse{Clusters: views})
}

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Error("session operation failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}

func wantsGeoJSON(r *http.Request) bool {
	return r.URL.Query().Get("format") == "geojson"
}
