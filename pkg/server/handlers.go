package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/lintang-b-s/roadmatch/pkg/matcher"
	"github.com/lintang-b-s/roadmatch/pkg/spatial"
)

func unixSecondsToTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// Handler adapts a MatchService onto chi routes, mirroring
// MapMatchingHandler's one-handler-per-service shape from
// pkg/server/mm_rest/handlers.go.
type Handler struct {
	svc *MatchService
}

// Mount registers the matcher and road-snapping routes under r, grounded on
// MapMatchingRouter's /api/map-match route group.
func Mount(r chi.Router, svc *MatchService) {
	h := &Handler{svc: svc}

	r.Route("/api/traces/{traceId}", func(r chi.Router) {
		r.Post("/samples", h.update)
		r.Get("/trajectory", h.trajectory)
		r.Delete("/", h.reset)
	})
	r.Post("/api/nearest-road", h.nearestRoad)
	r.Get("/healthz", h.health)
}

// updateRequest model info
//
//	@Description	request body for one GPS sample posted to a trace
type updateRequest struct {
	ID        string   `json:"id,omitempty"`
	Lat       float64  `json:"lat" validate:"required,latitude"`
	Lon       float64  `json:"lon" validate:"required,longitude"`
	Azimuth   *float64 `json:"azimuth,omitempty"`
	TimeUTC   int64    `json:"timeUnixSeconds" validate:"required"`
	GPSOutage bool     `json:"gpsOutage,omitempty"`
	Velocity  *float64 `json:"velocity,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

func (req *updateRequest) Bind(r *http.Request) error {
	if req.TimeUTC == 0 {
		return errors.New("timeUnixSeconds is required")
	}
	return nil
}

// candidateResponse model info
//
//	@Description	candidate vector for a trace's latest sample
type candidateResponse struct {
	Candidates []matcher.WireCandidate `json:"candidates"`
}

// update
//
//	@Summary		post one GPS sample to a trace and run one HMM filter step
//	@Description	snaps a noisy GPS sample onto nearby road candidates and returns the current state vector
//	@Tags			traces
//	@Param			traceId	path	string			true	"trace id"
//	@Param			body	body	updateRequest	true	"GPS sample"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/api/traces/{traceId}/samples [post]
//	@Success		200	{object}	candidateResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	traceID := chi.URLParam(r, "traceId")

	req := &updateRequest{}
	if err := render.Bind(r, req); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if errs := validateStruct(req); len(errs) > 0 {
		render.Render(w, r, ErrValidation(errs[0], errs))
		return
	}

	point := spatial.NewPoint(req.Lat, req.Lon)
	sampleTime := unixSecondsToTime(req.TimeUTC)
	var sample matcher.Sample
	if req.Azimuth != nil {
		sample = matcher.NewSampleWithAzimuth(point, *req.Azimuth, sampleTime)
	} else {
		sample = matcher.NewSample(point, sampleTime)
	}
	if req.ID != "" {
		sample.ID = req.ID
	}
	sample = sample.WithTraceID(traceID).WithGPSOutage(req.GPSOutage)
	if req.Velocity != nil {
		sample = sample.WithVelocity(*req.Velocity)
	}
	if req.Accuracy != nil {
		sample = sample.WithAccuracy(*req.Accuracy)
	}

	candidates, err := h.svc.Update(traceID, sample)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	wire := make([]matcher.WireCandidate, len(candidates))
	for i, c := range candidates {
		wire[i] = c.ToWire()
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, candidateResponse{Candidates: wire})
}

type trajectoryResponse struct {
	Points []trajectoryPoint `json:"points"`
}

type trajectoryPoint struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	EdgeID int64   `json:"edgeId"`
}

// trajectory
//
//	@Summary		return the matched road-point trajectory for a trace
//	@Description	replays the trace's current MAP state sequence as matched road points
//	@Tags			traces
//	@Param			traceId	path	string	true	"trace id"
//	@Produce		application/json
//	@Router			/api/traces/{traceId}/trajectory [get]
//	@Success		200	{object}	trajectoryResponse
func (h *Handler) trajectory(w http.ResponseWriter, r *http.Request) {
	traceID := chi.URLParam(r, "traceId")
	roadPoints := h.svc.Trajectory(traceID)

	points := make([]trajectoryPoint, len(roadPoints))
	for i, rp := range roadPoints {
		pt, _ := rp.Point()
		points[i] = trajectoryPoint{Lat: pt.Lat, Lon: pt.Lon, EdgeID: rp.Road.ID}
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, trajectoryResponse{Points: points})
}

// reset
//
//	@Summary		discard a trace's filter state
//	@Description	drops the trace's matcher so the next sample starts a fresh state vector
//	@Tags			traces
//	@Param			traceId	path	string	true	"trace id"
//	@Router			/api/traces/{traceId} [delete]
//	@Success		204
func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	traceID := chi.URLParam(r, "traceId")
	h.svc.Reset(traceID)
	w.WriteHeader(http.StatusNoContent)
}

// nearestRoadRequest model info
//
//	@Description	request body for a nearest-road lookup
type nearestRoadRequest struct {
	Lat    float64 `json:"lat" validate:"required,latitude"`
	Lon    float64 `json:"lon" validate:"required,longitude"`
	Radius float64 `json:"radius" validate:"required,gt=0"`
	K      int     `json:"k" validate:"required,gt=0"`
}

func (req *nearestRoadRequest) Bind(r *http.Request) error {
	if req.Radius <= 0 || req.K <= 0 {
		return errors.New("radius and k must be positive")
	}
	return nil
}

type nearestRoadResponse struct {
	Roads []nearestRoad `json:"roads"`
}

type nearestRoad struct {
	EdgeID   int64   `json:"edgeId"`
	Fraction float64 `json:"fraction"`
	Distance float64 `json:"distance"`
}

// nearestRoad
//
//	@Summary		find the k nearest road candidates within a radius
//	@Description	queries the spatial index directly, bypassing any trace's filter state
//	@Tags			roads
//	@Param			body	body	nearestRoadRequest	true	"query point and search radius"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/api/nearest-road [post]
//	@Success		200	{object}	nearestRoadResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
func (h *Handler) nearestRoad(w http.ResponseWriter, r *http.Request) {
	req := &nearestRoadRequest{}
	if err := render.Bind(r, req); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if errs := validateStruct(req); len(errs) > 0 {
		render.Render(w, r, ErrValidation(errs[0], errs))
		return
	}

	cands, err := h.svc.NearestRoads(req.Lat, req.Lon, req.Radius, req.K)
	if err != nil {
		render.Render(w, r, ErrNotFoundRend(err))
		return
	}

	roads := make([]nearestRoad, len(cands))
	for i, c := range cands {
		roads[i] = nearestRoad{EdgeID: c.Road.ID, Fraction: c.Fraction, Distance: c.Distance}
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, nearestRoadResponse{Roads: roads})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}
