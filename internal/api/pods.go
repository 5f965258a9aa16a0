package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Jmi2020/Presence-Sensor/internal/pod"
)

// handleListPods returns all known pods ordered by pod id.
func (s *Server) handleListPods(w http.ResponseWriter, r *http.Request) {
	pods, err := s.tracker.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list pods")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pods": pods, "count": len(pods)})
}

// handleGetPod returns a single pod by its external id.
func (s *Server) handleGetPod(w http.ResponseWriter, r *http.Request) {
	podID := chi.URLParam(r, "podID")

	p, err := s.tracker.Get(r.Context(), podID)
	if err != nil {
		switch {
		case errors.Is(err, pod.ErrPodNotFound):
			writeNotFound(w, "pod not found")
		case errors.Is(err, pod.ErrInvalidPodID):
			writeBadRequest(w, "invalid pod id")
		default:
			writeInternalError(w, "failed to get pod")
		}
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// updatePodRequest is the body for PUT /pods/{podID}.
// Empty fields leave the current value unchanged.
type updatePodRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Active   *bool  `json:"active"`
}

// handleUpdatePod updates a pod's name, location, and active flag.
// Occupancy state is owned by the telemetry path and cannot be set here.
func (s *Server) handleUpdatePod(w http.ResponseWriter, r *http.Request) {
	podID := chi.URLParam(r, "podID")

	var req updatePodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	updated, err := s.tracker.UpdateDetails(r.Context(), podID, req.Name, req.Location, req.Active)
	if err != nil {
		switch {
		case errors.Is(err, pod.ErrPodNotFound):
			writeNotFound(w, "pod not found")
		case errors.Is(err, pod.ErrInvalidPodID):
			writeBadRequest(w, "invalid pod id")
		default:
			writeInternalError(w, "failed to update pod")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// handlePodLogs returns the most recent occupancy snapshots for a pod,
// newest first.
//
// Query parameters:
//   - limit: maximum entries to return (default 100, capped at 1000)
func (s *Server) handlePodLogs(w http.ResponseWriter, r *http.Request) {
	podID := chi.URLParam(r, "podID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		limit = parsed
	}

	logs, err := s.tracker.RecentLogs(r.Context(), podID, limit)
	if err != nil {
		switch {
		case errors.Is(err, pod.ErrPodNotFound):
			writeNotFound(w, "pod not found")
		case errors.Is(err, pod.ErrInvalidLimit):
			writeBadRequest(w, "limit must not be negative")
		case errors.Is(err, pod.ErrInvalidPodID):
			writeBadRequest(w, "invalid pod id")
		default:
			writeInternalError(w, "failed to get logs")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"logs": logs, "count": len(logs)})
}

// occupancyRequest is the body for POST /pods/{podID}/occupancy.
// It matches the MQTT telemetry payload; occupied is the only
// required field.
type occupancyRequest struct {
	Occupied   *bool   `json:"occupied"`
	OccupantID *string `json:"occupant_id"`

	MmwaveDetected bool `json:"mmwave_detected"`
	BleDetected    bool `json:"ble_detected"`
	RSSI           *int `json:"rssi"`

	StaticDistance  *float64 `json:"static_distance"`
	MotionDistance  *float64 `json:"motion_distance"`
	ExistenceEnergy *float64 `json:"existence_energy"`
	MotionEnergy    *float64 `json:"motion_energy"`
	MotionSpeed     *float64 `json:"motion_speed"`
	BodyMovement    *float64 `json:"body_movement"`

	// ObservedAt is the event time; zero means processing time.
	ObservedAt time.Time `json:"observed_at"`

	// Name and Location are honoured only when non-empty.
	Name     string `json:"name"`
	Location string `json:"location"`
}

// handleSubmitOccupancy accepts an occupancy observation over HTTP.
//
// The observation flows through the same tracker and fanout path as
// MQTT telemetry, so downstream consumers cannot tell the transports
// apart.
func (s *Server) handleSubmitOccupancy(w http.ResponseWriter, r *http.Request) {
	podID := chi.URLParam(r, "podID")

	var req occupancyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Occupied == nil {
		writeBadRequest(w, "occupied field is required")
		return
	}

	obs := pod.Observation{
		Occupied:        *req.Occupied,
		OccupantID:      req.OccupantID,
		MmwaveDetected:  req.MmwaveDetected,
		BleDetected:     req.BleDetected,
		RSSI:            req.RSSI,
		StaticDistance:  req.StaticDistance,
		MotionDistance:  req.MotionDistance,
		ExistenceEnergy: req.ExistenceEnergy,
		MotionEnergy:    req.MotionEnergy,
		MotionSpeed:     req.MotionSpeed,
		BodyMovement:    req.BodyMovement,
		ObservedAt:      req.ObservedAt,
		Name:            req.Name,
		Location:        req.Location,
	}

	updated, err := s.tracker.Observe(r.Context(), podID, obs)
	if err != nil {
		if errors.Is(err, pod.ErrInvalidPodID) {
			writeBadRequest(w, "invalid pod id")
			return
		}
		writeInternalError(w, "failed to store observation")
		return
	}

	if s.dispatcher != nil {
		s.dispatcher.Dispatch(r.Context(), updated)
	}

	writeJSON(w, http.StatusOK, updated)
}
