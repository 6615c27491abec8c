package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sunsplit/sunsplit/internal/experiment"
)

type HealthResponse struct {
	Status           string `json:"status"`
	ExperimentsCount int    `json:"experiments_count"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	exps, err := s.engine.List(r.Context())
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := HealthResponse{
		Status:           "ok",
		ExperimentsCount: len(exps),
		UptimeSeconds:    int64(time.Since(s.startTime).Seconds()),
	}

	writeJSON(w, http.StatusOK, response)
}

// BeaconRequest is an incoming outcome event from page-rendering code.
type BeaconRequest struct {
	ExperimentID string `json:"e"`
	VariantID    string `json:"v"`
	EventType    string `json:"t"` // "impression" or "conversion"
}

func (s *Server) handleBeacon(w http.ResponseWriter, r *http.Request) {
	setCORS(w, "POST, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req BeaconRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.ExperimentID == "" || req.VariantID == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	var err error
	switch req.EventType {
	case "impression":
		err = s.engine.RecordImpression(r.Context(), req.ExperimentID, req.VariantID)
	case "conversion":
		err = s.engine.RecordConversion(r.Context(), req.ExperimentID, req.VariantID)
	default:
		http.Error(w, "Invalid event type", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleAssign hands page-rendering code a variant for one exposure.
func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	setCORS(w, "GET, OPTIONS")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("experiment")
	if id == "" {
		http.Error(w, "experiment parameter required", http.StatusBadRequest)
		return
	}

	v, err := s.engine.Assign(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// handleExperiments serves the collection: POST creates, GET lists.
func (s *Server) handleExperiments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var def experiment.Definition
		if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		exp, err := s.engine.Create(r.Context(), def)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.log.Info("created experiment", zap.String("experiment", exp.ID), zap.String("name", exp.Name))
		writeJSON(w, http.StatusCreated, exp)

	case http.MethodGet:
		exps, err := s.engine.List(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		if exps == nil {
			exps = []*experiment.Experiment{}
		}
		writeJSON(w, http.StatusOK, exps)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleExperiment serves a single experiment and its sub-resources:
//
//	GET  /api/experiments/{id}
//	GET  /api/experiments/{id}/result
//	POST /api/experiments/{id}/{start|stop|pause|cancel}
func (s *Server) handleExperiment(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/experiments/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		http.Error(w, "experiment id required", http.StatusBadRequest)
		return
	}
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		exp, err := s.engine.Get(r.Context(), id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, exp)

	case action == "result" && r.Method == http.MethodGet:
		res, err := s.engine.GetResult(r.Context(), id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)

	case action == "stop" && r.Method == http.MethodPost:
		res, err := s.engine.Stop(r.Context(), id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.log.Info("stopped experiment", zap.String("experiment", id))
		writeJSON(w, http.StatusOK, res)

	case r.Method == http.MethodPost:
		var exp *experiment.Experiment
		var err error
		switch action {
		case "start":
			exp, err = s.engine.Start(r.Context(), id)
		case "pause":
			exp, err = s.engine.Pause(r.Context(), id)
		case "cancel":
			exp, err = s.engine.Cancel(r.Context(), id)
		default:
			http.Error(w, "Unknown action", http.StatusNotFound)
			return
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.log.Info("experiment transition", zap.String("experiment", id), zap.String("action", action))
		writeJSON(w, http.StatusOK, exp)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the engine's typed errors onto status codes so the
// dashboard can show actionable messages instead of generic failures.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, experiment.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, experiment.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, experiment.ErrInvalidState), errors.Is(err, experiment.ErrRegression):
		status = http.StatusConflict
	default:
		s.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func setCORS(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}
