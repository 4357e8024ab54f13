package handler

import (
	"errors"
	"net/http"

	"detectlab/internal/config"
	"detectlab/internal/logger"
	"detectlab/internal/service/report"
)

// StartCameraHandler handles POST /api/camera/start?device=.
func StartCameraHandler(analyzer Analyzer, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		device := r.URL.Query().Get("device")
		if device == "" {
			device = cfg.CameraDevice
		}

		info, err := analyzer.StartCamera(device)
		if err != nil {
			logger.Error("Failed to start camera %s: %v", device, err)
			sendErrorResponse(w, "camera_unavailable", err.Error(), http.StatusServiceUnavailable)
			return
		}

		writeJSON(w, http.StatusCreated, info, logger)
	}
}

// StopCameraHandler handles POST /api/camera/stop?session= and returns the session's report.
func StopCameraHandler(analyzer Analyzer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("session")
		if id == "" {
			sendErrorResponse(w, "invalid_request", "session is required", http.StatusBadRequest)
			return
		}

		result, err := analyzer.StopCamera(id)
		switch {
		case errors.Is(err, report.ErrSessionFinalized):
			sendErrorResponse(w, "already_finalized", err.Error(), http.StatusConflict)
			return
		case errors.Is(err, report.ErrSessionNotFound):
			sendErrorResponse(w, "not_found", err.Error(), http.StatusNotFound)
			return
		case err != nil:
			logger.Error("Failed to stop session %s: %v", id, err)
			sendErrorResponse(w, "internal", err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, result, logger)
	}
}

// SessionsHandler handles GET /api/camera/sessions.
func SessionsHandler(analyzer Analyzer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, analyzer.Sessions(), logger)
	}
}
