package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"detectlab/internal/config"
	"detectlab/internal/dto"
	"detectlab/internal/logger"
)

const (
	// MaxImageUpload limits a single uploaded image.
	MaxImageUpload = 10 << 20
	// MaxVideoUpload limits a single uploaded video.
	MaxVideoUpload = 512 << 20
)

// Analyzer runs detection sessions; implemented by service.Manager.
type Analyzer interface {
	AnalyzeImage(source string, data []byte) (*dto.AnalysisResult, error)
	AnalyzeVideo(ctx context.Context, source, path string) (*dto.AnalysisResult, error)
	StartCamera(device string) (dto.SessionInfo, error)
	StopCamera(id string) (*dto.AnalysisResult, error)
	Sessions() []dto.SessionInfo
}

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AnalyzeImageHandler handles POST /api/analyze/image with a multipart "file".
func AnalyzeImageHandler(analyzer Analyzer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxImageUpload+1<<20)
		if err := r.ParseMultipartForm(MaxImageUpload); err != nil {
			sendErrorResponse(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			sendErrorResponse(w, "invalid_request", "file is required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			sendErrorResponse(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}

		source := sourceLabel(r, header.Filename)
		result, err := analyzer.AnalyzeImage(source, data)
		if err != nil {
			logger.Error("Image analysis of %s failed: %v", source, err)
			sendErrorResponse(w, "analysis_failed", err.Error(), http.StatusUnprocessableEntity)
			return
		}

		logger.Info("Analysed image %s: %d detections", source, result.Report.Total)
		writeJSON(w, http.StatusOK, result, logger)
	}
}

// AnalyzeVideoHandler handles POST /api/analyze/video. The upload is stored
// in the upload directory for the duration of the analysis.
func AnalyzeVideoHandler(analyzer Analyzer, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxVideoUpload)

		file, header, err := r.FormFile("file")
		if err != nil {
			sendErrorResponse(w, "invalid_request", "file is required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		if err := os.MkdirAll(cfg.UploadDirectory, 0755); err != nil {
			logger.Error("Error creating upload directory: %v", err)
			sendErrorResponse(w, "internal", "upload directory unavailable", http.StatusInternalServerError)
			return
		}

		tmp, err := os.CreateTemp(cfg.UploadDirectory, "video-*"+filepath.Ext(header.Filename))
		if err != nil {
			logger.Error("Error creating upload file: %v", err)
			sendErrorResponse(w, "internal", "upload failed", http.StatusInternalServerError)
			return
		}
		defer os.Remove(tmp.Name())

		_, err = io.Copy(tmp, file)
		if closeErr := tmp.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			sendErrorResponse(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}

		source := sourceLabel(r, header.Filename)
		result, err := analyzer.AnalyzeVideo(r.Context(), source, tmp.Name())
		if err != nil {
			logger.Error("Video analysis of %s failed: %v", source, err)
			sendErrorResponse(w, "analysis_failed", err.Error(), http.StatusUnprocessableEntity)
			return
		}

		logger.Info("Analysed video %s: %d frames, %d detections", source, result.Frames, result.Report.Total)
		writeJSON(w, http.StatusOK, result, logger)
	}
}

// sourceLabel prefers an explicit "source" form value over the uploaded file name.
func sourceLabel(r *http.Request, filename string) string {
	if source := r.FormValue("source"); source != "" {
		return source
	}
	if filename == "" {
		return "upload"
	}
	return filepath.Base(filename)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func sendErrorResponse(w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Code:    code,
		Message: message,
	})
}
