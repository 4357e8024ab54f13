package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"detectlab/internal/config"
	"detectlab/internal/dto"
	"detectlab/internal/logger"
	"detectlab/internal/models"
	"detectlab/internal/repository"
	"detectlab/internal/service/report"

	"github.com/gorilla/mux"
)

// GetReportsHandler returns a filtered, paged list of reports from the database.
func GetReportsHandler(cfg *config.Config, logger *logger.Logger, reportRepo repository.ReportRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 20)

		filter := &dto.ReportFilters{
			Source:     q.Get("source"),
			Mode:       q.Get("mode"),
			Label:      q.Get("label"),
			DateAfter:  parseDate(q.Get("dateAfter")),
			DateBefore: parseDate(q.Get("dateBefore")),
			Limit:      limit,
			Offset:     (page - 1) * limit,
		}

		reports, err := reportRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying reports from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := reportRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting reports: %v", err)
			totalCount = len(reports)
		}

		infos := make([]dto.ReportInfo, 0, len(reports))
		for _, rep := range reports {
			infos = append(infos, reportInfo(rep))
		}

		data := dto.ReportsData{
			Reports:     infos,
			ReportsDir:  cfg.ReportDirectory,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}

		writeJSON(w, http.StatusOK, data, logger)
	}
}

// GetReportHandler returns one indexed report with its stored detections
// grouped by frame. Live reports have no frames.
func GetReportHandler(logger *logger.Logger, reportRepo repository.ReportRepository, detectionRepo repository.DetectionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			sendErrorResponse(w, "INVALID_ID", "Invalid report id", http.StatusBadRequest)
			return
		}

		rep, err := reportRepo.GetByID(id)
		if err != nil {
			logger.Error("Error reading report %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if rep == nil {
			sendErrorResponse(w, "NOT_FOUND", "Report not found", http.StatusNotFound)
			return
		}

		detections, err := detectionRepo.GetByReportID(id)
		if err != nil {
			logger.Error("Error reading detections of report %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, dto.ReportDetail{
			Report: reportInfo(*rep),
			Frames: groupByFrame(detections),
		}, logger)
	}
}

// groupByFrame relies on detections arriving in frame order.
func groupByFrame(detections []models.Detection) []dto.FrameResult {
	frames := []dto.FrameResult{}
	for _, det := range detections {
		if len(frames) == 0 || frames[len(frames)-1].Index != det.FrameIndex {
			frames = append(frames, dto.FrameResult{Index: det.FrameIndex})
		}
		last := &frames[len(frames)-1]
		last.Detections = append(last.Detections, dto.Detection{
			Label:      det.Label,
			Confidence: det.Confidence,
			X:          det.X,
			Y:          det.Y,
			Width:      det.Width,
			Height:     det.Height,
		})
	}
	return frames
}

// ViewReportHandler serves a report file as text/plain.
func ViewReportHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename, ok := reportFilename(w, r)
		if !ok {
			return
		}

		filePath := filepath.Join(cfg.ReportDirectory, filename)
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		http.ServeFile(w, r, filePath)
	}
}

// DeleteReportHandler removes a report from disk and database.
func DeleteReportHandler(cfg *config.Config, logger *logger.Logger, reportRepo repository.ReportRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename, ok := reportFilename(w, r)
		if !ok {
			return
		}

		filePath := filepath.Join(cfg.ReportDirectory, filename)
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			logger.Error("Failed to delete file %s: %v", filePath, err)
		}

		rep, err := reportRepo.GetByFilename(filename)
		if err != nil {
			logger.Error("Failed to look up %s: %v", filename, err)
		} else if rep != nil {
			if err := reportRepo.Delete(rep.ID); err != nil {
				logger.Error("Failed to delete from database: %v", err)
			}
		}

		logger.Info("Deleted report: %s", filename)
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "filename": filename}, logger)
	}
}

// ClearReportsHandler deletes every report file from the report directory and clears the database.
func ClearReportsHandler(cfg *config.Config, logger *logger.Logger, reportRepo repository.ReportRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		files, err := os.ReadDir(cfg.ReportDirectory)
		if err != nil && !os.IsNotExist(err) {
			logger.Error("Error reading reports directory: %v", err)
			http.Error(w, "Unable to read reports directory", http.StatusInternalServerError)
			return
		}

		for _, file := range files {
			if file.IsDir() {
				continue
			}
			// Tylko pliki raportów, reszta katalogu zostaje
			if _, err := report.ParseFilename(file.Name()); err != nil {
				continue
			}
			if err := os.Remove(filepath.Join(cfg.ReportDirectory, file.Name())); err != nil {
				logger.Error("Error deleting file %s: %v", file.Name(), err)
			}
		}

		if err := reportRepo.DeleteAll(); err != nil {
			logger.Error("Error clearing database: %v", err)
		}

		logger.Info("All reports cleared from directory: %s", cfg.ReportDirectory)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ReportStatsHandler returns totals per mode and per class.
func ReportStatsHandler(logger *logger.Logger, reportRepo repository.ReportRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := reportRepo.GetStats()
		if err != nil {
			logger.Error("Error reading report stats: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, stats, logger)
	}
}

// ReportFiltersHandler returns the values the report list can be filtered by.
func ReportFiltersHandler(logger *logger.Logger, reportRepo repository.ReportRepository, detectionRepo repository.DetectionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := reportRepo.GetSources()
		if err != nil {
			logger.Error("Error reading sources: %v", err)
			sources = []string{}
		}

		labels, err := detectionRepo.GetAllLabels()
		if err != nil {
			logger.Error("Error reading labels: %v", err)
			labels = []string{}
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sources": sources,
			"labels":  labels,
			"modes":   []string{string(report.ModeBatch), string(report.ModeLive)},
		}, logger)
	}
}

// reportFilename reads and validates the "filename" query parameter.
func reportFilename(w http.ResponseWriter, r *http.Request) (string, bool) {
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		http.Error(w, "Filename required", http.StatusBadRequest)
		return "", false
	}

	if filename != filepath.Base(filename) {
		http.Error(w, "Invalid report filename", http.StatusBadRequest)
		return "", false
	}
	if _, err := report.ParseFilename(filename); err != nil {
		http.Error(w, "Invalid report filename", http.StatusBadRequest)
		return "", false
	}
	return filename, true
}

func reportInfo(rep models.Report) dto.ReportInfo {
	classes := make([]dto.ClassCount, 0, len(rep.Classes))
	for _, c := range rep.Classes {
		classes = append(classes, dto.ClassCount{Label: c.Label, Count: c.Count})
	}

	return dto.ReportInfo{
		ID:          rep.ID,
		Session:     rep.SessionID,
		Filename:    rep.Filename,
		Source:      rep.Source,
		Mode:        rep.Mode,
		GeneratedAt: rep.GeneratedAt,
		Total:       rep.Total,
		Classes:     classes,
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}
