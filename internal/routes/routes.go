package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"detectlab/internal/config"
	"detectlab/internal/handler"
	"detectlab/internal/logger"
	"detectlab/internal/middleware"
	"detectlab/internal/repository"

	"github.com/gorilla/mux"
)

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", filepath.Clean(path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers API endpoints, log and auth endpoints and static
// pages, and wraps the router with the authentication middleware.
func SetupRoutes(analyzer handler.Analyzer, hub handler.ViewerHub, cfg *config.Config, logger *logger.Logger,
	reportRepo repository.ReportRepository, detectionRepo repository.DetectionRepository) http.Handler {
	r := mux.NewRouter()
	sessions := middleware.NewSessions(cfg.Password)

	// Static files
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	api := r.PathPrefix("/api").Subrouter()

	// Analysis
	api.HandleFunc("/analyze/image", handler.AnalyzeImageHandler(analyzer, logger)).Methods("POST")
	api.HandleFunc("/analyze/video", handler.AnalyzeVideoHandler(analyzer, cfg, logger)).Methods("POST")

	// Live sessions
	api.HandleFunc("/camera/start", handler.StartCameraHandler(analyzer, cfg, logger)).Methods("POST")
	api.HandleFunc("/camera/stop", handler.StopCameraHandler(analyzer, logger)).Methods("POST")
	api.HandleFunc("/camera/sessions", handler.SessionsHandler(analyzer, logger)).Methods("GET")
	api.HandleFunc("/view", handler.ViewWebsocketHandler(hub, logger))

	// Reports
	api.HandleFunc("/reports", handler.GetReportsHandler(cfg, logger, reportRepo)).Methods("GET")
	api.HandleFunc("/reports/view", handler.ViewReportHandler(cfg)).Methods("GET")
	api.HandleFunc("/reports/delete", handler.DeleteReportHandler(cfg, logger, reportRepo)).Methods("DELETE")
	api.HandleFunc("/reports/clear", handler.ClearReportsHandler(cfg, logger, reportRepo)).Methods("DELETE")
	api.HandleFunc("/reports/stats", handler.ReportStatsHandler(logger, reportRepo)).Methods("GET")
	api.HandleFunc("/reports/filters", handler.ReportFiltersHandler(logger, reportRepo, detectionRepo)).Methods("GET")
	api.HandleFunc("/reports/{id:[0-9]+}", handler.GetReportHandler(logger, reportRepo, detectionRepo)).Methods("GET")

	// Log endpoints
	r.HandleFunc("/logs/{level}", handler.ShowLogsHandler(cfg)).Methods("GET")
	r.HandleFunc("/logs/{level}/clear", handler.ClearLogsHandler(logger)).Methods("POST", "DELETE")

	// Auth endpoints
	r.HandleFunc("/auth/login", handler.LoginHandler(cfg, sessions, logger)).Methods("POST")
	r.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /reports -> /static/reports.html
	r.NotFoundHandler = http.HandlerFunc(dynamicHTMLHandler)

	// Apply middleware
	return middleware.AuthMiddleware(sessions, r)
}
