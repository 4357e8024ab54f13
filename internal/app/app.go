package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"detectlab/internal/config"
	"detectlab/internal/logger"
	"detectlab/internal/repository/sqlite"
	"detectlab/internal/routes"
	"detectlab/internal/service"
	"detectlab/internal/service/ai"
	"detectlab/internal/service/storage"
	"detectlab/internal/service/websocket"

	"golang.org/x/sync/errgroup"
)

// ShutdownTimeout bounds the graceful HTTP shutdown.
const ShutdownTimeout = 10 * time.Second

type App struct {
	config          *config.Config
	logger          *logger.Logger
	db              *sqlite.DB
	detectorPool    *ai.Pool
	snapshotService *storage.SnapshotService
	hubService      *websocket.HubService
	manager         *service.Manager
	reportRepo      *sqlite.ReportRepository
	detectionRepo   *sqlite.DetectionRepository
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pool, err := ai.NewPool(cfg, log)
	if err != nil {
		db.Close()
		log.Close()
		return nil, err
	}

	reportRepo := sqlite.NewReportRepository(db)
	detectionRepo := sqlite.NewDetectionRepository(db)
	snapshots := storage.NewSnapshotService(cfg, log)
	hub := websocket.NewHubService(log)

	mng := service.NewManager(pool, snapshots, hub, reportRepo, detectionRepo, cfg, log)

	return &App{
		config:          cfg,
		logger:          log,
		db:              db,
		detectorPool:    pool,
		snapshotService: snapshots,
		hubService:      hub,
		manager:         mng,
		reportRepo:      reportRepo,
		detectionRepo:   detectionRepo,
	}, nil
}

// Run serves the dashboard until ctx is cancelled or the server fails.
// Live sessions still running at shutdown are stopped and reported.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)

	router := routes.SetupRoutes(a.manager, a.hubService, a.config, a.logger, a.reportRepo, a.detectionRepo)
	srv := newServer(gctx, a.config.Port, router)

	fmt.Printf("🚀 Detection Report Server\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("📁 Reports: %s\n", a.config.ReportDirectory)
	fmt.Printf("🤖 AI Model: %s (%s, %d workers)\n", a.config.ModelPath, a.config.ModelFormat, a.detectorPool.Size())

	g.Go(func() error {
		a.hubService.Run(gctx)
		return nil
	})
	g.Go(func() error {
		a.snapshotService.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		a.manager.Stop()
		return err
	})

	return g.Wait()
}

// newServer builds the HTTP server. Request contexts derive from ctx, so
// running analyses see shutdown, report what they have and return before
// Shutdown does.
func newServer(ctx context.Context, port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
}

func (a *App) close() {
	a.snapshotService.Flush("")
	a.detectorPool.Close()
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database: %v", err)
	}
	a.logger.Close()
}
