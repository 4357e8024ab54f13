package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"detectlab/internal/config"
	"detectlab/internal/dto"
	"detectlab/internal/logger"
	"detectlab/internal/models"
	"detectlab/internal/repository"
	"detectlab/internal/service/ai"
	"detectlab/internal/service/capture"
	"detectlab/internal/service/index"
	"detectlab/internal/service/report"
	"detectlab/internal/service/storage"
	"detectlab/internal/service/websocket"

	"gocv.io/x/gocv"
)

// FinishedSessionHistory is how many stopped live sessions are remembered
// so a late second stop gets report.ErrSessionFinalized instead of
// report.ErrSessionNotFound.
const FinishedSessionHistory = 256

// Manager runs analysis sessions and turns each of them into exactly one stored report.
type Manager struct {
	detector         capture.Detector
	snapshotService  *storage.SnapshotService
	websocketService *websocket.HubService
	reportRepo       repository.ReportRepository
	detectionRepo    repository.DetectionRepository
	writer           *report.Writer
	aggregator       *report.Aggregator
	logger           *logger.Logger

	processEveryNth int // Przetwarzaj co N-tą klatkę

	mu       sync.Mutex
	live     map[string]*liveSession
	finished *finishedSet // Ostatnio zakończone sesje, do wykrywania podwójnego stopu
	wg       sync.WaitGroup // Kamery i analizy w toku
}

type liveSession struct {
	session *report.Session
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewManager(detector capture.Detector, snapshotService *storage.SnapshotService, websocketService *websocket.HubService,
	reportRepo repository.ReportRepository, detectionRepo repository.DetectionRepository, config *config.Config, logger *logger.Logger) *Manager {
	everyNth := config.ProcessingInterval
	if everyNth < 1 {
		everyNth = 1
	}

	manager := &Manager{
		detector:         detector,
		snapshotService:  snapshotService,
		websocketService: websocketService,
		reportRepo:       reportRepo,
		detectionRepo:    detectionRepo,
		writer:           report.NewWriter(config.ReportDirectory),
		aggregator:       report.NewAggregator(nil),
		logger:           logger,
		processEveryNth:  everyNth,
		live:             make(map[string]*liveSession),
		finished:         newFinishedSet(FinishedSessionHistory),
	}

	manager.logger.Info("🎬 Manager started - processing every %d frame(s)", manager.processEveryNth)
	return manager
}

// AnalyzeImage runs a one-frame batch session.
func (m *Manager) AnalyzeImage(source string, data []byte) (*dto.AnalysisResult, error) {
	m.wg.Add(1)
	defer m.wg.Done()

	session := report.NewBatchSession(source)

	annotated, frame, err := capture.Image(m.detector, data)
	if err != nil {
		return nil, err
	}

	if err := session.Observe(frame); err != nil {
		return nil, err
	}
	m.publish(session, frame, annotated)

	result, err := m.finish(session)
	if err != nil {
		return nil, err
	}
	result.Image = base64.StdEncoding.EncodeToString(annotated)
	return result, nil
}

// AnalyzeVideo runs a batch session over every processed frame of a video file.
// Cancelling ctx ends the video early; the frames seen so far are still reported.
func (m *Manager) AnalyzeVideo(ctx context.Context, source, path string) (*dto.AnalysisResult, error) {
	m.wg.Add(1)
	defer m.wg.Done()

	video, err := capture.Open(path)
	if err != nil {
		return nil, err
	}
	defer video.Close()

	session := report.NewBatchSession(source)
	m.logger.Info("📼 Video session %s started: %s", session.ID, source)

	opts := capture.Options{EveryNth: m.processEveryNth, Annotate: true}
	_, err = capture.Loop(ctx, m.detector, video, opts, m.frameHandler(session))
	if err != nil {
		if errors.Is(err, capture.ErrNoFrames) {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		m.logger.Error("Video %s ended with error: %v", source, err)
	}

	return m.finish(session)
}

// StartCamera opens a camera and runs a live session in the background until StopCamera.
func (m *Manager) StartCamera(device string) (dto.SessionInfo, error) {
	camera, err := capture.Open(device)
	if err != nil {
		return dto.SessionInfo{}, err
	}

	session := report.NewLiveSession("camera " + device)
	ctx, cancel := context.WithCancel(context.Background())
	ls := &liveSession{session: session, cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	m.live[session.ID] = ls
	m.mu.Unlock()

	m.wg.Add(1)
	go m.runCamera(ctx, ls, camera)

	m.logger.Info("📹 Live session %s started on device %s", session.ID, device)
	return sessionInfo(session), nil
}

func (m *Manager) runCamera(ctx context.Context, ls *liveSession, camera *gocv.VideoCapture) {
	defer m.wg.Done()
	defer close(ls.done)
	defer camera.Close()

	opts := capture.Options{EveryNth: m.processEveryNth, Annotate: true}
	if _, err := capture.Loop(ctx, m.detector, camera, opts, m.frameHandler(ls.session)); err != nil {
		m.logger.Error("Camera session %s: %v", ls.session.ID, err)
	}

	// Kamera padła sama, bez StopCamera
	if m.take(ls.session.ID) != nil {
		if _, err := m.finish(ls.session); err != nil {
			m.logger.Error("Failed to finalize session %s: %v", ls.session.ID, err)
		}
	}
}

// StopCamera stops a live session and reports it. A second stop returns report.ErrSessionFinalized.
func (m *Manager) StopCamera(id string) (*dto.AnalysisResult, error) {
	ls := m.take(id)
	if ls == nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.finished.has(id) {
			return nil, report.ErrSessionFinalized
		}
		return nil, report.ErrSessionNotFound
	}

	ls.cancel()
	<-ls.done

	return m.finish(ls.session)
}

// take removes a live session from the registry; only one caller gets it.
func (m *Manager) take(id string) *liveSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	ls, ok := m.live[id]
	if !ok {
		return nil
	}
	delete(m.live, id)
	m.finished.add(id)
	return ls
}

// Sessions lists running live sessions.
func (m *Manager) Sessions() []dto.SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make([]dto.SessionInfo, 0, len(m.live))
	for _, ls := range m.live {
		sessions = append(sessions, sessionInfo(ls.session))
	}
	return sessions
}

// Stop ends every live session, reporting each, and waits for the camera
// loops and any image or video analysis still running.
func (m *Manager) Stop() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.live))
	for id := range m.live {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if _, err := m.StopCamera(id); err != nil && !errors.Is(err, report.ErrSessionFinalized) {
			m.logger.Error("Failed to stop session %s: %v", id, err)
		}
	}

	m.wg.Wait()
	m.logger.Info("🛑 All sessions stopped")
}

func (m *Manager) frameHandler(session *report.Session) capture.FrameFunc {
	return func(f capture.Frame) error {
		if err := session.Observe(f.Result); err != nil {
			return capture.ErrStop
		}

		if len(f.Result.Detections) == 0 && m.websocketService.GetClientCount() == 0 {
			return nil
		}

		annotated, err := ai.EncodeJPEG(f.Mat)
		if err != nil {
			m.logger.Warning("Frame %d of %s not encoded: %v", f.Result.Index, session.ID, err)
			return nil
		}
		m.publish(session, f.Result, annotated)
		return nil
	}
}

// publish sends the frame to viewers and keeps frames with detections as snapshots.
func (m *Manager) publish(session *report.Session, frame dto.FrameResult, annotated []byte) {
	if len(frame.Detections) > 0 {
		m.snapshotService.Add(session.ID, frame.Index, frame.Labels(), annotated)
	}

	if m.websocketService.GetClientCount() == 0 {
		return
	}
	m.websocketService.Broadcast(dto.FrameMessage{
		Session: session.ID,
		Source:  session.Source,
		Frame:   frame.Index,
		Image:   base64.StdEncoding.EncodeToString(annotated),
		Summary: report.FrameSummary(frame),
	})
}

// finish finalizes the session, writes the report file and indexes it.
func (m *Manager) finish(session *report.Session) (*dto.AnalysisResult, error) {
	r, err := session.Finalize(m.aggregator)
	if err != nil {
		return nil, err
	}

	path, err := m.writer.Write(r)
	if err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}
	m.logger.Info("📝 Report for session %s written to %s (%d detections)", session.ID, path, r.Total)

	info := dto.ReportInfo{
		Session:     r.Session,
		Filename:    filepath.Base(path),
		Source:      r.Source,
		Mode:        string(r.Mode),
		GeneratedAt: r.GeneratedAt,
		Total:       r.Total,
		Classes:     r.Classes,
		Text:        report.Render(r),
	}

	id, err := m.store(r, path, session.Results())
	if err != nil {
		m.logger.Error("Failed to index report %s: %v", info.Filename, err)
	} else {
		info.ID = id
	}

	m.snapshotService.Flush(session.ID)

	return &dto.AnalysisResult{Report: info, Frames: session.Frames()}, nil
}

func (m *Manager) store(r report.Report, path string, frames []dto.FrameResult) (int64, error) {
	if m.reportRepo == nil {
		return 0, nil
	}

	id, err := m.reportRepo.Insert(index.Record(r, path))
	if err != nil {
		return 0, err
	}

	if m.detectionRepo == nil || len(frames) == 0 {
		return id, nil
	}

	var detections []models.Detection
	for _, frame := range frames {
		for _, det := range frame.Detections {
			detections = append(detections, models.Detection{
				ReportID:   id,
				FrameIndex: frame.Index,
				Label:      det.Label,
				X:          det.X,
				Y:          det.Y,
				Width:      det.Width,
				Height:     det.Height,
				Confidence: det.Confidence,
			})
		}
	}
	if err := m.detectionRepo.InsertBatch(detections); err != nil {
		return id, fmt.Errorf("failed to save detections: %w", err)
	}
	return id, nil
}

func sessionInfo(session *report.Session) dto.SessionInfo {
	return dto.SessionInfo{
		ID:      session.ID,
		Source:  session.Source,
		Started: session.Started.Format(time.RFC3339),
		Frames:  session.Frames(),
		Total:   session.Total(),
		Classes: session.Classes(),
	}
}

// finishedSet remembers the last n ids; the oldest is forgotten first.
type finishedSet struct {
	ids   map[string]struct{}
	order []string
	limit int
}

func newFinishedSet(limit int) *finishedSet {
	if limit < 1 {
		limit = 1
	}
	return &finishedSet{ids: make(map[string]struct{}), limit: limit}
}

func (f *finishedSet) add(id string) {
	if _, ok := f.ids[id]; ok {
		return
	}
	if len(f.order) == f.limit {
		delete(f.ids, f.order[0])
		f.order = f.order[1:]
	}
	f.ids[id] = struct{}{}
	f.order = append(f.order, id)
}

func (f *finishedSet) has(id string) bool {
	_, ok := f.ids[id]
	return ok
}
