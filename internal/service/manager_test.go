package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"detectlab/internal/config"
	"detectlab/internal/dto"
	"detectlab/internal/logger"
	"detectlab/internal/repository/sqlite"
	"detectlab/internal/service/report"
	"detectlab/internal/service/storage"
	"detectlab/internal/service/websocket"

	"gocv.io/x/gocv"
)

// fakeDetector returns the same detections for every frame.
type fakeDetector struct {
	detections []dto.Detection
}

func (f *fakeDetector) Detect(mat gocv.Mat) (dto.FrameResult, error) {
	return dto.FrameResult{Detections: append([]dto.Detection(nil), f.detections...)}, nil
}

func (f *fakeDetector) Annotate(mat *gocv.Mat, frame dto.FrameResult) error {
	return nil
}

func setupManager(t *testing.T, det *fakeDetector) (*Manager, *config.Config, *sqlite.ReportRepository, *sqlite.DetectionRepository) {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		ReportDirectory:       filepath.Join(dir, "reports"),
		SnapshotDirectory:     filepath.Join(dir, "snapshots"),
		SnapshotLimit:         5,
		SnapshotFlushInterval: 30,
		LogDirectory:          filepath.Join(dir, "logs"),
		ProcessingInterval:    1,
	}
	log := logger.NewLogger(cfg)
	t.Cleanup(func() { log.Close() })

	db, err := sqlite.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	reportRepo := sqlite.NewReportRepository(db)
	detectionRepo := sqlite.NewDetectionRepository(db)
	m := NewManager(det, storage.NewSnapshotService(cfg, log), websocket.NewHubService(log), reportRepo, detectionRepo, cfg, log)
	return m, cfg, reportRepo, detectionRepo
}

func testJPEG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for x := 0; x < 32; x++ {
		img.Set(x, 10, color.RGBA{R: 200, A: 255})
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestManager_AnalyzeImage(t *testing.T) {
	det := &fakeDetector{detections: []dto.Detection{
		{Label: "cat", Confidence: 0.91, Width: 5, Height: 5},
		{Label: "cat", Confidence: 0.85, Width: 5, Height: 5},
		{Label: "dog", Confidence: 0.77, Width: 5, Height: 5},
	}}
	m, cfg, reportRepo, detectionRepo := setupManager(t, det)

	result, err := m.AnalyzeImage("pets.jpg", testJPEG(t))
	if err != nil {
		t.Fatalf("AnalyzeImage failed: %v", err)
	}

	if result.Report.Total != 3 || result.Report.Mode != "batch" {
		t.Errorf("Unexpected report: %+v", result.Report)
	}
	if !strings.Contains(result.Report.Text, "cat : 2") || !strings.Contains(result.Report.Text, "dog : 1") {
		t.Errorf("Unexpected report text:\n%s", result.Report.Text)
	}
	if result.Image == "" {
		t.Error("Expected annotated image in result")
	}

	data, err := os.ReadFile(filepath.Join(cfg.ReportDirectory, result.Report.Filename))
	if err != nil {
		t.Fatalf("Report file not written: %v", err)
	}
	if string(data) != result.Report.Text {
		t.Error("Expected the file to hold the rendered report")
	}

	stored, err := reportRepo.GetByFilename(result.Report.Filename)
	if err != nil || stored == nil {
		t.Fatalf("Report not indexed: %v", err)
	}
	if stored.SessionID != result.Report.Session || stored.Total != 3 {
		t.Errorf("Unexpected stored report: %+v", stored)
	}

	detections, err := detectionRepo.GetByReportID(stored.ID)
	if err != nil {
		t.Fatalf("GetByReportID failed: %v", err)
	}
	if len(detections) != 3 {
		t.Errorf("Expected 3 stored detections, got %d", len(detections))
	}

	snapshots, _ := os.ReadDir(cfg.SnapshotDirectory)
	if len(snapshots) != 1 {
		t.Errorf("Expected 1 snapshot flushed at session end, got %d", len(snapshots))
	}
}

func TestManager_AnalyzeImage_NothingDetected(t *testing.T) {
	m, _, _, _ := setupManager(t, &fakeDetector{})

	result, err := m.AnalyzeImage("empty.jpg", testJPEG(t))
	if err != nil {
		t.Fatalf("AnalyzeImage failed: %v", err)
	}
	if result.Report.Total != 0 || !strings.Contains(result.Report.Text, report.NoObjectsText) {
		t.Errorf("Expected empty batch report, got:\n%s", result.Report.Text)
	}
}

func TestManager_AnalyzeImage_Undecodable(t *testing.T) {
	m, _, _, _ := setupManager(t, &fakeDetector{})

	if _, err := m.AnalyzeImage("junk.jpg", []byte("not an image")); err == nil {
		t.Error("Expected decode error")
	}
}

func TestManager_StopCameraTwice(t *testing.T) {
	m, cfg, _, _ := setupManager(t, &fakeDetector{})

	// Sesja na żywo bez kamery
	session := report.NewLiveSession("camera test")
	session.Observe(dto.FrameResult{Detections: []dto.Detection{{Label: "person"}, {Label: "person"}}})

	done := make(chan struct{})
	close(done)
	m.live[session.ID] = &liveSession{session: session, cancel: func() {}, done: done}

	if got := m.Sessions(); len(got) != 1 || got[0].Total != 2 || len(got[0].Classes) != 1 || got[0].Classes[0].Label != "person" {
		t.Fatalf("Expected one running session with 2 detections, got %+v", got)
	}

	result, err := m.StopCamera(session.ID)
	if err != nil {
		t.Fatalf("First stop failed: %v", err)
	}
	if result.Report.Mode != "live" || result.Report.Total != 2 {
		t.Errorf("Unexpected live report: %+v", result.Report)
	}

	if _, err := m.StopCamera(session.ID); !errors.Is(err, report.ErrSessionFinalized) {
		t.Errorf("Expected ErrSessionFinalized on second stop, got %v", err)
	}

	files, _ := os.ReadDir(cfg.ReportDirectory)
	if len(files) != 1 {
		t.Errorf("Expected exactly one report file, got %d", len(files))
	}

	if _, err := m.StopCamera("unknown"); !errors.Is(err, report.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_StopReportsRunningSessions(t *testing.T) {
	m, cfg, _, _ := setupManager(t, &fakeDetector{})

	for i := 0; i < 2; i++ {
		session := report.NewLiveSession("camera test")
		done := make(chan struct{})
		close(done)
		m.live[session.ID] = &liveSession{session: session, cancel: func() {}, done: done}
	}

	m.Stop()

	if len(m.Sessions()) != 0 {
		t.Error("Expected no running sessions after Stop")
	}
	files, _ := os.ReadDir(cfg.ReportDirectory)
	if len(files) != 2 {
		t.Errorf("Expected 2 report files, got %d", len(files))
	}
}

func TestManager_AnalyzeVideo_MissingFile(t *testing.T) {
	m, _, _, _ := setupManager(t, &fakeDetector{})

	if _, err := m.AnalyzeVideo(context.Background(), "missing.mp4", filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Error("Expected error for missing video")
	}
}

// writeTestVideo writes a short MJPG clip into the test's temp dir.
func writeTestVideo(t *testing.T, frames int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "street.avi")
	writer, err := gocv.VideoWriterFile(path, "MJPG", 10, 64, 48, true)
	if err != nil {
		t.Fatalf("Failed to create video writer: %v", err)
	}
	if !writer.IsOpened() {
		writer.Close()
		t.Skip("OpenCV cannot write MJPG video here")
	}

	for i := 0; i < frames; i++ {
		mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, float64(i*30), 120, 0), 48, 64, gocv.MatTypeCV8UC3)
		writer.Write(mat)
		mat.Close()
	}
	writer.Close()
	return path
}

func TestManager_AnalyzeVideo(t *testing.T) {
	det := &fakeDetector{detections: []dto.Detection{
		{Label: "car", Confidence: 0.8, Width: 4, Height: 4},
		{Label: "person", Confidence: 0.7, Width: 4, Height: 4},
	}}
	m, cfg, reportRepo, detectionRepo := setupManager(t, det)

	result, err := m.AnalyzeVideo(context.Background(), "street.avi", writeTestVideo(t, 4))
	if err != nil {
		t.Fatalf("AnalyzeVideo failed: %v", err)
	}

	if result.Frames != 4 || result.Report.Total != 8 {
		t.Errorf("Expected 4 frames and 8 detections, got %d frames, %d detections", result.Frames, result.Report.Total)
	}
	if !strings.Contains(result.Report.Text, "car : 4") || !strings.Contains(result.Report.Text, "person : 4") {
		t.Errorf("Unexpected report text:\n%s", result.Report.Text)
	}

	if _, err := os.Stat(filepath.Join(cfg.ReportDirectory, result.Report.Filename)); err != nil {
		t.Errorf("Report file not written: %v", err)
	}

	stored, err := reportRepo.GetByFilename(result.Report.Filename)
	if err != nil || stored == nil {
		t.Fatalf("Report not indexed: %v", err)
	}
	detections, _ := detectionRepo.GetByReportID(stored.ID)
	if len(detections) != 8 {
		t.Errorf("Expected 8 stored detections, got %d", len(detections))
	}
}

func TestManager_AnalyzeVideo_CancelledStillReports(t *testing.T) {
	det := &fakeDetector{detections: []dto.Detection{{Label: "car"}}}
	m, cfg, _, _ := setupManager(t, det)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := m.AnalyzeVideo(ctx, "street.avi", writeTestVideo(t, 4))
	if err != nil {
		t.Fatalf("AnalyzeVideo failed: %v", err)
	}
	if result.Frames != 0 || result.Report.Total != 0 {
		t.Errorf("Expected an empty report for a cancelled video, got %+v", result.Report)
	}

	files, _ := os.ReadDir(cfg.ReportDirectory)
	if len(files) != 1 {
		t.Errorf("Expected the partial report on disk, got %d files", len(files))
	}
}

func TestFinishedSet_ForgetsOldest(t *testing.T) {
	set := newFinishedSet(2)
	set.add("a")
	set.add("b")
	set.add("b")
	set.add("c")

	if set.has("a") {
		t.Error("Expected the oldest id to be forgotten")
	}
	if !set.has("b") || !set.has("c") {
		t.Error("Expected the two newest ids to be kept")
	}
	if len(set.order) != 2 || len(set.ids) != 2 {
		t.Errorf("Expected the set to stay at 2 entries, got %d/%d", len(set.order), len(set.ids))
	}
}
