package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"detectlab/internal/config"
	"detectlab/internal/dto"
	"detectlab/internal/logger"
	"detectlab/internal/models"
	"detectlab/internal/repository/sqlite"
)

// ========================================
// Test Setup Helpers
// ========================================

type fakeAnalyzer struct {
	imageSource string
	imageData   []byte
	videoPath   string
	videoData   []byte
	device      string
	stopErr     error
	err         error
}

func (f *fakeAnalyzer) AnalyzeImage(source string, data []byte) (*dto.AnalysisResult, error) {
	f.imageSource = source
	f.imageData = data
	if f.err != nil {
		return nil, f.err
	}
	return &dto.AnalysisResult{
		Report: dto.ReportInfo{Filename: "report_20240101_120000.txt", Source: source, Mode: "batch", Total: 2},
		Frames: 1,
		Image:  "aGVsbG8=",
	}, nil
}

func (f *fakeAnalyzer) AnalyzeVideo(ctx context.Context, source, path string) (*dto.AnalysisResult, error) {
	f.videoPath = path
	f.videoData, _ = os.ReadFile(path)
	if f.err != nil {
		return nil, f.err
	}
	return &dto.AnalysisResult{Report: dto.ReportInfo{Source: source, Mode: "batch"}, Frames: 30}, nil
}

func (f *fakeAnalyzer) StartCamera(device string) (dto.SessionInfo, error) {
	f.device = device
	if f.err != nil {
		return dto.SessionInfo{}, f.err
	}
	return dto.SessionInfo{ID: "s1", Source: "camera " + device}, nil
}

func (f *fakeAnalyzer) StopCamera(id string) (*dto.AnalysisResult, error) {
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	return &dto.AnalysisResult{Report: dto.ReportInfo{Session: id, Mode: "live"}}, nil
}

func (f *fakeAnalyzer) Sessions() []dto.SessionInfo {
	return []dto.SessionInfo{{ID: "s1"}}
}

func setupTestDB(t *testing.T) (*sqlite.DB, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "handler_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	db, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("Failed to create test database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tempDir)
	}

	return db, cleanup
}

func setupTestConfig(t *testing.T) (*config.Config, *logger.Logger) {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Password:        "secret",
		ReportDirectory: filepath.Join(dir, "reports"),
		UploadDirectory: filepath.Join(dir, "uploads"),
		LogDirectory:    filepath.Join(dir, "logs"),
		CameraDevice:    "0",
	}
	if err := os.MkdirAll(cfg.ReportDirectory, 0755); err != nil {
		t.Fatalf("Failed to create report dir: %v", err)
	}

	log := logger.NewLogger(cfg)
	t.Cleanup(func() { log.Close() })
	return cfg, log
}

func multipartRequest(t *testing.T, url, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		part.Write(content)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func storedReport(filename, source, mode string, generated time.Time, classes ...models.ClassCount) *models.Report {
	total := 0
	for _, c := range classes {
		total += c.Count
	}
	return &models.Report{
		SessionID:   "session-" + filename,
		Filename:    filename,
		FilePath:    "/reports/" + filename,
		Source:      source,
		Mode:        mode,
		GeneratedAt: generated,
		Total:       total,
		Classes:     classes,
	}
}

// ========================================
// Helper Function Tests
// ========================================

func TestAtoiDefault(t *testing.T) {
	tests := []struct {
		input    string
		def      int
		expected int
	}{
		{"10", 5, 10},
		{"1", 0, 1},
		{"", 5, 5},
		{"abc", 10, 10},
		{"-1", 5, 5},
		{"0", 5, 5},
		{"12.5", 5, 5},
	}

	for _, tt := range tests {
		result := atoiDefault(tt.input, tt.def)
		if result != tt.expected {
			t.Errorf("atoiDefault(%q, %d) = %d, expected %d", tt.input, tt.def, result, tt.expected)
		}
	}
}

func TestParseDate(t *testing.T) {
	got := parseDate("2024-03-15")
	if got.Year() != 2024 || got.Month() != time.March || got.Day() != 15 {
		t.Errorf("Unexpected date: %v", got)
	}

	for _, input := range []string{"", "15-03-2024", "garbage"} {
		if !parseDate(input).IsZero() {
			t.Errorf("Expected zero time for %q", input)
		}
	}
}
