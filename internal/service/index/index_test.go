package index

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"detectlab/internal/dto"
	"detectlab/internal/repository/sqlite"
	"detectlab/internal/service/report"
)

func setupRepo(t *testing.T) *sqlite.ReportRepository {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlite.NewReportRepository(db)
}

func writeReport(t *testing.T, w *report.Writer, at time.Time, source string, labels ...string) string {
	t.Helper()

	agg := report.NewAggregator(func() time.Time { return at })
	var frame dto.FrameResult
	for _, l := range labels {
		frame.Detections = append(frame.Detections, dto.Detection{Label: l, Confidence: 0.5})
	}

	path, err := w.Write(agg.FromResults([]dto.FrameResult{frame}, source))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	return path
}

func TestDirectory(t *testing.T) {
	dir := t.TempDir()
	repo := setupRepo(t)
	w := report.NewWriter(dir)

	at := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	writeReport(t, w, at, "cats.jpg", "cat", "cat", "dog")
	writeReport(t, w, at.Add(time.Minute), "empty.jpg")

	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644)
	os.WriteFile(filepath.Join(dir, "report_20240601_120000.txt"), []byte("not a report"), 0644)

	result, err := Directory(dir, repo)
	if err != nil {
		t.Fatalf("Directory failed: %v", err)
	}

	if result.Indexed != 2 {
		t.Errorf("Expected 2 indexed reports, got %d", result.Indexed)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "report_20240601_120000.txt" {
		t.Errorf("Expected the malformed report to be skipped, got %v", result.Skipped)
	}

	reports, err := repo.GetAll(&dto.ReportFilters{Source: "cats"})
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("Expected 1 cats report, got %d", len(reports))
	}
	if reports[0].Total != 3 || len(reports[0].Classes) != 2 || reports[0].Classes[0].Label != "cat" {
		t.Errorf("Unexpected indexed report: %+v", reports[0])
	}
}

func TestDirectory_SecondRunFindsExisting(t *testing.T) {
	dir := t.TempDir()
	repo := setupRepo(t)
	writeReport(t, report.NewWriter(dir), time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC), "bus.jpg", "bus")

	if _, err := Directory(dir, repo); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	result, err := Directory(dir, repo)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if result.Indexed != 0 || result.Existing != 1 {
		t.Errorf("Expected 0 indexed / 1 existing, got %+v", result)
	}
}

func TestDirectory_MissingDir(t *testing.T) {
	if _, err := Directory(filepath.Join(t.TempDir(), "nope"), setupRepo(t)); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestRecord(t *testing.T) {
	r := report.Report{
		Session: "abc",
		Mode:    report.ModeLive,
		Source:  "camera 0",
		Total:   3,
		Classes: []dto.ClassCount{{Label: "person", Count: 3}},
	}

	rec := Record(r, "/tmp/reports/report_20240601_093000.txt")
	if rec.Filename != "report_20240601_093000.txt" || rec.Mode != "live" || rec.SessionID != "abc" {
		t.Errorf("Unexpected record: %+v", rec)
	}
	if len(rec.Classes) != 1 || rec.Classes[0].Count != 3 {
		t.Errorf("Unexpected classes: %+v", rec.Classes)
	}
}
