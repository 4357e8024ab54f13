// Package index keeps the report database in step with the report files on disk.
package index

import (
	"fmt"
	"os"
	"path/filepath"

	"detectlab/internal/models"
	"detectlab/internal/repository"
	"detectlab/internal/service/report"
)

// Result counts what Directory did.
type Result struct {
	Indexed  int
	Existing int
	Skipped  []string // pliki, których nie dało się odczytać
}

// Record converts a report written to path into a database record.
func Record(r report.Report, path string) *models.Report {
	rec := &models.Report{
		SessionID:   r.Session,
		Filename:    filepath.Base(path),
		FilePath:    path,
		Source:      r.Source,
		Mode:        string(r.Mode),
		GeneratedAt: r.GeneratedAt,
		Total:       r.Total,
	}
	for _, c := range r.Classes {
		rec.Classes = append(rec.Classes, models.ClassCount{Label: c.Label, Count: c.Count})
	}
	return rec
}

// Directory parses every report_*.txt in dir and inserts the ones the repository does not know yet.
// Files that are not reports are ignored; unreadable reports are listed in Result.Skipped.
func Directory(dir string, repo repository.ReportRepository) (Result, error) {
	var result Result

	files, err := os.ReadDir(dir)
	if err != nil {
		return result, fmt.Errorf("failed to read report directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if _, err := report.ParseFilename(file.Name()); err != nil {
			continue
		}

		existing, err := repo.GetByFilename(file.Name())
		if err != nil {
			return result, err
		}
		if existing != nil {
			result.Existing++
			continue
		}

		path := filepath.Join(dir, file.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			result.Skipped = append(result.Skipped, file.Name())
			continue
		}

		r, err := report.Parse(string(data))
		if err != nil {
			result.Skipped = append(result.Skipped, file.Name())
			continue
		}

		if _, err := repo.Insert(Record(r, path)); err != nil {
			return result, fmt.Errorf("failed to index %s: %w", file.Name(), err)
		}
		result.Indexed++
	}

	return result, nil
}
