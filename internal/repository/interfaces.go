package repository

import (
	"detectlab/internal/dto"
	"detectlab/internal/models"
)

// ReportRepository defines the interface for report data operations.
type ReportRepository interface {
	// Create operations
	Insert(rep *models.Report) (int64, error)

	// Read operations
	GetByID(id int64) (*models.Report, error)
	GetByFilename(filename string) (*models.Report, error)
	GetAll(filter *dto.ReportFilters) ([]models.Report, error)
	GetTotalCount(filter *dto.ReportFilters) (int, error)
	GetSources() ([]string, error)
	GetStats() (*models.ReportStats, error)

	// Delete operations
	Delete(id int64) error
	DeleteAll() error
}

// DetectionRepository defines the interface for detection data operations.
type DetectionRepository interface {
	// Create operations
	InsertBatch(detections []models.Detection) error

	// Read operations
	GetByReportID(reportID int64) ([]models.Detection, error)
	GetAllLabels() ([]string, error)
}
