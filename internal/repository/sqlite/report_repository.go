package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"detectlab/internal/dto"
	"detectlab/internal/models"
)

// ReportRepository implements repository.ReportRepository for SQLite.
type ReportRepository struct {
	db *DB
}

// NewReportRepository creates a new SQLite report repository.
func NewReportRepository(db *DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Insert adds a report and its per-class counts in a single transaction.
func (r *ReportRepository) Insert(rep *models.Report) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO reports (session_id, filename, filepath, source, mode, generated_at, total)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rep.SessionID, rep.Filename, rep.FilePath, rep.Source, rep.Mode, rep.GeneratedAt, rep.Total)
	if err != nil {
		return 0, fmt.Errorf("failed to insert report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read report id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO report_classes (report_id, position, label, count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, c := range rep.Classes {
		if _, err := stmt.Exec(id, i, c.Label, c.Count); err != nil {
			return 0, fmt.Errorf("failed to insert class count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit report: %w", err)
	}

	rep.ID = id
	return id, nil
}

// GetByID retrieves a report by its ID.
func (r *ReportRepository) GetByID(id int64) (*models.Report, error) {
	return r.getOne(`WHERE id = ?`, id)
}

// GetByFilename retrieves a report by its filename.
func (r *ReportRepository) GetByFilename(filename string) (*models.Report, error) {
	return r.getOne(`WHERE filename = ?`, filename)
}

func (r *ReportRepository) getOne(where string, arg interface{}) (*models.Report, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var rep models.Report
	err := r.db.Conn().QueryRow(`
		SELECT id, session_id, filename, filepath, source, mode, generated_at, total
		FROM reports `+where, arg).Scan(&rep.ID, &rep.SessionID, &rep.Filename, &rep.FilePath,
		&rep.Source, &rep.Mode, &rep.GeneratedAt, &rep.Total)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	classes, err := r.loadClasses(rep.ID)
	if err != nil {
		return nil, err
	}
	rep.Classes = classes
	return &rep, nil
}

// buildWhere turns filter criteria into a WHERE clause and its arguments.
func buildWhere(filter *dto.ReportFilters) (string, []interface{}) {
	clauses := []string{"1=1"}
	args := []interface{}{}

	if filter == nil {
		return strings.Join(clauses, " AND "), args
	}

	if filter.Source != "" {
		clauses = append(clauses, "r.source LIKE ?")
		args = append(args, "%"+filter.Source+"%")
	}

	if filter.Mode != "" {
		clauses = append(clauses, "r.mode = ?")
		args = append(args, filter.Mode)
	}

	if filter.Label != "" {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM report_classes c WHERE c.report_id = r.id AND c.label = ?)")
		args = append(args, filter.Label)
	}

	if !filter.DateAfter.IsZero() {
		clauses = append(clauses, "DATE(r.generated_at) >= DATE(?)")
		args = append(args, filter.DateAfter.Format("2006-01-02"))
	}

	if !filter.DateBefore.IsZero() {
		clauses = append(clauses, "DATE(r.generated_at) <= DATE(?)")
		args = append(args, filter.DateBefore.Format("2006-01-02"))
	}

	return strings.Join(clauses, " AND "), args
}

// GetAll retrieves reports based on filter criteria, newest first.
func (r *ReportRepository) GetAll(filter *dto.ReportFilters) ([]models.Report, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildWhere(filter)
	query := `
		SELECT r.id, r.session_id, r.filename, r.filepath, r.source, r.mode, r.generated_at, r.total
		FROM reports r
		WHERE ` + where + `
		ORDER BY r.generated_at DESC, r.id DESC
	`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}

	var reports []models.Report
	for rows.Next() {
		var rep models.Report
		if err := rows.Scan(&rep.ID, &rep.SessionID, &rep.Filename, &rep.FilePath,
			&rep.Source, &rep.Mode, &rep.GeneratedAt, &rep.Total); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, rep)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}

	// Jedno połączenie - klasy dopiero po zamknięciu rows
	for i := range reports {
		classes, err := r.loadClasses(reports[i].ID)
		if err != nil {
			return nil, err
		}
		reports[i].Classes = classes
	}

	return reports, nil
}

// GetTotalCount returns the total count of reports matching the filter.
func (r *ReportRepository) GetTotalCount(filter *dto.ReportFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildWhere(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM reports r WHERE `+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}

	return count, nil
}

// loadClasses returns the per-class counts of a report in report order. Caller holds the lock.
func (r *ReportRepository) loadClasses(reportID int64) ([]models.ClassCount, error) {
	rows, err := r.db.Conn().Query(`
		SELECT label, count FROM report_classes WHERE report_id = ? ORDER BY position
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query classes: %w", err)
	}
	defer rows.Close()

	classes := []models.ClassCount{}
	for rows.Next() {
		var c models.ClassCount
		if err := rows.Scan(&c.Label, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		classes = append(classes, c)
	}

	return classes, rows.Err()
}

// GetSources returns a list of unique report sources.
func (r *ReportRepository) GetSources() ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT DISTINCT source FROM reports ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, source)
	}
	return sources, nil
}

// GetStats returns statistics about stored reports.
func (r *ReportRepository) GetStats() (*models.ReportStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &models.ReportStats{
		PerMode:     make(map[string]int),
		ClassTotals: []models.ClassCount{},
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*), COALESCE(SUM(total), 0) FROM reports`).
		Scan(&stats.TotalReports, &stats.TotalDetections); err != nil {
		return nil, err
	}

	rows, err := r.db.Conn().Query(`SELECT mode, COUNT(*) FROM reports GROUP BY mode`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var mode string
		var count int
		if err := rows.Scan(&mode, &count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.PerMode[mode] = count
	}
	rows.Close()

	// Najczęściej wykrywane klasy
	classRows, err := r.db.Conn().Query(`
		SELECT label, SUM(count) AS total
		FROM report_classes
		GROUP BY label
		ORDER BY total DESC, label
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer classRows.Close()

	for classRows.Next() {
		var c models.ClassCount
		if err := classRows.Scan(&c.Label, &c.Count); err != nil {
			return nil, err
		}
		stats.ClassTotals = append(stats.ClassTotals, c)
	}

	return stats, nil
}

// Delete removes a report by its ID.
func (r *ReportRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	return r.deleteByID(id)
}

func (r *ReportRepository) deleteByID(id int64) error {
	if _, err := r.db.Conn().Exec(`DELETE FROM detections WHERE report_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	if _, err := r.db.Conn().Exec(`DELETE FROM report_classes WHERE report_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete classes: %w", err)
	}
	if _, err := r.db.Conn().Exec(`DELETE FROM reports WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

// DeleteAll removes all reports with their classes and detections.
func (r *ReportRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	for _, table := range []string{"detections", "report_classes", "reports"} {
		if _, err := r.db.Conn().Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}
