package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pedalworks/bikefit/internal/models"
)

type ScanRepository struct {
	db *DB
}

func NewScanRepository(db *DB) *ScanRepository {
	return &ScanRepository{db: db}
}

func (r *ScanRepository) Insert(ctx context.Context, scan *models.Scan) error {
	query := r.db.bind(`INSERT INTO scans (uuid, person_uuid, created_at, status) VALUES (?, ?, ?, ?)`)

	_, err := r.db.conn.ExecContext(ctx, query, scan.UUID, scan.PersonUUID, scan.CreatedAt, string(scan.Status))
	if err != nil {
		return fmt.Errorf("failed to insert scan: %w", err)
	}
	return nil
}

func (r *ScanRepository) GetByUUID(ctx context.Context, uuid string) (*models.Scan, error) {
	query := r.db.bind(`SELECT uuid, person_uuid, created_at, status, saddle_x_cm, saddle_y_cm FROM scans WHERE uuid = ?`)

	var scan models.Scan
	var status string
	var x, y sql.NullFloat64
	err := r.db.conn.QueryRowContext(ctx, query, uuid).
		Scan(&scan.UUID, &scan.PersonUUID, &scan.CreatedAt, &status, &x, &y)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scan %s: %w", uuid, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}

	scan.Status = models.AnalysisStatus(status)
	if x.Valid && y.Valid {
		scan.Result = &models.SaddleAdjustment{SaddleXCM: x.Float64, SaddleYCM: y.Float64}
	}
	return &scan, nil
}

// SetStatus moves the scan's analysis status. Done rows are never moved
// again, so a late failure cannot clobber a stored result.
func (r *ScanRepository) SetStatus(ctx context.Context, uuid string, status models.AnalysisStatus) error {
	query := r.db.bind(`UPDATE scans SET status = ? WHERE uuid = ? AND status != ?`)

	_, err := r.db.conn.ExecContext(ctx, query, string(status), uuid, string(models.AnalysisDone))
	if err != nil {
		return fmt.Errorf("failed to set scan status: %w", err)
	}
	return nil
}

// SetResult writes the computed adjustment and marks the scan done. The
// status guard makes the terminal write exactly-once: a second analysis run
// for the same scan is a no-op.
func (r *ScanRepository) SetResult(ctx context.Context, uuid string, result models.SaddleAdjustment) error {
	query := r.db.bind(`UPDATE scans SET saddle_x_cm = ?, saddle_y_cm = ?, status = ? WHERE uuid = ? AND status != ?`)

	res, err := r.db.conn.ExecContext(ctx, query,
		result.SaddleXCM, result.SaddleYCM, string(models.AnalysisDone), uuid, string(models.AnalysisDone))
	if err != nil {
		return fmt.Errorf("failed to set scan result: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("scan %s already has a result or does not exist", uuid)
	}
	return nil
}
