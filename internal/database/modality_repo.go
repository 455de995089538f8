package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pedalworks/bikefit/internal/models"
)

type ModalityRepository struct {
	db *DB
}

func NewModalityRepository(db *DB) *ModalityRepository {
	return &ModalityRepository{db: db}
}

// Ensure creates the (scan, modality) row with status new if it does not
// exist yet. Safe to call on every upload.
func (r *ModalityRepository) Ensure(ctx context.Context, scanUUID string, modality models.Modality) error {
	var query string
	if r.db.dbType == "postgres" {
		query = `INSERT INTO modalities (scan_uuid, modality, status) VALUES ($1, $2, $3)
			ON CONFLICT (scan_uuid, modality) DO NOTHING`
	} else {
		query = `INSERT OR IGNORE INTO modalities (scan_uuid, modality, status) VALUES (?, ?, ?)`
	}

	_, err := r.db.conn.ExecContext(ctx, query, scanUUID, string(modality), string(models.StatusNew))
	if err != nil {
		return fmt.Errorf("failed to ensure modality: %w", err)
	}
	return nil
}

// MarkDone stores the worker payload and flips the modality to done.
// Re-marking a done modality keeps the first payload; status is monotonic.
func (r *ModalityRepository) MarkDone(ctx context.Context, scanUUID string, modality models.Modality, payload []byte) error {
	query := r.db.bind(`UPDATE modalities SET status = ?, payload = ?
		WHERE scan_uuid = ? AND modality = ? AND status != ?`)

	res, err := r.db.conn.ExecContext(ctx, query,
		string(models.StatusDone), string(payload), scanUUID, string(modality), string(models.StatusDone))
	if err != nil {
		return fmt.Errorf("failed to mark modality done: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check modality update: %w", err)
	}
	if n == 0 {
		// Either already done (idempotent no-op) or the row is missing.
		status, err := r.Status(ctx, scanUUID, modality)
		if err != nil {
			return err
		}
		if status != models.StatusDone {
			return fmt.Errorf("modality %s/%s not updatable", scanUUID, modality)
		}
	}
	return nil
}

func (r *ModalityRepository) Status(ctx context.Context, scanUUID string, modality models.Modality) (models.Status, error) {
	query := r.db.bind(`SELECT status FROM modalities WHERE scan_uuid = ? AND modality = ?`)

	var status string
	err := r.db.conn.QueryRowContext(ctx, query, scanUUID, string(modality)).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("modality %s/%s: %w", scanUUID, modality, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get modality status: %w", err)
	}
	return models.Status(status), nil
}

// Statuses returns the photo and video statuses for a scan. A modality with
// no row yet reports as new.
func (r *ModalityRepository) Statuses(ctx context.Context, scanUUID string) (photo, video models.Status, err error) {
	query := r.db.bind(`SELECT modality, status FROM modalities WHERE scan_uuid = ?`)

	rows, err := r.db.conn.QueryContext(ctx, query, scanUUID)
	if err != nil {
		return "", "", fmt.Errorf("failed to get modality statuses: %w", err)
	}
	defer rows.Close()

	photo, video = models.StatusNew, models.StatusNew
	for rows.Next() {
		var modality, status string
		if err := rows.Scan(&modality, &status); err != nil {
			return "", "", fmt.Errorf("failed to scan modality status: %w", err)
		}
		switch models.Modality(modality) {
		case models.ModalityPhoto:
			photo = models.Status(status)
		case models.ModalityVideo:
			video = models.Status(status)
		}
	}
	return photo, video, rows.Err()
}

func (r *ModalityRepository) Payload(ctx context.Context, scanUUID string, modality models.Modality) ([]byte, error) {
	query := r.db.bind(`SELECT payload FROM modalities WHERE scan_uuid = ? AND modality = ?`)

	var payload sql.NullString
	err := r.db.conn.QueryRowContext(ctx, query, scanUUID, string(modality)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("modality %s/%s: %w", scanUUID, modality, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get modality payload: %w", err)
	}
	if !payload.Valid {
		return nil, nil
	}
	return []byte(payload.String), nil
}
