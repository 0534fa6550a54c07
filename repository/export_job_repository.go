package repository

import (
	"context"
	"time"

	"prism-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExportJobRepository handles database operations for export jobs
type ExportJobRepository struct {
	db *pgxpool.Pool
}

// NewExportJobRepository creates a new export job repository
func NewExportJobRepository(db *pgxpool.Pool) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create creates a new export job
func (r *ExportJobRepository) Create(ctx context.Context, job *models.ExportJob) error {
	query := `
		INSERT INTO export_jobs (
			id, session_id, document_id, format, status, steps,
			selection, share_token, document_fingerprint
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	return r.db.QueryRow(
		ctx, query,
		job.ID,
		job.SessionID,
		job.DocumentID,
		job.Format,
		job.Status,
		job.Steps,
		job.Selection,
		job.ShareToken,
		job.DocumentFingerprint,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
}

// GetByID retrieves an export job by ID
func (r *ExportJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ExportJob, error) {
	job := &models.ExportJob{}
	query := `
		SELECT id, session_id, document_id, format, status, steps, selection,
			share_token, document_fingerprint, storage_path, error_message,
			created_at, updated_at, completed_at
		FROM export_jobs
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.SessionID,
		&job.DocumentID,
		&job.Format,
		&job.Status,
		&job.Steps,
		&job.Selection,
		&job.ShareToken,
		&job.DocumentFingerprint,
		&job.StoragePath,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}

	if job.Steps == nil {
		job.Steps = make(models.ExportSteps, 0)
	}

	return job, nil
}

// UpdateStatus updates the status of an export job
func (r *ExportJobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ExportJobStatus) error {
	query := `
		UPDATE export_jobs SET
			status = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, status)
	return err
}

// UpdateSteps replaces the step list of an export job
func (r *ExportJobRepository) UpdateSteps(ctx context.Context, id uuid.UUID, steps models.ExportSteps) error {
	query := `
		UPDATE export_jobs SET
			steps = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, steps)
	return err
}

// Complete marks an export job as completed with its artifact path
func (r *ExportJobRepository) Complete(ctx context.Context, id uuid.UUID, storagePath string) error {
	now := time.Now()
	query := `
		UPDATE export_jobs SET
			status = $2,
			storage_path = $3,
			completed_at = $4,
			updated_at = $4
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.ExportStatusCompleted, storagePath, now)
	return err
}

// Fail marks an export job as failed
func (r *ExportJobRepository) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE export_jobs SET
			status = $2,
			error_message = $3,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.ExportStatusFailed, errorMessage)
	return err
}
