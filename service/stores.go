package service

import (
	"context"

	"prism-backend/models"

	"github.com/google/uuid"
)

// DocumentStore is the subset of repository.DocumentRepository the services use
type DocumentStore interface {
	Create(ctx context.Context, doc *models.DocumentRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DocumentRecord, error)
	GetBySlug(ctx context.Context, slug string) (*models.DocumentRecord, error)
}

// SessionStore is the subset of repository.SessionRepository the services use
type SessionStore interface {
	Create(ctx context.Context, session *models.ReadingSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReadingSession, error)
	Touch(ctx context.Context, id uuid.UUID) error
}

// ExportJobStore is the subset of repository.ExportJobRepository the services use
type ExportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ExportJob, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ExportJobStatus) error
	UpdateSteps(ctx context.Context, id uuid.UUID, steps models.ExportSteps) error
	Complete(ctx context.Context, id uuid.UUID, storagePath string) error
	Fail(ctx context.Context, id uuid.UUID, errorMessage string) error
}
