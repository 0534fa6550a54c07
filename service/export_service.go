package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"prism-backend/engine"
	"prism-backend/metrics"
	"prism-backend/models"
	"prism-backend/repository"
	"prism-backend/storage"
	"prism-backend/tei"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SnapshotSource hands out consistent copies of reading sessions
type SnapshotSource interface {
	Snapshot(ctx context.Context, sessionID uuid.UUID) (*SessionSnapshot, error)
}

// ExportService renders readings into stored artifacts as background jobs
type ExportService struct {
	jobRepo   ExportJobStore
	snapshots SnapshotSource
	docs      DocumentLoader
	storage   storage.Storage
	logger    *zap.Logger
}

// ExportServiceOption is a functional option for ExportService
type ExportServiceOption func(*ExportService)

// WithExportJobStore sets the export job repository
func WithExportJobStore(repo ExportJobStore) ExportServiceOption {
	return func(s *ExportService) {
		s.jobRepo = repo
	}
}

// WithSnapshotSource sets where session state is read from
func WithSnapshotSource(src SnapshotSource) ExportServiceOption {
	return func(s *ExportService) {
		s.snapshots = src
	}
}

// WithExportDocumentLoader sets where documents are reloaded from when a job runs
func WithExportDocumentLoader(docs DocumentLoader) ExportServiceOption {
	return func(s *ExportService) {
		s.docs = docs
	}
}

// WithExportStorage sets the blob storage for artifacts
func WithExportStorage(st storage.Storage) ExportServiceOption {
	return func(s *ExportService) {
		s.storage = st
	}
}

// WithExportLogger sets the logger
func WithExportLogger(logger *zap.Logger) ExportServiceOption {
	return func(s *ExportService) {
		s.logger = logger
	}
}

// NewExportService creates a new export service
func NewExportService(opts ...ExportServiceOption) *ExportService {
	s := &ExportService{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const (
	stepApparatus = "Building Apparatus"
	stepRender    = "Rendering TEI"
	stepUpload    = "Storing Artifact"
)

// CreateExportRequest represents a request to export a session's reading
type CreateExportRequest struct {
	SessionID uuid.UUID
	Format    models.ExportFormat
}

// CreateExportResult represents the result of creating an export job
type CreateExportResult struct {
	JobID uuid.UUID
}

// CreateExport snapshots the session and queues an export job. It returns
// immediately; the caller runs ProcessExport in the background.
func (s *ExportService) CreateExport(
	ctx context.Context,
	req CreateExportRequest,
) (*CreateExportResult, error) {
	if s.jobRepo == nil {
		return nil, errors.New("export job repository not set")
	}
	if s.snapshots == nil {
		return nil, errors.New("snapshot source not set")
	}

	format := req.Format
	if format == "" {
		format = models.ExportFormatTEI
	}
	if format != models.ExportFormatTEI {
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}

	snap, err := s.snapshots.Snapshot(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	job := &models.ExportJob{
		ID:                  uuid.New(),
		SessionID:           snap.SessionID,
		DocumentID:          snap.Document.Record.ID,
		Format:              format,
		Status:              models.ExportStatusPending,
		Steps:               initializeExportSteps(),
		Selection:           snap.Selection,
		ShareToken:          snap.Token,
		DocumentFingerprint: snap.Document.Fingerprint,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		s.logger.Error("export job not created",
			zap.String("session_id", req.SessionID.String()),
			zap.Error(err),
		)
		return nil, ErrJobCreationFailed
	}
	metrics.ExportJobs.WithLabelValues(string(models.ExportStatusPending)).Inc()

	return &CreateExportResult{JobID: job.ID}, nil
}

// GetExportStatusRequest represents a request to get job status
type GetExportStatusRequest struct {
	JobID uuid.UUID
}

// GetExportStatusResult represents the result of getting job status
type GetExportStatusResult struct {
	Job *models.ExportJob
}

// GetExportStatus retrieves an export job
func (s *ExportService) GetExportStatus(
	ctx context.Context,
	req GetExportStatusRequest,
) (*GetExportStatusResult, error) {
	if s.jobRepo == nil {
		return nil, errors.New("export job repository not set")
	}

	job, err := s.jobRepo.GetByID(ctx, req.JobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExportNotFound
		}
		return nil, err
	}

	return &GetExportStatusResult{Job: job}, nil
}

// Artifact is an open export artifact. The caller closes Body.
type Artifact struct {
	Filename    string
	ContentType string
	Body        io.ReadCloser
}

// OpenArtifact opens the stored artifact of a completed job
func (s *ExportService) OpenArtifact(ctx context.Context, jobID uuid.UUID) (*Artifact, error) {
	res, err := s.GetExportStatus(ctx, GetExportStatusRequest{JobID: jobID})
	if err != nil {
		return nil, err
	}
	job := res.Job
	if job.Status != models.ExportStatusCompleted || job.StoragePath == nil {
		return nil, ErrExportNotReady
	}
	if s.storage == nil {
		return nil, errors.New("storage not set")
	}

	body, err := s.storage.Download(ctx, *job.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	filename := artifactFilename(job)
	return &Artifact{
		Filename:    filename,
		ContentType: storage.ContentType(filename),
		Body:        body,
	}, nil
}

// ProcessExport builds and stores the artifact for a job.
// It runs in a goroutine; failures are recorded on the job.
func (s *ExportService) ProcessExport(ctx context.Context, jobID uuid.UUID) error {
	if s.jobRepo == nil {
		return errors.New("export job repository not set")
	}
	if s.docs == nil {
		return errors.New("document loader not set")
	}
	if s.storage == nil {
		return errors.New("storage not set")
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load export job: %w", err)
	}

	if err := s.jobRepo.UpdateStatus(ctx, jobID, models.ExportStatusInProgress); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	doc, err := s.docs.Load(ctx, job.DocumentID)
	if err != nil {
		s.markJobFailed(ctx, jobID, "failed to load document: "+err.Error())
		return err
	}
	if doc.Fingerprint != job.DocumentFingerprint {
		s.logger.Warn("document changed since export was requested",
			zap.String("job_id", jobID.String()),
			zap.String("requested_fingerprint", job.DocumentFingerprint),
			zap.String("fingerprint", doc.Fingerprint),
		)
	}

	if err := s.updateStepStatus(ctx, job, stepApparatus, "in_progress"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}
	apparatus := engine.Apparatus(doc.Document, job.Selection)
	if err := s.updateStepStatus(ctx, job, stepApparatus, "completed"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	if err := s.updateStepStatus(ctx, job, stepRender, "in_progress"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}
	rendered, err := tei.RenderBytes(doc.Document.Meta.ID, apparatus)
	if err != nil {
		s.markJobFailed(ctx, jobID, "failed to render TEI: "+err.Error())
		return fmt.Errorf("failed to render TEI: %w", err)
	}
	if err := s.updateStepStatus(ctx, job, stepRender, "completed"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	if err := s.updateStepStatus(ctx, job, stepUpload, "in_progress"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}
	storagePath, err := s.storage.Upload(ctx, storage.KindExport, job.ID, artifactFilename(job), bytes.NewReader(rendered))
	if err != nil {
		s.markJobFailed(ctx, jobID, "failed to store artifact: "+err.Error())
		return fmt.Errorf("failed to store artifact: %w", err)
	}
	if err := s.updateStepStatus(ctx, job, stepUpload, "completed"); err != nil {
		s.markJobFailed(ctx, jobID, "failed to update step: "+err.Error())
		return err
	}

	if err := s.jobRepo.Complete(ctx, jobID, storagePath); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	metrics.ExportJobs.WithLabelValues(string(models.ExportStatusCompleted)).Inc()
	s.logger.Info("export completed",
		zap.String("job_id", jobID.String()),
		zap.String("storage_path", storagePath),
		zap.Int("lines", len(apparatus)),
	)

	return nil
}

func initializeExportSteps() models.ExportSteps {
	return models.ExportSteps{
		{Name: stepApparatus, Status: "pending"},
		{Name: stepRender, Status: "pending"},
		{Name: stepUpload, Status: "pending"},
	}
}

// updateStepStatus sets one step's status on the local job copy and stores the step list
func (s *ExportService) updateStepStatus(ctx context.Context, job *models.ExportJob, stepName, status string) error {
	for i := range job.Steps {
		if job.Steps[i].Name == stepName {
			job.Steps[i].Status = status
			break
		}
	}
	return s.jobRepo.UpdateSteps(ctx, job.ID, job.Steps)
}

// markJobFailed marks a job as failed with an error message
func (s *ExportService) markJobFailed(ctx context.Context, jobID uuid.UUID, errorMessage string) {
	metrics.ExportJobs.WithLabelValues(string(models.ExportStatusFailed)).Inc()
	s.logger.Error("export failed",
		zap.String("job_id", jobID.String()),
		zap.String("error", errorMessage),
	)
	if err := s.jobRepo.Fail(ctx, jobID, errorMessage); err != nil {
		s.logger.Error("failed to record export failure",
			zap.String("job_id", jobID.String()),
			zap.Error(err),
		)
	}
}

func artifactFilename(job *models.ExportJob) string {
	return "reading-" + job.SessionID.String()[:8] + ".xml"
}
