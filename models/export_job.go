package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExportJobStatus represents the status of an export job
type ExportJobStatus string

const (
	ExportStatusPending    ExportJobStatus = "pending"
	ExportStatusInProgress ExportJobStatus = "in_progress"
	ExportStatusCompleted  ExportJobStatus = "completed"
	ExportStatusFailed     ExportJobStatus = "failed"
)

// ExportFormat names the artifact an export job produces
type ExportFormat string

const (
	ExportFormatTEI ExportFormat = "tei"
)

// ExportStep represents a step in the export process
type ExportStep struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "pending", "in_progress", "completed", "failed"
}

// ExportSteps represents a list of export steps
type ExportSteps []ExportStep

// Value implements driver.Valuer for JSONB
func (e ExportSteps) Value() (driver.Value, error) {
	return json.Marshal(e)
}

// Scan implements sql.Scanner for JSONB
func (e *ExportSteps) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*e = make(ExportSteps, 0)
		return nil
	}

	if len(bytes) == 0 {
		*e = make(ExportSteps, 0)
		return nil
	}

	return json.Unmarshal(bytes, e)
}

// ExportJob is a request to render the reader's apparatus into a stored artifact.
// Selection is a snapshot taken when the job was created.
type ExportJob struct {
	ID                  uuid.UUID       `json:"id"`
	SessionID           uuid.UUID       `json:"session_id"`
	DocumentID          uuid.UUID       `json:"document_id"`
	Format              ExportFormat    `json:"format"`
	Status              ExportJobStatus `json:"status"`
	Steps               ExportSteps     `json:"steps"`
	Selection           Selection       `json:"selection"`
	ShareToken          string          `json:"share_token"`
	DocumentFingerprint string          `json:"document_fingerprint"`
	StoragePath         *string         `json:"storage_path,omitempty"`
	ErrorMessage        *string         `json:"error_message,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	CompletedAt         *time.Time      `json:"completed_at,omitempty"`
}
