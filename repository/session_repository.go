package repository

import (
	"context"

	"prism-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles database operations for reading sessions
type SessionRepository struct {
	db *pgxpool.Pool
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create creates a new reading session
func (r *SessionRepository) Create(ctx context.Context, session *models.ReadingSession) error {
	query := `
		INSERT INTO reading_sessions (id, document_id)
		VALUES ($1, $2)
		RETURNING created_at, updated_at`

	return r.db.QueryRow(ctx, query, session.ID, session.DocumentID).
		Scan(&session.CreatedAt, &session.UpdatedAt)
}

// GetByID retrieves a reading session by ID
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ReadingSession, error) {
	session := &models.ReadingSession{}
	query := `
		SELECT id, document_id, created_at, updated_at
		FROM reading_sessions
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.DocumentID,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}

	return session, nil
}

// Touch bumps updated_at after the reader changes the session
func (r *SessionRepository) Touch(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE reading_sessions SET updated_at = NOW() WHERE id = $1`, id)
	return err
}
