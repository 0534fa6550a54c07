package repository

import (
	"context"

	"prism-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentRepository handles database operations for registered documents
type DocumentRepository struct {
	db *pgxpool.Pool
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create creates a new document record
func (r *DocumentRepository) Create(ctx context.Context, doc *models.DocumentRecord) error {
	query := `
		INSERT INTO documents (
			id, slug, title, filename, mime_type, size, storage_path, fingerprint
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	return r.db.QueryRow(
		ctx, query,
		doc.ID,
		doc.Slug,
		doc.Title,
		doc.Filename,
		doc.MimeType,
		doc.Size,
		doc.StoragePath,
		doc.Fingerprint,
	).Scan(&doc.CreatedAt)
}

// GetByID retrieves a document record by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DocumentRecord, error) {
	query := `
		SELECT id, slug, title, filename, mime_type, size, storage_path, fingerprint, created_at
		FROM documents
		WHERE id = $1`

	return r.scanOne(ctx, query, id)
}

// GetBySlug retrieves the latest document record registered under a meta id
func (r *DocumentRepository) GetBySlug(ctx context.Context, slug string) (*models.DocumentRecord, error) {
	query := `
		SELECT id, slug, title, filename, mime_type, size, storage_path, fingerprint, created_at
		FROM documents
		WHERE slug = $1
		ORDER BY created_at DESC
		LIMIT 1`

	return r.scanOne(ctx, query, slug)
}

// List retrieves all document records, newest first
func (r *DocumentRepository) List(ctx context.Context) ([]*models.DocumentRecord, error) {
	query := `
		SELECT id, slug, title, filename, mime_type, size, storage_path, fingerprint, created_at
		FROM documents
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.DocumentRecord
	for rows.Next() {
		doc := &models.DocumentRecord{}
		err := rows.Scan(
			&doc.ID,
			&doc.Slug,
			&doc.Title,
			&doc.Filename,
			&doc.MimeType,
			&doc.Size,
			&doc.StoragePath,
			&doc.Fingerprint,
			&doc.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// Delete deletes a document record
func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	return err
}

func (r *DocumentRepository) scanOne(ctx context.Context, query string, arg any) (*models.DocumentRecord, error) {
	doc := &models.DocumentRecord{}
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&doc.ID,
		&doc.Slug,
		&doc.Title,
		&doc.Filename,
		&doc.MimeType,
		&doc.Size,
		&doc.StoragePath,
		&doc.Fingerprint,
		&doc.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return doc, nil
}
