package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"prism-backend/engine"
	"prism-backend/metrics"
	"prism-backend/models"
	"prism-backend/repository"
	"prism-backend/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// LoadedDocument is a sanitized document ready for the engine
type LoadedDocument struct {
	Record      *models.DocumentRecord
	Document    models.Document
	Anomalies   []engine.Anomaly
	Fingerprint string
}

// DocumentService registers document sources and loads them for reading sessions
type DocumentService struct {
	docRepo DocumentStore
	storage storage.Storage
	logger  *zap.Logger

	group singleflight.Group
	mu    sync.RWMutex
	cache map[uuid.UUID]*LoadedDocument
}

// DocumentServiceOption is a functional option for DocumentService
type DocumentServiceOption func(*DocumentService)

// WithDocumentStore sets the document repository
func WithDocumentStore(repo DocumentStore) DocumentServiceOption {
	return func(s *DocumentService) {
		s.docRepo = repo
	}
}

// WithDocumentStorage sets the blob storage holding document sources
func WithDocumentStorage(st storage.Storage) DocumentServiceOption {
	return func(s *DocumentService) {
		s.storage = st
	}
}

// WithDocumentLogger sets the logger
func WithDocumentLogger(logger *zap.Logger) DocumentServiceOption {
	return func(s *DocumentService) {
		s.logger = logger
	}
}

// NewDocumentService creates a new document service
func NewDocumentService(opts ...DocumentServiceOption) *DocumentService {
	s := &DocumentService{
		logger: zap.NewNop(),
		cache:  make(map[uuid.UUID]*LoadedDocument),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterDocumentRequest represents a request to register a document source
type RegisterDocumentRequest struct {
	Filename string
	MimeType string
	Data     []byte
}

// RegisterDocumentResult represents the result of registering a document
type RegisterDocumentResult struct {
	Record    *models.DocumentRecord
	Anomalies []engine.Anomaly
}

// RegisterDocument validates a document source, stores it and records it
func (s *DocumentService) RegisterDocument(
	ctx context.Context,
	req RegisterDocumentRequest,
) (*RegisterDocumentResult, error) {
	if s.docRepo == nil {
		return nil, errors.New("document repository not set")
	}
	if s.storage == nil {
		return nil, errors.New("storage not set")
	}

	format, err := engine.FormatFromFilename(req.Filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	parsed, err := engine.ParseDocument(req.Data, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	doc, anomalies := engine.Sanitize(parsed)
	fingerprint, err := engine.Fingerprint(doc)
	if err != nil {
		return nil, err
	}

	record := &models.DocumentRecord{
		ID:          uuid.New(),
		Slug:        documentSlug(doc, req.Filename),
		Title:       doc.Meta.Title,
		Filename:    req.Filename,
		MimeType:    req.MimeType,
		Size:        int64(len(req.Data)),
		Fingerprint: fingerprint,
	}
	if record.MimeType == "" {
		record.MimeType = storage.ContentType(req.Filename)
	}

	storagePath, err := s.storage.Upload(ctx, storage.KindDocument, record.ID, req.Filename, bytes.NewReader(req.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	record.StoragePath = storagePath

	if err := s.docRepo.Create(ctx, record); err != nil {
		// best effort cleanup
		_ = s.storage.Delete(ctx, storagePath)
		return nil, fmt.Errorf("failed to record document: %w", err)
	}

	s.reportAnomalies(record, anomalies)
	s.logger.Info("document registered",
		zap.String("document_id", record.ID.String()),
		zap.String("slug", record.Slug),
		zap.Int("choices", len(doc.Target.Choices)),
		zap.Int("anomalies", len(anomalies)),
	)

	s.mu.Lock()
	s.cache[record.ID] = &LoadedDocument{
		Record:      record,
		Document:    doc,
		Anomalies:   anomalies,
		Fingerprint: fingerprint,
	}
	s.mu.Unlock()

	return &RegisterDocumentResult{
		Record:    record,
		Anomalies: anomalies,
	}, nil
}

// GetDocumentRequest represents a request to fetch a document
type GetDocumentRequest struct {
	DocumentID uuid.UUID
}

// GetDocumentResult represents the result of fetching a document
type GetDocumentResult struct {
	Document *LoadedDocument
}

// GetDocument returns the sanitized document and its anomalies
func (s *DocumentService) GetDocument(
	ctx context.Context,
	req GetDocumentRequest,
) (*GetDocumentResult, error) {
	doc, err := s.Load(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}
	return &GetDocumentResult{Document: doc}, nil
}

// ResolveID accepts either a document UUID or the slug it was registered under
func (s *DocumentService) ResolveID(ctx context.Context, ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	if s.docRepo == nil {
		return uuid.Nil, errors.New("document repository not set")
	}
	record, err := s.docRepo.GetBySlug(ctx, ref)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return uuid.Nil, ErrDocumentNotFound
		}
		return uuid.Nil, err
	}
	return record.ID, nil
}

// Load returns a sanitized document, fetching it from storage at most once
// no matter how many sessions ask for it concurrently.
// Failure to fetch or parse is terminal: no partial document is returned.
func (s *DocumentService) Load(ctx context.Context, id uuid.UUID) (*LoadedDocument, error) {
	s.mu.RLock()
	cached, ok := s.cache[id]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(id.String(), func() (interface{}, error) {
		s.mu.RLock()
		cached, ok := s.cache[id]
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}
		// shared by every waiter, so one caller going away must not fail the rest
		return s.fetch(context.WithoutCancel(ctx), id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*LoadedDocument), nil
}

func (s *DocumentService) fetch(ctx context.Context, id uuid.UUID) (*LoadedDocument, error) {
	if s.docRepo == nil {
		return nil, errors.New("document repository not set")
	}
	if s.storage == nil {
		return nil, errors.New("storage not set")
	}

	record, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrDocumentUnavailable, err)
	}

	data, err := s.download(ctx, record.StoragePath)
	if err != nil {
		s.logger.Error("document fetch failed",
			zap.String("document_id", id.String()),
			zap.String("storage_path", record.StoragePath),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrDocumentUnavailable, err)
	}

	format, err := engine.FormatFromFilename(record.Filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentUnavailable, err)
	}
	parsed, err := engine.ParseDocument(data, format)
	if err != nil {
		s.logger.Error("document parse failed",
			zap.String("document_id", id.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrDocumentUnavailable, err)
	}

	doc, anomalies := engine.Sanitize(parsed)
	fingerprint, err := engine.Fingerprint(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocumentUnavailable, err)
	}
	if record.Fingerprint != "" && record.Fingerprint != fingerprint {
		s.logger.Warn("document changed since registration; shared tokens may be stale",
			zap.String("document_id", id.String()),
			zap.String("registered_fingerprint", record.Fingerprint),
			zap.String("fingerprint", fingerprint),
		)
	}
	s.reportAnomalies(record, anomalies)

	loaded := &LoadedDocument{
		Record:      record,
		Document:    doc,
		Anomalies:   anomalies,
		Fingerprint: fingerprint,
	}

	s.mu.Lock()
	s.cache[id] = loaded
	s.mu.Unlock()

	return loaded, nil
}

func (s *DocumentService) download(ctx context.Context, storagePath string) ([]byte, error) {
	r, err := s.storage.Download(ctx, storagePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Invalidate drops a cached document so the next Load refetches it
func (s *DocumentService) Invalidate(id uuid.UUID) {
	s.mu.Lock()
	delete(s.cache, id)
	s.mu.Unlock()
}

func (s *DocumentService) reportAnomalies(record *models.DocumentRecord, anomalies []engine.Anomaly) {
	for _, a := range anomalies {
		metrics.DocumentAnomalies.WithLabelValues(anomalyKind(a.Field)).Inc()
		s.logger.Warn("document anomaly",
			zap.String("document_id", record.ID.String()),
			zap.Int("line", a.Line),
			zap.String("field", a.Field),
			zap.String("message", a.Message),
		)
	}
}

// anomalyKind strips list indices from a field path so metric labels stay bounded
func anomalyKind(field string) string {
	var b strings.Builder
	skipping := false
	for _, r := range field {
		switch {
		case r == '[':
			skipping = true
		case r == ']':
			skipping = false
		case !skipping:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func documentSlug(doc models.Document, filename string) string {
	if doc.Meta.ID != "" {
		return doc.Meta.ID
	}
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
