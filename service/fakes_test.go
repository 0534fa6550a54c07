package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"prism-backend/models"
	"prism-backend/repository"
	"prism-backend/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const poemJSON = `{
  "meta": {"id": "jingyesi", "title": "Quiet Night Thought", "author": "Li Bai"},
  "source": {"lines": [
    {"text": "床前明月光", "pinyin": "chuáng qián míng yuè guāng"},
    {"text": "疑是地上霜"},
    {"text": "举头望明月"},
    {"text": "低头思故乡"}
  ]},
  "target": {
    "surfaceLines": [
      "Before my bed, the bright moonlight",
      "I take it for frost upon the ground",
      "I raise my head to gaze at the bright moon",
      "I lower my head and think of home"
    ],
    "choices": [
      {
        "line": 0,
        "selected": 0,
        "stakes": "The opening image sets up the moon parallel in line 3.",
        "dependencies": [{"affectsLine": 2, "delta": -2}],
        "alternatives": [
          {"text": "Before my bed, the bright moonlight",
           "weights": {"literal": 0.8, "natural": 0.5, "foreignizing": 0.4},
           "chips": ["imagery", "literal order"]},
          {"text": "Moonlight pools beside my bed",
           "weights": {"literal": 0.3, "natural": 0.9, "foreignizing": 0.1},
           "chips": ["imagery", "fluid"],
           "bucket": "domesticated", "philosophy": "domesticating",
           "semanticDistance": "high", "readerCount": 412}
        ]
      },
      {
        "line": 2,
        "selected": 1,
        "dependencies": [{"affectsLine": 3, "delta": 1.5}],
        "alternatives": [
          {"text": "Head raised, I watch the moon", "chips": ["terse"]},
          {"text": "I raise my head to gaze at the bright moon",
           "weights": {"literal": 0.9},
           "chips": ["parallelism", "literal order"],
           "semanticDistance": "low"}
        ]
      }
    ]
  }
}`

type fakeDocumentStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*models.DocumentRecord
	err     error
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{records: make(map[uuid.UUID]*models.DocumentRecord)}
}

func (f *fakeDocumentStore) Create(ctx context.Context, doc *models.DocumentRecord) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc.CreatedAt = time.Now()
	cp := *doc
	f.records[doc.ID] = &cp
	return nil
}

func (f *fakeDocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*models.DocumentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeDocumentStore) GetBySlug(ctx context.Context, slug string) (*models.DocumentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.Slug == slug {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.ReadingSession
	touches  int
	touchErr error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[uuid.UUID]*models.ReadingSession)}
}

func (f *fakeSessionStore) Create(ctx context.Context, session *models.ReadingSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	cp := *session
	f.sessions[session.ID] = &cp
	return nil
}

func (f *fakeSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ReadingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) Touch(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touches++
	return f.touchErr
}

type fakeExportJobStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.ExportJob
}

func newFakeExportJobStore() *fakeExportJobStore {
	return &fakeExportJobStore{jobs: make(map[uuid.UUID]*models.ExportJob)}
}

func (f *fakeExportJobStore) Create(ctx context.Context, job *models.ExportJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	cp := *job
	cp.Steps = append(models.ExportSteps(nil), job.Steps...)
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeExportJobStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ExportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *job
	cp.Steps = append(models.ExportSteps(nil), job.Steps...)
	return &cp, nil
}

func (f *fakeExportJobStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ExportJobStatus) error {
	return f.update(id, func(j *models.ExportJob) { j.Status = status })
}

func (f *fakeExportJobStore) UpdateSteps(ctx context.Context, id uuid.UUID, steps models.ExportSteps) error {
	return f.update(id, func(j *models.ExportJob) { j.Steps = append(models.ExportSteps(nil), steps...) })
}

func (f *fakeExportJobStore) Complete(ctx context.Context, id uuid.UUID, storagePath string) error {
	return f.update(id, func(j *models.ExportJob) {
		now := time.Now()
		j.Status = models.ExportStatusCompleted
		j.StoragePath = &storagePath
		j.CompletedAt = &now
	})
}

func (f *fakeExportJobStore) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	return f.update(id, func(j *models.ExportJob) {
		j.Status = models.ExportStatusFailed
		j.ErrorMessage = &errorMessage
	})
}

func (f *fakeExportJobStore) update(id uuid.UUID, fn func(*models.ExportJob)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(job)
	return nil
}

// failingKV accepts reads and fails every write
type failingKV struct{}

var errKVDown = errors.New("kv unavailable")

func (failingKV) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, nil
}

func (failingKV) Set(ctx context.Context, key, value string) error {
	return errKVDown
}

func (failingKV) Remove(ctx context.Context, key string) error {
	return errKVDown
}

// countingStorage wraps a storage and counts downloads.
// With honorCancel set, downloads fail once ctx is done.
type countingStorage struct {
	storage.Storage
	mu          sync.Mutex
	downloads   int
	honorCancel bool
}

func (c *countingStorage) Download(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	c.mu.Lock()
	c.downloads++
	honor := c.honorCancel
	c.mu.Unlock()
	if honor {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return c.Storage.Download(ctx, storagePath)
}

type fixture struct {
	docStore     *fakeDocumentStore
	sessionStore *fakeSessionStore
	jobStore     *fakeExportJobStore
	kv           repository.KeyValueStore
	blobs        *countingStorage
	documents    *DocumentService
	reading      *ReadingService
	exports      *ExportService
	documentID   uuid.UUID
}

func newFixture(t *testing.T, kv repository.KeyValueStore) *fixture {
	t.Helper()
	f := &fixture{
		docStore:     newFakeDocumentStore(),
		sessionStore: newFakeSessionStore(),
		jobStore:     newFakeExportJobStore(),
		kv:           kv,
		blobs:        &countingStorage{Storage: storage.NewMemoryStorage()},
	}
	f.documents = NewDocumentService(
		WithDocumentStore(f.docStore),
		WithDocumentStorage(f.blobs),
	)
	f.reading = NewReadingService(
		WithDocumentLoader(f.documents),
		WithSessionStore(f.sessionStore),
		WithKeyValueStore(kv),
		WithShareLink("https://prism.example", "v"),
	)
	f.exports = NewExportService(
		WithExportJobStore(f.jobStore),
		WithSnapshotSource(f.reading),
		WithExportDocumentLoader(f.documents),
		WithExportStorage(f.blobs),
	)

	res, err := f.documents.RegisterDocument(context.Background(), RegisterDocumentRequest{
		Filename: "jingyesi.json",
		Data:     []byte(poemJSON),
	})
	require.NoError(t, err)
	f.documentID = res.Record.ID
	return f
}
