package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"prism-backend/models"
	"prism-backend/repository"
	"prism-backend/service"
	"prism-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const documentJSON = `{
  "meta": {"id": "jingyesi", "title": "Quiet Night Thought"},
  "source": {"lines": [{"text": "床前明月光"}, {"text": "疑是地上霜"}]},
  "target": {
    "surfaceLines": ["Before my bed, the bright moonlight", "I take it for frost upon the ground"],
    "choices": [
      {
        "line": 0,
        "selected": 0,
        "dependencies": [{"affectsLine": 1, "delta": 1}],
        "alternatives": [
          {"text": "Before my bed, the bright moonlight", "weights": {"literal": 0.8}, "chips": ["literal order"]},
          {"text": "Moonlight pools beside my bed", "weights": {"natural": 0.9}, "chips": ["fluid"], "semanticDistance": "high"}
        ]
      }
    ]
  }
}`

// memStore backs every repository interface with maps
type memStore struct {
	mu       sync.Mutex
	docs     map[uuid.UUID]*models.DocumentRecord
	sessions map[uuid.UUID]*models.ReadingSession
	jobs     map[uuid.UUID]*models.ExportJob
}

func newMemStore() *memStore {
	return &memStore{
		docs:     make(map[uuid.UUID]*models.DocumentRecord),
		sessions: make(map[uuid.UUID]*models.ReadingSession),
		jobs:     make(map[uuid.UUID]*models.ExportJob),
	}
}

type docStore struct{ *memStore }

func (s docStore) Create(ctx context.Context, doc *models.DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.CreatedAt = time.Now()
	cp := *doc
	s.docs[doc.ID] = &cp
	return nil
}

func (s docStore) GetByID(ctx context.Context, id uuid.UUID) (*models.DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.docs[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s docStore) GetBySlug(ctx context.Context, slug string) (*models.DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.docs {
		if d.Slug == slug {
			cp := *d
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type sessionStore struct{ *memStore }

func (s sessionStore) Create(ctx context.Context, session *models.ReadingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.CreatedAt = time.Now()
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s sessionStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ReadingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.sessions[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s sessionStore) Touch(ctx context.Context, id uuid.UUID) error { return nil }

type jobStore struct{ *memStore }

func (s jobStore) Create(ctx context.Context, job *models.ExportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s jobStore) GetByID(ctx context.Context, id uuid.UUID) (*models.ExportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		cp := *j
		cp.Steps = append(models.ExportSteps(nil), j.Steps...)
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s jobStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ExportJobStatus) error {
	return s.update(id, func(j *models.ExportJob) { j.Status = status })
}

func (s jobStore) UpdateSteps(ctx context.Context, id uuid.UUID, steps models.ExportSteps) error {
	return s.update(id, func(j *models.ExportJob) { j.Steps = append(models.ExportSteps(nil), steps...) })
}

func (s jobStore) Complete(ctx context.Context, id uuid.UUID, storagePath string) error {
	return s.update(id, func(j *models.ExportJob) {
		j.Status = models.ExportStatusCompleted
		j.StoragePath = &storagePath
	})
}

func (s jobStore) Fail(ctx context.Context, id uuid.UUID, msg string) error {
	return s.update(id, func(j *models.ExportJob) {
		j.Status = models.ExportStatusFailed
		j.ErrorMessage = &msg
	})
}

func (s jobStore) update(id uuid.UUID, fn func(*models.ExportJob)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(j)
	return nil
}

// newTestRouter wires the full API over in-memory stores
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := newMemStore()
	blobs := storage.NewMemoryStorage()

	documents := service.NewDocumentService(
		service.WithDocumentStore(docStore{mem}),
		service.WithDocumentStorage(blobs),
	)
	reading := service.NewReadingService(
		service.WithDocumentLoader(documents),
		service.WithSessionStore(sessionStore{mem}),
		service.WithKeyValueStore(repository.NewMemoryKV()),
		service.WithShareLink("https://prism.example", "v"),
	)
	exports := service.NewExportService(
		service.WithExportJobStore(jobStore{mem}),
		service.WithSnapshotSource(reading),
		service.WithExportDocumentLoader(documents),
		service.WithExportStorage(blobs),
	)

	r := gin.New()
	RegisterRoutes(r,
		NewDocumentHandler(documents),
		NewReadingHandler(reading, documents),
		NewExportHandler(exports, nil),
	)
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func uploadDocument(t *testing.T, r http.Handler, filename, content string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}
