package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"prism-backend/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDocument(t *testing.T) {
	f := newFixture(t, repository.NewMemoryKV())

	rec, err := f.docStore.GetByID(context.Background(), f.documentID)
	require.NoError(t, err)
	assert.Equal(t, "jingyesi", rec.Slug)
	assert.Equal(t, "Quiet Night Thought", rec.Title)
	assert.Equal(t, "application/json", rec.MimeType)
	assert.Len(t, rec.Fingerprint, 64)
	assert.Contains(t, rec.StoragePath, "documents/")
}

func TestRegisterDocument_Rejects(t *testing.T) {
	f := newFixture(t, repository.NewMemoryKV())
	ctx := context.Background()

	_, err := f.documents.RegisterDocument(ctx, RegisterDocumentRequest{Filename: "poem.txt", Data: []byte(poemJSON)})
	assert.ErrorIs(t, err, ErrInvalidDocument)

	_, err = f.documents.RegisterDocument(ctx, RegisterDocumentRequest{Filename: "poem.json", Data: []byte("{not json")})
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestRegisterDocument_RepositoryFailure(t *testing.T) {
	f := newFixture(t, repository.NewMemoryKV())
	f.docStore.err = errors.New("db down")

	_, err := f.documents.RegisterDocument(context.Background(), RegisterDocumentRequest{
		Filename: "again.json",
		Data:     []byte(poemJSON),
	})
	require.Error(t, err)
}

func TestRegisterDocument_ReportsAnomalies(t *testing.T) {
	f := newFixture(t, repository.NewMemoryKV())
	doc := `{
	  "meta": {"id": "broken"},
	  "source": {"lines": [{"text": "a"}]},
	  "target": {
	    "surfaceLines": ["a"],
	    "choices": [
	      {"line": 0, "selected": 0, "alternatives": [{"text": "x", "weights": {"literal": 3}}]},
	      {"line": 5, "selected": 0, "alternatives": [{"text": "y"}]}
	    ]
	  }
	}`

	res, err := f.documents.RegisterDocument(context.Background(), RegisterDocumentRequest{
		Filename: "broken.json",
		Data:     []byte(doc),
	})
	require.NoError(t, err)
	require.Len(t, res.Anomalies, 2)

	loaded, err := f.documents.Load(context.Background(), res.Record.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Document.Target.Choices, 1)
	assert.Equal(t, 1.0, loaded.Document.Target.Choices[0].Alternatives[0].Weights["literal"])
}

func TestLoad_CollapsesConcurrentFetches(t *testing.T) {
	f := newFixture(t, repository.NewMemoryKV())
	f.documents.Invalidate(f.documentID)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := f.documents.Load(context.Background(), f.documentID)
			assert.NoError(t, err)
			assert.Len(t, doc.Document.Target.Choices, 2)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.blobs.downloads)
}

func TestLoad_CancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	f := newFixture(t, repository.NewMemoryKV())
	f.blobs.honorCancel = true
	f.documents.Invalidate(f.documentID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc, err := f.documents.Load(ctx, f.documentID)
	require.NoError(t, err)
	assert.Len(t, doc.Document.Target.Choices, 2)

	// the result is cached for the next reader
	_, err = f.documents.Load(context.Background(), f.documentID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.blobs.downloads)
}

func TestLoad_Errors(t *testing.T) {
	f := newFixture(t, repository.NewMemoryKV())
	ctx := context.Background()

	_, err := f.documents.Load(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	rec, err := f.docStore.GetByID(ctx, f.documentID)
	require.NoError(t, err)
	require.NoError(t, f.blobs.Delete(ctx, rec.StoragePath))
	f.documents.Invalidate(f.documentID)

	_, err = f.documents.Load(ctx, f.documentID)
	assert.ErrorIs(t, err, ErrDocumentUnavailable)
}

func TestResolveID(t *testing.T) {
	f := newFixture(t, repository.NewMemoryKV())
	ctx := context.Background()

	id, err := f.documents.ResolveID(ctx, "jingyesi")
	require.NoError(t, err)
	assert.Equal(t, f.documentID, id)

	id, err = f.documents.ResolveID(ctx, f.documentID.String())
	require.NoError(t, err)
	assert.Equal(t, f.documentID, id)

	_, err = f.documents.ResolveID(ctx, "unknown")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestAnomalyKind(t *testing.T) {
	assert.Equal(t, "alternatives.Weights", anomalyKind("alternatives[3].Weights"))
	assert.Equal(t, "target.choices", anomalyKind("target.choices"))
}
