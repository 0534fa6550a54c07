package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"prism-backend/engine"
	"prism-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionData struct {
	SessionID  string            `json:"session_id"`
	Surface    []string          `json:"surface"`
	Token      string            `json:"token"`
	Selection  map[string]int    `json:"selection"`
	Strategies models.Strategies `json:"strategies"`
	Balance    engine.Balance    `json:"balance"`
}

func openSession(t *testing.T, r http.Handler, token string) sessionData {
	t.Helper()
	w, env := uploadDocument(t, r, "jingyesi.json", documentJSON)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.True(t, env.Success)

	w, env = doJSON(t, r, http.MethodPost, "/api/sessions", gin.H{"document_id": "jingyesi", "token": token})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var s sessionData
	require.NoError(t, json.Unmarshal(env.Data, &s))
	return s
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t)

	w, _ := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadDocument(t *testing.T) {
	r := newTestRouter(t)

	w, env := uploadDocument(t, r, "jingyesi.json", documentJSON)
	require.Equal(t, http.StatusCreated, w.Code)
	var data struct {
		Document  models.DocumentRecord `json:"document"`
		Anomalies []engine.Anomaly      `json:"anomalies"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "jingyesi", data.Document.Slug)
	assert.Empty(t, data.Anomalies)

	w, env = uploadDocument(t, r, "notes.txt", "hello")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FILE_TYPE", env.Error.Code)

	w, env = uploadDocument(t, r, "broken.json", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_DOCUMENT", env.Error.Code)
}

func TestGetDocument(t *testing.T) {
	r := newTestRouter(t)
	_, _ = uploadDocument(t, r, "jingyesi.json", documentJSON)

	w, env := doJSON(t, r, http.MethodGet, "/api/documents/jingyesi", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Document    models.Document `json:"document"`
		Fingerprint string          `json:"fingerprint"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "Quiet Night Thought", data.Document.Meta.Title)
	assert.Len(t, data.Fingerprint, 64)

	w, env = doJSON(t, r, http.MethodGet, "/api/documents/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "DOCUMENT_NOT_FOUND", env.Error.Code)
}

func TestCreateSession(t *testing.T) {
	r := newTestRouter(t)
	s := openSession(t, r, "1")

	assert.Equal(t, "1", s.Token)
	assert.Equal(t, "Moonlight pools beside my bed", s.Surface[0])
	assert.Equal(t, map[string]int{"0": 1}, s.Selection)

	w, env := doJSON(t, r, http.MethodPost, "/api/sessions", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)

	w, env = doJSON(t, r, http.MethodPost, "/api/sessions", gin.H{"document_id": "jingyesi", "resume_session_id": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_SESSION_ID", env.Error.Code)
}

func TestSessionNotFound(t *testing.T) {
	r := newTestRouter(t)

	w, env := doJSON(t, r, http.MethodGet, "/api/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", env.Error.Code)

	w, env = doJSON(t, r, http.MethodGet, "/api/sessions/6f1c1e52-5b8e-4d4b-9b7a-2d6f0c6c9a11", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", env.Error.Code)
}

func TestApplyPick(t *testing.T) {
	r := newTestRouter(t)
	s := openSession(t, r, "")
	base := "/api/sessions/" + s.SessionID

	w, env := doJSON(t, r, http.MethodPost, base+"/picks", gin.H{"line": 0, "alternative": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var pick struct {
		Impact   string              `json:"impact"`
		Emphasis engine.EmphasisDiff `json:"emphasis"`
		Ripples  []engine.Ripple     `json:"ripples"`
		View     sessionData         `json:"view"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &pick))
	assert.Equal(t, "Major shift", pick.Impact)
	assert.Equal(t, []string{"fluid"}, pick.Emphasis.Gained)
	assert.Equal(t, []string{"literal order"}, pick.Emphasis.Lost)
	require.Len(t, pick.Ripples, 1)
	assert.Equal(t, engine.Strengthen, pick.Ripples[0].Direction)
	assert.Equal(t, "1", pick.View.Token)

	w, env = doJSON(t, r, http.MethodPost, base+"/picks", gin.H{"line": 1, "alternative": 0})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CHOICE_NOT_FOUND", env.Error.Code)

	w, env = doJSON(t, r, http.MethodPost, base+"/picks", gin.H{"line": 0, "alternative": 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ALTERNATIVE_OUT_OF_RANGE", env.Error.Code)

	w, env = doJSON(t, r, http.MethodPost, base+"/picks", gin.H{"line": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)

	w, env = doJSON(t, r, http.MethodDelete, base+"/picks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reset sessionData
	require.NoError(t, json.Unmarshal(env.Data, &reset))
	assert.Equal(t, "0", reset.Token)
	assert.Empty(t, reset.Selection)
}

func TestStrategiesResolveAndAlternatives(t *testing.T) {
	r := newTestRouter(t)
	s := openSession(t, r, "")
	base := "/api/sessions/" + s.SessionID

	w, env := doJSON(t, r, http.MethodPut, base+"/strategies", models.Strategies{Natural: true})
	require.Equal(t, http.StatusOK, w.Code)
	var view sessionData
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.True(t, view.Strategies.Natural)

	w, env = doJSON(t, r, http.MethodGet, base+"/lines/0/alternatives", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var alts struct {
		Options []engine.Option `json:"options"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &alts))
	require.Len(t, alts.Options, 2)
	assert.Equal(t, 1, alts.Options[0].Index)

	w, env = doJSON(t, r, http.MethodGet, base+"/lines/x/alternatives", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_LINE", env.Error.Code)

	w, env = doJSON(t, r, http.MethodPost, base+"/resolve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "1", view.Token)
}

func TestShareAndComparison(t *testing.T) {
	r := newTestRouter(t)
	s := openSession(t, r, "1")
	base := "/api/sessions/" + s.SessionID

	w, env := doJSON(t, r, http.MethodGet, base+"/share", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var share struct {
		Token string `json:"token"`
		URL   string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &share))
	assert.Equal(t, "https://prism.example/?v=1", share.URL)

	w, env = doJSON(t, r, http.MethodGet, base+"/comparison", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cmp engine.Comparison
	require.NoError(t, json.Unmarshal(env.Data, &cmp))
	assert.Equal(t, []string{"Before my bed, the bright moonlight"}, cmp.Original)
	assert.Equal(t, []string{"Moonlight pools beside my bed"}, cmp.Current)
}

func TestExportFlow(t *testing.T) {
	r := newTestRouter(t)
	s := openSession(t, r, "1")

	w, env := doJSON(t, r, http.MethodPost, "/api/sessions/"+s.SessionID+"/exports", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var created struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	assert.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/exports/"+created.JobID, nil))
		var env struct {
			Data models.ExportJob `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			return false
		}
		return env.Data.Status == models.ExportStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/api/exports/"+created.JobID+"/download", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(rec.Body.String(), `wit="#reader">Moonlight pools beside my bed</rdg>`))

	w, env = doJSON(t, r, http.MethodPost, "/api/sessions/"+s.SessionID+"/exports", gin.H{"format": "pdf"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)

	w, env = doJSON(t, r, http.MethodGet, "/api/exports/6f1c1e52-5b8e-4d4b-9b7a-2d6f0c6c9a11", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "EXPORT_NOT_FOUND", env.Error.Code)
}
