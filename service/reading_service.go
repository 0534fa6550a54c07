package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"prism-backend/engine"
	"prism-backend/metrics"
	"prism-backend/models"
	"prism-backend/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentLoader returns sanitized documents by id
type DocumentLoader interface {
	Load(ctx context.Context, id uuid.UUID) (*LoadedDocument, error)
}

// ReadingService owns the readers' selection state.
// Each session is mutated by one writer at a time; the persisted copy in the
// key-value store is last-writer-wins across processes.
type ReadingService struct {
	docs         DocumentLoader
	sessionRepo  SessionStore
	kv           repository.KeyValueStore
	logger       *zap.Logger
	readerTotal  int
	shareBaseURL string
	shareParam   string

	mu       sync.Mutex
	sessions map[uuid.UUID]*readingSession
}

type readingSession struct {
	mu         sync.Mutex
	id         uuid.UUID
	doc        *LoadedDocument
	selection  models.Selection
	strategies models.Strategies
	createdAt  time.Time
}

// ReadingServiceOption is a functional option for ReadingService
type ReadingServiceOption func(*ReadingService)

// WithDocumentLoader sets where documents come from
func WithDocumentLoader(docs DocumentLoader) ReadingServiceOption {
	return func(s *ReadingService) {
		s.docs = docs
	}
}

// WithSessionStore sets the session repository
func WithSessionStore(repo SessionStore) ReadingServiceOption {
	return func(s *ReadingService) {
		s.sessionRepo = repo
	}
}

// WithKeyValueStore sets where selections are persisted
func WithKeyValueStore(kv repository.KeyValueStore) ReadingServiceOption {
	return func(s *ReadingService) {
		s.kv = kv
	}
}

// WithReadingLogger sets the logger
func WithReadingLogger(logger *zap.Logger) ReadingServiceOption {
	return func(s *ReadingService) {
		s.logger = logger
	}
}

// WithReaderTotal sets the denominator for reader preference percentages
func WithReaderTotal(total int) ReadingServiceOption {
	return func(s *ReadingService) {
		s.readerTotal = total
	}
}

// WithShareLink sets the base URL and query parameter of share links
func WithShareLink(baseURL, param string) ReadingServiceOption {
	return func(s *ReadingService) {
		s.shareBaseURL = baseURL
		s.shareParam = param
	}
}

// NewReadingService creates a new reading service
func NewReadingService(opts ...ReadingServiceOption) *ReadingService {
	s := &ReadingService{
		logger:       zap.NewNop(),
		readerTotal:  engine.DefaultReaderTotal,
		shareBaseURL: "http://localhost:8080",
		shareParam:   "v",
		sessions:     make(map[uuid.UUID]*readingSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SessionView is everything a reader needs to render the current reading
type SessionView struct {
	SessionID   uuid.UUID           `json:"session_id"`
	DocumentID  uuid.UUID           `json:"document_id"`
	Meta        models.DocumentMeta `json:"meta"`
	SourceLines []models.SourceLine `json:"source_lines"`
	Surface     []string            `json:"surface"`
	ChoiceLines []int               `json:"choice_lines"`
	Selection   models.Selection    `json:"selection"`
	Strategies  models.Strategies   `json:"strategies"`
	Balance     engine.Balance      `json:"balance"`
	Token       string              `json:"token"`
	Fingerprint string              `json:"fingerprint"`
	CreatedAt   time.Time           `json:"created_at"`
}

// CreateSessionRequest represents a request to open a reading session
type CreateSessionRequest struct {
	DocumentID uuid.UUID
	// Token is a share token from a link; it overrides restored picks per line
	Token string
	// ResumeFrom restores the persisted picks of an earlier session on the same document
	ResumeFrom *uuid.UUID
}

// CreateSessionResult represents the result of opening a session
type CreateSessionResult struct {
	View *SessionView
}

// CreateSession opens a session, restoring persisted picks and merging a share token over them
func (s *ReadingService) CreateSession(
	ctx context.Context,
	req CreateSessionRequest,
) (*CreateSessionResult, error) {
	if s.docs == nil {
		return nil, errors.New("document loader not set")
	}
	if s.sessionRepo == nil {
		return nil, errors.New("session repository not set")
	}

	doc, err := s.docs.Load(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}

	restored := make(models.Selection)
	strategies := models.Strategies{}
	if req.ResumeFrom != nil {
		restored, strategies = s.restore(ctx, doc, req.DocumentID, *req.ResumeFrom)
	}

	fromLink := make(models.Selection)
	if req.Token != "" {
		fromLink = s.decodeToken(doc, req.Token)
	}

	session := &models.ReadingSession{
		ID:         uuid.New(),
		DocumentID: req.DocumentID,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	rs := &readingSession{
		id:         session.ID,
		doc:        doc,
		selection:  engine.Normalize(doc.Document, restored.Merge(fromLink)),
		strategies: strategies,
		createdAt:  session.CreatedAt,
	}

	s.mu.Lock()
	s.sessions[rs.id] = rs
	s.mu.Unlock()

	rs.mu.Lock()
	defer rs.mu.Unlock()
	s.persist(ctx, rs)

	return &CreateSessionResult{View: s.view(rs)}, nil
}

// GetSessionRequest represents a request to view a session
type GetSessionRequest struct {
	SessionID uuid.UUID
}

// GetSessionResult represents the current reading view
type GetSessionResult struct {
	View *SessionView
}

// GetSession returns the current reading view
func (s *ReadingService) GetSession(
	ctx context.Context,
	req GetSessionRequest,
) (*GetSessionResult, error) {
	rs, err := s.session(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return &GetSessionResult{View: s.view(rs)}, nil
}

// SetStrategiesRequest represents a request to change the active strategies
type SetStrategiesRequest struct {
	SessionID  uuid.UUID
	Strategies models.Strategies
}

// SetStrategies replaces the active strategy set used for ranking
func (s *ReadingService) SetStrategies(
	ctx context.Context,
	req SetStrategiesRequest,
) (*GetSessionResult, error) {
	rs, err := s.session(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.strategies = req.Strategies
	s.persist(ctx, rs)
	return &GetSessionResult{View: s.view(rs)}, nil
}

// AlternativesRequest represents a request for the ranked alternatives of a line
type AlternativesRequest struct {
	SessionID uuid.UUID
	Line      int
}

// AlternativesResult represents the popover for one line
type AlternativesResult struct {
	Line       int               `json:"line"`
	Stakes     string            `json:"stakes,omitempty"`
	Strategies models.Strategies `json:"strategies"`
	Options    []engine.Option   `json:"options"`
}

// Alternatives ranks a line's alternatives under the session's active strategies
func (s *ReadingService) Alternatives(
	ctx context.Context,
	req AlternativesRequest,
) (*AlternativesResult, error) {
	rs, err := s.session(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	choice, ok := rs.doc.Document.ChoiceFor(req.Line)
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrChoiceNotFound, req.Line)
	}

	return &AlternativesResult{
		Line:       choice.Line,
		Stakes:     choice.Stakes,
		Strategies: rs.strategies,
		Options:    engine.Popover(choice, rs.selection, rs.strategies, s.readerTotal),
	}, nil
}

// ApplyPickRequest represents a reader swapping in an alternative
type ApplyPickRequest struct {
	SessionID   uuid.UUID
	Line        int
	Alternative int
}

// ApplyPickResult describes what the pick changed
type ApplyPickResult struct {
	Line     int                 `json:"line"`
	From     int                 `json:"from"`
	To       int                 `json:"to"`
	Impact   string              `json:"impact"`
	Emphasis engine.EmphasisDiff `json:"emphasis"`
	Stakes   string              `json:"stakes,omitempty"`
	Ripples  []engine.Ripple     `json:"ripples"`
	View     *SessionView        `json:"view"`
}

// ApplyPick records a pick and reports its consequences.
// A failure to persist is logged and does not fail the pick.
func (s *ReadingService) ApplyPick(
	ctx context.Context,
	req ApplyPickRequest,
) (*ApplyPickResult, error) {
	rs, err := s.session(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	doc := rs.doc.Document
	choice, ok := doc.ChoiceFor(req.Line)
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrChoiceNotFound, req.Line)
	}
	if !engine.InRange(choice, req.Alternative) {
		return nil, fmt.Errorf("%w: line %d has %d alternatives", ErrAlternativeOutOfRange, req.Line, len(choice.Alternatives))
	}

	from := engine.Effective(choice, rs.selection)
	rs.selection[choice.Line] = req.Alternative

	alt := choice.Alternatives[req.Alternative]
	impact := engine.ImpactLabel(alt)
	metrics.PicksTotal.WithLabelValues(impact).Inc()

	s.persist(ctx, rs)

	return &ApplyPickResult{
		Line:     choice.Line,
		From:     from,
		To:       req.Alternative,
		Impact:   impact,
		Emphasis: engine.DiffEmphasis(choice, from, req.Alternative),
		Stakes:   choice.Stakes,
		Ripples:  engine.Propagate(doc, choice.Line, req.Alternative),
		View:     s.view(rs),
	}, nil
}

// ResetRequest represents a request to discard all picks
type ResetRequest struct {
	SessionID uuid.UUID
}

// Reset discards every pick and forgets the persisted copy
func (s *ReadingService) Reset(
	ctx context.Context,
	req ResetRequest,
) (*GetSessionResult, error) {
	rs, err := s.session(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.selection = make(models.Selection)
	if s.kv != nil {
		if err := s.kv.Remove(ctx, selectionKey(rs.doc.Record.ID, rs.id)); err != nil {
			s.persistenceFailed("remove", rs, err)
		}
	}
	s.touch(ctx, rs)

	return &GetSessionResult{View: s.view(rs)}, nil
}

// ResolveRequest represents a request to apply the active strategies to every line
type ResolveRequest struct {
	SessionID uuid.UUID
}

// Resolve replaces the selection with the best-scoring alternative of every choice
func (s *ReadingService) Resolve(
	ctx context.Context,
	req ResolveRequest,
) (*GetSessionResult, error) {
	rs, err := s.session(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.selection = engine.ResolveAll(rs.doc.Document, rs.strategies)
	metrics.ResolvesTotal.Inc()
	s.persist(ctx, rs)

	return &GetSessionResult{View: s.view(rs)}, nil
}

// ShareRequest represents a request for a share link
type ShareRequest struct {
	SessionID uuid.UUID
}

// ShareResult is a token and the link that carries it
type ShareResult struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// Share encodes the session's effective selection into a link
func (s *ReadingService) Share(
	ctx context.Context,
	req ShareRequest,
) (*ShareResult, error) {
	rs, err := s.session(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	token := engine.Encode(rs.doc.Document, rs.selection)
	rs.mu.Unlock()

	metrics.SharesTotal.Inc()
	return &ShareResult{
		Token: token,
		URL:   s.shareURL(token),
	}, nil
}

// ComparisonRequest represents a request for the original/current comparison
type ComparisonRequest struct {
	SessionID uuid.UUID
}

// Comparison returns the default and current text of every choice
func (s *ReadingService) Comparison(
	ctx context.Context,
	req ComparisonRequest,
) (*engine.Comparison, error) {
	rs, err := s.session(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	cmp := engine.Compare(rs.doc.Document, rs.selection)
	return &cmp, nil
}

// SessionSnapshot is a consistent copy of a session's state
type SessionSnapshot struct {
	SessionID  uuid.UUID
	Document   *LoadedDocument
	Selection  models.Selection
	Strategies models.Strategies
	Token      string
}

// Snapshot copies a session's state for work that outlives the request
func (s *ReadingService) Snapshot(ctx context.Context, sessionID uuid.UUID) (*SessionSnapshot, error) {
	rs, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	return &SessionSnapshot{
		SessionID:  rs.id,
		Document:   rs.doc,
		Selection:  rs.selection.Clone(),
		Strategies: rs.strategies,
		Token:      engine.Encode(rs.doc.Document, rs.selection),
	}, nil
}

// session returns the live session, rehydrating it from storage after a restart
func (s *ReadingService) session(ctx context.Context, id uuid.UUID) (*readingSession, error) {
	s.mu.Lock()
	rs, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		return rs, nil
	}

	if s.sessionRepo == nil {
		return nil, ErrSessionNotFound
	}
	row, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if s.docs == nil {
		return nil, errors.New("document loader not set")
	}
	doc, err := s.docs.Load(ctx, row.DocumentID)
	if err != nil {
		return nil, err
	}

	sel, strategies := s.restore(ctx, doc, row.DocumentID, id)
	loaded := &readingSession{
		id:         id,
		doc:        doc,
		selection:  sel,
		strategies: strategies,
		createdAt:  row.CreatedAt,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// another request may have rehydrated it first
	if existing, ok := s.sessions[id]; ok {
		return existing, nil
	}
	s.sessions[id] = loaded
	return loaded, nil
}

// restore reads persisted picks and strategies. Read failures start the reader fresh.
func (s *ReadingService) restore(ctx context.Context, doc *LoadedDocument, documentID, sessionID uuid.UUID) (models.Selection, models.Strategies) {
	sel := make(models.Selection)
	var strategies models.Strategies
	if s.kv == nil {
		return sel, strategies
	}

	if raw, ok, err := s.kv.Get(ctx, selectionKey(documentID, sessionID)); err != nil {
		s.logger.Warn("failed to restore selection",
			zap.String("session_id", sessionID.String()),
			zap.Error(err),
		)
		metrics.PersistenceErrors.WithLabelValues("get").Inc()
	} else if ok {
		sel = engine.Normalize(doc.Document, engine.ParseStored(doc.Document, raw))
	}

	if raw, ok, err := s.kv.Get(ctx, strategiesKey(documentID, sessionID)); err != nil {
		metrics.PersistenceErrors.WithLabelValues("get").Inc()
	} else if ok {
		if err := json.Unmarshal([]byte(raw), &strategies); err != nil {
			strategies = models.Strategies{}
		}
	}

	return sel, strategies
}

// persist writes the session to the key-value store. Callers hold rs.mu.
func (s *ReadingService) persist(ctx context.Context, rs *readingSession) {
	defer s.touch(ctx, rs)
	if s.kv == nil {
		return
	}

	docID := rs.doc.Record.ID
	sel, err := json.Marshal(engine.Normalize(rs.doc.Document, rs.selection))
	if err == nil {
		err = s.kv.Set(ctx, selectionKey(docID, rs.id), string(sel))
	}
	if err != nil {
		s.persistenceFailed("set", rs, err)
		return
	}

	strategies, err := json.Marshal(rs.strategies)
	if err == nil {
		err = s.kv.Set(ctx, strategiesKey(docID, rs.id), string(strategies))
	}
	if err != nil {
		s.persistenceFailed("set", rs, err)
	}
}

func (s *ReadingService) touch(ctx context.Context, rs *readingSession) {
	if s.sessionRepo == nil {
		return
	}
	if err := s.sessionRepo.Touch(ctx, rs.id); err != nil {
		s.persistenceFailed("touch", rs, err)
	}
}

func (s *ReadingService) persistenceFailed(op string, rs *readingSession, err error) {
	metrics.PersistenceErrors.WithLabelValues(op).Inc()
	s.logger.Warn("selection not persisted; continuing in memory",
		zap.String("op", op),
		zap.String("session_id", rs.id.String()),
		zap.Error(err),
	)
}

func (s *ReadingService) decodeToken(doc *LoadedDocument, token string) models.Selection {
	if _, skipped := engine.DecodeDetailed(token); len(skipped) > 0 {
		metrics.DecodeSkippedSegments.Add(float64(len(skipped)))
		s.logger.Info("share token had unreadable segments",
			zap.String("document_id", doc.Record.ID.String()),
			zap.Ints("positions", skipped),
		)
	}
	return engine.DecodeForDocument(doc.Document, token)
}

func (s *ReadingService) view(rs *readingSession) *SessionView {
	doc := rs.doc.Document
	lines := make([]int, 0, len(doc.Target.Choices))
	for _, c := range doc.Target.Choices {
		lines = append(lines, c.Line)
	}
	return &SessionView{
		SessionID:   rs.id,
		DocumentID:  rs.doc.Record.ID,
		Meta:        doc.Meta,
		SourceLines: doc.Source.Lines,
		Surface:     engine.Surface(doc, rs.selection),
		ChoiceLines: lines,
		Selection:   rs.selection.Clone(),
		Strategies:  rs.strategies,
		Balance:     engine.AxisBalance(doc, rs.selection),
		Token:       engine.Encode(doc, rs.selection),
		Fingerprint: rs.doc.Fingerprint,
		CreatedAt:   rs.createdAt,
	}
}

func (s *ReadingService) shareURL(token string) string {
	q := url.Values{}
	q.Set(s.shareParam, token)
	return s.shareBaseURL + "/?" + q.Encode()
}

func selectionKey(documentID, sessionID uuid.UUID) string {
	return "prism:" + documentID.String() + ":picks:" + sessionID.String()
}

func strategiesKey(documentID, sessionID uuid.UUID) string {
	return "prism:" + documentID.String() + ":strategies:" + sessionID.String()
}
