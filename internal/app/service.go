package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"pulse/api/internal/auth"
	"pulse/api/internal/config"
	"pulse/api/internal/export"
	"pulse/api/internal/interest"
	"pulse/api/internal/metrics"
	"pulse/api/internal/outline"
	"pulse/api/internal/rbac"
	"pulse/api/internal/reconcile"
	"pulse/api/internal/search"
	"pulse/api/internal/snapshot"
	"pulse/api/internal/store"
	"pulse/api/internal/util"
)

// DataStore is the persistence surface the service needs. PostgresStore and
// MemoryStore both satisfy it.
type DataStore interface {
	reconcile.Store
	CreateSession(context.Context, store.Session) error
	GetSession(context.Context, string) (store.Session, error)
	DeleteSession(context.Context, string) error
	GetTopic(context.Context, string, string) (store.Topic, error)
	ReadSelections(context.Context, string) ([]store.Selection, error)
	InsertResponse(context.Context, store.Response, []store.Selection) error
	DeleteResponse(context.Context, string, string) error
	Ping(context.Context) error
}

type stateCache interface {
	GetInterest(context.Context, string) ([]interest.Tally, bool, error)
	SetInterest(context.Context, string, []interest.Tally) error
	InvalidateInterest(context.Context, string) error
	SaveDraft(context.Context, string, []reconcile.Edit) error
	LoadDraft(context.Context, string) ([]reconcile.Edit, bool, error)
	ClearDraft(context.Context, string) error
}

type topicSearch interface {
	Search(context.Context, search.Query) search.Response
	SyncTopics(active []store.Topic, archivedIDs []string)
}

type snapshotArchive interface {
	Save(context.Context, snapshot.Snapshot) (string, error)
}

type reportRenderer interface {
	Render(context.Context, export.Report, export.Format) (*export.Result, error)
}

// Dependencies are the optional collaborators of a Service. Nil search and
// snapshot fields disable those features.
type Dependencies struct {
	Cache     stateCache
	Search    topicSearch
	Snapshots snapshotArchive
	Reports   reportRenderer
	Metrics   *metrics.Collector
	Logger    *zap.Logger
}

type Service struct {
	cfg       config.Config
	store     DataStore
	cache     stateCache
	search    topicSearch
	snapshots snapshotArchive
	reports   reportRenderer
	metrics   *metrics.Collector
	logger    *zap.Logger
	policy    outline.Policy
	now       func() time.Time
}

func New(cfg config.Config, dataStore DataStore, deps Dependencies) *Service {
	policy := outline.DefaultPolicy()
	if cfg.MaxTopics > 0 {
		policy.MaxTopics = cfg.MaxTopics
	}
	if cfg.MaxSubtopics > 0 {
		policy.MaxSubtopics = cfg.MaxSubtopics
	}
	svc := &Service{
		cfg:       cfg,
		store:     dataStore,
		cache:     deps.Cache,
		search:    deps.Search,
		snapshots: deps.Snapshots,
		reports:   deps.Reports,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		policy:    policy,
		now:       time.Now,
	}
	if svc.cache == nil {
		svc.cache = noCache{}
	}
	if svc.reports == nil {
		svc.reports = export.NewService(export.ChromeOptions{ExecPath: cfg.ChromePath, Timeout: cfg.ExportTimeout})
	}
	if svc.metrics == nil {
		svc.metrics = metrics.NewCollector("pulse")
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

type TopicView struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Subtopics []string `json:"subtopics"`
	SortOrder int      `json:"sortOrder"`
}

type SessionView struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Outline   string      `json:"outline"`
	CreatedAt time.Time   `json:"createdAt"`
	Topics    []TopicView `json:"topics"`
}

type CreatedSession struct {
	SessionView
	PresenterKey string `json:"presenterKey"`
}

type CreateSessionInput struct {
	Title   string
	Outline string
}

type TopicInput struct {
	ID        string
	Title     string
	Subtopics []string
}

type SaveResult struct {
	Summary reconcile.Summary `json:"summary"`
	Topics  []TopicView       `json:"topics"`
}

type SelectionInput struct {
	TopicID string
	Choice  string
}

type SubmitResponseInput struct {
	Participant string
	Selections  []SelectionInput
}

type TopicInterestView struct {
	TopicID string `json:"topicId"`
	Title   string `json:"title"`
	Active  bool   `json:"active"`
	More    int    `json:"more"`
	Less    int    `json:"less"`
	Total   int    `json:"total"`
	Net     int    `json:"net"`
}

type HeadingMatch struct {
	Heading string `json:"heading"`
	Matched bool   `json:"matched"`
	TopicID string `json:"topicId,omitempty"`
	Title   string `json:"title,omitempty"`
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ParseOutline previews how outline text splits into topics. Nothing is written.
func (s *Service) ParseOutline(text string) []outline.Block {
	return s.policy.Parse(text)
}

// CreateSession stores a session, seeds its topics from the outline and
// returns the presenter key. The key is not recoverable afterwards. If
// seeding fails the session is removed again.
func (s *Service) CreateSession(ctx context.Context, input CreateSessionInput) (CreatedSession, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return CreatedSession{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_FAILED", "title is required", nil)
	}
	key, hash, err := auth.NewPresenterKey()
	if err != nil {
		return CreatedSession{}, err
	}

	session := store.Session{
		ID:               util.NewID("ses"),
		Title:            title,
		Outline:          input.Outline,
		PresenterKeyHash: hash,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return CreatedSession{}, fmt.Errorf("create session: %w", err)
	}

	blocks := s.policy.Parse(input.Outline)
	edits := make([]reconcile.Edit, 0, len(blocks))
	for _, block := range blocks {
		edits = append(edits, reconcile.Edit{ID: util.NewID("top"), Title: block.Title, Subtopics: block.Subtopics})
	}
	result, err := s.reconcile(ctx, session.ID, edits)
	if err != nil {
		// The presenter key is never handed out, so a half-seeded session
		// could not be edited or removed by anyone.
		if delErr := s.store.DeleteSession(context.WithoutCancel(ctx), session.ID); delErr != nil {
			s.logger.Error("remove unseeded session",
				zap.String("session_id", session.ID),
				zap.Error(delErr),
			)
		}
		return CreatedSession{}, err
	}

	s.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.Int("topics", len(result.Topics)),
	)

	created, err := s.store.GetSession(ctx, session.ID)
	if err != nil {
		return CreatedSession{}, fmt.Errorf("reload session: %w", err)
	}
	return CreatedSession{
		SessionView:  sessionView(created, result.Topics),
		PresenterKey: key,
	}, nil
}

func (s *Service) GetSession(ctx context.Context, sessionID string) (SessionView, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	topics, err := s.ListTopics(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	return sessionView(session, topics), nil
}

// ListTopics returns the session's active topics, decoded, in display order.
func (s *Service) ListTopics(ctx context.Context, sessionID string) ([]TopicView, error) {
	if _, err := s.loadSession(ctx, sessionID); err != nil {
		return nil, err
	}
	active, err := s.store.ReadActiveTopics(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read topics: %w", err)
	}
	return topicViews(active), nil
}

// SaveTopics reconciles the presenter's edited list against the stored
// topics. On a storage failure the edit is stashed as a draft, ids included,
// so a retry replays exactly the same diff.
func (s *Service) SaveTopics(ctx context.Context, sessionID, presenterKey string, inputs []TopicInput) (SaveResult, error) {
	if _, err := s.authorize(ctx, sessionID, presenterKey, rbac.ActionEdit); err != nil {
		return SaveResult{}, err
	}
	edits, err := s.edits(inputs)
	if err != nil {
		return SaveResult{}, err
	}

	result, err := s.reconcile(ctx, sessionID, edits)
	if err != nil {
		var domainErr *DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "PERSISTENCE_FAILURE" {
			if stashErr := s.cache.SaveDraft(ctx, sessionID, edits); stashErr != nil {
				s.logger.Error("stash draft", zap.String("session_id", sessionID), zap.Error(stashErr))
			}
		}
		return SaveResult{}, err
	}

	if err := s.cache.ClearDraft(ctx, sessionID); err != nil {
		s.logger.Warn("clear draft", zap.String("session_id", sessionID), zap.Error(err))
	}
	return result, nil
}

// LoadDraft returns the edit left behind by the last failed save.
func (s *Service) LoadDraft(ctx context.Context, sessionID, presenterKey string) ([]reconcile.Edit, error) {
	if _, err := s.authorize(ctx, sessionID, presenterKey, rbac.ActionEdit); err != nil {
		return nil, err
	}
	edits, ok, err := s.cache.LoadDraft(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	if !ok {
		return nil, domainError(http.StatusNotFound, "NO_DRAFT", "No unsaved draft", nil)
	}
	return edits, nil
}

func (s *Service) reconcile(ctx context.Context, sessionID string, edits []reconcile.Edit) (SaveResult, error) {
	previous, err := s.store.ReadActiveTopics(ctx, sessionID)
	if err != nil {
		return SaveResult{}, persistenceError(&reconcile.OpError{Phase: reconcile.PhaseRead, Err: err})
	}
	plan, err := reconcile.Diff(sessionID, previous, edits)
	if err != nil {
		return SaveResult{}, editError(err)
	}
	if err := reconcile.Apply(ctx, s.store, plan); err != nil {
		if errors.Is(err, reconcile.ErrForeignTopic) {
			return SaveResult{}, editError(err)
		}
		var opErr *reconcile.OpError
		if errors.As(err, &opErr) {
			s.metrics.ReconcileFailures.WithLabelValues(string(opErr.Phase)).Inc()
		}
		s.logger.Error("reconcile topics",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return SaveResult{}, persistenceError(err)
	}

	summary := plan.Summary()
	s.metrics.ObserveReconcile(summary.Inserted, summary.Updated, summary.Reordered, summary.Archived)

	current, err := s.store.ReadActiveTopics(ctx, sessionID)
	if err != nil {
		return SaveResult{}, fmt.Errorf("reload topics: %w", err)
	}
	if !plan.Empty() {
		s.afterSave(ctx, sessionID, plan, previous, current)
	}

	s.logger.Info("topics reconciled",
		zap.String("session_id", sessionID),
		zap.Int("inserted", summary.Inserted),
		zap.Int("updated", summary.Updated),
		zap.Int("reordered", summary.Reordered),
		zap.Int("archived", summary.Archived),
	)
	return SaveResult{Summary: summary, Topics: topicViews(current)}, nil
}

// afterSave runs the best-effort side effects of a successful save.
func (s *Service) afterSave(ctx context.Context, sessionID string, plan reconcile.Plan, previous, current []store.Topic) {
	if err := s.cache.InvalidateInterest(ctx, sessionID); err != nil {
		s.logger.Warn("invalidate interest cache", zap.String("session_id", sessionID), zap.Error(err))
	}

	if s.search != nil {
		archived := make([]string, 0, len(plan.Archive))
		for _, topic := range plan.Archive {
			archived = append(archived, topic.ID)
		}
		s.search.SyncTopics(current, archived)
	}

	if s.snapshots != nil {
		snap := snapshot.New(sessionID, s.now(), plan.Summary(), previous, current)
		key, err := s.snapshots.Save(ctx, snap)
		if err != nil {
			s.logger.Warn("archive snapshot", zap.String("session_id", sessionID), zap.Error(err))
		} else {
			s.logger.Debug("snapshot archived", zap.String("key", key))
		}
	}
}

func (s *Service) edits(inputs []TopicInput) ([]reconcile.Edit, error) {
	if len(inputs) > s.policy.MaxTopics {
		return nil, domainError(http.StatusUnprocessableEntity, "TOO_MANY_TOPICS",
			fmt.Sprintf("at most %d topics are allowed", s.policy.MaxTopics), map[string]any{"max": s.policy.MaxTopics})
	}
	edits := make([]reconcile.Edit, 0, len(inputs))
	for _, in := range inputs {
		if len(in.Subtopics) > s.policy.MaxSubtopics {
			return nil, domainError(http.StatusUnprocessableEntity, "TOO_MANY_SUBTOPICS",
				fmt.Sprintf("at most %d subtopics per topic are allowed", s.policy.MaxSubtopics), map[string]any{"max": s.policy.MaxSubtopics})
		}
		id := strings.TrimSpace(in.ID)
		if id == "" {
			id = util.NewID("top")
		}
		block := outline.CanonicalBlock(in.Title, in.Subtopics)
		edits = append(edits, reconcile.Edit{ID: id, Title: block.Title, Subtopics: block.Subtopics})
	}
	return edits, nil
}

// Interest returns the session's ranked interest, cached per session.
func (s *Service) Interest(ctx context.Context, sessionID string) ([]interest.Tally, error) {
	if _, err := s.loadSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if cached, ok, err := s.cache.GetInterest(ctx, sessionID); err != nil {
		s.logger.Warn("read interest cache", zap.String("session_id", sessionID), zap.Error(err))
	} else if ok {
		s.metrics.CacheHits.Inc()
		return cached, nil
	}
	s.metrics.CacheMisses.Inc()

	active, err := s.store.ReadActiveTopics(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read topics: %w", err)
	}
	selections, err := s.store.ReadSelections(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read selections: %w", err)
	}
	tallies := interest.Compute(active, selections)
	if err := s.cache.SetInterest(ctx, sessionID, tallies); err != nil {
		s.logger.Warn("write interest cache", zap.String("session_id", sessionID), zap.Error(err))
	}
	return tallies, nil
}

// TopicInterest returns the counts of one topic, archived or not.
func (s *Service) TopicInterest(ctx context.Context, sessionID, topicID string) (TopicInterestView, error) {
	topic, err := s.store.GetTopic(ctx, sessionID, topicID)
	if errors.Is(err, store.ErrNotFound) {
		return TopicInterestView{}, domainError(http.StatusNotFound, "TOPIC_NOT_FOUND", "Topic not found", nil)
	}
	if err != nil {
		return TopicInterestView{}, fmt.Errorf("get topic: %w", err)
	}
	selections, err := s.store.ReadSelections(ctx, sessionID)
	if err != nil {
		return TopicInterestView{}, fmt.Errorf("read selections: %w", err)
	}
	more, less := interest.Count(topicID, selections)
	return TopicInterestView{
		TopicID: topic.ID,
		Title:   outline.Title(topic.Text),
		Active:  topic.IsActive(),
		More:    more,
		Less:    less,
		Total:   more + less,
		Net:     more - less,
	}, nil
}

// GeneratorInput is the priority signal handed to outline generation.
func (s *Service) GeneratorInput(ctx context.Context, sessionID, presenterKey string) ([]interest.GeneratorTopic, error) {
	if _, err := s.authorize(ctx, sessionID, presenterKey, rbac.ActionModerate); err != nil {
		return nil, err
	}
	tallies, err := s.Interest(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return interest.ForGenerator(tallies), nil
}

// MatchHeadings maps generated section headings back onto topic ids.
func (s *Service) MatchHeadings(ctx context.Context, sessionID, presenterKey string, headings []string) ([]HeadingMatch, error) {
	if _, err := s.authorize(ctx, sessionID, presenterKey, rbac.ActionModerate); err != nil {
		return nil, err
	}
	active, err := s.store.ReadActiveTopics(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read topics: %w", err)
	}
	titles := make([]string, len(active))
	for i, topic := range active {
		titles[i] = outline.Title(topic.Text)
	}

	matches := make([]HeadingMatch, 0, len(headings))
	for _, heading := range headings {
		match := HeadingMatch{Heading: heading}
		if i, ok := outline.MatchHeading(heading, titles); ok {
			match.Matched = true
			match.TopicID = active[i].ID
			match.Title = titles[i]
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// SubmitResponse records one participant's selections. Feedback is only
// accepted for active topics of the session.
func (s *Service) SubmitResponse(ctx context.Context, sessionID string, input SubmitResponseInput) (string, error) {
	if _, err := s.loadSession(ctx, sessionID); err != nil {
		return "", err
	}
	if len(input.Selections) == 0 {
		return "", domainError(http.StatusUnprocessableEntity, "VALIDATION_FAILED", "at least one selection is required", nil)
	}
	active, err := s.store.ReadActiveTopics(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("read topics: %w", err)
	}
	activeIDs := make(map[string]struct{}, len(active))
	for _, topic := range active {
		activeIDs[topic.ID] = struct{}{}
	}

	seen := make(map[string]struct{}, len(input.Selections))
	selections := make([]store.Selection, 0, len(input.Selections))
	for _, in := range input.Selections {
		choice := store.Choice(strings.ToLower(strings.TrimSpace(in.Choice)))
		if !choice.Valid() {
			return "", domainError(http.StatusUnprocessableEntity, "INVALID_CHOICE", "choice must be more or less", map[string]any{"topicId": in.TopicID})
		}
		if _, ok := activeIDs[in.TopicID]; !ok {
			return "", domainError(http.StatusUnprocessableEntity, "TOPIC_NOT_ACTIVE", "topic is not an active topic of this session", map[string]any{"topicId": in.TopicID})
		}
		if _, dup := seen[in.TopicID]; dup {
			return "", domainError(http.StatusUnprocessableEntity, "DUPLICATE_SELECTION", "each topic may be selected once per response", map[string]any{"topicId": in.TopicID})
		}
		seen[in.TopicID] = struct{}{}
		selections = append(selections, store.Selection{ThemeID: in.TopicID, Selection: choice})
	}

	response := store.Response{
		ID:          util.NewID("rsp"),
		SessionID:   sessionID,
		Participant: strings.TrimSpace(input.Participant),
	}
	if err := s.store.InsertResponse(ctx, response, selections); err != nil {
		return "", fmt.Errorf("insert response: %w", err)
	}
	s.metrics.ResponsesRecorded.Inc()
	if err := s.cache.InvalidateInterest(ctx, sessionID); err != nil {
		s.logger.Warn("invalidate interest cache", zap.String("session_id", sessionID), zap.Error(err))
	}
	return response.ID, nil
}

// DeleteResponse removes a response and its selections. It is the only path
// that deletes feedback.
func (s *Service) DeleteResponse(ctx context.Context, sessionID, presenterKey, responseID string) error {
	if _, err := s.authorize(ctx, sessionID, presenterKey, rbac.ActionModerate); err != nil {
		return err
	}
	err := s.store.DeleteResponse(ctx, sessionID, responseID)
	if errors.Is(err, store.ErrNotFound) {
		return domainError(http.StatusNotFound, "RESPONSE_NOT_FOUND", "Response not found", nil)
	}
	if err != nil {
		return fmt.Errorf("delete response: %w", err)
	}
	if err := s.cache.InvalidateInterest(ctx, sessionID); err != nil {
		s.logger.Warn("invalidate interest cache", zap.String("session_id", sessionID), zap.Error(err))
	}
	s.logger.Info("response deleted", zap.String("session_id", sessionID), zap.String("response_id", responseID))
	return nil
}

// ExportReport renders the session's interest report, including archived
// topics that still hold feedback.
func (s *Service) ExportReport(ctx context.Context, sessionID, presenterKey, format string) (*export.Result, error) {
	session, err := s.authorize(ctx, sessionID, presenterKey, rbac.ActionModerate)
	if err != nil {
		return nil, err
	}
	outputFormat, err := export.ParseFormat(format)
	if err != nil {
		return nil, domainError(http.StatusBadRequest, "UNSUPPORTED_FORMAT", "format must be pdf or html", nil)
	}

	active, err := s.store.ReadActiveTopics(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read topics: %w", err)
	}
	selections, err := s.store.ReadSelections(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read selections: %w", err)
	}

	report := export.Report{
		SessionTitle: session.Title,
		GeneratedAt:  s.now(),
		Topics:       interest.Compute(active, selections),
	}

	activeIDs := make(map[string]struct{}, len(active))
	for _, topic := range active {
		activeIDs[topic.ID] = struct{}{}
	}
	responses := make(map[string]struct{})
	retired := make(map[string]struct{})
	for _, sel := range selections {
		responses[sel.ResponseID] = struct{}{}
		if _, ok := activeIDs[sel.ThemeID]; ok {
			continue
		}
		if _, done := retired[sel.ThemeID]; done {
			continue
		}
		retired[sel.ThemeID] = struct{}{}
		topic, err := s.store.GetTopic(ctx, sessionID, sel.ThemeID)
		if err != nil {
			return nil, fmt.Errorf("get archived topic: %w", err)
		}
		more, less := interest.Count(topic.ID, selections)
		report.Retired = append(report.Retired, export.RetiredTopic{Title: outline.Title(topic.Text), More: more, Less: less})
	}
	report.Responses = len(responses)

	result, err := s.reports.Render(ctx, report, outputFormat)
	if errors.Is(err, export.ErrPDFDependencyMissing) {
		return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export is not available on this server; use format=html", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return result, nil
}

func (s *Service) SearchTopics(ctx context.Context, q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(ctx, q)
}

func (s *Service) loadSession(ctx context.Context, sessionID string) (store.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return store.Session{}, domainError(http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found", nil)
	}
	if err != nil {
		return store.Session{}, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// authorize resolves the caller's role from the presenter key and checks
// it against action.
func (s *Service) authorize(ctx context.Context, sessionID, presenterKey string, action rbac.Action) (store.Session, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return store.Session{}, err
	}
	role := rbac.RoleParticipant
	if strings.TrimSpace(presenterKey) != "" {
		if err := auth.VerifyPresenterKey(session.PresenterKeyHash, presenterKey); err != nil {
			return store.Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Invalid presenter key", nil)
		}
		role = rbac.RolePresenter
	}
	if !rbac.Can(role, action) {
		if role == rbac.RoleParticipant {
			return store.Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Presenter key required", nil)
		}
		return store.Session{}, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	return session, nil
}

func sessionView(session store.Session, topics []TopicView) SessionView {
	return SessionView{
		ID:        session.ID,
		Title:     session.Title,
		Outline:   session.Outline,
		CreatedAt: session.CreatedAt,
		Topics:    topics,
	}
}

func topicViews(topics []store.Topic) []TopicView {
	views := make([]TopicView, 0, len(topics))
	for _, topic := range topics {
		block := outline.Decode(topic.Text)
		views = append(views, TopicView{
			ID:        topic.ID,
			Title:     block.Title,
			Subtopics: block.Subtopics,
			SortOrder: topic.SortOrder,
		})
	}
	return views
}
