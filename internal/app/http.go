package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"pulse/api/internal/metrics"
	"pulse/api/internal/search"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     *zap.Logger
	metrics    *metrics.Collector
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{
		service:    service,
		corsOrigin: corsOrigin,
		logger:     service.logger,
		metrics:    service.metrics,
	}
}

func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:       strings.Split(s.corsOrigin, ","),
		AllowedMethods:       []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:       []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:       []string{"X-Request-ID"},
		MaxAge:               300,
		OptionsSuccessStatus: http.StatusNoContent,
	}))

	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(noStore)
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		})

		r.Get("/health", s.handleHealth)
		r.Head("/health", s.handleHealth)
		r.Get("/ready", s.handleReady)
		r.Head("/ready", s.handleReady)

		r.Post("/outline/parse", s.handleParseOutline)
		r.Get("/search", s.handleSearch)

		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Get("/topics", s.handleListTopics)
			r.Put("/topics", s.handleSaveTopics)
			r.Get("/topics/draft", s.handleLoadDraft)
			r.Get("/topics/{topicID}/interest", s.handleTopicInterest)
			r.Post("/responses", s.handleSubmitResponse)
			r.Delete("/responses/{responseID}", s.handleDeleteResponse)
			r.Get("/interest", s.handleInterest)
			r.Get("/generator-input", s.handleGeneratorInput)
			r.Post("/match", s.handleMatchHeadings)
			r.Get("/report", s.handleExportReport)
		})
	})
	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}

	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

type parseOutlineRequest struct {
	Outline string `json:"outline" validate:"max=20000"`
}

func (s *HTTPServer) handleParseOutline(w http.ResponseWriter, r *http.Request) {
	var body parseOutlineRequest
	if !s.decode(w, r, &body) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": s.service.ParseOutline(body.Outline)})
}

type createSessionRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Outline string `json:"outline" validate:"max=20000"`
}

func (s *HTTPServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var body createSessionRequest
	if !s.decode(w, r, &body) {
		return
	}
	created, err := s.service.CreateSession(r.Context(), CreateSessionInput{Title: body.Title, Outline: body.Outline})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *HTTPServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *HTTPServer) handleListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.service.ListTopics(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": topics})
}

type topicInput struct {
	ID        string   `json:"id" validate:"omitempty,max=64"`
	Title     string   `json:"title" validate:"required,max=200"`
	Subtopics []string `json:"subtopics" validate:"dive,max=200"`
}

type saveTopicsRequest struct {
	Topics []topicInput `json:"topics" validate:"required,dive"`
}

func (s *HTTPServer) handleSaveTopics(w http.ResponseWriter, r *http.Request) {
	var body saveTopicsRequest
	if !s.decode(w, r, &body) {
		return
	}
	inputs := make([]TopicInput, 0, len(body.Topics))
	for _, topic := range body.Topics {
		inputs = append(inputs, TopicInput{ID: topic.ID, Title: topic.Title, Subtopics: topic.Subtopics})
	}
	result, err := s.service.SaveTopics(r.Context(), chi.URLParam(r, "sessionID"), bearerToken(r), inputs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleLoadDraft(w http.ResponseWriter, r *http.Request) {
	edits, err := s.service.LoadDraft(r.Context(), chi.URLParam(r, "sessionID"), bearerToken(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": edits})
}

func (s *HTTPServer) handleTopicInterest(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.TopicInterest(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "topicID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type selectionRequest struct {
	TopicID string `json:"topicId" validate:"required"`
	Choice  string `json:"choice" validate:"required,oneof=more less"`
}

type submitResponseRequest struct {
	Participant string             `json:"participant" validate:"max=120"`
	Selections  []selectionRequest `json:"selections" validate:"required,min=1,dive"`
}

func (s *HTTPServer) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	var body submitResponseRequest
	if !s.decode(w, r, &body) {
		return
	}
	selections := make([]SelectionInput, 0, len(body.Selections))
	for _, sel := range body.Selections {
		selections = append(selections, SelectionInput{TopicID: sel.TopicID, Choice: sel.Choice})
	}
	responseID, err := s.service.SubmitResponse(r.Context(), chi.URLParam(r, "sessionID"), SubmitResponseInput{
		Participant: body.Participant,
		Selections:  selections,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": responseID})
}

func (s *HTTPServer) handleDeleteResponse(w http.ResponseWriter, r *http.Request) {
	err := s.service.DeleteResponse(r.Context(), chi.URLParam(r, "sessionID"), bearerToken(r), chi.URLParam(r, "responseID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleInterest(w http.ResponseWriter, r *http.Request) {
	tallies, err := s.service.Interest(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": tallies})
}

func (s *HTTPServer) handleGeneratorInput(w http.ResponseWriter, r *http.Request) {
	topics, err := s.service.GeneratorInput(r.Context(), chi.URLParam(r, "sessionID"), bearerToken(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topics": topics})
}

type matchRequest struct {
	Headings []string `json:"headings" validate:"required,min=1,dive,required"`
}

func (s *HTTPServer) handleMatchHeadings(w http.ResponseWriter, r *http.Request) {
	var body matchRequest
	if !s.decode(w, r, &body) {
		return
	}
	matches, err := s.service.MatchHeadings(r.Context(), chi.URLParam(r, "sessionID"), bearerToken(r), body.Headings)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

func (s *HTTPServer) handleExportReport(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.ExportReport(r.Context(), chi.URLParam(r, "sessionID"), bearerToken(r), r.URL.Query().Get("format"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "q is required", nil)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	writeJSON(w, http.StatusOK, s.service.SearchTopics(r.Context(), search.Query{
		Text:      q,
		SessionID: r.URL.Query().Get("session"),
		Limit:     limit,
		Offset:    offset,
	}))
}

// decode reads and validates a JSON body, writing the error response itself.
func (s *HTTPServer) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeBody(r, target); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return false
	}
	if err := validateBody(target); err != nil {
		s.fail(w, r, err)
		return false
	}
	return true
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", code),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	writeError(w, status, code, message, details)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable, "UNAVAILABLE", "Request timed out", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
