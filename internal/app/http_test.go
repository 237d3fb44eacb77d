package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"pulse/api/internal/cache"
	"pulse/api/internal/config"
	"pulse/api/internal/store"
)

func newTestHandler(t *testing.T) (http.Handler, *flakyStore) {
	t.Helper()
	st := &flakyStore{MemoryStore: store.NewMemoryStore()}
	svc := New(config.Config{MaxTopics: 12, MaxSubtopics: 6}, st, Dependencies{
		Cache:  cache.NewMemory(time.Minute, time.Hour),
		Logger: zap.NewNop(),
	})
	return NewHTTPServer(svc, "*").Handler(), st
}

func doJSON(t *testing.T, handler http.Handler, method, path, key string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("%s %s: failed to parse response %q: %v", method, path, rr.Body.String(), err)
	}
	return rr.Code, response
}

func topicIDs(t *testing.T, response map[string]any) []string {
	t.Helper()
	items, ok := response["topics"].([]any)
	if !ok {
		t.Fatalf("expected topics array, got %v", response["topics"])
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.(map[string]any)["id"].(string))
	}
	return ids
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	handler, _ := newTestHandler(t)

	status, created := doJSON(t, handler, http.MethodPost, "/api/sessions", "", map[string]any{
		"title":   "All hands",
		"outline": "Roadmap for the second half\n- mobile\n- search\n\nBudget review and approvals",
	})
	if status != http.StatusCreated {
		t.Fatalf("create session: status %d body %v", status, created)
	}
	sessionID := created["id"].(string)
	key := created["presenterKey"].(string)
	seeded := topicIDs(t, created)
	if len(seeded) != 2 {
		t.Fatalf("expected 2 seeded topics, got %v", created["topics"])
	}
	base := "/api/sessions/" + sessionID

	status, body := doJSON(t, handler, http.MethodPut, base+"/topics", "", map[string]any{
		"topics": []map[string]any{{"title": "Anything"}},
	})
	if status != http.StatusUnauthorized || body["code"] != "UNAUTHORIZED" {
		t.Fatalf("expected 401 without key, got %d %v", status, body)
	}

	status, body = doJSON(t, handler, http.MethodPost, base+"/responses", "", map[string]any{
		"selections": []map[string]any{{"topicId": seeded[0], "choice": "more"}},
	})
	if status != http.StatusCreated {
		t.Fatalf("submit response: %d %v", status, body)
	}

	status, body = doJSON(t, handler, http.MethodPut, base+"/topics", key, map[string]any{
		"topics": []map[string]any{
			{"id": seeded[1], "title": "Budget review and approvals"},
			{"id": seeded[0], "title": "Roadmap", "subtopics": []string{"mobile", "search", "offline"}},
		},
	})
	if status != http.StatusOK {
		t.Fatalf("save topics: %d %v", status, body)
	}
	summary := body["summary"].(map[string]any)
	if summary["reordered"] != float64(2) || summary["updated"] != float64(2) {
		t.Fatalf("unexpected summary %v", summary)
	}
	if ids := topicIDs(t, body); ids[0] != seeded[1] || ids[1] != seeded[0] {
		t.Fatalf("unexpected order %v", ids)
	}

	status, body = doJSON(t, handler, http.MethodGet, base+"/interest", "", nil)
	if status != http.StatusOK {
		t.Fatalf("interest: %d %v", status, body)
	}
	top := body["topics"].([]any)[0].(map[string]any)
	if top["topicId"] != seeded[0] || top["title"] != "Roadmap" || top["more"] != float64(1) {
		t.Fatalf("unexpected top interest %v", top)
	}

	status, body = doJSON(t, handler, http.MethodGet, base+"/topics/"+seeded[0]+"/interest", "", nil)
	if status != http.StatusOK || body["active"] != true {
		t.Fatalf("topic interest: %d %v", status, body)
	}

	status, body = doJSON(t, handler, http.MethodGet, base+"/generator-input", key, nil)
	if status != http.StatusOK {
		t.Fatalf("generator input: %d %v", status, body)
	}
	first := body["topics"].([]any)[0].(map[string]any)
	if first["text"] != "Roadmap" || first["net"] != float64(1) {
		t.Fatalf("unexpected generator input %v", first)
	}
}

func TestSaveTopicsPersistenceFailureOverHTTP(t *testing.T) {
	handler, st := newTestHandler(t)

	_, created := doJSON(t, handler, http.MethodPost, "/api/sessions", "", map[string]any{
		"title":   "Retro",
		"outline": "What went well this sprint\n\nWhat we should change next",
	})
	sessionID := created["id"].(string)
	key := created["presenterKey"].(string)
	base := "/api/sessions/" + sessionID

	st.setFailing(true)
	status, body := doJSON(t, handler, http.MethodPut, base+"/topics", key, map[string]any{
		"topics": []map[string]any{{"title": "Action items"}},
	})
	if status != http.StatusServiceUnavailable || body["code"] != "PERSISTENCE_FAILURE" {
		t.Fatalf("expected 503 PERSISTENCE_FAILURE, got %d %v", status, body)
	}
	details := body["details"].(map[string]any)
	if details["retry"] != true {
		t.Fatalf("expected retry hint, got %v", details)
	}

	status, body = doJSON(t, handler, http.MethodGet, base+"/topics/draft", key, nil)
	if status != http.StatusOK {
		t.Fatalf("load draft: %d %v", status, body)
	}
	drafted := body["topics"].([]any)
	if len(drafted) != 1 || drafted[0].(map[string]any)["title"] != "Action items" {
		t.Fatalf("unexpected draft %v", drafted)
	}

	st.setFailing(false)
	status, body = doJSON(t, handler, http.MethodPut, base+"/topics", key, map[string]any{"topics": drafted})
	if status != http.StatusOK {
		t.Fatalf("retry save: %d %v", status, body)
	}
	if ids := topicIDs(t, body); len(ids) != 1 || ids[0] != drafted[0].(map[string]any)["id"] {
		t.Fatalf("retry did not keep the drafted id: %v", ids)
	}
}

func TestRequestValidation(t *testing.T) {
	handler, _ := newTestHandler(t)
	_, created := doJSON(t, handler, http.MethodPost, "/api/sessions", "", map[string]any{"title": "Town hall"})
	base := "/api/sessions/" + created["id"].(string)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{name: "session without title", method: http.MethodPost, path: "/api/sessions", body: map[string]any{"outline": "x"}, status: http.StatusUnprocessableEntity, code: "VALIDATION_FAILED"},
		{name: "choice outside enum", method: http.MethodPost, path: base + "/responses", body: map[string]any{"selections": []map[string]any{{"topicId": "top_1", "choice": "maybe"}}}, status: http.StatusUnprocessableEntity, code: "VALIDATION_FAILED"},
		{name: "empty selections", method: http.MethodPost, path: base + "/responses", body: map[string]any{"selections": []any{}}, status: http.StatusUnprocessableEntity, code: "VALIDATION_FAILED"},
		{name: "unknown session", method: http.MethodGet, path: "/api/sessions/ses_missing/topics", status: http.StatusNotFound, code: "SESSION_NOT_FOUND"},
		{name: "unknown route", method: http.MethodGet, path: "/api/nowhere", status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "search without query", method: http.MethodGet, path: "/api/search", status: http.StatusBadRequest, code: "BAD_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, handler, tt.method, tt.path, "", tt.body)
			if status != tt.status || body["code"] != tt.code {
				t.Fatalf("got %d %v, want %d %s", status, body, tt.status, tt.code)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rr.Code)
	}
}

func TestParseOutlinePreview(t *testing.T) {
	handler, _ := newTestHandler(t)

	status, body := doJSON(t, handler, http.MethodPost, "/api/outline/parse", "", map[string]any{
		"outline": "Launch timeline and milestones\n- beta\n- general availability",
	})
	if status != http.StatusOK {
		t.Fatalf("parse outline: %d %v", status, body)
	}
	topics := body["topics"].([]any)
	if len(topics) != 1 {
		t.Fatalf("expected one topic, got %v", topics)
	}
	first := topics[0].(map[string]any)
	if first["title"] != "Launch timeline and milestones" {
		t.Fatalf("unexpected title %v", first)
	}
	if subs := first["subtopics"].([]any); len(subs) != 2 {
		t.Fatalf("unexpected subtopics %v", subs)
	}
}

func TestExportReportHTML(t *testing.T) {
	handler, _ := newTestHandler(t)

	_, created := doJSON(t, handler, http.MethodPost, "/api/sessions", "", map[string]any{
		"title":   "Planning sync",
		"outline": "Hiring plan for next year\n\nOffice relocation timeline",
	})
	base := "/api/sessions/" + created["id"].(string)
	key := created["presenterKey"].(string)
	seeded := topicIDs(t, created)

	doJSON(t, handler, http.MethodPost, base+"/responses", "", map[string]any{
		"selections": []map[string]any{{"topicId": seeded[0], "choice": "more"}, {"topicId": seeded[1], "choice": "less"}},
	})
	status, body := doJSON(t, handler, http.MethodPut, base+"/topics", key, map[string]any{
		"topics": []map[string]any{{"id": seeded[0], "title": "Hiring plan for next year"}},
	})
	if status != http.StatusOK {
		t.Fatalf("archive topic: %d %v", status, body)
	}

	req := httptest.NewRequest(http.MethodGet, base+"/report?format=html", nil)
	req.Header.Set("Authorization", "Bearer "+key)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("export report: %d %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != `attachment; filename="Planning-sync.html"` {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	html := rr.Body.String()
	for _, want := range []string{"Planning sync", "Hiring plan for next year", "Retired topics", "Office relocation timeline", "1 responses"} {
		if !bytes.Contains([]byte(html), []byte(want)) {
			t.Fatalf("report missing %q:\n%s", want, html)
		}
	}

	status, body = doJSON(t, handler, http.MethodGet, base+"/report?format=docx", key, nil)
	if status != http.StatusBadRequest || body["code"] != "UNSUPPORTED_FORMAT" {
		t.Fatalf("expected UNSUPPORTED_FORMAT, got %d %v", status, body)
	}

	status, _ = doJSON(t, handler, http.MethodGet, base+"/report?format=html", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected presenter key to be required, got %d", status)
	}
}
