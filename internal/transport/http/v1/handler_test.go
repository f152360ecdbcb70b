package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/AbhigyanVE/ScrumMaster/internal/app"
	"github.com/AbhigyanVE/ScrumMaster/internal/config"
	"github.com/AbhigyanVE/ScrumMaster/internal/domain"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	cfg := &config.Config{
		DatabaseURL:     ":memory:",
		ContextBackend:  config.BackendMemory,
		Mode:            "MOCK",
		LLMModel:        "mock",
		SummaryMaxRunes: 500,
	}
	a, err := app.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("app.New failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	now := time.Now()
	stale := now.AddDate(0, 0, -10)
	issues := []domain.Issue{
		{Key: "CRO-1", Summary: "Checkout flow", Status: "In Progress", Assignee: "Ana", Priority: "High", Updated: &stale},
		{Key: "CRO-2", Summary: "Fresh work", Status: "Done", Assignee: "Ben", Priority: "Low", Updated: &now},
	}
	if err := a.Repo.ReplaceProject(context.Background(), domain.Project{Key: "CRO", Name: "Conversion", IssueCount: 2}, issues); err != nil {
		t.Fatalf("ReplaceProject failed: %v", err)
	}
	return NewHandler(a.Service)
}

func sessionContext(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, sessionID string) echo.Context {
	c := e.NewContext(req, rec)
	c.SetParamNames("session_id")
	c.SetParamValues(sessionID)
	return c
}

func postQuery(t *testing.T, h *Handler, sessionID, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+sessionID+"/query", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	if err := h.Query(sessionContext(e, req, rec, sessionID)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestQueryValidation(t *testing.T) {
	h := newTestHandler(t)

	rec := postQuery(t, h, "s1", `{"query":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec = postQuery(t, h, "s1", `{"query":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestQueryStuckTickets(t *testing.T) {
	h := newTestHandler(t)

	rec := postQuery(t, h, "s1", `{"query":"Which tickets are stuck in project CRO?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp domain.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Kind != domain.KindTicketSummary || resp.Tickets == nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(resp.Tickets.Tickets) != 1 || resp.Tickets.Tickets[0].IssueKey != "CRO-1" {
		t.Fatalf("unexpected tickets: %+v", resp.Tickets.Tickets)
	}
}

func TestContextAndReset(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	if rec := postQuery(t, h, "s1", `{"query":"show me stuck tickets"}`); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/s1/context", nil)
	rec := httptest.NewRecorder()
	if err := h.GetContext(sessionContext(e, req, rec, "s1")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var session domain.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if len(session.Exchanges) != 1 {
		t.Fatalf("expected 1 exchange, got %d", len(session.Exchanges))
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/sessions/s1/context", nil)
	rec = httptest.NewRecorder()
	if err := h.ResetContext(sessionContext(e, req, rec, "s1")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/sessions/s1/context", nil)
	rec = httptest.NewRecorder()
	if err := h.GetContext(sessionContext(e, req, rec, "s1")); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	session = domain.Session{}
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if len(session.Exchanges) != 0 {
		t.Fatalf("expected empty context, got %d exchanges", len(session.Exchanges))
	}
}

func TestGetEventsFiltersByType(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	if rec := postQuery(t, h, "s1", `{"query":"show me stuck tickets"}`); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/s1/events?types=sql_executed", nil)
	rec := httptest.NewRecorder()
	if err := h.GetEvents(sessionContext(e, req, rec, "s1")); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp struct {
		Events []domain.Event `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].Type != domain.EventTypeSQLExecuted {
		t.Fatalf("unexpected events: %+v", resp.Events)
	}
}

func TestCatalog(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/projects", nil)
	rec := httptest.NewRecorder()
	if err := h.ListProjects(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var projects struct {
		Projects []domain.Project `json:"projects"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &projects); err != nil {
		t.Fatalf("decode projects: %v", err)
	}
	if len(projects.Projects) != 1 || projects.Projects[0].Key != "CRO" {
		t.Fatalf("unexpected projects: %+v", projects.Projects)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	rec = httptest.NewRecorder()
	if err := h.Stats(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var stats domain.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Issues != 2 || stats.OpenIssues != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestHealth(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	if err := h.Health(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
