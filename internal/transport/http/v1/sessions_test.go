package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/studyclub/internal/domain"
)

func TestCreateAndListSessions(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	c, rec := newContext(e, http.MethodPost, "/v1/sessions", `{"name":"Algebra"}`, "")
	if err := h.CreateSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var created domain.ChatSession
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Name != "Algebra" || created.ID == "" {
		t.Fatalf("unexpected session: %+v", created)
	}

	c, rec = newContext(e, http.MethodPost, "/v1/sessions", "", "")
	if err := h.CreateSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	c, rec = newContext(e, http.MethodGet, "/v1/sessions", "", "")
	if err := h.ListSessions(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp struct {
		Sessions []domain.ChatSession `json:"sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(resp.Sessions))
	}
	if resp.Sessions[0].Name != "Session 2" || resp.Sessions[1].ID != created.ID {
		t.Fatalf("expected newest first, got %+v", resp.Sessions)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t)

	c, rec := newContext(e, http.MethodGet, "/v1/sessions/missing", "", "missing")
	if err := h.GetSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRenameSession(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t)
	sess := svc.CreateSession(context.Background(), "Old")

	c, rec := newContext(e, http.MethodPatch, "/v1/sessions/"+sess.ID, `{"name":"New"}`, sess.ID)
	if err := h.RenameSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got domain.ChatSession
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Name != "New" {
		t.Fatalf("expected New, got %q", got.Name)
	}

	c, rec = newContext(e, http.MethodPatch, "/v1/sessions/"+sess.ID, `{"name":"  "}`, sess.ID)
	if err := h.RenameSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	c, rec = newContext(e, http.MethodPatch, "/v1/sessions/missing", `{"name":"x"}`, "missing")
	if err := h.RenameSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeleteSessionIsIdempotent(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t)
	sess := svc.CreateSession(context.Background(), "A")

	for i := 0; i < 2; i++ {
		c, rec := newContext(e, http.MethodDelete, "/v1/sessions/"+sess.ID, "", sess.ID)
		if err := h.DeleteSession(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	}
	if _, err := svc.GetSession(context.Background(), sess.ID); err == nil {
		t.Fatalf("expected session to be deleted")
	}
}

func TestClearSession(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t)
	ctx := context.Background()
	sess := svc.CreateSession(ctx, "A")
	if _, err := svc.AppendMessage(ctx, sess.ID, domain.RoleUser, "hello"); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	c, rec := newContext(e, http.MethodPost, "/v1/sessions/"+sess.ID+"/clear", "", sess.ID)
	if err := h.ClearSession(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var got domain.ChatSession
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Messages) != 0 {
		t.Fatalf("expected no messages, got %d", len(got.Messages))
	}
}

func TestPrune(t *testing.T) {
	e := echo.New()
	h, svc := newTestHandler(t)
	svc.CreateSession(context.Background(), "A")

	c, rec := newContext(e, http.MethodPost, "/v1/prune", "", "")
	if err := h.Prune(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["sessions"] != 1 {
		t.Fatalf("expected 1 session, got %v", resp)
	}
}
