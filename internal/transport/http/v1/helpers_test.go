package v1

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/studyclub/internal/adapter/llm"
	"github.com/xiaot623/studyclub/internal/policy"
	"github.com/xiaot623/studyclub/internal/service"
	"github.com/xiaot623/studyclub/tests/helpers"
)

func newTestHandler(t *testing.T) (*Handler, *service.Service) {
	t.Helper()

	client := llm.NewMockClient()
	store := helpers.NewTestStore(t, client)
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	svc := service.New(store, client, engine)
	return NewHandler(svc, nil), svc
}

func newContext(e *echo.Echo, method, target, body, sessionID string) (echo.Context, *httptest.ResponseRecorder) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if sessionID != "" {
		c.SetParamNames("session_id")
		c.SetParamValues(sessionID)
	}
	return c, rec
}
