package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xiaot623/studyclub/internal/domain"
)

// APIClient talks to the REST API of the chat service.
type APIClient struct {
	baseURL string
	http    *http.Client
}

// NewAPIClient creates a client for the service at baseURL.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 90 * time.Second},
	}
}

func (c *APIClient) ListSessions(ctx context.Context) ([]domain.ChatSession, error) {
	var resp struct {
		Sessions []domain.ChatSession `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/sessions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

func (c *APIClient) CreateSession(ctx context.Context, name string) (domain.ChatSession, error) {
	var sess domain.ChatSession
	err := c.do(ctx, http.MethodPost, "/v1/sessions", map[string]string{"name": name}, &sess)
	return sess, err
}

func (c *APIClient) RenameSession(ctx context.Context, id, name string) (domain.ChatSession, error) {
	var sess domain.ChatSession
	err := c.do(ctx, http.MethodPatch, "/v1/sessions/"+id, map[string]string{"name": name}, &sess)
	return sess, err
}

func (c *APIClient) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/sessions/"+id, nil, nil)
}

func (c *APIClient) ClearSession(ctx context.Context, id string) (domain.ChatSession, error) {
	var sess domain.ChatSession
	err := c.do(ctx, http.MethodPost, "/v1/sessions/"+id+"/clear", nil, &sess)
	return sess, err
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
