package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/inkwell-ai/inkwell/cancel"
	"github.com/inkwell-ai/inkwell/retry"
)

func fastClient(t *testing.T, registry *cancel.Registry, maxRetries int) *Client {
	t.Helper()
	c, err := New(Config{
		Orchestrator: retry.New(retry.Config{
			Registry: registry,
			Policy:   retry.Policy{MaxRetries: maxRetries, BaseDelay: time.Millisecond},
		}),
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

func TestClient_RetriesServerErrorsThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := fastClient(t, nil, 3)
	payload, err := c.Post(context.Background(), srv.URL, nil, map[string]string{"prompt": "hi"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits.Load() != 4 {
		t.Errorf("expected 4 requests, got %d", hits.Load())
	}
	if string(payload) != `{"ok":true}` {
		t.Errorf("unexpected payload: %s", payload)
	}
}

func TestClient_ClientErrorFailsImmediately(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"bad"}`))
	}))
	defer srv.Close()

	c := fastClient(t, nil, 3)
	_, err := c.Post(context.Background(), srv.URL, nil, nil, "")

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Status != 404 {
		t.Errorf("expected status 404, got %d", httpErr.Status)
	}
	if got := httpErr.Error(); got != "HTTP 404: Not Found" {
		t.Errorf("unexpected error message: %q", got)
	}
	if httpErr.Body["error"] != "bad" {
		t.Errorf("expected error body preserved, got %v", httpErr.Body)
	}
	if hits.Load() != 1 {
		t.Errorf("expected exactly 1 request, got %d", hits.Load())
	}
}

func TestClient_ExhaustedServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := fastClient(t, nil, 2)
	_, err := c.Post(context.Background(), srv.URL, nil, nil, "")

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Status != 502 {
		t.Errorf("expected status 502, got %d", httpErr.Status)
	}
	var exhausted *retry.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Error("expected HTTPError to wrap the exhaustion error")
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 requests, got %d", hits.Load())
	}
}

func TestClient_NetworkErrorAfterExhaustion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // nothing listening anymore

	c := fastClient(t, nil, 1)
	_, err := c.Post(context.Background(), url, nil, nil, "")

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if netErr.Message == "" {
		t.Error("expected the underlying failure message to be carried")
	}
}

func TestClient_NullBodySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	}))
	defer srv.Close()

	c := fastClient(t, nil, 3)
	payload, err := c.Post(context.Background(), srv.URL, nil, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != "null" {
		t.Errorf("expected literal null preserved, got %q", payload)
	}
}

func TestClient_HeadersAndBody(t *testing.T) {
	type echo struct {
		ContentType string `json:"content_type"`
		Auth        string `json:"auth"`
		Prompt      string `json:"prompt"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(echo{
			ContentType: r.Header.Get("Content-Type"),
			Auth:        r.Header.Get("Authorization"),
			Prompt:      body["prompt"],
		})
	}))
	defer srv.Close()

	c := fastClient(t, nil, 0)
	payload, err := c.Post(context.Background(), srv.URL,
		map[string]string{"Authorization": "Bearer token"},
		map[string]string{"prompt": "hello"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got echo
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("failed to decode echo: %v", err)
	}
	if got.ContentType != "application/json" {
		t.Errorf("expected JSON content type, got %q", got.ContentType)
	}
	if got.Auth != "Bearer token" {
		t.Errorf("expected auth header forwarded, got %q", got.Auth)
	}
	if got.Prompt != "hello" {
		t.Errorf("expected body forwarded, got %q", got.Prompt)
	}
}

func TestClient_OwnerCancellation(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	registry := cancel.NewRegistry()
	c := fastClient(t, registry, 3)

	done := make(chan error, 1)
	go func() {
		_, err := c.Post(context.Background(), srv.URL, nil, nil, "tab-7")
		done <- err
	}()

	deadline := time.After(2 * time.Second)
	for registry.OwnerLen("tab-7") == 0 {
		select {
		case <-deadline:
			t.Fatal("request never registered")
		case <-time.After(time.Millisecond):
		}
	}
	registry.CancelOwner("tab-7")

	select {
	case err := <-done:
		if !errors.Is(err, retry.ErrCanceled) {
			t.Errorf("expected ErrCanceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation did not interrupt the request")
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 request before cancellation, got %d", hits.Load())
	}
}

func TestNew_RequiresOrchestrator(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error without an orchestrator")
	}
}
