package remote_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"loom/internal/services"
	"loom/internal/services/remote"
)

func TestGetJSONDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos/abc" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		if got := r.URL.Query().Get("part"); got != "snippet" {
			t.Errorf("unexpected query %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"Sample Video"}`))
	}))
	defer server.Close()

	caller := remote.New(server.URL, "secret")
	var out struct {
		Title string `json:"title"`
	}
	query := url.Values{"part": []string{"snippet"}}
	if err := caller.GetJSON(context.Background(), "/videos/abc", query, &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if out.Title != "Sample Video" {
		t.Fatalf("unexpected title %q", out.Title)
	}
}

func TestPostJSONSendsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("unexpected content type %q", got)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"req-1"}`))
	}))
	defer server.Close()

	caller := remote.New(server.URL, "")
	var out struct {
		ID string `json:"id"`
	}
	payload := map[string]string{"video_id": "abc"}
	if err := caller.PostJSON(context.Background(), "/transcribe", payload, &out); err != nil {
		t.Fatalf("PostJSON failed: %v", err)
	}
	if out.ID != "req-1" {
		t.Fatalf("unexpected id %q", out.ID)
	}
}

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		marker error
	}{
		{http.StatusTooManyRequests, services.ErrTransient},
		{http.StatusInternalServerError, services.ErrTransient},
		{http.StatusBadGateway, services.ErrTransient},
		{http.StatusUnauthorized, services.ErrAuth},
		{http.StatusForbidden, services.ErrAuth},
		{http.StatusNotFound, services.ErrNotFound},
		{http.StatusBadRequest, services.ErrValidation},
		{http.StatusUnprocessableEntity, services.ErrValidation},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"error":"nope"}`))
		}))
		caller := remote.New(server.URL, "")
		err := caller.GetJSON(context.Background(), "/x", nil, nil)
		server.Close()
		if !errors.Is(err, tc.marker) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.marker, err)
		}
		wantRetry := errors.Is(tc.marker, services.ErrTransient)
		if services.Retryable(err) != wantRetry {
			t.Fatalf("status %d: retryable mismatch for %v", tc.status, err)
		}
	}
}

func TestTransportErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	caller := remote.New(server.URL, "")
	err := caller.GetJSON(context.Background(), "/x", nil, nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestContextCancellationPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	caller := remote.New(server.URL, "")
	err := caller.GetJSON(ctx, "/x", nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMissingBaseURLIsConfigurationError(t *testing.T) {
	caller := remote.New("", "")
	err := caller.GetJSON(context.Background(), "/x", nil, nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestMalformedResponseIsValidationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	caller := remote.New(server.URL, "")
	var out map[string]any
	err := caller.GetJSON(context.Background(), "/x", nil, &out)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
