package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/triagehq/triage-service/internal/config"
)

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	client := NewClient(config.AIConfig{
		Endpoint: endpoint,
		APIKey:   "super-secret-key",
	}, zap.NewNop())
	client.policy.Sleep = func(context.Context, time.Duration) error { return nil }
	return client
}

func TestGenerateSuccess(t *testing.T) {
	t.Parallel()

	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		w.Write([]byte(`{"text":"{\"sentiment\":\"NEGATIVE\"}"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	text, err := client.Generate(context.Background(), "classify this")
	if err != nil {
		t.Fatalf("Generate() = %v, want nil", err)
	}
	if !strings.Contains(text, "NEGATIVE") {
		t.Fatalf("text = %q, want backend payload", text)
	}
	if gotKey != "super-secret-key" {
		t.Fatalf("key query = %q, want configured API key", gotKey)
	}
}

func TestGenerateRetriesTransientStatus(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"text":"ok after retries"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	text, err := client.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate() = %v, want success on third attempt", err)
	}
	if text != "ok after retries" {
		t.Fatalf("text = %q", text)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestGenerateExhaustionMapsToRateLimited(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusTooManyRequests, http.StatusServiceUnavailable} {
		status := status
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(status)
		}))

		client := newTestClient(t, srv.URL)
		_, err := client.Generate(context.Background(), "prompt")
		srv.Close()

		if !errors.Is(err, ErrRateLimited) {
			t.Fatalf("status %d: Generate() = %v, want ErrRateLimited", status, err)
		}
		if calls != 3 {
			t.Fatalf("status %d: calls = %d, want 3", status, calls)
		}
		if strings.Contains(err.Error(), "super-secret-key") || strings.Contains(err.Error(), srv.URL) {
			t.Fatalf("error leaks credential or endpoint: %v", err)
		}
	}
}

func TestGenerateNonTransientStatusFailsFast(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Generate(context.Background(), "prompt")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("Generate() = %v, want ErrGenerationFailed", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want no retries on 400", calls)
	}
}

func TestGenerateEmptyTextFailsWithoutRetry(t *testing.T) {
	t.Parallel()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"text":"   "}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Generate(context.Background(), "prompt")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("Generate() = %v, want ErrGenerationFailed", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestGenerateUnreachableBackendSanitized(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	client := newTestClient(t, srv.URL)
	_, err := client.Generate(context.Background(), "prompt")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Generate() = %v, want ErrUnavailable", err)
	}
	if strings.Contains(err.Error(), "super-secret-key") || strings.Contains(err.Error(), srv.URL) {
		t.Fatalf("error leaks credential or endpoint: %v", err)
	}
}
