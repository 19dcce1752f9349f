package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ranmrojas/nakermotosstore-sub001/internal/http/handlers"
)

// burst hits return 429
func TestRateLimits(t *testing.T) {
	ta := newTestApp(t, handlers.RouteConfig{AdminMax: 2, AdminWindow: time.Minute, AvailMax: 3, AvailWindow: time.Minute})

	for i := 0; i < 4; i++ {
		resp, _ := ta.do(t, "GET", "/api/v1/availability?productId=11", false)
		if i < 3 && resp.StatusCode == http.StatusTooManyRequests {
			t.Fatalf("hit rate limit too early at %d", i)
		}
		if i == 3 && resp.StatusCode != http.StatusTooManyRequests {
			t.Fatalf("expected 429 after limit, got %d", resp.StatusCode)
		}
	}

	for i := 0; i < 3; i++ {
		resp, _ := ta.do(t, "POST", "/api/v1/cache/categories/1/sync", true)
		if i < 2 && resp.StatusCode == http.StatusTooManyRequests {
			t.Fatalf("admin limit too early at %d", i)
		}
		if i == 2 && resp.StatusCode != http.StatusTooManyRequests {
			t.Fatalf("expected 429 after admin limit, got %d", resp.StatusCode)
		}
	}
	if got := ta.api.prodHits.Load(); got != 2 {
		t.Fatalf("rate-limited request reached the remote: %d product fetches", got)
	}
}

// oversized POST rejected with 413
func TestBodySizeLimit(t *testing.T) {
	ta := newTestApp(t, handlers.RouteConfig{})

	oversize := bytes.Repeat([]byte("A"), (1<<20)+10)
	req := httptest.NewRequest("POST", "/api/v1/cache/reset", bytes.NewReader(oversize))
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Admin-Token", adminToken)
	resp, err := ta.app.Test(req)
	// Fiber returns an error instead of a response when body too large; treat that as pass
	if err != nil {
		if strings.Contains(err.Error(), "body size exceeds") || strings.Contains(err.Error(), "too large") {
			return
		}
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for oversize, got %d", resp.StatusCode)
	}
}
