//go:build integration

package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/linkcut/linkcut/internal/cache"
	"github.com/linkcut/linkcut/internal/testutil"
)

// TestIPRateLimitConcurrency verifies IP-based rate limiting under
// concurrent load. Requires Redis.
func TestIPRateLimitConcurrency(t *testing.T) {
	redisURL := testutil.RequireEnv(t, "REDIS_URL")
	ctx := context.Background()

	cacheClient, err := cache.New(ctx, redisURL)
	if err != nil {
		t.Fatalf("connect to Redis: %v", err)
	}
	defer cacheClient.Close()

	if err := testutil.FlushRedis(ctx, cacheClient.Client()); err != nil {
		t.Fatalf("flush Redis: %v", err)
	}

	testIP := "192.168.1.100"
	rps := 5
	burst := 3

	var allowed, rejected int64
	var wg sync.WaitGroup

	// 30 concurrent requests against a bucket of 3+5
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := cacheClient.CheckIPRateLimit(ctx, testIP, rps, burst)
			if err != nil {
				t.Errorf("CheckIPRateLimit error: %v", err)
				return
			}
			if result.Allowed {
				atomic.AddInt64(&allowed, 1)
			} else {
				atomic.AddInt64(&rejected, 1)
			}
		}()
	}

	wg.Wait()

	t.Logf("IP rate limit: %d allowed, %d rejected", allowed, rejected)

	if allowed > int64(rps+burst) {
		t.Errorf("too many requests allowed: %d (expected <= %d)", allowed, rps+burst)
	}
	if rejected == 0 {
		t.Error("expected some requests to be rejected")
	}
}

// TestRateLimitIP_Middleware drives the middleware end to end against a
// real Redis bucket.
func TestRateLimitIP_Middleware(t *testing.T) {
	redisURL := testutil.RequireEnv(t, "REDIS_URL")
	ctx := context.Background()

	cacheClient, err := cache.New(ctx, redisURL)
	if err != nil {
		t.Fatalf("connect to Redis: %v", err)
	}
	defer cacheClient.Close()

	if err := testutil.FlushRedis(ctx, cacheClient.Client()); err != nil {
		t.Fatalf("flush Redis: %v", err)
	}

	mw := RateLimitIP(RateLimitConfig{
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		Cache:           cacheClient,
		RedirectEnabled: true,
		RedirectRPS:     1,
		RedirectBurst:   2,
	})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var got429 bool
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/abc1234", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code == http.StatusTooManyRequests {
			got429 = true
			if rec.Header().Get("Retry-After") == "" {
				t.Error("429 response missing Retry-After header")
			}
			break
		}
	}

	if !got429 {
		t.Error("expected the bucket to run dry within 10 requests")
	}
}

// Test429Response verifies the rate limit error response format.
func Test429Response(t *testing.T) {
	rec := httptest.NewRecorder()
	writeRateLimitError(rec, 5*time.Second)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Error("expected JSON content type")
	}
	if rec.Body.Len() == 0 {
		t.Error("expected error body")
	}
}
