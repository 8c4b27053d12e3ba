package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    2,
		SyncRate:        0.5,
		SyncBurst:       1,
		CleanupInterval: time.Minute,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func userRequest(method, path, userID string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if userID != "" {
		req = req.WithContext(ContextWithUserID(req.Context(), userID))
	}
	return req
}

// --- GeneralMiddleware のテスト ---

func TestRateLimitMiddleware_AllowsRequestsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, userRequest(http.MethodGet, "/api/days", "user-1"))
		if w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}
}

func TestRateLimitMiddleware_Returns429WhenLimitExceeded(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), userRequest(http.MethodGet, "/api/days", "user-429"))
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, userRequest(http.MethodGet, "/api/days", "user-429"))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body.Code != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("code = %q, want RATE_LIMIT_EXCEEDED", body.Code)
	}
	if body.Category != "system" {
		t.Errorf("category = %q, want system", body.Category)
	}
}

func TestRateLimitMiddleware_SeparateLimitsPerUser(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), userRequest(http.MethodGet, "/api/days", "user-a"))
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, userRequest(http.MethodGet, "/api/days", "user-b"))
	if w.Code != http.StatusOK {
		t.Errorf("user-b status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := rl.GeneralLimiterCount(); got != 2 {
		t.Errorf("GeneralLimiterCount() = %d, want 2", got)
	}
}

func TestRateLimitMiddleware_AnonymousKeyedByIP(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	send := func(addr string) int {
		req := userRequest(http.MethodGet, "/api/status", "")
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	// 同じIPならポートが違っても同じリミッターを使う
	send("10.0.0.1:1111")
	send("10.0.0.1:2222")
	if code := send("10.0.0.1:3333"); code != http.StatusTooManyRequests {
		t.Errorf("third request from same IP: status = %d, want 429", code)
	}
	if code := send("10.0.0.2:1111"); code != http.StatusOK {
		t.Errorf("other IP: status = %d, want 200", code)
	}
}

func TestRateLimitMiddleware_AnonymousNeverUnauthorized(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	w := httptest.NewRecorder()
	rl.GeneralMiddleware()(okHandler()).ServeHTTP(w, userRequest(http.MethodGet, "/api/days", ""))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// --- SyncMiddleware のテスト ---

func TestSyncMiddleware_RetryAfterReflectsRate(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.SyncMiddleware()(okHandler())

	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, userRequest(http.MethodPost, "/api/sync", "user-sync"))
	if w1.Code != http.StatusOK {
		t.Fatalf("first sync: status = %d, want 200", w1.Code)
	}

	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, userRequest(http.MethodPost, "/api/sync", "user-sync"))
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("second sync: status = %d, want 429", w2.Code)
	}
	// 0.5 req/sec なので2秒後に補充される
	if got := w2.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want 2", got)
	}
}

func TestSyncMiddleware_IndependentFromGeneral(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	general := rl.GeneralMiddleware()(okHandler())
	bulk := rl.SyncMiddleware()(okHandler())

	bulk.ServeHTTP(httptest.NewRecorder(), userRequest(http.MethodPost, "/api/sync", "user-x"))

	w := httptest.NewRecorder()
	general.ServeHTTP(w, userRequest(http.MethodGet, "/api/days", "user-x"))
	if w.Code != http.StatusOK {
		t.Errorf("general after sync exhausted: status = %d, want 200", w.Code)
	}
	if rl.SyncLimiterCount() != 1 || rl.GeneralLimiterCount() != 1 {
		t.Errorf("counts = sync %d general %d, want 1/1", rl.SyncLimiterCount(), rl.GeneralLimiterCount())
	}
}

func TestSyncMiddleware_ChainedWithGeneral(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(rl.SyncMiddleware()(okHandler()))

	handler.ServeHTTP(httptest.NewRecorder(), userRequest(http.MethodPost, "/api/sync", "user-chain"))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, userRequest(http.MethodPost, "/api/sync", "user-chain"))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 from sync tier", w.Code)
	}
}

// --- cleanup のテスト ---

func TestRateLimiter_CleanupEvictsIdleEntries(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	rl.GeneralMiddleware()(okHandler()).ServeHTTP(httptest.NewRecorder(), userRequest(http.MethodGet, "/", "user-idle"))
	rl.SyncMiddleware()(okHandler()).ServeHTTP(httptest.NewRecorder(), userRequest(http.MethodPost, "/api/sync", "user-idle"))

	// TTL（CleanupIntervalの2倍）以内なら残る
	rl.cleanup(time.Now().Add(time.Minute))
	if rl.GeneralLimiterCount() != 1 || rl.SyncLimiterCount() != 1 {
		t.Fatalf("entries evicted too early: general %d sync %d", rl.GeneralLimiterCount(), rl.SyncLimiterCount())
	}

	rl.cleanup(time.Now().Add(3 * time.Minute))
	if rl.GeneralLimiterCount() != 0 || rl.SyncLimiterCount() != 0 {
		t.Errorf("entries not evicted: general %d sync %d", rl.GeneralLimiterCount(), rl.SyncLimiterCount())
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	rl.Stop()
	rl.Stop()
}

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()
	if cfg.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", cfg.GeneralBurst)
	}
	if cfg.SyncRate >= cfg.GeneralRate {
		t.Errorf("SyncRate %v should be stricter than GeneralRate %v", cfg.SyncRate, cfg.GeneralRate)
	}
}

func TestWriteRateLimitResponse_IsAPIError(t *testing.T) {
	w := httptest.NewRecorder()
	writeRateLimitResponse(w, 0)

	if w.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", w.Header().Get("Retry-After"))
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Code != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("code = %q", body.Code)
	}
}
