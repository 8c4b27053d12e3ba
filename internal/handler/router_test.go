package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/hitoshi/pushmyself/internal/handler/mocks"
	"github.com/hitoshi/pushmyself/internal/middleware"
	"github.com/hitoshi/pushmyself/internal/model"
	"github.com/hitoshi/pushmyself/internal/reconcile"
)

func TestRouter_Routes(t *testing.T) {
	tr := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"GET /health", http.MethodGet, "/health", http.StatusOK},
		{"GET /metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"unknown path", http.MethodGet, "/api/feeds", http.StatusNotFound},
		{"GET /api/sync method not allowed", http.MethodGet, "/api/sync", http.StatusMethodNotAllowed},
		{"POST /api/days method not allowed", http.MethodPost, "/api/days", http.StatusMethodNotAllowed},
		{"CORS preflight", http.MethodOptions, "/api/days/2026-10-15/todos", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := tr.do(tt.method, tt.path, "")
			if w.Code != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRouter_Status(t *testing.T) {
	tr := newTestRouter(t)
	tr.days.EXPECT().Status(gomock.Any()).Return(model.Connectivity{Reachable: true})

	w := tr.do(http.MethodGet, "/api/status", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := decodeBody(t, w)
	if body["reachable"] != true || body["authenticated"] != false || body["online"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestRouter_Headers(t *testing.T) {
	tr := newTestRouter(t)

	w := tr.do(http.MethodGet, "/health", "")

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID missing")
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Error("security headers missing")
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Error("CORS headers missing")
	}
}

// 他オリジンからの書き込みはサービスに届かない
func TestRouter_CrossOriginWriteRejected(t *testing.T) {
	tr := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/days/2026-10-15/todos", strings.NewReader(`{"text":"x"}`))
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	tr.handler.ServeHTTP(w, req)

	assertError(t, w, http.StatusForbidden, "ORIGIN_NOT_ALLOWED")
}

func TestRouter_SyncHasOwnRateLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	days := mocks.NewMockDayService(ctrl)
	days.EXPECT().PushLocal(gomock.Any()).Return([]reconcile.SyncReport{}, nil).Times(1)
	days.EXPECT().Status(gomock.Any()).Return(model.Connectivity{}).Times(2)

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     100,
		GeneralBurst:    100,
		SyncRate:        0.01,
		SyncBurst:       1,
		CleanupInterval: time.Minute,
	})
	defer rl.Stop()

	router := NewRouter(&RouterDeps{
		Logger:              slog.New(slog.NewJSONHandler(io.Discard, nil)),
		OwnerResolver:       fixedOwner("owner-1"),
		RateLimiter:         rl,
		DayService:          days,
		SessionService:      mocks.NewMockSessionService(ctrl),
		NotificationService: mocks.NewMockNotificationService(ctrl),
	})

	send := func(method, path string) int {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w.Code
	}

	if code := send(http.MethodPost, "/api/sync"); code != http.StatusOK {
		t.Fatalf("first sync status = %d, want 200", code)
	}
	if code := send(http.MethodPost, "/api/sync"); code != http.StatusTooManyRequests {
		t.Errorf("second sync status = %d, want 429", code)
	}
	// 一括同期の制限は他のAPIに影響しない
	for i := 0; i < 2; i++ {
		if code := send(http.MethodGet, "/api/status"); code != http.StatusOK {
			t.Errorf("status request %d = %d, want 200", i, code)
		}
	}
}

func TestRouter_NoMetricsHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer rl.Stop()

	router := NewRouter(&RouterDeps{
		OwnerResolver:       fixedOwner(""),
		RateLimiter:         rl,
		DayService:          mocks.NewMockDayService(ctrl),
		SessionService:      mocks.NewMockSessionService(ctrl),
		NotificationService: mocks.NewMockNotificationService(ctrl),
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
