package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/pushmyself/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	OwnerResolver     middleware.OwnerResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// /metrics。nilの場合はルートを登録しない。
	MetricsHandler http.Handler

	DayService          DayService
	SessionService      SessionService
	NotificationService NotificationService

	// Now は集計の基準時刻。nilの場合はtime.Now。
	Now func() time.Time
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → SecurityHeaders → CORS → OriginGuard → Session → RateLimit(General)
//
// /health と /metrics はレート制限の外に置く。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	statusHandler := NewStatusHandler(deps.DayService)
	dayHandler := NewDayHandler(deps.DayService)
	statsHandler := NewStatsHandler(deps.DayService, deps.Now)
	sessionHandler := NewSessionHandler(deps.SessionService)
	notificationHandler := NewNotificationHandler(deps.NotificationService)

	// --- 監視用のルート ---
	r.Get("/health", statusHandler.Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- API ---
	// ミドルウェアスタック: OriginGuard → Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewOriginGuardMiddleware(deps.CORSAllowedOrigin))
		r.Use(middleware.NewSessionMiddleware(deps.OwnerResolver))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/status", statusHandler.Status)

		r.Route("/api/auth/session", func(r chi.Router) {
			r.Post("/", sessionHandler.SignIn)
			r.Delete("/", sessionHandler.SignOut)
		})

		r.Get("/api/days", dayHandler.ListDays)
		r.Route("/api/days/{date}", func(r chi.Router) {
			r.Get("/", dayHandler.GetDay)
			r.Patch("/", dayHandler.UpdateDay)

			r.Route("/todos", func(r chi.Router) {
				r.Post("/", dayHandler.AddTodo)
				r.Put("/order", dayHandler.ReorderTodos)

				r.Route("/{id}", func(r chi.Router) {
					r.Patch("/", dayHandler.EditTodo)
					r.Delete("/", dayHandler.DeleteTodo)
					r.Post("/toggle", dayHandler.ToggleTodo)
				})
			})

			r.Route("/thoughts", func(r chi.Router) {
				r.Post("/", dayHandler.AddThought)
				r.Patch("/{ref}", dayHandler.EditThought)
				r.Delete("/{ref}", dayHandler.RemoveThought)
			})

			r.Patch("/report", dayHandler.PatchReport)
		})

		// POST /api/sync - 一括同期（専用レート制限を追加）
		r.With(deps.RateLimiter.SyncMiddleware()).Post("/api/sync", dayHandler.Sync)

		r.Get("/api/stats", statsHandler.GetStats)
		r.Get("/api/stats/weekly", statsHandler.GetWeekly)

		r.Route("/api/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.GetSettings)
			r.Put("/", notificationHandler.UpdateSettings)
			r.Post("/test", notificationHandler.SendTest)
		})
	})

	return r
}
