// Package handler はHTTPハンドラーを提供する。
package handler

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_day_service.go -package=mocks github.com/hitoshi/pushmyself/internal/handler DayService
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_session_service.go -package=mocks github.com/hitoshi/pushmyself/internal/handler SessionService
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_notification_service.go -package=mocks github.com/hitoshi/pushmyself/internal/handler NotificationService

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/pushmyself/internal/middleware"
	"github.com/hitoshi/pushmyself/internal/model"
	"github.com/hitoshi/pushmyself/internal/notify"
	"github.com/hitoshi/pushmyself/internal/reconcile"
	"github.com/hitoshi/pushmyself/internal/repository"
)

// DayService は1日分レコードのハンドラーが必要とするサービスインターフェース。
// reconcile.Service が実装する。
type DayService interface {
	Status(ctx context.Context) model.Connectivity
	Load(ctx context.Context) (model.Data, error)
	Day(date string) (model.DayData, error)
	Snapshot() (model.Data, error)
	UpdateDay(ctx context.Context, date string, patch model.DayPatch) (reconcile.SyncReport, error)
	AddTodo(ctx context.Context, date string, input reconcile.NewTodo) (model.Todo, reconcile.SyncReport, error)
	ToggleTodo(ctx context.Context, date string, id int64) (model.Todo, reconcile.SyncReport, error)
	EditTodo(ctx context.Context, date string, id int64, patch repository.TodoPatch) (model.Todo, reconcile.SyncReport, error)
	DeleteTodo(ctx context.Context, date string, id int64) (reconcile.SyncReport, error)
	ReorderTodos(ctx context.Context, date string, ids []int64) ([]model.Todo, reconcile.SyncReport, error)
	AddThought(ctx context.Context, date, text string, thoughtType model.ThoughtType) (model.Thought, reconcile.SyncReport, error)
	RemoveThought(ctx context.Context, date string, ref reconcile.ThoughtRef) (reconcile.SyncReport, error)
	EditThought(ctx context.Context, date string, ref reconcile.ThoughtRef, patch repository.ThoughtPatch) (model.Thought, reconcile.SyncReport, error)
	PatchDailyReport(ctx context.Context, date string, patch model.DailyReportPatch) (model.DailyReport, reconcile.SyncReport, error)
	PushLocal(ctx context.Context) ([]reconcile.SyncReport, error)
}

// SessionService はセッション管理のハンドラーが必要とするサービスインターフェース。
// auth.Service が実装する。
type SessionService interface {
	Register(ctx context.Context, displayName string) (*model.Session, error)
	SignIn(ctx context.Context, sessionID string) (model.Connectivity, error)
	SignOut(ctx context.Context) error
}

// NotificationService は通知設定のハンドラーが必要とするサービスインターフェース。
// notify.Scheduler が実装する。
type NotificationService interface {
	Status(ctx context.Context) notify.Status
	UpdateSettings(ctx context.Context, settings model.NotificationSettings) (notify.Status, error)
	SendTest(ctx context.Context, message string) error
}

// mutationResponse は変更系APIの共通レスポンス。
// Syncにはネットワーク側への反映結果が入り、失敗していてもローカルには保存済みである。
type mutationResponse struct {
	Result any                  `json:"result,omitempty"`
	Sync   reconcile.SyncReport `json:"sync"`
}

// decodeJSON はリクエストボディをvに読み込む。失敗時は400を書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return false
	}
	return true
}

// dateParam はURLの{date}を検証して返す。不正な場合は400を書き込みfalseを返す。
func dateParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	date := chi.URLParam(r, "date")
	if err := model.ValidateDate(date); err != nil {
		handleServiceError(w, err)
		return "", false
	}
	return date, true
}

// handleServiceError はサービス層のエラーを適切なHTTPレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	slog.Error("unexpected service error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidDate, model.ErrCodeInvalidMood, model.ErrCodeInvalidPriority,
		model.ErrCodeInvalidRequest, model.ErrCodeEmptyText, model.ErrCodeInvalidTimeOfDay:
		return http.StatusBadRequest
	case model.ErrCodeTodoNotFound, model.ErrCodeThoughtNotFound:
		return http.StatusNotFound
	case model.ErrCodeThoughtLimit, model.ErrCodeReorderMismatch:
		return http.StatusConflict
	case model.ErrCodeSessionInvalid:
		return http.StatusUnauthorized
	case model.ErrCodeNotifyDenied:
		return http.StatusForbidden
	case model.ErrCodeOffline:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
