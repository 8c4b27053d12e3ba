package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/pushmyself/internal/middleware"
	"github.com/hitoshi/pushmyself/internal/model"
	"github.com/hitoshi/pushmyself/internal/reconcile"
	"github.com/hitoshi/pushmyself/internal/repository"
)

// DayHandler は1日分レコード（Todo・Thought・DailyReport）のHTTPハンドラー。
type DayHandler struct {
	service DayService
}

// NewDayHandler はDayHandlerを生成する。
func NewDayHandler(service DayService) *DayHandler {
	return &DayHandler{service: service}
}

// dayListResponse は全日付一覧のレスポンス。
type dayListResponse struct {
	Days model.Data `json:"days"`
}

// todoPatchRequest はTodo編集リクエストのボディ。省略したフィールドは変更しない。
type todoPatchRequest struct {
	Text        *string         `json:"text"`
	Completed   *bool           `json:"completed"`
	Priority    *model.Priority `json:"priority"`
	Type        *string         `json:"type"`
	Link        *string         `json:"link"`
	Description *string         `json:"description"`
}

// reorderRequest は並べ替えリクエストのボディ。idsは新しい表示順。
type reorderRequest struct {
	IDs []int64 `json:"ids"`
}

// addThoughtRequest はThought追加リクエストのボディ。
type addThoughtRequest struct {
	Text string            `json:"text"`
	Type model.ThoughtType `json:"type"`
}

// thoughtPatchRequest はThought編集リクエストのボディ。省略したフィールドは変更しない。
type thoughtPatchRequest struct {
	Text *string            `json:"text"`
	Type *model.ThoughtType `json:"type"`
}

// syncResponse は一括同期のレスポンス。
type syncResponse struct {
	Reports []reconcile.SyncReport `json:"reports"`
}

// ListDays は全日付のレコードを返す。オンラインならネットワークストアから読み込む。
// GET /api/days
func (h *DayHandler) ListDays(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Load(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dayListResponse{Days: data})
}

// GetDay は指定日のレコードを返す。
// GET /api/days/{date}
func (h *DayHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	day, err := h.service.Day(date)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, day)
}

// UpdateDay は指定日のレコードにパッチを適用する。
// PATCH /api/days/{date}
func (h *DayHandler) UpdateDay(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	var patch model.DayPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if patch.IsEmpty() {
		handleServiceError(w, model.NewInvalidRequestError("patch is empty"))
		return
	}

	report, err := h.service.UpdateDay(r.Context(), date, patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	day, err := h.service.Day(date)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, mutationResponse{Result: day, Sync: report})
}

// AddTodo はTodoを追加する。
// POST /api/days/{date}/todos
func (h *DayHandler) AddTodo(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	var req reconcile.NewTodo
	if !decodeJSON(w, r, &req) {
		return
	}

	todo, report, err := h.service.AddTodo(r.Context(), date, req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, mutationResponse{Result: todo, Sync: report})
}

// EditTodo はTodoの内容を部分更新する。
// PATCH /api/days/{date}/todos/{id}
func (h *DayHandler) EditTodo(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	id, ok := todoIDParam(w, r)
	if !ok {
		return
	}
	var req todoPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	todo, report, err := h.service.EditTodo(r.Context(), date, id, repository.TodoPatch{
		Text:        req.Text,
		Completed:   req.Completed,
		Priority:    req.Priority,
		Type:        req.Type,
		Link:        req.Link,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, mutationResponse{Result: todo, Sync: report})
}

// ToggleTodo はTodoの完了状態を反転する。
// POST /api/days/{date}/todos/{id}/toggle
func (h *DayHandler) ToggleTodo(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	id, ok := todoIDParam(w, r)
	if !ok {
		return
	}

	todo, report, err := h.service.ToggleTodo(r.Context(), date, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, mutationResponse{Result: todo, Sync: report})
}

// DeleteTodo はTodoを削除し、残りを詰め直す。
// DELETE /api/days/{date}/todos/{id}
func (h *DayHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	id, ok := todoIDParam(w, r)
	if !ok {
		return
	}

	report, err := h.service.DeleteTodo(r.Context(), date, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, mutationResponse{Sync: report})
}

// ReorderTodos はTodoを指定順に並べ替える。
// PUT /api/days/{date}/todos/order
func (h *DayHandler) ReorderTodos(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	var req reorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	todos, report, err := h.service.ReorderTodos(r.Context(), date, req.IDs)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, mutationResponse{Result: todos, Sync: report})
}

// AddThought はThoughtを追加する。
// POST /api/days/{date}/thoughts
func (h *DayHandler) AddThought(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	var req addThoughtRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	thought, report, err := h.service.AddThought(r.Context(), date, req.Text, req.Type)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, mutationResponse{Result: thought, Sync: report})
}

// RemoveThought はIDまたは位置（idx-N）で指定したThoughtを削除する。
// DELETE /api/days/{date}/thoughts/{ref}
func (h *DayHandler) RemoveThought(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	ref, err := reconcile.ParseThoughtRef(chi.URLParam(r, "ref"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	report, err := h.service.RemoveThought(r.Context(), date, ref)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, mutationResponse{Sync: report})
}

// EditThought はIDまたは位置（idx-N）で指定したThoughtの本文・種別を変更する。
// PATCH /api/days/{date}/thoughts/{ref}
func (h *DayHandler) EditThought(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	ref, err := reconcile.ParseThoughtRef(chi.URLParam(r, "ref"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	var req thoughtPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	thought, report, err := h.service.EditThought(r.Context(), date, ref, repository.ThoughtPatch{
		Text: req.Text,
		Type: req.Type,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, mutationResponse{Result: thought, Sync: report})
}

// PatchReport はDailyReportの指定フィールドのみを更新する。
// PATCH /api/days/{date}/report
func (h *DayHandler) PatchReport(w http.ResponseWriter, r *http.Request) {
	date, ok := dateParam(w, r)
	if !ok {
		return
	}
	var patch model.DailyReportPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	report, sync, err := h.service.PatchDailyReport(r.Context(), date, patch)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, mutationResponse{Result: report, Sync: sync})
}

// Sync はローカルの全日付をネットワークストアへ書き込む。
// POST /api/sync
func (h *DayHandler) Sync(w http.ResponseWriter, r *http.Request) {
	reports, err := h.service.PushLocal(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, syncResponse{Reports: reports})
}

// todoIDParam はURLの{id}を数値として返す。不正な場合は400を書き込みfalseを返す。
func todoIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		handleServiceError(w, model.NewInvalidRequestError("invalid todo id: "+raw))
		return 0, false
	}
	return id, true
}
