package handler

import (
	"net/http"

	"github.com/hitoshi/pushmyself/internal/middleware"
	"github.com/hitoshi/pushmyself/internal/model"
)

// NotificationHandler は毎日の通知設定のHTTPハンドラー。
type NotificationHandler struct {
	service NotificationService
}

// NewNotificationHandler はNotificationHandlerを生成する。
func NewNotificationHandler(service NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// testNotificationRequest はテスト通知リクエストのボディ。
type testNotificationRequest struct {
	Message string `json:"message"`
}

// GetSettings は通知の状態と設定を返す。
// GET /api/notifications
func (h *NotificationHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.service.Status(r.Context()))
}

// UpdateSettings は通知設定を置き換える。enabledに応じてタイマーを張るか解除する。
// 通知が許可されていない場合もエラーにはせず、permissionとstateで返す。
// PUT /api/notifications
func (h *NotificationHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings model.NotificationSettings
	if !decodeJSON(w, r, &settings) {
		return
	}

	status, err := h.service.UpdateSettings(r.Context(), settings)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, status)
}

// SendTest はテスト通知を直ちに配信する。ボディは省略できる。
// POST /api/notifications/test
func (h *NotificationHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	var req testNotificationRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	if err := h.service.SendTest(r.Context(), req.Message); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
