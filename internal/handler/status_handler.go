package handler

import (
	"net/http"

	"github.com/hitoshi/pushmyself/internal/middleware"
	"github.com/hitoshi/pushmyself/internal/model"
)

// statusResponse は接続状態のレスポンス。
type statusResponse struct {
	model.Connectivity
	Online bool `json:"online"`
}

// StatusHandler は死活監視と接続状態のHTTPハンドラー。
type StatusHandler struct {
	service DayService
}

// NewStatusHandler はStatusHandlerを生成する。
func NewStatusHandler(service DayService) *StatusHandler {
	return &StatusHandler{service: service}
}

// Health はプロセスが応答できることだけを返す。ネットワークストアには問い合わせない。
// GET /health
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status はネットワークストアへの到達性と認証状態を返す。
// オフラインでもアプリは動作するため、常に200を返す。
// GET /api/status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	conn := h.service.Status(r.Context())
	middleware.WriteJSON(w, http.StatusOK, statusResponse{Connectivity: conn, Online: conn.Online()})
}
