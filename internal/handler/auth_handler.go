package handler

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/pushmyself/internal/middleware"
)

// SessionHandler はネットワークストアへのサインイン・サインアウトのHTTPハンドラー。
// セッションIDはLocal Mirrorに保存されるため、Cookieは使わない。
type SessionHandler struct {
	service SessionService
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(service SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

// signInRequest はサインインリクエストのボディ。
// session_idがあれば既存セッションでサインインし、なければdisplay_nameで新規登録する。
type signInRequest struct {
	SessionID   string `json:"session_id"`
	DisplayName string `json:"display_name"`
}

// registerResponse は新規登録のレスポンス。
type registerResponse struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// SignIn はセッションを検証して保存する。
// POST /api/auth/session
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.SessionID == "" && req.DisplayName != "" {
		session, err := h.service.Register(r.Context(), req.DisplayName)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		middleware.WriteJSON(w, http.StatusCreated, registerResponse{
			SessionID: session.ID,
			UserID:    session.UserID,
		})
		return
	}

	conn, err := h.service.SignIn(r.Context(), req.SessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, conn)
}

// SignOut は保存済みセッションを破棄する。
// DELETE /api/auth/session
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.service.SignOut(r.Context()); err != nil {
		slog.Error("failed to sign out", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
