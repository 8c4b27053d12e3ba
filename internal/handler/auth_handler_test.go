package handler

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/hitoshi/pushmyself/internal/model"
)

func TestSessionHandler_SignIn(t *testing.T) {
	tr := newTestRouter(t)
	tr.sessions.EXPECT().SignIn(gomock.Any(), "sess-123").
		Return(model.Connectivity{Reachable: true, Authenticated: true, OwnerID: "user-1"}, nil)

	w := tr.do(http.MethodPost, "/api/auth/session", `{"session_id":"sess-123"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d\nbody: %s", w.Code, http.StatusOK, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["authenticated"] != true || body["owner_id"] != "user-1" {
		t.Errorf("body = %v", body)
	}
}

// 到達できない場合はセッションを保存するだけで成功として返す
func TestSessionHandler_SignIn_Unreachable(t *testing.T) {
	tr := newTestRouter(t)
	tr.sessions.EXPECT().SignIn(gomock.Any(), "sess-offline").Return(model.Connectivity{}, nil)

	w := tr.do(http.MethodPost, "/api/auth/session", `{"session_id":"sess-offline"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if decodeBody(t, w)["reachable"] != false {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestSessionHandler_SignIn_InvalidSession(t *testing.T) {
	tr := newTestRouter(t)
	tr.sessions.EXPECT().SignIn(gomock.Any(), "expired").Return(model.Connectivity{}, model.NewSessionInvalidError())

	w := tr.do(http.MethodPost, "/api/auth/session", `{"session_id":"expired"}`)

	assertError(t, w, http.StatusUnauthorized, model.ErrCodeSessionInvalid)
}

func TestSessionHandler_SignIn_MissingSessionID(t *testing.T) {
	tr := newTestRouter(t)
	tr.sessions.EXPECT().SignIn(gomock.Any(), "").Return(model.Connectivity{}, model.NewInvalidRequestError("session_id is required"))

	w := tr.do(http.MethodPost, "/api/auth/session", `{}`)

	assertError(t, w, http.StatusBadRequest, model.ErrCodeInvalidRequest)
}

func TestSessionHandler_Register(t *testing.T) {
	tr := newTestRouter(t)
	tr.sessions.EXPECT().Register(gomock.Any(), "민수").Return(&model.Session{
		ID:        "sess-new",
		UserID:    "user-new",
		ExpiresAt: testNow.Add(30 * 24 * time.Hour),
	}, nil)

	w := tr.do(http.MethodPost, "/api/auth/session", `{"display_name":"민수"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d\nbody: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["session_id"] != "sess-new" || body["user_id"] != "user-new" {
		t.Errorf("body = %v", body)
	}
}

func TestSessionHandler_Register_Offline(t *testing.T) {
	tr := newTestRouter(t)
	tr.sessions.EXPECT().Register(gomock.Any(), "민수").Return(nil, model.NewOfflineError())

	w := tr.do(http.MethodPost, "/api/auth/session", `{"display_name":"민수"}`)

	assertError(t, w, http.StatusServiceUnavailable, model.ErrCodeOffline)
}

func TestSessionHandler_SignOut(t *testing.T) {
	tr := newTestRouter(t)
	tr.sessions.EXPECT().SignOut(gomock.Any()).Return(nil)

	w := tr.do(http.MethodDelete, "/api/auth/session", "")

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

func TestSessionHandler_SignOut_MirrorFailure(t *testing.T) {
	tr := newTestRouter(t)
	tr.sessions.EXPECT().SignOut(gomock.Any()).Return(errors.New("failed to delete key"))

	w := tr.do(http.MethodDelete, "/api/auth/session", "")

	assertError(t, w, http.StatusInternalServerError, "INTERNAL_ERROR")
}
