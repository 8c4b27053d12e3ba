package middleware

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/pushmyself/internal/model"
)

// NewOriginGuardMiddleware は状態を変更するリクエストのOriginヘッダーを検証するミドルウェアを返す。
// ローカルで動くAPIを他サイトのページから操作されないよう、許可オリジン以外からの書き込みを403で拒否する。
// Originヘッダーのないリクエスト（CLIなど）は通す。
func NewOriginGuardMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			origin := r.Header.Get("Origin")
			if origin != "" && origin != allowedOrigin {
				slog.Warn("許可されていないオリジンからの書き込みを拒否しました",
					slog.String("origin", origin),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusForbidden, &model.APIError{
					Code:     "ORIGIN_NOT_ALLOWED",
					Message:  "このオリジンからの変更は許可されていません。",
					Category: "auth",
					Action:   "許可されたアプリから操作してください。",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isSafeMethod はHTTPメソッドが安全（読み取り専用）かどうかを判定する。
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
