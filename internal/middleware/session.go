// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// OwnerResolver は現在サインインしている所有者のIDを返す。
// 未サインインまたは未確認の場合は空文字を返す。
type OwnerResolver interface {
	CurrentOwner() string
}

// NewSessionMiddleware は所有者IDをリクエストコンテキストに注入するミドルウェアを返す。
// 未サインインでもリクエストは拒否しない。オフラインでもローカルの読み書きは行えるため。
func NewSessionMiddleware(resolver OwnerResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if owner := resolver.CurrentOwner(); owner != "" {
				r = r.WithContext(ContextWithUserID(r.Context(), owner))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
