package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Notification は配信する通知の内容。
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Notifier は通知を利用者に届ける。
type Notifier interface {
	Show(ctx context.Context, n Notification) error
}

// LogNotifier は通知を構造化ログとして出力する。
// デーモンとして動かす場合の既定の配信先。
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier はLogNotifierを生成する。
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Show(ctx context.Context, notification Notification) error {
	n.logger.InfoContext(ctx, "通知",
		slog.String("title", notification.Title),
		slog.String("body", notification.Body),
	)
	return nil
}

// Permission は通知の許可状態。
type Permission string

const (
	PermissionGranted     Permission = "granted"
	PermissionDenied      Permission = "denied"
	PermissionUnsupported Permission = "unsupported"
)

// PermissionSource は通知の許可状態を返す。
type PermissionSource interface {
	Permission(ctx context.Context) Permission
}

// StaticPermission は設定で固定された許可状態。
type StaticPermission Permission

func (p StaticPermission) Permission(_ context.Context) Permission {
	return Permission(p)
}

// ParsePermission は設定値を許可状態に変換する。空文字はgranted。
func ParsePermission(value string) (Permission, error) {
	switch p := Permission(strings.ToLower(strings.TrimSpace(value))); p {
	case "":
		return PermissionGranted, nil
	case PermissionGranted, PermissionDenied, PermissionUnsupported:
		return p, nil
	default:
		return "", fmt.Errorf("unknown notification permission: %s", value)
	}
}

// compile-time interface check
var (
	_ Notifier         = (*LogNotifier)(nil)
	_ PermissionSource = StaticPermission("")
)
