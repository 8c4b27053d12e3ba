// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, data, notification, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidDate      = "INVALID_DATE"
	ErrCodeInvalidMood      = "INVALID_MOOD"
	ErrCodeInvalidPriority  = "INVALID_PRIORITY"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeTodoNotFound     = "TODO_NOT_FOUND"
	ErrCodeThoughtNotFound  = "THOUGHT_NOT_FOUND"
	ErrCodeThoughtLimit     = "THOUGHT_LIMIT"
	ErrCodeReorderMismatch  = "REORDER_MISMATCH"
	ErrCodeEmptyText        = "EMPTY_TEXT"
	ErrCodeInvalidTimeOfDay = "INVALID_TIME_OF_DAY"
	ErrCodeOffline          = "OFFLINE"
	ErrCodeSessionInvalid   = "SESSION_INVALID"
	ErrCodeNotifyDenied     = "NOTIFICATION_PERMISSION_DENIED"
)

// NewInvalidDateError は日付形式エラーを生成する。
func NewInvalidDateError(date string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDate,
		Message:  fmt.Sprintf("無効な日付です: %s", date),
		Category: "validation",
		Action:   "日付は YYYY-MM-DD 形式で指定してください。",
	}
}

// NewInvalidMoodError は気分ラベルエラーを生成する。
func NewInvalidMoodError(mood string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMood,
		Message:  fmt.Sprintf("無効な気分です: %s", mood),
		Category: "validation",
		Action:   "気分には 매우좋음、좋음、보통、나쁨、매우나쁨 のいずれかを指定してください。",
	}
}

// NewInvalidPriorityError は優先度エラーを生成する。
func NewInvalidPriorityError(priority string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPriority,
		Message:  fmt.Sprintf("無効な優先度です: %s", priority),
		Category: "validation",
		Action:   "優先度には high、medium、low のいずれかを指定してください。",
	}
}

// NewInvalidRequestError はリクエスト形式エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewEmptyTextError は本文が空の場合のエラーを生成する。
func NewEmptyTextError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyText,
		Message:  "本文が空です。",
		Category: "validation",
		Action:   "内容を入力してください。",
	}
}

// NewTodoNotFoundError はTodo未検出エラーを生成する。
func NewTodoNotFoundError(date string, id int64) *APIError {
	return &APIError{
		Code:     ErrCodeTodoNotFound,
		Message:  fmt.Sprintf("指定されたTodoが見つかりません: %s/%d", date, id),
		Category: "data",
		Action:   "画面を再読み込みしてください。",
	}
}

// NewThoughtNotFoundError はThought未検出エラーを生成する。
func NewThoughtNotFoundError(date, ref string) *APIError {
	return &APIError{
		Code:     ErrCodeThoughtNotFound,
		Message:  fmt.Sprintf("指定されたThoughtが見つかりません: %s/%s", date, ref),
		Category: "data",
		Action:   "画面を再読み込みしてください。",
	}
}

// NewThoughtLimitError は種別ごとの上限超過エラーを生成する。
func NewThoughtLimitError(thoughtType ThoughtType, limit int) *APIError {
	return &APIError{
		Code:     ErrCodeThoughtLimit,
		Message:  fmt.Sprintf("%s は1日%d件までです。", thoughtType, limit),
		Category: "validation",
		Action:   "既存の項目を削除してから追加してください。",
	}
}

// NewReorderMismatchError は並べ替え要求が現在のTodo集合と一致しない場合のエラーを生成する。
func NewReorderMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeReorderMismatch,
		Message:  "並べ替え対象のTodoが現在の一覧と一致しません。",
		Category: "data",
		Action:   "画面を再読み込みしてから並べ替えてください。",
	}
}

// NewInvalidTimeOfDayError は通知時刻の形式エラーを生成する。
func NewInvalidTimeOfDayError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTimeOfDay,
		Message:  fmt.Sprintf("無効な時刻です: %s", value),
		Category: "notification",
		Action:   "時刻は HH:MM 形式で指定してください。",
	}
}

// NewOfflineError はネットワークストアに接続できない場合のエラーを生成する。
func NewOfflineError() *APIError {
	return &APIError{
		Code:     ErrCodeOffline,
		Message:  "同期先に接続できないか、ログインしていません。",
		Category: "system",
		Action:   "接続状態とログイン状態を確認してください。",
	}
}

// NewSessionInvalidError はセッションが無効な場合のエラーを生成する。
func NewSessionInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionInvalid,
		Message:  "セッションが無効または期限切れです。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewNotifyDeniedError は通知が許可されていない場合のエラーを生成する。
func NewNotifyDeniedError(permission string) *APIError {
	return &APIError{
		Code:     ErrCodeNotifyDenied,
		Message:  fmt.Sprintf("通知が許可されていません: %s", permission),
		Category: "notification",
		Action:   "通知の許可設定を確認してください。",
	}
}
