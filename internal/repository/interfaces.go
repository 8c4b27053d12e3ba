// Package repository はネットワークストア（PostgreSQL）への永続化インターフェースを定義する。
// すべての行は owner_id と date でスコープされる。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/pushmyself/internal/model"
)

// UserRepository はデータ所有者の登録インターフェース。
type UserRepository interface {
	// Create は所有者を登録する。IDが使用済みの場合はエラーを返す。
	Create(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// Extend は有効なセッションの期限をexpiresAtまで延長する。対象がなければ何もしない。
	Extend(ctx context.Context, id string, expiresAt time.Time) error
}

// TodoPatch はTodoの部分更新。order_indexは含まない。
type TodoPatch struct {
	Text        *string
	Completed   *bool
	Priority    *model.Priority
	Type        *string
	Link        *string
	Description *string
}

// TodoRepository はTodoの永続化インターフェース。
type TodoRepository interface {
	// ListByOwner は所有者の全Todoを日付ごとにorder_index順で返す。
	ListByOwner(ctx context.Context, ownerID string) (map[string][]model.Todo, error)

	// Create はTodoを日付の末尾に追加する。
	// order_indexは(owner_id, date)ごとのシーケンスからサーバー側で払い出す。
	Create(ctx context.Context, ownerID, date string, todo model.Todo) (*model.Todo, error)

	// Update はパッチで指定されたフィールドのみ更新する。order_indexは変更しない。
	// IDは日付内でのみ一意のため、日付も合わせて指定する。
	Update(ctx context.Context, ownerID, date string, id int64, patch TodoPatch) error

	// Delete は指定日の指定IDのTodoを削除し、後続のorder_indexを1つずつ詰める。
	// 対象がない場合は何もしない。
	Delete(ctx context.Context, ownerID, date string, id int64) error

	// ReplaceAllForDate は日付のTodoを与えられた順序で全置換する。
	// order_indexは位置どおりに0から振り直す。並び替えはこの経路でのみ行う。
	// 他デバイスの同時変更は後から書いた側で上書きされる。
	ReplaceAllForDate(ctx context.Context, ownerID, date string, todos []model.Todo) error
}

// ThoughtPatch はThoughtの部分更新。
type ThoughtPatch struct {
	Text *string
	Type *model.ThoughtType
}

// ThoughtRepository はThoughtの永続化インターフェース。
// 種別ごとの件数上限は呼び出し側のポリシーであり、ここでは切り詰めない。
type ThoughtRepository interface {
	// ListByOwner は所有者の全Thoughtを日付ごとに追加順で返す。
	ListByOwner(ctx context.Context, ownerID string) (map[string][]model.Thought, error)

	// Create はThoughtを日付に追加する。
	Create(ctx context.Context, ownerID, date string, thought model.Thought) (*model.Thought, error)

	// Update は指定日の指定IDのThoughtを更新する。
	Update(ctx context.Context, ownerID, date string, id int64, patch ThoughtPatch) error

	// Delete は指定日の指定IDのThoughtを削除する。対象がない場合は何もしない。
	Delete(ctx context.Context, ownerID, date string, id int64) error

	// ReplaceAllForDate は日付のThoughtを与えられた順序で全置換する。IDのない要素もそのまま保存する。
	ReplaceAllForDate(ctx context.Context, ownerID, date string, thoughts []model.Thought) error
}

// DailyReportRepository はDailyReportの永続化インターフェース。
// (owner_id, date)ごとに1件で、書き込みはUpsertのみ。
type DailyReportRepository interface {
	// ListByOwner は所有者の全DailyReportを日付キーで返す。
	ListByOwner(ctx context.Context, ownerID string) (map[string]model.DailyReport, error)

	// Upsert は既存レコードにパッチをマージする。updated_atは常に更新する。
	Upsert(ctx context.Context, ownerID, date string, patch model.DailyReportPatch) (*model.DailyReport, error)
}
