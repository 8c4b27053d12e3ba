package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/pushmyself/internal/model"
)

// PostgresTodoRepo はPostgreSQLを使用したTodoリポジトリ。
type PostgresTodoRepo struct {
	db *sql.DB
}

// NewPostgresTodoRepo はPostgresTodoRepoを生成する。
func NewPostgresTodoRepo(db *sql.DB) *PostgresTodoRepo {
	return &PostgresTodoRepo{db: db}
}

// ListByOwner は所有者の全Todoを日付ごとにorder_index順で返す。
func (r *PostgresTodoRepo) ListByOwner(ctx context.Context, ownerID string) (map[string][]model.Todo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT to_char(date, 'YYYY-MM-DD'), id, text, completed, priority, order_index,
		        type, link, description, created_at, updated_at
		 FROM todos
		 WHERE owner_id = $1
		 ORDER BY date, order_index, id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]model.Todo)
	for rows.Next() {
		var (
			date                    string
			todo                    model.Todo
			todoType, link, descrip sql.NullString
		)
		if err := rows.Scan(
			&date, &todo.ID, &todo.Text, &todo.Completed, &todo.Priority, &todo.OrderIndex,
			&todoType, &link, &descrip, &todo.CreatedAt, &todo.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todo.Type = todoType.String
		todo.Link = link.String
		todo.Description = descrip.String
		result[date] = append(result[date], todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate todos: %w", err)
	}

	return result, nil
}

// Create はTodoを日付の末尾に追加する。
// todo_day_sequences を原子的に進めてorder_indexを払い出すため、
// 同じ日付への同時追加でも値は重複しない。
func (r *PostgresTodoRepo) Create(ctx context.Context, ownerID, date string, todo model.Todo) (*model.Todo, error) {
	priority := todo.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	now := time.Now()
	createdAt := todo.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	created := todo
	created.Priority = priority
	err := r.db.QueryRowContext(ctx,
		`WITH seq AS (
		     INSERT INTO todo_day_sequences (owner_id, date, next_index)
		     VALUES ($1, $2, (SELECT COALESCE(MAX(order_index) + 1, 0) FROM todos WHERE owner_id = $1 AND date = $2) + 1)
		     ON CONFLICT (owner_id, date)
		     DO UPDATE SET next_index = todo_day_sequences.next_index + 1
		     RETURNING next_index - 1 AS idx
		 )
		 INSERT INTO todos (owner_id, date, id, text, completed, priority, order_index,
		                    type, link, description, created_at, updated_at)
		 SELECT $1, $2, $3, $4, $5, $6, seq.idx, $7, $8, $9, $10, $11 FROM seq
		 RETURNING order_index, created_at, updated_at`,
		ownerID, date, todo.ID, todo.Text, todo.Completed, priority,
		nullIfEmpty(todo.Type), nullIfEmpty(todo.Link), nullIfEmpty(todo.Description),
		createdAt, now,
	).Scan(&created.OrderIndex, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}

	return &created, nil
}

// Update はパッチで指定されたフィールドのみ更新する。order_indexは変更しない。
// 対象の行がない場合はエラーを返す。
func (r *PostgresTodoRepo) Update(ctx context.Context, ownerID, date string, id int64, patch TodoPatch) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE todos SET
		     text        = COALESCE($4::text, text),
		     completed   = COALESCE($5::boolean, completed),
		     priority    = COALESCE($6::varchar, priority),
		     type        = COALESCE($7::varchar, type),
		     link        = COALESCE($8::text, link),
		     description = COALESCE($9::text, description),
		     updated_at  = now()
		 WHERE owner_id = $1 AND date = $2 AND id = $3`,
		ownerID, date, id, patch.Text, patch.Completed, patch.Priority,
		patch.Type, patch.Link, patch.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to update todo: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("todo %d not found for date %s", id, date)
	}
	return nil
}

// Delete は指定日のTodoを削除し、後続のorder_indexとシーケンスを1つずつ詰める。
// 削除済みの場合は何もしない。
func (r *PostgresTodoRepo) Delete(ctx context.Context, ownerID, date string, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var removed int
	err = tx.QueryRowContext(ctx,
		`DELETE FROM todos WHERE owner_id = $1 AND date = $2 AND id = $3
		 RETURNING order_index`,
		ownerID, date, id,
	).Scan(&removed)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE todos SET order_index = order_index - 1
		 WHERE owner_id = $1 AND date = $2 AND order_index > $3`,
		ownerID, date, removed,
	); err != nil {
		return fmt.Errorf("failed to close order gap: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE todo_day_sequences SET next_index = next_index - 1
		 WHERE owner_id = $1 AND date = $2 AND next_index > 0`,
		ownerID, date,
	); err != nil {
		return fmt.Errorf("failed to rewind todo sequence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReplaceAllForDate は日付のTodoを与えられた順序で全置換する。
// 削除と再挿入、シーケンスのリセットを1トランザクションで行い、IDは維持する。
// 他デバイスが同じ日付に加えた変更は、後から書いた側で上書きされる。
func (r *PostgresTodoRepo) ReplaceAllForDate(ctx context.Context, ownerID, date string, todos []model.Todo) error {
	seen := make(map[int64]struct{}, len(todos))
	for _, t := range todos {
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("duplicate todo id %d for date %s", t.ID, date)
		}
		seen[t.ID] = struct{}{}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM todos WHERE owner_id = $1 AND date = $2`,
		ownerID, date,
	); err != nil {
		return fmt.Errorf("failed to delete todos for date: %w", err)
	}

	now := time.Now()
	for i, t := range todos {
		priority := t.Priority
		if !priority.Valid() {
			priority = model.PriorityMedium
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO todos (owner_id, date, id, text, completed, priority, order_index,
			                    type, link, description, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			ownerID, date, t.ID, t.Text, t.Completed, priority, i,
			nullIfEmpty(t.Type), nullIfEmpty(t.Link), nullIfEmpty(t.Description),
			orNow(t.CreatedAt, now), orNow(t.UpdatedAt, now),
		); err != nil {
			return fmt.Errorf("failed to insert todo %d: %w", t.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO todo_day_sequences (owner_id, date, next_index)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (owner_id, date) DO UPDATE SET next_index = EXCLUDED.next_index`,
		ownerID, date, len(todos),
	); err != nil {
		return fmt.Errorf("failed to reset todo sequence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// nullIfEmpty は空文字列をNULLとして渡すためのヘルパー。
func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}

// compile-time interface check
var _ TodoRepository = (*PostgresTodoRepo)(nil)
