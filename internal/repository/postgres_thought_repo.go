package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/pushmyself/internal/model"
)

// PostgresThoughtRepo はPostgreSQLを使用したThoughtリポジトリ。
type PostgresThoughtRepo struct {
	db *sql.DB
}

// NewPostgresThoughtRepo はPostgresThoughtRepoを生成する。
func NewPostgresThoughtRepo(db *sql.DB) *PostgresThoughtRepo {
	return &PostgresThoughtRepo{db: db}
}

// ListByOwner は所有者の全Thoughtを日付ごとに追加順で返す。
func (r *PostgresThoughtRepo) ListByOwner(ctx context.Context, ownerID string) (map[string][]model.Thought, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT to_char(date, 'YYYY-MM-DD'), id, text, type, created_at, updated_at
		 FROM thoughts
		 WHERE owner_id = $1
		 ORDER BY date, row_id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list thoughts: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]model.Thought)
	for rows.Next() {
		var (
			thought model.Thought
			id      sql.NullInt64
		)
		if err := rows.Scan(&thought.Date, &id, &thought.Text, &thought.Type, &thought.CreatedAt, &thought.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan thought: %w", err)
		}
		if id.Valid {
			v := id.Int64
			thought.ID = &v
		}
		result[thought.Date] = append(result[thought.Date], thought)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate thoughts: %w", err)
	}

	return result, nil
}

// Create はThoughtを日付に追加する。
func (r *PostgresThoughtRepo) Create(ctx context.Context, ownerID, date string, thought model.Thought) (*model.Thought, error) {
	created := thought
	created.Date = date
	if created.Type == "" {
		created.Type = model.ThoughtDaily
	}
	now := time.Now()

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO thoughts (owner_id, date, id, text, type, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`,
		ownerID, date, thoughtID(thought.ID), created.Text, created.Type,
		orNow(thought.CreatedAt, now), now,
	).Scan(&created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create thought: %w", err)
	}

	return &created, nil
}

// Update は指定日の指定IDのThoughtを更新する。対象の行がない場合はエラーを返す。
func (r *PostgresThoughtRepo) Update(ctx context.Context, ownerID, date string, id int64, patch ThoughtPatch) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE thoughts SET
		     text       = COALESCE($4::text, text),
		     type       = COALESCE($5::varchar, type),
		     updated_at = now()
		 WHERE owner_id = $1 AND date = $2 AND id = $3`,
		ownerID, date, id, patch.Text, patch.Type,
	)
	if err != nil {
		return fmt.Errorf("failed to update thought: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("thought %d not found for date %s", id, date)
	}
	return nil
}

// Delete は指定日の指定IDのThoughtを削除する。
func (r *PostgresThoughtRepo) Delete(ctx context.Context, ownerID, date string, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM thoughts WHERE owner_id = $1 AND date = $2 AND id = $3`,
		ownerID, date, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete thought: %w", err)
	}
	return nil
}

// ReplaceAllForDate は日付のThoughtを与えられた順序で全置換する。
func (r *PostgresThoughtRepo) ReplaceAllForDate(ctx context.Context, ownerID, date string, thoughts []model.Thought) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM thoughts WHERE owner_id = $1 AND date = $2`,
		ownerID, date,
	); err != nil {
		return fmt.Errorf("failed to delete thoughts for date: %w", err)
	}

	now := time.Now()
	for _, t := range thoughts {
		thoughtType := t.Type
		if thoughtType == "" {
			thoughtType = model.ThoughtDaily
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO thoughts (owner_id, date, id, text, type, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			ownerID, date, thoughtID(t.ID), t.Text, thoughtType,
			orNow(t.CreatedAt, now), orNow(t.UpdatedAt, now),
		); err != nil {
			return fmt.Errorf("failed to insert thought: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func thoughtID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// compile-time interface check
var _ ThoughtRepository = (*PostgresThoughtRepo)(nil)
