package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/pushmyself/internal/model"
)

// PostgresUserRepo はデータ所有者を登録する。users.id がTodo・Thought・DailyReportのowner_idになる。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// Create は所有者を登録する。同じIDがすでにあれば既存の行には触れずにエラーを返す。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	var inserted bool
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, display_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING
		 RETURNING true`,
		user.ID, user.DisplayName, user.CreatedAt, user.UpdatedAt,
	).Scan(&inserted)

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("owner %s is already registered", user.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to register owner %s: %w", user.ID, err)
	}
	return nil
}

var _ UserRepository = (*PostgresUserRepo)(nil)
