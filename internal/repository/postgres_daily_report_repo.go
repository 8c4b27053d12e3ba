package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/pushmyself/internal/model"
)

// PostgresDailyReportRepo はPostgreSQLを使用したDailyReportリポジトリ。
type PostgresDailyReportRepo struct {
	db *sql.DB
}

// NewPostgresDailyReportRepo はPostgresDailyReportRepoを生成する。
func NewPostgresDailyReportRepo(db *sql.DB) *PostgresDailyReportRepo {
	return &PostgresDailyReportRepo{db: db}
}

const dailyReportColumns = `to_char(date, 'YYYY-MM-DD'), summary, gratitude, tomorrow_goals, mood, created_at, updated_at`

// ListByOwner は所有者の全DailyReportを日付キーで返す。
func (r *PostgresDailyReportRepo) ListByOwner(ctx context.Context, ownerID string) (map[string]model.DailyReport, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+dailyReportColumns+`
		 FROM daily_reports
		 WHERE owner_id = $1`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily reports: %w", err)
	}
	defer rows.Close()

	result := make(map[string]model.DailyReport)
	for rows.Next() {
		var report model.DailyReport
		if err := scanDailyReport(rows, &report); err != nil {
			return nil, fmt.Errorf("failed to scan daily report: %w", err)
		}
		result[report.Date] = report
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily reports: %w", err)
	}

	return result, nil
}

// Upsert は既存レコードにパッチをマージする。
// パッチで指定されなかった列は既存値（新規作成時は既定値）のまま保ち、updated_atは常に更新する。
func (r *PostgresDailyReportRepo) Upsert(ctx context.Context, ownerID, date string, patch model.DailyReportPatch) (*model.DailyReport, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var report model.DailyReport
	err := scanDailyReport(r.db.QueryRowContext(ctx,
		`INSERT INTO daily_reports (owner_id, date, summary, gratitude, tomorrow_goals, mood, created_at, updated_at)
		 VALUES ($1, $2, COALESCE($3::text, ''), COALESCE($4::text, ''), COALESCE($5::text, ''),
		         COALESCE($6::varchar, '보통'), now(), now())
		 ON CONFLICT (owner_id, date) DO UPDATE SET
		     summary        = COALESCE($3::text, daily_reports.summary),
		     gratitude      = COALESCE($4::text, daily_reports.gratitude),
		     tomorrow_goals = COALESCE($5::text, daily_reports.tomorrow_goals),
		     mood           = COALESCE($6::varchar, daily_reports.mood),
		     updated_at     = now()
		 RETURNING `+dailyReportColumns,
		ownerID, date, patch.Summary, patch.Gratitude, patch.TomorrowGoals, patch.Mood,
	), &report)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert daily report: %w", err)
	}

	return &report, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDailyReport(row rowScanner, report *model.DailyReport) error {
	return row.Scan(
		&report.Date, &report.Summary, &report.Gratitude, &report.TomorrowGoals,
		&report.Mood, &report.CreatedAt, &report.UpdatedAt,
	)
}

// compile-time interface check
var _ DailyReportRepository = (*PostgresDailyReportRepo)(nil)
