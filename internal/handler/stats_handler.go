package handler

import (
	"net/http"
	"time"

	"github.com/hitoshi/pushmyself/internal/middleware"
	"github.com/hitoshi/pushmyself/internal/model"
	"github.com/hitoshi/pushmyself/internal/stats"
)

// recentDays は推移グラフ用に返す日数。
const recentDays = 7

// StatsHandler は集計APIのHTTPハンドラー。
// ネットワークには問い合わせず、ローカルのスナップショットから計算する。
type StatsHandler struct {
	service DayService
	now     func() time.Time
}

// NewStatsHandler はStatsHandlerを生成する。nowがnilの場合はtime.Now。
func NewStatsHandler(service DayService, now func() time.Time) *StatsHandler {
	if now == nil {
		now = time.Now
	}
	return &StatsHandler{service: service, now: now}
}

// statsResponse は全期間集計と直近の推移のレスポンス。
type statsResponse struct {
	stats.Stats
	Recent []stats.MoodPoint `json:"recent"`
}

// GetStats は全期間の集計と直近7日の推移を返す。
// GET /api/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Snapshot()
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, statsResponse{
		Stats:  stats.Calculate(data),
		Recent: stats.LastNDays(data, h.now(), recentDays),
	})
}

// GetWeekly は週の集計を返す。startを省略した場合は今週の月曜日から。
// GET /api/stats/weekly?start=YYYY-MM-DD
func (h *StatsHandler) GetWeekly(w http.ResponseWriter, r *http.Request) {
	start := r.URL.Query().Get("start")
	if start == "" {
		start = mondayOf(h.now()).Format(model.DateLayout)
	}

	data, err := h.service.Snapshot()
	if err != nil {
		handleServiceError(w, err)
		return
	}
	weekly, err := stats.Weekly(data, start)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, weekly)
}

func mondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}
