// Package stats は1日分レコードの集計を提供する。
package stats

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/pushmyself/internal/model"
)

// Stats は全期間の集計。
type Stats struct {
	TotalDays      int     `json:"total_days"`
	CompletedTodos int     `json:"completed_todos"`
	AverageMood    float64 `json:"average_mood"`
}

// MoodPoint は直近の日ごとの推移の1点。
type MoodPoint struct {
	Date      string `json:"date"`
	Mood      int    `json:"mood"`
	Todos     int    `json:"todos"`
	Completed int    `json:"completed"`
}

// WeeklyStats はweekStartから7日間の集計。
type WeeklyStats struct {
	WeekStart      string  `json:"week_start_date"`
	WeekEnd        string  `json:"week_end_date"`
	ReportsWritten int     `json:"daily_reports_written"`
	CompletedTasks int     `json:"completed_tasks"`
	MoodAverage    float64 `json:"mood_average"`
	ThoughtsCount  int     `json:"thoughts_count"`
}

// Calculate は記録のある日数、完了したTodo数、気分の平均（小数1桁）を返す。
func Calculate(data model.Data) Stats {
	var s Stats
	moodSum := 0
	for _, day := range data {
		s.TotalDays++
		s.CompletedTodos += completed(day.Todos)
		moodSum += day.DailyReport.Mood.Score()
	}
	if s.TotalDays > 0 {
		s.AverageMood = round(float64(moodSum)/float64(s.TotalDays), 1)
	}
	return s
}

// LastNDays はnowを含む直近n日分を古い順に返す。記録のない日は気分を中立として扱う。
func LastNDays(data model.Data, now time.Time, n int) []MoodPoint {
	if n <= 0 {
		return []MoodPoint{}
	}
	points := make([]MoodPoint, 0, n)
	for i := n - 1; i >= 0; i-- {
		d := now.AddDate(0, 0, -i)
		day, ok := data[d.Format(model.DateLayout)]
		if !ok {
			day = model.NewDayData(d.Format(model.DateLayout))
		}
		points = append(points, MoodPoint{
			Date:      strconv.Itoa(int(d.Month())) + "/" + strconv.Itoa(d.Day()),
			Mood:      day.DailyReport.Mood.Score(),
			Todos:     len(day.Todos),
			Completed: completed(day.Todos),
		})
	}
	return points
}

// Weekly はweekStart（YYYY-MM-DD）から7日間を集計する。気分の平均は記録のある日のみで計算する。
func Weekly(data model.Data, weekStart string) (WeeklyStats, error) {
	start, err := time.Parse(model.DateLayout, weekStart)
	if err != nil {
		return WeeklyStats{}, model.NewInvalidDateError(weekStart)
	}

	w := WeeklyStats{
		WeekStart: weekStart,
		WeekEnd:   start.AddDate(0, 0, 6).Format(model.DateLayout),
	}
	moodSum, moodDays := 0, 0
	for i := 0; i < 7; i++ {
		day, ok := data[start.AddDate(0, 0, i).Format(model.DateLayout)]
		if !ok {
			continue
		}
		if strings.TrimSpace(day.DailyReport.Summary) != "" {
			w.ReportsWritten++
		}
		w.CompletedTasks += completed(day.Todos)
		w.ThoughtsCount += len(day.Thoughts)
		moodSum += day.DailyReport.Mood.Score()
		moodDays++
	}
	if moodDays > 0 {
		w.MoodAverage = round(float64(moodSum)/float64(moodDays), 2)
	}
	return w, nil
}

func completed(todos []model.Todo) int {
	n := 0
	for _, t := range todos {
		if t.Completed {
			n++
		}
	}
	return n
}

func round(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}
