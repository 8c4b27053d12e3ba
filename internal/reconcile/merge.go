package reconcile

import (
	"time"

	"github.com/hitoshi/pushmyself/internal/model"
)

// 型付きフィールドとして書き出すキー。同じキーに残ったローカルの未解釈の値は退避する。
var (
	dayKnownKeys     = []string{"todos", "thoughts", "dailyReport"}
	todoKnownKeys    = []string{"id", "text", "completed", "priority", "order_index", "type", "link", "description", "created_at", "updated_at"}
	thoughtKnownKeys = []string{"id", "text", "type", "date", "created_at", "updated_at"}
	reportKnownKeys  = []string{"date", "summary", "gratitude", "tomorrow_goals", "mood", "created_at", "updated_at"}
)

// groupByDate はエンティティ種別ごとの取得結果を日付ごとの1日分レコードにまとめる。
// DailyReportのない日付には既定値を補う。
func groupByDate(todos map[string][]model.Todo, thoughts map[string][]model.Thought, reports map[string]model.DailyReport) model.Data {
	data := make(model.Data)
	day := func(date string) model.DayData {
		if d, ok := data[date]; ok {
			return d
		}
		return model.NewDayData(date)
	}

	for date, list := range todos {
		d := day(date)
		d.Todos = model.SortByOrderIndex(list)
		data[date] = d
	}
	for date, list := range thoughts {
		d := day(date)
		d.Thoughts = append([]model.Thought{}, list...)
		data[date] = d
	}
	for date, report := range reports {
		d := day(date)
		report.Date = date
		d.DailyReport = report
		data[date] = d
	}
	return data
}

// overlay はネットワーク側の内容にローカルの日付を重ねる。
// keepに含まれる日付とローカルにしかない日付はローカルの内容を採用する。
// それ以外で両方にある日付はネットワーク側を採用し、取得に失敗したエンティティはローカルの値を使う。
func overlay(remote remoteView, local model.Data, keep map[string]bool) model.Data {
	out := make(model.Data, len(remote.days)+len(local))
	for date, day := range remote.days {
		prev, ok := local[date]
		if !ok {
			out[date] = day
			continue
		}
		if keep[date] {
			out[date] = prev.Clone()
			continue
		}
		prev = prev.Clone()
		day = carryExtras(day, prev)
		if remote.thoughtsFailed {
			day.Thoughts = prev.Thoughts
		}
		if remote.reportsFailed {
			day.DailyReport = prev.DailyReport
		}
		out[date] = day
	}
	for date, day := range local {
		if _, ok := out[date]; !ok {
			out[date] = day.Clone()
		}
	}
	return out
}

// carryExtras はローカルにだけある未知のプロパティをネットワーク側のレコードへ引き継ぐ。
func carryExtras(remote, local model.DayData) model.DayData {
	remote.Extra = local.Extra.Shelve(dayKnownKeys...)
	remote.DailyReport.Extra = local.DailyReport.Extra.Shelve(reportKnownKeys...)

	todoExtras := make(map[int64]model.RawFields, len(local.Todos))
	for _, t := range local.Todos {
		todoExtras[t.ID] = t.Extra
	}
	for i := range remote.Todos {
		remote.Todos[i].Extra = todoExtras[remote.Todos[i].ID].Shelve(todoKnownKeys...)
	}

	thoughtExtras := make(map[int64]model.RawFields, len(local.Thoughts))
	for _, t := range local.Thoughts {
		if t.ID != nil {
			thoughtExtras[*t.ID] = t.Extra
		}
	}
	for i := range remote.Thoughts {
		if id := remote.Thoughts[i].ID; id != nil {
			remote.Thoughts[i].Extra = thoughtExtras[*id].Shelve(thoughtKnownKeys...)
		}
	}
	return remote
}

// sealDay は保存前の1日分レコードを整える。
// 型付きフィールドと同じキーに残った未解釈の値を退避し、DailyReportの日付と気分を補う。
func sealDay(day *model.DayData, date string) {
	day.Extra = day.Extra.Shelve(dayKnownKeys...)
	day.DailyReport.Extra = day.DailyReport.Extra.Shelve(reportKnownKeys...)
	day.DailyReport.Date = date
	if !day.DailyReport.Mood.Valid() {
		day.DailyReport.Mood = model.MoodNeutral
	}
}

// validatePatch は呼び出し側の誤りとして扱う値を検証する。
func validatePatch(patch model.DayPatch) error {
	if patch.Todos != nil {
		for _, t := range *patch.Todos {
			if t.Priority != "" && !t.Priority.Valid() {
				return model.NewInvalidPriorityError(string(t.Priority))
			}
		}
	}
	if patch.Thoughts != nil {
		for _, t := range *patch.Thoughts {
			if t.Type != "" && !validThoughtType(t.Type) {
				return model.NewInvalidRequestError("unknown thought type: " + string(t.Type))
			}
		}
	}
	if patch.DailyReport != nil {
		if err := patch.DailyReport.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// normalizeTodos は与えられた並び順でorder_indexを振り直し、欠けた値を補う。
func (s *Service) normalizeTodos(todos []model.Todo, now time.Time) []model.Todo {
	out := model.Renumber(todos)
	for i := range out {
		replaced := []string{"order_index"}
		if out[i].ID == 0 {
			out[i].ID = s.ids.Next()
			replaced = append(replaced, "id")
		} else {
			s.ids.Observe(out[i].ID)
		}
		if out[i].Priority == "" {
			out[i].Priority = model.PriorityMedium
			replaced = append(replaced, "priority")
		}
		if out[i].CreatedAt.IsZero() {
			out[i].CreatedAt = now
			replaced = append(replaced, "created_at")
		}
		if out[i].UpdatedAt.IsZero() {
			out[i].UpdatedAt = now
			replaced = append(replaced, "updated_at")
		}
		out[i].Extra = out[i].Extra.Without(replaced...)
	}
	return out
}

func normalizeThoughts(thoughts []model.Thought, date string) []model.Thought {
	out := make([]model.Thought, len(thoughts))
	for i, t := range thoughts {
		replaced := []string{"date"}
		if t.Type == "" {
			t.Type = model.ThoughtDaily
			replaced = append(replaced, "type")
		}
		t.Date = date
		t.Extra = t.Extra.Without(replaced...)
		out[i] = t
	}
	return out
}

func validThoughtType(t model.ThoughtType) bool {
	switch t {
	case model.ThoughtMorning, model.ThoughtDaily, model.ThoughtIdea:
		return true
	}
	return false
}
