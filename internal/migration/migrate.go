// Package migration はLocal Mirrorに残った旧形式のレコードを現行形式へ移行する。
// 移行は形の判定だけで行い、すでに現行形式のレコードには何もしない（冪等）。
package migration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hitoshi/pushmyself/internal/model"
)

// Report はMigrateが行った変換の要約。
type Report struct {
	// Changed は出力が入力と異なる場合にtrue。呼び出し側は再保存の要否に使う。
	Changed bool
	// Variants は判定された形ごとの件数。
	Variants map[Variant]int
	// Residual は日付レコードとして解釈しなかったトップレベルのキー。
	Residual []string
}

// Engine は移行処理を行う。合成IDと時刻は注入されたソースから得る。
type Engine struct {
	ids *model.IDSource
	now func() time.Time
}

// New はEngineを生成する。nowがnilの場合はtime.Nowを使う。
func New(ids *model.IDSource, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	if ids == nil {
		ids = model.NewIDSource(now)
	}
	return &Engine{ids: ids, now: now}
}

// Migrate はLocal Mirrorの生データを現行形式の文書に変換する。
// JSONとして読めない場合のみエラーを返す。空の入力は空の文書になる。
func (e *Engine) Migrate(raw []byte) (model.Document, Report, error) {
	rep := Report{Variants: make(map[Variant]int)}
	doc := model.Document{Days: make(model.Data)}

	if len(bytes.TrimSpace(raw)) == 0 || isNull(raw) {
		return doc, rep, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return model.Document{}, rep, fmt.Errorf("failed to decode mirror document: %w", err)
	}

	keys := make([]string, 0, len(top))
	for k := range top {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := top[key]
		if model.ValidateDate(key) != nil || !isObject(value) {
			if doc.Residual == nil {
				doc.Residual = make(model.RawFields)
			}
			doc.Residual[key] = value
			rep.Residual = append(rep.Residual, key)
			continue
		}

		day, err := e.migrateDay(key, value, &rep)
		if err != nil {
			return model.Document{}, rep, fmt.Errorf("failed to migrate %s: %w", key, err)
		}
		doc.Days[key] = day
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return model.Document{}, rep, fmt.Errorf("failed to encode migrated document: %w", err)
	}
	rep.Changed = !sameJSON(raw, out)

	return doc, rep, nil
}

func (e *Engine) migrateDay(date string, value json.RawMessage, rep *Report) (model.DayData, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(value, &fields); err != nil {
		return model.DayData{}, err
	}
	for k, v := range fields {
		if isNull(v) {
			delete(fields, k)
		}
	}

	thoughts, err := e.migrateThoughts(date, fields, rep)
	if err != nil {
		return model.DayData{}, err
	}
	todos, err := e.migrateTodos(fields, rep)
	if err != nil {
		return model.DayData{}, err
	}

	day := model.DayData{
		Todos:       todos,
		Thoughts:    thoughts,
		DailyReport: migrateReport(date, fields),
	}
	if len(fields) > 0 {
		day.Extra = model.RawFields(fields)
	}
	return day, nil
}

// legacyThoughtKeys は旧形式のThoughtキーと移行後の種別の対応。
var legacyThoughtKeys = []struct {
	list, scalar string
	typ          model.ThoughtType
}{
	{keyMorningThoughts, keyMorningThought, model.ThoughtMorning},
	{keyDailyIdeas, keyDailyIdea, model.ThoughtIdea},
}

// migrateThoughts はthoughtsと旧形式のリスト・単一値を1つのリストにまとめ、取り込んだキーをfieldsから除く。
// thoughtsが解釈できない形の場合は旧形式のキーも含めて何も変更しない。
func (e *Engine) migrateThoughts(date string, fields map[string]json.RawMessage, rep *Report) ([]model.Thought, error) {
	thoughts := []model.Thought{}

	if raw, ok := fields[keyThoughts]; ok {
		v := classify(keyThoughts, raw)
		rep.Variants[v]++
		if v != ModernThoughtList {
			return thoughts, nil
		}
		if err := json.Unmarshal(raw, &thoughts); err != nil {
			return nil, fmt.Errorf("failed to decode thoughts: %w", err)
		}
		delete(fields, keyThoughts)
		for i := range thoughts {
			fillThoughtDefaults(&thoughts[i], date)
		}
	}

	for _, legacy := range legacyThoughtKeys {
		raw, ok := fields[legacy.list]
		if !ok {
			continue
		}
		v := classify(legacy.list, raw)
		rep.Variants[v]++
		if v != LegacyThoughtList {
			continue
		}
		var items []model.Thought
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", legacy.list, err)
		}
		for _, t := range items {
			t.Type = legacy.typ
			delete(t.Extra, "type")
			consumeTimestamp(&t)
			fillThoughtDefaults(&t, date)
			if !containsThought(thoughts, t) {
				thoughts = append(thoughts, t)
			}
		}
		delete(fields, legacy.list)
	}

	for _, legacy := range legacyThoughtKeys {
		raw, ok := fields[legacy.scalar]
		if !ok {
			continue
		}
		v := classify(legacy.scalar, raw)
		rep.Variants[v]++
		if v != LegacyScalarThought {
			continue
		}
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", legacy.scalar, err)
		}
		delete(fields, legacy.scalar)
		if strings.TrimSpace(text) == "" || hasThoughtText(thoughts, legacy.typ, text) {
			continue
		}
		id := e.ids.Next()
		now := e.now().UTC().Truncate(time.Millisecond)
		thoughts = append(thoughts, model.Thought{ID: &id, Text: text, Type: legacy.typ, Date: date, CreatedAt: now, UpdatedAt: now})
	}

	return thoughts, nil
}

// migrateTodos はtodosを読み、todosがない場合はmustDoをTodoに変換する。
// todosとmustDoが両方ある場合、mustDoは変換せずに残す。
func (e *Engine) migrateTodos(fields map[string]json.RawMessage, rep *Report) ([]model.Todo, error) {
	todos := []model.Todo{}

	if raw, ok := fields[keyTodos]; ok {
		v := classify(keyTodos, raw)
		rep.Variants[v]++
		if v != ModernTodoList {
			return todos, nil
		}
		elems, err := decodeTodos(raw)
		if err != nil {
			return nil, err
		}
		delete(fields, keyTodos)
		return elems, nil
	}

	raw, ok := fields[keyMustDo]
	if !ok {
		return todos, nil
	}
	v := classify(keyMustDo, raw)
	rep.Variants[v]++

	switch v {
	case LegacyMustDoStrings:
		var texts []string
		if err := json.Unmarshal(raw, &texts); err != nil {
			return nil, fmt.Errorf("failed to decode mustDo: %w", err)
		}
		for i, text := range texts {
			if strings.TrimSpace(text) == "" {
				continue
			}
			todos = append(todos, model.Todo{
				ID:         int64(i + 1),
				Text:       text,
				Priority:   model.PriorityMedium,
				OrderIndex: len(todos),
			})
		}

	case LegacyMustDoItems:
		items, err := decodeTodos(raw)
		if err != nil {
			return nil, err
		}
		seen := make(map[int64]bool, len(items))
		for _, t := range items {
			if strings.TrimSpace(t.Text) == "" && !t.Extra.Has("text") {
				continue
			}
			if t.ID <= 0 || seen[t.ID] {
				t.ID = e.ids.Next()
				delete(t.Extra, "id")
			}
			seen[t.ID] = true
			todos = append(todos, t)
		}
		todos = model.Renumber(model.SortByOrderIndex(todos))

	default:
		return todos, nil
	}

	delete(fields, keyMustDo)
	return todos, nil
}

// decodeTodos はTodo配列を読み、旧形式のorderと優先度の既定値を補う。
func decodeTodos(raw json.RawMessage) ([]model.Todo, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("failed to decode todos: %w", err)
	}

	todos := make([]model.Todo, 0, len(elems))
	for _, el := range elems {
		var t model.Todo
		if err := json.Unmarshal(el, &t); err != nil {
			return nil, fmt.Errorf("failed to decode todo: %w", err)
		}

		var present map[string]json.RawMessage
		if err := json.Unmarshal(el, &present); err != nil {
			return nil, fmt.Errorf("failed to decode todo: %w", err)
		}
		if idx, ok := present["order_index"]; !ok || isNull(idx) {
			var order int
			if rawOrder, ok := t.Extra["order"]; ok && json.Unmarshal(rawOrder, &order) == nil {
				t.OrderIndex = order
			}
		}

		if t.Priority == "" && !t.Extra.Has("priority") {
			t.Priority = model.PriorityMedium
		}
		todos = append(todos, t)
	}
	return todos, nil
}

// migrateReport はdailyReportを読み、欠けた値を既定値で補う。
// オブジェクトでない場合は既定値を返し、元の値はfieldsに残す。
func migrateReport(date string, fields map[string]json.RawMessage) model.DailyReport {
	raw, ok := fields[keyDailyReport]
	if !ok {
		return model.DefaultDailyReport(date)
	}

	var report model.DailyReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return model.DefaultDailyReport(date)
	}
	delete(fields, keyDailyReport)

	if report.Date == "" && !report.Extra.Has("date") {
		report.Date = date
	}

	if report.Mood == "" {
		if rawMood, ok := report.Extra["mood"]; ok {
			var score int
			if json.Unmarshal(rawMood, &score) == nil {
				if mood, ok := model.MoodFromScore(score); ok {
					report.Mood = mood
					delete(report.Extra, "mood")
				}
			}
		} else {
			report.Mood = model.MoodNeutral
		}
	}

	// 旧版の綴り誤りフィールド
	if rawGoals, ok := report.Extra["tommorrow_thought"]; ok && report.TomorrowGoals == "" && !report.Extra.Has("tomorrow_goals") {
		var goals string
		if json.Unmarshal(rawGoals, &goals) == nil {
			report.TomorrowGoals = goals
			delete(report.Extra, "tommorrow_thought")
		}
	}

	return report
}

func fillThoughtDefaults(t *model.Thought, date string) {
	if t.Type == "" && !t.Extra.Has("type") {
		t.Type = model.ThoughtDaily
	}
	if t.Date == "" && !t.Extra.Has("date") {
		t.Date = date
	}
}

// consumeTimestamp は旧形式のtimestamp（RFC3339またはエポックms）をcreated_atに移す。
func consumeTimestamp(t *model.Thought) {
	raw, ok := t.Extra["timestamp"]
	if !ok || !t.CreatedAt.IsZero() {
		return
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			t.CreatedAt = ts
			delete(t.Extra, "timestamp")
		}
		return
	}
	var ms int64
	if json.Unmarshal(raw, &ms) == nil && ms > 0 {
		t.CreatedAt = time.UnixMilli(ms).UTC()
		delete(t.Extra, "timestamp")
	}
}

// hasThoughtText は同じ種別・本文のThoughtがIDに関係なくすでにあるかを返す。
// 単一値の旧形式はIDを持たないため、リスト側の同じ内容と重複させない。
func hasThoughtText(thoughts []model.Thought, thoughtType model.ThoughtType, text string) bool {
	for _, existing := range thoughts {
		if existing.Type == thoughtType && existing.Text == text {
			return true
		}
	}
	return false
}

// containsThought は同じID・種別・本文のThoughtがすでにあるかを返す。
func containsThought(thoughts []model.Thought, t model.Thought) bool {
	for _, existing := range thoughts {
		if existing.Type != t.Type || existing.Text != t.Text {
			continue
		}
		if existing.ID == nil || t.ID == nil || *existing.ID == *t.ID {
			return true
		}
	}
	return false
}

func isObject(raw json.RawMessage) bool {
	return bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{"))
}

// sameJSON はキー順や空白を無視して2つのJSONが等しいかを返す。
func sameJSON(a, b []byte) bool {
	ca, err := canonical(a)
	if err != nil {
		return false
	}
	cb, err := canonical(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}

func canonical(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
