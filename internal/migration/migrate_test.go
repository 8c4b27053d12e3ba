package migration

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/hitoshi/pushmyself/internal/model"
)

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	now := func() time.Time { return fixedNow }
	return New(model.NewIDSource(now), now)
}

func migrateOrFail(t *testing.T, e *Engine, raw string) (model.Document, Report) {
	t.Helper()
	doc, rep, err := e.Migrate([]byte(raw))
	if err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	return doc, rep
}

func encode(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	return b
}

func TestMigrate_EmptyInput(t *testing.T) {
	for _, raw := range []string{"", "  ", "null"} {
		doc, rep := migrateOrFail(t, newTestEngine(), raw)
		if len(doc.Days) != 0 || rep.Changed {
			t.Errorf("Migrate(%q) = %d days, changed=%v", raw, len(doc.Days), rep.Changed)
		}
	}
}

func TestMigrate_CorruptBlob(t *testing.T) {
	if _, _, err := newTestEngine().Migrate([]byte("{not json")); err == nil {
		t.Fatal("expected error for corrupt blob")
	}
}

func TestMigrate_LegacyScalarThoughts(t *testing.T) {
	doc, rep := migrateOrFail(t, newTestEngine(),
		`{"2024-01-01":{"morningThought":"일찍 일어나기","dailyIdea":"   "}}`)

	day := doc.Days["2024-01-01"]
	if len(day.Thoughts) != 1 {
		t.Fatalf("len(thoughts) = %d, want 1", len(day.Thoughts))
	}
	got := day.Thoughts[0]
	if got.Text != "일찍 일어나기" || got.Type != model.ThoughtMorning || got.Date != "2024-01-01" {
		t.Errorf("thought = %+v", got)
	}
	if got.ID == nil || *got.ID != fixedNow.UnixMilli() {
		t.Errorf("thought id = %v, want %d", got.ID, fixedNow.UnixMilli())
	}
	if !got.CreatedAt.Equal(fixedNow) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, fixedNow)
	}
	if day.Extra.Has("morningThought") || day.Extra.Has("dailyIdea") {
		t.Errorf("scalar keys should be dropped, extra = %v", day.Extra.Keys())
	}
	if !rep.Changed || rep.Variants[LegacyScalarThought] != 2 {
		t.Errorf("report = %+v", rep)
	}
}

func TestMigrate_ScalarThoughtsGetDistinctIDs(t *testing.T) {
	doc, _ := migrateOrFail(t, newTestEngine(),
		`{"2024-01-01":{"morningThought":"a","dailyIdea":"b"}}`)

	thoughts := doc.Days["2024-01-01"].Thoughts
	if len(thoughts) != 2 {
		t.Fatalf("len(thoughts) = %d, want 2", len(thoughts))
	}
	if *thoughts[0].ID == *thoughts[1].ID {
		t.Errorf("synthetic ids collide: %d", *thoughts[0].ID)
	}
}

func TestMigrate_LegacyThoughtLists(t *testing.T) {
	doc, _ := migrateOrFail(t, newTestEngine(), `{"2024-01-02":{
		"thoughts":[{"id":1,"text":"modern","type":"daily"}],
		"morningThoughts":[{"id":10,"text":"m","timestamp":"2024-01-02T07:00:00.000Z"}],
		"dailyIdeas":[{"id":11,"text":"i","timestamp":"later","mood":"x"}]
	}}`)

	thoughts := doc.Days["2024-01-02"].Thoughts
	if len(thoughts) != 3 {
		t.Fatalf("len(thoughts) = %d, want 3", len(thoughts))
	}
	if thoughts[1].Type != model.ThoughtMorning || *thoughts[1].ID != 10 {
		t.Errorf("thoughts[1] = %+v", thoughts[1])
	}
	want := time.Date(2024, 1, 2, 7, 0, 0, 0, time.UTC)
	if !thoughts[1].CreatedAt.Equal(want) || thoughts[1].Extra.Has("timestamp") {
		t.Errorf("timestamp not moved to created_at: %+v", thoughts[1])
	}
	// 解釈できないtimestampと未知のキーは残る
	if thoughts[2].Type != model.ThoughtIdea || !thoughts[2].Extra.Has("timestamp") || !thoughts[2].Extra.Has("mood") {
		t.Errorf("thoughts[2] = %+v", thoughts[2])
	}
	if day := doc.Days["2024-01-02"]; day.Extra.Has("morningThoughts") || day.Extra.Has("dailyIdeas") {
		t.Errorf("legacy lists should be folded, extra = %v", day.Extra.Keys())
	}
}

func TestMigrate_ScalarMatchingListItemIsNotDuplicated(t *testing.T) {
	doc, _ := migrateOrFail(t, newTestEngine(), `{"2024-01-02":{
		"morningThought":"A",
		"morningThoughts":[{"id":5,"text":"A"}],
		"dailyIdea":"A"
	}}`)

	thoughts := doc.Days["2024-01-02"].Thoughts
	if len(thoughts) != 2 {
		t.Fatalf("len(thoughts) = %d, want 2: %+v", len(thoughts), thoughts)
	}
	morning := thoughts[0]
	if morning.Type != model.ThoughtMorning || morning.Text != "A" || morning.ID == nil || *morning.ID != 5 {
		t.Errorf("thoughts[0] = %+v, want list item id 5", morning)
	}
	// 種別が違えば同じ本文でも別のThought
	if thoughts[1].Type != model.ThoughtIdea || thoughts[1].Text != "A" {
		t.Errorf("thoughts[1] = %+v", thoughts[1])
	}
	if day := doc.Days["2024-01-02"]; day.Extra.Has("morningThought") {
		t.Errorf("scalar key should be consumed, extra = %v", day.Extra.Keys())
	}
}

func TestMigrate_MustDoStrings(t *testing.T) {
	doc, rep := migrateOrFail(t, newTestEngine(),
		`{"2024-01-03":{"mustDo":["운동","", "독서"]}}`)

	todos := doc.Days["2024-01-03"].Todos
	if len(todos) != 2 {
		t.Fatalf("len(todos) = %d, want 2", len(todos))
	}
	if todos[0].ID != 1 || todos[0].Text != "운동" || todos[0].OrderIndex != 0 {
		t.Errorf("todos[0] = %+v", todos[0])
	}
	if todos[1].ID != 3 || todos[1].Text != "독서" || todos[1].OrderIndex != 1 {
		t.Errorf("todos[1] = %+v", todos[1])
	}
	for _, todo := range todos {
		if todo.Priority != model.PriorityMedium || todo.Completed {
			t.Errorf("todo defaults = %+v", todo)
		}
	}
	if rep.Variants[LegacyMustDoStrings] != 1 {
		t.Errorf("variants = %v", rep.Variants)
	}
}

func TestMigrate_MustDoItems(t *testing.T) {
	doc, _ := migrateOrFail(t, newTestEngine(), `{"2024-01-04":{"mustDo":[
		{"id":2,"text":"second","completed":true,"order":5},
		{"id":1,"text":"","completed":false,"order":0},
		{"id":2,"text":"dup","completed":false,"order":1}
	]}}`)

	todos := doc.Days["2024-01-04"].Todos
	if len(todos) != 2 {
		t.Fatalf("len(todos) = %d, want 2", len(todos))
	}
	if todos[0].Text != "dup" || todos[0].OrderIndex != 0 || todos[0].ID == 2 {
		t.Errorf("todos[0] = %+v", todos[0])
	}
	if todos[1].Text != "second" || todos[1].OrderIndex != 1 || !todos[1].Completed || todos[1].ID != 2 {
		t.Errorf("todos[1] = %+v", todos[1])
	}
}

func TestMigrate_TodoLegacyOrderField(t *testing.T) {
	doc, _ := migrateOrFail(t, newTestEngine(),
		`{"2024-01-05":{"todos":[{"id":1,"text":"a","completed":false,"order":4}]}}`)

	todo := doc.Days["2024-01-05"].Todos[0]
	if todo.OrderIndex != 4 {
		t.Errorf("OrderIndex = %d, want 4", todo.OrderIndex)
	}
	if !todo.Extra.Has("order") {
		t.Error("legacy order field should be preserved")
	}
	if todo.Priority != model.PriorityMedium {
		t.Errorf("Priority = %q, want medium", todo.Priority)
	}
}

func TestMigrate_PreservesUnknownFields(t *testing.T) {
	raw := `{"2024-01-06":{
		"todos":[],
		"thoughts":[],
		"diary":"오늘의 일기",
		"completedItems":[1,2],
		"dailyReport":{"summary":"s","mood":"좋음","lessons_learned":"배운 점"}
	},"settings":{"theme":"dark"}}`
	doc, rep := migrateOrFail(t, newTestEngine(), raw)

	out := encode(t, doc)
	for _, want := range []string{`"diary":"오늘의 일기"`, `"completedItems":[1,2]`, `"lessons_learned":"배운 점"`, `"settings":{"theme":"dark"}`} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
	if len(rep.Residual) != 1 || rep.Residual[0] != "settings" {
		t.Errorf("Residual = %v", rep.Residual)
	}
}

func TestMigrate_UnrecognizedThoughtsPassThrough(t *testing.T) {
	doc, rep := migrateOrFail(t, newTestEngine(),
		`{"2024-01-07":{"thoughts":{"weird":true},"morningThought":"kept"}}`)

	out := encode(t, doc.Days["2024-01-07"])
	if !bytes.Contains(out, []byte(`"thoughts":{"weird":true}`)) {
		t.Errorf("thoughts should pass through: %s", out)
	}
	if !bytes.Contains(out, []byte(`"morningThought":"kept"`)) {
		t.Errorf("scalar should stay when thoughts is unrecognized: %s", out)
	}
	if rep.Variants[Unrecognized] != 1 {
		t.Errorf("variants = %v", rep.Variants)
	}
}

func TestMigrate_ReportDefaults(t *testing.T) {
	doc, _ := migrateOrFail(t, newTestEngine(), `{
		"2024-01-08":{},
		"2024-01-09":{"dailyReport":{"mood":2,"tommorrow_thought":"내일"}},
		"2024-01-10":{"dailyReport":{"mood":9}}
	}`)

	empty := doc.Days["2024-01-08"].DailyReport
	if empty.Mood != model.MoodNeutral || empty.Date != "2024-01-08" || empty.Summary != "" {
		t.Errorf("default report = %+v", empty)
	}

	legacy := doc.Days["2024-01-09"].DailyReport
	if legacy.Mood != model.MoodBad {
		t.Errorf("numeric mood = %q, want %q", legacy.Mood, model.MoodBad)
	}
	if legacy.TomorrowGoals != "내일" || legacy.Extra.Has("tommorrow_thought") {
		t.Errorf("tommorrow_thought not moved: %+v", legacy)
	}

	// 範囲外の数値はそのまま残す
	outOfRange := doc.Days["2024-01-10"].DailyReport
	if outOfRange.Mood != "" || !outOfRange.Extra.Has("mood") {
		t.Errorf("out-of-range mood = %+v", outOfRange)
	}

	if len(doc.Days["2024-01-08"].Todos) != 0 || doc.Days["2024-01-08"].Todos == nil {
		t.Error("absent todos should default to an empty list")
	}
}

func TestMigrate_AlreadyMigratedIsUnchanged(t *testing.T) {
	raw := `{"2024-02-01":{
		"todos":[{"id":1,"text":"a","completed":false,"priority":"high","order_index":0}],
		"thoughts":[{"id":5,"text":"t","type":"daily","date":"2024-02-01"}],
		"dailyReport":{"date":"2024-02-01","summary":"","gratitude":"","tomorrow_goals":"","mood":"보통"}
	}}`
	_, rep := migrateOrFail(t, newTestEngine(), raw)
	if rep.Changed {
		t.Error("already-migrated document should be reported unchanged")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	inputs := map[string]string{
		"scalars":   `{"2024-01-01":{"morningThought":"a","dailyIdea":"b","mustDo":["x","y"]}}`,
		"lists":     `{"2024-01-02":{"morningThoughts":[{"id":1,"text":"m","timestamp":"2024-01-02T07:00:00Z"}],"dailyIdeas":[]}}`,
		"items":     `{"2024-01-03":{"mustDo":[{"id":1,"text":"a","completed":true,"order":2},{"id":1,"text":"b","order":0}]}}`,
		"report":    `{"2024-01-04":{"dailyReport":{"mood":5,"tommorrow_thought":"t","lessons_learned":"l"}}}`,
		"unknown":   `{"2024-01-05":{"thoughts":"oops","diary":"d"},"other":[1,2,3]}`,
		"modern":    `{"2024-01-06":{"todos":[{"id":3,"text":"c","order":1}],"thoughts":[{"text":"no id"}]}}`,
		"malformed": `{"2024-01-07":{"todos":[{"id":"x","text":"bad id","completed":"yes"}]},"2024-13-01":{"todos":[]}}`,
	}

	for name, raw := range inputs {
		t.Run(name, func(t *testing.T) {
			first, _ := migrateOrFail(t, newTestEngine(), raw)
			firstOut := encode(t, first)

			second, rep := migrateOrFail(t, newTestEngine(), string(firstOut))
			secondOut := encode(t, second)

			if !bytes.Equal(firstOut, secondOut) {
				t.Errorf("not idempotent:\nfirst:  %s\nsecond: %s", firstOut, secondOut)
			}
			if rep.Changed {
				t.Error("second pass should report no change")
			}
		})
	}
}
