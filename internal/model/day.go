package model

import (
	"sort"
	"time"
)

// DateLayout は日付キーの書式（YYYY-MM-DD）。
const DateLayout = "2006-01-02"

// Priority はTodoの優先度を表す。
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid は定義済みの優先度かを返す。
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ThoughtType はThoughtの種別を表す。
type ThoughtType string

const (
	ThoughtMorning ThoughtType = "morning"
	ThoughtDaily   ThoughtType = "daily"
	ThoughtIdea    ThoughtType = "idea"
)

// Mood は5段階の気分を表す。
type Mood string

const (
	MoodVeryGood Mood = "매우좋음"
	MoodGood     Mood = "좋음"
	MoodNeutral  Mood = "보통"
	MoodBad      Mood = "나쁨"
	MoodVeryBad  Mood = "매우나쁨"
)

// moodScale は気分ラベルと5段階スコアの対応表。
var moodScale = map[Mood]int{
	MoodVeryGood: 5,
	MoodGood:     4,
	MoodNeutral:  3,
	MoodBad:      2,
	MoodVeryBad:  1,
}

// Valid は定義済みの気分かを返す。
func (m Mood) Valid() bool {
	_, ok := moodScale[m]
	return ok
}

// Score は気分を1〜5のスコアに変換する。未定義の値は中立の3とする。
func (m Mood) Score() int {
	if s, ok := moodScale[m]; ok {
		return s
	}
	return moodScale[MoodNeutral]
}

// MoodFromScore は1〜5のスコアから気分ラベルを返す。範囲外はfalse。
func MoodFromScore(score int) (Mood, bool) {
	for m, s := range moodScale {
		if s == score {
			return m, true
		}
	}
	return "", false
}

// ValidateDate は日付キーがYYYY-MM-DD形式かを検証する。
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return NewInvalidDateError(date)
	}
	return nil
}

// Todo は1日のタスクを表す。
// OrderIndex は同じ日付内での表示順で、並べ替え後は0..n-1の連番になる。
type Todo struct {
	ID          int64
	Text        string
	Completed   bool
	Priority    Priority
	OrderIndex  int
	Type        string
	Link        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Extra は解釈できなかったプロパティ（旧形式のorderなど）。
	Extra RawFields
}

// MarshalJSON はTodoをローカルミラー形式のJSONに変換する。
func (t Todo) MarshalJSON() ([]byte, error) {
	known := map[string]any{
		"id":          t.ID,
		"text":        t.Text,
		"completed":   t.Completed,
		"priority":    t.Priority,
		"order_index": t.OrderIndex,
	}
	if t.Type != "" {
		known["type"] = t.Type
	}
	if t.Link != "" {
		known["link"] = t.Link
	}
	if t.Description != "" {
		known["description"] = t.Description
	}
	if !t.CreatedAt.IsZero() {
		known["created_at"] = t.CreatedAt
	}
	if !t.UpdatedAt.IsZero() {
		known["updated_at"] = t.UpdatedAt
	}
	return encodeObject(known, t.Extra)
}

// UnmarshalJSON は形の合わないプロパティをExtraに残しつつTodoを復元する。
func (t *Todo) UnmarshalJSON(data []byte) error {
	obj, err := objectFields(data)
	if err != nil {
		return err
	}
	var out Todo
	takeField(obj, "id", &out.ID)
	takeField(obj, "text", &out.Text)
	takeField(obj, "completed", &out.Completed)
	takeField(obj, "priority", &out.Priority)
	takeField(obj, "order_index", &out.OrderIndex)
	takeField(obj, "type", &out.Type)
	takeField(obj, "link", &out.Link)
	takeField(obj, "description", &out.Description)
	takeField(obj, "created_at", &out.CreatedAt)
	takeField(obj, "updated_at", &out.UpdatedAt)
	out.Extra = leftover(obj)
	*t = out
	return nil
}

// Thought は1日の気づき・アイデアを表す。
// 旧データにはIDを持たないものがあるため、IDは任意。
type Thought struct {
	ID        *int64
	Text      string
	Type      ThoughtType
	Date      string
	CreatedAt time.Time
	UpdatedAt time.Time

	Extra RawFields
}

// MarshalJSON はThoughtをローカルミラー形式のJSONに変換する。
func (t Thought) MarshalJSON() ([]byte, error) {
	known := map[string]any{
		"text": t.Text,
		"type": t.Type,
	}
	if t.ID != nil {
		known["id"] = *t.ID
	}
	if t.Date != "" {
		known["date"] = t.Date
	}
	if !t.CreatedAt.IsZero() {
		known["created_at"] = t.CreatedAt
	}
	if !t.UpdatedAt.IsZero() {
		known["updated_at"] = t.UpdatedAt
	}
	return encodeObject(known, t.Extra)
}

// UnmarshalJSON は形の合わないプロパティをExtraに残しつつThoughtを復元する。
func (t *Thought) UnmarshalJSON(data []byte) error {
	obj, err := objectFields(data)
	if err != nil {
		return err
	}
	var out Thought
	var id int64
	if takeField(obj, "id", &id) {
		out.ID = &id
	}
	takeField(obj, "text", &out.Text)
	takeField(obj, "type", &out.Type)
	takeField(obj, "date", &out.Date)
	takeField(obj, "created_at", &out.CreatedAt)
	takeField(obj, "updated_at", &out.UpdatedAt)
	out.Extra = leftover(obj)
	*t = out
	return nil
}

// DailyReport は1日1件の振り返りを表す。
type DailyReport struct {
	Date          string
	Summary       string
	Gratitude     string
	TomorrowGoals string
	Mood          Mood
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Extra は旧フィールド（lessons_learned など）を保持する。
	Extra RawFields
}

// MarshalJSON はDailyReportをローカルミラー形式のJSONに変換する。
func (r DailyReport) MarshalJSON() ([]byte, error) {
	known := map[string]any{
		"date":           r.Date,
		"summary":        r.Summary,
		"gratitude":      r.Gratitude,
		"tomorrow_goals": r.TomorrowGoals,
		"mood":           r.Mood,
	}
	if !r.CreatedAt.IsZero() {
		known["created_at"] = r.CreatedAt
	}
	if !r.UpdatedAt.IsZero() {
		known["updated_at"] = r.UpdatedAt
	}
	return encodeObject(known, r.Extra)
}

// UnmarshalJSON は形の合わないプロパティをExtraに残しつつDailyReportを復元する。
func (r *DailyReport) UnmarshalJSON(data []byte) error {
	obj, err := objectFields(data)
	if err != nil {
		return err
	}
	var out DailyReport
	takeField(obj, "date", &out.Date)
	takeField(obj, "summary", &out.Summary)
	takeField(obj, "gratitude", &out.Gratitude)
	takeField(obj, "tomorrow_goals", &out.TomorrowGoals)
	takeField(obj, "mood", &out.Mood)
	takeField(obj, "created_at", &out.CreatedAt)
	takeField(obj, "updated_at", &out.UpdatedAt)
	out.Extra = leftover(obj)
	*r = out
	return nil
}

// DefaultDailyReport は振り返りが未作成の日付に使う既定値を返す。
func DefaultDailyReport(date string) DailyReport {
	return DailyReport{
		Date: date,
		Mood: MoodNeutral,
	}
}

// DayData は1日分のTodo・Thought・DailyReportの集約。
// 3つの要素はいずれも欠けない。
type DayData struct {
	Todos       []Todo
	Thoughts    []Thought
	DailyReport DailyReport

	// Extra は日付レコード直下の未知プロパティ（diary など）。
	Extra RawFields
}

// NewDayData は空の1日分レコードを返す。
func NewDayData(date string) DayData {
	return DayData{
		Todos:       []Todo{},
		Thoughts:    []Thought{},
		DailyReport: DefaultDailyReport(date),
	}
}

// MarshalJSON はDayDataをローカルミラー形式のJSONに変換する。
func (d DayData) MarshalJSON() ([]byte, error) {
	todos := d.Todos
	if todos == nil {
		todos = []Todo{}
	}
	thoughts := d.Thoughts
	if thoughts == nil {
		thoughts = []Thought{}
	}
	known := map[string]any{
		"todos":       todos,
		"thoughts":    thoughts,
		"dailyReport": d.DailyReport,
	}
	return encodeObject(known, d.Extra)
}

// UnmarshalJSON は形の合わないプロパティをExtraに残しつつDayDataを復元する。
func (d *DayData) UnmarshalJSON(data []byte) error {
	obj, err := objectFields(data)
	if err != nil {
		return err
	}
	var out DayData
	takeField(obj, "todos", &out.Todos)
	takeField(obj, "thoughts", &out.Thoughts)
	takeField(obj, "dailyReport", &out.DailyReport)
	out.Extra = leftover(obj)
	*d = out
	return nil
}

// Clone はDayDataのディープコピーを返す。
func (d DayData) Clone() DayData {
	out := DayData{
		Todos:       make([]Todo, len(d.Todos)),
		Thoughts:    make([]Thought, len(d.Thoughts)),
		DailyReport: d.DailyReport,
		Extra:       d.Extra.Clone(),
	}
	for i, t := range d.Todos {
		t.Extra = t.Extra.Clone()
		out.Todos[i] = t
	}
	for i, t := range d.Thoughts {
		if t.ID != nil {
			id := *t.ID
			t.ID = &id
		}
		t.Extra = t.Extra.Clone()
		out.Thoughts[i] = t
	}
	out.DailyReport.Extra = d.DailyReport.Extra.Clone()
	return out
}

// Data は日付キーから1日分レコードへのマップ。
type Data map[string]DayData

// Dates は日付キーを昇順で返す。
func (d Data) Dates() []string {
	dates := make([]string, 0, len(d))
	for date := range d {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// Clone はDataのディープコピーを返す。
func (d Data) Clone() Data {
	out := make(Data, len(d))
	for date, day := range d {
		out[date] = day.Clone()
	}
	return out
}

// Document はローカルミラーに保存される文書全体。
// 日付レコードとして解釈できなかったトップレベルの値はResidualに残る。
type Document struct {
	Days     Data
	Residual RawFields
}

// MarshalJSON は日付レコードと残余値を1つのJSONオブジェクトにまとめる。
func (doc Document) MarshalJSON() ([]byte, error) {
	known := make(map[string]any, len(doc.Days))
	for date, day := range doc.Days {
		known[date] = day
	}
	return encodeObject(known, doc.Residual)
}

// Renumber は並び順どおりにOrderIndexを0から振り直したコピーを返す。
func Renumber(todos []Todo) []Todo {
	out := make([]Todo, len(todos))
	for i, t := range todos {
		t.OrderIndex = i
		out[i] = t
	}
	return out
}

// SortByOrderIndex はOrderIndex順（同値はID順）に並べたコピーを返す。
func SortByOrderIndex(todos []Todo) []Todo {
	out := append([]Todo(nil), todos...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// DayPatch はUpdateDayに渡す部分更新。nilのフィールドは変更しない。
type DayPatch struct {
	Todos       *[]Todo           `json:"todos,omitempty"`
	Thoughts    *[]Thought        `json:"thoughts,omitempty"`
	DailyReport *DailyReportPatch `json:"dailyReport,omitempty"`
}

// IsEmpty は変更が1つも含まれないかを返す。
func (p DayPatch) IsEmpty() bool {
	return p.Todos == nil && p.Thoughts == nil && p.DailyReport == nil
}

// DailyReportPatch はDailyReportの部分更新。nilのフィールドは既存値を保つ。
type DailyReportPatch struct {
	Summary       *string `json:"summary,omitempty"`
	Gratitude     *string `json:"gratitude,omitempty"`
	TomorrowGoals *string `json:"tomorrow_goals,omitempty"`
	Mood          *Mood   `json:"mood,omitempty"`
}

// Validate は気分ラベルが定義済みかを検証する。
func (p DailyReportPatch) Validate() error {
	if p.Mood != nil && !p.Mood.Valid() {
		return NewInvalidMoodError(string(*p.Mood))
	}
	return nil
}

// Apply はパッチをreportに適用した結果を返す。updated_atは常にnowに更新される。
func (p DailyReportPatch) Apply(report DailyReport, now time.Time) DailyReport {
	if p.Summary != nil {
		report.Summary = *p.Summary
		delete(report.Extra, "summary")
	}
	if p.Gratitude != nil {
		report.Gratitude = *p.Gratitude
		delete(report.Extra, "gratitude")
	}
	if p.TomorrowGoals != nil {
		report.TomorrowGoals = *p.TomorrowGoals
		delete(report.Extra, "tomorrow_goals")
	}
	if p.Mood != nil {
		report.Mood = *p.Mood
		delete(report.Extra, "mood")
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = now
	return report
}

// FullPatch はreportの全フィールドを上書きするパッチを返す。
// ネットワーク側へ1日分をまとめて書き込む際に使う。
func FullPatch(report DailyReport) DailyReportPatch {
	mood := report.Mood
	return DailyReportPatch{
		Summary:       &report.Summary,
		Gratitude:     &report.Gratitude,
		TomorrowGoals: &report.TomorrowGoals,
		Mood:          &mood,
	}
}

// Keys は保持しているキーを昇順で返す。
func (f RawFields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
