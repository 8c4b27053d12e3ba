package reconcile

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/pushmyself/internal/mirror"
	"github.com/hitoshi/pushmyself/internal/model"
	"github.com/hitoshi/pushmyself/internal/repository"
)

// --- モック定義 ---

var (
	online  = model.Connectivity{Reachable: true, Authenticated: true, OwnerID: "owner-1"}
	offline = model.Connectivity{}
)

type fakeChecker struct {
	mu   sync.Mutex
	conn model.Connectivity
}

func (f *fakeChecker) Check(_ context.Context) model.Connectivity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conn
}

func (f *fakeChecker) set(conn model.Connectivity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conn = conn
}

// fakeRemote はネットワークストアをメモリ上で再現する。所有者は1人のみを想定する。
type fakeRemote struct {
	mu       sync.Mutex
	todos    map[string][]model.Todo
	thoughts map[string][]model.Thought
	reports  map[string]model.DailyReport

	writeErr        error
	listTodosErr    error
	listThoughtsErr error
	listReportsErr  error
	// gate が設定されている場合、Todoの書き込みはgateが閉じるまで待つ。
	gate chan struct{}
	// listGate が設定されている場合、Todoの一覧取得はlistGateが閉じるまで待つ。待機に入るとlistStartedへ通知する。
	listGate    chan struct{}
	listStarted chan struct{}

	writes  int
	creates int
	updates int
	deletes int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		todos:    make(map[string][]model.Todo),
		thoughts: make(map[string][]model.Thought),
		reports:  make(map[string]model.DailyReport),
	}
}

func (f *fakeRemote) repos() (repository.TodoRepository, repository.ThoughtRepository, repository.DailyReportRepository) {
	return &fakeTodoRepo{f}, &fakeThoughtRepo{f}, &fakeReportRepo{f}
}

func (f *fakeRemote) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

// calls は個別書き込み（Create・Update・Delete）の回数を返す。
func (f *fakeRemote) calls() (creates, updates, deletes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates, f.updates, f.deletes
}

func (f *fakeRemote) setWriteErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

type fakeTodoRepo struct{ r *fakeRemote }

func (f *fakeTodoRepo) ListByOwner(_ context.Context, _ string) (map[string][]model.Todo, error) {
	if f.r.listGate != nil {
		select {
		case f.r.listStarted <- struct{}{}:
		default:
		}
		<-f.r.listGate
	}
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if f.r.listTodosErr != nil {
		return nil, f.r.listTodosErr
	}
	out := make(map[string][]model.Todo, len(f.r.todos))
	for date, list := range f.r.todos {
		out[date] = append([]model.Todo(nil), list...)
	}
	return out, nil
}

func (f *fakeTodoRepo) Create(_ context.Context, _, date string, todo model.Todo) (*model.Todo, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.writes++
	f.r.creates++
	if f.r.writeErr != nil {
		return nil, f.r.writeErr
	}
	todo.OrderIndex = len(f.r.todos[date])
	todo.Extra = nil
	f.r.todos[date] = append(f.r.todos[date], todo)
	return &todo, nil
}

func (f *fakeTodoRepo) Update(_ context.Context, _, date string, id int64, patch repository.TodoPatch) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.writes++
	f.r.updates++
	if f.r.writeErr != nil {
		return f.r.writeErr
	}
	for i := range f.r.todos[date] {
		t := &f.r.todos[date][i]
		if t.ID != id {
			continue
		}
		if patch.Text != nil {
			t.Text = *patch.Text
		}
		if patch.Completed != nil {
			t.Completed = *patch.Completed
		}
		if patch.Priority != nil {
			t.Priority = *patch.Priority
		}
		if patch.Type != nil {
			t.Type = *patch.Type
		}
		if patch.Link != nil {
			t.Link = *patch.Link
		}
		if patch.Description != nil {
			t.Description = *patch.Description
		}
		return nil
	}
	return fmt.Errorf("todo %d not found for date %s", id, date)
}

func (f *fakeTodoRepo) Delete(_ context.Context, _, date string, id int64) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.writes++
	f.r.deletes++
	if f.r.writeErr != nil {
		return f.r.writeErr
	}
	kept := make([]model.Todo, 0, len(f.r.todos[date]))
	for _, t := range model.SortByOrderIndex(f.r.todos[date]) {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	f.r.todos[date] = model.Renumber(kept)
	return nil
}

func (f *fakeTodoRepo) ReplaceAllForDate(_ context.Context, _, date string, todos []model.Todo) error {
	if f.r.gate != nil {
		<-f.r.gate
	}
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.writes++
	if f.r.writeErr != nil {
		return f.r.writeErr
	}
	stored := model.Renumber(todos)
	for i := range stored {
		stored[i].Extra = nil
	}
	f.r.todos[date] = stored
	return nil
}

type fakeThoughtRepo struct{ r *fakeRemote }

func (f *fakeThoughtRepo) ListByOwner(_ context.Context, _ string) (map[string][]model.Thought, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if f.r.listThoughtsErr != nil {
		return nil, f.r.listThoughtsErr
	}
	out := make(map[string][]model.Thought, len(f.r.thoughts))
	for date, list := range f.r.thoughts {
		out[date] = append([]model.Thought(nil), list...)
	}
	return out, nil
}

func (f *fakeThoughtRepo) Create(_ context.Context, _, date string, thought model.Thought) (*model.Thought, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.writes++
	f.r.creates++
	if f.r.writeErr != nil {
		return nil, f.r.writeErr
	}
	thought.Date = date
	thought.Extra = nil
	f.r.thoughts[date] = append(f.r.thoughts[date], thought)
	return &thought, nil
}

func (f *fakeThoughtRepo) Update(_ context.Context, _, date string, id int64, patch repository.ThoughtPatch) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.writes++
	f.r.updates++
	if f.r.writeErr != nil {
		return f.r.writeErr
	}
	for i := range f.r.thoughts[date] {
		t := &f.r.thoughts[date][i]
		if t.ID == nil || *t.ID != id {
			continue
		}
		if patch.Text != nil {
			t.Text = *patch.Text
		}
		if patch.Type != nil {
			t.Type = *patch.Type
		}
		return nil
	}
	return fmt.Errorf("thought %d not found for date %s", id, date)
}

func (f *fakeThoughtRepo) Delete(_ context.Context, _, date string, id int64) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.writes++
	f.r.deletes++
	if f.r.writeErr != nil {
		return f.r.writeErr
	}
	kept := make([]model.Thought, 0, len(f.r.thoughts[date]))
	for _, t := range f.r.thoughts[date] {
		if t.ID == nil || *t.ID != id {
			kept = append(kept, t)
		}
	}
	f.r.thoughts[date] = kept
	return nil
}

func (f *fakeThoughtRepo) ReplaceAllForDate(_ context.Context, _, date string, thoughts []model.Thought) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.writes++
	if f.r.writeErr != nil {
		return f.r.writeErr
	}
	stored := make([]model.Thought, len(thoughts))
	for i, t := range thoughts {
		t.Extra = nil
		t.Date = date
		stored[i] = t
	}
	f.r.thoughts[date] = stored
	return nil
}

type fakeReportRepo struct{ r *fakeRemote }

func (f *fakeReportRepo) ListByOwner(_ context.Context, _ string) (map[string]model.DailyReport, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if f.r.listReportsErr != nil {
		return nil, f.r.listReportsErr
	}
	out := make(map[string]model.DailyReport, len(f.r.reports))
	for date, report := range f.r.reports {
		out[date] = report
	}
	return out, nil
}

func (f *fakeReportRepo) Upsert(_ context.Context, _, date string, patch model.DailyReportPatch) (*model.DailyReport, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.writes++
	if f.r.writeErr != nil {
		return nil, f.r.writeErr
	}
	current, ok := f.r.reports[date]
	if !ok {
		current = model.DefaultDailyReport(date)
	}
	updated := patch.Apply(current, time.Now())
	updated.Date = date
	updated.Extra = nil
	f.r.reports[date] = updated
	return &updated, nil
}

// --- ヘルパー ---

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type testEnv struct {
	svc     *Service
	store   *mirror.Mirror
	dir     string
	checker *fakeChecker
	remote  *fakeRemote
	logs    *bytes.Buffer
}

func newTestEnv(t *testing.T, conn model.Connectivity) *testEnv {
	t.Helper()
	return newTestEnvAt(t, t.TempDir(), conn, newFakeRemote())
}

func newTestEnvAt(t *testing.T, dir string, conn model.Connectivity, remote *fakeRemote) *testEnv {
	t.Helper()
	env := &testEnv{
		store:   mirror.New(dir),
		dir:     dir,
		checker: &fakeChecker{conn: conn},
		remote:  remote,
		logs:    &bytes.Buffer{},
	}
	todos, thoughts, reports := remote.repos()
	env.svc = NewService(Deps{
		Store:    env.store,
		Checker:  env.checker,
		Todos:    todos,
		Thoughts: thoughts,
		Reports:  reports,
		Logger:   newTestLogger(env.logs),
	}, Config{WriteTimeout: 5 * time.Second, ThoughtCap: 3})
	return env
}

// reopen は同じLocal Mirrorを使う新しいServiceを返す。プロセス再起動に相当する。
func (e *testEnv) reopen(t *testing.T, conn model.Connectivity) *testEnv {
	t.Helper()
	return newTestEnvAt(t, e.dir, conn, e.remote)
}

// 比較用に内容だけを取り出した表現。IDや時刻は実行ごとに異なるため含めない。
type todoContent struct {
	Text       string
	Completed  bool
	Priority   model.Priority
	OrderIndex int
}

type thoughtContent struct {
	Text string
	Type model.ThoughtType
}

type dayContent struct {
	Todos    []todoContent
	Thoughts []thoughtContent
	Summary  string
	Goals    string
	Mood     model.Mood
}

func contentOf(data model.Data) map[string]dayContent {
	out := make(map[string]dayContent, len(data))
	for date, day := range data {
		c := dayContent{
			Todos:    []todoContent{},
			Thoughts: []thoughtContent{},
			Summary:  day.DailyReport.Summary,
			Goals:    day.DailyReport.TomorrowGoals,
			Mood:     day.DailyReport.Mood,
		}
		for _, t := range model.SortByOrderIndex(day.Todos) {
			c.Todos = append(c.Todos, todoContent{t.Text, t.Completed, t.Priority, t.OrderIndex})
		}
		for _, t := range day.Thoughts {
			c.Thoughts = append(c.Thoughts, thoughtContent{t.Text, t.Type})
		}
		out[date] = c
	}
	return out
}

func mustLoad(t *testing.T, svc *Service) model.Data {
	t.Helper()
	data, err := svc.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	return data
}

func ptr[T any](v T) *T {
	return &v
}
