package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeResult struct {
	rowsAffected int64
}

func (r *fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r *fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

// mockExecutor はExecContextの呼び出しを記録する。
type mockExecutor struct {
	mu     sync.Mutex
	calls  int
	query  string
	args   []any
	result sql.Result
	err    error
}

func (m *mockExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.query = query
	m.args = args
	return m.result, m.err
}

func (m *mockExecutor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// findLogField はJSONログからkeyを持つ最初の値を返す。
func findLogField(t *testing.T, buf *bytes.Buffer, key string) (any, bool) {
	t.Helper()
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if v, ok := entry[key]; ok {
			return v, true
		}
	}
	return nil, false
}

func TestNewSessionCleanupJob_DefaultGraceDays(t *testing.T) {
	job := NewSessionCleanupJob(&mockExecutor{}, newTestLogger(&bytes.Buffer{}))
	if job.GraceDays != 7 {
		t.Errorf("GraceDays = %d, want 7", job.GraceDays)
	}
}

func TestSessionCleanupJob_Run_ExecutesDeleteQuery(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 5}}
	job := NewSessionCleanupJob(mock, newTestLogger(&buf))

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if !strings.Contains(mock.query, "DELETE FROM sessions") {
		t.Errorf("query should delete from sessions: %s", mock.query)
	}
	if !strings.Contains(mock.query, "expires_at") {
		t.Errorf("query should filter by expires_at: %s", mock.query)
	}
	if len(mock.args) != 1 || mock.args[0] != "7 days" {
		t.Errorf("args = %v, want [7 days]", mock.args)
	}
	if v, ok := findLogField(t, &buf, "deleted_count"); !ok || v != float64(5) {
		t.Errorf("deleted_count log = %v, want 5\n%s", v, buf.String())
	}
	if _, ok := findLogField(t, &buf, "duration_ms"); !ok {
		t.Errorf("duration_ms should be logged\n%s", buf.String())
	}
}

func TestSessionCleanupJob_Run_CustomGraceDays(t *testing.T) {
	mock := &mockExecutor{result: &fakeResult{}}
	job := NewSessionCleanupJob(mock, newTestLogger(&bytes.Buffer{}))
	job.GraceDays = 0

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if mock.args[0] != "0 days" {
		t.Errorf("interval = %v, want 0 days", mock.args[0])
	}
}

func TestSessionCleanupJob_Run_ReturnsErrorOnDBFailure(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{err: sql.ErrConnDone}
	job := NewSessionCleanupJob(mock, newTestLogger(&buf))

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error on DB failure")
	}
	if !strings.Contains(err.Error(), "sql: connection is already closed") {
		t.Errorf("error = %v", err)
	}
	if !strings.Contains(buf.String(), "ERROR") {
		t.Errorf("ERROR log should be emitted: %s", buf.String())
	}
}

func TestSessionCleanupJob_Run_IdempotentZeroRows(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 0}}
	job := NewSessionCleanupJob(mock, newTestLogger(&buf))

	for i := 0; i < 2; i++ {
		if err := job.Run(context.Background()); err != nil {
			t.Fatalf("Run() #%d error: %v", i+1, err)
		}
	}
	if v, ok := findLogField(t, &buf, "deleted_count"); !ok || v != float64(0) {
		t.Errorf("deleted_count=0 should be logged\n%s", buf.String())
	}
}

func TestSessionCleanupJob_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	mock := &mockExecutor{result: &fakeResult{}}
	job := NewSessionCleanupJob(mock, newTestLogger(&bytes.Buffer{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, time.Hour)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for mock.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if mock.callCount() != 1 {
		t.Fatalf("calls = %d, want 1 immediate run", mock.callCount())
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}
