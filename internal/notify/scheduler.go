// Package notify は毎朝の通知スケジュールを管理する。
// 永続化するのは次回の通知予定時刻のみで、起動時にRestoreでタイマーを張り直す。
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/pushmyself/internal/metrics"
	"github.com/hitoshi/pushmyself/internal/mirror"
	"github.com/hitoshi/pushmyself/internal/model"
)

// State はスケジューラの状態。
type State string

const (
	StateDisabled  State = "disabled"
	StateScheduled State = "scheduled"
	// StateFired は通知の配信中。配信後は次回分が張られてscheduledに戻る。
	StateFired State = "fired"
)

// 通知のきっかけ。メトリクスのラベルに使う。
const (
	TriggerTimer   = "timer"
	TriggerRestore = "restore"
	TriggerTest    = "test"
)

// Clock は現在時刻を返す。
type Clock interface {
	Now() time.Time
}

// Timer は張られたタイマー。*time.Timer が満たす。
type Timer interface {
	Stop() bool
}

// TimerFactory はd経過後にfを別goroutineで呼ぶタイマーを生成する。
type TimerFactory interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock は実時刻を返すClock。
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// SystemTimers はtime.AfterFuncを使うTimerFactory。
type SystemTimers struct{}

func (SystemTimers) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Config はスケジューラの設定。
type Config struct {
	// Title は通知のタイトル。空の場合は既定値。
	Title string
}

// Deps はスケジューラの依存。
type Deps struct {
	Store      mirror.Store
	Notifier   Notifier
	Permission PermissionSource
	Clock      Clock
	Timers     TimerFactory
	Metrics    metrics.MetricsCollector
	Logger     *slog.Logger
}

// Status はスケジューラの現在の状態。
type Status struct {
	State      State                      `json:"state"`
	Permission Permission                 `json:"permission"`
	NextFireAt *time.Time                 `json:"next_fire_at,omitempty"`
	Settings   model.NotificationSettings `json:"settings"`
}

// Scheduler は毎日の通知を1本のタイマーで管理する。
type Scheduler struct {
	store      mirror.Store
	notifier   Notifier
	permission PermissionSource
	clock      Clock
	timers     TimerFactory
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
	title      string

	mu       sync.Mutex
	settings model.NotificationSettings
	next     time.Time
	state    State
	timer    Timer
	// gen はタイマーを張るたびに進む。古いタイマーのコールバックを無視するために使う。
	gen uint64
}

// NewScheduler はSchedulerを生成する。
func NewScheduler(deps Deps, config Config) *Scheduler {
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	timers := deps.Timers
	if timers == nil {
		timers = SystemTimers{}
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	permission := deps.Permission
	if permission == nil {
		permission = StaticPermission(PermissionUnsupported)
	}
	title := config.Title
	if title == "" {
		title = model.DefaultNotificationTitle
	}

	return &Scheduler{
		store:      deps.Store,
		notifier:   deps.Notifier,
		permission: permission,
		clock:      clock,
		timers:     timers,
		metrics:    collector,
		logger:     logger,
		title:      title,
		settings:   model.DefaultNotificationSettings(),
		state:      StateDisabled,
	}
}

// Run はRestoreでスケジュールを復元し、ctxがキャンセルされるまで待ってタイマーを止める。
func (s *Scheduler) Run(ctx context.Context) error {
	status, err := s.Restore(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("通知スケジューラを開始しました",
		slog.String("state", string(status.State)),
		slog.String("permission", string(status.Permission)),
	)

	<-ctx.Done()
	s.Stop()
	s.logger.Info("通知スケジューラを停止しました")
	return nil
}

// Restore は保存済みの設定と予定時刻からタイマーを張り直す。
// 予定時刻を過ぎていれば直ちに通知して次回分を張り、未来なら残り時間ちょうどで張る。
func (s *Scheduler) Restore(ctx context.Context) (Status, error) {
	settings := model.DefaultNotificationSettings()
	if _, err := mirror.GetJSON(s.store, mirror.SettingsKey, &settings); err != nil {
		return Status{}, fmt.Errorf("failed to restore notification settings: %w", err)
	}
	settings = settings.WithDefaults()

	var saved model.ScheduleState
	hasSchedule, err := mirror.GetJSON(s.store, mirror.ScheduleKey, &saved)
	if err != nil {
		return Status{}, fmt.Errorf("failed to restore notification schedule: %w", err)
	}

	s.mu.Lock()
	s.settings = settings
	if hasSchedule {
		s.settings = saved.Settings.WithDefaults()
	}
	permission := s.permission.Permission(ctx)
	if !s.settings.Enabled || permission != PermissionGranted {
		s.stopLocked()
		s.state = StateDisabled
		status := s.statusLocked(permission)
		s.mu.Unlock()
		return status, nil
	}

	now := s.clock.Now()
	next := saved.NextFireAt().In(now.Location())
	if !hasSchedule || saved.NextFireAtEpochMs == 0 {
		next, err = model.NextOccurrence(now, s.settings.TimeOfDay)
		if err != nil {
			s.mu.Unlock()
			return Status{}, err
		}
	}
	s.next = next

	if next.After(now) {
		s.armLocked(next.Sub(now))
		if err := s.persistScheduleLocked(); err != nil {
			s.mu.Unlock()
			return Status{}, err
		}
		s.logger.Info("通知スケジュールを復元しました",
			slog.Time("next_fire_at", next),
		)
		status := s.statusLocked(permission)
		s.mu.Unlock()
		return status, nil
	}

	// 期限切れ: 古いタイマーを無効にしてから直ちに配信する
	s.stopLocked()
	gen := s.gen
	s.mu.Unlock()

	s.logger.Info("通知予定時刻を過ぎているため直ちに通知します",
		slog.Time("deadline", next),
	)
	s.fire(gen, TriggerRestore)
	return s.Status(ctx), nil
}

// Enable は通知を有効にし、次回の時刻にタイマーを張る。
// 通知が許可されていない場合はタイマーを張らず、その状態をStatusで返す。
func (s *Scheduler) Enable(ctx context.Context, settings model.NotificationSettings) (Status, error) {
	settings = settings.WithDefaults()
	settings.Enabled = true
	now := s.clock.Now()
	next, err := model.NextOccurrence(now, settings.TimeOfDay)
	if err != nil {
		return Status{}, err
	}

	permission := s.permission.Permission(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if permission != PermissionGranted {
		s.logger.Warn("通知が許可されていないため有効化しません",
			slog.String("permission", string(permission)),
		)
		return s.statusLocked(permission), nil
	}

	s.settings = settings
	s.next = next
	if err := mirror.PutJSON(s.store, mirror.SettingsKey, s.settings); err != nil {
		return Status{}, err
	}
	if err := s.persistScheduleLocked(); err != nil {
		return Status{}, err
	}
	s.armLocked(next.Sub(now))

	s.logger.Info("毎日の通知を有効にしました",
		slog.String("time_of_day", settings.TimeOfDay),
		slog.Time("next_fire_at", next),
	)
	return s.statusLocked(permission), nil
}

// Disable はタイマーを解除し、保存済みの予定時刻を削除する。
func (s *Scheduler) Disable(ctx context.Context) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.state = StateDisabled
	s.next = time.Time{}
	s.settings.Enabled = false

	if err := s.store.Delete(mirror.ScheduleKey); err != nil {
		return Status{}, err
	}
	if err := mirror.PutJSON(s.store, mirror.SettingsKey, s.settings); err != nil {
		return Status{}, err
	}

	s.logger.Info("毎日の通知を無効にしました")
	return s.statusLocked(s.permission.Permission(ctx)), nil
}

// UpdateSettings は設定を置き換える。Enabledに応じてEnableまたはDisableを行う。
func (s *Scheduler) UpdateSettings(ctx context.Context, settings model.NotificationSettings) (Status, error) {
	settings = settings.WithDefaults()
	if _, _, err := model.ParseTimeOfDay(settings.TimeOfDay); err != nil {
		return Status{}, err
	}
	if settings.Enabled {
		return s.Enable(ctx, settings)
	}

	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	return s.Disable(ctx)
}

// SendTest はテスト通知を直ちに配信する。messageが空の場合は設定中のメッセージを使う。
func (s *Scheduler) SendTest(ctx context.Context, message string) error {
	permission := s.permission.Permission(ctx)
	if permission != PermissionGranted {
		return model.NewNotifyDeniedError(string(permission))
	}

	s.mu.Lock()
	if message == "" {
		message = s.settings.Message
	}
	s.mu.Unlock()

	return s.deliver(ctx, message, TriggerTest)
}

// Status は現在の状態を返す。
func (s *Scheduler) Status(ctx context.Context) Status {
	permission := s.permission.Permission(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked(permission)
}

// Stop はタイマーを止める。保存済みの予定時刻は残すため、次回起動時にRestoreできる。
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// fire は通知を配信し、前回の予定時刻から1日ずつ進めて現在より後になった時刻で次回分を張る。
func (s *Scheduler) fire(gen uint64, trigger string) {
	s.mu.Lock()
	if gen != s.gen || !s.settings.Enabled {
		s.mu.Unlock()
		return
	}
	s.state = StateFired
	message := s.settings.Message
	prev := s.next
	s.mu.Unlock()

	if err := s.deliver(context.Background(), message, trigger); err != nil {
		s.logger.Error("通知の配信に失敗しました",
			slog.String("trigger", trigger),
			slog.String("error", err.Error()),
		)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// 配信中に無効化または再設定された場合は何もしない
	if gen != s.gen {
		return
	}
	now := s.clock.Now()
	s.next = rollForward(prev, now)
	if err := s.persistScheduleLocked(); err != nil {
		s.logger.Error("通知スケジュールの保存に失敗しました",
			slog.String("error", err.Error()),
		)
	}
	s.armLocked(s.next.Sub(now))
}

func (s *Scheduler) deliver(ctx context.Context, message, trigger string) error {
	if s.notifier == nil {
		return fmt.Errorf("notifier is not configured")
	}
	if err := s.notifier.Show(ctx, Notification{Title: s.title, Body: message}); err != nil {
		return fmt.Errorf("failed to show notification: %w", err)
	}
	s.metrics.RecordNotificationFired(trigger)
	return nil
}

// armLocked は既存のタイマーを止めてから1本だけ張る。呼び出し側でmuを保持すること。
func (s *Scheduler) armLocked(d time.Duration) {
	s.stopLocked()
	if d < 0 {
		d = 0
	}
	gen := s.gen
	s.timer = s.timers.AfterFunc(d, func() { s.fire(gen, TriggerTimer) })
	s.state = StateScheduled
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *Scheduler) persistScheduleLocked() error {
	return mirror.PutJSON(s.store, mirror.ScheduleKey, model.ScheduleState{
		NextFireAtEpochMs: s.next.UnixMilli(),
		Settings:          s.settings,
	})
}

func (s *Scheduler) statusLocked(permission Permission) Status {
	st := Status{
		State:      s.state,
		Permission: permission,
		Settings:   s.settings,
	}
	if s.state != StateDisabled && !s.next.IsZero() {
		next := s.next
		st.NextFireAt = &next
	}
	return st
}

// rollForward はprevから1日ずつ進め、nowより後になる最初の時刻を返す。
func rollForward(prev, now time.Time) time.Time {
	next := prev.AddDate(0, 0, 1)
	for !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
