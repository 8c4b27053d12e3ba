// Package reconcile はLocal Mirrorとネットワークストアの1日分レコードを整合させる。
// 変更は常にLocal Mirrorへ同期的に書き込み、オンライン時のみネットワークストアへベストエフォートで反映する。
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/pushmyself/internal/metrics"
	"github.com/hitoshi/pushmyself/internal/migration"
	"github.com/hitoshi/pushmyself/internal/mirror"
	"github.com/hitoshi/pushmyself/internal/model"
	"github.com/hitoshi/pushmyself/internal/repository"
)

// ConnectivityChecker はネットワークストアの到達性と認証状態を確認する。
type ConnectivityChecker interface {
	Check(ctx context.Context) model.Connectivity
}

// Config は同期サービスの設定。
type Config struct {
	// WriteTimeout は1日分のネットワーク書き込み全体の上限時間。
	WriteTimeout time.Duration
	// ThoughtCap は1日あたり種別ごとのThought件数上限。0以下は無制限。
	ThoughtCap int
}

// Deps は同期サービスの依存。
type Deps struct {
	Store    mirror.Store
	Checker  ConnectivityChecker
	Todos    repository.TodoRepository
	Thoughts repository.ThoughtRepository
	Reports  repository.DailyReportRepository
	Metrics  metrics.MetricsCollector
	Logger   *slog.Logger
	// Now は現在時刻。nilの場合はtime.Now。
	Now func() time.Time
}

// SyncReport は1日分の書き込み結果。ネットワーク側の失敗はエラーではなくここに記録される。
type SyncReport struct {
	Date           string `json:"date"`
	LocalSaved     bool   `json:"local_saved"`
	Online         bool   `json:"online"`
	Pending        bool   `json:"pending,omitempty"`
	TodosSynced    bool   `json:"todos_synced"`
	ThoughtsSynced bool   `json:"thoughts_synced"`
	ReportSynced   bool   `json:"report_synced"`
}

// Synced はネットワーク側への書き込みがすべて成功したかを返す。
func (r SyncReport) Synced() bool {
	return r.Online && r.TodosSynced && r.ThoughtsSynced && r.ReportSynced
}

// Service は1日分レコードの読み込みと更新を仲介する。
type Service struct {
	store    mirror.Store
	checker  ConnectivityChecker
	todos    repository.TodoRepository
	thoughts repository.ThoughtRepository
	reports  repository.DailyReportRepository
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
	now      func() time.Time
	ids      *model.IDSource
	engine   *migration.Engine
	config   Config

	// mu はキャッシュとLocal Mirrorの読み書きを直列化する。ネットワーク入出力中は保持しない。
	mu    sync.Mutex
	cache *model.Document
	// unsynced はネットワーク側へ反映できていない変更を持つ日付。Local Mirrorにも保存する。
	unsynced map[string]bool
	// revs は日付ごとの変更回数。読み込みや反映の途中で変更された日付の判別に使う。
	revs map[string]uint64

	inflight sync.WaitGroup
}

// NewService はServiceを生成する。
func NewService(deps Deps, config Config) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 10 * time.Second
	}
	ids := model.NewIDSource(now)

	return &Service{
		store:    deps.Store,
		checker:  deps.Checker,
		todos:    deps.Todos,
		thoughts: deps.Thoughts,
		reports:  deps.Reports,
		metrics:  collector,
		logger:   logger,
		now:      now,
		ids:      ids,
		engine:   migration.New(ids, now),
		config:   config,
		revs:     make(map[string]uint64),
	}
}

// Status は現在の接続状態を返す。
func (s *Service) Status(ctx context.Context) model.Connectivity {
	conn := s.checker.Check(ctx)
	s.metrics.RecordConnectivity(conn.Online())
	return conn
}

// Wait は実行中のネットワーク書き込みがすべて終わるまで待つ。
func (s *Service) Wait() {
	s.inflight.Wait()
}

// Load は全日付のレコードを返す。
// オンラインならネットワークストアの内容を日付ごとにまとめ、ローカルにしかない日付を重ねる。
// 未反映の変更を持つ日付と、読み込み中に変更された日付はローカルの内容を保つ。
// オフライン、またはTodoの取得に失敗した場合はローカルの内容をそのまま返す。
// ThoughtかDailyReportの取得に失敗した場合は結果を返すだけで、Local Mirrorには保存しない。
func (s *Service) Load(ctx context.Context) (model.Data, error) {
	s.mu.Lock()
	doc, err := s.localLocked()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	local := doc.Days.Clone()
	started := maps.Clone(s.revs)
	s.mu.Unlock()

	conn := s.Status(ctx)
	if !conn.Online() {
		s.logger.Info("オフラインのためローカルデータを使用します",
			slog.Bool("reachable", conn.Reachable),
			slog.Int("days", len(local)),
		)
		s.metrics.RecordLoad("offline")
		return local, nil
	}

	remote, err := s.fetchRemote(ctx, conn.OwnerID)
	if err != nil {
		s.logger.Error("ネットワークストアからの読み込みに失敗したためローカルデータを使用します",
			slog.String("owner_id", conn.OwnerID),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordLoad("fallback")
		return local, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keep := make(map[string]bool, len(s.unsynced))
	for date := range s.unsynced {
		keep[date] = true
	}
	for date, rev := range s.revs {
		if started[date] != rev {
			keep[date] = true
		}
	}

	merged := overlay(remote, s.cache.Days, keep)
	s.observeIDs(merged)

	if !remote.complete() {
		s.logger.Warn("一部のエンティティを取得できなかったため、読み込み結果をローカルへ保存しません",
			slog.String("owner_id", conn.OwnerID),
			slog.Bool("thoughts_failed", remote.thoughtsFailed),
			slog.Bool("reports_failed", remote.reportsFailed),
		)
		s.metrics.RecordLoad("partial")
		return merged, nil
	}

	s.cache.Days = merged
	if err := s.persistLocked(); err != nil {
		s.logger.Error("ローカルデータの保存に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	s.metrics.RecordLoad("online")
	return merged.Clone(), nil
}

// Day は指定日のレコードを返す。未作成の日付は空のレコードになる。
func (s *Service) Day(date string) (model.DayData, error) {
	if err := model.ValidateDate(date); err != nil {
		return model.DayData{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.localLocked()
	if err != nil {
		return model.DayData{}, err
	}
	if day, ok := doc.Days[date]; ok {
		return day.Clone(), nil
	}
	return model.NewDayData(date), nil
}

// Snapshot はキャッシュ中の全日付のコピーを返す。ネットワークには問い合わせない。
func (s *Service) Snapshot() (model.Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.localLocked()
	if err != nil {
		return nil, err
	}
	return doc.Days.Clone(), nil
}

// Unsynced はネットワーク側へ未反映の変更を持つ日付を昇順で返す。
func (s *Service) Unsynced() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.localLocked(); err != nil {
		return nil, err
	}
	dates := make([]string, 0, len(s.unsynced))
	for date := range s.unsynced {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

// UpdateDay はパッチを1日分レコードに適用する。
// ローカルへの書き込み後、オンラインならTodo・Thought・DailyReportを並行して反映する。
// ネットワーク側の失敗はSyncReportに記録され、エラーとしては返さない。
func (s *Service) UpdateDay(ctx context.Context, date string, patch model.DayPatch) (SyncReport, error) {
	if err := validatePatch(patch); err != nil {
		return SyncReport{Date: date}, err
	}

	_, report, err := s.mutateDay(ctx, date, func(day *model.DayData, now time.Time) (*dayWrites, error) {
		if patch.Todos != nil {
			day.Todos = s.normalizeTodos(*patch.Todos, now)
		}
		if patch.Thoughts != nil {
			day.Thoughts = normalizeThoughts(*patch.Thoughts, date)
		}
		if patch.DailyReport != nil {
			day.DailyReport = patch.DailyReport.Apply(day.DailyReport, now)
			day.DailyReport.Date = date
		}
		return nil, nil
	})
	return report, err
}

// mutateDay はキャッシュ上の1日分レコードをfnで変更し、Local Mirrorへ保存してからネットワークへ反映する。
// fnが返した書き込みで反映し、nilの場合や日付に未反映の変更が残っている場合は1日分をまとめて書き込む。
// fnがエラーを返した場合は何も保存しない。
func (s *Service) mutateDay(ctx context.Context, date string, fn func(day *model.DayData, now time.Time) (*dayWrites, error)) (model.DayData, SyncReport, error) {
	report := SyncReport{Date: date}
	if err := model.ValidateDate(date); err != nil {
		return model.DayData{}, report, err
	}

	s.mu.Lock()
	doc, err := s.localLocked()
	if err != nil {
		s.mu.Unlock()
		return model.DayData{}, report, err
	}

	day, ok := doc.Days[date]
	if ok {
		day = day.Clone()
	} else {
		day = model.NewDayData(date)
	}
	writes, err := fn(&day, s.now())
	if err != nil {
		s.mu.Unlock()
		return model.DayData{}, report, err
	}
	sealDay(&day, date)

	doc.Days[date] = day
	carried := s.unsynced[date]
	s.revs[date]++
	rev := s.revs[date]
	s.unsynced[date] = true
	if err := s.persistLocked(); err != nil {
		s.logger.Error("ローカルデータの保存に失敗しました",
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
	} else {
		report.LocalSaved = true
	}
	if err := s.persistUnsyncedLocked(); err != nil {
		s.logger.Error("未反映の日付一覧の保存に失敗しました",
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
	}
	snapshot := day.Clone()
	s.mu.Unlock()

	conn := s.Status(ctx)
	if !conn.Online() {
		s.logger.Debug("オフラインのためネットワークへの反映を省略します",
			slog.String("date", date),
		)
		return snapshot, report, nil
	}
	report.Online = true

	if writes == nil || carried {
		writes = s.fullWrites(date, snapshot)
	}

	done := make(chan SyncReport, 1)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		pushed := s.pushDay(ctx, conn.OwnerID, date, *writes)
		s.settle(date, rev, pushed.Synced())
		done <- pushed
	}()

	select {
	case pushed := <-done:
		report.TodosSynced = pushed.TodosSynced
		report.ThoughtsSynced = pushed.ThoughtsSynced
		report.ReportSynced = pushed.ReportSynced
	case <-ctx.Done():
		report.Pending = true
	}
	return snapshot, report, nil
}

// remoteWrite は1種類のエンティティをネットワークストアへ書き込む。
type remoteWrite func(ctx context.Context, ownerID string) error

// dayWrites は1日分の変更をネットワークストアへ反映する書き込み。nilの項目は変更がないため書き込まない。
type dayWrites struct {
	todos    remoteWrite
	thoughts remoteWrite
	report   remoteWrite
}

// fullWrites は1日分を全置換とUpsertでまとめて書き込む。
// 他デバイスが同じ日付に加えた変更は、後から書いた側で上書きされる。
func (s *Service) fullWrites(date string, day model.DayData) *dayWrites {
	return &dayWrites{
		todos: func(ctx context.Context, ownerID string) error {
			return s.todos.ReplaceAllForDate(ctx, ownerID, date, day.Todos)
		},
		thoughts: func(ctx context.Context, ownerID string) error {
			return s.thoughts.ReplaceAllForDate(ctx, ownerID, date, day.Thoughts)
		},
		report: func(ctx context.Context, ownerID string) error {
			_, err := s.reports.Upsert(ctx, ownerID, date, model.FullPatch(day.DailyReport))
			return err
		},
	}
}

// pushDay は書き込みを並行して実行し、すべての完了を待つ。
// 呼び出し元のキャンセルは伝播させず、WriteTimeoutのみで打ち切る。
func (s *Service) pushDay(ctx context.Context, ownerID, date string, writes dayWrites) SyncReport {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.WriteTimeout)
	defer cancel()

	report := SyncReport{
		Date:           date,
		Online:         true,
		TodosSynced:    true,
		ThoughtsSynced: true,
		ReportSynced:   true,
	}
	targets := []struct {
		entity string
		write  remoteWrite
		synced *bool
	}{
		{"todos", writes.todos, &report.TodosSynced},
		{"thoughts", writes.thoughts, &report.ThoughtsSynced},
		{"daily_report", writes.report, &report.ReportSynced},
	}

	start := time.Now()
	var wg sync.WaitGroup
	for _, target := range targets {
		if target.write == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			*target.synced = s.recordWrite(target.entity, date, target.write(ctx, ownerID))
		}()
	}
	wg.Wait()
	s.metrics.RecordRemoteWriteLatency(time.Since(start))

	return report
}

func (s *Service) recordWrite(entity, date string, err error) bool {
	s.metrics.RecordRemoteWrite(entity, err == nil)
	if err != nil {
		s.logger.Error("ネットワークストアへの書き込みに失敗しました",
			slog.String("entity", entity),
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

// settle は反映に成功した日付の未反映の印を外す。反映中に同じ日付が変更されていれば印を残す。
func (s *Service) settle(date string, rev uint64, synced bool) {
	if !synced {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.revs[date] != rev || !s.unsynced[date] {
		return
	}
	delete(s.unsynced, date)
	if err := s.persistUnsyncedLocked(); err != nil {
		s.logger.Error("未反映の日付一覧の保存に失敗しました",
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
	}
}

// PushLocal はローカルの全日付をネットワークストアへ書き込む。
// サインイン直後にデバイス上のデータをアカウントへ引き継ぐ用途。成功した日付の未反映の印は外れる。
func (s *Service) PushLocal(ctx context.Context) ([]SyncReport, error) {
	conn := s.Status(ctx)
	if !conn.Online() {
		return nil, model.NewOfflineError()
	}

	s.mu.Lock()
	doc, err := s.localLocked()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	data := doc.Days.Clone()
	revs := maps.Clone(s.revs)
	s.mu.Unlock()

	reports := make([]SyncReport, 0, len(data))
	for _, date := range data.Dates() {
		r := s.pushDay(ctx, conn.OwnerID, date, *s.fullWrites(date, data[date]))
		r.LocalSaved = true
		s.settle(date, revs[date], r.Synced())
		reports = append(reports, r)
	}

	s.logger.Info("ローカルデータをネットワークストアへ反映しました",
		slog.String("owner_id", conn.OwnerID),
		slog.Int("days", len(reports)),
	)
	return reports, nil
}

// localLocked はキャッシュを返す。未読み込みならLocal Mirrorから読み込み、旧形式を移行する。
// 読めない文書は退避キーへ保存して空として扱う。呼び出し側でmuを保持すること。
func (s *Service) localLocked() (*model.Document, error) {
	if s.cache != nil {
		return s.cache, nil
	}

	raw, ok, err := s.store.Get(mirror.DataKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read local data: %w", err)
	}

	doc, rep, err := s.engine.Migrate(raw)
	if err != nil {
		key, backupErr := mirror.Backup(s.store, raw, s.now())
		if backupErr != nil {
			return nil, fmt.Errorf("failed to back up unreadable local data: %w", backupErr)
		}
		s.logger.Error("ローカルデータを読み込めないため退避しました",
			slog.String("backup_key", key),
			slog.String("error", err.Error()),
		)
		doc = model.Document{Days: make(model.Data)}
		rep.Changed = true
	}
	s.metrics.RecordMigration(rep.Changed)

	s.cache = &doc
	s.unsynced = s.readUnsynced()
	s.observeIDs(doc.Days)

	if ok && rep.Changed {
		s.logger.Info("ローカルデータを現行形式へ移行しました",
			slog.Int("days", len(doc.Days)),
			slog.Int("residual_keys", len(rep.Residual)),
		)
		if err := s.persistLocked(); err != nil {
			s.logger.Error("移行後のローカルデータの保存に失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}
	return s.cache, nil
}

func (s *Service) persistLocked() error {
	return mirror.PutJSON(s.store, mirror.DataKey, s.cache)
}

// readUnsynced は保存済みの未反映日付を読み込む。読めない場合は空として扱う。
func (s *Service) readUnsynced() map[string]bool {
	var dates []string
	if _, err := mirror.GetJSON(s.store, mirror.UnsyncedKey, &dates); err != nil {
		s.logger.Warn("未反映の日付一覧を読み込めないため空として扱います",
			slog.String("error", err.Error()),
		)
		dates = nil
	}
	unsynced := make(map[string]bool, len(dates))
	for _, date := range dates {
		unsynced[date] = true
	}
	return unsynced
}

func (s *Service) persistUnsyncedLocked() error {
	dates := make([]string, 0, len(s.unsynced))
	for date := range s.unsynced {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return mirror.PutJSON(s.store, mirror.UnsyncedKey, dates)
}

// adoptOrderIndex はネットワーク側で払い出されたorder_indexをローカルのTodoに反映する。
func (s *Service) adoptOrderIndex(date string, id int64, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, ok := s.cache.Days[date]
	if !ok {
		return
	}
	i := todoIndex(day.Todos, id)
	if i < 0 || day.Todos[i].OrderIndex == index {
		return
	}
	day = day.Clone()
	day.Todos[i].OrderIndex = index
	day.Todos = model.SortByOrderIndex(day.Todos)
	s.cache.Days[date] = day
	if err := s.persistLocked(); err != nil {
		s.logger.Error("ローカルデータの保存に失敗しました",
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
	}
}

// observeIDs は既存のIDより大きい値が払い出されるようにする。
func (s *Service) observeIDs(data model.Data) {
	for _, day := range data {
		for _, t := range day.Todos {
			s.ids.Observe(t.ID)
		}
		for _, t := range day.Thoughts {
			if t.ID != nil {
				s.ids.Observe(*t.ID)
			}
		}
	}
}

// remoteView はネットワークストアから取得した内容。取得に失敗したエンティティには印を付ける。
type remoteView struct {
	days           model.Data
	thoughtsFailed bool
	reportsFailed  bool
}

func (v remoteView) complete() bool {
	return !v.thoughtsFailed && !v.reportsFailed
}

// fetchRemote は3種類のエンティティを並行して取得し、日付ごとにまとめる。
// Todoの取得失敗のみをエラーとし、ThoughtとDailyReportの失敗は印を付けて空として扱う。
func (s *Service) fetchRemote(ctx context.Context, ownerID string) (remoteView, error) {
	var (
		wg                                sync.WaitGroup
		todos                             map[string][]model.Todo
		thoughts                          map[string][]model.Thought
		reports                           map[string]model.DailyReport
		todosErr, thoughtsErr, reportsErr error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		todos, todosErr = s.todos.ListByOwner(ctx, ownerID)
	}()
	go func() {
		defer wg.Done()
		thoughts, thoughtsErr = s.thoughts.ListByOwner(ctx, ownerID)
	}()
	go func() {
		defer wg.Done()
		reports, reportsErr = s.reports.ListByOwner(ctx, ownerID)
	}()
	wg.Wait()

	if todosErr != nil {
		return remoteView{}, fmt.Errorf("failed to list todos: %w", todosErr)
	}
	var view remoteView
	if thoughtsErr != nil {
		s.logger.Warn("Thoughtの取得に失敗したためローカルの内容を使用します",
			slog.String("error", thoughtsErr.Error()),
		)
		thoughts = nil
		view.thoughtsFailed = true
	}
	if reportsErr != nil {
		s.logger.Warn("DailyReportの取得に失敗したためローカルの内容を使用します",
			slog.String("error", reportsErr.Error()),
		)
		reports = nil
		view.reportsFailed = true
	}

	view.days = groupByDate(todos, thoughts, reports)
	return view, nil
}
