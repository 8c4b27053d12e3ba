package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/pushmyself/internal/auth"
	"github.com/hitoshi/pushmyself/internal/config"
	"github.com/hitoshi/pushmyself/internal/database"
	"github.com/hitoshi/pushmyself/internal/handler"
	"github.com/hitoshi/pushmyself/internal/logger"
	"github.com/hitoshi/pushmyself/internal/metrics"
	"github.com/hitoshi/pushmyself/internal/middleware"
	"github.com/hitoshi/pushmyself/internal/mirror"
	"github.com/hitoshi/pushmyself/internal/notify"
	"github.com/hitoshi/pushmyself/internal/reconcile"
	"github.com/hitoshi/pushmyself/internal/repository"
	"github.com/hitoshi/pushmyself/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、LOG_LEVELに従ってJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. 設定読み込み前にinfoレベルでログを使えるようにする
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたレベルで張り直す
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}
	logger.SetupDefault(w, level)

	return cfg, nil
}

// components はserveとsyncで共有する依存一式。
type components struct {
	db        *sql.DB
	store     *mirror.Mirror
	auth      *auth.Service
	days      *reconcile.Service
	scheduler *notify.Scheduler
	registry  *prometheus.Registry
}

// close はDB接続を閉じる。オフライン構成では何もしない。
func (c *components) close() {
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			slog.Warn("failed to close database", slog.String("error", err.Error()))
		}
	}
}

// buildComponents は設定から全依存関係をワイヤリングする。
// DATABASE_URLが空の場合はネットワークストアを持たず、常にオフラインとして動作する。
func buildComponents(cfg *config.Config) (*components, error) {
	log := slog.Default()
	c := &components{
		store:    mirror.New(cfg.MirrorDir),
		registry: prometheus.NewRegistry(),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(c.registry)

	// 1. ネットワークストア（任意）
	var (
		pinger      auth.Pinger
		userRepo    repository.UserRepository
		sessionRepo repository.SessionRepository
		todoRepo    repository.TodoRepository
		thoughtRepo repository.ThoughtRepository
		reportRepo  repository.DailyReportRepository
	)
	if cfg.Offline() {
		log.Info("DATABASE_URL is not set, running offline")
	} else {
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		c.db = db
		pinger = db
		userRepo = repository.NewPostgresUserRepo(db)
		sessionRepo = repository.NewPostgresSessionRepo(db)
		todoRepo = repository.NewPostgresTodoRepo(db)
		thoughtRepo = repository.NewPostgresThoughtRepo(db)
		reportRepo = repository.NewPostgresDailyReportRepo(db)
		log.Info("network store configured",
			slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		)
	}

	// 2. 接続確認とセッション
	c.auth = auth.NewService(pinger, userRepo, sessionRepo, c.store, auth.ServiceConfig{
		ReachTimeout:  cfg.ReachTimeout,
		SessionMaxAge: cfg.SessionMaxAge,
	}, log)
	if cfg.SessionID != "" {
		if err := c.auth.Adopt(cfg.SessionID); err != nil {
			c.close()
			return nil, fmt.Errorf("failed to adopt session: %w", err)
		}
	}

	// 3. 同期サービス
	c.days = reconcile.NewService(reconcile.Deps{
		Store:    c.store,
		Checker:  c.auth,
		Todos:    todoRepo,
		Thoughts: thoughtRepo,
		Reports:  reportRepo,
		Metrics:  collector,
		Logger:   log,
	}, reconcile.Config{
		WriteTimeout: cfg.RemoteWriteTimeout,
		ThoughtCap:   cfg.ThoughtCapPerType,
	})

	// 4. 通知スケジューラ
	permission, err := notify.ParsePermission(cfg.NotifyPermission)
	if err != nil {
		c.close()
		return nil, fmt.Errorf("failed to parse notification permission: %w", err)
	}
	c.scheduler = notify.NewScheduler(notify.Deps{
		Store:      c.store,
		Notifier:   notify.NewLogNotifier(log),
		Permission: notify.StaticPermission(permission),
		Metrics:    collector,
		Logger:     log,
	}, notify.Config{Title: cfg.NotifyTitle})

	return c, nil
}

// rateLimiterConfig は設定のreq/minをレートリミッターのreq/secに変換する。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rlCfg := middleware.DefaultRateLimiterConfig()
	rlCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60)
	rlCfg.GeneralBurst = cfg.RateLimitGeneral
	rlCfg.SyncRate = rate.Limit(float64(cfg.RateLimitSync) / 60)
	rlCfg.SyncBurst = cfg.RateLimitSync
	return rlCfg
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、通知スケジューラとHTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	c, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	defer c.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 起動時に一度読み込み、ローカルの旧形式を移行しておく
	if _, err := c.days.Load(ctx); err != nil {
		return fmt.Errorf("failed to load local data: %w", err)
	}

	schedDone := make(chan error, 1)
	go func() {
		schedDone <- c.scheduler.Run(ctx)
	}()

	// 期限切れセッションの削除を日次でバックグラウンド実行
	if c.db != nil {
		go cleanup.NewSessionCleanupJob(c.db, slog.Default()).Start(ctx, 24*time.Hour)
	}

	rl := middleware.NewRateLimiter(rateLimiterConfig(cfg))
	defer rl.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:              slog.Default(),
		OwnerResolver:       c.auth,
		CORSAllowedOrigin:   cfg.CORSAllowedOrigin,
		RateLimiter:         rl,
		MetricsHandler:      metrics.Handler(c.registry),
		DayService:          c.days,
		SessionService:      c.auth,
		NotificationService: c.scheduler,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second + cfg.RemoteWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.Bool("offline", cfg.Offline()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			stop()
			<-schedDone
			return fmt.Errorf("server listen error: %w", err)
		}
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// 応答済みリクエストのネットワーク書き込みを待つ
	c.days.Wait()
	stop()
	if err := <-schedDone; err != nil {
		slog.Error("notification scheduler failed", slog.String("error", err.Error()))
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// downが0の場合は未適用のマイグレーションをすべて適用し、正の場合はその数だけ巻き戻す。
// 完了後の適用バージョンをoutに出力する。
func runMigrate(ctx context.Context, cfg *config.Config, down int, out io.Writer) error {
	if cfg.Offline() {
		return errors.New("DATABASE_URL is required for migrate")
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.Int("down", down),
	)

	// 到達できない場合はmigrateの内部エラーより先に分かりやすく失敗させる
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Ping(ctx, db, cfg.ReachTimeout); err != nil {
		return err
	}

	if down > 0 {
		err = database.RollbackMigrations(cfg.DatabaseURL, down)
	} else {
		err = database.RunMigrations(cfg.DatabaseURL)
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	status, err := database.Status(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(status.Version)),
		slog.Bool("dirty", status.Dirty),
	)
	_, err = fmt.Fprintf(out, "schema version %d (dirty=%t)\n", status.Version, status.Dirty)
	return err
}

// runSync はローカルの全日付をネットワークストアへ書き込み、日付ごとの結果をoutに出力する。
func runSync(ctx context.Context, cfg *config.Config, out io.Writer) error {
	c, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	defer c.close()

	reports, err := c.days.PushLocal(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	c.days.Wait()

	return printSyncReports(out, reports)
}

// printSyncReports は同期結果を1日1行で出力する。
func printSyncReports(out io.Writer, reports []reconcile.SyncReport) error {
	synced := 0
	for _, r := range reports {
		mark := "ok"
		if !r.Synced() {
			mark = "partial"
		} else {
			synced++
		}
		if _, err := fmt.Fprintf(out, "%s\t%s\ttodos=%t thoughts=%t report=%t\n",
			r.Date, mark, r.TodosSynced, r.ThoughtsSynced, r.ReportSynced); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(out, "%d/%d days synced\n", synced, len(reports))
	return err
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(baseURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// healthcheckBaseURL はSERVER_PORTからヘルスチェック先のURLを組み立てる。
func healthcheckBaseURL() string {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	return "http://localhost:" + port
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if u.User != nil {
		return u.Scheme + "://***@" + u.Host + u.Path
	}
	return u.Scheme + "://" + u.Host + u.Path
}
