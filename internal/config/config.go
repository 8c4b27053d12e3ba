package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	// 空の場合はネットワークストアを使わず、常にオフラインとして動作する。
	DatabaseURL string

	// Local Mirror
	MirrorDir string

	// Sync
	RemoteWriteTimeout time.Duration
	ReachTimeout       time.Duration
	ThoughtCapPerType  int

	// Session
	SessionID     string // 起動時に採用するセッションID（保存済みがなければ）
	SessionMaxAge time.Duration

	// Notification
	NotifyPermission string
	NotifyTitle      string

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitSync    int

	// Logging
	LogLevel string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load はカレントディレクトリの.envを読み込んでから、環境変数からConfigを読み込む。
// 既に設定されている環境変数は.envの値より優先する。
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	return FromEnv()
}

// loadDotEnv はpathの.envファイルを読み込む。ファイルがない場合は何もしない。
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// FromEnv は環境変数からConfigを読み込む。
// 値が不正な場合はエラーを返す。
func FromEnv() (*Config, error) {
	cfg := &Config{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.SessionID = os.Getenv("SESSION_ID")

	// Optional fields with defaults
	cfg.MirrorDir = getEnvString("MIRROR_DIR", "data/mirror")
	cfg.RemoteWriteTimeout = getEnvDuration("REMOTE_WRITE_TIMEOUT", 10*time.Second)
	cfg.ReachTimeout = getEnvDuration("REACH_TIMEOUT", 3*time.Second)
	cfg.ThoughtCapPerType = getEnvInt("THOUGHT_CAP_PER_TYPE", 3)
	cfg.SessionMaxAge = getEnvDuration("SESSION_MAX_AGE", 30*24*time.Hour)
	cfg.NotifyPermission = strings.ToLower(getEnvString("NOTIFY_PERMISSION", "granted"))
	cfg.NotifyTitle = getEnvString("NOTIFY_TITLE", "")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSync = getEnvInt("RATE_LIMIT_SYNC", 6)
	cfg.LogLevel = strings.ToLower(getEnvString("LOG_LEVEL", "info"))
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Offline はネットワークストアが設定されていないかを返す。
func (c *Config) Offline() bool {
	return c.DatabaseURL == ""
}

func (c *Config) validate() error {
	var invalid []string

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		invalid = append(invalid, "LOG_LEVEL")
	}
	switch c.NotifyPermission {
	case "granted", "denied", "unsupported":
	default:
		invalid = append(invalid, "NOTIFY_PERMISSION")
	}
	if c.ThoughtCapPerType < 0 {
		invalid = append(invalid, "THOUGHT_CAP_PER_TYPE")
	}
	if _, err := strconv.Atoi(c.ServerPort); err != nil {
		invalid = append(invalid, "SERVER_PORT")
	}
	if c.RateLimitGeneral <= 0 {
		invalid = append(invalid, "RATE_LIMIT_GENERAL")
	}
	if c.RateLimitSync <= 0 {
		invalid = append(invalid, "RATE_LIMIT_SYNC")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid environment variables: %v", invalid)
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
