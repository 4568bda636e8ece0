// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// システム全体の自動翻訳トグルはDB上のsystem_settingsで管理されるため
// ここには含まれない（スイープ開始時にスナップショットとして読み込む）。
type Config struct {
	// Database
	DatabaseURL string

	// Scheduling
	SweepSchedule string         // フルスイープのcron式
	ScheduleTZ    *time.Location // cron評価に使用するタイムゾーン

	// Fetch
	FetchTimeout     time.Duration // フィード取得のネットワークタイムアウト（試行ごと）
	PageFetchTimeout time.Duration // 全文ページ取得のタイムアウト
	FetchMaxSize     int64         // レスポンスボディの最大サイズ

	// Translation
	GeminiAPIKey        string // 空の場合は翻訳呼び出しを行わず原文タイトルのまま保存する
	TranslateTargetLang string

	// Server
	ServerPort string
	AdminToken string

	// Rate Limit
	RateLimitPerMin int
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.AdminToken = os.Getenv("ADMIN_TOKEN")
	if cfg.AdminToken == "" {
		missing = append(missing, "ADMIN_TOKEN")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SweepSchedule = getEnvString("SWEEP_SCHEDULE", "*/30 * * * *")

	tzName := getEnvString("SCHEDULE_TZ", "Asia/Tokyo")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_TZ %q: %w", tzName, err)
	}
	cfg.ScheduleTZ = loc

	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 30*time.Second)
	cfg.PageFetchTimeout = getEnvDuration("PAGE_FETCH_TIMEOUT", 15*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.TranslateTargetLang = getEnvString("TRANSLATE_TARGET_LANG", "zh")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.RateLimitPerMin = getEnvInt("RATE_LIMIT_GENERAL", 60)

	return cfg, nil
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

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
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
