// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/newsdeck/internal/article"
	"github.com/hitoshi/newsdeck/internal/config"
	"github.com/hitoshi/newsdeck/internal/content"
	"github.com/hitoshi/newsdeck/internal/database"
	"github.com/hitoshi/newsdeck/internal/handler"
	"github.com/hitoshi/newsdeck/internal/logger"
	"github.com/hitoshi/newsdeck/internal/metrics"
	"github.com/hitoshi/newsdeck/internal/middleware"
	"github.com/hitoshi/newsdeck/internal/repository"
	"github.com/hitoshi/newsdeck/internal/security"
	"github.com/hitoshi/newsdeck/internal/translate"
	"github.com/hitoshi/newsdeck/internal/worker"
	"github.com/hitoshi/newsdeck/internal/worker/ingest"
	"github.com/hitoshi/newsdeck/internal/worker/retention"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// pipeline は取り込みパイプラインの依存関係一式。
type pipeline struct {
	sweeper    *ingest.Sweeper
	retention  *retention.Job
	collector  *metrics.Collector
	registry   *prometheus.Registry
	translator *translate.GeminiTranslator
}

// close はパイプラインが保持する外部リソースを解放する。
func (p *pipeline) close() {
	if p.translator != nil {
		p.translator.Close()
	}
}

// buildPipeline は取り込みパイプラインの全依存関係をワイヤリングする。
// GEMINI_API_KEYが未設定の場合は翻訳を無効化して構築する。
func buildPipeline(ctx context.Context, cfg *config.Config, db *sql.DB) (*pipeline, error) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// リポジトリの初期化
	sourceRepo := repository.NewPostgresSourceRepo(db)
	subRepo := repository.NewPostgresSubscriptionRepo(db)
	articleRepo := repository.NewPostgresArticleRepo(db)
	cacheRepo := repository.NewPostgresTranslationCacheRepo(db)
	settingsRepo := repository.NewPostgresSettingsRepo(db)

	// セキュリティ・コンテンツ処理の初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := content.NewSanitizer(slog.Default())
	extractor := content.NewExtractor(ssrfGuard, sanitizer, slog.Default(), cfg.PageFetchTimeout)

	// 翻訳サービスの初期化
	var translator translate.Translator
	var geminiTranslator *translate.GeminiTranslator
	if cfg.GeminiAPIKey != "" {
		var err error
		geminiTranslator, err = translate.NewGeminiTranslator(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to init translator: %w", err)
		}
		translator = geminiTranslator
	} else {
		slog.Info("GEMINI_API_KEY is not set, title translation is disabled")
	}
	translateSvc := translate.NewService(
		subRepo, cacheRepo, translator, slog.Default(), collector, cfg.TranslateTargetLang,
	)

	// パイプライン本体の組み立て
	fetcher := ingest.NewFetcher(
		ssrfGuard, slog.Default(), collector, cfg.FetchTimeout, cfg.FetchMaxSize,
	)
	store := article.NewStore(articleRepo, slog.Default())
	sweeper := ingest.NewSweeper(
		sourceRepo, subRepo, articleRepo, settingsRepo,
		fetcher, extractor, translateSvc, store, collector, slog.Default(),
	)

	retentionJob := retention.NewJob(db, slog.Default(), collector)

	return &pipeline{
		sweeper:    sweeper,
		retention:  retentionJob,
		collector:  collector,
		registry:   registry,
		translator: geminiTranslator,
	}, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、手動トリガーAPIを提供するHTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := buildPipeline(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer p.close()

	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitPerMin))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		PipelineService: p.sweeper,
		RateLimiter:     rateLimiter,
		AdminToken:      cfg.AdminToken,
		Gatherer:        p.registry,
		Logger:          slog.Default(),
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // 同期スイープは長時間かかりうる
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、スイープと保持ジョブのcronスケジューラを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	db, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := buildPipeline(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer p.close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.String("sweep_schedule", cfg.SweepSchedule),
		slog.String("timezone", cfg.ScheduleTZ.String()),
	)

	// スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler := worker.NewScheduler(p.sweeper, p.retention, slog.Default(), cfg.ScheduleTZ)
	if err := scheduler.Start(ctx, cfg.SweepSchedule); err != nil {
		return fmt.Errorf("scheduler failed: %w", err)
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(databaseURL string) (*sql.DB, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
