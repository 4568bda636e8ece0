package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/newsdeck/internal/metrics"
	"github.com/hitoshi/newsdeck/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	PipelineService PipelineService
	RateLimiter     *middleware.RateLimiter
	AdminToken      string
	Gatherer        prometheus.Gatherer
	Logger          *slog.Logger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → RateLimit → TokenAuth（/api/pipeline/*のみ）
//
// /healthzと/metricsは認証・レート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	pipelineHandler := NewPipelineHandler(deps.PipelineService)

	// --- 認証不要のルート ---

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	// --- 管理者トークンが必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.Middleware())
		r.Use(middleware.NewTokenAuthMiddleware(deps.AdminToken))

		r.Route("/api/pipeline", func(r chi.Router) {
			r.Post("/refresh", pipelineHandler.RefreshAll)
			r.Post("/refresh/{id}", pipelineHandler.RefreshSource)
		})
	})

	return r
}
