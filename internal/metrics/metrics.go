// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector は取り込みパイプラインのPrometheusメトリクスを収集する。
// worker側の各RecorderインターフェースをCollector1つで実装する。
type Collector struct {
	fetchRetries       *prometheus.CounterVec
	fetchFailures      *prometheus.CounterVec
	invalidItems       *prometheus.CounterVec
	articlesCreated    *prometheus.CounterVec
	sweepErrors        *prometheus.CounterVec
	sweepDuration      prometheus.Histogram
	translateFallbacks prometheus.Counter
	articlesDeleted    prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fetchRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdeck_fetch_retries_total",
			Help: "フィード取得リトライの合計数",
		}, []string{"source_id"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdeck_fetch_failures_total",
			Help: "リトライ上限到達によるフィード取得失敗の合計数",
		}, []string{"source_id"}),
		invalidItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdeck_invalid_items_total",
			Help: "必須フィールド欠落により棄却された記事候補の合計数",
		}, []string{"source_id"}),
		articlesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdeck_articles_created_total",
			Help: "新規作成された記事の合計数",
		}, []string{"source_id"}),
		sweepErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdeck_sweep_errors_total",
			Help: "スイープ中に発生したエラーの合計数",
		}, []string{"source_id"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "newsdeck_sweep_duration_seconds",
			Help:    "スイープ全体の所要時間（秒）",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		translateFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsdeck_translate_fallbacks_total",
			Help: "翻訳失敗により原文タイトルにフォールバックした合計数",
		}),
		articlesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsdeck_articles_deleted_total",
			Help: "保持ジョブで削除された記事の合計数",
		}),
	}

	reg.MustRegister(
		c.fetchRetries,
		c.fetchFailures,
		c.invalidItems,
		c.articlesCreated,
		c.sweepErrors,
		c.sweepDuration,
		c.translateFallbacks,
		c.articlesDeleted,
	)

	return c
}

// RecordFetchRetry はフィード取得のリトライを記録する。
func (c *Collector) RecordFetchRetry(sourceID string) {
	c.fetchRetries.WithLabelValues(sourceID).Inc()
}

// RecordFetchFailure はフィード取得の失敗を記録する。
func (c *Collector) RecordFetchFailure(sourceID string) {
	c.fetchFailures.WithLabelValues(sourceID).Inc()
}

// RecordInvalidItem は記事候補の棄却を記録する。
func (c *Collector) RecordInvalidItem(sourceID string) {
	c.invalidItems.WithLabelValues(sourceID).Inc()
}

// RecordArticlesCreated は新規作成された記事数を記録する。
func (c *Collector) RecordArticlesCreated(sourceID string, count int) {
	c.articlesCreated.WithLabelValues(sourceID).Add(float64(count))
}

// RecordSweepErrors はスイープ中のエラー数を記録する。
func (c *Collector) RecordSweepErrors(sourceID string, count int) {
	c.sweepErrors.WithLabelValues(sourceID).Add(float64(count))
}

// RecordSweepDuration はスイープ全体の所要時間を記録する。
func (c *Collector) RecordSweepDuration(d time.Duration) {
	c.sweepDuration.Observe(d.Seconds())
}

// RecordTranslateFallback は翻訳失敗によるフォールバックを記録する。
func (c *Collector) RecordTranslateFallback() {
	c.translateFallbacks.Inc()
}

// RecordArticlesDeleted は保持ジョブで削除された記事数を記録する。
func (c *Collector) RecordArticlesDeleted(count int) {
	c.articlesDeleted.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
