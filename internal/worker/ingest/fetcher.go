package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/newsdeck/internal/model"
	"github.com/hitoshi/newsdeck/internal/security"
)

const (
	// fetchMaxAttempts はフィード取得の最大試行回数。
	fetchMaxAttempts = 3
	// retryBaseDelay はリトライ待機時間の基準。n回目の失敗後は n * retryBaseDelay 待つ
	// （2秒、4秒）。
	retryBaseDelay = 2 * time.Second
	// fetcherUserAgent はフィード取得に使用するUser-Agent。
	fetcherUserAgent = "Newsdeck/1.0 Feed Aggregator"
)

// FetchRecorder はフェッチ関連メトリクスの記録インターフェース。
type FetchRecorder interface {
	// RecordFetchRetry はフィード取得のリトライを記録する。
	RecordFetchRetry(sourceID string)
	// RecordFetchFailure はリトライ上限到達によるフィード取得の失敗を記録する。
	RecordFetchFailure(sourceID string)
	// RecordInvalidItem はタイトルまたはリンク欠落による記事候補の棄却を記録する。
	RecordInvalidItem(sourceID string)
}

// Fetcher は1ソース分のフィード取得と記事候補への正規化を行う。
// 一時的なネットワーク障害に対しては限定回数のリトライで補償し、
// リトライ上限に達した場合は失敗を記録した上でエラーを返す。
type Fetcher struct {
	ssrfGuard   security.SSRFGuardService
	logger      *slog.Logger
	metrics     FetchRecorder
	timeout     time.Duration
	maxBodySize int64

	// sleep はリトライ間の待機処理。テストで差し替える。
	sleep func(time.Duration)
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
func NewFetcher(
	ssrfGuard security.SSRFGuardService,
	logger *slog.Logger,
	metrics FetchRecorder,
	timeout time.Duration,
	maxBodySize int64,
) *Fetcher {
	return &Fetcher{
		ssrfGuard:   ssrfGuard,
		logger:      logger,
		metrics:     metrics,
		timeout:     timeout,
		maxBodySize: maxBodySize,
		sleep:       time.Sleep,
	}
}

// FetchItems はソースのフィードを取得し、記事候補のリストを返す。
// 一時障害はリトライで補償し、リトライ上限まで失敗した場合は
// 失敗を記録した上でエラーを返す。呼び出し元はこのエラーを
// ソース単位の失敗としてカウントする。
// タイトルまたはリンクを欠く記事は不正として個別にスキップされ、
// フィード全体の取得を失敗させることはない。
func (f *Fetcher) FetchItems(ctx context.Context, source *model.Source) ([]model.RawItem, error) {
	if source.Protocol != model.ProtocolFeed {
		// apiプロトコルは現時点でプレースホルダー。失敗ではない
		f.logger.Warn("未対応のプロトコルのためスキップします",
			slog.String("source_id", source.ID),
			slog.String("protocol", string(source.Protocol)),
		)
		return nil, nil
	}

	if err := f.ssrfGuard.ValidateURL(source.URL); err != nil {
		f.logger.Error("ソースURLの検証に失敗しました",
			slog.String("source_id", source.ID),
			slog.String("url", source.URL),
			slog.String("error", err.Error()),
		)
		f.metrics.RecordFetchFailure(source.ID)
		return nil, fmt.Errorf("ソースURLの検証に失敗: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= fetchMaxAttempts; attempt++ {
		feed, err := f.fetchOnce(ctx, source.URL)
		if err == nil {
			return f.convertItems(source, feed), nil
		}

		lastErr = err
		f.logger.Warn("フィード取得に失敗しました",
			slog.String("source_id", source.ID),
			slog.String("url", source.URL),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		if attempt < fetchMaxAttempts {
			f.metrics.RecordFetchRetry(source.ID)
			f.sleep(time.Duration(attempt) * retryBaseDelay)
		}
	}

	f.logger.Error("リトライ上限に達したためフィード取得を断念します",
		slog.String("source_id", source.ID),
		slog.String("url", source.URL),
		slog.Int("attempts", fetchMaxAttempts),
		slog.String("error", lastErr.Error()),
	)
	f.metrics.RecordFetchFailure(source.ID)
	return nil, fmt.Errorf("リトライ上限に到達: %w", lastErr)
}

// fetchOnce はフィードを1回取得してパースする。
// 各試行はリトライループとは独立した自身のネットワークタイムアウトを持つ。
func (f *Fetcher) fetchOnce(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	client := f.ssrfGuard.NewSafeClient(f.timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", fetcherUserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &httpStatusError{status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, err
	}

	parser := gofeed.NewParser()
	return parser.ParseString(string(body))
}

// httpStatusError は非200ステータスによるフェッチ失敗を表す。
type httpStatusError struct {
	status int
}

func (e *httpStatusError) Error() string {
	return http.StatusText(e.status)
}

// convertItems はgofeedの記事をRawItemに正規化する。
// 不正な記事（タイトルまたはリンクの欠落）はスキップしてカウントする。
func (f *Fetcher) convertItems(source *model.Source, feed *gofeed.Feed) []model.RawItem {
	items := make([]model.RawItem, 0, len(feed.Items))

	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			f.logger.Warn("タイトルまたはリンクを欠く記事をスキップします",
				slog.String("source_id", source.ID),
				slog.String("title", title),
				slog.String("link", link),
			)
			f.metrics.RecordInvalidItem(source.ID)
			continue
		}

		raw := model.RawItem{
			Title:    title,
			Link:     link,
			Content:  item.Content,
			Author:   extractAuthor(item),
			ImageURL: extractImage(item),
		}

		// Contentが空の場合はDescriptionを本文として使用する
		if raw.Content == "" {
			raw.Content = item.Description
		}

		published, estimated := extractPublishedAt(item)
		if estimated {
			f.logger.Warn("公開日時をパースできないため取得時刻で代用します",
				slog.String("source_id", source.ID),
				slog.String("link", link),
			)
		}
		raw.PublishedAt = published
		raw.DateEstimated = estimated

		items = append(items, raw)
	}

	return items
}
