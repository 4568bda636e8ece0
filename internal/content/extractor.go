package content

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/hitoshi/newsdeck/internal/model"
	"github.com/hitoshi/newsdeck/internal/security"
)

const (
	// minSnippetRunes はフィード提供スニペットをそのまま採用する最小文字数。
	// これより短い場合は全文ページの取得を試みる。
	minSnippetRunes = 200
	// minExtractedRunes は抽出したコンテンツ領域を採用する最小文字数。
	minExtractedRunes = 500
	// browserUserAgent は全文ページ取得に使用する汎用ブラウザのUser-Agent。
	// 一部のサイトはボットUAに対して本文を返さないため。
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// contentSelectors は本文領域の候補セレクタ。優先順に評価し、
// 抽出テキストがminExtractedRunesを超えた最初の領域を採用する。
var contentSelectors = []string{
	"article",
	".post-body",
	".entry-body",
	".article-body",
	".content",
	"main",
	"#main-content",
}

// Extractor は記事本文の抽出とサニタイズを行う。
// フィード提供のスニペットが短すぎる場合に限り、
// 記事の元ページを1回だけ取得して本文領域の抽出を試みる。
type Extractor struct {
	ssrfGuard   security.SSRFGuardService
	sanitizer   *Sanitizer
	logger      *slog.Logger
	pageTimeout time.Duration
}

// NewExtractor はExtractorの新しいインスタンスを生成する。
func NewExtractor(
	ssrfGuard security.SSRFGuardService,
	sanitizer *Sanitizer,
	logger *slog.Logger,
	pageTimeout time.Duration,
) *Extractor {
	return &Extractor{
		ssrfGuard:   ssrfGuard,
		sanitizer:   sanitizer,
		logger:      logger,
		pageTimeout: pageTimeout,
	}
}

// Extract はスニペットまたは全文ページからサニタイズ済みHTMLを生成する。
// スニペットがminSnippetRunes未満かつoriginURLが指定されている場合のみ
// 全文ページの取得を試み、失敗時は元のスニペットにフォールバックする。
// 全文ページ取得の失敗はパイプラインエラーとして扱わない。
func (e *Extractor) Extract(ctx context.Context, snippet, originURL string, kind model.ContentKind) string {
	chosen := snippet

	if utf8.RuneCountInString(strings.TrimSpace(snippet)) < minSnippetRunes && originURL != "" {
		if full, ok := e.fetchFullPage(ctx, originURL); ok {
			chosen = full
		}
	}

	return e.sanitizer.Sanitize(chosen, kind)
}

// fetchFullPage は記事の元ページを取得し、本文領域の抽出を試みる。
// 候補セレクタを優先順に評価し、十分な長さのテキストを持つ
// 最初の領域のHTMLを返す。どの領域も条件を満たさない場合はfalseを返す。
func (e *Extractor) fetchFullPage(ctx context.Context, originURL string) (string, bool) {
	if err := e.ssrfGuard.ValidateURL(originURL); err != nil {
		e.logger.Warn("全文ページのURL検証に失敗しました",
			slog.String("origin_url", originURL),
			slog.String("error", err.Error()),
		)
		return "", false
	}

	client := e.ssrfGuard.NewSafeClient(e.pageTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, originURL, nil)
	if err != nil {
		e.logger.Warn("全文ページのリクエスト作成に失敗しました",
			slog.String("origin_url", originURL),
			slog.String("error", err.Error()),
		)
		return "", false
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := client.Do(req)
	if err != nil {
		e.logger.Warn("全文ページの取得に失敗しました",
			slog.String("origin_url", originURL),
			slog.String("error", err.Error()),
		)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.logger.Warn("全文ページが正常ステータスを返しませんでした",
			slog.String("origin_url", originURL),
			slog.Int("http_status", resp.StatusCode),
		)
		return "", false
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		e.logger.Warn("全文ページのパースに失敗しました",
			slog.String("origin_url", originURL),
			slog.String("error", err.Error()),
		)
		return "", false
	}

	for _, selector := range contentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(sel.Text())
		if utf8.RuneCountInString(text) <= minExtractedRunes {
			continue
		}
		html, err := sel.Html()
		if err != nil {
			continue
		}
		return html, true
	}

	return "", false
}

// summaryMaxRunes は記事サマリーの最大文字数。
const summaryMaxRunes = 200

// Summarize はサニタイズ済みHTMLから短いプレーンテキストのサマリーを導出する。
// タグを除去し、空白を畳み込み、ルーン境界でsummaryMaxRunesに切り詰める。
func Summarize(sanitizedHTML string) string {
	if sanitizedHTML == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sanitizedHTML))
	if err != nil {
		return ""
	}

	text := strings.Join(strings.Fields(doc.Text()), " ")
	runes := []rune(text)
	if len(runes) > summaryMaxRunes {
		return string(runes[:summaryMaxRunes])
	}
	return text
}
