package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/newsdeck/internal/model"
)

// mockSSRFGuard はSSRFGuardServiceのテスト用モック。
// httptestサーバーはループバックアドレスのため、実際のガードは
// テストで使用できない。
type mockSSRFGuard struct {
	validateErr error
}

func (m *mockSSRFGuard) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (m *mockSSRFGuard) ValidateURL(_ string) error {
	return m.validateErr
}

func newTestExtractor(guard *mockSSRFGuard) *Extractor {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	return NewExtractor(guard, NewSanitizer(logger), logger, 5*time.Second)
}

// longParagraphs はminExtractedRunesを超える本文HTMLを生成する。
func longParagraphs() string {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, "<p>これは全文ページから抽出された記事本文の段落です。段落番号は%dです。</p>", i)
	}
	return sb.String()
}

func TestExtractor_Extract_LongSnippetSkipsPageFetch(t *testing.T) {
	var fetched bool
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		fetched = true
	}))
	defer server.Close()

	e := newTestExtractor(&mockSSRFGuard{})

	// minSnippetRunes以上のスニペット
	snippet := "<p>" + strings.Repeat("あ", 300) + "</p>"
	got := e.Extract(context.Background(), snippet, server.URL, model.ContentKindText)

	if fetched {
		t.Error("十分な長さのスニペットがある場合、全文ページを取得してはならない")
	}
	if !strings.Contains(got, strings.Repeat("あ", 300)) {
		t.Error("スニペットの内容がサニタイズ結果に含まれるべき")
	}
}

func TestExtractor_Extract_ShortSnippetFetchesFullPage(t *testing.T) {
	page := fmt.Sprintf(`<html><body><nav>メニュー</nav><article>%s</article></body></html>`, longParagraphs())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	e := newTestExtractor(&mockSSRFGuard{})

	got := e.Extract(context.Background(), "<p>短いスニペット</p>", server.URL, model.ContentKindText)

	if !strings.Contains(got, "段落番号は0です") {
		t.Errorf("全文ページの本文が採用されるべき: %q", got[:min(len(got), 200)])
	}
	if strings.Contains(got, "メニュー") {
		t.Error("本文領域外の要素は含まれないべき")
	}
}

func TestExtractor_Extract_FetchFailureFallsBackToSnippet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	e := newTestExtractor(&mockSSRFGuard{})

	got := e.Extract(context.Background(), "<p>短いスニペット</p>", server.URL, model.ContentKindText)

	if !strings.Contains(got, "短いスニペット") {
		t.Errorf("全文ページ取得失敗時は元のスニペットを使用すべき: %q", got)
	}
}

func TestExtractor_Extract_ShortContentAreaNotAdopted(t *testing.T) {
	// article領域はあるがminExtractedRunes以下
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><article><p>短い本文</p></article></body></html>`)
	}))
	defer server.Close()

	e := newTestExtractor(&mockSSRFGuard{})

	got := e.Extract(context.Background(), "<p>元のスニペット</p>", server.URL, model.ContentKindText)

	if !strings.Contains(got, "元のスニペット") {
		t.Errorf("抽出領域が短すぎる場合は元のスニペットを使用すべき: %q", got)
	}
}

func TestExtractor_Extract_BlockedURLFallsBackToSnippet(t *testing.T) {
	var fetched bool
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		fetched = true
	}))
	defer server.Close()

	e := newTestExtractor(&mockSSRFGuard{validateErr: errors.New("blocked")})

	got := e.Extract(context.Background(), "<p>スニペット</p>", server.URL, model.ContentKindText)

	if fetched {
		t.Error("URL検証失敗時はHTTPリクエストを送信してはならない")
	}
	if !strings.Contains(got, "スニペット") {
		t.Errorf("URL検証失敗時は元のスニペットを使用すべき: %q", got)
	}
}

func TestExtractor_Extract_SelectorCascadeOrder(t *testing.T) {
	// articleが存在しない場合は後続の候補セレクタで抽出する
	page := fmt.Sprintf(`<html><body><main>%s</main></body></html>`, longParagraphs())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	e := newTestExtractor(&mockSSRFGuard{})

	got := e.Extract(context.Background(), "<p>短い</p>", server.URL, model.ContentKindText)

	if !strings.Contains(got, "段落番号は0です") {
		t.Errorf("mainセレクタで本文が抽出されるべき: %q", got[:min(len(got), 200)])
	}
}

func TestExtractor_Extract_EmptyOriginURL(t *testing.T) {
	e := newTestExtractor(&mockSSRFGuard{})

	got := e.Extract(context.Background(), "<p>短い</p>", "", model.ContentKindText)

	if !strings.Contains(got, "短い") {
		t.Errorf("originURLが空の場合はスニペットをそのまま使用すべき: %q", got)
	}
}

// --- Summarize ---

func TestSummarize_StripsTagsAndCollapsesWhitespace(t *testing.T) {
	got := Summarize("<p>最初の\n段落</p>\n\n<p>次の  段落</p>")
	want := "最初の 段落 次の 段落"
	if got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestSummarize_TruncatesAtRuneBoundary(t *testing.T) {
	long := strings.Repeat("あ", 300)
	got := Summarize("<p>" + long + "</p>")

	runes := []rune(got)
	if len(runes) != 200 {
		t.Errorf("summaryの文字数 = %d, want 200", len(runes))
	}
	for _, r := range runes {
		if r != 'あ' {
			t.Fatalf("ルーン境界で切り詰められていない: %q", got)
		}
	}
}

func TestSummarize_Empty(t *testing.T) {
	if got := Summarize(""); got != "" {
		t.Errorf("空入力には空文字列を返すべき: %q", got)
	}
}
