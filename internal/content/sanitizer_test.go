package content

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/hitoshi/newsdeck/internal/model"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func newTestSanitizer() *Sanitizer {
	var buf bytes.Buffer
	return NewSanitizer(newTestLogger(&buf))
}

func TestSanitizer_Sanitize_RemovesScriptEntirely(t *testing.T) {
	s := newTestSanitizer()

	input := `<p>本文</p><script>alert("xss")</script>`
	got := s.Sanitize(input, model.ContentKindText)

	if strings.Contains(got, "script") || strings.Contains(got, "alert") {
		t.Errorf("scriptはテキストごと除去されるべき: %q", got)
	}
	if !strings.Contains(got, "<p>本文</p>") {
		t.Errorf("本文は保持されるべき: %q", got)
	}
}

func TestSanitizer_Sanitize_RemovesNonContentElements(t *testing.T) {
	s := newTestSanitizer()

	input := `<nav>メニュー</nav><p>記事本文</p><div class="ad">広告</div><footer>フッター</footer>`
	got := s.Sanitize(input, model.ContentKindText)

	for _, banned := range []string{"メニュー", "広告", "フッター"} {
		if strings.Contains(got, banned) {
			t.Errorf("非コンテンツ要素 %q はテキストごと除去されるべき: %q", banned, got)
		}
	}
	if !strings.Contains(got, "記事本文") {
		t.Errorf("記事本文は保持されるべき: %q", got)
	}
}

func TestSanitizer_Sanitize_UnknownTagBecomesDivPreservingChildren(t *testing.T) {
	s := newTestSanitizer()

	input := `<article><p>段落</p><span>インライン</span></article>`
	got := s.Sanitize(input, model.ContentKindText)

	if strings.Contains(got, "<article") || strings.Contains(got, "<span") {
		t.Errorf("許可外タグはdivに置換されるべき: %q", got)
	}
	if !strings.Contains(got, "<p>段落</p>") {
		t.Errorf("許可外タグの子要素は保持されるべき: %q", got)
	}
	if !strings.Contains(got, "インライン") {
		t.Errorf("許可外タグのテキストは保持されるべき: %q", got)
	}
	if !strings.Contains(got, "<div>") {
		t.Errorf("置換先のdivが出力に含まれるべき: %q", got)
	}
}

func TestSanitizer_Sanitize_TextKindStripsMedia(t *testing.T) {
	s := newTestSanitizer()

	input := `<p>本文</p><img src="https://example.com/a.png" alt="図"><figure><img src="https://example.com/b.png"><figcaption>説明</figcaption></figure><iframe src="https://example.com/embed"></iframe>`
	got := s.Sanitize(input, model.ContentKindText)

	for _, banned := range []string{"<img", "<figure", "<iframe", "example.com/a.png"} {
		if strings.Contains(got, banned) {
			t.Errorf("テキスト専用ソースではメディア要素 %q を除去すべき: %q", banned, got)
		}
	}
	if !strings.Contains(got, "<p>本文</p>") {
		t.Errorf("本文は保持されるべき: %q", got)
	}
}

func TestSanitizer_Sanitize_MediaKindKeepsImgSrcAlt(t *testing.T) {
	s := newTestSanitizer()

	input := `<p>本文</p><img src="https://example.com/a.png" alt="図" onerror="alert(1)" width="100">`
	got := s.Sanitize(input, model.ContentKindMedia)

	if !strings.Contains(got, "<img") {
		t.Fatalf("メディア込みソースではimgを保持すべき: %q", got)
	}
	if !strings.Contains(got, `src="https://example.com/a.png"`) {
		t.Errorf("src属性は保持されるべき: %q", got)
	}
	if !strings.Contains(got, `alt="図"`) {
		t.Errorf("alt属性は保持されるべき: %q", got)
	}
	// src/alt以外の属性はすべて除去される
	for _, banned := range []string{"onerror", "width"} {
		if strings.Contains(got, banned) {
			t.Errorf("属性 %q は除去されるべき: %q", banned, got)
		}
	}
}

func TestSanitizer_Sanitize_AnchorKeepsHrefTitleOnly(t *testing.T) {
	s := newTestSanitizer()

	input := `<p><a href="https://example.com/page" title="リンク" onclick="evil()" target="_blank">リンク文字</a></p>`
	got := s.Sanitize(input, model.ContentKindText)

	if !strings.Contains(got, `href="https://example.com/page"`) {
		t.Errorf("href属性は保持されるべき: %q", got)
	}
	if !strings.Contains(got, `title="リンク"`) {
		t.Errorf("title属性は保持されるべき: %q", got)
	}
	for _, banned := range []string{"onclick", "target"} {
		if strings.Contains(got, banned) {
			t.Errorf("属性 %q は除去されるべき: %q", banned, got)
		}
	}
}

func TestSanitizer_Sanitize_JavascriptSchemeBlocked(t *testing.T) {
	s := newTestSanitizer()

	input := `<p><a href="javascript:alert(1)">危険なリンク</a></p>`
	got := s.Sanitize(input, model.ContentKindText)

	if strings.Contains(got, "javascript:") {
		t.Errorf("javascriptスキームのURLは除去されるべき: %q", got)
	}
}

func TestSanitizer_Sanitize_Idempotent(t *testing.T) {
	s := newTestSanitizer()

	input := `<article><p>段落</p><span onclick="x()">テキスト</span><script>bad()</script></article>`
	once := s.Sanitize(input, model.ContentKindText)
	twice := s.Sanitize(once, model.ContentKindText)

	if once != twice {
		t.Errorf("サニタイズは冪等であるべき:\n1回目: %q\n2回目: %q", once, twice)
	}
}

func TestSanitizer_Sanitize_EmptyInput(t *testing.T) {
	s := newTestSanitizer()

	if got := s.Sanitize("", model.ContentKindText); got != "" {
		t.Errorf("空入力には空文字列を返すべき: %q", got)
	}
	if got := s.Sanitize("   \n  ", model.ContentKindMedia); got != "" {
		t.Errorf("空白のみの入力には空文字列を返すべき: %q", got)
	}
}
