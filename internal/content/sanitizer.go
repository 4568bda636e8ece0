// Package content は記事本文の抽出とサニタイズ機能を提供する。
//
// サニタイズは2段階で行う。まずgoqueryでDOMを走査し、
// 非コンテンツ要素の除去と許可外タグの汎用コンテナへの置換を行う。
// 次にbluemondayの許可リストポリシーで属性を許可リストに限定する。
// ソースのコンテンツ種別（テキスト専用/メディア込み）に応じて
// 許可タグと許可属性が切り替わる。
package content

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html/atom"

	"github.com/hitoshi/newsdeck/internal/model"
)

// removalSelector はコンテンツと無関係な要素の除去対象セレクタ。
// これらは子要素ごと完全に削除する（テキストも残さない）。
const removalSelector = "script, style, nav, header, footer, " +
	".ad, .ads, .advertisement, .ad-container, " +
	".social-share, .share-buttons, .comments, #comments, .comment-section"

// mediaSelector はテキスト専用ソースで追加除去するメディア要素のセレクタ。
const mediaSelector = "img, picture, figure, video, iframe"

// textAllowedTags はテキスト専用ソースで保持するタグ。
// divは許可外タグの置換先コンテナとして必要になる。
var textAllowedTags = []string{
	"p", "h1", "h2", "h3", "h4", "h5", "h6",
	"strong", "em", "b", "i",
	"ul", "ol", "li",
	"a", "blockquote", "code", "pre", "br", "div",
}

// mediaAllowedTags はメディア込みソースで保持するタグ。
var mediaAllowedTags = append([]string{"img"}, textAllowedTags...)

// Sanitizer はコンテンツ種別に応じたHTMLサニタイズを行う。
// 同一入力に対して常に同一出力を返す（冪等）。
type Sanitizer struct {
	textAllowed  map[string]bool
	mediaAllowed map[string]bool
	textPolicy   *bluemonday.Policy
	mediaPolicy  *bluemonday.Policy
	logger       *slog.Logger
}

// NewSanitizer はSanitizerの新しいインスタンスを生成する。
// 初期化時にコンテンツ種別ごとのbluemondayポリシーを構築する。
// ポリシーの内容:
//   - テキスト専用: テキストフロー系タグのみ。属性はaタグのhref/titleのみ
//   - メディア込み: 上記に加えimgタグとsrc/alt属性を許可
func NewSanitizer(logger *slog.Logger) *Sanitizer {
	textPolicy := bluemonday.NewPolicy()
	textPolicy.AllowElements(textAllowedTags...)
	textPolicy.AllowAttrs("href", "title").OnElements("a")
	textPolicy.AllowURLSchemes("http", "https")
	textPolicy.AllowRelativeURLs(false)

	mediaPolicy := bluemonday.NewPolicy()
	mediaPolicy.AllowElements(mediaAllowedTags...)
	mediaPolicy.AllowAttrs("href", "title").OnElements("a")
	mediaPolicy.AllowAttrs("src", "alt").OnElements("img")
	mediaPolicy.AllowURLSchemes("http", "https")
	mediaPolicy.AllowRelativeURLs(false)

	return &Sanitizer{
		textAllowed:  tagSet(textAllowedTags),
		mediaAllowed: tagSet(mediaAllowedTags),
		textPolicy:   textPolicy,
		mediaPolicy:  mediaPolicy,
		logger:       logger,
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
// 許可外タグは削除せずdivに置換し、子要素を保持する
// （構造的・意味的情報のみを落とし、コンテンツは落とさない）。
// 空文字列の入力には空文字列を返す。
func (s *Sanitizer) Sanitize(rawHTML string, kind model.ContentKind) string {
	if strings.TrimSpace(rawHTML) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		// パース不能な入力はそのまま通さず空を返す
		s.logger.Warn("HTMLのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return ""
	}

	// 非コンテンツ要素を子要素ごと除去する
	doc.Find(removalSelector).Remove()

	// テキスト専用ソースはメディア要素も除去する
	allowed := s.mediaAllowed
	policy := s.mediaPolicy
	if kind == model.ContentKindText {
		doc.Find(mediaSelector).Remove()
		allowed = s.textAllowed
		policy = s.textPolicy
	}

	// 残った全要素を走査し、許可外タグをdivに置換する。
	// ノードのタグ名をその場で書き換えるため、子要素はそのまま保持される。
	doc.Find("body *").Each(func(_ int, sel *goquery.Selection) {
		node := sel.Get(0)
		if !allowed[node.Data] {
			node.Data = "div"
			node.DataAtom = atom.Div
			node.Attr = nil
		}
	})

	inner, err := doc.Find("body").Html()
	if err != nil {
		s.logger.Warn("サニタイズ結果のレンダリングに失敗しました",
			slog.String("error", err.Error()),
		)
		return ""
	}

	// 許可外属性の除去はbluemondayポリシーに委ねる
	return strings.TrimSpace(policy.Sanitize(inner))
}

// tagSet はタグ名スライスを検索用セットに変換する。
func tagSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	return set
}
