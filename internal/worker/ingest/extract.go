package ingest

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/extensions"
)

// フィードの方言差を吸収するためのカスケード抽出。
// それぞれ順序付きの純粋な抽出関数のリストとして構成し、
// 最初に成功した値を採用する。

// dateExtractor は記事の公開日時の抽出を試みる関数。
type dateExtractor func(*gofeed.Item) *time.Time

// dateExtractors は公開日時の抽出カスケード。優先順に評価する。
var dateExtractors = []dateExtractor{
	publishedDate,
	updatedDate,
	dublinCoreDate,
	rawPublishedDate,
}

// extractPublishedAt は記事の公開日時を抽出する。
// どのフィールドからもパースできない場合は現在時刻で代用し、
// 代用したことを示すフラグを返す。日時の欠落でフィード全体の
// 取得を失敗させることはない。
func extractPublishedAt(item *gofeed.Item) (time.Time, bool) {
	for _, extract := range dateExtractors {
		if t := extract(item); t != nil {
			return *t, false
		}
	}
	return time.Now(), true
}

// publishedDate は標準の公開日時フィールドを返す。
func publishedDate(item *gofeed.Item) *time.Time {
	return item.PublishedParsed
}

// updatedDate は更新日時フィールドを返す（ISO日時のAtomフィード等）。
func updatedDate(item *gofeed.Item) *time.Time {
	return item.UpdatedParsed
}

// dublinCoreDate はDublin Core拡張のdc:dateフィールドのパースを試みる。
func dublinCoreDate(item *gofeed.Item) *time.Time {
	value := extensionValue(item, "dc", "date")
	if value == "" {
		return nil
	}
	return parseDateString(value)
}

// rawPublishedDate はgofeedがパースできなかった生の公開日時文字列に対して
// 代替レイアウトでのパースを試みる。
func rawPublishedDate(item *gofeed.Item) *time.Time {
	if item.Published == "" {
		return nil
	}
	return parseDateString(item.Published)
}

// dateLayouts は代替日時フォーマット。フィードごとの方言に対応する。
var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDateString は既知のレイアウトを順に試して日時文字列をパースする。
func parseDateString(value string) *time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

// imageExtractor は記事のサムネイル画像URLの抽出を試みる関数。
type imageExtractor func(*gofeed.Item) string

// imageExtractors は画像URLの抽出カスケード。優先順に評価する。
var imageExtractors = []imageExtractor{
	enclosureImage,
	mediaThumbnail,
	mediaContent,
	firstInlineImage,
}

// extractImage は記事のサムネイル画像URLを抽出する。見つからない場合は空文字列。
func extractImage(item *gofeed.Item) string {
	for _, extract := range imageExtractors {
		if url := extract(item); url != "" {
			return url
		}
	}
	return ""
}

// enclosureImage は画像MIMEタイプを宣言したenclosureのURLを返す。
func enclosureImage(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	return ""
}

// mediaThumbnail はMedia RSS拡張のmedia:thumbnailのURLを返す。
func mediaThumbnail(item *gofeed.Item) string {
	return extensionAttr(item, "media", "thumbnail", "url")
}

// mediaContent はMedia RSS拡張のmedia:contentのURLを返す。
func mediaContent(item *gofeed.Item) string {
	return extensionAttr(item, "media", "content", "url")
}

// firstInlineImage は記事本文HTML内の最初のimgタグのsrcを返す。
func firstInlineImage(item *gofeed.Item) string {
	raw := item.Content
	if raw == "" {
		raw = item.Description
	}
	if raw == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return ""
	}

	src, _ := doc.Find("img").First().Attr("src")
	return src
}

// extractAuthor は記事の著者名を抽出する。
// 標準の著者フィールドを優先し、次にDublin Core拡張のdc:creatorを試す。
func extractAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	if len(item.Authors) > 0 && item.Authors[0] != nil && item.Authors[0].Name != "" {
		return item.Authors[0].Name
	}
	return extensionValue(item, "dc", "creator")
}

// extensionValue はフィード拡張フィールドの最初の値を返す。
func extensionValue(item *gofeed.Item, namespace, name string) string {
	ext := firstExtension(item, namespace, name)
	if ext == nil {
		return ""
	}
	return strings.TrimSpace(ext.Value)
}

// extensionAttr はフィード拡張フィールドの最初の要素の属性値を返す。
func extensionAttr(item *gofeed.Item, namespace, name, attr string) string {
	ext := firstExtension(item, namespace, name)
	if ext == nil {
		return ""
	}
	return ext.Attrs[attr]
}

// firstExtension は指定した名前空間・名前の最初の拡張要素を返す。
func firstExtension(item *gofeed.Item, namespace, name string) *ext.Extension {
	ns, ok := item.Extensions[namespace]
	if !ok {
		return nil
	}
	values, ok := ns[name]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}
