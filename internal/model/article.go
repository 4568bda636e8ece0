// Package model はドメインモデルを定義する。
package model

import "time"

// Article は取り込み済みの記事を表す。
// origin_urlはシステム全体で一意であり、重複排除のキーとなる。
// フェッチャーが直接生成することはなく、サニタイズと翻訳を経て
// 永続化層で作成される。
type Article struct {
	ID          string
	SourceID    string
	Title       string
	TitleCn     string // 翻訳済みタイトル。未翻訳の場合は空文字列
	Content     string // サニタイズ済みHTML
	OriginURL   string
	ImageURL    string
	PublishedAt time.Time
	Author      string
	Summary     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RawItem はフィードパーサーから取得した未加工の記事候補を表す。
// Contentは未サニタイズのHTML。フィードのdescriptionしか持たない
// 記事ではdescriptionがContentに入る。
type RawItem struct {
	Title       string
	Link        string
	Content     string
	Author      string
	ImageURL    string
	PublishedAt time.Time
	// DateEstimated は公開日時がどのフィールドからもパースできず、
	// 取得時刻で代用したことを示す。
	DateEstimated bool
}

// SweepResult はスイープ1回分の集計結果を表す。
type SweepResult struct {
	Created int // 新規作成された記事数
	Errors  int // エラーとしてカウントされたソース・記事数
}

// Add は別のSweepResultを加算する。ソース単位の結果集約に使用する。
func (r *SweepResult) Add(other SweepResult) {
	r.Created += other.Created
	r.Errors += other.Errors
}

// TranslationEntry はタイトル翻訳キャッシュの1エントリを表す。
// 原文タイトルの完全一致をキーとし、一度書き込まれたら
// このサブシステムからは削除されない。
type TranslationEntry struct {
	OriginalTitle   string
	TranslatedTitle string
	TargetLang      string
	CreatedAt       time.Time
}
