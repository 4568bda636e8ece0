// Package model はドメインモデルを定義する。
package model

import "time"

// Protocol はソースの取得プロトコル種別を表す。
type Protocol string

const (
	// ProtocolFeed はRSS/Atomフィードによる取得を示す。
	ProtocolFeed Protocol = "feed"
	// ProtocolAPI は外部APIによる取得を示す。現時点ではプレースホルダーであり、
	// フェッチャーはこのプロトコルのソースから記事を取得しない。
	ProtocolAPI Protocol = "api"
)

// ContentKind はソースのコンテンツ種別を表す。
// サニタイズ時の許可タグ・許可属性の切り替えに使用される。
type ContentKind string

const (
	// ContentKindText はテキスト専用ソース。画像・動画等のメディア要素を一切含めない。
	ContentKindText ContentKind = "text"
	// ContentKindMedia はメディア込みソース。imgタグとsrc/alt属性を保持する。
	ContentKindMedia ContentKind = "media"
)

// Source は外部コンテンツソース（フィード）を表す。
type Source struct {
	ID          string
	Name        string
	URL         string
	Protocol    Protocol
	ContentKind ContentKind
	IsDefault   bool
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Subscription はユーザーとソースの購読関係を表す。
// enabledフラグはアクティブソース判定と保持ポリシーの両方に影響し、
// auto_translateフラグはタイトル翻訳の判定に使用される。
type Subscription struct {
	ID            string
	UserID        string
	SourceID      string
	Enabled       bool
	AutoTranslate bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// User はパイプラインが参照する最小限のユーザー情報。
// 認証・認可は本サブシステムの管轄外であり、
// タイトル翻訳判定に必要なアカウント設定のみを保持する。
type User struct {
	ID            string
	Email         string
	AutoTranslate bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
