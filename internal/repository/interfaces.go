// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/newsdeck/internal/model"
)

// SourceRepository はソースデータの永続化インターフェース。
type SourceRepository interface {
	// FindByID は指定IDのソースを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Source, error)

	// ListActive はスイープ対象のアクティブソース一覧を返す。
	// 条件: is_activeがtrue、かつ（デフォルトソースでない、または
	// 有効な購読が1件以上存在する）。
	ListActive(ctx context.Context) ([]*model.Source, error)
}

// SubscriptionRepository は購読データの永続化インターフェース。
type SubscriptionRepository interface {
	// HasEnabledSubscribers は指定ソースに有効な購読が1件以上存在するかを返す。
	HasEnabledSubscribers(ctx context.Context, sourceID string) (bool, error)

	// HasAutoTranslateSubscriber は指定ソースに、購読レベルと
	// アカウントレベルの両方で自動翻訳を有効にした購読者が存在するかを返す。
	// タイトル翻訳判定の第1条件として使用される。
	HasAutoTranslateSubscriber(ctx context.Context, sourceID string) (bool, error)
}

// ArticleRepository は記事データの永続化インターフェース。
type ArticleRepository interface {
	// Create は新規記事を作成する。
	// origin_urlの一意制約違反の場合はmodel.ErrDuplicateArticleを返す。
	Create(ctx context.Context, article *model.Article) error

	// ExistsByOriginURL は指定origin_urlの記事が存在するかを返す。
	// 抽出・翻訳の重い処理をスキップするための事前チェックに使用する。
	// 並行書き込みと競合しうるベストエフォートの読み取りであり、
	// 重複排除の正当性はCreate側の一意制約が保証する。
	ExistsByOriginURL(ctx context.Context, originURL string) (bool, error)
}

// TranslationCacheRepository はタイトル翻訳キャッシュの永続化インターフェース。
type TranslationCacheRepository interface {
	// Find は原文タイトルの完全一致でキャッシュエントリを取得する。
	// 見つからない場合はnilを返す。
	Find(ctx context.Context, originalTitle string) (*model.TranslationEntry, error)

	// Upsert はキャッシュエントリを書き込む。
	// 同一キーへの並行書き込みは同値の上書きとして成功扱いになる
	// （ON CONFLICT DO UPDATE）。
	Upsert(ctx context.Context, entry *model.TranslationEntry) error
}

// SettingsRepository はシステム設定の読み取りインターフェース。
type SettingsRepository interface {
	// AutoTranslateTitles はシステム全体の自動翻訳トグルを返す。
	// キーが存在しない場合はfalseを返す。
	AutoTranslateTitles(ctx context.Context) (bool, error)
}
