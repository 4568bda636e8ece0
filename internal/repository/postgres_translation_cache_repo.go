package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/newsdeck/internal/model"
)

// PostgresTranslationCacheRepo はPostgreSQLを使用したタイトル翻訳キャッシュリポジトリ。
type PostgresTranslationCacheRepo struct {
	db *sql.DB
}

// NewPostgresTranslationCacheRepo はPostgresTranslationCacheRepoを生成する。
func NewPostgresTranslationCacheRepo(db *sql.DB) *PostgresTranslationCacheRepo {
	return &PostgresTranslationCacheRepo{db: db}
}

// Find は原文タイトルの完全一致でキャッシュエントリを取得する。見つからない場合はnilを返す。
func (r *PostgresTranslationCacheRepo) Find(ctx context.Context, originalTitle string) (*model.TranslationEntry, error) {
	entry := &model.TranslationEntry{}
	err := r.db.QueryRowContext(ctx,
		`SELECT original_title, translated_title, target_lang, created_at
		 FROM translation_cache WHERE original_title = $1`,
		originalTitle,
	).Scan(&entry.OriginalTitle, &entry.TranslatedTitle, &entry.TargetLang, &entry.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("翻訳キャッシュの取得に失敗しました: %w", err)
	}

	return entry, nil
}

// Upsert はキャッシュエントリを書き込む。
// 同一入力に対する翻訳結果は決定的なため、並行書き込みの敗者は
// 同値の上書きとして成功扱いになる。
func (r *PostgresTranslationCacheRepo) Upsert(ctx context.Context, entry *model.TranslationEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO translation_cache (original_title, translated_title, target_lang, created_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (original_title) DO UPDATE
		 SET translated_title = EXCLUDED.translated_title,
		     target_lang = EXCLUDED.target_lang`,
		entry.OriginalTitle, entry.TranslatedTitle, entry.TargetLang,
	)
	if err != nil {
		return fmt.Errorf("翻訳キャッシュの書き込みに失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ TranslationCacheRepository = (*PostgresTranslationCacheRepo)(nil)
