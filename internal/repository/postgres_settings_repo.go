package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresSettingsRepo はPostgreSQLを使用したシステム設定リポジトリ。
type PostgresSettingsRepo struct {
	db *sql.DB
}

// NewPostgresSettingsRepo はPostgresSettingsRepoを生成する。
func NewPostgresSettingsRepo(db *sql.DB) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{db: db}
}

// settingAutoTranslateTitles はシステム全体の自動翻訳トグルのキー。
const settingAutoTranslateTitles = "auto_translate_titles"

// AutoTranslateTitles はシステム全体の自動翻訳トグルを返す。
// キーが存在しない場合はfalseを返す。
// スイープ開始時に1回だけ読み込み、スイープ中の判定には
// そのスナップショットを使用すること（実行中の設定変更で
// 同一スイープ内の判定が揺れるのを防ぐ）。
func (r *PostgresSettingsRepo) AutoTranslateTitles(ctx context.Context) (bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM system_settings WHERE key = $1`,
		settingAutoTranslateTitles,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("システム設定の取得に失敗しました: %w", err)
	}

	return value == "true", nil
}

// compile-time interface check
var _ SettingsRepository = (*PostgresSettingsRepo)(nil)
