package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresSubscriptionRepo はPostgreSQLを使用した購読リポジトリ。
type PostgresSubscriptionRepo struct {
	db *sql.DB
}

// NewPostgresSubscriptionRepo はPostgresSubscriptionRepoを生成する。
func NewPostgresSubscriptionRepo(db *sql.DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

// HasEnabledSubscribers は指定ソースに有効な購読が1件以上存在するかを返す。
func (r *PostgresSubscriptionRepo) HasEnabledSubscribers(ctx context.Context, sourceID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM subscriptions
		     WHERE source_id = $1 AND enabled)`,
		sourceID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("有効な購読者の確認に失敗しました: %w", err)
	}
	return exists, nil
}

// HasAutoTranslateSubscriber は指定ソースに、購読レベルと
// アカウントレベルの両方で自動翻訳を有効にした購読者が存在するかを返す。
func (r *PostgresSubscriptionRepo) HasAutoTranslateSubscriber(ctx context.Context, sourceID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM subscriptions sub
		     JOIN users u ON u.id = sub.user_id
		     WHERE sub.source_id = $1 AND sub.enabled
		       AND sub.auto_translate AND u.auto_translate)`,
		sourceID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("自動翻訳購読者の確認に失敗しました: %w", err)
	}
	return exists, nil
}

// compile-time interface check
var _ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)
