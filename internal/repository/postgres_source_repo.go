package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/newsdeck/internal/model"
)

// PostgresSourceRepo はPostgreSQLを使用したソースリポジトリ。
type PostgresSourceRepo struct {
	db *sql.DB
}

// NewPostgresSourceRepo はPostgresSourceRepoを生成する。
func NewPostgresSourceRepo(db *sql.DB) *PostgresSourceRepo {
	return &PostgresSourceRepo{db: db}
}

// FindByID は指定IDのソースを取得する。見つからない場合はnilを返す。
func (r *PostgresSourceRepo) FindByID(ctx context.Context, id string) (*model.Source, error) {
	src := &model.Source{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, url, protocol, content_kind, is_default, is_active, created_at, updated_at
		 FROM sources WHERE id = $1`,
		id,
	).Scan(
		&src.ID, &src.Name, &src.URL, &src.Protocol, &src.ContentKind,
		&src.IsDefault, &src.IsActive, &src.CreatedAt, &src.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ソースの取得に失敗しました: %w", err)
	}

	return src, nil
}

// ListActive はスイープ対象のアクティブソース一覧を返す。
// デフォルトソースは有効な購読が1件以上存在する場合のみ含まれる。
func (r *PostgresSourceRepo) ListActive(ctx context.Context) ([]*model.Source, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.name, s.url, s.protocol, s.content_kind, s.is_default, s.is_active,
		        s.created_at, s.updated_at
		 FROM sources s
		 WHERE s.is_active
		   AND (NOT s.is_default OR EXISTS (
		       SELECT 1 FROM subscriptions sub
		       WHERE sub.source_id = s.id AND sub.enabled))
		 ORDER BY s.created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("アクティブソース一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var sources []*model.Source
	for rows.Next() {
		src := &model.Source{}
		if err := rows.Scan(
			&src.ID, &src.Name, &src.URL, &src.Protocol, &src.ContentKind,
			&src.IsDefault, &src.IsActive, &src.CreatedAt, &src.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ソース行の読み取りに失敗しました: %w", err)
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("アクティブソース一覧の走査に失敗しました: %w", err)
	}

	return sources, nil
}

// compile-time interface check
var _ SourceRepository = (*PostgresSourceRepo)(nil)
