package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/newsdeck/internal/model"
)

// uniqueViolation はPostgreSQLの一意制約違反のエラーコード。
const uniqueViolation = "23505"

// PostgresArticleRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresArticleRepo struct {
	db *sql.DB
}

// NewPostgresArticleRepo はPostgresArticleRepoを生成する。
func NewPostgresArticleRepo(db *sql.DB) *PostgresArticleRepo {
	return &PostgresArticleRepo{db: db}
}

// Create は新規記事を作成する。
// origin_urlの一意制約違反の場合はmodel.ErrDuplicateArticleを返す。
// 並行するスイープ同士の競合はこの制約で解決されるため、
// 呼び出し側は重複を想定内の結果として扱える。
func (r *PostgresArticleRepo) Create(ctx context.Context, article *model.Article) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO articles (id, source_id, title, title_cn, content, origin_url,
		                       image_url, published_at, author, summary, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		article.ID, article.SourceID, article.Title, nullString(article.TitleCn),
		article.Content, article.OriginURL, nullString(article.ImageURL),
		article.PublishedAt, nullString(article.Author), article.Summary,
		article.CreatedAt, article.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return model.ErrDuplicateArticle
		}
		return fmt.Errorf("記事の作成に失敗しました: %w", err)
	}
	return nil
}

// ExistsByOriginURL は指定origin_urlの記事が存在するかを返す。
func (r *PostgresArticleRepo) ExistsByOriginURL(ctx context.Context, originURL string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM articles WHERE origin_url = $1)`,
		originURL,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("記事の存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// compile-time interface check
var _ ArticleRepository = (*PostgresArticleRepo)(nil)
