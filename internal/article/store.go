// Package article は記事の永続化と重複排除を提供する。
package article

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/newsdeck/internal/model"
	"github.com/hitoshi/newsdeck/internal/repository"
)

// Store は記事バッチの保存処理を提供する。
// 重複排除はアプリケーションロジックではなくorigin_urlの
// 一意制約に依存する。並行するスイープ同士が同じ記事を
// 取り込もうとしても、片方のINSERTが制約違反になるだけで
// どちらのスイープも失敗しない。
type Store struct {
	articleRepo repository.ArticleRepository
	logger      *slog.Logger
}

// NewStore はStoreの新しいインスタンスを生成する。
func NewStore(articleRepo repository.ArticleRepository, logger *slog.Logger) *Store {
	return &Store{
		articleRepo: articleRepo,
		logger:      logger,
	}
}

// SaveArticles は記事候補のバッチを保存し、作成数とエラー数を返す。
// origin_urlの一意制約違反は想定内の結果としてスキップする
// （同一記事が並行または過去の取り込みで保存済み。エラーカウント対象外）。
// その他の永続化エラーはログに記録しエラーとしてカウントするが、
// バッチの処理は中断しない。
func (s *Store) SaveArticles(ctx context.Context, articles []*model.Article) (created, errCount int) {
	for _, a := range articles {
		err := s.articleRepo.Create(ctx, a)
		if err == nil {
			created++
			continue
		}

		if errors.Is(err, model.ErrDuplicateArticle) {
			// 重複は静かにスキップする
			continue
		}

		s.logger.Error("記事の保存に失敗しました",
			slog.String("source_id", a.SourceID),
			slog.String("origin_url", a.OriginURL),
			slog.String("error", err.Error()),
		)
		errCount++
	}

	return created, errCount
}
