// Package ingest はフィードからの記事取り込みパイプラインを提供する。
package ingest

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/newsdeck/internal/content"
	"github.com/hitoshi/newsdeck/internal/model"
)

// ItemFetcher はソース1件分のフィード取得インターフェース。
// リトライ上限到達などソース単位の取得失敗はエラーとして返す。
type ItemFetcher interface {
	FetchItems(ctx context.Context, source *model.Source) ([]model.RawItem, error)
}

// ContentExtractor は本文の抽出とサニタイズのインターフェース。
type ContentExtractor interface {
	Extract(ctx context.Context, snippet, originURL string, kind model.ContentKind) string
}

// TranslatePolicy はタイトル翻訳の判定と実行のインターフェース。
type TranslatePolicy interface {
	ShouldTranslateTitle(ctx context.Context, sourceID string, globalAutoTranslate bool) (bool, error)
	TranslateTitle(ctx context.Context, originalTitle string) string
}

// ArticleStore は記事バッチの保存インターフェース。
type ArticleStore interface {
	SaveArticles(ctx context.Context, articles []*model.Article) (created, errCount int)
}

// SourceLister はスイープ対象ソースの取得インターフェース。
type SourceLister interface {
	FindByID(ctx context.Context, id string) (*model.Source, error)
	ListActive(ctx context.Context) ([]*model.Source, error)
}

// SubscriberChecker は購読状態の確認インターフェース。
type SubscriberChecker interface {
	HasEnabledSubscribers(ctx context.Context, sourceID string) (bool, error)
}

// ArticleChecker は取り込み済み記事の事前確認インターフェース。
type ArticleChecker interface {
	ExistsByOriginURL(ctx context.Context, originURL string) (bool, error)
}

// SettingsReader はシステム設定の読み取りインターフェース。
type SettingsReader interface {
	AutoTranslateTitles(ctx context.Context) (bool, error)
}

// SweepRecorder はスイープ関連メトリクスの記録インターフェース。
type SweepRecorder interface {
	// RecordArticlesCreated は新規作成された記事数を記録する。
	RecordArticlesCreated(sourceID string, count int)
	// RecordSweepErrors はスイープ中のエラー数を記録する。
	RecordSweepErrors(sourceID string, count int)
	// RecordSweepDuration はスイープ全体の所要時間を記録する。
	RecordSweepDuration(d time.Duration)
}

// Sweeper は全アクティブソースの巡回取り込みを統括する。
// ソースは逐次処理され、ソース単位の失敗は隔離される: あるソースの
// 取得・永続化の失敗が他のソースの処理を中断することはない。
type Sweeper struct {
	sourceRepo  SourceLister
	subRepo     SubscriberChecker
	articleRepo ArticleChecker
	settings    SettingsReader
	fetcher     ItemFetcher
	extractor   ContentExtractor
	translate   TranslatePolicy
	store       ArticleStore
	metrics     SweepRecorder
	logger      *slog.Logger
}

// NewSweeper はSweeperの新しいインスタンスを生成する。
func NewSweeper(
	sourceRepo SourceLister,
	subRepo SubscriberChecker,
	articleRepo ArticleChecker,
	settings SettingsReader,
	fetcher ItemFetcher,
	extractor ContentExtractor,
	translate TranslatePolicy,
	store ArticleStore,
	metrics SweepRecorder,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		sourceRepo:  sourceRepo,
		subRepo:     subRepo,
		articleRepo: articleRepo,
		settings:    settings,
		fetcher:     fetcher,
		extractor:   extractor,
		translate:   translate,
		store:       store,
		metrics:     metrics,
		logger:      logger,
	}
}

// RunFullSweep は全アクティブソースを逐次処理し、集計結果を返す。
// スイープは再実行安全: 同じフィードを二度処理しても重複記事は
// origin_urlの一意制約により作成されない。
// ソース一覧の取得失敗のみエラーを返し、個々のソースの失敗は
// エラーカウントに集約して処理を継続する。
func (s *Sweeper) RunFullSweep(ctx context.Context) (model.SweepResult, error) {
	start := time.Now()

	sources, err := s.sourceRepo.ListActive(ctx)
	if err != nil {
		return model.SweepResult{}, err
	}

	// システム全体の自動翻訳トグルはスイープ開始時に1回だけ読み込み、
	// スイープ中の設定変更による不整合を避ける
	globalAutoTranslate := s.loadGlobalAutoTranslate(ctx)

	s.logger.Info("スイープを開始します",
		slog.Int("source_count", len(sources)),
		slog.Bool("global_auto_translate", globalAutoTranslate),
	)

	var result model.SweepResult
	for _, source := range sources {
		if ctx.Err() != nil {
			s.logger.Warn("キャンセルによりスイープを中断します",
				slog.String("error", ctx.Err().Error()),
			)
			break
		}
		result.Add(s.sweepSource(ctx, source, globalAutoTranslate))
	}

	elapsed := time.Since(start)
	s.metrics.RecordSweepDuration(elapsed)
	s.logger.Info("スイープが完了しました",
		slog.Int("created", result.Created),
		slog.Int("errors", result.Errors),
		slog.Duration("elapsed", elapsed),
	)

	return result, nil
}

// RunSource は単一ソースのオンデマンド取り込みを実行する。
// ソースが存在しないか非アクティブの場合はSOURCE_NOT_FOUNDを、
// デフォルトソースに有効な購読者が1人もいない場合は
// NO_ACTIVE_SUBSCRIBERSを返す。
func (s *Sweeper) RunSource(ctx context.Context, sourceID string) (*model.Source, model.SweepResult, error) {
	source, err := s.sourceRepo.FindByID(ctx, sourceID)
	if err != nil {
		return nil, model.SweepResult{}, err
	}
	if source == nil || !source.IsActive {
		return nil, model.SweepResult{}, model.NewSourceNotFoundError(sourceID)
	}

	if source.IsDefault {
		has, err := s.subRepo.HasEnabledSubscribers(ctx, sourceID)
		if err != nil {
			return nil, model.SweepResult{}, err
		}
		if !has {
			return nil, model.SweepResult{}, model.NewNoActiveSubscribersError(sourceID)
		}
	}

	globalAutoTranslate := s.loadGlobalAutoTranslate(ctx)
	result := s.sweepSource(ctx, source, globalAutoTranslate)
	return source, result, nil
}

// loadGlobalAutoTranslate はシステム全体の自動翻訳トグルを読み込む。
// 読み取り失敗時はfalseとして継続する。
func (s *Sweeper) loadGlobalAutoTranslate(ctx context.Context) bool {
	value, err := s.settings.AutoTranslateTitles(ctx)
	if err != nil {
		s.logger.Warn("自動翻訳設定の読み込みに失敗したため無効として扱います",
			slog.String("error", err.Error()),
		)
		return false
	}
	return value
}

// sweepSource は単一ソースの取り込みを実行する。
// 記事単位の処理: 取り込み済みチェック → 本文抽出 → 翻訳 → 永続化。
// 翻訳判定はソースごとに1回だけ行う。
// ソース内で発生したpanicはここで回復し、そのソースを
// エラー1件として記録した上で残りのソースの処理を継続させる。
func (s *Sweeper) sweepSource(ctx context.Context, source *model.Source, globalAutoTranslate bool) (result model.SweepResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("ソース処理中のpanicを回復しました",
				slog.String("source_id", source.ID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			s.metrics.RecordSweepErrors(source.ID, 1)
			result = model.SweepResult{Errors: 1}
		}
	}()

	items, err := s.fetcher.FetchItems(ctx, source)
	if err != nil {
		s.logger.Error("ソースの取得に失敗しました",
			slog.String("source_id", source.ID),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordSweepErrors(source.ID, 1)
		return model.SweepResult{Errors: 1}
	}
	if len(items) == 0 {
		return model.SweepResult{}
	}

	shouldTranslate, err := s.translate.ShouldTranslateTitle(ctx, source.ID, globalAutoTranslate)
	if err != nil {
		s.logger.Warn("翻訳判定に失敗したため翻訳をスキップします",
			slog.String("source_id", source.ID),
			slog.String("error", err.Error()),
		)
		shouldTranslate = false
	}

	var preErrors int
	articles := make([]*model.Article, 0, len(items))
	for _, item := range items {
		// 事前チェックはベストエフォート: 取り込み済みの記事について
		// 抽出・翻訳の重い処理をスキップする。重複排除の正当性は
		// 永続化時の一意制約が保証する
		exists, err := s.articleRepo.ExistsByOriginURL(ctx, item.Link)
		if err != nil {
			s.logger.Error("記事の存在確認に失敗しました",
				slog.String("source_id", source.ID),
				slog.String("origin_url", item.Link),
				slog.String("error", err.Error()),
			)
			preErrors++
			continue
		}
		if exists {
			continue
		}

		articles = append(articles, s.buildArticle(ctx, source, item, shouldTranslate))
	}

	created, errCount := s.store.SaveArticles(ctx, articles)
	errCount += preErrors

	if created > 0 || errCount > 0 {
		s.logger.Info("ソースの取り込みが完了しました",
			slog.String("source_id", source.ID),
			slog.String("source_name", source.Name),
			slog.Int("created", created),
			slog.Int("errors", errCount),
		)
	}
	s.metrics.RecordArticlesCreated(source.ID, created)
	s.metrics.RecordSweepErrors(source.ID, errCount)

	return model.SweepResult{Created: created, Errors: errCount}
}

// buildArticle は記事候補を永続化可能な記事に組み立てる。
func (s *Sweeper) buildArticle(ctx context.Context, source *model.Source, item model.RawItem, shouldTranslate bool) *model.Article {
	sanitized := s.extractor.Extract(ctx, item.Content, item.Link, source.ContentKind)

	now := time.Now()
	article := &model.Article{
		ID:          uuid.New().String(),
		SourceID:    source.ID,
		Title:       item.Title,
		Content:     sanitized,
		OriginURL:   item.Link,
		ImageURL:    item.ImageURL,
		PublishedAt: item.PublishedAt,
		Author:      item.Author,
		Summary:     content.Summarize(sanitized),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if shouldTranslate {
		article.TitleCn = s.translate.TranslateTitle(ctx, item.Title)
	}

	return article
}
