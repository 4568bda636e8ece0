package translate

import (
	"context"
	"log/slog"

	"github.com/hitoshi/newsdeck/internal/model"
	"github.com/hitoshi/newsdeck/internal/repository"
)

// FallbackRecorder は翻訳フォールバックメトリクスの記録インターフェース。
type FallbackRecorder interface {
	// RecordTranslateFallback は翻訳失敗により原文タイトルに
	// フォールバックしたことを記録する。
	RecordTranslateFallback()
}

// Service はタイトル翻訳の判定とキャッシュ付き翻訳を提供する。
//
// 判定はハイブリッドポリシー: 購読者単位のオプトインが
// システム全体のデフォルトより優先される。これにより全体トグルが
// オフでも個別ユーザーは翻訳を有効化でき、ユーザー単位の信号が
// 存在しない場合は全体トグル1つで全員分を切り替えられる。
type Service struct {
	subRepo    repository.SubscriptionRepository
	cacheRepo  repository.TranslationCacheRepository
	translator Translator
	logger     *slog.Logger
	metrics    FallbackRecorder
	targetLang string
}

// NewService はServiceの新しいインスタンスを生成する。
// translatorがnilの場合、翻訳は常に原文タイトルのまま返る
// （APIキー未設定のデプロイで翻訳を無効化するための措置）。
func NewService(
	subRepo repository.SubscriptionRepository,
	cacheRepo repository.TranslationCacheRepository,
	translator Translator,
	logger *slog.Logger,
	metrics FallbackRecorder,
	targetLang string,
) *Service {
	return &Service{
		subRepo:    subRepo,
		cacheRepo:  cacheRepo,
		translator: translator,
		logger:     logger,
		metrics:    metrics,
		targetLang: targetLang,
	}
}

// ShouldTranslateTitle は指定ソースのタイトルを翻訳すべきかを判定する。
// 判定順序（最初に一致した条件で確定）:
//  1. 購読レベルとアカウントレベルの両方で自動翻訳を有効にした
//     有効な購読者が存在する場合はtrue
//  2. システム全体の自動翻訳トグル（globalAutoTranslate）がオンならtrue
//  3. それ以外はfalse
//
// globalAutoTranslateはスイープ開始時に読み込んだスナップショットを渡すこと。
func (s *Service) ShouldTranslateTitle(ctx context.Context, sourceID string, globalAutoTranslate bool) (bool, error) {
	has, err := s.subRepo.HasAutoTranslateSubscriber(ctx, sourceID)
	if err != nil {
		return false, err
	}
	if has {
		return true, nil
	}

	return globalAutoTranslate, nil
}

// TranslateTitle は原文タイトルの翻訳結果を返す。
// キャッシュヒット時は外部翻訳サービスを呼び出さない。
// 翻訳またはキャッシュ書き込みの失敗は警告ログを出力し、
// 原文タイトルをそのまま返す（呼び出し元を失敗させない）。
// 失敗した翻訳はキャッシュされない。
func (s *Service) TranslateTitle(ctx context.Context, originalTitle string) string {
	if originalTitle == "" {
		return ""
	}
	if s.translator == nil {
		return originalTitle
	}

	// 原文タイトルの完全一致でキャッシュを確認する
	entry, err := s.cacheRepo.Find(ctx, originalTitle)
	if err != nil {
		s.logger.Warn("翻訳キャッシュの参照に失敗しました",
			slog.String("title", originalTitle),
			slog.String("error", err.Error()),
		)
		// キャッシュ障害時も翻訳自体は試みる
	}
	if entry != nil {
		return entry.TranslatedTitle
	}

	translated, err := s.translator.Translate(ctx, originalTitle, s.targetLang)
	if err != nil {
		s.logger.Warn("タイトル翻訳に失敗しました。原文タイトルを使用します",
			slog.String("title", originalTitle),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordTranslateFallback()
		return originalTitle
	}

	if err := s.cacheRepo.Upsert(ctx, &model.TranslationEntry{
		OriginalTitle:   originalTitle,
		TranslatedTitle: translated,
		TargetLang:      s.targetLang,
	}); err != nil {
		// キャッシュ書き込み失敗は翻訳結果の利用を妨げない
		s.logger.Warn("翻訳キャッシュの書き込みに失敗しました",
			slog.String("title", originalTitle),
			slog.String("error", err.Error()),
		)
	}

	return translated
}
