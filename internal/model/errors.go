// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrDuplicateArticle はorigin_urlの一意制約違反を表すセンチネルエラー。
// 同一記事が並行または過去の取り込みで既に保存されていることを示し、
// パイプラインでは想定内の結果として扱う（エラーカウント対象外）。
var ErrDuplicateArticle = errors.New("記事は既に存在します")

// APIError は統一エラーフォーマットを表す。
// 手動トリガー呼び出し元に返す原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, source, system
	Action   string // 呼び出し元向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeSourceNotFound      = "SOURCE_NOT_FOUND"
	ErrCodeNoActiveSubscribers = "NO_ACTIVE_SUBSCRIBERS"
	ErrCodeInvalidSchedule     = "INVALID_SCHEDULE"
)

// NewSourceNotFoundError はソースが存在しない、または非アクティブな場合のエラーを生成する。
func NewSourceNotFoundError(sourceID string) *APIError {
	return &APIError{
		Code:     ErrCodeSourceNotFound,
		Message:  fmt.Sprintf("指定されたソースが見つからないか、非アクティブです: %s", sourceID),
		Category: "source",
		Action:   "ソースIDとアクティブ状態を確認してください。",
	}
}

// NewNoActiveSubscribersError はデフォルトソースに有効な購読者が存在しない場合のエラーを生成する。
func NewNoActiveSubscribersError(sourceID string) *APIError {
	return &APIError{
		Code:     ErrCodeNoActiveSubscribers,
		Message:  fmt.Sprintf("デフォルトソースに有効な購読者が存在しません: %s", sourceID),
		Category: "source",
		Action:   "少なくとも1人のユーザーがこのソースの購読を有効にする必要があります。",
	}
}

// NewInvalidScheduleError はcronスケジュール式が不正な場合のエラーを生成する。
func NewInvalidScheduleError(spec string, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSchedule,
		Message:  fmt.Sprintf("不正なスケジュール式です: %s (%s)", spec, reason),
		Category: "validation",
		Action:   "cron形式（例: */30 * * * *）でスケジュールを指定してください。",
	}
}
