// Package retention は記事データの自動削除ジョブを提供する。
// ソースごとの保持上限を超えた古い記事と、有効な購読者を失った
// ソースの期限切れ記事を日次バッチで削除する。
package retention

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

const (
	// keepPerSource は有効な購読者を持つソースごとに保持する記事数の上限。
	keepPerSource = 100
	// orphanRetentionDays は有効な購読者のいないソースの記事の保持日数。
	orphanRetentionDays = 30
)

// Executor はSQLの実行を抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// RetentionRecorder は保持ジョブ関連メトリクスの記録インターフェース。
type RetentionRecorder interface {
	// RecordArticlesDeleted は保持ジョブで削除された記事数を記録する。
	RecordArticlesDeleted(count int)
}

// Job は記事の保持ポリシーを適用する日次バッチジョブ。
// 2つのルールを順に適用する:
//  1. 有効な購読者を持つ各ソースについて、公開日時の新しい順に
//     上限件数を超えた記事を削除する
//  2. 有効な購読者が1人もいないソースについて、保持日数を超過した
//     記事を削除する
//
// 冪等: 削除対象がない場合でもエラーにならない。
// 記事の新旧は作成日時ではなく公開日時で判定する。
type Job struct {
	db      Executor
	logger  *slog.Logger
	metrics RetentionRecorder

	// KeepPerSource はソースごとの保持記事数の上限。
	KeepPerSource int
	// OrphanRetentionDays は購読者のいないソースの記事の保持日数。
	OrphanRetentionDays int
}

// NewJob は新しいJobを生成する。
func NewJob(db Executor, logger *slog.Logger, metrics RetentionRecorder) *Job {
	return &Job{
		db:                  db,
		logger:              logger,
		metrics:             metrics,
		KeepPerSource:       keepPerSource,
		OrphanRetentionDays: orphanRetentionDays,
	}
}

// Run は保持ポリシーを適用し、削除した記事の合計件数を返す。
// ルール単位の失敗はエラーとして返すが、ルール1の完了後に
// ルール2が失敗した場合でもルール1の削除は取り消さない。
func (j *Job) Run(ctx context.Context) (int64, error) {
	start := time.Now()

	capped, err := j.deleteOverCap(ctx)
	if err != nil {
		j.logger.Error("ソースごとの保持上限の適用に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("保持上限の適用に失敗: %w", err)
	}

	expired, err := j.deleteOrphanExpired(ctx)
	if err != nil {
		j.logger.Error("購読者なしソースの期限切れ記事の削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return capped, fmt.Errorf("期限切れ記事の削除に失敗: %w", err)
	}

	total := capped + expired
	j.metrics.RecordArticlesDeleted(int(total))

	duration := time.Since(start)
	j.logger.Info("記事保持ジョブが完了しました",
		slog.Int64("deleted_over_cap", capped),
		slog.Int64("deleted_expired", expired),
		slog.Int64("deleted_total", total),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return total, nil
}

// deleteOverCap は有効な購読者を持つ各ソースについて、
// 公開日時の新しい順に上限件数を超えた記事を削除する。
// ソースごとに独立したDELETEを発行し、1ソースの失敗で
// ジョブ全体を中断する（部分適用された削除は保持される）。
func (j *Job) deleteOverCap(ctx context.Context) (int64, error) {
	sourceIDs, err := j.listSubscribedSourceIDs(ctx)
	if err != nil {
		return 0, err
	}
	return j.deleteOverCapForSources(ctx, sourceIDs)
}

// deleteOverCapForSources は指定ソース群に保持上限を適用する。
func (j *Job) deleteOverCapForSources(ctx context.Context, sourceIDs []string) (int64, error) {
	const query = `
		DELETE FROM articles
		WHERE source_id = $1
		  AND id NOT IN (
			SELECT id FROM articles
			WHERE source_id = $1
			ORDER BY published_at DESC
			LIMIT $2
		  )`

	var deleted int64
	for _, sourceID := range sourceIDs {
		result, err := j.db.ExecContext(ctx, query, sourceID, j.KeepPerSource)
		if err != nil {
			return deleted, fmt.Errorf("ソース %s の保持上限の適用に失敗: %w", sourceID, err)
		}
		count, err := result.RowsAffected()
		if err != nil {
			return deleted, err
		}
		deleted += count
	}

	return deleted, nil
}

// listSubscribedSourceIDs は有効な購読が1件以上存在するソースのID一覧を返す。
func (j *Job) listSubscribedSourceIDs(ctx context.Context) ([]string, error) {
	const query = `
		SELECT DISTINCT source_id FROM subscriptions WHERE enabled`

	rows, err := j.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// deleteOrphanExpired は有効な購読者が1人もいないソースについて、
// 保持日数を公開日時基準で超過した記事を削除する。
func (j *Job) deleteOrphanExpired(ctx context.Context) (int64, error) {
	const query = `
		DELETE FROM articles
		WHERE source_id NOT IN (
			SELECT DISTINCT source_id FROM subscriptions WHERE enabled
		  )
		  AND published_at < now() - $1::interval`

	interval := fmt.Sprintf("%d days", j.OrphanRetentionDays)

	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
