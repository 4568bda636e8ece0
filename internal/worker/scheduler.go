// Package worker はバックグラウンドジョブのスケジューリングを提供する。
package worker

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hitoshi/newsdeck/internal/model"
)

// retentionSchedule は保持ジョブの実行スケジュール（毎日午前2時）。
const retentionSchedule = "0 2 * * *"

// SweepRunner はスイープ処理の実行インターフェース。
type SweepRunner interface {
	RunFullSweep(ctx context.Context) (model.SweepResult, error)
}

// RetentionRunner は保持ジョブの実行インターフェース。
type RetentionRunner interface {
	Run(ctx context.Context) (int64, error)
}

// Scheduler はcron式に基づいてスイープと保持ジョブを定期実行する。
// スケジュールの評価は設定されたタイムゾーンで行われる。
type Scheduler struct {
	sweeper   SweepRunner
	retention RetentionRunner
	logger    *slog.Logger
	location  *time.Location
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(
	sweeper SweepRunner,
	retention RetentionRunner,
	logger *slog.Logger,
	location *time.Location,
) *Scheduler {
	return &Scheduler{
		sweeper:   sweeper,
		retention: retention,
		logger:    logger,
		location:  location,
	}
}

// Start はスケジューラを起動し、コンテキストがキャンセルされるまでブロックする。
// sweepSpecが不正なcron式の場合はINVALID_SCHEDULEエラーを返す。
// 起動直後にスイープを1回実行し、以降はスケジュールに従う。
func (s *Scheduler) Start(ctx context.Context, sweepSpec string) error {
	c := cron.New(cron.WithLocation(s.location))

	if _, err := c.AddFunc(sweepSpec, func() { s.runSweep(ctx) }); err != nil {
		return model.NewInvalidScheduleError(sweepSpec, err.Error())
	}

	if _, err := c.AddFunc(retentionSchedule, func() { s.runRetention(ctx) }); err != nil {
		return model.NewInvalidScheduleError(retentionSchedule, err.Error())
	}

	s.logger.Info("スケジューラを開始しました",
		slog.String("sweep_schedule", sweepSpec),
		slog.String("retention_schedule", retentionSchedule),
		slog.String("timezone", s.location.String()),
	)

	// 起動直後に1回実行
	s.runSweep(ctx)

	c.Start()
	<-ctx.Done()

	// 実行中のジョブの完了を待ってから停止する
	stopCtx := c.Stop()
	<-stopCtx.Done()

	s.logger.Info("スケジューラを停止しました")
	return nil
}

// runSweep はスイープを1回実行する。失敗はログに記録し、
// スケジューラ自体は停止しない。
// cronジョブは独立したgoroutineで実行されるため、panicをここで
// 回復しないとワーカープロセス全体が落ちる。
func (s *Scheduler) runSweep(ctx context.Context) {
	defer s.recoverJobPanic("sweep")

	if ctx.Err() != nil {
		return
	}

	result, err := s.sweeper.RunFullSweep(ctx)
	if err != nil {
		s.logger.Error("定期スイープの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Info("定期スイープが完了しました",
		slog.Int("created", result.Created),
		slog.Int("errors", result.Errors),
	)
}

// runRetention は保持ジョブを1回実行する。
func (s *Scheduler) runRetention(ctx context.Context) {
	defer s.recoverJobPanic("retention")

	if ctx.Err() != nil {
		return
	}

	if _, err := s.retention.Run(ctx); err != nil {
		s.logger.Error("保持ジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// recoverJobPanic はジョブ実行中のpanicを回復してログに記録する。
func (s *Scheduler) recoverJobPanic(job string) {
	if r := recover(); r != nil {
		s.logger.Error("ジョブ実行中のpanicを回復しました",
			slog.String("job", job),
			slog.Any("panic", r),
			slog.String("stack", string(debug.Stack())),
		)
	}
}

// ValidateSpec はcron式の妥当性を検証する。
// 設定読み込み時の早期検証に使用する。
func ValidateSpec(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return model.NewInvalidScheduleError(spec, err.Error())
	}
	return nil
}
