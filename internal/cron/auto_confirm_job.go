package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/shootpay-backend/internal/escrow"
	"github.com/angelmondragon/shootpay-backend/pkg/logger"
)

const autoConfirmInterval = 5 * time.Minute

type escrowSweeper interface {
	Sweep(ctx context.Context, now time.Time) (*escrow.SweepResult, error)
}

// AutoConfirmJobParams configure the auto confirmation sweep.
type AutoConfirmJobParams struct {
	Logger   *logger.Logger
	Sweeper  escrowSweeper
	Interval time.Duration
}

// NewAutoConfirmJob releases escrows whose review window has lapsed.
func NewAutoConfirmJob(params AutoConfirmJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("escrow sweeper required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = autoConfirmInterval
	}
	return &autoConfirmJob{
		logg:     params.Logger,
		sweeper:  params.Sweeper,
		interval: interval,
		now:      time.Now,
	}, nil
}

type autoConfirmJob struct {
	logg     *logger.Logger
	sweeper  escrowSweeper
	interval time.Duration
	now      func() time.Time
}

func (j *autoConfirmJob) Name() string { return "auto-confirm" }

func (j *autoConfirmJob) Interval() time.Duration { return j.interval }

// Run sweeps every due escrow once. Row failures are reported together and
// retried on the next run.
func (j *autoConfirmJob) Run(ctx context.Context) error {
	result, err := j.sweeper.Sweep(ctx, j.now().UTC())
	var errs error
	if result != nil {
		for _, failure := range result.Failures {
			failCtx := j.logg.WithFields(ctx, map[string]any{
				"booking_id":        failure.BookingID.String(),
				"escrow_payment_id": failure.EscrowPaymentID.String(),
				"code":              failure.Code,
			})
			j.logg.Warn(failCtx, "auto confirmation failed for booking")
			errs = multierr.Append(errs, fmt.Errorf("booking %s: %s", failure.BookingID, failure.Message))
		}
	}
	if err != nil {
		return multierr.Append(errs, fmt.Errorf("auto confirm sweep: %w", err))
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"selected":  result.Selected,
		"pages":     result.Pages,
		"completed": result.ProcessedCount,
		"skipped":   result.Skipped,
		"failed":    len(result.Failures),
	})
	j.logg.Info(logCtx, "auto confirmation run complete")
	return errs
}
