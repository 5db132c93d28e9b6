package escrow

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/shootpay-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
	"github.com/angelmondragon/shootpay-backend/pkg/metrics"
)

// Sweep completes every escrow whose auto confirmation is due at now. Due rows are
// paged oldest first with a keyset cursor, so each row is attempted at most once per
// call and rows that keep failing never hide the ones behind them. A failing row
// never aborts the sweep. Claim staleness is judged on the service clock, not now.
func (s *service) Sweep(ctx context.Context, now time.Time) (*SweepResult, error) {
	if now.IsZero() {
		now = s.now()
	}
	now = now.UTC()

	result := &SweepResult{Failures: []SweepFailure{}}
	defer s.reportSweep(ctx, result)

	var cursor *SweepCursor
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		staleBefore := s.now().Add(-s.settings.ClaimTTL)
		rows, err := s.repo.ListEligibleForSweep(ctx, now, staleBefore, cursor, s.settings.SweepBatchSize)
		if err != nil {
			return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list escrows due for auto confirmation")
		}
		if len(rows) == 0 {
			return result, nil
		}
		result.Pages++
		s.sweepPage(ctx, rows, now, result)

		last := rows[len(rows)-1]
		if len(rows) < s.settings.SweepBatchSize || last.AutoConfirmAt == nil {
			return result, nil
		}
		cursor = &SweepCursor{AutoConfirmAt: *last.AutoConfirmAt, ID: last.ID}
	}
}

func (s *service) sweepPage(ctx context.Context, rows []models.EscrowPayment, now time.Time, result *SweepResult) {
	result.Selected += len(rows)
	var mu sync.Mutex
	var group errgroup.Group
	group.SetLimit(s.settings.SweepConcurrency)
	for i := range rows {
		row := &rows[i]
		group.Go(func() error {
			outcome, err := s.complete(ctx, row, completion{path: metrics.CapturePathSweep, at: now})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failures = append(result.Failures, sweepFailure(row, err))
			case outcome.Outcome == OutcomeCompleted:
				result.ProcessedCount++
			default:
				result.Skipped++
			}
			return nil
		})
	}
	_ = group.Wait()
}

func (s *service) reportSweep(ctx context.Context, result *SweepResult) {
	s.metrics.AddSweepRows(result.ProcessedCount, result.Skipped, len(result.Failures))
	if s.logg == nil || result.Selected == 0 {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"selected":  result.Selected,
		"pages":     result.Pages,
		"completed": result.ProcessedCount,
		"skipped":   result.Skipped,
		"failed":    len(result.Failures),
	})
	s.logg.Info(logCtx, "auto confirmation sweep finished")
}

func sweepFailure(row *models.EscrowPayment, err error) SweepFailure {
	failure := SweepFailure{
		EscrowPaymentID: row.ID,
		BookingID:       row.BookingID,
		Code:            string(pkgerrors.CodeInternal),
		Message:         err.Error(),
	}
	if typed := pkgerrors.As(err); typed != nil {
		failure.Code = string(typed.Code())
	}
	return failure
}
