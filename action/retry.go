package action

import (
	"context"
	"time"

	"upsentryd/pipeline"
)

// executeWithRetry runs act once, and if it fails and act.Retry is set,
// retries up to Retry.MaxAttempts further times with the configured
// backoff between attempts. Attempt 1 is the initial try; a max_attempts
// of N therefore allows up to N+1 total attempts, matching the
// "retries" framing of the configuration rather than "total attempts". It
// returns the last error observed, or nil once an attempt succeeds.
func (e *Executor) executeWithRetry(ctx context.Context, p pipeline.EventPipeline, index int, act pipeline.Action) error {
	var attempt uint32 = 1
	for {
		err := e.executeAction(ctx, p, act)
		e.History.RecordActionResult(ctx, p.ID, index, attempt, err)

		if err == nil {
			return nil
		}
		e.Log.Warn().Err(err).Str("pipeline", p.Name).Int("action", index).Uint32("attempt", attempt).Msg("action execution failed")

		if act.Retry == nil {
			return err
		}
		if attempt > act.Retry.MaxAttempts {
			return err
		}

		delay := act.Retry.Delay.DelayFor(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}
