package action

import (
	"context"

	"upsentryd/pipeline"
)

// runRepeatedAction re-runs act (with its own retry policy) after each
// completion, waiting out its repeat policy between runs, until ctx is
// cancelled, the previous execution reports failure (retries exhausted),
// or act.Repeat.Limit repetitions beyond the initial run (which has
// already happened by the time this is called) have executed. A nil
// Limit means repeat indefinitely; a Limit of 0 means the action runs
// only once, with no repeats at all.
func (e *Executor) runRepeatedAction(ctx context.Context, p pipeline.EventPipeline, index int, act pipeline.Action) {
	if act.Repeat.Limit != nil && *act.Repeat.Limit == 0 {
		return
	}

	var repetitions uint32
	for {
		if err := e.awaitActionRepeat(ctx, act.Repeat); err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		if err := e.executeWithRetry(ctx, p, index, act); err != nil {
			return
		}
		repetitions++

		if act.Repeat.Limit != nil && repetitions >= *act.Repeat.Limit {
			return
		}
	}
}
