// Package action implements the action execution engine: delay gating,
// retry backoff, repeat scheduling and the concrete handlers each
// pipeline.ActionType dispatches to.
package action

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"upsentryd/collab"
	"upsentryd/pipeline"
	"upsentryd/ups"
)

// Executor runs ActionPipelines to completion, owning every external
// collaborator an Action handler might need.
type Executor struct {
	UPS         ups.Handle
	Localizer   collab.Localizer
	HostControl collab.HostControl
	Processes   collab.ProcessRunner
	History     collab.HistorySink
	Store       collab.PipelineStore
	Notify      Notifier
	Log         zerolog.Logger
}

// RunPipeline executes p's actions in order against ev's context. Actions
// with a Repeat policy run once inline (so their initial result counts
// toward the pipeline's "last executed" bookkeeping) and are then handed
// off to run concurrently with one another until ctx is cancelled or each
// hits its repeat limit. An action that exhausts its retries aborts the
// pipeline: no further actions run, and no repeat workers are started.
func (e *Executor) RunPipeline(ctx context.Context, p pipeline.EventPipeline) {
	e.Log.Info().Str("pipeline", p.Name).Stringer("event", p.Event).Msg("running pipeline")
	e.History.RecordPipelineRun(ctx, p.ID, p.Event, time.Now())

	type repeatedAction struct {
		index int
		act   pipeline.Action
	}
	var repeated []repeatedAction
	for i, act := range p.Actions {
		if ctx.Err() != nil {
			return
		}
		if err := e.scheduleAction(ctx, p, i, act); err != nil {
			e.Log.Warn().Err(err).Str("pipeline", p.Name).Int("action", i).Msg("action exhausted retries, abandoning pipeline")
			return
		}
		if act.Repeat != nil {
			repeated = append(repeated, repeatedAction{index: i, act: act})
		}
	}

	if e.Store != nil {
		if err := e.Store.MarkExecuted(ctx, p.ID, time.Now()); err != nil {
			e.Log.Warn().Err(err).Str("pipeline", p.Name).Msg("failed to record pipeline execution")
		}
	}

	if len(repeated) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, r := range repeated {
		wg.Add(1)
		go func(idx int, a pipeline.Action) {
			defer wg.Done()
			e.runRepeatedAction(ctx, p, idx, a)
		}(r.index, r.act)
	}
	wg.Wait()
}

// scheduleAction waits out act's delay (if any) and then executes it,
// retrying on failure per act.Retry. It returns the final error once
// retries (if any) are exhausted.
func (e *Executor) scheduleAction(ctx context.Context, p pipeline.EventPipeline, index int, act pipeline.Action) error {
	if err := e.awaitActionDelay(ctx, act.Delay); err != nil {
		e.Log.Warn().Err(err).Str("pipeline", p.Name).Int("action", index).Msg("delay wait aborted")
		return err
	}
	return e.executeWithRetry(ctx, p, index, act)
}
