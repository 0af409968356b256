package action

import (
	"context"
	"fmt"

	"upsentryd/pipeline"
)

func (e *Executor) executeExecutable(ctx context.Context, act pipeline.Action) error {
	result, err := e.Processes.Run(ctx, act.Program, act.Args, act.Timeout)
	if err != nil {
		return fmt.Errorf("action: failed to start %q: %w", act.Program, err)
	}

	// A timeout is deliberately not a failure: the process was asked to
	// run for at most Timeout and did so; what it would have returned
	// afterwards is unknown, not wrong.
	if result.TimedOut {
		e.Log.Warn().Str("program", act.Program).Msg("executable action timed out")
		return nil
	}

	if result.ExitCode != 0 {
		return fmt.Errorf("action: %q exited %d: %s", act.Program, result.ExitCode, result.Stderr)
	}
	return nil
}
