// Package hostctl implements collab.HostControl and collab.ProcessRunner
// against the local operating system. Sleep and Shutdown have no portable
// Go API and no suitable third-party library surfaced in the retrieved
// corpus, so each platform's own command line primitive is shelled out to
// via os/exec, split across build-tagged files the way the reference
// hardware platform selection is.
package hostctl

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"upsentryd/collab"
)

// Host is the reference collab.HostControl implementation.
type Host struct{}

// Process is the reference collab.ProcessRunner implementation.
type Process struct{}

func (Process) Run(ctx context.Context, program string, args []string, timeout time.Duration) (collab.RunResult, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, program, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := collab.RunResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if runCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		return result, nil
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, err
	}
	return result, nil
}
