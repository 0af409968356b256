package action

import (
	"context"
	"os/exec"
	"runtime"

	"upsentryd/pipeline"
	"upsentryd/ups"
)

// executePopup shows a native OS dialog. No third-party Go dialog library
// surfaced in the retrieved corpus; each OS ships its own CLI dialog
// primitive, so this shells out to it via os/exec rather than hand-rolling
// platform-specific GUI bindings.
func (e *Executor) executePopup(ctx context.Context, ev ups.Event, act pipeline.Action) error {
	title := e.replacePlaceholders(act.Title, ev)
	message := e.replacePlaceholders(act.Message, ev)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		script := "msg * " + title + ": " + message
		cmd = exec.CommandContext(ctx, "cmd", "/C", script)
	case "darwin":
		script := "display dialog " + quoteAppleScript(message) + " with title " + quoteAppleScript(title)
		cmd = exec.CommandContext(ctx, "osascript", "-e", script)
	default:
		cmd = exec.CommandContext(ctx, "notify-send", title, message)
	}

	// A popup that never closes, or fails to show at all, should not block
	// or fail the rest of the pipeline: run it on its own goroutine, log
	// any failure and move on.
	go func() {
		if err := cmd.Run(); err != nil {
			e.Log.Warn().Err(err).Msg("failed to show popup dialog")
		}
	}()
	return nil
}

func quoteAppleScript(s string) string {
	return "\"" + s + "\""
}
