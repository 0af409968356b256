//go:build windows

package hostctl

import (
	"context"
	"os/exec"
	"strconv"
	"time"
)

func (Host) Sleep(ctx context.Context) error {
	return exec.CommandContext(ctx, "rundll32.exe", "powrprof.dll,SetSuspendState", "0,1,0").Run()
}

// Shutdown maps directly onto the windows shutdown command's own /t
// (timeout in whole seconds) and /f (force close apps) flags.
func (Host) Shutdown(ctx context.Context, message string, timeout time.Duration, forceCloseApps bool) error {
	args := []string{"/s", "/t", strconv.Itoa(int(timeout.Seconds())), "/c", message}
	if forceCloseApps {
		args = append(args, "/f")
	}
	return exec.CommandContext(ctx, "shutdown", args...).Run()
}
