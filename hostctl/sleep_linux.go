//go:build linux

package hostctl

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

func (Host) Sleep(ctx context.Context) error {
	return exec.CommandContext(ctx, "systemctl", "suspend").Run()
}

// Shutdown schedules a shutdown timeout from now. The linux shutdown
// command only takes whole-minute delays, so timeout is rounded up.
// forceCloseApps has no equivalent here: shutdown always proceeds
// regardless of blocking processes.
func (Host) Shutdown(ctx context.Context, message string, timeout time.Duration, forceCloseApps bool) error {
	minutes := int((timeout + time.Minute - 1) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}
	return exec.CommandContext(ctx, "shutdown", "-h", fmt.Sprintf("+%d", minutes), message).Run()
}
