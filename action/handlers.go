package action

import (
	"context"
	"fmt"
	"strings"

	"upsentryd/pipeline"
	"upsentryd/ups"
)

const (
	placeholderEvent            = "{OGUARD_EVENT}"
	placeholderEventName        = "{OGUARD_EVENT_NAME}"
	placeholderEventDescription = "{OGUARD_EVENT_DESCRIPTION}"
)

// executeAction dispatches act to its concrete handler. The pipeline's
// triggering event is available via p.Event for placeholder substitution.
func (e *Executor) executeAction(ctx context.Context, p pipeline.EventPipeline, act pipeline.Action) error {
	switch act.Type {
	case pipeline.ActionNotification:
		return e.executeNotification(ctx, p.Event, act)
	case pipeline.ActionPopup:
		return e.executePopup(ctx, p.Event, act)
	case pipeline.ActionSleep:
		return e.HostControl.Sleep(ctx)
	case pipeline.ActionShutdown:
		return e.HostControl.Shutdown(ctx, e.replacePlaceholders(act.ShutdownMessage, p.Event), act.ShutdownTimeout, act.ShutdownForceCloseApps)
	case pipeline.ActionShutdownUPS:
		return e.executeShutdownUPS(ctx, act)
	case pipeline.ActionExecutable:
		return e.executeExecutable(ctx, act)
	case pipeline.ActionHTTPRequest:
		return e.executeHTTPRequest(ctx, p.Event, act)
	default:
		return fmt.Errorf("action: unknown action type %q", act.Type)
	}
}

// replacePlaceholders substitutes the fixed set of {OGUARD_*} tokens in s
// with text derived from ev, via the Executor's Localizer.
func (e *Executor) replacePlaceholders(s string, ev ups.Event) string {
	r := strings.NewReplacer(
		placeholderEvent, ev.String(),
		placeholderEventName, e.Localizer.EventName(ev),
		placeholderEventDescription, e.Localizer.EventDescription(ev),
	)
	return r.Replace(s)
}

// shutdownUPSRebootDelayMinutes is hardcoded to 1 minute: the UPS is
// instructed to restore power a minute after cutting it.
const shutdownUPSRebootDelayMinutes = 1

func (e *Executor) executeShutdownUPS(ctx context.Context, act pipeline.Action) error {
	return e.UPS.ScheduleShutdown(ctx, act.ShutdownUPSDelayMinutes, shutdownUPSRebootDelayMinutes)
}
