package action

import (
	"context"

	"github.com/nikoksr/notify"
	"github.com/nikoksr/notify/service/http"

	"upsentryd/pipeline"
	"upsentryd/ups"
)

// Notifier is the subset of *notify.Notify the notification handler
// needs, narrowed so tests can substitute a fake.
type Notifier interface {
	Send(ctx context.Context, subject, message string) error
}

// NewDesktopNotifier builds a Notifier backed by an HTTP webhook service,
// the transport nikoksr/notify exposes that requires no platform-specific
// desktop notification daemon to be present. webhookURL is the endpoint
// operators point at their own notification relay (a local notifier
// bridge, a chat webhook, etc).
func NewDesktopNotifier(webhookURL string) Notifier {
	n := notify.New()
	svc := http.New()
	svc.AddReceivers(&http.Webhook{
		URL:         webhookURL,
		Header:      map[string][]string{"Content-Type": {"application/json"}},
		ContentType: "application/json",
		Method:      "POST",
	})
	n.UseServices(svc)
	return n
}

func (e *Executor) executeNotification(ctx context.Context, ev ups.Event, act pipeline.Action) error {
	title := e.replacePlaceholders(act.Title, ev)
	if title == "" {
		title = e.Localizer.EventName(ev)
	}
	message := e.replacePlaceholders(act.Message, ev)
	return e.Notify.Send(ctx, title, message)
}
