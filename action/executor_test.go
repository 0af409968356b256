package action

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"upsentryd/collab"
	"upsentryd/pipeline"
	"upsentryd/ups"
)

func newTestExecutor(history *fakeHistorySink) (*Executor, *fakeHostControl, *fakeProcessRunner, *fakeNotifier) {
	host := &fakeHostControl{}
	proc := &fakeProcessRunner{}
	notif := &fakeNotifier{}
	if history == nil {
		history = &fakeHistorySink{}
	}
	return &Executor{
		Localizer:   fakeLocalizer{},
		HostControl: host,
		Processes:   proc,
		History:     history,
		Notify:      notif,
		Log:         zerolog.Nop(),
	}, host, proc, notif
}

func TestExecuteNotificationSubstitutesPlaceholders(t *testing.T) {
	e, _, _, notif := newTestExecutor(nil)

	p := pipeline.EventPipeline{ID: uuid.New(), Name: "test", Event: ups.EventACFailure}
	act := pipeline.Action{
		Type:    pipeline.ActionNotification,
		Title:   "{OGUARD_EVENT_NAME}",
		Message: "Power event: {OGUARD_EVENT_DESCRIPTION}",
	}

	if err := e.executeAction(context.Background(), p, act); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(notif.messages) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notif.messages))
	}
	if notif.subjects[0] != "ac_failure" {
		t.Errorf("subject = %q, want ac_failure", notif.subjects[0])
	}
	want := "Power event: description of ac_failure"
	if notif.messages[0] != want {
		t.Errorf("message = %q, want %q", notif.messages[0], want)
	}
}

func TestExecuteExecutableTimeoutIsNotFailure(t *testing.T) {
	e, _, proc, _ := newTestExecutor(nil)
	proc.result = collab.RunResult{TimedOut: true}

	act := pipeline.Action{Type: pipeline.ActionExecutable, Program: "sleep", Timeout: time.Second}
	if err := e.executeAction(context.Background(), pipeline.EventPipeline{}, act); err != nil {
		t.Fatalf("expected timeout to not be a failure, got %v", err)
	}
}

func TestExecuteExecutableNonZeroExitIsFailure(t *testing.T) {
	e, _, proc, _ := newTestExecutor(nil)
	proc.result = collab.RunResult{ExitCode: 1, Stderr: "boom"}

	act := pipeline.Action{Type: pipeline.ActionExecutable, Program: "false"}
	err := e.executeAction(context.Background(), pipeline.EventPipeline{}, act)
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
}

func TestExecuteWithRetryStopsAfterMaxAttemptsPlusOne(t *testing.T) {
	history := &fakeHistorySink{}
	e, _, proc, _ := newTestExecutor(history)
	proc.err = nil
	proc.result = collab.RunResult{ExitCode: 1}

	act := pipeline.Action{
		Type:    pipeline.ActionExecutable,
		Program: "false",
		Retry:   &pipeline.ActionRetry{MaxAttempts: 2, Delay: pipeline.FixedRetryDelay{Duration: time.Millisecond}},
	}
	p := pipeline.EventPipeline{ID: uuid.New(), Name: "p"}

	e.executeWithRetry(context.Background(), p, 0, act)

	if len(history.results) != 3 {
		t.Fatalf("expected 3 total attempts (initial + 2 retries), got %d", len(history.results))
	}
}

func TestAwaitActionDelayFixedDuration(t *testing.T) {
	e, _, _, _ := newTestExecutor(nil)
	d := 10 * time.Millisecond
	start := time.Now()
	if err := e.awaitActionDelay(context.Background(), &pipeline.ActionDelay{Duration: &d}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < d {
		t.Errorf("returned before delay elapsed: %v", elapsed)
	}
}

func TestAwaitActionDelayNilReturnsImmediately(t *testing.T) {
	e, _, _, _ := newTestExecutor(nil)
	if err := e.awaitActionDelay(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestShutdownActionSubstitutesPlaceholder(t *testing.T) {
	e, host, _, _ := newTestExecutor(nil)
	p := pipeline.EventPipeline{Event: ups.EventUPSFault}
	act := pipeline.Action{Type: pipeline.ActionShutdown, ShutdownMessage: "Shutdown triggered by {OGUARD_EVENT_NAME} pipeline"}

	if err := e.executeAction(context.Background(), p, act); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(host.shutdownMsgs) != 1 || host.shutdownMsgs[0] != "Shutdown triggered by ups_fault pipeline" {
		t.Errorf("unexpected shutdown messages: %v", host.shutdownMsgs)
	}
}
