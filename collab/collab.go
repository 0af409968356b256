// Package collab defines the narrow interfaces the action engine and
// pipeline runner depend on for everything outside of talking to the UPS
// itself: persistence, localization, host control and history recording.
// Concrete implementations live in store, i18n and hostctl.
package collab

import (
	"context"
	"time"

	"github.com/google/uuid"

	"upsentryd/pipeline"
	"upsentryd/ups"
)

// PipelineStore is the persistence boundary for EventPipeline definitions.
type PipelineStore interface {
	// List returns every configured pipeline, enabled or not.
	List(ctx context.Context) ([]pipeline.EventPipeline, error)
	// Get returns a single pipeline by id.
	Get(ctx context.Context, id uuid.UUID) (pipeline.EventPipeline, error)
	// Put creates or replaces a pipeline.
	Put(ctx context.Context, p pipeline.EventPipeline) error
	// Delete removes a pipeline by id.
	Delete(ctx context.Context, id uuid.UUID) error
	// MarkExecuted records that every action of a pipeline has completed
	// its initial run (before any repeats), for observability.
	MarkExecuted(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Localizer resolves a ups.Event into user-facing text, used to populate
// the {OGUARD_EVENT_NAME} and {OGUARD_EVENT_DESCRIPTION} placeholders and
// to title/caption notifications and popups.
type Localizer interface {
	EventName(ev ups.Event) string
	EventDescription(ev ups.Event) string
}

// HostControl performs OS-level power actions on behalf of the action
// engine. It is deliberately separate from ProcessRunner because these
// operations frequently require elevated privilege or platform-specific
// syscalls rather than spawning a subprocess.
type HostControl interface {
	Sleep(ctx context.Context) error
	// Shutdown powers the host off after timeout elapses, displaying
	// message where the platform supports one. forceCloseApps instructs
	// the OS to terminate applications that would otherwise block the
	// shutdown rather than wait on them.
	Shutdown(ctx context.Context, message string, timeout time.Duration, forceCloseApps bool) error
}

// ProcessRunner executes the Executable action's underlying program.
type ProcessRunner interface {
	// Run executes program with args, killing it if it has not exited
	// within timeout. A timeout is not treated as a failure by the
	// action engine; RunResult.TimedOut communicates it occurred.
	Run(ctx context.Context, program string, args []string, timeout time.Duration) (RunResult, error)
}

// RunResult is the outcome of a ProcessRunner.Run call.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// HistorySink records completed pipeline/action executions for later
// inspection. Implementations may be no-ops, in-memory ring buffers or
// durable stores; it is intentionally decoupled from PipelineStore since
// history is append-only and pipeline definitions are mutable.
type HistorySink interface {
	// RecordEvent logs a ups.Event as observed by the state watcher,
	// independent of whether any pipeline reacts to it.
	RecordEvent(ctx context.Context, ev ups.Event, observedAt time.Time)
	// RecordBattery logs a battery sample observed by the state watcher.
	RecordBattery(ctx context.Context, b ups.DeviceBattery, observedAt time.Time)
	RecordPipelineRun(ctx context.Context, pipelineID uuid.UUID, ev ups.Event, startedAt time.Time)
	RecordActionResult(ctx context.Context, pipelineID uuid.UUID, actionIndex int, attempt uint32, err error)
}
