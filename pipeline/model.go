// Package pipeline defines the data model for event-triggered action
// pipelines: what a pipeline is, what an action within it looks like, and
// the delay/retry/repeat policies that govern how an action runs.
package pipeline

import (
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"upsentryd/ups"
)

// EventPipeline binds a set of actions to a single triggering Event. At
// most one instance of a pipeline runs at a time (single-flight); a new
// occurrence of the trigger event while one is already running is ignored.
type EventPipeline struct {
	ID      uuid.UUID
	Name    string
	Event   ups.Event
	Enabled bool
	Actions ActionPipeline

	// Cancellable controls whether a running instance of this pipeline is
	// aborted when a later event in its trigger's Cancels set occurs. A
	// pipeline with Cancellable false always runs to completion once
	// started, regardless of what happens afterward.
	Cancellable bool

	// LastExecuted is updated once every action of the pipeline has
	// completed its initial run (before any repeats), for observability;
	// it does not gate execution.
	LastExecuted *time.Time
}

// ActionPipeline is an ordered sequence of actions executed in turn.
type ActionPipeline []Action

// ActionType identifies which concrete handler an Action dispatches to.
type ActionType string

const (
	ActionNotification ActionType = "notification"
	ActionPopup        ActionType = "popup"
	ActionSleep        ActionType = "sleep"
	ActionShutdown     ActionType = "shutdown"
	ActionShutdownUPS  ActionType = "shutdown_ups"
	ActionExecutable   ActionType = "executable"
	ActionHTTPRequest  ActionType = "http_request"
)

// Action is one step of an ActionPipeline: what to do (Type plus its
// type-specific fields) and the optional delay/retry/repeat policy
// governing how it is run.
type Action struct {
	Type ActionType

	// Notification / Popup
	Title   string
	Message string

	// Shutdown
	ShutdownMessage        string
	ShutdownTimeout        time.Duration
	ShutdownForceCloseApps bool

	// ShutdownUPS
	ShutdownUPSDelayMinutes float32

	// Executable
	Program string
	Args    []string
	Timeout time.Duration

	// HttpRequest
	Method  string
	URL     string
	Headers map[string]string
	Body    string

	Delay  *ActionDelay
	Retry  *ActionRetry
	Repeat *ActionRepeat
}

// ActionDelay gates an action's first execution behind either a fixed
// wait or the battery capacity dropping to/below a threshold, whichever
// happens first.
type ActionDelay struct {
	// Duration, if set, is a fixed wait before the action runs.
	Duration *time.Duration
	// BelowCapacity, if set, is a battery percentage; the action runs as
	// soon as capacity is observed at or below it.
	BelowCapacity *uint8
}

// ActionRepeat re-runs an action after it completes, either on a fixed
// interval or upon capacity dropping by at least CapacityDecreaseThreshold
// since the worker started tracking it, until Limit repetitions have run.
// Limit nil means unbounded repeats; CapacityDecreaseThreshold nil means
// the interval-only trigger is used.
type ActionRepeat struct {
	Interval                  *time.Duration
	CapacityDecreaseThreshold *uint8
	Limit                     *uint32
}

// ActionRetry governs retrying a failed action execution.
type ActionRetry struct {
	MaxAttempts uint32
	Delay       RetryDelay
}

// RetryDelay computes the wait before retry attempt n (1-indexed).
type RetryDelay interface {
	DelayFor(attempt uint32) time.Duration
}

// FixedRetryDelay always waits the same duration.
type FixedRetryDelay struct {
	Duration time.Duration
}

func (d FixedRetryDelay) DelayFor(uint32) time.Duration { return d.Duration }

// LinearBackoffRetryDelay grows the wait by Increment every attempt,
// starting from Initial, saturating rather than overflowing.
type LinearBackoffRetryDelay struct {
	Initial   time.Duration
	Increment time.Duration
}

func (d LinearBackoffRetryDelay) DelayFor(attempt uint32) time.Duration {
	delay := d.Initial
	for i := uint32(1); i < attempt; i++ {
		delay = saturatingAdd(delay, d.Increment)
	}
	return delay
}

// ExponentialBackoffRetryDelay grows the wait by multiplying by Exponent
// every attempt, starting from Initial. The progression itself is
// computed by cenkalti/backoff's ExponentialBackOff with jitter disabled,
// capped at maxBackoffInterval rather than allowed to overflow.
type ExponentialBackoffRetryDelay struct {
	Initial  time.Duration
	Exponent float64
}

// maxBackoffInterval bounds exponential growth; one year is far beyond
// any retry policy a real pipeline would configure, and keeps the
// underlying float64 interval arithmetic from overflowing time.Duration.
const maxBackoffInterval = 365 * 24 * time.Hour

func (d ExponentialBackoffRetryDelay) DelayFor(attempt uint32) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.Initial
	b.Multiplier = d.Exponent
	b.RandomizationFactor = 0
	b.MaxInterval = maxBackoffInterval
	b.MaxElapsedTime = 0
	b.Reset()

	delay := d.Initial
	for i := uint32(0); i < attempt; i++ {
		next := b.NextBackOff()
		if next == backoff.Stop {
			return maxBackoffInterval
		}
		delay = next
	}
	return delay
}

const maxDuration = time.Duration(1<<63 - 1)

func saturatingAdd(a, b time.Duration) time.Duration {
	if a > maxDuration-b {
		return maxDuration
	}
	return a + b
}
