package action

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"upsentryd/collab"
	"upsentryd/ups"
)

type fakeLocalizer struct{}

func (fakeLocalizer) EventName(ev ups.Event) string        { return ev.String() }
func (fakeLocalizer) EventDescription(ev ups.Event) string { return "description of " + ev.String() }

type fakeHostControl struct {
	mu           sync.Mutex
	sleepCalls   int
	shutdownMsgs []string
}

func (f *fakeHostControl) Sleep(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sleepCalls++
	return nil
}

func (f *fakeHostControl) Shutdown(_ context.Context, message string, _ time.Duration, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdownMsgs = append(f.shutdownMsgs, message)
	return nil
}

type fakeProcessRunner struct {
	result collab.RunResult
	err    error
}

func (f *fakeProcessRunner) Run(context.Context, string, []string, time.Duration) (collab.RunResult, error) {
	return f.result, f.err
}

type fakeHistorySink struct {
	mu      sync.Mutex
	results []actionResult
}

type actionResult struct {
	pipelineID uuid.UUID
	index      int
	attempt    uint32
	err        error
}

func (f *fakeHistorySink) RecordEvent(context.Context, ups.Event, time.Time)          {}
func (f *fakeHistorySink) RecordBattery(context.Context, ups.DeviceBattery, time.Time) {}

func (f *fakeHistorySink) RecordPipelineRun(context.Context, uuid.UUID, ups.Event, time.Time) {}

func (f *fakeHistorySink) RecordActionResult(_ context.Context, pipelineID uuid.UUID, index int, attempt uint32, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, actionResult{pipelineID: pipelineID, index: index, attempt: attempt, err: err})
}

type fakeNotifier struct {
	mu       sync.Mutex
	subjects []string
	messages []string
}

func (f *fakeNotifier) Send(_ context.Context, subject, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	f.messages = append(f.messages, message)
	return nil
}
