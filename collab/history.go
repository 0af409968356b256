package collab

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"upsentryd/ups"
)

// EventRecord is one entry in a RingHistory's event log.
type EventRecord struct {
	Event      ups.Event
	ObservedAt time.Time
}

// BatteryRecord is one entry in a RingHistory's battery log.
type BatteryRecord struct {
	Battery    ups.DeviceBattery
	ObservedAt time.Time
}

// PipelineRunRecord is one entry in a RingHistory's pipeline run log.
type PipelineRunRecord struct {
	PipelineID uuid.UUID
	Event      ups.Event
	StartedAt  time.Time
}

// ActionResultRecord is one entry in a RingHistory's action result log.
type ActionResultRecord struct {
	PipelineID  uuid.UUID
	ActionIndex int
	Attempt     uint32
	Err         error
}

// RingHistory is an in-memory, fixed-capacity HistorySink: each of its four
// logs keeps at most Capacity most-recent entries, oldest dropped first.
// It is meant for tests and a standalone demo binary; a durable sink is an
// external collaborator, same as PipelineStore.
type RingHistory struct {
	capacity int

	mu      sync.Mutex
	events  []EventRecord
	battery []BatteryRecord
	runs    []PipelineRunRecord
	actions []ActionResultRecord
}

// NewRingHistory constructs a RingHistory holding up to capacity entries
// per log.
func NewRingHistory(capacity int) *RingHistory {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingHistory{capacity: capacity}
}

func (h *RingHistory) RecordEvent(_ context.Context, ev ups.Event, observedAt time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = appendBounded(h.events, EventRecord{Event: ev, ObservedAt: observedAt}, h.capacity)
}

func (h *RingHistory) RecordBattery(_ context.Context, b ups.DeviceBattery, observedAt time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.battery = appendBounded(h.battery, BatteryRecord{Battery: b, ObservedAt: observedAt}, h.capacity)
}

func (h *RingHistory) RecordPipelineRun(_ context.Context, pipelineID uuid.UUID, ev ups.Event, startedAt time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = appendBounded(h.runs, PipelineRunRecord{PipelineID: pipelineID, Event: ev, StartedAt: startedAt}, h.capacity)
}

func (h *RingHistory) RecordActionResult(_ context.Context, pipelineID uuid.UUID, actionIndex int, attempt uint32, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actions = appendBounded(h.actions, ActionResultRecord{PipelineID: pipelineID, ActionIndex: actionIndex, Attempt: attempt, Err: err}, h.capacity)
}

// Events returns a copy of the currently retained event records, oldest first.
func (h *RingHistory) Events() []EventRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]EventRecord, len(h.events))
	copy(out, h.events)
	return out
}

// Battery returns a copy of the currently retained battery records, oldest first.
func (h *RingHistory) Battery() []BatteryRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]BatteryRecord, len(h.battery))
	copy(out, h.battery)
	return out
}

func appendBounded[T any](log []T, rec T, capacity int) []T {
	log = append(log, rec)
	if len(log) > capacity {
		log = log[len(log)-capacity:]
	}
	return log
}
