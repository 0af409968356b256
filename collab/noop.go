package collab

import (
	"context"
	"time"

	"github.com/google/uuid"

	"upsentryd/ups"
)

// NoopHistory discards every record. Useful as a default when no durable
// history backend is configured.
type NoopHistory struct{}

func (NoopHistory) RecordEvent(context.Context, ups.Event, time.Time)                  {}
func (NoopHistory) RecordBattery(context.Context, ups.DeviceBattery, time.Time)         {}
func (NoopHistory) RecordPipelineRun(context.Context, uuid.UUID, ups.Event, time.Time) {}
func (NoopHistory) RecordActionResult(context.Context, uuid.UUID, int, uint32, error)   {}
