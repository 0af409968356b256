package watcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"upsentryd/ups"
	"upsentryd/ups/upstest"
)

type recordingHistory struct {
	mu      sync.Mutex
	events  []ups.Event
	battery []ups.DeviceBattery
}

func (h *recordingHistory) RecordEvent(_ context.Context, ev ups.Event, _ time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

func (h *recordingHistory) RecordBattery(_ context.Context, b ups.DeviceBattery, _ time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.battery = append(h.battery, b)
}

func (h *recordingHistory) RecordPipelineRun(context.Context, uuid.UUID, ups.Event, time.Time) {}
func (h *recordingHistory) RecordActionResult(context.Context, uuid.UUID, int, uint32, error)  {}

func (h *recordingHistory) snapshot() ([]ups.Event, []ups.DeviceBattery) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ups.Event(nil), h.events...), append([]ups.DeviceBattery(nil), h.battery...)
}

func stateWithPower(p ups.DevicePowerState) ups.DeviceState {
	return ups.DeviceState{OutputVoltage: 230, DevicePowerState: p}
}

func eventsEqual(a, b []ups.Event) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDiffACFailureAndRecovery(t *testing.T) {
	last := stateWithPower(ups.DevicePowerUtility)
	cur := stateWithPower(ups.DevicePowerBattery)

	got := diff(last, cur)
	want := []ups.Event{ups.EventACFailure}
	if !eventsEqual(got, want) {
		t.Errorf("diff = %v, want %v", got, want)
	}

	got = diff(cur, last)
	want = []ups.Event{ups.EventACRecovery}
	if !eventsEqual(got, want) {
		t.Errorf("diff = %v, want %v", got, want)
	}
}

func TestDiffLowBatteryModeStartEnd(t *testing.T) {
	last := ups.DeviceState{OutputVoltage: 230, BatteryLow: false}
	cur := ups.DeviceState{OutputVoltage: 230, BatteryLow: true}

	got := diff(last, cur)
	want := []ups.Event{ups.EventLowBatteryModeStart}
	if !eventsEqual(got, want) {
		t.Errorf("diff = %v, want %v", got, want)
	}

	got = diff(cur, last)
	want = []ups.Event{ups.EventLowBatteryModeEnd}
	if !eventsEqual(got, want) {
		t.Errorf("diff = %v, want %v", got, want)
	}
}

func TestDiffBatteryTestStartEnd(t *testing.T) {
	last := ups.DeviceState{OutputVoltage: 230, BatterySelfTest: false}
	cur := ups.DeviceState{OutputVoltage: 230, BatterySelfTest: true}

	got := diff(last, cur)
	want := []ups.Event{ups.EventBatteryTestStart}
	if !eventsEqual(got, want) {
		t.Errorf("diff = %v, want %v", got, want)
	}
}

func TestDiffFault(t *testing.T) {
	last := ups.DeviceState{OutputVoltage: 230, FaultMode: false}
	cur := ups.DeviceState{OutputVoltage: 230, FaultMode: true}

	got := diff(last, cur)
	want := []ups.Event{ups.EventUPSFault}
	if !eventsEqual(got, want) {
		t.Errorf("diff = %v, want %v", got, want)
	}
}

func TestDiffNoChange(t *testing.T) {
	s := stateWithPower(ups.DevicePowerUtility)
	if got := diff(s, s); len(got) != 0 {
		t.Errorf("expected no events, got %v", got)
	}
}

func TestWatcherRecordsHistoryAndPublishesOnTransition(t *testing.T) {
	dev := upstest.NewMockDevice()
	dev.SetResponseForCommand("QS", "(237.1 237.1 237.1 008 50.1 27.1 --.- 00000000")
	dev.SetResponseForCommand("QI", "(100 02832 50.0 000.5 175 290 0 0000020000112000")
	creator := upstest.NewMockDeviceCreator(dev)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handle, err := ups.StartExecutor(ctx, creator, zerolog.Nop())
	if err != nil {
		t.Fatalf("StartExecutor: %v", err)
	}

	history := &recordingHistory{}
	w := New(handle, history, 0, zerolog.Nop())
	sub := w.Subscribe()
	defer sub.Unsubscribe()

	w.poll(ctx)

	events, battery := history.snapshot()
	if len(battery) != 1 || battery[0].Capacity != 100 {
		t.Fatalf("expected one recorded battery sample with capacity 100, got %+v", battery)
	}
	// The device's first-ever snapshot is already on utility power with no
	// fault or self test in progress, matching the synthetic baseline the
	// first poll diffs against, so no event should fire yet.
	if len(events) != 0 {
		t.Fatalf("expected no events on the first poll (baseline matches observed state), got %v", events)
	}

	time.Sleep(1100 * time.Millisecond) // let the device state cache entry expire
	dev.SetResponseForCommand("QS", "(237.1 237.1 237.1 008 50.1 27.1 --.- 10000000")
	w.poll(ctx)

	events, _ = history.snapshot()
	if len(events) != 1 || events[0] != ups.EventACFailure {
		t.Fatalf("expected a recorded ACFailure event, got %v", events)
	}
}

func TestWatcherFirstPollAlreadyOnBatteryRaisesACFailure(t *testing.T) {
	dev := upstest.NewMockDevice()
	dev.SetResponseForCommand("QS", "(237.1 237.1 237.1 008 50.1 27.1 --.- 10000000")
	dev.SetResponseForCommand("QI", "(100 02832 50.0 000.5 175 290 0 0000020000112000")
	creator := upstest.NewMockDeviceCreator(dev)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handle, err := ups.StartExecutor(ctx, creator, zerolog.Nop())
	if err != nil {
		t.Fatalf("StartExecutor: %v", err)
	}

	history := &recordingHistory{}
	w := New(handle, history, 0, zerolog.Nop())
	sub := w.Subscribe()
	defer sub.Unsubscribe()

	w.poll(ctx)

	events, _ := history.snapshot()
	if len(events) != 1 || events[0] != ups.EventACFailure {
		t.Fatalf("expected the very first poll to raise ACFailure when already on battery, got %v", events)
	}
}
