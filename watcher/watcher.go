// Package watcher polls a ups.Executor at a fixed interval and turns
// observed state transitions into ups.Event notifications broadcast to
// any number of subscribers.
package watcher

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"upsentryd/bus"
	"upsentryd/collab"
	"upsentryd/ups"
)

// DefaultPollInterval is the delay between successive device state queries
// used when New is not given an explicit one.
const DefaultPollInterval = 3 * time.Second

// eventTopic is the single fixed topic every event is published to; the
// watcher has no need for the bus's wildcard routing, only its bounded,
// lossy fan-out delivery.
var eventTopic = bus.T("ups", "event")

// Watcher polls executor on pollInterval and diffs successive DeviceState
// snapshots into Events, published on its bus connection.
type Watcher struct {
	executor     ups.Handle
	log          zerolog.Logger
	conn         *bus.Connection
	history      collab.HistorySink
	pollInterval time.Duration

	lastState *ups.DeviceState
}

// Subscription receives Events published by a Watcher for as long as it
// remains subscribed.
type Subscription struct {
	sub *bus.Subscription
}

// Events returns the channel Events are delivered on. Delivery is lossy:
// a subscriber that falls behind loses its oldest unread event rather than
// blocking the watcher.
func (s *Subscription) Events() <-chan ups.Event {
	out := make(chan ups.Event)
	go func() {
		defer close(out)
		for msg := range s.sub.Channel() {
			ev, ok := msg.Payload.(ups.Event)
			if !ok {
				continue
			}
			out <- ev
		}
	}()
	return out
}

// Unsubscribe stops delivery to this subscription.
func (s *Subscription) Unsubscribe() { s.sub.Unsubscribe() }

// New constructs a Watcher polling at pollInterval. A pollInterval of zero
// falls back to DefaultPollInterval. Run must be called to begin polling.
// history may be collab.NoopHistory{} if no event/battery log is wanted.
func New(executor ups.Handle, history collab.HistorySink, pollInterval time.Duration, log zerolog.Logger) *Watcher {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	b := bus.NewBus(4)
	return &Watcher{
		executor:     executor,
		log:          log,
		history:      history,
		pollInterval: pollInterval,
		conn:         b.NewConnection("watcher"),
	}
}

// Subscribe registers a new listener for events published by this Watcher.
func (w *Watcher) Subscribe() *Subscription {
	return &Subscription{sub: w.conn.Subscribe(eventTopic)}
}

// Run polls the executor until ctx is cancelled or the executor closes.
// It is intended to be run in its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !w.executor.IsOpen() {
				w.log.Warn().Msg("ups executor closed, stopping watcher")
				return
			}
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	state, err := w.executor.DeviceState(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to query ups device state")
		return
	}

	now := time.Now()

	if battery, err := w.executor.DeviceBattery(ctx); err != nil {
		w.log.Error().Err(err).Msg("failed to query ups battery state")
	} else {
		w.history.RecordBattery(ctx, battery, now)
	}

	// On the first poll there is no prior observation to diff against.
	// Rather than skip the diff outright, compare against the baseline
	// "nominal" state (utility power, no fault, no self test, battery not
	// low): a device that is already on battery or already reporting low
	// battery at startup must still raise its Start/failure event once.
	var last ups.DeviceState
	if w.lastState != nil {
		last = *w.lastState
	}

	for _, ev := range diff(last, state) {
		w.log.Info().Stringer("event", ev).Msg("ups event")
		w.history.RecordEvent(ctx, ev, now)
		w.conn.Publish(&bus.Message{Topic: eventTopic, Payload: ev})
	}

	w.lastState = &state
}

// diff compares two successive DeviceState snapshots and returns the
// Events implied by the transition between them, in a stable order:
// battery test transition, then low battery transition, then power source
// transition, then fault transition.
func diff(last, cur ups.DeviceState) []ups.Event {
	var events []ups.Event

	if !last.BatterySelfTest && cur.BatterySelfTest {
		events = append(events, ups.EventBatteryTestStart)
	} else if last.BatterySelfTest && !cur.BatterySelfTest {
		events = append(events, ups.EventBatteryTestEnd)
	}

	if !last.BatteryLow && cur.BatteryLow {
		events = append(events, ups.EventLowBatteryModeStart)
	} else if last.BatteryLow && !cur.BatteryLow {
		events = append(events, ups.EventLowBatteryModeEnd)
	}

	switch {
	case last.DevicePowerState == ups.DevicePowerUtility && cur.DevicePowerState == ups.DevicePowerBattery:
		events = append(events, ups.EventACFailure)
	case last.DevicePowerState == ups.DevicePowerBattery && cur.DevicePowerState == ups.DevicePowerUtility:
		events = append(events, ups.EventACRecovery)
	}

	if !last.FaultMode && cur.FaultMode {
		events = append(events, ups.EventUPSFault)
	}

	return events
}
