package action

import (
	"context"
	"errors"
	"time"

	"upsentryd/pipeline"
)

// capacityPollInterval is how often battery capacity is sampled while
// waiting out a capacity-gated delay or repeat.
const capacityPollInterval = time.Second

// awaitActionDelay blocks until delay is satisfied: a fixed duration
// elapsing, capacity dropping to or below a threshold, or whichever of
// the two (when both are set) happens first. A nil delay returns
// immediately.
func (e *Executor) awaitActionDelay(ctx context.Context, delay *pipeline.ActionDelay) error {
	if delay == nil {
		return nil
	}

	var timerC <-chan time.Time
	if delay.Duration != nil {
		timer := time.NewTimer(*delay.Duration)
		defer timer.Stop()
		timerC = timer.C
	}

	if delay.BelowCapacity == nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timerC:
			return nil
		}
	}

	ticker := time.NewTicker(capacityPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timerC:
			return nil
		case <-ticker.C:
			battery, err := e.UPS.DeviceBattery(ctx)
			if err != nil {
				e.Log.Warn().Err(err).Msg("failed to poll battery capacity while awaiting delay")
				continue
			}
			if battery.Capacity <= *delay.BelowCapacity {
				return nil
			}
		}
	}
}

// awaitActionRepeat blocks until repeat's next occurrence is due: a fixed
// interval elapsing, or the spread between the highest and lowest battery
// capacity observed since this wait began reaching CapacityDecreaseThreshold,
// or whichever happens first. A repeat with neither set returns an error at
// once, which ends the repeat worker (validation also rejects this
// combination).
func (e *Executor) awaitActionRepeat(ctx context.Context, repeat *pipeline.ActionRepeat) error {
	if repeat.Interval == nil && repeat.CapacityDecreaseThreshold == nil {
		return errors.New("action: repeat has neither an interval nor a capacity decrease threshold")
	}

	var timerC <-chan time.Time
	if repeat.Interval != nil {
		timer := time.NewTimer(*repeat.Interval)
		defer timer.Stop()
		timerC = timer.C
	}

	if repeat.CapacityDecreaseThreshold == nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timerC:
			return nil
		}
	}

	ticker := time.NewTicker(capacityPollInterval)
	defer ticker.Stop()

	threshold := *repeat.CapacityDecreaseThreshold
	var max, min *uint8
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timerC:
			return nil
		case <-ticker.C:
			battery, err := e.UPS.DeviceBattery(ctx)
			if err != nil {
				e.Log.Warn().Err(err).Msg("failed to poll battery capacity while awaiting repeat")
				continue
			}
			c := battery.Capacity
			if max == nil || c > *max {
				max = &c
			}
			if min == nil || c < *min {
				min = &c
			}
			if *max-*min >= threshold {
				return nil
			}
		}
	}
}
