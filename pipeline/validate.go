package pipeline

import (
	"errors"
	"fmt"
)

// Validate checks an EventPipeline's structural invariants: the name must
// not be empty and every action must be individually valid. Actions are
// checked one at a time; no rule spans an action's delay, retry and repeat
// policies together.
func (p EventPipeline) Validate() error {
	if p.Name == "" {
		return errors.New("pipeline: name must not be empty")
	}
	for i, a := range p.Actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("pipeline: action %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks a single Action's fields for internal consistency.
func (a Action) Validate() error {
	switch a.Type {
	case ActionNotification, ActionPopup:
		if a.Message == "" {
			return fmt.Errorf("%s action requires a message", a.Type)
		}
	case ActionExecutable:
		if a.Program == "" {
			return errors.New("executable action requires a program")
		}
	case ActionHTTPRequest:
		if a.URL == "" {
			return errors.New("http_request action requires a url")
		}
	case ActionSleep, ActionShutdown, ActionShutdownUPS:
		// no required fields
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}

	if a.Delay != nil {
		if a.Delay.Duration == nil && a.Delay.BelowCapacity == nil {
			return errors.New("delay must set duration, below_capacity, or both")
		}
		if a.Delay.BelowCapacity != nil && *a.Delay.BelowCapacity > 100 {
			return errors.New("delay.below_capacity must be 0-100")
		}
	}

	if a.Repeat != nil {
		if a.Repeat.Interval == nil && a.Repeat.CapacityDecreaseThreshold == nil {
			return errors.New("repeat must set interval, capacity_decrease_threshold, or both")
		}
		if a.Repeat.CapacityDecreaseThreshold != nil && *a.Repeat.CapacityDecreaseThreshold == 0 {
			return errors.New("repeat.capacity_decrease_threshold must be at least 1")
		}
	}

	if a.Retry != nil {
		if a.Retry.MaxAttempts == 0 {
			return errors.New("retry.max_attempts must be at least 1")
		}
		if err := validateRetryDelay(a.Retry.Delay); err != nil {
			return fmt.Errorf("retry.delay: %w", err)
		}
	}

	return nil
}

// validateRetryDelay checks policy-specific constraints on concrete
// RetryDelay implementations; FixedRetryDelay has none.
func validateRetryDelay(d RetryDelay) error {
	switch v := d.(type) {
	case LinearBackoffRetryDelay:
		if v.Increment < 0 {
			return errors.New("increment must not be negative")
		}
	case ExponentialBackoffRetryDelay:
		if v.Exponent < 1 {
			return errors.New("exponent must be at least 1")
		}
	}
	return nil
}
