package pipeline

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"upsentryd/ups"
)

func TestValidatePipelineRequiresName(t *testing.T) {
	p := EventPipeline{ID: uuid.New(), Event: ups.EventACFailure}
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestValidateNotificationRequiresMessage(t *testing.T) {
	a := Action{Type: ActionNotification}
	if err := a.Validate(); err == nil {
		t.Fatal("expected error for missing message")
	}
	a.Message = "power lost"
	if err := a.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRetryRequiresMaxAttempts(t *testing.T) {
	a := Action{
		Type:    ActionNotification,
		Message: "x",
		Retry:   &ActionRetry{MaxAttempts: 0, Delay: FixedRetryDelay{Duration: time.Second}},
	}
	if err := a.Validate(); err == nil {
		t.Fatal("expected error for zero max attempts")
	}
}

func TestValidateExponentialBackoffRejectsSubUnitExponent(t *testing.T) {
	a := Action{
		Type:    ActionNotification,
		Message: "x",
		Retry: &ActionRetry{
			MaxAttempts: 3,
			Delay:       ExponentialBackoffRetryDelay{Initial: time.Second, Exponent: 0.5},
		},
	}
	if err := a.Validate(); err == nil {
		t.Fatal("expected error for sub-unit exponent")
	}
}

func TestLinearBackoffDelayFor(t *testing.T) {
	d := LinearBackoffRetryDelay{Initial: time.Second, Increment: 2 * time.Second}
	if got := d.DelayFor(1); got != time.Second {
		t.Errorf("attempt 1 = %v, want 1s", got)
	}
	if got := d.DelayFor(3); got != 5*time.Second {
		t.Errorf("attempt 3 = %v, want 5s", got)
	}
}

func TestExponentialBackoffDelayFor(t *testing.T) {
	d := ExponentialBackoffRetryDelay{Initial: time.Second, Exponent: 2}
	if got := d.DelayFor(1); got != time.Second {
		t.Errorf("attempt 1 = %v, want 1s", got)
	}
	if got := d.DelayFor(3); got != 4*time.Second {
		t.Errorf("attempt 3 = %v, want 4s", got)
	}
}

func TestSaturatingAddDoesNotOverflow(t *testing.T) {
	got := saturatingAdd(maxDuration-time.Second, 2*time.Second)
	if got != maxDuration {
		t.Errorf("expected saturation to maxDuration, got %v", got)
	}
}
