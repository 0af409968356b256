package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upsentryd/pipeline"
	"upsentryd/ups"
)

func TestYAMLFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipelines.yaml")

	f, err := LoadYAMLFile(path)
	require.NoError(t, err)

	delay := 5 * time.Minute
	below := uint8(20)
	limit := uint32(4)
	p := pipeline.EventPipeline{
		ID:          uuid.New(),
		Name:        "low battery notice",
		Event:       ups.EventLowBatteryModeStart,
		Enabled:     true,
		Cancellable: false,
		Actions: pipeline.ActionPipeline{
			{
				Type:    pipeline.ActionNotification,
				Title:   "{OGUARD_EVENT_NAME}",
				Message: "{OGUARD_EVENT_DESCRIPTION}",
				Delay:   &pipeline.ActionDelay{Duration: &delay, BelowCapacity: &below},
				Retry: &pipeline.ActionRetry{
					MaxAttempts: 3,
					Delay:       pipeline.ExponentialBackoffRetryDelay{Initial: time.Second, Exponent: 2},
				},
				Repeat: &pipeline.ActionRepeat{Interval: &delay, Limit: &limit},
			},
		},
	}

	require.NoError(t, f.Put(context.Background(), p))

	reloaded, err := LoadYAMLFile(path)
	require.NoError(t, err)

	got, err := reloaded.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Event, got.Event)
	assert.Equal(t, p.Cancellable, got.Cancellable)
	assert.Len(t, got.Actions, 1)

	require.NotNil(t, got.Actions[0].Delay)
	require.NotNil(t, got.Actions[0].Delay.BelowCapacity)
	assert.Equal(t, uint8(20), *got.Actions[0].Delay.BelowCapacity)

	_, ok := got.Actions[0].Retry.Delay.(pipeline.ExponentialBackoffRetryDelay)
	assert.True(t, ok, "retry delay type not preserved: %T", got.Actions[0].Retry.Delay)

	require.NotNil(t, got.Actions[0].Repeat)
	require.NotNil(t, got.Actions[0].Repeat.Limit)
	assert.Equal(t, uint32(4), *got.Actions[0].Repeat.Limit)
}
