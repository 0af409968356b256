package ups

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	createRetryAttempts = 5
	createRetryDelay    = 5 * time.Second
)

// job is the type-erased unit of work the executor's single goroutine
// drains from its queue: send a command, decode its response and deliver
// the typed result to whoever asked for it.
type job interface {
	// run executes the job against dev and reports whether dev was found
	// to be disconnected, so the executor knows to drop and recreate it.
	run(ctx context.Context, dev Device, cache *ResponseCache) (disconnected bool)
}

// envelope carries a TypedCommand[R] through the untyped job queue and
// delivers its decoded result (or error) back to the caller over result.
type envelope[R any] struct {
	cmd    TypedCommand[R]
	result chan<- envelopeResult[R]
}

type envelopeResult[R any] struct {
	value R
	err   error
}

// run executes the command against dev. On a disconnect error it returns
// true without sending a result, so process can reconnect and replay the
// same job rather than handing the caller a spurious failure.
func (e *envelope[R]) run(ctx context.Context, dev Device, cache *ResponseCache) bool {
	if key, ok := e.cmd.CacheKey(); ok {
		if cached, hit := cache.Get(key); hit {
			if v, ok := cached.(R); ok {
				e.result <- envelopeResult[R]{value: v}
				return false
			}
		}
	}

	value, err := executeOnDevice(ctx, dev, e.cmd)
	if isDisconnectErr(err) {
		return true
	}
	if err == nil {
		if key, ok := e.cmd.CacheKey(); ok {
			cache.Put(key, value)
		}
	}
	e.cmd.InvalidateCache(cache)
	e.result <- envelopeResult[R]{value: value, err: err}
	return false
}

func executeOnDevice[R any](ctx context.Context, dev Device, cmd TypedCommand[R]) (R, error) {
	var zero R
	if err := dev.WriteCommand(ctx, cmd.Encode()); err != nil {
		return zero, err
	}
	resp, err := dev.ReadResponse(ctx)
	if err != nil {
		return zero, err
	}
	if resp == "" {
		return zero, fmt.Errorf("ups: no response to %q", cmd.Encode())
	}
	return cmd.Decode(resp)
}

// Executor owns the one goroutine allowed to talk to the physical device,
// serializing every command through a bounded queue. It transparently
// reconnects on detecting a disconnect, giving up after createRetryAttempts
// failed attempts spaced createRetryDelay apart.
type Executor struct {
	creator DeviceCreator
	log     zerolog.Logger

	queue  chan job
	closed chan struct{}
}

// Handle is the externally visible reference to a running Executor. It is
// cheap to copy and safe for concurrent use by many callers.
type Handle struct {
	ex *Executor
}

// StartExecutor opens the device (retrying per createRetryAttempts) and
// starts its worker goroutine, returning a Handle once ready.
func StartExecutor(ctx context.Context, creator DeviceCreator, log zerolog.Logger) (Handle, error) {
	ex := &Executor{
		creator: creator,
		log:     log,
		queue:   make(chan job, 8),
		closed:  make(chan struct{}),
	}

	dev, err := tryCreateDevice(ctx, creator, log)
	if err != nil {
		return Handle{}, err
	}

	go ex.process(ctx, dev)
	return Handle{ex: ex}, nil
}

func tryCreateDevice(ctx context.Context, creator DeviceCreator, log zerolog.Logger) (Device, error) {
	var lastErr error
	for attempt := 1; attempt <= createRetryAttempts; attempt++ {
		dev, err := creator.Open()
		if err == nil {
			return dev, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("failed to open ups device")

		if attempt == createRetryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(createRetryDelay):
		}
	}
	return nil, fmt.Errorf("ups: could not open device after %d attempts: %w", createRetryAttempts, lastErr)
}

// process is the executor's single owning goroutine. It drains the job
// queue, reconnecting the underlying device transparently on disconnect.
func (ex *Executor) process(ctx context.Context, dev Device) {
	cache := NewResponseCache()
	defer close(ex.closed)
	defer func() {
		if dev != nil {
			dev.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-ex.queue:
			if !ok {
				return
			}
			// Replay the same job across reconnect attempts: a disconnect
			// must not surface to the caller as that job's result.
			for {
				if ctx.Err() != nil {
					return
				}
				if dev == nil {
					newDev, err := tryCreateDevice(ctx, ex.creator, ex.log)
					if err != nil {
						ex.log.Error().Err(err).Msg("ups device permanently unavailable")
						return
					}
					dev = newDev
				}

				if disconnected := j.run(ctx, dev, cache); disconnected {
					ex.log.Warn().Msg("ups device disconnected, will attempt to reconnect")
					dev.Close()
					dev = nil
					continue
				}
				break
			}
		}
	}
}

func isDisconnectErr(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrDisconnected) || strings.Contains(err.Error(), "not connected")
}

// IsOpen reports whether the executor's worker goroutine is still running.
func (h Handle) IsOpen() bool {
	if h.ex == nil {
		return false
	}
	select {
	case <-h.ex.closed:
		return false
	default:
		return true
	}
}

// Send submits cmd to the executor and waits for its decoded result.
func Send[R any](ctx context.Context, h Handle, cmd TypedCommand[R]) (R, error) {
	var zero R
	if h.ex == nil {
		return zero, fmt.Errorf("ups: executor not started")
	}

	result := make(chan envelopeResult[R], 1)
	env := &envelope[R]{cmd: cmd, result: result}

	select {
	case h.ex.queue <- env:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-h.ex.closed:
		return zero, fmt.Errorf("ups: %w", ErrDisconnected)
	}

	select {
	case r := <-result:
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// DeviceState queries the device's current status frame.
func (h Handle) DeviceState(ctx context.Context) (DeviceState, error) {
	return Send[DeviceState](ctx, h, QueryDeviceState{})
}

// DeviceBattery queries the device's current battery status.
func (h Handle) DeviceBattery(ctx context.Context) (DeviceBattery, error) {
	return Send[DeviceBattery](ctx, h, QueryDeviceBattery{})
}

// ScheduleShutdown instructs the UPS itself to cut power to the load after
// delayMinutes and restore it rebootDelayMinutes later.
func (h Handle) ScheduleShutdown(ctx context.Context, delayMinutes float32, rebootDelayMinutes uint16) error {
	_, err := Send[struct{}](ctx, h, ScheduleUPSShutdown{DelayMinutes: delayMinutes, RebootDelayMinutes: rebootDelayMinutes})
	return err
}

// RunBatteryTest triggers the UPS's built-in 10 second battery self test.
func (h Handle) RunBatteryTest(ctx context.Context) error {
	_, err := Send[struct{}](ctx, h, BatteryTest{})
	return err
}

// CancelBatteryTest cancels an in-progress battery self test.
func (h Handle) CancelBatteryTest(ctx context.Context) (ExecuteResponse, error) {
	return Send[ExecuteResponse](ctx, h, CancelBatteryTest{})
}

// ToggleBuzzer toggles the UPS's audible alarm.
func (h Handle) ToggleBuzzer(ctx context.Context) error {
	_, err := Send[struct{}](ctx, h, ToggleBuzzer{})
	return err
}
