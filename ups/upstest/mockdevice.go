// Package upstest provides a fake ups.Device and ups.DeviceCreator for use
// in tests of packages that depend on a live UPS connection.
package upstest

import (
	"context"
	"sync"

	"upsentryd/ups"
)

// MockDevice is an in-memory ups.Device whose next response is set by the
// test via SetResponse before the command that should receive it is sent.
type MockDevice struct {
	mu        sync.Mutex
	response  string
	responses map[string]string
	closed    bool
	failReads int

	// LastCommand records the most recently written command payload.
	LastCommand string
}

// NewMockDevice constructs a device with no queued response.
func NewMockDevice() *MockDevice {
	return &MockDevice{responses: make(map[string]string)}
}

// SetResponse sets the exact string every later ReadResponse call returns
// until it is set again, regardless of which command it is for. Use
// SetResponseForCommand when a
// test needs different commands to get different responses.
func (d *MockDevice) SetResponse(resp string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.response = resp
}

// SetResponseForCommand queues resp to be returned only when the most
// recently written command payload is exactly cmd, taking priority over the
// fallback set by SetResponse.
func (d *MockDevice) SetResponseForCommand(cmd, resp string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.responses[cmd] = resp
}

func (d *MockDevice) WriteCommand(_ context.Context, payload string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.LastCommand = payload
	return nil
}

// FailNextReads makes the next n calls to ReadResponse return
// ups.ErrDisconnected, simulating the device dropping off the bus.
func (d *MockDevice) FailNextReads(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failReads = n
}

func (d *MockDevice) ReadResponse(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failReads > 0 {
		d.failReads--
		return "", ups.ErrDisconnected
	}
	if resp, ok := d.responses[d.LastCommand]; ok {
		return resp, nil
	}
	return d.response, nil
}

func (d *MockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (d *MockDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// MockDeviceCreator always hands back the same MockDevice instance,
// simulating a device that is present from the first connection attempt.
type MockDeviceCreator struct {
	Device *MockDevice
}

// NewMockDeviceCreator wraps dev in a DeviceCreator.
func NewMockDeviceCreator(dev *MockDevice) *MockDeviceCreator {
	return &MockDeviceCreator{Device: dev}
}

func (c *MockDeviceCreator) Open() (ups.Device, error) {
	return c.Device, nil
}
