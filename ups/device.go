package ups

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"
)

const (
	// vendorID and productID identify the HID UPS devices this driver
	// targets, a 0665:5161 "Megatec"-protocol unit.
	vendorID  = gousb.ID(0x0665)
	productID = gousb.ID(0x5161)

	reportID      = 0x00
	responseDelim = '\r'
	readChunkSize = 128
	readTimeout   = 3 * time.Second

	// inEndpoint and outEndpoint are the interrupt endpoint addresses the
	// HID UPS units expose for reading responses and writing commands.
	inEndpoint  = 0x81
	outEndpoint = 0x01
)

// ErrDisconnected is returned by Device methods once the underlying
// transport has detected the device is no longer present.
var ErrDisconnected = errors.New("ups: device is not connected")

// Device is the minimal transport surface the executor needs: writing a
// command frame and reading the (possibly empty, on timeout) response.
type Device interface {
	// WriteCommand sends payload as an ASCII command frame.
	WriteCommand(ctx context.Context, payload string) error
	// ReadResponse blocks for up to readTimeout for a complete response
	// frame, returning an empty string on timeout rather than an error.
	ReadResponse(ctx context.Context) (string, error)
	// Close releases the underlying handle.
	Close() error
}

// DeviceCreator knows how to open a fresh handle to the physical device.
// It is invoked by the executor both at startup and whenever it needs to
// reconnect after a disconnect is detected.
type DeviceCreator interface {
	Open() (Device, error)
}

// HIDDeviceCreator opens the real USB HID UPS device via gousb.
type HIDDeviceCreator struct {
	ctx *gousb.Context
}

// NewHIDDeviceCreator constructs a creator bound to a fresh gousb context.
// The context is shared across reconnect attempts and closed when the
// creator itself is no longer needed.
func NewHIDDeviceCreator() *HIDDeviceCreator {
	return &HIDDeviceCreator{ctx: gousb.NewContext()}
}

// Close releases the underlying USB context.
func (c *HIDDeviceCreator) Close() error {
	return c.ctx.Close()
}

func (c *HIDDeviceCreator) Open() (Device, error) {
	dev, err := c.ctx.OpenDeviceWithVIDPID(vendorID, productID)
	if err != nil {
		return nil, fmt.Errorf("ups: open usb device: %w", err)
	}
	if dev == nil {
		return nil, fmt.Errorf("ups: %w", ErrDisconnected)
	}

	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		return nil, fmt.Errorf("ups: set auto detach: %w", err)
	}

	intf, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("ups: claim interface: %w", err)
	}

	in, err := intf.InEndpoint(inEndpoint)
	if err != nil {
		done()
		dev.Close()
		return nil, fmt.Errorf("ups: open in endpoint: %w", err)
	}
	out, err := intf.OutEndpoint(outEndpoint)
	if err != nil {
		done()
		dev.Close()
		return nil, fmt.Errorf("ups: open out endpoint: %w", err)
	}

	return &hidDevice{usbDev: dev, intf: intf, done: done, in: in, out: out}, nil
}

type hidDevice struct {
	usbDev *gousb.Device
	intf   *gousb.Interface
	done   func()
	in     *gousb.InEndpoint
	out    *gousb.OutEndpoint
}

func (d *hidDevice) WriteCommand(ctx context.Context, payload string) error {
	frame := make([]byte, 0, len(payload)+2)
	frame = append(frame, reportID)
	frame = append(frame, payload...)
	frame = append(frame, responseDelim)

	if d.out == nil {
		return fmt.Errorf("ups: %w", ErrDisconnected)
	}
	if _, err := d.out.WriteContext(ctx, frame); err != nil {
		return fmt.Errorf("ups: write command: %w", translateUSBErr(err))
	}
	return nil
}

func (d *hidDevice) ReadResponse(ctx context.Context) (string, error) {
	if d.in == nil {
		return "", fmt.Errorf("ups: %w", ErrDisconnected)
	}

	readCtx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	buf := make([]byte, 0, readChunkSize)
	chunk := make([]byte, readChunkSize)
	for {
		n, err := d.in.ReadContext(readCtx, chunk)
		if err != nil {
			if errors.Is(readCtx.Err(), context.DeadlineExceeded) {
				return "", nil
			}
			return "", fmt.Errorf("ups: read response: %w", translateUSBErr(err))
		}
		buf = append(buf, chunk[:n]...)
		if idx := indexByte(buf, responseDelim); idx >= 0 {
			return string(buf[:idx]), nil
		}
	}
}

func (d *hidDevice) Close() error {
	if d.done != nil {
		d.done()
	}
	return d.usbDev.Close()
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// translateUSBErr maps libusb disconnect errors onto ErrDisconnected so
// callers can use errors.Is uniformly regardless of transport.
func translateUSBErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gousb.ErrorNoDevice) || errors.Is(err, gousb.ErrorNotFound) {
		return ErrDisconnected
	}
	return err
}
