package ups

import (
	"fmt"
	"strconv"
	"strings"
)

// QueryDeviceBattery (QI) loads the battery capacity and estimated runtime.
type QueryDeviceBattery struct{}

func (QueryDeviceBattery) Encode() string { return "QI" }

func (QueryDeviceBattery) CacheKey() (uint64, bool) { return 0, true }

func (QueryDeviceBattery) InvalidateCache(*ResponseCache) {}

func (QueryDeviceBattery) Decode(resp string) (DeviceBattery, error) {
	body, ok := strings.CutPrefix(resp, "(")
	if !ok {
		return DeviceBattery{}, &ErrMalformedResponse{Command: "QI", Reason: "missing '(' prefix"}
	}

	parts := strings.Split(body, " ")
	if len(parts) < 2 {
		return DeviceBattery{}, &ErrMalformedResponse{Command: "QI", Reason: "missing fields"}
	}

	capacity, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return DeviceBattery{}, &ErrMalformedResponse{Command: "QI", Reason: "invalid capacity: " + err.Error()}
	}
	remaining, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return DeviceBattery{}, &ErrMalformedResponse{Command: "QI", Reason: "invalid remaining time: " + err.Error()}
	}

	return DeviceBattery{Capacity: uint8(capacity), RemainingTime: uint32(remaining)}, nil
}

// ExecuteResponse is the result of an action command that only acknowledges
// success or failure rather than returning data.
type ExecuteResponse int

const (
	ExecuteSuccess ExecuteResponse = iota
	ExecuteFailure
)

func decodeExecuteResponse(cmd, resp string) (ExecuteResponse, error) {
	body, ok := strings.CutPrefix(resp, "(")
	if !ok {
		return ExecuteFailure, &ErrMalformedResponse{Command: cmd, Reason: "missing '(' prefix"}
	}
	if body == "ACK" {
		return ExecuteSuccess, nil
	}
	return ExecuteFailure, nil
}

// QueryDeviceState (QS) loads the full device status frame.
type QueryDeviceState struct{}

func (QueryDeviceState) Encode() string { return "QS" }

func (QueryDeviceState) CacheKey() (uint64, bool) { return stateCacheKey, true }

func (QueryDeviceState) InvalidateCache(*ResponseCache) {}

func (QueryDeviceState) Decode(resp string) (DeviceState, error) {
	body, ok := strings.CutPrefix(resp, "(")
	if !ok {
		return DeviceState{}, &ErrMalformedResponse{Command: "QS", Reason: "missing '(' prefix"}
	}

	parts := strings.Split(body, " ")
	if len(parts) < 8 {
		return DeviceState{}, &ErrMalformedResponse{Command: "QS", Reason: "missing fields"}
	}

	inputVoltage, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return DeviceState{}, &ErrMalformedResponse{Command: "QS", Reason: "invalid input voltage: " + err.Error()}
	}
	outputVoltage, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return DeviceState{}, &ErrMalformedResponse{Command: "QS", Reason: "invalid output voltage: " + err.Error()}
	}
	outputLoad, err := strconv.ParseUint(parts[3], 10, 8)
	if err != nil {
		return DeviceState{}, &ErrMalformedResponse{Command: "QS", Reason: "invalid output load: " + err.Error()}
	}
	outputFrequency, err := strconv.ParseFloat(parts[4], 64)
	if err != nil {
		return DeviceState{}, &ErrMalformedResponse{Command: "QS", Reason: "invalid output frequency: " + err.Error()}
	}
	batteryVoltage, err := strconv.ParseFloat(parts[5], 64)
	if err != nil {
		return DeviceState{}, &ErrMalformedResponse{Command: "QS", Reason: "invalid battery voltage: " + err.Error()}
	}

	status := parts[7]
	if len(status) != 8 {
		return DeviceState{}, &ErrMalformedResponse{Command: "QS", Reason: "status field must be exactly 8 bits"}
	}

	var devicePowerState DevicePowerState
	switch status[0] {
	case '0':
		devicePowerState = DevicePowerUtility
	case '1':
		devicePowerState = DevicePowerBattery
	default:
		return DeviceState{}, &ErrMalformedResponse{Command: "QS", Reason: "invalid power state bit"}
	}

	var deviceLineType DeviceLineType
	switch status[4] {
	case '0':
		deviceLineType = DeviceLineOnLine
	case '1':
		deviceLineType = DeviceLineInteractive
	default:
		return DeviceState{}, &ErrMalformedResponse{Command: "QS", Reason: "invalid line type bit"}
	}

	return DeviceState{
		InputVoltage:      inputVoltage,
		OutputVoltage:     outputVoltage,
		OutputLoadPercent: uint8(outputLoad),
		OutputFrequency:   outputFrequency,
		BatteryVoltage:    batteryVoltage,
		DevicePowerState:  devicePowerState,
		BatteryLow:        status[1] == '1',
		FaultMode:         status[3] == '1',
		DeviceLineType:    deviceLineType,
		BatterySelfTest:   status[5] == '1',
		BuzzerControl:     status[7] == '1',
	}, nil
}

// CancelBatteryTest (CT) stops an in-progress battery self test.
type CancelBatteryTest struct{}

func (CancelBatteryTest) Encode() string { return "CT" }

func (CancelBatteryTest) CacheKey() (uint64, bool) { return 0, false }

func (CancelBatteryTest) InvalidateCache(cache *ResponseCache) { invalidateDeviceState(cache) }

func (CancelBatteryTest) Decode(resp string) (ExecuteResponse, error) {
	return decodeExecuteResponse("CT", resp)
}

// BatteryTest (T) runs a 10 second battery self test.
type BatteryTest struct{}

func (BatteryTest) Encode() string { return "T" }

func (BatteryTest) CacheKey() (uint64, bool) { return 0, false }

func (BatteryTest) InvalidateCache(cache *ResponseCache) { invalidateDeviceState(cache) }

func (BatteryTest) Decode(string) (struct{}, error) { return struct{}{}, nil }

// ToggleBuzzer (Q) toggles the UPS's audible alarm.
type ToggleBuzzer struct{}

func (ToggleBuzzer) Encode() string { return "Q" }

func (ToggleBuzzer) CacheKey() (uint64, bool) { return 0, false }

func (ToggleBuzzer) InvalidateCache(cache *ResponseCache) { invalidateDeviceState(cache) }

func (ToggleBuzzer) Decode(string) (struct{}, error) { return struct{}{}, nil }

// ScheduleUPSShutdown (S{delay}R{reboot:04}) schedules the UPS itself to
// cut load after delayMinutes minutes and restore it after
// RebootDelayMinutes further minutes.
type ScheduleUPSShutdown struct {
	DelayMinutes       float32
	RebootDelayMinutes uint16
}

func (c ScheduleUPSShutdown) Encode() string {
	delay := c.DelayMinutes
	if delay > 9999 {
		delay = 9999
	}
	reboot := c.RebootDelayMinutes
	if reboot > 9999 {
		reboot = 9999
	}
	return fmt.Sprintf("S%gR%04d", delay, reboot)
}

func (ScheduleUPSShutdown) CacheKey() (uint64, bool) { return 0, false }

func (ScheduleUPSShutdown) InvalidateCache(*ResponseCache) {}

func (ScheduleUPSShutdown) Decode(string) (struct{}, error) { return struct{}{}, nil }
