package ups

import "testing"

func TestQueryDeviceBatteryDecode(t *testing.T) {
	value := "(100 02832 50.0 000.5 175 290 0 0000020000112000"
	battery, err := QueryDeviceBattery{}.Decode(value)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if battery.Capacity != 100 {
		t.Errorf("capacity = %d, want 100", battery.Capacity)
	}
	if battery.RemainingTime != 2832 {
		t.Errorf("remaining time = %d, want 2832", battery.RemainingTime)
	}
}

func TestQueryDeviceBatteryDecodeMalformed(t *testing.T) {
	value := "(A B 50.0 000.5 175 290 0 0000020000112000"
	if _, err := (QueryDeviceBattery{}).Decode(value); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestQueryDeviceStateDecode(t *testing.T) {
	value := "(237.1 237.1 237.1 008 50.1 27.1 --.- 00001001"
	state, err := QueryDeviceState{}.Decode(value)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	want := DeviceState{
		InputVoltage:      237.1,
		OutputVoltage:     237.1,
		OutputLoadPercent: 8,
		OutputFrequency:   50.1,
		BatteryVoltage:    27.1,
		DevicePowerState:  DevicePowerUtility,
		BatteryLow:        false,
		FaultMode:         false,
		DeviceLineType:    DeviceLineInteractive,
		BatterySelfTest:   false,
		BuzzerControl:     true,
	}

	if state != want {
		t.Errorf("state = %+v, want %+v", state, want)
	}
}

func TestQueryDeviceStateDecodeMalformed(t *testing.T) {
	value := "(A B 237.1 008 50.1 27.1 --.- 00001001"
	if _, err := (QueryDeviceState{}).Decode(value); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestQueryDeviceStateDecodeRejectsWrongLengthStatus(t *testing.T) {
	tooShort := "(237.1 237.1 237.1 008 50.1 27.1 --.- 0000100"
	if _, err := (QueryDeviceState{}).Decode(tooShort); err == nil {
		t.Fatal("expected error for a status field shorter than 8 bits")
	}

	tooLong := "(237.1 237.1 237.1 008 50.1 27.1 --.- 000010011"
	if _, err := (QueryDeviceState{}).Decode(tooLong); err == nil {
		t.Fatal("expected error for a status field longer than 8 bits")
	}
}

func TestScheduleUPSShutdownEncode(t *testing.T) {
	cmd := ScheduleUPSShutdown{DelayMinutes: 5, RebootDelayMinutes: 1}
	if got, want := cmd.Encode(), "S5R0001"; got != want {
		t.Errorf("encode = %q, want %q", got, want)
	}
}

func TestScheduleUPSShutdownEncodeClampsToFourDigits(t *testing.T) {
	cmd := ScheduleUPSShutdown{DelayMinutes: 99999, RebootDelayMinutes: 65535}
	if got, want := cmd.Encode(), "S9999R9999"; got != want {
		t.Errorf("encode = %q, want %q", got, want)
	}
}

func TestDecodeExecuteResponse(t *testing.T) {
	success, err := decodeExecuteResponse("CT", "(ACK")
	if err != nil || success != ExecuteSuccess {
		t.Errorf("expected success, got %v, %v", success, err)
	}

	failure, err := decodeExecuteResponse("CT", "(NAK")
	if err != nil || failure != ExecuteFailure {
		t.Errorf("expected failure, got %v, %v", failure, err)
	}
}
