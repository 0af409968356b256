package ups

import "testing"

func TestDeviceStateWorkMode(t *testing.T) {
	cases := []struct {
		name  string
		state DeviceState
		want  WorkMode
	}{
		{"fault takes priority", DeviceState{FaultMode: true, OutputVoltage: 230}, WorkModeFault},
		{"standby on near-zero output", DeviceState{OutputVoltage: 0}, WorkModeStandby},
		{"battery test", DeviceState{OutputVoltage: 230, BatterySelfTest: true}, WorkModeBatteryTest},
		{"on battery", DeviceState{OutputVoltage: 230, DevicePowerState: DevicePowerBattery}, WorkModeBattery},
		{"on line", DeviceState{OutputVoltage: 230, DevicePowerState: DevicePowerUtility}, WorkModeLine},
		{"battery wins over concurrent self test", DeviceState{OutputVoltage: 230, DevicePowerState: DevicePowerBattery, BatterySelfTest: true}, WorkModeBattery},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.state.WorkMode(); got != tc.want {
				t.Errorf("WorkMode() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWorkModeIsBattery(t *testing.T) {
	if !WorkModeBattery.IsBattery() {
		t.Error("WorkModeBattery should be battery")
	}
	if !WorkModeBatteryTest.IsBattery() {
		t.Error("WorkModeBatteryTest should be battery")
	}
	if WorkModeLine.IsBattery() {
		t.Error("WorkModeLine should not be battery")
	}
}

func TestEventCancelsSymmetric(t *testing.T) {
	pairs := [][2]Event{
		{EventACFailure, EventACRecovery},
		{EventLowBatteryModeStart, EventLowBatteryModeEnd},
		{EventBatteryTestStart, EventBatteryTestEnd},
	}

	for _, p := range pairs {
		if !contains(p[0].Cancels(), p[1]) {
			t.Errorf("%v.Cancels() should contain %v", p[0], p[1])
		}
		if !contains(p[1].Cancels(), p[0]) {
			t.Errorf("%v.Cancels() should contain %v", p[1], p[0])
		}
	}

	if len(EventUPSFault.Cancels()) != 0 {
		t.Error("UPSFault should not cancel anything")
	}
}

func contains(events []Event, target Event) bool {
	for _, e := range events {
		if e == target {
			return true
		}
	}
	return false
}
