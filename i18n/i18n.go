// Package i18n provides the reference collab.Localizer implementation: a
// fixed English table of event names and descriptions.
package i18n

import "upsentryd/ups"

// English is the default collab.Localizer, a static lookup table.
type English struct{}

var names = map[ups.Event]string{
	ups.EventACFailure:           "AC Power Lost",
	ups.EventACRecovery:          "AC Power Restored",
	ups.EventUPSFault:            "UPS Fault",
	ups.EventLowBatteryModeStart: "Low Battery",
	ups.EventLowBatteryModeEnd:   "Battery Recovered",
	ups.EventBatteryTestStart:    "Battery Test Started",
	ups.EventBatteryTestEnd:      "Battery Test Finished",
}

var descriptions = map[ups.Event]string{
	ups.EventACFailure:           "The UPS has switched to battery power because mains power was lost.",
	ups.EventACRecovery:          "Mains power has returned and the UPS has switched back to utility power.",
	ups.EventUPSFault:            "The UPS has reported an internal fault condition.",
	ups.EventLowBatteryModeStart: "The UPS battery has dropped to a critically low charge level.",
	ups.EventLowBatteryModeEnd:   "The UPS battery charge has recovered above the low battery threshold.",
	ups.EventBatteryTestStart:    "The UPS has begun a scheduled or manually triggered battery self test.",
	ups.EventBatteryTestEnd:      "The UPS has finished its battery self test.",
}

func (English) EventName(ev ups.Event) string {
	if n, ok := names[ev]; ok {
		return n
	}
	return ev.String()
}

func (English) EventDescription(ev ups.Event) string {
	if d, ok := descriptions[ev]; ok {
		return d
	}
	return ev.String()
}
