// Package session holds the slot taxonomy and the resolution engine
// that decides which daily slot a scan lands in.
package session

import (
	"fmt"

	"gateattend/internal/schedule"
)

// Slot is one of the four fixed daily session markers. A student gets
// at most one record per slot per day.
type Slot int

const (
	SlotMorningIn Slot = iota
	SlotMorningOut
	SlotAfternoonIn
	SlotAfternoonOut
)

var slotNames = map[Slot]string{
	SlotMorningIn:    "MORNING_IN",
	SlotMorningOut:   "MORNING_OUT",
	SlotAfternoonIn:  "AFTERNOON_IN",
	SlotAfternoonOut: "AFTERNOON_OUT",
}

func (s Slot) String() string {
	if name, ok := slotNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Slot(%d)", int(s))
}

// ParseSlot rejects anything outside the closed set, so free-text slot
// values never cross the type boundary.
func ParseSlot(s string) (Slot, error) {
	for slot, name := range slotNames {
		if name == s {
			return slot, nil
		}
	}
	return 0, fmt.Errorf("unknown slot %q", s)
}

// Period returns the half-day the slot belongs to.
func (s Slot) Period() schedule.Period {
	if s == SlotMorningIn || s == SlotMorningOut {
		return schedule.PeriodMorning
	}
	return schedule.PeriodAfternoon
}

// IsOut reports whether the slot is a check-out marker.
func (s Slot) IsOut() bool {
	return s == SlotMorningOut || s == SlotAfternoonOut
}

// Intent is the caller's stated purpose when the literal slot is not
// known in advance, as at the public gate scanner.
type Intent int

const (
	IntentTimeIn Intent = iota
	IntentTimeOut
)

func (i Intent) String() string {
	if i == IntentTimeIn {
		return "TIME_IN"
	}
	return "TIME_OUT"
}

// ParseIntent accepts the two wire values TIME_IN and TIME_OUT.
func ParseIntent(s string) (Intent, error) {
	switch s {
	case "TIME_IN":
		return IntentTimeIn, nil
	case "TIME_OUT":
		return IntentTimeOut, nil
	}
	return 0, fmt.Errorf("unknown intent %q", s)
}

// TargetSlot maps a period and intent to the concrete slot the scan
// targets.
func TargetSlot(period schedule.Period, intent Intent) Slot {
	switch {
	case period == schedule.PeriodMorning && intent == IntentTimeIn:
		return SlotMorningIn
	case period == schedule.PeriodMorning && intent == IntentTimeOut:
		return SlotMorningOut
	case period == schedule.PeriodAfternoon && intent == IntentTimeIn:
		return SlotAfternoonIn
	}
	return SlotAfternoonOut
}

// InSlot returns the check-in slot for a period.
func InSlot(period schedule.Period) Slot {
	if period == schedule.PeriodMorning {
		return SlotMorningIn
	}
	return SlotAfternoonIn
}
