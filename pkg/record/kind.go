package record

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies a record. The core attaches no meaning to the value;
// any byte is a valid Kind.
type Kind uint8

// Building element kinds.
const (
	KindOutlet          Kind = 0x10
	KindLightSwitch     Kind = 0x11
	KindCircuitBreaker  Kind = 0x12
	KindElectricalPanel Kind = 0x13
	KindThermostat      Kind = 0x20
	KindAirVent         Kind = 0x21
	KindLight           Kind = 0x30
	KindSmokeDetector   Kind = 0x40
	KindFireAlarm       Kind = 0x41
	KindDoor            Kind = 0x53
	KindWindow          Kind = 0x54

	// KindAccessInvite marks a record carrying a capability token.
	KindAccessInvite Kind = 0xF0
)

var kindNames = map[Kind]string{
	KindOutlet:          "OUTLET",
	KindLightSwitch:     "LIGHT_SWITCH",
	KindCircuitBreaker:  "CIRCUIT_BREAKER",
	KindElectricalPanel: "ELECTRICAL_PANEL",
	KindThermostat:      "THERMOSTAT",
	KindAirVent:         "AIR_VENT",
	KindLight:           "LIGHT",
	KindSmokeDetector:   "SMOKE_DETECTOR",
	KindFireAlarm:       "FIRE_ALARM",
	KindDoor:            "DOOR",
	KindWindow:          "WINDOW",
	KindAccessInvite:    "ACCESS_INVITE",
}

// String returns the kind name, or UNKNOWN(0xNN) for unnamed codes.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(k))
}

// ParseKind accepts a kind name (case-insensitive) or a numeric code
// in decimal or 0x-prefixed hex.
func ParseKind(s string) (Kind, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == upper {
			return k, nil
		}
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("unknown kind %q", s)
	}
	return Kind(n), nil
}
