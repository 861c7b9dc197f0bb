package frame

import (
	"fmt"
	"sort"
	"strings"
)

// Radio profile presets.
var (
	// MeshtasticLoRa fits 19 records per frame.
	MeshtasticLoRa = Config{MTU: 255, HeaderLen: 4}

	// SDR is a wider software-defined radio link.
	SDR = Config{MTU: 1024, HeaderLen: 8}
)

var profiles = map[string]Config{
	"meshtastic": MeshtasticLoRa,
	"lora":       MeshtasticLoRa,
	"sdr":        SDR,
}

// ProfileByName returns a preset by name (case-insensitive).
func ProfileByName(name string) (Config, error) {
	cfg, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Config{}, fmt.Errorf("unknown radio profile %q (known: %s)", name, strings.Join(ProfileNames(), ", "))
	}
	return cfg, nil
}

// ProfileNames returns the known preset names in sorted order.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
