package application

import "strings"

// UnknownPlatform is returned when a label matches no known protocol.
const UnknownPlatform = "unknown"

var platformLabels = []struct {
	marker   string
	platform string
}{
	{"1inch", "1inch"},
	{"Uniswap", "uniswap"},
	{"SushiSwap", "sushiswap"},
	{"Balancer", "balancer"},
	{"Curve", "curve"},
	{"Hop", "hop"},
}

// PlatformLabel maps an upstream address label to a protocol name by
// case-sensitive substring match. The first match in table order wins.
func PlatformLabel(label string) string {
	if label == "" {
		return UnknownPlatform
	}
	for _, entry := range platformLabels {
		if strings.Contains(label, entry.marker) {
			return entry.platform
		}
	}
	return UnknownPlatform
}
