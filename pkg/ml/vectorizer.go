package ml

import (
	"strings"

	"aegismesh/pkg/telemetry"
)

// NumFeatures is the fixed width of every feature vector.
const NumFeatures = 4

// weirdChars are payload characters typical of injection probes.
const weirdChars = "<>{}[]$;\\|"

// Vectorize maps an event to its fixed feature vector:
// [is_ssh, path_has_admin, payload_length, weird_char_count].
// The service match is exactly "ssh"; other shell-like services are
// scored by the rule path instead. Deterministic, no scaling applied.
func Vectorize(ev telemetry.Event) []float64 {
	var isSSH float64
	if strings.ToLower(ev.Service) == "ssh" {
		isSSH = 1
	}

	var hasAdmin float64
	if strings.Contains(strings.ToLower(ev.Path), "/admin") {
		hasAdmin = 1
	}

	var weird float64
	for _, c := range ev.Payload {
		if strings.ContainsRune(weirdChars, c) {
			weird++
		}
	}

	return []float64{isSSH, hasAdmin, float64(len(ev.Payload)), weird}
}
