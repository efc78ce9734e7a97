package scoring

import (
	"strings"

	"aegismesh/pkg/telemetry"
)

// Additive rule weights. Each matched condition contributes its weight;
// the sum is clamped to [0,1].
const (
	weightRemoteShellService = 0.4
	weightCredentialProbe    = 0.5
	weightToolingSignature   = 0.3
	weightOddPayload         = 0.2
)

const oddPayloadChars = "<>{}[]$;\\|"

// RuleScore is the deterministic fallback scorer. It is pure and
// stateless: identical input always yields identical output.
func RuleScore(ev telemetry.Event) float64 {
	service := strings.ToLower(ev.Service)
	path := strings.ToLower(ev.Path)
	payload := strings.ToLower(ev.Payload)

	score := 0.0
	if service == "ssh" || service == "rlogin" || service == "telnet" {
		score += weightRemoteShellService
	}
	if strings.Contains(path, "/admin") || strings.Contains(payload, "login") || strings.Contains(payload, "password") {
		score += weightCredentialProbe
	}
	if strings.Contains(payload, "curl") || strings.Contains(payload, "wget") || strings.Contains(payload, "scan") {
		score += weightToolingSignature
	}
	if payload != "" && (len(payload) < 6 || strings.ContainsAny(payload, oddPayloadChars)) {
		score += weightOddPayload
	}

	return Clamp(score)
}

// Clamp restricts a score to the valid [0,1] risk range.
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
