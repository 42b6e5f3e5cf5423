package analysis

// Confidence rates how far the diagnosis can be trusted.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Score counts the optional device signals backing a probe-based diagnosis.
// Without probing there is no network evidence, so the score stays low.
func Score(probingEnabled, hasDeviceHint, hasBusySignal bool) Confidence {
	if !probingEnabled {
		return ConfidenceLow
	}
	extras := 0
	if hasDeviceHint {
		extras++
	}
	if hasBusySignal {
		extras++
	}
	if extras >= 2 {
		return ConfidenceHigh
	}
	return ConfidenceMedium
}
