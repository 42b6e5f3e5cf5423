package analysis

import "linkdoctor/internal/models"

// DeltaThresholdMs is the best-latency change treated as meaningful.
const DeltaThresholdMs int64 = 250

// Suggestion messages, one per branch of the suggestion tree.
const (
	SuggestPortalLogin = "Open a browser and complete the network's login or consent page, then scan again."
	SuggestAPN         = "Names fail while transport works: check the APN settings and turn off any VPN or Private DNS, then retry."
	SuggestRadioReset  = "Latency is still severe: toggle airplane mode for ten seconds or move to better coverage to reset the radio link."
	SuggestStalled     = "The session was stalled and is much improved after the reset. Reset the connection again if it recurs."
	SuggestCongestion  = "Latency got worse after the reset, which points to congestion or weak coverage rather than a stuck session."
	SuggestGeneric     = "No clear change after the reset. Check VPN, Private DNS and data-saver settings."
)

// Comparison describes how the after-reset scan differs from the baseline.
type Comparison struct {
	LatencyDelta   *int64     `json:"latency_delta_ms"`
	DNSChanged     models.Tri `json:"dns_changed"`
	CaptiveChanged models.Tri `json:"captive_changed"`
	Suggestion     string     `json:"suggestion"`
	SuggestionRule string     `json:"suggestion_rule"`
}

type suggestionRule struct {
	name    string
	match   func(after models.ScanResult, delta *int64) bool
	message string
}

// suggestionRules mirrors the health priority and adds the delta branches,
// which only exist once both phases are available.
var suggestionRules = []suggestionRule{
	{"captive-portal", func(a models.ScanResult, _ *int64) bool { return a.Captive.Suspected.IsTrue() }, SuggestPortalLogin},
	{"dns", func(a models.ScanResult, _ *int64) bool { return a.DNS.OK.IsFalse() }, SuggestAPN},
	{"radio-reset", func(a models.ScanResult, _ *int64) bool {
		return a.Latency.BestMs != nil && *a.Latency.BestMs >= SevereThresholdMs
	}, SuggestRadioReset},
	{"stalled-session", func(_ models.ScanResult, d *int64) bool { return d != nil && *d <= -DeltaThresholdMs }, SuggestStalled},
	{"congestion", func(_ models.ScanResult, d *int64) bool { return d != nil && *d >= DeltaThresholdMs }, SuggestCongestion},
	{"generic", func(models.ScanResult, *int64) bool { return true }, SuggestGeneric},
}

// Compare returns nil unless both phases exist.
func Compare(baseline, after *models.ScanResult) *Comparison {
	if baseline == nil || after == nil {
		return nil
	}

	var delta *int64
	if baseline.Latency.BestMs != nil && after.Latency.BestMs != nil {
		d := *after.Latency.BestMs - *baseline.Latency.BestMs
		delta = &d
	}

	cmp := &Comparison{
		LatencyDelta:   delta,
		DNSChanged:     changed(baseline.DNS.OK, after.DNS.OK),
		CaptiveChanged: changed(baseline.Captive.Suspected, after.Captive.Suspected),
	}
	for _, r := range suggestionRules {
		if r.match(*after, delta) {
			cmp.Suggestion = r.message
			cmp.SuggestionRule = r.name
			break
		}
	}
	return cmp
}

func changed(before, after models.Tri) models.Tri {
	if !before.Known() || !after.Known() {
		return models.Unknown
	}
	return models.TriOf(before != after)
}
