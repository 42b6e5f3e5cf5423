package analysis

import "linkdoctor/internal/models"

// Severity is the traffic-light level of a diagnosis.
type Severity string

const (
	SeverityRed   Severity = "red"
	SeverityAmber Severity = "amber"
	SeverityGreen Severity = "green"
)

// Diagnosis is the single actionable verdict for a scan.
type Diagnosis struct {
	Severity Severity `json:"severity"`
	Title    string   `json:"title"`
	Detail   string   `json:"detail"`
	Label    string   `json:"label"`
	// Rule names the decision-table entry that produced the diagnosis.
	Rule string `json:"rule"`
}

// Signals are the inputs the health rules read.
type Signals struct {
	DeviceOnline     bool
	ProbingEnabled   bool
	CaptiveSuspected models.Tri
	DNSOK            models.Tri
	BestMs           *int64
}

// SignalsFrom extracts the rule inputs from a scan result.
func SignalsFrom(r models.ScanResult) Signals {
	return Signals{
		DeviceOnline:     r.DeviceOnline,
		ProbingEnabled:   r.ProbingEnabled,
		CaptiveSuspected: r.Captive.Suspected,
		DNSOK:            r.DNS.OK,
		BestMs:           r.Latency.BestMs,
	}
}

// Rule pairs a predicate with the diagnosis it yields.
type Rule struct {
	Name      string
	Match     func(Signals) bool
	Diagnosis Diagnosis
}

// HealthRules is evaluated top to bottom; the first match wins. The order is
// the diagnostic priority, most certain and most severe first.
var HealthRules = []Rule{
	{
		Name:  "offline",
		Match: func(s Signals) bool { return !s.DeviceOnline },
		Diagnosis: Diagnosis{
			Severity: SeverityRed,
			Title:    "No Connectivity",
			Detail:   "The device reports no network connection. Check airplane mode, Wi-Fi and mobile data.",
			Label:    "Offline",
		},
	},
	{
		Name:  "probing-disabled",
		Match: func(s Signals) bool { return !s.ProbingEnabled },
		Diagnosis: Diagnosis{
			Severity: SeverityAmber,
			Title:    "Limited Scan Mode",
			Detail:   "Outbound probing is off, so only the device's online flag was checked. Enable probing for a full diagnosis.",
			Label:    "Limited",
		},
	},
	{
		Name:  "captive-portal",
		Match: func(s Signals) bool { return s.CaptiveSuspected.IsTrue() },
		Diagnosis: Diagnosis{
			Severity: SeverityAmber,
			Title:    "Captive Portal Suspected",
			Detail:   "Some traffic gets through but the connectivity check failed or stalled. A login or consent page may be intercepting requests.",
			Label:    "Portal",
		},
	},
	{
		Name:  "dns",
		Match: func(s Signals) bool { return s.DNSOK.IsFalse() },
		Diagnosis: Diagnosis{
			Severity: SeverityAmber,
			Title:    "DNS / APN Issue",
			Detail:   "The internet is reachable by address but named sites fail. Name resolution or the APN profile is likely at fault.",
			Label:    "DNS",
		},
	},
	{
		Name:  "no-response",
		Match: func(s Signals) bool { return s.BestMs == nil },
		Diagnosis: Diagnosis{
			Severity: SeverityRed,
			Title:    "No Internet Access",
			Detail:   "The device reports a connection but no reachability probe completed. The data path is down.",
			Label:    "No data",
		},
	},
	{
		Name:  "congestion",
		Match: func(s Signals) bool { return s.BestMs != nil && *s.BestMs >= SevereThresholdMs },
		Diagnosis: Diagnosis{
			Severity: SeverityAmber,
			Title:    "Congestion / Stall",
			Detail:   "Even the fastest probe took 900 ms or more. The link is congested or the session has stalled.",
			Label:    "Slow",
		},
	},
	{
		Name:  "healthy",
		Match: func(Signals) bool { return true },
		Diagnosis: Diagnosis{
			Severity: SeverityGreen,
			Title:    "Healthy",
			Detail:   "Probes completed promptly and no DNS or captive portal problem was found.",
			Label:    "OK",
		},
	},
}

// Classify returns the diagnosis of the first matching rule.
func Classify(s Signals) Diagnosis {
	return classifyWith(HealthRules, s)
}

func classifyWith(rules []Rule, s Signals) Diagnosis {
	for _, r := range rules {
		if r.Match(s) {
			d := r.Diagnosis
			d.Rule = r.Name
			return d
		}
	}
	// Unreachable with HealthRules: the last rule always matches.
	return Diagnosis{Severity: SeverityAmber, Title: "Inconclusive", Label: "Unknown", Rule: "none"}
}

// Diagnose classifies a scan result.
func Diagnose(r models.ScanResult) Diagnosis {
	return Classify(SignalsFrom(r))
}
