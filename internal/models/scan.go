package models

import "time"

// Tier buckets the best observed round-trip time.
type Tier string

const (
	TierUnknown  Tier = "unknown"
	TierNormal   Tier = "normal"
	TierElevated Tier = "elevated"
	TierSevere   Tier = "severe"
)

// LatencyStats summarises the completed primary probes.
type LatencyStats struct {
	BestMs  *int64 `json:"best_ms"`
	WorstMs *int64 `json:"worst_ms"`
	Tier    Tier   `json:"tier"`
}

// DNSVerdict is Unknown only when probing is disabled.
type DNSVerdict struct {
	OK   Tri    `json:"ok"`
	Note string `json:"note"`
}

// CaptiveVerdict reports whether a captive portal is suspected.
type CaptiveVerdict struct {
	Suspected Tri    `json:"suspected"`
	Note      string `json:"note"`
}

// ScanLabel names the phase a scan result belongs to.
type ScanLabel string

const (
	LabelBaseline   ScanLabel = "baseline"
	LabelAfterReset ScanLabel = "after-reset"
)

// ScanResult is one completed scan phase. It is never mutated after creation.
type ScanResult struct {
	ID             string         `json:"id"`
	Label          ScanLabel      `json:"label"`
	Timestamp      time.Time      `json:"timestamp"`
	DeviceOnline   bool           `json:"device_online"`
	ProbingEnabled bool           `json:"probing_enabled"`
	Latency        LatencyStats   `json:"latency"`
	DNS            DNSVerdict     `json:"dns"`
	Captive        CaptiveVerdict `json:"captive"`
	Outcomes       []ProbeOutcome `json:"outcomes"`
	Resolution     *ProbeOutcome  `json:"resolution,omitempty"`
	Environment    Environment    `json:"environment"`
}

// Clone returns a deep copy so callers can never reach session-owned memory.
func (r *ScanResult) Clone() *ScanResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Latency.BestMs = cloneInt64(r.Latency.BestMs)
	out.Latency.WorstMs = cloneInt64(r.Latency.WorstMs)
	if r.Outcomes != nil {
		out.Outcomes = make([]ProbeOutcome, len(r.Outcomes))
		for i, o := range r.Outcomes {
			out.Outcomes[i] = o.Clone()
		}
	}
	if r.Resolution != nil {
		res := r.Resolution.Clone()
		out.Resolution = &res
	}
	out.Environment = r.Environment.Clone()
	return &out
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
