package metrics

import (
	"math"

	"linkdoctor/internal/models"
)

// EndpointReachability summarises how one endpoint fared across scan phases.
type EndpointReachability struct {
	ID                  string      `json:"id"`
	Name                string      `json:"name"`
	Role                models.Role `json:"role"`
	ReachabilityPercent float64     `json:"reachability_percent"`
	TotalProbes         int         `json:"total_probes"`
	Completed           int         `json:"completed"`
	Failed              int         `json:"failed"`
	BestMs              *int64      `json:"best_ms,omitempty"`
	LastErrorKind       string      `json:"last_error_kind,omitempty"`
}

// ComputeReachability aggregates per-endpoint statistics from scan results in
// the order of the endpoint table.
func ComputeReachability(endpoints []models.Endpoint, results []*models.ScanResult) []EndpointReachability {
	type acc struct {
		completed int
		failed    int
		best      *int64
		lastErr   string
	}
	state := make(map[string]*acc, len(endpoints))
	for _, e := range endpoints {
		state[e.ID] = &acc{}
	}

	record := func(o models.ProbeOutcome) {
		a := state[o.EndpointID]
		if a == nil {
			return
		}
		if o.Completed {
			a.completed++
			if a.best == nil || o.ElapsedMs < *a.best {
				v := o.ElapsedMs
				a.best = &v
			}
			return
		}
		a.failed++
		a.lastErr = string(o.ErrorKind)
	}

	for _, r := range results {
		if r == nil {
			continue
		}
		for _, o := range r.Outcomes {
			record(o)
		}
		if r.Resolution != nil {
			record(*r.Resolution)
		}
	}

	out := make([]EndpointReachability, 0, len(endpoints))
	for _, e := range endpoints {
		a := state[e.ID]
		total := a.completed + a.failed
		pct := 0.0
		if total > 0 {
			pct = float64(a.completed) / float64(total) * 100
		}
		out = append(out, EndpointReachability{
			ID:                  e.ID,
			Name:                e.Name,
			Role:                e.Role,
			ReachabilityPercent: round2(pct),
			TotalProbes:         total,
			Completed:           a.completed,
			Failed:              a.failed,
			BestMs:              a.best,
			LastErrorKind:       a.lastErr,
		})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
