// Package analysis turns raw probe outcomes into verdicts, a diagnosis, a
// confidence score and a baseline/after comparison.
package analysis

import "linkdoctor/internal/models"

// Tier thresholds on the best round-trip time. The health classifier and the
// suggestion engine read the same constants.
const (
	ElevatedThresholdMs int64 = 450
	SevereThresholdMs   int64 = 900
)

// TierFor buckets a best round-trip time. A missing value has no tier.
func TierFor(bestMs *int64) models.Tier {
	if bestMs == nil {
		return models.TierUnknown
	}
	switch {
	case *bestMs >= SevereThresholdMs:
		return models.TierSevere
	case *bestMs >= ElevatedThresholdMs:
		return models.TierElevated
	default:
		return models.TierNormal
	}
}

// Aggregate reduces the completed outcomes to best/worst timings and a tier.
func Aggregate(outcomes []models.ProbeOutcome) models.LatencyStats {
	var best, worst *int64
	for _, o := range outcomes {
		if !o.Completed {
			continue
		}
		ms := o.ElapsedMs
		if best == nil || ms < *best {
			v := ms
			best = &v
		}
		if worst == nil || ms > *worst {
			v := ms
			worst = &v
		}
	}
	return models.LatencyStats{BestMs: best, WorstMs: worst, Tier: TierFor(best)}
}
