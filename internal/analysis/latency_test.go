package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkdoctor/internal/models"
)

func ms(v int64) *int64 { return &v }

func completed(role models.Role, elapsed int64) models.ProbeOutcome {
	return models.ProbeOutcome{EndpointID: string(role), Role: role, Completed: true, ElapsedMs: elapsed, Transparency: models.TransparencyTransparent}
}

func failed(role models.Role, elapsed int64) models.ProbeOutcome {
	return models.ProbeOutcome{EndpointID: string(role), Role: role, ElapsedMs: elapsed, Transparency: models.TransparencyError, ErrorKind: models.ErrorTimeout}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		best *int64
		want models.Tier
	}{
		{nil, models.TierUnknown},
		{ms(0), models.TierNormal},
		{ms(420), models.TierNormal},
		{ms(449), models.TierNormal},
		{ms(450), models.TierElevated},
		{ms(899), models.TierElevated},
		{ms(900), models.TierSevere},
		{ms(5000), models.TierSevere},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierFor(tt.best), "best=%v", tt.best)
	}
}

func TestTierFor_Monotonic(t *testing.T) {
	rank := map[models.Tier]int{models.TierNormal: 0, models.TierElevated: 1, models.TierSevere: 2}
	prev := 0
	for v := int64(0); v <= 2000; v += 10 {
		r := rank[TierFor(ms(v))]
		require.GreaterOrEqual(t, r, prev, "tier dropped at %d ms", v)
		prev = r
	}
}

func TestAggregate(t *testing.T) {
	stats := Aggregate([]models.ProbeOutcome{
		completed(models.RolePrimaryA, 150),
		completed(models.RolePrimaryB, 120),
		completed(models.RolePrimaryC, 900),
		failed(models.RoleCaptive, 10),
	})

	require.NotNil(t, stats.BestMs)
	require.NotNil(t, stats.WorstMs)
	assert.EqualValues(t, 120, *stats.BestMs)
	assert.EqualValues(t, 900, *stats.WorstMs)
	assert.LessOrEqual(t, *stats.BestMs, *stats.WorstMs)
	assert.Equal(t, models.TierNormal, stats.Tier)
}

func TestAggregate_NoCompletedProbes(t *testing.T) {
	for _, outcomes := range [][]models.ProbeOutcome{
		nil,
		{failed(models.RolePrimaryA, 2500), failed(models.RolePrimaryB, 2500)},
	} {
		stats := Aggregate(outcomes)
		assert.Nil(t, stats.BestMs)
		assert.Nil(t, stats.WorstMs)
		assert.Equal(t, models.TierUnknown, stats.Tier)
	}
}
