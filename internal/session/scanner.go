package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"linkdoctor/internal/analysis"
	"linkdoctor/internal/models"
	"linkdoctor/internal/probe"
)

// Scanner produces one scan result. It must always return, even when ctx is
// cancelled.
type Scanner interface {
	Scan(ctx context.Context, label models.ScanLabel, probingEnabled bool, env models.Environment) models.ScanResult
}

// PlanRunner runs the probe plan.
type PlanRunner interface {
	Run(ctx context.Context, endpoints []models.Endpoint, probingEnabled bool) probe.Plan
}

// ProbeScanner runs the probe plan and derives every verdict from it.
type ProbeScanner struct {
	runner    PlanRunner
	endpoints []models.Endpoint
	now       func() time.Time
}

// NewProbeScanner creates a scanner for a fixed endpoint table.
func NewProbeScanner(runner PlanRunner, endpoints []models.Endpoint) *ProbeScanner {
	eps := make([]models.Endpoint, len(endpoints))
	copy(eps, endpoints)
	return &ProbeScanner{runner: runner, endpoints: eps, now: time.Now}
}

// Scan executes the plan and assembles the result.
func (s *ProbeScanner) Scan(ctx context.Context, label models.ScanLabel, probingEnabled bool, env models.Environment) models.ScanResult {
	plan := s.runner.Run(ctx, s.endpoints, probingEnabled)
	return BuildResult(label, plan, probingEnabled, env, s.now().UTC())
}

// BuildResult derives latency, DNS and captive verdicts from a plan.
func BuildResult(label models.ScanLabel, plan probe.Plan, probingEnabled bool, env models.Environment, at time.Time) models.ScanResult {
	evidence := analysis.CollectEvidence(plan.Outcomes())

	outcomes := make([]models.ProbeOutcome, 0, len(plan.Primary)+1)
	outcomes = append(outcomes, plan.Primary...)
	if plan.Captive != nil {
		outcomes = append(outcomes, *plan.Captive)
	}

	result := models.ScanResult{
		ID:             uuid.New().String(),
		Label:          label,
		Timestamp:      at,
		DeviceOnline:   env.Online,
		ProbingEnabled: probingEnabled,
		Latency:        analysis.Aggregate(plan.Primary),
		DNS:            analysis.DNS(probingEnabled, evidence),
		Captive:        analysis.Captive(probingEnabled, env.Online, evidence, plan.Captive),
		Outcomes:       outcomes,
		Environment:    env.Clone(),
	}
	if plan.Resolution != nil {
		res := *plan.Resolution
		result.Resolution = &res
	}
	return result
}
