package session

import (
	"errors"

	"linkdoctor/internal/analysis"
	"linkdoctor/internal/models"
)

// Phase is the scan session state.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseRunning       Phase = "running"
	PhaseBaselineReady Phase = "baseline-ready"
	PhaseRunningAfter  Phase = "running-after"
	PhaseComplete      Phase = "complete"
)

// Running reports whether a scan is in flight.
func (p Phase) Running() bool {
	return p == PhaseRunning || p == PhaseRunningAfter
}

var (
	// ErrScanInFlight rejects a start while another scan is running.
	ErrScanInFlight = errors.New("scan already in flight")
	// ErrIllegalTransition rejects a call the current phase does not allow.
	ErrIllegalTransition = errors.New("illegal session transition")
)

// Progress is an advisory step counter. It carries no correctness meaning.
type Progress struct {
	Step  int `json:"step"`
	Total int `json:"total"`
}

// View is a read-only copy of the session aggregate.
type View struct {
	Phase          Phase              `json:"phase"`
	Baseline       *models.ScanResult `json:"baseline"`
	After          *models.ScanResult `json:"after"`
	ABEnabled      bool               `json:"ab_enabled"`
	ProbingEnabled bool               `json:"probing_enabled"`
	Progress       Progress           `json:"progress"`
}

// Latest returns the most recent result, preferring the after-reset phase.
func (v View) Latest() *models.ScanResult {
	if v.After != nil {
		return v.After
	}
	return v.Baseline
}

// Snapshot is everything the presentation layer may read.
type Snapshot struct {
	Session    View                 `json:"session"`
	Diagnosis  *analysis.Diagnosis  `json:"diagnosis"`
	Confidence analysis.Confidence  `json:"confidence"`
	Comparison *analysis.Comparison `json:"comparison"`
}
