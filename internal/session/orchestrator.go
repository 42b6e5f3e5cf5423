// Package session owns the scan session aggregate and its baseline/after-reset
// state machine.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"linkdoctor/internal/analysis"
	"linkdoctor/internal/environment"
	"linkdoctor/internal/models"
)

// ScanObserver is notified of every scan result that is kept.
type ScanObserver interface {
	ObserveScan(result models.ScanResult, diagnosis analysis.Diagnosis)
}

// Options configures an Orchestrator.
type Options struct {
	ABEnabled        bool
	ProbingEnabled   bool
	ProgressSteps    int
	ProgressInterval time.Duration
	Logger           *zap.Logger
	Observer         ScanObserver
}

// Orchestrator is the sole owner of the session state. Every mutation happens
// under mu; scans run in their own goroutine and publish their result back
// under the same lock.
type Orchestrator struct {
	scanner  Scanner
	env      environment.Source
	logger   *zap.Logger
	observer ScanObserver
	steps    int
	interval time.Duration

	base       context.Context
	baseCancel context.CancelFunc

	mu             sync.Mutex
	phase          Phase
	baseline       *models.ScanResult
	after          *models.ScanResult
	abEnabled      bool
	probingEnabled bool
	progress       Progress
	gen            uint64
	cancel         context.CancelFunc
	done           chan struct{}

	subMu  sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// New creates an idle session.
func New(scanner Scanner, env environment.Source, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	steps := opts.ProgressSteps
	if steps <= 0 {
		steps = 10
	}
	base, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		scanner:        scanner,
		env:            env,
		logger:         logger,
		observer:       opts.Observer,
		steps:          steps,
		interval:       opts.ProgressInterval,
		base:           base,
		baseCancel:     cancel,
		phase:          PhaseIdle,
		abEnabled:      opts.ABEnabled,
		probingEnabled: opts.ProbingEnabled,
		subs:           make(map[int]chan struct{}),
	}
}

// Start begins a baseline scan. It is legal only from idle or complete.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	switch o.phase {
	case PhaseIdle, PhaseComplete:
	case PhaseRunning, PhaseRunningAfter:
		o.mu.Unlock()
		return ErrScanInFlight
	default:
		o.mu.Unlock()
		return ErrIllegalTransition
	}
	o.after = nil
	o.phase = PhaseRunning
	o.launch(models.LabelBaseline)
	o.mu.Unlock()

	o.notify()
	return nil
}

// StartAfter begins the after-reset scan. It is legal only from baseline-ready.
func (o *Orchestrator) StartAfter() error {
	o.mu.Lock()
	switch o.phase {
	case PhaseBaselineReady:
	case PhaseRunning, PhaseRunningAfter:
		o.mu.Unlock()
		return ErrScanInFlight
	default:
		o.mu.Unlock()
		return ErrIllegalTransition
	}
	o.phase = PhaseRunningAfter
	o.launch(models.LabelAfterReset)
	o.mu.Unlock()

	o.notify()
	return nil
}

// SetProbing toggles outbound probing. Turning it off aborts any scan in
// flight and tears the session down to idle.
func (o *Orchestrator) SetProbing(enabled bool) {
	o.mu.Lock()
	o.probingEnabled = enabled
	if !enabled {
		o.abortLocked()
		o.phase = PhaseIdle
		o.baseline = nil
		o.after = nil
		o.progress = Progress{Total: o.steps}
	}
	o.mu.Unlock()

	if !enabled {
		o.logger.Info("probing disabled, session reset")
	}
	o.notify()
}

// SetABMode toggles the two-phase workflow. Turning it off drops any
// after-reset result; while waiting for or running the after-reset phase it
// also completes the session with the baseline only.
func (o *Orchestrator) SetABMode(enabled bool) {
	o.mu.Lock()
	o.abEnabled = enabled
	if !enabled {
		o.after = nil
		switch o.phase {
		case PhaseBaselineReady:
			o.phase = PhaseComplete
		case PhaseRunningAfter:
			o.abortLocked()
			o.phase = PhaseComplete
			o.progress = Progress{Step: o.steps, Total: o.steps}
		}
	}
	o.mu.Unlock()

	o.notify()
}

// Wait blocks until no scan is in flight.
func (o *Orchestrator) Wait(ctx context.Context) error {
	for {
		o.mu.Lock()
		if !o.phase.Running() || o.done == nil {
			o.mu.Unlock()
			return nil
		}
		done := o.done
		o.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close aborts any scan in flight. The session must not be started afterwards.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.abortLocked()
	if o.phase.Running() {
		o.phase = PhaseIdle
	}
	o.mu.Unlock()
	o.baseCancel()
	o.notify()
}

// Snapshot returns a read-only copy of the session with its derived views.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	view := View{
		Phase:          o.phase,
		Baseline:       o.baseline.Clone(),
		After:          o.after.Clone(),
		ABEnabled:      o.abEnabled,
		ProbingEnabled: o.probingEnabled,
		Progress:       o.progress,
	}
	o.mu.Unlock()

	snap := Snapshot{Session: view}
	if latest := view.Latest(); latest != nil {
		d := analysis.Diagnose(*latest)
		snap.Diagnosis = &d
		snap.Confidence = analysis.Score(latest.ProbingEnabled, latest.Environment.HasDeviceHint(), latest.Environment.HasBusySignal())
	} else {
		env := o.env.Snapshot()
		snap.Confidence = analysis.Score(view.ProbingEnabled, env.HasDeviceHint(), env.HasBusySignal())
	}
	snap.Comparison = analysis.Compare(view.Baseline, view.After)
	return snap
}

// Subscribe returns a channel signalled after every session change. The
// channel is coalescing: a slow reader sees one pending signal.
func (o *Orchestrator) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	o.subMu.Lock()
	id := o.nextID
	o.nextID++
	o.subs[id] = ch
	o.subMu.Unlock()

	return ch, func() {
		o.subMu.Lock()
		delete(o.subs, id)
		o.subMu.Unlock()
	}
}

func (o *Orchestrator) notify() {
	o.subMu.Lock()
	defer o.subMu.Unlock()
	for _, ch := range o.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// launch starts a scan goroutine. Caller holds mu.
func (o *Orchestrator) launch(label models.ScanLabel) {
	o.gen++
	gen := o.gen
	ctx, cancel := context.WithCancel(o.base)
	done := make(chan struct{})
	o.cancel = cancel
	o.done = done
	o.progress = Progress{Total: o.steps}

	probing := o.probingEnabled
	env := o.env.Snapshot()

	o.logger.Info("scan started",
		zap.String("label", string(label)),
		zap.Bool("probing_enabled", probing),
		zap.Bool("online", env.Online),
	)

	go o.tickProgress(ctx, gen)
	go o.run(ctx, cancel, done, gen, label, probing, env)
}

// abortLocked cancels the scan in flight and invalidates its result. Caller holds mu.
func (o *Orchestrator) abortLocked() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.gen++
}

func (o *Orchestrator) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}, gen uint64, label models.ScanLabel, probing bool, env models.Environment) {
	defer close(done)

	result := o.scanner.Scan(ctx, label, probing, env)
	cancel()

	o.mu.Lock()
	if gen != o.gen || !o.phase.Running() {
		o.mu.Unlock()
		o.logger.Debug("scan result discarded", zap.String("label", string(label)))
		return
	}

	stored := result.Clone()
	switch label {
	case models.LabelBaseline:
		o.baseline = stored
		if o.abEnabled && o.probingEnabled && result.ProbingEnabled {
			o.phase = PhaseBaselineReady
		} else {
			o.phase = PhaseComplete
		}
	case models.LabelAfterReset:
		o.after = stored
		o.phase = PhaseComplete
	}
	o.progress = Progress{Step: o.steps, Total: o.steps}
	o.cancel = nil
	phase := o.phase
	o.mu.Unlock()

	diagnosis := analysis.Diagnose(result)
	o.logger.Info("scan completed",
		zap.String("id", result.ID),
		zap.String("label", string(label)),
		zap.String("phase", string(phase)),
		zap.String("diagnosis", diagnosis.Rule),
		zap.String("severity", string(diagnosis.Severity)),
	)
	if o.observer != nil {
		o.observer.ObserveScan(result, diagnosis)
	}
	o.notify()
}

// tickProgress advances the advisory counter until the scan finishes. It never
// reaches the final step on its own; completion sets that.
func (o *Orchestrator) tickProgress(ctx context.Context, gen uint64) {
	if o.interval <= 0 {
		return
	}
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		o.mu.Lock()
		if gen != o.gen || !o.phase.Running() {
			o.mu.Unlock()
			return
		}
		advanced := false
		if o.progress.Step < o.progress.Total-1 {
			o.progress.Step++
			advanced = true
		}
		o.mu.Unlock()

		if advanced {
			o.notify()
		}
	}
}
