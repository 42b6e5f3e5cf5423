package probe

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"linkdoctor/internal/models"
)

// Recorder observes every finished probe.
type Recorder interface {
	ObserveProbe(outcome models.ProbeOutcome)
}

// Plan holds the outcomes of one run of the probe plan.
type Plan struct {
	Primary    []models.ProbeOutcome
	Captive    *models.ProbeOutcome
	Resolution *models.ProbeOutcome
}

// Outcomes returns every outcome in plan order.
func (p Plan) Outcomes() []models.ProbeOutcome {
	out := make([]models.ProbeOutcome, 0, len(p.Primary)+2)
	out = append(out, p.Primary...)
	if p.Captive != nil {
		out = append(out, *p.Captive)
	}
	if p.Resolution != nil {
		out = append(out, *p.Resolution)
	}
	return out
}

// Executor runs the fixed probe plan: the primary endpoints concurrently, then
// the captive and resolution probes one after the other.
type Executor struct {
	probers  map[models.Kind]Prober
	recorder Recorder
	logger   *zap.Logger
}

// NewExecutor wires the default HTTP and DNS probers.
func NewExecutor(timeout time.Duration, logger *zap.Logger, recorder Recorder) *Executor {
	return New(map[models.Kind]Prober{
		models.KindHTTP: NewHTTPProber(timeout),
		models.KindDNS:  NewDNSProber(timeout),
	}, logger, recorder)
}

// New creates an executor from explicit probers. recorder may be nil.
func New(probers map[models.Kind]Prober, logger *zap.Logger, recorder Recorder) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{probers: probers, recorder: recorder, logger: logger}
}

// Run executes the plan. With probing disabled it returns an empty plan and
// touches no network at all.
func (x *Executor) Run(ctx context.Context, endpoints []models.Endpoint, probingEnabled bool) Plan {
	if !probingEnabled {
		return Plan{}
	}

	var primaries []models.Endpoint
	for _, e := range endpoints {
		if e.Role.Primary() {
			primaries = append(primaries, e)
		}
	}

	plan := Plan{Primary: make([]models.ProbeOutcome, len(primaries))}

	// Each goroutine owns one slot; probe errors never cancel siblings.
	var g errgroup.Group
	for i, e := range primaries {
		i, e := i, e
		g.Go(func() error {
			plan.Primary[i] = x.probe(ctx, e)
			return nil
		})
	}
	_ = g.Wait()

	if e, ok := models.ByRole(endpoints, models.RoleCaptive); ok {
		out := x.probe(ctx, e)
		plan.Captive = &out
	}
	if e, ok := models.ByRole(endpoints, models.RoleResolution); ok {
		out := x.probe(ctx, e)
		plan.Resolution = &out
	}
	return plan
}

func (x *Executor) probe(ctx context.Context, endpoint models.Endpoint) models.ProbeOutcome {
	kind := endpoint.Kind
	if kind == "" {
		kind = models.KindHTTP
	}

	var out models.ProbeOutcome
	if p, ok := x.probers[kind]; ok {
		out = p.Probe(ctx, endpoint)
	} else {
		out = Failed(endpoint, models.ErrorInvalid, 0)
	}

	if !out.Completed {
		x.logger.Debug("probe failed",
			zap.String("endpoint", endpoint.ID),
			zap.String("role", string(endpoint.Role)),
			zap.String("error_kind", string(out.ErrorKind)),
			zap.Int64("elapsed_ms", out.ElapsedMs),
		)
	}
	if x.recorder != nil {
		x.recorder.ObserveProbe(out)
	}
	return out
}
