// Package probe issues bounded, non-privileged reachability probes and runs
// the fixed probe plan used by a scan.
package probe

import (
	"context"
	"errors"
	"net"
	"time"

	"linkdoctor/internal/models"
)

// Prober runs a single timed probe. Implementations never return an error:
// every failure path resolves to an outcome with Completed=false.
type Prober interface {
	Probe(ctx context.Context, endpoint models.Endpoint) models.ProbeOutcome
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, endpoint models.Endpoint) models.ProbeOutcome

func (f ProberFunc) Probe(ctx context.Context, endpoint models.Endpoint) models.ProbeOutcome {
	return f(ctx, endpoint)
}

// Failed builds an outcome for a probe that did not complete.
func Failed(endpoint models.Endpoint, kind models.ErrorKind, elapsed time.Duration) models.ProbeOutcome {
	return models.ProbeOutcome{
		EndpointID:   endpoint.ID,
		Role:         endpoint.Role,
		Completed:    false,
		ElapsedMs:    elapsedMs(elapsed),
		Transparency: models.TransparencyError,
		ErrorKind:    kind,
	}
}

// classify maps a probe error to the error taxonomy. parent is the context
// the caller handed in, before the per-probe deadline was applied.
func classify(parent context.Context, err error) models.ErrorKind {
	if parent.Err() != nil {
		return models.ErrorAborted
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.ErrorTimeout
	}
	return models.ErrorNetwork
}

func elapsedMs(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return int64(d / time.Millisecond)
}
