package probe

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkdoctor/internal/models"
)

type callLog struct {
	mu     sync.Mutex
	starts map[models.Role]time.Time
	ends   map[models.Role]time.Time
	calls  int
}

func newCallLog() *callLog {
	return &callLog{starts: map[models.Role]time.Time{}, ends: map[models.Role]time.Time{}}
}

// sleepyProber completes every probe after delay and records timings.
func sleepyProber(log *callLog, delay time.Duration) Prober {
	return ProberFunc(func(ctx context.Context, e models.Endpoint) models.ProbeOutcome {
		log.mu.Lock()
		log.calls++
		log.starts[e.Role] = time.Now()
		log.mu.Unlock()

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Failed(e, models.ErrorAborted, delay)
		}

		log.mu.Lock()
		log.ends[e.Role] = time.Now()
		log.mu.Unlock()
		return models.ProbeOutcome{
			EndpointID:   e.ID,
			Role:         e.Role,
			Completed:    true,
			ElapsedMs:    elapsedMs(delay),
			Transparency: models.TransparencyTransparent,
		}
	})
}

type countingRecorder struct {
	mu       sync.Mutex
	observed []models.ProbeOutcome
}

func (r *countingRecorder) ObserveProbe(o models.ProbeOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observed = append(r.observed, o)
}

func planEndpoints() []models.Endpoint {
	return []models.Endpoint{
		{ID: "a", Role: models.RolePrimaryA},
		{ID: "b", Role: models.RolePrimaryB},
		{ID: "c", Role: models.RolePrimaryC},
		{ID: "captive", Role: models.RoleCaptive},
		{ID: "resolve", Role: models.RoleResolution, Kind: models.KindDNS},
	}
}

func TestExecutor_DisabledDoesNothing(t *testing.T) {
	log := newCallLog()
	x := New(map[models.Kind]Prober{
		models.KindHTTP: sleepyProber(log, time.Millisecond),
		models.KindDNS:  sleepyProber(log, time.Millisecond),
	}, nil, nil)

	plan := x.Run(context.Background(), planEndpoints(), false)

	assert.Empty(t, plan.Outcomes())
	assert.Nil(t, plan.Captive)
	assert.Nil(t, plan.Resolution)
	assert.Zero(t, log.calls, "no probe may run while probing is disabled")
}

func TestExecutor_PrimariesRunConcurrently(t *testing.T) {
	log := newCallLog()
	delay := 150 * time.Millisecond
	x := New(map[models.Kind]Prober{
		models.KindHTTP: sleepyProber(log, delay),
		models.KindDNS:  sleepyProber(log, delay),
	}, nil, nil)

	endpoints := planEndpoints()[:3]
	start := time.Now()
	plan := x.Run(context.Background(), endpoints, true)
	took := time.Since(start)

	require.Len(t, plan.Primary, 3)
	for i, o := range plan.Primary {
		assert.Equal(t, endpoints[i].ID, o.EndpointID, "outcomes keep plan order")
		assert.True(t, o.Completed)
	}
	assert.Less(t, took, 3*delay, "primary timers must overlap")
}

func TestExecutor_DependentProbesAfterBarrier(t *testing.T) {
	log := newCallLog()
	rec := &countingRecorder{}
	x := New(map[models.Kind]Prober{
		models.KindHTTP: sleepyProber(log, 30*time.Millisecond),
		models.KindDNS:  sleepyProber(log, 30*time.Millisecond),
	}, nil, rec)

	plan := x.Run(context.Background(), planEndpoints(), true)

	require.NotNil(t, plan.Captive)
	require.NotNil(t, plan.Resolution)
	assert.Len(t, plan.Outcomes(), 5)
	assert.Len(t, rec.observed, 5)

	lastPrimary := log.ends[models.RolePrimaryA]
	for _, r := range []models.Role{models.RolePrimaryB, models.RolePrimaryC} {
		if log.ends[r].After(lastPrimary) {
			lastPrimary = log.ends[r]
		}
	}
	assert.False(t, log.starts[models.RoleCaptive].Before(lastPrimary), "captive probe starts after the primary barrier")
	assert.False(t, log.starts[models.RoleResolution].Before(log.ends[models.RoleCaptive]), "resolution probe follows the captive probe")
}

func TestExecutor_MissingDependentEndpoints(t *testing.T) {
	log := newCallLog()
	x := New(map[models.Kind]Prober{models.KindHTTP: sleepyProber(log, time.Millisecond)}, nil, nil)

	plan := x.Run(context.Background(), planEndpoints()[:3], true)
	assert.Nil(t, plan.Captive)
	assert.Nil(t, plan.Resolution)
	assert.Len(t, plan.Primary, 3)
}

func TestExecutor_UnknownKindResolvesToFailure(t *testing.T) {
	x := New(map[models.Kind]Prober{}, nil, nil)

	plan := x.Run(context.Background(), planEndpoints(), true)
	require.NotNil(t, plan.Resolution)
	assert.False(t, plan.Resolution.Completed)
	assert.Equal(t, models.ErrorInvalid, plan.Resolution.ErrorKind)
	for _, o := range plan.Primary {
		assert.False(t, o.Completed)
	}
}

func TestExecutor_CancelAbortsInFlight(t *testing.T) {
	log := newCallLog()
	x := New(map[models.Kind]Prober{
		models.KindHTTP: sleepyProber(log, 5*time.Second),
		models.KindDNS:  sleepyProber(log, 5*time.Second),
	}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	plan := x.Run(ctx, planEndpoints(), true)
	assert.Less(t, time.Since(start), 2*time.Second)
	for _, o := range plan.Outcomes() {
		assert.False(t, o.Completed)
		assert.Equal(t, models.ErrorAborted, o.ErrorKind)
	}
}
