package session

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkdoctor/internal/analysis"
	"linkdoctor/internal/config"
	"linkdoctor/internal/environment"
	"linkdoctor/internal/models"
	"linkdoctor/internal/probe"
)

// stubProber completes each role after the configured elapsed time, or fails
// it when the role is listed in failures.
func stubProber(elapsed map[models.Role]int64, failures map[models.Role]bool, calls *atomic.Int32) probe.Prober {
	return probe.ProberFunc(func(ctx context.Context, e models.Endpoint) models.ProbeOutcome {
		calls.Add(1)
		if failures[e.Role] {
			return probe.Failed(e, models.ErrorTimeout, 2500*time.Millisecond)
		}
		return models.ProbeOutcome{
			EndpointID:   e.ID,
			Role:         e.Role,
			Completed:    true,
			ElapsedMs:    elapsed[e.Role],
			Transparency: models.TransparencyTransparent,
		}
	})
}

func scanWith(t *testing.T, online, probing bool, failures map[models.Role]bool) (Snapshot, int32) {
	t.Helper()

	var calls atomic.Int32
	p := stubProber(map[models.Role]int64{
		models.RolePrimaryA:   120,
		models.RolePrimaryB:   150,
		models.RolePrimaryC:   900,
		models.RoleCaptive:    80,
		models.RoleResolution: 20,
	}, failures, &calls)
	runner := probe.New(map[models.Kind]probe.Prober{models.KindHTTP: p, models.KindDNS: p}, nil, nil)
	scanner := NewProbeScanner(runner, config.DefaultEndpoints())

	o := New(scanner, environment.NewStatic(online), Options{ABEnabled: true, ProbingEnabled: probing})
	t.Cleanup(o.Close)

	require.NoError(t, o.Start())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.Wait(ctx))
	return o.Snapshot(), calls.Load()
}

func TestScan_ProbingDisabled(t *testing.T) {
	snap, calls := scanWith(t, true, false, nil)

	assert.Zero(t, calls, "no network activity with probing disabled")
	assert.Equal(t, PhaseComplete, snap.Session.Phase)
	r := snap.Session.Baseline
	require.NotNil(t, r)
	assert.Empty(t, r.Outcomes)
	assert.Nil(t, r.Resolution)
	assert.Nil(t, r.Latency.BestMs)
	assert.Equal(t, models.Unknown, r.DNS.OK)
	assert.Equal(t, models.Unknown, r.Captive.Suspected)

	require.NotNil(t, snap.Diagnosis)
	assert.Equal(t, "Limited Scan Mode", snap.Diagnosis.Title)
	assert.Equal(t, analysis.SeverityAmber, snap.Diagnosis.Severity)
	assert.Equal(t, analysis.ConfidenceLow, snap.Confidence)
}

func TestScan_Healthy(t *testing.T) {
	snap, calls := scanWith(t, true, true, nil)

	assert.EqualValues(t, 5, calls)
	r := snap.Session.Baseline
	require.NotNil(t, r)
	require.NotNil(t, r.Latency.BestMs)
	assert.EqualValues(t, 120, *r.Latency.BestMs)
	assert.EqualValues(t, 900, *r.Latency.WorstMs)
	assert.Equal(t, models.TierNormal, r.Latency.Tier)
	assert.Equal(t, models.True, r.DNS.OK)
	assert.Equal(t, models.False, r.Captive.Suspected)
	assert.Len(t, r.Outcomes, 4, "primaries and captive probe")
	require.NotNil(t, r.Resolution)
	assert.Equal(t, models.RoleResolution, r.Resolution.Role)
	assert.NotEmpty(t, r.ID)

	assert.Equal(t, "Healthy", snap.Diagnosis.Title)
	assert.Equal(t, analysis.SeverityGreen, snap.Diagnosis.Severity)
	assert.Equal(t, analysis.ConfidenceMedium, snap.Confidence)
	assert.Equal(t, PhaseBaselineReady, snap.Session.Phase)
}

func TestScan_DNSBroken(t *testing.T) {
	snap, _ := scanWith(t, true, true, map[models.Role]bool{
		models.RolePrimaryB:   true,
		models.RolePrimaryC:   true,
		models.RoleResolution: true,
	})

	r := snap.Session.Baseline
	assert.Equal(t, models.False, r.DNS.OK)
	assert.Equal(t, "DNS / APN Issue", snap.Diagnosis.Title)
}

func TestScan_CaptivePortal(t *testing.T) {
	snap, _ := scanWith(t, true, true, map[models.Role]bool{
		models.RoleCaptive:    true,
		models.RolePrimaryB:   true,
		models.RolePrimaryC:   true,
		models.RoleResolution: true,
	})

	r := snap.Session.Baseline
	assert.Equal(t, models.True, r.Captive.Suspected)
	assert.Equal(t, models.False, r.DNS.OK)
	assert.Equal(t, "Captive Portal Suspected", snap.Diagnosis.Title, "captive outranks DNS")
}

func TestScan_NothingCompletes(t *testing.T) {
	all := map[models.Role]bool{}
	for _, role := range models.Roles {
		all[role] = true
	}
	snap, _ := scanWith(t, true, true, all)

	r := snap.Session.Baseline
	assert.Nil(t, r.Latency.BestMs)
	assert.Equal(t, models.True, r.DNS.OK, "no DNS claim without transport evidence")
	assert.Equal(t, models.False, r.Captive.Suspected, "no captive claim without transport evidence")
	assert.NotEqual(t, analysis.SeverityGreen, snap.Diagnosis.Severity)
	assert.Equal(t, "No Internet Access", snap.Diagnosis.Title)
}

func TestScan_Offline(t *testing.T) {
	snap, _ := scanWith(t, false, true, map[models.Role]bool{models.RoleCaptive: true})

	assert.Equal(t, models.False, snap.Session.Baseline.Captive.Suspected)
	assert.Equal(t, "No Connectivity", snap.Diagnosis.Title)
	assert.Equal(t, analysis.SeverityRed, snap.Diagnosis.Severity)
}

func TestScan_ConfidenceHighWithBothSignals(t *testing.T) {
	var calls atomic.Int32
	p := stubProber(map[models.Role]int64{}, nil, &calls)
	runner := probe.New(map[models.Kind]probe.Prober{models.KindHTTP: p, models.KindDNS: p}, nil, nil)

	env := environment.NewStatic(true)
	busy := int64(300)
	env.Apply(environment.Update{NetworkHint: &models.NetworkHint{Supported: true, EffectiveType: "4g"}, BusyMs: &busy})

	o := New(NewProbeScanner(runner, config.DefaultEndpoints()), env, Options{ProbingEnabled: true})
	t.Cleanup(o.Close)
	assert.Equal(t, analysis.ConfidenceHigh, o.Snapshot().Confidence, "scored from live signals before any scan")

	require.NoError(t, o.Start())
	require.NoError(t, o.Wait(context.Background()))
	snap := o.Snapshot()
	assert.Equal(t, analysis.ConfidenceHigh, snap.Confidence)
	require.NotNil(t, snap.Session.Baseline.Environment.NetworkHint)
}

// servfailResolver runs a local resolver that fails every query.
func servfailResolver(t *testing.T) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
			m := new(dns.Msg)
			m.SetRcode(r, dns.RcodeServerFailure)
			_ = w.WriteMsg(m)
		}),
	}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })
	return pc.LocalAddr().String()
}

func TestScan_ResolverServfailIsDNSIssue(t *testing.T) {
	var calls atomic.Int32
	httpProber := stubProber(map[models.Role]int64{
		models.RolePrimaryA: 120,
		models.RoleCaptive:  80,
	}, map[models.Role]bool{
		models.RolePrimaryB: true,
		models.RolePrimaryC: true,
	}, &calls)

	endpoints := config.DefaultEndpoints()
	for i := range endpoints {
		if endpoints[i].Role == models.RoleResolution {
			endpoints[i].Resolver = servfailResolver(t)
		}
	}
	runner := probe.New(map[models.Kind]probe.Prober{
		models.KindHTTP: httpProber,
		models.KindDNS:  probe.NewDNSProber(2 * time.Second),
	}, nil, nil)

	o := New(NewProbeScanner(runner, endpoints), environment.NewStatic(true), Options{ProbingEnabled: true})
	t.Cleanup(o.Close)
	require.NoError(t, o.Start())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.Wait(ctx))

	snap := o.Snapshot()
	r := snap.Session.Baseline
	require.NotNil(t, r.Resolution)
	assert.False(t, r.Resolution.Completed, "SERVFAIL resolves nothing")
	assert.Equal(t, models.ErrorNetwork, r.Resolution.ErrorKind)
	assert.Equal(t, models.False, r.DNS.OK)
	assert.Equal(t, "DNS / APN Issue", snap.Diagnosis.Title)
	assert.Equal(t, analysis.SeverityAmber, snap.Diagnosis.Severity)
}
