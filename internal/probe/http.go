package probe

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"linkdoctor/internal/models"
)

// Compile-time interface guard.
var _ Prober = (*HTTPProber)(nil)

const maxDrainBytes = 4 << 10

// HTTPProber sends one GET per probe over a fresh connection.
type HTTPProber struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPProber creates a prober whose requests are aborted after timeout.
// Redirects are never followed: a redirect already proves the round trip.
func NewHTTPProber(timeout time.Duration) *HTTPProber {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: timeout,
		}).DialContext,
		TLSHandshakeTimeout: timeout,
		DisableKeepAlives:   true,
	}
	return &HTTPProber{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		timeout: timeout,
	}
}

// Probe issues the request and measures the time until response headers arrive.
func (p *HTTPProber) Probe(ctx context.Context, endpoint models.Endpoint) models.ProbeOutcome {
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.URL, http.NoBody)
	if err != nil {
		return Failed(endpoint, models.ErrorInvalid, 0)
	}
	req.Header.Set("Cache-Control", "no-cache")

	start := time.Now()
	resp, err := p.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return Failed(endpoint, classify(parent, err), elapsed)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	resp.Body.Close()

	out := models.ProbeOutcome{
		EndpointID:   endpoint.ID,
		Role:         endpoint.Role,
		Completed:    true,
		ElapsedMs:    elapsedMs(elapsed),
		Transparency: models.TransparencyOpaque,
	}
	if !endpoint.Opaque {
		code := resp.StatusCode
		out.Transparency = models.TransparencyTransparent
		out.StatusCode = &code
	}
	return out
}
