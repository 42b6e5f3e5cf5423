package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"

	"linkdoctor/internal/models"
)

// Compile-time interface guard.
var _ Prober = (*DNSProber)(nil)

// DefaultResolvConf is where the system resolver is read from.
const DefaultResolvConf = "/etc/resolv.conf"

// DNSProber sends one A query for the endpoint host. An answer or NXDOMAIN
// counts as a completed round trip; SERVFAIL, REFUSED and other resolver
// errors mean no name was resolved and are reported as network failures.
type DNSProber struct {
	timeout    time.Duration
	resolvConf string
}

// NewDNSProber creates a prober that uses the system resolver unless an
// endpoint names its own.
func NewDNSProber(timeout time.Duration) *DNSProber {
	return &DNSProber{timeout: timeout, resolvConf: DefaultResolvConf}
}

// Probe resolves the endpoint host.
func (p *DNSProber) Probe(ctx context.Context, endpoint models.Endpoint) models.ProbeOutcome {
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	host := endpoint.Host()
	if host == "" {
		return Failed(endpoint, models.ErrorInvalid, 0)
	}
	server, err := p.server(endpoint)
	if err != nil {
		return Failed(endpoint, models.ErrorNetwork, 0)
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)
	msg.RecursionDesired = true

	client := &dns.Client{Timeout: p.timeout}
	start := time.Now()
	reply, _, err := client.ExchangeContext(ctx, msg, server)
	elapsed := time.Since(start)
	if err != nil {
		return Failed(endpoint, classify(parent, err), elapsed)
	}
	if !resolved(reply) {
		return Failed(endpoint, models.ErrorNetwork, elapsed)
	}

	return models.ProbeOutcome{
		EndpointID:   endpoint.ID,
		Role:         endpoint.Role,
		Completed:    true,
		ElapsedMs:    elapsedMs(elapsed),
		Transparency: models.TransparencyTransparent,
	}
}

// resolved reports whether the resolver did its job. NXDOMAIN is an
// authoritative answer about the name.
func resolved(reply *dns.Msg) bool {
	if reply == nil {
		return false
	}
	return reply.Rcode == dns.RcodeSuccess || reply.Rcode == dns.RcodeNameError
}

func (p *DNSProber) server(endpoint models.Endpoint) (string, error) {
	if endpoint.Resolver != "" {
		if _, _, err := net.SplitHostPort(endpoint.Resolver); err == nil {
			return endpoint.Resolver, nil
		}
		return net.JoinHostPort(endpoint.Resolver, "53"), nil
	}
	cfg, err := dns.ClientConfigFromFile(p.resolvConf)
	if err != nil {
		return "", fmt.Errorf("read resolver config: %w", err)
	}
	if len(cfg.Servers) == 0 {
		return "", errors.New("no nameservers configured")
	}
	return net.JoinHostPort(cfg.Servers[0], cfg.Port), nil
}
