package models

import "strings"

// Role tags an endpoint with the part it plays in the probe plan.
type Role string

const (
	RolePrimaryA   Role = "primary-a"
	RolePrimaryB   Role = "primary-b"
	RolePrimaryC   Role = "primary-c"
	RoleCaptive    Role = "captive-probe"
	RoleResolution Role = "resolution-probe"
)

// Roles lists every role in plan order.
var Roles = []Role{RolePrimaryA, RolePrimaryB, RolePrimaryC, RoleCaptive, RoleResolution}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Primary reports whether the role belongs to the concurrent first round.
func (r Role) Primary() bool {
	return r == RolePrimaryA || r == RolePrimaryB || r == RolePrimaryC
}

// NameBearing reports whether a completed probe for this role proves that a
// human-readable domain name was resolved. primary-a targets a bare IP trace
// endpoint and the captive probe may be answered by a portal, so neither counts.
func (r Role) NameBearing() bool {
	return r == RolePrimaryB || r == RolePrimaryC || r == RoleResolution
}

// Kind selects how an endpoint is probed.
type Kind string

const (
	KindHTTP Kind = "http"
	KindDNS  Kind = "dns"
)

// Endpoint defines a probe target. Endpoints are loaded once at start.
type Endpoint struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	// URL is the request URL for http endpoints and the host to resolve for dns endpoints.
	URL  string `yaml:"url" json:"url"`
	Role Role   `yaml:"role" json:"role"`
	Kind Kind   `yaml:"kind" json:"kind"`
	// Opaque endpoints never have their response status inspected.
	Opaque bool `yaml:"opaque" json:"opaque"`
	// Resolver is an optional host:port used by dns endpoints instead of the system resolver.
	Resolver string `yaml:"resolver,omitempty" json:"resolver,omitempty"`
}

// Host returns the hostname a dns endpoint resolves.
func (e Endpoint) Host() string {
	host := strings.TrimSpace(e.URL)
	host = strings.TrimPrefix(host, "dns://")
	if i := strings.IndexAny(host, "/?"); i >= 0 {
		host = host[:i]
	}
	return host
}

// ByRole returns the first endpoint with the given role.
func ByRole(endpoints []Endpoint, role Role) (Endpoint, bool) {
	for _, e := range endpoints {
		if e.Role == role {
			return e, true
		}
	}
	return Endpoint{}, false
}
