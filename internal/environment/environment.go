// Package environment supplies the device signals captured with each scan.
package environment

import (
	"net"
	"sync"

	"linkdoctor/internal/models"
)

// Source returns the current device signals.
type Source interface {
	Snapshot() models.Environment
}

// Update changes device signals. Nil fields are left untouched.
type Update struct {
	Online      *bool               `json:"online,omitempty"`
	NetworkHint *models.NetworkHint `json:"network_hint,omitempty"`
	BusyMs      *int64              `json:"busy_ms,omitempty"`
	// ClearHint and ClearBusy drop a previously pushed signal.
	ClearHint bool `json:"clear_network_hint,omitempty"`
	ClearBusy bool `json:"clear_busy_ms,omitempty"`
}

// Device derives the online flag from the host interfaces unless a caller
// overrides it, and holds the optional hint and busy signals pushed by clients.
type Device struct {
	mu     sync.RWMutex
	online *bool
	hint   *models.NetworkHint
	busyMs *int64
	detect func() bool
}

// NewDevice creates a source backed by interface detection.
func NewDevice() *Device {
	return &Device{detect: InterfacesOnline}
}

// NewStatic creates a source with a fixed online flag and no detection.
func NewStatic(online bool) *Device {
	return &Device{detect: func() bool { return online }}
}

// Snapshot returns a copy of the current signals.
func (d *Device) Snapshot() models.Environment {
	d.mu.RLock()
	defer d.mu.RUnlock()

	env := models.Environment{NetworkHint: d.hint, BusyMs: d.busyMs}
	if d.online != nil {
		env.Online = *d.online
	} else {
		env.Online = d.detect()
	}
	return env.Clone()
}

// Apply merges an update into the current signals.
func (d *Device) Apply(u Update) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if u.Online != nil {
		v := *u.Online
		d.online = &v
	}
	if u.ClearHint {
		d.hint = nil
	}
	if u.NetworkHint != nil {
		hint := models.Environment{NetworkHint: u.NetworkHint}.Clone().NetworkHint
		d.hint = hint
	}
	if u.ClearBusy {
		d.busyMs = nil
	}
	if u.BusyMs != nil {
		v := *u.BusyMs
		d.busyMs = &v
	}
}

// InterfacesOnline reports whether any non-loopback interface is up and has an address.
func InterfacesOnline() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}
