package models

// NetworkHint mirrors the optional connection-type information a device may expose.
type NetworkHint struct {
	Supported     bool     `json:"supported"`
	EffectiveType string   `json:"effective_type,omitempty"`
	DownlinkMbps  *float64 `json:"downlink_mbps,omitempty"`
	RTTMs         *int64   `json:"rtt_ms,omitempty"`
	SaveData      bool     `json:"save_data"`
}

// Environment is the set of device signals captured alongside a scan.
type Environment struct {
	Online      bool         `json:"online"`
	NetworkHint *NetworkHint `json:"network_hint,omitempty"`
	// BusyMs is the cumulative time the device reported itself busy.
	BusyMs *int64 `json:"busy_ms,omitempty"`
}

// HasDeviceHint reports whether a usable network-type hint is present.
func (e Environment) HasDeviceHint() bool {
	return e.NetworkHint != nil && e.NetworkHint.Supported
}

// HasBusySignal reports whether a busy-duration signal is present.
func (e Environment) HasBusySignal() bool {
	return e.BusyMs != nil
}

// Clone returns a copy that shares no pointers with e.
func (e Environment) Clone() Environment {
	if e.NetworkHint != nil {
		hint := *e.NetworkHint
		if hint.DownlinkMbps != nil {
			v := *hint.DownlinkMbps
			hint.DownlinkMbps = &v
		}
		hint.RTTMs = cloneInt64(hint.RTTMs)
		e.NetworkHint = &hint
	}
	e.BusyMs = cloneInt64(e.BusyMs)
	return e
}
