package models

// Transparency records whether a probe's response was observable.
type Transparency string

const (
	TransparencyTransparent Transparency = "transparent"
	TransparencyOpaque      Transparency = "opaque"
	TransparencyError       Transparency = "error"
)

// ErrorKind classifies why a probe did not complete.
type ErrorKind string

const (
	ErrorTimeout ErrorKind = "timeout"
	ErrorNetwork ErrorKind = "network"
	ErrorAborted ErrorKind = "aborted"
	ErrorInvalid ErrorKind = "invalid"
)

// ProbeOutcome captures the result of one timed probe.
type ProbeOutcome struct {
	EndpointID   string       `json:"endpoint_id"`
	Role         Role         `json:"role"`
	Completed    bool         `json:"completed"`
	ElapsedMs    int64        `json:"elapsed_ms"`
	Transparency Transparency `json:"transparency"`
	ErrorKind    ErrorKind    `json:"error_kind,omitempty"`
	StatusCode   *int         `json:"status_code,omitempty"`
}

// Clone returns a copy that shares no pointers with o.
func (o ProbeOutcome) Clone() ProbeOutcome {
	if o.StatusCode != nil {
		code := *o.StatusCode
		o.StatusCode = &code
	}
	return o
}

// FindOutcome returns the outcome recorded for role.
func FindOutcome(outcomes []ProbeOutcome, role Role) (ProbeOutcome, bool) {
	for _, o := range outcomes {
		if o.Role == role {
			return o, true
		}
	}
	return ProbeOutcome{}, false
}
