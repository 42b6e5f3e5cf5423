package analysis

import "linkdoctor/internal/models"

// CaptiveStallMs is the captive-probe duration treated as a stall.
const CaptiveStallMs int64 = 1800

// Evidence is what the probe round proved about the data path.
type Evidence struct {
	// TransportOK is true when any primary probe completed.
	TransportOK bool
	// DomainOK is true when any name-bearing probe completed.
	DomainOK bool
}

// CollectEvidence derives transport and domain evidence from any subset of outcomes.
func CollectEvidence(outcomes []models.ProbeOutcome) Evidence {
	var ev Evidence
	for _, o := range outcomes {
		if !o.Completed {
			continue
		}
		if o.Role.Primary() {
			ev.TransportOK = true
		}
		if o.Role.NameBearing() {
			ev.DomainOK = true
		}
	}
	return ev
}

// DNS flags broken name resolution only when something reached the internet
// while every name-bearing probe failed.
func DNS(probingEnabled bool, ev Evidence) models.DNSVerdict {
	if !probingEnabled {
		return models.DNSVerdict{OK: models.Unknown, Note: "Probing disabled; DNS not checked."}
	}
	if ev.TransportOK && !ev.DomainOK {
		return models.DNSVerdict{
			OK:   models.False,
			Note: "Transport reachable but name-based endpoints failed.",
		}
	}
	if !ev.TransportOK {
		return models.DNSVerdict{
			OK:   models.True,
			Note: "No transport evidence; DNS cannot be blamed.",
		}
	}
	return models.DNSVerdict{OK: models.True, Note: "Name-based endpoints reachable."}
}

// Captive suspects a portal when the primary round got through but the
// dedicated captive probe failed or stalled.
func Captive(probingEnabled, deviceOnline bool, ev Evidence, captive *models.ProbeOutcome) models.CaptiveVerdict {
	if !probingEnabled {
		return models.CaptiveVerdict{Suspected: models.Unknown, Note: "Probing disabled; captive portal not checked."}
	}
	if captive == nil {
		return models.CaptiveVerdict{Suspected: models.Unknown, Note: "Captive check unavailable."}
	}

	anomaly := !captive.Completed || captive.ElapsedMs >= CaptiveStallMs
	suspected := deviceOnline && ev.TransportOK && anomaly

	var note string
	switch {
	case suspected && !captive.Completed:
		note = "Captive check failed while other traffic got through."
	case suspected:
		note = "Captive check stalled while other traffic got through."
	case anomaly:
		note = "Captive check failed, but without transport evidence a portal cannot be told apart from an outage."
	default:
		note = "Captive check completed normally."
	}
	return models.CaptiveVerdict{Suspected: models.TriOf(suspected), Note: note}
}
