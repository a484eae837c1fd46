package sla

import (
	"time"

	"github.com/triagehq/triage-service/internal/domain"
)

// Severity classifies how badly a ticket is tracking against its SLA window.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityWarning  Severity = "warning"
	SeverityBreached Severity = "breached"
	SeverityCritical Severity = "critical"
)

// Fixed policy bands: a warning fires inside the last quarter of the
// response window, critical once elapsed time exceeds double the window.
const (
	warningBand        = 0.25
	criticalMultiplier = 2
)

// Status is the derived SLA position of a ticket at one instant. It is
// computed fresh from wall-clock time on every call and never persisted.
type Status struct {
	MinutesElapsed   int
	MinutesRemaining *int
	IsBreached       bool
	Severity         Severity
}

// Evaluate computes the SLA status of a ticket against an optional rule at
// the reference time now. It is a pure function: same inputs, same output.
//
// A nil rule, or a ticket that has already received its first response,
// can never breach. The ticket's lifecycle status is deliberately ignored;
// excluding resolved or closed tickets is the caller's concern.
func Evaluate(ticket *domain.Ticket, rule *Rule, now time.Time) Status {
	status := Status{
		MinutesElapsed: int(now.Sub(ticket.CreatedAt).Minutes()),
		Severity:       SeverityNone,
	}

	if rule == nil || ticket.FirstResponseAt != nil {
		return status
	}

	remaining := rule.MaxResponseMinutes - status.MinutesElapsed
	status.MinutesRemaining = &remaining

	if remaining <= 0 {
		status.IsBreached = true
		if remaining < -rule.MaxResponseMinutes {
			// Elapsed time has exceeded double the allowed window.
			status.Severity = SeverityCritical
		} else {
			status.Severity = SeverityBreached
		}
		return status
	}

	if float64(remaining) <= float64(rule.MaxResponseMinutes)*warningBand {
		status.Severity = SeverityWarning
	}
	return status
}
