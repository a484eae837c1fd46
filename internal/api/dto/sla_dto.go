package dto

import (
	"time"

	"github.com/triagehq/triage-service/internal/domain"
	"github.com/triagehq/triage-service/internal/sla"
)

// UpsertSlaRuleRequest payload.
type UpsertSlaRuleRequest struct {
	Priority           domain.TicketPriority `json:"priority"`
	MaxResponseMinutes int                   `json:"max_response_minutes"`
}

// SlaRuleResponse one configured rule.
type SlaRuleResponse struct {
	Priority           domain.TicketPriority `json:"priority"`
	MaxResponseMinutes int                   `json:"max_response_minutes"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// SlaStatusResponse is the derived SLA position of one ticket.
type SlaStatusResponse struct {
	MinutesElapsed   int          `json:"minutes_elapsed"`
	MinutesRemaining *int         `json:"minutes_remaining,omitempty"`
	IsBreached       bool         `json:"is_breached"`
	Severity         sla.Severity `json:"severity"`
}

// TicketSlaStatusResponse pairs a ticket summary with its SLA position
// for the breach dashboard.
type TicketSlaStatusResponse struct {
	Ticket TicketSummary     `json:"ticket"`
	Status SlaStatusResponse `json:"status"`
}

// SlaRuleFromDomain maps one rule.
func SlaRuleFromDomain(r *sla.Rule) SlaRuleResponse {
	return SlaRuleResponse{
		Priority:           r.Priority,
		MaxResponseMinutes: r.MaxResponseMinutes,
		UpdatedAt:          r.UpdatedAt,
	}
}

// SlaStatusFromDomain maps one evaluated status.
func SlaStatusFromDomain(s *sla.Status) SlaStatusResponse {
	return SlaStatusResponse{
		MinutesElapsed:   s.MinutesElapsed,
		MinutesRemaining: s.MinutesRemaining,
		IsBreached:       s.IsBreached,
		Severity:         s.Severity,
	}
}
