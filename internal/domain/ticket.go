package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates SLA urgency tiers.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// ValidPriority reports whether p is one of the four known tiers.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
//
// FirstResponseAt is set exactly once, when the first agent-authored public
// reply lands, and is never cleared afterwards. The analysis columns are
// overwritten wholesale by each enrichment run; prior analysis is not kept.
type Ticket struct {
	ID              string
	OrganizationID  string
	ExternalKey     string
	CustomerID      string
	AssigneeAgentID *string
	Subject         string
	Body            string
	Status          TicketStatus
	Priority        TicketPriority
	FirstResponseAt *time.Time
	Analysis        *TicketAnalysis
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ClosedAt        *time.Time
}
