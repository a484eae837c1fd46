package events

import (
	"time"

	"github.com/triagehq/triage-service/internal/domain"
	"github.com/triagehq/triage-service/internal/sla"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketMessageAdded    EventType = "ticket_message_added"
	EventTicketAnalyzed        EventType = "ticket_analyzed"
	EventSlaBreached           EventType = "sla_breached"
	EventAgentInvited          EventType = "agent_invited"
	EventArticlePublished      EventType = "article_published"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type       domain.SubjectType `json:"type"`
	AgentID    *string            `json:"agent_id,omitempty"`
	CustomerID *string            `json:"customer_id,omitempty"`
}

// Event represents a domain event emitted by services. Events are also
// serialized onto the per-organization realtime feed.
type Event struct {
	ID             string      `json:"id"`
	Type           EventType   `json:"type"`
	OrganizationID string      `json:"organization_id"`
	TicketID       string      `json:"ticket_id,omitempty"`
	Actor          Actor       `json:"actor"`
	Timestamp      time.Time   `json:"timestamp"`
	Payload        interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CustomerID string                `json:"customer_id"`
	Priority   domain.TicketPriority `json:"priority"`
	Subject    string                `json:"subject"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeAgentID *string `json:"assignee_agent_id,omitempty"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID     string                   `json:"message_id"`
	MessageType   domain.TicketMessageType `json:"message_type"`
	AuthorType    domain.MessageAuthorType `json:"author_type"`
	AuthorID      *string                  `json:"author_id,omitempty"`
	BodyPreview   string                   `json:"body_preview"`
	FirstResponse bool                     `json:"first_response"`
}

// TicketAnalyzedPayload payload.
type TicketAnalyzedPayload struct {
	Sentiment    domain.Sentiment      `json:"sentiment"`
	Priority     domain.TicketPriority `json:"priority"`
	Category     string                `json:"category"`
	SuggestionID string                `json:"suggestion_id"`
}

// SlaBreachedPayload payload.
type SlaBreachedPayload struct {
	Priority         domain.TicketPriority `json:"priority"`
	Severity         sla.Severity          `json:"severity"`
	MinutesElapsed   int                   `json:"minutes_elapsed"`
	MinutesRemaining *int                  `json:"minutes_remaining,omitempty"`
}

// AgentInvitedPayload payload.
type AgentInvitedPayload struct {
	Email string           `json:"email"`
	Role  domain.AgentRole `json:"role"`
}

// ArticlePublishedPayload payload.
type ArticlePublishedPayload struct {
	ArticleID string `json:"article_id"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
}
