package dto

import (
	"time"

	"github.com/triagehq/triage-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject  string                `json:"subject"`
	Body     string                `json:"body"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketSummary response for list endpoints.
type TicketSummary struct {
	ID              string                `json:"id"`
	ExternalKey     string                `json:"external_key"`
	Subject         string                `json:"subject"`
	Status          domain.TicketStatus   `json:"status"`
	Priority        domain.TicketPriority `json:"priority"`
	AssigneeAgentID *string               `json:"assignee_agent_id,omitempty"`
	FirstResponseAt *time.Time            `json:"first_response_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info including its thread and
// the latest analysis, when present.
type TicketDetailResponse struct {
	ID              string                  `json:"id"`
	ExternalKey     string                  `json:"external_key"`
	CustomerID      string                  `json:"customer_id"`
	AssigneeAgentID *string                 `json:"assignee_agent_id,omitempty"`
	Subject         string                  `json:"subject"`
	Body            string                  `json:"body"`
	Status          domain.TicketStatus     `json:"status"`
	Priority        domain.TicketPriority   `json:"priority"`
	FirstResponseAt *time.Time              `json:"first_response_at,omitempty"`
	Analysis        *AnalysisResponse       `json:"analysis,omitempty"`
	Messages        []TicketMessageResponse `json:"messages"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
	ClosedAt        *time.Time              `json:"closed_at,omitempty"`
}

// TicketMessageResponse represents one thread entry.
type TicketMessageResponse struct {
	ID          string                   `json:"id"`
	MessageType domain.TicketMessageType `json:"message_type"`
	AuthorType  domain.MessageAuthorType `json:"author_type"`
	AuthorID    *string                  `json:"author_id,omitempty"`
	Body        string                   `json:"body"`
	CreatedAt   time.Time                `json:"created_at"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Body        string                   `json:"body"`
	MessageType domain.TicketMessageType `json:"message_type"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Comment string              `json:"comment"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// AssignRequest payload. A null assignee unassigns the ticket.
type AssignRequest struct {
	AssigneeAgentID *string `json:"assignee_agent_id"`
}

// DashboardStatsResponse aggregates ticket counts.
type DashboardStatsResponse struct {
	ByStatus   map[domain.TicketStatus]int   `json:"by_status"`
	ByPriority map[domain.TicketPriority]int `json:"by_priority"`
}

// TicketFromDomain maps a domain ticket to its summary form.
func TicketFromDomain(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:              t.ID,
		ExternalKey:     t.ExternalKey,
		Subject:         t.Subject,
		Status:          t.Status,
		Priority:        t.Priority,
		AssigneeAgentID: t.AssigneeAgentID,
		FirstResponseAt: t.FirstResponseAt,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// TicketDetailFromDomain maps a domain ticket and its thread.
func TicketDetailFromDomain(t *domain.Ticket, messages []domain.TicketMessage) TicketDetailResponse {
	resp := TicketDetailResponse{
		ID:              t.ID,
		ExternalKey:     t.ExternalKey,
		CustomerID:      t.CustomerID,
		AssigneeAgentID: t.AssigneeAgentID,
		Subject:         t.Subject,
		Body:            t.Body,
		Status:          t.Status,
		Priority:        t.Priority,
		FirstResponseAt: t.FirstResponseAt,
		Messages:        make([]TicketMessageResponse, 0, len(messages)),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		ClosedAt:        t.ClosedAt,
	}
	if t.Analysis != nil {
		analysis := AnalysisFromDomain(t.Analysis)
		resp.Analysis = &analysis
	}
	for i := range messages {
		resp.Messages = append(resp.Messages, MessageFromDomain(&messages[i]))
	}
	return resp
}

// MessageFromDomain maps one thread entry.
func MessageFromDomain(m *domain.TicketMessage) TicketMessageResponse {
	return TicketMessageResponse{
		ID:          m.ID,
		MessageType: m.MessageType,
		AuthorType:  m.AuthorType,
		AuthorID:    m.AuthorID,
		Body:        m.Body,
		CreatedAt:   m.CreatedAt,
	}
}
