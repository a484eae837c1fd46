package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/triagehq/triage-service/internal/domain"
	"github.com/triagehq/triage-service/internal/events"
	"github.com/triagehq/triage-service/internal/repository"
	apperrors "github.com/triagehq/triage-service/pkg/util/errorutil"
)

const messagePreviewLen = 120

// allowedTransitions encodes the ticket lifecycle. Closed tickets are
// terminal except for reopening back to OPEN.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusOpen, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved:   {domain.TicketStatusOpen, domain.TicketStatusClosed},
	domain.TicketStatusClosed:     {domain.TicketStatusOpen},
}

// TicketService covers the ticket workflows on both sides of the desk:
// the customer portal (create, reply, close own tickets) and the agent
// inbox (triage, respond, assign, drive status).
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	agents     repository.AgentRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	clock      func() time.Time
}

// NewTicketService wires the ticket workflows.
func NewTicketService(
	tickets repository.TicketRepository,
	messages repository.TicketMessageRepository,
	agents repository.AgentRepository,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
) *TicketService {
	return &TicketService{
		tickets:    tickets,
		messages:   messages,
		agents:     agents,
		dispatcher: dispatcher,
		logger:     logger,
		clock:      time.Now,
	}
}

// CreateTicketInput carries the customer-facing creation fields.
type CreateTicketInput struct {
	Subject  string
	Body     string
	Priority domain.TicketPriority
}

// CreateTicket opens a new ticket for a portal customer. The priority is
// the customer's initial estimate; enrichment may revise it later.
func (s *TicketService) CreateTicket(ctx context.Context, customer *domain.Customer, input CreateTicketInput) (*domain.Ticket, error) {
	if customer == nil {
		return nil, apperrors.NewUnauthorized("customer required")
	}
	subject := strings.TrimSpace(input.Subject)
	body := strings.TrimSpace(input.Body)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", nil)
	}
	if body == "" {
		return nil, apperrors.NewValidationError("body is required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	ticket := &domain.Ticket{
		OrganizationID: customer.OrganizationID,
		ExternalKey:    newExternalKey(),
		CustomerID:     customer.ID,
		Subject:        subject,
		Body:           body,
		Status:         domain.TicketStatusOpen,
		Priority:       priority,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("external_key", ticket.ExternalKey),
		zap.String("organization_id", ticket.OrganizationID),
	)
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:           events.EventTicketCreated,
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		Actor:          customerActor(customer.ID),
		Payload: events.TicketCreatedPayload{
			CustomerID: customer.ID,
			Priority:   ticket.Priority,
			Subject:    ticket.Subject,
		},
	})
	return ticket, nil
}

// GetTicketForCustomer loads one ticket and enforces that it belongs to
// the requesting customer.
func (s *TicketService) GetTicketForCustomer(ctx context.Context, customer *domain.Customer, ticketID string) (*domain.Ticket, error) {
	if customer == nil {
		return nil, apperrors.NewUnauthorized("customer required")
	}
	ticket, err := s.getTicket(ctx, customer.OrganizationID, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.CustomerID != customer.ID {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// ListTicketsForCustomer returns the customer's own tickets, newest first.
func (s *TicketService) ListTicketsForCustomer(ctx context.Context, customer *domain.Customer, limit, offset int) ([]domain.Ticket, error) {
	if customer == nil {
		return nil, apperrors.NewUnauthorized("customer required")
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		OrganizationID: customer.OrganizationID,
		CustomerID:     &customer.ID,
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// InboxFilter narrows the agent inbox listing.
type InboxFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	AssigneeID *string
	Unassigned bool
	SearchTerm string
	Limit      int
	Offset     int
}

// ListInbox returns tickets across the organization for agents.
func (s *TicketService) ListInbox(ctx context.Context, agent *domain.Agent, filter InboxFilter) ([]domain.Ticket, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	for _, st := range filter.Statuses {
		if !domain.ValidStatus(st) {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": st})
		}
	}
	for _, p := range filter.Priorities {
		if !domain.ValidPriority(p) {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": p})
		}
	}
	repoFilter := repository.TicketFilter{
		OrganizationID: agent.OrganizationID,
		AssigneeID:     filter.AssigneeID,
		Unassigned:     filter.Unassigned,
		Statuses:       filter.Statuses,
		Priorities:     filter.Priorities,
		Limit:          filter.Limit,
		Offset:         filter.Offset,
	}
	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		repoFilter.SearchTerm = &term
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetTicketForAgent loads any ticket in the agent's organization.
func (s *TicketService) GetTicketForAgent(ctx context.Context, agent *domain.Agent, ticketID string) (*domain.Ticket, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	return s.getTicket(ctx, agent.OrganizationID, ticketID)
}

// ListMessages returns the ticket thread in chronological order. Customers
// only see public replies; internal notes are filtered out for them.
func (s *TicketService) ListMessages(ctx context.Context, orgID, ticketID string, includeInternal bool) ([]domain.TicketMessage, error) {
	msgs, err := s.messages.ListByTicket(ctx, orgID, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if includeInternal {
		return msgs, nil
	}
	visible := msgs[:0]
	for _, m := range msgs {
		if m.MessageType == domain.MessageTypePublicReply {
			visible = append(visible, m)
		}
	}
	return visible, nil
}

// AddCustomerReply appends a public reply from the ticket's customer. A
// closed ticket reopens when the customer replies.
func (s *TicketService) AddCustomerReply(ctx context.Context, customer *domain.Customer, ticketID, body string) (*domain.TicketMessage, error) {
	ticket, err := s.GetTicketForCustomer(ctx, customer, ticketID)
	if err != nil {
		return nil, err
	}
	msg, err := s.appendMessage(ctx, ticket, domain.TicketMessage{
		AuthorType:  domain.AuthorTypeCustomer,
		AuthorID:    &customer.ID,
		MessageType: domain.MessageTypePublicReply,
		Body:        body,
	}, customerActor(customer.ID))
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusClosed || ticket.Status == domain.TicketStatusResolved {
		if _, err := s.transition(ctx, ticket, domain.TicketStatusOpen, "customer replied", customerActor(customer.ID)); err != nil {
			s.logger.Warn("reopen after customer reply", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	return msg, nil
}

// AgentMessageInput carries an agent-authored thread entry.
type AgentMessageInput struct {
	Body        string
	MessageType domain.TicketMessageType
}

// AddAgentMessage appends a reply or internal note from an agent. The
// first public reply on a ticket stamps its first-response time, which in
// turn stops the SLA clock. The stamp is set at most once; later replies
// leave it untouched.
func (s *TicketService) AddAgentMessage(ctx context.Context, agent *domain.Agent, ticketID string, input AgentMessageInput) (*domain.TicketMessage, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	if input.MessageType != domain.MessageTypePublicReply && input.MessageType != domain.MessageTypeInternalNote {
		return nil, apperrors.NewValidationError("unknown message type", map[string]any{"message_type": input.MessageType})
	}
	ticket, err := s.getTicket(ctx, agent.OrganizationID, ticketID)
	if err != nil {
		return nil, err
	}

	firstResponse := false
	if input.MessageType == domain.MessageTypePublicReply && ticket.FirstResponseAt == nil {
		now := s.clock()
		if err := s.tickets.SetFirstResponse(ctx, ticket.OrganizationID, ticket.ID, now); err != nil {
			return nil, apperrors.MapError(err)
		}
		ticket.FirstResponseAt = &now
		firstResponse = true
	}

	msg, err := s.appendMessageWithFlag(ctx, ticket, domain.TicketMessage{
		AuthorType:  domain.AuthorTypeAgent,
		AuthorID:    &agent.ID,
		MessageType: input.MessageType,
		Body:        input.Body,
	}, agentActor(agent.ID), firstResponse)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// UpdateStatus moves a ticket along the lifecycle, rejecting transitions
// the lifecycle does not allow.
func (s *TicketService) UpdateStatus(ctx context.Context, agent *domain.Agent, ticketID string, status domain.TicketStatus, comment string) (*domain.Ticket, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	if !domain.ValidStatus(status) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
	}
	ticket, err := s.getTicket(ctx, agent.OrganizationID, ticketID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, ticket, status, comment, agentActor(agent.ID))
}

// CloseTicketForCustomer lets the ticket's customer close it directly.
func (s *TicketService) CloseTicketForCustomer(ctx context.Context, customer *domain.Customer, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.GetTicketForCustomer(ctx, customer, ticketID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, ticket, domain.TicketStatusClosed, "closed by customer", customerActor(customer.ID))
}

// UpdatePriority changes a ticket's urgency tier.
func (s *TicketService) UpdatePriority(ctx context.Context, agent *domain.Agent, ticketID string, priority domain.TicketPriority) (*domain.Ticket, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}
	ticket, err := s.getTicket(ctx, agent.OrganizationID, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Priority == priority {
		return ticket, nil
	}

	old := ticket.Priority
	ticket.Priority = priority
	ticket.UpdatedAt = s.clock()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:           events.EventTicketPriorityChanged,
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		Actor:          agentActor(agent.ID),
		Payload:        events.TicketPriorityChangedPayload{OldPriority: old, NewPriority: priority},
	})
	return ticket, nil
}

// Assign sets or clears the ticket's assignee. The assignee must be an
// active agent of the same organization.
func (s *TicketService) Assign(ctx context.Context, agent *domain.Agent, ticketID string, assigneeID *string) (*domain.Ticket, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	ticket, err := s.getTicket(ctx, agent.OrganizationID, ticketID)
	if err != nil {
		return nil, err
	}
	if assigneeID != nil {
		assignee, err := s.agents.GetByID(ctx, *assigneeID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": *assigneeID})
			}
			return nil, apperrors.MapError(err)
		}
		if assignee.OrganizationID != agent.OrganizationID || !assignee.Active {
			return nil, apperrors.NewValidationError("assignee must be an active agent of this organization", nil)
		}
	}

	ticket.AssigneeAgentID = assigneeID
	ticket.UpdatedAt = s.clock()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:           events.EventTicketAssigned,
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		Actor:          agentActor(agent.ID),
		Payload:        events.TicketAssignedPayload{AssigneeAgentID: assigneeID},
	})
	return ticket, nil
}

// DashboardStats aggregates ticket counts for the agent dashboard.
type DashboardStats struct {
	ByStatus   repository.StatusCounts
	ByPriority repository.PriorityCounts
}

// Stats returns organization-wide ticket counts.
func (s *TicketService) Stats(ctx context.Context, agent *domain.Agent) (*DashboardStats, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	byStatus, err := s.tickets.CountByStatus(ctx, agent.OrganizationID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byPriority, err := s.tickets.CountByPriority(ctx, agent.OrganizationID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &DashboardStats{ByStatus: byStatus, ByPriority: byPriority}, nil
}

func (s *TicketService) getTicket(ctx context.Context, orgID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, orgID, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) appendMessage(ctx context.Context, ticket *domain.Ticket, msg domain.TicketMessage, actor events.Actor) (*domain.TicketMessage, error) {
	return s.appendMessageWithFlag(ctx, ticket, msg, actor, false)
}

func (s *TicketService) appendMessageWithFlag(ctx context.Context, ticket *domain.Ticket, msg domain.TicketMessage, actor events.Actor, firstResponse bool) (*domain.TicketMessage, error) {
	body := strings.TrimSpace(msg.Body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body is required", nil)
	}
	msg.OrganizationID = ticket.OrganizationID
	msg.TicketID = ticket.ID
	msg.Body = body
	if err := s.messages.Create(ctx, &msg); err != nil {
		return nil, apperrors.MapError(err)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:           events.EventTicketMessageAdded,
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		Actor:          actor,
		Payload: events.TicketMessageAddedPayload{
			MessageID:     msg.ID,
			MessageType:   msg.MessageType,
			AuthorType:    msg.AuthorType,
			AuthorID:      msg.AuthorID,
			BodyPreview:   preview(body),
			FirstResponse: firstResponse,
		},
	})
	return &msg, nil
}

func (s *TicketService) transition(ctx context.Context, ticket *domain.Ticket, next domain.TicketStatus, comment string, actor events.Actor) (*domain.Ticket, error) {
	if ticket.Status == next {
		return ticket, nil
	}
	if !transitionAllowed(ticket.Status, next) {
		return nil, apperrors.NewConflict("status transition not allowed", map[string]any{
			"from": ticket.Status,
			"to":   next,
		})
	}

	old := ticket.Status
	now := s.clock()
	ticket.Status = next
	ticket.UpdatedAt = now
	if next == domain.TicketStatusClosed {
		ticket.ClosedAt = &now
	} else {
		ticket.ClosedAt = nil
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:           events.EventTicketStatusChanged,
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		Actor:          actor,
		Payload:        events.TicketStatusChangedPayload{OldStatus: old, NewStatus: next, Comment: comment},
	})
	return ticket, nil
}

func transitionAllowed(from, to domain.TicketStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func newExternalKey() string {
	return "TCK-" + strings.ToUpper(uuid.NewString()[:8])
}

// preview caps the body at messagePreviewLen bytes, backing off a
// partial trailing rune so feed payloads stay valid UTF-8.
func preview(body string) string {
	if len(body) <= messagePreviewLen {
		return body
	}
	cut := body[:messagePreviewLen]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
