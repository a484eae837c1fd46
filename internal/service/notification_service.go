package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/triagehq/triage-service/internal/events"
)

// NotificationService subscribes to domain events and records them in the
// structured log. It stands in for outbound channels (email, webhooks)
// that run out of process.
type NotificationService struct {
	logger *zap.Logger
}

// NewNotificationService registers the log subscriber for every event
// type it cares about.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	s := &NotificationService{logger: logger}
	for _, t := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketAssigned,
		events.EventTicketMessageAdded,
		events.EventTicketAnalyzed,
		events.EventSlaBreached,
		events.EventAgentInvited,
		events.EventArticlePublished,
	} {
		dispatcher.Subscribe(t, s.handle)
	}
	return s
}

func (s *NotificationService) handle(_ context.Context, event events.Event) error {
	s.logger.Info("notification",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("organization_id", event.OrganizationID),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_type", string(event.Actor.Type)),
	)
	return nil
}
