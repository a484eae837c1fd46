package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/triagehq/triage-service/internal/domain"
	"github.com/triagehq/triage-service/internal/events"
	"github.com/triagehq/triage-service/internal/repository"
	"github.com/triagehq/triage-service/internal/service"
	"github.com/triagehq/triage-service/internal/sla"
)

// SlaMonitor periodically sweeps open, unresponded tickets and publishes
// a breach event whenever a ticket's severity escalates. Severities are
// tracked in memory per ticket, so each escalation step fires once per
// process lifetime; a restart may repeat the latest event, which
// subscribers must tolerate.
type SlaMonitor struct {
	orgs       repository.OrganizationRepository
	slaService *service.SlaService
	dispatcher events.Dispatcher
	interval   time.Duration
	logger     *zap.Logger

	seen map[string]sla.Severity
}

// NewSlaMonitor constructs the breach monitor.
func NewSlaMonitor(
	orgs repository.OrganizationRepository,
	slaService *service.SlaService,
	dispatcher events.Dispatcher,
	interval time.Duration,
	logger *zap.Logger,
) *SlaMonitor {
	return &SlaMonitor{
		orgs:       orgs,
		slaService: slaService,
		dispatcher: dispatcher,
		interval:   interval,
		logger:     logger,
		seen:       make(map[string]sla.Severity),
	}
}

// Run sweeps on a fixed interval until ctx is cancelled. The first sweep
// happens immediately.
func (m *SlaMonitor) Run(ctx context.Context) {
	m.logger.Info("sla monitor started", zap.Duration("interval", m.interval))
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("sla monitor stopped")
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *SlaMonitor) sweep(ctx context.Context) {
	orgs, err := m.orgs.List(ctx)
	if err != nil {
		m.logger.Error("sla sweep: list organizations", zap.Error(err))
		return
	}

	active := make(map[string]struct{})
	for _, org := range orgs {
		statuses, err := m.slaService.OpenTicketStatuses(ctx, org.ID)
		if err != nil {
			m.logger.Error("sla sweep: evaluate organization",
				zap.String("organization_id", org.ID),
				zap.Error(err),
			)
			continue
		}
		for _, ts := range statuses {
			active[ts.Ticket.ID] = struct{}{}
			m.observe(ctx, ts)
		}
	}

	// Tickets that left the sweep set (responded, closed, deleted) no
	// longer need tracking.
	for id := range m.seen {
		if _, ok := active[id]; !ok {
			delete(m.seen, id)
		}
	}
}

func (m *SlaMonitor) observe(ctx context.Context, ts service.TicketSlaStatus) {
	status := ts.Status
	if status.Severity == sla.SeverityNone {
		delete(m.seen, ts.Ticket.ID)
		return
	}
	if !escalated(m.seen[ts.Ticket.ID], status.Severity) {
		return
	}
	m.seen[ts.Ticket.ID] = status.Severity

	m.logger.Warn("sla escalation",
		zap.String("ticket_id", ts.Ticket.ID),
		zap.String("organization_id", ts.Ticket.OrganizationID),
		zap.String("severity", string(status.Severity)),
		zap.Int("minutes_elapsed", status.MinutesElapsed),
	)
	if m.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:             uuid.NewString(),
		Type:           events.EventSlaBreached,
		OrganizationID: ts.Ticket.OrganizationID,
		TicketID:       ts.Ticket.ID,
		Actor:          events.Actor{Type: domain.SubjectTypeSystem},
		Timestamp:      time.Now(),
		Payload: events.SlaBreachedPayload{
			Priority:         ts.Ticket.Priority,
			Severity:         status.Severity,
			MinutesElapsed:   status.MinutesElapsed,
			MinutesRemaining: status.MinutesRemaining,
		},
	}
	if err := m.dispatcher.Publish(ctx, event); err != nil {
		m.logger.Warn("sla sweep: publish breach event", zap.Error(err))
	}
}

var severityRank = map[sla.Severity]int{
	sla.SeverityNone:     0,
	sla.SeverityWarning:  1,
	sla.SeverityBreached: 2,
	sla.SeverityCritical: 3,
}

func escalated(prev, next sla.Severity) bool {
	return severityRank[next] > severityRank[prev]
}
