package worker

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/triagehq/triage-service/internal/domain"
	"github.com/triagehq/triage-service/internal/events"
	"github.com/triagehq/triage-service/internal/service"
	"github.com/triagehq/triage-service/internal/sla"
)

func TestEscalated(t *testing.T) {
	t.Parallel()

	cases := []struct {
		prev, next sla.Severity
		want       bool
	}{
		{sla.SeverityNone, sla.SeverityWarning, true},
		{sla.SeverityNone, sla.SeverityCritical, true},
		{sla.SeverityWarning, sla.SeverityBreached, true},
		{sla.SeverityBreached, sla.SeverityCritical, true},
		{sla.SeverityWarning, sla.SeverityWarning, false},
		{sla.SeverityCritical, sla.SeverityBreached, false},
		{sla.SeverityBreached, sla.SeverityNone, false},
	}
	for _, tc := range cases {
		if got := escalated(tc.prev, tc.next); got != tc.want {
			t.Errorf("escalated(%s, %s) = %v, want %v", tc.prev, tc.next, got, tc.want)
		}
	}
}

func breachStatus(ticketID string, severity sla.Severity, elapsed int) service.TicketSlaStatus {
	return service.TicketSlaStatus{
		Ticket: domain.Ticket{
			ID:             ticketID,
			OrganizationID: "org-1",
			Priority:       domain.TicketPriorityUrgent,
			Status:         domain.TicketStatusOpen,
		},
		Status: sla.Status{
			MinutesElapsed: elapsed,
			IsBreached:     severity != sla.SeverityWarning && severity != sla.SeverityNone,
			Severity:       severity,
		},
	}
}

func TestObservePublishesOncePerEscalationStep(t *testing.T) {
	t.Parallel()

	dispatcher := events.NewInMemoryDispatcher()
	var published []events.Event
	dispatcher.Subscribe(events.EventSlaBreached, func(_ context.Context, e events.Event) error {
		published = append(published, e)
		return nil
	})
	m := NewSlaMonitor(nil, nil, dispatcher, 0, zap.NewNop())
	ctx := context.Background()

	m.observe(ctx, breachStatus("tck-1", sla.SeverityWarning, 25))
	m.observe(ctx, breachStatus("tck-1", sla.SeverityWarning, 27))
	if len(published) != 1 {
		t.Fatalf("published = %d after repeated warning, want 1", len(published))
	}

	m.observe(ctx, breachStatus("tck-1", sla.SeverityBreached, 31))
	m.observe(ctx, breachStatus("tck-1", sla.SeverityCritical, 61))
	m.observe(ctx, breachStatus("tck-1", sla.SeverityCritical, 90))
	if len(published) != 3 {
		t.Fatalf("published = %d, want one event per escalation step", len(published))
	}

	for i, want := range []sla.Severity{sla.SeverityWarning, sla.SeverityBreached, sla.SeverityCritical} {
		payload, ok := published[i].Payload.(events.SlaBreachedPayload)
		if !ok {
			t.Fatalf("event %d payload type %T", i, published[i].Payload)
		}
		if payload.Severity != want {
			t.Errorf("event %d severity = %s, want %s", i, payload.Severity, want)
		}
		if published[i].Actor.Type != domain.SubjectTypeSystem {
			t.Errorf("event %d actor = %s, want system", i, published[i].Actor.Type)
		}
	}
}

func TestObserveResetsWhenSeverityClears(t *testing.T) {
	t.Parallel()

	dispatcher := events.NewInMemoryDispatcher()
	var published int
	dispatcher.Subscribe(events.EventSlaBreached, func(context.Context, events.Event) error {
		published++
		return nil
	})
	m := NewSlaMonitor(nil, nil, dispatcher, 0, zap.NewNop())
	ctx := context.Background()

	m.observe(ctx, breachStatus("tck-1", sla.SeverityWarning, 25))
	m.observe(ctx, breachStatus("tck-1", sla.SeverityNone, 5))
	m.observe(ctx, breachStatus("tck-1", sla.SeverityWarning, 25))
	if published != 2 {
		t.Errorf("published = %d, want warning to fire again after a reset", published)
	}
	if _, tracked := m.seen["tck-1"]; !tracked {
		t.Error("ticket not tracked after re-escalation")
	}
}
