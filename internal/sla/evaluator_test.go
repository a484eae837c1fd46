package sla

import (
	"testing"
	"time"

	"github.com/triagehq/triage-service/internal/domain"
)

func minutesAgo(base time.Time, m int) time.Time {
	return base.Add(-time.Duration(m) * time.Minute)
}

func intPtr(v int) *int { return &v }

func TestEvaluate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	urgentRule := &Rule{Priority: domain.TicketPriorityUrgent, MaxResponseMinutes: 30}
	responded := minutesAgo(now, 10)

	tests := []struct {
		name            string
		createdAgo      int
		firstResponseAt *time.Time
		rule            *Rule
		want            Status
	}{
		{
			name:       "no rule never breaches",
			createdAgo: 10000,
			rule:       nil,
			want:       Status{MinutesElapsed: 10000, Severity: SeverityNone},
		},
		{
			name:            "responded ticket never breaches",
			createdAgo:      10000,
			firstResponseAt: &responded,
			rule:            urgentRule,
			want:            Status{MinutesElapsed: 10000, Severity: SeverityNone},
		},
		{
			name:       "well inside window",
			createdAgo: 10,
			rule:       urgentRule,
			want:       Status{MinutesElapsed: 10, MinutesRemaining: intPtr(20), Severity: SeverityNone},
		},
		{
			name:       "just outside warning band",
			createdAgo: 22,
			rule:       urgentRule,
			want:       Status{MinutesElapsed: 22, MinutesRemaining: intPtr(8), Severity: SeverityNone},
		},
		{
			name:       "warning band lower edge",
			createdAgo: 23,
			rule:       urgentRule,
			want:       Status{MinutesElapsed: 23, MinutesRemaining: intPtr(7), Severity: SeverityWarning},
		},
		{
			name:       "one minute left",
			createdAgo: 29,
			rule:       urgentRule,
			want:       Status{MinutesElapsed: 29, MinutesRemaining: intPtr(1), Severity: SeverityWarning},
		},
		{
			name:       "deadline exactly reached",
			createdAgo: 30,
			rule:       urgentRule,
			want:       Status{MinutesElapsed: 30, MinutesRemaining: intPtr(0), IsBreached: true, Severity: SeverityBreached},
		},
		{
			name:       "breached inside double window",
			createdAgo: 45,
			rule:       urgentRule,
			want:       Status{MinutesElapsed: 45, MinutesRemaining: intPtr(-15), IsBreached: true, Severity: SeverityBreached},
		},
		{
			name:       "double window is still breached",
			createdAgo: 60,
			rule:       urgentRule,
			want:       Status{MinutesElapsed: 60, MinutesRemaining: intPtr(-30), IsBreached: true, Severity: SeverityBreached},
		},
		{
			name:       "past double window is critical",
			createdAgo: 61,
			rule:       urgentRule,
			want:       Status{MinutesElapsed: 61, MinutesRemaining: intPtr(-31), IsBreached: true, Severity: SeverityCritical},
		},
		{
			name:       "far past double window",
			createdAgo: 600,
			rule:       urgentRule,
			want:       Status{MinutesElapsed: 600, MinutesRemaining: intPtr(-570), IsBreached: true, Severity: SeverityCritical},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ticket := &domain.Ticket{
				CreatedAt:       minutesAgo(now, tt.createdAgo),
				FirstResponseAt: tt.firstResponseAt,
				Priority:        domain.TicketPriorityUrgent,
			}
			got := Evaluate(ticket, tt.rule, now)
			assertStatus(t, got, tt.want)
		})
	}
}

func TestEvaluateFlooring(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	rule := &Rule{Priority: domain.TicketPriorityHigh, MaxResponseMinutes: 60}

	// 59m59s elapsed floors to 59 minutes, so the deadline has not passed.
	ticket := &domain.Ticket{CreatedAt: now.Add(-(59*time.Minute + 59*time.Second))}
	got := Evaluate(ticket, rule, now)
	if got.MinutesElapsed != 59 {
		t.Fatalf("MinutesElapsed = %d, want 59", got.MinutesElapsed)
	}
	if got.IsBreached {
		t.Fatal("ticket breached before a full minute past the deadline elapsed")
	}
}

func TestEvaluateIsPure(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	rule := &Rule{Priority: domain.TicketPriorityLow, MaxResponseMinutes: 240}
	ticket := &domain.Ticket{CreatedAt: minutesAgo(now, 250)}

	first := Evaluate(ticket, rule, now)
	second := Evaluate(ticket, rule, now)
	assertStatus(t, second, first)
}

func TestEvaluateStatusIndependent(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	rule := &Rule{Priority: domain.TicketPriorityHigh, MaxResponseMinutes: 30}

	// The evaluator does not consult the lifecycle status; a closed
	// unresponded ticket still evaluates as breached.
	ticket := &domain.Ticket{
		CreatedAt: minutesAgo(now, 100),
		Status:    domain.TicketStatusClosed,
	}
	got := Evaluate(ticket, rule, now)
	if !got.IsBreached {
		t.Fatal("expected breach regardless of lifecycle status")
	}
}

func assertStatus(t *testing.T, got, want Status) {
	t.Helper()
	if got.MinutesElapsed != want.MinutesElapsed {
		t.Errorf("MinutesElapsed = %d, want %d", got.MinutesElapsed, want.MinutesElapsed)
	}
	if got.IsBreached != want.IsBreached {
		t.Errorf("IsBreached = %v, want %v", got.IsBreached, want.IsBreached)
	}
	if got.Severity != want.Severity {
		t.Errorf("Severity = %q, want %q", got.Severity, want.Severity)
	}
	switch {
	case want.MinutesRemaining == nil:
		if got.MinutesRemaining != nil {
			t.Errorf("MinutesRemaining = %d, want nil", *got.MinutesRemaining)
		}
	case got.MinutesRemaining == nil:
		t.Errorf("MinutesRemaining = nil, want %d", *want.MinutesRemaining)
	case *got.MinutesRemaining != *want.MinutesRemaining:
		t.Errorf("MinutesRemaining = %d, want %d", *got.MinutesRemaining, *want.MinutesRemaining)
	}
}
