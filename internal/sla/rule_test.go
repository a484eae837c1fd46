package sla

import (
	"errors"
	"testing"

	"github.com/triagehq/triage-service/internal/domain"
	apperrors "github.com/triagehq/triage-service/pkg/util/errorutil"
)

func TestRuleValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{
			name: "valid rule",
			rule: Rule{Priority: domain.TicketPriorityUrgent, MaxResponseMinutes: 30},
		},
		{
			name:    "unknown priority",
			rule:    Rule{Priority: "WHENEVER", MaxResponseMinutes: 30},
			wantErr: true,
		},
		{
			name:    "zero window",
			rule:    Rule{Priority: domain.TicketPriorityLow, MaxResponseMinutes: 0},
			wantErr: true,
		},
		{
			name:    "negative window",
			rule:    Rule{Priority: domain.TicketPriorityLow, MaxResponseMinutes: -5},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.rule.Validate()
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var domainErr *apperrors.DomainError
			if !errors.As(err, &domainErr) {
				t.Fatalf("Validate() = %v, want DomainError", err)
			}
			if domainErr.Code != "VALIDATION_FAILED" {
				t.Fatalf("code = %q, want VALIDATION_FAILED", domainErr.Code)
			}
		})
	}
}
