package sla

import (
	"time"

	"github.com/triagehq/triage-service/internal/domain"
	apperrors "github.com/triagehq/triage-service/pkg/util/errorutil"
)

// Rule caps the first-response time for one priority tier within an
// organization. Absence of a rule for a priority means no SLA is enforced
// for that tier.
type Rule struct {
	OrganizationID     string
	Priority           domain.TicketPriority
	MaxResponseMinutes int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Validate rejects malformed rules at configuration time so the evaluator
// never has to defend against them.
func (r *Rule) Validate() error {
	if !domain.ValidPriority(r.Priority) {
		return apperrors.NewValidationError("unknown priority", map[string]any{"priority": r.Priority})
	}
	if r.MaxResponseMinutes <= 0 {
		return apperrors.NewValidationError("max_response_minutes must be positive", map[string]any{
			"max_response_minutes": r.MaxResponseMinutes,
		})
	}
	return nil
}
