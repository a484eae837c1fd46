package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/triagehq/triage-service/internal/domain"
	"github.com/triagehq/triage-service/internal/repository"
	"github.com/triagehq/triage-service/internal/sla"
	apperrors "github.com/triagehq/triage-service/pkg/util/errorutil"
)

// RuleCache is the narrow caching surface the service needs; satisfied by
// the Redis wrapper.
type RuleCache interface {
	CacheGet(ctx context.Context, key string) ([]byte, error)
	CacheSet(ctx context.Context, key string, value []byte, ttl time.Duration) error
	CacheDelete(ctx context.Context, keys ...string) error
}

const ruleCacheTTL = 5 * time.Minute

// SlaService manages per-tenant SLA rules and evaluates tickets against
// them. Rule lookups are cached; mutations invalidate the cache.
type SlaService struct {
	rules   repository.SlaRuleRepository
	tickets repository.TicketRepository
	cache   RuleCache
	logger  *zap.Logger
	clock   func() time.Time
}

// TicketSlaStatus pairs a ticket with its evaluated SLA position.
type TicketSlaStatus struct {
	Ticket domain.Ticket
	Status sla.Status
}

// NewSlaService constructs the service. cache may be nil, in which case
// every lookup hits the database.
func NewSlaService(rules repository.SlaRuleRepository, tickets repository.TicketRepository, cache RuleCache, logger *zap.Logger) *SlaService {
	return &SlaService{rules: rules, tickets: tickets, cache: cache, logger: logger, clock: time.Now}
}

// UpsertRule validates and stores one rule per (organization, priority).
// Validation happens here, at configuration time; the evaluator assumes
// well-formed rules.
func (s *SlaService) UpsertRule(ctx context.Context, agent *domain.Agent, priority domain.TicketPriority, maxResponseMinutes int) (*sla.Rule, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	rule := &sla.Rule{
		OrganizationID:     agent.OrganizationID,
		Priority:           priority,
		MaxResponseMinutes: maxResponseMinutes,
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.rules.Upsert(ctx, rule); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidateCache(ctx, agent.OrganizationID)
	return rule, nil
}

// DeleteRule removes the rule for a priority; tickets of that priority
// are no longer SLA-enforced afterwards.
func (s *SlaService) DeleteRule(ctx context.Context, agent *domain.Agent, priority domain.TicketPriority) error {
	if agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	if !domain.ValidPriority(priority) {
		return apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}
	if err := s.rules.Delete(ctx, agent.OrganizationID, priority); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("sla rule", map[string]any{"priority": priority})
		}
		return apperrors.MapError(err)
	}
	s.invalidateCache(ctx, agent.OrganizationID)
	return nil
}

// ListRules returns all configured rules for the caller's organization.
func (s *SlaService) ListRules(ctx context.Context, agent *domain.Agent) ([]sla.Rule, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	rules, err := s.rulesForOrganization(ctx, agent.OrganizationID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rules, nil
}

// EvaluateTicket computes the current SLA status of one ticket.
func (s *SlaService) EvaluateTicket(ctx context.Context, agent *domain.Agent, ticketID string) (*sla.Status, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	ticket, err := s.tickets.GetByID(ctx, agent.OrganizationID, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	rules, err := s.rulesForOrganization(ctx, ticket.OrganizationID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	status := sla.Evaluate(ticket, ruleFor(rules, ticket.Priority), s.clock())
	return &status, nil
}

// OpenTicketStatuses evaluates every open, unresponded ticket in the
// organization for the SLA dashboard. Responded and closed tickets are
// excluded here, by the caller, not by the evaluator.
func (s *SlaService) OpenTicketStatuses(ctx context.Context, orgID string) ([]TicketSlaStatus, error) {
	tickets, err := s.tickets.ListOpenUnresponded(ctx, orgID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	rules, err := s.rulesForOrganization(ctx, orgID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	now := s.clock()
	result := make([]TicketSlaStatus, 0, len(tickets))
	for i := range tickets {
		result = append(result, TicketSlaStatus{
			Ticket: tickets[i],
			Status: sla.Evaluate(&tickets[i], ruleFor(rules, tickets[i].Priority), now),
		})
	}
	return result, nil
}

func (s *SlaService) rulesForOrganization(ctx context.Context, orgID string) ([]sla.Rule, error) {
	key := ruleCacheKey(orgID)
	if s.cache != nil {
		if cached, err := s.cache.CacheGet(ctx, key); err == nil && cached != nil {
			var rules []sla.Rule
			if err := json.Unmarshal(cached, &rules); err == nil {
				return rules, nil
			}
		}
	}

	rules, err := s.rules.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if payload, err := json.Marshal(rules); err == nil {
			if err := s.cache.CacheSet(ctx, key, payload, ruleCacheTTL); err != nil {
				s.logger.Debug("cache sla rules", zap.Error(err))
			}
		}
	}
	return rules, nil
}

func (s *SlaService) invalidateCache(ctx context.Context, orgID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.CacheDelete(ctx, ruleCacheKey(orgID)); err != nil {
		s.logger.Debug("invalidate sla rule cache", zap.Error(err))
	}
}

func ruleCacheKey(orgID string) string {
	return "sla_rules:" + orgID
}

func ruleFor(rules []sla.Rule, priority domain.TicketPriority) *sla.Rule {
	for i := range rules {
		if rules[i].Priority == priority {
			return &rules[i]
		}
	}
	return nil
}
