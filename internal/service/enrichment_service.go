package service

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/triagehq/triage-service/internal/ai"
	"github.com/triagehq/triage-service/internal/domain"
	"github.com/triagehq/triage-service/internal/events"
	"github.com/triagehq/triage-service/internal/observability"
	"github.com/triagehq/triage-service/internal/repository"
	apperrors "github.com/triagehq/triage-service/pkg/util/errorutil"
)

// TicketClassifier derives classification metadata for a ticket.
type TicketClassifier interface {
	Classify(ctx context.Context, subject, body string) (domain.TicketAnalysis, error)
}

// ReplySuggester drafts a reply conditioned on the thread history.
type ReplySuggester interface {
	SuggestReply(ctx context.Context, in ai.SuggestInput) (ai.ReplySuggestion, error)
}

// EnrichmentService runs the two-phase AI enrichment pipeline: concurrent
// classification and reply suggestion, then one atomic commit of both
// results.
type EnrichmentService struct {
	tickets     repository.TicketRepository
	messages    repository.TicketMessageRepository
	enrichments repository.EnrichmentRepository
	classifier  TicketClassifier
	suggester   ReplySuggester
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// EnrichmentDependencies bundles collaborators for the service.
type EnrichmentDependencies struct {
	TicketRepo     repository.TicketRepository
	MessageRepo    repository.TicketMessageRepository
	EnrichmentRepo repository.EnrichmentRepository
	Classifier     TicketClassifier
	Suggester      ReplySuggester
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
}

// NewEnrichmentService constructs the service.
func NewEnrichmentService(deps EnrichmentDependencies) *EnrichmentService {
	return &EnrichmentService{
		tickets:     deps.TicketRepo,
		messages:    deps.MessageRepo,
		enrichments: deps.EnrichmentRepo,
		classifier:  deps.Classifier,
		suggester:   deps.Suggester,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}
}

// EnrichTicket classifies a ticket and drafts a reply, then persists both
// atomically. The two generation calls run concurrently and both must
// resolve (successfully or to safe defaults) before the commit point;
// either call failing hard fails the whole operation with a generic
// condition, and a commit failure leaves nothing applied.
func (s *EnrichmentService) EnrichTicket(ctx context.Context, agent *domain.Agent, ticketID string) (*domain.TicketAnalysis, *domain.AISuggestion, error) {
	if agent == nil {
		return nil, nil, apperrors.NewUnauthorized("agent required")
	}

	ticket, err := s.tickets.GetByID(ctx, agent.OrganizationID, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, nil, apperrors.MapError(err)
	}

	history, err := s.messages.ListByTicket(ctx, ticket.OrganizationID, ticket.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}

	suggestInput := ai.SuggestInput{
		Subject: ticket.Subject,
		Body:    ticket.Body,
		History: history,
	}
	if ticket.Analysis != nil {
		sentiment := ticket.Analysis.Sentiment
		category := ticket.Analysis.Category
		suggestInput.Sentiment = &sentiment
		suggestInput.Category = &category
	}

	var (
		analysis    domain.TicketAnalysis
		classifyErr error
		reply       ai.ReplySuggestion
		suggestErr  error
	)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		analysis, classifyErr = s.classifier.Classify(ctx, ticket.Subject, ticket.Body)
	}()
	go func() {
		defer wg.Done()
		reply, suggestErr = s.suggester.SuggestReply(ctx, suggestInput)
	}()
	wg.Wait()

	if classifyErr != nil || suggestErr != nil {
		cause := classifyErr
		if cause == nil {
			cause = suggestErr
		}
		s.metrics.RecordEnrichment("failed")
		s.logger.Warn("enrichment generation failed",
			zap.String("ticket_id", ticket.ID),
			zap.NamedError("classify_err", classifyErr),
			zap.NamedError("suggest_err", suggestErr),
		)
		return nil, nil, mapGenerationError(cause)
	}

	suggestion := &domain.AISuggestion{
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		SuggestedReply: reply.SuggestedReply,
		Confidence:     reply.Confidence,
		Reasoning:      reply.Reasoning,
	}
	if err := s.enrichments.CommitEnrichment(ctx, analysis, suggestion); err != nil {
		s.metrics.RecordEnrichment("failed")
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, nil, apperrors.MapError(err)
	}

	s.metrics.RecordEnrichment("ok")
	s.publishEvent(ctx, events.Event{
		Type:           events.EventTicketAnalyzed,
		OrganizationID: ticket.OrganizationID,
		TicketID:       ticket.ID,
		Actor:          agentActor(agent.ID),
		Payload: events.TicketAnalyzedPayload{
			Sentiment:    analysis.Sentiment,
			Priority:     analysis.Priority,
			Category:     analysis.Category,
			SuggestionID: suggestion.ID,
		},
	})
	return &analysis, suggestion, nil
}

// ListSuggestions returns all retained suggestions for a ticket, most
// recent first.
func (s *EnrichmentService) ListSuggestions(ctx context.Context, agent *domain.Agent, ticketID string) ([]domain.AISuggestion, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	if _, err := s.tickets.GetByID(ctx, agent.OrganizationID, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return s.enrichments.ListSuggestions(ctx, agent.OrganizationID, ticketID)
}

func (s *EnrichmentService) publishEvent(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, event)
}

// mapGenerationError keeps upstream detail out of caller-visible errors.
func mapGenerationError(err error) error {
	switch {
	case errors.Is(err, ai.ErrRateLimited):
		return apperrors.NewRateLimited("analysis is rate limited, try again later")
	case errors.Is(err, ai.ErrUnavailable):
		return apperrors.NewAIUnavailable("analysis backend unavailable, try again later")
	default:
		return apperrors.NewAnalysisFailed(err)
	}
}
