package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/triagehq/triage-service/internal/ai"
	"github.com/triagehq/triage-service/internal/domain"
	"github.com/triagehq/triage-service/internal/events"
	"github.com/triagehq/triage-service/internal/repository"
	apperrors "github.com/triagehq/triage-service/pkg/util/errorutil"
)

type fakeTicketRepo struct {
	repository.TicketRepository
	ticket *domain.Ticket
	err    error
}

func (f *fakeTicketRepo) GetByID(_ context.Context, orgID, id string) (*domain.Ticket, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.ticket == nil || f.ticket.OrganizationID != orgID || f.ticket.ID != id {
		return nil, pgx.ErrNoRows
	}
	return f.ticket, nil
}

type fakeMessageRepo struct {
	repository.TicketMessageRepository
	history []domain.TicketMessage
}

func (f *fakeMessageRepo) ListByTicket(context.Context, string, string) ([]domain.TicketMessage, error) {
	return f.history, nil
}

type fakeEnrichmentRepo struct {
	repository.EnrichmentRepository
	commitErr error

	committedAnalysis   *domain.TicketAnalysis
	committedSuggestion *domain.AISuggestion
	commits             int
}

func (f *fakeEnrichmentRepo) CommitEnrichment(_ context.Context, analysis domain.TicketAnalysis, suggestion *domain.AISuggestion) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.commits++
	f.committedAnalysis = &analysis
	f.committedSuggestion = suggestion
	suggestion.ID = "sug-1"
	return nil
}

type stubClassifier struct {
	analysis domain.TicketAnalysis
	err      error
	calls    int
}

func (s *stubClassifier) Classify(context.Context, string, string) (domain.TicketAnalysis, error) {
	s.calls++
	return s.analysis, s.err
}

type stubSuggester struct {
	reply ai.ReplySuggestion
	err   error
	input ai.SuggestInput
	calls int
}

func (s *stubSuggester) SuggestReply(_ context.Context, in ai.SuggestInput) (ai.ReplySuggestion, error) {
	s.calls++
	s.input = in
	return s.reply, s.err
}

func testAgent() *domain.Agent {
	return &domain.Agent{ID: "agent-1", OrganizationID: "org-1", Role: domain.AgentRoleAgent}
}

func testTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:             "tck-1",
		OrganizationID: "org-1",
		Subject:        "printer on fire",
		Body:           "smoke is coming out of the tray",
		Status:         domain.TicketStatusOpen,
		Priority:       domain.TicketPriorityMedium,
	}
}

func newEnrichmentService(tickets repository.TicketRepository, messages repository.TicketMessageRepository, enrichments repository.EnrichmentRepository, classifier TicketClassifier, suggester ReplySuggester, dispatcher events.Dispatcher) *EnrichmentService {
	return NewEnrichmentService(EnrichmentDependencies{
		TicketRepo:     tickets,
		MessageRepo:    messages,
		EnrichmentRepo: enrichments,
		Classifier:     classifier,
		Suggester:      suggester,
		Dispatcher:     dispatcher,
		Logger:         zap.NewNop(),
	})
}

func TestEnrichTicketCommitsBothResults(t *testing.T) {
	t.Parallel()

	tickets := &fakeTicketRepo{ticket: testTicket()}
	messages := &fakeMessageRepo{history: []domain.TicketMessage{{ID: "msg-1", Body: "any update?"}}}
	enrichments := &fakeEnrichmentRepo{}
	classifier := &stubClassifier{analysis: domain.TicketAnalysis{
		Sentiment:      domain.SentimentNegative,
		SentimentScore: 0.2,
		Priority:       domain.TicketPriorityUrgent,
		Category:       "hardware",
		Language:       "en",
		Summary:        "printer emitting smoke",
		AnalyzedAt:     time.Now().UTC(),
	}}
	suggester := &stubSuggester{reply: ai.ReplySuggestion{
		SuggestedReply: "Please unplug the printer immediately.",
		Confidence:     0.92,
		Reasoning:      "safety first",
	}}

	dispatcher := events.NewInMemoryDispatcher()
	var published []events.Event
	dispatcher.Subscribe(events.EventTicketAnalyzed, func(_ context.Context, e events.Event) error {
		published = append(published, e)
		return nil
	})

	svc := newEnrichmentService(tickets, messages, enrichments, classifier, suggester, dispatcher)
	analysis, suggestion, err := svc.EnrichTicket(context.Background(), testAgent(), "tck-1")
	if err != nil {
		t.Fatalf("EnrichTicket: %v", err)
	}

	if analysis.Category != "hardware" || analysis.Priority != domain.TicketPriorityUrgent {
		t.Errorf("analysis = %+v", analysis)
	}
	if suggestion.SuggestedReply != "Please unplug the printer immediately." {
		t.Errorf("suggestion reply = %q", suggestion.SuggestedReply)
	}
	if suggestion.OrganizationID != "org-1" || suggestion.TicketID != "tck-1" {
		t.Errorf("suggestion scoping = org %q ticket %q", suggestion.OrganizationID, suggestion.TicketID)
	}
	if enrichments.commits != 1 {
		t.Fatalf("commits = %d, want 1", enrichments.commits)
	}
	if enrichments.committedAnalysis.Sentiment != domain.SentimentNegative {
		t.Errorf("committed sentiment = %q", enrichments.committedAnalysis.Sentiment)
	}
	if enrichments.committedSuggestion.Confidence != 0.92 {
		t.Errorf("committed confidence = %v", enrichments.committedSuggestion.Confidence)
	}
	if len(suggester.input.History) != 1 {
		t.Errorf("suggester saw %d history messages, want 1", len(suggester.input.History))
	}
	if len(published) != 1 {
		t.Fatalf("published %d events, want 1", len(published))
	}
	payload, ok := published[0].Payload.(events.TicketAnalyzedPayload)
	if !ok {
		t.Fatalf("payload type %T", published[0].Payload)
	}
	if payload.SuggestionID != "sug-1" {
		t.Errorf("payload suggestion id = %q", payload.SuggestionID)
	}
}

func TestEnrichTicketReusesPriorAnalysisContext(t *testing.T) {
	t.Parallel()

	ticket := testTicket()
	ticket.Analysis = &domain.TicketAnalysis{Sentiment: domain.SentimentNegative, Category: "billing"}

	suggester := &stubSuggester{reply: ai.ReplySuggestion{SuggestedReply: "ok", Confidence: 0.5}}
	svc := newEnrichmentService(
		&fakeTicketRepo{ticket: ticket},
		&fakeMessageRepo{},
		&fakeEnrichmentRepo{},
		&stubClassifier{analysis: domain.TicketAnalysis{Sentiment: domain.SentimentNeutral}},
		suggester,
		nil,
	)

	if _, _, err := svc.EnrichTicket(context.Background(), testAgent(), "tck-1"); err != nil {
		t.Fatalf("EnrichTicket: %v", err)
	}
	if suggester.input.Sentiment == nil || *suggester.input.Sentiment != domain.SentimentNegative {
		t.Errorf("suggester sentiment hint = %v", suggester.input.Sentiment)
	}
	if suggester.input.Category == nil || *suggester.input.Category != "billing" {
		t.Errorf("suggester category hint = %v", suggester.input.Category)
	}
}

func TestEnrichTicketGenerationFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		classifyErr error
		suggestErr  error
		wantCode    string
	}{
		{"classifier hard failure", errors.New("model returned garbage"), nil, "ANALYSIS_FAILED"},
		{"suggester hard failure", nil, errors.New("model returned garbage"), "ANALYSIS_FAILED"},
		{"rate limited", ai.ErrRateLimited, nil, "RATE_LIMITED"},
		{"backend unavailable", nil, ai.ErrUnavailable, "AI_UNAVAILABLE"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			enrichments := &fakeEnrichmentRepo{}
			svc := newEnrichmentService(
				&fakeTicketRepo{ticket: testTicket()},
				&fakeMessageRepo{},
				enrichments,
				&stubClassifier{err: tc.classifyErr},
				&stubSuggester{reply: ai.ReplySuggestion{SuggestedReply: "ok"}, err: tc.suggestErr},
				nil,
			)

			_, _, err := svc.EnrichTicket(context.Background(), testAgent(), "tck-1")
			var domainErr *apperrors.DomainError
			if !errors.As(err, &domainErr) {
				t.Fatalf("err = %v, want DomainError", err)
			}
			if domainErr.Code != tc.wantCode {
				t.Errorf("code = %q, want %q", domainErr.Code, tc.wantCode)
			}
			if tc.wantCode == "ANALYSIS_FAILED" && domainErr.Message != "analysis failed, try again" {
				t.Errorf("message = %q leaks upstream detail", domainErr.Message)
			}
			if enrichments.commits != 0 {
				t.Errorf("commits = %d, want 0", enrichments.commits)
			}
		})
	}
}

func TestEnrichTicketRunsGenerationConcurrently(t *testing.T) {
	t.Parallel()

	classifyStarted := make(chan struct{})
	suggestStarted := make(chan struct{})
	waitForPeer := func(own, peer chan struct{}) error {
		close(own)
		select {
		case <-peer:
			return nil
		case <-time.After(2 * time.Second):
			return errors.New("peer call never started")
		}
	}

	svc := newEnrichmentService(
		&fakeTicketRepo{ticket: testTicket()},
		&fakeMessageRepo{},
		&fakeEnrichmentRepo{},
		classifierFunc(func(context.Context, string, string) (domain.TicketAnalysis, error) {
			return domain.TicketAnalysis{}, waitForPeer(classifyStarted, suggestStarted)
		}),
		suggesterFunc(func(context.Context, ai.SuggestInput) (ai.ReplySuggestion, error) {
			return ai.ReplySuggestion{SuggestedReply: "ok"}, waitForPeer(suggestStarted, classifyStarted)
		}),
		nil,
	)

	if _, _, err := svc.EnrichTicket(context.Background(), testAgent(), "tck-1"); err != nil {
		t.Fatalf("EnrichTicket: %v", err)
	}
}

type classifierFunc func(ctx context.Context, subject, body string) (domain.TicketAnalysis, error)

func (f classifierFunc) Classify(ctx context.Context, subject, body string) (domain.TicketAnalysis, error) {
	return f(ctx, subject, body)
}

type suggesterFunc func(ctx context.Context, in ai.SuggestInput) (ai.ReplySuggestion, error)

func (f suggesterFunc) SuggestReply(ctx context.Context, in ai.SuggestInput) (ai.ReplySuggestion, error) {
	return f(ctx, in)
}

func TestEnrichTicketCommitFailureSurfaced(t *testing.T) {
	t.Parallel()

	dispatcher := events.NewInMemoryDispatcher()
	var published int
	dispatcher.Subscribe(events.EventTicketAnalyzed, func(context.Context, events.Event) error {
		published++
		return nil
	})

	svc := newEnrichmentService(
		&fakeTicketRepo{ticket: testTicket()},
		&fakeMessageRepo{},
		&fakeEnrichmentRepo{commitErr: errors.New("tx aborted")},
		&stubClassifier{},
		&stubSuggester{reply: ai.ReplySuggestion{SuggestedReply: "ok"}},
		dispatcher,
	)

	_, _, err := svc.EnrichTicket(context.Background(), testAgent(), "tck-1")
	if err == nil {
		t.Fatal("expected error from failed commit")
	}
	if published != 0 {
		t.Errorf("published %d events after failed commit, want 0", published)
	}
}

func TestEnrichTicketUnknownTicket(t *testing.T) {
	t.Parallel()

	svc := newEnrichmentService(
		&fakeTicketRepo{},
		&fakeMessageRepo{},
		&fakeEnrichmentRepo{},
		&stubClassifier{},
		&stubSuggester{},
		nil,
	)

	_, _, err := svc.EnrichTicket(context.Background(), testAgent(), "missing")
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "NOT_FOUND" {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}

	if _, _, err := svc.EnrichTicket(context.Background(), nil, "tck-1"); err == nil {
		t.Fatal("expected error for missing agent")
	}
}
