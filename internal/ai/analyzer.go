package ai

import (
	"context"
	"time"

	"github.com/triagehq/triage-service/internal/domain"
)

// Analyzer derives classification metadata for a ticket.
type Analyzer struct {
	gen   TextGenerator
	clock func() time.Time
}

// NewAnalyzer builds an analyzer on top of the shared call primitive.
func NewAnalyzer(gen TextGenerator) *Analyzer {
	return &Analyzer{gen: gen, clock: time.Now}
}

// Classify requests a strict-schema classification for the ticket text.
// Malformed backend output is recovered locally via default substitution;
// only transport-level failures surface as errors.
func (a *Analyzer) Classify(ctx context.Context, subject, body string) (domain.TicketAnalysis, error) {
	text, err := a.gen.Generate(ctx, classifyPrompt(subject, body))
	if err != nil {
		return domain.TicketAnalysis{}, err
	}
	return ParseAnalysis(text, a.clock()), nil
}

// Suggester drafts replies conditioned on the full message history.
type Suggester struct {
	gen TextGenerator
}

// NewSuggester builds a suggester on top of the shared call primitive.
func NewSuggester(gen TextGenerator) *Suggester {
	return &Suggester{gen: gen}
}

// SuggestInput bundles the context a reply draft is conditioned on.
// Sentiment and Category come from the ticket's existing analysis and are
// absent before the first enrichment run.
type SuggestInput struct {
	Subject   string
	Body      string
	History   []domain.TicketMessage
	Sentiment *domain.Sentiment
	Category  *string
}

// SuggestReply requests a reply draft. As with Classify, unparseable
// output falls back to a safe default instead of failing.
func (s *Suggester) SuggestReply(ctx context.Context, in SuggestInput) (ReplySuggestion, error) {
	text, err := s.gen.Generate(ctx, suggestPrompt(in.Subject, in.Body, in.History, in.Sentiment, in.Category))
	if err != nil {
		return ReplySuggestion{}, err
	}
	return ParseSuggestion(text), nil
}
