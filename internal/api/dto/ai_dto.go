package dto

import (
	"time"

	"github.com/triagehq/triage-service/internal/domain"
)

// AnalysisResponse is the classification written onto a ticket by the
// last enrichment run.
type AnalysisResponse struct {
	Sentiment      domain.Sentiment      `json:"sentiment"`
	SentimentScore float64               `json:"sentiment_score"`
	Priority       domain.TicketPriority `json:"priority"`
	Category       string                `json:"category"`
	Language       string                `json:"language"`
	Summary        string                `json:"summary"`
	AnalyzedAt     time.Time             `json:"analyzed_at"`
}

// SuggestionResponse is one generated reply draft.
type SuggestionResponse struct {
	ID             string    `json:"id"`
	TicketID       string    `json:"ticket_id"`
	SuggestedReply string    `json:"suggested_reply"`
	Confidence     float64   `json:"confidence"`
	Reasoning      string    `json:"reasoning,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// EnrichmentResponse bundles the outcome of one enrichment run.
type EnrichmentResponse struct {
	TicketID   string             `json:"ticket_id"`
	Analysis   AnalysisResponse   `json:"analysis"`
	Suggestion SuggestionResponse `json:"suggestion"`
}

// AnalysisFromDomain maps the classification result.
func AnalysisFromDomain(a *domain.TicketAnalysis) AnalysisResponse {
	return AnalysisResponse{
		Sentiment:      a.Sentiment,
		SentimentScore: a.SentimentScore,
		Priority:       a.Priority,
		Category:       a.Category,
		Language:       a.Language,
		Summary:        a.Summary,
		AnalyzedAt:     a.AnalyzedAt,
	}
}

// SuggestionFromDomain maps one reply draft.
func SuggestionFromDomain(s *domain.AISuggestion) SuggestionResponse {
	return SuggestionResponse{
		ID:             s.ID,
		TicketID:       s.TicketID,
		SuggestedReply: s.SuggestedReply,
		Confidence:     s.Confidence,
		Reasoning:      s.Reasoning,
		CreatedAt:      s.CreatedAt,
	}
}
