package domain

import "time"

// Sentiment classifies the emotional tone of a ticket.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentNegative Sentiment = "NEGATIVE"
)

// ValidSentiment reports whether s is a known sentiment value.
func ValidSentiment(s Sentiment) bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

// TicketAnalysis is the classification result written onto a ticket.
// Each enrichment run replaces the previous one entirely.
type TicketAnalysis struct {
	Sentiment      Sentiment
	SentimentScore float64
	Priority       TicketPriority
	Category       string
	Language       string
	Summary        string
	AnalyzedAt     time.Time
}

// AISuggestion is a generated reply draft for a ticket. Rows are
// append-only; the most recent one wins for display.
type AISuggestion struct {
	ID             string
	OrganizationID string
	TicketID       string
	SuggestedReply string
	Confidence     float64
	Reasoning      string
	CreatedAt      time.Time
}
