package ai

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/triagehq/triage-service/internal/domain"
)

const (
	maxCategoryLen = 64
	maxLanguageLen = 8
	maxSummaryLen  = 500

	defaultCategory       = "general"
	defaultLanguage       = "en"
	defaultSentimentScore = 0.5
	defaultConfidence     = 0.7

	fallbackReply = "Thank you for reaching out. An agent will review your request and follow up shortly."
)

// ReplySuggestion is the sanitized output of a reply-suggestion call.
type ReplySuggestion struct {
	SuggestedReply string
	Confidence     float64
	Reasoning      string
}

type rawAnalysis struct {
	Sentiment      string `json:"sentiment"`
	SentimentScore any    `json:"sentimentScore"`
	Priority       string `json:"priority"`
	Category       string `json:"category"`
	Language       string `json:"language"`
	Summary        string `json:"summary"`
}

type rawSuggestion struct {
	SuggestedReply string `json:"suggestedReply"`
	Confidence     any    `json:"confidence"`
	Reasoning      string `json:"reasoning"`
}

// DefaultAnalysis is the safe fallback used when the backend's output
// cannot be parsed at all.
func DefaultAnalysis(now time.Time) domain.TicketAnalysis {
	return domain.TicketAnalysis{
		Sentiment:      domain.SentimentNeutral,
		SentimentScore: defaultSentimentScore,
		Priority:       domain.TicketPriorityMedium,
		Category:       defaultCategory,
		Language:       defaultLanguage,
		Summary:        "",
		AnalyzedAt:     now,
	}
}

// DefaultSuggestion is the safe fallback reply for unparseable output.
// Its confidence is zero so the UI can flag it as a canned response.
func DefaultSuggestion() ReplySuggestion {
	return ReplySuggestion{
		SuggestedReply: fallbackReply,
		Confidence:     0,
		Reasoning:      "",
	}
}

// ParseAnalysis sanitizes a classification response. Every field is
// validated independently and substituted with its default when invalid;
// totally unparseable JSON yields the full default object, never an error.
func ParseAnalysis(raw string, now time.Time) domain.TicketAnalysis {
	var parsed rawAnalysis
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &parsed); err != nil {
		return DefaultAnalysis(now)
	}

	analysis := domain.TicketAnalysis{
		Sentiment:      domain.Sentiment(strings.ToUpper(strings.TrimSpace(parsed.Sentiment))),
		SentimentScore: clamp01(coerceFloat(parsed.SentimentScore, defaultSentimentScore)),
		Priority:       domain.TicketPriority(strings.ToUpper(strings.TrimSpace(parsed.Priority))),
		Category:       sanitizeToken(parsed.Category, maxCategoryLen, defaultCategory),
		Language:       sanitizeToken(parsed.Language, maxLanguageLen, defaultLanguage),
		Summary:        truncate(strings.TrimSpace(parsed.Summary), maxSummaryLen),
		AnalyzedAt:     now,
	}
	if !domain.ValidSentiment(analysis.Sentiment) {
		analysis.Sentiment = domain.SentimentNeutral
	}
	if !domain.ValidPriority(analysis.Priority) {
		analysis.Priority = domain.TicketPriorityMedium
	}
	return analysis
}

// ParseSuggestion sanitizes a reply-suggestion response.
func ParseSuggestion(raw string) ReplySuggestion {
	var parsed rawSuggestion
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &parsed); err != nil {
		return DefaultSuggestion()
	}

	reply := strings.TrimSpace(parsed.SuggestedReply)
	if reply == "" {
		return DefaultSuggestion()
	}
	return ReplySuggestion{
		SuggestedReply: reply,
		Confidence:     clamp01(coerceFloat(parsed.Confidence, defaultConfidence)),
		Reasoning:      strings.TrimSpace(parsed.Reasoning),
	}
}

// stripCodeFences unwraps markdown fences the backend sometimes adds
// around JSON output despite the strict response format.
func stripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func sanitizeToken(val string, max int, fallback string) string {
	cleaned := strings.ToLower(strings.TrimSpace(val))
	if cleaned == "" {
		return fallback
	}
	return truncate(cleaned, max)
}

// truncate caps val at max bytes without splitting a multi-byte rune;
// the result must stay valid UTF-8 for the database.
func truncate(val string, max int) string {
	if len(val) <= max {
		return val
	}
	cut := val[:max]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}

func clamp01(val float64) float64 {
	if val < 0 {
		return 0
	}
	if val > 1 {
		return 1
	}
	return val
}

func coerceFloat(val any, fallback float64) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fallback
		}
		return parsed
	default:
		return fallback
	}
}
