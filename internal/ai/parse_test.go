package ai

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/triagehq/triage-service/internal/domain"
)

var parseNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestParseAnalysisWellFormed(t *testing.T) {
	t.Parallel()

	raw := `{"sentiment":"negative","sentimentScore":0.92,"priority":"urgent",
		"category":"Billing","language":"DE","summary":"Customer was double charged."}`
	got := ParseAnalysis(raw, parseNow)

	if got.Sentiment != domain.SentimentNegative {
		t.Errorf("Sentiment = %q", got.Sentiment)
	}
	if got.SentimentScore != 0.92 {
		t.Errorf("SentimentScore = %v", got.SentimentScore)
	}
	if got.Priority != domain.TicketPriorityUrgent {
		t.Errorf("Priority = %q", got.Priority)
	}
	if got.Category != "billing" {
		t.Errorf("Category = %q, want lowercased", got.Category)
	}
	if got.Language != "de" {
		t.Errorf("Language = %q, want lowercased", got.Language)
	}
	if got.Summary != "Customer was double charged." {
		t.Errorf("Summary = %q", got.Summary)
	}
	if !got.AnalyzedAt.Equal(parseNow) {
		t.Errorf("AnalyzedAt = %v", got.AnalyzedAt)
	}
}

func TestParseAnalysisTotalFailureYieldsDefaults(t *testing.T) {
	t.Parallel()

	got := ParseAnalysis("this is not valid json", parseNow)
	want := DefaultAnalysis(parseNow)
	if got != want {
		t.Fatalf("ParseAnalysis = %+v, want defaults %+v", got, want)
	}
}

func TestParseAnalysisFieldSubstitution(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, got domain.TicketAnalysis)
	}{
		{
			name: "unknown sentiment defaults to neutral",
			raw:  `{"sentiment":"FURIOUS","priority":"HIGH"}`,
			check: func(t *testing.T, got domain.TicketAnalysis) {
				if got.Sentiment != domain.SentimentNeutral {
					t.Errorf("Sentiment = %q", got.Sentiment)
				}
				if got.Priority != domain.TicketPriorityHigh {
					t.Errorf("Priority = %q, valid field must survive", got.Priority)
				}
			},
		},
		{
			name: "unknown priority defaults to medium",
			raw:  `{"sentiment":"POSITIVE","priority":"ASAP"}`,
			check: func(t *testing.T, got domain.TicketAnalysis) {
				if got.Priority != domain.TicketPriorityMedium {
					t.Errorf("Priority = %q", got.Priority)
				}
				if got.Sentiment != domain.SentimentPositive {
					t.Errorf("Sentiment = %q, valid field must survive", got.Sentiment)
				}
			},
		},
		{
			name: "score above range clamps to one",
			raw:  `{"sentimentScore":42}`,
			check: func(t *testing.T, got domain.TicketAnalysis) {
				if got.SentimentScore != 1 {
					t.Errorf("SentimentScore = %v", got.SentimentScore)
				}
			},
		},
		{
			name: "score below range clamps to zero",
			raw:  `{"sentimentScore":-0.5}`,
			check: func(t *testing.T, got domain.TicketAnalysis) {
				if got.SentimentScore != 0 {
					t.Errorf("SentimentScore = %v", got.SentimentScore)
				}
			},
		},
		{
			name: "numeric string score is coerced",
			raw:  `{"sentimentScore":"0.75"}`,
			check: func(t *testing.T, got domain.TicketAnalysis) {
				if got.SentimentScore != 0.75 {
					t.Errorf("SentimentScore = %v", got.SentimentScore)
				}
			},
		},
		{
			name: "non-numeric score defaults",
			raw:  `{"sentimentScore":"very positive"}`,
			check: func(t *testing.T, got domain.TicketAnalysis) {
				if got.SentimentScore != defaultSentimentScore {
					t.Errorf("SentimentScore = %v", got.SentimentScore)
				}
			},
		},
		{
			name: "empty category defaults to general",
			raw:  `{"category":"  "}`,
			check: func(t *testing.T, got domain.TicketAnalysis) {
				if got.Category != "general" {
					t.Errorf("Category = %q", got.Category)
				}
			},
		},
		{
			name: "overlong fields truncate",
			raw: `{"category":"` + strings.Repeat("c", 100) + `","language":"portuguese","summary":"` +
				strings.Repeat("s", 600) + `"}`,
			check: func(t *testing.T, got domain.TicketAnalysis) {
				if len(got.Category) != maxCategoryLen {
					t.Errorf("len(Category) = %d", len(got.Category))
				}
				if len(got.Language) != maxLanguageLen {
					t.Errorf("len(Language) = %d", len(got.Language))
				}
				if len(got.Summary) != maxSummaryLen {
					t.Errorf("len(Summary) = %d", len(got.Summary))
				}
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.check(t, ParseAnalysis(tt.raw, parseNow))
		})
	}
}

func TestParseAnalysisTruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	raw := `{"summary":"` + strings.Repeat("€", 200) + `","category":"x` + strings.Repeat("ü", 40) + `"}`
	got := ParseAnalysis(raw, parseNow)

	if len(got.Summary) > maxSummaryLen {
		t.Errorf("summary length = %d, want <= %d", len(got.Summary), maxSummaryLen)
	}
	if !utf8.ValidString(got.Summary) {
		t.Errorf("summary %q is not valid UTF-8", got.Summary)
	}
	if !strings.HasSuffix(got.Summary, "€") {
		t.Errorf("summary ends in %q, want a whole rune", got.Summary[len(got.Summary)-4:])
	}
	if len(got.Category) > maxCategoryLen {
		t.Errorf("category length = %d, want <= %d", len(got.Category), maxCategoryLen)
	}
	if !utf8.ValidString(got.Category) {
		t.Errorf("category %q is not valid UTF-8", got.Category)
	}
}

func TestParseAnalysisStripsCodeFences(t *testing.T) {
	t.Parallel()

	raw := "```json\n{\"sentiment\":\"NEGATIVE\",\"priority\":\"HIGH\"}\n```"
	got := ParseAnalysis(raw, parseNow)
	if got.Sentiment != domain.SentimentNegative || got.Priority != domain.TicketPriorityHigh {
		t.Fatalf("fenced payload not parsed: %+v", got)
	}
}

func TestParseSuggestion(t *testing.T) {
	t.Parallel()

	t.Run("well formed", func(t *testing.T) {
		t.Parallel()
		got := ParseSuggestion(`{"suggestedReply":"Hi, refund issued.","confidence":0.9,"reasoning":"billing issue"}`)
		if got.SuggestedReply != "Hi, refund issued." || got.Confidence != 0.9 || got.Reasoning != "billing issue" {
			t.Fatalf("ParseSuggestion = %+v", got)
		}
	})

	t.Run("missing confidence defaults", func(t *testing.T) {
		t.Parallel()
		got := ParseSuggestion(`{"suggestedReply":"Hello."}`)
		if got.Confidence != defaultConfidence {
			t.Fatalf("Confidence = %v, want %v", got.Confidence, defaultConfidence)
		}
	})

	t.Run("invalid json yields canned fallback", func(t *testing.T) {
		t.Parallel()
		got := ParseSuggestion("not json at all")
		if got.SuggestedReply != fallbackReply {
			t.Fatalf("SuggestedReply = %q", got.SuggestedReply)
		}
		if got.Confidence != 0 {
			t.Fatalf("Confidence = %v, fallback must carry zero confidence", got.Confidence)
		}
	})

	t.Run("blank reply yields canned fallback", func(t *testing.T) {
		t.Parallel()
		got := ParseSuggestion(`{"suggestedReply":"   ","confidence":0.99}`)
		if got.SuggestedReply != fallbackReply || got.Confidence != 0 {
			t.Fatalf("ParseSuggestion = %+v, want fallback", got)
		}
	})

	t.Run("confidence clamps", func(t *testing.T) {
		t.Parallel()
		got := ParseSuggestion(`{"suggestedReply":"Hi.","confidence":7}`)
		if got.Confidence != 1 {
			t.Fatalf("Confidence = %v, want 1", got.Confidence)
		}
	})
}
