package ai

import (
	"fmt"
	"strings"

	"github.com/triagehq/triage-service/internal/domain"
)

// Closed category vocabulary the classifier must pick from.
var categoryVocabulary = []string{
	"billing",
	"technical",
	"account",
	"feature_request",
	"bug_report",
	"general",
}

func classifyPrompt(subject, body string) string {
	var b strings.Builder
	b.WriteString("You are a support ticket triage assistant. Analyze the ticket below and respond with ONLY a JSON object, no other text.\n\n")
	fmt.Fprintf(&b, "Subject: %s\n", subject)
	fmt.Fprintf(&b, "Body: %s\n\n", body)
	b.WriteString("Respond with this exact JSON shape:\n")
	b.WriteString(`{"sentiment":"POSITIVE|NEUTRAL|NEGATIVE","sentimentScore":0.0,"priority":"LOW|MEDIUM|HIGH|URGENT","category":"","language":"","summary":""}` + "\n\n")
	fmt.Fprintf(&b, "category must be one of: %s.\n", strings.Join(categoryVocabulary, ", "))
	b.WriteString("language is the ISO 639-1 code of the ticket text. summary is at most two sentences.\n")
	return b.String()
}

func suggestPrompt(subject, body string, history []domain.TicketMessage, sentiment *domain.Sentiment, category *string) string {
	var b strings.Builder
	b.WriteString("You are a support agent assistant. Draft a reply to the customer. Respond with ONLY a JSON object, no other text.\n\n")
	fmt.Fprintf(&b, "Subject: %s\n", subject)
	fmt.Fprintf(&b, "Original request: %s\n", body)
	if sentiment != nil {
		fmt.Fprintf(&b, "Current sentiment: %s\n", *sentiment)
	}
	if category != nil {
		fmt.Fprintf(&b, "Category: %s\n", *category)
	}
	if len(history) > 0 {
		b.WriteString("\nConversation so far, oldest first:\n")
		for _, msg := range history {
			fmt.Fprintf(&b, "[%s] %s\n", authorLabel(msg.AuthorType), msg.Body)
		}
	}
	b.WriteString("\nRespond with this exact JSON shape:\n")
	b.WriteString(`{"suggestedReply":"","confidence":0.0,"reasoning":""}` + "\n")
	b.WriteString("suggestedReply is the full reply text, professional and empathetic. confidence is between 0 and 1.\n")
	return b.String()
}

func authorLabel(author domain.MessageAuthorType) string {
	switch author {
	case domain.AuthorTypeAgent:
		return "Agent"
	case domain.AuthorTypeSystem:
		return "System"
	default:
		return "Customer"
	}
}
