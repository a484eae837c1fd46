package domain

import "time"

// MessageAuthorType indicates who authored a message.
type MessageAuthorType string

const (
	AuthorTypeCustomer MessageAuthorType = "CUSTOMER"
	AuthorTypeAgent    MessageAuthorType = "AGENT"
	AuthorTypeSystem   MessageAuthorType = "SYSTEM"
)

// TicketMessageType differentiates between replies and notes.
type TicketMessageType string

const (
	MessageTypePublicReply  TicketMessageType = "PUBLIC_REPLY"
	MessageTypeInternalNote TicketMessageType = "INTERNAL_NOTE"
)

// TicketMessage captures one entry in a ticket thread.
type TicketMessage struct {
	ID             string
	OrganizationID string
	TicketID       string
	AuthorType     MessageAuthorType
	AuthorID       *string
	MessageType    TicketMessageType
	Body           string
	CreatedAt      time.Time
}
