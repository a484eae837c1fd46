package domain

import "time"

// SubjectType differentiates agent vs customer tokens.
type SubjectType string

const (
	SubjectTypeAgent    SubjectType = "AGENT"
	SubjectTypeCustomer SubjectType = "CUSTOMER"
	SubjectTypeSystem   SubjectType = "SYSTEM"
)

// Token represents issued authentication token metadata.
type Token struct {
	ID             string
	SubjectID      string
	Subject        SubjectType
	OrganizationID string
	Role           *AgentRole
	ExpiresAt      time.Time
	IssuedAt       time.Time
}
