package domain

import "time"

// Invitation lets an admin bring a new agent into the organization.
// Rows are append-only; an invitation is accepted at most once.
type Invitation struct {
	ID             string
	OrganizationID string
	Email          string
	Role           AgentRole
	Token          string
	ExpiresAt      time.Time
	AcceptedAt     *time.Time
	CreatedAt      time.Time
}

// Expired reports whether the invitation can no longer be accepted.
func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
