package domain

import "time"

// Article is a knowledge-base entry owned by one organization.
// Published articles are visible through the customer portal.
type Article struct {
	ID             string
	OrganizationID string
	AuthorAgentID  *string
	Title          string
	Slug           string
	Body           string
	Tags           []string
	Published      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
