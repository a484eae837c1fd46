package domain

import "time"

// Customer is an end-user who submits tickets through the portal.
type Customer struct {
	ID             string
	OrganizationID string
	Name           string
	Email          string
	PasswordHash   string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
