package domain

import "time"

// AgentRole enumerates operator roles inside an organization.
type AgentRole string

const (
	AgentRoleAdmin AgentRole = "ADMIN"
	AgentRoleAgent AgentRole = "AGENT"
)

// Agent models a support operator belonging to one organization.
type Agent struct {
	ID             string
	OrganizationID string
	Name           string
	Email          string
	PasswordHash   string
	Role           AgentRole
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
