package domain

import "time"

// Organization is an isolated tenant. Every other aggregate carries its ID
// and every repository query filters on it.
type Organization struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
