package domain

import "time"

// Dealership is a tenant that owns staff and opportunities.
type Dealership struct {
	ID        string
	TaxID     string
	LegalName string
	CreatedAt time.Time
	UpdatedAt time.Time
}
