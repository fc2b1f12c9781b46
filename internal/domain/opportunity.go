package domain

import "time"

// OpportunityStatus enumerates lifecycle states for opportunities.
type OpportunityStatus string

const (
	OpportunityStatusOpen      OpportunityStatus = "OPEN"
	OpportunityStatusConcluded OpportunityStatus = "CONCLUDED"
)

// Valid reports whether s is a known status.
func (s OpportunityStatus) Valid() bool {
	return s == OpportunityStatusOpen || s == OpportunityStatusConcluded
}

// Opportunity is a customer sales lead handled by a dealership.
type Opportunity struct {
	ID               string
	Status           OpportunityStatus
	CustomerName     string
	CustomerEmail    string
	CustomerPhone    string
	VehicleBrand     string
	VehicleModel     string
	VehicleVersion   string
	VehicleYear      int
	DealershipID     *string
	AssigneeID       *string
	AssignedAt       *time.Time
	CompletedAt      *time.Time
	CompletionReason string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DateIn truncates t to the calendar day in loc.
func DateIn(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
