package events

import (
	"time"

	"github.com/spec-kit/opportunity-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventOpportunityCreated   EventType = "opportunity_created"
	EventOpportunityAssigned  EventType = "opportunity_assigned"
	EventOpportunityUpdated   EventType = "opportunity_updated"
	EventOpportunityConcluded EventType = "opportunity_concluded"
)

// Actor identifies the staff member that triggered an event.
type Actor struct {
	StaffID string      `json:"staff_id"`
	Tier    domain.Tier `json:"tier"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID            string      `json:"id"`
	Type          EventType   `json:"type"`
	OpportunityID string      `json:"opportunity_id"`
	Actor         Actor       `json:"actor"`
	Timestamp     time.Time   `json:"timestamp"`
	Payload       interface{} `json:"payload"`
}

// OpportunityCreatedPayload payload.
type OpportunityCreatedPayload struct {
	DealershipID *string `json:"dealership_id,omitempty"`
	AssigneeID   *string `json:"assignee_id,omitempty"`
	CustomerName string  `json:"customer_name"`
}

// OpportunityAssignedPayload is published by intake, with a nil assignee when no assistant was free.
type OpportunityAssignedPayload struct {
	DealershipID string  `json:"dealership_id"`
	AssigneeID   *string `json:"assignee_id,omitempty"`
}

// OpportunityUpdatedPayload payload.
type OpportunityUpdatedPayload struct {
	OldStatus   domain.OpportunityStatus `json:"old_status"`
	NewStatus   domain.OpportunityStatus `json:"new_status"`
	OldAssignee *string                  `json:"old_assignee_id,omitempty"`
	NewAssignee *string                  `json:"new_assignee_id,omitempty"`
}

// OpportunityConcludedPayload payload.
type OpportunityConcludedPayload struct {
	AssigneeID       *string `json:"assignee_id,omitempty"`
	CompletionReason string  `json:"completion_reason"`
}
