package dto

import (
	"strings"
	"time"

	"github.com/spec-kit/opportunity-service/internal/domain"
	"github.com/spec-kit/opportunity-service/internal/service"
	apperrors "github.com/spec-kit/opportunity-service/pkg/util/errorutil"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// OpportunityRequest is shared by create, intake and every update variant.
type OpportunityRequest struct {
	Status           string  `json:"status" validate:"omitempty,oneof=OPEN CONCLUDED open concluded"`
	CustomerName     string  `json:"customer_name" validate:"required,max=200"`
	CustomerEmail    string  `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone    string  `json:"customer_phone" validate:"omitempty,max=40"`
	VehicleBrand     string  `json:"vehicle_brand" validate:"omitempty,max=80"`
	VehicleModel     string  `json:"vehicle_model" validate:"omitempty,max=80"`
	VehicleVersion   string  `json:"vehicle_version" validate:"omitempty,max=80"`
	VehicleYear      int     `json:"vehicle_year" validate:"omitempty,gte=1900,lte=2100"`
	DealershipID     *string `json:"dealership_id"`
	AssigneeID       *string `json:"assignee_id"`
	AssignedAt       *string `json:"assigned_at" validate:"omitempty,datetime=2006-01-02"`
	CompletionReason string  `json:"completion_reason" validate:"omitempty,max=1000"`
}

// ToInput converts the payload. Dates are read as calendar days in loc.
func (r OpportunityRequest) ToInput(loc *time.Location) (service.OpportunityInput, error) {
	in := service.OpportunityInput{
		Status:           domain.OpportunityStatus(strings.ToUpper(r.Status)),
		CustomerName:     r.CustomerName,
		CustomerEmail:    r.CustomerEmail,
		CustomerPhone:    r.CustomerPhone,
		VehicleBrand:     r.VehicleBrand,
		VehicleModel:     r.VehicleModel,
		VehicleVersion:   r.VehicleVersion,
		VehicleYear:      r.VehicleYear,
		DealershipID:     r.DealershipID,
		AssigneeID:       r.AssigneeID,
		CompletionReason: r.CompletionReason,
	}
	if r.AssignedAt != nil {
		date, err := time.ParseInLocation(DateLayout, *r.AssignedAt, loc)
		if err != nil {
			return in, apperrors.NewValidationError("invalid payload", map[string]any{"assigned_at": "datetime"})
		}
		in.AssignedAt = &date
	}
	return in, nil
}

// OpportunityResponse payload.
type OpportunityResponse struct {
	ID               string    `json:"id"`
	Status           string    `json:"status"`
	CustomerName     string    `json:"customer_name"`
	CustomerEmail    string    `json:"customer_email,omitempty"`
	CustomerPhone    string    `json:"customer_phone,omitempty"`
	VehicleBrand     string    `json:"vehicle_brand,omitempty"`
	VehicleModel     string    `json:"vehicle_model,omitempty"`
	VehicleVersion   string    `json:"vehicle_version,omitempty"`
	VehicleYear      int       `json:"vehicle_year,omitempty"`
	DealershipID     *string   `json:"dealership_id,omitempty"`
	AssigneeID       *string   `json:"assignee_id,omitempty"`
	AssignedAt       *string   `json:"assigned_at,omitempty"`
	CompletedAt      *string   `json:"completed_at,omitempty"`
	CompletionReason string    `json:"completion_reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewOpportunityResponse maps an opportunity.
func NewOpportunityResponse(o *domain.Opportunity) OpportunityResponse {
	return OpportunityResponse{
		ID:               o.ID,
		Status:           string(o.Status),
		CustomerName:     o.CustomerName,
		CustomerEmail:    o.CustomerEmail,
		CustomerPhone:    o.CustomerPhone,
		VehicleBrand:     o.VehicleBrand,
		VehicleModel:     o.VehicleModel,
		VehicleVersion:   o.VehicleVersion,
		VehicleYear:      o.VehicleYear,
		DealershipID:     o.DealershipID,
		AssigneeID:       o.AssigneeID,
		AssignedAt:       formatDate(o.AssignedAt),
		CompletedAt:      formatDate(o.CompletedAt),
		CompletionReason: o.CompletionReason,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(DateLayout)
	return &s
}
