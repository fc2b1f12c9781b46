package dto

import (
	"time"

	"github.com/spec-kit/opportunity-service/internal/domain"
	"github.com/spec-kit/opportunity-service/internal/service"
)

// StaffCreateRequest payload.
type StaffCreateRequest struct {
	Name         string  `json:"name" validate:"required"`
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required,min=4"`
	Tier         string  `json:"tier" validate:"required"`
	DealershipID *string `json:"dealership_id"`
}

// StaffUpdateRequest payload. An omitted password keeps the current one.
type StaffUpdateRequest struct {
	Name         string  `json:"name" validate:"required"`
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"omitempty,min=4"`
	Tier         string  `json:"tier" validate:"required"`
	DealershipID *string `json:"dealership_id"`
}

// ToInput converts the payload. Unknown tier names are left for the service to reject.
func (r StaffCreateRequest) ToInput() service.StaffInput {
	tier, ok := domain.ParseTier(r.Tier)
	if !ok {
		tier = domain.Tier(r.Tier)
	}
	return service.StaffInput{
		Name:         r.Name,
		Email:        r.Email,
		Password:     r.Password,
		Tier:         tier,
		DealershipID: r.DealershipID,
	}
}

// ToInput converts the payload.
func (r StaffUpdateRequest) ToInput() service.StaffInput {
	return StaffCreateRequest(r).ToInput()
}

// StaffResponse is the public view of a staff member.
type StaffResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Tier           string    `json:"tier"`
	Permissions    []string  `json:"permissions"`
	DealershipID   *string   `json:"dealership_id,omitempty"`
	LastAssignedAt time.Time `json:"last_assigned_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewStaffResponse maps a staff member, deriving the permission tokens from the tier.
func NewStaffResponse(staff *domain.StaffMember) StaffResponse {
	tokens := staff.Permissions().Tokens()
	permissions := make([]string, 0, len(tokens))
	for _, token := range tokens {
		permissions = append(permissions, string(token))
	}
	return StaffResponse{
		ID:             staff.ID,
		Name:           staff.Name,
		Email:          staff.Email,
		Tier:           string(staff.Tier),
		Permissions:    permissions,
		DealershipID:   staff.DealershipID,
		LastAssignedAt: staff.Idle.LastAssignedAt,
		CreatedAt:      staff.CreatedAt,
		UpdatedAt:      staff.UpdatedAt,
	}
}
