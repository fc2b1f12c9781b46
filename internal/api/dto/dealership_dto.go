package dto

import (
	"time"

	"github.com/spec-kit/opportunity-service/internal/domain"
)

// DealershipRequest payload.
type DealershipRequest struct {
	TaxID     string `json:"tax_id" validate:"required,max=32"`
	LegalName string `json:"legal_name" validate:"required,max=200"`
}

// DealershipResponse payload.
type DealershipResponse struct {
	ID        string    `json:"id"`
	TaxID     string    `json:"tax_id"`
	LegalName string    `json:"legal_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDealershipResponse maps a dealership.
func NewDealershipResponse(d *domain.Dealership) DealershipResponse {
	return DealershipResponse{
		ID:        d.ID,
		TaxID:     d.TaxID,
		LegalName: d.LegalName,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
