package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/opportunity-service/internal/auth"
	"github.com/spec-kit/opportunity-service/internal/domain"
	"github.com/spec-kit/opportunity-service/internal/repository"
	apperrors "github.com/spec-kit/opportunity-service/pkg/util/errorutil"
)

// DealershipInput carries the editable dealership fields.
type DealershipInput struct {
	TaxID     string
	LegalName string
}

// DealershipService manages dealerships. Every operation is administrator-only.
type DealershipService struct {
	dealerships repository.DealershipRepository
}

// NewDealershipService constructs the service.
func NewDealershipService(dealerships repository.DealershipRepository) *DealershipService {
	return &DealershipService{dealerships: dealerships}
}

func errTaxIDTaken(taxID string) error {
	return apperrors.NewValidationError("tax id already registered", map[string]any{"tax_id": taxID})
}

// Create registers a dealership with a unique tax id.
func (s *DealershipService) Create(ctx context.Context, identity *domain.Identity, in DealershipInput) (*domain.Dealership, error) {
	if err := auth.RequireTier(identity, domain.TierAdministrator); err != nil {
		return nil, err
	}
	if err := validateDealershipInput(in); err != nil {
		return nil, err
	}
	if err := s.ensureTaxIDFree(ctx, in.TaxID, ""); err != nil {
		return nil, err
	}

	dealership := &domain.Dealership{TaxID: in.TaxID, LegalName: in.LegalName}
	if err := s.dealerships.Create(ctx, dealership); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, errTaxIDTaken(in.TaxID)
		}
		return nil, apperrors.MapError(err)
	}
	return dealership, nil
}

// Update changes a dealership's tax id or legal name.
func (s *DealershipService) Update(ctx context.Context, identity *domain.Identity, id string, in DealershipInput) (*domain.Dealership, error) {
	if err := auth.RequireTier(identity, domain.TierAdministrator); err != nil {
		return nil, err
	}
	if err := validateDealershipInput(in); err != nil {
		return nil, err
	}
	dealership, err := s.dealerships.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "dealership", map[string]any{"dealership_id": id})
	}
	if err := s.ensureTaxIDFree(ctx, in.TaxID, id); err != nil {
		return nil, err
	}

	dealership.TaxID = in.TaxID
	dealership.LegalName = in.LegalName
	if err := s.dealerships.Update(ctx, dealership); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, errTaxIDTaken(in.TaxID)
		}
		return nil, notFoundOr(err, "dealership", map[string]any{"dealership_id": id})
	}
	return dealership, nil
}

// Delete removes a dealership that nothing references anymore.
func (s *DealershipService) Delete(ctx context.Context, identity *domain.Identity, id string) error {
	if err := auth.RequireTier(identity, domain.TierAdministrator); err != nil {
		return err
	}
	if err := s.dealerships.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrForeignKeyViolation) {
			return apperrors.NewValidationError("dealership still referenced", map[string]any{"dealership_id": id})
		}
		return notFoundOr(err, "dealership", map[string]any{"dealership_id": id})
	}
	return nil
}

// Get fetches a dealership.
func (s *DealershipService) Get(ctx context.Context, identity *domain.Identity, id string) (*domain.Dealership, error) {
	if err := auth.RequireTier(identity, domain.TierAdministrator); err != nil {
		return nil, err
	}
	dealership, err := s.dealerships.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "dealership", map[string]any{"dealership_id": id})
	}
	return dealership, nil
}

// List returns all dealerships.
func (s *DealershipService) List(ctx context.Context, identity *domain.Identity) ([]domain.Dealership, error) {
	if err := auth.RequireTier(identity, domain.TierAdministrator); err != nil {
		return nil, err
	}
	result, err := s.dealerships.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

func (s *DealershipService) ensureTaxIDFree(ctx context.Context, taxID, selfID string) error {
	existing, err := s.dealerships.GetByTaxID(ctx, taxID)
	switch {
	case err == nil:
		if existing.ID != selfID {
			return errTaxIDTaken(taxID)
		}
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return apperrors.MapError(err)
	}
}

func validateDealershipInput(in DealershipInput) error {
	details := map[string]any{}
	if strings.TrimSpace(in.TaxID) == "" {
		details["tax_id"] = "required"
	}
	if strings.TrimSpace(in.LegalName) == "" {
		details["legal_name"] = "required"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid dealership", details)
	}
	return nil
}
