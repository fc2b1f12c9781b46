package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/opportunity-service/internal/auth"
	"github.com/spec-kit/opportunity-service/internal/domain"
	"github.com/spec-kit/opportunity-service/internal/repository"
	apperrors "github.com/spec-kit/opportunity-service/pkg/util/errorutil"
)

// StaffInput carries the editable fields of a staff member. An empty Password on update
// keeps the stored digest.
type StaffInput struct {
	Name         string
	Email        string
	Password     string
	Tier         domain.Tier
	DealershipID *string
}

// StaffListFilters define listing parameters.
type StaffListFilters struct {
	Tier         *domain.Tier
	DealershipID *string
	Limit        int
	Offset       int
}

// StaffDependencies bundles repositories required for staff management.
type StaffDependencies struct {
	StaffRepo      repository.StaffRepository
	DealershipRepo repository.DealershipRepository
	Credentials    auth.CredentialStore
	Logger         *zap.Logger
}

// StaffService manages staff accounts.
type StaffService struct {
	staff       repository.StaffRepository
	dealerships repository.DealershipRepository
	credentials auth.CredentialStore
	now         func() time.Time
	logger      *zap.Logger
}

// NewStaffService constructs the service.
func NewStaffService(deps StaffDependencies) *StaffService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaffService{
		staff:       deps.StaffRepo,
		dealerships: deps.DealershipRepo,
		credentials: deps.Credentials,
		now:         time.Now,
		logger:      logger,
	}
}

func errEmailTaken(email string) error {
	return apperrors.NewValidationError("email already registered", map[string]any{"email": email})
}

// CreateStaffMember adds a new staff account.
func (s *StaffService) CreateStaffMember(ctx context.Context, identity *domain.Identity, in StaffInput) (*domain.StaffMember, error) {
	if err := auth.RequireTier(identity, domain.TierAdministrator); err != nil {
		return nil, err
	}
	return s.create(ctx, in)
}

// RegisterInDealership adds a staff account to the caller's own dealership. The new member
// may not outrank the caller.
func (s *StaffService) RegisterInDealership(ctx context.Context, identity *domain.Identity, in StaffInput) (*domain.StaffMember, error) {
	if err := auth.RequireTier(identity, domain.TierManager); err != nil {
		return nil, err
	}
	if !identity.HasDealership() {
		return nil, apperrors.NewValidationError("caller has no dealership", nil)
	}
	if err := s.checkGrantable(identity, in.Tier); err != nil {
		return nil, err
	}
	in.DealershipID = strPtr(*identity.DealershipID)
	return s.create(ctx, in)
}

func (s *StaffService) create(ctx context.Context, in StaffInput) (*domain.StaffMember, error) {
	if err := validateStaffInput(in, true); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, in.Email, ""); err != nil {
		return nil, err
	}
	if err := s.ensureDealership(ctx, in.DealershipID); err != nil {
		return nil, err
	}

	digest, err := s.credentials.Hash(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	staff := &domain.StaffMember{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: digest,
		Tier:         in.Tier,
		DealershipID: in.DealershipID,
		// A new member joins the back of the intake queue.
		Idle: domain.IdleMarker{LastAssignedAt: s.now()},
	}
	if err := s.staff.Create(ctx, staff); err != nil {
		return nil, s.mapWriteError(err, in)
	}
	s.logger.Info("staff member created", zap.String("staff_id", staff.ID), zap.String("tier", string(staff.Tier)))
	return staff, nil
}

// UpdateStaffMember updates any staff account.
func (s *StaffService) UpdateStaffMember(ctx context.Context, identity *domain.Identity, id string, in StaffInput) (*domain.StaffMember, error) {
	if err := auth.RequireTier(identity, domain.TierAdministrator); err != nil {
		return nil, err
	}
	existing, err := s.staff.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "staff", map[string]any{"staff_id": id})
	}
	return s.update(ctx, existing, in)
}

// UpdateInDealership lets owners edit staff of their own dealership. The member stays
// within the caller's dealership and tier reach.
func (s *StaffService) UpdateInDealership(ctx context.Context, identity *domain.Identity, id string, in StaffInput) (*domain.StaffMember, error) {
	if err := auth.RequireTier(identity, domain.TierOwner); err != nil {
		return nil, err
	}
	existing, err := s.staff.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "staff", map[string]any{"staff_id": id})
	}
	if err := auth.RequireScope(auth.SameDealership(identity, existing.DealershipID)); err != nil {
		return nil, err
	}
	// Members that outrank the caller are out of reach, whatever tier is requested.
	if err := auth.RequireTier(identity, existing.Tier); err != nil {
		return nil, err
	}
	if err := s.checkGrantable(identity, in.Tier); err != nil {
		return nil, err
	}
	in.DealershipID = strPtr(*identity.DealershipID)
	return s.update(ctx, existing, in)
}

func (s *StaffService) update(ctx context.Context, existing *domain.StaffMember, in StaffInput) (*domain.StaffMember, error) {
	if err := validateStaffInput(in, false); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, in.Email, existing.ID); err != nil {
		return nil, err
	}
	if err := s.ensureDealership(ctx, in.DealershipID); err != nil {
		return nil, err
	}

	if in.Password != "" {
		digest, err := s.credentials.Hash(in.Password)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		existing.PasswordHash = digest
	}
	existing.Name = in.Name
	existing.Email = in.Email
	existing.Tier = in.Tier
	existing.DealershipID = in.DealershipID

	if err := s.staff.Update(ctx, existing); err != nil {
		return nil, s.mapWriteError(err, in)
	}
	return existing, nil
}

// GetStaffMember fetches a staff account.
func (s *StaffService) GetStaffMember(ctx context.Context, identity *domain.Identity, id string) (*domain.StaffMember, error) {
	if err := auth.RequireTier(identity, domain.TierAdministrator); err != nil {
		return nil, err
	}
	staff, err := s.staff.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "staff", map[string]any{"staff_id": id})
	}
	return staff, nil
}

// ListStaffMembers lists staff with filters.
func (s *StaffService) ListStaffMembers(ctx context.Context, identity *domain.Identity, filters StaffListFilters) ([]domain.StaffMember, error) {
	if err := auth.RequireTier(identity, domain.TierAdministrator); err != nil {
		return nil, err
	}
	return s.list(ctx, filters)
}

// ListInDealership lists the staff of the caller's dealership.
func (s *StaffService) ListInDealership(ctx context.Context, identity *domain.Identity, filters StaffListFilters) ([]domain.StaffMember, error) {
	if err := auth.RequireTier(identity, domain.TierManager); err != nil {
		return nil, err
	}
	if !identity.HasDealership() {
		return nil, apperrors.NewValidationError("caller has no dealership", nil)
	}
	filters.DealershipID = strPtr(*identity.DealershipID)
	return s.list(ctx, filters)
}

func (s *StaffService) list(ctx context.Context, filters StaffListFilters) ([]domain.StaffMember, error) {
	result, err := s.staff.List(ctx, repository.StaffFilter{
		Tier:         filters.Tier,
		DealershipID: filters.DealershipID,
		Limit:        filters.Limit,
		Offset:       filters.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// DeleteStaffMember removes a staff account that no opportunity references.
func (s *StaffService) DeleteStaffMember(ctx context.Context, identity *domain.Identity, id string) error {
	if err := auth.RequireTier(identity, domain.TierAdministrator); err != nil {
		return err
	}
	if identity.StaffID == id {
		return apperrors.NewValidationError("cannot delete own account", nil)
	}
	if err := s.staff.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrForeignKeyViolation) {
			return apperrors.NewValidationError("staff member still referenced", map[string]any{"staff_id": id})
		}
		return notFoundOr(err, "staff", map[string]any{"staff_id": id})
	}
	return nil
}

// checkGrantable rejects a target tier the caller does not hold themselves.
func (s *StaffService) checkGrantable(identity *domain.Identity, target domain.Tier) error {
	if !target.Valid() {
		return apperrors.NewValidationError("invalid tier", map[string]any{"tier": string(target)})
	}
	return auth.RequireTier(identity, target)
}

func (s *StaffService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.staff.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.ID != selfID {
			return errEmailTaken(email)
		}
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return apperrors.MapError(err)
	}
}

func (s *StaffService) ensureDealership(ctx context.Context, id *string) error {
	if id == nil {
		return nil
	}
	if _, err := s.dealerships.GetByID(ctx, *id); err != nil {
		return notFoundOr(err, "dealership", map[string]any{"dealership_id": *id})
	}
	return nil
}

func (s *StaffService) mapWriteError(err error, in StaffInput) error {
	switch {
	case errors.Is(err, repository.ErrUniqueViolation):
		return errEmailTaken(in.Email)
	case errors.Is(err, repository.ErrForeignKeyViolation):
		return apperrors.NewNotFound("dealership", nil)
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("staff", nil)
	}
	return apperrors.MapError(err)
}

func validateStaffInput(in StaffInput, requirePassword bool) error {
	details := map[string]any{}
	if strings.TrimSpace(in.Name) == "" {
		details["name"] = "required"
	}
	if strings.TrimSpace(in.Email) == "" {
		details["email"] = "required"
	}
	if requirePassword && in.Password == "" {
		details["password"] = "required"
	}
	if !in.Tier.Valid() {
		details["tier"] = "invalid"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid staff member", details)
	}
	return nil
}
