package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/opportunity-service/internal/auth"
	"github.com/spec-kit/opportunity-service/internal/domain"
	"github.com/spec-kit/opportunity-service/internal/events"
	"github.com/spec-kit/opportunity-service/internal/repository"
	apperrors "github.com/spec-kit/opportunity-service/pkg/util/errorutil"
)

// OpportunityInput carries the caller-editable fields of an opportunity.
type OpportunityInput struct {
	Status           domain.OpportunityStatus
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
	CompletionReason string
}

// OpportunityListFilters define listing parameters.
type OpportunityListFilters struct {
	DealershipID *string
	AssigneeID   *string
	Status       *domain.OpportunityStatus
	Limit        int
	Offset       int
}

// OpportunityDependencies bundles repositories and collaborators.
type OpportunityDependencies struct {
	OpportunityRepo repository.OpportunityRepository
	DealershipRepo  repository.DealershipRepository
	StaffRepo       repository.StaffRepository
	Engine          *AssignmentEngine
	Dispatcher      events.Dispatcher
	Location        *time.Location
	Logger          *zap.Logger
}

// OpportunityService runs the opportunity lifecycle.
type OpportunityService struct {
	opportunities repository.OpportunityRepository
	dealerships   repository.DealershipRepository
	staff         repository.StaffRepository
	engine        *AssignmentEngine
	dispatcher    events.Dispatcher
	loc           *time.Location
	now           func() time.Time
	logger        *zap.Logger
}

// NewOpportunityService creates the service.
func NewOpportunityService(deps OpportunityDependencies) *OpportunityService {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpportunityService{
		opportunities: deps.OpportunityRepo,
		dealerships:   deps.DealershipRepo,
		staff:         deps.StaffRepo,
		engine:        deps.Engine,
		dispatcher:    deps.Dispatcher,
		loc:           loc,
		now:           time.Now,
		logger:        logger,
	}
}

type updateScope int

const (
	scopeNone updateScope = iota
	scopeDealership
	scopeAssignee
)

func (s *OpportunityService) today() time.Time {
	return domain.DateIn(s.now(), s.loc)
}

// Create registers an opportunity on behalf of an administrator. It never runs the
// assignment engine, so an explicit assignee keeps its idle marker.
func (s *OpportunityService) Create(ctx context.Context, identity *domain.Identity, in OpportunityInput) (*domain.Opportunity, error) {
	if err := auth.RequireTier(identity, domain.TierAdministrator); err != nil {
		return nil, err
	}
	if _, err := s.resolveDealership(ctx, in.DealershipID); err != nil {
		return nil, err
	}
	if _, err := s.resolveAssignee(ctx, in.AssigneeID); err != nil {
		return nil, err
	}

	opportunity := newOpportunity(in)
	opportunity.DealershipID = in.DealershipID
	opportunity.AssigneeID = in.AssigneeID
	s.stampNewAssignment(opportunity, in.AssignedAt)

	if err := s.opportunities.Create(ctx, opportunity); err != nil {
		return nil, s.mapWriteError(err)
	}
	s.publish(ctx, identity, events.EventOpportunityCreated, opportunity.ID, events.OpportunityCreatedPayload{
		DealershipID: opportunity.DealershipID,
		AssigneeID:   opportunity.AssigneeID,
		CustomerName: opportunity.CustomerName,
	})
	return opportunity, nil
}

// SelfAssignIntake opens an opportunity in the caller's dealership and hands it to the
// assistant that has been idle the longest, if any.
func (s *OpportunityService) SelfAssignIntake(ctx context.Context, identity *domain.Identity, in OpportunityInput) (*domain.Opportunity, error) {
	if err := auth.RequireTier(identity, domain.TierAssistant); err != nil {
		return nil, err
	}
	if !identity.HasDealership() {
		return nil, apperrors.NewValidationError("caller has no dealership", nil)
	}
	dealershipID := *identity.DealershipID

	opportunity := newOpportunity(in)
	opportunity.DealershipID = strPtr(dealershipID)

	reservation, err := s.engine.Reserve(ctx, dealershipID)
	if err != nil {
		return nil, err
	}
	if reservation != nil {
		opportunity.AssigneeID = strPtr(reservation.Assignee.ID)
	}
	s.stampNewAssignment(opportunity, in.AssignedAt)

	if err := s.opportunities.Create(ctx, opportunity); err != nil {
		// The opportunity and the idle stamp land together or not at all.
		if releaseErr := s.engine.Release(ctx, reservation); releaseErr != nil {
			s.logger.Error("release reservation failed", zap.String("dealership_id", dealershipID), zap.Error(releaseErr))
		}
		return nil, s.mapWriteError(err)
	}
	s.publish(ctx, identity, events.EventOpportunityAssigned, opportunity.ID, events.OpportunityAssignedPayload{
		DealershipID: dealershipID,
		AssigneeID:   opportunity.AssigneeID,
	})
	return opportunity, nil
}

// Update is the unscoped administrator edit.
func (s *OpportunityService) Update(ctx context.Context, identity *domain.Identity, id string, in OpportunityInput) (*domain.Opportunity, error) {
	return s.update(ctx, identity, domain.TierAdministrator, scopeNone, id, in)
}

// UpdateScopedToDealership lets managers edit opportunities of their own dealership.
func (s *OpportunityService) UpdateScopedToDealership(ctx context.Context, identity *domain.Identity, id string, in OpportunityInput) (*domain.Opportunity, error) {
	return s.update(ctx, identity, domain.TierManager, scopeDealership, id, in)
}

// UpdateScopedToAssignee lets assistants edit the opportunities assigned to them, without
// handing them to anyone else.
func (s *OpportunityService) UpdateScopedToAssignee(ctx context.Context, identity *domain.Identity, id string, in OpportunityInput) (*domain.Opportunity, error) {
	return s.update(ctx, identity, domain.TierAssistant, scopeAssignee, id, in)
}

func (s *OpportunityService) update(ctx context.Context, identity *domain.Identity, required domain.Tier, scope updateScope, id string, in OpportunityInput) (*domain.Opportunity, error) {
	if err := auth.RequireTier(identity, required); err != nil {
		return nil, err
	}

	existing, err := s.opportunities.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "opportunity", map[string]any{"opportunity_id": id})
	}

	if !in.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": string(in.Status)})
	}
	if in.Status == domain.OpportunityStatusConcluded && strings.TrimSpace(in.CompletionReason) == "" {
		return nil, apperrors.NewValidationError("completion reason required", nil)
	}

	switch scope {
	case scopeDealership:
		if err := auth.RequireScope(auth.SameDealership(identity, existing.DealershipID)); err != nil {
			return nil, err
		}
	case scopeAssignee:
		if err := auth.RequireScope(auth.IsAssignee(identity, existing.AssigneeID)); err != nil {
			return nil, err
		}
		if !sameRef(existing.AssigneeID, in.AssigneeID) {
			return nil, apperrors.NewValidationError("cannot transfer opportunity", map[string]any{
				"opportunity_id": id,
			})
		}
	}

	if _, err := s.resolveDealership(ctx, in.DealershipID); err != nil {
		return nil, err
	}
	assignee, err := s.resolveAssignee(ctx, in.AssigneeID)
	if err != nil {
		return nil, err
	}

	oldStatus := existing.Status
	oldAssignee := existing.AssigneeID
	alreadyCompleted := existing.CompletedAt != nil

	existing.CustomerName = in.CustomerName
	existing.CustomerEmail = in.CustomerEmail
	existing.CustomerPhone = in.CustomerPhone
	existing.VehicleBrand = in.VehicleBrand
	existing.VehicleModel = in.VehicleModel
	existing.VehicleVersion = in.VehicleVersion
	existing.VehicleYear = in.VehicleYear
	existing.Status = in.Status
	existing.DealershipID = in.DealershipID
	existing.AssigneeID = in.AssigneeID

	s.stampAssignment(existing, in.AssignedAt)

	concludedNow := false
	if in.Status == domain.OpportunityStatusConcluded && !alreadyCompleted && assignee != nil {
		today := s.today()
		existing.CompletedAt = &today
		existing.CompletionReason = fmt.Sprintf("Completed by %s. Reason: %s", assignee.Name, in.CompletionReason)
		concludedNow = true
	} else {
		existing.CompletionReason = in.CompletionReason
	}

	if err := s.opportunities.Update(ctx, existing); err != nil {
		return nil, s.mapWriteError(err)
	}

	s.publish(ctx, identity, events.EventOpportunityUpdated, existing.ID, events.OpportunityUpdatedPayload{
		OldStatus:   oldStatus,
		NewStatus:   existing.Status,
		OldAssignee: oldAssignee,
		NewAssignee: existing.AssigneeID,
	})
	if concludedNow {
		s.publish(ctx, identity, events.EventOpportunityConcluded, existing.ID, events.OpportunityConcludedPayload{
			AssigneeID:       existing.AssigneeID,
			CompletionReason: existing.CompletionReason,
		})
	}
	return existing, nil
}

// Delete removes an opportunity permanently.
func (s *OpportunityService) Delete(ctx context.Context, identity *domain.Identity, id string) error {
	if err := auth.RequireTier(identity, domain.TierAdministrator); err != nil {
		return err
	}
	if err := s.opportunities.Delete(ctx, id); err != nil {
		return notFoundOr(err, "opportunity", map[string]any{"opportunity_id": id})
	}
	return nil
}

// Get fetches a single opportunity.
func (s *OpportunityService) Get(ctx context.Context, identity *domain.Identity, id string) (*domain.Opportunity, error) {
	if err := auth.RequireTier(identity, domain.TierAdministrator); err != nil {
		return nil, err
	}
	opportunity, err := s.opportunities.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "opportunity", map[string]any{"opportunity_id": id})
	}
	return opportunity, nil
}

// List returns opportunities across all dealerships.
func (s *OpportunityService) List(ctx context.Context, identity *domain.Identity, filters OpportunityListFilters) ([]domain.Opportunity, error) {
	if err := auth.RequireTier(identity, domain.TierAdministrator); err != nil {
		return nil, err
	}
	return s.list(ctx, filters)
}

// ListForCallerDealership returns the opportunities of the caller's dealership.
func (s *OpportunityService) ListForCallerDealership(ctx context.Context, identity *domain.Identity, filters OpportunityListFilters) ([]domain.Opportunity, error) {
	if err := auth.RequireTier(identity, domain.TierAssistant); err != nil {
		return nil, err
	}
	if !identity.HasDealership() {
		return nil, apperrors.NewValidationError("caller has no dealership", nil)
	}
	filters.DealershipID = strPtr(*identity.DealershipID)
	return s.list(ctx, filters)
}

func (s *OpportunityService) list(ctx context.Context, filters OpportunityListFilters) ([]domain.Opportunity, error) {
	if filters.Status != nil && !filters.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": string(*filters.Status)})
	}
	result, err := s.opportunities.List(ctx, repository.OpportunityFilter{
		DealershipID: filters.DealershipID,
		AssigneeID:   filters.AssigneeID,
		Status:       filters.Status,
		Limit:        filters.Limit,
		Offset:       filters.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

func newOpportunity(in OpportunityInput) *domain.Opportunity {
	return &domain.Opportunity{
		Status:         domain.OpportunityStatusOpen,
		CustomerName:   in.CustomerName,
		CustomerEmail:  in.CustomerEmail,
		CustomerPhone:  in.CustomerPhone,
		VehicleBrand:   in.VehicleBrand,
		VehicleModel:   in.VehicleModel,
		VehicleVersion: in.VehicleVersion,
		VehicleYear:    in.VehicleYear,
	}
}

// stampAssignment applies the assignment-date rule: a present assignee without a supplied
// date gets today, otherwise the supplied value is kept as is, nil included.
func (s *OpportunityService) stampAssignment(o *domain.Opportunity, supplied *time.Time) {
	if o.AssigneeID != nil && supplied == nil {
		today := s.today()
		o.AssignedAt = &today
		return
	}
	if supplied == nil {
		o.AssignedAt = nil
		return
	}
	date := *supplied
	o.AssignedAt = &date
}

// stampNewAssignment is stampAssignment for records being created: an unassigned new
// opportunity never carries an assignment date.
func (s *OpportunityService) stampNewAssignment(o *domain.Opportunity, supplied *time.Time) {
	if o.AssigneeID == nil {
		o.AssignedAt = nil
		return
	}
	s.stampAssignment(o, supplied)
}

func (s *OpportunityService) resolveDealership(ctx context.Context, id *string) (*domain.Dealership, error) {
	if id == nil {
		return nil, nil
	}
	dealership, err := s.dealerships.GetByID(ctx, *id)
	if err != nil {
		return nil, notFoundOr(err, "dealership", map[string]any{"dealership_id": *id})
	}
	return dealership, nil
}

func (s *OpportunityService) resolveAssignee(ctx context.Context, id *string) (*domain.StaffMember, error) {
	if id == nil {
		return nil, nil
	}
	staff, err := s.staff.GetByID(ctx, *id)
	if err != nil {
		return nil, notFoundOr(err, "staff", map[string]any{"staff_id": *id})
	}
	return staff, nil
}

// A reference can disappear between resolve and write.
func (s *OpportunityService) mapWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrForeignKeyViolation):
		return apperrors.NewNotFound("referenced record", nil)
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("opportunity", nil)
	}
	return apperrors.MapError(err)
}

func (s *OpportunityService) publish(ctx context.Context, identity *domain.Identity, eventType events.EventType, opportunityID string, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		OpportunityID: opportunityID,
		Actor:         events.Actor{StaffID: identity.StaffID, Tier: identity.Tier},
		Timestamp:     s.now(),
		Payload:       payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(eventType)),
			zap.String("opportunity_id", opportunityID),
			zap.Error(err))
	}
}
