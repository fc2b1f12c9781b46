package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/opportunity-service/internal/domain"
	"github.com/spec-kit/opportunity-service/internal/events"
	"github.com/spec-kit/opportunity-service/internal/repository"
	apperrors "github.com/spec-kit/opportunity-service/pkg/util/errorutil"
)

func code(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return apperrors.ToDomainError(err).Code
}

func TestCreateWithoutAssignee(t *testing.T) {
	f := newFixture(t)
	d := f.dealership("1")
	idle := f.member("idle", domain.TierAssistant, &d.ID, at(7, 0))

	in := basicInput()
	in.Status = domain.OpportunityStatusConcluded
	in.DealershipID = &d.ID
	o, err := f.opportunities.Create(f.ctx, f.admin, in)
	require.NoError(t, err)

	assert.Equal(t, domain.OpportunityStatusOpen, o.Status)
	assert.Nil(t, o.AssigneeID)
	assert.Nil(t, o.AssignedAt)
	assert.Equal(t, int64(0), f.reload(idle.ID).Idle.Version, "create must not run the assignment engine")
	require.Len(t, f.published, 1)
	assert.Equal(t, events.EventOpportunityCreated, f.published[0].Type)
}

func TestCreateWithAssigneeStampsTodayInReferenceZone(t *testing.T) {
	f := newFixture(t)
	d := f.dealership("1")
	x := f.member("x", domain.TierAssistant, &d.ID, at(7, 0))

	in := basicInput()
	in.DealershipID = &d.ID
	in.AssigneeID = &x.ID
	o, err := f.opportunities.Create(f.ctx, f.admin, in)
	require.NoError(t, err)

	require.NotNil(t, o.AssignedAt)
	assert.True(t, o.AssignedAt.Equal(day(2024, 5, 9)), "got %s", o.AssignedAt)
	assert.Equal(t, int64(0), f.reload(x.ID).Idle.Version)
}

func TestCreateKeepsExplicitAssignmentDate(t *testing.T) {
	f := newFixture(t)
	d := f.dealership("1")
	x := f.member("x", domain.TierAssistant, &d.ID, at(7, 0))

	explicit := day(2024, 1, 15)
	in := basicInput()
	in.AssigneeID = &x.ID
	in.AssignedAt = &explicit
	o, err := f.opportunities.Create(f.ctx, f.admin, in)
	require.NoError(t, err)
	assert.True(t, o.AssignedAt.Equal(explicit))
}

func TestCreateRejectsUnknownReferencesAndLowerTiers(t *testing.T) {
	f := newFixture(t)
	d := f.dealership("1")
	owner := f.member("owner", domain.TierOwner, &d.ID, at(7, 0))

	in := basicInput()
	in.DealershipID = strPtr("missing")
	_, err := f.opportunities.Create(f.ctx, f.admin, in)
	assert.Equal(t, apperrors.CodeNotFound, code(t, err))

	in = basicInput()
	in.AssigneeID = strPtr("missing")
	_, err = f.opportunities.Create(f.ctx, f.admin, in)
	assert.Equal(t, apperrors.CodeNotFound, code(t, err))

	_, err = f.opportunities.Create(f.ctx, identityOf(owner), basicInput())
	assert.Equal(t, apperrors.CodeInsufficientTier, code(t, err))
}

func TestSelfAssignIntakePicksLeastIdleAssistant(t *testing.T) {
	f := newFixture(t)
	d := f.dealership("1")
	x := f.member("x", domain.TierAssistant, &d.ID, at(10, 0))
	y := f.member("y", domain.TierAssistant, &d.ID, at(9, 0))

	in := basicInput()
	in.Status = domain.OpportunityStatusConcluded
	in.DealershipID = strPtr("ignored")
	o, err := f.opportunities.SelfAssignIntake(f.ctx, identityOf(x), in)
	require.NoError(t, err)

	assert.Equal(t, domain.OpportunityStatusOpen, o.Status)
	require.NotNil(t, o.DealershipID)
	assert.Equal(t, d.ID, *o.DealershipID)
	require.NotNil(t, o.AssigneeID)
	assert.Equal(t, y.ID, *o.AssigneeID)
	assert.True(t, o.AssignedAt.Equal(day(2024, 5, 9)))
	assert.True(t, f.reload(y.ID).Idle.LastAssignedAt.Equal(fixedNow))

	second, err := f.opportunities.SelfAssignIntake(f.ctx, identityOf(x), basicInput())
	require.NoError(t, err)
	assert.Equal(t, x.ID, *second.AssigneeID)

	require.Len(t, f.published, 2)
	assert.Equal(t, events.EventOpportunityAssigned, f.published[0].Type)
}

func TestSelfAssignIntakeWithoutAssistantsStaysUnassigned(t *testing.T) {
	f := newFixture(t)
	d := f.dealership("1")
	manager := f.member("m", domain.TierManager, &d.ID, at(7, 0))

	o, err := f.opportunities.SelfAssignIntake(f.ctx, identityOf(manager), basicInput())
	require.NoError(t, err)
	assert.Nil(t, o.AssigneeID)
	assert.Nil(t, o.AssignedAt)
	assert.Equal(t, d.ID, *o.DealershipID)
}

// failingOpportunities rejects every insert.
type failingOpportunities struct{ repository.OpportunityRepository }

func (failingOpportunities) Create(context.Context, *domain.Opportunity) error {
	return errors.New("db down")
}

func TestSelfAssignIntakeReleasesReservationWhenInsertFails(t *testing.T) {
	f := newFixture(t)
	d := f.dealership("1")
	x := f.member("x", domain.TierAssistant, &d.ID, at(9, 0))
	y := f.member("y", domain.TierAssistant, &d.ID, at(10, 0))

	svc := NewOpportunityService(OpportunityDependencies{
		OpportunityRepo: failingOpportunities{f.store.Opportunities()},
		DealershipRepo:  f.store.Dealerships(),
		StaffRepo:       f.store.Staff(),
		Engine:          f.engine,
		Dispatcher:      f.dispatcher,
		Location:        brt,
	})
	svc.now = func() time.Time { return fixedNow }

	_, err := svc.SelfAssignIntake(f.ctx, identityOf(y), basicInput())
	assert.Equal(t, apperrors.CodeInternal, code(t, err))
	assert.Empty(t, f.published)

	stored := f.reload(x.ID)
	assert.True(t, stored.Idle.LastAssignedAt.Equal(at(9, 0)), "got %s", stored.Idle.LastAssignedAt)
	assert.Equal(t, int64(2), stored.Idle.Version)

	o, err := f.opportunities.SelfAssignIntake(f.ctx, identityOf(y), basicInput())
	require.NoError(t, err)
	assert.Equal(t, x.ID, *o.AssigneeID)
}

func TestReleaseKeepsNewerReservation(t *testing.T) {
	f := newFixture(t)
	d := f.dealership("1")
	x := f.member("x", domain.TierAssistant, &d.ID, at(9, 0))

	reservation, err := f.engine.Reserve(f.ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, reservation)

	ok, err := f.store.Staff().ReserveIdle(f.ctx, x.ID, reservation.Assignee.Idle.Version, fixedNow.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, f.engine.Release(f.ctx, reservation))
	assert.True(t, f.reload(x.ID).Idle.LastAssignedAt.Equal(fixedNow.Add(time.Hour)))
}

func TestNewOpportunityWithoutAssigneeDropsSuppliedDate(t *testing.T) {
	f := newFixture(t)
	d := f.dealership("1")
	manager := f.member("m", domain.TierManager, &d.ID, at(7, 0))

	supplied := day(2024, 1, 15)
	in := basicInput()
	in.AssignedAt = &supplied
	o, err := f.opportunities.Create(f.ctx, f.admin, in)
	require.NoError(t, err)
	assert.Nil(t, o.AssignedAt)

	o, err = f.opportunities.SelfAssignIntake(f.ctx, identityOf(manager), in)
	require.NoError(t, err)
	assert.Nil(t, o.AssigneeID)
	assert.Nil(t, o.AssignedAt)
}

func TestSelfAssignIntakeRequiresCallerDealership(t *testing.T) {
	f := newFixture(t)
	floating := f.member("floating", domain.TierAssistant, nil, at(7, 0))

	_, err := f.opportunities.SelfAssignIntake(f.ctx, identityOf(floating), basicInput())
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "caller has no dealership", apperrors.ToDomainError(err).Message)
}

func TestUpdateConcludedWithoutReasonLeavesEntityUnchanged(t *testing.T) {
	f := newFixture(t)
	o, err := f.opportunities.Create(f.ctx, f.admin, basicInput())
	require.NoError(t, err)

	in := basicInput()
	in.CustomerName = "Changed"
	in.Status = domain.OpportunityStatusConcluded
	_, err = f.opportunities.Update(f.ctx, f.admin, o.ID, in)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "completion reason required", apperrors.ToDomainError(err).Message)

	stored, err := f.opportunities.Get(f.ctx, f.admin, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Maria", stored.CustomerName)
	assert.Equal(t, domain.OpportunityStatusOpen, stored.Status)
}

func TestUpdateConcludeSynthesizesReasonOnce(t *testing.T) {
	f := newFixture(t)
	d := f.dealership("1")
	x := f.member("Xavier", domain.TierAssistant, &d.ID, at(7, 0))

	in := basicInput()
	in.DealershipID = &d.ID
	in.AssigneeID = &x.ID
	o, err := f.opportunities.Create(f.ctx, f.admin, in)
	require.NoError(t, err)

	in.AssignedAt = o.AssignedAt
	in.Status = domain.OpportunityStatusConcluded
	in.CompletionReason = "sold"
	updated, err := f.opportunities.Update(f.ctx, f.admin, o.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Completed by Xavier. Reason: sold", updated.CompletionReason)
	require.NotNil(t, updated.CompletedAt)
	assert.True(t, updated.CompletedAt.Equal(day(2024, 5, 9)))

	in.CompletionReason = "sold again"
	again, err := f.opportunities.Update(f.ctx, f.admin, o.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "sold again", again.CompletionReason)
	assert.True(t, again.CompletedAt.Equal(day(2024, 5, 9)))

	var concluded int
	for _, e := range f.published {
		if e.Type == events.EventOpportunityConcluded {
			concluded++
		}
	}
	assert.Equal(t, 1, concluded)
}

func TestUpdateConcludeWithoutAssigneeKeepsReasonVerbatim(t *testing.T) {
	f := newFixture(t)
	o, err := f.opportunities.Create(f.ctx, f.admin, basicInput())
	require.NoError(t, err)

	in := basicInput()
	in.Status = domain.OpportunityStatusConcluded
	in.CompletionReason = "customer gave up"
	updated, err := f.opportunities.Update(f.ctx, f.admin, o.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "customer gave up", updated.CompletionReason)
	assert.Nil(t, updated.CompletedAt)
}

func TestUpdateAssignmentDateRule(t *testing.T) {
	f := newFixture(t)
	d := f.dealership("1")
	x := f.member("x", domain.TierAssistant, &d.ID, at(7, 0))

	o, err := f.opportunities.Create(f.ctx, f.admin, basicInput())
	require.NoError(t, err)

	in := basicInput()
	in.AssigneeID = &x.ID
	updated, err := f.opportunities.Update(f.ctx, f.admin, o.ID, in)
	require.NoError(t, err)
	assert.True(t, updated.AssignedAt.Equal(day(2024, 5, 9)))
	assert.Equal(t, int64(0), f.reload(x.ID).Idle.Version, "manual assignment must not touch the idle marker")

	explicit := day(2024, 2, 1)
	in.AssignedAt = &explicit
	updated, err = f.opportunities.Update(f.ctx, f.admin, o.ID, in)
	require.NoError(t, err)
	assert.True(t, updated.AssignedAt.Equal(explicit))

	in = basicInput()
	updated, err = f.opportunities.Update(f.ctx, f.admin, o.ID, in)
	require.NoError(t, err)
	assert.Nil(t, updated.AssigneeID)
	assert.Nil(t, updated.AssignedAt)
}

func TestUpdateScopedToDealershipRejectsOtherDealership(t *testing.T) {
	f := newFixture(t)
	d5 := f.dealership("5")
	d7 := f.dealership("7")
	manager := f.member("m", domain.TierManager, &d5.ID, at(7, 0))

	in := basicInput()
	in.DealershipID = &d7.ID
	o, err := f.opportunities.Create(f.ctx, f.admin, in)
	require.NoError(t, err)

	_, err = f.opportunities.UpdateScopedToDealership(f.ctx, identityOf(manager), o.ID, in)
	assert.Equal(t, apperrors.CodeScopeMismatch, code(t, err))

	in.DealershipID = &d5.ID
	own, err := f.opportunities.Create(f.ctx, f.admin, in)
	require.NoError(t, err)
	in.CustomerName = "Updated"
	updated, err := f.opportunities.UpdateScopedToDealership(f.ctx, identityOf(manager), own.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Updated", updated.CustomerName)
}

func TestUpdateScopedToDealershipChecksTierFirst(t *testing.T) {
	f := newFixture(t)
	d := f.dealership("1")
	assistant := f.member("a", domain.TierAssistant, &d.ID, at(7, 0))

	_, err := f.opportunities.UpdateScopedToDealership(f.ctx, identityOf(assistant), "missing", basicInput())
	assert.Equal(t, apperrors.CodeInsufficientTier, code(t, err))
}

func TestUpdateScopedToAssigneeForbidsTransfer(t *testing.T) {
	f := newFixture(t)
	d := f.dealership("1")
	u := f.member("u", domain.TierAssistant, &d.ID, at(7, 0))
	v := f.member("v", domain.TierAssistant, &d.ID, at(7, 0))

	in := basicInput()
	in.DealershipID = &d.ID
	in.AssigneeID = &u.ID
	o, err := f.opportunities.Create(f.ctx, f.admin, in)
	require.NoError(t, err)

	transfer := in
	transfer.AssigneeID = &v.ID
	_, err = f.opportunities.UpdateScopedToAssignee(f.ctx, identityOf(u), o.ID, transfer)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "cannot transfer opportunity", apperrors.ToDomainError(err).Message)

	unassign := in
	unassign.AssigneeID = nil
	_, err = f.opportunities.UpdateScopedToAssignee(f.ctx, identityOf(u), o.ID, unassign)
	assert.True(t, apperrors.IsValidation(err))

	stored, err := f.opportunities.Get(f.ctx, f.admin, o.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, *stored.AssigneeID)

	_, err = f.opportunities.UpdateScopedToAssignee(f.ctx, identityOf(v), o.ID, in)
	assert.Equal(t, apperrors.CodeScopeMismatch, code(t, err))

	in.VehicleYear = 2024
	in.AssignedAt = o.AssignedAt
	updated, err := f.opportunities.UpdateScopedToAssignee(f.ctx, identityOf(u), o.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 2024, updated.VehicleYear)
}

func TestAdministratorUpdateMayTransfer(t *testing.T) {
	f := newFixture(t)
	d := f.dealership("1")
	u := f.member("u", domain.TierAssistant, &d.ID, at(7, 0))
	v := f.member("v", domain.TierAssistant, &d.ID, at(7, 0))

	in := basicInput()
	in.AssigneeID = &u.ID
	o, err := f.opportunities.Create(f.ctx, f.admin, in)
	require.NoError(t, err)

	in.AssigneeID = &v.ID
	updated, err := f.opportunities.Update(f.ctx, f.admin, o.ID, in)
	require.NoError(t, err)
	assert.Equal(t, v.ID, *updated.AssigneeID)
}

func TestUpdateMissingOpportunity(t *testing.T) {
	f := newFixture(t)
	_, err := f.opportunities.Update(f.ctx, f.admin, "missing", basicInput())
	assert.Equal(t, apperrors.CodeNotFound, code(t, err))
}

func TestDeleteOpportunity(t *testing.T) {
	f := newFixture(t)
	o, err := f.opportunities.Create(f.ctx, f.admin, basicInput())
	require.NoError(t, err)

	require.NoError(t, f.opportunities.Delete(f.ctx, f.admin, o.ID))
	assert.Equal(t, apperrors.CodeNotFound, code(t, f.opportunities.Delete(f.ctx, f.admin, o.ID)))
}

func TestListForCallerDealership(t *testing.T) {
	f := newFixture(t)
	d1 := f.dealership("1")
	d2 := f.dealership("2")
	assistant := f.member("a", domain.TierAssistant, &d1.ID, at(7, 0))

	for _, d := range []*domain.Dealership{d1, d1, d2} {
		in := basicInput()
		in.DealershipID = &d.ID
		_, err := f.opportunities.Create(f.ctx, f.admin, in)
		require.NoError(t, err)
	}

	own, err := f.opportunities.ListForCallerDealership(f.ctx, identityOf(assistant), OpportunityListFilters{})
	require.NoError(t, err)
	assert.Len(t, own, 2)

	all, err := f.opportunities.List(f.ctx, f.admin, OpportunityListFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.opportunities.List(f.ctx, identityOf(assistant), OpportunityListFilters{})
	assert.Equal(t, apperrors.CodeInsufficientTier, code(t, err))
}
