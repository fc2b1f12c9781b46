package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/opportunity-service/internal/auth"
	"github.com/spec-kit/opportunity-service/internal/config"
	"github.com/spec-kit/opportunity-service/internal/domain"
	"github.com/spec-kit/opportunity-service/internal/events"
	"github.com/spec-kit/opportunity-service/internal/repository/memstore"
)

var brt = time.FixedZone("BRT", -3*3600)

// 02:00 UTC is still the previous calendar day in the reference zone.
var fixedNow = time.Date(2024, 5, 10, 2, 0, 0, 0, time.UTC)

type fixture struct {
	t             *testing.T
	ctx           context.Context
	store         *memstore.Store
	engine        *AssignmentEngine
	opportunities *OpportunityService
	staff         *StaffService
	dealerships   *DealershipService
	dispatcher    events.Dispatcher
	published     []events.Event
	admin         *domain.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	dispatcher := events.NewInMemoryDispatcher()
	engine := NewAssignmentEngine(store.Staff(), NewLocalLocker(), config.AssignmentConfig{MaxReserveAttempts: 5}, nil)
	engine.now = func() time.Time { return fixedNow }

	f := &fixture{
		t:          t,
		ctx:        context.Background(),
		store:      store,
		engine:     engine,
		dispatcher: dispatcher,
		admin:      &domain.Identity{StaffID: "root", Email: "root@x.com", Name: "Root", Tier: domain.TierAdministrator},
	}
	f.opportunities = NewOpportunityService(OpportunityDependencies{
		OpportunityRepo: store.Opportunities(),
		DealershipRepo:  store.Dealerships(),
		StaffRepo:       store.Staff(),
		Engine:          engine,
		Dispatcher:      dispatcher,
		Location:        brt,
	})
	f.opportunities.now = func() time.Time { return fixedNow }
	f.staff = NewStaffService(StaffDependencies{
		StaffRepo:      store.Staff(),
		DealershipRepo: store.Dealerships(),
		Credentials:    auth.NewBcryptCredentials(4),
	})
	f.dealerships = NewDealershipService(store.Dealerships())

	record := func(_ context.Context, e events.Event) error {
		f.published = append(f.published, e)
		return nil
	}
	for _, eventType := range []events.EventType{
		events.EventOpportunityCreated,
		events.EventOpportunityAssigned,
		events.EventOpportunityUpdated,
		events.EventOpportunityConcluded,
	} {
		dispatcher.Subscribe(eventType, record)
	}
	return f
}

func (f *fixture) dealership(taxID string) *domain.Dealership {
	f.t.Helper()
	d, err := f.dealerships.Create(f.ctx, f.admin, DealershipInput{TaxID: taxID, LegalName: "Dealer " + taxID})
	require.NoError(f.t, err)
	return d
}

// member inserts a staff record directly so the idle marker can be chosen.
func (f *fixture) member(name string, tier domain.Tier, dealershipID *string, idle time.Time) *domain.StaffMember {
	f.t.Helper()
	m := &domain.StaffMember{
		Name:         name,
		Email:        name + "@x.com",
		PasswordHash: "digest",
		Tier:         tier,
		DealershipID: dealershipID,
		Idle:         domain.IdleMarker{LastAssignedAt: idle},
	}
	require.NoError(f.t, f.store.Staff().Create(f.ctx, m))
	return m
}

func (f *fixture) reload(id string) *domain.StaffMember {
	f.t.Helper()
	m, err := f.store.Staff().GetByID(f.ctx, id)
	require.NoError(f.t, err)
	return m
}

func identityOf(m *domain.StaffMember) *domain.Identity {
	identity := m.Identity()
	return &identity
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 5, 9, hour, minute, 0, 0, brt)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, brt)
}

func basicInput() OpportunityInput {
	return OpportunityInput{
		Status:         domain.OpportunityStatusOpen,
		CustomerName:   "Maria",
		CustomerEmail:  "maria@example.com",
		CustomerPhone:  "+55 11 99999-0000",
		VehicleBrand:   "Fiat",
		VehicleModel:   "Argo",
		VehicleVersion: "Drive 1.0",
		VehicleYear:    2023,
	}
}
