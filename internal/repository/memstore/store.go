// Package memstore keeps every repository in process memory. It backs tests and
// deployments started without POSTGRES_DSN.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/opportunity-service/internal/domain"
	"github.com/spec-kit/opportunity-service/internal/repository"
)

// Store holds all entities behind a single lock so cross-entity reference checks stay consistent.
type Store struct {
	mu            sync.RWMutex
	now           func() time.Time
	staff         map[string]domain.StaffMember
	dealerships   map[string]domain.Dealership
	opportunities map[string]domain.Opportunity
	roleTokens    map[int]domain.RoleTokenRecord
}

// New creates an empty store.
func New() *Store {
	return &Store{
		now:           time.Now,
		staff:         make(map[string]domain.StaffMember),
		dealerships:   make(map[string]domain.Dealership),
		opportunities: make(map[string]domain.Opportunity),
		roleTokens:    make(map[int]domain.RoleTokenRecord),
	}
}

// Staff returns the staff repository view.
func (s *Store) Staff() repository.StaffRepository { return &staffRepo{s} }

// Dealerships returns the dealership repository view.
func (s *Store) Dealerships() repository.DealershipRepository { return &dealershipRepo{s} }

// Opportunities returns the opportunity repository view.
func (s *Store) Opportunities() repository.OpportunityRepository { return &opportunityRepo{s} }

// RoleTokens returns the role token catalog view.
func (s *Store) RoleTokens() repository.RoleTokenRepository { return &roleTokenRepo{s} }

type staffRepo struct{ s *Store }

func (r *staffRepo) Create(_ context.Context, staff *domain.StaffMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.emailTaken(staff.Email, "") {
		return repository.ErrUniqueViolation
	}
	if staff.DealershipID != nil {
		if _, ok := r.s.dealerships[*staff.DealershipID]; !ok {
			return repository.ErrForeignKeyViolation
		}
	}
	now := r.s.now()
	staff.ID = uuid.NewString()
	staff.Idle.Version = 0
	if staff.Idle.LastAssignedAt.IsZero() {
		staff.Idle.LastAssignedAt = now
	}
	staff.CreatedAt = now
	staff.UpdatedAt = now
	r.s.staff[staff.ID] = cloneStaff(*staff)
	return nil
}

func (r *staffRepo) Update(_ context.Context, staff *domain.StaffMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.staff[staff.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.s.emailTaken(staff.Email, staff.ID) {
		return repository.ErrUniqueViolation
	}
	if staff.DealershipID != nil {
		if _, ok := r.s.dealerships[*staff.DealershipID]; !ok {
			return repository.ErrForeignKeyViolation
		}
	}
	current.Name = staff.Name
	current.Email = staff.Email
	current.PasswordHash = staff.PasswordHash
	current.Tier = staff.Tier
	current.DealershipID = cloneString(staff.DealershipID)
	current.UpdatedAt = r.s.now()
	r.s.staff[staff.ID] = current

	staff.UpdatedAt = current.UpdatedAt
	staff.Idle = current.Idle
	return nil
}

func (r *staffRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.staff[id]; !ok {
		return repository.ErrNotFound
	}
	for _, o := range r.s.opportunities {
		if o.AssigneeID != nil && *o.AssigneeID == id {
			return repository.ErrForeignKeyViolation
		}
	}
	delete(r.s.staff, id)
	return nil
}

func (r *staffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	staff, ok := r.s.staff[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneStaff(staff)
	return &out, nil
}

func (r *staffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, staff := range r.s.staff {
		if staff.Email == email {
			out := cloneStaff(staff)
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *staffRepo) List(_ context.Context, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.StaffMember
	for _, staff := range r.s.staff {
		if filter.Tier != nil && staff.Tier != *filter.Tier {
			continue
		}
		if filter.DealershipID != nil && !sameRef(staff.DealershipID, *filter.DealershipID) {
			continue
		}
		result = append(result, cloneStaff(staff))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return paginate(result, filter.Limit, filter.Offset, 50), nil
}

func (r *staffRepo) ListAssignable(_ context.Context, dealershipID string) ([]domain.StaffMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.StaffMember
	for _, staff := range r.s.staff {
		if staff.Tier == domain.TierAssistant && sameRef(staff.DealershipID, dealershipID) {
			result = append(result, cloneStaff(staff))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].Idle.LastAssignedAt, result[j].Idle.LastAssignedAt
		if !a.Equal(b) {
			return a.Before(b)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *staffRepo) ReserveIdle(_ context.Context, id string, expectedVersion int64, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	staff, ok := r.s.staff[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if staff.Idle.Version != expectedVersion {
		return false, nil
	}
	staff.Idle = domain.IdleMarker{LastAssignedAt: at, Version: expectedVersion + 1}
	r.s.staff[id] = staff
	return true, nil
}

type dealershipRepo struct{ s *Store }

func (r *dealershipRepo) Create(_ context.Context, dealership *domain.Dealership) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.taxIDTaken(dealership.TaxID, "") {
		return repository.ErrUniqueViolation
	}
	now := r.s.now()
	dealership.ID = uuid.NewString()
	dealership.CreatedAt = now
	dealership.UpdatedAt = now
	r.s.dealerships[dealership.ID] = *dealership
	return nil
}

func (r *dealershipRepo) Update(_ context.Context, dealership *domain.Dealership) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.dealerships[dealership.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.s.taxIDTaken(dealership.TaxID, dealership.ID) {
		return repository.ErrUniqueViolation
	}
	current.TaxID = dealership.TaxID
	current.LegalName = dealership.LegalName
	current.UpdatedAt = r.s.now()
	r.s.dealerships[dealership.ID] = current
	dealership.UpdatedAt = current.UpdatedAt
	return nil
}

func (r *dealershipRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.dealerships[id]; !ok {
		return repository.ErrNotFound
	}
	for _, staff := range r.s.staff {
		if sameRef(staff.DealershipID, id) {
			return repository.ErrForeignKeyViolation
		}
	}
	for _, o := range r.s.opportunities {
		if sameRef(o.DealershipID, id) {
			return repository.ErrForeignKeyViolation
		}
	}
	delete(r.s.dealerships, id)
	return nil
}

func (r *dealershipRepo) GetByID(_ context.Context, id string) (*domain.Dealership, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	dealership, ok := r.s.dealerships[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &dealership, nil
}

func (r *dealershipRepo) GetByTaxID(_ context.Context, taxID string) (*domain.Dealership, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, dealership := range r.s.dealerships {
		if dealership.TaxID == taxID {
			out := dealership
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *dealershipRepo) List(_ context.Context) ([]domain.Dealership, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]domain.Dealership, 0, len(r.s.dealerships))
	for _, dealership := range r.s.dealerships {
		result = append(result, dealership)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LegalName != result[j].LegalName {
			return result[i].LegalName < result[j].LegalName
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

type opportunityRepo struct{ s *Store }

func (r *opportunityRepo) Create(_ context.Context, opportunity *domain.Opportunity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.checkOpportunityRefs(opportunity); err != nil {
		return err
	}
	now := r.s.now()
	opportunity.ID = uuid.NewString()
	opportunity.CreatedAt = now
	opportunity.UpdatedAt = now
	r.s.opportunities[opportunity.ID] = cloneOpportunity(*opportunity)
	return nil
}

func (r *opportunityRepo) Update(_ context.Context, opportunity *domain.Opportunity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.opportunities[opportunity.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if err := r.s.checkOpportunityRefs(opportunity); err != nil {
		return err
	}
	opportunity.CreatedAt = current.CreatedAt
	opportunity.UpdatedAt = r.s.now()
	r.s.opportunities[opportunity.ID] = cloneOpportunity(*opportunity)
	return nil
}

func (r *opportunityRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.opportunities[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.opportunities, id)
	return nil
}

func (r *opportunityRepo) GetByID(_ context.Context, id string) (*domain.Opportunity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	opportunity, ok := r.s.opportunities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneOpportunity(opportunity)
	return &out, nil
}

func (r *opportunityRepo) List(_ context.Context, filter repository.OpportunityFilter) ([]domain.Opportunity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.Opportunity
	for _, o := range r.s.opportunities {
		if filter.DealershipID != nil && !sameRef(o.DealershipID, *filter.DealershipID) {
			continue
		}
		if filter.AssigneeID != nil && !sameRef(o.AssigneeID, *filter.AssigneeID) {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		result = append(result, cloneOpportunity(o))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return paginate(result, filter.Limit, filter.Offset, 100), nil
}

type roleTokenRepo struct{ s *Store }

func (r *roleTokenRepo) EnsureToken(_ context.Context, record domain.RoleTokenRecord) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.roleTokens[record.ID]; ok {
		return false, nil
	}
	for _, existing := range r.s.roleTokens {
		if existing.Token == record.Token {
			return false, repository.ErrUniqueViolation
		}
	}
	r.s.roleTokens[record.ID] = record
	return true, nil
}

func (r *roleTokenRepo) List(_ context.Context) ([]domain.RoleTokenRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]domain.RoleTokenRecord, 0, len(r.s.roleTokens))
	for _, record := range r.s.roleTokens {
		result = append(result, record)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) emailTaken(email, exceptID string) bool {
	for id, staff := range s.staff {
		if staff.Email == email && id != exceptID {
			return true
		}
	}
	return false
}

func (s *Store) taxIDTaken(taxID, exceptID string) bool {
	for id, dealership := range s.dealerships {
		if dealership.TaxID == taxID && id != exceptID {
			return true
		}
	}
	return false
}

func (s *Store) checkOpportunityRefs(o *domain.Opportunity) error {
	if o.DealershipID != nil {
		if _, ok := s.dealerships[*o.DealershipID]; !ok {
			return repository.ErrForeignKeyViolation
		}
	}
	if o.AssigneeID != nil {
		if _, ok := s.staff[*o.AssigneeID]; !ok {
			return repository.ErrForeignKeyViolation
		}
	}
	return nil
}

func paginate[T any](items []T, limit, offset, defaultLimit int) []T {
	if limit <= 0 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func sameRef(ref *string, id string) bool {
	return ref != nil && *ref == id
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneStaff(s domain.StaffMember) domain.StaffMember {
	s.DealershipID = cloneString(s.DealershipID)
	return s
}

func cloneOpportunity(o domain.Opportunity) domain.Opportunity {
	o.DealershipID = cloneString(o.DealershipID)
	o.AssigneeID = cloneString(o.AssigneeID)
	o.AssignedAt = cloneTime(o.AssignedAt)
	o.CompletedAt = cloneTime(o.CompletedAt)
	return o
}
