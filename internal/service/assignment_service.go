package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/spec-kit/opportunity-service/internal/config"
	"github.com/spec-kit/opportunity-service/internal/domain"
	"github.com/spec-kit/opportunity-service/internal/repository"
	apperrors "github.com/spec-kit/opportunity-service/pkg/util/errorutil"
)

// ErrReservationContention means every reserve attempt lost its compare-and-set.
var ErrReservationContention = errors.New("assistant reservation kept conflicting")

var assignmentOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "opportunity_assignment_total",
	Help: "Least-idle assignment attempts broken down by result.",
}, []string{"result"})

// Locker provides a critical section per key. The returned func releases it.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// localLocker is a keyed mutex for single-process deployments.
type localLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocalLocker returns an in-process Locker.
func NewLocalLocker() Locker {
	return &localLocker{slots: make(map[string]chan struct{})}
}

func (l *localLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AssignmentEngine picks the assistant that has waited longest for an opportunity and
// reserves them in the same step.
type AssignmentEngine struct {
	staff       repository.StaffRepository
	locker      Locker
	maxAttempts int
	now         func() time.Time
	logger      *zap.Logger
}

// NewAssignmentEngine creates the engine. A nil locker falls back to the in-process one.
func NewAssignmentEngine(staff repository.StaffRepository, locker Locker, cfg config.AssignmentConfig, logger *zap.Logger) *AssignmentEngine {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := cfg.MaxReserveAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &AssignmentEngine{
		staff:       staff,
		locker:      locker,
		maxAttempts: attempts,
		now:         time.Now,
		logger:      logger,
	}
}

// Reservation is a committed idle-marker move. Previous is the marker it replaced.
type Reservation struct {
	Assignee *domain.StaffMember
	Previous domain.IdleMarker
}

// AssignLeastIdle reserves the assistant of dealershipID with the oldest idle marker.
// It returns nil without error when the dealership has no assistants.
func (e *AssignmentEngine) AssignLeastIdle(ctx context.Context, dealershipID string) (*domain.StaffMember, error) {
	reservation, err := e.Reserve(ctx, dealershipID)
	if err != nil || reservation == nil {
		return nil, err
	}
	return reservation.Assignee, nil
}

// Reserve is AssignLeastIdle keeping the replaced marker, so a caller whose follow-up
// write fails can hand the slot back with Release.
func (e *AssignmentEngine) Reserve(ctx context.Context, dealershipID string) (*Reservation, error) {
	unlock, err := e.locker.Lock(ctx, "assignment:"+dealershipID)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("lock dealership %s: %w", dealershipID, err))
	}
	defer unlock()

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		candidates, err := e.staff.ListAssignable(ctx, dealershipID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		chosen := leastIdle(candidates)
		if chosen == nil {
			assignmentOutcomes.WithLabelValues("none").Inc()
			e.logger.Info("no assistant available", zap.String("dealership_id", dealershipID))
			return nil, nil
		}

		at := e.now()
		reserved, err := e.staff.ReserveIdle(ctx, chosen.ID, chosen.Idle.Version, at)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if reserved {
			previous := chosen.Idle
			chosen.Idle = domain.IdleMarker{LastAssignedAt: at, Version: previous.Version + 1}
			assignmentOutcomes.WithLabelValues("assigned").Inc()
			e.logger.Info("assistant reserved",
				zap.String("dealership_id", dealershipID),
				zap.String("staff_id", chosen.ID),
				zap.Int("attempt", attempt))
			return &Reservation{Assignee: chosen, Previous: previous}, nil
		}

		assignmentOutcomes.WithLabelValues("conflict").Inc()
		e.logger.Debug("reservation conflict, retrying",
			zap.String("dealership_id", dealershipID),
			zap.String("staff_id", chosen.ID),
			zap.Int("attempt", attempt))
	}
	return nil, apperrors.NewInternalError(ErrReservationContention)
}

// Release restores the marker a reservation replaced. The CAS only matches while nobody
// reserved the assistant again, so a newer reservation is never undone.
func (e *AssignmentEngine) Release(ctx context.Context, r *Reservation) error {
	if r == nil || r.Assignee == nil {
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	restored, err := e.staff.ReserveIdle(ctx, r.Assignee.ID, r.Assignee.Idle.Version, r.Previous.LastAssignedAt)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !restored {
		assignmentOutcomes.WithLabelValues("release_skipped").Inc()
		e.logger.Warn("reservation moved on, not released", zap.String("staff_id", r.Assignee.ID))
		return nil
	}
	assignmentOutcomes.WithLabelValues("released").Inc()
	e.logger.Info("reservation released", zap.String("staff_id", r.Assignee.ID))
	r.Assignee.Idle = domain.IdleMarker{LastAssignedAt: r.Previous.LastAssignedAt, Version: r.Assignee.Idle.Version + 1}
	return nil
}

// leastIdle returns the candidate with the oldest marker, ties broken by ascending id.
func leastIdle(candidates []domain.StaffMember) *domain.StaffMember {
	var best *domain.StaffMember
	for i := range candidates {
		c := &candidates[i]
		if c.Tier != domain.TierAssistant {
			continue
		}
		if best == nil || idleBefore(c, best) {
			best = c
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

func idleBefore(a, b *domain.StaffMember) bool {
	if !a.Idle.LastAssignedAt.Equal(b.Idle.LastAssignedAt) {
		return a.Idle.LastAssignedAt.Before(b.Idle.LastAssignedAt)
	}
	return a.ID < b.ID
}
