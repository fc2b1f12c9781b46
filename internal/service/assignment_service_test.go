package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/opportunity-service/internal/config"
	"github.com/spec-kit/opportunity-service/internal/domain"
	"github.com/spec-kit/opportunity-service/internal/repository"
	apperrors "github.com/spec-kit/opportunity-service/pkg/util/errorutil"
)

func TestAssignLeastIdlePicksOldestMarker(t *testing.T) {
	f := newFixture(t)
	d := f.dealership("1")
	x := f.member("x", domain.TierAssistant, &d.ID, at(10, 0))
	y := f.member("y", domain.TierAssistant, &d.ID, at(9, 0))
	f.member("boss", domain.TierManager, &d.ID, at(8, 0))

	chosen, err := f.engine.AssignLeastIdle(f.ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, chosen)
	assert.Equal(t, y.ID, chosen.ID)

	stored := f.reload(y.ID)
	assert.True(t, stored.Idle.LastAssignedAt.Equal(fixedNow))
	assert.True(t, stored.Idle.LastAssignedAt.After(x.Idle.LastAssignedAt))
	assert.Equal(t, int64(1), stored.Idle.Version)
}

func TestAssignLeastIdleBreaksTiesByID(t *testing.T) {
	f := newFixture(t)
	d := f.dealership("1")
	a := f.member("a", domain.TierAssistant, &d.ID, at(9, 0))
	b := f.member("b", domain.TierAssistant, &d.ID, at(9, 0))

	expected := a.ID
	if b.ID < a.ID {
		expected = b.ID
	}
	chosen, err := f.engine.AssignLeastIdle(f.ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, expected, chosen.ID)
}

func TestAssignLeastIdleWithoutAssistants(t *testing.T) {
	f := newFixture(t)
	d := f.dealership("1")
	other := f.dealership("2")
	f.member("elsewhere", domain.TierAssistant, &other.ID, at(9, 0))

	chosen, err := f.engine.AssignLeastIdle(f.ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, chosen)
}

// stealingStaff lets another writer win the first reservation.
type stealingStaff struct {
	repository.StaffRepository
	mu     sync.Mutex
	stolen int
}

func (s *stealingStaff) ReserveIdle(ctx context.Context, id string, version int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stolen == 0 {
		s.stolen++
		if _, err := s.StaffRepository.ReserveIdle(ctx, id, version, at.Add(time.Second)); err != nil {
			return false, err
		}
		return false, nil
	}
	return s.StaffRepository.ReserveIdle(ctx, id, version, at)
}

func TestAssignLeastIdleRetriesLostReservation(t *testing.T) {
	f := newFixture(t)
	d := f.dealership("1")
	first := f.member("first", domain.TierAssistant, &d.ID, at(8, 0))
	second := f.member("second", domain.TierAssistant, &d.ID, at(9, 0))

	engine := NewAssignmentEngine(&stealingStaff{StaffRepository: f.store.Staff()}, nil, config.AssignmentConfig{MaxReserveAttempts: 3}, nil)
	engine.now = func() time.Time { return fixedNow }

	chosen, err := engine.AssignLeastIdle(f.ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, chosen.ID)
	assert.Equal(t, int64(1), f.reload(first.ID).Idle.Version)
	assert.Equal(t, int64(1), f.reload(second.ID).Idle.Version)
}

// losingStaff never wins a reservation.
type losingStaff struct{ repository.StaffRepository }

func (losingStaff) ReserveIdle(context.Context, string, int64, time.Time) (bool, error) {
	return false, nil
}

func TestAssignLeastIdleGivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t)
	d := f.dealership("1")
	f.member("a", domain.TierAssistant, &d.ID, at(8, 0))

	engine := NewAssignmentEngine(losingStaff{f.store.Staff()}, nil, config.AssignmentConfig{MaxReserveAttempts: 2}, nil)
	_, err := engine.AssignLeastIdle(f.ctx, d.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReservationContention)
	assert.Equal(t, apperrors.CodeInternal, apperrors.ToDomainError(err).Code)
}

type noLocker struct{}

func (noLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

func TestConcurrentIntakeNeverPicksSameAssistant(t *testing.T) {
	for name, locker := range map[string]Locker{"local": NewLocalLocker(), "cas-only": noLocker{}} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			d := f.dealership("1")
			const assistants = 6
			for i := 0; i < assistants; i++ {
				f.member(string(rune('a'+i)), domain.TierAssistant, &d.ID, at(8, i))
			}
			engine := NewAssignmentEngine(f.store.Staff(), locker, config.AssignmentConfig{MaxReserveAttempts: assistants * 2}, nil)

			var wg sync.WaitGroup
			results := make(chan string, assistants)
			for i := 0; i < assistants; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					chosen, err := engine.AssignLeastIdle(context.Background(), d.ID)
					if assert.NoError(t, err) && assert.NotNil(t, chosen) {
						results <- chosen.ID
					}
				}()
			}
			wg.Wait()
			close(results)

			seen := map[string]bool{}
			for id := range results {
				assert.False(t, seen[id], "assistant %s picked twice", id)
				seen[id] = true
			}
			assert.Len(t, seen, assistants)
		})
	}
}

func TestLocalLockerHonorsContext(t *testing.T) {
	locker := NewLocalLocker()
	unlock, err := locker.Lock(context.Background(), "d1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "d1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
