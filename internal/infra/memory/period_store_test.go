package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"okr_planning_bot/internal/domain/period"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newYear(t *testing.T, s *PeriodStore, companyID uuid.UUID, year int) []*period.FiscalPeriod {
	t.Helper()
	periods := period.BuildYearHierarchy(companyID, year, time.Now().UTC())
	require.NoError(t, s.CreateHierarchy(context.Background(), periods))
	return periods
}

func TestPeriodStoreCreateHierarchyIsAllOrNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewPeriodStore()
	companyID := uuid.New()
	newYear(t, s, companyID, 2025)

	again := period.BuildYearHierarchy(companyID, 2025, time.Now().UTC())
	assert.ErrorIs(t, s.CreateHierarchy(ctx, again), period.ErrDuplicateCode)

	all, err := s.ListByCompany(ctx, companyID)
	require.NoError(t, err)
	assert.Len(t, all, 7)

	// Same year for another company does not collide.
	require.NoError(t, s.CreateHierarchy(ctx, period.BuildYearHierarchy(uuid.New(), 2025, time.Now().UTC())))
}

func TestPeriodStoreGetReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewPeriodStore()
	companyID := uuid.New()
	periods := newYear(t, s, companyID, 2025)

	got, err := s.GetByCode(ctx, companyID, "2025-Q2")
	require.NoError(t, err)
	assert.Equal(t, periods[4].ID, got.ID)

	got.Status = period.StatusClosed
	again, err := s.GetByID(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, period.StatusUpcoming, again.Status)

	_, err = s.GetByCode(ctx, uuid.New(), "2025-Q2")
	assert.ErrorIs(t, err, period.ErrNotFound)
}

func TestPeriodStoreUpdateIfRevision(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewPeriodStore()
	periods := newYear(t, s, uuid.New(), 2025)
	q1 := periods[3]

	next := q1.Clone()
	next.PlanningStatus = period.PlanningSetup
	require.NoError(t, s.UpdateIfRevision(ctx, next, 1))
	assert.Equal(t, int64(2), next.Revision)

	stale := q1.Clone()
	stale.PlanningStatus = period.PlanningInProgress
	assert.ErrorIs(t, s.UpdateIfRevision(ctx, stale, 1), period.ErrRevisionConflict)

	stored, err := s.GetByID(ctx, q1.ID)
	require.NoError(t, err)
	assert.Equal(t, period.PlanningSetup, stored.PlanningStatus)

	missing := q1.Clone()
	missing.ID = uuid.New()
	assert.ErrorIs(t, s.UpdateIfRevision(ctx, missing, 1), period.ErrNotFound)
}

func TestPeriodStoreConcurrentUpdatesHaveOneWinner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewPeriodStore()
	q1 := newYear(t, s, uuid.New(), 2025)[3]

	const writers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next := q1.Clone()
			next.Status = period.StatusPlanning
			if err := s.UpdateIfRevision(ctx, next, q1.Revision); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestPeriodStoreDeleteIfRevision(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewPeriodStore()
	companyID := uuid.New()
	periods := newYear(t, s, companyID, 2025)
	h2, q3, q4 := periods[2], periods[5], periods[6]

	assert.ErrorIs(t, s.DeleteIfRevision(ctx, period.RevisionRef{ID: h2.ID, Revision: 7}, nil), period.ErrRevisionConflict)

	// A quarter written after the caller read it keeps the whole cascade in place.
	staleQ4 := q4.Ref()
	staleQ4.Revision--
	err := s.DeleteIfRevision(ctx, h2.Ref(), []period.RevisionRef{q3.Ref(), staleQ4})
	assert.ErrorIs(t, err, period.ErrRevisionConflict)
	all, err := s.ListByCompany(ctx, companyID)
	require.NoError(t, err)
	assert.Len(t, all, 7)

	require.NoError(t, s.DeleteIfRevision(ctx, h2.Ref(), []period.RevisionRef{q3.Ref(), q4.Ref()}))
	all, err = s.ListByCompany(ctx, companyID)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = s.GetByCode(ctx, companyID, "2025-Q3")
	assert.ErrorIs(t, err, period.ErrNotFound)

	// A second delete finds nothing.
	assert.ErrorIs(t, s.DeleteIfRevision(ctx, h2.Ref(), nil), period.ErrNotFound)
}

func TestPeriodStoreListPlanningInProgress(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewPeriodStore()
	periods := newYear(t, s, uuid.New(), 2025)

	running := periods[3].Clone()
	running.PlanningStatus = period.PlanningInProgress
	require.NoError(t, s.Seed(running))

	got, err := s.ListPlanningInProgress(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2025-Q1", got[0].Code)
}
