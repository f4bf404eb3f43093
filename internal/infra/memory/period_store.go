package memory

import (
	"context"
	"sync"

	"okr_planning_bot/internal/domain/period"

	"github.com/google/uuid"
)

type companyCode struct {
	companyID uuid.UUID
	code      string
}

// PeriodStore keeps periods in one arena tree per company. All writes run under a single
// mutex, which is what makes UpdateIfRevision a real compare-and-swap.
type PeriodStore struct {
	mu     sync.RWMutex
	trees  map[uuid.UUID]*period.Tree
	owner  map[uuid.UUID]uuid.UUID // period id -> company id
	byCode map[companyCode]uuid.UUID
}

func NewPeriodStore() *PeriodStore {
	return &PeriodStore{
		trees:  make(map[uuid.UUID]*period.Tree),
		owner:  make(map[uuid.UUID]uuid.UUID),
		byCode: make(map[companyCode]uuid.UUID),
	}
}

func (s *PeriodStore) tree(companyID uuid.UUID) *period.Tree {
	t, ok := s.trees[companyID]
	if !ok {
		t = period.NewTree()
		s.trees[companyID] = t
	}
	return t
}

func (s *PeriodStore) CreateHierarchy(ctx context.Context, periods []*period.FiscalPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[companyCode]bool, len(periods))
	for _, p := range periods {
		key := companyCode{p.CompanyID, p.Code}
		if _, exists := s.byCode[key]; exists || batch[key] {
			return period.ErrDuplicateCode
		}
		batch[key] = true
	}
	if _, err := period.BuildTree(periods); err != nil {
		return err
	}
	for _, p := range periods {
		if err := s.insert(p.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (s *PeriodStore) insert(p *period.FiscalPeriod) error {
	if err := s.tree(p.CompanyID).Insert(p); err != nil {
		return err
	}
	s.owner[p.ID] = p.CompanyID
	s.byCode[companyCode{p.CompanyID, p.Code}] = p.ID
	return nil
}

// Seed stores p as is, bypassing lifecycle rules. Used to load fixtures.
func (s *PeriodStore) Seed(p *period.FiscalPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(p.Clone())
}

func (s *PeriodStore) get(id uuid.UUID) (*period.FiscalPeriod, bool) {
	companyID, ok := s.owner[id]
	if !ok {
		return nil, false
	}
	return s.trees[companyID].Get(id)
}

func (s *PeriodStore) GetByID(ctx context.Context, id uuid.UUID) (*period.FiscalPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.get(id)
	if !ok {
		return nil, period.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *PeriodStore) GetByCode(ctx context.Context, companyID uuid.UUID, code string) (*period.FiscalPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCode[companyCode{companyID, code}]
	if !ok {
		return nil, period.ErrNotFound
	}
	p, _ := s.get(id)
	return p.Clone(), nil
}

func (s *PeriodStore) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*period.FiscalPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trees[companyID]
	if !ok {
		return []*period.FiscalPeriod{}, nil
	}
	return cloneAll(t.All()), nil
}

func (s *PeriodStore) ListPlanningInProgress(ctx context.Context) ([]*period.FiscalPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*period.FiscalPeriod, 0)
	for _, t := range s.trees {
		for _, p := range t.All() {
			if p.PlanningStatus == period.PlanningInProgress {
				out = append(out, p.Clone())
			}
		}
	}
	period.SortPeriods(out)
	return out, nil
}

func (s *PeriodStore) UpdateIfRevision(ctx context.Context, next *period.FiscalPeriod, expectedRevision int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.get(next.ID)
	if !ok {
		return period.ErrNotFound
	}
	if cur.Revision != expectedRevision {
		return period.ErrRevisionConflict
	}
	stored := next.Clone()
	stored.Revision = expectedRevision + 1
	if err := s.tree(cur.CompanyID).Insert(stored); err != nil {
		return err
	}
	next.Revision = stored.Revision
	return nil
}

func (s *PeriodStore) DeleteIfRevision(ctx context.Context, root period.RevisionRef, descendants []period.RevisionRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.get(root.ID)
	if !ok {
		return period.ErrNotFound
	}
	refs := append([]period.RevisionRef{root}, descendants...)
	for _, ref := range refs {
		p, ok := s.get(ref.ID)
		if !ok {
			return period.ErrNotFound
		}
		if p.Revision != ref.Revision {
			return period.ErrRevisionConflict
		}
	}
	t := s.trees[cur.CompanyID]
	for _, ref := range refs {
		p, _ := t.Get(ref.ID)
		t.Remove(ref.ID)
		delete(s.owner, ref.ID)
		delete(s.byCode, companyCode{p.CompanyID, p.Code})
	}
	return nil
}

func cloneAll(ps []*period.FiscalPeriod) []*period.FiscalPeriod {
	out := make([]*period.FiscalPeriod, len(ps))
	for i, p := range ps {
		out[i] = p.Clone()
	}
	return out
}
