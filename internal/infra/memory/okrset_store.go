package memory

import (
	"context"
	"sync"

	"okr_planning_bot/internal/domain/okrset"

	"github.com/google/uuid"
)

type orgPeriod struct {
	orgID, periodID uuid.UUID
}

// OkrSetStore holds every version of every OKR set.
type OkrSetStore struct {
	mu   sync.RWMutex
	sets map[orgPeriod][]okrset.OkrSet
}

func NewOkrSetStore() *OkrSetStore {
	return &OkrSetStore{sets: make(map[orgPeriod][]okrset.OkrSet)}
}

// Put records a version of an OKR set as the authoring collaborator would.
func (s *OkrSetStore) Put(set okrset.OkrSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set.ID == uuid.Nil {
		set.ID = uuid.New()
	}
	key := orgPeriod{set.OrgID, set.PeriodID}
	s.sets[key] = append(s.sets[key], set)
}

func (s *OkrSetStore) LatestForOrg(ctx context.Context, orgID, periodID uuid.UUID) (*okrset.OkrSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.sets[orgPeriod{orgID, periodID}]
	if len(versions) == 0 {
		return nil, okrset.ErrNotFound
	}
	latest := versions[0]
	for _, v := range versions[1:] {
		if v.Version > latest.Version {
			latest = v
		}
	}
	return &latest, nil
}
