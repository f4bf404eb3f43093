package memory

import (
	"context"
	"sort"
	"sync"

	"okr_planning_bot/internal/domain/org"
	"okr_planning_bot/internal/domain/role"

	"github.com/google/uuid"
)

// Directory serves organizations, profiles and role assignments from memory.
type Directory struct {
	mu          sync.RWMutex
	orgs        map[uuid.UUID]*org.Organization
	profiles    map[uuid.UUID]*role.Profile
	assignments []role.Assignment
}

func NewDirectory() *Directory {
	return &Directory{
		orgs:     make(map[uuid.UUID]*org.Organization),
		profiles: make(map[uuid.UUID]*role.Profile),
	}
}

func (d *Directory) AddOrganization(o *org.Organization) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := *o
	d.orgs[o.ID] = &c
}

func (d *Directory) AddProfile(p *role.Profile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := *p
	d.profiles[p.ID] = &c
}

// Assign grants a role. A zero level falls back to the role's default level.
func (d *Directory) Assign(a role.Assignment) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if a.Level == 0 {
		a.Level = role.DefaultLevel(a.Role)
	}
	d.assignments = append(d.assignments, a)
}

func (d *Directory) GetByID(ctx context.Context, id uuid.UUID) (*org.Organization, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	o, ok := d.orgs[id]
	if !ok {
		return nil, org.ErrNotFound
	}
	c := *o
	return &c, nil
}

func (d *Directory) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*org.Organization, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*org.Organization, 0)
	for _, o := range d.orgs {
		if o.CompanyID == companyID {
			c := *o
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *Directory) GetProfile(ctx context.Context, id uuid.UUID) (*role.Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.profiles[id]
	if !ok {
		return nil, role.ErrProfileNotFound
	}
	c := *p
	return &c, nil
}

func (d *Directory) GetProfileByTelegramID(ctx context.Context, telegramID int64) (*role.Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.profiles {
		if p.TelegramID.Valid && p.TelegramID.Int64 == telegramID {
			c := *p
			return &c, nil
		}
	}
	return nil, role.ErrProfileNotFound
}

func (d *Directory) ListAssignments(ctx context.Context, profileID uuid.UUID) ([]role.Assignment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]role.Assignment, 0)
	for _, a := range d.assignments {
		if a.ProfileID == profileID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (d *Directory) ListLeaders(ctx context.Context, companyID uuid.UUID) ([]role.Assignment, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]role.Assignment, 0)
	for _, a := range d.assignments {
		if !a.Leads() {
			continue
		}
		if o, ok := d.orgs[*a.OrgID]; ok && o.CompanyID == companyID {
			out = append(out, a)
		}
	}
	return out, nil
}
