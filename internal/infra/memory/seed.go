package memory

import (
	"bytes"
	"database/sql"
	"fmt"
	"os"

	"okr_planning_bot/internal/domain/org"
	"okr_planning_bot/internal/domain/role"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Seed is the directory content the memory driver starts with.
type Seed struct {
	Organizations []SeedOrganization `yaml:"organizations"`
	Profiles      []SeedProfile      `yaml:"profiles"`
}

type SeedOrganization struct {
	ID        string `yaml:"id"`
	CompanyID string `yaml:"company_id"`
	Name      string `yaml:"name"`
	Level     string `yaml:"level"`
	ParentID  string `yaml:"parent_id"`
}

type SeedProfile struct {
	ID         string     `yaml:"id"`
	CompanyID  string     `yaml:"company_id"`
	FullName   string     `yaml:"full_name"`
	TelegramID int64      `yaml:"telegram_id"`
	Roles      []SeedRole `yaml:"roles"`
}

type SeedRole struct {
	Role  string `yaml:"role"`
	Level int    `yaml:"level"`
	OrgID string `yaml:"org_id"` // empty means company-wide
}

// ParseSeed decodes a YAML seed. Unknown keys are rejected.
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	return &seed, nil
}

// LoadSeedFile reads and decodes a YAML seed file.
func LoadSeedFile(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	seed, err := ParseSeed(data)
	if err != nil {
		return nil, fmt.Errorf("seed: %s: %w", path, err)
	}
	return seed, nil
}

// Load adds the seed's organizations, profiles and role assignments. Nothing is added
// when any entry is invalid.
func (d *Directory) Load(seed *Seed) error {
	orgs := make([]*org.Organization, 0, len(seed.Organizations))
	known := make(map[uuid.UUID]bool, len(seed.Organizations))
	for i, so := range seed.Organizations {
		o, err := so.organization()
		if err != nil {
			return fmt.Errorf("seed: organization %d: %w", i, err)
		}
		known[o.ID] = true
		orgs = append(orgs, o)
	}

	profiles := make([]*role.Profile, 0, len(seed.Profiles))
	var assignments []role.Assignment
	for i, sp := range seed.Profiles {
		p, roles, err := sp.profile(known)
		if err != nil {
			return fmt.Errorf("seed: profile %d: %w", i, err)
		}
		profiles = append(profiles, p)
		assignments = append(assignments, roles...)
	}

	for _, o := range orgs {
		d.AddOrganization(o)
	}
	for _, p := range profiles {
		d.AddProfile(p)
	}
	for _, a := range assignments {
		d.Assign(a)
	}
	return nil
}

func (so SeedOrganization) organization() (*org.Organization, error) {
	id, err := uuid.Parse(so.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", so.ID, err)
	}
	companyID, err := uuid.Parse(so.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("invalid company_id %q: %w", so.CompanyID, err)
	}
	if so.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	o := &org.Organization{ID: id, CompanyID: companyID, Name: so.Name, Level: so.Level}
	if so.ParentID != "" {
		parentID, err := uuid.Parse(so.ParentID)
		if err != nil {
			return nil, fmt.Errorf("invalid parent_id %q: %w", so.ParentID, err)
		}
		o.ParentID = &parentID
	}
	if o.Level == "" {
		o.Level = org.LevelCompany
		if o.ParentID != nil {
			o.Level = "division"
		}
	}
	return o, nil
}

func (sp SeedProfile) profile(knownOrgs map[uuid.UUID]bool) (*role.Profile, []role.Assignment, error) {
	id, err := uuid.Parse(sp.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid id %q: %w", sp.ID, err)
	}
	companyID, err := uuid.Parse(sp.CompanyID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid company_id %q: %w", sp.CompanyID, err)
	}
	p := &role.Profile{ID: id, CompanyID: companyID, FullName: sp.FullName}
	if sp.TelegramID != 0 {
		p.TelegramID = sql.NullInt64{Int64: sp.TelegramID, Valid: true}
	}

	assignments := make([]role.Assignment, 0, len(sp.Roles))
	for _, sr := range sp.Roles {
		name := role.Name(sr.Role)
		if name == role.System || role.DefaultLevel(name) == role.LevelNone {
			return nil, nil, fmt.Errorf("unknown role %q", sr.Role)
		}
		a := role.Assignment{ProfileID: id, Role: name, Level: sr.Level}
		if sr.OrgID != "" {
			orgID, err := uuid.Parse(sr.OrgID)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid org_id %q: %w", sr.OrgID, err)
			}
			if !knownOrgs[orgID] {
				return nil, nil, fmt.Errorf("role %s refers to unknown organization %s", sr.Role, orgID)
			}
			a.OrgID = &orgID
		}
		assignments = append(assignments, a)
	}
	return p, assignments, nil
}
