package role

import (
	"github.com/google/uuid"
)

// Name identifies a role.
type Name string

const (
	Member       Name = "member"
	OrgHead      Name = "org_head"
	CompanyAdmin Name = "company_admin"
	SuperAdmin   Name = "super_admin"
	// System is never stored; it is the identity scheduled jobs act under.
	System Name = "system"
)

// Role levels are ordinal: a higher level holds every capability of the lower ones.
const (
	LevelNone         = 0
	LevelMember       = 10
	LevelOrgHead      = 20
	LevelCompanyAdmin = 30
	LevelSuperAdmin   = 40
	LevelSystem       = 50
)

// DefaultLevel is the level a role carries when the directory does not store one.
func DefaultLevel(n Name) int {
	switch n {
	case Member:
		return LevelMember
	case OrgHead:
		return LevelOrgHead
	case CompanyAdmin:
		return LevelCompanyAdmin
	case SuperAdmin:
		return LevelSuperAdmin
	case System:
		return LevelSystem
	default:
		return LevelNone
	}
}

// Assignment grants a profile a role, company-wide when OrgID is nil.
type Assignment struct {
	ProfileID uuid.UUID
	Role      Name
	Level     int
	OrgID     *uuid.UUID
}

// CompanyWide reports whether the assignment is not scoped to a single organization.
func (a Assignment) CompanyWide() bool { return a.OrgID == nil }

// Leads reports whether the assignment makes its holder the head of an organization.
func (a Assignment) Leads() bool {
	return a.OrgID != nil && (a.Role == OrgHead || a.Role == CompanyAdmin)
}
