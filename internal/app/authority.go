package app

import (
	"context"
	"errors"
	"fmt"

	"okr_planning_bot/internal/domain/role"

	"github.com/google/uuid"
)

// Actor is the caller of an operation. The company it acts for travels with every request
// instead of living in shared state.
type Actor struct {
	ProfileID uuid.UUID
	CompanyID uuid.UUID
	Name      string
	system    bool
}

// SystemActor is the identity scheduled reminder runs act under for a company.
func SystemActor(companyID uuid.UUID) Actor {
	return Actor{CompanyID: companyID, Name: "OKR planning", system: true}
}

func (a Actor) IsSystem() bool { return a.system }

// senderID is nil for the system actor; notifications then carry no sender profile.
func (a Actor) senderID() *uuid.UUID {
	if a.system || a.ProfileID == uuid.Nil {
		return nil
	}
	id := a.ProfileID
	return &id
}

// Capability is something a caller may be allowed to do.
type Capability string

const (
	CapViewPeriods    Capability = "periods.view"
	CapViewStatus     Capability = "planning.status.view"
	CapSendNudge      Capability = "planning.nudge.send"
	CapManagePeriods  Capability = "periods.manage"
	CapManagePlanning Capability = "planning.manage"
	CapManageClosing  Capability = "closing.manage"
)

// capabilityMinLevel is the single source of truth for who may do what. A capability
// missing from the table is denied to everyone.
var capabilityMinLevel = map[Capability]int{
	CapViewPeriods:    role.LevelMember,
	CapViewStatus:     role.LevelOrgHead,
	CapSendNudge:      role.LevelOrgHead,
	CapManagePeriods:  role.LevelCompanyAdmin,
	CapManagePlanning: role.LevelCompanyAdmin,
	CapManageClosing:  role.LevelCompanyAdmin,
}

// AllCapabilities lists every declared capability.
func AllCapabilities() []Capability {
	return []Capability{
		CapViewPeriods, CapViewStatus, CapSendNudge,
		CapManagePeriods, CapManagePlanning, CapManageClosing,
	}
}

// MinimumLevel returns the lowest role level holding c.
func MinimumLevel(c Capability) (int, bool) {
	lvl, ok := capabilityMinLevel[c]
	return lvl, ok
}

// Operation names an externally exposed orchestrator operation.
type Operation string

const (
	OpCreateYearHierarchy Operation = "create_year_hierarchy"
	OpListPeriods         Operation = "list_periods"
	OpGetPeriod           Operation = "get_period"
	OpSavePlanningSetup   Operation = "save_planning_setup"
	OpStartPlanning       Operation = "start_planning"
	OpClosePlanning       Operation = "close_planning"
	OpFinalizePlanning    Operation = "finalize_planning"
	OpStartClosing        Operation = "start_closing"
	OpFinalizeClosing     Operation = "finalize_closing"
	OpDeletePeriod        Operation = "delete_period"
	OpComputeOrgStatuses  Operation = "compute_org_statuses"
	OpSendNudge           Operation = "send_nudge"
)

var operationCapability = map[Operation]Capability{
	OpCreateYearHierarchy: CapManagePeriods,
	OpListPeriods:         CapViewPeriods,
	OpGetPeriod:           CapViewPeriods,
	OpSavePlanningSetup:   CapManagePlanning,
	OpStartPlanning:       CapManagePlanning,
	OpClosePlanning:       CapManagePlanning,
	OpFinalizePlanning:    CapManagePlanning,
	OpStartClosing:        CapManageClosing,
	OpFinalizeClosing:     CapManageClosing,
	OpDeletePeriod:        CapManagePeriods,
	OpComputeOrgStatuses:  CapViewStatus,
	OpSendNudge:           CapSendNudge,
}

// AllOperations lists every exposed operation.
func AllOperations() []Operation {
	return []Operation{
		OpCreateYearHierarchy, OpListPeriods, OpGetPeriod,
		OpSavePlanningSetup, OpStartPlanning, OpClosePlanning, OpFinalizePlanning,
		OpStartClosing, OpFinalizeClosing, OpDeletePeriod,
		OpComputeOrgStatuses, OpSendNudge,
	}
}

// CapabilityFor returns the capability gating op.
func CapabilityFor(op Operation) (Capability, bool) {
	c, ok := operationCapability[op]
	return c, ok
}

// ResolveMaxLevel returns the highest level across all assignments, whatever their scope.
func ResolveMaxLevel(assignments []role.Assignment) int {
	highest := role.LevelNone
	for _, a := range assignments {
		if a.Level > highest {
			highest = a.Level
		}
	}
	return highest
}

// IsAllowed reports whether the assignments reach the minimum level of c.
func IsAllowed(assignments []role.Assignment, c Capability) bool {
	need, ok := capabilityMinLevel[c]
	if !ok {
		return false
	}
	return ResolveMaxLevel(assignments) >= need
}

// OrgScope is the set of organizations a caller may act on.
type OrgScope struct {
	CompanyWide bool
	OrgIDs      map[uuid.UUID]struct{}
}

// Includes reports whether orgID is inside the scope. Scope is not inherited by
// descendant organizations: only directly assigned orgs are included.
func (s OrgScope) Includes(orgID uuid.UUID) bool {
	if s.CompanyWide {
		return true
	}
	_, ok := s.OrgIDs[orgID]
	return ok
}

// AuthorizedOrgIDs derives the caller's org scope. Any company-wide assignment of org_head
// level or above opens the whole company; plain members get no org scope at all.
func AuthorizedOrgIDs(assignments []role.Assignment) OrgScope {
	scope := OrgScope{OrgIDs: make(map[uuid.UUID]struct{})}
	for _, a := range assignments {
		if a.Level < role.LevelOrgHead {
			continue
		}
		if a.CompanyWide() {
			scope.CompanyWide = true
			continue
		}
		scope.OrgIDs[*a.OrgID] = struct{}{}
	}
	return scope
}

// RoleAuthority loads a caller's assignments and gates operations on them.
type RoleAuthority struct {
	roles role.Directory
}

func NewRoleAuthority(roles role.Directory) *RoleAuthority {
	return &RoleAuthority{roles: roles}
}

// Assignments returns the caller's role assignments. A profile of another company has none.
func (a *RoleAuthority) Assignments(ctx context.Context, actor Actor) ([]role.Assignment, error) {
	if actor.system {
		return []role.Assignment{{Role: role.System, Level: role.LevelSystem}}, nil
	}
	if actor.ProfileID == uuid.Nil || actor.CompanyID == uuid.Nil {
		return nil, nil
	}
	profile, err := a.roles.GetProfile(ctx, actor.ProfileID)
	if err != nil {
		if errors.Is(err, role.ErrProfileNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load caller profile: %w", err)
	}
	if profile.CompanyID != actor.CompanyID {
		return nil, nil
	}
	assignments, err := a.roles.ListAssignments(ctx, actor.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load caller role assignments: %w", err)
	}
	return assignments, nil
}

// Authorize fails closed: unknown operations, unknown callers and lookup errors all deny.
// It returns the caller's assignments so scope checks need no second lookup.
func (a *RoleAuthority) Authorize(ctx context.Context, actor Actor, op Operation) ([]role.Assignment, error) {
	c, ok := operationCapability[op]
	if !ok {
		return nil, fmt.Errorf("%w: operation %q is not mapped to a capability", ErrNotAuthorized, op)
	}
	assignments, err := a.Assignments(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !IsAllowed(assignments, c) {
		return nil, fmt.Errorf("%w: %s requires level %d, caller has %d",
			ErrNotAuthorized, op, capabilityMinLevel[c], ResolveMaxLevel(assignments))
	}
	return assignments, nil
}
