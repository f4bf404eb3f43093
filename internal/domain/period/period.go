// internal/domain/period/period.go
package period

import (
	"time"

	"github.com/google/uuid"
)

// Type is the granularity of a fiscal period.
type Type string

const (
	TypeYear    Type = "year"
	TypeHalf    Type = "half"
	TypeQuarter Type = "quarter"
)

// Rank orders period types from widest to narrowest.
func (t Type) Rank() int {
	switch t {
	case TypeYear:
		return 0
	case TypeHalf:
		return 1
	case TypeQuarter:
		return 2
	default:
		return 3
	}
}

// Status is the outer lifecycle of a period:
// upcoming -> planning -> active -> closing -> closed -> archived.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusPlanning Status = "planning"
	StatusActive   Status = "active"
	StatusClosing  Status = "closing"
	StatusClosed   Status = "closed"
	StatusArchived Status = "archived"
)

// PlanningStatus is the planning sub-lifecycle running inside a period:
// not_started -> setup -> in_progress -> closing -> completed.
type PlanningStatus string

const (
	PlanningNotStarted PlanningStatus = "not_started"
	PlanningSetup      PlanningStatus = "setup"
	// PlanningDrafting is accepted when read back from storage and displayed, but no operation
	// moves a period into or out of it.
	PlanningDrafting   PlanningStatus = "drafting"
	PlanningInProgress PlanningStatus = "in_progress"
	PlanningClosing    PlanningStatus = "closing"
	PlanningCompleted  PlanningStatus = "completed"
)

// FiscalPeriod is a bounded time window (year, half or quarter) owned by a company.
// StartsAt and EndsAt are calendar dates (UTC midnight); EndsAt is the last day of the period.
type FiscalPeriod struct {
	ID             uuid.UUID
	CompanyID      uuid.UUID
	Code           string // e.g. 2025-Y, 2025-H1, 2025-Q3
	Name           string
	Type           Type
	StartsAt       time.Time
	EndsAt         time.Time
	ParentID       *uuid.UUID
	Status         Status
	PlanningStatus PlanningStatus

	PlanningStartsAt        *time.Time
	PlanningDeadlineAt      *time.Time
	PlanningGraceDeadlineAt *time.Time
	PlanningMessage         string
	PlanningAutoRemindDays  []int

	PlanningStartedAt   *time.Time
	PlanningClosedAt    *time.Time
	PlanningCompletedAt *time.Time
	ClosingStartedAt    *time.Time
	ClosingStartedBy    *uuid.UUID
	ClosedAt            *time.Time
	ClosedBy            *uuid.UUID

	CompanyOKRFinalized bool

	// Revision is bumped on every write and is the key for conditional updates.
	Revision  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so callers can mutate a candidate state without touching the original.
func (p *FiscalPeriod) Clone() *FiscalPeriod {
	if p == nil {
		return nil
	}
	c := *p
	c.ParentID = cloneID(p.ParentID)
	c.PlanningStartsAt = cloneTime(p.PlanningStartsAt)
	c.PlanningDeadlineAt = cloneTime(p.PlanningDeadlineAt)
	c.PlanningGraceDeadlineAt = cloneTime(p.PlanningGraceDeadlineAt)
	c.PlanningStartedAt = cloneTime(p.PlanningStartedAt)
	c.PlanningClosedAt = cloneTime(p.PlanningClosedAt)
	c.PlanningCompletedAt = cloneTime(p.PlanningCompletedAt)
	c.ClosingStartedAt = cloneTime(p.ClosingStartedAt)
	c.ClosingStartedBy = cloneID(p.ClosingStartedBy)
	c.ClosedAt = cloneTime(p.ClosedAt)
	c.ClosedBy = cloneID(p.ClosedBy)
	if p.PlanningAutoRemindDays != nil {
		c.PlanningAutoRemindDays = append([]int(nil), p.PlanningAutoRemindDays...)
	}
	return &c
}

// Contains reports whether child's date range lies inside p's range.
func (p *FiscalPeriod) Contains(child *FiscalPeriod) bool {
	return !child.StartsAt.Before(p.StartsAt) && !child.EndsAt.After(p.EndsAt)
}

// PlanningOpen reports whether the period's outer status still allows planning work.
func (p *FiscalPeriod) PlanningOpen() bool {
	switch p.Status {
	case StatusUpcoming, StatusPlanning, StatusActive:
		return true
	default:
		return false
	}
}

// AcceptsSubmissions reports whether OKR submissions may still be made for the period.
// Submission collaborators must refuse new submissions once this turns false.
func (p *FiscalPeriod) AcceptsSubmissions() bool {
	return p.PlanningOpen() && p.PlanningStatus == PlanningInProgress
}

// RemindsOn reports whether daysLeft is one of the configured automatic reminder offsets.
func (p *FiscalPeriod) RemindsOn(daysLeft int) bool {
	for _, d := range p.PlanningAutoRemindDays {
		if d == daysLeft {
			return true
		}
	}
	return false
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
