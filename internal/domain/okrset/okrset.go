package okrset

import (
	"time"

	"github.com/google/uuid"
)

// RawStatus is the status an OKR set carries in its own workflow.
type RawStatus string

const (
	RawDraft             RawStatus = "draft"
	RawSubmitted         RawStatus = "submitted"
	RawUnderReview       RawStatus = "under_review"
	RawApproved          RawStatus = "approved"
	RawFinalized         RawStatus = "finalized"
	RawRevisionRequested RawStatus = "revision_requested"
)

// Status is the collapsed submission status shown per organization.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusDraft      Status = "draft"
	StatusSubmitted  Status = "submitted"
	StatusApproved   Status = "approved"
	StatusFinalized  Status = "finalized"
)

// OkrSet is one version of an organization's OKRs for a period. Content is not modelled here.
type OkrSet struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	PeriodID  uuid.UUID
	Version   int
	Status    RawStatus
	UpdatedAt time.Time
}

// Collapse maps a raw status onto the closed display set. Unknown values count as draft.
func Collapse(s RawStatus) Status {
	switch s {
	case RawFinalized:
		return StatusFinalized
	case RawApproved:
		return StatusApproved
	case RawSubmitted, RawUnderReview:
		return StatusSubmitted
	default:
		return StatusDraft
	}
}

// CollapseLatest collapses the latest set, or reports not_started when there is none.
func CollapseLatest(set *OkrSet) Status {
	if set == nil {
		return StatusNotStarted
	}
	return Collapse(set.Status)
}

// Complete reports whether the status counts towards the completion rate.
func (s Status) Complete() bool {
	return s == StatusApproved || s == StatusFinalized
}
