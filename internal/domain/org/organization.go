package org

import (
	"time"

	"github.com/google/uuid"
)

// LevelCompany labels the top-level node of a company's organization tree.
const LevelCompany = "company"

// Organization is a node of the company's organization tree (company, division, team, ...).
type Organization struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	Name      string
	Level     string
	ParentID  *uuid.UUID
	CreatedAt time.Time
}

// IsCompanyRoot reports whether o is the company node itself rather than a sub-organization.
func (o *Organization) IsCompanyRoot() bool {
	return o.ParentID == nil || o.Level == LevelCompany
}
