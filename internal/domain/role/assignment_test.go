package role

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDefaultLevelIsOrdered(t *testing.T) {
	t.Parallel()

	ordered := []Name{Member, OrgHead, CompanyAdmin, SuperAdmin, System}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, DefaultLevel(ordered[i]), DefaultLevel(ordered[i-1]),
			"%s should outrank %s", ordered[i], ordered[i-1])
	}
	assert.Equal(t, LevelNone, DefaultLevel(Name("guest")))
}

func TestAssignmentLeads(t *testing.T) {
	t.Parallel()

	orgID := uuid.New()
	assert.True(t, Assignment{Role: OrgHead, OrgID: &orgID}.Leads())
	assert.True(t, Assignment{Role: CompanyAdmin, OrgID: &orgID}.Leads())
	assert.False(t, Assignment{Role: Member, OrgID: &orgID}.Leads())
	assert.False(t, Assignment{Role: CompanyAdmin}.Leads(), "company-wide assignments lead no single organization")
	assert.True(t, Assignment{Role: CompanyAdmin}.CompanyWide())
}
