package period

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	MinYear = 2000
	MaxYear = 2100
)

var codePattern = regexp.MustCompile(`^(\d{4})-(Y|H[12]|Q[1-4])$`)

// YearCode returns the period code of a whole year, e.g. 2025-Y.
func YearCode(year int) string { return fmt.Sprintf("%04d-Y", year) }

// HalfCode returns the period code of half n (1 or 2), e.g. 2025-H1.
func HalfCode(year, n int) string { return fmt.Sprintf("%04d-H%d", year, n) }

// QuarterCode returns the period code of quarter n (1..4), e.g. 2025-Q3.
func QuarterCode(year, n int) string { return fmt.Sprintf("%04d-Q%d", year, n) }

// ParseCode splits a period code into year and type. It rejects anything that is not
// YYYY-Y, YYYY-H1/H2 or YYYY-Q1..Q4.
func ParseCode(code string) (int, Type, error) {
	m := codePattern.FindStringSubmatch(code)
	if m == nil {
		return 0, "", fmt.Errorf("malformed period code %q", code)
	}
	year, _ := strconv.Atoi(m[1])
	switch m[2][0] {
	case 'Y':
		return year, TypeYear, nil
	case 'H':
		return year, TypeHalf, nil
	default:
		return year, TypeQuarter, nil
	}
}

// BuildYearHierarchy lays out the seven periods of a calendar year: the year itself,
// H1 and H2 under it, and Q1..Q4 under their halves. Ids are fresh; the caller persists them.
func BuildYearHierarchy(companyID uuid.UUID, year int, now time.Time) []*FiscalPeriod {
	mk := func(code, name string, t Type, start, end time.Time, parent *FiscalPeriod) *FiscalPeriod {
		p := &FiscalPeriod{
			ID:             uuid.New(),
			CompanyID:      companyID,
			Code:           code,
			Name:           name,
			Type:           t,
			StartsAt:       start,
			EndsAt:         end,
			Status:         StatusUpcoming,
			PlanningStatus: PlanningNotStarted,
			Revision:       1,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if parent != nil {
			id := parent.ID
			p.ParentID = &id
		}
		return p
	}

	yearPeriod := mk(YearCode(year), fmt.Sprintf("FY%d", year), TypeYear,
		monthStart(year, time.January), monthEnd(year, time.December), nil)
	out := []*FiscalPeriod{yearPeriod}

	halves := make([]*FiscalPeriod, 2)
	for h := 1; h <= 2; h++ {
		first := time.Month((h-1)*6 + 1)
		halves[h-1] = mk(HalfCode(year, h), fmt.Sprintf("%d H%d", year, h), TypeHalf,
			monthStart(year, first), monthEnd(year, first+5), yearPeriod)
		out = append(out, halves[h-1])
	}
	for q := 1; q <= 4; q++ {
		first := time.Month((q-1)*3 + 1)
		out = append(out, mk(QuarterCode(year, q), fmt.Sprintf("%d Q%d", year, q), TypeQuarter,
			monthStart(year, first), monthEnd(year, first+2), halves[(q-1)/2]))
	}
	return out
}

func monthStart(year int, m time.Month) time.Time {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
}

// monthEnd is the last calendar day of month m.
func monthEnd(year int, m time.Month) time.Time {
	return time.Date(year, m+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}
