package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"okr_planning_bot/internal/app"
	"okr_planning_bot/internal/domain/period"
)

const dateLayout = "2006-01-02"

// parseDate reads a YYYY-MM-DD date as UTC midnight.
func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must look like 2025-01-31", s)
	}
	return t, nil
}

// endOfDay is the last second of the given date, so a deadline date includes the whole day.
func endOfDay(t time.Time) time.Time {
	return t.Add(24*time.Hour - time.Second)
}

// parseSetupArgs reads: <code> <start> <deadline> [grace=YYYY-MM-DD] [remind=7,3,1] [message...]
func parseSetupArgs(args []string) (string, app.PlanningSetup, error) {
	var setup app.PlanningSetup
	if len(args) < 3 {
		return "", setup, fmt.Errorf("usage: /planning_setup <code> <start> <deadline> [grace=YYYY-MM-DD] [remind=7,3,1] [message]")
	}
	start, err := parseDate(args[1])
	if err != nil {
		return "", setup, err
	}
	deadline, err := parseDate(args[2])
	if err != nil {
		return "", setup, err
	}
	setup.StartsAt = start
	setup.DeadlineAt = endOfDay(deadline)

	rest := args[3:]
	for len(rest) > 0 {
		arg := rest[0]
		switch {
		case strings.HasPrefix(arg, "grace="):
			grace, err := parseDate(strings.TrimPrefix(arg, "grace="))
			if err != nil {
				return "", setup, err
			}
			g := endOfDay(grace)
			setup.GraceDeadlineAt = &g
		case strings.HasPrefix(arg, "remind="):
			days, err := parseDays(strings.TrimPrefix(arg, "remind="))
			if err != nil {
				return "", setup, err
			}
			setup.AutoRemindDays = days
		default:
			setup.Message = strings.Join(rest, " ")
			return args[0], setup, nil
		}
		rest = rest[1:]
	}
	return args[0], setup, nil
}

func parseDays(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	days := make([]int, 0, len(parts))
	for _, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("reminder day %q is not a number", p)
		}
		days = append(days, d)
	}
	return days, nil
}

func formatPeriodLine(p *period.FiscalPeriod) string {
	indent := strings.Repeat("  ", p.Type.Rank())
	line := fmt.Sprintf("%s%s (%s) %s..%s status=%s planning=%s",
		indent, p.Code, p.Name, p.StartsAt.Format(dateLayout), p.EndsAt.Format(dateLayout), p.Status, p.PlanningStatus)
	if p.PlanningDeadlineAt != nil {
		line += " deadline=" + p.PlanningDeadlineAt.Format(dateLayout)
	}
	return line
}

func formatStatusReport(r *app.OrgStatusReport) string {
	var b strings.Builder
	st := r.Stats
	fmt.Fprintf(&b, "%s planning: %s, completion %d%%\n", r.Period.Code, r.Period.PlanningStatus, st.CompletionRate)
	fmt.Fprintf(&b, "total %d | not started %d | draft %d | submitted %d | approved %d | finalized %d\n\n",
		st.Total, st.NotStarted, st.Draft, st.Submitted, st.Approved, st.Finalized)
	for _, o := range r.Orgs {
		head := "no head"
		if o.HasHead() {
			head = o.HeadName
		}
		fmt.Fprintf(&b, "%s: %s (%s)", o.OrgName, o.Status, head)
		if o.LastRemindedAt != nil {
			fmt.Fprintf(&b, ", reminded %s", o.LastRemindedAt.Format("2006-01-02 15:04"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatDispatch(r app.DispatchResult) string {
	msg := fmt.Sprintf("Reminders sent: %d.", r.SentCount)
	if len(r.Failures) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	fmt.Fprintf(&b, " Failed: %d.", len(r.Failures))
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "\n- %s: %s", f.OrgName, f.Reason)
	}
	return b.String()
}

// errorReply turns a service error into the text shown to the admin.
func errorReply(err error) string {
	switch {
	case errors.Is(err, app.ErrNotAuthorized):
		return "Error: you are not allowed to do this."
	case errors.Is(err, app.ErrValidation),
		errors.Is(err, app.ErrInvalidStateTransition),
		errors.Is(err, app.ErrDuplicateResource),
		errors.Is(err, app.ErrNotFound):
		return "Error: " + err.Error()
	default:
		return "Something went wrong, please try again later."
	}
}
