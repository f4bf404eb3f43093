package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"okr_planning_bot/internal/app"
	"okr_planning_bot/internal/domain/period"
	"okr_planning_bot/internal/domain/role"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// errUnknownSender means the Telegram user is not linked to any profile.
var errUnknownSender = errors.New("telegram user is not linked to a profile")

// AdminHandlers turns chat commands into period, planning and nudge operations.
// The caller's identity and role come from the profile linked to the Telegram user.
type AdminHandlers struct {
	periods  *app.PeriodService
	statuses *app.StatusService
	nudges   *app.NudgeService
	profiles role.Directory
	logger   *logrus.Entry
}

func NewAdminHandlers(
	periods *app.PeriodService,
	statuses *app.StatusService,
	nudges *app.NudgeService,
	profiles role.Directory,
	baseLogger *logrus.Entry,
) *AdminHandlers {
	return &AdminHandlers{
		periods:  periods,
		statuses: statuses,
		nudges:   nudges,
		profiles: profiles,
		logger:   baseLogger.WithField("handler_group", "admin"),
	}
}

// RegisterAdminHandlers registers every admin command and the status callback buttons.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, h *AdminHandlers) {
	b.Handle("/periods", h.command(ctx, "/periods", h.listPeriods))
	b.Handle("/create_year", h.command(ctx, "/create_year", h.createYear))
	b.Handle("/planning_setup", h.command(ctx, "/planning_setup", h.planningSetup))
	b.Handle("/planning_start", h.command(ctx, "/planning_start", h.planningStart))
	b.Handle("/planning_close", h.command(ctx, "/planning_close", h.periodTransition(h.periods.ClosePlanning, "Planning of %s is closing.")))
	b.Handle("/planning_finalize", h.command(ctx, "/planning_finalize", h.planningFinalize))
	b.Handle("/closing_start", h.command(ctx, "/closing_start", h.periodTransition(h.periods.StartClosing, "Period %s is closing.")))
	b.Handle("/closing_finalize", h.command(ctx, "/closing_finalize", h.periodTransition(h.periods.FinalizeClosing, "Period %s is closed.")))
	b.Handle("/delete_period", h.command(ctx, "/delete_period", h.deletePeriod))
	b.Handle("/status", h.command(ctx, "/status", h.status))
	b.Handle("/nudge", h.command(ctx, "/nudge", h.nudge))
	RegisterStatusCallbacks(ctx, b, h)
}

type commandFunc func(ctx context.Context, c telebot.Context, actor app.Actor, log *logrus.Entry) error

// command resolves the sender to an actor and replies with a readable error when the
// operation fails.
func (h *AdminHandlers) command(ctx context.Context, name string, fn commandFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		handlerLogger := h.logger.WithFields(logrus.Fields{
			"handler":   name,
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		actor, err := h.resolveActor(ctx, c.Sender().ID)
		if err != nil {
			if errors.Is(err, errUnknownSender) {
				handlerLogger.Warn("Command from unknown user")
				return c.Send("Your Telegram account is not linked to a profile. Ask a company admin to link it.")
			}
			handlerLogger.WithError(err).Error("Failed to resolve sender profile")
			return c.Send("Something went wrong, please try again later.")
		}
		handlerLogger = handlerLogger.WithFields(logrus.Fields{
			"profile_id": actor.ProfileID,
			"company_id": actor.CompanyID,
		})

		if err := fn(ctx, c, actor, handlerLogger); err != nil {
			h.logFailure(handlerLogger, err)
			return c.Send(errorReply(err))
		}
		return nil
	}
}

func (h *AdminHandlers) logFailure(log *logrus.Entry, err error) {
	logWithError := log.WithError(err)
	switch {
	case errors.Is(err, app.ErrNotAuthorized):
		logWithError.Warn("Operation not authorized")
	case errors.Is(err, app.ErrValidation),
		errors.Is(err, app.ErrInvalidStateTransition),
		errors.Is(err, app.ErrDuplicateResource),
		errors.Is(err, app.ErrNotFound):
		logWithError.Info("Operation rejected")
	default:
		logWithError.Error("Operation failed")
	}
}

func (h *AdminHandlers) resolveActor(ctx context.Context, telegramID int64) (app.Actor, error) {
	profile, err := h.profiles.GetProfileByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, role.ErrProfileNotFound) {
			return app.Actor{}, errUnknownSender
		}
		return app.Actor{}, err
	}
	return app.Actor{ProfileID: profile.ID, CompanyID: profile.CompanyID, Name: profile.FullName}, nil
}

// periodArg loads the period named by the first argument.
func (h *AdminHandlers) periodArg(ctx context.Context, c telebot.Context, actor app.Actor, usage string) (*period.FiscalPeriod, error) {
	args := c.Args()
	if len(args) < 1 {
		return nil, fmt.Errorf("%w: usage: %s", app.ErrValidation, usage)
	}
	return h.periods.GetPeriodByCode(ctx, actor, args[0])
}

func (h *AdminHandlers) listPeriods(ctx context.Context, c telebot.Context, actor app.Actor, log *logrus.Entry) error {
	periods, err := h.periods.ListPeriods(ctx, actor)
	if err != nil {
		return err
	}
	if len(periods) == 0 {
		return c.Send("No fiscal periods yet. Create one with /create_year <year>.")
	}
	var response strings.Builder
	response.WriteString("Fiscal periods:\n")
	for _, p := range periods {
		response.WriteString(formatPeriodLine(p))
		response.WriteString("\n")
	}
	log.WithField("period_count", len(periods)).Info("Periods listed")
	return c.Send(response.String())
}

func (h *AdminHandlers) createYear(ctx context.Context, c telebot.Context, actor app.Actor, log *logrus.Entry) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Send("Usage: /create_year <year>")
	}
	year, err := strconv.Atoi(args[0])
	if err != nil {
		return c.Send("Error: the year must be a number.")
	}
	periods, err := h.periods.CreateYearHierarchy(ctx, actor, year)
	if err != nil {
		return err
	}
	log.WithField("year", year).Info("Year hierarchy created")
	codes := make([]string, len(periods))
	for i, p := range periods {
		codes[i] = p.Code
	}
	return c.Send(fmt.Sprintf("Created %d periods: %s", len(periods), strings.Join(codes, ", ")))
}

func (h *AdminHandlers) planningSetup(ctx context.Context, c telebot.Context, actor app.Actor, log *logrus.Entry) error {
	code, setup, err := parseSetupArgs(c.Args())
	if err != nil {
		return c.Send(err.Error())
	}
	p, err := h.periods.GetPeriodByCode(ctx, actor, code)
	if err != nil {
		return err
	}
	saved, err := h.periods.SavePlanningSetup(ctx, actor, p.ID, setup)
	if err != nil {
		return err
	}
	log.WithField("period_code", saved.Code).Info("Planning setup saved")
	return c.Send("Planning setup saved.\n" + formatPeriodLine(saved))
}

func (h *AdminHandlers) planningStart(ctx context.Context, c telebot.Context, actor app.Actor, log *logrus.Entry) error {
	p, err := h.periodArg(ctx, c, actor, "/planning_start <code>")
	if err != nil {
		return err
	}
	res, err := h.periods.StartPlanning(ctx, actor, p.ID)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("Planning of %s started.", res.Period.Code)
	if res.DispatchErr != nil {
		log.WithError(res.DispatchErr).Warn("Kickoff reminders could not be sent")
		return c.Send(msg + " Kickoff reminders could not be sent, use /nudge to retry.")
	}
	log.WithField("sent", res.Dispatch.SentCount).Info("Planning started")
	return c.Send(msg + " " + formatDispatch(res.Dispatch))
}

func (h *AdminHandlers) planningFinalize(ctx context.Context, c telebot.Context, actor app.Actor, log *logrus.Entry) error {
	p, err := h.periodArg(ctx, c, actor, "/planning_finalize <code> [company]")
	if err != nil {
		return err
	}
	args := c.Args()
	finalizeCompany := len(args) > 1 && strings.EqualFold(args[1], "company")
	done, err := h.periods.FinalizePlanning(ctx, actor, p.ID, finalizeCompany)
	if err != nil {
		return err
	}
	log.WithField("company_okr_finalized", done.CompanyOKRFinalized).Info("Planning finalized")
	msg := fmt.Sprintf("Planning of %s completed.", done.Code)
	if done.CompanyOKRFinalized {
		msg += " Company OKRs are final."
	}
	return c.Send(msg)
}

// periodTransition adapts a plain single-period transition to a command.
func (h *AdminHandlers) periodTransition(
	op func(context.Context, app.Actor, uuid.UUID) (*period.FiscalPeriod, error),
	okFormat string,
) commandFunc {
	return func(ctx context.Context, c telebot.Context, actor app.Actor, log *logrus.Entry) error {
		p, err := h.periodArg(ctx, c, actor, "<command> <code>")
		if err != nil {
			return err
		}
		next, err := op(ctx, actor, p.ID)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"period_code":     next.Code,
			"status":          next.Status,
			"planning_status": next.PlanningStatus,
		}).Info("Period transition applied")
		return c.Send(fmt.Sprintf(okFormat, next.Code))
	}
}

func (h *AdminHandlers) deletePeriod(ctx context.Context, c telebot.Context, actor app.Actor, log *logrus.Entry) error {
	p, err := h.periodArg(ctx, c, actor, "/delete_period <code>")
	if err != nil {
		return err
	}
	if err := h.periods.DeletePeriod(ctx, actor, p.ID); err != nil {
		return err
	}
	log.WithField("period_code", p.Code).Info("Period deleted")
	return c.Send(fmt.Sprintf("Period %s and its sub-periods were deleted.", p.Code))
}

func (h *AdminHandlers) status(ctx context.Context, c telebot.Context, actor app.Actor, log *logrus.Entry) error {
	p, err := h.periodArg(ctx, c, actor, "/status <code>")
	if err != nil {
		return err
	}
	report, err := h.statuses.ComputeOrgStatuses(ctx, actor, p.ID)
	if err != nil {
		return err
	}
	log.WithField("org_count", len(report.Orgs)).Info("Status report computed")
	if len(report.Orgs) == 0 {
		return c.Send(fmt.Sprintf("%s: no organizations to report on.", p.Code))
	}
	if len(app.SelectTargets(report.Orgs, app.TargetIncomplete)) == 0 {
		return c.Send(formatStatusReport(report))
	}
	return c.Send(formatStatusReport(report), remindIncompleteMarkup(p))
}

// nudge: /nudge <code> [all|incomplete|not_started|draft] [message...]
func (h *AdminHandlers) nudge(ctx context.Context, c telebot.Context, actor app.Actor, log *logrus.Entry) error {
	p, err := h.periodArg(ctx, c, actor, "/nudge <code> [all|incomplete|not_started|draft] [message]")
	if err != nil {
		return err
	}
	rest := c.Args()[1:]
	filter := app.TargetIncomplete
	if len(rest) > 0 {
		if f, ferr := app.ParseTargetFilter(rest[0]); ferr == nil {
			filter = f
			rest = rest[1:]
		}
	}
	res, err := h.sendNudge(ctx, actor, p, filter, strings.Join(rest, " "))
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"filter": filter,
		"sent":   res.SentCount,
		"failed": len(res.Failures),
	}).Info("Nudge sent")
	return c.Send(formatDispatch(res))
}

func (h *AdminHandlers) sendNudge(ctx context.Context, actor app.Actor, p *period.FiscalPeriod, filter app.TargetFilter, message string) (app.DispatchResult, error) {
	report, err := h.statuses.ComputeOrgStatuses(ctx, actor, p.ID)
	if err != nil {
		return app.DispatchResult{}, err
	}
	targets := app.SelectTargets(report.Orgs, filter)
	if len(targets) == 0 {
		return app.DispatchResult{}, nil
	}
	return h.nudges.SendNudge(ctx, actor, report.Period, targets, message)
}
