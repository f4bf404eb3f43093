package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"okr_planning_bot/internal/app"
	"okr_planning_bot/internal/domain/role"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterBotCommands registers /start and /help. The help text depends on what the
// sender's role allows.
func RegisterBotCommands(ctx context.Context, b *telebot.Bot, authority *app.RoleAuthority, h *AdminHandlers) {
	startHelpLogger := h.logger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		actor, err := h.resolveActor(ctx, senderID)
		if err != nil {
			return replyUnresolved(c, logCtx, err)
		}
		logCtx.WithField("profile_id", actor.ProfileID).Info("User identified")
		return c.Send(fmt.Sprintf("Hello, %s! I help run OKR planning for your company. Use /help to see what you can do.", actor.Name))
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		actor, err := h.resolveActor(ctx, senderID)
		if err != nil {
			return replyUnresolved(c, logCtx, err)
		}
		assignments, err := authority.Assignments(ctx, actor)
		if err != nil {
			logCtx.WithError(err).Error("Error loading role assignments for /help")
			return c.Send("Something went wrong, please try again later.")
		}
		return c.Send(helpText(assignments), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}

func replyUnresolved(c telebot.Context, logCtx *logrus.Entry, err error) error {
	if errors.Is(err, errUnknownSender) {
		logCtx.Info("User is unknown")
		return c.Send("Hello! Your Telegram account is not linked to a profile yet. Ask a company admin to link it.")
	}
	logCtx.WithError(err).Error("Error checking sender profile")
	return c.Send("Something went wrong while checking your profile. Please try again later.")
}

// helpText lists only the commands the assignments allow.
func helpText(assignments []role.Assignment) string {
	var b strings.Builder
	b.WriteString("Available commands:\n\n")
	if app.IsAllowed(assignments, app.CapViewPeriods) {
		b.WriteString("`/periods`\n - List fiscal periods.\n\n")
	}
	if app.IsAllowed(assignments, app.CapManagePeriods) {
		b.WriteString("`/create_year <year>`\n - Create the year with its halves and quarters.\n\n")
		b.WriteString("`/delete_period <code>`\n - Delete an upcoming period and its sub-periods.\n\n")
	}
	if app.IsAllowed(assignments, app.CapManagePlanning) {
		b.WriteString("`/planning_setup <code> <start> <deadline> [grace=YYYY-MM-DD] [remind=7,3,1] [message]`\n - Configure planning.\n\n")
		b.WriteString("`/planning_start <code>`\n - Start planning and remind every organization.\n\n")
		b.WriteString("`/planning_close <code>`\n - Stop accepting new submissions.\n\n")
		b.WriteString("`/planning_finalize <code> [company]`\n - Complete planning and activate the period.\n\n")
	}
	if app.IsAllowed(assignments, app.CapManageClosing) {
		b.WriteString("`/closing_start <code>`\n - Start closing an active period.\n\n")
		b.WriteString("`/closing_finalize <code>`\n - Close the period.\n\n")
	}
	if app.IsAllowed(assignments, app.CapViewStatus) {
		b.WriteString("`/status <code>`\n - Show OKR status per organization.\n\n")
	}
	if app.IsAllowed(assignments, app.CapSendNudge) {
		b.WriteString("`/nudge <code> [all|incomplete|not_started|draft] [message]`\n - Remind organization heads.\n\n")
	}
	b.WriteString("`/help`\n - Show this message.")
	return b.String()
}
