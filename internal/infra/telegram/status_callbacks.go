package telegram

import (
	"context"
	"fmt"
	"strings"

	"okr_planning_bot/internal/app"
	"okr_planning_bot/internal/domain/period"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const remindIncompletePrefix = "remind_incomplete_"

func remindIncompleteMarkup(p *period.FiscalPeriod) *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{
		InlineKeyboard: [][]telebot.InlineButton{{
			{Text: "Remind incomplete organizations", Data: remindIncompletePrefix + p.ID.String()},
		}},
	}
}

// parseCallbackPeriodID extracts the period id from a remind_incomplete_<uuid> payload.
func parseCallbackPeriodID(data string) (uuid.UUID, error) {
	if !strings.HasPrefix(data, remindIncompletePrefix) {
		return uuid.Nil, fmt.Errorf("unexpected callback data: %s", data)
	}
	id, err := uuid.Parse(strings.TrimPrefix(data, remindIncompletePrefix))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid period id in callback %q: %w", data, err)
	}
	return id, nil
}

// RegisterStatusCallbacks handles the button attached to /status replies.
func RegisterStatusCallbacks(ctx context.Context, b *telebot.Bot, h *AdminHandlers) {
	b.Handle(telebot.OnCallback, func(c telebot.Context) error {
		data := strings.TrimSpace(c.Callback().Data)
		log := h.logger.WithFields(logrus.Fields{
			"handler":   "callback",
			"sender_id": c.Sender().ID,
		})

		periodID, err := parseCallbackPeriodID(data)
		if err != nil {
			c.Bot().OnError(err, c)
			return c.Respond(&telebot.CallbackResponse{Text: "Unknown action."})
		}

		actor, err := h.resolveActor(ctx, c.Sender().ID)
		if err != nil {
			log.WithError(err).Warn("Callback from unresolved sender")
			return c.Respond(&telebot.CallbackResponse{Text: "Your account is not linked to a profile."})
		}

		p, err := h.periods.GetPeriod(ctx, actor, periodID)
		if err != nil {
			h.logFailure(log, err)
			return c.Respond(&telebot.CallbackResponse{Text: errorReply(err)})
		}
		res, err := h.sendNudge(ctx, actor, p, app.TargetIncomplete, "")
		if err != nil {
			h.logFailure(log, err)
			return c.Respond(&telebot.CallbackResponse{Text: errorReply(err)})
		}
		log.WithField("sent", res.SentCount).Info("Reminder sent from status button")
		if err := c.Respond(&telebot.CallbackResponse{Text: fmt.Sprintf("Reminders sent: %d", res.SentCount)}); err != nil {
			return err
		}
		return c.Send(formatDispatch(res))
	})
}
