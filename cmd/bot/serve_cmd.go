package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"okr_planning_bot/internal/infra/logger"
	"okr_planning_bot/internal/infra/scheduler"
	"okr_planning_bot/internal/infra/telegram"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/telebot.v3"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var withoutBot bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot, the reminder scheduler and the metrics endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, withoutBot)
		},
	}
	cmd.Flags().BoolVar(&withoutBot, "without-bot", false, "run only the scheduler and metrics endpoint")
	return cmd
}

func serve(ctx context.Context, withoutBot bool) error {
	cfg, st, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer st.close()
	mainLogger := logger.Component("main")

	svc := newServices(cfg, st)

	reminderScheduler := scheduler.NewReminderScheduler(svc.reminders, logger.Component("scheduler"), cfg.CronSpecAutoRemind)
	if err := reminderScheduler.Start(); err != nil {
		return err
	}
	defer reminderScheduler.Stop()

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		mainLogger.WithField("addr", cfg.MetricsAddr).Info("Metrics endpoint listening")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.WithError(err).Error("Metrics endpoint stopped")
		}
	}()

	var bot *telebot.Bot
	if !withoutBot {
		if err := cfg.RequireTelegram(); err != nil {
			return err
		}
		bot, err = newBot(cfg.TelegramToken, logger.Component("telebot"))
		if err != nil {
			return err
		}
		handlers := telegram.NewAdminHandlers(svc.periods, svc.statuses, svc.nudges, st.roles, logger.Component("telegram"))
		telegram.RegisterAdminHandlers(ctx, bot, handlers)
		telegram.RegisterBotCommands(ctx, bot, svc.authority, handlers)
		mainLogger.Info("Telegram handlers registered")
		go bot.Start()
	}

	mainLogger.Info("Application setup complete")
	<-ctx.Done()

	mainLogger.Info("Shutting down application...")
	if bot != nil {
		bot.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Warn("Metrics endpoint did not shut down cleanly")
	}
	mainLogger.Info("Application shut down gracefully")
	return nil
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func newBot(token string, log *logrus.Entry) (*telebot.Bot, error) {
	pref := telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := log.WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{
					"message":   c.Text(),
					"sender_id": c.Sender().ID,
					"chat_id":   c.Chat().ID,
				})
			}
			entry.Error("Telegram handler error")
		},
	}
	return telebot.NewBot(pref)
}
