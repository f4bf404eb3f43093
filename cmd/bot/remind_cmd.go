package main

import (
	"okr_planning_bot/internal/infra/logger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRemindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Run the automatic planning reminders once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer st.close()

			summary, err := newServices(cfg, st).reminders.RunAutoReminders(cmd.Context())
			if err != nil {
				return err
			}
			logger.Component("remind").WithFields(logrus.Fields{
				"periods_checked":  summary.PeriodsChecked,
				"periods_reminded": summary.PeriodsReminded,
				"sent":             summary.Sent,
				"failed":           summary.Failed,
				"skipped":          summary.Skipped,
			}).Info("Automatic reminders finished")
			return nil
		},
	}
}
