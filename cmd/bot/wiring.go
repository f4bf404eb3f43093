package main

import (
	"context"
	"database/sql"
	"fmt"

	"okr_planning_bot/internal/app"
	"okr_planning_bot/internal/domain/notification"
	"okr_planning_bot/internal/domain/okrset"
	"okr_planning_bot/internal/domain/org"
	"okr_planning_bot/internal/domain/period"
	"okr_planning_bot/internal/domain/role"
	"okr_planning_bot/internal/infra/config"
	idb "okr_planning_bot/internal/infra/database"
	"okr_planning_bot/internal/infra/logger"
	"okr_planning_bot/internal/infra/memory"

	"github.com/sirupsen/logrus"
)

// stores is the persistence the services run on, chosen by STORE_DRIVER.
type stores struct {
	periods       period.Repository
	orgs          org.Directory
	roles         role.Directory
	okrSets       okrset.Source
	notifications notification.Repository
	close         func() error
}

func openStores(ctx context.Context, cfg *config.AppConfig) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		dir := memory.NewDirectory()
		if cfg.MemorySeedFile != "" {
			seed, err := memory.LoadSeedFile(cfg.MemorySeedFile)
			if err != nil {
				return nil, err
			}
			if err := dir.Load(seed); err != nil {
				return nil, err
			}
			logger.Log.WithFields(logrus.Fields{
				"seed_file":     cfg.MemorySeedFile,
				"organizations": len(seed.Organizations),
				"profiles":      len(seed.Profiles),
			}).Info("Memory directory seeded")
		}
		return &stores{
			periods:       memory.NewPeriodStore(),
			orgs:          dir,
			roles:         dir,
			okrSets:       memory.NewOkrSetStore(),
			notifications: memory.NewNotificationStore(),
			close:         func() error { return nil },
		}, nil
	case config.StoreDriverPostgres:
		db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return postgresStores(db), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func postgresStores(db *sql.DB) *stores {
	dir := idb.NewPostgresDirectoryRepository(db)
	return &stores{
		periods:       idb.NewPostgresPeriodRepository(db),
		orgs:          dir,
		roles:         dir,
		okrSets:       idb.NewPostgresOkrSetRepository(db),
		notifications: idb.NewPostgresNotificationRepository(db),
		close:         db.Close,
	}
}

type services struct {
	authority *app.RoleAuthority
	periods   *app.PeriodService
	statuses  *app.StatusService
	nudges    *app.NudgeService
	reminders *app.ReminderService
}

func newServices(cfg *config.AppConfig, st *stores) *services {
	log := logger.Component("app")
	authority := app.NewRoleAuthority(st.roles)
	statuses := app.NewStatusService(st.periods, st.orgs, st.roles, st.okrSets, st.notifications, authority, log).
		WithConcurrency(cfg.StatusFetchConcurrency)
	nudges := app.NewNudgeService(st.notifications, st.orgs, st.roles, authority, cfg.PlanningBaseURL, log)
	return &services{
		authority: authority,
		periods:   app.NewPeriodService(st.periods, authority, statuses, nudges, log),
		statuses:  statuses,
		nudges:    nudges,
		reminders: app.NewReminderService(st.periods, statuses, nudges, log),
	}
}

// bootstrap loads configuration, sets up logging and opens the stores.
func bootstrap(ctx context.Context) (*config.AppConfig, *stores, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger.Init(cfg)
	logger.Log.WithFields(logrus.Fields{
		"log_level":    cfg.LogLevel,
		"environment":  cfg.Environment,
		"store_driver": cfg.StoreDriver,
	}).Info("Configuration loaded")

	st, err := openStores(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open stores: %w", err)
	}
	return cfg, st, nil
}
