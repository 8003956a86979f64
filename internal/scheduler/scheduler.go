// Package scheduler runs the recurring maintenance jobs: price refreshes,
// FX rate syncs, and snapshot cleanup.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"finpro/internal/config"
	"finpro/internal/logger"
	"finpro/internal/models"
	"finpro/internal/services"
)

// Scheduler owns the cron runner and the jobs registered on it.
type Scheduler struct {
	cron      *cron.Cron
	priceSync services.PriceSyncServicer
	fx        services.FXServicer
	seeder    services.SeederServicer
	pairs     [][2]string
}

// New creates a Scheduler. pairs lists the FX pairs to refresh, e.g.
// {{"EUR","USD"},{"GBP","USD"}}.
func New(priceSync services.PriceSyncServicer, fx services.FXServicer, seeder services.SeederServicer, pairs [][2]string) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		priceSync: priceSync,
		fx:        fx,
		seeder:    seeder,
		pairs:     pairs,
	}
}

// Start registers the jobs from the configured schedules and starts the
// runner. Job bodies never panic the process; failures are logged and the
// next tick runs normally.
func (s *Scheduler) Start(cfg *config.Config) error {
	if _, err := s.cron.AddFunc(cfg.PriceSyncSchedule, s.runPriceSync); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(cfg.FXSyncSchedule, s.runFXSync); err != nil {
		return err
	}
	// Cleanup piggybacks on the price schedule; it is a no-op when no
	// generation has aged out.
	if _, err := s.cron.AddFunc(cfg.PriceSyncSchedule, s.runCleanup); err != nil {
		return err
	}

	s.cron.Start()
	logger.Get().Infow("scheduler started",
		"price_sync", cfg.PriceSyncSchedule, "fx_sync", cfg.FXSyncSchedule)
	return nil
}

// Stop halts the runner and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Get().Infow("scheduler stopped")
}

func (s *Scheduler) runPriceSync() {
	log := logger.Get()
	for _, class := range models.SeededClasses {
		result, err := s.priceSync.RefreshClass(context.Background(), class)
		if err != nil {
			log.Warnw("scheduled price sync failed", "class", class, "error", err)
			continue
		}
		log.Infow("scheduled price sync finished",
			"class", class, "updated", result.Updated, "failed", result.Failed)
	}
}

func (s *Scheduler) runFXSync() {
	log := logger.Get()
	for _, pair := range s.pairs {
		if _, err := s.fx.SyncRate(context.Background(), pair[0], pair[1]); err != nil {
			log.Warnw("scheduled fx sync failed", "from", pair[0], "to", pair[1], "error", err)
		}
	}
}

func (s *Scheduler) runCleanup() {
	log := logger.Get()
	for _, class := range models.SeededClasses {
		deleted, err := s.seeder.Cleanup(class)
		if err != nil {
			log.Warnw("scheduled cleanup failed", "class", class, "error", err)
			continue
		}
		if deleted > 0 {
			log.Infow("scheduled cleanup removed stale assets", "class", class, "deleted", deleted)
		}
	}
}
