package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"finpro/internal/config"
	"finpro/internal/database"
	"finpro/internal/datatype"
	"finpro/internal/logger"
	"finpro/internal/models"
	"finpro/internal/provider"
	"finpro/internal/scheduler"
	"finpro/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Error: %v", err)
	}
}

func usage() error {
	return fmt.Errorf(`usage: finpro <command> [args]

commands:
  migrate                       apply schema migrations
  seed <equity|crypto|commodity>  seed a new reference data snapshot
  cleanup <equity|crypto|commodity>  delete stale snapshot generations
  sync-price <class> <symbol>   refresh one symbol's price
  refresh-prices <class>        refresh prices for all held assets of a class
  sync-fx <from> <to>           refresh one FX rate
  sync-currencies               refresh the known currency list
  recalc <account-id>           recompute column values for an account
  jobs                          run the cron job runner until interrupted`)
}

func run() error {
	if len(os.Args) < 2 {
		return usage()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	manager, err := database.NewManager(cfg)
	if err != nil {
		return err
	}
	db := manager.DB()

	market := provider.NewFMPClient(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout)
	resolver := services.NewColumnResolver(db)
	recalc := services.NewRecalcService(db, resolver)
	seeder := services.NewSeederService(db, market, recalc, cfg.SnapshotRetention)
	priceSync := services.NewPriceSyncService(db, market, recalc)
	fx := services.NewFXService(db, market, recalc)

	log := logger.Get()
	ctx := context.Background()

	switch os.Args[1] {
	case "migrate":
		if err := manager.Migrate(); err != nil {
			return err
		}
		return datatype.Seed(db)

	case "seed":
		if len(os.Args) < 3 {
			return usage()
		}
		class := models.AssetClass(os.Args[2])
		result, err := seeder.Seed(ctx, class)
		if err != nil {
			return err
		}
		log.Infof("Seeded %s snapshot %s: %d created, %d skipped, %d relinked, %d converted",
			result.Class, result.SnapshotID, result.Created, result.Skipped,
			result.Relinked, result.Converted)
		return nil

	case "cleanup":
		if len(os.Args) < 3 {
			return usage()
		}
		deleted, err := seeder.Cleanup(models.AssetClass(os.Args[2]))
		if err != nil {
			return err
		}
		log.Infof("Deleted %d stale assets", deleted)
		return nil

	case "sync-price":
		if len(os.Args) < 4 {
			return usage()
		}
		return priceSync.SyncSymbol(ctx, models.AssetClass(os.Args[2]), os.Args[3])

	case "refresh-prices":
		if len(os.Args) < 3 {
			return usage()
		}
		result, err := priceSync.RefreshClass(ctx, models.AssetClass(os.Args[2]))
		if err != nil {
			return err
		}
		log.Infof("Refreshed %s prices: %d updated, %d failed",
			result.Class, result.Updated, result.Failed)
		return nil

	case "sync-fx":
		if len(os.Args) < 4 {
			return usage()
		}
		rate, err := fx.SyncRate(ctx, os.Args[2], os.Args[3])
		if err != nil {
			return err
		}
		log.Infof("Rate %s/%s = %s", rate.FromCode, rate.ToCode, rate.Rate)
		return nil

	case "sync-currencies":
		created, err := fx.SyncCurrencies(ctx)
		if err != nil {
			return err
		}
		log.Infof("Currency list synced, %d created", created)
		return nil

	case "recalc":
		if len(os.Args) < 3 {
			return usage()
		}
		accounts := services.NewAccountService(db, recalc, services.NewSchemaService(db, recalc))
		account, err := accounts.GetAccountByID(os.Args[2])
		if err != nil {
			return err
		}
		recalc.HoldingsChanged(account.Holdings)
		log.Infof("Recomputed %d holdings", len(account.Holdings))
		return nil

	case "jobs":
		sched := scheduler.New(priceSync, fx, seeder, defaultFXPairs)
		if err := sched.Start(cfg); err != nil {
			return err
		}
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		sched.Stop()
		return nil

	default:
		return usage()
	}
}

// defaultFXPairs are the rates the job runner keeps fresh.
var defaultFXPairs = [][2]string{
	{"EUR", "USD"},
	{"GBP", "USD"},
	{"JPY", "USD"},
	{"CAD", "USD"},
	{"CHF", "USD"},
}
