package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"steam-market-harvester/internal/api"
	"steam-market-harvester/internal/config"
	"steam-market-harvester/internal/database"
	"steam-market-harvester/internal/ingest"
	"steam-market-harvester/internal/logger"
	"steam-market-harvester/internal/retry"
	"steam-market-harvester/internal/services/steam"
	"steam-market-harvester/internal/storage"
	"steam-market-harvester/internal/storage/gormstore"
	"steam-market-harvester/internal/storage/memory"

	"github.com/sirupsen/logrus"
)

const (
	modeItems  = "items"
	modePrices = "prices"
	modeAll    = "all"
)

func main() {
	mode := flag.String("mode", modeItems, "what to harvest: items | prices | all")
	dryRun := flag.Bool("dry-run", false, "keep everything in memory instead of the database")
	flag.Parse()

	switch *mode {
	case modeItems, modePrices, modeAll:
	default:
		fmt.Fprintf(os.Stderr, "unknown -mode %q\n", *mode)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, *mode, *dryRun)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "harvester:", err)
		os.Exit(1)
	}
}

// run owns every resource it opens, so all of them are released before
// main decides the exit code.
func run(ctx context.Context, mode string, dryRun bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closer, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closer.Close()

	if err := cfg.Validate(mode != modeItems); err != nil {
		log.WithError(err).Error("Invalid configuration")
		return err
	}

	var store storage.Store
	if dryRun {
		store = memory.NewStore()
		log.Warn("Dry run: nothing will be persisted")
	} else {
		db, err := database.Initialize(ctx, cfg.Database, log)
		if err != nil {
			log.WithError(err).Error("Unable to instantiate database")
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		store = gormstore.NewStore(db)
	}

	client := steam.NewClient(cfg.Steam, log)
	policy := retry.FromConfig(cfg.Pauses)

	crawler := ingest.NewCatalogCrawler(ingest.CrawlerConfig{
		GameID:     cfg.GameID,
		StartIndex: cfg.StartIndex,
		PageSize:   cfg.PageSize,
	}, client, ingest.NewDedupGate(store), ingest.NewDetailEnricher(client, store, policy, log), policy, log)

	history := ingest.NewHistoryIngester(ingest.HistoryConfig{
		PageSize:        cfg.HistoryPageSize,
		RetentionWindow: cfg.RetentionWindow,
		Currency:        cfg.Currency,
		Credential:      cfg.SessionCredential,
	}, client, store, policy, log)

	if cfg.StatusAddr != "" {
		srv := api.NewServer(log, crawler, history)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.StatusAddr); err != nil {
				log.WithError(err).Error("Status server stopped")
			}
		}()
	}

	log.WithFields(logrus.Fields{
		"mode":      mode,
		"game_id":   cfg.GameID,
		"start":     cfg.StartIndex,
		"page_size": cfg.PageSize,
	}).Info("Harvester starting")

	if err := harvest(ctx, mode, crawler, history); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("Interrupted, stopping")
			return nil
		}
		log.WithError(err).Error("Harvester failed")
		return err
	}
	log.Info("Script finished!")
	return nil
}

func harvest(ctx context.Context, mode string, crawler *ingest.CatalogCrawler, history *ingest.HistoryIngester) error {
	if mode == modeItems || mode == modeAll {
		if err := crawler.Run(ctx); err != nil {
			return err
		}
	}
	if mode == modePrices || mode == modeAll {
		if err := history.Run(ctx); err != nil {
			return err
		}
	}
	return nil
}
