package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"steam-market-harvester/internal/config"
	"steam-market-harvester/internal/database"
	"steam-market-harvester/internal/export"
	"steam-market-harvester/internal/logger"
	"steam-market-harvester/internal/storage/gormstore"
)

func main() {
	out := flag.String("out", "steam_market.xlsx", "output workbook path")
	pageSize := flag.Int("page-size", 500, "rows read per storage call")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, *out, *pageSize)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "export-xlsx:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out string, pageSize int) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, closer, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closer.Close()

	db, err := database.Initialize(ctx, cfg.Database, log)
	if err != nil {
		log.WithError(err).Error("Unable to instantiate database")
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	if _, err := export.WriteWorkbook(ctx, gormstore.NewStore(db), out, pageSize, log); err != nil {
		log.WithError(err).Error("Export failed")
		return err
	}
	return nil
}
