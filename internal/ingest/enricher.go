package ingest

import (
	"context"
	"fmt"

	"steam-market-harvester/internal/logger"
	"steam-market-harvester/internal/models"
	"steam-market-harvester/internal/parser"
	"steam-market-harvester/internal/retry"

	"github.com/sirupsen/logrus"
)

// DetailEnricher turns a catalog entry into a stored Item by scraping the
// item_nameid from its listing page.
type DetailEnricher struct {
	listings ListingSource
	items    ItemWriter
	policy   retry.Policy
	log      *logrus.Entry
}

func NewDetailEnricher(listings ListingSource, items ItemWriter, policy retry.Policy, log logrus.FieldLogger) *DetailEnricher {
	return &DetailEnricher{
		listings: listings,
		items:    items,
		policy:   policy,
		log:      logger.Component(log, "enricher"),
	}
}

// Enrich fetches the listing page, extracts the item_nameid and inserts the
// item under gameID, the same game the dedup check used. Nothing is written
// unless the entry is complete and extraction succeeds. After a successful
// insert it waits out the detail pacing interval.
func (e *DetailEnricher) Enrich(ctx context.Context, gameID int, entry parser.CatalogEntry) (*models.Item, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	log := e.log.WithField("hash_name", entry.HashName)

	page, err := e.listings.FetchListingPage(ctx, gameID, entry.HashName)
	if err != nil {
		return nil, err
	}
	nameID, err := parser.ExtractItemNameID(page)
	if err != nil {
		return nil, err
	}
	log.WithField("item_name_id", nameID).Debug("Found item_nameid")

	item := &models.Item{
		ItemNameID:   nameID,
		ItemHashName: entry.HashName,
		ItemName:     entry.Name,
		ItemIcon:     entry.AssetDescription.IconURL,
		GameID:       gameID,
	}
	if appID := entry.AssetDescription.AppID; appID != 0 && appID != gameID {
		log.WithField("appid", appID).Warn("Entry appid differs from crawled game, storing under crawled game")
	}

	if err := e.items.InsertItem(ctx, item); err != nil {
		return nil, fmt.Errorf("insert %q: %w", entry.HashName, err)
	}
	log.WithFields(logrus.Fields{
		"item_name_id": nameID,
		"pause":        e.policy.Interval(retry.PaceDetail),
	}).Info("Added item to database")

	if err := e.policy.Pace(ctx, retry.PaceDetail); err != nil {
		return item, err
	}
	return item, nil
}
