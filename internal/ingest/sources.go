package ingest

import (
	"context"
	"time"

	"steam-market-harvester/internal/models"
)

// CatalogSource returns raw catalog search pages.
type CatalogSource interface {
	SearchItems(ctx context.Context, gameID, start, count int) ([]byte, error)
}

// ListingSource returns raw listing page HTML.
type ListingSource interface {
	FetchListingPage(ctx context.Context, gameID int, hashName string) ([]byte, error)
}

// HistorySource returns raw price history payloads.
type HistorySource interface {
	FetchPriceHistory(ctx context.Context, gameID int, hashName string, currency int, credential string) ([]byte, error)
}

// ItemIndex answers existence checks for dedup.
type ItemIndex interface {
	ItemExists(ctx context.Context, gameID int, hashName string) (bool, error)
}

// ItemWriter persists enriched items.
type ItemWriter interface {
	InsertItem(ctx context.Context, item *models.Item) error
}

// HistoryStore is the storage surface the history pipeline needs.
type HistoryStore interface {
	ListItems(ctx context.Context, skip, take int) ([]models.Item, error)
	InsertPricePoints(ctx context.Context, points []models.PricePoint) (int, error)
	LatestPriceDate(ctx context.Context, itemID int64) (time.Time, bool, error)
}
