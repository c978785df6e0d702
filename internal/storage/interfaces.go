package storage

import (
	"context"
	"time"

	"steam-market-harvester/internal/models"
)

// Store is the persistence capability the ingestion pipelines need.
// Every call is its own unit of work; no connection or transaction is held
// between calls.
type Store interface {
	// ItemExists reports whether an item with hashName is already stored for gameID.
	ItemExists(ctx context.Context, gameID int, hashName string) (bool, error)

	// InsertItem stores a new item. Returns ErrDuplicateKey if (game_id, item_hash_name) exists.
	InsertItem(ctx context.Context, item *models.Item) error

	// ListItems returns up to take items after skipping skip, ordered by insertion.
	ListItems(ctx context.Context, skip, take int) ([]models.Item, error)

	// InsertPricePoints writes the batch in one transaction. Points whose
	// (item_id, date) already exist are ignored; the number of new rows is returned.
	InsertPricePoints(ctx context.Context, points []models.PricePoint) (int, error)

	// LatestPriceDate returns the most recent stored date for itemID.
	// ok is false when the item has no stored points.
	LatestPriceDate(ctx context.Context, itemID int64) (latest time.Time, ok bool, err error)

	// ListPricePoints returns up to take points after skipping skip, ordered by item then date.
	ListPricePoints(ctx context.Context, skip, take int) ([]models.PricePoint, error)
}
