package gormstore

import (
	"context"
	"errors"
	"time"

	"steam-market-harvester/internal/models"
	"steam-market-harvester/internal/storage"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const insertBatchSize = 500

// Store implements storage.Store on gorm. Each method runs as a single
// statement or transaction on a pooled connection that is returned to the
// pool before the method returns.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ItemExists(ctx context.Context, gameID int, hashName string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("game_id = ? AND item_hash_name = ?", gameID, hashName).
		Count(&count).Error
	if err != nil {
		return false, storage.Wrap("item exists", err)
	}
	return count > 0, nil
}

func (s *Store) InsertItem(ctx context.Context, item *models.Item) error {
	if item == nil || item.ItemHashName == "" {
		return storage.Wrap("insert item", storage.ErrInvalidInput)
	}
	err := s.db.WithContext(ctx).Create(item).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return storage.Wrap("insert item", storage.ErrDuplicateKey)
	}
	return storage.Wrap("insert item", err)
}

func (s *Store) ListItems(ctx context.Context, skip, take int) ([]models.Item, error) {
	if skip < 0 || take < 0 {
		return nil, storage.Wrap("list items", storage.ErrInvalidInput)
	}
	var items []models.Item
	err := s.db.WithContext(ctx).
		Order("id ASC").
		Offset(skip).
		Limit(take).
		Find(&items).Error
	if err != nil {
		return nil, storage.Wrap("list items", err)
	}
	return items, nil
}

func (s *Store) InsertPricePoints(ctx context.Context, points []models.PricePoint) (int, error) {
	if len(points) == 0 {
		return 0, nil
	}
	var inserted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&points, insertBatchSize)
		if res.Error != nil {
			return res.Error
		}
		inserted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, storage.Wrap("insert price points", err)
	}
	return int(inserted), nil
}

func (s *Store) LatestPriceDate(ctx context.Context, itemID int64) (time.Time, bool, error) {
	var p models.PricePoint
	err := s.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("date DESC").
		Limit(1).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, storage.Wrap("latest price date", err)
	}
	return p.Date, true, nil
}

func (s *Store) ListPricePoints(ctx context.Context, skip, take int) ([]models.PricePoint, error) {
	if skip < 0 || take < 0 {
		return nil, storage.Wrap("list price points", storage.ErrInvalidInput)
	}
	var points []models.PricePoint
	err := s.db.WithContext(ctx).
		Order("item_id ASC").
		Order("date ASC").
		Offset(skip).
		Limit(take).
		Find(&points).Error
	if err != nil {
		return nil, storage.Wrap("list price points", err)
	}
	return points, nil
}
