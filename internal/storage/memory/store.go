package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"steam-market-harvester/internal/models"
	"steam-market-harvester/internal/storage"
)

type itemKey struct {
	gameID   int
	hashName string
}

type pointKey struct {
	itemID int64
	unix   int64
}

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu     sync.RWMutex
	items  []models.Item
	byHash map[itemKey]int
	points map[pointKey]models.PricePoint
	nextID uint
	now    func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		byHash: make(map[itemKey]int),
		points: make(map[pointKey]models.PricePoint),
		now:    time.Now,
	}
}

func (s *Store) ItemExists(ctx context.Context, gameID int, hashName string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, storage.Wrap("item exists", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byHash[itemKey{gameID, hashName}]
	return ok, nil
}

func (s *Store) InsertItem(ctx context.Context, item *models.Item) error {
	if err := ctx.Err(); err != nil {
		return storage.Wrap("insert item", err)
	}
	if item == nil || item.ItemHashName == "" {
		return storage.Wrap("insert item", storage.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := itemKey{item.GameID, item.ItemHashName}
	if _, exists := s.byHash[key]; exists {
		return storage.Wrap("insert item", storage.ErrDuplicateKey)
	}

	s.nextID++
	stored := *item
	stored.ID = s.nextID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	s.byHash[key] = len(s.items)
	s.items = append(s.items, stored)

	item.ID = stored.ID
	item.CreatedAt = stored.CreatedAt
	return nil
}

func (s *Store) ListItems(ctx context.Context, skip, take int) ([]models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Wrap("list items", err)
	}
	if skip < 0 || take < 0 {
		return nil, storage.Wrap("list items", storage.ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if skip >= len(s.items) {
		return nil, nil
	}
	end := skip + take
	if end > len(s.items) {
		end = len(s.items)
	}
	out := make([]models.Item, end-skip)
	copy(out, s.items[skip:end])
	return out, nil
}

func (s *Store) InsertPricePoints(ctx context.Context, points []models.PricePoint) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, storage.Wrap("insert price points", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, p := range points {
		key := pointKey{p.ItemID, p.Date.UTC().Unix()}
		if _, exists := s.points[key]; exists {
			continue
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = s.now()
		}
		s.points[key] = p
		inserted++
	}
	return inserted, nil
}

func (s *Store) LatestPriceDate(ctx context.Context, itemID int64) (time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, storage.Wrap("latest price date", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	found := false
	for key, p := range s.points {
		if key.itemID != itemID {
			continue
		}
		if !found || p.Date.After(latest) {
			latest = p.Date
			found = true
		}
	}
	return latest, found, nil
}

func (s *Store) ListPricePoints(ctx context.Context, skip, take int) ([]models.PricePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.Wrap("list price points", err)
	}
	if skip < 0 || take < 0 {
		return nil, storage.Wrap("list price points", storage.ErrInvalidInput)
	}

	s.mu.RLock()
	all := make([]models.PricePoint, 0, len(s.points))
	for _, p := range s.points {
		all = append(all, p)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].ItemID != all[j].ItemID {
			return all[i].ItemID < all[j].ItemID
		}
		return all[i].Date.Before(all[j].Date)
	})
	if skip >= len(all) {
		return nil, nil
	}
	end := skip + take
	if end > len(all) {
		end = len(all)
	}
	return all[skip:end], nil
}
