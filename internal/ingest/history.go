package ingest

import (
	"context"
	"time"

	"steam-market-harvester/internal/logger"
	"steam-market-harvester/internal/models"
	"steam-market-harvester/internal/parser"
	"steam-market-harvester/internal/retry"

	"github.com/sirupsen/logrus"
)

type HistoryConfig struct {
	PageSize        int
	RetentionWindow time.Duration
	Currency        int
	Credential      string
}

// HistoryIngester walks stored items and writes the recent part of each
// item's price history.
type HistoryIngester struct {
	cfg    HistoryConfig
	source HistorySource
	store  HistoryStore
	policy retry.Policy
	log    *logrus.Entry
	stats  *Stats
	now    func() time.Time
}

func NewHistoryIngester(cfg HistoryConfig, source HistorySource, store HistoryStore, policy retry.Policy, log logrus.FieldLogger) *HistoryIngester {
	return &HistoryIngester{
		cfg:    cfg,
		source: source,
		store:  store,
		policy: policy,
		log:    logger.Component(log, "history"),
		stats:  NewStats("history"),
		now:    time.Now,
	}
}

func (h *HistoryIngester) Stats() *Stats { return h.stats }

// Run processes every stored item once, page by page, until a page read
// returns no items or ctx is done.
func (h *HistoryIngester) Run(ctx context.Context) error {
	h.stats.start(h.now(), 0)
	defer func() { h.stats.finish(h.now()) }()

	skip := 0
	for {
		items, err := h.readPage(ctx, skip)
		if err != nil {
			return err
		}
		h.stats.update(func(s *Snapshot) {
			s.Pages++
			s.Cursor = skip
		})
		if len(items) == 0 {
			snap := h.stats.Snapshot()
			h.log.WithFields(logrus.Fields{
				"items":   snap.Seen,
				"kept":    snap.PointsKept,
				"dropped": snap.PointsDropped,
				"failed":  snap.Failed,
			}).Info("Price history finished")
			return nil
		}

		for _, item := range items {
			h.stats.update(func(s *Snapshot) { s.Seen++ })
			if err := h.ingestItem(ctx, item); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				h.stats.fail(err)
				h.log.WithError(err).WithFields(logrus.Fields{
					"hash_name":    item.ItemHashName,
					"item_name_id": item.ItemNameID,
					"kind":         retry.Classify(err),
					"tier":         retry.TierItem,
					"pause":        h.policy.Backoff(retry.TierItem),
				}).Error("An error occurred when fetching price history")
				if err := h.policy.Pause(ctx, retry.TierItem); err != nil {
					return err
				}
			}
		}
		skip += len(items)
	}
}

func (h *HistoryIngester) readPage(ctx context.Context, skip int) ([]models.Item, error) {
	var items []models.Item
	err := h.policy.Until(ctx, retry.TierRead, func(ctx context.Context) error {
		var err error
		items, err = h.store.ListItems(ctx, skip, h.cfg.PageSize)
		return err
	}, func(attempt int, err error) {
		h.stats.update(func(s *Snapshot) {
			s.PageRetries++
			s.LastError = err.Error()
		})
		h.log.WithError(err).WithFields(logrus.Fields{
			"skip":    skip,
			"attempt": attempt,
			"tier":    retry.TierRead,
			"pause":   h.policy.Backoff(retry.TierRead),
		}).Error("An error occurred when reading items")
	})
	return items, err
}

func (h *HistoryIngester) ingestItem(ctx context.Context, item models.Item) error {
	log := h.log.WithFields(logrus.Fields{"hash_name": item.ItemHashName, "item_name_id": item.ItemNameID})

	raw, err := h.source.FetchPriceHistory(ctx, item.GameID, item.ItemHashName, h.cfg.Currency, h.cfg.Credential)
	if err != nil {
		return err
	}
	points, skipped, err := parser.ParseHistoryPoints(raw)
	if err != nil {
		return err
	}
	for _, bad := range skipped {
		log.WithError(bad).Warn("Skipping history point")
	}

	latest, haveLatest, err := h.store.LatestPriceDate(ctx, item.ItemNameID)
	if err != nil {
		return err
	}

	recent := FilterRetention(points, h.now(), h.cfg.RetentionWindow)
	batch := make([]models.PricePoint, 0, len(recent))
	for _, p := range recent {
		if haveLatest && !p.Date.After(latest) {
			continue
		}
		batch = append(batch, models.PricePoint{
			ItemID: item.ItemNameID,
			Date:   p.Date,
			Price:  p.Price,
			Volume: p.Volume,
		})
	}

	inserted := 0
	if len(batch) > 0 {
		if inserted, err = h.store.InsertPricePoints(ctx, batch); err != nil {
			return err
		}
	}

	dropped := len(points) - len(recent)
	h.stats.update(func(s *Snapshot) {
		s.Inserted += inserted
		s.PointsKept += len(batch)
		s.PointsDropped += dropped
		s.PointsBadDate += len(skipped)
	})
	log.WithFields(logrus.Fields{
		"points":   len(points),
		"kept":     len(batch),
		"inserted": inserted,
		"pause":    h.policy.Interval(retry.PaceHistory),
	}).Info("Stored price history")

	return h.policy.Pace(ctx, retry.PaceHistory)
}

// FilterRetention keeps the points no older than window relative to now.
func FilterRetention(points []parser.HistoryPoint, now time.Time, window time.Duration) []parser.HistoryPoint {
	kept := make([]parser.HistoryPoint, 0, len(points))
	for _, p := range points {
		if now.Sub(p.Date) <= window {
			kept = append(kept, p)
		}
	}
	return kept
}
