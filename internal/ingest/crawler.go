package ingest

import (
	"context"
	"encoding/json"
	"time"

	"steam-market-harvester/internal/logger"
	"steam-market-harvester/internal/models"
	"steam-market-harvester/internal/parser"
	"steam-market-harvester/internal/retry"

	"github.com/sirupsen/logrus"
)

// Enricher is implemented by DetailEnricher.
type Enricher interface {
	Enrich(ctx context.Context, gameID int, entry parser.CatalogEntry) (*models.Item, error)
}

type CrawlerConfig struct {
	GameID     int
	StartIndex int
	PageSize   int
}

// CatalogCrawler pages through the catalog search and hands every entry not
// yet stored to the enricher.
type CatalogCrawler struct {
	cfg      CrawlerConfig
	source   CatalogSource
	gate     *DedupGate
	enricher Enricher
	policy   retry.Policy
	log      *logrus.Entry
	stats    *Stats
	now      func() time.Time

	cursor int
}

func NewCatalogCrawler(cfg CrawlerConfig, source CatalogSource, gate *DedupGate, enricher Enricher, policy retry.Policy, log logrus.FieldLogger) *CatalogCrawler {
	return &CatalogCrawler{
		cfg:      cfg,
		source:   source,
		gate:     gate,
		enricher: enricher,
		policy:   policy,
		log:      logger.Component(log, "crawler").WithField("game_id", cfg.GameID),
		stats:    NewStats("catalog"),
		now:      time.Now,
		cursor:   cfg.StartIndex,
	}
}

// Cursor is the start offset of the page being processed, or of the empty
// page that ended the crawl.
func (c *CatalogCrawler) Cursor() int { return c.cursor }

func (c *CatalogCrawler) Stats() *Stats { return c.stats }

// Run crawls until a page comes back empty or ctx is done. Page failures
// are retried at the same cursor; entry failures are logged and skipped.
func (c *CatalogCrawler) Run(ctx context.Context) error {
	c.stats.start(c.now(), c.cursor)
	defer func() { c.stats.finish(c.now()) }()

	for {
		entries, err := c.fetchPage(ctx)
		if err != nil {
			return err
		}

		log := c.log.WithField("cursor", c.cursor)
		log.Infof("Items %d to %d received", c.cursor, c.cursor+c.cfg.PageSize)
		c.stats.update(func(s *Snapshot) {
			s.Pages++
			s.Cursor = c.cursor
		})

		if len(entries) == 0 {
			snap := c.stats.Snapshot()
			log.WithFields(logrus.Fields{
				"inserted": snap.Inserted,
				"skipped":  snap.Skipped,
				"failed":   snap.Failed,
			}).Info("Catalog exhausted")
			return nil
		}

		for _, raw := range entries {
			c.stats.update(func(s *Snapshot) { s.Seen++ })
			entry, err := parser.DecodeCatalogEntry(raw)
			if err == nil {
				err = c.processEntry(ctx, entry)
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.stats.fail(err)
				log.WithError(err).WithFields(logrus.Fields{
					"hash_name": entry.HashName,
					"kind":      retry.Classify(err),
					"tier":      retry.TierItem,
					"pause":     c.policy.Backoff(retry.TierItem),
				}).Error("An error occurred when doing an item market request")
				if err := c.policy.Pause(ctx, retry.TierItem); err != nil {
					return err
				}
			}
		}

		c.cursor += c.cfg.PageSize
	}
}

func (c *CatalogCrawler) fetchPage(ctx context.Context) ([]json.RawMessage, error) {
	var entries []json.RawMessage
	err := c.policy.Until(ctx, retry.TierBatch, func(ctx context.Context) error {
		raw, err := c.source.SearchItems(ctx, c.cfg.GameID, c.cursor, c.cfg.PageSize)
		if err != nil {
			return err
		}
		entries, _, err = parser.ParseCatalogPage(raw)
		return err
	}, func(attempt int, err error) {
		c.stats.update(func(s *Snapshot) {
			s.PageRetries++
			s.LastError = err.Error()
		})
		c.log.WithError(err).WithFields(logrus.Fields{
			"cursor":  c.cursor,
			"attempt": attempt,
			"kind":    retry.Classify(err),
			"tier":    retry.TierBatch,
			"pause":   c.policy.Backoff(retry.TierBatch),
		}).Error("An error occurred when doing an item batch request")
	})
	return entries, err
}

func (c *CatalogCrawler) processEntry(ctx context.Context, entry parser.CatalogEntry) error {
	exists, err := c.gate.Exists(ctx, c.cfg.GameID, entry.HashName)
	if err != nil {
		return err
	}
	if exists {
		c.stats.update(func(s *Snapshot) { s.Skipped++ })
		c.log.WithField("hash_name", entry.HashName).Info("Already in database, skipping")
		return nil
	}

	if _, err := c.enricher.Enrich(ctx, c.cfg.GameID, entry); err != nil {
		return err
	}
	c.stats.update(func(s *Snapshot) { s.Inserted++ })
	return nil
}
