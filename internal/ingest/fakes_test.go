package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"steam-market-harvester/internal/models"
	"steam-market-harvester/internal/retry"
	"steam-market-harvester/internal/services/steam"
	"steam-market-harvester/internal/storage"
	"steam-market-harvester/internal/storage/memory"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

const (
	itemPause    = 60 * time.Second
	batchPause   = 61 * time.Second
	readPause    = 5 * time.Second
	detailPace   = 10 * time.Second
	historyPace  = 3 * time.Second
	testGameID   = 730
	testPageSize = 2
)

// sleepRecorder is a Sleeper that returns at once and keeps every duration,
// so tests assert pause counts instead of wall-clock time.
type sleepRecorder struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.slept = append(r.slept, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) calls() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.slept...)
}

func (r *sleepRecorder) count(d time.Duration) int {
	n := 0
	for _, c := range r.calls() {
		if c == d {
			n++
		}
	}
	return n
}

func testPolicy() (retry.Policy, *sleepRecorder) {
	rec := &sleepRecorder{}
	return retry.Policy{
		ItemFailure:   itemPause,
		BatchFailure:  batchPause,
		ReadFailure:   readPause,
		DetailPacing:  detailPace,
		HistoryPacing: historyPace,
		Sleeper:       rec,
	}, rec
}

func testLogger() (*logrus.Logger, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log, hook
}

func entryJSON(hashName string) string {
	return fmt.Sprintf(`{"name": %q, "hash_name": %q, "asset_description": {"appid": 730, "icon_url": "icon-%s"}}`, hashName, hashName, hashName)
}

func pageJSON(hashNames ...string) []byte {
	body := `{"success": true, "results": [`
	for i, h := range hashNames {
		if i > 0 {
			body += ","
		}
		body += entryJSON(h)
	}
	return []byte(body + "]}")
}

// fakeCatalog serves pages keyed by cursor. failures[cursor] holds errors
// returned before the page is served.
type fakeCatalog struct {
	mu       sync.Mutex
	pages    map[int][]byte
	failures map[int][]error
	cursors  []int
}

func newFakeCatalog(pageSize int, pages ...[]string) *fakeCatalog {
	c := &fakeCatalog{pages: map[int][]byte{}, failures: map[int][]error{}}
	for i, names := range pages {
		c.pages[i*pageSize] = pageJSON(names...)
	}
	c.pages[len(pages)*pageSize] = pageJSON()
	return c
}

func (c *fakeCatalog) SearchItems(_ context.Context, gameID, start, count int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursors = append(c.cursors, start)
	if errs := c.failures[start]; len(errs) > 0 {
		c.failures[start] = errs[1:]
		return nil, errs[0]
	}
	page, ok := c.pages[start]
	if !ok {
		return nil, &steam.TransportError{URL: "search", StatusCode: http.StatusNotFound}
	}
	return page, nil
}

func listingHTML(nameID int64) []byte {
	return []byte(fmt.Sprintf(`<html><body><script>var a = 1;</script><script type="text/javascript">
		$J(function() { Market_LoadOrderSpread( %d ); });
	</script></body></html>`, nameID))
}

type fakeListings struct {
	mu    sync.Mutex
	pages map[string][]byte
	errs  map[string]error
	calls []string
}

func newFakeListings() *fakeListings {
	return &fakeListings{pages: map[string][]byte{}, errs: map[string]error{}}
}

func (l *fakeListings) FetchListingPage(_ context.Context, gameID int, hashName string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, hashName)
	if err, ok := l.errs[hashName]; ok {
		return nil, err
	}
	if page, ok := l.pages[hashName]; ok {
		return page, nil
	}
	return listingHTML(int64(1000 + len(l.calls))), nil
}

func (l *fakeListings) count(hashName string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		if c == hashName {
			n++
		}
	}
	return n
}

type fakeHistory struct {
	mu       sync.Mutex
	payloads map[string][]byte
	errs     map[string]error
	calls    []string
	creds    []string
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{payloads: map[string][]byte{}, errs: map[string]error{}}
}

func (h *fakeHistory) FetchPriceHistory(_ context.Context, gameID int, hashName string, currency int, credential string) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, hashName)
	h.creds = append(h.creds, credential)
	if err, ok := h.errs[hashName]; ok {
		return nil, err
	}
	if p, ok := h.payloads[hashName]; ok {
		return p, nil
	}
	return []byte(`{"success": true, "prices": []}`), nil
}

// flakyStore wraps the memory store and injects failures.
type flakyStore struct {
	*memory.Store
	existsErr      map[string]error
	listFailures   int
	insertFailures map[string]error
}

func newFlakyStore() *flakyStore {
	return &flakyStore{Store: memory.NewStore(), existsErr: map[string]error{}, insertFailures: map[string]error{}}
}

func (f *flakyStore) ItemExists(ctx context.Context, gameID int, hashName string) (bool, error) {
	if err, ok := f.existsErr[hashName]; ok {
		return false, storage.Wrap("item exists", err)
	}
	return f.Store.ItemExists(ctx, gameID, hashName)
}

func (f *flakyStore) InsertItem(ctx context.Context, item *models.Item) error {
	if err, ok := f.insertFailures[item.ItemHashName]; ok {
		return storage.Wrap("insert item", err)
	}
	return f.Store.InsertItem(ctx, item)
}

func (f *flakyStore) ListItems(ctx context.Context, skip, take int) ([]models.Item, error) {
	if f.listFailures > 0 {
		f.listFailures--
		return nil, storage.Wrap("list items", errors.New("connection refused"))
	}
	return f.Store.ListItems(ctx, skip, take)
}

func (f *flakyStore) itemCount() int {
	items, _ := f.Store.ListItems(context.Background(), 0, math.MaxInt32)
	return len(items)
}

func (f *flakyStore) pointCount() int {
	points, _ := f.Store.ListPricePoints(context.Background(), 0, math.MaxInt32)
	return len(points)
}
