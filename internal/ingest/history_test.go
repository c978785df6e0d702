package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"steam-market-harvester/internal/models"
	"steam-market-harvester/internal/parser"
	"steam-market-harvester/internal/services/steam"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var historyNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func steamDate(t time.Time) string {
	return t.UTC().Format("Jan 02 2006 15") + ": +0"
}

func historyJSON(dates ...time.Time) []byte {
	body := `{"success": true, "price_prefix": "$", "price_suffix": "", "prices": [`
	for i, d := range dates {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf(`[%q, %d.5, "%d"]`, steamDate(d), i+1, i+10)
	}
	return []byte(body + "]}")
}

type historyFixture struct {
	source   *fakeHistory
	store    *flakyStore
	ingester *HistoryIngester
	rec      *sleepRecorder
}

func newHistoryFixture(t *testing.T, hashNames ...string) *historyFixture {
	t.Helper()
	store := newFlakyStore()
	for i, h := range hashNames {
		require.NoError(t, store.InsertItem(context.Background(), &models.Item{ItemNameID: int64(100 + i), ItemHashName: h, GameID: testGameID}))
	}
	policy, rec := testPolicy()
	log, _ := testLogger()
	source := newFakeHistory()

	ing := NewHistoryIngester(HistoryConfig{
		PageSize:        testPageSize,
		RetentionWindow: 30 * 24 * time.Hour,
		Currency:        1,
		Credential:      "session-cookie",
	}, source, store, policy, log)
	ing.now = func() time.Time { return historyNow }

	return &historyFixture{source: source, store: store, ingester: ing, rec: rec}
}

func TestHistory_RetentionWindow(t *testing.T) {
	f := newHistoryFixture(t, "a")
	day := 24 * time.Hour
	f.source.payloads["a"] = historyJSON(historyNow, historyNow.Add(-15*day), historyNow.Add(-45*day))

	require.NoError(t, f.ingester.Run(context.Background()))

	points, err := f.store.ListPricePoints(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, historyNow.Add(-15*day), points[0].Date)
	assert.Equal(t, historyNow, points[1].Date)
	assert.Equal(t, int64(100), points[0].ItemID)
	assert.True(t, points[1].Price.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, 10, points[1].Volume)

	snap := f.ingester.Stats().Snapshot()
	assert.Equal(t, 2, snap.PointsKept)
	assert.Equal(t, 1, snap.PointsDropped)
	assert.Equal(t, []string{"session-cookie"}, f.source.creds)
}

func TestHistory_EmptyFilteredBatchIsNotAFailure(t *testing.T) {
	f := newHistoryFixture(t, "old")
	f.source.payloads["old"] = historyJSON(historyNow.Add(-90 * 24 * time.Hour))

	require.NoError(t, f.ingester.Run(context.Background()))

	assert.Zero(t, f.store.pointCount())
	assert.Zero(t, f.ingester.Stats().Snapshot().Failed)
	assert.Equal(t, 1, f.rec.count(historyPace))
	assert.Zero(t, f.rec.count(itemPause))
}

func TestHistory_WalksEveryPage(t *testing.T) {
	f := newHistoryFixture(t, "a", "b", "c", "d", "e")

	require.NoError(t, f.ingester.Run(context.Background()))

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, f.source.calls)
	assert.Equal(t, 5, f.rec.count(historyPace))
	assert.Equal(t, 4, f.ingester.Stats().Snapshot().Pages)
}

func TestHistory_ItemFailureContinues(t *testing.T) {
	f := newHistoryFixture(t, "a", "b", "c")
	f.source.payloads["a"] = []byte(`{"success": false}`)
	f.source.errs["b"] = &steam.TransportError{URL: "history", StatusCode: 403}
	f.source.payloads["c"] = historyJSON(historyNow.Add(-time.Hour))

	require.NoError(t, f.ingester.Run(context.Background()))

	assert.Equal(t, 2, f.rec.count(itemPause))
	assert.Equal(t, 1, f.rec.count(historyPace))
	assert.Equal(t, 1, f.store.pointCount())
	assert.Equal(t, 2, f.ingester.Stats().Snapshot().Failed)
}

func TestHistory_ReadFailureRetriesSamePage(t *testing.T) {
	f := newHistoryFixture(t, "a", "b")
	f.store.listFailures = 2

	require.NoError(t, f.ingester.Run(context.Background()))

	assert.Equal(t, 2, f.rec.count(readPause))
	assert.Equal(t, []string{"a", "b"}, f.source.calls)
	assert.Equal(t, 2, f.ingester.Stats().Snapshot().PageRetries)
}

func TestHistory_BadDateSkipsOnlyThatPoint(t *testing.T) {
	f := newHistoryFixture(t, "a")
	f.source.payloads["a"] = []byte(fmt.Sprintf(`{"success": true, "prices": [
		["yesterday-ish", 1.0, "1"],
		[%q, 2.25, "7"]
	]}`, steamDate(historyNow.Add(-2*time.Hour))))

	require.NoError(t, f.ingester.Run(context.Background()))

	assert.Equal(t, 1, f.store.pointCount())
	snap := f.ingester.Stats().Snapshot()
	assert.Equal(t, 1, snap.PointsBadDate)
	assert.Zero(t, snap.Failed)
}

func TestHistory_RerunWritesOnlyNewerPoints(t *testing.T) {
	f := newHistoryFixture(t, "a")
	f.source.payloads["a"] = historyJSON(historyNow.Add(-3*time.Hour), historyNow.Add(-2*time.Hour))
	require.NoError(t, f.ingester.Run(context.Background()))
	require.Equal(t, 2, f.store.pointCount())

	f.source.payloads["a"] = historyJSON(historyNow.Add(-3*time.Hour), historyNow.Add(-2*time.Hour), historyNow.Add(-time.Hour))
	f.ingester.stats = NewStats("history")
	require.NoError(t, f.ingester.Run(context.Background()))

	assert.Equal(t, 3, f.store.pointCount())
	assert.Equal(t, 1, f.ingester.Stats().Snapshot().PointsKept)
}

func TestHistory_StopsWhenContextCanceled(t *testing.T) {
	f := newHistoryFixture(t, "a", "b")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.ingester.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.source.calls)
}

func TestFilterRetention(t *testing.T) {
	window := 30 * 24 * time.Hour
	points := []parser.HistoryPoint{
		{Date: historyNow.Add(-window)},
		{Date: historyNow.Add(-window - time.Hour)},
		{Date: historyNow.Add(time.Hour)},
	}

	kept := FilterRetention(points, historyNow, window)
	require.Len(t, kept, 2)
	assert.Equal(t, historyNow.Add(-window), kept[0].Date, "boundary is inclusive")
	assert.Equal(t, historyNow.Add(time.Hour), kept[1].Date)
}
