//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/disaster-alert-sync/internal/adapter/gdacs"
	"github.com/couchcryptid/disaster-alert-sync/internal/adapter/postgis"
	"github.com/couchcryptid/disaster-alert-sync/internal/domain"
	"github.com/couchcryptid/disaster-alert-sync/internal/observability"
	"github.com/couchcryptid/disaster-alert-sync/internal/pipeline"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

const testTable = "disaster_events"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startPostgis launches a PostGIS container and returns its connection URL.
func startPostgis(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tcpostgres.Run(ctx,
		"postgis/postgis:16-3.4",
		tcpostgres.WithDatabase("gdacs"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return url
}

func newStore(ctx context.Context, t *testing.T, url string) *postgis.Store {
	t.Helper()

	store, err := postgis.New(ctx, postgis.Config{
		DatabaseURL: url,
		Table:       testTable,
		MaxConns:    4,
	}, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.InitSchema(ctx))
	return store
}

// TestStoreApplyRoundTrip exercises the full insert, fingerprint-diff, and
// update path against a live PostGIS instance.
func TestStoreApplyRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	url := startPostgis(ctx, t)
	store := newStore(ctx, t, url)

	now := time.Date(2026, time.March, 14, 6, 0, 0, 0, time.UTC)
	events := []domain.DisasterEvent{
		{
			SourceID:      "EQ1487904",
			EventType:     domain.TypeEarthquake,
			Severity:      domain.SeverityOrange,
			Geometry:      orb.Point{27.1, 37.9},
			OccurredAt:    now.AddDate(0, 0, -1),
			RawAttributes: map[string]string{"country": "Turkey", "alertscore": "2"},
			FetchedAt:     now,
		},
		{
			SourceID:  "DR1014690",
			EventType: domain.TypeDrought,
			Severity:  domain.SeverityGreen,
			Geometry: orb.Polygon{{
				{20, -5}, {25, -5}, {25, 0}, {20, 0}, {20, -5},
			}},
			FetchedAt: now,
		},
	}

	result, err := store.Apply(ctx, events, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Updated)
	assert.Empty(t, result.Failed)

	fps, err := store.LoadFingerprints(ctx)
	require.NoError(t, err)
	require.Len(t, fps, 2)
	assert.Equal(t, events[0].Fingerprint(), fps["EQ1487904"])

	// Identical events diff to nothing.
	diff := domain.ComputeDiff(events, fps)
	assert.True(t, diff.Empty())
	assert.Equal(t, 2, diff.Unchanged)

	// A severity change becomes an update of the same row.
	events[0].Severity = domain.SeverityRed
	diff = domain.ComputeDiff(events, fps)
	require.Len(t, diff.ToUpdate, 1)
	assert.Empty(t, diff.ToInsert)

	result, err = store.Apply(ctx, diff.ToInsert, diff.ToUpdate)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)
	assert.Equal(t, 1, result.Updated)

	fps, err = store.LoadFingerprints(ctx)
	require.NoError(t, err)
	require.Len(t, fps, 2, "update must not create a second row")
	assert.Equal(t, events[0].Fingerprint(), fps["EQ1487904"])
}

// TestStoreApplyIsolatesInvalidRecords checks that one bad geometry fails
// only its own record while the rest of the batch commits.
func TestStoreApplyIsolatesInvalidRecords(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	url := startPostgis(ctx, t)
	store := newStore(ctx, t, url)

	valid := domain.DisasterEvent{
		SourceID:  "EQ1000001",
		EventType: domain.TypeEarthquake,
		Severity:  domain.SeverityGreen,
		Geometry:  orb.Point{120.5, -8.2},
		FetchedAt: time.Now().UTC(),
	}
	noGeometry := domain.DisasterEvent{
		SourceID:  "FL1000002",
		EventType: domain.TypeFlood,
		Severity:  domain.SeverityOrange,
		FetchedAt: time.Now().UTC(),
	}

	result, err := store.Apply(ctx, []domain.DisasterEvent{valid, noGeometry}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "FL1000002", result.Failed[0].SourceID)

	fps, err := store.LoadFingerprints(ctx)
	require.NoError(t, err)
	assert.Contains(t, fps, "EQ1000001")
	assert.NotContains(t, fps, "FL1000002")
}

// TestStoreGeometryPersistence reads the written geometry back out of
// PostGIS to confirm coordinates and SRID survive the round trip.
func TestStoreGeometryPersistence(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	url := startPostgis(ctx, t)
	store := newStore(ctx, t, url)

	event := domain.DisasterEvent{
		SourceID:  "TC1000003",
		EventType: domain.TypeCyclone,
		Severity:  domain.SeverityRed,
		Geometry:  orb.Point{160.25, -17.75},
		FetchedAt: time.Now().UTC(),
	}

	result, err := store.Apply(ctx, []domain.DisasterEvent{event}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, result.Inserted)

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	var lon, lat float64
	var srid int
	err = pool.QueryRow(ctx,
		`SELECT ST_X(geometry), ST_Y(geometry), ST_SRID(geometry) FROM disaster_events WHERE source_id = $1`,
		event.SourceID,
	).Scan(&lon, &lat, &srid)
	require.NoError(t, err)

	assert.InDelta(t, 160.25, lon, 1e-9)
	assert.InDelta(t, -17.75, lat, 1e-9)
	assert.Equal(t, 4326, srid)
}

const feedGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [27.1, 37.9]},
      "properties": {"eventtype": "EQ", "eventid": "1487904", "alertlevel": "Orange", "country": "Turkey"}
    },
    {
      "type": "Feature",
      "geometry": {"type": "Polygon", "coordinates": [[[20, -5], [25, -5], [25, 0], [20, 0], [20, -5]]]},
      "properties": {"eventtype": "DR", "eventid": "1014690", "alertlevel": "Green"}
    }
  ]
}`

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:gdacs="http://www.gdacs.org" xmlns:georss="http://www.georss.org/georss">
  <channel>
    <item>
      <title>Orange earthquake alert in Turkey</title>
      <gdacs:eventtype>EQ</gdacs:eventtype>
      <gdacs:eventid>1487904</gdacs:eventid>
      <gdacs:alertlevel>Orange</gdacs:alertlevel>
      <gdacs:country>Turkey</gdacs:country>
      <georss:point>37.9 27.1</georss:point>
    </item>
    <item>
      <title>Drought alert</title>
      <gdacs:eventtype>DR</gdacs:eventtype>
      <gdacs:eventid>1014690</gdacs:eventid>
      <gdacs:alertlevel>Green</gdacs:alertlevel>
    </item>
  </channel>
</rss>`

type fixtureFetcher struct{}

func (fixtureFetcher) FetchGeoJSON(_ context.Context) ([]byte, error) { return []byte(feedGeoJSON), nil }
func (fixtureFetcher) FetchXML(_ context.Context) ([]byte, error)    { return []byte(feedXML), nil }

// TestSyncEndToEnd runs the real loop against a live store: the first cycle
// persists the merged feed, the second cycle sees identical data and writes
// nothing.
func TestSyncEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	url := startPostgis(ctx, t)
	store := newStore(ctx, t, url)

	fake := clockwork.NewFakeClockAt(time.Date(2026, time.March, 14, 6, 0, 0, 0, time.UTC))
	p := pipeline.New(fixtureFetcher{}, gdacs.Parser{}, store, discardLogger(), observability.NewMetricsForTesting(), pipeline.Options{
		Interval: time.Hour,
		Clock:    fake,
	})

	runCtx, stop := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(runCtx) }()

	// First cycle ends when the loop starts sleeping.
	require.NoError(t, fake.BlockUntilContext(ctx, 1))
	require.NoError(t, p.CheckReadiness(ctx))

	fps, err := store.LoadFingerprints(ctx)
	require.NoError(t, err)
	assert.Len(t, fps, 2)
	assert.Contains(t, fps, "EQ1487904")
	assert.Contains(t, fps, "DR1014690")

	// Second cycle over identical feeds.
	fake.Advance(time.Hour)
	require.NoError(t, fake.BlockUntilContext(ctx, 1))

	stop()
	require.NoError(t, <-errCh)

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	var rows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM disaster_events`).Scan(&rows))
	assert.Equal(t, 2, rows)

	var severity string
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT severity FROM disaster_events WHERE source_id = $1`, "EQ1487904").Scan(&severity))
	assert.Equal(t, domain.SeverityOrange, severity)
}
