package aggregation

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enterprise/fraud-dashboard/internal/models"
)

func newTestEngine(mode Mode) *Engine {
	return NewEngine(WithMode(mode), WithJitter(fixedJitter(0.25)))
}

func TestEngineStartsEmpty(t *testing.T) {
	e := newTestEngine(ModeFull)

	snap := e.Snapshot()
	assert.Equal(t, uint64(0), snap.Revision)
	assert.Empty(t, snap.Cases)
	assert.Empty(t, snap.RiskDistribution)
	assert.Empty(t, snap.GeoConcentration)
}

func TestEngineIngestPrepends(t *testing.T) {
	e := newTestEngine(ModeFull)
	e.Replace([]models.Transaction{{ID: 2}, {ID: 1}})
	e.Ingest(models.Transaction{ID: 3})
	e.Ingest(models.Transaction{ID: 4})

	snap := e.Snapshot()
	require.Len(t, snap.Cases, 4)
	ids := []int64{snap.Cases[0].ID, snap.Cases[1].ID, snap.Cases[2].ID, snap.Cases[3].ID}
	assert.Equal(t, []int64{4, 3, 2, 1}, ids)
	assert.Equal(t, 4, snap.TotalCases)
	assert.Equal(t, uint64(3), snap.Revision)
}

func TestEngineGeoScenario(t *testing.T) {
	for _, mode := range []Mode{ModeFull, ModeIncremental} {
		t.Run(string(mode), func(t *testing.T) {
			e := newTestEngine(mode)
			e.Replace([]models.Transaction{
				tx(models.RiskLevelHigh, "US"),
				tx(models.RiskLevelHigh, "CA"),
			})
			e.Ingest(tx(models.RiskLevelHigh, "US"))

			geo := e.Snapshot().GeoConcentration
			require.Len(t, geo, 2)
			assert.Equal(t, "US", geo[0].Country)
			assert.Equal(t, 2, geo[0].Count)
			assert.Equal(t, models.GeoTierPeak, geo[0].Tier)
			assert.Equal(t, "CA", geo[1].Country)
			assert.Equal(t, 1, geo[1].Count)
			assert.Equal(t, models.GeoTierElevated, geo[1].Tier)
			assert.Equal(t, 0.5, geo[1].Intensity)
		})
	}
}

func TestEngineReplaceEmpty(t *testing.T) {
	for _, mode := range []Mode{ModeFull, ModeIncremental} {
		t.Run(string(mode), func(t *testing.T) {
			e := newTestEngine(mode)
			e.Replace([]models.Transaction{tx(models.RiskLevelHigh, "US")})
			e.Ingest(tx(models.RiskLevelLow, "CA"))

			require.NotPanics(t, func() { e.Replace([]models.Transaction{}) })

			snap := e.Snapshot()
			assert.Empty(t, snap.Cases)
			assert.NotNil(t, snap.RiskDistribution)
			assert.Empty(t, snap.RiskDistribution)
			assert.NotNil(t, snap.GeoConcentration)
			assert.Empty(t, snap.GeoConcentration)
		})
	}
}

func TestEngineIngestEquivalentToReplace(t *testing.T) {
	r := rand.New(rand.NewSource(21))

	for round := 0; round < 50; round++ {
		base := randomCases(r, r.Intn(30))
		next := randomCases(r, 1)[0]

		for _, mode := range []Mode{ModeFull, ModeIncremental} {
			ingested := newTestEngine(mode)
			ingested.Replace(base)
			ingested.Ingest(next)

			replaced := newTestEngine(mode)
			replaced.Replace(append([]models.Transaction{next}, base...))

			a, b := ingested.Snapshot(), replaced.Snapshot()
			assert.Equal(t, b.Cases, a.Cases)
			assert.Equal(t, b.RiskDistribution, a.RiskDistribution)
			assert.Equal(t, b.GeoConcentration, a.GeoConcentration)
		}
	}
}

func TestIncrementalMatchesFull(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	full := newTestEngine(ModeFull)
	incremental := newTestEngine(ModeIncremental)

	for step := 0; step < 300; step++ {
		if r.Intn(25) == 0 {
			batch := randomCases(r, r.Intn(20))
			full.Replace(batch)
			incremental.Replace(batch)
		} else {
			c := randomCases(r, 1)[0]
			full.Ingest(c)
			incremental.Ingest(c)
		}

		a, b := full.Snapshot(), incremental.Snapshot()
		require.Equal(t, a.RiskDistribution, b.RiskDistribution, "step %d", step)
		require.Equal(t, a.GeoConcentration, b.GeoConcentration, "step %d", step)
	}
}

func TestEngineReplaceCopiesInput(t *testing.T) {
	e := newTestEngine(ModeFull)
	input := []models.Transaction{tx(models.RiskLevelHigh, "US")}
	e.Replace(input)

	input[0].Country = "CA"
	assert.Equal(t, "US", e.Snapshot().Cases[0].Country)
}

func TestEngineSnapshotsAreImmutable(t *testing.T) {
	e := newTestEngine(ModeFull)
	e.Replace([]models.Transaction{tx(models.RiskLevelHigh, "US")})
	before := e.Snapshot()

	e.Ingest(tx(models.RiskLevelHigh, "CA"))

	assert.Len(t, before.Cases, 1)
	assert.Len(t, before.GeoConcentration, 1)
	assert.Len(t, e.Snapshot().GeoConcentration, 2)
}

func TestEngineConcurrentIngestNeverTears(t *testing.T) {
	e := NewEngine()
	const writers, perWriter = 8, 50

	stop := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := e.Snapshot()
			var included, highs int
			for _, c := range snap.Cases {
				if c.RiskLevel != models.RiskLevelNone {
					included++
				}
				if c.RiskLevel == models.RiskLevelHigh {
					highs++
				}
			}
			var distCount, geoCount int
			for _, d := range snap.RiskDistribution {
				distCount += d.Count
			}
			for _, g := range snap.GeoConcentration {
				geoCount += g.Count
			}
			if distCount != included || geoCount != highs {
				t.Errorf("torn snapshot at revision %d", snap.Revision)
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			for _, c := range randomCases(r, perWriter) {
				e.Ingest(c)
			}
		}(int64(w))
	}
	wg.Wait()
	close(stop)
	<-readerDone

	snap := e.Snapshot()
	assert.Equal(t, writers*perWriter, snap.TotalCases)
	assert.Equal(t, uint64(writers*perWriter), snap.Revision)
}

func TestEngineSubscribe(t *testing.T) {
	fixed := time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC)
	e := NewEngine(WithClock(func() time.Time { return fixed }))

	updates, cancel := e.Subscribe()
	e.Ingest(tx(models.RiskLevelHigh, "US"))

	select {
	case snap := <-updates:
		assert.Equal(t, uint64(1), snap.Revision)
		assert.Equal(t, fixed, snap.UpdatedAt)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}

	// slow reader only sees the latest
	e.Ingest(tx(models.RiskLevelHigh, "US"))
	e.Ingest(tx(models.RiskLevelHigh, "US"))
	snap := <-updates
	assert.Equal(t, uint64(3), snap.Revision)

	cancel()
	cancel()
	e.Ingest(tx(models.RiskLevelLow, "US"))
	select {
	case <-updates:
		t.Fatal("snapshot delivered after cancel")
	default:
	}
}
