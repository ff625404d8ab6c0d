package aggregation

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enterprise/fraud-dashboard/internal/models"
)

type fixedJitter float64

func (f fixedJitter) Float64() float64 { return float64(f) }

var (
	testLevels    = []models.RiskLevel{models.RiskLevelNone, models.RiskLevelLow, models.RiskLevelMedium, models.RiskLevelHigh}
	testCountries = []string{"US", "CA", "MY", "SG", "GB", "DE"}
)

func tx(level models.RiskLevel, country string) models.Transaction {
	return models.Transaction{ClientID: "C-" + country, RiskLevel: level, Country: country}
}

func randomCases(r *rand.Rand, n int) []models.Transaction {
	cases := make([]models.Transaction, n)
	for i := range cases {
		cases[i] = models.Transaction{
			ID:        int64(i + 1),
			ClientID:  "C" + string(rune('A'+r.Intn(26))),
			RiskLevel: testLevels[r.Intn(len(testLevels))],
			Country:   testCountries[r.Intn(len(testCountries))],
		}
	}
	return cases
}

func TestRiskDistributionProperties(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for round := 0; round < 200; round++ {
		cases := randomCases(r, r.Intn(60))
		dist := DeriveRiskDistribution(cases)

		var included int
		for _, c := range cases {
			if c.RiskLevel != models.RiskLevelNone {
				included++
			}
		}

		var countSum int
		var pctSum float64
		for _, e := range dist {
			assert.NotEqual(t, models.RiskLevelNone, e.RiskLevel)
			assert.Greater(t, e.Count, 0)
			countSum += e.Count
			pctSum += e.Percentage
		}
		require.Equal(t, included, countSum)

		if included == 0 {
			assert.Empty(t, dist)
			continue
		}
		// each entry is off by at most half a rounding step
		assert.LessOrEqual(t, math.Abs(pctSum-100), 0.05*float64(len(dist))+1e-9, "round %d: %v", round, dist)
	}
}

func TestRiskDistributionValues(t *testing.T) {
	cases := []models.Transaction{
		tx(models.RiskLevelHigh, "US"),
		tx(models.RiskLevelLow, "US"),
		tx(models.RiskLevelMedium, "CA"),
		tx(models.RiskLevelNone, "CA"),
		tx(models.RiskLevelNone, "CA"),
		tx(models.RiskLevelHigh, "MY"),
	}

	assert.Equal(t, []models.RiskDistributionEntry{
		{RiskLevel: models.RiskLevelHigh, Count: 2, Percentage: 50},
		{RiskLevel: models.RiskLevelMedium, Count: 1, Percentage: 25},
		{RiskLevel: models.RiskLevelLow, Count: 1, Percentage: 25},
	}, DeriveRiskDistribution(cases))
}

func TestRiskDistributionRoundsToOneDecimal(t *testing.T) {
	cases := []models.Transaction{
		tx(models.RiskLevelHigh, "US"),
		tx(models.RiskLevelMedium, "US"),
		tx(models.RiskLevelLow, "US"),
	}

	dist := DeriveRiskDistribution(cases)
	require.Len(t, dist, 3)
	for _, e := range dist {
		assert.Equal(t, 33.3, e.Percentage)
	}
}

func TestRiskDistributionKeepsUnrecognisedLevels(t *testing.T) {
	cases := []models.Transaction{
		tx("Critical", "US"),
		tx(models.RiskLevelHigh, "US"),
	}

	dist := DeriveRiskDistribution(cases)
	require.Len(t, dist, 2)
	assert.Equal(t, models.RiskLevelHigh, dist[0].RiskLevel)
	assert.Equal(t, models.RiskLevel("Critical"), dist[1].RiskLevel)
}

func TestRiskDistributionEmpty(t *testing.T) {
	assert.NotNil(t, DeriveRiskDistribution(nil))
	assert.Empty(t, DeriveRiskDistribution(nil))
	assert.Empty(t, DeriveRiskDistribution([]models.Transaction{tx(models.RiskLevelNone, "US")}))
}

func TestGeoConcentrationProperties(t *testing.T) {
	r := rand.New(rand.NewSource(11))

	for round := 0; round < 200; round++ {
		cases := randomCases(r, r.Intn(60))
		geo := DeriveGeoConcentration(cases, r)

		highCountries := make(map[string]int)
		for _, c := range cases {
			if c.RiskLevel == models.RiskLevelHigh {
				highCountries[c.Country]++
			}
		}
		require.Len(t, geo, len(highCountries))
		if len(geo) == 0 {
			continue
		}

		peaks := 0
		for _, e := range geo {
			assert.Equal(t, highCountries[e.Country], e.Count)
			assert.Greater(t, e.Intensity, 0.0)
			assert.LessOrEqual(t, e.Intensity, 1.0)
			assert.GreaterOrEqual(t, e.XJitter, 0.0)
			assert.Less(t, e.XJitter, geoJitterRange)
			if e.Tier == models.GeoTierPeak {
				peaks++
				assert.Equal(t, 1.0, e.Intensity)
			}
		}
		assert.Equal(t, 1, peaks)
	}
}

func TestGeoConcentrationValues(t *testing.T) {
	cases := []models.Transaction{
		tx(models.RiskLevelHigh, "US"),
		tx(models.RiskLevelHigh, "CA"),
		tx(models.RiskLevelHigh, "US"),
		tx(models.RiskLevelMedium, "CA"),
		tx(models.RiskLevelHigh, "US"),
		tx(models.RiskLevelHigh, "MY"),
	}

	assert.Equal(t, []models.GeoConcentrationEntry{
		{Country: "US", Count: 3, Intensity: 1, Tier: models.GeoTierPeak, Size: 9, YOffset: 13, XJitter: 5},
		{Country: "CA", Count: 1, Intensity: 1.0 / 3, Tier: models.GeoTierElevated, Size: 3, YOffset: 11, XJitter: 5},
		{Country: "MY", Count: 1, Intensity: 1.0 / 3, Tier: models.GeoTierElevated, Size: 3, YOffset: 11, XJitter: 5},
	}, DeriveGeoConcentration(cases, fixedJitter(0.5)))
}

func TestGeoConcentrationTieHasSinglePeak(t *testing.T) {
	cases := []models.Transaction{
		tx(models.RiskLevelHigh, "US"),
		tx(models.RiskLevelHigh, "CA"),
	}

	geo := DeriveGeoConcentration(cases, nil)
	require.Len(t, geo, 2)
	assert.Equal(t, "CA", geo[0].Country)
	assert.Equal(t, models.GeoTierPeak, geo[0].Tier)
	assert.Equal(t, models.GeoTierElevated, geo[1].Tier)
	assert.Equal(t, 1.0, geo[1].Intensity)
}

func TestGeoConcentrationJitterDoesNotAffectOtherFields(t *testing.T) {
	cases := randomCases(rand.New(rand.NewSource(3)), 40)

	a := DeriveGeoConcentration(cases, fixedJitter(0.1))
	b := DeriveGeoConcentration(cases, fixedJitter(0.9))
	require.Equal(t, len(a), len(b))
	for i := range a {
		a[i].XJitter, b[i].XJitter = 0, 0
	}
	assert.Equal(t, a, b)
}

func TestGeoConcentrationEmpty(t *testing.T) {
	assert.NotNil(t, DeriveGeoConcentration(nil, nil))
	assert.Empty(t, DeriveGeoConcentration(nil, nil))
	assert.Empty(t, DeriveGeoConcentration([]models.Transaction{
		tx(models.RiskLevelMedium, "US"),
		tx(models.RiskLevelLow, "CA"),
	}, nil))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeFull, m)

	m, err = ParseMode("incremental")
	require.NoError(t, err)
	assert.Equal(t, ModeIncremental, m)

	_, err = ParseMode("sampled")
	assert.Error(t, err)
}
