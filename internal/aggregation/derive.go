package aggregation

import (
	"math"
	"sort"

	"github.com/enterprise/fraud-dashboard/internal/models"
)

// Plot coordinates for the geo bubble chart
const (
	geoSizeFactor  = 3
	geoYOffsetBias = 10 // keeps small bubbles above the axis baseline
	geoJitterRange = 10.0
)

// JitterSource supplies the horizontal bubble jitter. *rand.Rand satisfies it.
type JitterSource interface {
	Float64() float64
}

// riskCounts holds the per-level and per-country counters both views are
// built from.
type riskCounts struct {
	byLevel       map[models.RiskLevel]int // excludes NoRisk
	highByCountry map[string]int
}

func newRiskCounts() riskCounts {
	return riskCounts{
		byLevel:       make(map[models.RiskLevel]int),
		highByCountry: make(map[string]int),
	}
}

func countCases(cases []models.Transaction) riskCounts {
	counts := newRiskCounts()
	for _, t := range cases {
		counts.add(t)
	}
	return counts
}

func (c riskCounts) add(t models.Transaction) {
	if t.RiskLevel != models.RiskLevelNone {
		c.byLevel[t.RiskLevel]++
	}
	if t.RiskLevel == models.RiskLevelHigh {
		c.highByCountry[t.Country]++
	}
}

// DeriveRiskDistribution groups cases by risk level, excluding NoRisk.
// Percentages are of the included total, rounded to one decimal. The result is
// empty when no case is included.
func DeriveRiskDistribution(cases []models.Transaction) []models.RiskDistributionEntry {
	return riskDistribution(countCases(cases).byLevel)
}

// DeriveGeoConcentration aggregates HighRisk cases per country. Entries are
// ordered by count (descending) then country; the first one is the Peak.
func DeriveGeoConcentration(cases []models.Transaction, jitter JitterSource) []models.GeoConcentrationEntry {
	return geoConcentration(countCases(cases).highByCountry, jitter)
}

func riskDistribution(byLevel map[models.RiskLevel]int) []models.RiskDistributionEntry {
	entries := make([]models.RiskDistributionEntry, 0, len(byLevel))

	var total int
	for _, count := range byLevel {
		total += count
	}
	if total == 0 {
		return entries
	}

	for level, count := range byLevel {
		if count == 0 {
			continue
		}
		entries = append(entries, models.RiskDistributionEntry{
			RiskLevel:  level,
			Count:      count,
			Percentage: roundOneDecimal(100 * float64(count) / float64(total)),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		si, sj := entries[i].RiskLevel.Severity(), entries[j].RiskLevel.Severity()
		if si != sj {
			return si < sj
		}
		return entries[i].RiskLevel < entries[j].RiskLevel
	})

	return entries
}

func geoConcentration(highByCountry map[string]int, jitter JitterSource) []models.GeoConcentrationEntry {
	entries := make([]models.GeoConcentrationEntry, 0, len(highByCountry))
	for country, count := range highByCountry {
		if count == 0 {
			continue
		}
		entries = append(entries, models.GeoConcentrationEntry{Country: country, Count: count})
	}

	// No groups: there is no maximum to normalise against
	if len(entries) == 0 {
		return entries
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Country < entries[j].Country
	})

	maxCount := entries[0].Count
	for i := range entries {
		e := &entries[i]
		e.Intensity = float64(e.Count) / float64(maxCount)
		e.Tier = models.GeoTierElevated
		if i == 0 {
			e.Tier = models.GeoTierPeak
		}
		e.Size = e.Count * geoSizeFactor
		e.YOffset = e.Count + geoYOffsetBias
		if jitter != nil {
			e.XJitter = jitter.Float64() * geoJitterRange
		}
	}

	return entries
}

func roundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
