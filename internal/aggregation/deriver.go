package aggregation

import (
	"fmt"

	"github.com/enterprise/fraud-dashboard/internal/models"
)

// Mode selects how views are recomputed after a mutation
type Mode string

// Mode enum values
const (
	// ModeFull recounts the whole case list on every mutation
	ModeFull Mode = "full"
	// ModeIncremental keeps running counters and only rebuilds the views
	ModeIncremental Mode = "incremental"
)

// ParseMode validates a configured mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFull, ModeIncremental:
		return Mode(s), nil
	case "":
		return ModeFull, nil
	default:
		return "", fmt.Errorf("unknown aggregation mode %q", s)
	}
}

type views struct {
	riskDistribution []models.RiskDistributionEntry
	geoConcentration []models.GeoConcentrationEntry
}

// deriver recomputes views. Both implementations return the same output for
// the same case list.
type deriver interface {
	replaced(cases []models.Transaction) views
	ingested(t models.Transaction, cases []models.Transaction) views
}

type fullDeriver struct {
	jitter JitterSource
}

func (d *fullDeriver) replaced(cases []models.Transaction) views {
	return buildViews(countCases(cases), d.jitter)
}

func (d *fullDeriver) ingested(_ models.Transaction, cases []models.Transaction) views {
	return buildViews(countCases(cases), d.jitter)
}

type incrementalDeriver struct {
	jitter JitterSource
	counts riskCounts
}

func (d *incrementalDeriver) replaced(cases []models.Transaction) views {
	d.counts = countCases(cases)
	return buildViews(d.counts, d.jitter)
}

func (d *incrementalDeriver) ingested(t models.Transaction, _ []models.Transaction) views {
	d.counts.add(t)
	return buildViews(d.counts, d.jitter)
}

func newDeriver(mode Mode, jitter JitterSource) deriver {
	if mode == ModeIncremental {
		return &incrementalDeriver{jitter: jitter, counts: newRiskCounts()}
	}
	return &fullDeriver{jitter: jitter}
}

func buildViews(counts riskCounts, jitter JitterSource) views {
	return views{
		riskDistribution: riskDistribution(counts.byLevel),
		geoConcentration: geoConcentration(counts.highByCountry, jitter),
	}
}
