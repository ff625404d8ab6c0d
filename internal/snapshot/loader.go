package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/enterprise/fraud-dashboard/internal/models"
)

// Source returns the full case list. The loader keeps the order it is given,
// so a source is expected to list cases newest first.
type Source interface {
	ListCases(ctx context.Context) ([]models.Transaction, error)
}

// Replacer accepts a wholesale case list
type Replacer interface {
	Replace(all []models.Transaction)
}

// Loader performs the one-shot initial fetch of the case list
type Loader struct {
	source Source
	target Replacer
	name   string
}

// NewLoader creates a loader reading from source. name labels the source in
// logs.
func NewLoader(source Source, target Replacer, name string) *Loader {
	return &Loader{source: source, target: target, name: name}
}

// Load fetches the case list once and replaces the target's list with it.
// On failure the target is left untouched.
func (l *Loader) Load(ctx context.Context) error {
	start := time.Now()

	cases, err := l.source.ListCases(ctx)
	if err != nil {
		log.Error().
			Err(err).
			Str("source", l.name).
			Msg("Failed to load case snapshot")
		return fmt.Errorf("snapshot load failed: %w", err)
	}

	l.target.Replace(cases)

	log.Info().
		Str("source", l.name).
		Int("cases", len(cases)).
		Dur("duration", time.Since(start)).
		Msg("Case snapshot loaded")

	return nil
}
