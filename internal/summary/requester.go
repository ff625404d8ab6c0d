package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/enterprise/fraud-dashboard/internal/models"
	"github.com/enterprise/fraud-dashboard/internal/upstream"
)

var (
	ErrClientIDRequired = errors.New("client_id is required")
	// ErrSuperseded is returned when a newer request already stored its result
	ErrSuperseded = errors.New("summary superseded by a newer request")
)

// Generator produces a summary for one client
type Generator interface {
	GenerateSummary(ctx context.Context, clientID string) (*upstream.SummaryResponse, error)
}

// Requester fetches narrative summaries and keeps the latest one.
// Requests are numbered on issue; a response is stored only if no later
// request has stored one already.
type Requester struct {
	generator Generator
	issued    atomic.Uint64

	mu        sync.RWMutex
	current   *models.FraudSummary
	storedSeq uint64
}

// NewRequester creates a new summary requester
func NewRequester(generator Generator) *Requester {
	return &Requester{generator: generator}
}

// Request asks for the summary of clientID and stores it as current.
// A transport failure leaves the current summary unchanged.
func (r *Requester) Request(ctx context.Context, clientID string) (*models.FraudSummary, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, ErrClientIDRequired
	}

	seq := r.issued.Add(1)

	resp, err := r.generator.GenerateSummary(ctx, clientID)
	if err != nil {
		log.Error().
			Err(err).
			Str("client_id", clientID).
			Uint64("seq", seq).
			Msg("Failed to fetch summary")
		return nil, fmt.Errorf("summary request failed: %w", err)
	}

	summary := fromResponse(clientID, resp)

	r.mu.Lock()
	defer r.mu.Unlock()

	if seq < r.storedSeq {
		log.Debug().
			Str("client_id", clientID).
			Uint64("seq", seq).
			Uint64("stored_seq", r.storedSeq).
			Msg("Discarding stale summary")
		return &summary, ErrSuperseded
	}

	r.current = &summary
	r.storedSeq = seq

	log.Info().
		Str("client_id", clientID).
		Str("risk_level", string(summary.RiskLevel)).
		Msg("Summary updated")

	return &summary, nil
}

// Current returns the stored summary, or nil before the first one arrives
func (r *Requester) Current() *models.FraudSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.current == nil {
		return nil
	}
	summary := *r.current
	return &summary
}

// fromResponse maps an error body or missing fields to the fallback summary
func fromResponse(clientID string, resp *upstream.SummaryResponse) models.FraudSummary {
	if resp == nil || resp.Error != "" || resp.RiskLevel == "" || resp.Reason == "" {
		if resp != nil && resp.Error != "" {
			log.Warn().
				Str("client_id", clientID).
				Str("upstream_error", resp.Error).
				Msg("Summary unavailable, using fallback")
		}
		return models.FallbackSummary(clientID)
	}

	summary := models.FraudSummary{
		ClientID:  resp.ClientID,
		RiskLevel: resp.RiskLevel,
		Reason:    resp.Reason,
	}
	if summary.ClientID == "" {
		summary.ClientID = clientID
	}
	return summary
}
