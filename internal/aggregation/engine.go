package aggregation

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/enterprise/fraud-dashboard/internal/models"
)

// Snapshot is an immutable state of the engine: the canonical case list and
// the two views derived from exactly that list.
type Snapshot struct {
	Revision         uint64                         `json:"revision"`
	Cases            []models.Transaction           `json:"-"`
	TotalCases       int                            `json:"total_cases"`
	RiskDistribution []models.RiskDistributionEntry `json:"risk_distribution"`
	GeoConcentration []models.GeoConcentrationEntry `json:"geo_concentration"`
	UpdatedAt        time.Time                      `json:"updated_at"`
}

// Engine owns the canonical case list (newest first) and re-derives both
// views on every mutation. Mutations are serialised; reads are lock-free.
type Engine struct {
	mu                   sync.Mutex
	deriver              deriver
	ingestedSinceReplace int

	current atomic.Pointer[Snapshot]

	subsMu  sync.Mutex
	subs    map[int]chan *Snapshot
	nextSub int

	mode   Mode
	jitter JitterSource
	now    func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithMode selects full or incremental recomputation
func WithMode(mode Mode) Option {
	return func(e *Engine) {
		e.mode = mode
	}
}

// WithJitter replaces the random source used for bubble jitter
func WithJitter(jitter JitterSource) Option {
	return func(e *Engine) {
		e.jitter = jitter
	}
}

// WithClock replaces time.Now for UpdatedAt stamps
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine with an empty case list
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		subs: make(map[int]chan *Snapshot),
		mode: ModeFull,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.jitter == nil {
		e.jitter = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e.deriver = newDeriver(e.mode, e.jitter)

	initial := e.deriver.replaced(nil)
	e.current.Store(&Snapshot{
		Cases:            []models.Transaction{},
		RiskDistribution: initial.riskDistribution,
		GeoConcentration: initial.geoConcentration,
		UpdatedAt:        e.now(),
	})

	return e
}

// Mode reports the recomputation mode in use
func (e *Engine) Mode() Mode {
	return e.mode
}

// Ingest prepends a newly alerted case and recomputes both views
func (e *Engine) Ingest(t models.Transaction) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.current.Load()
	cases := make([]models.Transaction, 0, len(prev.Cases)+1)
	cases = append(cases, t)
	cases = append(cases, prev.Cases...)

	v := e.deriver.ingested(t, cases)
	e.ingestedSinceReplace++
	snap := e.publish(prev, cases, v)

	log.Debug().
		Uint64("revision", snap.Revision).
		Str("client_id", t.ClientID).
		Str("risk_level", string(t.RiskLevel)).
		Str("country", t.Country).
		Msg("Alert ingested")
}

// Replace sets the case list wholesale. Alerts ingested before the call are
// discarded.
func (e *Engine) Replace(all []models.Transaction) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cases := make([]models.Transaction, len(all))
	copy(cases, all)

	if e.ingestedSinceReplace > 0 {
		log.Warn().
			Int("discarded_alerts", e.ingestedSinceReplace).
			Msg("Case list replaced after alerts were ingested; those alerts are no longer shown")
	}
	e.ingestedSinceReplace = 0

	v := e.deriver.replaced(cases)
	snap := e.publish(e.current.Load(), cases, v)

	log.Info().
		Uint64("revision", snap.Revision).
		Int("cases", len(cases)).
		Msg("Case list replaced")
}

// Snapshot returns the latest published state
func (e *Engine) Snapshot() *Snapshot {
	return e.current.Load()
}

// Subscribe returns a channel that receives every newly published snapshot.
// Slow readers only see the latest one. Call cancel to unsubscribe.
func (e *Engine) Subscribe() (<-chan *Snapshot, func()) {
	ch := make(chan *Snapshot, 1)

	e.subsMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.subsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.subsMu.Lock()
			delete(e.subs, id)
			e.subsMu.Unlock()
		})
	}
	return ch, cancel
}

func (e *Engine) publish(prev *Snapshot, cases []models.Transaction, v views) *Snapshot {
	snap := &Snapshot{
		Revision:         prev.Revision + 1,
		Cases:            cases,
		TotalCases:       len(cases),
		RiskDistribution: v.riskDistribution,
		GeoConcentration: v.geoConcentration,
		UpdatedAt:        e.now(),
	}
	e.current.Store(snap)

	e.subsMu.Lock()
	for _, ch := range e.subs {
		select {
		case ch <- snap:
		default:
			// drop the stale snapshot the reader has not picked up yet
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
	e.subsMu.Unlock()

	return snap
}
