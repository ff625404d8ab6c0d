package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/enterprise/fraud-dashboard/configs"
	"github.com/enterprise/fraud-dashboard/internal/models"
	"github.com/enterprise/fraud-dashboard/internal/queue"
)

var (
	ErrAlreadyStarted = errors.New("alert client already started")
	ErrMissingData    = errors.New("alert carries no case data")
)

// Ingester receives decoded cases in arrival order
type Ingester interface {
	Ingest(t models.Transaction)
}

// Client forwards fraud alerts from a channel subscription to an Ingester
type Client struct {
	channel queue.Channel
	sink    Ingester
	config  configs.StreamConfig
	metrics *Metrics

	// mu serialises deliveries with Stop
	mu      sync.Mutex
	started bool
	stopped bool
	sub     queue.Subscription
	cancel  context.CancelFunc
	done    chan struct{}
}

// Metrics tracks alert throughput
type Metrics struct {
	mu             sync.RWMutex
	ReceivedCount  int64     `json:"received"`
	IngestedCount  int64     `json:"ingested"`
	SkippedCount   int64     `json:"skipped"`
	ReadErrorCount int64     `json:"read_errors"`
	LastIngestedAt time.Time `json:"last_ingested_at"`
}

// NewClient creates a new alert stream client
func NewClient(channel queue.Channel, sink Ingester, config configs.StreamConfig) *Client {
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	return &Client{
		channel: channel,
		sink:    sink,
		config:  config,
		metrics: &Metrics{},
	}
}

// Start subscribes to the alert event. Deliveries begin only after the
// subscription is established.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return ErrAlreadyStarted
	}

	sub, err := c.channel.Subscribe(ctx, c.config.Event)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.config.Event, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.started = true
	c.sub = sub
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.receiveLoop(runCtx, sub, c.done)

	log.Info().Str("event", c.config.Event).Msg("Alert stream client started")
	return nil
}

// Stop closes the subscription. No alert is ingested after Stop returns.
func (c *Client) Stop() error {
	c.mu.Lock()
	if !c.started || c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	c.cancel()
	sub, done := c.sub, c.done
	c.mu.Unlock()

	err := sub.Close()
	<-done

	log.Info().Str("event", c.config.Event).Msg("Alert stream client stopped")
	return err
}

// receiveLoop reads deliveries one at a time until the subscription ends
func (c *Client) receiveLoop(ctx context.Context, sub queue.Subscription, done chan struct{}) {
	defer close(done)

	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrSubscriptionClosed) || ctx.Err() != nil {
				return
			}

			log.Error().Err(err).Str("event", c.config.Event).Msg("Failed to read alert")
			c.metrics.mu.Lock()
			c.metrics.ReadErrorCount++
			c.metrics.mu.Unlock()

			select {
			case <-time.After(c.config.PollInterval):
			case <-ctx.Done():
				return
			}
			continue
		}

		c.deliver(msg)
	}
}

func (c *Client) deliver(msg queue.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}

	c.metrics.mu.Lock()
	c.metrics.ReceivedCount++
	c.metrics.mu.Unlock()

	t, err := DecodeAlert(msg.Payload)
	if err != nil {
		log.Warn().
			Err(err).
			Str("message_id", msg.ID).
			Msg("Skipping undecodable alert")
		c.metrics.mu.Lock()
		c.metrics.SkippedCount++
		c.metrics.mu.Unlock()
		return
	}

	c.sink.Ingest(t)

	c.metrics.mu.Lock()
	c.metrics.IngestedCount++
	c.metrics.LastIngestedAt = time.Now()
	c.metrics.mu.Unlock()

	log.Debug().
		Str("message_id", msg.ID).
		Int64("case_id", t.ID).
		Str("client_id", t.ClientID).
		Str("risk_level", string(t.RiskLevel)).
		Msg("Alert ingested")
}

// DecodeAlert extracts the case carried by an alert body
func DecodeAlert(payload []byte) (models.Transaction, error) {
	var event models.AlertEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return models.Transaction{}, fmt.Errorf("invalid alert body: %w", err)
	}
	if event.Data == nil {
		return models.Transaction{}, ErrMissingData
	}
	return *event.Data, nil
}

// GetMetrics returns a copy of the client metrics
func (c *Client) GetMetrics() Metrics {
	c.metrics.mu.RLock()
	defer c.metrics.mu.RUnlock()
	return Metrics{
		ReceivedCount:  c.metrics.ReceivedCount,
		IngestedCount:  c.metrics.IngestedCount,
		SkippedCount:   c.metrics.SkippedCount,
		ReadErrorCount: c.metrics.ReadErrorCount,
		LastIngestedAt: c.metrics.LastIngestedAt,
	}
}
