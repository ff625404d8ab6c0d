package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog/log"

	"github.com/enterprise/fraud-dashboard/configs"
)

// KafkaChannel delivers alerts published to a Kafka topic. Every partition is
// read from the newest offset, so only live alerts are seen.
type KafkaChannel struct {
	consumer sarama.Consumer
	topic    string
}

// NewKafkaChannel connects a plain (group-less) consumer to the brokers
func NewKafkaChannel(cfg configs.KafkaConfig) (*KafkaChannel, error) {
	config := sarama.NewConfig()
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true
	config.Version = sarama.V3_0_0_0

	consumer, err := sarama.NewConsumer(cfg.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("Kafka channel initialized")

	return NewKafkaChannelFromConsumer(consumer, cfg.Topic), nil
}

// NewKafkaChannelFromConsumer wraps an existing consumer
func NewKafkaChannelFromConsumer(consumer sarama.Consumer, topic string) *KafkaChannel {
	return &KafkaChannel{consumer: consumer, topic: topic}
}

// Subscribe starts one partition consumer per partition of the topic
func (k *KafkaChannel) Subscribe(ctx context.Context, event string) (Subscription, error) {
	partitions, err := k.consumer.Partitions(k.topic)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions of %s: %w", k.topic, err)
	}

	sub := &kafkaSubscription{
		event:    event,
		messages: make(chan *sarama.ConsumerMessage),
		errs:     make(chan error),
		done:     make(chan struct{}),
	}

	for _, partition := range partitions {
		pc, err := k.consumer.ConsumePartition(k.topic, partition, sarama.OffsetNewest)
		if err != nil {
			_ = sub.Close()
			return nil, fmt.Errorf("failed to consume partition %d: %w", partition, err)
		}
		sub.partitions = append(sub.partitions, pc)
		sub.wg.Add(1)
		go sub.forward(pc)
	}

	log.Info().
		Str("topic", k.topic).
		Str("event", event).
		Int("partitions", len(partitions)).
		Msg("Subscribed to alert topic")

	return sub, nil
}

// Close closes the underlying consumer
func (k *KafkaChannel) Close() error {
	return k.consumer.Close()
}

type kafkaSubscription struct {
	event      string
	partitions []sarama.PartitionConsumer
	messages   chan *sarama.ConsumerMessage
	errs       chan error
	done       chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
}

// forward fans a partition into the subscription until the partition
// consumer's channels are closed.
func (s *kafkaSubscription) forward(pc sarama.PartitionConsumer) {
	defer s.wg.Done()

	msgs, errs := pc.Messages(), pc.Errors()
	for msgs != nil || errs != nil {
		select {
		case msg, ok := <-msgs:
			if !ok {
				msgs = nil
				continue
			}
			select {
			case s.messages <- msg:
			case <-s.done:
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			select {
			case s.errs <- err:
			case <-s.done:
			}
		}
	}
}

func (s *kafkaSubscription) Next(ctx context.Context) (Message, error) {
	select {
	case <-s.done:
		return Message{}, ErrSubscriptionClosed
	default:
	}

	select {
	case msg := <-s.messages:
		return Message{
			ID:      fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset),
			Event:   s.event,
			Payload: msg.Value,
		}, nil
	case err := <-s.errs:
		return Message{}, fmt.Errorf("kafka consumer error: %w", err)
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-s.done:
		return Message{}, ErrSubscriptionClosed
	}
}

func (s *kafkaSubscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		for _, pc := range s.partitions {
			pc.AsyncClose()
		}
		s.wg.Wait()
	})
	return nil
}
