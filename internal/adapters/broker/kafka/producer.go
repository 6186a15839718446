package kafka

import (
	"context"

	"github.com/Shopify/sarama"

	perr "classrouter/internal/platform/errors"
)

// Producer publishes outbound envelopes through a synchronous sarama producer
type Producer struct {
	cfg Config
	sp  sarama.SyncProducer
}

// NewProducer connects a sync producer for the outbound topic
func NewProducer(cfg Config) (*Producer, error) {
	cfg = cfg.withDefaults()
	sc, err := cfg.sarama()
	if err != nil {
		return nil, err
	}
	sp, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, perr.FromBroker(err, "failed to open producer")
	}
	return &Producer{cfg: cfg, sp: sp}, nil
}

// Publish sends value to the outbound topic keyed for partition affinity
func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: p.cfg.OutboundTopic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}
	if _, _, err := p.sp.SendMessage(msg); err != nil {
		return perr.FromBroker(err, "failed to send message")
	}
	return nil
}

// Close releases the producer
func (p *Producer) Close() error {
	if err := p.sp.Close(); err != nil {
		return perr.FromBroker(err, "failed to close producer")
	}
	return nil
}
