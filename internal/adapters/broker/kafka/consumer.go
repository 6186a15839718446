package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Shopify/sarama"

	perr "classrouter/internal/platform/errors"
	"classrouter/internal/platform/logger"
	"classrouter/internal/services/classifier/domain"
)

// Consumer bridges sarama's push-style consumer group to the service's
// poll-style ConsumerPort. ConsumeClaim feeds an unbuffered channel that
// Poll drains into bounded batches
type Consumer struct {
	cfg    Config
	group  sarama.ConsumerGroup
	msgs   chan *sarama.ConsumerMessage
	sess   atomic.Value // sarama.ConsumerGroupSession of the active generation
	cancel context.CancelFunc
	done   chan struct{}
}

// NewConsumer joins the consumer group and starts draining the inbound topic
func NewConsumer(cfg Config) (*Consumer, error) {
	cfg = cfg.withDefaults()
	sc, err := cfg.sarama()
	if err != nil {
		return nil, err
	}
	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		return nil, perr.FromBroker(err, "failed to join consumer group")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Consumer{
		cfg:    cfg,
		group:  group,
		msgs:   make(chan *sarama.ConsumerMessage),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.consume(ctx)
	return c, nil
}

// consume rejoins the group across rebalances until the consumer is closed
func (c *Consumer) consume(ctx context.Context) {
	defer close(c.done)
	log := logger.Named("kafka-consumer")
	for {
		// Consume returns on rebalance; a clean return rejoins immediately
		err := c.group.Consume(ctx, []string{c.cfg.InboundTopic}, c)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("consumer group session failed")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
		}
	}
}

// Setup implements sarama.ConsumerGroupHandler
func (c *Consumer) Setup(sess sarama.ConsumerGroupSession) error {
	c.sess.Store(sess)
	return nil
}

// Cleanup implements sarama.ConsumerGroupHandler
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim implements sarama.ConsumerGroupHandler
func (c *Consumer) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			select {
			case c.msgs <- msg:
			case <-sess.Context().Done():
				return nil
			}
		case <-sess.Context().Done():
			return nil
		}
	}
}

// Poll collects up to MaxPollRecords messages within the PollTimeout window.
// An empty batch after a full window is normal and returns (nil, nil)
func (c *Consumer) Poll(ctx context.Context) ([]domain.Message, error) {
	timer := time.NewTimer(c.cfg.PollTimeout)
	defer timer.Stop()

	var out []domain.Message
	for {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-timer.C:
			return out, nil
		case msg := <-c.msgs:
			out = append(out, domain.Message{
				Key:       msg.Key,
				Value:     msg.Value,
				Topic:     msg.Topic,
				Partition: msg.Partition,
				Offset:    msg.Offset,
			})
			if len(out) >= c.cfg.MaxPollRecords {
				return out, nil
			}
		}
	}
}

// Mark records a handled message against the active group generation.
// A stale session after a rebalance makes this a no-op upstream, which is
// acceptable under the at-most-once decision
func (c *Consumer) Mark(m domain.Message) {
	if sess, ok := c.sess.Load().(sarama.ConsumerGroupSession); ok && sess != nil {
		sess.MarkOffset(m.Topic, m.Partition, m.Offset+1, "")
	}
}

// Close leaves the group and releases the client
func (c *Consumer) Close() error {
	c.cancel()
	<-c.done
	if err := c.group.Close(); err != nil {
		return perr.FromBroker(err, "failed to close consumer group")
	}
	return nil
}
