// Package kafka adapts Shopify/sarama consumer groups and producers to the
// classifier service broker ports
package kafka

import (
	"strings"
	"time"

	"github.com/Shopify/sarama"

	perr "classrouter/internal/platform/errors"
	pstr "classrouter/internal/platform/strings"
)

// Config carries the broker connection and channel settings
type Config struct {
	Brokers       []string
	InboundTopic  string
	OutboundTopic string
	GroupID       string
	ClientID      string

	// MaxPollRecords caps one Poll batch
	MaxPollRecords int
	// PollTimeout is the window one Poll waits for a batch to fill
	PollTimeout time.Duration
	// OffsetReset is "latest" or "earliest" for a new consumer group
	OffsetReset string

	// SASL/PLAIN passthrough; enabled when Username is non-empty
	SASLUsername string
	SASLPassword string
}

// withDefaults fills unset fields with the service defaults
func (c Config) withDefaults() Config {
	c.Brokers = pstr.IfEmpty(c.Brokers, []string{"localhost:9092"})
	if c.InboundTopic == "" {
		c.InboundTopic = "text-extraction"
	}
	if c.OutboundTopic == "" {
		c.OutboundTopic = "llm-requests"
	}
	if c.GroupID == "" {
		c.GroupID = "classifier-router"
	}
	if c.ClientID == "" {
		c.ClientID = "classifier-router"
	}
	if c.MaxPollRecords <= 0 {
		c.MaxPollRecords = 100
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = time.Second
	}
	if c.OffsetReset == "" {
		c.OffsetReset = "latest"
	}
	return c
}

// sarama builds the client configuration shared by consumer and producer
func (c Config) sarama() (*sarama.Config, error) {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_6_0_0
	sc.ClientID = c.ClientID

	switch strings.ToLower(c.OffsetReset) {
	case "latest":
		sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	case "earliest":
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	default:
		return nil, perr.Configf("invalid offset reset %q (want latest or earliest)", c.OffsetReset)
	}

	// producer keyed by docId; hash partitioning preserves per-document affinity
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Return.Successes = true

	if c.SASLUsername != "" {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		sc.Net.SASL.User = c.SASLUsername
		sc.Net.SASL.Password = c.SASLPassword
	}
	return sc, nil
}
