package module

import (
	"time"

	"classrouter/internal/adapters/broker/kafka"
	"classrouter/internal/platform/config"
	"classrouter/internal/services/classifier/service"
)

// Options collects the module configuration
type Options struct {
	Kafka     kafka.Config
	Processor service.ProcessorConfig
	Service   service.Config
}

// FromConfig reads Options from the KAFKA_ and APP_ env scopes.
// Defaults mirror the documented deployment values
func FromConfig(root config.Conf) Options {
	k := root.Prefix("KAFKA_")
	app := root.Prefix("APP_")

	return Options{
		Kafka: kafka.Config{
			Brokers:        k.MayStrings("BOOTSTRAP_SERVERS", []string{"localhost:9092"}),
			InboundTopic:   k.MayString("INPUT_TOPIC", "text-extraction"),
			OutboundTopic:  k.MayString("OUTPUT_TOPIC", "llm-requests"),
			GroupID:        k.MayString("CONSUMER_GROUP_ID", "classifier-router"),
			ClientID:       k.MayString("CLIENT_ID", "classifier-router"),
			MaxPollRecords: k.MayInt("MAX_POLL_RECORDS", 100),
			PollTimeout:    k.MayDuration("POLL_TIMEOUT", time.Second),
			OffsetReset:    k.MayString("AUTO_OFFSET_RESET", "latest"),
			SASLUsername:   k.MayString("SASL_USERNAME", ""),
			SASLPassword:   k.MayString("SASL_PASSWORD", ""),
		},
		Processor: service.ProcessorConfig{
			MaxTextLength: app.MayInt("MAX_TEXT_LENGTH", 1_000_000),
			Timeout:       app.MayDuration("PROCESSING_TIMEOUT", 30*time.Second),
			Workers:       app.MayInt("CLASSIFY_WORKERS", 4),
		},
		Service: service.Config{
			Backoff: app.MayDuration("BROKER_BACKOFF", 5*time.Second),
		},
	}
}
