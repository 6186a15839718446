package domain

import "context"

// ProcessorPort transforms one raw inbound payload into an outbound envelope
type ProcessorPort interface {
	Process(ctx context.Context, raw []byte) (OutboundEnvelope, error)
}

// ConsumerPort polls bounded batches from the inbound channel
type ConsumerPort interface {
	// Poll blocks up to the configured window and returns at most the
	// configured batch size of messages, in received order
	Poll(ctx context.Context) ([]Message, error)

	// Mark records a message as handled so it is not redelivered
	Mark(m Message)

	Close() error
}

// ProducerPort publishes outbound payloads keyed for partition affinity
type ProducerPort interface {
	Publish(ctx context.Context, key string, value []byte) error
	Close() error
}

// RunnerPort drives the ingest/egress loop until ctx is cancelled
type RunnerPort interface {
	Run(ctx context.Context) error
}
