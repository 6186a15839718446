package errors

import (
	stderrs "errors"
	"net"

	"github.com/Shopify/sarama"
)

// IsBrokerTransient reports whether err is a Kafka-side failure where a
// bounded backoff and retry may succeed (broker restarts, leader elections,
// network blips). Permanent protocol errors return false
func IsBrokerTransient(err error) bool {
	if err == nil {
		return false
	}
	if stderrs.Is(err, sarama.ErrOutOfBrokers) || stderrs.Is(err, sarama.ErrNotConnected) {
		return true
	}
	var k sarama.KError
	if stderrs.As(err, &k) {
		switch k {
		case sarama.ErrLeaderNotAvailable,
			sarama.ErrNotLeaderForPartition,
			sarama.ErrRequestTimedOut,
			sarama.ErrNetworkException,
			sarama.ErrNotEnoughReplicas,
			sarama.ErrNotEnoughReplicasAfterAppend,
			sarama.ErrOffsetsLoadInProgress,
			sarama.ErrConsumerCoordinatorNotAvailable,
			sarama.ErrNotCoordinatorForConsumer,
			sarama.ErrRebalanceInProgress:
			return true
		}
		return false
	}
	var ne net.Error
	if stderrs.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// FromBroker wraps a broker client error, classifying transient causes as
// Unavailable so the ingest loop's Retryable check can drive its backoff
func FromBroker(err error, msg string) error {
	if err == nil {
		return nil
	}
	if IsBrokerTransient(err) {
		return Wrap(err, ErrorCodeUnavailable, msg)
	}
	return Wrap(err, ErrorCodeUnknown, msg)
}
