package service

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	perr "classrouter/internal/platform/errors"
	"classrouter/internal/platform/logger"
	"classrouter/internal/services/classifier/domain"
)

// State is the ingest/egress service lifecycle
type State int32

const (
	// StateUninitialized is the zero state before Initialize
	StateUninitialized State = iota
	// StateInitializing covers broker connection and pipeline construction
	StateInitializing
	// StateRunning covers the poll-process-publish loop
	StateRunning
	// StateDraining lets the in-flight batch finish before release
	StateDraining
	// StateStopped is terminal after a clean shutdown
	StateStopped
	// StateFailed is terminal after an initialization failure
	StateFailed
)

// String returns the state name for logs and probes
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Openers supplies the resources Initialize acquires. Injected so tests can
// run the loop against fakes without a broker
type Openers struct {
	Consumer  func() (domain.ConsumerPort, error)
	Producer  func() (domain.ProducerPort, error)
	Processor func() (domain.ProcessorPort, error)
}

// Config bounds the ingest/egress loop
type Config struct {
	// Backoff is the fixed pause after a transient broker failure
	Backoff time.Duration
}

// Service owns the broker connections and drives messages through the
// pipeline with per-message fault isolation
type Service struct {
	open Openers
	cfg  Config

	consumer domain.ConsumerPort
	producer domain.ProducerPort
	proc     domain.ProcessorPort

	state  atomic.Int32
	cancel context.CancelFunc

	// sleep is a seam for backoff tests
	sleep func(time.Duration)
}

// New builds an uninitialized Service
func New(open Openers, cfg Config) *Service {
	if cfg.Backoff <= 0 {
		cfg.Backoff = 5 * time.Second
	}
	return &Service{open: open, cfg: cfg, sleep: time.Sleep}
}

// State returns the current lifecycle state
func (s *Service) State() State { return State(s.state.Load()) }

func (s *Service) setState(st State) { s.state.Store(int32(st)) }

// Initialize opens the broker connections and builds the pipeline.
// On any failure whatever was partially acquired is released and the
// service lands in StateFailed; initialization is never retried here
func (s *Service) Initialize(ctx context.Context) error {
	if st := s.State(); st != StateUninitialized {
		return perr.InvalidArgf("initialize called in state %q", st)
	}
	s.setState(StateInitializing)
	log := logger.Named("classifier")
	log.Info().Msg("initializing classifier service")

	fail := func(err error, msg string) error {
		s.release(log)
		s.setState(StateFailed)
		return perr.Wrap(err, perr.ErrorCodeConfig, msg)
	}

	var err error
	if s.proc, err = s.open.Processor(); err != nil {
		return fail(err, "failed to initialize message processor")
	}
	if s.consumer, err = s.open.Consumer(); err != nil {
		return fail(err, "failed to open inbound connection")
	}
	if s.producer, err = s.open.Producer(); err != nil {
		return fail(err, "failed to open outbound connection")
	}

	log.Info().Msg("classifier service initialized")
	return nil
}

// Run executes the poll-process-publish loop until ctx is cancelled or Stop
// is called. Connections are released on every exit path
func (s *Service) Run(ctx context.Context) error {
	if st := s.State(); st != StateInitializing {
		return perr.InvalidArgf("run called in state %q", st)
	}
	ctx, s.cancel = context.WithCancel(ctx)
	defer s.cancel()

	log := logger.Named("classifier")
	s.setState(StateRunning)
	log.Info().Msg("starting message processing loop")

	defer func() {
		s.release(log)
		s.setState(StateStopped)
		log.Info().Msg("message processing loop stopped")
	}()

	for {
		if ctx.Err() != nil {
			s.setState(StateDraining)
			return nil
		}

		batch, err := s.consumer.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.setState(StateDraining)
				if len(batch) > 0 {
					s.processBatch(context.WithoutCancel(ctx), batch)
				}
				return nil
			}
			log.Error().Err(err).Msg("poll failed")
			if perr.Retryable(err) {
				s.sleep(s.cfg.Backoff)
			}
			continue
		}
		if len(batch) == 0 {
			continue
		}

		// the batch in flight always drains, even when shutdown begins mid-batch
		s.processBatch(context.WithoutCancel(ctx), batch)
	}
}

// Stop transitions the running loop into draining; the in-flight batch
// finishes before connections are released
func (s *Service) Stop() {
	if s.cancel != nil {
		s.setState(StateDraining)
		s.cancel()
	}
}

// processBatch dispatches each message in received order. One bad message is
// logged and skipped; it never aborts the batch
func (s *Service) processBatch(ctx context.Context, batch []domain.Message) {
	log := logger.Named("classifier")
	log.Debug().Int("batch_size", len(batch)).Msg("processing batch")

	for _, msg := range batch {
		mctx := logger.WithProc(ctx, uuid.NewString())
		if err := s.processOne(mctx, msg); err != nil {
			logger.C(mctx).Error().Err(err).
				Str("topic", msg.Topic).
				Int32("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("message skipped")
			if perr.Retryable(err) {
				s.sleep(s.cfg.Backoff)
			}
		}
		// at-most-once: a message that deterministically fails would loop
		// forever if left for redelivery, so handled means marked
		s.consumer.Mark(msg)
	}
}

// processOne classifies and republishes a single message
func (s *Service) processOne(ctx context.Context, msg domain.Message) error {
	out, err := s.proc.Process(ctx, msg.Value)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "failed to encode outbound envelope")
	}
	// keyed by docId to preserve per-document partition affinity downstream
	if err := s.producer.Publish(ctx, out.DocID, payload); err != nil {
		return perr.FromBroker(err, "failed to publish outbound envelope")
	}
	logger.C(ctx).Debug().Str("doc_id", out.DocID).Int64("offset", msg.Offset).
		Msg("message published")
	return nil
}

// release closes whatever connections are open; safe to call more than once
func (s *Service) release(log *logger.Logger) {
	if s.consumer != nil {
		if err := s.consumer.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close consumer")
		}
		s.consumer = nil
	}
	if s.producer != nil {
		if err := s.producer.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close producer")
		}
		s.producer = nil
	}
}
