package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	perr "classrouter/internal/platform/errors"
	"classrouter/internal/services/classifier/domain"
)

// fakeConsumer replays scripted poll results and records marks
type fakeConsumer struct {
	mu      sync.Mutex
	polls   []pollResult
	next    int
	marked  []domain.Message
	closed  bool
	cancels context.CancelFunc // fired once the script is exhausted
}

type pollResult struct {
	batch []domain.Message
	err   error
}

func (f *fakeConsumer) Poll(ctx context.Context) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.next >= len(f.polls) {
		if f.cancels != nil {
			f.cancels()
		}
		return nil, ctx.Err()
	}
	r := f.polls[f.next]
	f.next++
	return r.batch, r.err
}

func (f *fakeConsumer) Mark(m domain.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, m)
}

func (f *fakeConsumer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// fakeProducer records published payloads
type fakeProducer struct {
	mu        sync.Mutex
	published []publishCall
	err       error
	closed    bool
}

type publishCall struct {
	key   string
	value []byte
}

func (f *fakeProducer) Publish(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishCall{key: key, value: value})
	return nil
}

func (f *fakeProducer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// fakeProcessor echoes the payload's docId, failing on a scripted value
type fakeProcessor struct {
	failDocID string
	failErr   error
}

func (f *fakeProcessor) Process(_ context.Context, raw []byte) (domain.OutboundEnvelope, error) {
	var in domain.InboundEnvelope
	if err := json.Unmarshal(raw, &in); err != nil {
		return domain.OutboundEnvelope{}, perr.Wrap(err, perr.ErrorCodeJSON, "invalid JSON in message")
	}
	if in.DocID == f.failDocID {
		return domain.OutboundEnvelope{}, f.failErr
	}
	return domain.OutboundEnvelope{DocID: in.DocID, Text: in.Text}, nil
}

func msg(docID string, offset int64) domain.Message {
	raw, _ := json.Marshal(domain.InboundEnvelope{DocID: docID, Text: "LEASE"})
	return domain.Message{Value: raw, Topic: "text-extraction", Offset: offset}
}

func testService(consumer *fakeConsumer, producer *fakeProducer, proc domain.ProcessorPort) *Service {
	return New(Openers{
		Consumer:  func() (domain.ConsumerPort, error) { return consumer, nil },
		Producer:  func() (domain.ProducerPort, error) { return producer, nil },
		Processor: func() (domain.ProcessorPort, error) { return proc, nil },
	}, Config{Backoff: time.Millisecond})
}

func TestService_Lifecycle(t *testing.T) {
	consumer := &fakeConsumer{}
	producer := &fakeProducer{}
	svc := testService(consumer, producer, &fakeProcessor{})

	if svc.State() != StateUninitialized {
		t.Fatalf("initial state = %s", svc.State())
	}

	ctx, cancel := context.WithCancel(context.Background())
	consumer.cancels = cancel

	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if svc.State() != StateInitializing {
		t.Fatalf("state after init = %s", svc.State())
	}

	if err := svc.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if svc.State() != StateStopped {
		t.Fatalf("state after run = %s", svc.State())
	}
	if !consumer.closed || !producer.closed {
		t.Fatalf("connections must be released on exit (consumer=%v producer=%v)",
			consumer.closed, producer.closed)
	}
}

func TestService_InitializeRejectsWrongState(t *testing.T) {
	svc := testService(&fakeConsumer{}, &fakeProducer{}, &fakeProcessor{})
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := svc.Initialize(context.Background()); perr.CodeOf(err) != perr.ErrorCodeInvalidArgument {
		t.Fatalf("second Initialize should be rejected, got %v", err)
	}
}

func TestService_RunRequiresInitialize(t *testing.T) {
	svc := testService(&fakeConsumer{}, &fakeProducer{}, &fakeProcessor{})
	if err := svc.Run(context.Background()); perr.CodeOf(err) != perr.ErrorCodeInvalidArgument {
		t.Fatalf("Run before Initialize should be rejected, got %v", err)
	}
}

func TestService_InitializeFailureReleasesAndFails(t *testing.T) {
	consumer := &fakeConsumer{}
	svc := New(Openers{
		Consumer: func() (domain.ConsumerPort, error) { return consumer, nil },
		Producer: func() (domain.ProducerPort, error) {
			return nil, perr.Unavailablef("broker unreachable")
		},
		Processor: func() (domain.ProcessorPort, error) { return &fakeProcessor{}, nil },
	}, Config{})

	err := svc.Initialize(context.Background())
	if perr.CodeOf(err) != perr.ErrorCodeConfig {
		t.Fatalf("expected config error, got %v", err)
	}
	if svc.State() != StateFailed {
		t.Fatalf("state = %s, want failed", svc.State())
	}
	if !consumer.closed {
		t.Fatalf("partially acquired consumer must be released")
	}
}

func TestService_PublishesBatchInOrder(t *testing.T) {
	consumer := &fakeConsumer{polls: []pollResult{
		{batch: []domain.Message{msg("doc-1", 1), msg("doc-2", 2)}},
	}}
	producer := &fakeProducer{}
	svc := testService(consumer, producer, &fakeProcessor{})

	ctx, cancel := context.WithCancel(context.Background())
	consumer.cancels = cancel

	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := svc.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(producer.published) != 2 {
		t.Fatalf("published %d messages, want 2", len(producer.published))
	}
	if producer.published[0].key != "doc-1" || producer.published[1].key != "doc-2" {
		t.Fatalf("publish order = %v", producer.published)
	}
	if len(consumer.marked) != 2 {
		t.Fatalf("marked %d messages, want 2", len(consumer.marked))
	}
}

func TestService_BadMessageIsSkippedNotFatal(t *testing.T) {
	consumer := &fakeConsumer{polls: []pollResult{
		{batch: []domain.Message{msg("bad", 1), msg("doc-2", 2)}},
	}}
	producer := &fakeProducer{}
	proc := &fakeProcessor{failDocID: "bad", failErr: perr.Validationf("missing field")}
	svc := testService(consumer, producer, proc)

	ctx, cancel := context.WithCancel(context.Background())
	consumer.cancels = cancel

	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := svc.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(producer.published) != 1 || producer.published[0].key != "doc-2" {
		t.Fatalf("published = %v, want only doc-2", producer.published)
	}
	// the failed message is still marked so it is never redelivered
	if len(consumer.marked) != 2 {
		t.Fatalf("marked %d messages, want 2", len(consumer.marked))
	}
}

func TestService_BacksOffOnTransientFailure(t *testing.T) {
	consumer := &fakeConsumer{polls: []pollResult{
		{err: perr.Unavailablef("broker gone")},
		{batch: []domain.Message{msg("doc-1", 1)}},
	}}
	producer := &fakeProducer{}
	svc := testService(consumer, producer, &fakeProcessor{})

	var slept []time.Duration
	svc.sleep = func(d time.Duration) { slept = append(slept, d) }

	ctx, cancel := context.WithCancel(context.Background())
	consumer.cancels = cancel

	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := svc.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(slept) != 1 || slept[0] != time.Millisecond {
		t.Fatalf("slept = %v, want one backoff", slept)
	}
	// the loop recovered and processed the next poll
	if len(producer.published) != 1 {
		t.Fatalf("published = %v, want doc-1 after recovery", producer.published)
	}
}

func TestService_NoBackoffOnPermanentProcessFailure(t *testing.T) {
	consumer := &fakeConsumer{polls: []pollResult{
		{batch: []domain.Message{msg("bad", 1)}},
	}}
	proc := &fakeProcessor{failDocID: "bad", failErr: perr.JSONErrf("garbage payload")}
	svc := testService(consumer, &fakeProducer{}, proc)

	var slept int
	svc.sleep = func(time.Duration) { slept++ }

	ctx, cancel := context.WithCancel(context.Background())
	consumer.cancels = cancel

	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := svc.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if slept != 0 {
		t.Fatalf("permanent failure must not trigger backoff, slept %d times", slept)
	}
}

func TestService_StopDrainsAndStops(t *testing.T) {
	release := make(chan struct{})
	// Poll parks until Stop cancels the loop context
	consumer := &blockingPollConsumer{inner: &fakeConsumer{}, gate: release}
	svc := New(Openers{
		Consumer:  func() (domain.ConsumerPort, error) { return consumer, nil },
		Producer:  func() (domain.ProducerPort, error) { return &fakeProducer{}, nil },
		Processor: func() (domain.ProcessorPort, error) { return &fakeProcessor{}, nil },
	}, Config{})

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- svc.Run(context.Background()) }()

	<-release // Run reached the first Poll
	svc.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after Stop")
	}
	if svc.State() != StateStopped {
		t.Fatalf("state = %s, want stopped", svc.State())
	}
}

// blockingPollConsumer signals when Poll is entered, then blocks on ctx
type blockingPollConsumer struct {
	inner *fakeConsumer
	gate  chan struct{}
	once  sync.Once
}

func (b *blockingPollConsumer) Poll(ctx context.Context) ([]domain.Message, error) {
	b.once.Do(func() { close(b.gate) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingPollConsumer) Mark(m domain.Message) { b.inner.Mark(m) }
func (b *blockingPollConsumer) Close() error          { return b.inner.Close() }

func TestState_String(t *testing.T) {
	cases := map[State]string{
		StateUninitialized: "uninitialized",
		StateInitializing:  "initializing",
		StateRunning:       "running",
		StateDraining:      "draining",
		StateStopped:       "stopped",
		StateFailed:        "failed",
		State(42):          "unknown",
	}
	for st, want := range cases {
		if got := st.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", st, got, want)
		}
	}
}
