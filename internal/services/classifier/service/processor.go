// Package service implements the classifier message pipeline and the
// broker ingest/egress loop around it
package service

import (
	"context"
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"classrouter/internal/core/classify"
	"classrouter/internal/core/normalize"
	perr "classrouter/internal/platform/errors"
	"classrouter/internal/platform/logger"
	pstr "classrouter/internal/platform/strings"
	"classrouter/internal/services/classifier/domain"
)

// ProcessorConfig bounds the transformation pipeline
type ProcessorConfig struct {
	// MaxTextLength rejects oversized documents before classification
	MaxTextLength int
	// Timeout caps one classify dispatch; an expired attempt is abandoned
	Timeout time.Duration
	// Workers bounds the CPU pool classification is dispatched to
	Workers int
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Processor decodes inbound envelopes, classifies their text off the I/O
// path, and maps detector outcomes into outbound fields.
// Read-only after construction; safe for concurrent use
type Processor struct {
	router  *classify.Router
	mapping map[string]string // detector name -> output type, cached at init
	cfg     ProcessorConfig
	workers chan struct{}
}

// NewProcessor builds a Processor over an initialized router
func NewProcessor(router *classify.Router, cfg ProcessorConfig) *Processor {
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = 1_000_000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Processor{
		router:  router,
		mapping: router.OutputTypes(),
		cfg:     cfg,
		workers: make(chan struct{}, cfg.Workers),
	}
}

// Process transforms one raw inbound payload into an outbound envelope.
// Failures are surfaced to the caller; the processor never retries
func (p *Processor) Process(ctx context.Context, raw []byte) (domain.OutboundEnvelope, error) {
	started := time.Now()

	in, err := p.decode(raw)
	if err != nil {
		return domain.OutboundEnvelope{}, err
	}
	ctx = logger.WithDoc(ctx, in.DocID)
	log := logger.C(ctx)

	text := normalize.Text(in.Text)
	if n := utf8.RuneCountInString(text); n > p.cfg.MaxTextLength {
		return domain.OutboundEnvelope{}, perr.TooLargef(
			"text length %d exceeds maximum %d", n, p.cfg.MaxTextLength)
	}

	res, err := p.classify(ctx, text)
	if err != nil {
		return domain.OutboundEnvelope{}, err
	}

	byType := res.ByOutputType(p.mapping)
	out := domain.OutboundEnvelope{
		DocID:            in.DocID,
		Text:             in.Text,
		DocType:          pstr.Ptr(byType["docType"]),
		JurisdictionCode: pstr.Ptr(byType["jurisdiction"]),
	}

	meta := domain.Metadata{
		ProcessingMs:  float64(time.Since(started).Microseconds()) / 1000,
		DetectorsRun:  len(res.Succeeded) + len(res.Failed),
		Succeeded:     len(res.Succeeded),
		Failed:        len(res.Failed),
		HasDetections: res.HasDetections(),
	}
	log.Info().
		Str("doc_type", pstr.Deref(out.DocType)).
		Str("jurisdiction_code", pstr.Deref(out.JurisdictionCode)).
		Float64("processing_ms", meta.ProcessingMs).
		Int("detectors_run", meta.DetectorsRun).
		Int("detectors_failed", meta.Failed).
		Bool("has_detections", meta.HasDetections).
		Msg("message processed")

	return out, nil
}

// decode parses and validates the inbound envelope
func (p *Processor) decode(raw []byte) (domain.InboundEnvelope, error) {
	var in domain.InboundEnvelope
	if err := json.Unmarshal(raw, &in); err != nil {
		return domain.InboundEnvelope{}, perr.Wrap(err, perr.ErrorCodeJSON, "invalid JSON in message")
	}
	if err := validate.Struct(in); err != nil {
		return domain.InboundEnvelope{}, perr.Wrap(err, perr.ErrorCodeValidation, "invalid inbound envelope")
	}
	return in, nil
}

type classifyReply struct {
	res classify.Result
	err error
}

// classify dispatches the CPU-bound classification to the bounded worker
// pool so the caller's I/O loop keeps draining the broker. If the timeout
// elapses the attempt is abandoned and its slot is released when it finishes
func (p *Processor) classify(ctx context.Context, text string) (classify.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	select {
	case p.workers <- struct{}{}:
	case <-ctx.Done():
		return classify.Result{}, perr.Timeoutf("classification queue full after %s", p.cfg.Timeout)
	}

	ch := make(chan classifyReply, 1)
	go func() {
		defer func() { <-p.workers }()
		res, err := p.router.Classify(text)
		ch <- classifyReply{res: res, err: err}
	}()

	select {
	case rep := <-ch:
		return rep.res, rep.err
	case <-ctx.Done():
		return classify.Result{}, perr.Timeoutf("classification timed out after %s", p.cfg.Timeout)
	}
}
