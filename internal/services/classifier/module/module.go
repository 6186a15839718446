// Package module wires the classifier service from configuration
package module

import (
	"classrouter/internal/adapters/broker/kafka"
	"classrouter/internal/core/classify"
	"classrouter/internal/core/registry"
	perr "classrouter/internal/platform/errors"
	"classrouter/internal/services/classifier/domain"
	"classrouter/internal/services/classifier/service"
)

// Module bundles the constructed router and service for the entrypoint
type Module struct {
	router *classify.Router
	svc    *service.Service
}

// New loads the detector registry eagerly (a bad entry aborts startup) and
// builds the service with broker openers bound to the given options
func New(opts Options) (*Module, error) {
	reg, err := registry.Load()
	if err != nil {
		return nil, perr.WrapIf(err, perr.ErrorCodeConfig, "failed to load detector registry")
	}
	router := classify.New(reg)

	open := service.Openers{
		Processor: func() (domain.ProcessorPort, error) {
			return service.NewProcessor(router, opts.Processor), nil
		},
		Consumer: func() (domain.ConsumerPort, error) { return kafka.NewConsumer(opts.Kafka) },
		Producer: func() (domain.ProducerPort, error) { return kafka.NewProducer(opts.Kafka) },
	}

	return &Module{
		router: router,
		svc:    service.New(open, opts.Service),
	}, nil
}

// Router exposes the read-only classification router (ops surface)
func (m *Module) Router() *classify.Router { return m.router }

// Service exposes the ingest/egress service
func (m *Module) Service() *service.Service { return m.svc }
