package trace

import (
	"github.com/rs/zerolog"
	"github.com/viant/taintrace/config"
)

type Option func(*Trace)

// WithConfig sets trace configuration
func WithConfig(cfg *config.Config) Option {
	return func(t *Trace) {
		if cfg != nil {
			t.config = cfg
		}
	}
}

// WithLogger sets the trace logger; the configured level is applied on top of it
func WithLogger(logger zerolog.Logger) Option {
	return func(t *Trace) {
		t.logger = logger
	}
}

// WithGraphExporter registers a GraphExporter receiving the trace graph on Close.
func WithGraphExporter(exporter GraphExporter) Option {
	return func(t *Trace) {
		t.graphExporter = exporter
	}
}
