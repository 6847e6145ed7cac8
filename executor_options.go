package transport

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// ExecutorOption configures an executor.
type ExecutorOption func(*ExecutorOptions)

type ExecutorOptions struct {
	requestLogger RequestLogger
	retryPolicy   RetryPolicy
	registerer    prometheus.Registerer
}

func newExecutorOptions(defaultPolicy RetryPolicy) *ExecutorOptions {
	return &ExecutorOptions{
		requestLogger: &NoopLogger{},
		retryPolicy:   defaultPolicy,
	}
}

func WithRequestLogger(logger RequestLogger) ExecutorOption {
	return func(o *ExecutorOptions) {
		if logger != nil {
			o.requestLogger = logger
		}
	}
}

// WithRetryPolicy overrides which transport errors are retried.
func WithRetryPolicy(policy RetryPolicy) ExecutorOption {
	return func(o *ExecutorOptions) {
		if policy != nil {
			o.retryPolicy = policy
		}
	}
}

// WithMetrics registers request and retry counters with reg.
func WithMetrics(reg prometheus.Registerer) ExecutorOption {
	return func(o *ExecutorOptions) {
		o.registerer = reg
	}
}

func (o *ExecutorOptions) Validate() error {
	if o.requestLogger == nil {
		return errors.New("requestLogger must not be nil")
	}

	if o.retryPolicy == nil {
		return errors.New("retryPolicy must not be nil")
	}

	return nil
}

// setup validates cfg and opts and builds the metrics, if requested.
func setup(cfg *Config, opts *ExecutorOptions) (*metrics, error) {
	if cfg == nil {
		return nil, errors.New("config must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid options")
	}

	if opts.registerer == nil {
		return nil, nil
	}

	return newMetrics(opts.registerer)
}
