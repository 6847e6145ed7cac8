package transport

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess         = "success"
	outcomeClientError     = "client_error"
	outcomeServerError     = "server_error"
	outcomeConnectionError = "connection_error"
	outcomeError           = "error"
)

type metrics struct {
	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "influx_transport",
		Name:      "requests_total",
		Help:      "Requests issued by an executor, by outcome.",
	}, []string{"executor", "outcome"})

	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "influx_transport",
		Name:      "retries_total",
		Help:      "Failed attempts that were retried or ended a call.",
	}, []string{"executor"})

	var err error
	if requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if retries, err = register(reg, retries); err != nil {
		return nil, err
	}

	return &metrics{requests: requests, retries: retries}, nil
}

// register reuses an identical collector already present in reg, so several
// executors can share one registry.
func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, errors.Wrap(err, "registering transport metrics")
	}

	return c, nil
}

func (m *metrics) observe(executor string, err error) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(executor, outcomeOf(err)).Inc()
}

func (m *metrics) retried(executor string) {
	if m == nil {
		return
	}

	m.retries.WithLabelValues(executor).Inc()
}

func outcomeOf(err error) string {
	var (
		serverErr *ServerError
		clientErr *ClientError
		connErr   *ConnectionError
	)

	switch {
	case err == nil:
		return outcomeSuccess
	case errors.As(err, &serverErr):
		return outcomeServerError
	case errors.As(err, &clientErr):
		return outcomeClientError
	case errors.As(err, &connErr), errors.Is(err, ErrTooManyRetries):
		return outcomeConnectionError
	default:
		return outcomeError
	}
}
