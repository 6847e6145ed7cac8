package transport

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

const blockingExecutor = "blocking"

// BlockingExecutor issues requests through a single resty session kept for
// the executor's lifetime. Each call blocks the calling goroutine for the
// whole round trip, retries included.
//
// Only failures to connect are retried (see [DialFailurePolicy]); any other
// transport error is returned as is, wrapped with the method and URL.
// Compression is not applied by this executor.
//
// Thread Safety: all methods are safe for concurrent use. The underlying
// connection pool is shared between goroutines.
type BlockingExecutor struct {
	cfg     *Config
	options *ExecutorOptions
	client  *resty.Client
	metrics *metrics
	hooks   requestHook

	closeOnce sync.Once
}

var _ Executor = (*BlockingExecutor)(nil)

func NewBlockingExecutor(cfg *Config, opts ...ExecutorOption) (*BlockingExecutor, error) {
	options := newExecutorOptions(DialFailurePolicy)
	for _, opt := range opts {
		opt(options)
	}

	m, err := setup(cfg, options)
	if err != nil {
		return nil, err
	}

	s := cfg.snapshot()

	transport := &http.Transport{
		Proxy: proxyFunc(s),
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !s.verifyTLS, //nolint:gosec // opt-in through WithVerifyTLS(false)
		},
	}

	client := resty.New().
		SetTransport(transport).
		SetLogger(options.requestLogger).
		SetRetryCount(0).
		SetAllowGetMethodPayload(true)

	if s.timeout > 0 {
		client.SetTimeout(s.timeout)
	}

	return &BlockingExecutor{
		cfg:     cfg,
		options: options,
		client:  client,
		metrics: m,
	}, nil
}

func (e *BlockingExecutor) Config() *Config {
	return e.cfg
}

// Request sends a request to path, relative to the base URL.
func (e *BlockingExecutor) Request(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return dispatch(ctx, &e.hooks, path, opts, e.do)
}

func (e *BlockingExecutor) do(ctx context.Context, call Call) (*Response, error) {
	p, err := prepare(call, e.cfg.snapshot())
	if err != nil {
		return nil, err
	}

	r := retrier{
		retries: p.settings.retries,
		policy:  e.options.retryPolicy,
		onFailure: func(try int, err error) {
			e.metrics.retried(blockingExecutor)
			e.options.requestLogger.Debugf("%s %s: connection failed (attempt %d): %v", p.method, p.url, try, err)
		},
		exhausted: func(tries int, err error) error {
			return &ConnectionError{Attempts: tries, Err: err}
		},
	}

	resp, err := r.run(ctx, func(ctx context.Context) (*Response, error) {
		return e.attempt(ctx, p)
	})

	if err == nil {
		resp, err = classify(resp, p.expected)
	} else if _, ok := err.(*ConnectionError); !ok {
		err = errors.Wrapf(err, "%s %s", p.method, p.url)
	}

	e.metrics.observe(blockingExecutor, err)

	return resp, err
}

func (e *BlockingExecutor) attempt(ctx context.Context, p *prepared) (*Response, error) {
	req := e.client.R().
		SetContext(ctx).
		SetQueryParams(p.params).
		SetHeaders(p.headers)

	if p.settings.username != "" || p.settings.password != "" {
		req.SetBasicAuth(p.settings.username, p.settings.password)
	}

	if p.body != nil {
		req.SetBody(p.body)
	}

	resp, err := req.Execute(p.method, p.url)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
	}, nil
}

// Close releases idle connections held by the session. Call it once, after
// the last request.
func (e *BlockingExecutor) Close() error {
	e.closeOnce.Do(func() {
		e.client.GetClient().CloseIdleConnections()
	})

	return nil
}

func (e *BlockingExecutor) hook() *requestHook {
	return &e.hooks
}

// proxyFunc routes requests through the configured proxy for their scheme,
// falling back to the environment when none is configured.
func proxyFunc(s settings) func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		proxy := s.proxyFor(req.URL.Scheme)
		if proxy == "" {
			return http.ProxyFromEnvironment(req)
		}

		return url.Parse(proxy)
	}
}
