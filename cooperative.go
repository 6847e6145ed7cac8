package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpproxy"
)

const cooperativeExecutor = "cooperative"

// CooperativeExecutor issues requests through a fasthttp client. Each round
// trip runs on its own goroutine while the caller waits on a channel, so any
// number of calls can be outstanding at once and a cancelled context releases
// the caller immediately. [CooperativeExecutor.Go] returns the channel
// directly.
//
// Unlike [BlockingExecutor], every transport error is retried and logged, and
// a spent retry budget ends the call with [ErrTooManyRetries]. Credentials
// from the config are not sent: put an Authorization header in the default or
// per-call headers instead. Server certificates are always verified.
type CooperativeExecutor struct {
	cfg     *Config
	options *ExecutorOptions
	client  *fasthttp.Client
	metrics *metrics
	hooks   requestHook

	closeOnce sync.Once
}

var _ Executor = (*CooperativeExecutor)(nil)

func NewCooperativeExecutor(cfg *Config, opts ...ExecutorOption) (*CooperativeExecutor, error) {
	options := newExecutorOptions(AnyErrorPolicy)
	for _, opt := range opts {
		opt(options)
	}

	m, err := setup(cfg, options)
	if err != nil {
		return nil, err
	}

	s := cfg.snapshot()

	client := &fasthttp.Client{
		Name:                "influxdb-transport-go",
		ReadTimeout:         s.timeout,
		WriteTimeout:        s.timeout,
		MaxIdleConnDuration: 90 * time.Second,
		TLSConfig:           &tls.Config{InsecureSkipVerify: false},
		Dial:                dialFunc(s),

		// Attempts are counted by the executor, not by fasthttp.
		MaxIdemponentCallAttempts: 1,
	}

	return &CooperativeExecutor{
		cfg:     cfg,
		options: options,
		client:  client,
		metrics: m,
	}, nil
}

func (e *CooperativeExecutor) Config() *Config {
	return e.cfg
}

// Request sends a request to path, relative to the base URL, and waits for
// the outcome or for ctx to end. A context deadline also bounds each attempt
// on the wire; cancellation without a deadline only releases the caller.
func (e *CooperativeExecutor) Request(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return dispatch(ctx, &e.hooks, path, opts, e.do)
}

// Go starts a request and returns a channel that receives its single result.
func (e *CooperativeExecutor) Go(ctx context.Context, path string, opts ...RequestOption) <-chan Result {
	results := make(chan Result, 1)

	go func() {
		defer close(results)
		resp, err := e.Request(ctx, path, opts...)
		results <- Result{Response: resp, Err: err}
	}()

	return results
}

func (e *CooperativeExecutor) do(ctx context.Context, call Call) (*Response, error) {
	p, err := prepare(call, e.cfg.snapshot())
	if err != nil {
		return nil, err
	}

	d, err := newDescriptor(p)
	if err != nil {
		return nil, err
	}

	retries := p.settings.retries
	r := retrier{
		retries: retries,
		policy:  e.options.retryPolicy,
		onFailure: func(try int, err error) {
			e.metrics.retried(cooperativeExecutor)
			if retries != 0 {
				e.options.requestLogger.Infof("%s %s: attempt %d failed: %v", d.method, d.uri, try, err)
			} else {
				e.options.requestLogger.Warnf("%s %s: attempt %d failed, retrying without limit: %v", d.method, d.uri, try, err)
			}
		},
		exhausted: func(_ int, err error) error {
			return errors.Wrapf(ErrTooManyRetries, "%s %s: %v", d.method, d.uri, err)
		},
	}

	e.options.requestLogger.Debugf("firing %s %s", d.method, d.uri)

	resp, err := r.run(ctx, func(ctx context.Context) (*Response, error) {
		return e.roundTrip(ctx, d)
	})
	if err == nil {
		resp, err = classify(resp, p.expected)
	}

	e.metrics.observe(cooperativeExecutor, err)

	return resp, err
}

// descriptor is the fully built request, reused across attempts.
type descriptor struct {
	method  string
	uri     string
	headers map[string]string
	body    []byte
	timeout time.Duration
}

func newDescriptor(p *prepared) (*descriptor, error) {
	d := &descriptor{
		method:  p.method,
		uri:     p.url + "?" + encodeParams(p.params),
		headers: p.headers,
		body:    p.body,
		timeout: p.settings.timeout,
	}

	if p.settings.compression {
		d.headers["Content-Encoding"] = "gzip"
		d.headers["Accept-Encoding"] = "gzip"

		if d.body != nil {
			compressed, err := gzipBody(d.body)
			if err != nil {
				return nil, err
			}
			d.body = compressed
		}
	}

	return d, nil
}

func (d *descriptor) apply(req *fasthttp.Request) {
	req.Header.SetMethod(d.method)
	req.SetRequestURI(d.uri)

	for k, v := range d.headers {
		req.Header.Set(k, v)
	}

	if d.body != nil {
		req.SetBody(d.body)
	}
}

// roundTrip performs one attempt. The goroutine owns the pooled request and
// response objects, so they stay valid even if the caller gives up early.
// Without a timeout or a context deadline the goroutine keeps its connection
// until the server answers, even after the caller has been released.
func (e *CooperativeExecutor) roundTrip(ctx context.Context, d *descriptor) (*Response, error) {
	done := make(chan Result, 1)

	go func() {
		req := fasthttp.AcquireRequest()
		defer fasthttp.ReleaseRequest(req)
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseResponse(resp)

		d.apply(req)

		var err error
		if deadline, ok := attemptDeadline(ctx, d.timeout, time.Now()); ok {
			err = e.client.DoDeadline(req, resp, deadline)
		} else {
			err = e.client.Do(req, resp)
		}
		if err != nil {
			done <- Result{Err: err}
			return
		}

		body := resp.Body()
		if bytes.EqualFold(resp.Header.Peek(fasthttp.HeaderContentEncoding), []byte("gzip")) {
			if body, err = resp.BodyGunzip(); err != nil {
				done <- Result{Err: errors.Wrap(err, "decompressing response body")}
				return
			}
		}

		done <- Result{Response: &Response{
			StatusCode: resp.StatusCode(),
			Body:       append([]byte(nil), body...),
		}}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.Response, r.Err
	}
}

// attemptDeadline returns the earlier of now+timeout and the context
// deadline, if either is set.
func attemptDeadline(ctx context.Context, timeout time.Duration, now time.Time) (time.Time, bool) {
	deadline, ok := ctx.Deadline()
	if timeout > 0 {
		if limit := now.Add(timeout); !ok || limit.Before(deadline) {
			deadline, ok = limit, true
		}
	}

	return deadline, ok
}

// Close releases idle connections. Call it once, after the last request.
func (e *CooperativeExecutor) Close() error {
	e.closeOnce.Do(func() {
		e.client.CloseIdleConnections()
	})

	return nil
}

func (e *CooperativeExecutor) hook() *requestHook {
	return &e.hooks
}

// encodeParams percent-encodes params in key order.
func encodeParams(params map[string]string) string {
	values := make(url.Values, len(params))
	for k, v := range params {
		values.Set(k, v)
	}

	return values.Encode()
}

func gzipBody(body []byte) ([]byte, error) {
	var buf bytes.Buffer

	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return nil, errors.Wrap(err, "compressing request body")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "compressing request body")
	}

	return buf.Bytes(), nil
}

// dialFunc applies the timeout to dialing and routes through the proxy for
// the base URL's scheme when one is configured.
func dialFunc(s settings) fasthttp.DialFunc {
	scheme := "http"
	if u, err := url.Parse(s.baseURL); err == nil {
		scheme = u.Scheme
	}

	if proxy := s.proxyFor(scheme); proxy != "" {
		addr := proxyAddr(proxy)
		if s.timeout > 0 {
			return fasthttpproxy.FasthttpHTTPDialerTimeout(addr, s.timeout)
		}
		return fasthttpproxy.FasthttpHTTPDialer(addr)
	}

	if s.timeout > 0 {
		timeout := s.timeout
		return func(addr string) (net.Conn, error) {
			return fasthttp.DialTimeout(addr, timeout)
		}
	}

	return nil
}

// proxyAddr strips the scheme from a proxy URL, keeping any user info, which
// is the form fasthttpproxy expects.
func proxyAddr(proxy string) string {
	if !strings.Contains(proxy, "://") {
		return proxy
	}

	u, err := url.Parse(proxy)
	if err != nil {
		return proxy
	}

	if u.User != nil {
		return u.User.String() + "@" + u.Host
	}

	return u.Host
}
