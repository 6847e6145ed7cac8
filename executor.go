package transport

import (
	"context"
	"net/http"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

const (
	defaultMethod         = http.MethodGet
	defaultExpectedStatus = http.StatusOK
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Executor issues requests against the InfluxDB HTTP API.
//
// Request fails with [*ServerError] for 5xx responses, [*ClientError] for any
// other unexpected status, and a connection error once the retry budget is
// spent without a response.
type Executor interface {
	Request(ctx context.Context, path string, opts ...RequestOption) (*Response, error)
	Config() *Config
	Close() error
}

// Call holds the arguments of one Request call, as given by the caller.
// Params and Headers stay nil when not supplied.
type Call struct {
	Path           string
	Method         string
	Params         map[string]string
	Body           any
	ExpectedStatus int
	Headers        map[string]string
}

type RequestOption func(*Call)

func WithMethod(method string) RequestOption {
	return func(c *Call) {
		if method != "" {
			c.Method = method
		}
	}
}

func WithParams(params map[string]string) RequestOption {
	return func(c *Call) {
		c.Params = params
	}
}

// WithBody sets the request body. []byte and string are sent as is; any
// other value is encoded as JSON.
func WithBody(body any) RequestOption {
	return func(c *Call) {
		c.Body = body
	}
}

func WithExpectedStatus(status int) RequestOption {
	return func(c *Call) {
		c.ExpectedStatus = status
	}
}

// WithRequestHeaders replaces the config's default headers for one call.
func WithRequestHeaders(headers map[string]string) RequestOption {
	return func(c *Call) {
		c.Headers = headers
	}
}

func newCall(path string, opts []RequestOption) Call {
	call := Call{
		Path:           path,
		Method:         defaultMethod,
		ExpectedStatus: defaultExpectedStatus,
	}

	for _, opt := range opts {
		opt(&call)
	}

	return call
}

// prepared is a Call resolved against a config snapshot.
type prepared struct {
	method   string
	url      string
	params   map[string]string
	body     []byte
	headers  map[string]string
	expected int
	settings settings
}

func prepare(call Call, s settings) (*prepared, error) {
	body, err := encodeBody(call.Body)
	if err != nil {
		return nil, err
	}

	headers := call.Headers
	if headers == nil {
		headers = s.headers
	}

	params := call.Params
	if params == nil {
		params = map[string]string{}
	}

	return &prepared{
		method:   call.Method,
		url:      s.baseURL + "/" + call.Path,
		params:   params,
		body:     body,
		headers:  copyMap(headers),
		expected: call.ExpectedStatus,
		settings: s,
	}, nil
}

func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request body")
		}
		return b, nil
	}
}

// RequestFunc is the replaceable request operation of an executor.
type RequestFunc func(ctx context.Context, call Call) (*Response, error)

// requestHook lets a mock stand in for an executor's request operation.
type requestHook struct {
	mu       sync.RWMutex
	override RequestFunc
}

func (h *requestHook) current() RequestFunc {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.override
}

func (h *requestHook) install(fn RequestFunc) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.override != nil {
		return ErrAlreadyMocked
	}

	h.override = fn
	return nil
}

func (h *requestHook) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.override = nil
}

// mockable is implemented by executors whose request operation can be
// swapped out by [ActivateMock].
type mockable interface {
	hook() *requestHook
}

// dispatch runs the installed override, if any, or the real operation.
func dispatch(ctx context.Context, h *requestHook, path string, opts []RequestOption, do RequestFunc) (*Response, error) {
	call := newCall(path, opts)

	if fn := h.current(); fn != nil {
		return fn(ctx, call)
	}

	return do(ctx, call)
}
