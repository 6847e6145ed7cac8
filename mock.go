package transport

import (
	"context"
	"sync"
)

// DefaultMockBody is the body returned by a [Mock] unless overridden.
const DefaultMockBody = `{"results":[{}]}`

type MockOption func(*Mock)

// WithMockStatus sets the status code of the canned response.
func WithMockStatus(status int) MockOption {
	return func(m *Mock) {
		m.status = status
	}
}

// WithMockBody sets the body of the canned response.
func WithMockBody(body []byte) MockOption {
	return func(m *Mock) {
		m.body = append([]byte(nil), body...)
	}
}

// Mock stands in for an executor's request operation while active. Every
// call is recorded and answered with the canned response; nothing reaches
// the network and the response is not classified.
//
// Only one mock can be active on an executor at a time.
//
//	m, err := transport.ActivateMock(executor)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer m.Restore()
type Mock struct {
	hook   *requestHook
	status int
	body   []byte

	mu    sync.Mutex
	last  Call
	calls int

	restoreOnce sync.Once
}

// ActivateMock replaces the request operation of e until Restore is called.
func ActivateMock(e Executor, opts ...MockOption) (*Mock, error) {
	target, ok := e.(mockable)
	if !ok {
		return nil, ErrNotMockable
	}

	m := &Mock{
		hook:   target.hook(),
		status: defaultExpectedStatus,
		body:   []byte(DefaultMockBody),
	}

	for _, opt := range opts {
		opt(m)
	}

	if err := m.hook.install(m.request); err != nil {
		return nil, err
	}

	return m, nil
}

// WithMock runs fn with a mock active on e. The original request operation
// is restored when fn returns or panics.
func WithMock(e Executor, fn func(m *Mock) error, opts ...MockOption) error {
	m, err := ActivateMock(e, opts...)
	if err != nil {
		return err
	}
	defer m.Restore()

	return fn(m)
}

// Restore puts the original request operation back. The recording stays
// readable afterwards. Extra calls are no-ops.
func (m *Mock) Restore() {
	m.restoreOnce.Do(m.hook.clear)
}

// LastCall returns the arguments of the most recent intercepted call.
func (m *Mock) LastCall() Call {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.last
}

// Calls returns how many calls were intercepted.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.calls
}

func (m *Mock) request(_ context.Context, call Call) (*Response, error) {
	m.mu.Lock()
	m.last = call
	m.calls++
	m.mu.Unlock()

	return &Response{
		StatusCode: m.status,
		Body:       append([]byte(nil), m.body...),
	}, nil
}
