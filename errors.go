package transport

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var (
	// ErrBaseURLRequired is returned when a Config has no base URL.
	ErrBaseURLRequired = errors.New("base URL must be set")

	// ErrTooManyRetries is returned by the cooperative executor once the
	// retry budget is spent. The last transport error is wrapped with it.
	ErrTooManyRetries = errors.New("too many retries")

	// ErrAlreadyMocked is returned when a mock is activated on an executor
	// that already has one.
	ErrAlreadyMocked = errors.New("executor is already mocked")

	// ErrNotMockable is returned for executors that do not expose a
	// replaceable request operation.
	ErrNotMockable = errors.New("executor does not support mock substitution")
)

// ServerError is returned for any 5xx response, whatever status was expected.
type ServerError struct {
	StatusCode int
	Body       []byte
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (HTTP %d): %s", e.StatusCode, errorMessage(e.Body))
}

// ClientError is returned when a response is neither a 5xx nor the expected
// status.
type ClientError struct {
	StatusCode int
	Body       []byte
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("client error (HTTP %d): %s", e.StatusCode, errorMessage(e.Body))
}

// ConnectionError is returned by the blocking executor when no response was
// obtained within the retry budget.
type ConnectionError struct {
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// errorMessage extracts the "error" field InfluxDB puts in JSON error bodies,
// falling back to the raw body.
func errorMessage(body []byte) string {
	if len(body) == 0 {
		return "(empty error body)"
	}

	if msg := jsoniter.Get(body, "error"); msg.ValueType() == jsoniter.StringValue {
		return msg.ToString()
	}

	return string(body)
}
