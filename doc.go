// Package transport provides the HTTP request layer of an InfluxDB client.
//
// An [Executor] sends authenticated requests to paths below a base URL,
// retries requests that got no response, and maps the status code of the
// response to success, [*ServerError] or [*ClientError]. Two executors
// implement it:
//
//   - [BlockingExecutor] wraps [github.com/go-resty/resty/v2] and blocks the
//     calling goroutine for the whole round trip.
//   - [CooperativeExecutor] wraps [github.com/valyala/fasthttp] and waits on
//     a channel, so large numbers of calls can be in flight at once.
//
// # Basic Usage
//
//	cfg := transport.NewConfig("http://localhost:8086",
//	    transport.WithBasicAuth("admin", "secret"),
//	    transport.WithRetries(5),
//	    transport.WithDatabase("telemetry"),
//	)
//
//	exec, err := transport.NewBlockingExecutor(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Close()
//
//	resp, err := exec.Request(ctx, "query",
//	    transport.WithParams(map[string]string{"q": "SHOW DATABASES"}),
//	)
//
// # Configuration
//
// A [Config] is built with [NewConfig] and [Option] functions, or read from
// YAML with [LoadConfig]. Invalid option values are silently ignored and the
// default is retained; the config is validated when an executor is created.
// The database, the credentials and the default headers may be changed later
// and only affect requests started afterwards.
//
// # Retry Behaviour
//
// A call that gets no response is retried immediately, without backoff.
// With a retry budget of N the call makes at most N+1 attempts. A budget of
// zero retries until a response arrives or the context ends. The blocking
// executor only retries failures to connect and returns [*ConnectionError]
// once the budget is spent; the cooperative executor retries every transport
// error and returns an error wrapping [ErrTooManyRetries]. Supply a custom
// [RetryPolicy] via [WithRetryPolicy] to override either.
//
// The timeout bounds a single attempt, not the whole call.
//
// # Authentication
//
// The blocking executor sends the configured credentials as HTTP Basic
// authentication. The cooperative executor does not forward them; set an
// Authorization header instead.
//
// # Testing
//
// [ActivateMock] and [WithMock] swap an executor's request operation for a
// stub that records the call and returns a canned response
// (status 200, body [DefaultMockBody]) without touching the network.
//
// # Logging
//
// Implement [RequestLogger] and supply it via [WithRequestLogger], or adapt a
// logrus logger with [NewLogrusLogger]. The default [NoopLogger] discards all
// log output.
package transport
