package transport

import (
	"context"
	"errors"
	"net"
)

// RetryPolicy reports whether a transport error means no response was
// obtained and the attempt may be repeated. Errors it rejects are returned
// to the caller straight away.
type RetryPolicy func(err error) bool

// DialFailurePolicy is the default policy of [BlockingExecutor]. It only
// retries failures to establish a connection: refused or reset dials, dial
// timeouts and name resolution failures.
func DialFailurePolicy(err error) bool {
	if err == nil {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}

	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// AnyErrorPolicy is the default policy of [CooperativeExecutor]. Every
// transport error is retried except cancellation of the caller's context.
func AnyErrorPolicy(err error) bool {
	if err == nil {
		return false
	}

	return !errors.Is(err, context.Canceled)
}

// retrier runs attempts until one returns a response.
//
// The counter rises by one per failed attempt. With a budget of N > 0 the
// call gives up once the counter exceeds N, so N+1 attempts are made in
// total. A budget of 0 keeps retrying for as long as the context allows.
// Retries are immediate.
type retrier struct {
	retries   int
	policy    RetryPolicy
	onFailure func(try int, err error)
	exhausted func(tries int, err error) error
}

func (r retrier) run(ctx context.Context, attempt func(ctx context.Context) (*Response, error)) (*Response, error) {
	tries := 0
	for {
		resp, err := attempt(ctx)
		if err == nil {
			return resp, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		if !r.policy(err) {
			return nil, err
		}

		tries++
		if r.onFailure != nil {
			r.onFailure(tries, err)
		}

		if r.retries != 0 && tries > r.retries {
			return nil, r.exhausted(tries, err)
		}
	}
}
