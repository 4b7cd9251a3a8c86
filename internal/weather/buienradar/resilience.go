package buienradar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// RetryConfig controls the bounded, fixed-delay retry of a feed request.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	Delay      time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client *http.Client
	Retry  RetryConfig
	// OnRetry, when set, is called before sleeping ahead of the next attempt.
	OnRetry func(attempt int, err error)
}

// StatusError carries the HTTP status of a failed request. Code 0 means the
// server was never reached. CircuitOpen marks a request refused by the
// breaker; Code is then the status of the last attempt that got through.
type StatusError struct {
	Code        int
	Err         error
	CircuitOpen bool
}

func (e *StatusError) Error() string {
	prefix := ""
	if e.CircuitOpen {
		prefix = "circuit open, last failure: "
	}
	if e.Code == 0 {
		return fmt.Sprintf("%sweather feed unreachable: %v", prefix, e.Err)
	}
	return fmt.Sprintf("%sweather feed returned status %d", prefix, e.Code)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

var (
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid retry configuration")
)

// StatusCode extracts the HTTP status from a fetch error; 0 for transport failures.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// feedBreaker wraps the circuit breaker and remembers the last real failure,
// so a refused request reports the status the feed actually returned.
type feedBreaker struct {
	cb *gobreaker.CircuitBreaker

	mu   sync.Mutex
	last *StatusError
}

func (b *feedBreaker) record(err *StatusError) {
	b.mu.Lock()
	b.last = err
	b.mu.Unlock()
}

// refused builds the error for a request the breaker did not let through.
func (b *feedBreaker) refused(cause error) *StatusError {
	b.mu.Lock()
	last := b.last
	b.mu.Unlock()

	if last == nil {
		return &StatusError{Code: http.StatusServiceUnavailable, Err: fmt.Errorf("%w: %v", errCircuitOpen, cause), CircuitOpen: true}
	}
	return &StatusError{Code: last.Code, Err: fmt.Errorf("%w: %v", errCircuitOpen, last.Err), CircuitOpen: true}
}

// doRequestWithResilience executes the request, retrying every failure up to
// MaxRetries times with a fixed delay. Each attempt runs through the circuit
// breaker; an open circuit fails immediately without retrying.
func doRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	breaker *feedBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Retry.MaxRetries < 0 || cfg.Retry.Delay < 0 {
		return nil, errInvalidConfig
	}

	var attempt int

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)

		result, err := breaker.cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				se := &StatusError{Err: execErr}
				breaker.record(se)
				return nil, se
			}

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				resp.Body.Close()
				se := &StatusError{Code: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
				breaker.record(se)
				return nil, se
			}

			breaker.record(nil)
			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, breaker.refused(err)
		}

		if attempt >= cfg.Retry.MaxRetries {
			return nil, err
		}
		attempt++

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		timer := time.NewTimer(cfg.Retry.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
