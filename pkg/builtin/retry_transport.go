package builtin

import (
	"crypto/tls"
	"errors"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// webFetchTransport wraps the default transport with connection pooling,
// modern TLS defaults, and bounded exponential-backoff retries for the
// WebFetch tool. Only idempotent methods (GET, HEAD, OPTIONS) are retried;
// a 5xx, 408, or 429 response is treated the same as a transport error.
type webFetchTransport struct {
	base        http.RoundTripper
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

func newWebFetchClient(timeout time.Duration) *http.Client {
	base := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS13,
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &webFetchTransport{
			base:        base,
			maxAttempts: 4,
			baseDelay:   200 * time.Millisecond,
			maxDelay:    5 * time.Second,
		},
	}
}

func (t *webFetchTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !isIdempotent(req.Method) {
		return t.base.RoundTrip(req)
	}

	var resp *http.Response
	var err error

	for attempt := 0; attempt < t.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(t.backoff(attempt)):
			case <-req.Context().Done():
				return nil, req.Context().Err()
			}
		}

		resp, err = t.base.RoundTrip(req)
		if err == nil && !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		if resp != nil {
			resp.Body.Close()
		}
		if err != nil && !retryableError(err) {
			return nil, err
		}
	}

	return resp, err
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, "":
		return true
	default:
		return false
	}
}

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || (code >= 500 && code < 600)
}

func retryableError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// backoff computes attempt N's delay as baseDelay*2^(N-1), capped at
// maxDelay, plus up to 20% jitter so a burst of retries from one caller
// doesn't re-collide on the same schedule.
func (t *webFetchTransport) backoff(attempt int) time.Duration {
	d := float64(t.baseDelay) * math.Pow(2, float64(attempt-1))
	if d > float64(t.maxDelay) {
		d = float64(t.maxDelay)
	}
	d += d * 0.2 * rand.Float64()
	return time.Duration(d)
}
