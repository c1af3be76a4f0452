package alidayu

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RawResponse is the undecoded HTTP reply
type RawResponse struct {
	StatusCode int
	Body       []byte
}

// Transport posts a form to a URL. Implementations own connection handling,
// timeouts and any retry policy.
type Transport interface {
	PostForm(ctx context.Context, url string, form url.Values) (*RawResponse, error)
}

// TransportFunc adapts a function to the Transport interface
type TransportFunc func(ctx context.Context, url string, form url.Values) (*RawResponse, error)

// PostForm calls f
func (f TransportFunc) PostForm(ctx context.Context, url string, form url.Values) (*RawResponse, error) {
	return f(ctx, url, form)
}

// HTTPTransport is the default Transport, backed by net/http.
// Connection failures are retried up to RetryCount attempts in total with
// exponential backoff; HTTP responses of any status are returned as they are.
type HTTPTransport struct {
	client     *http.Client
	retryCount int
}

// NewHTTPTransport creates a transport with the given timeout and attempt count
func NewHTTPTransport(timeout time.Duration, retryCount int) *HTTPTransport {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return NewHTTPTransportWithClient(&http.Client{Timeout: timeout}, retryCount)
}

// NewHTTPTransportWithClient creates a transport with a custom HTTP client
func NewHTTPTransportWithClient(httpClient *http.Client, retryCount int) *HTTPTransport {
	if retryCount < 1 {
		retryCount = 1
	}
	return &HTTPTransport{client: httpClient, retryCount: retryCount}
}

// PostForm sends form as application/x-www-form-urlencoded
func (t *HTTPTransport) PostForm(ctx context.Context, endpoint string, form url.Values) (*RawResponse, error) {
	encoded := form.Encode()

	var result *RawResponse
	attempt := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(encoded))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")

		resp, err := t.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		result = &RawResponse{StatusCode: resp.StatusCode, Body: body}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(t.retryCount-1)),
		ctx,
	)
	if err := backoff.Retry(attempt, policy); err != nil {
		return nil, err
	}

	return result, nil
}
