package alidayu

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

// CallRecord describes one finished Execute call
type CallRecord struct {
	Method     string
	Endpoint   string
	Format     Format
	SignMethod SignMethod
	StartedAt  time.Time
	Duration   time.Duration
	Err        error
}

// Observer is notified after every call. Observers must not block for long;
// they run on the calling goroutine.
type Observer interface {
	ObserveCall(ctx context.Context, rec *CallRecord)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(ctx context.Context, rec *CallRecord)

// ObserveCall calls f
func (f ObserverFunc) ObserveCall(ctx context.Context, rec *CallRecord) { f(ctx, rec) }

// Option configures a Client
type Option func(*Client)

// WithObserver registers an observer for call outcomes
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observers = append(c.observers, o)
	}
}

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithLocation overrides the time zone used for the timestamp parameter
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.location = loc
		}
	}
}

var errNoResponse = errors.New("transport returned no response")

// Client is an Alidayu gateway client. It is safe for concurrent use.
type Client struct {
	creds     Credentials
	endpoint  string
	location  *time.Location
	transport Transport
	now       func() time.Time
	observers []Observer

	mu         sync.RWMutex
	format     Format
	signMethod SignMethod
}

// NewClient creates a client using the default HTTP transport
func NewClient(config *ClientConfig, opts ...Option) (*Client, error) {
	return NewClientWithTransport(config, NewHTTPTransport(config.Timeout, config.RetryCount), opts...)
}

// NewClientWithHTTPClient creates a client using a custom HTTP client
func NewClientWithHTTPClient(config *ClientConfig, httpClient *http.Client, opts ...Option) (*Client, error) {
	return NewClientWithTransport(config, NewHTTPTransportWithClient(httpClient, config.RetryCount), opts...)
}

// NewClientWithTransport creates a client with a custom transport
func NewClientWithTransport(config *ClientConfig, transport Transport, opts ...Option) (*Client, error) {
	creds := config.credentials()
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	format := config.Format
	if format == "" {
		format = FormatJSON
	}
	signMethod := config.SignMethod
	if signMethod == "" {
		signMethod = SignMD5
	}
	location := config.Location
	if location == nil {
		location = time.Local
	}

	c := &Client{
		creds:      creds,
		endpoint:   config.endpoint(),
		location:   location,
		transport:  transport,
		now:        time.Now,
		format:     format,
		signMethod: signMethod,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// SetSignMethod changes the signature algorithm for subsequent calls.
// Unsupported values are reported by Execute.
func (c *Client) SetSignMethod(method SignMethod) *Client {
	c.mu.Lock()
	c.signMethod = method
	c.mu.Unlock()
	return c
}

// SetFormat changes the response format for subsequent calls.
// Unsupported values are reported by Execute.
func (c *Client) SetFormat(format Format) *Client {
	c.mu.Lock()
	c.format = format
	c.mu.Unlock()
	return c
}

// Snapshot returns the current format and sign method
func (c *Client) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{Format: c.format, SignMethod: c.signMethod}
}

// Endpoint returns the gateway URL this client posts to
func (c *Client) Endpoint() string { return c.endpoint }

// AppKey returns the application key
func (c *Client) AppKey() string { return c.creds.AppKey }

// Execute signs and sends req and parses the reply. The error, if any, is
// one of *ConfigurationError, *TransportError, *DecodeError or *APIError.
func (c *Client) Execute(ctx context.Context, req Request) (*Result, error) {
	snap := c.Snapshot()
	started := c.now()

	result, err := c.execute(ctx, req, snap, started)

	if len(c.observers) > 0 {
		rec := &CallRecord{
			Method:     req.Method(),
			Endpoint:   c.endpoint,
			Format:     snap.Format,
			SignMethod: snap.SignMethod,
			StartedAt:  started,
			Duration:   c.now().Sub(started),
			Err:        err,
		}
		for _, o := range c.observers {
			o.ObserveCall(ctx, rec)
		}
	}

	return result, err
}

func (c *Client) execute(ctx context.Context, req Request, snap Snapshot, now time.Time) (*Result, error) {
	env, err := BuildEnvelope(c.creds, req, snap, now.In(c.location))
	if err != nil {
		return nil, err
	}

	resp, err := c.transport.PostForm(ctx, c.endpoint, env.Form())
	if err != nil {
		return nil, &TransportError{URL: c.endpoint, Err: err}
	}
	if resp == nil {
		return nil, &TransportError{URL: c.endpoint, Err: errNoResponse}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{URL: c.endpoint, StatusCode: resp.StatusCode}
	}

	return ParseResponse(resp.Body, snap.Format)
}
