package alidayu

import "sync"

var (
	sharedMu     sync.Mutex
	sharedClient *Client
)

// Shared returns the process-wide client, creating it from config on the
// first successful call. Later calls return the existing client and ignore
// config. A failed first call leaves the shared client unset.
func Shared(config *ClientConfig, opts ...Option) (*Client, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedClient != nil {
		return sharedClient, nil
	}

	c, err := NewClient(config, opts...)
	if err != nil {
		return nil, err
	}
	sharedClient = c
	return c, nil
}

// ReplaceShared installs c as the process-wide client and returns a function
// restoring the previous one. Passing nil clears it.
func ReplaceShared(c *Client) (restore func()) {
	sharedMu.Lock()
	prev := sharedClient
	sharedClient = c
	sharedMu.Unlock()

	return func() {
		sharedMu.Lock()
		sharedClient = prev
		sharedMu.Unlock()
	}
}
