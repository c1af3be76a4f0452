package alidayu

// Request describes one gateway call: the remote method name and the
// call-specific parameters. Params must not contain reserved envelope keys.
type Request interface {
	Method() string
	Params() map[string]string
}

// Call is a generic Request built from a method name and a parameter map
type Call struct {
	method string
	params map[string]string
}

var _ Request = (*Call)(nil)

// NewCall creates a Call. The params map is copied.
func NewCall(method string, params map[string]string) *Call {
	cp := make(map[string]string, len(params))
	for k, v := range params {
		cp[k] = v
	}
	return &Call{method: method, params: cp}
}

// Method returns the remote method name
func (c *Call) Method() string { return c.method }

// Params returns a copy of the call parameters
func (c *Call) Params() map[string]string {
	cp := make(map[string]string, len(c.params))
	for k, v := range c.params {
		cp[k] = v
	}
	return cp
}

// Set adds or replaces a parameter and returns the call for chaining
func (c *Call) Set(key, value string) *Call {
	c.params[key] = value
	return c
}
