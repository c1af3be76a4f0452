// Package alidayu provides a client for the Alidayu (Taobao TOP) gateway API
package alidayu

import "time"

// Gateway endpoints
const (
	ProductionEndpoint = "http://gw.api.taobao.com/router/rest"
	SandboxEndpoint    = "http://gw.api.tbsandbox.com/router/rest"
)

// APIVersion is the protocol version sent in the v parameter of every call
const APIVersion = "2.0"

// TimestampLayout is the wire format of the timestamp parameter
const TimestampLayout = "2006-01-02 15:04:05"

// Public parameter names required on every call
const (
	ParamAppKey     = "app_key"
	ParamTimestamp  = "timestamp"
	ParamFormat     = "format"
	ParamVersion    = "v"
	ParamSignMethod = "sign_method"
	ParamMethod     = "method"
	ParamSign       = "sign"
)

// reservedParams are the envelope keys a request may not set itself
var reservedParams = map[string]struct{}{
	ParamAppKey:     {},
	ParamTimestamp:  {},
	ParamFormat:     {},
	ParamVersion:    {},
	ParamSignMethod: {},
	ParamMethod:     {},
	ParamSign:       {},
}

// IsReservedParam reports whether key is one of the envelope keys owned by the client
func IsReservedParam(key string) bool {
	_, ok := reservedParams[key]
	return ok
}

// Format is the response format requested from the gateway
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// Validate returns a *ConfigurationError for formats the parser cannot decode
func (f Format) Validate() error {
	switch f {
	case FormatJSON, FormatXML:
		return nil
	}
	return configErrorf(ErrUnsupportedFormat, "format %q", string(f))
}

// SignMethod selects the signature algorithm
type SignMethod string

const (
	SignMD5  SignMethod = "md5"
	SignHMAC SignMethod = "hmac"
)

// Validate returns a *ConfigurationError for unknown sign methods
func (m SignMethod) Validate() error {
	switch m {
	case SignMD5, SignHMAC:
		return nil
	}
	return configErrorf(ErrUnsupportedSignMethod, "sign method %q", string(m))
}

// Credentials identify the calling application. They never change after the
// client is constructed.
type Credentials struct {
	AppKey    string
	AppSecret string
	Sandbox   bool
}

// Validate checks that both keys are present
func (c Credentials) Validate() error {
	if c.AppKey == "" {
		return configErrorf(ErrMissingCredentials, "app_key is empty")
	}
	if c.AppSecret == "" {
		return configErrorf(ErrMissingCredentials, "app_secret is empty")
	}
	return nil
}

// ClientConfig holds the configuration for the gateway client
type ClientConfig struct {
	AppKey    string
	AppSecret string
	Sandbox   bool

	// Format and SignMethod are the initial values; both may be changed
	// later with SetFormat and SetSignMethod.
	Format     Format
	SignMethod SignMethod

	// Endpoint overrides. Empty values select the public gateway URLs.
	Endpoint        string
	SandboxEndpoint string

	// Location is used to render the timestamp parameter. Defaults to time.Local.
	Location *time.Location

	// Timeout and RetryCount configure the default HTTP transport only.
	Timeout    time.Duration
	RetryCount int
}

// DefaultConfig returns a default client configuration
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Format:     FormatJSON,
		SignMethod: SignMD5,
		Timeout:    30 * time.Second,
		RetryCount: 1,
	}
}

// ConfigFromMap builds a ClientConfig from a plain key/value bundle as
// supplied by an external configuration source. Recognised keys are
// app_key, app_secret and sandbox.
func ConfigFromMap(m map[string]string) *ClientConfig {
	cfg := DefaultConfig()
	cfg.AppKey = m["app_key"]
	cfg.AppSecret = m["app_secret"]
	switch m["sandbox"] {
	case "1", "true", "TRUE", "True", "yes", "on":
		cfg.Sandbox = true
	}
	return cfg
}

func (c *ClientConfig) credentials() Credentials {
	return Credentials{AppKey: c.AppKey, AppSecret: c.AppSecret, Sandbox: c.Sandbox}
}

// endpoint selects the gateway URL from the sandbox flag
func (c *ClientConfig) endpoint() string {
	if c.Sandbox {
		if c.SandboxEndpoint != "" {
			return c.SandboxEndpoint
		}
	} else if c.Endpoint != "" {
		return c.Endpoint
	}
	return Endpoint(c.Sandbox)
}

// Endpoint returns the public gateway URL for production or the sandbox
func Endpoint(sandbox bool) string {
	if sandbox {
		return SandboxEndpoint
	}
	return ProductionEndpoint
}
