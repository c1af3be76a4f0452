package alidayu

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrMissingCredentials    = errors.New("app_key or app_secret missing")
	ErrUnsupportedSignMethod = errors.New("unsupported sign method")
	ErrUnsupportedFormat     = errors.New("unsupported format")
	ErrReservedParam         = errors.New("parameter collides with a reserved envelope key")
)

// ConfigurationError is returned before any I/O when the client or the call
// is misconfigured. It wraps one of the Err* sentinels above.
type ConfigurationError struct {
	Err    error
	Detail string
}

func configErrorf(err error, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Err: err, Detail: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	if e.Detail == "" {
		return "alidayu: configuration: " + e.Err.Error()
	}
	return "alidayu: configuration: " + e.Err.Error() + ": " + e.Detail
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// TransportError reports a connection failure or a non-200 response.
// The response body is discarded.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("alidayu: transport: POST %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("alidayu: transport: POST %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError means the response body could not be parsed in the configured format
type DecodeError struct {
	Format Format
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("alidayu: decode %s response: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// APIError is an application error reported by the gateway inside a well
// formed error_response envelope.
type APIError struct {
	Code    int
	Message string

	Msg     string
	SubCode string
	SubMsg  string
}

func newAPIError(code int, msg, subCode, subMsg string) *APIError {
	message := msg
	if subCode != "" {
		message += "-" + subCode
	}
	if subMsg != "" {
		message += "-" + subMsg
	}
	return &APIError{
		Code:    code,
		Message: message,
		Msg:     msg,
		SubCode: subCode,
		SubMsg:  subMsg,
	}
}

func (e *APIError) Error() string {
	return e.Message
}

// String includes the numeric code, which Error omits
func (e *APIError) String() string {
	return "alidayu: api error " + strconv.Itoa(e.Code) + ": " + e.Message
}

// IsAPIError unwraps err into an *APIError if it is one
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Outcome labels, one per result kind of Execute
const (
	OutcomeSuccess       = "success"
	OutcomeConfiguration = "configuration_error"
	OutcomeTransport     = "transport_error"
	OutcomeDecode        = "decode_error"
	OutcomeAPI           = "api_error"
	OutcomeOther         = "error"
)

// Classify maps an Execute error to its outcome label
func Classify(err error) string {
	var (
		cfgErr       *ConfigurationError
		transportErr *TransportError
		decodeErr    *DecodeError
		apiErr       *APIError
	)
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &cfgErr):
		return OutcomeConfiguration
	case errors.As(err, &transportErr):
		return OutcomeTransport
	case errors.As(err, &decodeErr):
		return OutcomeDecode
	case errors.As(err, &apiErr):
		return OutcomeAPI
	}
	return OutcomeOther
}
