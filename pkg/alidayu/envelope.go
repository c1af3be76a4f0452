package alidayu

import (
	"net/url"
	"time"
)

// Snapshot is the per-call protocol configuration, captured once when the
// envelope is built.
type Snapshot struct {
	Format     Format
	SignMethod SignMethod
}

// Validate checks both settings
func (s Snapshot) Validate() error {
	if err := s.SignMethod.Validate(); err != nil {
		return err
	}
	return s.Format.Validate()
}

// Envelope is a complete, signed parameter set ready to be posted. It is
// immutable; any change means building a new one.
type Envelope struct {
	method string
	params map[string]string
	sign   string
}

// BuildEnvelope merges the public parameters, the method name and the
// request parameters, then signs the result. Request parameters that
// collide with reserved keys are rejected.
func BuildEnvelope(creds Credentials, req Request, snap Snapshot, now time.Time) (*Envelope, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	method := req.Method()
	if method == "" {
		return nil, configErrorf(ErrReservedParam, "empty method name")
	}

	callParams := req.Params()
	params := make(map[string]string, len(callParams)+6)
	params[ParamAppKey] = creds.AppKey
	params[ParamTimestamp] = now.Format(TimestampLayout)
	params[ParamFormat] = string(snap.Format)
	params[ParamVersion] = APIVersion
	params[ParamSignMethod] = string(snap.SignMethod)
	params[ParamMethod] = method

	for k, v := range callParams {
		if IsReservedParam(k) {
			return nil, configErrorf(ErrReservedParam, "%q in %s", k, method)
		}
		params[k] = v
	}

	sign, err := Sign(params, creds.AppSecret, snap.SignMethod)
	if err != nil {
		return nil, err
	}

	return &Envelope{method: method, params: params, sign: sign}, nil
}

// Method returns the remote method name
func (e *Envelope) Method() string { return e.method }

// Sign returns the computed signature
func (e *Envelope) Sign() string { return e.sign }

// Params returns a copy of the signed parameters, without sign
func (e *Envelope) Params() map[string]string {
	cp := make(map[string]string, len(e.params))
	for k, v := range e.params {
		cp[k] = v
	}
	return cp
}

// Form returns the form fields to post, sign included
func (e *Envelope) Form() url.Values {
	form := make(url.Values, len(e.params)+1)
	for k, v := range e.params {
		form.Set(k, v)
	}
	form.Set(ParamSign, e.sign)
	return form
}
