// Package alidayu provides a client for the Alidayu (Taobao TOP) gateway API.
//
// Every call is a form-encoded POST to a single router endpoint. The remote
// operation is named by the method parameter, and every parameter set is
// signed with the application secret.
//
// # Authentication
//
// Each request carries the public parameters app_key, timestamp, format,
// v (always "2.0") and sign_method, plus a sign computed over all parameters
// sorted by key:
//   - md5: upper-case hex MD5 of secret + k1v1k2v2... + secret
//   - hmac: upper-case hex HMAC-MD5 of k1v1k2v2..., keyed by the secret
//
// # Basic Usage
//
//	client, err := alidayu.NewClient(&alidayu.ClientConfig{
//	    AppKey:    "your-app-key",
//	    AppSecret: "your-app-secret",
//	})
//
//	req := alidayu.NewCall("alibaba.aliqin.fc.sms.num.send", map[string]string{
//	    "sms_type":          "normal",
//	    "sms_free_sign_name": "Demo",
//	    "rec_num":           "13800000000",
//	    "sms_template_code": "SMS_0000001",
//	})
//	result, err := client.SetFormat(alidayu.FormatXML).Execute(ctx, req)
//
// # Error Handling
//
// Execute returns exactly one of four error types:
//
//	result, err := client.Execute(ctx, req)
//	var apiErr *alidayu.APIError
//	switch {
//	case errors.As(err, &apiErr):
//	    // The gateway rejected the call, apiErr.Code holds the gateway code
//	case errors.Is(err, alidayu.ErrUnsupportedSignMethod):
//	    // *ConfigurationError, nothing was sent
//	}
//
// *TransportError and *DecodeError cover network failures, non-200 replies
// and bodies that do not parse in the requested format.
package alidayu
