package alidayu

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Sign computes the request signature over params. The sign key itself is
// never part of the signed set.
//
//	md5:  upper(hex(md5(secret + SigningString(params) + secret)))
//	hmac: upper(hex(hmac_md5(key=secret, SigningString(params))))
func Sign(params map[string]string, secret string, method SignMethod) (string, error) {
	if err := method.Validate(); err != nil {
		return "", err
	}

	payload := SigningString(withoutSign(params))

	var sum []byte
	switch method {
	case SignMD5:
		h := md5.New()
		h.Write([]byte(secret))
		h.Write([]byte(payload))
		h.Write([]byte(secret))
		sum = h.Sum(nil)
	case SignHMAC:
		h := hmac.New(md5.New, []byte(secret))
		h.Write([]byte(payload))
		sum = h.Sum(nil)
	}

	return strings.ToUpper(hex.EncodeToString(sum)), nil
}

// Verify reports whether signature matches params signed with secret.
// Comparison is case-insensitive and constant time.
func Verify(params map[string]string, secret string, method SignMethod, signature string) (bool, error) {
	expected, err := Sign(params, secret, method)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(expected), []byte(strings.ToUpper(signature))), nil
}

func withoutSign(params map[string]string) map[string]string {
	if _, ok := params[ParamSign]; !ok {
		return params
	}
	out := make(map[string]string, len(params)-1)
	for k, v := range params {
		if k != ParamSign {
			out[k] = v
		}
	}
	return out
}
