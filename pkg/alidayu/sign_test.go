package alidayu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigningString(t *testing.T) {
	assert.Equal(t, "", SigningString(nil))
	assert.Equal(t, "a1b2", SigningString(map[string]string{"b": "2", "a": "1"}))

	// Byte order, not locale order: upper case sorts before lower case.
	assert.Equal(t, "B1a2", SigningString(map[string]string{"a": "2", "B": "1"}))
}

func TestSign_MD5(t *testing.T) {
	sig, err := Sign(map[string]string{"b": "2", "a": "1"}, "s", SignMD5)
	require.NoError(t, err)
	assert.Equal(t, "5EE29085AF57D942F21F1C5BA3C2A90A", sig)
}

func TestSign_HMAC(t *testing.T) {
	sig, err := Sign(map[string]string{"b": "2", "a": "1"}, "s", SignHMAC)
	require.NoError(t, err)
	assert.Equal(t, "AEF84DD220144363BE6E2E4E58BC68DE", sig)
}

func TestSign_OrderInvariant(t *testing.T) {
	a, err := Sign(map[string]string{"b": "2", "a": "1"}, "s", SignMD5)
	require.NoError(t, err)
	b, err := Sign(map[string]string{"a": "1", "b": "2"}, "s", SignMD5)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSign_EnvelopeVector(t *testing.T) {
	params := map[string]string{
		"app_key":     "k",
		"timestamp":   "2016-09-18 19:43:18",
		"format":      "json",
		"v":           "2.0",
		"sign_method": "md5",
		"method":      "alibaba.aliqin.fc.sms.num.send",
		"rec_num":     "13800000000",
	}

	sig, err := Sign(params, "s", SignMD5)
	require.NoError(t, err)
	assert.Equal(t, "5D24FB61EFEB1AD37C9D619702FB5CB4", sig)

	params["sign_method"] = "hmac"
	sig, err = Sign(params, "s", SignHMAC)
	require.NoError(t, err)
	assert.Equal(t, "32413BF0FEDE22278126E1EF7D34878D", sig)
}

func TestSign_IgnoresSignKey(t *testing.T) {
	params := map[string]string{"b": "2", "a": "1"}
	want, err := Sign(params, "s", SignMD5)
	require.NoError(t, err)

	params[ParamSign] = "whatever"
	got, err := Sign(params, "s", SignMD5)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSign_EmptyInputs(t *testing.T) {
	md5Sig, err := Sign(nil, "", SignMD5)
	require.NoError(t, err)
	assert.Equal(t, "D41D8CD98F00B204E9800998ECF8427E", md5Sig)

	hmacSig, err := Sign(nil, "", SignHMAC)
	require.NoError(t, err)
	assert.Equal(t, "74E6F7298A9C2D168935F58C001BAD88", hmacSig)
}

func TestSign_UnsupportedMethod(t *testing.T) {
	_, err := Sign(map[string]string{"a": "1"}, "s", SignMethod("sha1"))
	require.Error(t, err)

	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	assert.ErrorIs(t, err, ErrUnsupportedSignMethod)
}

func TestVerify(t *testing.T) {
	params := map[string]string{"b": "2", "a": "1"}

	ok, err := Verify(params, "s", SignMD5, "5EE29085AF57D942F21F1C5BA3C2A90A")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify(params, "s", SignMD5, "5ee29085af57d942f21f1c5ba3c2a90a")
	require.NoError(t, err)
	assert.True(t, ok, "lower case signatures are accepted")

	ok, err = Verify(params, "other", SignMD5, "5EE29085AF57D942F21F1C5BA3C2A90A")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Verify(params, "s", SignMethod("rsa"), "x")
	assert.ErrorIs(t, err, ErrUnsupportedSignMethod)
}
