package gatewaysim

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexbotov/alidayu/internal/log"
	"github.com/alexbotov/alidayu/pkg/alidayu"
)

const (
	testAppKey    = "sim-key"
	testAppSecret = "sim-secret"
)

var simNow = time.Date(2016, 9, 18, 19, 43, 18, 0, time.UTC)

func setupSimulator(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	sim := New(Config{
		Apps:     map[string]string{testAppKey: testAppSecret},
		MaxSkew:  10 * time.Minute,
		Location: time.UTC,
	}, log.Nop())
	sim.now = func() time.Time { return simNow }
	sim.RegisterDefaults()

	server := httptest.NewServer(sim.Router())
	t.Cleanup(server.Close)
	return sim, server
}

func newClient(t *testing.T, endpoint, secret string) *alidayu.Client {
	t.Helper()
	c, err := alidayu.NewClient(&alidayu.ClientConfig{
		AppKey:    testAppKey,
		AppSecret: secret,
		Endpoint:  endpoint + RoutePath,
		Location:  time.UTC,
		Timeout:   5 * time.Second,
	}, alidayu.WithClock(func() time.Time { return simNow }))
	require.NoError(t, err)
	return c
}

func smsCall(recNum string) *alidayu.Call {
	return alidayu.NewCall("alibaba.aliqin.fc.sms.num.send", map[string]string{
		"sms_type":           "normal",
		"sms_free_sign_name": "Acme",
		"rec_num":            recNum,
		"sms_template_code":  "SMS_585014",
		"sms_param":          `{"code":"123456"}`,
	})
}

func TestSimulator_SendSMS(t *testing.T) {
	for _, format := range []alidayu.Format{alidayu.FormatJSON, alidayu.FormatXML} {
		for _, method := range []alidayu.SignMethod{alidayu.SignMD5, alidayu.SignHMAC} {
			t.Run(string(format)+"/"+string(method), func(t *testing.T) {
				sim, server := setupSimulator(t)
				client := newClient(t, server.URL, testAppSecret).SetFormat(format).SetSignMethod(method)

				res, err := client.Execute(context.Background(), smsCall("13800000000"))
				require.NoError(t, err)

				success, ok := res.Body.Lookup("alibaba_aliqin_fc_sms_num_send_response", "result", "success")
				require.True(t, ok, "body: %s", res.Raw)
				assert.Equal(t, "true", success.Text())

				model, ok := res.Body.Lookup("alibaba_aliqin_fc_sms_num_send_response", "result", "model")
				require.True(t, ok)
				assert.Len(t, model.Text(), 12)

				received := sim.Received()
				require.Len(t, received, 1)
				assert.Equal(t, "13800000000", received[0]["rec_num"])
				assert.Equal(t, string(method), received[0][alidayu.ParamSignMethod])
			})
		}
	}
}

func TestSimulator_TimeGet(t *testing.T) {
	_, server := setupSimulator(t)
	client := newClient(t, server.URL, testAppSecret)

	res, err := client.Execute(context.Background(), alidayu.NewCall("taobao.time.get", nil))
	require.NoError(t, err)

	v, ok := res.Body.Lookup(alidayu.ResponseKey("taobao.time.get"), "time")
	require.True(t, ok, "body: %s", res.Raw)
	assert.Equal(t, "2016-09-18 19:43:18", v.Text())
}

func TestSimulator_Errors(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		call    alidayu.Request
		code    int
		subCode string
	}{
		{"wrong secret", "other-secret", smsCall("13800000000"), CodeInvalidSignature, ""},
		{"unknown method", testAppSecret, alidayu.NewCall("taobao.unknown", nil), CodeInvalidMethod, ""},
		{"missing argument", testAppSecret, alidayu.NewCall("alibaba.aliqin.fc.sms.num.send", map[string]string{"rec_num": "13800000000"}), CodeMissingArguments, ""},
		{"bad mobile", testAppSecret, smsCall("12345"), CodeServiceError, "isv.MOBILE_NUMBER_ILLEGAL"},
	}

	for _, format := range []alidayu.Format{alidayu.FormatJSON, alidayu.FormatXML} {
		for _, tt := range tests {
			t.Run(string(format)+"/"+tt.name, func(t *testing.T) {
				sim, server := setupSimulator(t)
				client := newClient(t, server.URL, tt.secret).SetFormat(format)

				_, err := client.Execute(context.Background(), tt.call)
				apiErr, ok := alidayu.IsAPIError(err)
				require.True(t, ok, "expected APIError, got %v", err)
				assert.Equal(t, tt.code, apiErr.Code)
				assert.Equal(t, tt.subCode, apiErr.SubCode)
				assert.Empty(t, sim.Received())
			})
		}
	}
}

func TestSimulator_RejectsStaleTimestamp(t *testing.T) {
	sim, server := setupSimulator(t)
	sim.now = func() time.Time { return simNow.Add(time.Hour) }
	client := newClient(t, server.URL, testAppSecret)

	_, err := client.Execute(context.Background(), alidayu.NewCall("taobao.time.get", nil))
	apiErr, ok := alidayu.IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidTimestamp, apiErr.Code)
}

func TestSimulator_RawRequests(t *testing.T) {
	_, server := setupSimulator(t)

	tests := []struct {
		name string
		form url.Values
		code string
	}{
		{"missing method", url.Values{"format": {"json"}, "app_key": {testAppKey}}, `"code":"21"`},
		{"missing app key", url.Values{"format": {"json"}, "method": {"taobao.time.get"}}, `"code":"28"`},
		{"unknown app key", url.Values{"format": {"json"}, "method": {"taobao.time.get"}, "app_key": {"nobody"}}, `"code":"29"`},
		{"bad sign method", url.Values{"format": {"json"}, "method": {"taobao.time.get"}, "app_key": {testAppKey}, "sign_method": {"sha1"}}, `"code":"41"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.PostForm(server.URL+RoutePath, tt.form)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), `"error_response"`)
			assert.Contains(t, string(body), tt.code)
		})
	}
}

func TestSimulator_DefaultsToXML(t *testing.T) {
	_, server := setupSimulator(t)

	resp, err := http.PostForm(server.URL+RoutePath, url.Values{})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/xml"))
}

func TestSimulator_Health(t *testing.T) {
	_, server := setupSimulator(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(server.URL + RoutePath)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)
}
