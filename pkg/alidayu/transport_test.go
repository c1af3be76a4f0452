package alidayu

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransport_PostForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		form, err := url.ParseQuery(string(body))
		assert.NoError(t, err)
		assert.Equal(t, "v 1", form.Get("k"))

		w.WriteHeader(http.StatusTeapot)
		io.WriteString(w, "brewing")
	}))
	defer server.Close()

	transport := NewHTTPTransport(5*time.Second, 1)
	resp, err := transport.PostForm(context.Background(), server.URL, url.Values{"k": {"v 1"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "brewing", string(resp.Body))
}

func TestHTTPTransport_ConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	transport := NewHTTPTransport(time.Second, 2)
	_, err := transport.PostForm(context.Background(), endpoint, url.Values{})
	assert.Error(t, err)
}

func TestHTTPTransport_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	transport := NewHTTPTransport(time.Second, 3)
	_, err := transport.PostForm(ctx, server.URL, url.Values{})
	assert.Error(t, err)
}
