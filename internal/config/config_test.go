package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexbotov/alidayu/pkg/alidayu"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ALIDAYU_APP_KEY", "k")
	t.Setenv("ALIDAYU_APP_SECRET", "s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "", cfg.Database.DSN)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenExpiry)
	assert.Equal(t, "json", cfg.Gateway.Format)
	assert.Equal(t, "md5", cfg.Gateway.SignMethod)
	assert.False(t, cfg.Gateway.Sandbox)
	assert.Equal(t, 1, cfg.Gateway.RetryCount)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_MissingCredentials(t *testing.T) {
	t.Setenv("ALIDAYU_APP_KEY", "")
	t.Setenv("ALIDAYU_APP_SECRET", "")
	t.Setenv("ALIDAYU_JWT_SECRET", "relay-secret-0123456789")

	// Commands that never reach the gateway still get a configuration.
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "relay-secret-0123456789", cfg.Auth.JWTSecret)

	assert.Error(t, cfg.Gateway.Validate())
	_, err = cfg.Gateway.ClientConfig()
	assert.Error(t, err)

	cfg.Gateway.AppKey = "k"
	cfg.Gateway.AppSecret = "s"
	assert.NoError(t, cfg.Gateway.Validate())
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"ALIDAYU_FORMAT":      "yaml",
		"ALIDAYU_SIGN_METHOD": "sha1",
		"ALIDAYU_RETRY_COUNT": "0",
		"ALIDAYU_ENDPOINT":    "not a url",
		"LOG_FORMAT":          "xml",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("ALIDAYU_APP_KEY", "k")
			t.Setenv("ALIDAYU_APP_SECRET", "s")
			t.Setenv(key, value)

			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "ALIDAYU_APP_KEY=from-file\nALIDAYU_APP_SECRET=secret\nALIDAYU_SANDBOX=true\nALIDAYU_SIGN_METHOD=hmac\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// Process environment wins over the file.
	t.Setenv("ALIDAYU_APP_SECRET", "from-env")
	t.Cleanup(func() {
		os.Unsetenv("ALIDAYU_APP_KEY")
		os.Unsetenv("ALIDAYU_SANDBOX")
		os.Unsetenv("ALIDAYU_SIGN_METHOD")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Gateway.AppKey)
	assert.Equal(t, "from-env", cfg.Gateway.AppSecret)
	assert.True(t, cfg.Gateway.Sandbox)
	assert.Equal(t, "hmac", cfg.Gateway.SignMethod)
}

func TestLoad_MissingDotEnvIgnored(t *testing.T) {
	t.Setenv("ALIDAYU_APP_KEY", "k")
	t.Setenv("ALIDAYU_APP_SECRET", "s")

	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestGatewayConfig_ClientConfig(t *testing.T) {
	g := GatewayConfig{
		AppKey:     "k",
		AppSecret:  "s",
		Sandbox:    true,
		Format:     "xml",
		SignMethod: "hmac",
		TimeZone:   "UTC",
		Timeout:    5 * time.Second,
		RetryCount: 2,
	}

	cc, err := g.ClientConfig()
	require.NoError(t, err)
	assert.Equal(t, alidayu.FormatXML, cc.Format)
	assert.Equal(t, alidayu.SignHMAC, cc.SignMethod)
	assert.Equal(t, time.UTC, cc.Location)
	assert.True(t, cc.Sandbox)

	g.TimeZone = "Nowhere/Atlantis"
	_, err = g.ClientConfig()
	assert.Error(t, err)
}
