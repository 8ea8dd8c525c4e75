// Package app_test contains unit tests for the app package.
package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyricscout/lyricscout/internal/app"
)

// writeConfig drops a YAML config into a temp dir and returns its path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewApp_Success(t *testing.T) {
	path := writeConfig(t, `
proxy:
  endpoints:
    - "10.0.0.1:8080:user:pass"
    - "10.0.0.2:8080:user:pass:socks5"
sources:
  order: ["azlyrics", "genius"]
logging:
  development: true
`)

	a, err := app.NewApp(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, a)

	assert.NotNil(t, a.Logger())
	assert.NotNil(t, a.Failover())
	assert.NotNil(t, a.Stats())
	assert.Nil(t, a.Cache(), "cache is disabled by default")
	assert.Equal(t, 8080, a.Config().Server.Port)

	a.Close()
}

func TestNewApp_CacheEnabled(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
proxy:
  endpoints: ["10.0.0.1:8080:user:pass"]
cache:
  enabled: true
  path: "`+filepath.ToSlash(filepath.Join(dir, "cache.db"))+`"
`)

	a, err := app.NewApp(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, a.Cache())
	a.Close()
}

func TestNewApp_ConfigErrors(t *testing.T) {
	testCases := []struct {
		name          string
		config        string
		expectedError string
	}{
		{
			name:          "no proxies",
			config:        "server:\n  port: 8080\n",
			expectedError: "proxy.endpoints must not be empty",
		},
		{
			name: "bad policy",
			config: `
proxy:
  endpoints: ["10.0.0.1:8080:user:pass"]
  policy: "weighted"
`,
			expectedError: "proxy.policy must be round_robin or random",
		},
		{
			name: "unknown source",
			config: `
proxy:
  endpoints: ["10.0.0.1:8080:user:pass"]
sources:
  order: ["lyricsfreak"]
`,
			expectedError: "unknown source",
		},
		{
			name: "bad log level",
			config: `
proxy:
  endpoints: ["10.0.0.1:8080:user:pass"]
logging:
  level: "loud"
`,
			expectedError: "parse log level",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.config)

			_, err := app.NewApp(context.Background(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expectedError)
		})
	}
}
