package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/lively-auth/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := config.New()

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "Lively", c.GetAppName())
	require.Equal(t, "DEV", c.GetEnv())
	require.True(t, c.IsDevelopment())
	require.Equal(t, 60*time.Second, c.GetRefreshSkew())
	require.Equal(t, 10*time.Minute, c.GetAccessTokenExpiry())
	require.Equal(t, 24*time.Hour, c.GetVerificationTTL())
	require.False(t, c.GetStrictNotificationDelivery())
	require.Equal(t, config.MailTransportLog, c.GetMailTransport())
	require.Equal(t, "us-east-1", c.GetAWSRegion())
	require.Empty(t, c.GetDemoEmail(), "demo seeding is opt in")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "PROD")
	t.Setenv("REFRESH_SKEW", "90s")
	t.Setenv("STRICT_NOTIFICATION_DELIVERY", "true")
	t.Setenv("CLIENT_ORIGIN", "https://app.test")
	t.Setenv("EXTRA_ORIGINS", "https://a.test, https://b.test")

	c := config.New()

	require.Equal(t, ":9000", c.GetPort())
	require.False(t, c.IsDevelopment())
	require.Equal(t, 90*time.Second, c.GetRefreshSkew())
	require.True(t, c.GetStrictNotificationDelivery())

	origins := c.GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("https://app.test"))
	require.True(t, origins.IsAllowedOrigin("https://b.test"))
	require.False(t, origins.IsAllowedOrigin("https://evil.test"))
	require.Equal(t, "https://a.test, https://app.test, https://b.test", origins.String())
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("REFRESH_SKEW", "soon")
	t.Setenv("STRICT_NOTIFICATION_DELIVERY", "maybe")

	c := config.New()

	require.Equal(t, 60*time.Second, c.GetRefreshSkew())
	require.False(t, c.GetStrictNotificationDelivery())
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		require.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("file values", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("LIVELY_TEST_APP=from-file\n"), 0o600))
		t.Cleanup(func() { os.Unsetenv("LIVELY_TEST_APP") })

		require.NoError(t, config.LoadDotEnv(path))
		require.Equal(t, "from-file", config.GetEnv("LIVELY_TEST_APP", ""))
	})
}
