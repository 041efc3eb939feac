package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	require.Equal(t, "system", cfg.Browser.Engine)
	require.Equal(t, []string{"Font", "Media"}, cfg.Browser.BlockedResourceTypes)
	require.Equal(t, 30, cfg.Portal.DateWindowDays)
	require.Equal(t, 3, cfg.Portal.NavigationAttempts)
	require.Equal(t, 5*time.Second, cfg.Portal.NavigationBackoff)
	require.Equal(t, 2*time.Second, cfg.Portal.PollInterval)
	require.Equal(t, 10, cfg.Portal.PollAttempts)
	require.Equal(t, 15*time.Second, cfg.Portal.ResultTimeout)
	require.Equal(t, 3, cfg.Captcha.Attempts)
	require.Equal(t, 30*time.Second, cfg.Captcha.Timeout)
	require.Equal(t, "downloads", cfg.Output.Root)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CAUSELIST_BROWSER", "remote")
	t.Setenv("CAUSELIST_HEADLESS", "true")
	t.Setenv("CAUSELIST_POLL_INTERVAL", "250ms")
	t.Setenv("CAUSELIST_API_KEYS", " a, ,b ")
	t.Setenv("CAUSELIST_RATE_RPS", "0.5")
	t.Setenv("CAUSELIST_PORT", "not-a-number")
	t.Setenv("CAUSELIST_NAV_TIMEOUT", "90s")
	t.Setenv("CAUSELIST_OCR_TIMEOUT", "12s")

	cfg := Load()

	require.Equal(t, "remote", cfg.Browser.Engine)
	require.True(t, cfg.Browser.Headless)
	require.Equal(t, 250*time.Millisecond, cfg.Portal.PollInterval)
	require.Equal(t, []string{"a", "b"}, cfg.Auth.APIKeys)
	require.Equal(t, 0.5, cfg.RateLimit.RequestsPerSecond)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 90*time.Second, cfg.Portal.NavigationTimeout)
	require.Equal(t, 12*time.Second, cfg.Captcha.Timeout)
}

func TestLoadProfileMissingFile(t *testing.T) {
	p, err := LoadProfile(filepath.Join(t.TempDir(), "portal.json5"))
	require.NoError(t, err)
	require.Equal(t, DefaultProfile(), p)
}

func TestLoadProfileLocalOverride(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "portal.json5")

	require.NoError(t, os.WriteFile(name, []byte(`{
		// comments are allowed
		baseUrl: "https://example.test/form",
		noCasePhrases: ["nothing listed"],
	}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "portal.local.json5"), []byte(`{
		complexLabel: "Saket Court Complex",
	}`), 0o644))

	p, err := LoadProfile(name)
	require.NoError(t, err)
	require.Equal(t, "https://example.test/form", p.BaseURL)
	require.Equal(t, "Saket Court Complex", p.ComplexLabel)
	require.Equal(t, []string{"nothing listed"}, p.NoCasePhrases)
	require.Equal(t, DefaultProfile().FormMarkers, p.FormMarkers)

	code, ok := p.CaseTypeCode("Criminal")
	require.True(t, ok)
	require.Equal(t, "3", code)
}

func TestLoadProfileInvalid(t *testing.T) {
	name := filepath.Join(t.TempDir(), "portal.json5")
	require.NoError(t, os.WriteFile(name, []byte(`{ baseUrl: `), 0o644))

	_, err := LoadProfile(name)
	require.Error(t, err)
}
