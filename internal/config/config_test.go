package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SHEET_ID", "abc123")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "abc123", cfg.Sheet.ID)
	assert.Equal(t, "", cfg.Sheet.APIKey)
	assert.Equal(t, "Van Schedule", cfg.Sheet.ScheduleTab)
	assert.Equal(t, "Service Tracking", cfg.Sheet.TrackingTab)
	assert.Equal(t, "Census Tract Data", cfg.Sheet.CensusTab)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL())
	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval())
	assert.Equal(t, 15*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "nominatim", cfg.Geocode.Provider)
	assert.Equal(t, "Knox County, Maine", cfg.Geocode.Region)
	assert.Equal(t, time.Second, cfg.Geocode.MinInterval)
	assert.InDelta(t, 44.1, cfg.Map.CenterLat, 1e-9)
	assert.InDelta(t, -69.1, cfg.Map.CenterLng, 1e-9)
	assert.Equal(t, 10, cfg.Map.Zoom)
	assert.InDelta(t, 0.1, cfg.Map.BoundsPadding, 1e-9)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.Log.Level)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SHEET_ID", "abc123")
	t.Setenv("SHEET_API_KEY", "key")
	t.Setenv("CACHE_TTL_MINUTES", "2")
	t.Setenv("REFRESH_INTERVAL_MS", "60000")
	t.Setenv("GEOCODE_PROVIDER", "google")
	t.Setenv("GEOCODE_API_KEY", "gkey")
	t.Setenv("GEOCODE_MIN_INTERVAL", "250ms")
	t.Setenv("TIMEZONE", "America/New_York")
	t.Setenv("COLORS_TIER4", "#000000")
	t.Setenv("PORT", "9090")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "key", cfg.Sheet.APIKey)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL())
	assert.Equal(t, time.Minute, cfg.RefreshInterval())
	assert.Equal(t, "google", cfg.Geocode.Provider)
	assert.Equal(t, 250*time.Millisecond, cfg.Geocode.MinInterval)
	assert.Equal(t, "#000000", cfg.Colors.Tier4)
	assert.Equal(t, "9090", cfg.Port)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "van.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sheet:
  id: from-file
  schedule_tab: Schedule 2025
map:
  zoom: 12
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Sheet.ID)
	assert.Equal(t, "Schedule 2025", cfg.Sheet.ScheduleTab)
	assert.Equal(t, 12, cfg.Map.Zoom)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing sheet id", env: map[string]string{}},
		{name: "unknown provider", env: map[string]string{"SHEET_ID": "x", "GEOCODE_PROVIDER": "bing"}},
		{name: "google without key", env: map[string]string{"SHEET_ID": "x", "GEOCODE_PROVIDER": "google"}},
		{name: "bad latitude", env: map[string]string{"SHEET_ID": "x", "MAP_CENTER_LAT": "123"}},
		{name: "refresh too fast", env: map[string]string{"SHEET_ID": "x", "REFRESH_INTERVAL_MS": "10"}},
		{name: "bad timezone", env: map[string]string{"SHEET_ID": "x", "TIMEZONE": "Mars/Olympus"}},
		{name: "bad log format", env: map[string]string{"SHEET_ID": "x", "LOG_FORMAT": "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv("SHEET_ID", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SHEET_ID", "x")

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
