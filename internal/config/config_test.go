package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/ielts-listening/internal/scoring"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"MODE", "HTTP_ADDR", "DB_DRIVER", "DEV_LOGIN", "RESCALE_TO_FULL_TEST", "CORS_ORIGINS_OFFLINE", "PUBLIC_URL", "SCORE_SCALE"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	assert.Equal(t, ModeOffline, c.Mode)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.True(t, c.DevLogin)
	assert.False(t, c.RescaleToFullTest)
	assert.Equal(t, "ielts.listening", c.ScoreScale)
	_, ok := scoring.Lookup(c.ScoreScale)
	assert.True(t, ok)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, c.CORSOrigins())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("PUBLIC_URL", "https://example.org/")
	t.Setenv("RESCALE_TO_FULL_TEST", "yes")
	t.Setenv("SCORE_SCALE", "ielts.general")
	t.Setenv("DEV_LOGIN", "")
	t.Setenv("CORS_ORIGINS_ONLINE", " https://a.example , ,https://b.example")

	c := FromEnv()
	assert.Equal(t, ModeOnline, c.Mode)
	assert.Equal(t, "https://example.org", c.PublicURL)
	assert.True(t, c.RescaleToFullTest)
	assert.Equal(t, "ielts.general", c.ScoreScale)
	assert.False(t, c.DevLogin)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.CORSOrigins())
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("EVENT_SITE_ID=branch-7\n"), 0o600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	// godotenv never overrides variables that are already set
	t.Setenv("EVENT_SITE_ID", "")
	require.NoError(t, os.Unsetenv("EVENT_SITE_ID"))

	assert.Equal(t, "branch-7", Load().EventSiteID)
}
