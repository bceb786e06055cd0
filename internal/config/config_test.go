package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 12, c.Window)
	assert.Equal(t, 12, c.LastN)
	assert.Equal(t, "zero_fill", c.MissingPolicy)
	assert.InDelta(t, -0.10, c.YoYThreshold, 1e-12)
	assert.InDelta(t, -300000, c.DeltaThreshold, 1e-9)
	assert.InDelta(t, -1.0, c.SlopeThreshold, 1e-12)
	assert.Equal(t, 12, c.AnomalyWindow)
	assert.InDelta(t, 3.0, c.AnomalyThreshold, 1e-12)
	assert.Equal(t, "pearson", c.CorrMethod)
	assert.Equal(t, 3, c.CorrMinPeriods)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "円", c.CurrencyUnit)
	assert.Equal(t, *Defaults(), *c)
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window: 6\nlast_n: 3\ncorr_method: spearman\n"), 0o644))
	t.Setenv("YEARLENS_LAST_N", "9")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, c.Window)
	assert.Equal(t, 9, c.LastN, "env overrides file")
	assert.Equal(t, "spearman", c.CorrMethod)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window: 0\nmissing_policy: guess\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Contains(t, err.Error(), "window")
	assert.Contains(t, err.Error(), "missing_policy")
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	c := Defaults()
	c.Window = 24
	c.AnomalyRobust = true
	require.NoError(t, Save(c, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 24, got.Window)
	assert.True(t, got.AnomalyRobust)
}

func TestSaveDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, Save(Defaults(), ""))
	_, err := os.Stat(filepath.Join(home, ".yearlens", "config.yaml"))
	require.NoError(t, err)
}

func TestSet(t *testing.T) {
	c := Defaults()
	require.NoError(t, c.Set("window", "6"))
	require.NoError(t, c.Set("yoy_threshold", "-0.2"))
	require.NoError(t, c.Set("anomaly_robust", "true"))
	require.NoError(t, c.Set("corr_method", "spearman"))
	assert.Equal(t, 6, c.Window)
	assert.InDelta(t, -0.2, c.YoYThreshold, 1e-12)
	assert.True(t, c.AnomalyRobust)
	assert.Equal(t, "spearman", c.CorrMethod)

	assert.Error(t, c.Set("window", "six"))
	assert.Error(t, c.Set("nope", "1"))
	assert.ErrorIs(t, c.Set("winsor_pct", "80"), ErrInvalid)
}

func TestKeysFollowYAMLTags(t *testing.T) {
	keys := Keys()
	assert.Equal(t, "window", keys[0])
	assert.Contains(t, keys, "anomaly_threshold")
	assert.Contains(t, keys, "projects_dir")
}
