package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/taskpulse/internal/schedule"
)

func TestDefaultTuning(t *testing.T) {
	d := Default()

	assert.Equal(t, schedule.IntervalHigh, d.IntervalHigh)
	assert.Equal(t, schedule.IntervalBackground, d.IntervalBackground)
	assert.Equal(t, schedule.DefaultTickGroups, d.DefaultTickGroups)
	assert.Equal(t, schedule.DefaultMaxCacheEntries, d.MaxCacheEntries)
	assert.NotEmpty(t, d.BucketThresholds["hauling"])
	assert.NotEmpty(t, d.LoadSteps)
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	tun, err := Load("does/not/exist.yaml")
	assert.Error(t, err)
	assert.Equal(t, Default(), tun)
}

func TestLoadPartialOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	raw := []byte("interval_high: 10\nmax_cache_entries: 50\nbucket_thresholds:\n  hauling: [9, 81]\n")
	require.NoError(t, os.WriteFile(path, raw, 0644))

	tun, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(10), tun.IntervalHigh)
	assert.Equal(t, 50, tun.MaxCacheEntries)
	assert.Equal(t, []int{9, 81}, tun.BucketThresholds["hauling"])

	// Unset fields keep their defaults.
	assert.Equal(t, schedule.IntervalMedium, tun.IntervalMedium)
	assert.Equal(t, schedule.DefaultTickGroups, tun.DefaultTickGroups)
	assert.Equal(t, Default().LoadSteps, tun.LoadSteps)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("interval_high: [not a number"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestTiersConversion(t *testing.T) {
	d := Default()
	tiers := d.Tiers()
	assert.Equal(t, d.IntervalHigh, tiers.High)
	assert.Equal(t, d.IntervalMedium, tiers.Medium)
	assert.Equal(t, d.IntervalLow, tiers.Low)
	assert.Equal(t, d.IntervalBackground, tiers.Background)
}
