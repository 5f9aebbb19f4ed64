package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Shifts, 4)
	assert.Equal(t, "18:00", cfg.Shifts[4].Start)
	assert.Equal(t, "24:00", cfg.Shifts[4].End)
	assert.Equal(t, PolicyMax, cfg.TotalShiftsPolicy)
	assert.True(t, cfg.IncludeIdle)
	assert.Equal(t, "maymocthongke.json", cfg.Outputs.Machines)
}

func TestFromYAMLReplacesShiftTable(t *testing.T) {
	cfg, err := FromYAML([]byte(`
shifts:
  1: {start: "06:00", end: "14:00"}
  2: {start: "22:00", end: "06:00"}
total_shifts_policy: sum
`))
	require.NoError(t, err)
	assert.Len(t, cfg.Shifts, 2)
	assert.Equal(t, PolicySum, cfg.TotalShiftsPolicy)
	assert.Equal(t, "unspecified", cfg.UnspecifiedType)
}

func TestFromYAMLRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad clock":        "shifts:\n  1: {start: \"6:00\", end: \"12:00\"}\n",
		"clock range":      "shifts:\n  1: {start: \"00:00\", end: \"24:30\"}\n",
		"empty window":     "shifts:\n  1: {start: \"08:00\", end: \"08:00\"}\n",
		"policy":           "total_shifts_policy: avg\n",
		"timezone":         "timezone: Mars/Olympus\n",
		"duplicate output": "outputs:\n  kpis: maymocthongke.json\n",
		"empty sentinel":   "unspecified_type: \"\"\n",
		"malformed":        "shifts: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("00:00")
	require.NoError(t, err)
	assert.Equal(t, 0, m)
	m, err = ParseClock("17:30")
	require.NoError(t, err)
	assert.Equal(t, 17*60+30, m)
	m, err = ParseClock("24:00")
	require.NoError(t, err)
	assert.Equal(t, 1440, m)
	_, err = ParseClock("12:60")
	assert.Error(t, err)
	_, err = ParseClock("noon")
	assert.Error(t, err)
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "shopstat.yml"), []byte(GenerateDefault()), 0o644))
	cfg, err = LoadOptional(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "input.json", cfg.Inputs.Roster)

	_, err = Load(t.TempDir())
	assert.Error(t, err)
}
