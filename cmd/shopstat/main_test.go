package main

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopstat/internal/domain"
)

func TestFilterTypes(t *testing.T) {
	stats := []domain.UtilizationStat{{TypeName: "Máy Tiện"}, {TypeName: "CNC"}, {TypeName: "Máy Phay"}}
	assert.Len(t, filterTypes(stats, ""), 3)

	got := filterTypes(stats, "may tien")
	require.Len(t, got, 1)
	assert.Equal(t, "Máy Tiện", got[0].TypeName)

	assert.Len(t, filterTypes(stats, "may"), 2)
	assert.Empty(t, filterTypes(stats, "press"))
}

func TestSetEnvValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, setEnvValue(path, datasetEnv, "week14"))
	require.NoError(t, os.WriteFile(path, []byte("OTHER=1\n"+datasetEnv+"=week14\n"), 0o644))
	require.NoError(t, setEnvValue(path, datasetEnv, "week15"))

	env, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"OTHER": "1", datasetEnv: "week15"}, env)
}

func TestSetupLogger(t *testing.T) {
	require.NoError(t, setupLogger("debug", "json"))
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	assert.Error(t, setupLogger("loud", "text"))
	assert.Error(t, setupLogger("info", "xml"))
}

var setupRoot = sync.OnceFunc(func() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
})

func TestRunContinuesPastFailedDataset(t *testing.T) {
	setupRoot()
	ws := t.TempDir()
	good := filepath.Join(ws, "good")
	later := filepath.Join(ws, "later")
	require.NoError(t, os.Mkdir(good, 0o755))
	require.NoError(t, os.Mkdir(later, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(good, "schedule.json"), []byte(`[
  {"id": "OP1", "commandId": "LSX1", "detailed_schedule": [{"day": "2025-04-01", "shift": 1, "asset_id": "A001"}]}
]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(good, "input.json"), []byte(`{"assets": [{"id": "A001", "machineType": "CNC"}]}`), 0o644))

	rootCmd.SetArgs([]string{"run", "-w", ws, "--log-level", "error", "good", "missing", "later"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")

	for _, dir := range []string{good, later} {
		_, statErr := os.Stat(filepath.Join(dir, "maymocthongke.json"))
		assert.NoError(t, statErr, dir)
	}
	data, err := os.ReadFile(filepath.Join(later, "maymocthongke.json"))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}
