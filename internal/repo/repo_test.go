package repo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopstat/internal/config"
	"shopstat/internal/domain"
	"shopstat/internal/engine"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadScheduleAchievements(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "schedule.json", `[
  {"id": "OP1", "commandId": "LSX0001", "name": "Cut",
   "detailed_schedule": [
     {"day": "2025-04-01", "shift": 1, "worker_id": "W001", "asset_id": "A001"},
     {"day": "2025-04-01", "shift": "2", "worker_id": "W001", "asset_id": "A001"}
   ],
   "achieved_kpi_2": 0.9, "achieved_kpi_0": "12.5", "achieved_kpi_1": null},
  {"commandId": "LSX0002", "detailed_schedule": []},
  {"id": "OP3", "commandId": "LSX0002", "detailed_schedule": [], "achieved_kpi_0": "n/a"}
]`)
	r := Repo{Dir: dir}
	doc, err := r.LoadSchedule(context.Background(), "schedule.json")
	require.NoError(t, err)
	require.Len(t, doc.Entries, 2)
	assert.NotEmpty(t, doc.Digest)

	op1 := doc.Entries[0]
	assert.Equal(t, "OP1", op1.ID)
	require.Len(t, op1.DetailedSchedule, 2)
	assert.Equal(t, 2, op1.DetailedSchedule[1].Shift)
	require.Len(t, op1.Achievements, 2)
	assert.Equal(t, 0, op1.Achievements[0].Index)
	assert.Equal(t, 12.5, op1.Achievements[0].Value)
	v, ok := op1.Achieved(2)
	assert.True(t, ok)
	assert.Equal(t, 0.9, v)
	_, ok = op1.Achieved(1)
	assert.False(t, ok)

	op3 := doc.Entries[1]
	assert.Empty(t, op3.Achievements)

	require.NotNil(t, doc.Rejected)
	assert.Len(t, doc.Rejected.Errors, 2)
}

func TestLoadScheduleErrors(t *testing.T) {
	dir := t.TempDir()
	r := Repo{Dir: dir}
	_, err := r.LoadSchedule(context.Background(), "schedule.json")
	assert.True(t, errors.Is(err, ErrNotFound))

	writeFile(t, dir, "schedule.json", `{"not": "an array"`)
	_, err = r.LoadSchedule(context.Background(), "schedule.json")
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.LoadSchedule(ctx, "schedule.json")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadRoster(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "input.json", `{
  "operations": [
    {"id": "OP1", "productionOrderId": "LSX0001", "requiredPosition": "Operator", "requiredMachineType": "CNC",
     "kpis": [{"id": "K1", "name": "Yield", "weight": 0.6, "value": 10}, {"id": "K2", "name": "Scrap", "weight": "0.4", "value": 2}]},
    {"requiredMachineType": "Lathe"}
  ],
  "workers": [
    {"id": "W001", "name": "An", "position": "Operator", "skill": 3},
    {"id": "W002", "workerType": "Technician"},
    {"id": "W003"}
  ],
  "assets": [
    {"id": "A001", "machineType": "CNC", "line": "L1"},
    {"name": "orphan"}
  ]
}`)
	doc, err := Repo{Dir: dir}.LoadRoster(context.Background(), "input.json")
	require.NoError(t, err)

	require.Len(t, doc.Roster.Operations, 1)
	op := doc.Roster.Operations[0]
	assert.Equal(t, "LSX0001", op.OrderID())
	require.Len(t, op.KPIs, 2)
	assert.Equal(t, 10.0, op.KPIs[0].Threshold)
	assert.Equal(t, 0.4, op.KPIs[1].Weight)

	require.Len(t, doc.Roster.Workers, 3)
	assert.Equal(t, "Operator", doc.Roster.Workers[0].Type)
	assert.Equal(t, "Technician", doc.Roster.Workers[1].Type)
	assert.Equal(t, "", doc.Roster.Workers[2].Type)
	assert.Equal(t, 3.0, doc.Roster.Workers[0].Attributes["skill"])

	require.Len(t, doc.Roster.Assets, 1)
	assert.Equal(t, "CNC", doc.Roster.Assets[0].Type)

	require.NotNil(t, doc.Rejected)
	assert.Len(t, doc.Rejected.Errors, 2)
}

func TestSparseAchievementsJoinKPIs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "schedule.json", `[
  {"id": "OP1", "commandId": "LSX1", "detailed_schedule": [],
   "achieved_kpi_0": 12, "achieved_kpi_2": "0.5"}
]`)
	writeFile(t, dir, "input.json", `{
  "operations": [
    {"id": "OP1", "productionOrderId": "LSX1", "kpis": [
      {"id": "K1", "name": "Yield", "weight": 0.5, "value": 10},
      {"id": "K2", "name": "Scrap", "weight": 0.3, "value": 2},
      {"id": "K3", "name": "Rework", "weight": 0.2, "value": 1}
    ]}
  ]
}`)
	r := Repo{Dir: dir}
	sched, err := r.LoadSchedule(context.Background(), "schedule.json")
	require.NoError(t, err)
	assert.Nil(t, sched.Rejected)
	roster, err := r.LoadRoster(context.Background(), "input.json")
	require.NoError(t, err)

	require.Len(t, sched.Entries, 1)
	_, ok := sched.Entries[0].Achieved(1)
	assert.False(t, ok)
	v, ok := sched.Entries[0].Achieved(2)
	require.True(t, ok)
	assert.Equal(t, 0.5, v)

	eng, err := engine.New(config.Default(), nil)
	require.NoError(t, err)
	rows := eng.KPIs(roster.Roster.Operations, sched.Entries, "")
	require.Len(t, rows, 2)
	assert.Equal(t, "K1", rows[0].KPIID)
	assert.True(t, rows[0].Passed)
	assert.Equal(t, "K3", rows[1].KPIID)
	assert.False(t, rows[1].Passed)
}

func TestDuplicateAchievementIndexRejected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "schedule.json", `[
  {"id": "OP1", "detailed_schedule": [],
   "achieved_kpi_1": 4, "achieved_kpi_01": 9, "achieved_kpi_0": 3}
]`)
	for i := 0; i < 5; i++ {
		doc, err := Repo{Dir: dir}.LoadSchedule(context.Background(), "schedule.json")
		require.NoError(t, err)
		require.Len(t, doc.Entries, 1)
		assert.Equal(t, []domain.Achievement{{Index: 0, Value: 3}}, doc.Entries[0].Achievements)
		require.NotNil(t, doc.Rejected)
		require.Len(t, doc.Rejected.Errors, 1)
		assert.Contains(t, doc.Rejected.Error(), "duplicate kpi index 1")
	}
}
