package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopstat/internal/domain"
)

func TestBuildCoversScheduleReferences(t *testing.T) {
	roster := []domain.Resource{
		{ID: "A001", Type: "CNC"},
		{ID: "A002", Type: ""},
		{ID: ""},
	}
	entries := []domain.ScheduleEntry{
		{ID: "OP1", DetailedSchedule: []domain.ShiftAssignment{
			{Day: "2025-04-01", Shift: 1, AssetID: "A001", WorkerID: "W001"},
			{Day: "2025-04-01", Shift: 2, AssetID: "A900", WorkerID: "W001"},
		}},
		{ID: "OP2", DetailedSchedule: []domain.ShiftAssignment{
			{Day: "2025-04-01", Shift: 3, AssetID: "A901"},
			{Day: "2025-04-01", Shift: 4, AssetID: "A900"},
		}},
	}
	refs := Referenced(domain.KindMachine, entries)
	assert.Equal(t, []string{"A001", "A900", "A901"}, refs)

	idx := Build(domain.KindMachine, roster, refs, "unspecified")
	for _, id := range refs {
		_, ok := idx.Get(id)
		assert.True(t, ok, "missing %s", id)
	}
	assert.Equal(t, []string{"A001", "A002", "A900", "A901"}, idx.IDs())
	assert.Equal(t, "CNC", idx.Type("A001"))
	assert.Equal(t, "unspecified", idx.Type("A002"))
	assert.Equal(t, "unspecified", idx.Type("A900"))
	assert.Equal(t, []string{"A900", "A901"}, idx.Synthesized())
	assert.Equal(t, 4, idx.Len())

	r, ok := idx.Get("A900")
	require.True(t, ok)
	assert.True(t, r.Synthetic)
}

func TestReferencedWorkers(t *testing.T) {
	entries := []domain.ScheduleEntry{
		{ID: "OP1", DetailedSchedule: []domain.ShiftAssignment{
			{Day: "2025-04-01", Shift: 1, AssetID: "A001", WorkerID: "W002"},
			{Day: "2025-04-01", Shift: 2, AssetID: "A001"},
			{Day: "2025-04-01", Shift: 3, AssetID: "A001", WorkerID: "W001"},
		}},
	}
	assert.Equal(t, []string{"W002", "W001"}, Referenced(domain.KindWorker, entries))
}
