package shift

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopstat/internal/config"
)

func newTable(t *testing.T, shifts map[int]config.ShiftWindow) *Table {
	t.Helper()
	cfg := config.Default()
	if shifts != nil {
		cfg.Shifts = shifts
	}
	tbl, err := NewTable(cfg)
	require.NoError(t, err)
	return tbl
}

func TestKey(t *testing.T) {
	assert.Equal(t, "2025-04-01-1", Key("2025-04-01", 1))
	assert.NotEqual(t, Key("2025-04-01", 1), Key("2025-04-01", 2))
}

func TestWindowDefaultTable(t *testing.T) {
	tbl := newTable(t, nil)
	start, end, err := tbl.Window("2025-04-01", 2)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 4, 1, 6, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC), end)

	start, end, err = tbl.Window("2025-04-01", 4)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 4, 1, 18, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), end)
}

func TestWindowOvernight(t *testing.T) {
	tbl := newTable(t, map[int]config.ShiftWindow{
		1: {Start: "22:00", End: "06:00"},
	})
	start, end, err := tbl.Window("2025-12-31", 1)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 31, 22, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC), end)
}

func TestWindowKeepsWallClockAcrossDST(t *testing.T) {
	cfg := config.Default()
	cfg.Timezone = "Europe/Berlin"
	tbl, err := NewTable(cfg)
	require.NoError(t, err)
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// clocks jump from 02:00 to 03:00 on 2025-03-30
	start, end, err := tbl.Window("2025-03-30", 2)
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2025, 3, 30, 6, 0, 0, 0, loc)), "start %s", start)
	assert.True(t, end.Equal(time.Date(2025, 3, 30, 12, 0, 0, 0, loc)), "end %s", end)
	assert.Equal(t, 6, start.Hour())

	start, end, err = tbl.Window("2025-03-30", 1)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Hour, end.Sub(start))

	_, end, err = tbl.Window("2025-10-26", 4)
	require.NoError(t, err)
	assert.True(t, end.Equal(time.Date(2025, 10, 27, 0, 0, 0, 0, loc)), "end %s", end)
}

func TestAtMatchesWindow(t *testing.T) {
	tbl := newTable(t, nil)
	d, err := ParseDay("2025-04-01")
	require.NoError(t, err)
	s1, e1, err := tbl.At(d, 3)
	require.NoError(t, err)
	s2, e2, err := tbl.Window("2025-04-01", 3)
	require.NoError(t, err)
	assert.Equal(t, s2, s1)
	assert.Equal(t, e2, e1)

	_, _, err = tbl.At(d, 9)
	assert.ErrorIs(t, err, ErrUnknownShift)
}

func TestWindowErrors(t *testing.T) {
	tbl := newTable(t, nil)
	_, _, err := tbl.Window("2025-04-01", 9)
	assert.True(t, errors.Is(err, ErrUnknownShift))
	assert.False(t, tbl.Known(9))
	assert.True(t, tbl.Known(1))

	_, _, err = tbl.Window("2025-4-1", 1)
	assert.True(t, errors.Is(err, ErrBadDay))
	_, _, err = tbl.Window("2025-02-30", 1)
	assert.True(t, errors.Is(err, ErrBadDay))
}

func TestCompareSlots(t *testing.T) {
	d1, err := ParseDay("2025-04-01")
	require.NoError(t, err)
	d2, err := ParseDay("2025-04-02")
	require.NoError(t, err)
	assert.Equal(t, -1, CompareSlots(d1, 4, d2, 1))
	assert.Equal(t, 1, CompareSlots(d2, 1, d1, 4))
	assert.Equal(t, -1, CompareSlots(d1, 1, d1, 2))
	assert.Equal(t, 0, CompareSlots(d1, 3, d1, 3))
}
