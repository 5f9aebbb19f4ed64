// Package shift turns (day, shift number) pairs into comparable slot keys
// and absolute time windows.
package shift

import (
	"cmp"
	"errors"
	"fmt"
	"time"

	"shopstat/internal/config"
)

const dayLayout = "2006-01-02"

var (
	ErrUnknownShift = errors.New("unknown shift")
	ErrBadDay       = errors.New("invalid day")
)

type window struct {
	start, end int // minutes after midnight
}

// Table resolves shift numbers against the configured shift-time table.
type Table struct {
	windows map[int]window
	loc     *time.Location
}

// NewTable builds a Table from config.
func NewTable(cfg *config.Config) (*Table, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	t := &Table{windows: make(map[int]window, len(cfg.Shifts)), loc: loc}
	for n, w := range cfg.Shifts {
		start, err := config.ParseClock(w.Start)
		if err != nil {
			return nil, fmt.Errorf("shift %d: %w", n, err)
		}
		end, err := config.ParseClock(w.End)
		if err != nil {
			return nil, fmt.Errorf("shift %d: %w", n, err)
		}
		t.windows[n] = window{start: start, end: end}
	}
	return t, nil
}

// Known reports whether the shift number exists in the table.
func (t *Table) Known(shift int) bool {
	_, ok := t.windows[shift]
	return ok
}

// Key is the canonical slot key shared by every resource working that shift.
func Key(day string, shift int) string {
	return fmt.Sprintf("%s-%d", day, shift)
}

// ParseDay parses a fixed-width ISO calendar date.
func ParseDay(day string) (time.Time, error) {
	if len(day) != len(dayLayout) {
		return time.Time{}, fmt.Errorf("%w %q: want YYYY-MM-DD", ErrBadDay, day)
	}
	d, err := time.Parse(dayLayout, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrBadDay, day, err)
	}
	return d, nil
}

// Window returns the absolute start and end of a shift on a YYYY-MM-DD day.
func (t *Table) Window(day string, shift int) (time.Time, time.Time, error) {
	if !t.Known(shift) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w %d", ErrUnknownShift, shift)
	}
	d, err := ParseDay(day)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return t.At(d, shift)
}

// At returns the shift window on an already parsed day. Offsets are wall-clock
// times in the table's location; an end offset before the start offset
// belongs to the next calendar day.
func (t *Table) At(d time.Time, shift int) (time.Time, time.Time, error) {
	w, ok := t.windows[shift]
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("%w %d", ErrUnknownShift, shift)
	}
	start := t.clock(d, w.start)
	end := t.clock(d, w.end)
	if w.end < w.start {
		end = t.clock(d.AddDate(0, 0, 1), w.end)
	}
	return start, end, nil
}

// clock places minutes after midnight on d's calendar date. 24:00 becomes
// midnight of the following day.
func (t *Table) clock(d time.Time, minutes int) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), minutes/60, minutes%60, 0, 0, t.loc)
}

// CompareSlots orders (day, shift) pairs chronologically. Days must already be
// parsed with ParseDay.
func CompareSlots(aDay time.Time, aShift int, bDay time.Time, bShift int) int {
	if c := aDay.Compare(bDay); c != 0 {
		return c
	}
	return cmp.Compare(aShift, bShift)
}
