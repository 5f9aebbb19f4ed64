package engine

import (
	"slices"
	"strings"

	"shopstat/internal/domain"
	"shopstat/internal/shift"
)

// CommandSwitches counts, per machine, how often consecutive activities
// belong to different commands. Activities are ordered by day, shift and
// command id before counting.
func (e Engine) CommandSwitches(acts []domain.Activity) []domain.CommandSwitchStat {
	groups := map[string][]domain.Activity{}
	for _, a := range acts {
		if a.AssetID == "" {
			continue
		}
		groups[a.AssetID] = append(groups[a.AssetID], a)
	}
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]domain.CommandSwitchStat, 0, len(ids))
	for _, id := range ids {
		group := groups[id]
		slices.SortStableFunc(group, func(a, b domain.Activity) int {
			if c := shift.CompareSlots(a.Date, a.Shift, b.Date, b.Shift); c != 0 {
				return c
			}
			return strings.Compare(a.CommandID, b.CommandID)
		})
		st := domain.CommandSwitchStat{
			AssetID:    id,
			Commands:   []string{},
			Activities: make([]domain.MachineActivity, 0, len(group)),
		}
		seen := map[string]bool{}
		for i, a := range group {
			if !seen[a.CommandID] {
				seen[a.CommandID] = true
				st.Commands = append(st.Commands, a.CommandID)
			}
			if i > 0 && group[i-1].CommandID != a.CommandID {
				st.SwitchCount++
			}
			st.Activities = append(st.Activities, domain.MachineActivity{
				Day:       a.Day,
				Shift:     a.Shift,
				CommandID: a.CommandID,
			})
		}
		out = append(out, st)
	}
	return out
}
