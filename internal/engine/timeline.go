package engine

import (
	"fmt"
	"slices"
	"strings"

	"shopstat/internal/domain"
)

// Timeline lays every activity out as one item per resource and window.
// Activities sharing a resource and window are merged into one item.
func (e Engine) Timeline(acts []domain.Activity) []domain.TimelineItem {
	type key struct {
		kind domain.ResourceKind
		id   string
		slot string
	}
	byKey := map[key]*domain.TimelineItem{}
	var keys []key
	for _, kind := range []domain.ResourceKind{domain.KindMachine, domain.KindWorker} {
		for _, a := range acts {
			id := a.ResourceID(kind)
			if id == "" {
				continue
			}
			k := key{kind: kind, id: id, slot: a.Slot}
			item, ok := byKey[k]
			if !ok {
				item = &domain.TimelineItem{
					ID:         fmt.Sprintf("%s-%s-%s", kind, id, a.Slot),
					Kind:       kind,
					ResourceID: id,
					Day:        a.Day,
					Shift:      a.Shift,
					Start:      a.Start,
					End:        a.End,
				}
				byKey[k] = item
				keys = append(keys, k)
			}
			if !slices.Contains(item.Operations, a.OperationID) {
				item.Operations = append(item.Operations, a.OperationID)
			}
			if !slices.Contains(item.Commands, a.CommandID) {
				item.Commands = append(item.Commands, a.CommandID)
			}
		}
	}

	out := make([]domain.TimelineItem, 0, len(keys))
	for _, k := range keys {
		out = append(out, *byKey[k])
	}
	slices.SortStableFunc(out, func(a, b domain.TimelineItem) int {
		if c := strings.Compare(string(a.Kind), string(b.Kind)); c != 0 {
			return c
		}
		if c := strings.Compare(a.ResourceID, b.ResourceID); c != 0 {
			return c
		}
		return a.Start.Compare(b.Start)
	})
	return out
}
