package engine

import (
	"cmp"
	"slices"
	"strings"

	"shopstat/internal/domain"
	"shopstat/internal/resource"
)

// SlotIdle reports, for every (day, shift, type) that saw activity, how many
// resources of that type were used and how many stood idle.
func (e Engine) SlotIdle(kind domain.ResourceKind, acts []domain.Activity, ops []domain.Operation, idx *resource.Index) []domain.SlotIdle {
	return slotIdle(kind, acts, e.utilization(kind, acts, operationsByID(ops), idx), idx)
}

type slotKey struct {
	day   string
	shift int
	typ   string
}

func slotIdle(kind domain.ResourceKind, acts []domain.Activity, p utilizationPass, idx *resource.Index) []domain.SlotIdle {
	totals := map[string]int{}
	for _, id := range idx.IDs() {
		typ, ok := p.typeOf[id]
		if !ok {
			typ = idx.Type(id)
		}
		totals[typ]++
	}

	used := map[slotKey]map[string]struct{}{}
	var keys []slotKey
	for _, a := range acts {
		id := a.ResourceID(kind)
		if id == "" {
			continue
		}
		k := slotKey{day: a.Day, shift: a.Shift, typ: p.typeOf[id]}
		set, ok := used[k]
		if !ok {
			set = map[string]struct{}{}
			used[k] = set
			keys = append(keys, k)
		}
		set[id] = struct{}{}
	}
	slices.SortFunc(keys, func(a, b slotKey) int {
		// days are validated YYYY-MM-DD, so string order is date order
		if c := strings.Compare(a.day, b.day); c != 0 {
			return c
		}
		if c := cmp.Compare(a.shift, b.shift); c != 0 {
			return c
		}
		return strings.Compare(a.typ, b.typ)
	})

	out := make([]domain.SlotIdle, 0, len(keys))
	for _, k := range keys {
		n := len(used[k])
		total := totals[k.typ]
		row := domain.SlotIdle{
			Day:   k.day,
			Shift: k.shift,
			Type:  k.typ,
			Used:  n,
			Total: total,
			Idle:  max(total-n, 0),
		}
		if total > 0 {
			pct := float64(row.Idle) / float64(total) * 100
			row.IdlePercent = &pct
		}
		out = append(out, row)
	}
	return out
}
