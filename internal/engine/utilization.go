package engine

import (
	"cmp"
	"slices"

	"shopstat/internal/config"
	"shopstat/internal/domain"
	"shopstat/internal/resource"
)

type typeAcc struct {
	name   string
	ids    []string
	counts map[string]int
	slots  map[string]struct{}
}

func (a *typeAcc) add(id string, n int) {
	if _, ok := a.counts[id]; !ok {
		a.ids = append(a.ids, id)
	}
	a.counts[id] += n
}

type tally struct {
	order  []string
	byName map[string]*typeAcc
}

func (t *tally) get(name string) *typeAcc {
	if acc, ok := t.byName[name]; ok {
		return acc
	}
	acc := &typeAcc{name: name, counts: map[string]int{}, slots: map[string]struct{}{}}
	t.byName[name] = acc
	t.order = append(t.order, name)
	return acc
}

type utilizationPass struct {
	stats []domain.UtilizationStat
	// typeOf records the type each resource was counted under.
	typeOf map[string]string
}

// Utilization groups resources of one kind by type and counts their shifts.
func (e Engine) Utilization(kind domain.ResourceKind, acts []domain.Activity, ops []domain.Operation, idx *resource.Index) []domain.UtilizationStat {
	return e.utilization(kind, acts, operationsByID(ops), idx).stats
}

func (e Engine) utilization(kind domain.ResourceKind, acts []domain.Activity, ops map[string]domain.Operation, idx *resource.Index) utilizationPass {
	t := &tally{byName: map[string]*typeAcc{}}
	typeOf := map[string]string{}
	for _, a := range acts {
		id := a.ResourceID(kind)
		if id == "" {
			continue
		}
		typ, ok := typeOf[id]
		if !ok {
			typ = resolveType(kind, id, ops[a.OperationID], idx)
			typeOf[id] = typ
		}
		acc := t.get(typ)
		acc.add(id, 1)
		acc.slots[a.Slot] = struct{}{}
	}
	if e.Config.IncludeIdle {
		for _, id := range idx.IDs() {
			if _, ok := typeOf[id]; ok {
				continue
			}
			typ := idx.Type(id)
			typeOf[id] = typ
			t.get(typ).add(id, 0)
		}
	}

	stats := make([]domain.UtilizationStat, 0, len(t.order))
	for _, name := range t.order {
		stats = append(stats, e.finish(kind, t.byName[name]))
	}
	return utilizationPass{stats: stats, typeOf: typeOf}
}

// resolveType prefers the roster type, then the type the operation requires,
// then the sentinel.
func resolveType(kind domain.ResourceKind, id string, op domain.Operation, idx *resource.Index) string {
	if typ := idx.Type(id); typ != "" && typ != idx.Sentinel {
		return typ
	}
	if req := op.RequiredType(kind); req != "" {
		return req
	}
	return idx.Sentinel
}

func (e Engine) finish(kind domain.ResourceKind, acc *typeAcc) domain.UtilizationStat {
	st := domain.UtilizationStat{
		Kind:                kind,
		TypeName:            acc.name,
		TotalResources:      len(acc.ids),
		TotalTimeOperations: len(acc.slots),
		Resources:           make([]domain.ResourceCount, 0, len(acc.ids)),
	}
	var best, sum int
	for _, id := range acc.ids {
		n := acc.counts[id]
		st.Resources = append(st.Resources, domain.ResourceCount{ID: id, Shifts: n})
		if n == 0 {
			st.IdleCount++
		}
		if n > best {
			best = n
			st.MaxShiftResource = id
		}
		sum += n
	}
	st.TotalShifts = best
	if e.Config.TotalShiftsPolicy == config.PolicySum {
		st.TotalShifts = sum
	}
	return st
}

// Top returns the n busiest resources across every stat, busiest first.
// Ties keep their order of appearance.
func Top(stats []domain.UtilizationStat, n int) []domain.ResourceCount {
	var all []domain.ResourceCount
	for _, st := range stats {
		all = append(all, st.Resources...)
	}
	slices.SortStableFunc(all, func(a, b domain.ResourceCount) int {
		return cmp.Compare(b.Shifts, a.Shifts)
	})
	if n >= 0 && n < len(all) {
		all = all[:n]
	}
	return all
}
