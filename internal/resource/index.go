// Package resource builds id lookups for machines and workers.
package resource

import (
	"shopstat/internal/domain"
)

// Index maps resource ids to records in insertion order.
type Index struct {
	Kind     domain.ResourceKind
	Sentinel string
	order    []string
	byID     map[string]domain.Resource
}

// Build indexes the roster and synthesizes a sentinel-typed record for every
// referenced id the roster does not know. Roster records without an id are
// dropped; records without a type get the sentinel type.
func Build(kind domain.ResourceKind, roster []domain.Resource, referenced []string, sentinel string) *Index {
	idx := &Index{
		Kind:     kind,
		Sentinel: sentinel,
		byID:     make(map[string]domain.Resource, len(roster)+len(referenced)),
	}
	for _, r := range roster {
		if r.ID == "" {
			continue
		}
		if r.Type == "" {
			r.Type = sentinel
		}
		idx.put(r)
	}
	for _, id := range referenced {
		if id == "" {
			continue
		}
		if _, ok := idx.byID[id]; ok {
			continue
		}
		idx.put(domain.Resource{ID: id, Type: sentinel, Synthetic: true})
	}
	return idx
}

func (idx *Index) put(r domain.Resource) {
	if _, ok := idx.byID[r.ID]; !ok {
		idx.order = append(idx.order, r.ID)
	}
	idx.byID[r.ID] = r
}

// Get returns the record for id.
func (idx *Index) Get(id string) (domain.Resource, bool) {
	r, ok := idx.byID[id]
	return r, ok
}

// Type returns the indexed type of id, or "" when id is unknown.
func (idx *Index) Type(id string) string {
	return idx.byID[id].Type
}

// IDs returns every indexed id in insertion order.
func (idx *Index) IDs() []string {
	return append([]string(nil), idx.order...)
}

func (idx *Index) Len() int { return len(idx.order) }

// Synthesized returns the ids that only the schedule referenced.
func (idx *Index) Synthesized() []string {
	var out []string
	for _, id := range idx.order {
		if idx.byID[id].Synthetic {
			out = append(out, id)
		}
	}
	return out
}

// Referenced collects the ids of kind used by the schedule, first-seen order.
func Referenced(kind domain.ResourceKind, entries []domain.ScheduleEntry) []string {
	seen := map[string]struct{}{}
	var ids []string
	for _, e := range entries {
		for _, a := range e.DetailedSchedule {
			id := a.AssetID
			if kind == domain.KindWorker {
				id = a.WorkerID
			}
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
