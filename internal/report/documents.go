package report

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"shopstat/internal/domain"
	"shopstat/internal/engine"
)

type SwitchSummary struct {
	TotalMachines int       `json:"total_machines"`
	GeneratedAt   time.Time `json:"generated_at"`
	RunID         string    `json:"run_id"`
}

type switchEntry struct {
	AssetID       string                   `json:"asset_id"`
	TotalCommands int                      `json:"total_commands_participated"`
	Commands      []string                 `json:"commands"`
	SwitchCount   int                      `json:"command_switches"`
	Activities    []domain.MachineActivity `json:"activities"`
}

// SwitchDoc is the command-switch document. Machines are keyed by asset id.
type SwitchDoc struct {
	Summary  SwitchSummary          `json:"summary"`
	Machines map[string]switchEntry `json:"machines"`
}

func MarshalSwitches(rep engine.Report) ([]byte, error) {
	doc := SwitchDoc{
		Summary: SwitchSummary{
			TotalMachines: len(rep.Switches),
			GeneratedAt:   rep.GeneratedAt,
			RunID:         rep.RunID,
		},
		Machines: make(map[string]switchEntry, len(rep.Switches)),
	}
	for _, st := range rep.Switches {
		doc.Machines[st.AssetID] = switchEntry{
			AssetID:       st.AssetID,
			TotalCommands: len(st.Commands),
			Commands:      st.Commands,
			SwitchCount:   st.SwitchCount,
			Activities:    st.Activities,
		}
	}
	return encode(doc)
}

// ReadSwitches decodes a command-switch document; machines come back ordered
// by asset id.
func ReadSwitches(data []byte) (SwitchSummary, []domain.CommandSwitchStat, error) {
	var doc SwitchDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return SwitchSummary{}, nil, err
	}
	out := make([]domain.CommandSwitchStat, 0, len(doc.Machines))
	for id, m := range doc.Machines {
		if m.AssetID == "" {
			m.AssetID = id
		}
		if m.Commands == nil {
			m.Commands = []string{}
		}
		if m.Activities == nil {
			m.Activities = []domain.MachineActivity{}
		}
		out = append(out, domain.CommandSwitchStat{
			AssetID:     m.AssetID,
			Commands:    m.Commands,
			SwitchCount: m.SwitchCount,
			Activities:  m.Activities,
		})
	}
	slices.SortFunc(out, func(a, b domain.CommandSwitchStat) int { return strings.Compare(a.AssetID, b.AssetID) })
	return doc.Summary, out, nil
}

type KPIDoc struct {
	Rows      []domain.KpiRow     `json:"rows"`
	Summaries []domain.KpiSummary `json:"summaries"`
}

func ReadKPIs(data []byte) (KPIDoc, error) {
	var doc KPIDoc
	err := json.Unmarshal(data, &doc)
	return doc, err
}

func ReadSlots(data []byte) ([]domain.SlotIdle, error) {
	var out []domain.SlotIdle
	err := json.Unmarshal(data, &out)
	return out, err
}

type TimelineGroup struct {
	ID   string              `json:"id"`
	Kind domain.ResourceKind `json:"kind"`
}

// TimelineDoc lists the resources as groups and their bars as items.
type TimelineDoc struct {
	Groups []TimelineGroup       `json:"groups"`
	Items  []domain.TimelineItem `json:"items"`
}

func MarshalTimeline(items []domain.TimelineItem) ([]byte, error) {
	doc := TimelineDoc{Groups: []TimelineGroup{}, Items: items}
	if doc.Items == nil {
		doc.Items = []domain.TimelineItem{}
	}
	seen := map[TimelineGroup]bool{}
	for _, it := range items {
		g := TimelineGroup{ID: it.ResourceID, Kind: it.Kind}
		if !seen[g] {
			seen[g] = true
			doc.Groups = append(doc.Groups, g)
		}
	}
	return encode(doc)
}

func ReadTimeline(data []byte) (TimelineDoc, error) {
	var doc TimelineDoc
	err := json.Unmarshal(data, &doc)
	return doc, err
}
