package domain

import "time"

type ResourceKind string

const (
	KindMachine ResourceKind = "machine"
	KindWorker  ResourceKind = "worker"
)

// ScheduleEntry is one operation as emitted by the external scheduler.
type ScheduleEntry struct {
	ID               string            `json:"id" mapstructure:"id" validate:"required"`
	CommandID        string            `json:"commandId" mapstructure:"commandId"`
	Name             string            `json:"name,omitempty" mapstructure:"name"`
	DetailedSchedule []ShiftAssignment `json:"detailed_schedule" mapstructure:"detailed_schedule"`
	// Achievements holds the achieved_kpi_<n> values in index order.
	Achievements []Achievement `json:"achievements,omitempty" mapstructure:"-"`
	// Extra receives every key not mapped above.
	Extra map[string]any `json:"-" mapstructure:",remain"`
}

// Achieved returns the recorded value for the KPI definition at index i.
func (e ScheduleEntry) Achieved(i int) (float64, bool) {
	for _, a := range e.Achievements {
		if a.Index == i {
			return a.Value, true
		}
	}
	return 0, false
}

type ShiftAssignment struct {
	Day      string `json:"day" mapstructure:"day"`
	Shift    int    `json:"shift" mapstructure:"shift"`
	WorkerID string `json:"worker_id,omitempty" mapstructure:"worker_id"`
	AssetID  string `json:"asset_id,omitempty" mapstructure:"asset_id"`
}

type Achievement struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// Roster is the static input document: operations, workers and machines.
type Roster struct {
	Operations []Operation `json:"operations"`
	Workers    []Resource  `json:"workers"`
	Assets     []Resource  `json:"assets"`
}

type Operation struct {
	ID                  string          `json:"id" validate:"required"`
	Name                string          `json:"name,omitempty"`
	CommandID           string          `json:"commandId,omitempty"`
	ProductionOrderID   string          `json:"productionOrderId,omitempty"`
	RequiredPosition    string          `json:"requiredPosition,omitempty"`
	RequiredMachineType string          `json:"requiredMachineType,omitempty"`
	KPIs                []KPIDefinition `json:"kpis,omitempty" validate:"dive"`
}

// OrderID prefers the production order id and falls back to the command id.
func (o Operation) OrderID() string {
	if o.ProductionOrderID != "" {
		return o.ProductionOrderID
	}
	return o.CommandID
}

// RequiredType returns the resource type the operation asks for.
func (o Operation) RequiredType(kind ResourceKind) string {
	if kind == KindWorker {
		return o.RequiredPosition
	}
	return o.RequiredMachineType
}

type KPIDefinition struct {
	ID        string  `json:"id" validate:"required"`
	Name      string  `json:"name"`
	Weight    float64 `json:"weight" validate:"gte=0"`
	Threshold float64 `json:"value"`
}

// Resource is a machine or a worker.
type Resource struct {
	ID         string         `json:"id" validate:"required"`
	Type       string         `json:"type"`
	Name       string         `json:"name,omitempty"`
	Synthetic  bool           `json:"synthetic,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Activity is one shift assignment after normalization.
type Activity struct {
	OperationID string    `json:"operation_id"`
	CommandID   string    `json:"command_id"`
	Day         string    `json:"day"`
	Date        time.Time `json:"-"`
	Shift       int       `json:"shift"`
	Slot        string    `json:"slot"`
	WorkerID    string    `json:"worker_id,omitempty"`
	AssetID     string    `json:"asset_id,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// ResourceID returns the machine or worker id the activity occupies.
func (a Activity) ResourceID(kind ResourceKind) string {
	if kind == KindWorker {
		return a.WorkerID
	}
	return a.AssetID
}

type ResourceCount struct {
	ID     string `json:"id"`
	Shifts int    `json:"shifts"`
}

// UtilizationStat aggregates every resource of one type. TotalShifts is the
// busiest resource's shift count unless the sum policy is configured.
type UtilizationStat struct {
	Kind                ResourceKind
	TypeName            string
	TotalResources      int
	TotalShifts         int
	TotalTimeOperations int
	MaxShiftResource    string
	Resources           []ResourceCount
	IdleCount           int
}

// Shifts returns the count recorded for id.
func (s UtilizationStat) Shifts(id string) (int, bool) {
	for _, r := range s.Resources {
		if r.ID == id {
			return r.Shifts, true
		}
	}
	return 0, false
}

type MachineActivity struct {
	Day       string `json:"day"`
	Shift     int    `json:"shift"`
	CommandID string `json:"command_id"`
}

type CommandSwitchStat struct {
	AssetID     string            `json:"asset_id"`
	Commands    []string          `json:"commands"`
	SwitchCount int               `json:"command_switches"`
	Activities  []MachineActivity `json:"activities"`
}

type KpiRow struct {
	ProductionOrderID string  `json:"productionOrderId"`
	OperationID       string  `json:"operationId"`
	KPIID             string  `json:"id"`
	Name              string  `json:"name"`
	Weight            float64 `json:"weight"`
	Threshold         float64 `json:"threshold"`
	Achieved          float64 `json:"achieved"`
	Passed            bool    `json:"passed"`
}

type KpiSummary struct {
	ProductionOrderID string   `json:"productionOrderId"`
	Rows              int      `json:"rows"`
	Passed            int      `json:"passed"`
	WeightedScore     *float64 `json:"weighted_score"`
}

type SlotIdle struct {
	Day         string   `json:"day"`
	Shift       int      `json:"shift"`
	Type        string   `json:"machine_type"`
	Used        int      `json:"used_count"`
	Total       int      `json:"total_count"`
	Idle        int      `json:"idle_count"`
	IdlePercent *float64 `json:"idle_percentage"`
}

type TimelineItem struct {
	ID         string       `json:"id"`
	Kind       ResourceKind `json:"kind"`
	ResourceID string       `json:"group"`
	Day        string       `json:"day"`
	Shift      int          `json:"shift"`
	Start      time.Time    `json:"start_time"`
	End        time.Time    `json:"end_time"`
	Operations []string     `json:"operations"`
	Commands   []string     `json:"commands"`
}
