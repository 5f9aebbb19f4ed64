package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"shopstat/internal/domain"
	"shopstat/internal/engine"
)

const (
	SheetMachines = "Machines"
	SheetWorkers  = "Workers"
	SheetSwitches = "Switches"
	SheetKPI      = "KPI"
	SheetSlots    = "Slots"
)

// WriteWorkbook writes rep as a spreadsheet with one sheet per view.
func WriteWorkbook(path string, rep engine.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name string
		rows [][]any
	}{
		{SheetMachines, utilizationRows(rep.Machines)},
		{SheetWorkers, utilizationRows(rep.Workers)},
		{SheetSwitches, switchRows(rep.Switches)},
		{SheetKPI, kpiRows(rep.KPIs)},
		{SheetSlots, slotRows(rep.Slots)},
	}
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return err
		}
		for r, row := range s.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(s.name, cell, &row); err != nil {
				return fmt.Errorf("%s row %d: %w", s.name, r+1, err)
			}
		}
	}
	return f.SaveAs(path)
}

func utilizationRows(stats []domain.UtilizationStat) [][]any {
	rows := [][]any{{"type", "resource", "shifts", "total_shifts", "total_time_operations", "total_resources", "idle"}}
	for _, st := range SortUtilization(stats) {
		for _, r := range st.Resources {
			rows = append(rows, []any{st.TypeName, r.ID, r.Shifts, st.TotalShifts, st.TotalTimeOperations, st.TotalResources, r.Shifts == 0})
		}
	}
	return rows
}

func switchRows(stats []domain.CommandSwitchStat) [][]any {
	rows := [][]any{{"asset_id", "commands", "command_switches", "activities"}}
	for _, st := range stats {
		rows = append(rows, []any{st.AssetID, len(st.Commands), st.SwitchCount, len(st.Activities)})
	}
	return rows
}

func kpiRows(kpis []domain.KpiRow) [][]any {
	rows := [][]any{{"production_order", "operation", "kpi", "name", "weight", "threshold", "achieved", "passed"}}
	for _, k := range kpis {
		rows = append(rows, []any{k.ProductionOrderID, k.OperationID, k.KPIID, k.Name, k.Weight, k.Threshold, k.Achieved, k.Passed})
	}
	return rows
}

func slotRows(slots []domain.SlotIdle) [][]any {
	rows := [][]any{{"day", "shift", "machine_type", "used", "total", "idle", "idle_percentage"}}
	for _, s := range slots {
		var pct any = ""
		if s.IdlePercent != nil {
			pct = *s.IdlePercent
		}
		rows = append(rows, []any{s.Day, s.Shift, s.Type, s.Used, s.Total, s.Idle, pct})
	}
	return rows
}
