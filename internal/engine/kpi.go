package engine

import (
	"github.com/shopspring/decimal"

	"shopstat/internal/domain"
)

// KPIs joins each operation's KPI definitions with the achieved values the
// schedule recorded at the same index. Definitions without a recorded value,
// or with a zero value, produce no row. A non-empty order filters by
// production order id.
func (e Engine) KPIs(ops []domain.Operation, entries []domain.ScheduleEntry, order string) []domain.KpiRow {
	byID := make(map[string]domain.ScheduleEntry, len(entries))
	for _, entry := range entries {
		if _, ok := byID[entry.ID]; !ok {
			byID[entry.ID] = entry
		}
	}
	rows := []domain.KpiRow{}
	for _, op := range ops {
		entry, ok := byID[op.ID]
		if !ok {
			continue
		}
		orderID := op.OrderID()
		if orderID == "" {
			orderID = entry.CommandID
		}
		if order != "" && orderID != order {
			continue
		}
		for i, def := range op.KPIs {
			achieved, ok := entry.Achieved(i)
			if !ok || achieved == 0 {
				continue
			}
			rows = append(rows, domain.KpiRow{
				ProductionOrderID: orderID,
				OperationID:       op.ID,
				KPIID:             def.ID,
				Name:              def.Name,
				Weight:            def.Weight,
				Threshold:         def.Threshold,
				Achieved:          achieved,
				Passed:            decimal.NewFromFloat(achieved).GreaterThanOrEqual(decimal.NewFromFloat(def.Threshold)),
			})
		}
	}
	return rows
}

// SummarizeKPIs rolls rows up per production order. The weighted score is the
// passed weight over the total weight and is nil when every weight is zero.
func SummarizeKPIs(rows []domain.KpiRow) []domain.KpiSummary {
	type acc struct {
		sum           domain.KpiSummary
		total, passed decimal.Decimal
	}
	var order []string
	byOrder := map[string]*acc{}
	for _, r := range rows {
		a, ok := byOrder[r.ProductionOrderID]
		if !ok {
			a = &acc{sum: domain.KpiSummary{ProductionOrderID: r.ProductionOrderID}}
			byOrder[r.ProductionOrderID] = a
			order = append(order, r.ProductionOrderID)
		}
		w := decimal.NewFromFloat(r.Weight)
		a.sum.Rows++
		a.total = a.total.Add(w)
		if r.Passed {
			a.sum.Passed++
			a.passed = a.passed.Add(w)
		}
	}
	out := make([]domain.KpiSummary, 0, len(order))
	for _, id := range order {
		a := byOrder[id]
		if !a.total.IsZero() {
			score := a.passed.Div(a.total).Round(4).InexactFloat64()
			a.sum.WeightedScore = &score
		}
		out = append(out, a.sum)
	}
	return out
}
