package report

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"shopstat/internal/domain"
	"shopstat/internal/engine"
)

// Metrics holds the gauges describing one or more runs.
type Metrics struct {
	Registry *prometheus.Registry

	resources *prometheus.GaugeVec
	idle      *prometheus.GaugeVec
	shifts    *prometheus.GaugeVec
	switches  *prometheus.GaugeVec
	skipped   *prometheus.GaugeVec
	kpiPassed *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		resources: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "shopstat",
			Name:      "resources",
			Help:      "Resources per kind and type.",
		}, []string{"dataset", "kind", "type"}),
		idle: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "shopstat",
			Name:      "idle_resources",
			Help:      "Resources without any assigned shift.",
		}, []string{"dataset", "kind", "type"}),
		shifts: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "shopstat",
			Name:      "total_shifts",
			Help:      "Reported total shifts per type.",
		}, []string{"dataset", "kind", "type"}),
		switches: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "shopstat",
			Name:      "command_switches",
			Help:      "Command switches per machine.",
		}, []string{"dataset", "asset_id"}),
		skipped: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "shopstat",
			Name:      "skipped_assignments",
			Help:      "Assignments dropped during normalization.",
		}, []string{"dataset"}),
		kpiPassed: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "shopstat",
			Name:      "kpi_rows",
			Help:      "KPI rows by outcome.",
		}, []string{"dataset", "passed"}),
	}
}

// Observe records rep under the dataset label.
func (m *Metrics) Observe(dataset string, rep engine.Report) {
	for _, stats := range [][]domain.UtilizationStat{rep.Machines, rep.Workers} {
		for _, st := range stats {
			m.resources.WithLabelValues(dataset, string(st.Kind), st.TypeName).Set(float64(st.TotalResources))
			m.idle.WithLabelValues(dataset, string(st.Kind), st.TypeName).Set(float64(st.IdleCount))
			m.shifts.WithLabelValues(dataset, string(st.Kind), st.TypeName).Set(float64(st.TotalShifts))
		}
	}
	for _, st := range rep.Switches {
		m.switches.WithLabelValues(dataset, st.AssetID).Set(float64(st.SwitchCount))
	}
	m.skipped.WithLabelValues(dataset).Set(float64(rep.Skipped))
	var passed, failed int
	for _, k := range rep.KPIs {
		if k.Passed {
			passed++
		} else {
			failed++
		}
	}
	m.kpiPassed.WithLabelValues(dataset, "true").Set(float64(passed))
	m.kpiPassed.WithLabelValues(dataset, "false").Set(float64(failed))
}

// WriteTextfile writes the registry in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
