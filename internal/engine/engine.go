package engine

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"shopstat/internal/config"
	"shopstat/internal/domain"
	"shopstat/internal/resource"
	"shopstat/internal/shift"
)

// Engine derives reporting views from one schedule and roster. It keeps no
// state between calls.
type Engine struct {
	Config *config.Config
	Shifts *shift.Table
	Log    *logrus.Entry
	Now    func() time.Time
}

func New(cfg *config.Config, log *logrus.Entry) (Engine, error) {
	if cfg == nil {
		return Engine{}, errors.New("config not loaded")
	}
	tbl, err := shift.NewTable(cfg)
	if err != nil {
		return Engine{}, err
	}
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = logrus.NewEntry(l)
	}
	return Engine{
		Config: cfg,
		Shifts: tbl,
		Log:    log,
		Now:    time.Now,
	}, nil
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Input is everything one aggregation run reads.
type Input struct {
	Schedule []domain.ScheduleEntry
	Roster   domain.Roster
	// Digests identify the source documents; they seed the run id.
	Digests []string
}

// Report holds every view built by one run.
type Report struct {
	RunID        string                      `json:"run_id"`
	GeneratedAt  time.Time                   `json:"generated_at"`
	Machines     []domain.UtilizationStat    `json:"-"`
	Workers      []domain.UtilizationStat    `json:"-"`
	Switches     []domain.CommandSwitchStat  `json:"switches"`
	KPIs         []domain.KpiRow             `json:"kpis"`
	KPISummaries []domain.KpiSummary         `json:"kpi_summaries"`
	Slots        []domain.SlotIdle           `json:"slots"`
	Timeline     []domain.TimelineItem       `json:"timeline"`
	Skipped      int                         `json:"skipped_assignments"`
	Synthesized  map[domain.ResourceKind]int `json:"synthesized"`
}

// Empty is the report of a run that had no usable input.
func Empty(now time.Time) Report {
	return Report{
		GeneratedAt:  now.UTC(),
		Machines:     []domain.UtilizationStat{},
		Workers:      []domain.UtilizationStat{},
		Switches:     []domain.CommandSwitchStat{},
		KPIs:         []domain.KpiRow{},
		KPISummaries: []domain.KpiSummary{},
		Slots:        []domain.SlotIdle{},
		Timeline:     []domain.TimelineItem{},
		Synthesized:  map[domain.ResourceKind]int{},
	}
}

// RunID derives a stable id from the input digests.
func RunID(digests ...string) string {
	var b []byte
	for _, d := range digests {
		b = append(b, d...)
		b = append(b, '|')
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, b).String()
}

// Run normalizes the schedule once and feeds every aggregator from it.
func (e Engine) Run(in Input) Report {
	rep := Empty(e.now())
	rep.RunID = RunID(in.Digests...)

	acts, skipped := e.Normalize(in.Schedule)
	rep.Skipped = skipped
	ops := operationsByID(in.Roster.Operations)

	machines := resource.Build(domain.KindMachine, in.Roster.Assets, resource.Referenced(domain.KindMachine, in.Schedule), e.Config.UnspecifiedType)
	workers := resource.Build(domain.KindWorker, in.Roster.Workers, resource.Referenced(domain.KindWorker, in.Schedule), e.Config.UnspecifiedType)
	for _, idx := range []*resource.Index{machines, workers} {
		if n := len(idx.Synthesized()); n > 0 {
			rep.Synthesized[idx.Kind] = n
			e.Log.WithFields(logrus.Fields{"kind": idx.Kind, "count": n}).Info("resources missing from roster added as " + idx.Sentinel)
		}
	}

	mp := e.utilization(domain.KindMachine, acts, ops, machines)
	rep.Machines = mp.stats
	rep.Workers = e.utilization(domain.KindWorker, acts, ops, workers).stats
	rep.Slots = slotIdle(domain.KindMachine, acts, mp, machines)
	rep.Switches = e.CommandSwitches(acts)
	rep.KPIs = e.KPIs(in.Roster.Operations, in.Schedule, "")
	rep.KPISummaries = SummarizeKPIs(rep.KPIs)
	rep.Timeline = e.Timeline(acts)
	return rep
}

// Normalize flattens the schedule into activities. Assignments with an
// unknown shift number or an unparsable day are skipped and logged.
func (e Engine) Normalize(entries []domain.ScheduleEntry) ([]domain.Activity, int) {
	var (
		acts    []domain.Activity
		skipped int
	)
	for _, entry := range entries {
		for _, a := range entry.DetailedSchedule {
			date, err := shift.ParseDay(a.Day)
			var start, end time.Time
			if err == nil {
				start, end, err = e.Shifts.At(date, a.Shift)
			}
			if err != nil {
				skipped++
				e.Log.WithFields(logrus.Fields{
					"operation_id": entry.ID,
					"day":          a.Day,
					"shift":        a.Shift,
				}).WithError(err).Warn("skipping assignment")
				continue
			}
			acts = append(acts, domain.Activity{
				OperationID: entry.ID,
				CommandID:   entry.CommandID,
				Day:         a.Day,
				Date:        date,
				Shift:       a.Shift,
				Slot:        shift.Key(a.Day, a.Shift),
				WorkerID:    a.WorkerID,
				AssetID:     a.AssetID,
				Start:       start,
				End:         end,
			})
		}
	}
	return acts, skipped
}

func operationsByID(ops []domain.Operation) map[string]domain.Operation {
	m := make(map[string]domain.Operation, len(ops))
	for _, op := range ops {
		if _, ok := m[op.ID]; !ok {
			m[op.ID] = op
		}
	}
	return m
}
