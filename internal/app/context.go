package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"shopstat/internal/config"
	"shopstat/internal/engine"
	"shopstat/internal/repo"
	"shopstat/internal/report"
)

// ResolveConfig picks the active config: an explicit path wins, then the
// workspace shopstat.yml, then defaults.
func ResolveConfig(workspace, override string) (*config.Config, error) {
	if override != "" {
		cfg, err := config.FromFile(override)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", override, err)
		}
		return cfg, nil
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", config.Path(workspace), err)
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

// ResolveDataset returns the dataset directory to read. A relative override
// is taken from the workspace; an empty one means the workspace itself.
func ResolveDataset(workspace, override string) (string, error) {
	if workspace == "" {
		workspace = "."
	}
	dir := override
	if dir == "" {
		dir = workspace
	} else if !filepath.IsAbs(dir) {
		dir = filepath.Join(workspace, dir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("dataset %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("dataset %s is not a directory", dir)
	}
	return dir, nil
}

// Analyze loads one dataset and runs every aggregator over it. Input that
// cannot be read or decoded yields an empty report; the cause is logged and
// returned as the second value so callers may report it.
func Analyze(ctx context.Context, eng engine.Engine, dataset string) (engine.Report, error) {
	log := eng.Log.WithField("dataset", dataset)
	eng.Log = log
	r := repo.Repo{Dir: dataset}

	sched, err := r.LoadSchedule(ctx, eng.Config.Inputs.Schedule)
	if err != nil {
		return degraded(eng, log, err), err
	}
	roster, err := r.LoadRoster(ctx, eng.Config.Inputs.Roster)
	if err != nil {
		return degraded(eng, log, err), err
	}
	logRejected(log, sched.Rejected)
	logRejected(log, roster.Rejected)

	rep := eng.Run(engine.Input{
		Schedule: sched.Entries,
		Roster:   roster.Roster,
		Digests:  []string{sched.Digest, roster.Digest},
	})
	log.WithFields(logrus.Fields{
		"run_id":   rep.RunID,
		"machines": len(rep.Switches),
		"skipped":  rep.Skipped,
	}).Debug("dataset analyzed")
	return rep, nil
}

func degraded(eng engine.Engine, log *logrus.Entry, err error) engine.Report {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.WithError(err).Warn("analysis canceled")
	} else {
		log.WithError(err).Warn("input unavailable, writing empty report")
	}
	return eng.Run(engine.Input{})
}

func logRejected(log *logrus.Entry, rejected *multierror.Error) {
	if rejected == nil {
		return
	}
	for _, err := range rejected.Errors {
		log.WithError(err).Warn("record rejected")
	}
}

// Export analyzes dataset and writes every report document into outDir.
// Metrics, when given, observe the report under the dataset name.
func Export(ctx context.Context, eng engine.Engine, dataset, outDir string, xlsx bool, m *report.Metrics) (engine.Report, []string, error) {
	rep, _ := Analyze(ctx, eng, dataset)
	if err := ctx.Err(); err != nil {
		return rep, nil, err
	}
	if outDir == "" {
		outDir = dataset
	}
	paths, err := report.Writer{Dir: outDir}.WriteAll(rep, eng.Config.Outputs, xlsx)
	if err != nil {
		return rep, paths, err
	}
	if m != nil {
		m.Observe(filepath.Base(dataset), rep)
	}
	return rep, paths, nil
}
