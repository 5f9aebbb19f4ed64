package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"shopstat/internal/app"
	"shopstat/internal/config"
	"shopstat/internal/domain"
	"shopstat/internal/engine"
	"shopstat/internal/report"
)

const datasetEnv = "SHOPSTAT_DATASET"

var logger = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "shopstat",
	Short: "Production schedule statistics",
	Long: `shopstat reads a scheduler's schedule.json and input.json and derives reporting views:
- machines / workers: per-type utilization, busiest resource, idle resources.
- switches: how often each machine changes production command.
- kpi: achieved KPI values joined with their thresholds.
- slots: idle machines per day, shift and machine type.
- timeline: per-resource bars with absolute shift windows.
'shopstat run' writes every view as JSON documents next to the dataset.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if err := loadDotenv(workspace); err != nil {
			return err
		}
		return setupLogger(viper.GetString("log-level"), viper.GetString("log-format"))
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SHOPSTAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("config", "", "config file (default <workspace>/shopstat.yml)")
	rootCmd.PersistentFlags().StringP("dataset", "d", "", "dataset directory, relative to the workspace")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	for _, name := range []string{"workspace", "json", "config", "dataset", "log-level", "log-format"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(utilizationCmd(domain.KindMachine))
	rootCmd.AddCommand(utilizationCmd(domain.KindWorker))
	rootCmd.AddCommand(switchesCmd())
	rootCmd.AddCommand(kpiCmd())
	rootCmd.AddCommand(slotsCmd())
	rootCmd.AddCommand(topCmd())
	rootCmd.AddCommand(timelineCmd())
	rootCmd.AddCommand(diffCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(datasetCmd())
}

func runCmd() *cobra.Command {
	var outDir, metricsFile string
	var xlsx bool
	cmd := &cobra.Command{
		Use:   "run [dataset...]",
		Short: "Analyze datasets and write report documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				workspace := viper.GetString("workspace")
				if len(args) == 0 {
					args = []string{viper.GetString("dataset")}
				}
				var m *report.Metrics
				if metricsFile != "" {
					m = report.NewMetrics()
				}
				type row struct {
					Dataset  string   `json:"dataset"`
					RunID    string   `json:"run_id"`
					Machines int      `json:"machine_types"`
					Workers  int      `json:"worker_types"`
					Skipped  int      `json:"skipped_assignments"`
					Files    []string `json:"files"`
					Error    string   `json:"error,omitempty"`
				}
				var (
					rows []row
					errs *multierror.Error
				)
				for _, arg := range args {
					dir, err := app.ResolveDataset(workspace, arg)
					if err == nil {
						out := outDir
						if out != "" && len(args) > 1 {
							out = filepath.Join(out, filepath.Base(dir))
						}
						var (
							rep   engine.Report
							paths []string
						)
						rep, paths, err = app.Export(ctx, e, dir, out, xlsx, m)
						if err == nil {
							rows = append(rows, row{Dataset: dir, RunID: rep.RunID, Machines: len(rep.Machines), Workers: len(rep.Workers), Skipped: rep.Skipped, Files: paths})
							continue
						}
					}
					if errors.Is(err, context.Canceled) {
						return err
					}
					logger.WithField("dataset", arg).WithError(err).Warn("dataset failed, continuing")
					errs = multierror.Append(errs, err)
					rows = append(rows, row{Dataset: arg, Error: err.Error()})
				}
				if m != nil {
					if err := m.WriteTextfile(metricsFile); err != nil {
						return fmt.Errorf("write metrics: %w", err)
					}
				}
				if viper.GetBool("json") {
					if err := printJSON(rows); err != nil {
						return err
					}
					return errs.ErrorOrNil()
				}
				tw := newTable(table.Row{"Dataset", "Run", "Machine types", "Worker types", "Skipped", "Files", "Error"})
				for _, r := range rows {
					tw.AppendRow(table.Row{r.Dataset, r.RunID, r.Machines, r.Workers, r.Skipped, len(r.Files), r.Error})
				}
				tw.Render()
				return errs.ErrorOrNil()
			})
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default: the dataset directory)")
	cmd.Flags().BoolVar(&xlsx, "xlsx", false, "also write the spreadsheet workbook")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write run gauges to a Prometheus textfile")
	return cmd
}

func utilizationCmd(kind domain.ResourceKind) *cobra.Command {
	var typeQuery string
	use, noun := "machines", "Machines"
	if kind == domain.KindWorker {
		use, noun = "workers", "Workers"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Show %s utilization per type", kind),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReport(cmd.Context(), func(ctx context.Context, e engine.Engine, rep engine.Report) error {
				stats := rep.Machines
				if kind == domain.KindWorker {
					stats = rep.Workers
				}
				stats = filterTypes(report.SortUtilization(stats), typeQuery)
				if viper.GetBool("json") {
					data, err := report.MarshalUtilization(stats)
					if err != nil {
						return err
					}
					_, err = os.Stdout.Write(data)
					return err
				}
				tw := newTable(table.Row{"Type", noun, "Total shifts", "Time slots", "Busiest", "Idle"})
				for _, st := range stats {
					tw.AppendRow(table.Row{st.TypeName, st.TotalResources, st.TotalShifts, st.TotalTimeOperations, st.MaxShiftResource, st.IdleCount})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&typeQuery, "type", "", "fuzzy type filter")
	return cmd
}

// filterTypes keeps stats whose type name fuzzily contains query, ignoring
// case and diacritics.
func filterTypes(stats []domain.UtilizationStat, query string) []domain.UtilizationStat {
	if query == "" {
		return stats
	}
	var out []domain.UtilizationStat
	for _, st := range stats {
		if fuzzy.MatchNormalizedFold(query, st.TypeName) {
			out = append(out, st)
		}
	}
	return out
}

func switchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "switches",
		Short: "Show command switches per machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReport(cmd.Context(), func(ctx context.Context, e engine.Engine, rep engine.Report) error {
				if viper.GetBool("json") {
					data, err := report.MarshalSwitches(rep)
					if err != nil {
						return err
					}
					_, err = os.Stdout.Write(data)
					return err
				}
				tw := newTable(table.Row{"Machine", "Commands", "Switches", "Activities"})
				for _, st := range rep.Switches {
					tw.AppendRow(table.Row{st.AssetID, strings.Join(st.Commands, ", "), st.SwitchCount, len(st.Activities)})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func kpiCmd() *cobra.Command {
	var order string
	cmd := &cobra.Command{
		Use:   "kpi",
		Short: "Show achieved KPIs against their thresholds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReport(cmd.Context(), func(ctx context.Context, e engine.Engine, rep engine.Report) error {
				rows := rep.KPIs
				if order != "" {
					rows = []domain.KpiRow{}
					for _, r := range rep.KPIs {
						if r.ProductionOrderID == order {
							rows = append(rows, r)
						}
					}
				}
				summaries := engine.SummarizeKPIs(rows)
				if viper.GetBool("json") {
					return printJSON(report.KPIDoc{Rows: rows, Summaries: summaries})
				}
				tw := newTable(table.Row{"Order", "Operation", "KPI", "Name", "Weight", "Threshold", "Achieved", "Passed"})
				for _, r := range rows {
					tw.AppendRow(table.Row{r.ProductionOrderID, r.OperationID, r.KPIID, r.Name, r.Weight, r.Threshold, r.Achieved, r.Passed})
				}
				tw.Render()
				st := newTable(table.Row{"Order", "Rows", "Passed", "Weighted score"})
				for _, s := range summaries {
					score := "n/a"
					if s.WeightedScore != nil {
						score = fmt.Sprintf("%.2f", *s.WeightedScore)
					}
					st.AppendRow(table.Row{s.ProductionOrderID, s.Rows, s.Passed, score})
				}
				st.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&order, "command", "", "production order filter")
	return cmd
}

func slotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Show idle machines per day, shift and type",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReport(cmd.Context(), func(ctx context.Context, e engine.Engine, rep engine.Report) error {
				if viper.GetBool("json") {
					return printJSON(rep.Slots)
				}
				tw := newTable(table.Row{"Day", "Shift", "Type", "Used", "Total", "Idle", "Idle %"})
				for _, s := range rep.Slots {
					pct := "n/a"
					if s.IdlePercent != nil {
						pct = fmt.Sprintf("%.1f", *s.IdlePercent)
					}
					tw.AppendRow(table.Row{s.Day, s.Shift, s.Type, s.Used, s.Total, s.Idle, pct})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func topCmd() *cobra.Command {
	var n int
	var kind string
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the busiest resources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReport(cmd.Context(), func(ctx context.Context, e engine.Engine, rep engine.Report) error {
				stats := rep.Machines
				switch domain.ResourceKind(kind) {
				case domain.KindMachine:
				case domain.KindWorker:
					stats = rep.Workers
				default:
					return fmt.Errorf("unknown kind %q", kind)
				}
				top := engine.Top(stats, n)
				if viper.GetBool("json") {
					return printJSON(top)
				}
				tw := newTable(table.Row{"#", "ID", "Shifts"})
				for i, r := range top {
					tw.AppendRow(table.Row{i + 1, r.ID, r.Shifts})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 10, "number of resources")
	cmd.Flags().StringVar(&kind, "kind", string(domain.KindMachine), "machine or worker")
	return cmd
}

func timelineCmd() *cobra.Command {
	var resource string
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Show per-resource timeline items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReport(cmd.Context(), func(ctx context.Context, e engine.Engine, rep engine.Report) error {
				items := rep.Timeline
				if resource != "" {
					items = nil
					for _, it := range rep.Timeline {
						if it.ResourceID == resource {
							items = append(items, it)
						}
					}
				}
				if viper.GetBool("json") {
					data, err := report.MarshalTimeline(items)
					if err != nil {
						return err
					}
					_, err = os.Stdout.Write(data)
					return err
				}
				tw := newTable(table.Row{"Kind", "Resource", "Start", "End", "Operations", "Commands"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.Kind, it.ResourceID, it.Start.Format("2006-01-02 15:04"), it.End.Format("2006-01-02 15:04"),
						strings.Join(it.Operations, ", "), strings.Join(it.Commands, ", ")})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&resource, "resource", "", "only this machine or worker id")
	return cmd
}

func diffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <a.json> <b.json>",
		Short: "Compare two report documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			b, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			patch, err := report.Diff(a, b)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(patch)
			}
			if len(patch) == 0 {
				fmt.Println("no differences")
				return nil
			}
			tw := newTable(table.Row{"Op", "Path", "Old", "New"})
			for _, op := range patch {
				tw.AppendRow(table.Row{op.Type, op.Path, compact(op.OldValue), compact(op.Value)})
			}
			tw.Render()
			return nil
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect config",
		Long:  "Config holds the shift-time table, the sentinel type for unknown resources, the total_shifts policy and the input/output file names. It is read from shopstat.yml in the workspace.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSONOrTable(e.Config)
			})
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate config",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Config.Validate()
			})
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func datasetCmd() *cobra.Command {
	ds := &cobra.Command{Use: "dataset", Short: "Manage the default dataset"}
	ds.AddCommand(datasetUseCmd())
	return ds
}

func datasetUseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use <dir>",
		Short: "Set the default dataset for this workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := strings.TrimSpace(args[0])
			workspace := viper.GetString("workspace")
			if _, err := app.ResolveDataset(workspace, dir); err != nil {
				return err
			}
			envPath := filepath.Join(workspace, ".env")
			if err := setEnvValue(envPath, datasetEnv, dir); err != nil {
				return err
			}
			fmt.Printf("Set %s=%s in %s\n", datasetEnv, dir, envPath)
			return nil
		},
	}
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := app.ResolveConfig(workspace, viper.GetString("config"))
	if err != nil {
		return err
	}
	e, err := engine.New(cfg, logrus.NewEntry(logger))
	if err != nil {
		return err
	}
	return fn(ctx, e)
}

// withReport analyzes the selected dataset. Unreadable input has already been
// logged by Analyze and leaves an empty report.
func withReport(ctx context.Context, fn func(context.Context, engine.Engine, engine.Report) error) error {
	return withEngine(ctx, func(ctx context.Context, e engine.Engine) error {
		dir, err := app.ResolveDataset(viper.GetString("workspace"), viper.GetString("dataset"))
		if err != nil {
			return err
		}
		rep, err := app.Analyze(ctx, e, dir)
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fn(ctx, e, rep)
	})
}

func setupLogger(level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(lvl)
	logger.SetOutput(os.Stderr)
	switch format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}

// loadDotenv loads <workspace>/.env without overriding the environment.
func loadDotenv(workspace string) error {
	path := filepath.Join(workspace, ".env")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

func setEnvValue(path, key, value string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		env = map[string]string{}
	}
	env[key] = value
	return godotenv.Write(env, path)
}

func newTable(header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(header)
	return tw
}

func compact(v any) string {
	if v == nil {
		return ""
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
