package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

const (
	PolicyMax = "max"
	PolicySum = "sum"
)

// Config models shopstat.yml.
type Config struct {
	Shifts            map[int]ShiftWindow `yaml:"shifts" json:"shifts"`
	Timezone          string              `yaml:"timezone" json:"timezone"`
	UnspecifiedType   string              `yaml:"unspecified_type" json:"unspecified_type"`
	TotalShiftsPolicy string              `yaml:"total_shifts_policy" json:"total_shifts_policy"`
	IncludeIdle       bool                `yaml:"include_idle" json:"include_idle"`
	Inputs            Inputs              `yaml:"inputs" json:"inputs"`
	Outputs           Outputs             `yaml:"outputs" json:"outputs"`
}

type ShiftWindow struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

type Inputs struct {
	Schedule string `yaml:"schedule" json:"schedule"`
	Roster   string `yaml:"roster" json:"roster"`
}

type Outputs struct {
	Machines string `yaml:"machines" json:"machines"`
	Workers  string `yaml:"workers" json:"workers"`
	Switches string `yaml:"switches" json:"switches"`
	KPIs     string `yaml:"kpis" json:"kpis"`
	Slots    string `yaml:"slots" json:"slots"`
	Timeline string `yaml:"timeline" json:"timeline"`
	Workbook string `yaml:"workbook" json:"workbook"`
}

// Names lists output file names keyed by document.
func (o Outputs) Names() map[string]string {
	return map[string]string{
		"machines": o.Machines,
		"workers":  o.Workers,
		"switches": o.Switches,
		"kpis":     o.KPIs,
		"slots":    o.Slots,
		"timeline": o.Timeline,
		"workbook": o.Workbook,
	}
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with shopstat config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	var result *multierror.Error
	if len(c.Shifts) == 0 {
		result = multierror.Append(result, fmt.Errorf("config.shifts must define at least one shift"))
	}
	for n, w := range c.Shifts {
		if n <= 0 {
			result = multierror.Append(result, fmt.Errorf("shift %d: number must be positive", n))
		}
		start, startErr := ParseClock(w.Start)
		if startErr != nil {
			result = multierror.Append(result, fmt.Errorf("shift %d start: %w", n, startErr))
		}
		end, endErr := ParseClock(w.End)
		if endErr != nil {
			result = multierror.Append(result, fmt.Errorf("shift %d end: %w", n, endErr))
		}
		if startErr == nil && endErr == nil && start == end {
			result = multierror.Append(result, fmt.Errorf("shift %d: start and end are both %s", n, w.Start))
		}
	}
	if _, err := c.Location(); err != nil {
		result = multierror.Append(result, fmt.Errorf("config.timezone: %w", err))
	}
	if strings.TrimSpace(c.UnspecifiedType) == "" {
		result = multierror.Append(result, fmt.Errorf("config.unspecified_type is required"))
	}
	if c.TotalShiftsPolicy != PolicyMax && c.TotalShiftsPolicy != PolicySum {
		result = multierror.Append(result, fmt.Errorf("config.total_shifts_policy must be %q or %q", PolicyMax, PolicySum))
	}
	if c.Inputs.Schedule == "" || c.Inputs.Roster == "" {
		result = multierror.Append(result, fmt.Errorf("config.inputs.schedule and config.inputs.roster are required"))
	}
	seen := map[string]string{}
	for doc, name := range c.Outputs.Names() {
		if name == "" {
			result = multierror.Append(result, fmt.Errorf("config.outputs.%s is required", doc))
			continue
		}
		if other, ok := seen[name]; ok {
			result = multierror.Append(result, fmt.Errorf("config.outputs.%s and config.outputs.%s both write %s", other, doc, name))
		}
		seen[name] = doc
	}
	return result.ErrorOrNil()
}

// Location resolves the configured timezone; empty means UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ParseClock parses an HH:MM wall-clock offset into minutes after midnight.
// 24:00 is accepted as the end of the day.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid clock %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid clock %q: out of range", s)
	}
	return h*60 + m, nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "shopstat.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing from
// the document keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	defaults := cfg.Shifts
	// a shift table in the document replaces the default one instead of merging into it
	cfg.Shifts = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if cfg.Shifts == nil {
		cfg.Shifts = defaults
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `shifts:
  1: {start: "00:00", end: "06:00"}
  2: {start: "06:00", end: "12:00"}
  3: {start: "12:00", end: "18:00"}
  4: {start: "18:00", end: "24:00"}

timezone: UTC
unspecified_type: unspecified

# max reports the busiest resource's shift count per type; sum adds all of them.
total_shifts_policy: max
include_idle: true

inputs:
  schedule: schedule.json
  roster: input.json

outputs:
  machines: maymocthongke.json
  workers: nhanvienthongke.json
  switches: machine_command_switches.json
  kpis: kpi.json
  slots: slot_idle.json
  timeline: timeline.json
  workbook: report.xlsx
`
