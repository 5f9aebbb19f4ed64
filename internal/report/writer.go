package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"shopstat/internal/config"
	"shopstat/internal/engine"
)

// Writer writes report documents into one output directory.
type Writer struct {
	Dir string
}

func (w Writer) Path(name string) string {
	if filepath.IsAbs(name) || w.Dir == "" {
		return name
	}
	return filepath.Join(w.Dir, name)
}

// EnsureDir creates the output directory when missing.
func (w Writer) EnsureDir() error {
	if w.Dir == "" {
		return nil
	}
	return os.MkdirAll(w.Dir, 0o755)
}

// WriteFile replaces name atomically.
func (w Writer) WriteFile(name string, data []byte) error {
	path := w.Path(name)
	tmp, err := os.CreateTemp(filepath.Dir(path), ".shopstat-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// WriteAll writes every JSON document of rep and returns the written paths.
// The workbook is written only when out.Workbook is set and xlsx is true.
func (w Writer) WriteAll(rep engine.Report, out config.Outputs, xlsx bool) ([]string, error) {
	if err := w.EnsureDir(); err != nil {
		return nil, err
	}
	docs := []struct {
		name   string
		encode func() ([]byte, error)
	}{
		{out.Machines, func() ([]byte, error) { return MarshalUtilization(rep.Machines) }},
		{out.Workers, func() ([]byte, error) { return MarshalUtilization(rep.Workers) }},
		{out.Switches, func() ([]byte, error) { return MarshalSwitches(rep) }},
		{out.KPIs, func() ([]byte, error) { return encode(KPIDoc{Rows: rep.KPIs, Summaries: rep.KPISummaries}) }},
		{out.Slots, func() ([]byte, error) { return encode(rep.Slots) }},
		{out.Timeline, func() ([]byte, error) { return MarshalTimeline(rep.Timeline) }},
	}
	var paths []string
	for _, d := range docs {
		if d.name == "" {
			continue
		}
		data, err := d.encode()
		if err != nil {
			return paths, fmt.Errorf("encode %s: %w", d.name, err)
		}
		if err := w.WriteFile(d.name, data); err != nil {
			return paths, fmt.Errorf("write %s: %w", d.name, err)
		}
		paths = append(paths, w.Path(d.name))
	}
	if xlsx {
		if out.Workbook == "" {
			return paths, errors.New("config.outputs.workbook is empty")
		}
		if err := WriteWorkbook(w.Path(out.Workbook), rep); err != nil {
			return paths, fmt.Errorf("write %s: %w", out.Workbook, err)
		}
		paths = append(paths, w.Path(out.Workbook))
	}
	return paths, nil
}

func encode(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
