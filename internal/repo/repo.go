package repo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"

	"shopstat/internal/domain"
)

// Repo reads scheduler artifacts from a dataset directory.
type Repo struct {
	Dir string
}

var ErrNotFound = errors.New("not found")

// ScheduleDoc is a decoded schedule.json.
type ScheduleDoc struct {
	Entries []domain.ScheduleEntry
	// Rejected collects records or fields dropped while loading.
	Rejected *multierror.Error
	Digest   string
}

// RosterDoc is a decoded roster/input document.
type RosterDoc struct {
	Roster   domain.Roster
	Rejected *multierror.Error
	Digest   string
}

type rawRoster struct {
	Operations []map[string]any `json:"operations"`
	Workers    []map[string]any `json:"workers"`
	Assets     []map[string]any `json:"assets"`
}

type rawWorker struct {
	ID         string         `mapstructure:"id"`
	Name       string         `mapstructure:"name"`
	Position   string         `mapstructure:"position"`
	WorkerType string         `mapstructure:"workerType"`
	Rest       map[string]any `mapstructure:",remain"`
}

type rawAsset struct {
	ID          string         `mapstructure:"id"`
	Name        string         `mapstructure:"name"`
	MachineType string         `mapstructure:"machineType"`
	Rest        map[string]any `mapstructure:",remain"`
}

func (r Repo) path(name string) string {
	if filepath.IsAbs(name) || r.Dir == "" {
		return name
	}
	return filepath.Join(r.Dir, name)
}

func (r Repo) read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := r.path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// LoadSchedule decodes the schedule document. Invalid records are dropped and
// reported through Rejected; a missing or malformed file is an error.
func (r Repo) LoadSchedule(ctx context.Context, name string) (ScheduleDoc, error) {
	data, err := r.read(ctx, name)
	if err != nil {
		return ScheduleDoc{}, err
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return ScheduleDoc{}, fmt.Errorf("decode schedule %s: %w", r.path(name), err)
	}
	doc := ScheduleDoc{Digest: digest(data)}
	for i, item := range raw {
		var e domain.ScheduleEntry
		if err := decode(item, &e, "mapstructure"); err != nil {
			doc.Rejected = multierror.Append(doc.Rejected, fmt.Errorf("schedule[%d]: %w", i, err))
			continue
		}
		if err := validate.Struct(e); err != nil {
			doc.Rejected = multierror.Append(doc.Rejected, fmt.Errorf("schedule[%d]: %w", i, err))
			continue
		}
		achievements, err := extractAchievements(e.Extra)
		if err != nil {
			doc.Rejected = multierror.Append(doc.Rejected, fmt.Errorf("operation %s: %w", e.ID, err))
		}
		e.Achievements = achievements
		doc.Entries = append(doc.Entries, e)
	}
	return doc, nil
}

// LoadRoster decodes the roster document with operations, workers and assets.
func (r Repo) LoadRoster(ctx context.Context, name string) (RosterDoc, error) {
	data, err := r.read(ctx, name)
	if err != nil {
		return RosterDoc{}, err
	}
	var raw rawRoster
	if err := json.Unmarshal(data, &raw); err != nil {
		return RosterDoc{}, fmt.Errorf("decode roster %s: %w", r.path(name), err)
	}
	doc := RosterDoc{Digest: digest(data)}
	for i, item := range raw.Operations {
		var op domain.Operation
		if err := decode(item, &op, "json"); err != nil {
			doc.Rejected = multierror.Append(doc.Rejected, fmt.Errorf("operations[%d]: %w", i, err))
			continue
		}
		if err := validate.Struct(op); err != nil {
			doc.Rejected = multierror.Append(doc.Rejected, fmt.Errorf("operations[%d]: %w", i, err))
			continue
		}
		doc.Roster.Operations = append(doc.Roster.Operations, op)
	}
	for i, item := range raw.Workers {
		var w rawWorker
		if err := decode(item, &w, "mapstructure"); err != nil {
			doc.Rejected = multierror.Append(doc.Rejected, fmt.Errorf("workers[%d]: %w", i, err))
			continue
		}
		typ := w.Position
		if typ == "" {
			typ = w.WorkerType
		}
		res := domain.Resource{ID: w.ID, Type: typ, Name: w.Name, Attributes: w.Rest}
		if err := validate.Struct(res); err != nil {
			doc.Rejected = multierror.Append(doc.Rejected, fmt.Errorf("workers[%d]: %w", i, err))
			continue
		}
		doc.Roster.Workers = append(doc.Roster.Workers, res)
	}
	for i, item := range raw.Assets {
		var a rawAsset
		if err := decode(item, &a, "mapstructure"); err != nil {
			doc.Rejected = multierror.Append(doc.Rejected, fmt.Errorf("assets[%d]: %w", i, err))
			continue
		}
		res := domain.Resource{ID: a.ID, Type: a.MachineType, Name: a.Name, Attributes: a.Rest}
		if err := validate.Struct(res); err != nil {
			doc.Rejected = multierror.Append(doc.Rejected, fmt.Errorf("assets[%d]: %w", i, err))
			continue
		}
		doc.Roster.Assets = append(doc.Roster.Assets, res)
	}
	return doc, nil
}

func decode(input any, out any, tag string) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          tag,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
