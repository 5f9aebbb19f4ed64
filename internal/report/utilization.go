package report

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/tidwall/gjson"

	"shopstat/internal/domain"
)

type statKeys struct {
	typeName, total, maxShift, list, idle string
}

var keysByKind = map[domain.ResourceKind]statKeys{
	domain.KindMachine: {"machineTypeName", "total_machines", "max_shift_machine", "machines", "idleMachines"},
	domain.KindWorker:  {"workerTypeName", "total_workers", "max_shift_worker", "workers", "idleWorkers"},
}

// object writes JSON object members in call order.
type object struct {
	buf bytes.Buffer
	err error
}

func (o *object) set(key string, v any) {
	if o.err != nil {
		return
	}
	if o.buf.Len() == 0 {
		o.buf.WriteByte('{')
	} else {
		o.buf.WriteByte(',')
	}
	k, _ := json.Marshal(key)
	o.buf.Write(k)
	o.buf.WriteByte(':')
	data, err := json.Marshal(v)
	if err != nil {
		o.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	o.buf.Write(data)
}

func (o *object) raw() (json.RawMessage, error) {
	if o.err != nil {
		return nil, o.err
	}
	if o.buf.Len() == 0 {
		return json.RawMessage("{}"), nil
	}
	o.buf.WriteByte('}')
	return json.RawMessage(o.buf.Bytes()), nil
}

// SortUtilization orders stats by total shifts, highest first. Ties keep
// their input order.
func SortUtilization(stats []domain.UtilizationStat) []domain.UtilizationStat {
	out := slices.Clone(stats)
	slices.SortStableFunc(out, func(a, b domain.UtilizationStat) int {
		return cmp.Compare(b.TotalShifts, a.TotalShifts)
	})
	return out
}

func marshalStat(st domain.UtilizationStat) (json.RawMessage, error) {
	k, ok := keysByKind[st.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown resource kind %q", st.Kind)
	}
	resources := &object{}
	for _, r := range st.Resources {
		resources.set(r.ID, r.Shifts)
	}
	list, err := resources.raw()
	if err != nil {
		return nil, err
	}
	o := &object{}
	o.set(k.typeName, st.TypeName)
	o.set("total_time_operations", st.TotalTimeOperations)
	o.set(k.total, st.TotalResources)
	o.set("total_shifts", st.TotalShifts)
	o.set(k.maxShift, st.MaxShiftResource)
	o.set(k.list, list)
	o.set(k.idle, st.IdleCount)
	return o.raw()
}

// MarshalUtilization encodes stats sorted by SortUtilization. Per-resource
// counts keep their insertion order.
func MarshalUtilization(stats []domain.UtilizationStat) ([]byte, error) {
	items := make([]json.RawMessage, 0, len(stats))
	for _, st := range SortUtilization(stats) {
		raw, err := marshalStat(st)
		if err != nil {
			return nil, err
		}
		items = append(items, raw)
	}
	return encode(items)
}

// ReadUtilization decodes a machine or worker utilization document. The
// resource kind of each entry is taken from its type-name key.
func ReadUtilization(data []byte) ([]domain.UtilizationStat, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid json")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, errors.New("utilization document must be an array")
	}
	out := []domain.UtilizationStat{}
	var err error
	doc.ForEach(func(_, item gjson.Result) bool {
		var st domain.UtilizationStat
		st, err = readStat(item)
		if err != nil {
			err = fmt.Errorf("entry %d: %w", len(out), err)
			return false
		}
		out = append(out, st)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func readStat(item gjson.Result) (domain.UtilizationStat, error) {
	var kind domain.ResourceKind
	for _, candidate := range []domain.ResourceKind{domain.KindMachine, domain.KindWorker} {
		if item.Get(keysByKind[candidate].typeName).Exists() {
			kind = candidate
			break
		}
	}
	if kind == "" {
		return domain.UtilizationStat{}, errors.New("missing type name")
	}
	k := keysByKind[kind]
	st := domain.UtilizationStat{
		Kind:                kind,
		TypeName:            item.Get(k.typeName).String(),
		TotalResources:      int(item.Get(k.total).Int()),
		TotalShifts:         int(item.Get("total_shifts").Int()),
		TotalTimeOperations: int(item.Get("total_time_operations").Int()),
		MaxShiftResource:    item.Get(k.maxShift).String(),
		IdleCount:           int(item.Get(k.idle).Int()),
		Resources:           []domain.ResourceCount{},
	}
	list := item.Get(k.list)
	if list.Exists() && !list.IsObject() {
		return st, fmt.Errorf("%s must be an object", k.list)
	}
	list.ForEach(func(id, n gjson.Result) bool {
		st.Resources = append(st.Resources, domain.ResourceCount{ID: id.String(), Shifts: int(n.Int())})
		return true
	})
	return st, nil
}
