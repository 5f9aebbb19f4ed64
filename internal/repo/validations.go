package repo

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/exp/maps"

	"shopstat/internal/domain"
)

const achievedPrefix = "achieved_kpi_"

var validate = validator.New(validator.WithRequiredStructEnabled())

// extractAchievements turns achieved_kpi_<n> keys into an index-ordered list.
// Null values count as absent; non-numeric values are reported and skipped.
// Keys naming the same index (achieved_kpi_1, achieved_kpi_01) are ambiguous
// and dropped with an error.
func extractAchievements(extra map[string]any) ([]domain.Achievement, error) {
	var errs *multierror.Error
	keysByIndex := map[int][]string{}
	extraKeys := maps.Keys(extra)
	slices.Sort(extraKeys)
	for _, key := range extraKeys {
		suffix, ok := strings.CutPrefix(key, achievedPrefix)
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(suffix)
		if err != nil || idx < 0 {
			errs = multierror.Append(errs, fmt.Errorf("%s: invalid kpi index", key))
			continue
		}
		keysByIndex[idx] = append(keysByIndex[idx], key)
	}

	var out []domain.Achievement
	indexes := maps.Keys(keysByIndex)
	slices.Sort(indexes)
	for _, idx := range indexes {
		keys := keysByIndex[idx]
		if len(keys) > 1 {
			errs = multierror.Append(errs, fmt.Errorf("%s: duplicate kpi index %d", strings.Join(keys, ", "), idx))
			continue
		}
		raw := extra[keys[0]]
		if raw == nil {
			continue
		}
		v, ok := toFloat(raw)
		if !ok {
			errs = multierror.Append(errs, fmt.Errorf("%s: non-numeric value %v", keys[0], raw))
			continue
		}
		out = append(out, domain.Achievement{Index: idx, Value: v})
	}
	return out, errs.ErrorOrNil()
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
