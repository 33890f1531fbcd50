// Package panel normalizes raw sales rows into the canonical panel of
// (parts_id, date, volume) records the rest of the pipeline works on.
package panel

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HatiCode/demandcast/pkg/adapters"
	"github.com/HatiCode/demandcast/pkg/domain"
)

// Column names expected in raw rows after flattening.
const (
	ColumnPartsID = "parts_id"
	ColumnDate    = "date"
	ColumnVolume  = "volume"
)

var (
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
	minInt64 = decimal.NewFromInt(math.MinInt64)
)

// Builder converts raw rows into a Panel.
type Builder struct{}

// NewBuilder creates a new panel builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build normalizes rows into a Panel, preserving input order.
//
// Nested objects are flattened into dotted column names first. Each row must
// carry parts_id, date and volume; volume must denote an integer. The first
// row that violates this aborts the build with a *domain.SchemaError and no
// panel is returned.
func (b *Builder) Build(rows []adapters.Row) (*domain.Panel, error) {
	records := make([]domain.Record, 0, len(rows))

	for i, raw := range rows {
		row := flatten(raw)

		idRaw, ok := row[ColumnPartsID]
		if !ok {
			return nil, &domain.SchemaError{Row: i, Column: ColumnPartsID, Reason: "missing column"}
		}
		id, err := coerceID(idRaw)
		if err != nil {
			return nil, &domain.SchemaError{Row: i, Column: ColumnPartsID, Value: idRaw, Reason: err.Error()}
		}

		dateRaw, ok := row[ColumnDate]
		if !ok {
			return nil, &domain.SchemaError{Row: i, Column: ColumnDate, Reason: "missing column"}
		}
		date, err := parseDate(dateRaw)
		if err != nil {
			return nil, &domain.SchemaError{Row: i, Column: ColumnDate, Value: dateRaw, Reason: err.Error()}
		}

		volumeRaw, ok := row[ColumnVolume]
		if !ok {
			return nil, &domain.SchemaError{Row: i, Column: ColumnVolume, Reason: "missing column"}
		}
		volume, err := coerceVolume(volumeRaw)
		if err != nil {
			return nil, &domain.SchemaError{Row: i, Column: ColumnVolume, Value: volumeRaw, Reason: err.Error()}
		}

		records = append(records, domain.Record{
			PartsID: id,
			Date:    date,
			Volume:  volume,
		})
	}

	return &domain.Panel{Records: records}, nil
}

// flatten expands nested maps into dotted keys, e.g. {"a": {"b": 1}} becomes
// {"a.b": 1}. Rows without nesting are returned as-is.
func flatten(row adapters.Row) map[string]any {
	nested := false
	for _, v := range row {
		if isMap(v) {
			nested = true
			break
		}
	}
	if !nested {
		return row
	}

	out := make(map[string]any, len(row))
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			switch child := v.(type) {
			case map[string]any:
				walk(key, child)
			case adapters.Row:
				walk(key, child)
			default:
				out[key] = v
			}
		}
	}
	walk("", row)
	return out
}

func isMap(v any) bool {
	switch v.(type) {
	case map[string]any, adapters.Row:
		return true
	}
	return false
}

// coerceID normalizes a series identifier to its string form.
func coerceID(v any) (domain.SeriesID, error) {
	switch val := v.(type) {
	case nil:
		return "", fmt.Errorf("null identifier")
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return "", fmt.Errorf("empty identifier")
		}
		return domain.SeriesID(s), nil
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil || !d.IsInteger() {
			return domain.SeriesID(val.String()), nil
		}
		return domain.SeriesID(d.String()), nil
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) || val != math.Trunc(val) {
			return "", fmt.Errorf("non-integral numeric identifier")
		}
		d := decimal.NewFromFloat(val)
		if d.GreaterThan(maxInt64) || d.LessThan(minInt64) {
			return "", fmt.Errorf("numeric identifier out of range")
		}
		return domain.SeriesID(strconv.FormatInt(d.IntPart(), 10)), nil
	case float32:
		return coerceID(float64(val))
	default:
		if n, ok := asInt64(v); ok {
			return domain.SeriesID(strconv.FormatInt(n, 10)), nil
		}
		return "", fmt.Errorf("unsupported identifier type %T", v)
	}
}

// coerceVolume converts a volume cell to an integer. Values that do not
// denote a whole number are rejected rather than truncated.
func coerceVolume(v any) (int64, error) {
	var d decimal.Decimal

	switch val := v.(type) {
	case nil:
		return 0, fmt.Errorf("null volume")
	case bool:
		return 0, fmt.Errorf("boolean volume")
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, fmt.Errorf("empty volume")
		}
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return 0, fmt.Errorf("non-numeric volume")
		}
		d = parsed
	case []byte:
		return coerceVolume(string(val))
	case json.Number:
		return coerceVolume(val.String())
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, fmt.Errorf("non-finite volume")
		}
		d = decimal.NewFromFloat(val)
	case float32:
		return coerceVolume(float64(val))
	case fmt.Stringer:
		return coerceVolume(val.String())
	default:
		n, ok := asInt64(v)
		if !ok {
			return 0, fmt.Errorf("unsupported volume type %T", v)
		}
		return n, nil
	}

	if !d.IsInteger() {
		return 0, fmt.Errorf("volume is not an integer")
	}
	if d.GreaterThan(maxInt64) || d.LessThan(minInt64) {
		return 0, fmt.Errorf("volume out of range")
	}
	return d.IntPart(), nil
}

func asInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint:
		if uint64(val) > math.MaxInt64 {
			return 0, false
		}
		return int64(val), true
	case uint64:
		if val > math.MaxInt64 {
			return 0, false
		}
		return int64(val), true
	default:
		return 0, false
	}
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
}

// parseDate accepts time.Time values and the textual layouts Postgres and
// PostgREST produce for date and timestamp columns.
func parseDate(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val.UTC(), nil
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date format")
	case []byte:
		return parseDate(string(val))
	default:
		return time.Time{}, fmt.Errorf("unsupported date type %T", v)
	}
}
