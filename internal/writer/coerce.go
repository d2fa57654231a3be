package writer

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/bag-trend-collector/internal/collector"
)

// Canonical cell layouts.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = time.RFC3339
)

// Coerce converts every cell into the canonical storage form for its column:
// text as string, ints as int64, floats as float64, bools, dates and
// timestamps as strings. Missing values, including NaN and infinities,
// become nil.
func Coerce(table collector.Table, rows []collector.Row) ([]collector.Row, error) {
	out := make([]collector.Row, len(rows))
	for i, row := range rows {
		if len(row) != len(table.Columns) {
			return nil, fmt.Errorf("table %s row %d: got %d cells, want %d", table.Name, i, len(row), len(table.Columns))
		}
		coerced := make(collector.Row, len(row))
		for j, cell := range row {
			col := table.Columns[j]
			v, err := coerceCell(col.Kind, cell)
			if err != nil {
				return nil, fmt.Errorf("table %s row %d column %s: %w", table.Name, i, col.Name, err)
			}
			coerced[j] = v
		}
		out[i] = coerced
	}
	return out, nil
}

func coerceCell(kind collector.ColumnKind, cell any) (any, error) {
	cell = deref(cell)
	if cell == nil {
		return nil, nil
	}
	switch kind {
	case collector.KindText:
		return toText(cell), nil
	case collector.KindInt:
		return toInt(cell)
	case collector.KindFloat:
		return toFloat(cell)
	case collector.KindBool:
		return toBool(cell)
	case collector.KindDate:
		return toTime(cell, DateLayout)
	case collector.KindTimestamp:
		return toTime(cell, TimestampLayout)
	default:
		return nil, fmt.Errorf("unknown column kind %d", kind)
	}
}

func deref(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	return rv.Interface()
}

func toText(v any) any {
	switch c := v.(type) {
	case string:
		return c
	case float64:
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil
		}
		return fmt.Sprint(c)
	case float32:
		return toText(float64(c))
	case fmt.Stringer:
		return c.String()
	default:
		return fmt.Sprint(c)
	}
}

func toInt(v any) (any, error) {
	switch c := v.(type) {
	case int:
		return int64(c), nil
	case int32:
		return int64(c), nil
	case int64:
		return c, nil
	case float32:
		return toInt(float64(c))
	case float64:
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, nil
		}
		return int64(math.Round(c)), nil
	case string:
		s := strings.TrimSpace(c)
		if s == "" || isMissingMarker(s) {
			return nil, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %q", c)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("cannot store %T as integer", v)
	}
}

func toFloat(v any) (any, error) {
	var f float64
	switch c := v.(type) {
	case float64:
		f = c
	case float32:
		f = float64(c)
	case int:
		f = float64(c)
	case int64:
		f = float64(c)
	case string:
		s := strings.TrimSpace(c)
		if s == "" || isMissingMarker(s) {
			return nil, nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", c)
		}
		f = parsed
	default:
		return nil, fmt.Errorf("cannot store %T as float", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, nil
	}
	return f, nil
}

func toBool(v any) (any, error) {
	switch c := v.(type) {
	case bool:
		return c, nil
	case string:
		if strings.TrimSpace(c) == "" {
			return nil, nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(c))
		if err != nil {
			return nil, fmt.Errorf("not a boolean: %q", c)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("cannot store %T as boolean", v)
	}
}

func toTime(v any, layout string) (any, error) {
	switch c := v.(type) {
	case time.Time:
		if c.IsZero() {
			return nil, nil
		}
		return c.UTC().Format(layout), nil
	case string:
		s := strings.TrimSpace(c)
		if s == "" || isMissingMarker(s) {
			return nil, nil
		}
		t, err := parseTime(s)
		if err != nil {
			return nil, err
		}
		return t.UTC().Format(layout), nil
	default:
		return nil, fmt.Errorf("cannot store %T as time", v)
	}
}

// parseTime accepts text already in one of the canonical layouts.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("not a canonical date or timestamp: %q", s)
}

// isMissingMarker matches the textual NaN spellings that must not reach a
// table.
func isMissingMarker(s string) bool {
	switch strings.ToLower(s) {
	case "nan", "nat", "null", "none", "<na>":
		return true
	default:
		return false
	}
}
