package ingest

import (
	"strconv"
	"strings"
	"time"
)

// Answers arrive as decoded JSON, so scalar values may be strings, numbers or
// booleans. Coercion is deliberately lenient: a value that cannot be read as
// the question's kind stores as empty instead of failing the submission.

const maxTextLength = 4000

func parseNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	}
	return 0, false
}

func toText(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func parseID(value any) (int, bool) {
	switch v := value.(type) {
	case float64:
		id := int(v)
		return id, float64(id) == v
	case int:
		return v, true
	case string:
		id, err := strconv.Atoi(strings.TrimSpace(v))
		return id, err == nil
	}
	return 0, false
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "02/01/2006"}

func parseDate(value any) (time.Time, bool) {
	s, ok := value.(string)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

var timeLayouts = []string{"15:04:05", "15:04"}

// parseTimeOfDay normalizes to "HH:MM:SS".
func parseTimeOfDay(value any) (string, bool) {
	s, ok := value.(string)
	if !ok {
		return "", false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t.Format("15:04:05"), true
		}
	}
	return "", false
}

func parseBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "si", "yes":
			return true, true
		case "false", "0", "no":
			return false, true
		}
	}
	return false, false
}
