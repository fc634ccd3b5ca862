package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// nullTokens are string forms that coerce to null, mirroring the usual
// missing-value spellings in exported tabular data.
var nullTokens = map[string]bool{
	"":     true,
	"nan":  true,
	"null": true,
	"none": true,
	"n/a":  true,
	"na":   true,
}

// coerceCell converts a raw parsed cell into a storage-safe scalar:
// nil, bool, int64, float64 or string (timestamps become ISO-8601 strings).
// First matching rule wins.
func coerceCell(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return coerceString(t)
	case bool:
		return t
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return coerceFloat(t)
	case time.Time:
		return isoTimestamp(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func coerceString(s string) any {
	trimmed := strings.TrimSpace(s)
	if nullTokens[strings.ToLower(trimmed)] {
		return nil
	}

	switch strings.ToLower(trimmed) {
	case "true":
		return true
	case "false":
		return false
	}

	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		// ParseFloat accepts "Inf" and friends, which JSON cannot carry.
		if !math.IsInf(f, 0) && !math.IsNaN(f) && looksNumeric(trimmed) {
			return f
		}
	}

	return s
}

// looksNumeric guards against ParseFloat's permissiveness ("0x1p-2",
// "infinity"): only plain decimal or scientific notation counts.
func looksNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c == '.' || c == '+' || c == '-' || c == 'e' || c == 'E':
		default:
			return false
		}
	}
	return len(s) > 0
}

// coerceFloat keeps XLSX numerics as int64 when they are integral, matching
// how integer columns come back from spreadsheet readers.
func coerceFloat(f float64) any {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

// isoTimestamp renders a timestamp the way the store expects it: ISO-8601,
// zone offset only when one is attached.
func isoTimestamp(t time.Time) string {
	if t.Location() == time.UTC {
		return t.Format("2006-01-02T15:04:05.999999")
	}
	return t.Format(time.RFC3339Nano)
}
