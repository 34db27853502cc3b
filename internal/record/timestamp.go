package record

import (
	"math"
	"time"
)

// timestampLayouts are the formats the supported export tools emit,
// tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999",
	"2006-01-02",
}

// ParseTimestamp parses an export timestamp string best-effort.
// Unparseable or empty input yields nil, never an error: a record with an
// unknown time is still worth keeping.
func ParseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// FromEpochSeconds converts a Unix epoch-seconds value (possibly
// fractional, as in ChatGPT's create_time) to a timestamp.
// Zero, negative, NaN and infinite values yield nil.
func FromEpochSeconds(epoch float64) *time.Time {
	if epoch <= 0 || math.IsNaN(epoch) || math.IsInf(epoch, 0) {
		return nil
	}
	sec, frac := math.Modf(epoch)
	t := time.Unix(int64(sec), int64(frac*1e9)).UTC()
	return &t
}
