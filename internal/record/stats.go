package record

import "time"

// DateRange is the inclusive min/max timestamp span of a record set.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Statistics summarizes an aggregated record collection.
type Statistics struct {
	TotalMessages      int        `json:"total_messages"`
	TotalSessions      int        `json:"total_sessions"`
	AvgMessageLength   float64    `json:"avg_message_length"`
	TotalContentLength int        `json:"total_content_length"`
	DateRange          *DateRange `json:"date_range,omitempty"`
}

// ComputeStatistics derives summary statistics from a record collection.
// An empty collection yields zero-valued statistics, never an error.
func ComputeStatistics(records []Message) Statistics {
	stats := Statistics{TotalMessages: len(records)}
	if len(records) == 0 {
		return stats
	}

	sessions := make(map[string]struct{})
	for _, r := range records {
		if r.SessionID != "" {
			sessions[r.SessionID] = struct{}{}
		}
		stats.TotalContentLength += len(r.Content)

		if r.Timestamp == nil {
			continue
		}
		if stats.DateRange == nil {
			stats.DateRange = &DateRange{Start: *r.Timestamp, End: *r.Timestamp}
			continue
		}
		if r.Timestamp.Before(stats.DateRange.Start) {
			stats.DateRange.Start = *r.Timestamp
		}
		if r.Timestamp.After(stats.DateRange.End) {
			stats.DateRange.End = *r.Timestamp
		}
	}

	stats.TotalSessions = len(sessions)
	stats.AvgMessageLength = float64(stats.TotalContentLength) / float64(len(records))
	return stats
}
