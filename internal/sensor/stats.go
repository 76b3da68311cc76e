package sensor

// Stats counts sensors by status for the dashboard header.
type Stats struct {
	Total   int `json:"total"`
	Online  int `json:"online"`
	Offline int `json:"offline"`
	Warning int `json:"warning"`
}

// Summarize tallies records by status.
func Summarize(records []Record) Stats {
	stats := Stats{Total: len(records)}
	for _, rec := range records {
		switch rec.Status {
		case StatusOnline:
			stats.Online++
		case StatusOffline:
			stats.Offline++
		case StatusWarning:
			stats.Warning++
		}
	}
	return stats
}
