package summarize

import (
	"encoding/json"
	"strings"
)

// batchEntry is the schema each model response row must match.
type batchEntry struct {
	ID        string   `json:"id"`
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
	Sentiment string   `json:"sentiment"`
}

// parseBatch extracts a JSON array from free-form model output. The second
// return value tags the response: true means parsed, false means malformed.
// The service gives no schema guarantee, so anything outside the first
// '['..']' span is ignored and a failed unmarshal marks the whole batch.
func parseBatch(raw string) ([]batchEntry, bool) {
	first := strings.Index(raw, "[")
	last := strings.LastIndex(raw, "]")
	if first < 0 || last <= first {
		return nil, false
	}

	var entries []batchEntry
	if err := json.Unmarshal([]byte(raw[first:last+1]), &entries); err != nil {
		return nil, false
	}

	valid := entries[:0]
	for _, entry := range entries {
		if entry.ID == "" || strings.TrimSpace(entry.Summary) == "" {
			continue
		}
		valid = append(valid, entry)
	}

	if len(valid) == 0 {
		return nil, false
	}
	return valid, true
}
