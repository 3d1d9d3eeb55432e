package blog

import "time"

// IngestionResult records the outcome of one ingest run. It is both the
// pipeline's return value and the unit stored in state history.
// discovered - ingested is the number of posts lost to per-item failures.
type IngestionResult struct {
	DiscoveredCount int       `json:"discovered_count"`
	NewCount        int       `json:"new_count"`
	SummarizedCount int       `json:"summarized_count"`
	IngestedCount   int       `json:"ingested_count"`
	NewPostIDs      []string  `json:"new_post_ids"`
	Timestamp       time.Time `json:"timestamp"`
}
