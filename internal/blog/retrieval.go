package blog

// RetrievedDoc is one retrieval result mapped from a backend response.
// Scores are clamped to [0,1] on ingress; entries missing url, title, or
// snippet are skipped by the backends before they reach this type.
type RetrievedDoc struct {
	PostID   string         `json:"post_id"`
	Title    string         `json:"title"`
	URL      string         `json:"url"`
	Snippet  string         `json:"snippet"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ClampScore forces a relevance score into [0,1].
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
