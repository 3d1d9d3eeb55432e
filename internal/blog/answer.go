package blog

import "time"

// Answer is a grounded QA response with the docs that supported it. Refused
// answers carry no sources.
type Answer struct {
	Question  string         `json:"question"`
	Answer    string         `json:"answer"`
	Sources   []RetrievedDoc `json:"sources,omitempty"`
	Refused   bool           `json:"refused,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
