package summarizer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// summaryPayload mirrors the JSON object the summary prompt demands.
type summaryPayload struct {
	ExecutiveSummary string   `json:"executive_summary"`
	TechnicalSummary string   `json:"technical_summary"`
	BulletPoints     []string `json:"bullet_points"`
	Keywords         []string `json:"keywords"`
}

// parseSummaryResponse extracts and decodes the JSON object from a model
// response. Models wrap JSON in fences or prose often enough that parsing
// is deliberately forgiving: fences of any language tag are stripped, then
// the first balanced {...} substring is decoded. Missing bullet_points or
// keywords default to empty; a missing executive_summary or
// technical_summary is an error.
func parseSummaryResponse(resp string) (summaryPayload, error) {
	var payload summaryPayload

	obj, err := extractJSONObject(stripCodeFences(resp))
	if err != nil {
		return payload, err
	}
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return payload, fmt.Errorf("decoding summary JSON: %w", err)
	}

	if strings.TrimSpace(payload.ExecutiveSummary) == "" {
		return payload, fmt.Errorf("summary JSON missing executive_summary")
	}
	if strings.TrimSpace(payload.TechnicalSummary) == "" {
		return payload, fmt.Errorf("summary JSON missing technical_summary")
	}
	if payload.BulletPoints == nil {
		payload.BulletPoints = []string{}
	}
	if payload.Keywords == nil {
		payload.Keywords = []string{}
	}
	return payload, nil
}

// stripCodeFences removes a surrounding markdown code fence, with or
// without a language tag.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// drop the language tag line
		if firstLine := strings.TrimSpace(s[:idx]); firstLine == "" || !strings.ContainsAny(firstLine, "{}") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractJSONObject returns the first balanced top-level {...} substring,
// ignoring braces inside JSON strings.
func extractJSONObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated JSON object in response")
}
