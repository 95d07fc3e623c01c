// Package upload orchestrates attachment-backed record writes: validate the
// input, push the file to a blob backend, persist the record, and compensate
// by deleting the fresh blob when persistence fails.
package upload

import (
	"encoding/json"
	"strings"
)

// File is an in-memory upload payload, already extracted from the request.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Data        []byte
}

// Blob references the externally stored object attached to a record.
// ExternalID and URL are always set together: a persisted record either has
// a complete blob reference or none at all.
type Blob struct {
	ExternalID  string `json:"external_id"`
	URL         string `json:"url"`
	Name        string `json:"file_name"`
	Size        int64  `json:"file_size"`
	ContentType string `json:"file_type"`
}

// IsZero reports whether no object is referenced.
func (b Blob) IsZero() bool {
	return b.ExternalID == "" && b.URL == ""
}

// ParseTags normalizes the tag list from form values. Clients may submit a
// single JSON-encoded array or repeated native values; both decode to the
// same ordered sequence.
func ParseTags(values []string) ([]string, error) {
	if len(values) == 0 {
		return []string{}, nil
	}

	if len(values) == 1 {
		raw := strings.TrimSpace(values[0])
		if raw == "" {
			return []string{}, nil
		}
		if strings.HasPrefix(raw, "[") {
			var tags []string
			if err := json.Unmarshal([]byte(raw), &tags); err != nil {
				return nil, NewValidationError("tags", "must be a JSON array of strings")
			}
			return trimTags(tags), nil
		}
	}

	return trimTags(values), nil
}

func trimTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
