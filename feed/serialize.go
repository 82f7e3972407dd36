package feed

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
)

// MarshalReport serialises a Report to JSON.
func MarshalReport(r *Report) ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalReport deserialises a Report from JSON.
func UnmarshalReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Key derives the stable identifier used for de-duplication: the SHA-256
// hex digest of the item's content text and author name. Derived from
// content, not from the source markup, so a collision between two items
// with identical text and author is accepted rather than guarded against.
func Key(contentText, authorName string) string {
	h := sha256.New()
	h.Write([]byte(strings.TrimSpace(contentText)))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(authorName)))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Preview truncates content for logs and reports.
func Preview(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
