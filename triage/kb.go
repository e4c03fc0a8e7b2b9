package triage

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// KBEntry maps a lowercase trigger phrase to its canned answer.
type KBEntry struct {
	Q string `json:"q"`
	A string `json:"a"`
}

// KB is a lookup table of frequently asked questions. Matching is substring
// based: an entry fires when its trigger phrase appears anywhere in the
// lowercased query.
type KB struct {
	entries []KBEntry
}

// NewKB builds a knowledge base from the given entries.
func NewKB(entries []KBEntry) *KB {
	return &KB{entries: entries}
}

// LoadKB reads a knowledge base from a JSON file holding an array of
// {"q": ..., "a": ...} objects.
func LoadKB(path string) (*KB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base %s: %w", path, err)
	}
	var entries []KBEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base %s: %w", path, err)
	}
	return NewKB(entries), nil
}

// DefaultKB returns the built-in knowledge base used when no file is
// configured.
func DefaultKB() *KB {
	return NewKB([]KBEntry{
		{Q: "hours", A: "We are open 9am to 5pm, Monday through Friday."},
		{Q: "policy", A: "Our return policy allows returns within 30 days of purchase."},
		{Q: "contact", A: "You can reach support at support@example.com."},
	})
}

// Search returns the answer for the first entry whose trigger phrase appears
// in the query, or a no-match notice.
func (kb *KB) Search(query string) string {
	q := strings.ToLower(query)
	for _, row := range kb.entries {
		if strings.Contains(q, row.Q) {
			return "FAQ: " + row.A
		}
	}
	return "No FAQ match."
}
