package core

import (
	"strconv"
	"strings"

	"github.com/jmylchreest/poptrans/internal/model"
)

// LookupByID finds an entry by its ID. Returns nil if not found.
func LookupByID(entries []model.Entry, id string) *model.Entry {
	for i := range entries {
		if strings.EqualFold(entries[i].ID, id) {
			return &entries[i]
		}
	}
	return nil
}

// LookupByIndex finds an entry by its index (1-based for user-friendliness).
// Returns nil if index is out of bounds.
func LookupByIndex(entries []model.Entry, index int) *model.Entry {
	idx := index - 1
	if idx < 0 || idx >= len(entries) {
		return nil
	}
	return &entries[idx]
}

// Lookup resolves ref as a 1-based index when it is a number, otherwise as
// an entry ID.
func Lookup(entries []model.Entry, ref string) *model.Entry {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		return LookupByIndex(entries, n)
	}
	return LookupByID(entries, ref)
}

// Languages returns the distinct language pairs in entries, in first-seen order.
func Languages(entries []model.Entry) []string {
	seen := make(map[string]bool)
	var pairs []string
	for _, e := range entries {
		pair := e.SourceLang + "-" + e.TargetLang
		if !seen[pair] {
			seen[pair] = true
			pairs = append(pairs, pair)
		}
	}
	return pairs
}
