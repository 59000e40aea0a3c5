// Package core provides filtering and lookup over translation history.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/poptrans/internal/model"
)

// Status selects entries by outcome.
type Status string

const (
	StatusAny    Status = ""
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// FilterOptions specifies criteria for filtering history entries.
type FilterOptions struct {
	Since      time.Duration // Entries newer than now-since (0=all)
	TargetLang string        // Exact, case-insensitive match on target language
	Status     Status
	Search     string // Case-insensitive substring of source or result text
	Limit      int    // Maximum results (0=unlimited)
}

// Filter returns the entries matching opts, keeping their order.
func Filter(entries []model.Entry, opts FilterOptions) []model.Entry {
	now := time.Now()
	term := strings.ToLower(opts.Search)
	result := make([]model.Entry, 0, len(entries))

	for _, e := range entries {
		if opts.Since > 0 && e.Time().Before(now.Add(-opts.Since)) {
			continue
		}

		if opts.TargetLang != "" && !strings.EqualFold(e.TargetLang, opts.TargetLang) {
			continue
		}

		switch opts.Status {
		case StatusOK:
			if !e.Success {
				continue
			}
		case StatusFailed:
			if e.Success {
				continue
			}
		}

		if term != "" && !matches(e, term) {
			continue
		}

		result = append(result, e)
	}

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

func matches(e model.Entry, term string) bool {
	return strings.Contains(strings.ToLower(e.SourceText), term) ||
		strings.Contains(strings.ToLower(e.ResultText), term)
}

// ParseDuration parses a duration string with extended formats.
// Supports: 48h, 7d, 1w, 0 (all time)
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	// Special case: 0 means no filter (all time)
	if s == "0" || s == "" {
		return 0, nil
	}

	if daysStr, found := strings.CutSuffix(s, "d"); found {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	if weeksStr, found := strings.CutSuffix(s, "w"); found {
		weeks, err := strconv.Atoi(weeksStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %s", s)
	}
	return d, nil
}

// ParseStatus parses an outcome filter.
// Accepts: ok, success, failed, error, all or empty
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "any":
		return StatusAny, nil
	case "ok", "success", "succeeded":
		return StatusOK, nil
	case "failed", "fail", "error":
		return StatusFailed, nil
	default:
		return StatusAny, fmt.Errorf("invalid status: %s (use ok, failed or all)", s)
	}
}
