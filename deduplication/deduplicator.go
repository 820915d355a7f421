package deduplication

import (
	"sort"
	"time"

	"weeklyreport/types"
)

// DefaultMaxItems is used when a Policy leaves MaxItems unset
const DefaultMaxItems = 10

// Policy controls how fetched articles are reduced to the weekly set
type Policy struct {
	MaxItems    int
	Deduplicate bool
	// MaxAge drops articles published before Now-MaxAge. Zero disables it;
	// articles without a timestamp are never dropped by age.
	MaxAge time.Duration
	Now    time.Time
}

// Stats counts what each ranking step removed
type Stats struct {
	Input      int `json:"input"`
	Duplicates int `json:"duplicates"`
	TooOld     int `json:"too_old"`
	Truncated  int `json:"truncated"`
	Output     int `json:"output"`
}

// Rank deduplicates (first occurrence wins), applies the age cut-off,
// orders by publication time newest first with undated articles last, and
// keeps at most MaxItems. The input slice is not modified.
func Rank(articles []types.Article, p Policy) ([]types.Article, Stats) {
	stats := Stats{Input: len(articles)}

	out := make([]types.Article, 0, len(articles))
	if p.Deduplicate {
		var dups int
		out, dups = Dedupe(articles)
		stats.Duplicates = dups
	} else {
		out = append(out, articles...)
	}

	if p.MaxAge > 0 {
		now := p.Now
		if now.IsZero() {
			now = time.Now()
		}
		cutoff := now.Add(-p.MaxAge)
		kept := out[:0]
		for _, a := range out {
			if a.Published != nil && a.Published.Before(cutoff) {
				stats.TooOld++
				continue
			}
			kept = append(kept, a)
		}
		out = kept
	}

	SortByRecency(out)

	limit := p.MaxItems
	if limit <= 0 {
		limit = DefaultMaxItems
	}
	if len(out) > limit {
		stats.Truncated = len(out) - limit
		out = out[:limit]
	}

	stats.Output = len(out)
	return out, stats
}

// Dedupe keeps the first article for each identity key
func Dedupe(articles []types.Article) ([]types.Article, int) {
	seen := make(map[types.Key]struct{}, len(articles))
	out := make([]types.Article, 0, len(articles))
	dups := 0
	for _, a := range articles {
		k := a.IdentityKey()
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return out, dups
}

// SortByRecency sorts in place, newest first. Undated articles go last;
// ties keep their relative order.
func SortByRecency(articles []types.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		pi, pj := articles[i].Published, articles[j].Published
		switch {
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return pi.After(*pj)
		}
	})
}
