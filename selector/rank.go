package selector

import (
	"slices"

	"github.com/sahilm/fuzzy"

	"roleman/catalog"
	"roleman/config"
	"roleman/history"
)

// entrySource adapts a catalog to the fuzzy matcher.
type entrySource []catalog.Entry

func (s entrySource) String(i int) string { return s[i].Label() }
func (s entrySource) Len() int            { return len(s) }

// ranked pairs an entry with its computed signals for one query.
type ranked struct {
	entry      catalog.Entry
	matchScore int
	score      float64
}

// Rank filters entries by a fuzzy subsequence match against their labels and
// orders the result. It is pure: all inputs are explicit and no I/O happens
// here.
//
// With an empty query the history score dominates (dynamic mode) over the
// base precedence/name order; alphabetical mode ignores history entirely.
// With a non-empty query the fuzzy match quality dominates and the history
// score only breaks ties.
func Rank(entries []catalog.Entry, query string, stats map[history.Key]history.Stats, mode string) []catalog.Entry {
	base := make([]catalog.Entry, len(entries))
	copy(base, entries)
	catalog.SortBase(base)

	dynamic := mode != config.SortAlphabetical

	if query == "" {
		if !dynamic {
			return base
		}
		slices.SortStableFunc(base, func(a, b catalog.Entry) int {
			return compareFloatDesc(entryScore(stats, a), entryScore(stats, b))
		})
		return base
	}

	matches := fuzzy.FindFrom(query, entrySource(base))
	out := make([]ranked, 0, len(matches))
	for _, match := range matches {
		entry := base[match.Index]
		r := ranked{entry: entry, matchScore: match.Score}
		if dynamic {
			r.score = entryScore(stats, entry)
		}
		out = append(out, r)
	}

	slices.SortStableFunc(out, func(a, b ranked) int {
		if a.matchScore != b.matchScore {
			if a.matchScore > b.matchScore {
				return -1
			}
			return 1
		}
		return compareFloatDesc(a.score, b.score)
	})

	result := make([]catalog.Entry, len(out))
	for i, r := range out {
		result[i] = r.entry
	}
	return result
}

func entryScore(stats map[history.Key]history.Stats, entry catalog.Entry) float64 {
	return history.Score(stats, entry.AccountID, entry.RoleName)
}

func compareFloatDesc(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}
