package service

import (
	"context"
	"sort"
	"strings"

	"github.com/Mahbub96/BachelorsMealManager-sub000/internal/domain"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// EntryMatch is one bazar entry matched by a local search.
type EntryMatch struct {
	Entry domain.BazarEntry
	Rank  int // Lower is better
}

// SearchEntries fuzzy-matches query against the user's cached bazar
// entries for a month. Runs entirely on local data, so it works
// offline; an empty cache yields no results rather than a network call.
func (s *BazarService) SearchEntries(ctx context.Context, userID, month, query string) []EntryMatch {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	entries, res := s.UserEntries(ctx, userID, month)
	if !res.Success {
		return nil
	}

	var matches []EntryMatch
	for _, entry := range entries {
		target := strings.Join(entry.Items, " ")
		if entry.Note != "" {
			target += " " + entry.Note
		}
		rank := fuzzy.RankMatchNormalizedFold(query, target)
		if rank < 0 {
			continue
		}
		matches = append(matches, EntryMatch{Entry: entry, Rank: rank})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Rank < matches[j].Rank })
	return matches
}
