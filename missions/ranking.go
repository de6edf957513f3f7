package missions

import "sort"

// RankingEntry is one leaderboard row. Users without a profile are passed
// in with zero points so everyone appears.
type RankingEntry struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Points   int    `json:"points"`
	Rank     int    `json:"rank"`
}

// BuildRanking orders entries by points descending, breaking ties by
// ascending user id so equal totals never flicker between requests. Ranks
// are 1-based. The second return is the requesting user's rank, 0 when the
// user is absent from the input.
func BuildRanking(entries []RankingEntry, requesterID uint) ([]RankingEntry, int) {
	sorted := make([]RankingEntry, len(entries))
	copy(sorted, entries)

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Points != sorted[j].Points {
			return sorted[i].Points > sorted[j].Points
		}
		return sorted[i].UserID < sorted[j].UserID
	})

	requesterRank := 0
	for i := range sorted {
		sorted[i].Rank = i + 1
		if requesterID != 0 && sorted[i].UserID == requesterID {
			requesterRank = sorted[i].Rank
		}
	}
	return sorted, requesterRank
}
