package missions

// Tier labels derived from cumulative points.
const (
	TierBronze = "Bronze"
	TierSilver = "Silver"
	TierGold   = "Gold"
)

// RankThresholds holds the minimum points for each paid tier. Bronze is
// everything below Silver.
type RankThresholds struct {
	Silver int
	Gold   int
}

// Tier maps cumulative points to a tier label. Pure function, no I/O.
func Tier(points int, t RankThresholds) string {
	switch {
	case points >= t.Gold:
		return TierGold
	case points >= t.Silver:
		return TierSilver
	default:
		return TierBronze
	}
}
