package missions

import "time"

// Mission type identifiers. Each one maps to an external affiliate search
// surface the user can interact with once per day.
const (
	TypeMarketplace = "marketplace"
	TypeTravel      = "travel"
	TypeGames       = "games"
)

// DefaultTypes is the mission set used when configuration does not override it.
func DefaultTypes() []string {
	return []string{TypeMarketplace, TypeTravel, TypeGames}
}

// Config is the reward tuning for the ledger, fixed at construction.
// Point amounts changed across product iterations, so every magnitude
// lives here instead of being hardcoded in the ledger.
type Config struct {
	// Types is the enumerated mission set. A day counts as fully
	// completed only when every listed type has a completed record.
	Types []string
	// Rewards maps a mission type to the points paid on first completion.
	// Missing entries fall back to DefaultReward. Zero is a valid amount.
	Rewards map[string]int
	// DefaultReward is the per-mission fallback amount.
	DefaultReward int
	// BonusPoints is paid once per day when all types are completed.
	BonusPoints int
	// Thresholds drive the Bronze/Silver/Gold tier labels.
	Thresholds RankThresholds
}

// ValidType reports whether mt belongs to the configured mission set.
func (c Config) ValidType(mt string) bool {
	for _, t := range c.Types {
		if t == mt {
			return true
		}
	}
	return false
}

// RewardFor returns the configured point amount for one mission type.
func (c Config) RewardFor(mt string) int {
	if v, ok := c.Rewards[mt]; ok {
		return v
	}
	return c.DefaultReward
}

// DateOf truncates an instant to its local calendar date, aligned with the
// DATE columns the stores use.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether the nullable date d falls on the calendar day of ref.
func SameDay(d *time.Time, ref time.Time) bool {
	if d == nil {
		return false
	}
	return d.Year() == ref.Year() && d.Month() == ref.Month() && d.Day() == ref.Day()
}
