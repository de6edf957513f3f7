package missions

import (
	"context"
	"errors"
	"time"

	"github.com/takumiya/missiondash/models"
)

// Outcome describes what a single mission interaction changed.
type Outcome struct {
	MissionType    string `json:"mission_type"`
	NewlyCompleted bool   `json:"newly_completed"`
	PointsAwarded  int    `json:"points_awarded"`
	BonusAwarded   bool   `json:"bonus_awarded"`
}

// Ledger orchestrates daily mission bookkeeping: record completions, pay the
// per-mission reward once, and pay the all-complete bonus once per day.
type Ledger struct {
	cfg   Config
	store Store
}

// NewLedger creates a ledger bound to one store and one reward configuration.
func NewLedger(cfg Config, store Store) *Ledger {
	return &Ledger{cfg: cfg, store: store}
}

// Config exposes the reward configuration the ledger was built with.
func (l *Ledger) Config() Config {
	return l.cfg
}

// RecordInteraction handles one tracked outbound click. The current instant
// is passed in rather than read internally so day boundaries are
// deterministic in tests. Replaying an already-completed mission is a no-op
// for points; the daily bonus is granted at most once per user per day.
func (l *Ledger) RecordInteraction(ctx context.Context, userID uint, missionType string, now time.Time) (Outcome, error) {
	out := Outcome{MissionType: missionType}
	if !l.cfg.ValidType(missionType) {
		return out, ErrInvalidMissionType
	}
	if userID == 0 {
		return out, ErrUnauthenticated
	}

	// Resolve the calendar date once so a request spanning midnight cannot
	// split its writes across two days.
	day := DateOf(now)

	err := l.store.InUserTx(ctx, userID, func(tx Store, profile *models.Profile) error {
		rec, err := tx.FindRecord(ctx, userID, day, missionType)
		switch {
		case errors.Is(err, ErrNotFound):
			if err := tx.CreateCompleted(ctx, userID, day, missionType, now); err != nil {
				return err
			}
			out.NewlyCompleted = true
		case err != nil:
			return err
		case !rec.Completed:
			if err := tx.MarkCompleted(ctx, rec.ID, now); err != nil {
				return err
			}
			out.NewlyCompleted = true
		}

		if out.NewlyCompleted {
			if pts := l.cfg.RewardFor(missionType); pts > 0 {
				if err := tx.AddPoints(ctx, userID, pts); err != nil {
					return err
				}
				out.PointsAwarded = pts
			}
		}

		recs, err := tx.RecordsForDay(ctx, userID, day)
		if err != nil {
			return err
		}
		if !allCompleted(l.cfg.Types, recs) {
			return nil
		}
		if SameDay(profile.LastBonusDate, day) {
			return nil
		}

		granted, err := tx.GrantDailyBonus(ctx, userID, day, l.cfg.BonusPoints)
		if err != nil {
			return err
		}
		if granted {
			out.BonusAwarded = true
			out.PointsAwarded += l.cfg.BonusPoints
		}
		return nil
	})
	if err != nil {
		return Outcome{MissionType: missionType}, err
	}
	return out, nil
}

// StatusForDay returns the completion state of every configured mission type
// for one user and calendar date, defaulting each type to false. Read-only.
func (l *Ledger) StatusForDay(ctx context.Context, userID uint, date time.Time) (map[string]bool, error) {
	day := DateOf(date)
	status := make(map[string]bool, len(l.cfg.Types))
	for _, t := range l.cfg.Types {
		status[t] = false
	}

	recs, err := l.store.RecordsForDay(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if _, ok := status[r.MissionType]; ok {
			status[r.MissionType] = r.Completed
		}
	}
	return status, nil
}

// Points returns the user's cumulative points, zero for a missing profile.
func (l *Ledger) Points(ctx context.Context, userID uint) (int, error) {
	profile, err := l.store.GetProfile(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return profile.Points, nil
}

func allCompleted(types []string, recs []models.DailyMissionRecord) bool {
	done := make(map[string]bool, len(recs))
	for _, r := range recs {
		if r.Completed {
			done[r.MissionType] = true
		}
	}
	for _, t := range types {
		if !done[t] {
			return false
		}
	}
	return true
}
