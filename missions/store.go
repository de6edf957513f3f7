package missions

import (
	"context"
	"errors"
	"time"

	"github.com/takumiya/missiondash/models"
)

var (
	// ErrInvalidMissionType rejects mission types outside the configured set.
	ErrInvalidMissionType = errors.New("invalid mission type")
	// ErrUnauthenticated marks ledger calls made without a signed-in user.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrStorageConflict signals a concurrent write was detected; the whole
	// interaction is safe to retry.
	ErrStorageConflict = errors.New("storage conflict, retry")
	// ErrNotFound is returned by store lookups that match no row.
	ErrNotFound = errors.New("record not found")
)

// Store persists profiles and daily mission records. InUserTx must provide
// per-user serialization: the callback runs with the user's profile row
// locked so that two interactions for the same user cannot interleave.
type Store interface {
	InUserTx(ctx context.Context, userID uint, fn func(tx Store, profile *models.Profile) error) error
	GetProfile(ctx context.Context, userID uint) (*models.Profile, error)
	FindRecord(ctx context.Context, userID uint, day time.Time, missionType string) (*models.DailyMissionRecord, error)
	CreateCompleted(ctx context.Context, userID uint, day time.Time, missionType string, completedAt time.Time) error
	MarkCompleted(ctx context.Context, recordID uint, completedAt time.Time) error
	RecordsForDay(ctx context.Context, userID uint, day time.Time) ([]models.DailyMissionRecord, error)
	AddPoints(ctx context.Context, userID uint, delta int) error
	// GrantDailyBonus adds the bonus and stamps last_bonus_date in one
	// conditional update; it reports false when the day was already paid.
	GrantDailyBonus(ctx context.Context, userID uint, day time.Time, points int) (bool, error)
}
