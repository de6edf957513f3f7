package missions

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/takumiya/missiondash/models"
)

// GormStore persists mission state in MySQL through GORM. Race safety comes
// from three layers: a FOR UPDATE lock on the profile row serializes all
// interactions of one user, the composite unique index on
// (user_id, date, mission_type) rejects duplicate records, and the bonus is
// granted through a conditional update on last_bonus_date.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps a GORM handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// InUserTx runs fn inside a transaction holding an exclusive lock on the
// user's profile row. The profile is created first when missing so there is
// always a row to lock.
func (s *GormStore) InUserTx(ctx context.Context, userID uint, fn func(tx Store, profile *models.Profile) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&models.Profile{UserID: userID}).Error; err != nil {
			return err
		}

		var profile models.Profile
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&profile).Error; err != nil {
			return err
		}

		return fn(&GormStore{db: tx}, &profile)
	})
}

// GetProfile loads a profile without locking, for display reads.
func (s *GormStore) GetProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// FindRecord fetches the record for one (user, date, type) triple.
func (s *GormStore) FindRecord(ctx context.Context, userID uint, day time.Time, missionType string) (*models.DailyMissionRecord, error) {
	var rec models.DailyMissionRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date = ? AND mission_type = ?", userID, day, missionType).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// CreateCompleted inserts a record that is already completed. A concurrent
// insert of the same triple surfaces as ErrStorageConflict so the caller
// can replay the whole interaction.
func (s *GormStore) CreateCompleted(ctx context.Context, userID uint, day time.Time, missionType string, completedAt time.Time) error {
	rec := models.DailyMissionRecord{
		UserID:      userID,
		Date:        day,
		MissionType: missionType,
		Completed:   true,
		CompletedAt: &completedAt,
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}, {Name: "mission_type"}},
		DoNothing: true,
	}).Create(&rec)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStorageConflict
	}
	return nil
}

// MarkCompleted flips one record to completed. The completed = false guard
// keeps the false->true transition one-shot even under a lost race.
func (s *GormStore) MarkCompleted(ctx context.Context, recordID uint, completedAt time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.DailyMissionRecord{}).
		Where("id = ? AND completed = ?", recordID, false).
		Updates(map[string]interface{}{"completed": true, "completed_at": completedAt})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStorageConflict
	}
	return nil
}

// RecordsForDay lists all of a user's records for one calendar date.
func (s *GormStore) RecordsForDay(ctx context.Context, userID uint, day time.Time) ([]models.DailyMissionRecord, error) {
	var recs []models.DailyMissionRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, day).
		Order("mission_type ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// AddPoints increments the user's points in place, never read-then-write.
func (s *GormStore) AddPoints(ctx context.Context, userID uint, delta int) error {
	return s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"points":     gorm.Expr("points + ?", delta),
			"updated_at": time.Now(),
		}).Error
}

// GrantDailyBonus pays the all-complete bonus and stamps last_bonus_date in
// a single compare-and-set update. Zero rows affected means today's bonus
// was already paid by a concurrent request.
func (s *GormStore) GrantDailyBonus(ctx context.Context, userID uint, day time.Time, points int) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("user_id = ? AND (last_bonus_date IS NULL OR last_bonus_date <> ?)", userID, day).
		Updates(map[string]interface{}{
			"points":          gorm.Expr("points + ?", points),
			"last_bonus_date": day,
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
