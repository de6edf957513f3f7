package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/takumiya/missiondash/models"
	"github.com/takumiya/missiondash/utils"
)

// StatsController provides service statistics such as counts and daily activity.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate statistics for the dashboard service.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount int64
	var completionsToday int64
	var bonusesToday int64
	var dailyActive int64

	// Use string date equality to avoid timezone/type mismatches with DATE columns
	today := time.Now().In(time.Local).Format("2006-01-02")

	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		userCount = 0
	}

	if err := s.db.Model(&models.DailyMissionRecord{}).
		Where("date = ? AND completed = ?", today, true).
		Count(&completionsToday).Error; err != nil {
		completionsToday = 0
	}

	if err := s.db.Model(&models.Profile{}).
		Where("last_bonus_date = ?", today).
		Count(&bonusesToday).Error; err != nil {
		bonusesToday = 0
	}

	// Daily active (PV-based): sum of today's page views across all paths
	if err := s.db.Model(&models.PageView{}).
		Where("date = ?", today).
		Select("COALESCE(SUM(count),0)").
		Scan(&dailyActive).Error; err != nil {
		dailyActive = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":         userCount,
		"completions_today":  completionsToday,
		"bonuses_today":      bonusesToday,
		"daily_active_count": dailyActive,
	})
}
