package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/takumiya/missiondash/missions"
	"github.com/takumiya/missiondash/utils"
)

const rankingCacheTTL = 30 * time.Second

// RankingController serves the points leaderboard.
type RankingController struct {
	db     *gorm.DB
	ledger *missions.Ledger
}

// NewRankingController creates a new controller instance.
func NewRankingController(db *gorm.DB, ledger *missions.Ledger) *RankingController {
	return &RankingController{db: db, ledger: ledger}
}

// GetRanking returns every user ordered by points; users without a profile
// appear with zero points. An authenticated caller also gets their own rank.
func (r *RankingController) GetRanking(ctx *gin.Context) {
	entries, err := r.loadEntries()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load ranking")
		return
	}

	requesterID, _ := getUserID(ctx)
	ordered, myRank := missions.BuildRanking(entries, requesterID)

	thresholds := r.ledger.Config().Thresholds
	type entryView struct {
		missions.RankingEntry
		Tier string `json:"tier"`
	}
	views := make([]entryView, len(ordered))
	for i, e := range ordered {
		views[i] = entryView{RankingEntry: e, Tier: missions.Tier(e.Points, thresholds)}
	}

	payload := gin.H{
		"entries": views,
		"total":   len(views),
	}
	if myRank > 0 {
		payload["my_rank"] = myRank
	}
	utils.Success(ctx, payload)
}

// loadEntries reads the unordered (user, points) pairs, caching them briefly
// since the board is read far more often than it changes.
func (r *RankingController) loadEntries() ([]missions.RankingEntry, error) {
	const key = "cache:ranking:entries"
	if b, ok := utils.CacheGetBytes(key); ok {
		var cached []missions.RankingEntry
		if err := json.Unmarshal(b, &cached); err == nil {
			return cached, nil
		}
	}

	var rows []struct {
		ID       uint
		Username string
		Points   int
	}
	err := r.db.Table("users").
		Select("users.id, users.username, COALESCE(profiles.points, 0) AS points").
		Joins("LEFT JOIN profiles ON profiles.user_id = users.id").
		Where("users.deleted_at IS NULL").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]missions.RankingEntry, len(rows))
	for i, row := range rows {
		entries[i] = missions.RankingEntry{UserID: row.ID, Username: row.Username, Points: row.Points}
	}
	utils.CacheSetJSON(key, entries, rankingCacheTTL)
	return entries, nil
}
