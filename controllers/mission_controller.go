package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/takumiya/missiondash/missions"
	"github.com/takumiya/missiondash/utils"
)

// interactionRetries bounds replays of an interaction that lost a write race.
const interactionRetries = 3

// MissionController exposes the mission trigger and the status/dashboard reads.
type MissionController struct {
	ledger *missions.Ledger
	store  missions.Store
}

// NewMissionController creates a new controller instance.
func NewMissionController(ledger *missions.Ledger, store missions.Store) *MissionController {
	return &MissionController{ledger: ledger, store: store}
}

// Redirect handles a tracked outbound click: it records the mission
// interaction for a signed-in user and then forwards to the target URL.
// The redirect always happens; ledger failures are only logged so that
// reward bookkeeping never blocks the user's primary action.
func (m *MissionController) Redirect(ctx *gin.Context) {
	target := ctx.Query("url")
	if target == "" {
		utils.Error(ctx, http.StatusNotFound, 40420, "url parameter missing")
		return
	}

	missionType := ctx.Query("mission")
	if userID, ok := getUserID(ctx); ok && missionType != "" {
		interactionID := uuid.NewString()
		now := time.Now()

		var out missions.Outcome
		var err error
		for attempt := 0; attempt < interactionRetries; attempt++ {
			out, err = m.ledger.RecordInteraction(ctx.Request.Context(), userID, missionType, now)
			if !errors.Is(err, missions.ErrStorageConflict) {
				break
			}
		}

		switch {
		case err == nil:
			utils.Sugar.Infow("mission interaction",
				"interaction_id", interactionID,
				"user_id", userID,
				"mission", missionType,
				"newly_completed", out.NewlyCompleted,
				"points_awarded", out.PointsAwarded,
				"bonus_awarded", out.BonusAwarded,
			)
		case errors.Is(err, missions.ErrInvalidMissionType):
			utils.Sugar.Debugw("ignoring unknown mission type",
				"interaction_id", interactionID, "mission", missionType)
		default:
			utils.Sugar.Errorw("mission interaction failed",
				"interaction_id", interactionID, "user_id", userID,
				"mission", missionType, "error", err)
		}
	}

	ctx.Redirect(http.StatusFound, target)
}

// Today returns the authenticated user's mission status for the current date.
func (m *MissionController) Today(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	status, err := m.ledger.StatusForDay(ctx.Request.Context(), userID, time.Now())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to load mission status")
		return
	}

	utils.Success(ctx, gin.H{"missions": status})
}

// Dashboard aggregates points, tier, today's mission status and whether the
// all-complete bonus was already paid today.
func (m *MissionController) Dashboard(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	now := time.Now()
	status, err := m.ledger.StatusForDay(ctx.Request.Context(), userID, now)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load mission status")
		return
	}

	points := 0
	bonusToday := false
	profile, err := m.store.GetProfile(ctx.Request.Context(), userID)
	switch {
	case errors.Is(err, missions.ErrNotFound):
		// no interactions yet, everything stays at zero
	case err != nil:
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to load profile")
		return
	default:
		points = profile.Points
		bonusToday = missions.SameDay(profile.LastBonusDate, missions.DateOf(now))
	}

	cfg := m.ledger.Config()
	utils.Success(ctx, gin.H{
		"points":              points,
		"rank":                missions.Tier(points, cfg.Thresholds),
		"missions":            status,
		"bonus_granted_today": bonusToday,
		"bonus_points":        cfg.BonusPoints,
	})
}
