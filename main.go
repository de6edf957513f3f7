package main

import (
	"time"

	"github.com/takumiya/missiondash/config"
	"github.com/takumiya/missiondash/missions"
	"github.com/takumiya/missiondash/models"
	"github.com/takumiya/missiondash/rakuten"
	"github.com/takumiya/missiondash/routes"
	"github.com/takumiya/missiondash/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.Profile{}, &models.DailyMissionRecord{}, &models.PageView{})

	store := missions.NewGormStore(db)
	ledger := missions.NewLedger(missions.Config{
		Types:         cfg.MissionTypes,
		Rewards:       cfg.MissionRewards,
		DefaultReward: cfg.MissionRewardPoints,
		BonusPoints:   cfg.DailyBonusPoints,
		Thresholds:    missions.RankThresholds{Silver: cfg.RankSilverMin, Gold: cfg.RankGoldMin},
	}, store)

	client := rakuten.NewClient(cfg.RakutenAppID, time.Duration(cfg.RakutenTimeoutSec)*time.Second)

	r := routes.SetupRouter(db, ledger, store, client)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
