package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/takumiya/missiondash/missions"
	"github.com/takumiya/missiondash/rakuten"
	"github.com/takumiya/missiondash/utils"
)

const (
	searchCacheTTL = 5 * time.Minute
	hotelCacheTTL  = 10 * time.Minute
	maxSearchHits  = 30
)

// SearchController proxies the affiliate search APIs and decorates results
// with the caller's mission progress so the pages can render both.
type SearchController struct {
	client *rakuten.Client
	ledger *missions.Ledger
}

// NewSearchController creates a new controller instance.
func NewSearchController(client *rakuten.Client, ledger *missions.Ledger) *SearchController {
	return &SearchController{client: client, ledger: ledger}
}

// Ichiba searches the marketplace items.
func (s *SearchController) Ichiba(ctx *gin.Context) {
	s.search(ctx, "ichiba", s.client.SearchIchiba)
}

// Books searches books by title.
func (s *SearchController) Books(ctx *gin.Context) {
	s.search(ctx, "books", s.client.SearchBooks)
}

// Games searches games by title.
func (s *SearchController) Games(ctx *gin.Context) {
	s.search(ctx, "games", s.client.SearchGames)
}

func (s *SearchController) search(ctx *gin.Context, provider string, fn func(context.Context, string, int) ([]rakuten.Item, error)) {
	keyword := ctx.Query("keyword")
	hits := parseHits(ctx.Query("hits"), 5, maxSearchHits)

	items, err := s.cachedSearch(ctx.Request.Context(), provider, keyword, hits, fn)
	switch {
	case errors.Is(err, rakuten.ErrKeywordRequired):
		utils.Error(ctx, http.StatusBadRequest, 40021, "keyword required")
		return
	case err != nil:
		utils.Sugar.Warnw("search failed", "provider", provider, "keyword", keyword, "error", err)
		utils.Error(ctx, http.StatusBadGateway, 50220, "search temporarily unavailable")
		return
	}

	payload := gin.H{
		"provider": provider,
		"keyword":  keyword,
		"items":    items,
	}
	s.attachMissionStatus(ctx, payload)
	utils.Success(ctx, payload)
}

func (s *SearchController) cachedSearch(ctx context.Context, provider, keyword string, hits int, fn func(context.Context, string, int) ([]rakuten.Item, error)) ([]rakuten.Item, error) {
	if keyword == "" {
		return nil, rakuten.ErrKeywordRequired
	}

	key := "cache:search:" + provider + ":" + keyword + ":" + strconv.Itoa(hits)
	if b, ok := utils.CacheGetBytes(key); ok {
		var items []rakuten.Item
		if err := json.Unmarshal(b, &items); err == nil {
			return items, nil
		}
	}

	items, err := fn(ctx, keyword, hits)
	if err != nil {
		return nil, err
	}
	utils.CacheSetJSON(key, items, searchCacheTTL)
	return items, nil
}

// HotelRanking returns the travel ranking for the requested genre.
func (s *SearchController) HotelRanking(ctx *gin.Context) {
	genre := ctx.DefaultQuery("genre", rakuten.GenreAll)
	if !rakuten.ValidGenre(genre) {
		utils.Error(ctx, http.StatusBadRequest, 40022, "unknown genre")
		return
	}

	key := "cache:hotel:" + genre
	var hotels []rakuten.Hotel
	if b, ok := utils.CacheGetBytes(key); ok {
		if err := json.Unmarshal(b, &hotels); err != nil {
			hotels = nil
		}
	}
	if hotels == nil {
		var err error
		hotels, err = s.client.HotelRanking(ctx.Request.Context(), genre)
		if err != nil {
			utils.Sugar.Warnw("hotel ranking failed", "genre", genre, "error", err)
			utils.Error(ctx, http.StatusBadGateway, 50221, "travel ranking temporarily unavailable")
			return
		}
		utils.CacheSetJSON(key, hotels, hotelCacheTTL)
	}

	payload := gin.H{
		"genre":  genre,
		"hotels": hotels,
	}
	s.attachMissionStatus(ctx, payload)
	utils.Success(ctx, payload)
}

// attachMissionStatus adds today's mission progress and points for a
// signed-in caller; anonymous visitors just get the search results.
func (s *SearchController) attachMissionStatus(ctx *gin.Context, payload gin.H) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	status, err := s.ledger.StatusForDay(ctx.Request.Context(), userID, time.Now())
	if err != nil {
		utils.Sugar.Warnw("mission status load failed", "user_id", userID, "error", err)
		return
	}
	points, err := s.ledger.Points(ctx.Request.Context(), userID)
	if err != nil {
		utils.Sugar.Warnw("points load failed", "user_id", userID, "error", err)
		return
	}
	payload["missions"] = status
	payload["points"] = points
}
