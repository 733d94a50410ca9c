package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"referral-service/internal/auth"
	"referral-service/internal/jobs"
	"referral-service/internal/models"
	"referral-service/internal/services"
)

type LeaderboardHandler struct {
	leaderboardService *services.LeaderboardService
	rdb                *redis.Client
	defaultLimit       int
}

func NewLeaderboardHandler(leaderboardService *services.LeaderboardService, rdb *redis.Client, defaultLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardService: leaderboardService,
		rdb:                rdb,
		defaultLimit:       defaultLimit,
	}
}

// GetLeaderboard returns one page of the global ranking together with
// the informer and graph data for the current user
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	ctx := c.Request.Context()
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", h.defaultLimit)

	entries, err := h.pageEntries(ctx, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute leaderboard"})
		return
	}
	for i := range entries {
		entries[i].IsCurrent = entries[i].UserID == userID
	}

	informer, err := h.leaderboardService.InformerFor(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute informer"})
		return
	}

	graph, err := h.leaderboardService.GraphData(ctx, userID, c.Query("graph_filter"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute graph"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"data":     entries,
		"informer": informer,
		"graph":    graph,
		"page":     page,
		"limit":    limit,
	})
}

// GetSummary returns the current user's own ranking entry. Users who
// never invited anyone get an empty result, not an error.
func (h *LeaderboardHandler) GetSummary(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entry, err := h.leaderboardService.PersonalSummary(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute summary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    entry,
	})
}

// GetAdminSummary returns the full ranked listing for back-office use
func (h *LeaderboardHandler) GetAdminSummary(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", h.defaultLimit)

	entries, err := h.leaderboardService.ComputeGlobalRanking(c.Request.Context(), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute summary listing"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Referral and codes summary successfully received",
		"data":    entries,
		"page":    page,
		"limit":   limit,
	})
}

// pageEntries serves the first page from the Redis snapshot when one is
// fresh, falling back to a live computation
func (h *LeaderboardHandler) pageEntries(ctx context.Context, page, limit int) ([]models.LeaderboardEntry, error) {
	if h.rdb != nil && page == 1 && limit == h.defaultLimit {
		raw, err := h.rdb.Get(ctx, jobs.LeaderboardSnapshotKey).Result()
		if err == nil {
			var entries []models.LeaderboardEntry
			if err := json.Unmarshal([]byte(raw), &entries); err == nil {
				return entries, nil
			}
			log.Printf("Discarding unreadable leaderboard snapshot: %v", err)
		}
	}
	return h.leaderboardService.ComputeGlobalRanking(ctx, page, limit)
}
