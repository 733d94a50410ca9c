package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"referral-service/internal/repository"
)

// WebhookHandler answers totals queries from sibling microservices
type WebhookHandler struct {
	repo *repository.Repository
}

func NewWebhookHandler(repo *repository.Repository) *WebhookHandler {
	return &WebhookHandler{repo: repo}
}

// GetReferralTotals returns the summed reward across all totals rows,
// scoped to a single user when a user_id header is present
func (h *WebhookHandler) GetReferralTotals(c *gin.Context) {
	var userID *uuid.UUID
	if header := c.GetHeader("user_id"); header != "" {
		id, err := uuid.Parse(header)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id header"})
			return
		}
		userID = &id
	}

	total, err := h.repo.SumRewards(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve total reward"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Total reward successfully retrieved",
		"data":    total,
	})
}
