package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"referral-service/internal/auth"
	"referral-service/internal/services"
)

type ReferralHandler struct {
	referralService *services.ReferralService
	defaultLimit    int
}

func NewReferralHandler(referralService *services.ReferralService, defaultLimit int) *ReferralHandler {
	return &ReferralHandler{
		referralService: referralService,
		defaultLimit:    defaultLimit,
	}
}

// GetReferrals returns the paginated list of users invited by the
// current user
func (h *ReferralHandler) GetReferrals(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", h.defaultLimit)

	referrals, total, err := h.referralService.ListReferrals(c.Request.Context(), userID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get referrals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    referrals,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// JoinReferralProgram attaches the current user to an inviter's tree
// and hands back their freshly generated default code
func (h *ReferralHandler) JoinReferralProgram(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req services.JoinInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code, err := h.referralService.Join(c.Request.Context(), userID, req)
	if err != nil {
		status := http.StatusInternalServerError
		var verrs validator.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":  "Validation failed",
				"fields": validationDetail(verrs),
			})
			return
		case errors.Is(err, services.ErrSelfReferral),
			errors.Is(err, services.ErrAlreadyAttached),
			errors.Is(err, services.ErrReferralCycle):
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User added successfully and referral code created",
		"data":    code,
	})
}

// validationDetail flattens validator errors into field-level messages
func validationDetail(verrs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}

func queryInt(c *gin.Context, key string, defaultValue int) int {
	value := c.Query(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return defaultValue
	}
	return n
}
