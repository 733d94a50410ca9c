package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"referral-service/internal/auth"
	"referral-service/internal/services"
)

type ReferralCodeHandler struct {
	codeService *services.ReferralCodeService
}

func NewReferralCodeHandler(codeService *services.ReferralCodeService) *ReferralCodeHandler {
	return &ReferralCodeHandler{codeService: codeService}
}

// GetCodes lists all referral codes owned by the current user
func (h *ReferralCodeHandler) GetCodes(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	codes, err := h.codeService.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get referral codes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    codes,
		"count":   len(codes),
	})
}

// CreateCode generates an additional referral code for the current user
func (h *ReferralCodeHandler) CreateCode(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req struct {
		ApplicationID string  `json:"application_id" binding:"required"`
		Note          *string `json:"note"`
		IsDefault     bool    `json:"is_default"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code, err := h.codeService.Generate(c.Request.Context(), userID, services.GenerateCodeInput{
		ApplicationID: req.ApplicationID,
		Note:          req.Note,
		IsDefault:     req.IsDefault,
	})
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":  "Validation failed",
				"fields": validationDetail(verrs),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create referral code"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    code,
	})
}

// GetCode returns a single referral code owned by the current user
func (h *ReferralCodeHandler) GetCode(c *gin.Context) {
	userID, codeID, ok := h.codeParams(c)
	if !ok {
		return
	}

	code, err := h.codeService.GetByID(c.Request.Context(), userID, codeID)
	if err != nil {
		h.writeCodeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    code,
	})
}

// UpdateCode changes the note or default flag of a code
func (h *ReferralCodeHandler) UpdateCode(c *gin.Context) {
	userID, codeID, ok := h.codeParams(c)
	if !ok {
		return
	}

	var req struct {
		Note      *string `json:"note"`
		IsDefault *bool   `json:"is_default"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code, err := h.codeService.Update(c.Request.Context(), userID, codeID, services.UpdateCodeInput{
		Note:      req.Note,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		h.writeCodeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "The referral code (link) has been successfully updated",
		"data":    code,
	})
}

// SetDefaultCode marks a code as the user's default
func (h *ReferralCodeHandler) SetDefaultCode(c *gin.Context) {
	userID, codeID, ok := h.codeParams(c)
	if !ok {
		return
	}

	if err := h.codeService.SetDefault(c.Request.Context(), userID, codeID); err != nil {
		h.writeCodeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Default referral code updated",
	})
}

// DeleteCode soft-deletes a code owned by the current user
func (h *ReferralCodeHandler) DeleteCode(c *gin.Context) {
	userID, codeID, ok := h.codeParams(c)
	if !ok {
		return
	}

	if err := h.codeService.Delete(c.Request.Context(), userID, codeID); err != nil {
		h.writeCodeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Referral code deleted",
	})
}

func (h *ReferralCodeHandler) codeParams(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return uuid.Nil, uuid.Nil, false
	}

	codeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid referral code id"})
		return uuid.Nil, uuid.Nil, false
	}

	return userID, codeID, true
}

func (h *ReferralCodeHandler) writeCodeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Referral code not found"})
	case errors.Is(err, services.ErrCodeNotOwned):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":  "Validation failed",
				"fields": validationDetail(verrs),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Referral code operation failed"})
	}
}
