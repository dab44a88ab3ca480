package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-rental-ledger/internal/ai"
)

type AskRequest struct {
	Message string `json:"message" binding:"required"`
}

func AskAI(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return
	}

	if cfg == nil || cfg.GeminiAPIKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Assistant is not configured"})
		return
	}

	response, err := ai.RunAgent(c.Request.Context(), req.Message, cfg.GeminiAPIKey, engine)
	if err != nil {
		respondError(c, "", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": response})
}
