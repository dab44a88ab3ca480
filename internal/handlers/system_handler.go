package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"go-rental-ledger/internal/database"
	"go-rental-ledger/internal/models"
	"go-rental-ledger/internal/utils"
)

// GetSystemStatus reports which node answered and whether cross-instance locking is on
func GetSystemStatus(c *gin.Context) {
	status := gin.H{
		"instance_id": utils.InstanceID(),
		"redis_lock":  cfg != nil && cfg.RedisAddress != "",
	}
	if cfg != nil {
		status["environment"] = cfg.Environment
	}
	c.JSON(http.StatusOK, status)
}

// --- GET: /api/system/logs?limit=50 ---
func GetSystemLogs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	query := database.DB.Order("created_at desc, id desc").Limit(limit)
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}

	var logs []models.AuditLog
	if err := query.Find(&logs).Error; err != nil {
		respondError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
