package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"go-rental-ledger/internal/config"
	"go-rental-ledger/internal/inventory"
	"go-rental-ledger/internal/metrics"
)

var (
	engine *inventory.Engine
	cfg    *config.Config
	stats  *metrics.Metrics
)

// Setup hands the handlers their collaborators. database.DB must already be
// connected.
func Setup(e *inventory.Engine, c *config.Config, m *metrics.Metrics) {
	engine = e
	cfg = c
	stats = m
}

// respondError maps engine errors onto their HTTP status; anything else is a 500.
func respondError(c *gin.Context, operation string, err error) {
	if stats != nil && operation != "" {
		stats.RecordOperation(operation, err)
	}
	if e, ok := inventory.AsError(err); ok {
		if e.Kind == inventory.KindInvariantViolation {
			config.LogError(config.GetLogger(), "handlers", operation, "ledger invariant violated", c.Request.URL.Path, err)
		}
		c.JSON(e.HTTPStatus(), gin.H{
			"error":     string(e.Kind),
			"message":   err.Error(),
			"item":      e.Item,
			"requested": e.Requested,
			"available": e.Available,
		})
		return
	}
	config.LogError(config.GetLogger(), "handlers", operation, "request failed", c.Request.URL.Path, err)
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// notFoundOr turns gorm's missing-row error into the engine's NotFound.
func notFoundOr(err error, resource string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return inventory.NotFound(resource, id)
	}
	return err
}

func recordSuccess(operation string) {
	if stats != nil {
		stats.RecordOperation(operation, nil)
	}
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// parseDate accepts YYYY-MM-DD (server local time) or RFC 3339.
func parseDate(value string) (time.Time, error) {
	if t, err := time.ParseInLocation(time.DateOnly, value, time.Local); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

// dateRange reads ?from=&to= and defaults to the current month. The end day is
// inclusive.
func dateRange(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	to := inventory.EndOfDay(now)

	if v := c.Query("from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
			return from, to, false
		}
		from = inventory.StartOfDay(t)
	}
	if v := c.Query("to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
			return from, to, false
		}
		to = inventory.EndOfDay(t)
	}
	return from, to, true
}
