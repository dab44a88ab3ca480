package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"go-rental-ledger/internal/database"
	"go-rental-ledger/internal/inventory"
	"go-rental-ledger/internal/models"
)

// --- GET: List raw materials with stock and cost ---
func GetRawItems(c *gin.Context) {
	var items []models.RawItem

	query := database.DB.Preload("Category").Order("name")
	if categoryID := c.Query("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if err := query.Find(&items).Error; err != nil {
		respondError(c, "", err)
		return
	}

	c.JSON(http.StatusOK, items)
}

type RawItemRequest struct {
	Name       string `json:"name" binding:"required"`
	CategoryID *uint  `json:"category_id"`
	ImageURL   string `json:"image_url"`
	IsBulk     bool   `json:"is_bulk"`
}

// --- POST: Add a raw material (starts with no stock) ---
func CreateRawItem(c *gin.Context) {
	var req RawItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	item, err := engine.Catalog.CreateRawItem(c.Request.Context(), inventory.NewRawItem{
		Name:       req.Name,
		CategoryID: req.CategoryID,
		ImageURL:   req.ImageURL,
		IsBulk:     req.IsBulk,
	})
	if err != nil {
		respondError(c, "create_raw_item", err)
		return
	}
	recordSuccess("create_raw_item")
	c.JSON(http.StatusCreated, item)
}

// --- DELETE: Remove a raw material nothing refers to ---
func DeleteRawItem(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := engine.Catalog.DeleteRawItem(c.Request.Context(), id); err != nil {
		respondError(c, "delete_raw_item", err)
		return
	}
	recordSuccess("delete_raw_item")
	c.JSON(http.StatusOK, gin.H{"message": "Raw item deleted successfully"})
}

type AdjustStockRequest struct {
	NewQuantity decimal.Decimal `json:"new_quantity"`
	Reason      string          `json:"reason" binding:"required"`
}

// --- POST: Manual stock count correction ---
func AdjustStock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "new_quantity and reason are required"})
		return
	}

	item, err := engine.Ledger.Adjust(c.Request.Context(), inventory.AdjustStockCommand{
		RawItemID:   id,
		NewQuantity: req.NewQuantity,
		Reason:      req.Reason,
	})
	if err != nil {
		respondError(c, "adjust_stock", err)
		return
	}
	recordSuccess("adjust_stock")
	c.JSON(http.StatusOK, item)
}

type OpeningStockRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// --- POST: Bring pre-existing stock onto the ledger ---
func AddOpeningStock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req OpeningStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	item, err := engine.Ledger.AddOpeningStock(c.Request.Context(), id, req.Quantity, req.UnitCost)
	if err != nil {
		respondError(c, "opening_stock", err)
		return
	}
	recordSuccess("opening_stock")
	c.JSON(http.StatusOK, item)
}
