package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"go-rental-ledger/internal/database"
	"go-rental-ledger/internal/inventory"
	"go-rental-ledger/internal/models"
)

func GetRentalItems(c *gin.Context) {
	var items []models.RentalItem
	if err := database.DB.Preload("Category").Order("name").Find(&items).Error; err != nil {
		respondError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

type RentalItemRequest struct {
	Name       string          `json:"name" binding:"required"`
	CategoryID *uint           `json:"category_id"`
	ImageURL   string          `json:"image_url"`
	TotalStock int             `json:"total_stock" binding:"gte=0"`
	DailyPrice decimal.Decimal `json:"daily_price"`
}

func CreateRentalItem(c *gin.Context) {
	var req RentalItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	item, err := engine.Catalog.CreateRentalItem(c.Request.Context(), inventory.NewRentalItem{
		Name:       req.Name,
		CategoryID: req.CategoryID,
		ImageURL:   req.ImageURL,
		TotalStock: req.TotalStock,
		DailyPrice: req.DailyPrice,
	})
	if err != nil {
		respondError(c, "create_rental_item", err)
		return
	}
	recordSuccess("create_rental_item")
	c.JSON(http.StatusCreated, item)
}

// --- GET: /rentals/:id/availability?start=YYYY-MM-DD&end=YYYY-MM-DD ---
func GetRentalAvailability(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	start, err := parseDate(c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be YYYY-MM-DD"})
		return
	}
	end, err := parseDate(c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be YYYY-MM-DD"})
		return
	}

	availability, err := engine.Rentals.Availability(c.Request.Context(), id, start, end)
	if err != nil {
		respondError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, availability)
}

type ReturnRequest struct {
	ReturnedQuantity int `json:"returned_quantity" binding:"gte=0"`
	DamagedQuantity  int `json:"damaged_quantity" binding:"gte=0"`
}

// --- POST: /rentals/returns/:lineId ---
func ReturnRental(c *gin.Context) {
	id, ok := parseID(c, "lineId")
	if !ok {
		return
	}
	var req ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	line, err := engine.Sales.ProcessReturn(c.Request.Context(), id, req.ReturnedQuantity, req.DamagedQuantity)
	if err != nil {
		respondError(c, "rental_return", err)
		return
	}
	recordSuccess("rental_return")
	c.JSON(http.StatusOK, line)
}

// --- GET: Rental lines still out with customers ---
func GetActiveRentals(c *gin.Context) {
	var lines []models.SaleLineItem
	err := database.DB.
		Where("item_type = ? AND is_returned = ?", models.ItemTypeRental, false).
		Order("rental_start_date").
		Find(&lines).Error
	if err != nil {
		respondError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, lines)
}
