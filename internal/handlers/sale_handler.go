package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"go-rental-ledger/internal/database"
	"go-rental-ledger/internal/inventory"
	"go-rental-ledger/internal/models"
)

type CustomizationRequest struct {
	RawItemID     uint            `json:"raw_item_id" binding:"required"`
	QuantityAdded decimal.Decimal `json:"quantity_added"`
	ExtraPrice    decimal.Decimal `json:"extra_price"`
}

type SaleLineRequest struct {
	ItemType        string                 `json:"item_type" binding:"required,oneof=RAW_ITEM KIT RENTAL CUSTOM"`
	ItemID          uint                   `json:"item_id"`
	Description     string                 `json:"description"`
	Quantity        decimal.Decimal        `json:"quantity"`
	UnitPrice       decimal.Decimal        `json:"unit_price"`
	Customizations  []CustomizationRequest `json:"customizations" binding:"dive"`
	RentalStartDate *time.Time             `json:"rental_start_date"`
	RentalEndDate   *time.Time             `json:"rental_end_date"`
}

// SaleRequest defines what the Frontend sends us
type SaleRequest struct {
	CustomerID     uint              `json:"customer_id"`
	CustomerName   string            `json:"customer_name"`
	CustomerPhone  string            `json:"customer_phone"`
	DiscountAmount decimal.Decimal   `json:"discount_amount"`
	Date           *time.Time        `json:"date"`
	Items          []SaleLineRequest `json:"items" binding:"required,min=1,dive"`
}

func (r SaleRequest) command() inventory.CheckoutCommand {
	cmd := inventory.CheckoutCommand{
		CustomerID:     r.CustomerID,
		CustomerName:   r.CustomerName,
		CustomerPhone:  r.CustomerPhone,
		DiscountAmount: r.DiscountAmount,
	}
	if r.Date != nil {
		cmd.Date = *r.Date
	}
	for _, item := range r.Items {
		line := inventory.SaleLineInput{
			ItemType:    item.ItemType,
			ItemID:      item.ItemID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			RentalStart: item.RentalStartDate,
			RentalEnd:   item.RentalEndDate,
		}
		for _, cz := range item.Customizations {
			line.Customizations = append(line.Customizations, inventory.CustomizationInput{
				RawItemID:     cz.RawItemID,
				QuantityAdded: cz.QuantityAdded,
				ExtraPrice:    cz.ExtraPrice,
			})
		}
		cmd.Lines = append(cmd.Lines, line)
	}
	return cmd
}

// --- POST: Checkout a multi-line sale in one transaction ---
func ProcessSale(c *gin.Context) {
	var req SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sale, err := engine.Sales.Checkout(c.Request.Context(), req.command())
	if err != nil {
		respondError(c, "checkout", err)
		return
	}
	recordSuccess("checkout")

	c.JSON(http.StatusOK, gin.H{
		"message": "Sale successful!",
		"sale_id": sale.ID,
		"total":   sale.TotalAmount,
		"sale":    sale,
	})
}

// --- PUT: Replace a sale; the old one is reversed in the same transaction ---
func EditSale(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req SaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sale, err := engine.Sales.Replace(c.Request.Context(), id, req.command())
	if err != nil {
		respondError(c, "edit_sale", err)
		return
	}
	recordSuccess("edit_sale")
	c.JSON(http.StatusOK, sale)
}

func DeleteSale(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := engine.Sales.DeleteSale(c.Request.Context(), id); err != nil {
		respondError(c, "delete_sale", err)
		return
	}
	recordSuccess("delete_sale")
	c.JSON(http.StatusOK, gin.H{"message": "Sale deleted and stock restored"})
}

func GetSales(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	var sales []models.Sale
	err = database.DB.
		Preload("Customer").
		Preload("Items.Customizations").
		Where("date BETWEEN ? AND ?", from, to).
		Order("date desc, id desc").
		Limit(limit).
		Find(&sales).Error
	if err != nil {
		respondError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

func GetSale(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var sale models.Sale
	if err := database.DB.Preload("Customer").Preload("Items.Customizations").First(&sale, id).Error; err != nil {
		respondError(c, "", notFoundOr(err, "sale", id))
		return
	}
	c.JSON(http.StatusOK, sale)
}
