package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"go-rental-ledger/internal/database"
	"go-rental-ledger/internal/inventory"
	"go-rental-ledger/internal/models"
)

func GetPurchases(c *gin.Context) {
	var purchases []models.Purchase

	query := database.DB.Preload("Items").Order("date desc, id desc")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&purchases).Error; err != nil {
		respondError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, purchases)
}

type PurchaseLineRequest struct {
	RawItemID uint            `json:"raw_item_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type PurchaseRequest struct {
	Status     string                `json:"status" binding:"omitempty,oneof=PENDING COMPLETED"`
	LandedCost decimal.Decimal       `json:"landed_cost"`
	Supplier   string                `json:"supplier"`
	Notes      string                `json:"notes"`
	Date       *time.Time            `json:"date"`
	Items      []PurchaseLineRequest `json:"items" binding:"required,min=1,dive"`
}

func CreatePurchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	cmd := inventory.NewPurchase{
		Status:     req.Status,
		LandedCost: req.LandedCost,
		Supplier:   req.Supplier,
		Notes:      req.Notes,
	}
	if req.Date != nil {
		cmd.Date = *req.Date
	}
	for _, line := range req.Items {
		cmd.Items = append(cmd.Items, inventory.PurchaseLineInput{
			RawItemID: line.RawItemID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	purchase, err := engine.Purchases.Create(c.Request.Context(), cmd)
	if err != nil {
		respondError(c, "create_purchase", err)
		return
	}
	recordSuccess("create_purchase")
	c.JSON(http.StatusCreated, purchase)
}

// --- POST: Receive a pending purchase into stock (once only) ---
func ReceivePurchase(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	purchase, err := engine.Purchases.Receive(c.Request.Context(), id)
	if err != nil {
		respondError(c, "receive_purchase", err)
		return
	}
	recordSuccess("receive_purchase")
	c.JSON(http.StatusOK, purchase)
}

func DeletePurchase(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := engine.Purchases.Delete(c.Request.Context(), id); err != nil {
		respondError(c, "delete_purchase", err)
		return
	}
	recordSuccess("delete_purchase")
	c.JSON(http.StatusOK, gin.H{"message": "Purchase deleted successfully"})
}
