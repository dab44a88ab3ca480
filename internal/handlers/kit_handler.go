package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go-rental-ledger/internal/database"
	"go-rental-ledger/internal/inventory"
	"go-rental-ledger/internal/models"
)

// --- GET: Kits with BOM cost, formula price and how many can still be built ---
func GetKits(c *gin.Context) {
	var kits []models.Kit
	err := database.DB.
		Preload("BomLines", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Preload("BomLines.RawItem").
		Order("name").
		Find(&kits).Error
	if err != nil {
		respondError(c, "", err)
		return
	}

	views := make([]*inventory.KitView, 0, len(kits))
	for i := range kits {
		views = append(views, inventory.NewKitView(&kits[i]))
	}
	c.JSON(http.StatusOK, views)
}

func GetKit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	view, err := engine.Kits.Kit(c.Request.Context(), id)
	if err != nil {
		respondError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type BomLineRequest struct {
	RawItemID uint            `json:"raw_item_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type KitRequest struct {
	Name          string           `json:"name" binding:"required"`
	ImageURL      string           `json:"image_url"`
	BaseSalePrice decimal.Decimal  `json:"base_sale_price"`
	Bom           []BomLineRequest `json:"bom" binding:"dive"`
}

func (r KitRequest) definition() inventory.KitDefinition {
	def := inventory.KitDefinition{
		Name:          r.Name,
		ImageURL:      r.ImageURL,
		BaseSalePrice: r.BaseSalePrice,
	}
	if r.Bom != nil {
		def.Bom = make([]inventory.BomInput, 0, len(r.Bom))
		for _, line := range r.Bom {
			def.Bom = append(def.Bom, inventory.BomInput{RawItemID: line.RawItemID, Quantity: line.Quantity})
		}
	}
	return def
}

func CreateKit(c *gin.Context) {
	var req KitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	kit, err := engine.Kits.CreateKit(c.Request.Context(), req.definition())
	if err != nil {
		respondError(c, "create_kit", err)
		return
	}
	recordSuccess("create_kit")
	c.JSON(http.StatusCreated, kit)
}

// --- PUT: Update details; a "bom" array replaces the BOM (only with no units assembled) ---
func UpdateKit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req KitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	kit, err := engine.Kits.UpdateKit(c.Request.Context(), id, req.definition())
	if err != nil {
		respondError(c, "update_kit", err)
		return
	}
	recordSuccess("update_kit")
	c.JSON(http.StatusOK, kit)
}

type CountRequest struct {
	Count int `json:"count" binding:"required,gt=0"`
}

func AssembleKit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req CountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "count must be a positive number"})
		return
	}
	kit, err := engine.Kits.Assemble(c.Request.Context(), id, req.Count)
	if err != nil {
		respondError(c, "assemble_kit", err)
		return
	}
	recordSuccess("assemble_kit")
	c.JSON(http.StatusOK, kit)
}

func DisassembleKit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req CountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "count must be a positive number"})
		return
	}
	kit, err := engine.Kits.Disassemble(c.Request.Context(), id, req.Count)
	if err != nil {
		respondError(c, "disassemble_kit", err)
		return
	}
	recordSuccess("disassemble_kit")
	c.JSON(http.StatusOK, kit)
}

func GetMaxBuildable(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	n, err := engine.Kits.MaxBuildable(c.Request.Context(), id)
	if err != nil {
		respondError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kit_id": id, "max_buildable": n})
}

// --- DELETE: Remaining units go back to raw stock first ---
func DeleteKit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := engine.Kits.DeleteKit(c.Request.Context(), id); err != nil {
		respondError(c, "delete_kit", err)
		return
	}
	recordSuccess("delete_kit")
	c.JSON(http.StatusOK, gin.H{"message": "Kit deleted and remaining units disassembled"})
}
