package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User - The person operating the back office (and talking to the AI)
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50" json:"username"`
	PasswordHash string    `json:"-"`    // Never return this in JSON
	Role         string    `json:"role"` // 'admin', 'staff'
	CreatedAt    time.Time `json:"created_at"`
}

// Category - Shared taxonomy for raw items and rental assets
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:100" json:"name"`
}

// RawItem - A raw material held in stock at a moving average cost
type RawItem struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	Name              string          `gorm:"size:150;not null" json:"name"`
	CategoryID        *uint           `json:"category_id"`
	Category          *Category       `json:"category,omitempty"`
	ImageURL          string          `json:"image_url"`
	IsBulk            bool            `json:"is_bulk"` // sold/consumed in fractional quantities
	CurrentStock      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"current_stock"`
	MovingAverageCost decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0" json:"moving_average_cost"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Kit - An assembled, sellable product built from raw items
type Kit struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"size:150;not null" json:"name"`
	ImageURL      string          `json:"image_url"`
	CurrentStock  int             `gorm:"not null;default:0" json:"current_stock"`
	BaseSalePrice decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"base_sale_price"`
	BomLines      []BomLine       `gorm:"foreignKey:KitID" json:"bom_lines"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// BomLine - Quantity of one raw item consumed per kit unit
type BomLine struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	KitID     uint            `gorm:"index;not null" json:"kit_id"`
	RawItemID uint            `gorm:"index;not null" json:"raw_item_id"`
	RawItem   *RawItem        `json:"raw_item,omitempty"`
	Quantity  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	Position  int             `json:"position"`
}

const (
	PurchaseStatusPending   = "PENDING"
	PurchaseStatusCompleted = "COMPLETED"
)

// Purchase - A supplier order; COMPLETED ones have been received into stock
type Purchase struct {
	ID         uint               `gorm:"primaryKey" json:"id"`
	Status     string             `gorm:"size:20;not null;default:PENDING" json:"status"`
	LandedCost decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"landed_cost"`
	Supplier   string             `json:"supplier"`
	Notes      string             `json:"notes"`
	Date       time.Time          `json:"date"`
	ReceivedAt *time.Time         `json:"received_at"`
	Items      []PurchaseLineItem `gorm:"foreignKey:PurchaseID" json:"items"`
}

// PurchaseLineItem - One raw item line of a purchase
type PurchaseLineItem struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	PurchaseID uint            `gorm:"index;not null" json:"purchase_id"`
	RawItemID  uint            `gorm:"index;not null" json:"raw_item_id"`
	Quantity   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"unit_price"`
}

// Customer - Who the sale was made to (looked up by phone)
type Customer struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `json:"name"`
	Phone string `gorm:"uniqueIndex;size:30" json:"phone"`
}

const (
	ItemTypeRawItem = "RAW_ITEM"
	ItemTypeKit     = "KIT"
	ItemTypeRental  = "RENTAL"
	ItemTypeCustom  = "CUSTOM"
)

// Sale - The Transaction Header
type Sale struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	CustomerID     uint            `gorm:"index" json:"customer_id"`
	Customer       *Customer       `json:"customer,omitempty"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"discount_amount"`
	Date           time.Time       `gorm:"index" json:"date"`
	CreatedBy      string          `json:"created_by"`
	Items          []SaleLineItem  `gorm:"foreignKey:SaleID" json:"items"`
}

// SaleLineItem - One line of a sale. UnitCostAtSale is a snapshot taken at commit
// and is never recomputed.
type SaleLineItem struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	SaleID          uint            `gorm:"index;not null" json:"sale_id"`
	ItemType        string          `gorm:"size:20;index:idx_line_item;not null" json:"item_type"`
	ItemID          *uint           `gorm:"index:idx_line_item" json:"item_id"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	UnitCostAtSale  decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0" json:"unit_cost_at_sale"`
	IsCustomized    bool            `json:"is_customized"`
	Customizations  []Customization `gorm:"foreignKey:SaleLineItemID" json:"customizations"`
	RentalStartDate *time.Time      `json:"rental_start_date"`
	RentalEndDate   *time.Time      `json:"rental_end_date"`
	IsReturned      bool            `gorm:"not null;default:false" json:"is_returned"`
	ReturnedAt      *time.Time      `json:"returned_at"`
	DamagedQuantity int             `gorm:"not null;default:0" json:"damaged_quantity"`
}

// Customization - Extra raw material layered onto a kit line at sale time
type Customization struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	SaleLineItemID uint            `gorm:"index;not null" json:"sale_line_item_id"`
	RawItemID      uint            `gorm:"index;not null" json:"raw_item_id"`
	QuantityAdded  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity_added"`
	ExtraPrice     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"extra_price"`
}

// RentalItem - A physically owned asset that is booked out by the day
type RentalItem struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Name       string          `gorm:"size:150;not null" json:"name"`
	CategoryID *uint           `json:"category_id"`
	Category   *Category       `json:"category,omitempty"`
	ImageURL   string          `json:"image_url"`
	TotalStock int             `gorm:"not null;default:0" json:"total_stock"`
	DailyPrice decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"daily_price"`
}

// AuditLog - Append-only trail of every mutating operation
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Actor     string    `gorm:"size:100" json:"actor"`
	Action    string    `gorm:"size:50;index" json:"action"`
	Details   string    `gorm:"type:text" json:"details"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// ExpenseCategory - Grouping for operating expenses
type ExpenseCategory struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:100" json:"name"`
}

// Expense - Operating cost that feeds the P&L
type Expense struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	CategoryID  uint             `gorm:"index" json:"category_id"`
	Category    *ExpenseCategory `json:"category,omitempty"`
	Amount      decimal.Decimal  `gorm:"type:decimal(20,4);not null" json:"amount"`
	Description string           `json:"description"`
	Date        time.Time        `gorm:"index" json:"date"`
}
