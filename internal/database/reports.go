package database

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go-rental-ledger/internal/inventory"
	"go-rental-ledger/internal/models"
)

// SalesReportResult holds the data the AI needs
type SalesReportResult struct {
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalCount   int64           `json:"total_count"`
}

// GetSalesReport calculates sales within a specific date range
func GetSalesReport(db *gorm.DB, start, end time.Time) (*SalesReportResult, error) {
	var result SalesReportResult

	// COALESCE ensures we get 0 instead of NULL if no sales exist
	err := db.Model(&models.Sale{}).
		Where("date BETWEEN ? AND ?", start, end).
		Select("COALESCE(SUM(total_amount), 0)").
		Row().Scan(&result.TotalRevenue)
	if err != nil {
		return nil, err
	}

	err = db.Model(&models.Sale{}).
		Where("date BETWEEN ? AND ?", start, end).
		Count(&result.TotalCount).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ProfitAndLoss is the income statement for a period. Cost of goods uses the
// cost snapshot taken when each line was sold.
type ProfitAndLoss struct {
	From          time.Time       `json:"from"`
	To            time.Time       `json:"to"`
	SalesCount    int64           `json:"sales_count"`
	Revenue       decimal.Decimal `json:"revenue"`
	Discounts     decimal.Decimal `json:"discounts"`
	CostOfGoods   decimal.Decimal `json:"cost_of_goods"`
	GrossProfit   decimal.Decimal `json:"gross_profit"`
	Expenses      decimal.Decimal `json:"expenses"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	PurchaseSpend decimal.Decimal `json:"purchase_spend"`
}

func sum(q *gorm.DB, expr string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := q.Select("COALESCE(SUM(" + expr + "), 0)").Row().Scan(&total)
	return total, err
}

func GetProfitAndLoss(db *gorm.DB, from, to time.Time) (*ProfitAndLoss, error) {
	pl := &ProfitAndLoss{From: from, To: to}
	sales := func() *gorm.DB {
		return db.Model(&models.Sale{}).Where("date BETWEEN ? AND ?", from, to)
	}

	var err error
	if err = sales().Count(&pl.SalesCount).Error; err != nil {
		return nil, err
	}
	if pl.Revenue, err = sum(sales(), "total_amount"); err != nil {
		return nil, err
	}
	if pl.Discounts, err = sum(sales(), "discount_amount"); err != nil {
		return nil, err
	}
	lines := db.Model(&models.SaleLineItem{}).
		Joins("JOIN sales ON sales.id = sale_line_items.sale_id").
		Where("sales.date BETWEEN ? AND ?", from, to)
	if pl.CostOfGoods, err = sum(lines, "sale_line_items.unit_cost_at_sale * sale_line_items.quantity"); err != nil {
		return nil, err
	}
	expenses := db.Model(&models.Expense{}).Where("date BETWEEN ? AND ?", from, to)
	if pl.Expenses, err = sum(expenses, "amount"); err != nil {
		return nil, err
	}

	completed := func() *gorm.DB {
		return db.Model(&models.Purchase{}).
			Where("status = ? AND date BETWEEN ? AND ?", models.PurchaseStatusCompleted, from, to)
	}
	goods, err := sum(db.Model(&models.PurchaseLineItem{}).
		Joins("JOIN purchases ON purchases.id = purchase_line_items.purchase_id").
		Where("purchases.status = ? AND purchases.date BETWEEN ? AND ?", models.PurchaseStatusCompleted, from, to),
		"purchase_line_items.quantity * purchase_line_items.unit_price")
	if err != nil {
		return nil, err
	}
	landed, err := sum(completed(), "landed_cost")
	if err != nil {
		return nil, err
	}
	pl.PurchaseSpend = goods.Add(landed)

	pl.GrossProfit = pl.Revenue.Sub(pl.CostOfGoods)
	pl.NetProfit = pl.GrossProfit.Sub(pl.Expenses)
	return pl, nil
}

// SalesSummaryRow aggregates sale lines of one item type.
type SalesSummaryRow struct {
	ItemType string          `json:"item_type"`
	Lines    int64           `json:"lines"`
	Quantity decimal.Decimal `json:"quantity"`
	Cost     decimal.Decimal `json:"cost"`
}

func GetSalesSummary(db *gorm.DB, from, to time.Time) ([]SalesSummaryRow, error) {
	rows, err := db.Model(&models.SaleLineItem{}).
		Select("sale_line_items.item_type, COUNT(*), COALESCE(SUM(sale_line_items.quantity), 0), "+
			"COALESCE(SUM(sale_line_items.unit_cost_at_sale * sale_line_items.quantity), 0)").
		Joins("JOIN sales ON sales.id = sale_line_items.sale_id").
		Where("sales.date BETWEEN ? AND ?", from, to).
		Group("sale_line_items.item_type").
		Order("sale_line_items.item_type").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SalesSummaryRow
	for rows.Next() {
		var row SalesSummaryRow
		if err := rows.Scan(&row.ItemType, &row.Lines, &row.Quantity, &row.Cost); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ValuationRow is the stock value held under one category.
type ValuationRow struct {
	Category   string          `json:"category"`
	ItemCount  int64           `json:"item_count"`
	Units      decimal.Decimal `json:"units"`
	TotalValue decimal.Decimal `json:"total_value"`
}

const kitsCategory = "Assembled Kits"

// GetStockValuation values raw items at moving average cost by category, and
// assembled kits at their current BOM cost.
func GetStockValuation(db *gorm.DB) ([]ValuationRow, error) {
	rows, err := db.Model(&models.RawItem{}).
		Select("COALESCE(categories.name, 'Uncategorized'), COUNT(raw_items.id), " +
			"COALESCE(SUM(raw_items.current_stock), 0), " +
			"COALESCE(SUM(raw_items.current_stock * raw_items.moving_average_cost), 0)").
		Joins("LEFT JOIN categories ON categories.id = raw_items.category_id").
		Group("categories.name").
		Order("categories.name").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ValuationRow
	for rows.Next() {
		var row ValuationRow
		if err := rows.Scan(&row.Category, &row.ItemCount, &row.Units, &row.TotalValue); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var kits []models.Kit
	if err := db.Preload("BomLines").Preload("BomLines.RawItem").Where("current_stock > 0").Find(&kits).Error; err != nil {
		return nil, err
	}
	if len(kits) > 0 {
		row := ValuationRow{Category: kitsCategory}
		for i := range kits {
			units := decimal.NewFromInt(int64(kits[i].CurrentStock))
			row.ItemCount++
			row.Units = row.Units.Add(units)
			row.TotalValue = row.TotalValue.Add(inventory.KitCost(&kits[i]).Mul(units))
		}
		out = append(out, row)
	}
	return out, nil
}
