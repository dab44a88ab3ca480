package database

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"go-rental-ledger/internal/inventory"
	"go-rental-ledger/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open("sqlite", "file::memory:", logger.Silent)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, Migrate(db))
	return db
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func june(day int) time.Time {
	return time.Date(2024, time.June, day, 0, 0, 0, 0, time.UTC)
}

func TestGetProfitAndLoss(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	eng := inventory.NewEngine(NewUnitOfWork(db), nil)

	candle, err := eng.Catalog.CreateRawItem(ctx, inventory.NewRawItem{Name: "Candle"})
	require.NoError(t, err)
	_, err = eng.Ledger.AddOpeningStock(ctx, candle.ID, d("10"), d("3"))
	require.NoError(t, err)

	_, err = eng.Sales.Checkout(ctx, inventory.CheckoutCommand{
		CustomerName:  "Dana",
		CustomerPhone: "555-0100",
		Date:          june(1),
		Lines: []inventory.SaleLineInput{
			{ItemType: models.ItemTypeRawItem, ItemID: candle.ID, Quantity: d("2"), UnitPrice: d("8")},
		},
	})
	require.NoError(t, err)
	_, err = eng.Purchases.Create(ctx, inventory.NewPurchase{
		Status:     models.PurchaseStatusCompleted,
		LandedCost: d("2"),
		Date:       june(3),
		Items:      []inventory.PurchaseLineInput{{RawItemID: candle.ID, Quantity: d("4"), UnitPrice: d("2")}},
	})
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Expense{Amount: d("5"), Description: "Fuel", Date: june(2)}).Error)
	require.NoError(t, db.Create(&models.Expense{Amount: d("100"), Description: "Outside the period", Date: june(20).AddDate(0, 1, 0)}).Error)

	pl, err := GetProfitAndLoss(db, june(1), june(30))
	require.NoError(t, err)

	assert.Equal(t, int64(1), pl.SalesCount)
	assert.True(t, d("16").Equal(pl.Revenue), pl.Revenue.String())
	assert.True(t, d("6").Equal(pl.CostOfGoods), pl.CostOfGoods.String())
	assert.True(t, d("10").Equal(pl.GrossProfit), pl.GrossProfit.String())
	assert.True(t, d("5").Equal(pl.Expenses), pl.Expenses.String())
	assert.True(t, d("5").Equal(pl.NetProfit), pl.NetProfit.String())
	assert.True(t, d("10").Equal(pl.PurchaseSpend), pl.PurchaseSpend.String())

	report, err := GetSalesReport(db, june(1), june(30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.TotalCount)
	assert.True(t, d("16").Equal(report.TotalRevenue))

	summary, err := GetSalesSummary(db, june(1), june(30))
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, models.ItemTypeRawItem, summary[0].ItemType)
	assert.True(t, d("6").Equal(summary[0].Cost))
}

func TestGetStockValuation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	eng := inventory.NewEngine(NewUnitOfWork(db), nil)

	decor := models.Category{Name: "Decor"}
	require.NoError(t, db.Create(&decor).Error)

	candle, err := eng.Catalog.CreateRawItem(ctx, inventory.NewRawItem{Name: "Candle", CategoryID: &decor.ID})
	require.NoError(t, err)
	_, err = eng.Ledger.AddOpeningStock(ctx, candle.ID, d("10"), d("3"))
	require.NoError(t, err)
	balloon, err := eng.Catalog.CreateRawItem(ctx, inventory.NewRawItem{Name: "Balloon"})
	require.NoError(t, err)
	_, err = eng.Ledger.AddOpeningStock(ctx, balloon.ID, d("100"), d("0.5"))
	require.NoError(t, err)

	kit, err := eng.Kits.CreateKit(ctx, inventory.KitDefinition{
		Name: "Balloon Bunch",
		Bom:  []inventory.BomInput{{RawItemID: balloon.ID, Quantity: d("10")}},
	})
	require.NoError(t, err)
	_, err = eng.Kits.Assemble(ctx, kit.ID, 2)
	require.NoError(t, err)

	rows, err := GetStockValuation(db)
	require.NoError(t, err)

	byCategory := map[string]ValuationRow{}
	for _, row := range rows {
		byCategory[row.Category] = row
	}
	require.Len(t, byCategory, 3)
	assert.True(t, d("30").Equal(byCategory["Decor"].TotalValue))
	assert.True(t, d("40").Equal(byCategory["Uncategorized"].TotalValue))
	assert.True(t, d("10").Equal(byCategory[kitsCategory].TotalValue))
	assert.Equal(t, int64(1), byCategory[kitsCategory].ItemCount)
}
