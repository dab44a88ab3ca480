package ai

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"go-rental-ledger/internal/database"
	"go-rental-ledger/internal/inventory"
)

func newExecutor(t *testing.T) (*toolExecutor, context.Context) {
	t.Helper()
	db, err := database.Open("sqlite", "file::memory:", logger.Silent)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	engine := inventory.NewEngine(database.NewUnitOfWork(db), nil)
	return &toolExecutor{engine: engine, db: db}, inventory.WithActor(context.Background(), "assistant")
}

func TestExecute_CheckInventoryReportsKitFigures(t *testing.T) {
	exec, ctx := newExecutor(t)

	balloon, err := exec.engine.Catalog.CreateRawItem(ctx, inventory.NewRawItem{Name: "Balloon"})
	require.NoError(t, err)
	_, err = exec.engine.Ledger.AddOpeningStock(ctx, balloon.ID, decimal.NewFromInt(10), decimal.NewFromInt(1))
	require.NoError(t, err)
	_, err = exec.engine.Kits.CreateKit(ctx, inventory.KitDefinition{
		Name: "Arch",
		Bom:  []inventory.BomInput{{RawItemID: balloon.ID, Quantity: decimal.NewFromInt(4)}},
	})
	require.NoError(t, err)

	result := exec.execute(ctx, genai.FunctionCall{Name: "check_inventory"})
	require.NotContains(t, result, "error")

	var kits []kitRow
	require.NoError(t, json.Unmarshal([]byte(result["kits"].(string)), &kits))
	require.Len(t, kits, 1)
	assert.Equal(t, "4.00", kits[0].Cost)
	assert.Equal(t, "10.00", kits[0].RetailPrice)
	assert.Equal(t, 2, kits[0].MaxBuildable)
}

func TestExecute_UpdateKitPriceKeepsBom(t *testing.T) {
	exec, ctx := newExecutor(t)

	balloon, err := exec.engine.Catalog.CreateRawItem(ctx, inventory.NewRawItem{Name: "Balloon"})
	require.NoError(t, err)
	kit, err := exec.engine.Kits.CreateKit(ctx, inventory.KitDefinition{
		Name: "Arch",
		Bom:  []inventory.BomInput{{RawItemID: balloon.ID, Quantity: decimal.NewFromInt(4)}},
	})
	require.NoError(t, err)

	result := exec.execute(ctx, genai.FunctionCall{
		Name: "update_kit_price",
		Args: map[string]any{"kit_id": float64(kit.ID), "new_price": 25.5},
	})
	assert.Equal(t, "Success", result["status"])
	assert.Equal(t, "25.50", result["new_price"])

	view, err := exec.engine.Kits.Kit(ctx, kit.ID)
	require.NoError(t, err)
	assert.Len(t, view.BomLines, 1)
}

func TestExecute_ErrorsGoBackToTheModel(t *testing.T) {
	exec, ctx := newExecutor(t)

	result := exec.execute(ctx, genai.FunctionCall{
		Name: "check_rental_availability",
		Args: map[string]any{"rental_item_id": float64(1), "start_date": "tomorrow", "end_date": "2024-06-02"},
	})
	assert.Contains(t, result["error"], "YYYY-MM-DD")

	result = exec.execute(ctx, genai.FunctionCall{
		Name: "update_kit_price",
		Args: map[string]any{"kit_id": float64(99), "new_price": 10.0},
	})
	assert.Contains(t, result["error"], "not found")

	result = exec.execute(ctx, genai.FunctionCall{Name: "drop_tables"})
	assert.Contains(t, result["error"], "unknown tool")
}

func TestExecute_SalesReportOnEmptyLedger(t *testing.T) {
	exec, ctx := newExecutor(t)

	result := exec.execute(ctx, genai.FunctionCall{
		Name: "get_sales_report",
		Args: map[string]any{"start_date": "2024-06-01", "end_date": "2024-06-30"},
	})
	assert.Equal(t, "0.00", result["revenue"])
	assert.Equal(t, int64(0), result["sales_count"])
}
