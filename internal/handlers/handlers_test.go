package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm/logger"

	"go-rental-ledger/internal/config"
	"go-rental-ledger/internal/database"
	"go-rental-ledger/internal/inventory"
	"go-rental-ledger/internal/metrics"
	"go-rental-ledger/internal/models"
)

func newRouter(t *testing.T) (*gin.Engine, context.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open("sqlite", "file::memory:", logger.Silent)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	database.DB = db

	Setup(inventory.NewEngine(database.NewUnitOfWork(db), nil), &config.Config{
		UploadDir: t.TempDir(),
		BaseURL:   "http://test",
	}, metrics.New("handlers_test"))

	r := gin.New()
	r.POST("/register", Register)
	r.POST("/login", Login)
	r.POST("/checkout", ProcessSale)
	r.GET("/sales/:id", GetSale)
	r.POST("/purchases", CreatePurchase)
	r.POST("/purchases/:id/receive", ReceivePurchase)
	r.GET("/rentals/:id/availability", GetRentalAvailability)
	r.GET("/reports/valuation/export", ExportStockValuation)
	r.GET("/system/logs", GetSystemLogs)

	return r, inventory.WithActor(context.Background(), "tester")
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func stockedItem(t *testing.T, ctx context.Context, name string, qty, cost int64) *models.RawItem {
	t.Helper()
	item, err := engine.Catalog.CreateRawItem(ctx, inventory.NewRawItem{Name: name})
	require.NoError(t, err)
	item, err = engine.Ledger.AddOpeningStock(ctx, item.ID, decimal.NewFromInt(qty), decimal.NewFromInt(cost))
	require.NoError(t, err)
	return item
}

func saleBody(itemID uint, qty int) gin.H {
	return gin.H{
		"customer_name":  "Dana",
		"customer_phone": "555-0100",
		"items": []gin.H{
			{"item_type": models.ItemTypeRawItem, "item_id": itemID, "quantity": qty, "unit_price": 10},
		},
	}
}

func TestProcessSale(t *testing.T) {
	r, ctx := newRouter(t)
	balloon := stockedItem(t, ctx, "Balloon", 5, 2)

	w := do(r, http.MethodPost, "/checkout", saleBody(balloon.ID, 2))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "20", body["total"])

	w = do(r, http.MethodGet, fmt.Sprintf("/sales/%v", body["sale_id"]), nil)
	require.Equal(t, http.StatusOK, w.Code)
	sale := decode(t, w)
	assert.Equal(t, "Dana", sale["customer"].(map[string]any)["name"])
}

func TestProcessSale_ShortfallIsBadRequest(t *testing.T) {
	r, ctx := newRouter(t)
	balloon := stockedItem(t, ctx, "Balloon", 3, 2)

	w := do(r, http.MethodPost, "/checkout", saleBody(balloon.ID, 10))
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, string(inventory.KindInsufficientStock), body["error"])
	assert.Equal(t, "Balloon", body["item"])
	assert.Equal(t, "10", body["requested"])
	assert.Equal(t, "3", body["available"])

	var sales int64
	require.NoError(t, database.DB.Model(&models.Sale{}).Count(&sales).Error)
	assert.Zero(t, sales)
}

func TestProcessSale_RejectsMalformedBody(t *testing.T) {
	r, _ := newRouter(t)

	w := do(r, http.MethodPost, "/checkout", gin.H{"items": []gin.H{{"item_type": "GIFT"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/sales/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReceivePurchase_SecondReceiptConflicts(t *testing.T) {
	r, ctx := newRouter(t)
	tulle := stockedItem(t, ctx, "Tulle", 1, 1)

	w := do(r, http.MethodPost, "/purchases", gin.H{
		"supplier": "Fabric Co",
		"items":    []gin.H{{"raw_item_id": tulle.ID, "quantity": 4, "unit_price": 3}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["id"]

	w = do(r, http.MethodPost, fmt.Sprintf("/purchases/%v/receive", id), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.PurchaseStatusCompleted, decode(t, w)["status"])

	w = do(r, http.MethodPost, fmt.Sprintf("/purchases/%v/receive", id), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetRentalAvailability(t *testing.T) {
	r, ctx := newRouter(t)
	chairs, err := engine.Catalog.CreateRentalItem(ctx, inventory.NewRentalItem{Name: "Chair", TotalStock: 5})
	require.NoError(t, err)

	start := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.Local)
	end := time.Date(2024, time.June, 12, 0, 0, 0, 0, time.Local)
	_, err = engine.Sales.Checkout(ctx, inventory.CheckoutCommand{
		CustomerName:  "Dana",
		CustomerPhone: "555-0100",
		Lines: []inventory.SaleLineInput{{
			ItemType:    models.ItemTypeRental,
			ItemID:      chairs.ID,
			Quantity:    decimal.NewFromInt(3),
			RentalStart: &start,
			RentalEnd:   &end,
		}},
	})
	require.NoError(t, err)

	w := do(r, http.MethodGet, fmt.Sprintf("/rentals/%d/availability?start=2024-06-11&end=2024-06-13", chairs.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.EqualValues(t, 3, body["max_concurrent_usage"])
	assert.EqualValues(t, 2, body["available_stock"])

	w = do(r, http.MethodGet, fmt.Sprintf("/rentals/%d/availability?start=june&end=2024-06-13", chairs.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_FirstUserIsAdmin(t *testing.T) {
	r, _ := newRouter(t)

	w := do(r, http.MethodPost, "/register", gin.H{"username": "owner", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "admin", decode(t, w)["role"])

	w = do(r, http.MethodPost, "/register", gin.H{"username": "clerk", "password": "secret2"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "staff", decode(t, w)["role"])

	w = do(r, http.MethodPost, "/login", gin.H{"username": "clerk", "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/login", gin.H{"username": "clerk", "password": "secret2"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["token"])
}

func TestRegister_FoldsUsernames(t *testing.T) {
	r, _ := newRouter(t)

	w := do(r, http.MethodPost, "/register", gin.H{"username": " Dana ", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "dana", decode(t, w)["username"])

	w = do(r, http.MethodPost, "/register", gin.H{"username": "DANA", "password": "secret2"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/register", gin.H{"username": "   ", "password": "secret2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/login", gin.H{"username": "Dana", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dana", decode(t, w)["username"])
}

func TestExportStockValuation(t *testing.T) {
	r, ctx := newRouter(t)
	stockedItem(t, ctx, "Balloon", 10, 3)

	w := do(r, http.MethodGet, "/reports/valuation/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Valuation")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 3)
	assert.Equal(t, "Category", rows[0][0])
	assert.Equal(t, "Total", rows[len(rows)-1][0])
	assert.Equal(t, "30", rows[len(rows)-1][3])
}

func TestGetSystemLogs_Limit(t *testing.T) {
	r, ctx := newRouter(t)
	stockedItem(t, ctx, "Balloon", 1, 1)
	stockedItem(t, ctx, "Ribbon", 1, 1)

	w := do(r, http.MethodGet, "/system/logs?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs []models.AuditLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "tester", logs[0].Actor)
}
