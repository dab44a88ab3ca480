package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"go-rental-ledger/internal/config"
	"go-rental-ledger/internal/database"
)

// ReportData defines the shape of the sales dashboard response
type ReportData struct {
	From   time.Time                   `json:"from"`
	To     time.Time                   `json:"to"`
	Totals *database.SalesReportResult `json:"totals"`
	ByType []database.SalesSummaryRow  `json:"by_type"`
}

// --- GET: /api/reports/sales?from=&to= ---
func GetSalesReport(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}

	totals, err := database.GetSalesReport(database.DB, from, to)
	if err != nil {
		respondError(c, "", err)
		return
	}
	byType, err := database.GetSalesSummary(database.DB, from, to)
	if err != nil {
		respondError(c, "", err)
		return
	}

	c.JSON(http.StatusOK, ReportData{From: from, To: to, Totals: totals, ByType: byType})
}

// --- GET: /api/reports/pnl?from=&to= ---
func GetProfitAndLoss(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	pnl, err := database.GetProfitAndLoss(database.DB, from, to)
	if err != nil {
		respondError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, pnl)
}

// ValuationResponse is the category breakdown plus its grand total
type ValuationResponse struct {
	Categories []database.ValuationRow `json:"categories"`
	GrandTotal decimal.Decimal         `json:"grand_total"`
}

func stockValuation() (*ValuationResponse, error) {
	rows, err := database.GetStockValuation(database.DB)
	if err != nil {
		return nil, err
	}
	response := &ValuationResponse{Categories: rows, GrandTotal: decimal.Zero}
	for _, row := range rows {
		response.GrandTotal = response.GrandTotal.Add(row.TotalValue)
	}
	return response, nil
}

// --- GET: /api/reports/valuation ---
func GetStockValuation(c *gin.Context) {
	response, err := stockValuation()
	if err != nil {
		respondError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// --- GET: /api/reports/valuation.xlsx ---
func ExportStockValuation(c *gin.Context) {
	response, err := stockValuation()
	if err != nil {
		respondError(c, "", err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Valuation"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		respondError(c, "", err)
		return
	}

	header := []any{"Category", "Items", "Units", "Value"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		respondError(c, "", err)
		return
	}
	for i, row := range response.Categories {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []any{row.Category, row.ItemCount, row.Units.InexactFloat64(), row.TotalValue.InexactFloat64()}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			respondError(c, "", err)
			return
		}
	}
	totalCell, _ := excelize.CoordinatesToCellName(1, len(response.Categories)+2)
	total := []any{"Total", nil, nil, response.GrandTotal.InexactFloat64()}
	if err := f.SetSheetRow(sheet, totalCell, &total); err != nil {
		respondError(c, "", err)
		return
	}

	filename := fmt.Sprintf("stock-valuation-%s.xlsx", time.Now().Format(time.DateOnly))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		config.LogError(config.GetLogger(), "handlers", "ExportStockValuation", "writing workbook", filename, err)
	}
}
