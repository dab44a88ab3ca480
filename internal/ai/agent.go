package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	"go-rental-ledger/internal/config"
	"go-rental-ledger/internal/database"
	"go-rental-ledger/internal/inventory"
	"go-rental-ledger/internal/models"
)

const (
	modelName = "gemini-2.0-flash-001"
	// maxToolRounds bounds how many tool calls one question may chain.
	maxToolRounds = 5
)

var tools = []*genai.Tool{
	{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "check_inventory",
				Description: "Get every raw item (stock, moving average cost) and every kit (stock, cost, formula retail price, how many more can be built). Use this to find IDs, prices, costs or stock.",
			},
			{
				Name:        "check_rental_availability",
				Description: "How many units of a rental item are free over a date range.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"rental_item_id": {Type: genai.TypeInteger, Description: "ID of the rental item"},
						"start_date":     {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
						"end_date":       {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
					},
					Required: []string{"rental_item_id", "start_date", "end_date"},
				},
			},
			{
				Name:        "get_sales_report",
				Description: "Get total sales revenue and number of sales for a date range.",
				Parameters:  dateRangeSchema(),
			},
			{
				Name:        "get_profit_and_loss",
				Description: "Revenue, cost of goods sold, expenses and net profit for a date range.",
				Parameters:  dateRangeSchema(),
			},
			{
				Name:        "update_kit_price",
				Description: "Set the base sale price of a kit using its ID. The BOM is left untouched.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"kit_id":    {Type: genai.TypeInteger, Description: "ID of the kit"},
						"new_price": {Type: genai.TypeNumber, Description: "New base sale price"},
					},
					Required: []string{"kit_id", "new_price"},
				},
			},
		},
	},
}

func dateRangeSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"start_date": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
			"end_date":   {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
		},
		Required: []string{"start_date", "end_date"},
	}
}

// RunAgent answers one back-office question, letting the model call the
// ledger tools it needs. Writes go through the engine so they are audited.
func RunAgent(ctx context.Context, userMessage, apiKey string, engine *inventory.Engine) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", err
	}
	defer client.Close()

	model := client.GenerativeModel(modelName)
	model.Tools = tools

	today := time.Now().Format(time.DateOnly)
	systemPrompt := fmt.Sprintf(`SYSTEM: Today is %s. You are the back-office assistant of an events rental and decoration business.

	RULES:
	1. UPDATE: If the user asks to change a kit price by NAME, do NOT ask for the ID. Call 'check_inventory' to find it, then 'update_kit_price'.
	2. READ: For price, cost, stock or "how many can we build" questions call 'check_inventory' and answer from the JSON.
	3. RENTALS: For "is X free on ..." questions call 'check_rental_availability'.
	4. MONEY: Use 'get_sales_report' for revenue and 'get_profit_and_loss' for profit, costs and expenses.

	USER: %s`, today, userMessage)

	session := model.StartChat()
	resp, err := session.SendMessage(ctx, genai.Text(systemPrompt))
	if err != nil {
		return "", err
	}

	executor := &toolExecutor{engine: engine, db: database.DB}
	for round := 0; round < maxToolRounds; round++ {
		call, ok := firstFunctionCall(resp)
		if !ok {
			return printResponse(resp), nil
		}
		result := executor.execute(ctx, call)
		resp, err = session.SendMessage(ctx, genai.FunctionResponse{Name: call.Name, Response: result})
		if err != nil {
			return "", err
		}
	}
	return printResponse(resp), nil
}

func firstFunctionCall(resp *genai.GenerateContentResponse) (genai.FunctionCall, bool) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return genai.FunctionCall{}, false
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if funcCall, ok := part.(genai.FunctionCall); ok {
			return funcCall, true
		}
	}
	return genai.FunctionCall{}, false
}

func printResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "I completed the action."
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt)
		}
	}
	return "I completed the action."
}

type toolExecutor struct {
	engine *inventory.Engine
	db     *gorm.DB
}

// execute never fails the conversation; tool errors are handed back to the
// model as {"error": ...} so it can explain them.
func (t *toolExecutor) execute(ctx context.Context, call genai.FunctionCall) map[string]any {
	var (
		result map[string]any
		err    error
	)
	switch call.Name {
	case "check_inventory":
		result, err = t.checkInventory()
	case "check_rental_availability":
		result, err = t.rentalAvailability(ctx, call.Args)
	case "get_sales_report":
		result, err = t.salesReport(call.Args)
	case "get_profit_and_loss":
		result, err = t.profitAndLoss(call.Args)
	case "update_kit_price":
		result, err = t.updateKitPrice(ctx, call.Args)
	default:
		err = fmt.Errorf("unknown tool %q", call.Name)
	}
	if err != nil {
		config.GetLogger().WithField("tool", call.Name).WithError(err).Warn("assistant tool failed")
		return map[string]any{"error": err.Error()}
	}
	return result
}

type inventoryRow struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Stock string `json:"stock"`
	Cost  string `json:"cost"`
}

type kitRow struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Stock        int    `json:"stock"`
	Cost         string `json:"cost"`
	RetailPrice  string `json:"retail_price"`
	MaxBuildable int    `json:"max_buildable"`
}

func (t *toolExecutor) checkInventory() (map[string]any, error) {
	var items []models.RawItem
	if err := t.db.Order("name").Find(&items).Error; err != nil {
		return nil, err
	}
	var kits []models.Kit
	err := t.db.Preload("BomLines", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Preload("BomLines.RawItem").
		Order("name").
		Find(&kits).Error
	if err != nil {
		return nil, err
	}

	rawRows := make([]inventoryRow, 0, len(items))
	for _, item := range items {
		rawRows = append(rawRows, inventoryRow{
			ID:    item.ID,
			Name:  item.Name,
			Stock: item.CurrentStock.String(),
			Cost:  item.MovingAverageCost.StringFixed(2),
		})
	}
	kitRows := make([]kitRow, 0, len(kits))
	for i := range kits {
		view := inventory.NewKitView(&kits[i])
		kitRows = append(kitRows, kitRow{
			ID:           view.ID,
			Name:         view.Name,
			Stock:        view.CurrentStock,
			Cost:         view.CalculatedCost.StringFixed(2),
			RetailPrice:  view.RetailPrice.StringFixed(2),
			MaxBuildable: view.MaxBuildable,
		})
	}

	rawJSON, err := json.Marshal(rawRows)
	if err != nil {
		return nil, err
	}
	kitJSON, err := json.Marshal(kitRows)
	if err != nil {
		return nil, err
	}
	return map[string]any{"raw_items": string(rawJSON), "kits": string(kitJSON)}, nil
}

func (t *toolExecutor) rentalAvailability(ctx context.Context, args map[string]any) (map[string]any, error) {
	id, err := intArg(args, "rental_item_id")
	if err != nil {
		return nil, err
	}
	start, end, err := dateArgs(args)
	if err != nil {
		return nil, err
	}
	a, err := t.engine.Rentals.Availability(ctx, uint(id), start, end)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"name":                 a.Name,
		"total_stock":          a.TotalStock,
		"max_concurrent_usage": a.MaxConcurrentUsage,
		"available":            a.AvailableStock,
	}, nil
}

func (t *toolExecutor) salesReport(args map[string]any) (map[string]any, error) {
	start, end, err := dateArgs(args)
	if err != nil {
		return nil, err
	}
	report, err := database.GetSalesReport(t.db, start, end)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"revenue":     report.TotalRevenue.StringFixed(2),
		"sales_count": report.TotalCount,
	}, nil
}

func (t *toolExecutor) profitAndLoss(args map[string]any) (map[string]any, error) {
	start, end, err := dateArgs(args)
	if err != nil {
		return nil, err
	}
	pnl, err := database.GetProfitAndLoss(t.db, start, end)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"revenue":       pnl.Revenue.StringFixed(2),
		"cost_of_goods": pnl.CostOfGoods.StringFixed(2),
		"gross_profit":  pnl.GrossProfit.StringFixed(2),
		"expenses":      pnl.Expenses.StringFixed(2),
		"net_profit":    pnl.NetProfit.StringFixed(2),
	}, nil
}

func (t *toolExecutor) updateKitPrice(ctx context.Context, args map[string]any) (map[string]any, error) {
	id, err := intArg(args, "kit_id")
	if err != nil {
		return nil, err
	}
	price, ok := args["new_price"].(float64)
	if !ok {
		return nil, errors.New("new_price must be a number")
	}

	current, err := t.engine.Kits.Kit(ctx, uint(id))
	if err != nil {
		return nil, err
	}
	kit, err := t.engine.Kits.UpdateKit(ctx, uint(id), inventory.KitDefinition{
		Name:          current.Name,
		ImageURL:      current.ImageURL,
		BaseSalePrice: decimal.NewFromFloat(price),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "Success", "kit": kit.Name, "new_price": kit.BaseSalePrice.StringFixed(2)}, nil
}

// Gemini sends every JSON number as float64.
func intArg(args map[string]any, name string) (int, error) {
	v, ok := args[name].(float64)
	if !ok || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return int(v), nil
}

func dateArgs(args map[string]any) (time.Time, time.Time, error) {
	startStr, _ := args["start_date"].(string)
	endStr, _ := args["end_date"].(string)
	start, err1 := time.ParseInLocation(time.DateOnly, startStr, time.Local)
	end, err2 := time.ParseInLocation(time.DateOnly, endStr, time.Local)
	if err1 != nil || err2 != nil {
		return time.Time{}, time.Time{}, errors.New("dates must be in YYYY-MM-DD format")
	}
	return inventory.StartOfDay(start), inventory.EndOfDay(end), nil
}
