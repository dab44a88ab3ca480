package inventory

import (
	"github.com/shopspring/decimal"

	"go-rental-ledger/internal/models"
)

var five = decimal.NewFromInt(5)

// KitCost is the BOM cost of one kit unit at current moving average costs.
// BomLines must carry their RawItem.
func KitCost(kit *models.Kit) decimal.Decimal {
	cost := decimal.Zero
	for _, line := range kit.BomLines {
		if line.RawItem == nil {
			continue
		}
		cost = cost.Add(line.Quantity.Mul(line.RawItem.MovingAverageCost))
	}
	return cost
}

// FormulaRetail doubles the cost, rounds up to a whole unit and then up to the
// next multiple of five.
func FormulaRetail(netCost decimal.Decimal) decimal.Decimal {
	doubled := netCost.Mul(decimal.NewFromInt(2)).Ceil()
	return doubled.Div(five).Ceil().Mul(five)
}

// RetailPrice is the formula price, or the stored base price when the formula
// gives nothing usable (e.g. an uncosted BOM).
func RetailPrice(kit *models.Kit) decimal.Decimal {
	if price := FormulaRetail(KitCost(kit)); price.IsPositive() {
		return price
	}
	return kit.BaseSalePrice
}

// MaxBuildable is how many more units the raw stock on hand supports.
func MaxBuildable(kit *models.Kit) int {
	if len(kit.BomLines) == 0 {
		return 0
	}
	buildable := int64(-1)
	for _, line := range kit.BomLines {
		if line.RawItem == nil || !line.Quantity.IsPositive() {
			return 0
		}
		n := line.RawItem.CurrentStock.Div(line.Quantity).Floor().IntPart()
		if buildable < 0 || n < buildable {
			buildable = n
		}
	}
	if buildable < 0 {
		return 0
	}
	return int(buildable)
}
