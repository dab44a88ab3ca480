package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-rental-ledger/internal/models"
)

func TestFormulaRetail(t *testing.T) {
	tests := []struct {
		cost string
		want string
	}{
		{"0", "0"},
		{"1", "5"},
		{"2.4", "5"},
		{"4", "10"},
		{"4.01", "10"},
		{"5.01", "15"},
		{"7", "15"},
		{"10", "20"},
	}
	for _, tt := range tests {
		t.Run(tt.cost, func(t *testing.T) {
			got := FormulaRetail(dec(tt.cost))
			assert.True(t, dec(tt.want).Equal(got), "FormulaRetail(%s) = %s", tt.cost, got)
		})
	}
}

func testKit(lines ...models.BomLine) *models.Kit {
	return &models.Kit{Name: "Party Box", BaseSalePrice: dec("50"), BomLines: lines}
}

func line(item *models.RawItem, qty string) models.BomLine {
	return models.BomLine{RawItemID: item.ID, RawItem: item, Quantity: dec(qty)}
}

func TestKitCostAndRetailPrice(t *testing.T) {
	balloon := &models.RawItem{ID: 1, Name: "Balloon", CurrentStock: dec("100"), MovingAverageCost: dec("0.5")}
	ribbon := &models.RawItem{ID: 2, Name: "Ribbon", CurrentStock: dec("3.5"), MovingAverageCost: dec("2")}
	kit := testKit(line(balloon, "10"), line(ribbon, "0.5"))

	assert.True(t, dec("6").Equal(KitCost(kit)))
	assert.True(t, dec("15").Equal(RetailPrice(kit)))

	free := &models.RawItem{ID: 3, Name: "Flyer", CurrentStock: dec("10")}
	uncosted := testKit(line(free, "1"))
	assert.True(t, dec("50").Equal(RetailPrice(uncosted)), "falls back to the base sale price")
}

func TestMaxBuildable(t *testing.T) {
	balloon := &models.RawItem{ID: 1, CurrentStock: dec("100")}
	ribbon := &models.RawItem{ID: 2, CurrentStock: dec("3.5")}

	assert.Equal(t, 0, MaxBuildable(testKit()), "empty BOM builds nothing")
	assert.Equal(t, 7, MaxBuildable(testKit(line(balloon, "10"), line(ribbon, "0.5"))))
	assert.Equal(t, 10, MaxBuildable(testKit(line(balloon, "10"))))
	assert.Equal(t, 0, MaxBuildable(testKit(line(&models.RawItem{ID: 4}, "1"))))
}
