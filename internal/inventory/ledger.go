package inventory

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"go-rental-ledger/internal/models"
)

// costPlaces is the precision moving average costs are kept at, matching the
// raw_items.moving_average_cost column.
const costPlaces = 6

// quantityPlaces is the precision stock quantities are stored at.
const quantityPlaces = 4

// maxUnits bounds whole-unit counts (kits, rentals, returns) so they always
// fit the integer stock columns.
const maxUnits = math.MaxInt32

// checkScale rejects quantities finer than the stored precision; the column
// would round them away after the cost had already absorbed them.
func checkScale(what string, qty decimal.Decimal) error {
	if !qty.Equal(qty.Round(quantityPlaces)) {
		return Validation("%s has more than %d decimal places: %s", what, quantityPlaces, qty)
	}
	return nil
}

// wholeUnits converts a whole-unit quantity to int, rejecting fractions and
// counts beyond maxUnits.
func wholeUnits(what string, qty decimal.Decimal) (int, error) {
	if !qty.IsInteger() {
		return 0, Validation("%s must be a whole number, got %s", what, qty)
	}
	if qty.GreaterThan(decimal.NewFromInt(maxUnits)) {
		return 0, Validation("%s of %s exceeds the limit of %d", what, qty, maxUnits)
	}
	return int(qty.IntPart()), nil
}

func checkCount(what string, count int) error {
	if count <= 0 {
		return Validation("%s must be positive, got %d", what, count)
	}
	if count > maxUnits {
		return Validation("%s of %d exceeds the limit of %d", what, count, maxUnits)
	}
	return nil
}

// IncreaseStock adds qty units bought (or returned) at unitCost and folds them
// into the item's moving average cost.
func IncreaseStock(item *models.RawItem, qty, unitCost decimal.Decimal) error {
	if !qty.IsPositive() {
		return Validation("quantity added to %s must be positive, got %s", item.Name, qty)
	}
	if err := checkScale("quantity added to "+item.Name, qty); err != nil {
		return err
	}
	if unitCost.IsNegative() {
		return Validation("unit cost for %s cannot be negative, got %s", item.Name, unitCost)
	}
	newStock := item.CurrentStock.Add(qty)
	if newStock.IsPositive() {
		value := item.CurrentStock.Mul(item.MovingAverageCost).Add(qty.Mul(unitCost))
		item.MovingAverageCost = value.DivRound(newStock, costPlaces)
	}
	item.CurrentStock = newStock
	return nil
}

// DecreaseStock withdraws qty units. The cost basis of what remains is unchanged.
func DecreaseStock(item *models.RawItem, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return Validation("quantity taken from %s must be positive, got %s", item.Name, qty)
	}
	if err := checkScale("quantity taken from "+item.Name, qty); err != nil {
		return err
	}
	if qty.GreaterThan(item.CurrentStock) {
		return InsufficientStock(item.Name, qty, item.CurrentStock)
	}
	item.CurrentStock = item.CurrentStock.Sub(qty)
	return nil
}

// AdjustStock overrides the on-hand quantity and returns the signed delta.
func AdjustStock(item *models.RawItem, newQty decimal.Decimal, reason string) (decimal.Decimal, error) {
	if strings.TrimSpace(reason) == "" {
		return decimal.Zero, Validation("a reason is required to adjust stock of %s", item.Name)
	}
	if newQty.IsNegative() {
		return decimal.Zero, Validation("stock of %s cannot be set below zero", item.Name)
	}
	if err := checkScale("new stock of "+item.Name, newQty); err != nil {
		return decimal.Zero, err
	}
	delta := newQty.Sub(item.CurrentStock)
	item.CurrentStock = newQty
	return delta, nil
}

func checkRawItem(item *models.RawItem) error {
	if item.CurrentStock.IsNegative() {
		return InvariantViolation("raw item %d (%s) stock would become %s", item.ID, item.Name, item.CurrentStock)
	}
	if item.MovingAverageCost.IsNegative() {
		return InvariantViolation("raw item %d (%s) cost would become %s", item.ID, item.Name, item.MovingAverageCost)
	}
	return nil
}

// persistRawItems writes back every locked raw item in id order.
func persistRawItems(repo Repository, items map[uint]*models.RawItem) error {
	for _, id := range sortedKeys(items) {
		item := items[id]
		if err := checkRawItem(item); err != nil {
			return err
		}
		if err := repo.SaveRawItemStock(item); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[uint]V) []uint {
	ids := make([]uint, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// StockLedger exposes the manual ledger operations. Purchases, kits and sales
// reach the same arithmetic through IncreaseStock and DecreaseStock.
type StockLedger struct {
	uow   UnitOfWork
	audit *AuditTrail
}

type AdjustStockCommand struct {
	RawItemID   uint `validate:"required"`
	NewQuantity decimal.Decimal
	Reason      string `validate:"required"`
}

func (l *StockLedger) Adjust(ctx context.Context, cmd AdjustStockCommand) (*models.RawItem, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	var item *models.RawItem
	err := l.uow.Do(ctx, func(repo Repository) error {
		items, err := repo.LockRawItems([]uint{cmd.RawItemID})
		if err != nil {
			return err
		}
		item = items[cmd.RawItemID]
		delta, err := AdjustStock(item, cmd.NewQuantity, cmd.Reason)
		if err != nil {
			return err
		}
		if err := persistRawItems(repo, items); err != nil {
			return err
		}
		sign := ""
		if delta.IsPositive() {
			sign = "+"
		}
		return l.audit.Record(ctx, repo, ActionInventoryAdjustment,
			"Manually adjusted stock for %s (%d). Change: %s%s. Reason: %s",
			item.Name, item.ID, sign, delta, strings.TrimSpace(cmd.Reason))
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// AddOpeningStock brings stock that predates the system onto the ledger at a known unit cost.
func (l *StockLedger) AddOpeningStock(ctx context.Context, rawItemID uint, qty, unitCost decimal.Decimal) (*models.RawItem, error) {
	var item *models.RawItem
	err := l.uow.Do(ctx, func(repo Repository) error {
		items, err := repo.LockRawItems([]uint{rawItemID})
		if err != nil {
			return err
		}
		item = items[rawItemID]
		if err := IncreaseStock(item, qty, unitCost); err != nil {
			return err
		}
		if err := persistRawItems(repo, items); err != nil {
			return err
		}
		return l.audit.Record(ctx, repo, ActionOpeningStock,
			"Opening stock for %s (%d): %s at %s", item.Name, item.ID, qty, unitCost)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}
