package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"go-rental-ledger/internal/config"
	"go-rental-ledger/internal/models"
)

// SaleProcessor commits and reverses multi-line sales. Every stock movement of
// a sale happens in one transaction.
type SaleProcessor struct {
	uow    UnitOfWork
	audit  *AuditTrail
	locker Locker
	now    func() time.Time
}

type CustomizationInput struct {
	RawItemID     uint `validate:"required"`
	QuantityAdded decimal.Decimal
	ExtraPrice    decimal.Decimal
}

type SaleLineInput struct {
	ItemType       string `validate:"required,oneof=RAW_ITEM KIT RENTAL CUSTOM"`
	ItemID         uint
	Description    string
	Quantity       decimal.Decimal
	UnitPrice      decimal.Decimal
	Customizations []CustomizationInput `validate:"dive"`
	RentalStart    *time.Time
	RentalEnd      *time.Time
}

type CheckoutCommand struct {
	CustomerID     uint
	CustomerName   string `validate:"required_without=CustomerID"`
	CustomerPhone  string `validate:"required_without=CustomerID"`
	DiscountAmount decimal.Decimal
	Date           time.Time
	Lines          []SaleLineInput `validate:"required,min=1,dive"`
}

func (cmd CheckoutCommand) validate() error {
	if err := validateCommand(cmd); err != nil {
		return err
	}
	if cmd.DiscountAmount.IsNegative() {
		return Validation("discount cannot be negative")
	}
	for i, line := range cmd.Lines {
		if err := line.validate(); err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	return nil
}

func (in SaleLineInput) validate() error {
	if !in.Quantity.IsPositive() {
		return Validation("quantity must be positive, got %s", in.Quantity)
	}
	if err := checkScale("quantity", in.Quantity); err != nil {
		return err
	}
	if in.UnitPrice.IsNegative() {
		return Validation("unit price cannot be negative")
	}
	if in.ItemType != models.ItemTypeCustom && in.ItemID == 0 {
		return Validation("%s line needs an item id", in.ItemType)
	}
	if len(in.Customizations) > 0 && in.ItemType != models.ItemTypeKit {
		return Validation("only kit lines can be customized")
	}
	for _, c := range in.Customizations {
		if !c.QuantityAdded.IsPositive() {
			return Validation("customization quantity for raw item %d must be positive", c.RawItemID)
		}
		if err := checkScale(fmt.Sprintf("customization quantity for raw item %d", c.RawItemID), c.QuantityAdded); err != nil {
			return err
		}
		if c.ExtraPrice.IsNegative() {
			return Validation("customization price for raw item %d cannot be negative", c.RawItemID)
		}
	}
	switch in.ItemType {
	case models.ItemTypeKit, models.ItemTypeRental:
		if _, err := wholeUnits(in.ItemType+" quantity", in.Quantity); err != nil {
			return err
		}
	case models.ItemTypeCustom:
		if strings.TrimSpace(in.Description) == "" {
			return Validation("custom line needs a description")
		}
	}
	if in.ItemType == models.ItemTypeRental {
		if in.RentalStart == nil || in.RentalEnd == nil {
			return Validation("rental line needs start and end dates")
		}
		return checkRange(*in.RentalStart, *in.RentalEnd)
	}
	return nil
}

func (cmd CheckoutCommand) rentalIDs() []uint {
	var ids []uint
	for _, line := range cmd.Lines {
		if line.ItemType == models.ItemTypeRental {
			ids = append(ids, line.ItemID)
		}
	}
	return uniqueSorted(ids)
}

func uniqueSorted(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// lockRentals takes the cross-instance booking locks. A lock that cannot be
// had is logged and skipped; the row lock inside the transaction still guards
// the booking.
func (s *SaleProcessor) lockRentals(ctx context.Context, ids []uint) func() {
	var unlocks []func()
	for _, id := range ids {
		key := fmt.Sprintf("rental-item:%d", id)
		unlock, err := s.locker.Lock(ctx, key)
		if err != nil {
			config.GetLogger().WithError(err).WithField("key", key).Warn("rental lock unavailable, relying on row lock")
			continue
		}
		unlocks = append(unlocks, unlock)
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// Checkout commits a sale: stock is deducted, costs are snapshotted and the
// sale is audited, or nothing happens at all.
func (s *SaleProcessor) Checkout(ctx context.Context, cmd CheckoutCommand) (*models.Sale, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	unlock := s.lockRentals(ctx, cmd.rentalIDs())
	defer unlock()

	var sale *models.Sale
	err := s.uow.Do(ctx, func(repo Repository) error {
		var err error
		sale, err = s.commit(ctx, repo, cmd)
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, repo, ActionNewSale,
			"Processed sale %d for %s: %d line(s), total %s", sale.ID, sale.Customer.Name, len(sale.Items), sale.TotalAmount)
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// saleStock is everything a sale's lines may touch, locked.
type saleStock struct {
	kits    map[uint]*models.Kit
	items   map[uint]*models.RawItem
	rentals map[uint]*models.RentalItem
	booked  map[uint][]Booking
}

func (s *SaleProcessor) lockStock(repo Repository, cmd CheckoutCommand) (*saleStock, error) {
	var kitIDs, rawIDs []uint
	for _, line := range cmd.Lines {
		switch line.ItemType {
		case models.ItemTypeKit:
			kitIDs = append(kitIDs, line.ItemID)
			for _, c := range line.Customizations {
				rawIDs = append(rawIDs, c.RawItemID)
			}
		case models.ItemTypeRawItem:
			rawIDs = append(rawIDs, line.ItemID)
		}
	}
	kits, err := repo.LockKits(kitIDs)
	if err != nil {
		return nil, err
	}
	for _, kit := range kits {
		rawIDs = append(rawIDs, bomRawItemIDs(kit)...)
	}
	items, err := repo.LockRawItems(rawIDs)
	if err != nil {
		return nil, err
	}
	for _, kit := range kits {
		attachRawItems(kit, items)
	}
	rentals := make(map[uint]*models.RentalItem)
	for _, id := range cmd.rentalIDs() {
		item, err := repo.LockRentalItem(id)
		if err != nil {
			return nil, err
		}
		rentals[id] = item
	}
	return &saleStock{kits: kits, items: items, rentals: rentals, booked: make(map[uint][]Booking)}, nil
}

func (s *SaleProcessor) commit(ctx context.Context, repo Repository, cmd CheckoutCommand) (*models.Sale, error) {
	// Rows are locked before any plain read so a snapshot-isolated read
	// cannot predate a competing booking.
	stock, err := s.lockStock(repo, cmd)
	if err != nil {
		return nil, err
	}
	customer, err := repo.ResolveCustomer(cmd.CustomerID, strings.TrimSpace(cmd.CustomerName), strings.TrimSpace(cmd.CustomerPhone))
	if err != nil {
		return nil, err
	}

	date := cmd.Date
	if date.IsZero() {
		date = s.now()
	}
	sale := &models.Sale{
		CustomerID:     customer.ID,
		DiscountAmount: cmd.DiscountAmount,
		Date:           date,
		CreatedBy:      ActorFrom(ctx),
	}
	subtotal := decimal.Zero
	for i, in := range cmd.Lines {
		line, total, err := s.buildLine(repo, stock, in)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		subtotal = subtotal.Add(total)
		sale.Items = append(sale.Items, *line)
	}
	if cmd.DiscountAmount.GreaterThan(subtotal) {
		return nil, Validation("discount %s exceeds sale subtotal %s", cmd.DiscountAmount, subtotal)
	}
	sale.TotalAmount = subtotal.Sub(cmd.DiscountAmount)

	if err := persistRawItems(repo, stock.items); err != nil {
		return nil, err
	}
	for _, id := range sortedKeys(stock.kits) {
		if err := saveKit(repo, stock.kits[id]); err != nil {
			return nil, err
		}
	}
	if err := repo.CreateSale(sale); err != nil {
		return nil, err
	}
	sale.Customer = customer
	return sale, nil
}

func saveKit(repo Repository, kit *models.Kit) error {
	if kit.CurrentStock < 0 {
		return InvariantViolation("kit %d (%s) stock would become %d", kit.ID, kit.Name, kit.CurrentStock)
	}
	return repo.SaveKitStock(kit)
}

// buildLine applies one line to the locked stock and returns the line with its
// cost snapshot and its billed total.
func (s *SaleProcessor) buildLine(repo Repository, stock *saleStock, in SaleLineInput) (*models.SaleLineItem, decimal.Decimal, error) {
	line := &models.SaleLineItem{
		ItemType:    in.ItemType,
		Description: strings.TrimSpace(in.Description),
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
	}
	if in.ItemType != models.ItemTypeCustom {
		id := in.ItemID
		line.ItemID = &id
	}

	switch in.ItemType {
	case models.ItemTypeRawItem:
		item := stock.items[in.ItemID]
		if !item.IsBulk && !in.Quantity.IsInteger() {
			return nil, decimal.Zero, Validation("%s is sold in whole units, got %s", item.Name, in.Quantity)
		}
		line.UnitCostAtSale = item.MovingAverageCost
		if err := DecreaseStock(item, in.Quantity); err != nil {
			return nil, decimal.Zero, err
		}
		if line.Description == "" {
			line.Description = item.Name
		}
		return line, line.UnitPrice.Mul(line.Quantity), nil

	case models.ItemTypeKit:
		kit := stock.kits[in.ItemID]
		n, err := wholeUnits("KIT quantity", in.Quantity)
		if err != nil {
			return nil, decimal.Zero, err
		}
		if kit.CurrentStock < n {
			return nil, decimal.Zero, InsufficientStock(kit.Name, in.Quantity, decimal.NewFromInt(int64(kit.CurrentStock)))
		}
		cost := KitCost(kit)
		extra := decimal.Zero
		for _, c := range in.Customizations {
			item := stock.items[c.RawItemID]
			cost = cost.Add(c.QuantityAdded.Mul(item.MovingAverageCost))
			if err := DecreaseStock(item, c.QuantityAdded); err != nil {
				return nil, decimal.Zero, err
			}
			extra = extra.Add(c.ExtraPrice)
			line.Customizations = append(line.Customizations, models.Customization{
				RawItemID:     c.RawItemID,
				QuantityAdded: c.QuantityAdded,
				ExtraPrice:    c.ExtraPrice,
			})
		}
		kit.CurrentStock -= n
		line.IsCustomized = len(line.Customizations) > 0
		line.UnitCostAtSale = cost.Round(costPlaces)
		if line.UnitPrice.IsZero() {
			line.UnitPrice = RetailPrice(kit)
		}
		if line.Description == "" {
			line.Description = kit.Name
		}
		return line, line.UnitPrice.Mul(line.Quantity).Add(extra), nil

	case models.ItemTypeRental:
		item := stock.rentals[in.ItemID]
		start, end := *in.RentalStart, *in.RentalEnd
		existing, err := activeBookings(repo.LockActiveBookings, item.ID, start, end)
		if err != nil {
			return nil, decimal.Zero, err
		}
		existing = append(existing, stock.booked[item.ID]...)
		booking := Booking{Start: start, End: end, Quantity: int(in.Quantity.IntPart())}
		if PeakUsage(append(existing, booking), start, end) > item.TotalStock {
			free := max(0, item.TotalStock-PeakUsage(existing, start, end))
			return nil, decimal.Zero, InsufficientStock(item.Name, in.Quantity, decimal.NewFromInt(int64(free)))
		}
		stock.booked[item.ID] = append(stock.booked[item.ID], booking)
		line.RentalStartDate = &start
		line.RentalEndDate = &end
		if line.UnitPrice.IsZero() {
			line.UnitPrice = item.DailyPrice
		}
		if line.Description == "" {
			line.Description = item.Name
		}
		days := decimal.NewFromInt(int64(BillableDays(start, end)))
		return line, line.UnitPrice.Mul(line.Quantity).Mul(days), nil

	default:
		return line, line.UnitPrice.Mul(line.Quantity), nil
	}
}

// restore puts back everything a committed sale took out of stock. Cost bases
// are left as they are; withdrawals never changed them.
func restore(repo Repository, sale *models.Sale) error {
	var kitIDs, rawIDs []uint
	for _, line := range sale.Items {
		if line.ItemID == nil {
			continue
		}
		switch line.ItemType {
		case models.ItemTypeRawItem:
			rawIDs = append(rawIDs, *line.ItemID)
		case models.ItemTypeKit:
			kitIDs = append(kitIDs, *line.ItemID)
			for _, c := range line.Customizations {
				rawIDs = append(rawIDs, c.RawItemID)
			}
		}
	}
	kits, err := repo.LockKits(kitIDs)
	if err != nil {
		return err
	}
	items, err := repo.LockRawItems(rawIDs)
	if err != nil {
		return err
	}
	for _, line := range sale.Items {
		if line.ItemID == nil {
			continue
		}
		switch line.ItemType {
		case models.ItemTypeRawItem:
			item := items[*line.ItemID]
			if err := IncreaseStock(item, line.Quantity, item.MovingAverageCost); err != nil {
				return err
			}
		case models.ItemTypeKit:
			kits[*line.ItemID].CurrentStock += int(line.Quantity.IntPart())
			for _, c := range line.Customizations {
				item := items[c.RawItemID]
				if err := IncreaseStock(item, c.QuantityAdded, item.MovingAverageCost); err != nil {
					return err
				}
			}
		}
	}
	if err := persistRawItems(repo, items); err != nil {
		return err
	}
	for _, id := range sortedKeys(kits) {
		if err := saveKit(repo, kits[id]); err != nil {
			return err
		}
	}
	return nil
}

// DeleteSale reverses a sale's stock movements and removes it.
func (s *SaleProcessor) DeleteSale(ctx context.Context, saleID uint) error {
	return s.uow.Do(ctx, func(repo Repository) error {
		sale, err := repo.LockSale(saleID)
		if err != nil {
			return err
		}
		if err := restore(repo, sale); err != nil {
			return err
		}
		if err := repo.DeleteSale(saleID); err != nil {
			return err
		}
		return s.audit.Record(ctx, repo, ActionDeleteSale, "Deleted sale %d and restored inventory stock.", saleID)
	})
}

// Replace swaps a committed sale for a new one in a single transaction.
func (s *SaleProcessor) Replace(ctx context.Context, saleID uint, cmd CheckoutCommand) (*models.Sale, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	unlock := s.lockRentals(ctx, cmd.rentalIDs())
	defer unlock()

	var sale *models.Sale
	err := s.uow.Do(ctx, func(repo Repository) error {
		old, err := repo.LockSale(saleID)
		if err != nil {
			return err
		}
		for _, line := range old.Items {
			if line.ItemType == models.ItemTypeRental && line.IsReturned {
				return ImmutableRecord("sale %d has returned rental line %d and can no longer be edited", saleID, line.ID)
			}
		}
		if err := restore(repo, old); err != nil {
			return err
		}
		if err := repo.DeleteSale(saleID); err != nil {
			return err
		}
		if cmd.Date.IsZero() {
			cmd.Date = old.Date
		}
		if sale, err = s.commit(ctx, repo, cmd); err != nil {
			return err
		}
		return s.audit.Record(ctx, repo, ActionSaleEdited,
			"Edited sale %d, replaced by sale %d: %d line(s), total %s", saleID, sale.ID, len(sale.Items), sale.TotalAmount)
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// ProcessReturn closes a rental line. Damaged units are written off the asset's
// total stock.
func (s *SaleProcessor) ProcessReturn(ctx context.Context, lineID uint, returned, damaged int) (*models.SaleLineItem, error) {
	if returned < 0 || damaged < 0 {
		return nil, Validation("returned and damaged quantities cannot be negative")
	}
	if returned > maxUnits || damaged > maxUnits {
		return nil, Validation("returned and damaged quantities cannot exceed %d", maxUnits)
	}
	var line *models.SaleLineItem
	err := s.uow.Do(ctx, func(repo Repository) error {
		var err error
		line, err = repo.LockSaleLineItem(lineID)
		if err != nil {
			return err
		}
		if line.ItemType != models.ItemTypeRental || line.ItemID == nil {
			return Validation("sale line %d is not a rental", lineID)
		}
		if line.IsReturned {
			return ImmutableRecord("rental line %d has already been returned", lineID)
		}
		if !decimal.NewFromInt(int64(returned + damaged)).Equal(line.Quantity) {
			return Validation("returned (%d) plus damaged (%d) must equal the %s unit(s) rented", returned, damaged, line.Quantity)
		}
		item, err := repo.LockRentalItem(*line.ItemID)
		if err != nil {
			return err
		}

		now := s.now()
		line.IsReturned = true
		line.ReturnedAt = &now
		line.DamagedQuantity = damaged
		if err := repo.MarkLineReturned(line); err != nil {
			return err
		}
		if damaged > 0 {
			if item.TotalStock < damaged {
				return InvariantViolation("rental item %d (%s) has %d unit(s), cannot write off %d", item.ID, item.Name, item.TotalStock, damaged)
			}
			item.TotalStock -= damaged
			if err := repo.SaveRentalStock(item); err != nil {
				return err
			}
			if err := s.audit.Record(ctx, repo, ActionRentalDamage,
				"Wrote off %d damaged unit(s) of %s from sale line %d", damaged, item.Name, lineID); err != nil {
				return err
			}
		}
		return s.audit.Record(ctx, repo, ActionRentalReturned,
			"Returned %d unit(s) of %s from sale line %d (%d damaged)", returned, item.Name, lineID, damaged)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}
