package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"go-rental-ledger/internal/models"
)

// PurchaseReceiver records supplier orders and receives them into stock.
type PurchaseReceiver struct {
	uow   UnitOfWork
	audit *AuditTrail
	now   func() time.Time
}

type PurchaseLineInput struct {
	RawItemID uint `validate:"required"`
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

type NewPurchase struct {
	Status     string `validate:"omitempty,oneof=PENDING COMPLETED"`
	LandedCost decimal.Decimal
	Supplier   string
	Notes      string
	Date       time.Time
	Items      []PurchaseLineInput `validate:"required,min=1,dive"`
}

// LandedCostPerUnit spreads the landed cost evenly over every unit bought.
func LandedCostPerUnit(landed decimal.Decimal, lines []models.PurchaseLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Quantity)
	}
	if !total.IsPositive() {
		return decimal.Zero
	}
	return landed.DivRound(total, costPlaces)
}

func (cmd NewPurchase) validate() error {
	if err := validateCommand(cmd); err != nil {
		return err
	}
	if cmd.LandedCost.IsNegative() {
		return Validation("landed cost cannot be negative")
	}
	for _, in := range cmd.Items {
		if !in.Quantity.IsPositive() {
			return Validation("purchase quantity for raw item %d must be positive", in.RawItemID)
		}
		if err := checkScale(fmt.Sprintf("purchase quantity for raw item %d", in.RawItemID), in.Quantity); err != nil {
			return err
		}
		if in.UnitPrice.IsNegative() {
			return Validation("unit price for raw item %d cannot be negative", in.RawItemID)
		}
	}
	return nil
}

// Create stores the purchase. A purchase created as COMPLETED is received in
// the same transaction.
func (p *PurchaseReceiver) Create(ctx context.Context, cmd NewPurchase) (*models.Purchase, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	status := cmd.Status
	if status == "" {
		status = models.PurchaseStatusPending
	}
	date := cmd.Date
	if date.IsZero() {
		date = p.now()
	}
	purchase := &models.Purchase{
		Status:     status,
		LandedCost: cmd.LandedCost,
		Supplier:   cmd.Supplier,
		Notes:      cmd.Notes,
		Date:       date,
	}
	for _, in := range cmd.Items {
		purchase.Items = append(purchase.Items, models.PurchaseLineItem{
			RawItemID: in.RawItemID,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
		})
	}

	err := p.uow.Do(ctx, func(repo Repository) error {
		received := status == models.PurchaseStatusCompleted
		if received {
			if err := p.receive(repo, purchase); err != nil {
				return err
			}
		} else {
			for _, line := range purchase.Items {
				if _, err := repo.GetRawItem(line.RawItemID); err != nil {
					return err
				}
			}
		}
		if err := repo.CreatePurchase(purchase); err != nil {
			return err
		}
		if received {
			return p.audit.Record(ctx, repo, ActionPurchaseReceived,
				"Received purchase %d on entry: %d line(s), landed cost %s", purchase.ID, len(purchase.Items), purchase.LandedCost)
		}
		return p.audit.Record(ctx, repo, ActionPurchaseCreated,
			"Created pending purchase %d: %d line(s) from %s", purchase.ID, len(purchase.Items), purchase.Supplier)
	})
	if err != nil {
		return nil, err
	}
	return purchase, nil
}

// Receive moves a PENDING purchase into stock. It runs at most once per purchase.
func (p *PurchaseReceiver) Receive(ctx context.Context, id uint) (*models.Purchase, error) {
	var purchase *models.Purchase
	err := p.uow.Do(ctx, func(repo Repository) error {
		var err error
		purchase, err = repo.LockPurchase(id)
		if err != nil {
			return err
		}
		if purchase.Status == models.PurchaseStatusCompleted {
			return ImmutableRecord("purchase %d has already been received", id)
		}
		if err := p.receive(repo, purchase); err != nil {
			return err
		}
		if err := repo.MarkPurchaseCompleted(purchase); err != nil {
			return err
		}
		return p.audit.Record(ctx, repo, ActionPurchaseReceived,
			"Received purchase %d: %d line(s), landed cost %s", purchase.ID, len(purchase.Items), purchase.LandedCost)
	})
	if err != nil {
		return nil, err
	}
	return purchase, nil
}

// receive raises stock for every line at unit price plus its landed cost share
// and marks the purchase completed in memory.
func (p *PurchaseReceiver) receive(repo Repository, purchase *models.Purchase) error {
	ids := make([]uint, 0, len(purchase.Items))
	for _, line := range purchase.Items {
		ids = append(ids, line.RawItemID)
	}
	items, err := repo.LockRawItems(ids)
	if err != nil {
		return err
	}
	perUnit := LandedCostPerUnit(purchase.LandedCost, purchase.Items)
	for _, line := range purchase.Items {
		if err := IncreaseStock(items[line.RawItemID], line.Quantity, line.UnitPrice.Add(perUnit)); err != nil {
			return err
		}
	}
	if err := persistRawItems(repo, items); err != nil {
		return err
	}
	now := p.now()
	purchase.Status = models.PurchaseStatusCompleted
	purchase.ReceivedAt = &now
	return nil
}

// Delete removes a purchase that has not been received.
func (p *PurchaseReceiver) Delete(ctx context.Context, id uint) error {
	return p.uow.Do(ctx, func(repo Repository) error {
		purchase, err := repo.LockPurchase(id)
		if err != nil {
			return err
		}
		if purchase.Status == models.PurchaseStatusCompleted {
			return ImmutableRecord("purchase %d has been received and cannot be deleted", id)
		}
		if err := repo.DeletePurchase(id); err != nil {
			return err
		}
		return p.audit.Record(ctx, repo, ActionPurchaseDeleted, "Deleted pending purchase %d", id)
	})
}
