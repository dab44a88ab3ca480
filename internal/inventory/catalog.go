package inventory

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"go-rental-ledger/internal/models"
)

// Catalog manages the raw item and rental asset records themselves. Stock
// levels only move through the ledger operations.
type Catalog struct {
	uow   UnitOfWork
	audit *AuditTrail
}

type NewRawItem struct {
	Name       string `validate:"required,max=150"`
	CategoryID *uint
	ImageURL   string
	IsBulk     bool
}

type NewRentalItem struct {
	Name       string `validate:"required,max=150"`
	CategoryID *uint
	ImageURL   string
	TotalStock int `validate:"gte=0"`
	DailyPrice decimal.Decimal
}

// CreateRawItem registers a raw material with no stock and no cost basis.
func (c *Catalog) CreateRawItem(ctx context.Context, cmd NewRawItem) (*models.RawItem, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	item := &models.RawItem{
		Name:       strings.TrimSpace(cmd.Name),
		CategoryID: cmd.CategoryID,
		ImageURL:   cmd.ImageURL,
		IsBulk:     cmd.IsBulk,
	}
	err := c.uow.Do(ctx, func(repo Repository) error {
		return repo.CreateRawItem(item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteRawItem removes a raw item that no BOM or purchase refers to.
func (c *Catalog) DeleteRawItem(ctx context.Context, id uint) error {
	return c.uow.Do(ctx, func(repo Repository) error {
		items, err := repo.LockRawItems([]uint{id})
		if err != nil {
			return err
		}
		item := items[id]
		used, err := repo.CountRawItemUsage(id)
		if err != nil {
			return err
		}
		if used > 0 {
			return Validation("raw item %s is used by %d BOM or purchase line(s)", item.Name, used)
		}
		if err := repo.DeleteRawItem(id); err != nil {
			return err
		}
		return c.audit.Record(ctx, repo, ActionItemDeleted,
			"Deleted raw item %s (%d) with %s in stock", item.Name, item.ID, item.CurrentStock)
	})
}

func (c *Catalog) CreateRentalItem(ctx context.Context, cmd NewRentalItem) (*models.RentalItem, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	if cmd.DailyPrice.IsNegative() {
		return nil, Validation("daily price cannot be negative")
	}
	item := &models.RentalItem{
		Name:       strings.TrimSpace(cmd.Name),
		CategoryID: cmd.CategoryID,
		ImageURL:   cmd.ImageURL,
		TotalStock: cmd.TotalStock,
		DailyPrice: cmd.DailyPrice,
	}
	err := c.uow.Do(ctx, func(repo Repository) error {
		if err := repo.CreateRentalItem(item); err != nil {
			return err
		}
		return c.audit.Record(ctx, repo, ActionRentalCreated,
			"Created rental item %s (%d) with %d unit(s) at %s/day", item.Name, item.ID, item.TotalStock, item.DailyPrice)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}
