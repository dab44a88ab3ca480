package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"go-rental-ledger/internal/models"
)

// BomEngine converts raw stock into kits and back.
type BomEngine struct {
	uow   UnitOfWork
	audit *AuditTrail
}

type BomInput struct {
	RawItemID uint `validate:"required"`
	Quantity  decimal.Decimal
}

type KitDefinition struct {
	Name          string `validate:"required,max=150"`
	ImageURL      string
	BaseSalePrice decimal.Decimal
	Bom           []BomInput `validate:"dive"`
}

// KitView is a kit with its derived figures at current costs.
type KitView struct {
	*models.Kit
	CalculatedCost decimal.Decimal `json:"calculated_cost"`
	RetailPrice    decimal.Decimal `json:"retail_price"`
	MaxBuildable   int             `json:"max_buildable"`
}

func NewKitView(kit *models.Kit) *KitView {
	return &KitView{
		Kit:            kit,
		CalculatedCost: KitCost(kit),
		RetailPrice:    RetailPrice(kit),
		MaxBuildable:   MaxBuildable(kit),
	}
}

func (d KitDefinition) validate() error {
	if err := validateCommand(d); err != nil {
		return err
	}
	if d.BaseSalePrice.IsNegative() {
		return Validation("base sale price cannot be negative")
	}
	seen := make(map[uint]bool, len(d.Bom))
	for _, in := range d.Bom {
		if !in.Quantity.IsPositive() {
			return Validation("BOM quantity for raw item %d must be positive", in.RawItemID)
		}
		if err := checkScale(fmt.Sprintf("BOM quantity for raw item %d", in.RawItemID), in.Quantity); err != nil {
			return err
		}
		if seen[in.RawItemID] {
			return Validation("raw item %d appears more than once in the BOM", in.RawItemID)
		}
		seen[in.RawItemID] = true
	}
	return nil
}

func bomLines(repo Repository, in []BomInput) ([]models.BomLine, error) {
	lines := make([]models.BomLine, 0, len(in))
	for i, b := range in {
		if _, err := repo.GetRawItem(b.RawItemID); err != nil {
			return nil, err
		}
		lines = append(lines, models.BomLine{RawItemID: b.RawItemID, Quantity: b.Quantity, Position: i})
	}
	return lines, nil
}

func (b *BomEngine) CreateKit(ctx context.Context, def KitDefinition) (*models.Kit, error) {
	if err := def.validate(); err != nil {
		return nil, err
	}
	var kit *models.Kit
	err := b.uow.Do(ctx, func(repo Repository) error {
		lines, err := bomLines(repo, def.Bom)
		if err != nil {
			return err
		}
		kit = &models.Kit{
			Name:          strings.TrimSpace(def.Name),
			ImageURL:      def.ImageURL,
			BaseSalePrice: def.BaseSalePrice,
			BomLines:      lines,
		}
		if err := repo.CreateKit(kit); err != nil {
			return err
		}
		return b.audit.Record(ctx, repo, ActionKitCreated,
			"Created kit %s (%d) with %d BOM line(s)", kit.Name, kit.ID, len(lines))
	})
	if err != nil {
		return nil, err
	}
	return kit, nil
}

// UpdateKit changes the kit's details. The BOM is replaced when def.Bom is
// non-nil, which is only allowed while no assembled units exist.
func (b *BomEngine) UpdateKit(ctx context.Context, id uint, def KitDefinition) (*models.Kit, error) {
	if err := def.validate(); err != nil {
		return nil, err
	}
	var kit *models.Kit
	err := b.uow.Do(ctx, func(repo Repository) error {
		kits, err := repo.LockKits([]uint{id})
		if err != nil {
			return err
		}
		kit = kits[id]
		kit.Name = strings.TrimSpace(def.Name)
		kit.ImageURL = def.ImageURL
		kit.BaseSalePrice = def.BaseSalePrice

		replace := def.Bom != nil
		if replace {
			if kit.CurrentStock > 0 {
				return Validation("kit %s has %d assembled unit(s); disassemble them before changing its BOM", kit.Name, kit.CurrentStock)
			}
			if kit.BomLines, err = bomLines(repo, def.Bom); err != nil {
				return err
			}
		}
		if err := repo.UpdateKit(kit, replace); err != nil {
			return err
		}
		return b.audit.Record(ctx, repo, ActionKitUpdated,
			"Updated kit %s (%d), BOM replaced: %t", kit.Name, kit.ID, replace)
	})
	if err != nil {
		return nil, err
	}
	return kit, nil
}

// Kit loads a kit with its BOM and current figures.
func (b *BomEngine) Kit(ctx context.Context, id uint) (*KitView, error) {
	var view *KitView
	err := b.uow.Do(ctx, func(repo Repository) error {
		kit, err := repo.GetKit(id)
		if err != nil {
			return err
		}
		view = NewKitView(kit)
		return nil
	})
	return view, err
}

func (b *BomEngine) MaxBuildable(ctx context.Context, kitID uint) (int, error) {
	view, err := b.Kit(ctx, kitID)
	if err != nil {
		return 0, err
	}
	return view.MaxBuildable, nil
}

// lockKitWithMaterials locks the kit and then every raw item of its BOM.
func lockKitWithMaterials(repo Repository, kitID uint) (*models.Kit, map[uint]*models.RawItem, error) {
	kits, err := repo.LockKits([]uint{kitID})
	if err != nil {
		return nil, nil, err
	}
	kit := kits[kitID]
	items, err := repo.LockRawItems(bomRawItemIDs(kit))
	if err != nil {
		return nil, nil, err
	}
	attachRawItems(kit, items)
	return kit, items, nil
}

func bomRawItemIDs(kit *models.Kit) []uint {
	ids := make([]uint, 0, len(kit.BomLines))
	for _, line := range kit.BomLines {
		ids = append(ids, line.RawItemID)
	}
	return ids
}

// attachRawItems points the kit's BOM lines at the locked raw item rows so
// costs and stock are read from what will be written back.
func attachRawItems(kit *models.Kit, items map[uint]*models.RawItem) {
	for i := range kit.BomLines {
		if item, ok := items[kit.BomLines[i].RawItemID]; ok {
			kit.BomLines[i].RawItem = item
		}
	}
}

func (b *BomEngine) Assemble(ctx context.Context, kitID uint, count int) (*models.Kit, error) {
	if err := checkCount("assemble count", count); err != nil {
		return nil, err
	}
	var kit *models.Kit
	err := b.uow.Do(ctx, func(repo Repository) error {
		var (
			items map[uint]*models.RawItem
			err   error
		)
		kit, items, err = lockKitWithMaterials(repo, kitID)
		if err != nil {
			return err
		}
		if len(kit.BomLines) == 0 {
			return Validation("kit %s has no BOM to assemble from", kit.Name)
		}
		n := decimal.NewFromInt(int64(count))
		for _, line := range kit.BomLines {
			need := line.Quantity.Mul(n)
			if line.RawItem.CurrentStock.LessThan(need) {
				return InsufficientStock(line.RawItem.Name, need, line.RawItem.CurrentStock)
			}
		}
		for _, line := range kit.BomLines {
			if err := DecreaseStock(line.RawItem, line.Quantity.Mul(n)); err != nil {
				return err
			}
		}
		kit.CurrentStock += count
		if err := persistRawItems(repo, items); err != nil {
			return err
		}
		if err := repo.SaveKitStock(kit); err != nil {
			return err
		}
		return b.audit.Record(ctx, repo, ActionAssembleKit, "Assembled %d of Kit: %s", count, kit.Name)
	})
	if err != nil {
		return nil, err
	}
	return kit, nil
}

// returnMaterials puts count kits' worth of raw items back at each item's
// current moving average cost.
func returnMaterials(kit *models.Kit, count int) error {
	n := decimal.NewFromInt(int64(count))
	for _, line := range kit.BomLines {
		if err := IncreaseStock(line.RawItem, line.Quantity.Mul(n), line.RawItem.MovingAverageCost); err != nil {
			return err
		}
	}
	return nil
}

func (b *BomEngine) Disassemble(ctx context.Context, kitID uint, count int) (*models.Kit, error) {
	if err := checkCount("disassemble count", count); err != nil {
		return nil, err
	}
	var kit *models.Kit
	err := b.uow.Do(ctx, func(repo Repository) error {
		var (
			items map[uint]*models.RawItem
			err   error
		)
		kit, items, err = lockKitWithMaterials(repo, kitID)
		if err != nil {
			return err
		}
		if kit.CurrentStock < count {
			return InsufficientStock(kit.Name, decimal.NewFromInt(int64(count)), decimal.NewFromInt(int64(kit.CurrentStock)))
		}
		if err := returnMaterials(kit, count); err != nil {
			return err
		}
		kit.CurrentStock -= count
		if err := persistRawItems(repo, items); err != nil {
			return err
		}
		if err := repo.SaveKitStock(kit); err != nil {
			return err
		}
		return b.audit.Record(ctx, repo, ActionDisassembleKit, "Disassembled %d of Kit: %s", count, kit.Name)
	})
	if err != nil {
		return nil, err
	}
	return kit, nil
}

// DeleteKit disassembles any remaining units before removing the kit.
func (b *BomEngine) DeleteKit(ctx context.Context, kitID uint) error {
	return b.uow.Do(ctx, func(repo Repository) error {
		kit, items, err := lockKitWithMaterials(repo, kitID)
		if err != nil {
			return err
		}
		remaining := kit.CurrentStock
		if remaining > 0 {
			if err := returnMaterials(kit, remaining); err != nil {
				return err
			}
			if err := persistRawItems(repo, items); err != nil {
				return err
			}
		}
		if err := repo.DeleteKit(kitID); err != nil {
			return err
		}
		return b.audit.Record(ctx, repo, ActionKitDeleted,
			"Deleted kit %s (%d); %d remaining unit(s) disassembled back into raw stock", kit.Name, kit.ID, remaining)
	})
}
