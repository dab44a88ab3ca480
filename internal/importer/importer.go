// Package importer loads opening raw-material stock from the legacy
// inventory workbook.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"go-rental-ledger/internal/config"
	"go-rental-ledger/internal/inventory"
	"go-rental-ledger/internal/models"
)

const ItemsSheet = "ItemsInventory"

// Column positions in the ItemsInventory sheet. Column 4 is unused.
const (
	colID = iota
	colCategory
	colName
	colImage
	_
	colQuantity
	colUnitPrice
)

const uncategorized = "Uncategorized"

// Row is one parsed ItemsInventory line.
type Row struct {
	Line      int
	Category  string
	Name      string
	ImageURL  string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

type Result struct {
	Created int      `json:"created"`
	Skipped []string `json:"skipped"`
}

type Importer struct {
	db     *gorm.DB
	engine *inventory.Engine
}

func New(db *gorm.DB, engine *inventory.Engine) *Importer {
	return &Importer{db: db, engine: engine}
}

func (im *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open Excel file: %w", err)
	}
	defer f.Close()
	return im.ImportWorkbook(ctx, f)
}

// ImportWorkbook creates a raw item per row and books its quantity as opening
// stock at the row's unit price, so the MAC starts at that price. Rows whose
// name already exists are skipped; a bad row stops the import with its line
// number, leaving earlier rows in place.
func (im *Importer) ImportWorkbook(ctx context.Context, f *excelize.File) (*Result, error) {
	rows, err := ParseItems(f)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	categories := make(map[string]uint)
	for _, row := range rows {
		var existing int64
		if err := im.db.Model(&models.RawItem{}).Where("name = ?", row.Name).Count(&existing).Error; err != nil {
			return result, err
		}
		if existing > 0 {
			result.Skipped = append(result.Skipped, fmt.Sprintf("Row %d: duplicate raw item %q", row.Line, row.Name))
			continue
		}

		categoryID, ok := categories[row.Category]
		if !ok {
			category := models.Category{Name: row.Category}
			if err := im.db.Where(models.Category{Name: row.Category}).FirstOrCreate(&category).Error; err != nil {
				return result, fmt.Errorf("row %d: category %q: %w", row.Line, row.Category, err)
			}
			categoryID = category.ID
			categories[row.Category] = categoryID
		}

		item, err := im.engine.Catalog.CreateRawItem(ctx, inventory.NewRawItem{
			Name:       row.Name,
			CategoryID: &categoryID,
			ImageURL:   row.ImageURL,
		})
		if err != nil {
			return result, fmt.Errorf("row %d: %w", row.Line, err)
		}
		if row.Quantity.IsPositive() {
			if _, err := im.engine.Ledger.AddOpeningStock(ctx, item.ID, row.Quantity, row.UnitPrice); err != nil {
				return result, fmt.Errorf("row %d: %w", row.Line, err)
			}
		}
		result.Created++
	}

	config.GetLogger().WithFields(map[string]any{
		"created": result.Created,
		"skipped": len(result.Skipped),
	}).Info("inventory workbook imported")
	return result, nil
}

// ParseItems reads the ItemsInventory sheet, skipping the header and rows
// without an id. Blank quantities and prices count as zero.
func ParseItems(f *excelize.File) ([]Row, error) {
	raw, err := f.GetRows(ItemsSheet)
	if err != nil {
		return nil, fmt.Errorf("unable to read sheet %s: %w", ItemsSheet, err)
	}
	if len(raw) == 0 {
		return nil, errors.New("sheet " + ItemsSheet + " is empty")
	}

	var rows []Row
	for i, cells := range raw[1:] {
		line := i + 2
		if cell(cells, colID) == "" {
			continue
		}
		row := Row{
			Line:     line,
			Category: cell(cells, colCategory),
			Name:     cell(cells, colName),
			ImageURL: cell(cells, colImage),
		}
		if row.Category == "" {
			row.Category = uncategorized
		}
		if row.Name == "" {
			return nil, fmt.Errorf("row %d: name is empty", line)
		}
		if row.Quantity, err = number(cells, colQuantity); err != nil {
			return nil, fmt.Errorf("row %d: could not parse quantity: %w", line, err)
		}
		if row.UnitPrice, err = number(cells, colUnitPrice); err != nil {
			return nil, fmt.Errorf("row %d: could not parse unit price: %w", line, err)
		}
		if row.Quantity.IsNegative() || row.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("row %d: quantity and unit price must not be negative", line)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func cell(cells []string, i int) string {
	if i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func number(cells []string, i int) (decimal.Decimal, error) {
	v := strings.ReplaceAll(cell(cells, i), ",", "")
	if v == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(v)
}
