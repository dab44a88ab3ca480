package importer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"go-rental-ledger/internal/database"
	"go-rental-ledger/internal/inventory"
	"go-rental-ledger/internal/models"
)

func workbook(t *testing.T, rows ...[]any) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	require.NoError(t, f.SetSheetName("Sheet1", ItemsSheet))

	header := []any{"ID", "Category", "Name", "Image", "Notes", "Available Q", "Unit Price"}
	require.NoError(t, f.SetSheetRow(ItemsSheet, "A1", &header))
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(ItemsSheet, cellName, &row))
	}
	return f
}

func newImporter(t *testing.T) (*Importer, *gorm.DB) {
	t.Helper()
	db, err := database.Open("sqlite", "file::memory:", logger.Silent)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	return New(db, inventory.NewEngine(database.NewUnitOfWork(db), nil)), db
}

func TestParseItems(t *testing.T) {
	f := workbook(t,
		[]any{"R1", "Decor", "Gold balloon", "", "", 120, "0.35"},
		[]any{"", "Decor", "no id, ignored"},
		[]any{"R2", "", "Ribbon", "https://img/ribbon.png", "", "1,000", nil},
	)

	rows, err := ParseItems(f)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Gold balloon", rows[0].Name)
	assert.Equal(t, "120", rows[0].Quantity.String())
	assert.Equal(t, "0.35", rows[0].UnitPrice.String())

	assert.Equal(t, 4, rows[1].Line)
	assert.Equal(t, uncategorized, rows[1].Category)
	assert.Equal(t, "1000", rows[1].Quantity.String())
	assert.True(t, rows[1].UnitPrice.IsZero())
}

func TestParseItems_RejectsBadNumbers(t *testing.T) {
	f := workbook(t, []any{"R1", "Decor", "Balloon", "", "", "lots", 1})

	_, err := ParseItems(f)
	assert.ErrorContains(t, err, "row 2")
}

func TestParseItems_MissingSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	_, err := ParseItems(f)
	assert.Error(t, err)
}

func TestImportWorkbook(t *testing.T) {
	im, db := newImporter(t)
	ctx := inventory.WithActor(context.Background(), "import")

	result, err := im.ImportWorkbook(ctx, workbook(t,
		[]any{"R1", "Decor", "Gold balloon", "", "", 100, "0.5"},
		[]any{"R2", "Decor", "Ribbon", "", "", 0, 2},
	))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Empty(t, result.Skipped)

	var balloon models.RawItem
	require.NoError(t, db.Where("name = ?", "Gold balloon").First(&balloon).Error)
	assert.Equal(t, "100", balloon.CurrentStock.String())
	assert.Equal(t, "0.5", balloon.MovingAverageCost.String())

	var categories int64
	require.NoError(t, db.Model(&models.Category{}).Count(&categories).Error)
	assert.Equal(t, int64(1), categories)

	var opening int64
	require.NoError(t, db.Model(&models.AuditLog{}).Where("action = ?", inventory.ActionOpeningStock).Count(&opening).Error)
	assert.Equal(t, int64(1), opening)

	// a second run only reports duplicates
	result, err = im.ImportWorkbook(ctx, workbook(t, []any{"R1", "Decor", "Gold balloon", "", "", 100, "0.5"}))
	require.NoError(t, err)
	assert.Zero(t, result.Created)
	assert.Len(t, result.Skipped, 1)
}
