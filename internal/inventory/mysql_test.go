package inventory_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"go-rental-ledger/internal/database"
	"go-rental-ledger/internal/models"
)

// newMySQLFixture runs the engine against a real InnoDB server, where row
// locks and snapshot reads behave as they do in production. The database
// named by TEST_MYSQL_DSN is wiped.
func newMySQLFixture(t *testing.T) *fixture {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires mysql)")
	}
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("set TEST_MYSQL_DSN, e.g. root:secret@tcp(127.0.0.1:3306)/ledger_test?parseTime=true")
	}

	db, err := database.Open("mysql", dsn, logger.Silent)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(8)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrator().DropTable(
		&models.Customization{}, &models.SaleLineItem{}, &models.Sale{}, &models.Customer{},
		&models.PurchaseLineItem{}, &models.Purchase{}, &models.BomLine{}, &models.Kit{},
		&models.RawItem{}, &models.RentalItem{}, &models.Category{}, &models.AuditLog{},
		&models.Expense{}, &models.ExpenseCategory{}, &models.User{},
	))
	require.NoError(t, database.Migrate(db))
	return newFixtureWith(t, db)
}

func TestMySQL_ConcurrentBookingsNeverOverbook(t *testing.T) {
	newMySQLFixture(t).assertConcurrentBookingsNeverOverbook()
}

func TestMySQL_ConcurrentAssemblyNeverOversells(t *testing.T) {
	newMySQLFixture(t).assertConcurrentAssemblyNeverOversells()
}
