package database

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"go-rental-ledger/internal/config"
	"go-rental-ledger/internal/models"
)

var DB *gorm.DB

// Connect opens the configured database, retrying while it comes up, and
// syncs the schema.
func Connect(cfg *config.Config) error {
	logg := config.GetLogger()
	if cfg.DBDSN == "" && cfg.DBDriver != "sqlite" {
		return fmt.Errorf("DB_DSN is not set, please configure your database")
	}

	level := logger.Warn
	if !cfg.IsProduction() {
		level = logger.Info
	}

	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < 5; i++ {
		db, err = Open(cfg.DBDriver, cfg.DBDSN, level)
		if err == nil {
			break
		}
		logg.WithError(err).Warnf("failed to connect to database, retrying in 2 seconds (%d/5)", i+1)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return fmt.Errorf("connect to database after 5 attempts: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if cfg.DBDriver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	logg.WithField("driver", cfg.DBDriver).Info("connected to database")

	if err := Migrate(db); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	logg.Info("database schema synced")
	DB = db
	return nil
}

// Open returns a gorm handle for driver "mysql" or "sqlite".
func Open(driver, dsn string, level logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		if dsn == "" {
			dsn = "file::memory:"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
	return gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.RawItem{},
		&models.Kit{},
		&models.BomLine{},
		&models.Purchase{},
		&models.PurchaseLineItem{},
		&models.Customer{},
		&models.Sale{},
		&models.SaleLineItem{},
		&models.Customization{},
		&models.RentalItem{},
		&models.AuditLog{},
		&models.ExpenseCategory{},
		&models.Expense{},
	)
}
