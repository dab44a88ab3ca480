package database

import (
	"context"

	"gorm.io/gorm"

	"go-rental-ledger/internal/inventory"
)

// UnitOfWork runs ledger operations in a gorm transaction.
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(repo inventory.Repository) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&repository{tx: tx})
	})
}
