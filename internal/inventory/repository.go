package inventory

import (
	"context"
	"time"

	"go-rental-ledger/internal/models"
)

// Repository is the ledger store as seen from inside one transaction. Lock*
// methods read the row with an exclusive lock that is held until the
// transaction ends; Get* methods are plain reads.
type Repository interface {
	CreateRawItem(item *models.RawItem) error
	LockRawItems(ids []uint) (map[uint]*models.RawItem, error)
	GetRawItem(id uint) (*models.RawItem, error)
	SaveRawItemStock(item *models.RawItem) error
	CountRawItemUsage(id uint) (int64, error)
	DeleteRawItem(id uint) error

	LockKits(ids []uint) (map[uint]*models.Kit, error)
	GetKit(id uint) (*models.Kit, error)
	CreateKit(kit *models.Kit) error
	UpdateKit(kit *models.Kit, replaceBom bool) error
	SaveKitStock(kit *models.Kit) error
	DeleteKit(id uint) error

	LockPurchase(id uint) (*models.Purchase, error)
	CreatePurchase(purchase *models.Purchase) error
	MarkPurchaseCompleted(purchase *models.Purchase) error
	DeletePurchase(id uint) error

	CreateRentalItem(item *models.RentalItem) error
	LockRentalItem(id uint) (*models.RentalItem, error)
	GetRentalItem(id uint) (*models.RentalItem, error)
	SaveRentalStock(item *models.RentalItem) error
	ActiveBookings(rentalItemID uint, from, to time.Time) ([]models.SaleLineItem, error)
	LockActiveBookings(rentalItemID uint, from, to time.Time) ([]models.SaleLineItem, error)

	ResolveCustomer(id uint, name, phone string) (*models.Customer, error)
	CreateSale(sale *models.Sale) error
	LockSale(id uint) (*models.Sale, error)
	DeleteSale(id uint) error
	LockSaleLineItem(id uint) (*models.SaleLineItem, error)
	MarkLineReturned(line *models.SaleLineItem) error

	AppendAudit(entry *models.AuditLog) error
}

// UnitOfWork runs fn inside one transaction: committed when fn returns nil,
// rolled back otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repo Repository) error) error
}

// Locker is a best-effort cross-instance lock. Correctness never depends on it;
// row locks inside the transaction are authoritative.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type nopLocker struct{}

func (nopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

type actorKey struct{}

// WithActor records who is performing the operation for the audit trail.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored by WithActor, or "system".
func ActorFrom(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return "system"
}
