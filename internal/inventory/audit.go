package inventory

import (
	"context"
	"fmt"
	"time"

	"go-rental-ledger/internal/models"
)

// Audit actions. The log viewer groups on these strings, keep them stable.
const (
	ActionInventoryAdjustment = "INVENTORY_ADJUSTMENT"
	ActionOpeningStock        = "OPENING_STOCK"
	ActionItemDeleted         = "ITEM_DELETED"
	ActionKitCreated          = "KIT_CREATED"
	ActionKitUpdated          = "KIT_UPDATED"
	ActionAssembleKit         = "ASSEMBLE_KIT"
	ActionDisassembleKit      = "DISASSEMBLED_KIT"
	ActionKitDeleted          = "KIT_DELETED"
	ActionPurchaseCreated     = "PURCHASE_CREATED"
	ActionPurchaseReceived    = "PURCHASE_RECEIVED"
	ActionPurchaseDeleted     = "PURCHASE_DELETED"
	ActionNewSale             = "NEW_SALE"
	ActionSaleEdited          = "SALE_EDITED"
	ActionDeleteSale          = "DELETE_SALE"
	ActionRentalCreated       = "RENTAL_CREATED"
	ActionRentalDamage        = "RENTAL_DAMAGE_WRITEOFF"
	ActionRentalReturned      = "RENTAL_RETURNED"
)

// AuditTrail appends entries through the repository of the running
// transaction, so an entry exists exactly when its operation committed.
type AuditTrail struct {
	now func() time.Time
}

func NewAuditTrail() *AuditTrail {
	return &AuditTrail{now: time.Now}
}

func (a *AuditTrail) Record(ctx context.Context, repo Repository, action, format string, args ...any) error {
	entry := &models.AuditLog{
		Actor:     ActorFrom(ctx),
		Action:    action,
		Details:   fmt.Sprintf(format, args...),
		CreatedAt: a.now(),
	}
	if err := repo.AppendAudit(entry); err != nil {
		return fmt.Errorf("append audit %s: %w", action, err)
	}
	return nil
}
