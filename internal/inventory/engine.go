package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateCommand runs the struct tags of a command and reports failures as a
// validation error naming every offending field.
func validateCommand(cmd any) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Validation("%v", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return Validation("%s", strings.Join(msgs, "; "))
}

// Engine groups the ledger services over one store.
type Engine struct {
	Catalog   *Catalog
	Ledger    *StockLedger
	Kits      *BomEngine
	Purchases *PurchaseReceiver
	Sales     *SaleProcessor
	Rentals   *RentalAvailabilityCalculator
}

// NewEngine wires the services. locker may be nil when no shared lock store
// is configured.
func NewEngine(uow UnitOfWork, locker Locker) *Engine {
	if locker == nil {
		locker = nopLocker{}
	}
	audit := NewAuditTrail()
	return &Engine{
		Catalog:   &Catalog{uow: uow, audit: audit},
		Ledger:    &StockLedger{uow: uow, audit: audit},
		Kits:      &BomEngine{uow: uow, audit: audit},
		Purchases: &PurchaseReceiver{uow: uow, audit: audit, now: time.Now},
		Sales:     &SaleProcessor{uow: uow, audit: audit, locker: locker, now: time.Now},
		Rentals:   &RentalAvailabilityCalculator{uow: uow},
	}
}
