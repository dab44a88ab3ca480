package database

import (
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-rental-ledger/internal/inventory"
	"go-rental-ledger/internal/models"
)

// repository implements inventory.Repository on one gorm transaction.
type repository struct {
	tx *gorm.DB
}

var _ inventory.Repository = (*repository)(nil)

// forUpdate reads with SELECT ... FOR UPDATE. Drivers without row locks
// (sqlite) drop the clause.
func (r *repository) forUpdate() *gorm.DB {
	return r.tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func notFound(err error, resource string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return inventory.NotFound(resource, id)
	}
	return err
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// firstMissing reports the first requested id absent from found.
func firstMissing[V any](ids []uint, found map[uint]V) (uint, bool) {
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return id, true
		}
	}
	return 0, false
}

func (r *repository) bomLines(db *gorm.DB) *gorm.DB {
	return db.Order("position, id")
}

// --- raw items ---

func (r *repository) CreateRawItem(item *models.RawItem) error {
	return r.tx.Create(item).Error
}

// LockRawItems locks rows in ascending id order.
func (r *repository) LockRawItems(ids []uint) (map[uint]*models.RawItem, error) {
	ids = uniqueIDs(ids)
	out := make(map[uint]*models.RawItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var items []*models.RawItem
	if err := r.forUpdate().Where("id IN ?", ids).Order("id").Find(&items).Error; err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.ID] = item
	}
	if id, missing := firstMissing(ids, out); missing {
		return nil, inventory.NotFound("raw item", id)
	}
	return out, nil
}

func (r *repository) GetRawItem(id uint) (*models.RawItem, error) {
	var item models.RawItem
	if err := r.tx.First(&item, id).Error; err != nil {
		return nil, notFound(err, "raw item", id)
	}
	return &item, nil
}

func (r *repository) SaveRawItemStock(item *models.RawItem) error {
	return r.tx.Model(item).Omit(clause.Associations).Updates(map[string]any{
		"current_stock":       item.CurrentStock,
		"moving_average_cost": item.MovingAverageCost,
	}).Error
}

// CountRawItemUsage counts BOM and purchase lines that reference the item.
func (r *repository) CountRawItemUsage(id uint) (int64, error) {
	var bom, purchases int64
	if err := r.tx.Model(&models.BomLine{}).Where("raw_item_id = ?", id).Count(&bom).Error; err != nil {
		return 0, err
	}
	if err := r.tx.Model(&models.PurchaseLineItem{}).Where("raw_item_id = ?", id).Count(&purchases).Error; err != nil {
		return 0, err
	}
	return bom + purchases, nil
}

func (r *repository) DeleteRawItem(id uint) error {
	return r.tx.Delete(&models.RawItem{}, id).Error
}

// --- kits ---

func (r *repository) LockKits(ids []uint) (map[uint]*models.Kit, error) {
	ids = uniqueIDs(ids)
	out := make(map[uint]*models.Kit, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var kits []*models.Kit
	err := r.forUpdate().
		Preload("BomLines", r.bomLines).
		Where("id IN ?", ids).
		Order("id").
		Find(&kits).Error
	if err != nil {
		return nil, err
	}
	for _, kit := range kits {
		out[kit.ID] = kit
	}
	if id, missing := firstMissing(ids, out); missing {
		return nil, inventory.NotFound("kit", id)
	}
	return out, nil
}

func (r *repository) GetKit(id uint) (*models.Kit, error) {
	var kit models.Kit
	err := r.tx.
		Preload("BomLines", r.bomLines).
		Preload("BomLines.RawItem").
		First(&kit, id).Error
	if err != nil {
		return nil, notFound(err, "kit", id)
	}
	return &kit, nil
}

func (r *repository) CreateKit(kit *models.Kit) error {
	return r.tx.Create(kit).Error
}

// UpdateKit writes the kit's own columns and, when asked, swaps its BOM lines.
func (r *repository) UpdateKit(kit *models.Kit, replaceBom bool) error {
	err := r.tx.Model(kit).Omit(clause.Associations).Updates(map[string]any{
		"name":            kit.Name,
		"image_url":       kit.ImageURL,
		"base_sale_price": kit.BaseSalePrice,
	}).Error
	if err != nil || !replaceBom {
		return err
	}
	if err := r.tx.Where("kit_id = ?", kit.ID).Delete(&models.BomLine{}).Error; err != nil {
		return err
	}
	if len(kit.BomLines) == 0 {
		return nil
	}
	for i := range kit.BomLines {
		kit.BomLines[i].ID = 0
		kit.BomLines[i].KitID = kit.ID
	}
	return r.tx.Omit("RawItem").Create(&kit.BomLines).Error
}

func (r *repository) SaveKitStock(kit *models.Kit) error {
	return r.tx.Model(kit).Omit(clause.Associations).Update("current_stock", kit.CurrentStock).Error
}

func (r *repository) DeleteKit(id uint) error {
	if err := r.tx.Where("kit_id = ?", id).Delete(&models.BomLine{}).Error; err != nil {
		return err
	}
	return r.tx.Delete(&models.Kit{}, id).Error
}

// --- purchases ---

func (r *repository) LockPurchase(id uint) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := r.forUpdate().Preload("Items").First(&purchase, id).Error; err != nil {
		return nil, notFound(err, "purchase", id)
	}
	return &purchase, nil
}

func (r *repository) CreatePurchase(purchase *models.Purchase) error {
	return r.tx.Create(purchase).Error
}

func (r *repository) MarkPurchaseCompleted(purchase *models.Purchase) error {
	return r.tx.Model(purchase).Omit(clause.Associations).Updates(map[string]any{
		"status":      purchase.Status,
		"received_at": purchase.ReceivedAt,
	}).Error
}

func (r *repository) DeletePurchase(id uint) error {
	if err := r.tx.Where("purchase_id = ?", id).Delete(&models.PurchaseLineItem{}).Error; err != nil {
		return err
	}
	return r.tx.Delete(&models.Purchase{}, id).Error
}

// --- rentals ---

func (r *repository) CreateRentalItem(item *models.RentalItem) error {
	return r.tx.Create(item).Error
}

func (r *repository) LockRentalItem(id uint) (*models.RentalItem, error) {
	var item models.RentalItem
	if err := r.forUpdate().First(&item, id).Error; err != nil {
		return nil, notFound(err, "rental item", id)
	}
	return &item, nil
}

func (r *repository) GetRentalItem(id uint) (*models.RentalItem, error) {
	var item models.RentalItem
	if err := r.tx.First(&item, id).Error; err != nil {
		return nil, notFound(err, "rental item", id)
	}
	return &item, nil
}

func (r *repository) SaveRentalStock(item *models.RentalItem) error {
	return r.tx.Model(item).Omit(clause.Associations).Update("total_stock", item.TotalStock).Error
}

// ActiveBookings returns unreturned rental lines of the item whose booked
// period intersects [from, to].
func (r *repository) ActiveBookings(rentalItemID uint, from, to time.Time) ([]models.SaleLineItem, error) {
	return r.activeBookings(r.tx, rentalItemID, from, to)
}

// LockActiveBookings is ActiveBookings as a locking read, so it sees bookings
// committed after this transaction took its snapshot.
func (r *repository) LockActiveBookings(rentalItemID uint, from, to time.Time) ([]models.SaleLineItem, error) {
	return r.activeBookings(r.forUpdate(), rentalItemID, from, to)
}

func (r *repository) activeBookings(q *gorm.DB, rentalItemID uint, from, to time.Time) ([]models.SaleLineItem, error) {
	var lines []models.SaleLineItem
	err := q.
		Where("item_type = ? AND item_id = ? AND is_returned = ?", models.ItemTypeRental, rentalItemID, false).
		Where("rental_start_date <= ? AND rental_end_date >= ?", to, from).
		Find(&lines).Error
	return lines, err
}

// --- sales ---

// ResolveCustomer loads the customer by id, or finds-or-creates one by phone.
func (r *repository) ResolveCustomer(id uint, name, phone string) (*models.Customer, error) {
	var customer models.Customer
	if id != 0 {
		if err := r.tx.First(&customer, id).Error; err != nil {
			return nil, notFound(err, "customer", id)
		}
		return &customer, nil
	}
	err := r.tx.Where(models.Customer{Phone: phone}).
		Attrs(models.Customer{Name: name}).
		FirstOrCreate(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) CreateSale(sale *models.Sale) error {
	return r.tx.Omit("Customer").Create(sale).Error
}

func (r *repository) LockSale(id uint) (*models.Sale, error) {
	var sale models.Sale
	if err := r.forUpdate().Preload("Items.Customizations").First(&sale, id).Error; err != nil {
		return nil, notFound(err, "sale", id)
	}
	return &sale, nil
}

func (r *repository) DeleteSale(id uint) error {
	lineIDs := r.tx.Model(&models.SaleLineItem{}).Select("id").Where("sale_id = ?", id)
	if err := r.tx.Where("sale_line_item_id IN (?)", lineIDs).Delete(&models.Customization{}).Error; err != nil {
		return err
	}
	if err := r.tx.Where("sale_id = ?", id).Delete(&models.SaleLineItem{}).Error; err != nil {
		return err
	}
	return r.tx.Delete(&models.Sale{}, id).Error
}

func (r *repository) LockSaleLineItem(id uint) (*models.SaleLineItem, error) {
	var line models.SaleLineItem
	if err := r.forUpdate().First(&line, id).Error; err != nil {
		return nil, notFound(err, "sale line", id)
	}
	return &line, nil
}

func (r *repository) MarkLineReturned(line *models.SaleLineItem) error {
	return r.tx.Model(line).Omit(clause.Associations).Updates(map[string]any{
		"is_returned":      line.IsReturned,
		"returned_at":      line.ReturnedAt,
		"damaged_quantity": line.DamagedQuantity,
	}).Error
}

func (r *repository) AppendAudit(entry *models.AuditLog) error {
	return r.tx.Create(entry).Error
}
