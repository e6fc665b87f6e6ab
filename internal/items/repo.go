package items

import (
	"context"
	"strings"

	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository wraps inventory item persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts the item.
func (r *Repository) Create(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// Update saves all mutable columns of the item.
func (r *Repository) Update(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"item_type":      item.ItemType,
			"serial_number":  item.SerialNumber,
			"details":        item.Details,
			"status":         item.Status,
			"assigned_to_id": item.AssignedToID,
		}).Error
}

// Delete removes the item row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.InventoryItem{}, "id = ?", id).Error
}

// FindByID loads one item.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// SerialTaken reports whether another item already uses the serial number.
func (r *Repository) SerialTaken(ctx context.Context, serial string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.InventoryItem{}).Where("serial_number = ?", serial)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// PersonExists reports whether the referenced person row exists.
func (r *Repository) PersonExists(ctx context.Context, personID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Person{}).
		Where("id = ?", personID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

type itemRow struct {
	models.InventoryItem
	AssignedFirstName *string `gorm:"column:assigned_first_name"`
	AssignedLastName  *string `gorm:"column:assigned_last_name"`
}

// Search returns items matching the query as a case-insensitive substring over
// the item's own fields and the owning person's name. Unassigned items still
// match on their own fields through the LEFT JOIN. An empty query returns
// everything in insertion order.
func (r *Repository) Search(ctx context.Context, query string) ([]itemRow, error) {
	qb := r.db.WithContext(ctx).
		Table("inventory_items AS i").
		Select("i.*, p.first_name AS assigned_first_name, p.last_name AS assigned_last_name").
		Joins("LEFT JOIN persons p ON p.id = i.assigned_to_id")

	if search := strings.TrimSpace(query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where(
			"(LOWER(i.item_type) LIKE ? OR LOWER(i.serial_number) LIKE ? OR LOWER(i.details) LIKE ? OR LOWER(p.first_name) LIKE ? OR LOWER(p.last_name) LIKE ?)",
			pattern, pattern, pattern, pattern, pattern,
		)
	}

	var rows []itemRow
	if err := qb.Order("i.created_at ASC, i.id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetRow loads one item with the owner's name joined in.
func (r *Repository) GetRow(ctx context.Context, id uuid.UUID) (*itemRow, error) {
	var row itemRow
	if err := r.db.WithContext(ctx).
		Table("inventory_items AS i").
		Select("i.*, p.first_name AS assigned_first_name, p.last_name AS assigned_last_name").
		Joins("LEFT JOIN persons p ON p.id = i.assigned_to_id").
		Where("i.id = ?", id).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
