package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/assetdesk/assetdesk-backend/pkg/enums"
)

// InventoryItem is a trackable asset, either assigned to a person (active) or
// held unassigned in stock. Status and AssignedToID must always agree.
type InventoryItem struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ItemType     string           `gorm:"column:item_type;not null"`
	SerialNumber string           `gorm:"column:serial_number;not null;uniqueIndex"`
	Details      string           `gorm:"column:details"`
	Status       enums.ItemStatus `gorm:"column:status;not null;default:'stock'"`
	AssignedToID *uuid.UUID       `gorm:"column:assigned_to_id;type:uuid"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// Assigned reports whether the item currently has an owner.
func (i InventoryItem) Assigned() bool {
	return i.AssignedToID != nil
}
