package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/assetdesk/assetdesk-backend/pkg/enums"
)

// AuditLog is an append-only record of a mutating or security-relevant action.
// EntityID is nil for bulk actions such as a CSV export. Rows are never
// updated or deleted once written.
type AuditLog struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Action     enums.AuditAction `gorm:"column:action;not null"`
	EntityType enums.AuditEntity `gorm:"column:entity_type;not null"`
	EntityID   *uuid.UUID        `gorm:"column:entity_id;type:uuid"`
	ActorID    uuid.UUID         `gorm:"column:actor_id;type:uuid;not null"`
	Details    string            `gorm:"column:details"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
}
