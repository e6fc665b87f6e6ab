package audit

import (
	"context"
	"fmt"

	"github.com/assetdesk/assetdesk-backend/pkg/db/models"
	"github.com/assetdesk/assetdesk-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Entry describes one auditable event. EntityID stays nil for bulk actions
// such as a CSV export.
type Entry struct {
	Action     enums.AuditAction
	EntityType enums.AuditEntity
	EntityID   *uuid.UUID
	ActorID    uuid.UUID
	Details    string
}

// Recorder appends audit rows. Record runs against the caller's transaction
// so the entity mutation and its audit row commit or roll back together.
type Recorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
}

type recorder struct {
	repo *Repository
}

// NewRecorder builds the default recorder backed by the audit repository.
func NewRecorder(repo *Repository) (Recorder, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository is required")
	}
	return &recorder{repo: repo}, nil
}

func (r *recorder) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if !entry.Action.IsValid() {
		return fmt.Errorf("invalid audit action %q", entry.Action)
	}
	if !entry.EntityType.IsValid() {
		return fmt.Errorf("invalid audit entity %q", entry.EntityType)
	}
	if entry.ActorID == uuid.Nil {
		return fmt.Errorf("audit actor id is required")
	}

	row := &models.AuditLog{
		ID:         uuid.New(),
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		ActorID:    entry.ActorID,
		Details:    entry.Details,
	}
	return r.repo.WithTx(tx).Append(ctx, row)
}
